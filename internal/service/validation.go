// Package service provides the business logic layer (use cases): the
// province ledger, sale settlement, tracked lifecycles and reporting.
package service

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
	"github.com/ttacon/libphonenumber"

	"github.com/raycargo/backoffice/internal/domain"
)

// Validator checks request DTOs and normalizes phone numbers.
type Validator struct {
	validate      *validator.Validate
	defaultRegion string
}

// NewValidator builds a validator reporting fields by their JSON names.
// defaultRegion is the ISO country assumed for phones without a "+" prefix.
func NewValidator(defaultRegion string) *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{validate: v, defaultRegion: strings.ToUpper(defaultRegion)}
}

// Struct validates s and returns the first failure as *domain.ErrValidation.
func (v *Validator) Struct(s any) error {
	err := v.validate.Struct(s)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return fmt.Errorf("validate: %w", err)
	}
	fe := verrs[0]
	return &domain.ErrValidation{Field: fieldPath(fe), Message: tagMessage(fe)}
}

// fieldPath drops the root struct name: "OfferRequest.bonuses[0].title" → "bonuses[0].title".
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return fe.Field()
}

func tagMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required", "required_if":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	default:
		return "failed " + fe.Tag() + " check"
	}
}

// Phone parses a phone number and returns it in E.164 form.
func (v *Validator) Phone(field, raw string) (string, error) {
	p, err := libphonenumber.Parse(strings.TrimSpace(raw), v.defaultRegion)
	if err != nil {
		return "", &domain.ErrValidation{Field: field, Message: "is not a phone number"}
	}
	if !libphonenumber.IsValidNumber(p) {
		return "", &domain.ErrValidation{Field: field, Message: "is not a valid phone number"}
	}
	return libphonenumber.Format(p, libphonenumber.E164), nil
}

func requirePositive(field string, d decimal.Decimal) error {
	if !d.IsPositive() {
		return &domain.ErrValidation{Field: field, Message: "must be greater than zero"}
	}
	return nil
}

func requireNonNegative(field string, d decimal.Decimal) error {
	if d.IsNegative() {
		return &domain.ErrValidation{Field: field, Message: "must not be negative"}
	}
	return nil
}
