package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Recharge offers
// ============================================================

// BonusKind is the kind of extra bundled with a recharge offer.
type BonusKind string

const (
	BonusMinutes  BonusKind = "Minutes"
	BonusMessages BonusKind = "Messages"
	BonusData     BonusKind = "Data"
)

var bonusAliases = map[string]BonusKind{
	"minutes":  BonusMinutes,
	"minutos":  BonusMinutes,
	"messages": BonusMessages,
	"mensajes": BonusMessages,
	"data":     BonusData,
	"datos":    BonusData,
}

// ParseBonusKind accepts English and Spanish spellings.
func ParseBonusKind(s string) (BonusKind, error) {
	if k, ok := bonusAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return k, nil
	}
	return "", &ErrValidation{Field: "bonuses.kind", Message: "must be one of Minutes, Messages, Data"}
}

// Bonus is one bundled extra of an offer.
type Bonus struct {
	Title string    `json:"title" validate:"required"`
	Kind  BonusKind `json:"kind" validate:"required"`
}

// RechargeOffer is a prepaid top-up product. Price is what the client pays,
// Cost is what the business pays and is what the ledger is debited.
type RechargeOffer struct {
	ID          string          `json:"id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Bonuses     []Bonus         `json:"bonuses"`
	Active      bool            `json:"active"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// OfferRequest is the body of POST and PUT /api/ofertas-recargas.
type OfferRequest struct {
	Title       string          `json:"title" validate:"required,max=200"`
	Description string          `json:"description" validate:"required,max=1000"`
	Price       decimal.Decimal `json:"price"`
	Cost        decimal.Decimal `json:"cost"`
	Bonuses     []Bonus         `json:"bonuses" validate:"dive"`
	Active      *bool           `json:"active"`
}

// ============================================================
// Sales
// ============================================================

// SaleStatus is the settlement state of a recharge or remittance sale.
type SaleStatus string

const (
	SalePending SaleStatus = "Pending"
	SaleDone    SaleStatus = "Done"
)

// DefaultRechargeConfirmation is stored when a recharge is confirmed without a note.
const DefaultRechargeConfirmation = "Recarga confirmada"

// RechargeSale is a recharge requested for a client phone.
type RechargeSale struct {
	ID                  string          `json:"id"`
	OfferID             string          `json:"offerId"`
	ClientID            string          `json:"clientId"`
	Amount              decimal.Decimal `json:"amount"`
	Phone               string          `json:"phone"`
	DestinationProvince string          `json:"destinationProvince"`
	Status              SaleStatus      `json:"status"`
	Confirmation        string          `json:"confirmation,omitempty"`
	Date                time.Time       `json:"date"`
	ConfirmedAt         *time.Time      `json:"confirmedAt,omitempty"`
}

// Confirm marks the sale as done. A sale settles exactly once.
func (s *RechargeSale) Confirm(note string, at time.Time) error {
	if s.Status == SaleDone {
		return &ErrConflict{Message: fmt.Sprintf("recharge %s is already confirmed", s.ID)}
	}
	if strings.TrimSpace(note) == "" {
		note = DefaultRechargeConfirmation
	}
	s.Status = SaleDone
	s.Confirmation = note
	s.ConfirmedAt = &at
	return nil
}

// Beneficiary receives the cash of a remittance sale.
type Beneficiary struct {
	Name       string  `json:"name" validate:"required"`
	Phone      string  `json:"phone" validate:"required"`
	Address    string  `json:"address" validate:"required"`
	CardNumber *string `json:"cardNumber"`
}

// RemittanceSale is a cash remittance sold at the counter and settled
// against the destination province.
type RemittanceSale struct {
	ID                  string          `json:"id"`
	ClientID            string          `json:"clientId"`
	Amount              decimal.Decimal `json:"amount"`
	Cost                decimal.Decimal `json:"cost"`
	Beneficiary         Beneficiary     `json:"beneficiary"`
	DestinationProvince string          `json:"destinationProvince"`
	Description         string          `json:"description,omitempty"`
	Status              SaleStatus      `json:"status"`
	Confirmation        string          `json:"confirmation,omitempty"`
	Date                time.Time       `json:"date"`
	ConfirmedAt         *time.Time      `json:"confirmedAt,omitempty"`
}

// Confirm marks the sale as done, replacing the beneficiary when override is set.
// An override without a card number clears the stored one.
func (s *RemittanceSale) Confirm(note string, override *Beneficiary, at time.Time) error {
	if s.Status == SaleDone {
		return &ErrConflict{Message: fmt.Sprintf("remittance sale %s is already confirmed", s.ID)}
	}
	if override != nil {
		b := *override
		if b.CardNumber != nil && strings.TrimSpace(*b.CardNumber) == "" {
			b.CardNumber = nil
		}
		s.Beneficiary = b
	}
	s.Status = SaleDone
	s.Confirmation = note
	s.ConfirmedAt = &at
	return nil
}

// SettlementAmount is the ledger amount posted for the sale, always negative.
func (s *RemittanceSale) SettlementAmount() decimal.Decimal {
	return s.Amount.Abs().Neg()
}

// ErrSaleNotPending reports an edit or delete of a sale that is already confirmed.
func ErrSaleNotPending(resource, id, action string) error {
	return &ErrConflict{Message: fmt.Sprintf("%s %s is confirmed and cannot be %s", resource, id, action)}
}

// SaleFilter narrows recharge and remittance sale listings.
type SaleFilter struct {
	ClientID   string
	ProvinceID string
	Status     SaleStatus
}

// CreateRechargeRequest is the body of POST /api/recargas.
type CreateRechargeRequest struct {
	OfferID             string `json:"offerId" validate:"required"`
	ClientID            string `json:"clientId" validate:"required"`
	Phone               string `json:"phone" validate:"required"`
	DestinationProvince string `json:"destinationProvince" validate:"required"`
}

// CreateRemittanceSaleRequest is the body of POST /api/remesas.
// Either BeneficiaryID (a saved recipient of the client) or Beneficiary is required.
type CreateRemittanceSaleRequest struct {
	ClientID            string          `json:"clientId" validate:"required"`
	Amount              decimal.Decimal `json:"amount"`
	Cost                decimal.Decimal `json:"cost"`
	BeneficiaryID       string          `json:"beneficiaryId"`
	Beneficiary         *Beneficiary    `json:"beneficiary"`
	DestinationProvince string          `json:"destinationProvince" validate:"required"`
	Description         string          `json:"description" validate:"max=500"`
}

// UpdateRechargeRequest is the body of PUT /api/recargas/{id}. Empty fields
// keep the stored value; a new offer re-prices the sale.
type UpdateRechargeRequest struct {
	OfferID             string `json:"offerId"`
	ClientID            string `json:"clientId"`
	Phone               string `json:"phone"`
	DestinationProvince string `json:"destinationProvince"`
}

// UpdateRemittanceSaleRequest is the body of PUT /api/remesas/{id}. Nil and
// empty fields keep the stored value.
type UpdateRemittanceSaleRequest struct {
	ClientID            string           `json:"clientId"`
	Amount              *decimal.Decimal `json:"amount"`
	Cost                *decimal.Decimal `json:"cost"`
	BeneficiaryID       string           `json:"beneficiaryId"`
	Beneficiary         *Beneficiary     `json:"beneficiary"`
	DestinationProvince string           `json:"destinationProvince"`
	Description         *string          `json:"description" validate:"omitempty,max=500"`
}

// ConfirmRechargeRequest is the body of PATCH /api/recargas/{id}/confirmar.
type ConfirmRechargeRequest struct {
	Confirmation string `json:"confirmation"`
}

// ConfirmRemittanceSaleRequest is the body of PUT /api/remesas/{id}/confirmar.
type ConfirmRemittanceSaleRequest struct {
	Confirmation string       `json:"confirmation"`
	Beneficiary  *Beneficiary `json:"beneficiary"`
}

// ============================================================
// Settlement results
// ============================================================

// SettlementOutcome says what happened to the ledger side of a settlement.
type SettlementOutcome string

const (
	OutcomeRecorded        SettlementOutcome = "recorded"
	OutcomeSkippedNoLedger SettlementOutcome = "skipped_no_ledger"
	OutcomeFailed          SettlementOutcome = "failed"
)

// SettlementResult reports a settlement. Settled is true once the sale is
// persisted as done; LedgerUpdated is true only if the movement was posted.
type SettlementResult struct {
	Settled       bool              `json:"settled"`
	LedgerUpdated bool              `json:"ledgerUpdated"`
	Outcome       SettlementOutcome `json:"outcome"`
	Reason        string            `json:"reason,omitempty"`
}

// RechargeSettlement is returned by PATCH /api/recargas/{id}/confirmar.
type RechargeSettlement struct {
	Sale     *RechargeSale    `json:"sale"`
	Movement *Movement        `json:"movement,omitempty"`
	Result   SettlementResult `json:"settlement"`
}

// RemittanceSettlement is returned by PUT /api/remesas/{id}/confirmar.
type RemittanceSettlement struct {
	Sale     *RemittanceSale  `json:"sale"`
	Movement *Movement        `json:"movement,omitempty"`
	Result   SettlementResult `json:"settlement"`
}
