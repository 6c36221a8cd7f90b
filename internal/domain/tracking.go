package domain

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// ============================================================
// Tracking numbers
// ============================================================

// EntityKind identifies a tracked collection.
type EntityKind string

const (
	KindPackage    EntityKind = "package"
	KindRemittance EntityKind = "remittance"
)

// Prefix returns the two-letter tracking prefix of the kind.
func (k EntityKind) Prefix() string {
	switch k {
	case KindPackage:
		return "PX"
	case KindRemittance:
		return "RE"
	}
	return ""
}

// SequenceKey is the counter key for a kind in a given year, e.g. "package:26".
func SequenceKey(kind EntityKind, year int) string {
	return fmt.Sprintf("%s:%02d", kind, year%100)
}

// FormatTrackingNumber renders PREFIX + YY + zero-padded sequence, e.g. PX2600042.
func FormatTrackingNumber(kind EntityKind, year int, seq int64) string {
	return fmt.Sprintf("%s%02d%05d", kind.Prefix(), year%100, seq)
}

// ParseTrackingNumber splits a tracking number into its kind, two-digit year and sequence.
func ParseTrackingNumber(s string) (EntityKind, int, int64, error) {
	if len(s) < 9 {
		return "", 0, 0, &ErrValidation{Field: "trackingNumber", Message: "too short"}
	}
	var kind EntityKind
	switch s[:2] {
	case "PX":
		kind = KindPackage
	case "RE":
		kind = KindRemittance
	default:
		return "", 0, 0, &ErrValidation{Field: "trackingNumber", Message: "unknown prefix " + s[:2]}
	}
	yy, err := strconv.Atoi(s[2:4])
	if err != nil {
		return "", 0, 0, &ErrValidation{Field: "trackingNumber", Message: "invalid year"}
	}
	seq, err := strconv.ParseInt(s[4:], 10, 64)
	if err != nil || seq < 1 {
		return "", 0, 0, &ErrValidation{Field: "trackingNumber", Message: "invalid sequence"}
	}
	return kind, yy, seq, nil
}

// ============================================================
// Status history
// ============================================================

// ActorRef records who performed a status transition.
type ActorRef struct {
	ID   string `json:"id"`
	Role Role   `json:"role"`
}

// StatusEvent is one entry of a tracked entity's append-only history.
type StatusEvent struct {
	Status        string    `json:"status"`
	Timestamp     time.Time `json:"timestamp"`
	Actor         *ActorRef `json:"actor,omitempty"`
	Location      string    `json:"location,omitempty"`
	Notes         string    `json:"notes,omitempty"`
	DeliveryPhoto string    `json:"deliveryPhoto,omitempty"`
}

// Recipient is the person receiving a package or remittance.
type Recipient struct {
	ID             string `json:"id,omitempty"`
	Name           string `json:"name" validate:"required"`
	Phone          string `json:"phone" validate:"required"`
	Address        string `json:"address" validate:"required"`
	BankCardNumber string `json:"bankCardNumber,omitempty"`
}

// ============================================================
// Packages
// ============================================================

// PackageStatus is the lifecycle state of a package.
type PackageStatus string

const (
	PackageReceived     PackageStatus = "RECEIVED"
	PackageTransporting PackageStatus = "TRANSPORTING"
	PackageDelivered    PackageStatus = "DELIVERED"
)

// Valid reports whether s is a known package status.
func (s PackageStatus) Valid() bool {
	switch s {
	case PackageReceived, PackageTransporting, PackageDelivered:
		return true
	}
	return false
}

// Package is a shipment tracked from reception to delivery.
type Package struct {
	ID                  string          `json:"id"`
	TrackingNumber      string          `json:"trackingNumber"`
	ClientID            string          `json:"clientId"`
	Recipient           Recipient       `json:"recipient"`
	Weight              decimal.Decimal `json:"weight"`
	Cost                decimal.Decimal `json:"cost"`
	MoneyAmount         decimal.Decimal `json:"moneyAmount"`
	DestinationProvince string          `json:"destinationProvince"`
	CurrentStatus       PackageStatus   `json:"currentStatus"`
	StatusHistory       []StatusEvent   `json:"statusHistory"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}

// Start records the initial RECEIVED event of a new package.
func (p *Package) Start(location string, at time.Time) {
	p.CurrentStatus = PackageReceived
	p.StatusHistory = []StatusEvent{{
		Status:    string(PackageReceived),
		Timestamp: at,
		Location:  location,
	}}
	p.CreatedAt = at
	p.UpdatedAt = at
}

// Advance moves the package to next and appends ev to its history.
// DELIVERED is terminal and a package never returns to RECEIVED once it left it.
func (p *Package) Advance(next PackageStatus, ev StatusEvent) error {
	if !next.Valid() {
		return p.invalid(next, "unknown status")
	}
	if p.CurrentStatus == PackageDelivered {
		return p.invalid(next, "package already delivered")
	}
	if next == PackageReceived && p.leftReceived() {
		return p.invalid(next, "cannot return to RECEIVED")
	}

	ev.Status = string(next)
	if next != PackageDelivered {
		ev.DeliveryPhoto = ""
	}
	p.StatusHistory = append(p.StatusHistory, ev)
	p.CurrentStatus = next
	p.UpdatedAt = ev.Timestamp
	return nil
}

func (p *Package) leftReceived() bool {
	if p.CurrentStatus != PackageReceived {
		return true
	}
	for _, ev := range p.StatusHistory {
		if ev.Status != string(PackageReceived) {
			return true
		}
	}
	return false
}

func (p *Package) invalid(next PackageStatus, reason string) error {
	return &ErrInvalidTransition{Entity: "package", From: string(p.CurrentStatus), To: string(next), Reason: reason}
}

// PackageFilter narrows a package listing.
type PackageFilter struct {
	Status   PackageStatus
	ClientID string
}

// CreatePackageRequest is the body of POST /api/packages.
// Either RecipientID (one of the client's saved recipients) or Recipient is required.
type CreatePackageRequest struct {
	ClientID            string          `json:"clientId" validate:"required"`
	RecipientID         string          `json:"recipientId"`
	Recipient           *Recipient      `json:"recipient"`
	Weight              decimal.Decimal `json:"weight"`
	Cost                decimal.Decimal `json:"cost"`
	MoneyAmount         decimal.Decimal `json:"moneyAmount"`
	DestinationProvince string          `json:"destinationProvince" validate:"required"`
	Location            string          `json:"location"`
}

// PackageStatusRequest is the body of PUT /api/packages/{id}/status.
type PackageStatusRequest struct {
	Status        string `json:"status" validate:"required"`
	Location      string `json:"location" validate:"required"`
	DeliveryPhoto string `json:"deliveryPhoto"`
}

// ============================================================
// Remittances
// ============================================================

// RemittanceStatus is the lifecycle state of a tracked remittance.
type RemittanceStatus string

const (
	RemittancePending    RemittanceStatus = "PENDING"
	RemittanceProcessing RemittanceStatus = "PROCESSING"
	RemittanceCompleted  RemittanceStatus = "COMPLETED"
	RemittanceCancelled  RemittanceStatus = "CANCELLED"
)

var remittanceRank = map[RemittanceStatus]int{
	RemittancePending:    0,
	RemittanceProcessing: 1,
	RemittanceCompleted:  2,
	RemittanceCancelled:  2,
}

// Valid reports whether s is a known remittance status.
func (s RemittanceStatus) Valid() bool {
	_, ok := remittanceRank[s]
	return ok
}

// Terminal reports whether no transition leaves s.
func (s RemittanceStatus) Terminal() bool {
	return s == RemittanceCompleted || s == RemittanceCancelled
}

// Currency is a tag on a remittance; no conversion happens here.
type Currency string

const (
	CurrencyMLC Currency = "MLC"
	CurrencyUSD Currency = "USD"
	CurrencyCUP Currency = "CUP"
	CurrencyEUR Currency = "EUR"
)

// Remittance is a money transfer tracked from intake to payout.
type Remittance struct {
	ID              string           `json:"id"`
	TrackingNumber  string           `json:"trackingNumber"`
	ClientID        string           `json:"clientId"`
	Recipient       Recipient        `json:"recipient"`
	Amount          decimal.Decimal  `json:"amount"`
	Currency        Currency         `json:"currency"`
	ServiceCost     decimal.Decimal  `json:"serviceCost"`
	HomeDelivery    bool             `json:"homeDelivery"`
	DeliveryAddress string           `json:"deliveryAddress,omitempty"`
	CurrentStatus   RemittanceStatus `json:"currentStatus"`
	StatusHistory   []StatusEvent    `json:"statusHistory"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
}

// Start records the initial PENDING event of a new remittance.
func (r *Remittance) Start(at time.Time) {
	r.CurrentStatus = RemittancePending
	r.StatusHistory = []StatusEvent{{Status: string(RemittancePending), Timestamp: at}}
	r.CreatedAt = at
	r.UpdatedAt = at
}

// Advance moves the remittance to next. COMPLETED and CANCELLED are terminal,
// CANCELLED is reachable from any other state and the flow never goes back.
func (r *Remittance) Advance(next RemittanceStatus, ev StatusEvent) error {
	if !next.Valid() {
		return r.invalid(next, "unknown status")
	}
	if r.CurrentStatus.Terminal() {
		return r.invalid(next, "remittance already "+string(r.CurrentStatus))
	}
	if next != RemittanceCancelled && remittanceRank[next] < remittanceRank[r.CurrentStatus] {
		return r.invalid(next, "cannot move backwards")
	}

	ev.Status = string(next)
	ev.Location = ""
	ev.DeliveryPhoto = ""
	r.StatusHistory = append(r.StatusHistory, ev)
	r.CurrentStatus = next
	r.UpdatedAt = ev.Timestamp
	return nil
}

func (r *Remittance) invalid(next RemittanceStatus, reason string) error {
	return &ErrInvalidTransition{Entity: "remittance", From: string(r.CurrentStatus), To: string(next), Reason: reason}
}

// RemittanceFilter narrows a remittance listing.
type RemittanceFilter struct {
	Status   RemittanceStatus
	ClientID string
	Currency Currency
}

// CreateRemittanceRequest is the body of POST /api/remittances.
type CreateRemittanceRequest struct {
	ClientID        string          `json:"clientId" validate:"required"`
	RecipientID     string          `json:"recipientId"`
	Recipient       *Recipient      `json:"recipient"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency" validate:"required,oneof=MLC USD CUP EUR"`
	ServiceCost     decimal.Decimal `json:"serviceCost"`
	HomeDelivery    bool            `json:"homeDelivery"`
	DeliveryAddress string          `json:"deliveryAddress" validate:"required_if=HomeDelivery true"`
}

// RemittanceStatusRequest is the body of PUT /api/remittances/{id}/status.
type RemittanceStatusRequest struct {
	Status string `json:"status" validate:"required"`
	Notes  string `json:"notes"`
}
