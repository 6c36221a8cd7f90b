package domain

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// Amounts travel as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true
}

// ============================================================
// Movements
// ============================================================

// MovementType classifies a ledger movement by the operation that produced it.
type MovementType string

const (
	MovementCredit               MovementType = "credit"
	MovementRemittanceSettlement MovementType = "remittance-settlement"
	MovementRechargeSettlement   MovementType = "recharge-settlement"
)

// legacy wire names still sent by the admin front-end
var movementAliases = map[string]MovementType{
	"entrada": MovementCredit,
	"remesa":  MovementRemittanceSettlement,
	"recarga": MovementRechargeSettlement,
}

// ParseMovementType normalizes a wire value into a MovementType.
func ParseMovementType(s string) (MovementType, error) {
	v := strings.ToLower(strings.TrimSpace(s))
	switch MovementType(v) {
	case MovementCredit, MovementRemittanceSettlement, MovementRechargeSettlement:
		return MovementType(v), nil
	}
	if t, ok := movementAliases[v]; ok {
		return t, nil
	}
	return "", &ErrValidation{Field: "type", Message: "must be one of credit, remittance-settlement, recharge-settlement"}
}

// Signed applies the ledger sign convention to a magnitude:
// credits are positive, settlements are negative.
func (t MovementType) Signed(amount decimal.Decimal) decimal.Decimal {
	if t == MovementCredit {
		return amount.Abs()
	}
	return amount.Abs().Neg()
}

// Movement is one signed entry of a province ledger. Immutable once appended.
type Movement struct {
	ID           string          `json:"id"`
	Type         MovementType    `json:"type"`
	Amount       decimal.Decimal `json:"amount"`
	OperationRef *string         `json:"operationRef,omitempty"`
	Date         time.Time       `json:"date"`
}

// ============================================================
// Province ledger
// ============================================================

// ProvinceLedger is the append-only movement log of one province.
// Balance always equals Recompute(Movements).
type ProvinceLedger struct {
	ID         string          `json:"id"`
	ProvinceID string          `json:"provinceId"`
	Balance    decimal.Decimal `json:"balance"`
	Movements  []Movement      `json:"movements"`
	Version    int64           `json:"version"`
	CreatedAt  time.Time       `json:"createdAt"`
	UpdatedAt  time.Time       `json:"updatedAt"`
}

// NewProvinceLedger returns an empty ledger with a zero balance.
func NewProvinceLedger(id, provinceID string, now time.Time) *ProvinceLedger {
	return &ProvinceLedger{
		ID:         id,
		ProvinceID: provinceID,
		Balance:    decimal.Zero,
		Movements:  []Movement{},
		Version:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Recompute returns the exact sum of the movement amounts.
func Recompute(movements []Movement) decimal.Decimal {
	total := decimal.Zero
	for _, m := range movements {
		total = total.Add(m.Amount)
	}
	return total
}

// Append adds a movement and recomputes the balance.
func (l *ProvinceLedger) Append(m Movement) {
	l.Movements = append(l.Movements, m)
	l.Balance = Recompute(l.Movements)
}

// RemoveMovement drops the movement with the given id and recomputes the
// balance. It reports whether a movement was removed.
func (l *ProvinceLedger) RemoveMovement(id string) bool {
	for i, m := range l.Movements {
		if m.ID == id {
			l.Movements = append(l.Movements[:i:i], l.Movements[i+1:]...)
			l.Balance = Recompute(l.Movements)
			return true
		}
	}
	return false
}

// MovementsByType returns the movements of the given type in ledger order.
func (l *ProvinceLedger) MovementsByType(t MovementType) []Movement {
	var out []Movement
	for _, m := range l.Movements {
		if m.Type == t {
			out = append(out, m)
		}
	}
	return out
}

// TotalByType sums the movements of the given type.
func (l *ProvinceLedger) TotalByType(t MovementType) decimal.Decimal {
	return Recompute(l.MovementsByType(t))
}

// Clone returns a deep copy that shares no slices with l.
func (l *ProvinceLedger) Clone() *ProvinceLedger {
	c := *l
	c.Movements = make([]Movement, len(l.Movements))
	for i, m := range l.Movements {
		c.Movements[i] = m
		if m.OperationRef != nil {
			ref := *m.OperationRef
			c.Movements[i].OperationRef = &ref
		}
	}
	return &c
}

// ============================================================
// Reporting shapes
// ============================================================

// ProvinceRef is the identity of a province joined into reports.
type ProvinceRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// LedgerSummary is a ledger joined with its province identity (GET /api/finance).
type LedgerSummary struct {
	ProvinceLedger
	Province ProvinceRef `json:"province"`
}

// MovementView is a movement joined with the province that owns it.
type MovementView struct {
	Movement
	Province ProvinceRef `json:"province"`
}

// ProvinceTotal is one row of the financial status report.
type ProvinceTotal struct {
	Province  ProvinceRef     `json:"province"`
	Total     decimal.Decimal `json:"total"`
	Movements []Movement      `json:"movements"`
}

// FinancialStatus is returned by GET /api/finance/status.
type FinancialStatus struct {
	ByProvince []ProvinceTotal `json:"byProvince"`
	Total      decimal.Decimal `json:"total"`
}

// MovementFilter narrows a movement listing. Zero values match everything.
// From and To are inclusive.
type MovementFilter struct {
	Type       MovementType
	ProvinceID string
	From       *time.Time
	To         *time.Time
}

// Matches reports whether a movement of the given province passes the filter.
func (f MovementFilter) Matches(provinceID string, m Movement) bool {
	if f.Type != "" && m.Type != f.Type {
		return false
	}
	if f.ProvinceID != "" && provinceID != f.ProvinceID {
		return false
	}
	if f.From != nil && m.Date.Before(*f.From) {
		return false
	}
	if f.To != nil && m.Date.After(*f.To) {
		return false
	}
	return true
}

// SortMovementViews orders views by date descending, ties broken by id.
func SortMovementViews(views []MovementView) {
	sort.SliceStable(views, func(i, j int) bool {
		if views[i].Date.Equal(views[j].Date) {
			return views[i].ID > views[j].ID
		}
		return views[i].Date.After(views[j].Date)
	})
}

// ManualOperationRequest is the body of POST /api/finance/operation.
type ManualOperationRequest struct {
	Type       string          `json:"type" validate:"required"`
	Amount     decimal.Decimal `json:"amount"`
	ProvinceID string          `json:"provinceId" validate:"required"`
}
