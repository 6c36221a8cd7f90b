package domain_test

import (
	"testing"
	"time"

	"github.com/raycargo/backoffice/internal/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mv(id string, amount int64, at time.Time) domain.Movement {
	return domain.Movement{ID: id, Type: domain.MovementCredit, Amount: decimal.NewFromInt(amount), Date: at}
}

func TestRecompute_SumsMovements(t *testing.T) {
	now := time.Now()
	got := domain.Recompute([]domain.Movement{mv("a", 500, now), mv("b", -300, now), mv("c", 25, now)})
	assert.True(t, got.Equal(decimal.NewFromInt(225)), "got %s", got)
	assert.True(t, domain.Recompute(nil).IsZero())
}

func TestLedger_BalanceTracksAppendAndDelete(t *testing.T) {
	now := time.Now()
	l := domain.NewProvinceLedger("l1", "p1", now)

	l.Append(mv("m1", 500, now))
	l.Append(mv("m2", -300, now))
	assert.True(t, l.Balance.Equal(decimal.NewFromInt(200)))

	require.True(t, l.RemoveMovement("m2"))
	assert.True(t, l.Balance.Equal(decimal.NewFromInt(500)))
	assert.Len(t, l.Movements, 1)

	assert.False(t, l.RemoveMovement("missing"))
	assert.True(t, l.Balance.Equal(domain.Recompute(l.Movements)))
}

func TestLedger_RemoveDoesNotAliasClones(t *testing.T) {
	now := time.Now()
	l := domain.NewProvinceLedger("l1", "p1", now)
	l.Append(mv("m1", 1, now))
	l.Append(mv("m2", 2, now))
	l.Append(mv("m3", 3, now))

	snapshot := l.Clone()
	l.RemoveMovement("m1")

	assert.Len(t, snapshot.Movements, 3)
	assert.Equal(t, "m1", snapshot.Movements[0].ID)
}

func TestLedger_TotalByType(t *testing.T) {
	now := time.Now()
	l := domain.NewProvinceLedger("l1", "p1", now)
	l.Append(mv("m1", 1000, now))
	l.Append(domain.Movement{ID: "m2", Type: domain.MovementRechargeSettlement, Amount: decimal.NewFromInt(-300), Date: now})
	l.Append(domain.Movement{ID: "m3", Type: domain.MovementRechargeSettlement, Amount: decimal.NewFromInt(-50), Date: now})

	assert.True(t, l.TotalByType(domain.MovementRechargeSettlement).Equal(decimal.NewFromInt(-350)))
	assert.Len(t, l.MovementsByType(domain.MovementCredit), 1)
}

func TestParseMovementType(t *testing.T) {
	cases := map[string]domain.MovementType{
		"credit":                domain.MovementCredit,
		"entrada":               domain.MovementCredit,
		"Remesa":                domain.MovementRemittanceSettlement,
		"recharge-settlement":   domain.MovementRechargeSettlement,
		" remittance-settlement": domain.MovementRemittanceSettlement,
	}
	for in, want := range cases {
		got, err := domain.ParseMovementType(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)
	}

	_, err := domain.ParseMovementType("withdrawal")
	var verr *domain.ErrValidation
	assert.ErrorAs(t, err, &verr)
}

func TestMovementType_Signed(t *testing.T) {
	amt := decimal.NewFromInt(150)
	assert.True(t, domain.MovementCredit.Signed(amt).Equal(amt))
	assert.True(t, domain.MovementRemittanceSettlement.Signed(amt).Equal(amt.Neg()))
	assert.True(t, domain.MovementRechargeSettlement.Signed(amt.Neg()).Equal(amt.Neg()))
}

func TestMovementFilter_InclusiveRange(t *testing.T) {
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 31, 23, 59, 59, 0, time.UTC)
	f := domain.MovementFilter{From: &from, To: &to}

	assert.True(t, f.Matches("p1", mv("a", 1, from)))
	assert.True(t, f.Matches("p1", mv("b", 1, to)))
	assert.False(t, f.Matches("p1", mv("c", 1, from.Add(-time.Second))))
	assert.False(t, f.Matches("p1", mv("d", 1, to.Add(time.Second))))

	f.ProvinceID = "p2"
	assert.False(t, f.Matches("p1", mv("e", 1, from)))
}

func TestSortMovementViews_DateDescending(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	views := []domain.MovementView{
		{Movement: mv("a", 1, base)},
		{Movement: mv("b", 1, base.Add(48*time.Hour))},
		{Movement: mv("c", 1, base.Add(24*time.Hour))},
	}
	domain.SortMovementViews(views)
	assert.Equal(t, []string{"b", "c", "a"}, []string{views[0].ID, views[1].ID, views[2].ID})
}
