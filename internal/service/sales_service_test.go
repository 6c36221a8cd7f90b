package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/memory"
	"github.com/raycargo/backoffice/internal/service"
)

// confirmFirstStore runs beforeDelete right before each sale delete reaches
// the store, standing in for a confirmation that lands concurrently.
type confirmFirstStore struct {
	*memory.Store
	beforeDelete func()
}

func (c confirmFirstStore) DeleteRechargeSale(ctx context.Context, id string, check func(*domain.RechargeSale) error) error {
	c.beforeDelete()
	return c.Store.DeleteRechargeSale(ctx, id, check)
}

func (c confirmFirstStore) DeleteRemittanceSale(ctx context.Context, id string, check func(*domain.RemittanceSale) error) error {
	c.beforeDelete()
	return c.Store.DeleteRemittanceSale(ctx, id, check)
}

func TestDeleteRecharge_ConfirmedMeanwhileIsKept(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()
	sale := newRecharge(t, f, "offer-demo-20", "prov-hol")

	store := confirmFirstStore{Store: f.store, beforeDelete: func() {
		res, err := f.settlement.ConfirmRecharge(ctx, sale.ID, "")
		require.NoError(t, err)
		require.Equal(t, domain.OutcomeRecorded, res.Result.Outcome)
	}}
	sales := service.NewSalesService(store, f.store, f.store, f.catalog, service.NewValidator("CU"), zap.NewNop())

	err := sales.DeleteRecharge(ctx, sale.ID)
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	kept, err := f.sales.GetRecharge(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleDone, kept.Status)

	ledger, err := f.store.GetLedger(ctx, "prov-hol")
	require.NoError(t, err)
	require.Len(t, ledger.Movements, 1)
	assert.Equal(t, sale.ID, *ledger.Movements[0].OperationRef)
}

func TestDeleteRemittanceSale_ConfirmedMeanwhileIsKept(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{RemittanceCreatesLedger: true})
	ctx := context.Background()
	sale := newRemittanceSale(t, f, 100, "prov-scu")

	store := confirmFirstStore{Store: f.store, beforeDelete: func() {
		_, err := f.settlement.ConfirmRemittanceSale(ctx, sale.ID, "", nil)
		require.NoError(t, err)
	}}
	sales := service.NewSalesService(store, f.store, f.store, f.catalog, service.NewValidator("CU"), zap.NewNop())

	err := sales.DeleteRemittanceSale(ctx, sale.ID)
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	kept, err := f.sales.GetRemittanceSale(ctx, sale.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.SaleDone, kept.Status)
}

func TestDeleteRemittanceSale_Pending(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()
	sale := newRemittanceSale(t, f, 100, "prov-hav")

	require.NoError(t, f.sales.DeleteRemittanceSale(ctx, sale.ID))

	var nf *domain.ErrNotFound
	assert.ErrorAs(t, f.sales.DeleteRemittanceSale(ctx, sale.ID), &nf)
}

func TestUpdateRecharge_NewOfferReprices(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()
	sale := newRecharge(t, f, "offer-demo-20", "prov-hav")
	offer := newOffer(t, f, 35, 30)

	updated, err := f.sales.UpdateRecharge(ctx, sale.ID, &domain.UpdateRechargeRequest{
		OfferID:             offer.ID,
		Phone:               "52345679",
		DestinationProvince: "prov-hol",
	})
	require.NoError(t, err)
	assert.Equal(t, offer.ID, updated.OfferID)
	assert.True(t, updated.Amount.Equal(dec(35)), "amount %s", updated.Amount)
	assert.Equal(t, "+5352345679", updated.Phone)
	assert.Equal(t, "prov-hol", updated.DestinationProvince)
	assert.Equal(t, domain.SalePending, updated.Status)

	res, err := f.settlement.ConfirmRecharge(ctx, sale.ID, "")
	require.NoError(t, err)
	require.NotNil(t, res.Movement)
	assert.True(t, res.Movement.Amount.Equal(dec(-30)), "debits the new offer cost")
}

func TestUpdateRecharge_Rejections(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()
	sale := newRecharge(t, f, "offer-demo-20", "prov-hav")

	var nf *domain.ErrNotFound
	_, err := f.sales.UpdateRecharge(ctx, sale.ID, &domain.UpdateRechargeRequest{OfferID: "missing"})
	assert.ErrorAs(t, err, &nf)

	var verr *domain.ErrValidation
	_, err = f.sales.UpdateRecharge(ctx, sale.ID, &domain.UpdateRechargeRequest{Phone: "12"})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)

	_, err = f.settlement.ConfirmRecharge(ctx, sale.ID, "")
	require.NoError(t, err)

	_, err = f.sales.UpdateRecharge(ctx, sale.ID, &domain.UpdateRechargeRequest{DestinationProvince: "prov-scu"})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestUpdateRemittanceSale(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()
	sale := newRemittanceSale(t, f, 100, "prov-hav")

	amount := dec(250)
	note := "  urgente "
	updated, err := f.sales.UpdateRemittanceSale(ctx, sale.ID, &domain.UpdateRemittanceSaleRequest{
		Amount:      &amount,
		Description: &note,
		Beneficiary: &domain.Beneficiary{Name: "Ana", Phone: "52345678", Address: "Calle 1"},
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Equal(amount))
	assert.Equal(t, "urgente", updated.Description)
	assert.Equal(t, "Ana", updated.Beneficiary.Name)
	assert.Equal(t, "+5352345678", updated.Beneficiary.Phone)
	assert.True(t, updated.Cost.Equal(sale.Cost), "omitted cost is kept")

	negative := dec(-1)
	var verr *domain.ErrValidation
	_, err = f.sales.UpdateRemittanceSale(ctx, sale.ID, &domain.UpdateRemittanceSaleRequest{Cost: &negative})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cost", verr.Field)

	var nf *domain.ErrNotFound
	_, err = f.sales.UpdateRemittanceSale(ctx, sale.ID, &domain.UpdateRemittanceSaleRequest{BeneficiaryID: "rcpt-unknown"})
	assert.ErrorAs(t, err, &nf)

	_, err = f.settlement.ConfirmRemittanceSale(ctx, sale.ID, "", nil)
	require.NoError(t, err)

	_, err = f.sales.UpdateRemittanceSale(ctx, sale.ID, &domain.UpdateRemittanceSaleRequest{Amount: &amount})
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}
