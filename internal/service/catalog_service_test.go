package service_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/service"
)

func TestOffers_CreateUpdateToggle(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()

	inactive := false
	o, err := f.catalog.CreateOffer(ctx, &domain.OfferRequest{
		Title:       " Recarga 50 ",
		Description: "Bono doble",
		Price:       dec(55),
		Cost:        dec(50),
		Bonuses:     []domain.Bonus{{Title: "10 GB", Kind: "datos"}},
		Active:      &inactive,
	})
	require.NoError(t, err)
	assert.Equal(t, "Recarga 50", o.Title)
	assert.Equal(t, domain.BonusData, o.Bonuses[0].Kind)
	assert.False(t, o.Active)

	active, err := f.catalog.ListOffers(ctx, true)
	require.NoError(t, err)
	for _, a := range active {
		assert.NotEqual(t, o.ID, a.ID)
	}

	toggled, err := f.catalog.ToggleOffer(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Active)

	updated, err := f.catalog.UpdateOffer(ctx, o.ID, &domain.OfferRequest{
		Title: "Recarga 50", Description: "Bono triple", Price: dec(60), Cost: dec(50),
	})
	require.NoError(t, err)
	assert.True(t, updated.Active, "omitted active keeps the current value")
	assert.True(t, updated.Price.Equal(dec(60)))
}

func TestOffers_Validation(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()

	_, err := f.catalog.CreateOffer(ctx, &domain.OfferRequest{Title: "x", Description: "y", Price: dec(1), Cost: dec(-1)})
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "cost", verr.Field)

	_, err = f.catalog.CreateOffer(ctx, &domain.OfferRequest{Title: "x", Description: "y", Price: dec(-5), Cost: dec(1)})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "price", verr.Field)

	_, err = f.catalog.CreateOffer(ctx, &domain.OfferRequest{
		Title: "x", Description: "y", Price: dec(1), Cost: dec(1),
		Bonuses: []domain.Bonus{{Title: "", Kind: "Data"}},
	})
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "bonuses[0].title", verr.Field)
}

func TestOffers_ZeroPriceAndCostAllowed(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()

	free, err := f.catalog.CreateOffer(ctx, &domain.OfferRequest{Title: "Promo", Description: "gratis", Price: dec(0), Cost: dec(5)})
	require.NoError(t, err)
	assert.True(t, free.Price.IsZero())

	noCost, err := f.catalog.CreateOffer(ctx, &domain.OfferRequest{Title: "Interna", Description: "sin costo", Price: dec(10), Cost: dec(0)})
	require.NoError(t, err)
	assert.True(t, noCost.Cost.IsZero())
}

func TestRecharge_InactiveOfferRejected(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()

	_, err := f.catalog.ToggleOffer(ctx, "offer-demo-20")
	require.NoError(t, err)

	_, err = f.sales.CreateRecharge(ctx, &domain.CreateRechargeRequest{
		OfferID: "offer-demo-20", ClientID: "client-demo", Phone: "52345678", DestinationProvince: "prov-hav",
	})
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "offerId", verr.Field)
}

func TestRecharge_InvalidPhone(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})

	_, err := f.sales.CreateRecharge(context.Background(), &domain.CreateRechargeRequest{
		OfferID: "offer-demo-20", ClientID: "client-demo", Phone: "123", DestinationProvince: "prov-hav",
	})
	var verr *domain.ErrValidation
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Field)
}

func TestDeleteRecharge_OnlyWhilePending(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()

	pending := newRecharge(t, f, "offer-demo-20", "prov-hav")
	require.NoError(t, f.sales.DeleteRecharge(ctx, pending.ID))

	done := newRecharge(t, f, "offer-demo-20", "prov-hav")
	_, err := f.settlement.ConfirmRecharge(ctx, done.ID, "")
	require.NoError(t, err)

	err = f.sales.DeleteRecharge(ctx, done.ID)
	var conflict *domain.ErrConflict
	assert.ErrorAs(t, err, &conflict)
}

func TestProvinces_UniqueAndCached(t *testing.T) {
	f := newFixture(t, service.SettlementOptions{})
	ctx := context.Background()

	p, err := f.catalog.CreateProvince(ctx, &domain.CreateProvinceRequest{Name: "Matanzas", Code: "mtz"})
	require.NoError(t, err)
	assert.Equal(t, "MTZ", p.Code)

	_, err = f.catalog.CreateProvince(ctx, &domain.CreateProvinceRequest{Name: "matanzas", Code: "MT2"})
	var conflict *domain.ErrConflict
	require.ErrorAs(t, err, &conflict)

	for i := 0; i < 3; i++ {
		got, err := f.catalog.ResolveProvince(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Matanzas", got.Name)
	}
	assert.InDelta(t, 2.0/3.0, f.metrics.CacheHitRate("provinces"), 1e-9)
}
