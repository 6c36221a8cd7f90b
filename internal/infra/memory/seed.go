package memory

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/raycargo/backoffice/internal/domain"
)

// SeedDemo loads a few provinces, clients and offers for local development.
func SeedDemo(s *Store) {
	now := time.Now().UTC()

	s.mu.Lock()
	for _, p := range []domain.Province{
		{ID: "prov-hav", Name: "La Habana", Code: "HAV", Active: true, CreatedAt: now},
		{ID: "prov-hol", Name: "Holguín", Code: "HOL", Active: true, CreatedAt: now},
		{ID: "prov-scu", Name: "Santiago de Cuba", Code: "SCU", Active: true, CreatedAt: now},
	} {
		p := p
		s.provinces[p.ID] = &p
	}
	s.offers["offer-demo-20"] = &domain.RechargeOffer{
		ID:          "offer-demo-20",
		Title:       "Recarga 20 USD",
		Description: "Saldo principal con bonos de datos y minutos",
		Price:       decimal.NewFromInt(22),
		Cost:        decimal.NewFromInt(20),
		Bonuses: []domain.Bonus{
			{Title: "5 GB LTE", Kind: domain.BonusData},
			{Title: "50 min", Kind: domain.BonusMinutes},
		},
		Active:    true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	s.mu.Unlock()

	s.PutClient(&domain.Client{
		ID:         "client-demo",
		Name:       "María Pérez",
		Address:    "1200 SW 8th St",
		Department: "Miami",
		Phone:      "+13055550100",
		Email:      "maria@example.com",
		Recipients: []domain.Recipient{{
			ID:             "rcpt-demo",
			Name:           "José Pérez",
			Phone:          "+5352345678",
			Address:        "Calle 23 #456, Vedado",
			BankCardNumber: "9227 0699 9000 1234",
		}},
	})
}
