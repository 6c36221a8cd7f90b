package service

import (
	"context"
	"fmt"
	"io"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/export"
	"github.com/raycargo/backoffice/internal/port"
)

var reportTracer = otel.Tracer("service/report")

// ReportService is the read side over the ledgers. Totals are recomputed
// from movements at request time, never read from stored balances.
type ReportService struct {
	ledgers   port.LedgerStore
	provinces port.ProvinceStore
}

// NewReportService creates a report service.
func NewReportService(ledgers port.LedgerStore, provinces port.ProvinceStore) *ReportService {
	return &ReportService{ledgers: ledgers, provinces: provinces}
}

// snapshot loads ledgers and provinces concurrently.
func (s *ReportService) snapshot(ctx context.Context) ([]domain.ProvinceLedger, map[string]domain.ProvinceRef, error) {
	var (
		ledgers   []domain.ProvinceLedger
		provinces []domain.Province
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ledgers, err = s.ledgers.ListLedgers(gctx)
		if err != nil {
			return fmt.Errorf("list ledgers: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		provinces, err = s.provinces.ListProvinces(gctx)
		if err != nil {
			return fmt.Errorf("list provinces: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	refs := make(map[string]domain.ProvinceRef, len(provinces))
	for i := range provinces {
		refs[provinces[i].ID] = provinces[i].Ref()
	}
	return ledgers, refs, nil
}

func refFor(refs map[string]domain.ProvinceRef, id string) domain.ProvinceRef {
	if r, ok := refs[id]; ok {
		return r
	}
	return domain.ProvinceRef{ID: id}
}

// Status returns every province total with its movements and the grand total.
func (s *ReportService) Status(ctx context.Context) (*domain.FinancialStatus, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.Status")
	defer span.End()

	ledgers, refs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	out := &domain.FinancialStatus{ByProvince: make([]domain.ProvinceTotal, 0, len(ledgers)), Total: decimal.Zero}
	for _, l := range ledgers {
		total := domain.Recompute(l.Movements)
		out.ByProvince = append(out.ByProvince, domain.ProvinceTotal{
			Province:  refFor(refs, l.ProvinceID),
			Total:     total,
			Movements: l.Movements,
		})
		out.Total = out.Total.Add(total)
	}
	span.SetAttributes(attribute.Int("provinces", len(out.ByProvince)))
	return out, nil
}

// TotalByProvince maps province id to its recomputed total.
func (s *ReportService) TotalByProvince(ctx context.Context) (map[string]decimal.Decimal, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.TotalByProvince")
	defer span.End()

	ledgers, err := s.ledgers.ListLedgers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list ledgers: %w", err)
	}
	out := make(map[string]decimal.Decimal, len(ledgers))
	for _, l := range ledgers {
		out[l.ProvinceID] = domain.Recompute(l.Movements)
	}
	return out, nil
}

// ListMovements returns the movements of every ledger matching f, joined
// with their province and sorted newest first.
func (s *ReportService) ListMovements(ctx context.Context, f domain.MovementFilter) ([]domain.MovementView, error) {
	ctx, span := reportTracer.Start(ctx, "ReportService.ListMovements")
	defer span.End()

	if f.From != nil && f.To != nil && f.From.After(*f.To) {
		return nil, &domain.ErrValidation{Field: "startDate", Message: "must not be after endDate"}
	}

	ledgers, refs, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	views := []domain.MovementView{}
	for _, l := range ledgers {
		ref := refFor(refs, l.ProvinceID)
		for _, m := range l.Movements {
			if f.Matches(l.ProvinceID, m) {
				views = append(views, domain.MovementView{Movement: m, Province: ref})
			}
		}
	}
	domain.SortMovementViews(views)
	span.SetAttributes(attribute.Int("movements", len(views)))
	return views, nil
}

// ExportMovements writes the ListMovements rows as an XLSX workbook.
func (s *ReportService) ExportMovements(ctx context.Context, f domain.MovementFilter, w io.Writer) error {
	ctx, span := reportTracer.Start(ctx, "ReportService.ExportMovements")
	defer span.End()

	views, err := s.ListMovements(ctx, f)
	if err != nil {
		return err
	}
	return export.WriteMovements(w, views)
}
