package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/raycargo/backoffice/internal/domain"
	"github.com/raycargo/backoffice/internal/infra/observability"
	"github.com/raycargo/backoffice/internal/port"
)

var seqTracer = otel.Tracer("service/sequence")

// SequenceService issues tracking numbers from a per-kind, per-year counter.
type SequenceService struct {
	counter port.SequenceCounter
	metrics *observability.Metrics
}

// NewSequenceService creates a sequence service over counter.
func NewSequenceService(counter port.SequenceCounter, metrics *observability.Metrics) *SequenceService {
	return &SequenceService{counter: counter, metrics: metrics}
}

// Next returns the next tracking number of kind for the year of now.
func (s *SequenceService) Next(ctx context.Context, kind domain.EntityKind, now time.Time) (string, error) {
	ctx, span := seqTracer.Start(ctx, "SequenceService.Next")
	defer span.End()

	year := now.Year()
	seq, err := s.counter.Next(ctx, domain.SequenceKey(kind, year))
	if err != nil {
		countStoreError(s.metrics, err)
		return "", fmt.Errorf("next %s sequence: %w", kind, err)
	}
	tn := domain.FormatTrackingNumber(kind, year, seq)
	span.SetAttributes(attribute.String("tracking_number", tn))
	s.metrics.IncrSequence(string(kind))
	return tn, nil
}
