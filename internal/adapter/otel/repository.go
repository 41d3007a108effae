package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/innkeep/internal/domain"
)

const tracerName = "github.com/neomorfeo/innkeep/internal/adapter/otel"

func recordError(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
}

// TracingRepository wraps a domain.ReservationRepository with OpenTelemetry tracing.
// Each method creates a span with semantic attributes and records errors.
type TracingRepository struct {
	next   domain.ReservationRepository
	tracer trace.Tracer
}

// Compile-time check: TracingRepository implements domain.ReservationRepository.
var _ domain.ReservationRepository = (*TracingRepository)(nil)

// NewTracingRepository creates a tracing decorator around the given repository.
func NewTracingRepository(next domain.ReservationRepository) *TracingRepository {
	return &TracingRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRepository) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.GetByID",
		trace.WithAttributes(attribute.String("reservation.id", id)),
	)
	defer span.End()

	res, err := r.next.GetByID(ctx, id)
	recordError(span, err)
	return res, err
}

func (r *TracingRepository) List(ctx context.Context, filter domain.ListFilter) ([]domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.List",
		trace.WithAttributes(
			attribute.String("filter.organization_id", filter.OrganizationID),
			attribute.Int("filter.limit", filter.Limit),
			attribute.Int("filter.offset", filter.Offset),
		),
	)
	defer span.End()

	if len(filter.Statuses) > 0 {
		statuses := make([]string, len(filter.Statuses))
		for i, s := range filter.Statuses {
			statuses[i] = string(s)
		}
		span.SetAttributes(attribute.StringSlice("filter.statuses", statuses))
	}

	out, err := r.next.List(ctx, filter)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (r *TracingRepository) FindOverlapping(ctx context.Context, q domain.OverlapQuery) ([]domain.Reservation, error) {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.FindOverlapping",
		trace.WithAttributes(
			attribute.String("room.id", q.RoomID),
			attribute.String("reservation.excluded_id", q.ExcludeID),
		),
	)
	defer span.End()

	out, err := r.next.FindOverlapping(ctx, q)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}

func (r *TracingRepository) Update(ctx context.Context, res domain.Reservation) error {
	ctx, span := r.tracer.Start(ctx, "ReservationRepository.Update",
		trace.WithAttributes(
			attribute.String("reservation.id", res.ID),
			attribute.String("reservation.status", string(res.Status)),
		),
	)
	defer span.End()

	err := r.next.Update(ctx, res)
	recordError(span, err)
	return err
}

// TracingRuleRepository traces rule loads, which only happen on cache misses.
type TracingRuleRepository struct {
	next   domain.RuleRepository
	tracer trace.Tracer
}

var _ domain.RuleRepository = (*TracingRuleRepository)(nil)

func NewTracingRuleRepository(next domain.RuleRepository) *TracingRuleRepository {
	return &TracingRuleRepository{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (r *TracingRuleRepository) ListRules(ctx context.Context, organizationID string) ([]domain.BusinessRule, error) {
	ctx, span := r.tracer.Start(ctx, "RuleRepository.ListRules",
		trace.WithAttributes(attribute.String("organization.id", organizationID)),
	)
	defer span.End()

	out, err := r.next.ListRules(ctx, organizationID)
	if err != nil {
		recordError(span, err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(out)))
	}
	return out, err
}
