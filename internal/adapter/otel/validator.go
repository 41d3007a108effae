package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// Validation outcomes reported on spans and the outcome counter.
const (
	OutcomeValid    = "valid"
	OutcomeApproval = "approval_required"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
)

// TracingValidator wraps a domain.TransitionValidator with a span per
// decision and counts decisions by outcome.
type TracingValidator struct {
	next     domain.TransitionValidator
	tracer   trace.Tracer
	outcomes metric.Int64Counter
}

var _ domain.TransitionValidator = (*TracingValidator)(nil)

// NewTracingValidator creates the decorator. The counter comes from the
// global meter provider.
func NewTracingValidator(next domain.TransitionValidator) (*TracingValidator, error) {
	counter, err := otel.Meter(tracerName).Int64Counter("innkeep.transition.validations",
		metric.WithDescription("Transition validation decisions by outcome"),
		metric.WithUnit("{decision}"),
	)
	if err != nil {
		return nil, err
	}
	return &TracingValidator{
		next:     next,
		tracer:   otel.Tracer(tracerName),
		outcomes: counter,
	}, nil
}

func (v *TracingValidator) Validate(ctx context.Context, tc domain.TransitionContext) (domain.ValidationResult, error) {
	transition := []attribute.KeyValue{
		attribute.String("transition.from", string(tc.CurrentStatus)),
		attribute.String("transition.to", string(tc.NewStatus)),
		attribute.String("user.role", string(tc.UserRole)),
	}
	ctx, span := v.tracer.Start(ctx, "TransitionValidator.Validate",
		trace.WithAttributes(append(transition,
			attribute.String("reservation.id", tc.ReservationID),
			attribute.Bool("transition.automatic", tc.IsAutomatic),
		)...),
	)
	defer span.End()

	result, err := v.next.Validate(ctx, tc)

	outcome := OutcomeValid
	switch {
	case err != nil:
		outcome = OutcomeError
		recordError(span, err)
	case !result.IsValid():
		outcome = OutcomeRejected
	case result.RequiresApproval:
		outcome = OutcomeApproval
	}

	span.SetAttributes(
		attribute.String("validation.outcome", outcome),
		attribute.Int("validation.errors", len(result.Errors)),
		attribute.Int("validation.warnings", len(result.Warnings)),
		attribute.Int("validation.integrity_issues", len(result.DataIntegrityIssues)),
	)
	v.outcomes.Add(ctx, 1, metric.WithAttributes(append(transition,
		attribute.String("validation.outcome", outcome),
	)...))

	return result, err
}
