package otel

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// TracingPublisher wraps a domain.EventPublisher with OpenTelemetry tracing.
type TracingPublisher struct {
	next   domain.EventPublisher
	tracer trace.Tracer
}

// Compile-time check: TracingPublisher implements domain.EventPublisher.
var _ domain.EventPublisher = (*TracingPublisher)(nil)

// NewTracingPublisher creates a tracing decorator around the given publisher.
func NewTracingPublisher(next domain.EventPublisher) *TracingPublisher {
	return &TracingPublisher{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (p *TracingPublisher) Publish(ctx context.Context, event domain.Event, res domain.Reservation) error {
	ctx, span := p.tracer.Start(ctx, "EventPublisher.Publish",
		trace.WithAttributes(
			attribute.String("event.type", string(event)),
			attribute.String("reservation.id", res.ID),
			attribute.String("reservation.status", string(res.Status)),
		),
	)
	defer span.End()

	err := p.next.Publish(ctx, event, res)
	recordError(span, err)
	return err
}

// TracingApprovalNotifier wraps a domain.ApprovalNotifier with tracing.
type TracingApprovalNotifier struct {
	next   domain.ApprovalNotifier
	tracer trace.Tracer
}

var _ domain.ApprovalNotifier = (*TracingApprovalNotifier)(nil)

func NewTracingApprovalNotifier(next domain.ApprovalNotifier) *TracingApprovalNotifier {
	return &TracingApprovalNotifier{
		next:   next,
		tracer: otel.Tracer(tracerName),
	}
}

func (n *TracingApprovalNotifier) RequestApproval(ctx context.Context, req domain.ApprovalRequest) error {
	ctx, span := n.tracer.Start(ctx, "ApprovalNotifier.RequestApproval",
		trace.WithAttributes(
			attribute.String("reservation.id", req.ReservationID),
			attribute.String("transition.from", string(req.From)),
			attribute.String("transition.to", string(req.To)),
			attribute.String("user.role", string(req.Role)),
		),
	)
	defer span.End()

	err := n.next.RequestApproval(ctx, req)
	recordError(span, err)
	return err
}
