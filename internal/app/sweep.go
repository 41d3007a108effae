package app

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// SweepUserID identifies automation in status history and approval requests.
const SweepUserID = "system:sweep"

// SweepConfig tunes the cleanup sweep.
type SweepConfig struct {
	// PendingTimeout is how long an unpaid reservation may stay pending.
	PendingTimeout time.Duration
	// NoShowGrace is how long after check-in a confirmed guest is marked no-show.
	NoShowGrace time.Duration
	// Concurrency limits how many reservations are processed at once.
	Concurrency int
	// ItemTimeout bounds the work on a single reservation.
	ItemTimeout time.Duration
	// PageSize is the candidate page size when listing reservations.
	PageSize int
}

// DefaultSweepConfig returns the standard sweep settings.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		PendingTimeout: 24 * time.Hour,
		NoShowGrace:    24 * time.Hour,
		Concurrency:    4,
		ItemTimeout:    30 * time.Second,
		PageSize:       200,
	}
}

// SweepOptions select what a single sweep run covers.
type SweepOptions struct {
	OrganizationID string
	PropertyID     string
	DryRun         bool
}

// SweepOutcome is what happened to one planned change.
type SweepOutcome string

const (
	OutcomeApplied         SweepOutcome = "applied"
	OutcomeWouldApply      SweepOutcome = "would_apply"
	OutcomePendingApproval SweepOutcome = "pending_approval"
	OutcomeRejected        SweepOutcome = "rejected"
	OutcomeFailed          SweepOutcome = "failed"
)

// SweepChange reports one planned status change.
type SweepChange struct {
	ReservationID string                  `json:"reservation_id"`
	From          domain.Status           `json:"from"`
	To            domain.Status           `json:"to"`
	Inferred      domain.Status           `json:"inferred"`
	Reason        string                  `json:"reason"`
	Outcome       SweepOutcome            `json:"outcome"`
	Validation    domain.ValidationResult `json:"validation"`
	Error         string                  `json:"error,omitempty"`
}

// SweepReport summarizes a sweep run.
type SweepReport struct {
	DryRun          bool          `json:"dry_run"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      time.Time     `json:"finished_at"`
	Scanned         int           `json:"scanned"`
	Applied         int           `json:"applied"`
	WouldApply      int           `json:"would_apply"`
	PendingApproval int           `json:"pending_approval"`
	Rejected        int           `json:"rejected"`
	Failed          int           `json:"failed"`
	Changes         []SweepChange `json:"changes"`
}

// Sweeper heals stale reservations: it infers the status each open reservation
// should have and runs the change through the full validator before applying it.
type Sweeper struct {
	repo    domain.ReservationRepository
	graph   domain.StatusGraph
	service *ReservationService
	cfg     SweepConfig
	logger  *slog.Logger
}

// NewSweeper creates a sweeper that applies changes through service.
func NewSweeper(repo domain.ReservationRepository, graph domain.StatusGraph, service *ReservationService, cfg SweepConfig, logger *slog.Logger) *Sweeper {
	def := DefaultSweepConfig()
	if cfg.PendingTimeout <= 0 {
		cfg.PendingTimeout = def.PendingTimeout
	}
	if cfg.NoShowGrace <= 0 {
		cfg.NoShowGrace = def.NoShowGrace
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = def.PageSize
	}
	if cfg.ItemTimeout <= 0 {
		cfg.ItemTimeout = def.ItemTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		repo:    repo,
		graph:   graph,
		service: service,
		cfg:     cfg,
		logger:  logger,
	}
}

var sweepStatuses = []domain.Status{
	domain.StatusPendingConfirmation,
	domain.StatusConfirmed,
	domain.StatusInHouse,
}

// Run sweeps every open reservation in scope. A failure on one reservation
// is recorded in the report and never stops the run; only listing candidates
// can fail the call.
func (s *Sweeper) Run(ctx context.Context, opts SweepOptions) (SweepReport, error) {
	report := SweepReport{DryRun: opts.DryRun, StartedAt: s.service.Now()}

	candidates, err := s.candidates(ctx, opts)
	if err != nil {
		return report, err
	}
	report.Scanned = len(candidates)

	var (
		mu      sync.Mutex
		changes []SweepChange
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Concurrency)

	for _, res := range candidates {
		g.Go(func() error {
			target, inferred, reason, ok := s.Plan(res, s.service.Now())
			if !ok {
				return nil
			}
			change := s.process(gctx, res, target, inferred, reason, opts.DryRun)

			mu.Lock()
			changes = append(changes, change)
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	slices.SortFunc(changes, func(a, b SweepChange) int {
		return cmp.Compare(a.ReservationID, b.ReservationID)
	})
	for _, c := range changes {
		switch c.Outcome {
		case OutcomeApplied:
			report.Applied++
		case OutcomeWouldApply:
			report.WouldApply++
		case OutcomePendingApproval:
			report.PendingApproval++
		case OutcomeRejected:
			report.Rejected++
		case OutcomeFailed:
			report.Failed++
		}
	}
	report.Changes = changes
	report.FinishedAt = s.service.Now()

	s.logger.InfoContext(ctx, "reservation sweep finished",
		"organization_id", opts.OrganizationID,
		"dry_run", opts.DryRun,
		"scanned", report.Scanned,
		"planned", len(changes),
		"applied", report.Applied,
		"pending_approval", report.PendingApproval,
		"rejected", report.Rejected,
		"failed", report.Failed,
	)
	return report, ctx.Err()
}

func (s *Sweeper) candidates(ctx context.Context, opts SweepOptions) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for offset := 0; ; offset += s.cfg.PageSize {
		page, err := s.repo.List(ctx, domain.ListFilter{
			OrganizationID: opts.OrganizationID,
			PropertyID:     opts.PropertyID,
			Statuses:       sweepStatuses,
			Limit:          s.cfg.PageSize,
			Offset:         offset,
		})
		if err != nil {
			return nil, fmt.Errorf("listing sweep candidates: %w", err)
		}
		out = append(out, page...)
		if len(page) < s.cfg.PageSize {
			return out, nil
		}
	}
}

// Plan decides which status res should move to next. inferred is the status
// automation wants to reach; target is the next graph edge towards it.
func (s *Sweeper) Plan(res domain.Reservation, now time.Time) (target, inferred domain.Status, reason string, ok bool) {
	resolved := domain.ResolveStatus(res.Status, res.PaymentPercentage(), res.CheckIn, res.CheckOut, now)

	switch {
	case resolved != res.Status:
		inferred = resolved
		reason = "status inferred from stay dates and payments"
	case res.Status == domain.StatusPendingConfirmation &&
		!res.CreatedAt.IsZero() && now.Sub(res.CreatedAt) >= s.cfg.PendingTimeout &&
		res.PaidAmount.IsZero() && res.PaymentStatus != domain.PaymentPaid:
		inferred = domain.StatusCancelled
		reason = fmt.Sprintf("pending for more than %s without payment", s.cfg.PendingTimeout)
	case res.Status == domain.StatusConfirmed && !now.Before(res.CheckIn.Add(s.cfg.NoShowGrace)):
		inferred = domain.StatusNoShow
		reason = "guest did not check in"
	default:
		return "", "", "", false
	}

	target = inferred
	if !s.graph.Allows(res.Status, inferred) {
		hop, found := domain.NextHop(s.graph, res.Status, inferred)
		if !found {
			return "", "", "", false
		}
		target = hop
	}
	return target, inferred, reason, true
}

func (s *Sweeper) process(ctx context.Context, res domain.Reservation, target, inferred domain.Status, reason string, dryRun bool) SweepChange {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.ItemTimeout)
	defer cancel()

	change := SweepChange{
		ReservationID: res.ID,
		From:          res.Status,
		To:            target,
		Inferred:      inferred,
		Reason:        reason,
	}
	req := TransitionRequest{
		ReservationID:  res.ID,
		NewStatus:      target,
		Reason:         "automatic: " + reason,
		UserID:         SweepUserID,
		UserRole:       domain.RoleSystem,
		PropertyID:     res.PropertyID,
		OrganizationID: res.OrganizationID,
		IsAutomatic:    true,
		ExpectedStatus: res.Status,
	}

	if dryRun {
		result, err := s.service.Validate(ctx, req)
		change.Validation = result
		switch {
		case err != nil:
			change.Outcome = OutcomeFailed
			change.Error = err.Error()
		case !result.IsValid():
			change.Outcome = OutcomeRejected
		case result.RequiresApproval:
			change.Outcome = OutcomePendingApproval
		default:
			change.Outcome = OutcomeWouldApply
		}
		return change
	}

	_, result, err := s.service.Transition(ctx, req)
	change.Validation = result

	var rejected *domain.TransitionRejectedError
	var approval *domain.ApprovalRequiredError
	switch {
	case err == nil:
		change.Outcome = OutcomeApplied
	case errors.As(err, &rejected):
		change.Outcome = OutcomeRejected
		change.Validation = rejected.Result
	case errors.As(err, &approval):
		change.Outcome = OutcomePendingApproval
	default:
		change.Outcome = OutcomeFailed
		change.Error = err.Error()
		s.logger.ErrorContext(ctx, "sweep transition failed",
			"reservation_id", res.ID,
			"to", target,
			"error", err,
		)
	}
	return change
}
