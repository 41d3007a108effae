package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/neomorfeo/innkeep/internal/domain"
)

// TransitionRequest is a caller's request to move a reservation to a new status.
type TransitionRequest struct {
	ReservationID  string
	NewStatus      domain.Status
	Reason         string
	UserID         string
	UserRole       domain.Role
	PropertyID     string
	OrganizationID string
	IsAutomatic    bool

	// ExpectedStatus, when set, must match the stored status at the time
	// the change is applied.
	ExpectedStatus domain.Status
}

// ServiceDeps are the adapters a ReservationService is built from.
type ServiceDeps struct {
	Reservations domain.ReservationRepository
	History      domain.StatusHistoryRepository
	Publisher    domain.EventPublisher
	Approvals    domain.ApprovalNotifier
	Graph        domain.StatusGraph
	Validator    domain.TransitionValidator
	Integrity    domain.IntegrityChecker
}

// ReservationService validates and applies reservation status changes.
// Validate-then-apply runs as one critical section per reservation.
type ReservationService struct {
	repo      domain.ReservationRepository
	history   domain.StatusHistoryRepository
	publisher domain.EventPublisher
	approvals domain.ApprovalNotifier
	graph     domain.StatusGraph
	validator domain.TransitionValidator
	integrity domain.IntegrityChecker

	locks  *keyedMutex
	now    func() time.Time
	logger *slog.Logger
}

// NewReservationService creates a service with the given adapters.
func NewReservationService(deps ServiceDeps, logger *slog.Logger) *ReservationService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReservationService{
		repo:      deps.Reservations,
		history:   deps.History,
		publisher: deps.Publisher,
		approvals: deps.Approvals,
		graph:     deps.Graph,
		validator: deps.Validator,
		integrity: deps.Integrity,
		locks:     newKeyedMutex(),
		now:       time.Now,
		logger:    logger,
	}
}

// WithClock replaces the service clock. Intended for tests.
func (s *ReservationService) WithClock(now func() time.Time) *ReservationService {
	s.now = now
	return s
}

// Now returns the service clock reading.
func (s *ReservationService) Now() time.Time {
	return s.now().UTC()
}

// GetByID returns a reservation by its unique identifier.
func (s *ReservationService) GetByID(ctx context.Context, id string) (domain.Reservation, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns reservations matching the given filter.
func (s *ReservationService) List(ctx context.Context, filter domain.ListFilter) ([]domain.Reservation, error) {
	return s.repo.List(ctx, filter)
}

// Validate returns the decision for req without applying anything.
func (s *ReservationService) Validate(ctx context.Context, req TransitionRequest) (domain.ValidationResult, error) {
	res, err := s.repo.GetByID(ctx, req.ReservationID)
	if err != nil {
		return domain.ValidationResult{}, err
	}
	return s.validator.Validate(ctx, s.transitionContext(req, res))
}

// Transition validates req and applies it when the result is valid and needs
// no approval. A rejected change returns *domain.TransitionRejectedError; a
// change needing review is forwarded to the approval notifier and returns
// *domain.ApprovalRequiredError.
func (s *ReservationService) Transition(ctx context.Context, req TransitionRequest) (domain.Reservation, domain.ValidationResult, error) {
	unlock := s.locks.Lock(req.ReservationID)
	defer unlock()

	res, err := s.repo.GetByID(ctx, req.ReservationID)
	if err != nil {
		return domain.Reservation{}, domain.ValidationResult{}, err
	}

	if req.ExpectedStatus != "" && res.Status != req.ExpectedStatus {
		var result domain.ValidationResult
		result.AddError(fmt.Sprintf("reservation changed to %s in the meantime", res.Status))
		return res, result, &domain.TransitionRejectedError{ReservationID: res.ID, Result: result}
	}

	tc := s.transitionContext(req, res)
	result, err := s.validator.Validate(ctx, tc)
	if err != nil {
		return res, result, fmt.Errorf("validating transition: %w", err)
	}

	if !result.IsValid() {
		return res, result, &domain.TransitionRejectedError{ReservationID: res.ID, Result: result}
	}

	if result.RequiresApproval {
		if err := s.requestApproval(ctx, tc, result); err != nil {
			return res, result, err
		}
		return res, result, &domain.ApprovalRequiredError{ReservationID: res.ID, Reason: result.ApprovalReason}
	}

	event, ok := domain.EventFor(res.Status, req.NewStatus)
	if !ok {
		return res, result, &domain.TransitionError{Current: res.Status}
	}

	from := res.Status
	dst, err := s.graph.Apply(ctx, from, event)
	if err != nil {
		return res, result, err
	}

	res.Status = dst
	res.UpdatedAt = tc.Now
	if err := s.repo.Update(ctx, res); err != nil {
		return res, result, fmt.Errorf("updating reservation: %w", err)
	}

	change := domain.StatusChange{
		ID:            newID(),
		ReservationID: res.ID,
		From:          from,
		To:            dst,
		Reason:        req.Reason,
		UserID:        req.UserID,
		Automatic:     req.IsAutomatic,
		CreatedAt:     tc.Now,
	}
	if err := s.history.Append(ctx, change); err != nil {
		return res, result, fmt.Errorf("recording status change: %w", err)
	}

	if err := s.publisher.Publish(ctx, event, res); err != nil {
		return res, result, fmt.Errorf("publishing event %q: %w", event, err)
	}

	s.logger.InfoContext(ctx, "reservation status changed",
		"reservation_id", res.ID,
		"from", from,
		"to", dst,
		"automatic", req.IsAutomatic,
	)
	return res, result, nil
}

func (s *ReservationService) requestApproval(ctx context.Context, tc domain.TransitionContext, result domain.ValidationResult) error {
	id := newID()
	if tc.IsAutomatic {
		id = stableID("approval", tc.ReservationID, string(tc.CurrentStatus), string(tc.NewStatus))
	}
	err := s.approvals.RequestApproval(ctx, domain.ApprovalRequest{
		ID:            id,
		ReservationID: tc.ReservationID,
		From:          tc.CurrentStatus,
		To:            tc.NewStatus,
		RequestedBy:   tc.UserID,
		Role:          tc.UserRole,
		Reason:        result.ApprovalReason,
		CreatedAt:     tc.Now,
	})
	if err != nil {
		return fmt.Errorf("requesting approval: %w", err)
	}
	return nil
}

// CheckIntegrity runs the consistency checks for a reservation as it is stored.
func (s *ReservationService) CheckIntegrity(ctx context.Context, id string) (domain.DataIntegrityResult, error) {
	res, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.DataIntegrityResult{}, err
	}
	return s.integrity.Check(ctx, domain.TransitionContext{
		ReservationID:  res.ID,
		CurrentStatus:  res.Status,
		PropertyID:     res.PropertyID,
		OrganizationID: res.OrganizationID,
		Reservation:    &res,
		Now:            s.Now(),
	}), nil
}

// AutoFix applies safe fixes for issues. With no issues given it checks the
// reservation first and fixes whatever is auto-fixable.
func (s *ReservationService) AutoFix(ctx context.Context, id string, issues []domain.DataIntegrityIssue) (domain.AutoFixResult, error) {
	if len(issues) == 0 {
		found, err := s.CheckIntegrity(ctx, id)
		if err != nil {
			return domain.AutoFixResult{}, err
		}
		issues = found.AutoFixable()
	}

	unlock := s.locks.Lock(id)
	defer unlock()

	result, err := s.integrity.AutoFix(ctx, id, issues)
	if err != nil {
		if errors.Is(err, domain.ErrReservationNotFound) {
			return result, domain.ErrReservationNotFound
		}
		return result, fmt.Errorf("auto-fixing reservation: %w", err)
	}
	return result, nil
}

func (s *ReservationService) transitionContext(req TransitionRequest, res domain.Reservation) domain.TransitionContext {
	snapshot := res
	tc := domain.TransitionContext{
		ReservationID:  res.ID,
		CurrentStatus:  res.Status,
		NewStatus:      req.NewStatus,
		Reason:         req.Reason,
		UserID:         req.UserID,
		UserRole:       req.UserRole,
		PropertyID:     req.PropertyID,
		OrganizationID: req.OrganizationID,
		IsAutomatic:    req.IsAutomatic,
		Reservation:    &snapshot,
		Now:            s.Now(),
	}
	if tc.PropertyID == "" {
		tc.PropertyID = res.PropertyID
	}
	if tc.OrganizationID == "" {
		tc.OrganizationID = res.OrganizationID
	}
	return tc
}
