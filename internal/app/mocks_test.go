package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/innkeep/internal/adapter/fsm"
	"github.com/neomorfeo/innkeep/internal/app"
	"github.com/neomorfeo/innkeep/internal/domain"
	"github.com/neomorfeo/innkeep/internal/integrity"
	"github.com/neomorfeo/innkeep/internal/policy"
	"github.com/neomorfeo/innkeep/internal/rules"
)

// --- Mocks ---

type mockRepo struct {
	mu        sync.Mutex
	items     map[string]domain.Reservation
	updateErr map[string]error
	updates   int
}

func newMockRepo(items ...domain.Reservation) *mockRepo {
	m := &mockRepo{
		items:     make(map[string]domain.Reservation),
		updateErr: make(map[string]error),
	}
	for _, r := range items {
		m.items[r.ID] = r
	}
	return m
}

func (m *mockRepo) get(id string) domain.Reservation {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.items[id]
}

func (m *mockRepo) GetByID(_ context.Context, id string) (domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.items[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, filter domain.ListFilter) ([]domain.Reservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Reservation
	for _, r := range m.items {
		if filter.OrganizationID != "" && r.OrganizationID != filter.OrganizationID {
			continue
		}
		if len(filter.Statuses) > 0 && !slices.Contains(filter.Statuses, r.Status) {
			continue
		}
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b domain.Reservation) int {
		if a.ID < b.ID {
			return -1
		}
		if a.ID > b.ID {
			return 1
		}
		return 0
	})
	if filter.Offset >= len(out) {
		return nil, nil
	}
	out = out[filter.Offset:]
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockRepo) FindOverlapping(context.Context, domain.OverlapQuery) ([]domain.Reservation, error) {
	return nil, nil
}

func (m *mockRepo) Update(_ context.Context, r domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateErr[r.ID]; err != nil {
		return err
	}
	m.items[r.ID] = r
	m.updates++
	return nil
}

type mockRooms struct{}

func (mockRooms) GetRoom(_ context.Context, id string) (domain.Room, error) {
	if id != "room-1" {
		return domain.Room{}, domain.ErrRoomNotFound
	}
	return domain.Room{ID: "room-1", PropertyID: "prop-1", Name: "101", Capacity: 4}, nil
}

type mockProperties struct{}

func (mockProperties) GetProperty(_ context.Context, id string) (domain.Property, error) {
	if id != "prop-1" {
		return domain.Property{}, domain.ErrPropertyNotFound
	}
	return domain.Property{ID: "prop-1", OrganizationID: "org-1", Name: "Seaside"}, nil
}

type mockHistory struct {
	mu      sync.Mutex
	entries []domain.StatusChange
}

func (m *mockHistory) Recent(_ context.Context, id string, limit int) ([]domain.StatusChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.StatusChange
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		if m.entries[i].ReservationID == id {
			out = append(out, m.entries[i])
		}
	}
	return out, nil
}

func (m *mockHistory) Append(_ context.Context, c domain.StatusChange) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, c)
	return nil
}

type mockPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

type publishedEvent struct {
	event       domain.Event
	reservation domain.Reservation
}

func (m *mockPublisher) Publish(_ context.Context, e domain.Event, r domain.Reservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, publishedEvent{event: e, reservation: r})
	return nil
}

type mockApprovals struct {
	mu       sync.Mutex
	requests []domain.ApprovalRequest
}

func (m *mockApprovals) RequestApproval(_ context.Context, r domain.ApprovalRequest) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, r)
	return nil
}

type failingRules struct{}

func (failingRules) Evaluate(context.Context, domain.TransitionContext) (domain.ValidationResult, error) {
	return domain.ValidationResult{}, errors.New("rule store offline")
}

type stubIntegrity struct {
	result domain.DataIntegrityResult
}

func (s stubIntegrity) Check(context.Context, domain.TransitionContext) domain.DataIntegrityResult {
	return s.result
}

func (s stubIntegrity) AutoFix(context.Context, string, []domain.DataIntegrityIssue) (domain.AutoFixResult, error) {
	return domain.AutoFixResult{}, nil
}

// --- Fixtures ---

var checkIn = time.Date(2026, 8, 14, 15, 0, 0, 0, time.UTC)

func quietLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

func baseReservation(id string, status domain.Status) domain.Reservation {
	return domain.Reservation{
		ID:             id,
		OrganizationID: "org-1",
		PropertyID:     "prop-1",
		RoomID:         "room-1",
		GuestName:      "Grace Hopper",
		GuestEmail:     "grace@example.com",
		BookingSource:  "DIRECT",
		Status:         status,
		CheckIn:        checkIn,
		CheckOut:       checkIn.Add(72 * time.Hour),
		PaymentStatus:  domain.PaymentPaid,
		TotalAmount:    decimal.NewFromInt(600),
		PaidAmount:     decimal.NewFromInt(600),
		DepositAmount:  decimal.NewFromInt(200),
		Adults:         2,
		CreatedAt:      checkIn.Add(-30 * 24 * time.Hour),
	}
}

type env struct {
	repo      *mockRepo
	history   *mockHistory
	publisher *mockPublisher
	approvals *mockApprovals
	graph     *fsm.Graph
	checker   *integrity.Checker
	validator *app.Validator
	service   *app.ReservationService
}

func newEnv(t *testing.T, now time.Time, items ...domain.Reservation) *env {
	t.Helper()
	e := &env{
		repo:      newMockRepo(items...),
		history:   &mockHistory{},
		publisher: &mockPublisher{},
		approvals: &mockApprovals{},
		graph:     fsm.New(),
	}
	e.checker = integrity.NewChecker(integrity.Stores{
		Reservations: e.repo,
		Rooms:        mockRooms{},
		Properties:   mockProperties{},
		History:      e.history,
	}, integrity.WithLogger(quietLogger()))
	e.validator = app.NewValidator(
		e.graph,
		policy.DefaultRolePolicy(),
		rules.NewRegistry(rules.NewStaticRepository(), 0, quietLogger()),
		e.checker,
		e.repo,
		app.DefaultValidatorConfig(),
		quietLogger(),
	)
	e.service = app.NewReservationService(app.ServiceDeps{
		Reservations: e.repo,
		History:      e.history,
		Publisher:    e.publisher,
		Approvals:    e.approvals,
		Graph:        e.graph,
		Validator:    e.validator,
		Integrity:    e.checker,
	}, quietLogger()).WithClock(func() time.Time { return now })
	return e
}

func contextFor(res domain.Reservation, to domain.Status, role domain.Role, now time.Time) domain.TransitionContext {
	return domain.TransitionContext{
		ReservationID:  res.ID,
		CurrentStatus:  res.Status,
		NewStatus:      to,
		UserID:         "u-1",
		UserRole:       role,
		PropertyID:     res.PropertyID,
		OrganizationID: res.OrganizationID,
		Reservation:    &res,
		Now:            now,
	}
}

// assertConsistent checks that validity is exactly "no errors", both on the
// value and in its JSON encoding.
func assertConsistent(t *testing.T, r domain.ValidationResult) {
	t.Helper()
	if r.IsValid() != (len(r.Errors) == 0) {
		t.Fatalf("IsValid() = %v with errors %v", r.IsValid(), r.Errors)
	}
	data, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal result: %v", err)
	}
	var decoded struct {
		IsValid bool     `json:"is_valid"`
		Errors  []string `json:"errors"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal result: %v", err)
	}
	if decoded.IsValid != (len(decoded.Errors) == 0) {
		t.Fatalf("encoded is_valid = %v with errors %v", decoded.IsValid, decoded.Errors)
	}
}
