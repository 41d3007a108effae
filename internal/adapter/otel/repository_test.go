package otel_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	adapter "github.com/neomorfeo/innkeep/internal/adapter/otel"
	"github.com/neomorfeo/innkeep/internal/domain"
)

// --- Test tracer setup ---

func setupTestTracer(t *testing.T) *tracetest.InMemoryExporter {
	t.Helper()
	exporter := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exporter))
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })
	return exporter
}

// --- Mock repositories ---

type mockRepo struct {
	reservations map[string]domain.Reservation
}

func newMockRepo() *mockRepo {
	return &mockRepo{reservations: make(map[string]domain.Reservation)}
}

func (m *mockRepo) GetByID(_ context.Context, id string) (domain.Reservation, error) {
	r, ok := m.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrReservationNotFound
	}
	return r, nil
}

func (m *mockRepo) List(_ context.Context, _ domain.ListFilter) ([]domain.Reservation, error) {
	out := make([]domain.Reservation, 0, len(m.reservations))
	for _, r := range m.reservations {
		out = append(out, r)
	}
	return out, nil
}

func (m *mockRepo) FindOverlapping(_ context.Context, q domain.OverlapQuery) ([]domain.Reservation, error) {
	var out []domain.Reservation
	for _, r := range m.reservations {
		if r.RoomID == q.RoomID && r.ID != q.ExcludeID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *mockRepo) Update(_ context.Context, r domain.Reservation) error {
	if _, ok := m.reservations[r.ID]; !ok {
		return domain.ErrReservationNotFound
	}
	m.reservations[r.ID] = r
	return nil
}

type mockRules struct {
	rules []domain.BusinessRule
	err   error
}

func (m *mockRules) ListRules(_ context.Context, _ string) ([]domain.BusinessRule, error) {
	return m.rules, m.err
}

func reservation(id string, status domain.Status) domain.Reservation {
	checkIn := time.Date(2026, 8, 14, 15, 0, 0, 0, time.UTC)
	return domain.Reservation{
		ID:             id,
		OrganizationID: "org-1",
		PropertyID:     "prop-1",
		RoomID:         "room-1",
		Status:         status,
		CheckIn:        checkIn,
		CheckOut:       checkIn.Add(72 * time.Hour),
		Adults:         2,
	}
}

// --- Tests ---

func TestTracingRepository_GetByID_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.reservations["r-1"] = reservation("r-1", domain.StatusConfirmed)

	got, err := repo.GetByID(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.ID != "r-1" {
		t.Errorf("ID = %q, want %q", got.ID, "r-1")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ReservationRepository.GetByID" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ReservationRepository.GetByID")
	}
	assertAttribute(t, spans[0], "reservation.id", "r-1")
}

func TestTracingRepository_GetByID_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingRepository(newMockRepo())

	_, err := repo.GetByID(context.Background(), "nonexistent")
	if !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
	if len(spans[0].Events) == 0 {
		t.Error("expected error event on span")
	}
}

func TestTracingRepository_List_RecordsResultCount(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.reservations["r-1"] = reservation("r-1", domain.StatusConfirmed)
	inner.reservations["r-2"] = reservation("r-2", domain.StatusInHouse)

	got, err := repo.List(context.Background(), domain.ListFilter{
		OrganizationID: "org-1",
		Statuses:       []domain.Status{domain.StatusConfirmed, domain.StatusInHouse},
		Limit:          50,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d reservations, want 2", len(got))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "result.count", "2")
	assertAttribute(t, spans[0], "filter.organization_id", "org-1")
	assertAttribute(t, spans[0], "filter.limit", "50")
}

func TestTracingRepository_FindOverlapping_RecordsRoom(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	inner.reservations["r-1"] = reservation("r-1", domain.StatusConfirmed)
	inner.reservations["r-2"] = reservation("r-2", domain.StatusConfirmed)

	got, err := repo.FindOverlapping(context.Background(), domain.OverlapQuery{RoomID: "room-1", ExcludeID: "r-1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("got %d overlaps, want 1", len(got))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "room.id", "room-1")
	assertAttribute(t, spans[0], "result.count", "1")
}

func TestTracingRepository_Update_RecordsSpan(t *testing.T) {
	exporter := setupTestTracer(t)
	inner := newMockRepo()
	repo := adapter.NewTracingRepository(inner)

	res := reservation("r-1", domain.StatusConfirmed)
	inner.reservations["r-1"] = res

	res.Status = domain.StatusInHouse
	if err := repo.Update(context.Background(), res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Name != "ReservationRepository.Update" {
		t.Errorf("span name = %q, want %q", spans[0].Name, "ReservationRepository.Update")
	}
	assertAttribute(t, spans[0], "reservation.status", "IN_HOUSE")
}

func TestTracingRuleRepository_ListRules(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingRuleRepository(&mockRules{rules: []domain.BusinessRule{{ID: "a"}, {ID: "b"}, {ID: "c"}}})

	got, err := repo.ListRules(context.Background(), "org-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 3 {
		t.Errorf("got %d rules, want 3", len(got))
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	assertAttribute(t, spans[0], "organization.id", "org-1")
	assertAttribute(t, spans[0], "result.count", "3")
}

func TestTracingRuleRepository_RecordsError(t *testing.T) {
	exporter := setupTestTracer(t)
	repo := adapter.NewTracingRuleRepository(&mockRules{err: errors.New("database is locked")})

	if _, err := repo.ListRules(context.Background(), "org-1"); err == nil {
		t.Fatal("expected error")
	}

	spans := exporter.GetSpans()
	if len(spans) != 1 {
		t.Fatalf("got %d spans, want 1", len(spans))
	}
	if spans[0].Status.Code != codes.Error {
		t.Errorf("span status = %v, want %v", spans[0].Status.Code, codes.Error)
	}
}

// assertAttribute checks that a span has an attribute with the given key and string value.
func assertAttribute(t *testing.T, span tracetest.SpanStub, key, want string) {
	t.Helper()
	for _, attr := range span.Attributes {
		if string(attr.Key) == key {
			got := attr.Value.Emit()
			if got != want {
				t.Errorf("attribute %q = %q, want %q", key, got, want)
			}
			return
		}
	}
	t.Errorf("attribute %q not found on span %q", key, span.Name)
}
