package fsm_test

import (
	"context"
	"errors"
	"slices"
	"testing"

	adapter "github.com/neomorfeo/innkeep/internal/adapter/fsm"
	"github.com/neomorfeo/innkeep/internal/domain"
)

func TestGraph_AllTransitions(t *testing.T) {
	g := adapter.New()
	ctx := context.Background()

	for _, tr := range domain.Transitions {
		dst, err := g.Apply(ctx, tr.Src, tr.Event)
		if err != nil {
			t.Errorf("Apply(%q, %q) unexpected error: %v", tr.Src, tr.Event, err)
			continue
		}
		if dst != tr.Dst {
			t.Errorf("Apply(%q, %q) = %q, want %q", tr.Src, tr.Event, dst, tr.Dst)
		}
	}
}

func TestGraph_InvalidTransition(t *testing.T) {
	g := adapter.New()
	ctx := context.Background()

	// Can't check out a reservation that never checked in.
	_, err := g.Apply(ctx, domain.StatusConfirmed, domain.EventCheckOut)
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
	if trErr.Event != domain.EventCheckOut {
		t.Errorf("event = %q, want %q", trErr.Event, domain.EventCheckOut)
	}
	if trErr.Current != domain.StatusConfirmed {
		t.Errorf("current = %q, want %q", trErr.Current, domain.StatusConfirmed)
	}
}

func TestGraph_UnknownEvent(t *testing.T) {
	g := adapter.New()

	_, err := g.Apply(context.Background(), domain.StatusConfirmed, domain.Event("teleport"))
	var trErr *domain.TransitionError
	if !errors.As(err, &trErr) {
		t.Fatalf("expected TransitionError, got %v", err)
	}
}

func TestGraph_Targets(t *testing.T) {
	g := adapter.New()

	cases := []struct {
		src  domain.Status
		want []domain.Status
	}{
		{domain.StatusPendingConfirmation, []domain.Status{domain.StatusCancelled, domain.StatusConfirmed}},
		{domain.StatusConfirmed, []domain.Status{domain.StatusCancelled, domain.StatusInHouse, domain.StatusNoShow}},
		{domain.StatusInHouse, []domain.Status{domain.StatusCancelled, domain.StatusCheckedOut}},
		{domain.StatusCheckedOut, nil},
		{domain.StatusCancelled, nil},
		{domain.StatusNoShow, nil},
		{domain.Status("MYSTERY"), nil},
	}

	for _, tc := range cases {
		got := g.Targets(tc.src)
		if !slices.Equal(got, tc.want) {
			t.Errorf("Targets(%q) = %v, want %v", tc.src, got, tc.want)
		}
	}
}

func TestGraph_TerminalStatuses(t *testing.T) {
	g := adapter.New()

	for _, st := range domain.StoredStatuses {
		want := st == domain.StatusCheckedOut || st == domain.StatusCancelled || st == domain.StatusNoShow
		if got := g.IsTerminal(st); got != want {
			t.Errorf("IsTerminal(%q) = %v, want %v", st, got, want)
		}
	}
}

func TestGraph_SelfTransitionNeverAllowed(t *testing.T) {
	g := adapter.New()

	for _, st := range domain.StoredStatuses {
		if g.Allows(st, st) {
			t.Errorf("Allows(%q, %q) = true", st, st)
		}
	}
}

func TestGraph_Allows(t *testing.T) {
	g := adapter.New()

	if !g.Allows(domain.StatusConfirmed, domain.StatusNoShow) {
		t.Error("CONFIRMED -> NO_SHOW should be allowed")
	}
	if g.Allows(domain.StatusPendingConfirmation, domain.StatusInHouse) {
		t.Error("PENDING_CONFIRMATION -> IN_HOUSE should not be allowed")
	}
	if g.Allows(domain.StatusCheckedOut, domain.StatusInHouse) {
		t.Error("CHECKED_OUT -> IN_HOUSE should not be allowed")
	}
}

func TestGraph_TargetsReturnsCopy(t *testing.T) {
	g := adapter.New()

	got := g.Targets(domain.StatusConfirmed)
	got[0] = domain.StatusNoShow

	if g.Targets(domain.StatusConfirmed)[0] != domain.StatusCancelled {
		t.Error("Targets should not expose internal state")
	}
}

func TestGraph_NextHop(t *testing.T) {
	g := adapter.New()

	cases := []struct {
		src, dst domain.Status
		want     domain.Status
		ok       bool
	}{
		{domain.StatusPendingConfirmation, domain.StatusInHouse, domain.StatusConfirmed, true},
		{domain.StatusPendingConfirmation, domain.StatusCheckedOut, domain.StatusConfirmed, true},
		{domain.StatusConfirmed, domain.StatusInHouse, domain.StatusInHouse, true},
		{domain.StatusCheckedOut, domain.StatusInHouse, "", false},
		{domain.StatusConfirmed, domain.StatusConfirmed, "", false},
	}

	for _, tc := range cases {
		got, ok := g.NextHop(tc.src, tc.dst)
		if ok != tc.ok || got != tc.want {
			t.Errorf("NextHop(%q, %q) = %q, %v; want %q, %v", tc.src, tc.dst, got, ok, tc.want, tc.ok)
		}
	}
}

func TestGraph_FullLifecycle(t *testing.T) {
	g := adapter.New()
	ctx := context.Background()

	steps := []struct {
		from  domain.Status
		event domain.Event
		want  domain.Status
	}{
		{domain.StatusPendingConfirmation, domain.EventConfirm, domain.StatusConfirmed},
		{domain.StatusConfirmed, domain.EventCheckIn, domain.StatusInHouse},
		{domain.StatusInHouse, domain.EventCheckOut, domain.StatusCheckedOut},
	}

	for _, step := range steps {
		got, err := g.Apply(ctx, step.from, step.event)
		if err != nil {
			t.Fatalf("Apply(%q, %q) error: %v", step.from, step.event, err)
		}
		if got != step.want {
			t.Errorf("Apply(%q, %q) = %q, want %q", step.from, step.event, got, step.want)
		}
	}
}
