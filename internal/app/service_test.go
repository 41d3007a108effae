package app_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/innkeep/internal/app"
	"github.com/neomorfeo/innkeep/internal/domain"
)

func TestTransition_HappyPath(t *testing.T) {
	now := checkIn.Add(time.Hour)
	e := newEnv(t, now, baseReservation("r-1", domain.StatusConfirmed))

	got, result, err := e.service.Transition(context.Background(), app.TransitionRequest{
		ReservationID: "r-1",
		NewStatus:     domain.StatusInHouse,
		Reason:        "guest arrived",
		UserID:        "u-1",
		UserRole:      domain.RoleFrontDesk,
	})
	if err != nil {
		t.Fatalf("Transition error: %v", err)
	}
	assertConsistent(t, result)

	if got.Status != domain.StatusInHouse {
		t.Errorf("Status = %q, want %q", got.Status, domain.StatusInHouse)
	}
	if !got.UpdatedAt.Equal(now) {
		t.Errorf("UpdatedAt = %s, want %s", got.UpdatedAt, now)
	}
	if stored := e.repo.get("r-1"); stored.Status != domain.StatusInHouse {
		t.Errorf("stored status = %q", stored.Status)
	}

	if len(e.history.entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(e.history.entries))
	}
	change := e.history.entries[0]
	if change.From != domain.StatusConfirmed || change.To != domain.StatusInHouse || change.UserID != "u-1" || change.Reason != "guest arrived" {
		t.Errorf("history entry = %+v", change)
	}
	if change.ID == "" {
		t.Error("history entry has no ID")
	}

	if len(e.publisher.events) != 1 || e.publisher.events[0].event != domain.EventCheckIn {
		t.Fatalf("published = %+v", e.publisher.events)
	}
	if e.publisher.events[0].reservation.Status != domain.StatusInHouse {
		t.Errorf("published reservation status = %q", e.publisher.events[0].reservation.Status)
	}
}

func TestTransition_Rejected(t *testing.T) {
	now := checkIn.Add(-72 * time.Hour)
	res := baseReservation("r-1", domain.StatusPendingConfirmation)
	res.PaymentStatus = domain.PaymentUnpaid
	res.PaidAmount = decimal.Zero
	e := newEnv(t, now, res)

	_, result, err := e.service.Transition(context.Background(), app.TransitionRequest{
		ReservationID: "r-1",
		NewStatus:     domain.StatusConfirmed,
		UserID:        "u-1",
		UserRole:      domain.RoleFrontDesk,
	})

	var rejected *domain.TransitionRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected TransitionRejectedError, got %v", err)
	}
	if rejected.ReservationID != "r-1" || rejected.Result.IsValid() {
		t.Errorf("rejected = %+v", rejected)
	}
	assertConsistent(t, result)

	if e.repo.updates != 0 || len(e.history.entries) != 0 || len(e.publisher.events) != 0 {
		t.Errorf("rejected change had side effects: updates=%d history=%d events=%d",
			e.repo.updates, len(e.history.entries), len(e.publisher.events))
	}
}

func TestTransition_ApprovalRequired(t *testing.T) {
	now := checkIn.Add(-72 * time.Hour)
	e := newEnv(t, now, baseReservation("r-1", domain.StatusConfirmed))

	_, result, err := e.service.Transition(context.Background(), app.TransitionRequest{
		ReservationID: "r-1",
		NewStatus:     domain.StatusCancelled,
		UserID:        "u-hk",
		UserRole:      domain.RoleHousekeeping,
	})

	var approval *domain.ApprovalRequiredError
	if !errors.As(err, &approval) {
		t.Fatalf("expected ApprovalRequiredError, got %v", err)
	}
	if approval.Reason == "" || approval.Reason != result.ApprovalReason {
		t.Errorf("approval reason = %q, result reason = %q", approval.Reason, result.ApprovalReason)
	}

	if len(e.approvals.requests) != 1 {
		t.Fatalf("approval requests = %d, want 1", len(e.approvals.requests))
	}
	req := e.approvals.requests[0]
	if req.From != domain.StatusConfirmed || req.To != domain.StatusCancelled || req.RequestedBy != "u-hk" || req.Role != domain.RoleHousekeeping {
		t.Errorf("approval request = %+v", req)
	}
	if got := e.repo.get("r-1").Status; got != domain.StatusConfirmed {
		t.Errorf("status changed to %q before approval", got)
	}
}

func TestTransition_StaleExpectedStatus(t *testing.T) {
	now := checkIn.Add(time.Hour)
	e := newEnv(t, now, baseReservation("r-1", domain.StatusInHouse))

	_, _, err := e.service.Transition(context.Background(), app.TransitionRequest{
		ReservationID:  "r-1",
		NewStatus:      domain.StatusInHouse,
		UserRole:       domain.RoleSystem,
		ExpectedStatus: domain.StatusConfirmed,
	})

	var rejected *domain.TransitionRejectedError
	if !errors.As(err, &rejected) {
		t.Fatalf("expected TransitionRejectedError, got %v", err)
	}
	if e.repo.updates != 0 {
		t.Errorf("updates = %d, want 0", e.repo.updates)
	}
}

func TestTransition_NotFound(t *testing.T) {
	e := newEnv(t, checkIn)

	_, _, err := e.service.Transition(context.Background(), app.TransitionRequest{
		ReservationID: "missing",
		NewStatus:     domain.StatusInHouse,
		UserRole:      domain.RolePropertyManager,
	})
	if !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestTransition_ConcurrentRequestsApplyOnce(t *testing.T) {
	now := checkIn.Add(time.Hour)
	e := newEnv(t, now, baseReservation("r-1", domain.StatusConfirmed))

	const workers = 8
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		rejected  int
	)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := e.service.Transition(context.Background(), app.TransitionRequest{
				ReservationID: "r-1",
				NewStatus:     domain.StatusInHouse,
				UserRole:      domain.RolePropertyManager,
			})
			var rej *domain.TransitionRejectedError
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				succeeded++
			case errors.As(err, &rej):
				rejected++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if succeeded != 1 || rejected != workers-1 {
		t.Errorf("succeeded=%d rejected=%d, want 1 and %d", succeeded, rejected, workers-1)
	}
	if len(e.history.entries) != 1 || len(e.publisher.events) != 1 {
		t.Errorf("history=%d events=%d, want 1 each", len(e.history.entries), len(e.publisher.events))
	}
}

func TestValidate_DoesNotMutate(t *testing.T) {
	now := checkIn.Add(time.Hour)
	e := newEnv(t, now, baseReservation("r-1", domain.StatusConfirmed))

	result, err := e.service.Validate(context.Background(), app.TransitionRequest{
		ReservationID: "r-1",
		NewStatus:     domain.StatusInHouse,
		UserRole:      domain.RoleFrontDesk,
	})
	if err != nil {
		t.Fatalf("Validate error: %v", err)
	}
	assertConsistent(t, result)
	if !result.IsValid() {
		t.Errorf("errors = %v", result.Errors)
	}
	if e.repo.updates != 0 || len(e.publisher.events) != 0 {
		t.Error("Validate must not change anything")
	}
}

func TestCheckIntegrity_StoredReservation(t *testing.T) {
	res := baseReservation("r-1", domain.StatusConfirmed)
	res.RoomID = "room-9"
	e := newEnv(t, checkIn, res)

	got, err := e.service.CheckIntegrity(context.Background(), "r-1")
	if err != nil {
		t.Fatalf("CheckIntegrity error: %v", err)
	}
	if got.Passed() {
		t.Fatal("expected issues for a missing room")
	}
	if got.Issues[0].Type != domain.IssueInvalidReference || got.Issues[0].Severity != domain.SeverityCritical {
		t.Errorf("first issue = %+v", got.Issues[0])
	}

	if _, err := e.service.CheckIntegrity(context.Background(), "missing"); !errors.Is(err, domain.ErrReservationNotFound) {
		t.Errorf("expected ErrReservationNotFound, got %v", err)
	}
}

func TestAutoFix_FixesDetectedIssues(t *testing.T) {
	res := baseReservation("r-1", domain.StatusConfirmed)
	res.Adults = 0
	res.DepositAmount = decimal.NewFromInt(900)
	e := newEnv(t, checkIn, res)

	got, err := e.service.AutoFix(context.Background(), "r-1", nil)
	if err != nil {
		t.Fatalf("AutoFix error: %v", err)
	}
	if got.Fixed != 2 || got.Failed != 0 {
		t.Errorf("result = %+v, want 2 fixed", got)
	}

	stored := e.repo.get("r-1")
	if stored.Adults != 1 {
		t.Errorf("Adults = %d, want 1", stored.Adults)
	}
	if !stored.DepositAmount.Equal(stored.TotalAmount) {
		t.Errorf("DepositAmount = %s, want %s", stored.DepositAmount, stored.TotalAmount)
	}

	again, err := e.service.AutoFix(context.Background(), "r-1", nil)
	if err != nil {
		t.Fatalf("second AutoFix error: %v", err)
	}
	if again.Fixed != 0 {
		t.Errorf("second run fixed %d issues", again.Fixed)
	}
}

func TestAutoFix_NotFound(t *testing.T) {
	e := newEnv(t, checkIn)

	_, err := e.service.AutoFix(context.Background(), "missing", nil)
	if !errors.Is(err, domain.ErrReservationNotFound) {
		t.Fatalf("expected ErrReservationNotFound, got %v", err)
	}
}
