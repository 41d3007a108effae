package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/neomorfeo/innkeep/internal/domain"
)

func TestParseStatus(t *testing.T) {
	cases := []struct {
		in      string
		want    domain.Status
		wantErr bool
	}{
		{"CONFIRMED", domain.StatusConfirmed, false},
		{" in_house ", domain.StatusInHouse, false},
		{"CONFIRMATION_PENDING", domain.StatusPendingConfirmation, false},
		{"no_show", domain.StatusNoShow, false},
		{"CHECKIN_DUE", "", true},
		{"bogus", "", true},
	}

	for _, tc := range cases {
		got, err := domain.ParseStatus(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Errorf("ParseStatus(%q) expected error, got %q", tc.in, got)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", tc.in, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTransitions_AllEventsHaveEntries(t *testing.T) {
	events := []domain.Event{
		domain.EventConfirm,
		domain.EventCheckIn,
		domain.EventCheckOut,
		domain.EventCancel,
		domain.EventMarkNoShow,
	}

	for _, event := range events {
		found := false
		for _, tr := range domain.Transitions {
			if tr.Event == event {
				found = true
				break
			}
		}
		if !found {
			t.Errorf("event %q has no transition defined", event)
		}
	}
}

func TestTransitions_NonTerminalStatusesHaveOutgoingEdges(t *testing.T) {
	terminal := map[domain.Status]bool{
		domain.StatusCheckedOut: true,
		domain.StatusCancelled:  true,
		domain.StatusNoShow:     true,
	}

	for _, st := range domain.StoredStatuses {
		outgoing := 0
		for _, tr := range domain.Transitions {
			if tr.Src == st {
				outgoing++
			}
		}
		if terminal[st] && outgoing != 0 {
			t.Errorf("terminal status %q has %d outgoing transitions", st, outgoing)
		}
		if !terminal[st] && outgoing == 0 {
			t.Errorf("status %q has no outgoing transition", st)
		}
	}
}

func TestEventFor(t *testing.T) {
	event, ok := domain.EventFor(domain.StatusConfirmed, domain.StatusNoShow)
	if !ok || event != domain.EventMarkNoShow {
		t.Errorf("EventFor(CONFIRMED, NO_SHOW) = %q, %v", event, ok)
	}

	if _, ok := domain.EventFor(domain.StatusPendingConfirmation, domain.StatusInHouse); ok {
		t.Error("EventFor(PENDING_CONFIRMATION, IN_HOUSE) should not exist")
	}
}

func TestPaymentPercentage(t *testing.T) {
	cases := []struct {
		name string
		res  domain.Reservation
		want float64
	}{
		{
			name: "half of deposit",
			res: domain.Reservation{
				PaidAmount:    decimal.NewFromInt(250),
				DepositAmount: decimal.NewFromInt(500),
				TotalAmount:   decimal.NewFromInt(1000),
			},
			want: 50,
		},
		{
			name: "capped at 100",
			res: domain.Reservation{
				PaidAmount:    decimal.NewFromInt(900),
				DepositAmount: decimal.NewFromInt(300),
			},
			want: 100,
		},
		{
			name: "total used without deposit",
			res: domain.Reservation{
				PaidAmount:  decimal.NewFromInt(100),
				TotalAmount: decimal.NewFromInt(400),
			},
			want: 25,
		},
		{
			name: "status heuristic paid",
			res:  domain.Reservation{PaymentStatus: domain.PaymentPaid},
			want: 100,
		},
		{
			name: "status heuristic partial",
			res:  domain.Reservation{PaymentStatus: domain.PaymentPartiallyPaid},
			want: 50,
		},
		{
			name: "status heuristic unpaid",
			res:  domain.Reservation{PaymentStatus: domain.PaymentUnpaid},
			want: 0,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.res.PaymentPercentage(); got != tc.want {
				t.Errorf("PaymentPercentage() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestPaidPercentOfTotal(t *testing.T) {
	res := domain.Reservation{
		PaidAmount:    decimal.NewFromInt(200),
		DepositAmount: decimal.NewFromInt(200),
		TotalAmount:   decimal.NewFromInt(1000),
	}
	if got := res.PaidPercentOfTotal(); got != 20 {
		t.Errorf("PaidPercentOfTotal() = %v, want 20", got)
	}
	if got := res.PaymentPercentage(); got != 100 {
		t.Errorf("PaymentPercentage() = %v, want 100", got)
	}
}

func TestDisplayStatus(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	arriving := domain.Reservation{
		Status:   domain.StatusConfirmed,
		CheckIn:  time.Date(2026, 3, 10, 15, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 3, 12, 11, 0, 0, 0, time.UTC),
	}
	if got := domain.DisplayStatus(arriving, now); got != domain.StatusCheckinDue {
		t.Errorf("DisplayStatus(arriving) = %q, want %q", got, domain.StatusCheckinDue)
	}

	leaving := domain.Reservation{
		Status:   domain.StatusInHouse,
		CheckIn:  time.Date(2026, 3, 8, 15, 0, 0, 0, time.UTC),
		CheckOut: time.Date(2026, 3, 10, 11, 0, 0, 0, time.UTC),
	}
	if got := domain.DisplayStatus(leaving, now); got != domain.StatusCheckoutDue {
		t.Errorf("DisplayStatus(leaving) = %q, want %q", got, domain.StatusCheckoutDue)
	}

	later := arriving
	later.CheckIn = now.Add(48 * time.Hour)
	if got := domain.DisplayStatus(later, now); got != domain.StatusConfirmed {
		t.Errorf("DisplayStatus(later) = %q, want %q", got, domain.StatusConfirmed)
	}
}

func TestRole_AtLeast(t *testing.T) {
	if !domain.RoleOrgOwner.AtLeast(domain.RolePropertyManager) {
		t.Error("ORG_OWNER should rank at least PROPERTY_MGR")
	}
	if domain.RoleFrontDesk.AtLeast(domain.RolePropertyManager) {
		t.Error("FRONT_DESK should rank below PROPERTY_MGR")
	}
	if domain.Role("INTERN").AtLeast(domain.RoleHousekeeping) {
		t.Error("unknown roles should rank below every known role")
	}
}
