package services

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"ledgerbook/internal/core"
)

func TestDecideBoundary(t *testing.T) {
	tests := []struct {
		name     string
		today    string
		markers  CloseMarkers
		archived bool
		want     []BoundaryState
	}{
		{
			name:  "fresh user mid month",
			today: "2025-01-15",
			want:  []BoundaryState{StateDayBoundaryCrossed},
		},
		{
			name:    "same day reload",
			today:   "2025-01-15",
			markers: CloseMarkers{LastDailyCloseDate: day("2025-01-15")},
			want:    nil,
		},
		{
			name:    "first of month with open previous month",
			today:   "2025-02-01",
			markers: CloseMarkers{LastDailyCloseDate: day("2025-01-31")},
			want:    []BoundaryState{StateDayBoundaryCrossed, StateMonthBoundaryCrossed},
		},
		{
			name:    "first of month already marked closed",
			today:   "2025-02-01",
			markers: CloseMarkers{LastDailyCloseDate: day("2025-02-01"), ClosedMonths: []string{"2025-01"}},
			want:    nil,
		},
		{
			name:     "first of month already archived",
			today:    "2025-02-01",
			markers:  CloseMarkers{LastDailyCloseDate: day("2025-02-01")},
			archived: true,
			want:     nil,
		},
		{
			name:    "january closes previous december",
			today:   "2025-01-01",
			markers: CloseMarkers{LastDailyCloseDate: day("2025-01-01"), ClosedMonths: []string{"2024-11"}},
			want:    []BoundaryState{StateMonthBoundaryCrossed},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := DecideBoundary(day(tt.today), tt.markers, tt.archived)
			if !slices.Equal(got.Transitions, tt.want) {
				t.Errorf("DecideBoundary() = %v, want %v", got.Transitions, tt.want)
			}
		})
	}
}

func TestGetBoundaryChecker(t *testing.T) {
	if _, err := GetBoundaryChecker(StateDayBoundaryCrossed); err != nil {
		t.Errorf("day checker: %v", err)
	}
	if _, err := GetBoundaryChecker(StateNormal); err == nil {
		t.Error("expected error for state without checker")
	}
}

func TestRunBoundary_SameDayIsNoop(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	env.seed(t, "2025-01", newTx("e1", "2025-01-14", core.Expense, 10, "Food"))

	first, err := env.engine.RunBoundary(ctx, testUser, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(first.Steps) != 1 || first.Steps[0].Outcome != OutcomeClosed || first.Steps[0].Period != "2025-01-14" {
		t.Fatalf("first run = %+v", first)
	}

	second, err := env.engine.RunBoundary(ctx, testUser, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(second.Steps) != 0 || second.State != StateNormal {
		t.Errorf("second run = %+v", second)
	}
}

func TestRunBoundary_MonthNeedsConfirmation(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	env.seed(t, "2025-01", newTx("e1", "2025-01-31", core.Expense, 10, "Food"))

	pending, err := env.engine.RunBoundary(ctx, testUser, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !pending.MonthClosePending || pending.PendingMonth != "2025-01" {
		t.Fatalf("expected pending month close, got %+v", pending)
	}

	prompts := 0
	confirm := func(_ context.Context, month string) (bool, error) {
		prompts++
		return month == "2025-01", nil
	}
	closed, err := env.engine.RunBoundary(ctx, testUser, confirm)
	if err != nil {
		t.Fatal(err)
	}
	if len(closed.Steps) != 1 || closed.Steps[0].State != StateMonthBoundaryCrossed || closed.Steps[0].Outcome != OutcomeClosed {
		t.Fatalf("confirmed run = %+v", closed)
	}

	again, err := env.engine.RunBoundary(ctx, testUser, confirm)
	if err != nil {
		t.Fatal(err)
	}
	if prompts != 1 || len(again.Steps) != 0 || again.MonthClosePending {
		t.Errorf("re-prompted: prompts=%d result=%+v", prompts, again)
	}
}

func TestRunBoundary_DeclinedAndEmptyMonths(t *testing.T) {
	ctx := context.Background()
	feb1 := time.Date(2025, 2, 1, 9, 0, 0, 0, time.UTC)

	t.Run("declined leaves markers", func(t *testing.T) {
		env := newTestEnv(t, feb1)
		env.seed(t, "2025-01", newTx("e1", "2025-01-20", core.Expense, 10, "Food"))
		res, err := env.engine.RunBoundary(ctx, testUser, func(context.Context, string) (bool, error) { return false, nil })
		if err != nil {
			t.Fatal(err)
		}
		if res.Steps[len(res.Steps)-1].Outcome != OutcomeDeclined {
			t.Errorf("steps = %+v", res.Steps)
		}
		markers, _ := loadMarkers(ctx, env.ledger, env.keys)
		if markers.HasClosedMonth("2025-01") {
			t.Error("declined month recorded as closed")
		}
	})

	t.Run("empty month is recorded", func(t *testing.T) {
		env := newTestEnv(t, feb1)
		res, err := env.engine.RunBoundary(ctx, testUser, ConfirmAlways)
		if err != nil {
			t.Fatal(err)
		}
		if res.Steps[len(res.Steps)-1].Outcome != OutcomeNothingToClose {
			t.Errorf("steps = %+v", res.Steps)
		}
		markers, _ := loadMarkers(ctx, env.ledger, env.keys)
		if !markers.HasClosedMonth("2025-01") {
			t.Error("empty month not recorded")
		}
	})

	t.Run("confirmation error aborts", func(t *testing.T) {
		env := newTestEnv(t, feb1)
		boom := errors.New("prompt closed")
		_, err := env.engine.RunBoundary(ctx, testUser, func(context.Context, string) (bool, error) { return false, boom })
		if !errors.Is(err, boom) {
			t.Errorf("expected prompt error, got %v", err)
		}
	})
}

func TestRunBoundary_FailedCloseKeepsMarker(t *testing.T) {
	env := newTestEnv(t, time.Date(2025, 1, 15, 9, 0, 0, 0, time.UTC))
	ctx := context.Background()
	env.seed(t, "2025-01", newTx("e1", "2025-01-14", core.Expense, 10, "Food"))
	env.archive.failWrites("daily-archive:")

	if _, err := env.engine.RunBoundary(ctx, testUser, nil); err == nil {
		t.Fatal("expected close failure")
	}
	markers, err := loadMarkers(ctx, env.ledger, env.keys)
	if err != nil {
		t.Fatal(err)
	}
	if !markers.LastDailyCloseDate.IsZero() {
		t.Errorf("marker advanced to %s after failed close", markers.LastDailyCloseDate)
	}

	env.archive.failWrites("")
	res, err := env.engine.RunBoundary(ctx, testUser, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Steps) != 1 || res.Steps[0].Outcome != OutcomeClosed {
		t.Errorf("retry = %+v", res)
	}
}
