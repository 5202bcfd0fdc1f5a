// Package services provides business logic and orchestration services.
//
// This file implements the Strategy Pattern for boundary detection. Each
// boundary (day, month) has its own checker that decides from the persisted
// close markers whether its transition is due.
package services

import (
	"context"
	"fmt"
	"log/slog"

	"ledgerbook/internal/core"
	"ledgerbook/internal/period"
)

// BoundaryState names a state of the boundary trigger.
type BoundaryState string

const (
	StateNormal               BoundaryState = "NORMAL"
	StateDayBoundaryCrossed   BoundaryState = "DAY_BOUNDARY_CROSSED"
	StateMonthBoundaryCrossed BoundaryState = "MONTH_BOUNDARY_CROSSED"
)

// OutcomeDeclined marks a month close the owner refused.
const OutcomeDeclined Outcome = "declined"

// BoundaryChecker is the strategy interface for one boundary transition.
type BoundaryChecker interface {
	// Due reports whether the transition should run on today.
	Due(today core.Date, markers CloseMarkers, previousMonthArchived bool) bool
}

// DayBoundaryChecker fires once per calendar day.
type DayBoundaryChecker struct{}

// Due returns true if no daily close has been recorded for today.
func (DayBoundaryChecker) Due(today core.Date, markers CloseMarkers, _ bool) bool {
	return !markers.LastDailyCloseDate.Equal(today)
}

// MonthBoundaryChecker fires on the first day of a month.
type MonthBoundaryChecker struct{}

// Due returns true on day one when the previous month is neither marked
// closed nor archived.
func (MonthBoundaryChecker) Due(today core.Date, markers CloseMarkers, previousMonthArchived bool) bool {
	if today.Day() != 1 || previousMonthArchived {
		return false
	}
	prev, err := period.PreviousMonth(period.MonthKey(today))
	if err != nil {
		return false
	}
	return !markers.HasClosedMonth(prev)
}

// boundaryCheckers maps transitions to their checkers; boundaryOrder is the
// order in which they run.
var (
	boundaryCheckers = map[BoundaryState]BoundaryChecker{
		StateDayBoundaryCrossed:   DayBoundaryChecker{},
		StateMonthBoundaryCrossed: MonthBoundaryChecker{},
	}
	boundaryOrder = []BoundaryState{StateDayBoundaryCrossed, StateMonthBoundaryCrossed}
)

// GetBoundaryChecker returns the checker of a transition state.
func GetBoundaryChecker(state BoundaryState) (BoundaryChecker, error) {
	checker, ok := boundaryCheckers[state]
	if !ok {
		return nil, fmt.Errorf("unknown boundary state: %s", state)
	}
	return checker, nil
}

// BoundaryDecision lists the transitions due on a day.
type BoundaryDecision struct {
	Today         core.Date
	PreviousMonth string
	Transitions   []BoundaryState
}

func (d BoundaryDecision) has(state BoundaryState) bool {
	for _, s := range d.Transitions {
		if s == state {
			return true
		}
	}
	return false
}

// DayDue reports whether yesterday should be closed.
func (d BoundaryDecision) DayDue() bool { return d.has(StateDayBoundaryCrossed) }

// MonthDue reports whether the previous month should be closed.
func (d BoundaryDecision) MonthDue() bool { return d.has(StateMonthBoundaryCrossed) }

// DecideBoundary is the pure boundary decision for today.
func DecideBoundary(today core.Date, markers CloseMarkers, previousMonthArchived bool) BoundaryDecision {
	d := BoundaryDecision{Today: today}
	d.PreviousMonth, _ = period.PreviousMonth(period.MonthKey(today))
	for _, state := range boundaryOrder {
		if boundaryCheckers[state].Due(today, markers, previousMonthArchived) {
			d.Transitions = append(d.Transitions, state)
		}
	}
	return d
}

type (
	// BoundaryStep is one transition taken by RunBoundary.
	BoundaryStep struct {
		State   BoundaryState `json:"state"`
		Period  string        `json:"period"`
		Outcome Outcome       `json:"outcome"`
	}

	BoundaryResult struct {
		Today             core.Date      `json:"today"`
		Steps             []BoundaryStep `json:"steps"`
		MonthClosePending bool           `json:"monthClosePending"`
		PendingMonth      string         `json:"pendingMonth,omitempty"`
		State             BoundaryState  `json:"state"`
		DegradedClock     bool           `json:"degradedClock"`
	}
)

// RunBoundary runs the transitions due today for user: the daily close of
// yesterday and, once confirm approves it, the close of the previous month.
// A nil confirm leaves a due month close pending.
//
// The daily marker is only advanced after a successful close, so a failed
// close is retried on the next run.
func (e *ClosingEngine) RunBoundary(ctx context.Context, user string, confirm Confirmer) (*BoundaryResult, error) {
	keys, err := period.For(user)
	if err != nil {
		return nil, err
	}

	reading, degraded := e.clock.Today(ctx)
	today := reading.Date
	result := &BoundaryResult{Today: today, Steps: []BoundaryStep{}, State: StateNormal, DegradedClock: degraded}

	markers, err := loadMarkers(ctx, e.ledger, keys)
	if err != nil {
		return nil, err
	}
	prevMonth, err := period.PreviousMonth(period.MonthKey(today))
	if err != nil {
		return nil, err
	}
	archived := false
	if today.Day() == 1 {
		if _, archived, err = e.archive.Get(ctx, keys.MonthlyArchive(prevMonth)); err != nil {
			return nil, fmt.Errorf("check monthly archive: %w", err)
		}
	}

	decision := DecideBoundary(today, markers, archived)
	if len(decision.Transitions) == 0 {
		slog.DebugContext(ctx, "No boundary crossed", "user", keys.User(), "today", today.String())
		return result, nil
	}

	if decision.DayDue() {
		day, err := e.CloseDay(ctx, keys.User(), period.Yesterday(today))
		if err != nil {
			return nil, fmt.Errorf("close day: %w", err)
		}
		markers.LastDailyCloseDate = today
		if err := saveMarkers(ctx, e.ledger, keys, markers); err != nil {
			return nil, err
		}
		result.Steps = append(result.Steps, BoundaryStep{
			State:   StateDayBoundaryCrossed,
			Period:  day.Date.String(),
			Outcome: day.Outcome,
		})
	}

	if decision.MonthDue() {
		step, pending, err := e.runMonthBoundary(ctx, keys, prevMonth, confirm)
		if err != nil {
			return nil, err
		}
		if pending {
			result.MonthClosePending = true
			result.PendingMonth = prevMonth
		} else {
			result.Steps = append(result.Steps, step)
		}
	}

	slog.InfoContext(ctx, "Boundary processed",
		"user", keys.User(),
		"today", today.String(),
		"steps", len(result.Steps),
		"month_pending", result.MonthClosePending,
		"degraded", degraded)
	return result, nil
}

func (e *ClosingEngine) runMonthBoundary(ctx context.Context, keys period.Keys, month string, confirm Confirmer) (BoundaryStep, bool, error) {
	step := BoundaryStep{State: StateMonthBoundaryCrossed, Period: month}
	if confirm == nil {
		return step, true, nil
	}

	ok, err := confirm(ctx, month)
	if err != nil {
		return step, false, fmt.Errorf("confirm month close: %w", err)
	}
	if !ok {
		slog.InfoContext(ctx, "Month close declined", "user", keys.User(), "month", month)
		step.Outcome = OutcomeDeclined
		return step, false, nil
	}

	res, err := e.CloseMonth(ctx, keys.User(), month)
	if err != nil {
		return step, false, fmt.Errorf("close month: %w", err)
	}
	step.Outcome = res.Outcome

	// An empty month has no archive to stop the prompt, so record it here.
	if res.Outcome == OutcomeNothingToClose {
		markers, err := loadMarkers(ctx, e.ledger, keys)
		if err != nil {
			return step, false, err
		}
		if err := saveMarkers(ctx, e.ledger, keys, markers.WithClosedMonth(month)); err != nil {
			return step, false, err
		}
	}
	return step, false, nil
}
