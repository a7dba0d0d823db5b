// Package market_hours answers whether a timestamp falls inside the named
// scheduling windows of the trading venue. Windows are pure functions of time,
// re-derived on every tick; there is no persisted phase.
package market_hours

import (
	"fmt"
	"sync"
	"time"
)

// Window bounds in venue local time. Both bounds are inclusive.
const (
	tradingOpenHour    = 9
	tradingOpenMinute  = 30
	tradingCloseHour   = 16
	tradingCloseMinute = 0

	intakeStartHour   = 8
	intakeStartMinute = 25
	intakeEndHour     = 17
	intakeEndMinute   = 25

	reviewEndHour   = 17
	reviewEndMinute = 0

	// On non-trading days intake opens only near a single target instant,
	// with a tolerance band because ticks do not land on exact boundaries.
	weekendIntakeHour      = 15
	weekendIntakeMinute    = 0
	weekendIntakeTolerance = 5 * time.Minute
)

// Service evaluates the trading, intake and review windows for one venue.
type Service struct {
	venue *time.Location

	mu       sync.Mutex
	holidays map[int][]time.Time // venue closure dates keyed by year
}

// NewService creates a window evaluator for the venue's local timezone,
// e.g. "America/New_York".
func NewService(timezone string) (*Service, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("failed to load venue timezone %q: %w", timezone, err)
	}
	return &Service{
		venue:    loc,
		holidays: make(map[int][]time.Time),
	}, nil
}

// IsTradingOpen reports whether t falls inside the trading window:
// Monday through Friday excluding venue holidays, venue open through
// venue close inclusive.
func (s *Service) IsTradingOpen(t time.Time) bool {
	local := t.In(s.venue)
	if isWeekend(local) || s.isHoliday(local) {
		return false
	}

	open := at(local, tradingOpenHour, tradingOpenMinute)
	close := at(local, tradingCloseHour, tradingCloseMinute)
	return within(local, open, close)
}

// IsIntakeOpen reports whether t falls inside the intake window: a wide span
// bracketing the trading window on trading weekdays, plus a narrow band around
// a single afternoon instant on weekends.
func (s *Service) IsIntakeOpen(t time.Time) bool {
	local := t.In(s.venue)

	if isWeekend(local) {
		target := at(local, weekendIntakeHour, weekendIntakeMinute)
		diff := local.Sub(target)
		if diff < 0 {
			diff = -diff
		}
		return diff < weekendIntakeTolerance
	}

	start := at(local, intakeStartHour, intakeStartMinute)
	end := at(local, intakeEndHour, intakeEndMinute)
	return within(local, start, end)
}

// IsReviewOpen reports whether t falls inside the review window: a short span
// immediately after the trading window closes, trading weekdays only.
func (s *Service) IsReviewOpen(t time.Time) bool {
	local := t.In(s.venue)
	if isWeekend(local) || s.isHoliday(local) {
		return false
	}

	start := at(local, tradingCloseHour, tradingCloseMinute)
	end := at(local, reviewEndHour, reviewEndMinute)
	return within(local, start, end)
}

// Status reports all three windows at once, for the dashboard.
type Status struct {
	At          time.Time `json:"at"`
	TradingOpen bool      `json:"trading_open"`
	IntakeOpen  bool      `json:"intake_open"`
	ReviewOpen  bool      `json:"review_open"`
}

// StatusAt evaluates every window independently; several can be open at once.
func (s *Service) StatusAt(t time.Time) Status {
	return Status{
		At:          t.In(s.venue),
		TradingOpen: s.IsTradingOpen(t),
		IntakeOpen:  s.IsIntakeOpen(t),
		ReviewOpen:  s.IsReviewOpen(t),
	}
}

// isHoliday reports whether the local date is a venue closure date. The
// intake window deliberately ignores holidays; news gathered on a closed
// day feeds the next session.
func (s *Service) isHoliday(local time.Time) bool {
	s.mu.Lock()
	days, ok := s.holidays[local.Year()]
	if !ok {
		days = usHolidays(local.Year())
		s.holidays[local.Year()] = days
	}
	s.mu.Unlock()

	for _, day := range days {
		if day.Month() == local.Month() && day.Day() == local.Day() {
			return true
		}
	}
	return false
}

func isWeekend(t time.Time) bool {
	return t.Weekday() == time.Saturday || t.Weekday() == time.Sunday
}

func at(day time.Time, hour, minute int) time.Time {
	return time.Date(day.Year(), day.Month(), day.Day(), hour, minute, 0, 0, day.Location())
}

// within checks start <= t <= end, inclusive on both bounds.
func within(t, start, end time.Time) bool {
	return !t.Before(start) && !t.After(end)
}
