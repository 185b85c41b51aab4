// Package clock provides an injectable time source for the penalty engine.
// All period-sensitive behavior (monthly reset, "this month" statistics) is
// driven by a Clock so that month-boundary logic can be tested with a fixed
// clock instead of the real system time.
// No external dependencies - uses only standard library.
package clock

import (
	"fmt"
	"sync"
	"time"
)

// YearMonth identifies a calendar month. Two timestamps belong to the same
// period exactly when their YearMonth values are equal.
type YearMonth struct {
	Year  int
	Month time.Month
}

// String returns the "YYYY-MM" representation.
func (ym YearMonth) String() string {
	return fmt.Sprintf("%04d-%02d", ym.Year, int(ym.Month))
}

// IsZero reports whether the value is the zero YearMonth.
func (ym YearMonth) IsZero() bool {
	return ym.Year == 0 && ym.Month == 0
}

// Clock supplies the current time and derives the calendar month of a
// timestamp. Implementations must be safe for concurrent use.
type Clock interface {
	// Now returns the current time in the clock's location.
	Now() time.Time

	// YearMonthOf returns the calendar month the timestamp falls in,
	// evaluated in the clock's location.
	YearMonthOf(t time.Time) YearMonth
}

// System is a Clock backed by the real system time, pinned to a location so
// that "month" means the wall-clock month of the deployment's timezone.
type System struct {
	loc *time.Location
}

// NewSystem creates a system clock in the given location.
// A nil location defaults to time.Local.
func NewSystem(loc *time.Location) System {
	if loc == nil {
		loc = time.Local
	}
	return System{loc: loc}
}

// Now returns the current time in the clock's location.
func (s System) Now() time.Time {
	return time.Now().In(s.loc)
}

// YearMonthOf returns the calendar month of t in the clock's location.
func (s System) YearMonthOf(t time.Time) YearMonth {
	local := t.In(s.loc)
	return YearMonth{Year: local.Year(), Month: local.Month()}
}

// Location returns the clock's location.
func (s System) Location() *time.Location {
	return s.loc
}

// Fixed is a Clock whose current time is set explicitly. It is intended for
// tests that need to cross month boundaries deterministically.
type Fixed struct {
	mu  sync.Mutex
	now time.Time
}

// NewFixed creates a fixed clock frozen at t.
func NewFixed(t time.Time) *Fixed {
	return &Fixed{now: t}
}

// Now returns the frozen time.
func (f *Fixed) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

// YearMonthOf returns the calendar month of t in the frozen time's location.
func (f *Fixed) YearMonthOf(t time.Time) YearMonth {
	f.mu.Lock()
	loc := f.now.Location()
	f.mu.Unlock()
	local := t.In(loc)
	return YearMonth{Year: local.Year(), Month: local.Month()}
}

// Set moves the clock to t.
func (f *Fixed) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}

// Advance moves the clock forward by d.
func (f *Fixed) Advance(d time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// AdvanceMonths moves the clock forward by the given number of calendar months.
func (f *Fixed) AdvanceMonths(n int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.AddDate(0, n, 0)
}

// StartOfMonth returns the first instant of t's month in t's location.
func StartOfMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location())
}

// SameYearMonth reports whether two timestamps fall in the same calendar
// month when evaluated in the given location.
func SameYearMonth(t1, t2 time.Time, loc *time.Location) bool {
	if loc == nil {
		loc = time.Local
	}
	a, b := t1.In(loc), t2.In(loc)
	return a.Year() == b.Year() && a.Month() == b.Month()
}
