package penalty

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/penalty-hub/penalty-engine/pkg/clock"
)

// dateLayout is the wire format for calendar dates (ISO YYYY-MM-DD).
const dateLayout = "2006-01-02"

// Date is a calendar date without a time-of-day component. A record's "this
// month" classification is derived from its Date, never from CreatedAt, so
// the date carries no timezone: 2026-03-05 is the same calendar day
// everywhere.
type Date struct {
	t time.Time // normalized to midnight UTC
}

// ParseDate parses an ISO YYYY-MM-DD string into a Date.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return Date{t: t}, nil
}

// DateOf returns the calendar date of the given timestamp in its location.
func DateOf(t time.Time) Date {
	return Date{t: time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// NewDate creates a Date from year, month and day.
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// IsZero reports whether the date is unset.
func (d Date) IsZero() bool {
	return d.t.IsZero()
}

// String returns the ISO YYYY-MM-DD representation.
func (d Date) String() string {
	return d.t.Format(dateLayout)
}

// YearMonth returns the calendar month the date falls in.
func (d Date) YearMonth() clock.YearMonth {
	return clock.YearMonth{Year: d.t.Year(), Month: d.t.Month()}
}

// Equal reports whether two dates are the same calendar day.
func (d Date) Equal(other Date) bool {
	return d.t.Equal(other.t)
}

// MarshalJSON encodes the date as an ISO YYYY-MM-DD string.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON decodes an ISO YYYY-MM-DD string.
func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
