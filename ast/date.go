package ast

import (
	"fmt"
	"time"
)

// DatePrecision records how much of a timestamp the source text spelled out.
type DatePrecision int

const (
	// PrecisionDay is a bare YYYY-MM-DD date.
	PrecisionDay DatePrecision = iota
	// PrecisionMinute is a date followed by HH:MM.
	PrecisionMinute
	// PrecisionSecond is a date followed by HH:MM:SS.
	PrecisionSecond
)

// Date is a calendar date, optionally refined with a time of day. The
// wall-clock fields are kept timezone-free; projection into the ledger's
// configured timezone happens when a directive is materialised into the
// store.
type Date struct {
	year, month, day  int
	hour, minute, sec int
	precision         DatePrecision
}

// NewDate creates a day-precision date.
func NewDate(year, month, day int) *Date {
	return &Date{year: year, month: month, day: day, precision: PrecisionDay}
}

// NewDateMinute creates a minute-precision date.
func NewDateMinute(year, month, day, hour, minute int) *Date {
	return &Date{year: year, month: month, day: day, hour: hour, minute: minute, precision: PrecisionMinute}
}

// NewDateSecond creates a second-precision date.
func NewDateSecond(year, month, day, hour, minute, sec int) *Date {
	return &Date{year: year, month: month, day: day, hour: hour, minute: minute, sec: sec, precision: PrecisionSecond}
}

// ParseDate parses YYYY-MM-DD.
func ParseDate(s string) (*Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return nil, fmt.Errorf("invalid date %q", s)
	}
	return NewDate(t.Year(), int(t.Month()), t.Day()), nil
}

// WithTime upgrades a day-precision date using an HH:MM or HH:MM:SS string.
// It is used by the codecs when a "time" meta entry accompanies a directive.
func (d *Date) WithTime(s string) (*Date, error) {
	if t, err := time.Parse("15:04:05", s); err == nil {
		return NewDateSecond(d.year, d.month, d.day, t.Hour(), t.Minute(), t.Second()), nil
	}
	if t, err := time.Parse("15:04", s); err == nil {
		return NewDateMinute(d.year, d.month, d.day, t.Hour(), t.Minute()), nil
	}
	return nil, fmt.Errorf("invalid time %q", s)
}

// Precision returns how much of the timestamp was specified.
func (d *Date) Precision() DatePrecision { return d.precision }

// Naive returns the wall-clock time in UTC, for comparisons that do not
// depend on the ledger timezone.
func (d *Date) Naive() time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, d.hour, d.minute, d.sec, 0, time.UTC)
}

// InTimezone projects the wall-clock fields into the given location.
func (d *Date) InTimezone(loc *time.Location) time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, d.hour, d.minute, d.sec, 0, loc)
}

// EndOfDay returns the last instant of the date's day in the given location.
// Balance assertions compare against the account balance at this instant.
func (d *Date) EndOfDay(loc *time.Location) time.Time {
	return time.Date(d.year, time.Month(d.month), d.day, 23, 59, 59, int(time.Second-time.Nanosecond), loc)
}

// Before reports whether d is before other, comparing wall-clock fields.
func (d *Date) Before(other *Date) bool {
	return d.Naive().Before(other.Naive())
}

// Interval returns the calendar month encoded as year*100+month, the key
// used for budget interval accounting.
func (d *Date) Interval() uint32 {
	return uint32(d.year*100 + d.month)
}

// String renders the date in its source precision.
func (d *Date) String() string {
	switch d.precision {
	case PrecisionMinute:
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d", d.year, d.month, d.day, d.hour, d.minute)
	case PrecisionSecond:
		return fmt.Sprintf("%04d-%02d-%02d %02d:%02d:%02d", d.year, d.month, d.day, d.hour, d.minute, d.sec)
	default:
		return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
	}
}

// DateOnly renders only the calendar date, regardless of precision.
func (d *Date) DateOnly() string {
	return fmt.Sprintf("%04d-%02d-%02d", d.year, d.month, d.day)
}

// TimeOnly renders the time-of-day part, or "" for day precision. Exporting
// into a date-only dialect re-serialises this as a "time" meta entry.
func (d *Date) TimeOnly() string {
	switch d.precision {
	case PrecisionMinute:
		return fmt.Sprintf("%02d:%02d", d.hour, d.minute)
	case PrecisionSecond:
		return fmt.Sprintf("%02d:%02d:%02d", d.hour, d.minute, d.sec)
	default:
		return ""
	}
}
