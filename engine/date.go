package engine

import (
	"strings"
	"time"
)

// =============================================================================
// DATE - Day-granularity time value
// =============================================================================

// Date is a calendar day, always normalized to midnight UTC so values are
// safely comparable with == and usable as map keys.
type Date struct {
	t time.Time
}

// Constructors
func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an instant to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), t.Month(), t.Day())
}

func Today() Date {
	return DateOf(time.Now())
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, err
	}
	return DateOf(t), nil
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic
func (d Date) AddDays(n int) Date { return DateOf(d.t.AddDate(0, 0, n)) }

// Properties
func (d Date) Year() int             { return d.t.Year() }
func (d Date) Month() time.Month     { return d.t.Month() }
func (d Date) Day() int              { return d.t.Day() }
func (d Date) Weekday() time.Weekday { return d.t.Weekday() }
func (d Date) IsZero() bool          { return d.t.IsZero() }
func (d Date) Time() time.Time       { return d.t }

func (d Date) String() string { return d.t.Format("2006-01-02") }

func MinDate(a, b Date) Date {
	if a.Before(b) {
		return a
	}
	return b
}

// =============================================================================
// WEEKDAY SET - A job's excluded (non-working) weekdays
// =============================================================================

// WeekdaySet is a set of weekdays, one bit per day. The zero value is the
// empty set.
type WeekdaySet uint8

func NewWeekdaySet(days ...time.Weekday) WeekdaySet {
	var s WeekdaySet
	for _, d := range days {
		s |= 1 << uint(d)
	}
	return s
}

// DefaultExcluded is the weekend exclusion applied when a job config omits
// excluded days.
func DefaultExcluded() WeekdaySet {
	return NewWeekdaySet(time.Saturday, time.Sunday)
}

func (s WeekdaySet) Has(d time.Weekday) bool { return s&(1<<uint(d)) != 0 }
func (s WeekdaySet) IsEmpty() bool           { return s == 0 }

// Names returns the contained weekday names in Sunday-first order.
func (s WeekdaySet) Names() []string {
	var names []string
	for d := time.Sunday; d <= time.Saturday; d++ {
		if s.Has(d) {
			names = append(names, d.String())
		}
	}
	return names
}

// ParseWeekdays builds a set from weekday names as recorded by job CRUD
// (e.g. "Sunday"). Matching is case-insensitive; unknown names are ignored
// since the engine does not validate upstream configuration.
func ParseWeekdays(names []string) WeekdaySet {
	var s WeekdaySet
	for _, name := range names {
		for d := time.Sunday; d <= time.Saturday; d++ {
			if strings.EqualFold(name, d.String()) {
				s |= 1 << uint(d)
				break
			}
		}
	}
	return s
}
