/*
calendar.go - Period calendar: business-day counting

PURPOSE:
  Counts the working days a pay period contains, given a job's excluded
  weekdays. This drives both the proration denominator for adjusted
  commission and the attendance-share denominator for pooled commission.

KEY INSIGHT:
  For an in-progress period the proration denominator must be the days
  elapsed so far, not the full period. Otherwise a payout computed on the
  3rd of the month divides a few days of attendance by a whole month of
  business days and early-period figures are artificially diluted.

CONTRACT:
  BusinessDays is inclusive of both endpoints, returns 0 (not an error)
  when start is after end, and has no side effects.
*/
package engine

// Period is the calendar window over which facts are aggregated for payout
// purposes, inclusive of both endpoints. Typically the current month.
type Period struct {
	Start Date
	End   Date
}

// MonthOf returns the calendar month containing d.
func MonthOf(d Date) Period {
	start := NewDate(d.Year(), d.Month(), 1)
	end := NewDate(d.Year(), d.Month()+1, 1).AddDays(-1)
	return Period{Start: start, End: end}
}

// Contains returns true if the date falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

func (p Period) String() string {
	return "[" + p.Start.String() + ", " + p.End.String() + "]"
}

// BusinessDays counts the days in [start, end] whose weekday is not in
// excluded. start after end yields 0.
func BusinessDays(start, end Date, excluded WeekdaySet) int {
	count := 0
	for d := start; d.BeforeOrEqual(end); d = d.AddDays(1) {
		if !excluded.Has(d.Weekday()) {
			count++
		}
	}
	return count
}

// DaysElapsed counts the business days of the period that have passed as of
// the given date. For a completed period this equals the full business-day
// count; mid-period it is the proration denominator.
func DaysElapsed(p Period, asOf Date, excluded WeekdaySet) int {
	return BusinessDays(p.Start, MinDate(p.End, asOf), excluded)
}
