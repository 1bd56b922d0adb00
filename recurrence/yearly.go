package recurrence

import "time"

// YearlyStrategy repeats on a fixed day of a fixed month every Interval/12
// years, clamping the day like MonthlyStrategy (Feb 29 falls back to
// Feb 28 outside leap years).
type YearlyStrategy struct{}

func (YearlyStrategy) Supports(r Rule) bool { return r.Kind == KindYearly }
func (YearlyStrategy) RequiredFields() []Field {
	return []Field{FieldDayOfMonth, FieldMonthOfYear}
}
func (YearlyStrategy) MaxInterval() int        { return 999 }
func (YearlyStrategy) IntervalMultipleOf() int { return 12 }

func (s YearlyStrategy) SeriesEnd(r Rule) SeriesEnd {
	return calculatedEnd(r, s.stepper(r))
}

func (s YearlyStrategy) Occurrences(r Rule, from, to time.Time) []time.Time {
	return collectOccurrences(r, s.stepper(r), from, to)
}

func (YearlyStrategy) stepper(r Rule) stepper {
	y, _, _ := r.Start.In(r.Location()).Date()
	years := r.Interval / 12
	i := 0
	return func() time.Time {
		year := y + i*years
		i++
		day := clampDay(r.DayOfMonth, year, r.MonthOfYear)
		return withStartClock(r, year, r.MonthOfYear, day)
	}
}
