package recurrence

import "time"

// MonthlyStrategy repeats on a fixed day-of-month every Interval months,
// clamping to the last day of months too short for it.
type MonthlyStrategy struct{}

func (MonthlyStrategy) Supports(r Rule) bool    { return r.Kind == KindMonthly }
func (MonthlyStrategy) RequiredFields() []Field { return []Field{FieldDayOfMonth} }
func (MonthlyStrategy) MaxInterval() int        { return 99 }
func (MonthlyStrategy) IntervalMultipleOf() int { return 1 }

func (s MonthlyStrategy) SeriesEnd(r Rule) SeriesEnd {
	return calculatedEnd(r, s.stepper(r))
}

func (s MonthlyStrategy) Occurrences(r Rule, from, to time.Time) []time.Time {
	return collectOccurrences(r, s.stepper(r), from, to)
}

func (MonthlyStrategy) stepper(r Rule) stepper {
	y, m, _ := r.Start.In(r.Location()).Date()
	i := 0
	return func() time.Time {
		// First of the target month; time.Date normalizes the overflow.
		first := time.Date(y, m+time.Month(i*r.Interval), 1, 0, 0, 0, 0, r.Location())
		i++
		day := clampDay(r.DayOfMonth, first.Year(), first.Month())
		return withStartClock(r, first.Year(), first.Month(), day)
	}
}
