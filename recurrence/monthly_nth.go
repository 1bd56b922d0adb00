package recurrence

import "time"

// MonthlyNthStrategy repeats on the ordinal-th instance of a weekday set
// within each Interval-th month, e.g. "second Tuesday" or "last weekday".
type MonthlyNthStrategy struct{}

func (MonthlyNthStrategy) Supports(r Rule) bool { return r.Kind == KindMonthlyNth }
func (MonthlyNthStrategy) RequiredFields() []Field {
	return []Field{FieldWeekdays, FieldOrdinal}
}
func (MonthlyNthStrategy) MaxInterval() int        { return 99 }
func (MonthlyNthStrategy) IntervalMultipleOf() int { return 1 }

func (s MonthlyNthStrategy) SeriesEnd(r Rule) SeriesEnd {
	return calculatedEnd(r, s.stepper(r))
}

func (s MonthlyNthStrategy) Occurrences(r Rule, from, to time.Time) []time.Time {
	return collectOccurrences(r, s.stepper(r), from, to)
}

func (MonthlyNthStrategy) stepper(r Rule) stepper {
	loc := r.Location()
	y, m, _ := r.Start.In(loc).Date()
	i := 0
	return func() time.Time {
		for {
			first := time.Date(y, m+time.Month(i*r.Interval), 1, 0, 0, 0, 0, loc)
			i++
			day, ok := nthWeekdayOfMonth(first.Year(), first.Month(), r.Weekdays, r.Ordinal, loc)
			if !ok {
				// No matching instance this month; move on.
				continue
			}
			return withStartClock(r, first.Year(), first.Month(), day)
		}
	}
}
