package recurrence

import "time"

// YearlyNthStrategy repeats on the ordinal-th instance of a weekday set
// within a fixed month, every Interval/12 years.
type YearlyNthStrategy struct{}

func (YearlyNthStrategy) Supports(r Rule) bool { return r.Kind == KindYearlyNth }
func (YearlyNthStrategy) RequiredFields() []Field {
	return []Field{FieldWeekdays, FieldMonthOfYear, FieldOrdinal}
}
func (YearlyNthStrategy) MaxInterval() int        { return 999 }
func (YearlyNthStrategy) IntervalMultipleOf() int { return 12 }

func (s YearlyNthStrategy) SeriesEnd(r Rule) SeriesEnd {
	return calculatedEnd(r, s.stepper(r))
}

func (s YearlyNthStrategy) Occurrences(r Rule, from, to time.Time) []time.Time {
	return collectOccurrences(r, s.stepper(r), from, to)
}

func (YearlyNthStrategy) stepper(r Rule) stepper {
	loc := r.Location()
	y, _, _ := r.Start.In(loc).Date()
	years := r.Interval / 12
	i := 0
	return func() time.Time {
		for {
			year := y + i*years
			i++
			day, ok := nthWeekdayOfMonth(year, r.MonthOfYear, r.Weekdays, r.Ordinal, loc)
			if !ok {
				continue
			}
			return withStartClock(r, year, r.MonthOfYear, day)
		}
	}
}
