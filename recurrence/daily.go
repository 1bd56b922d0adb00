package recurrence

import "time"

// DailyStrategy repeats every Interval days from the series start.
type DailyStrategy struct{}

func (DailyStrategy) Supports(r Rule) bool    { return r.Kind == KindDaily }
func (DailyStrategy) RequiredFields() []Field { return nil }
func (DailyStrategy) MaxInterval() int        { return 99 }
func (DailyStrategy) IntervalMultipleOf() int { return 1 }

func (s DailyStrategy) SeriesEnd(r Rule) SeriesEnd {
	return calculatedEnd(r, s.stepper(r))
}

func (s DailyStrategy) Occurrences(r Rule, from, to time.Time) []time.Time {
	return collectOccurrences(r, s.stepper(r), from, to)
}

func (DailyStrategy) stepper(r Rule) stepper {
	y, m, d := r.Start.In(r.Location()).Date()
	i := 0
	return func() time.Time {
		t := withStartClock(r, y, m, d+i*r.Interval)
		i++
		return t
	}
}
