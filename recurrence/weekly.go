package recurrence

import "time"

// WeeklyStrategy repeats every Interval weeks; each configured weekday
// within an included week is its own occurrence. Weeks run Sunday through
// Saturday, anchored at the week containing the series start.
type WeeklyStrategy struct{}

func (WeeklyStrategy) Supports(r Rule) bool    { return r.Kind == KindWeekly }
func (WeeklyStrategy) RequiredFields() []Field { return []Field{FieldWeekdays} }
func (WeeklyStrategy) MaxInterval() int        { return 99 }
func (WeeklyStrategy) IntervalMultipleOf() int { return 1 }

func (s WeeklyStrategy) SeriesEnd(r Rule) SeriesEnd {
	return calculatedEnd(r, s.stepper(r))
}

func (s WeeklyStrategy) Occurrences(r Rule, from, to time.Time) []time.Time {
	return collectOccurrences(r, s.stepper(r), from, to)
}

func (WeeklyStrategy) stepper(r Rule) stepper {
	start := r.Start.In(r.Location())
	y, m, d := start.Date()
	// Sunday of the week containing the series start anchors week zero.
	anchor := d - int(start.Weekday())
	offsets := weekdayOffsets(r.Weekdays)

	week, idx := 0, 0
	return func() time.Time {
		if idx >= len(offsets) {
			idx = 0
			week++
		}
		t := withStartClock(r, y, m, anchor+week*7*r.Interval+offsets[idx])
		idx++
		return t
	}
}
