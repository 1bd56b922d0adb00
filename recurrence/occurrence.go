package recurrence

import (
	"sort"
	"time"
)

// dateOf strips t to its calendar date as seen in loc. The result is
// normalized to UTC midnight so dates compare with Before/After/Equal
// regardless of the zones the inputs arrived in.
func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// withStartClock places the rule's wall-clock time-of-day on the given
// calendar date, in the rule's zone. Out-of-range days normalize, which is
// what the day-stepping arithmetic relies on. Because the instant is built
// from wall-clock components, a DST transition between occurrences shifts
// the UTC instant but never the local time.
func withStartClock(r Rule, y int, m time.Month, d int) time.Time {
	h, min, sec := r.Start.In(r.Location()).Clock()
	return time.Date(y, m, d, h, min, sec, 0, r.Location())
}

// stepper yields successive candidate occurrence starts of a series in
// ascending date order. Candidates may precede the series start (e.g. the
// Sunday of the start week, or a day-of-month earlier in the start month);
// consumers skip those.
type stepper func() time.Time

// collectOccurrences walks a series from its start and keeps every
// occurrence whose date falls in [from, to] intersected with the series
// bounds, all compared at date granularity in the rule's zone. When the
// rule has an explicit end it wins over Count; otherwise Count caps the
// total number of occurrences from the series start, window or not.
func collectOccurrences(r Rule, next stepper, from, to time.Time) []time.Time {
	loc := r.Location()
	startDate := dateOf(r.Start, loc)
	fromDate := dateOf(from, loc)
	toDate := dateOf(to, loc)

	countCap := -1
	if end, ok := r.End.Get(); ok {
		if endDate := dateOf(end, loc); endDate.Before(toDate) {
			toDate = endDate
		}
	} else if n, ok := r.Count.Get(); ok {
		countCap = n
	}

	var out []time.Time
	produced := 0
	for {
		t := next()
		d := dateOf(t, loc)
		if d.Before(startDate) {
			continue
		}
		produced++
		if countCap >= 0 && produced > countCap {
			return out
		}
		if d.After(toDate) {
			return out
		}
		if !d.Before(fromDate) {
			out = append(out, t)
		}
	}
}

// endByCount steps the series forward n occurrences from its start and
// returns the last one. n must be positive.
func endByCount(r Rule, next stepper, n int) time.Time {
	loc := r.Location()
	startDate := dateOf(r.Start, loc)
	var last time.Time
	for remaining := n; remaining > 0; {
		t := next()
		if dateOf(t, loc).Before(startDate) {
			continue
		}
		last = t
		remaining--
	}
	return last
}

// calculatedEnd resolves the effective series bound: the explicit end if
// set, the date of the Count-th occurrence otherwise, unbounded when the
// rule carries neither.
func calculatedEnd(r Rule, next stepper) SeriesEnd {
	if end, ok := r.End.Get(); ok {
		return BoundedEnd(end)
	}
	if n, ok := r.Count.Get(); ok {
		return BoundedEnd(endByCount(r, next, n))
	}
	return UnboundedEnd()
}

// weekdayOffsets converts a weekday set into sorted, deduplicated offsets
// from Sunday (0..6).
func weekdayOffsets(days []time.Weekday) []int {
	seen := make(map[int]bool, len(days))
	offsets := make([]int, 0, len(days))
	for _, d := range days {
		if !seen[int(d)] {
			seen[int(d)] = true
			offsets = append(offsets, int(d))
		}
	}
	sort.Ints(offsets)
	return offsets
}

// daysInMonth returns the number of days in the given month.
func daysInMonth(y int, m time.Month) int {
	// Day zero of the following month normalizes to this month's last day.
	return time.Date(y, m+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// clampDay caps a day-of-month to the last valid day of the month, so a
// rule pinned to the 31st lands on Apr 30 or Feb 28/29.
func clampDay(day, y int, m time.Month) int {
	if last := daysInMonth(y, m); day > last {
		return last
	}
	return day
}

// nthWeekdayOfMonth finds the calendar day of the ordinal-th instance of
// any weekday in days within the month. OrdinalLast searches backward from
// the month end. Ties across multiple weekdays resolve in date order. The
// second return is false only when the set selects fewer instances than
// the ordinal asks for, which cannot happen for First..Fourth with a
// non-empty set.
func nthWeekdayOfMonth(y int, m time.Month, days []time.Weekday, ord Ordinal, loc *time.Location) (int, bool) {
	match := make(map[time.Weekday]bool, len(days))
	for _, d := range days {
		match[d] = true
	}

	last := daysInMonth(y, m)
	if ord == OrdinalLast {
		for day := last; day >= 1; day-- {
			if match[time.Date(y, m, day, 0, 0, 0, 0, loc).Weekday()] {
				return day, true
			}
		}
		return 0, false
	}

	n := 0
	for day := 1; day <= last; day++ {
		if match[time.Date(y, m, day, 0, 0, 0, 0, loc).Weekday()] {
			n++
			if n == int(ord) {
				return day, true
			}
		}
	}
	return 0, false
}
