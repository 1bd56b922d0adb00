package overlay

import (
	"sort"
	"time"

	"github.com/samber/mo"

	"github.com/opencrm/calengine/recurrence"
)

// RuleChanged reports whether editing a series from old to updated
// invalidates its stored exceptions. Any change that reshapes the
// generated series (kind, interval, day selection, anchor, bounds, zone)
// leaves every exception's original start dangling, so the caller must
// purge them before the updated rule is expanded. Content-only edits
// return false.
func RuleChanged(old, updated recurrence.Rule) bool {
	if old.Kind != updated.Kind || old.Interval != updated.Interval {
		return true
	}
	if !old.Start.Equal(updated.Start) {
		return true
	}
	if old.Start.Location().String() != updated.Start.Location().String() {
		return true
	}
	if !timeOptionEqual(old.End, updated.End) {
		return true
	}
	oldN, oldOK := old.Count.Get()
	newN, newOK := updated.Count.Get()
	if oldOK != newOK || oldN != newN {
		return true
	}
	if !weekdaySetEqual(old.Weekdays, updated.Weekdays) {
		return true
	}
	return old.DayOfMonth != updated.DayOfMonth ||
		old.MonthOfYear != updated.MonthOfYear ||
		old.Ordinal != updated.Ordinal
}

// PropagateContent pushes a content-only series edit into exceptions that
// have not themselves overridden the edited field. An exception whose name
// or description already diverged from the old master keeps its own value.
// The input slice is not modified.
func PropagateContent(old, updated SeriesContent, exceptions []Exception) []Exception {
	out := make([]Exception, len(exceptions))
	for i, ex := range exceptions {
		if ex.Name == old.Name {
			ex.Name = updated.Name
		}
		if ex.Description == old.Description {
			ex.Description = updated.Description
		}
		out[i] = ex
	}
	return out
}

func timeOptionEqual(a, b mo.Option[time.Time]) bool {
	at, aOK := a.Get()
	bt, bOK := b.Get()
	if aOK != bOK {
		return false
	}
	return !aOK || at.Equal(bt)
}

func weekdaySetEqual(a, b []time.Weekday) bool {
	norm := func(days []time.Weekday) []int {
		seen := make(map[int]bool, len(days))
		out := make([]int, 0, len(days))
		for _, d := range days {
			if !seen[int(d)] {
				seen[int(d)] = true
				out = append(out, int(d))
			}
		}
		sort.Ints(out)
		return out
	}
	na, nb := norm(a), norm(b)
	if len(na) != len(nb) {
		return false
	}
	for i := range na {
		if na[i] != nb[i] {
			return false
		}
	}
	return true
}
