package recurrence

import "time"

// Strategy is the contract every recurrence kind implements. All six
// variants are pure: they hold no state and never mutate the rule.
type Strategy interface {
	// Supports reports whether this strategy handles the rule's kind.
	Supports(r Rule) bool

	// RequiredFields lists the rule fields this kind cannot do without;
	// validation reports one error per missing field.
	RequiredFields() []Field

	// MaxInterval bounds the rule interval for this kind.
	MaxInterval() int

	// IntervalMultipleOf is the required divisor of the interval; 1 for
	// all kinds except the yearly ones, which count in multiples of 12
	// months.
	IntervalMultipleOf() int

	// SeriesEnd resolves the effective upper bound of the series.
	SeriesEnd(r Rule) SeriesEnd

	// Occurrences produces every occurrence start whose date falls in
	// [from, to] intersected with the series bounds, ascending, without
	// duplicates.
	Occurrences(r Rule, from, to time.Time) []time.Time
}
