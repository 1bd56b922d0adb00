package recurrence

import (
	"time"

	"github.com/samber/mo"
)

// Kind identifies one of the supported recurrence patterns. The set is
// closed: callers never register additional kinds.
type Kind string

const (
	KindDaily      Kind = "daily"
	KindWeekly     Kind = "weekly"
	KindMonthly    Kind = "monthly"
	KindMonthlyNth Kind = "monthly_nth"
	KindYearly     Kind = "yearly"
	KindYearlyNth  Kind = "yearly_nth"
)

// Ordinal selects which instance of a weekday within a month (or within a
// month of a year) an occurrence falls on.
type Ordinal int

const (
	OrdinalFirst  Ordinal = 1
	OrdinalSecond Ordinal = 2
	OrdinalThird  Ordinal = 3
	OrdinalFourth Ordinal = 4
	// OrdinalLast searches backward from the end of the month.
	OrdinalLast Ordinal = -1
)

// Field names a rule property for validation reporting.
type Field string

const (
	FieldKind        Field = "kind"
	FieldInterval    Field = "interval"
	FieldStart       Field = "start"
	FieldEnd         Field = "end"
	FieldCount       Field = "count"
	FieldWeekdays    Field = "weekdays"
	FieldDayOfMonth  Field = "dayOfMonth"
	FieldMonthOfYear Field = "monthOfYear"
	FieldOrdinal     Field = "ordinal"
)

// Rule describes one recurring series. It is an immutable value snapshot;
// the engine never mutates it, so a Rule may be shared across goroutines.
//
// Start anchors all arithmetic: its location is the series time zone and
// its wall-clock time-of-day is carried onto every generated occurrence.
type Rule struct {
	Kind     Kind
	Interval int
	Start    time.Time

	// End is the inclusive last date of the series. When both End and
	// Count are present, End drives generation; Count remains declared
	// intent only.
	End   mo.Option[time.Time]
	Count mo.Option[int]

	// Weekdays applies to weekly, monthly_nth and yearly_nth rules.
	Weekdays []time.Weekday
	// DayOfMonth applies to monthly and yearly rules; values past the end
	// of a month clamp to its last day.
	DayOfMonth int
	// MonthOfYear applies to yearly and yearly_nth rules.
	MonthOfYear time.Month
	// Ordinal applies to monthly_nth and yearly_nth rules.
	Ordinal Ordinal
}

// Location returns the time zone all series arithmetic runs in.
func (r Rule) Location() *time.Location {
	return r.Start.Location()
}

// UnboundedDate is the fixed far-future date representing "no end" at
// serialization and persistence boundaries. Inside the engine an unbounded
// series is an explicit SeriesEnd variant, never this constant, so date
// arithmetic can't silently overflow around it.
var UnboundedDate = time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)

// SeriesEnd is the effective upper bound of a series: either a concrete
// inclusive date or unbounded.
type SeriesEnd struct {
	at mo.Option[time.Time]
}

// BoundedEnd returns a SeriesEnd terminating at t (inclusive).
func BoundedEnd(t time.Time) SeriesEnd {
	return SeriesEnd{at: mo.Some(t)}
}

// UnboundedEnd returns the SeriesEnd of a series with no end date.
func UnboundedEnd() SeriesEnd {
	return SeriesEnd{}
}

// Bounded reports the concrete end date, if any.
func (e SeriesEnd) Bounded() (time.Time, bool) {
	return e.at.Get()
}

// Unbounded reports whether the series never ends.
func (e SeriesEnd) Unbounded() bool {
	return e.at.IsAbsent()
}

// BoundaryDate flattens the end for persistence: the concrete end date, or
// UnboundedDate for an unbounded series. External consumers compare against
// the constant; the engine itself never does.
func (e SeriesEnd) BoundaryDate() time.Time {
	return e.at.OrElse(UnboundedDate)
}
