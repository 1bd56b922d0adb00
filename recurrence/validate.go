package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// FieldError reports a single invalid or missing rule field.
type FieldError struct {
	Field   Field
	Message string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("recurrence: field %s: %s", e.Field, e.Message)
}

func fieldErr(f Field, format string, args ...any) error {
	return &FieldError{Field: f, Message: fmt.Sprintf(format, args...)}
}

// Validate checks a rule against the requirements of its kind and returns
// every violation joined together, one error per offending field. A nil
// result means the rule is safe to expand.
func Validate(r Rule) error {
	s, err := NewDelegate().strategyFor(r)
	if err != nil {
		return err
	}

	var errs []error

	if r.Start.IsZero() {
		errs = append(errs, fieldErr(FieldStart, "start time is required"))
	}

	switch {
	case r.Interval < 1:
		errs = append(errs, fieldErr(FieldInterval, "must be positive, got %d", r.Interval))
	case r.Interval > s.MaxInterval():
		errs = append(errs, fieldErr(FieldInterval, "must not exceed %d for kind %s, got %d",
			s.MaxInterval(), r.Kind, r.Interval))
	case r.Interval%s.IntervalMultipleOf() != 0:
		errs = append(errs, fieldErr(FieldInterval, "must be a multiple of %d for kind %s, got %d",
			s.IntervalMultipleOf(), r.Kind, r.Interval))
	}

	for _, f := range s.RequiredFields() {
		if err := checkRequired(r, f); err != nil {
			errs = append(errs, err)
		}
	}

	if n, ok := r.Count.Get(); ok && n < 1 {
		errs = append(errs, fieldErr(FieldCount, "occurrence count must be positive, got %d", n))
	}
	if end, ok := r.End.Get(); ok && !r.Start.IsZero() {
		if dateOf(end, r.Location()).Before(dateOf(r.Start, r.Location())) {
			errs = append(errs, fieldErr(FieldEnd, "end date %s precedes start date",
				end.Format(time.DateOnly)))
		}
	}

	return errors.Join(errs...)
}

func checkRequired(r Rule, f Field) error {
	switch f {
	case FieldWeekdays:
		if len(r.Weekdays) == 0 {
			return fieldErr(f, "at least one weekday is required for kind %s", r.Kind)
		}
		for _, d := range r.Weekdays {
			if d < time.Sunday || d > time.Saturday {
				return fieldErr(f, "invalid weekday %d", d)
			}
		}
	case FieldDayOfMonth:
		if r.DayOfMonth < 1 || r.DayOfMonth > 31 {
			return fieldErr(f, "must be 1..31, got %d", r.DayOfMonth)
		}
	case FieldMonthOfYear:
		if r.MonthOfYear < time.January || r.MonthOfYear > time.December {
			return fieldErr(f, "must be 1..12, got %d", int(r.MonthOfYear))
		}
	case FieldOrdinal:
		switch r.Ordinal {
		case OrdinalFirst, OrdinalSecond, OrdinalThird, OrdinalFourth, OrdinalLast:
		default:
			return fieldErr(f, "invalid ordinal instance %d", r.Ordinal)
		}
	}
	return nil
}
