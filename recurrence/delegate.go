package recurrence

import (
	"errors"
	"fmt"
	"time"
)

// ErrUnsupportedKind is returned when no strategy handles a rule's kind.
// This is a configuration fault, never silently skipped.
var ErrUnsupportedKind = errors.New("recurrence: unsupported recurrence kind")

// Delegate fronts the closed set of strategies so callers work with a Rule
// value without knowing its concrete kind. Every operation forwards to the
// first strategy whose Supports matches.
type Delegate struct {
	strategies []Strategy
}

// NewDelegate returns a delegate holding all six recurrence strategies.
func NewDelegate() *Delegate {
	return &Delegate{
		strategies: []Strategy{
			DailyStrategy{},
			WeeklyStrategy{},
			MonthlyStrategy{},
			MonthlyNthStrategy{},
			YearlyStrategy{},
			YearlyNthStrategy{},
		},
	}
}

// Supports reports whether any held strategy handles the rule.
func (d *Delegate) Supports(r Rule) bool {
	for _, s := range d.strategies {
		if s.Supports(r) {
			return true
		}
	}
	return false
}

func (d *Delegate) strategyFor(r Rule) (Strategy, error) {
	for _, s := range d.strategies {
		if s.Supports(r) {
			return s, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrUnsupportedKind, r.Kind)
}

// Occurrences forwards to the strategy matching the rule's kind.
func (d *Delegate) Occurrences(r Rule, from, to time.Time) ([]time.Time, error) {
	s, err := d.strategyFor(r)
	if err != nil {
		return nil, err
	}
	return s.Occurrences(r, from, to), nil
}

// SeriesEnd forwards to the strategy matching the rule's kind.
func (d *Delegate) SeriesEnd(r Rule) (SeriesEnd, error) {
	s, err := d.strategyFor(r)
	if err != nil {
		return SeriesEnd{}, err
	}
	return s.SeriesEnd(r), nil
}

// RequiredFields forwards to the strategy matching the rule's kind.
func (d *Delegate) RequiredFields(r Rule) ([]Field, error) {
	s, err := d.strategyFor(r)
	if err != nil {
		return nil, err
	}
	return s.RequiredFields(), nil
}
