package recurrence

import (
	"io"
	"log/slog"
	"time"
)

// Engine provides unified occurrence expansion over validated rules. It is
// stateless apart from an optional expansion cache and safe for concurrent
// use across independent series.
type Engine struct {
	delegate *Delegate
	cache    *Cache
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithCache attaches an expansion cache to the engine. The caller owns the
// cache lifecycle and must Close it when done.
func WithCache(c *Cache) EngineOption {
	return func(e *Engine) { e.cache = c }
}

// WithLogger sets the engine logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates a recurrence engine.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		delegate: NewDelegate(),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Occurrences expands the rule across [from, to]. The rule is validated
// first; expanding an invalid rule is a caller bug surfaced as the
// validation error.
func (e *Engine) Occurrences(r Rule, from, to time.Time) ([]time.Time, error) {
	if err := Validate(r); err != nil {
		return nil, err
	}

	if e.cache != nil {
		if occ, ok := e.cache.Get(r, from, to); ok {
			return occ, nil
		}
	}

	occ, err := e.delegate.Occurrences(r, from, to)
	if err != nil {
		return nil, err
	}

	e.logger.Debug("expanded series",
		"kind", r.Kind,
		"from", from,
		"to", to,
		"occurrences", len(occ))

	if e.cache != nil {
		e.cache.Set(r, from, to, occ)
	}
	return occ, nil
}

// CalculatedEnd resolves the effective end bound of the series, to be
// denormalized by callers via SeriesEnd.BoundaryDate when persisting.
func (e *Engine) CalculatedEnd(r Rule) (SeriesEnd, error) {
	if err := Validate(r); err != nil {
		return SeriesEnd{}, err
	}
	return e.delegate.SeriesEnd(r)
}

// HasOccurrenceInRange reports whether the series has at least one
// occurrence in [from, to] without the caller holding the full expansion.
// For wide windows it probes a 90-day prefix first; most series that hit a
// window at all hit it early.
func (e *Engine) HasOccurrenceInRange(r Rule, from, to time.Time) (bool, error) {
	probeTo := to
	if to.Sub(from) > 90*24*time.Hour {
		probeTo = from.Add(90 * 24 * time.Hour)
	}

	occ, err := e.Occurrences(r, from, probeTo)
	if err != nil {
		return false, err
	}
	if len(occ) > 0 {
		return true, nil
	}

	if probeTo.Before(to) {
		occ, err = e.Occurrences(r, probeTo, to)
		if err != nil {
			return false, err
		}
		return len(occ) > 0, nil
	}
	return false, nil
}
