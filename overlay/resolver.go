package overlay

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/opencrm/calengine/recurrence"
)

var (
	// ErrDuplicateException means two exceptions claim the same original
	// occurrence of one series.
	ErrDuplicateException = errors.New("overlay: duplicate exception for original start")

	// ErrInconsistentException means an exception's fields contradict each
	// other, e.g. a cancelled override still carrying attendees. The
	// resolver reports it and never attempts repair.
	ErrInconsistentException = errors.New("overlay: inconsistent exception state")
)

// Resolver merges generated occurrences with stored exceptions into the
// effective event list. It is a pure transform over its inputs; the only
// state it holds is the engine and a logger.
type Resolver struct {
	engine *recurrence.Engine
	logger *slog.Logger
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithLogger sets the resolver logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) ResolverOption {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver backed by the given engine.
func NewResolver(engine *recurrence.Engine, opts ...ResolverOption) *Resolver {
	r := &Resolver{
		engine: engine,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve expands the rule across [from, to] and overlays the series'
// exceptions. Exceptions must be the full set for the series, not a
// windowed subset: an exception may move an occurrence into the window
// from outside it, or out of the window entirely.
//
// Each original start contributes at most one entry; cancelled exceptions
// suppress their slot. Output is ordered by effective start, input order
// preserved on ties.
func (r *Resolver) Resolve(rule recurrence.Rule, content SeriesContent, exceptions []Exception, from, to time.Time) ([]EffectiveEvent, error) {
	loc := rule.Location()

	byDate := make(map[string]Exception, len(exceptions))
	for _, ex := range exceptions {
		if err := checkException(ex); err != nil {
			return nil, err
		}
		key := dateKey(ex.OriginalStart, loc)
		if _, dup := byDate[key]; dup {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateException, key)
		}
		byDate[key] = ex
	}

	occurrences, err := r.engine.Occurrences(rule, from, to)
	if err != nil {
		return nil, err
	}

	fromDate := dateOf(from, loc)
	toDate := dateOf(to, loc)
	inWindow := func(t time.Time) bool {
		d := dateOf(t, loc)
		return !d.Before(fromDate) && !d.After(toDate)
	}

	used := make(map[string]bool, len(byDate))
	events := make([]EffectiveEvent, 0, len(occurrences))
	for _, occ := range occurrences {
		key := dateKey(occ, loc)
		ex, overridden := byDate[key]
		if !overridden {
			events = append(events, EffectiveEvent{
				Start:       occ,
				End:         occ.Add(content.Duration),
				Name:        content.Name,
				Description: content.Description,
				Attendees:   content.Attendees,
			})
			continue
		}
		used[key] = true
		if ex.Cancelled {
			continue
		}
		// The override may have moved the occurrence out of the window.
		if !inWindow(ex.Start) {
			continue
		}
		events = append(events, overrideEvent(ex))
	}

	// An exception whose original date fell outside the generated set may
	// still have moved its occurrence into the window; surface it once.
	for _, ex := range exceptions {
		if used[dateKey(ex.OriginalStart, loc)] || ex.Cancelled {
			continue
		}
		if !inWindow(ex.Start) {
			continue
		}
		events = append(events, overrideEvent(ex))
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
	for i := 1; i < len(events); i++ {
		if events[i].Start.Equal(events[i-1].Start) {
			r.logger.Warn("effective events share a start time",
				"start", events[i].Start,
				"series_kind", rule.Kind)
		}
	}

	return events, nil
}

func overrideEvent(ex Exception) EffectiveEvent {
	return EffectiveEvent{
		Start:         ex.Start,
		End:           ex.End,
		Name:          ex.Name,
		Description:   ex.Description,
		Attendees:     ex.Attendees,
		IsException:   true,
		OriginalStart: mo.Some(ex.OriginalStart),
		ExceptionID:   mo.Some(ex.ID),
	}
}

func checkException(ex Exception) error {
	if ex.Cancelled && len(ex.Attendees) > 0 {
		return fmt.Errorf("%w: exception %s is cancelled but carries %d attendees",
			ErrInconsistentException, ex.ID, len(ex.Attendees))
	}
	if ex.SeriesID == uuid.Nil {
		return fmt.Errorf("%w: exception %s has no series link", ErrInconsistentException, ex.ID)
	}
	return nil
}

func dateKey(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(time.DateOnly)
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
