// Package calendar is the workflow boundary over the recurrence engine:
// it loads rules and exceptions, invokes the pure computation, and applies
// the results back through storage. Persistence failures surface to the
// caller; the engine itself never retries.
package calendar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"

	"github.com/opencrm/calengine/cascade"
	"github.com/opencrm/calengine/overlay"
	"github.com/opencrm/calengine/recurrence"
	"github.com/opencrm/calengine/storage"
)

// Service wires the recurrence engine and exception overlay to a storage
// backend.
type Service struct {
	store    storage.Storage
	engine   *recurrence.Engine
	resolver *overlay.Resolver
	logger   *slog.Logger
}

// ServiceOption configures a Service.
type ServiceOption func(*Service)

// WithLogger sets the service logger. Logging is discarded by default.
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.logger = l }
}

// WithEngine replaces the default engine, e.g. to attach a cache.
func WithEngine(e *recurrence.Engine) ServiceOption {
	return func(s *Service) { s.engine = e }
}

// NewService creates a calendar service over the given storage.
func NewService(store storage.Storage, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.engine == nil {
		s.engine = recurrence.NewEngine()
	}
	s.resolver = overlay.NewResolver(s.engine, overlay.WithLogger(s.logger))
	return s
}

// CreateSeries validates the rule, denormalizes the series end bound and
// persists the master.
func (s *Service) CreateSeries(ctx context.Context, sr *storage.Series) error {
	end, err := s.engine.CalculatedEnd(sr.Rule)
	if err != nil {
		return err
	}
	sr.CalculatedEnd = end.BoundaryDate()

	if err := s.store.CreateSeries(ctx, sr); err != nil {
		return fmt.Errorf("create series %s: %w", sr.ID, err)
	}
	s.logger.Info("created series",
		"series_id", sr.ID,
		"kind", sr.Rule.Kind,
		"calculated_end", sr.CalculatedEnd)
	return nil
}

// EffectiveEvents returns the reconciled event list for a series across
// [from, to]: generated occurrences with the series' exceptions applied.
// A cancelled master contributes nothing.
func (s *Service) EffectiveEvents(ctx context.Context, seriesID uuid.UUID, from, to time.Time) ([]overlay.EffectiveEvent, error) {
	sr, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", seriesID, err)
	}
	if sr.Cancelled {
		return nil, nil
	}

	exceptions, err := s.store.ListExceptions(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load exceptions for series %s: %w", seriesID, err)
	}

	return s.resolver.Resolve(sr.Rule, seriesContent(sr), exceptions, from, to)
}

// UpdateSeries applies a series edit. A change to any rule field leaves
// every stored exception dangling, so they are purged synchronously before
// the update lands; stale exceptions never survive between calls. A
// content-only edit instead propagates into exceptions that have not
// diverged on the edited field.
func (s *Service) UpdateSeries(ctx context.Context, updated *storage.Series) error {
	old, err := s.store.GetSeries(ctx, updated.ID)
	if err != nil {
		return fmt.Errorf("load series %s: %w", updated.ID, err)
	}

	end, err := s.engine.CalculatedEnd(updated.Rule)
	if err != nil {
		return err
	}
	updated.CalculatedEnd = end.BoundaryDate()

	if overlay.RuleChanged(old.Rule, updated.Rule) {
		if err := s.store.DeleteSeriesExceptions(ctx, updated.ID); err != nil {
			return fmt.Errorf("purge stale exceptions for series %s: %w", updated.ID, err)
		}
		s.logger.Info("rule changed, purged exceptions", "series_id", updated.ID)
	} else {
		exceptions, err := s.store.ListExceptions(ctx, updated.ID)
		if err != nil {
			return fmt.Errorf("load exceptions for series %s: %w", updated.ID, err)
		}
		for _, ex := range overlay.PropagateContent(seriesContent(old), seriesContent(updated), exceptions) {
			if err := s.store.PutException(ctx, ex); err != nil {
				return fmt.Errorf("propagate content to exception %s: %w", ex.ID, err)
			}
		}
	}

	if err := s.store.UpdateSeries(ctx, updated); err != nil {
		return fmt.Errorf("update series %s: %w", updated.ID, err)
	}
	return nil
}

// Cascade cancels or deletes an event node and propagates the state change
// through the series' exception and attendee-copy tree, persisting each
// affected node. It returns the ids actually changed. A persistence
// failure mid-apply stops the walk and surfaces; earlier changes are
// already applied, and the returned ids say which.
func (s *Service) Cascade(ctx context.Context, seriesID, nodeID uuid.UUID, op cascade.Op) ([]uuid.UUID, error) {
	tree, err := s.loadTree(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	changes, err := tree.Cascade(nodeID, op)
	if err != nil {
		return nil, err
	}
	return s.applyChanges(ctx, changes)
}

// Reactivate flips a single cancelled node back to active. It never
// cascades.
func (s *Service) Reactivate(ctx context.Context, seriesID, nodeID uuid.UUID) ([]uuid.UUID, error) {
	tree, err := s.loadTree(ctx, seriesID)
	if err != nil {
		return nil, err
	}

	changes, err := tree.Reactivate(nodeID)
	if err != nil {
		return nil, err
	}
	return s.applyChanges(ctx, changes)
}

func (s *Service) applyChanges(ctx context.Context, changes []cascade.Change) ([]uuid.UUID, error) {
	applied := make([]uuid.UUID, 0, len(changes))
	for _, change := range changes {
		cancelled := change.NewState == cascade.StateCancelled
		if err := s.store.SetCancelled(ctx, change.NodeID, cancelled); err != nil {
			return applied, fmt.Errorf("apply state change to node %s: %w", change.NodeID, err)
		}
		applied = append(applied, change.NodeID)

		if detach, ok := change.Detach.Get(); ok {
			if err := s.store.DetachAttendee(ctx, detach.ParentID, detach.Attendee); err != nil {
				return applied, fmt.Errorf("detach attendee %q from %s: %w",
					detach.Attendee, detach.ParentID, err)
			}
		}
	}
	return applied, nil
}

// loadTree assembles the cascade arena for a series: the master, its
// exceptions, and every attendee copy hanging off either.
func (s *Service) loadTree(ctx context.Context, seriesID uuid.UUID) (*cascade.Tree, error) {
	sr, err := s.store.GetSeries(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load series %s: %w", seriesID, err)
	}
	exceptions, err := s.store.ListExceptions(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load exceptions for series %s: %w", seriesID, err)
	}
	copies, err := s.store.ListAttendeeCopies(ctx, seriesID)
	if err != nil {
		return nil, fmt.Errorf("load attendee copies for series %s: %w", seriesID, err)
	}

	tree := cascade.NewTree()
	if err := tree.Add(cascade.Node{
		ID:    sr.ID,
		Kind:  cascade.KindMaster,
		State: nodeState(sr.Cancelled),
	}); err != nil {
		return nil, err
	}
	for _, ex := range exceptions {
		if err := tree.Add(cascade.Node{
			ID:     ex.ID,
			Kind:   cascade.KindException,
			State:  nodeState(ex.Cancelled),
			Parent: mo.Some(sr.ID),
		}); err != nil {
			return nil, err
		}
	}
	for _, c := range copies {
		if err := tree.Add(cascade.Node{
			ID:       c.ID,
			Kind:     cascade.KindAttendeeCopy,
			State:    nodeState(c.Cancelled),
			Parent:   mo.Some(c.ParentID),
			Attendee: c.Attendee,
		}); err != nil {
			return nil, err
		}
	}
	return tree, nil
}

func seriesContent(sr *storage.Series) overlay.SeriesContent {
	return overlay.SeriesContent{
		Name:        sr.Name,
		Description: sr.Description,
		Attendees:   sr.Attendees,
		Duration:    sr.Duration,
	}
}

func nodeState(cancelled bool) cascade.State {
	if cancelled {
		return cascade.StateCancelled
	}
	return cascade.StateActive
}
