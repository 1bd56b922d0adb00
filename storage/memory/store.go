// memory based implementation for testing and examples
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencrm/calengine/overlay"
	"github.com/opencrm/calengine/storage"
)

// Store implements storage.Storage using in-memory maps
type Store struct {
	mu         sync.RWMutex
	series     map[uuid.UUID]*storage.Series
	exceptions map[uuid.UUID]overlay.Exception
	copies     map[uuid.UUID]storage.AttendeeCopy
	// insertion order per series keeps List results deterministic
	exceptionOrder map[uuid.UUID][]uuid.UUID
	copyOrder      map[uuid.UUID][]uuid.UUID
}

// New creates a new in-memory storage
func New() *Store {
	return &Store{
		series:         make(map[uuid.UUID]*storage.Series),
		exceptions:     make(map[uuid.UUID]overlay.Exception),
		copies:         make(map[uuid.UUID]storage.AttendeeCopy),
		exceptionOrder: make(map[uuid.UUID][]uuid.UUID),
		copyOrder:      make(map[uuid.UUID][]uuid.UUID),
	}
}

// Series operations

func (s *Store) GetSeries(_ context.Context, id uuid.UUID) (*storage.Series, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sr, ok := s.series[id]
	if !ok {
		return nil, &storage.Error{Type: storage.ErrNotFound, Message: "series not found"}
	}
	// The slices must be cloned too, or callers could edit store state
	// without going through UpdateSeries.
	cp := *sr
	cp.Attendees = slices.Clone(sr.Attendees)
	cp.Rule.Weekdays = slices.Clone(sr.Rule.Weekdays)
	return &cp, nil
}

func (s *Store) CreateSeries(_ context.Context, sr *storage.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.series[sr.ID]; exists {
		return &storage.Error{Type: storage.ErrAlreadyExists, Message: "series already exists"}
	}
	cp := *sr
	now := time.Now()
	cp.Created = now
	cp.Modified = now
	s.series[sr.ID] = &cp
	return nil
}

func (s *Store) UpdateSeries(_ context.Context, sr *storage.Series) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	old, ok := s.series[sr.ID]
	if !ok {
		return &storage.Error{Type: storage.ErrNotFound, Message: "series not found"}
	}
	cp := *sr
	cp.Created = old.Created
	cp.Modified = time.Now()
	s.series[sr.ID] = &cp
	return nil
}

func (s *Store) DeleteSeries(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.series[id]; !ok {
		return &storage.Error{Type: storage.ErrNotFound, Message: "series not found"}
	}
	delete(s.series, id)
	for _, exID := range s.exceptionOrder[id] {
		delete(s.exceptions, exID)
	}
	delete(s.exceptionOrder, id)
	for _, cpID := range s.copyOrder[id] {
		delete(s.copies, cpID)
	}
	delete(s.copyOrder, id)
	return nil
}

// Exception operations

func (s *Store) ListExceptions(_ context.Context, seriesID uuid.UUID) ([]overlay.Exception, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.exceptionOrder[seriesID]
	out := make([]overlay.Exception, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.exceptions[id])
	}
	return out, nil
}

func (s *Store) PutException(_ context.Context, ex overlay.Exception) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ex.SeriesID == uuid.Nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "exception has no series link"}
	}
	if _, exists := s.exceptions[ex.ID]; !exists {
		s.exceptionOrder[ex.SeriesID] = append(s.exceptionOrder[ex.SeriesID], ex.ID)
	}
	s.exceptions[ex.ID] = ex
	return nil
}

func (s *Store) DeleteException(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	ex, ok := s.exceptions[id]
	if !ok {
		return &storage.Error{Type: storage.ErrNotFound, Message: "exception not found"}
	}
	delete(s.exceptions, id)
	s.exceptionOrder[ex.SeriesID] = slices.DeleteFunc(s.exceptionOrder[ex.SeriesID],
		func(other uuid.UUID) bool { return other == id })
	return nil
}

func (s *Store) DeleteSeriesExceptions(_ context.Context, seriesID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.exceptionOrder[seriesID] {
		delete(s.exceptions, id)
	}
	delete(s.exceptionOrder, seriesID)
	return nil
}

// Attendee copy operations

func (s *Store) ListAttendeeCopies(_ context.Context, seriesID uuid.UUID) ([]storage.AttendeeCopy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.copyOrder[seriesID]
	out := make([]storage.AttendeeCopy, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.copies[id])
	}
	return out, nil
}

func (s *Store) PutAttendeeCopy(_ context.Context, c storage.AttendeeCopy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.SeriesID == uuid.Nil {
		return &storage.Error{Type: storage.ErrInvalidInput, Message: "attendee copy has no series link"}
	}
	if _, exists := s.copies[c.ID]; !exists {
		s.copyOrder[c.SeriesID] = append(s.copyOrder[c.SeriesID], c.ID)
	}
	s.copies[c.ID] = c
	return nil
}

// Cascade application

func (s *Store) SetCancelled(_ context.Context, id uuid.UUID, cancelled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr, ok := s.series[id]; ok {
		sr.Cancelled = cancelled
		sr.Modified = time.Now()
		return nil
	}
	if ex, ok := s.exceptions[id]; ok {
		ex.Cancelled = cancelled
		s.exceptions[id] = ex
		return nil
	}
	if c, ok := s.copies[id]; ok {
		c.Cancelled = cancelled
		s.copies[id] = c
		return nil
	}
	return &storage.Error{Type: storage.ErrNotFound, Message: "event node not found"}
}

func (s *Store) DetachAttendee(_ context.Context, parentID uuid.UUID, attendee string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if sr, ok := s.series[parentID]; ok {
		sr.Attendees = removeAttendee(sr.Attendees, attendee)
		sr.Modified = time.Now()
		return nil
	}
	if ex, ok := s.exceptions[parentID]; ok {
		ex.Attendees = removeAttendee(ex.Attendees, attendee)
		s.exceptions[parentID] = ex
		return nil
	}
	return &storage.Error{Type: storage.ErrNotFound, Message: "parent event not found"}
}

func removeAttendee(attendees []string, attendee string) []string {
	return slices.DeleteFunc(slices.Clone(attendees),
		func(a string) bool { return a == attendee })
}
