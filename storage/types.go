package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/opencrm/calengine/overlay"
	"github.com/opencrm/calengine/recurrence"
)

// Error types
type ErrorType string

const (
	ErrNotFound      ErrorType = "not_found"
	ErrAlreadyExists ErrorType = "already_exists"
	ErrInvalidInput  ErrorType = "invalid_input"
)

// Error represents a storage-related error
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// Series is a persisted series master: the event owning a recurrence rule
// plus the plain content every generated occurrence inherits.
type Series struct {
	ID          uuid.UUID
	Name        string
	Description string
	Attendees   []string
	Duration    time.Duration
	Cancelled   bool

	Rule recurrence.Rule
	// CalculatedEnd is the denormalized series bound kept for external
	// range queries; unbounded series store recurrence.UnboundedDate.
	CalculatedEnd time.Time

	Created  time.Time
	Modified time.Time
}

// AttendeeCopy is the per-attendee mirror of an event. Its parent is
// either the series master or one of its exceptions; it carries its own
// response status and cancellation state.
type AttendeeCopy struct {
	ID             uuid.UUID
	SeriesID       uuid.UUID
	ParentID       uuid.UUID
	Attendee       string
	ResponseStatus string
	Cancelled      bool
}

// Storage is the interface calendar persistence backends implement.
// Exceptions are always loaded by series, never by window: an exception's
// replacement start may sit outside any window its original date is in.
type Storage interface {
	// Series operations
	GetSeries(ctx context.Context, id uuid.UUID) (*Series, error)
	CreateSeries(ctx context.Context, s *Series) error
	UpdateSeries(ctx context.Context, s *Series) error
	DeleteSeries(ctx context.Context, id uuid.UUID) error

	// Exception operations
	ListExceptions(ctx context.Context, seriesID uuid.UUID) ([]overlay.Exception, error)
	PutException(ctx context.Context, ex overlay.Exception) error
	DeleteException(ctx context.Context, id uuid.UUID) error
	DeleteSeriesExceptions(ctx context.Context, seriesID uuid.UUID) error

	// Attendee copy operations
	ListAttendeeCopies(ctx context.Context, seriesID uuid.UUID) ([]AttendeeCopy, error)
	PutAttendeeCopy(ctx context.Context, c AttendeeCopy) error

	// Cascade application. SetCancelled resolves the id against series,
	// exceptions and attendee copies; DetachAttendee removes an attendee
	// identity from a master's or exception's attendee set.
	SetCancelled(ctx context.Context, id uuid.UUID, cancelled bool) error
	DetachAttendee(ctx context.Context, parentID uuid.UUID, attendee string) error
}
