package overlay

import (
	"time"

	"github.com/google/uuid"
	"github.com/samber/mo"
)

// SeriesContent carries the plain content fields of a series master that
// every virtual occurrence inherits.
type SeriesContent struct {
	Name        string
	Description string
	Attendees   []string
	// Duration is the length of each occurrence; a generated occurrence
	// ends this long after it starts.
	Duration time.Duration
}

// Exception is a persisted override of a single occurrence, keyed by the
// series and the occurrence date it replaces. At most one exception may
// exist per original start within a series.
type Exception struct {
	ID            uuid.UUID
	SeriesID      uuid.UUID
	OriginalStart time.Time

	// Cancelled suppresses the occurrence entirely; the override fields
	// below are meaningless when set.
	Cancelled bool

	Start       time.Time
	End         time.Time
	Name        string
	Description string
	Attendees   []string
}

// EffectiveEvent is one entry of the reconciled calendar view: either a
// generated occurrence carrying the master's content, or an exception's
// override.
type EffectiveEvent struct {
	Start       time.Time
	End         time.Time
	Name        string
	Description string
	Attendees   []string

	// IsException marks entries sourced from a stored override rather
	// than generated from the rule.
	IsException   bool
	OriginalStart mo.Option[time.Time]
	ExceptionID   mo.Option[uuid.UUID]
}
