package overlay

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opencrm/calengine/recurrence"
)

func dailyRule(start time.Time) recurrence.Rule {
	return recurrence.Rule{Kind: recurrence.KindDaily, Interval: 1, Start: start}
}

func testContent() SeriesContent {
	return SeriesContent{
		Name:     "Standup",
		Duration: 30 * time.Minute,
	}
}

func TestResolveWithoutExceptions(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	events, err := resolver.Resolve(dailyRule(start), testContent(), nil,
		start, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, events, 5)

	for i, ev := range events {
		assert.True(t, ev.Start.Equal(start.AddDate(0, 0, i)))
		assert.True(t, ev.End.Equal(ev.Start.Add(30*time.Minute)))
		assert.Equal(t, "Standup", ev.Name)
		assert.False(t, ev.IsException)
	}
}

func TestResolveCancelledExceptionSuppressesSlot(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	seriesID := uuid.New()

	cancelled := Exception{
		ID:            uuid.New(),
		SeriesID:      seriesID,
		OriginalStart: start.AddDate(0, 0, 2), // Jan 3
		Cancelled:     true,
	}

	events, err := resolver.Resolve(dailyRule(start), testContent(),
		[]Exception{cancelled}, start, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, events, 4)

	for _, ev := range events {
		assert.NotEqual(t, "2024-01-03", ev.Start.Format(time.DateOnly))
	}
}

func TestResolveEditedExceptionReplacesOccurrence(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	seriesID := uuid.New()

	moved := Exception{
		ID:            uuid.New(),
		SeriesID:      seriesID,
		OriginalStart: start.AddDate(0, 0, 2),                     // Jan 3 09:00
		Start:         time.Date(2024, 1, 3, 14, 0, 0, 0, time.UTC), // same day, afternoon
		End:           time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC),
		Name:          "Standup (moved)",
	}

	events, err := resolver.Resolve(dailyRule(start), testContent(),
		[]Exception{moved}, start, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	require.Len(t, events, 5)

	var override *EffectiveEvent
	for i := range events {
		if events[i].IsException {
			override = &events[i]
		}
	}
	require.NotNil(t, override)
	assert.Equal(t, "Standup (moved)", override.Name)
	assert.True(t, override.Start.Equal(moved.Start))
	orig, ok := override.OriginalStart.Get()
	require.True(t, ok)
	assert.True(t, orig.Equal(moved.OriginalStart))
	id, ok := override.ExceptionID.Get()
	require.True(t, ok)
	assert.Equal(t, moved.ID, id)

	// The virtual occurrence for Jan 3 is gone; the override replaced it.
	count := 0
	for _, ev := range events {
		if ev.Start.Format(time.DateOnly) == "2024-01-03" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestResolveOrphanExceptionMovedIntoWindow(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	seriesID := uuid.New()

	// Original occurrence sits outside the query window; the override
	// moved it inside.
	orphan := Exception{
		ID:            uuid.New(),
		SeriesID:      seriesID,
		OriginalStart: time.Date(2024, 1, 30, 9, 0, 0, 0, time.UTC),
		Start:         time.Date(2024, 1, 4, 11, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 1, 4, 12, 0, 0, 0, time.UTC),
		Name:          "Pulled forward",
	}

	events, err := resolver.Resolve(dailyRule(start), testContent(),
		[]Exception{orphan}, start, start.AddDate(0, 0, 4))
	require.NoError(t, err)
	// Five generated occurrences plus the orphan override.
	require.Len(t, events, 6)

	names := make(map[string]int)
	for _, ev := range events {
		names[ev.Name]++
	}
	assert.Equal(t, 1, names["Pulled forward"])
}

func TestResolveExceptionMovedOutOfWindow(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	movedOut := Exception{
		ID:            uuid.New(),
		SeriesID:      uuid.New(),
		OriginalStart: start.AddDate(0, 0, 2),
		Start:         time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 2, 10, 10, 0, 0, 0, time.UTC),
	}

	from, to := start, start.AddDate(0, 0, 4)
	events, err := resolver.Resolve(dailyRule(start), testContent(),
		[]Exception{movedOut}, from, to)
	require.NoError(t, err)
	// Jan 3's slot is claimed by the exception but its replacement falls
	// outside the window, so only four events remain.
	require.Len(t, events, 4)
	for _, ev := range events {
		assert.NotEqual(t, "2024-01-03", ev.Start.Format(time.DateOnly))
		assert.False(t, ev.Start.Before(from) || ev.Start.After(to),
			"event %v must lie in the queried window", ev.Start)
	}
}

func TestResolveOrderedByEffectiveStart(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	seriesID := uuid.New()

	late := Exception{
		ID:            uuid.New(),
		SeriesID:      seriesID,
		OriginalStart: start, // Jan 1 moved to Jan 2 afternoon
		Start:         time.Date(2024, 1, 2, 15, 0, 0, 0, time.UTC),
		End:           time.Date(2024, 1, 2, 16, 0, 0, 0, time.UTC),
	}

	events, err := resolver.Resolve(dailyRule(start), testContent(),
		[]Exception{late}, start, start.AddDate(0, 0, 2))
	require.NoError(t, err)
	require.Len(t, events, 3)

	for i := 1; i < len(events); i++ {
		assert.False(t, events[i].Start.Before(events[i-1].Start),
			"events must be sorted by effective start")
	}
}

func TestResolveAtMostOneEntryPerOriginalStart(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	seriesID := uuid.New()

	a := Exception{ID: uuid.New(), SeriesID: seriesID, OriginalStart: start.AddDate(0, 0, 1),
		Start: start.AddDate(0, 0, 1), End: start.AddDate(0, 0, 1)}
	b := Exception{ID: uuid.New(), SeriesID: seriesID, OriginalStart: start.AddDate(0, 0, 1),
		Start: start.AddDate(0, 0, 1), End: start.AddDate(0, 0, 1)}

	_, err := resolver.Resolve(dailyRule(start), testContent(),
		[]Exception{a, b}, start, start.AddDate(0, 0, 4))
	assert.ErrorIs(t, err, ErrDuplicateException)
}

func TestResolveRejectsInconsistentExceptions(t *testing.T) {
	resolver := NewResolver(recurrence.NewEngine())
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

	t.Run("cancelled with attendees", func(t *testing.T) {
		bad := Exception{
			ID:            uuid.New(),
			SeriesID:      uuid.New(),
			OriginalStart: start,
			Cancelled:     true,
			Attendees:     []string{"ana@example.com"},
		}
		_, err := resolver.Resolve(dailyRule(start), testContent(),
			[]Exception{bad}, start, start.AddDate(0, 0, 2))
		assert.ErrorIs(t, err, ErrInconsistentException)
	})

	t.Run("missing series link", func(t *testing.T) {
		bad := Exception{ID: uuid.New(), OriginalStart: start, Cancelled: true}
		_, err := resolver.Resolve(dailyRule(start), testContent(),
			[]Exception{bad}, start, start.AddDate(0, 0, 2))
		assert.ErrorIs(t, err, ErrInconsistentException)
	})
}
