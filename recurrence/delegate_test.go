package recurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDelegateSupports(t *testing.T) {
	d := NewDelegate()

	for _, kind := range []Kind{
		KindDaily, KindWeekly, KindMonthly, KindMonthlyNth, KindYearly, KindYearlyNth,
	} {
		assert.True(t, d.Supports(Rule{Kind: kind}), "kind %s", kind)
	}
	assert.False(t, d.Supports(Rule{Kind: "hourly"}))
}

func TestDelegateForwardsToMatchingStrategy(t *testing.T) {
	d := NewDelegate()
	rule := Rule{
		Kind:       KindMonthly,
		Interval:   1,
		Start:      date(2016, 1, 1),
		DayOfMonth: 31,
	}

	occ, err := d.Occurrences(rule, date(2016, 1, 1), date(2016, 3, 1))
	require.NoError(t, err)
	assert.Equal(t, []string{"2016-01-31", "2016-02-29"}, dates(occ))

	fields, err := d.RequiredFields(rule)
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldDayOfMonth}, fields)
}

func TestDelegateRejectsUnknownKind(t *testing.T) {
	d := NewDelegate()
	rule := Rule{Kind: "hourly", Interval: 1, Start: date(2024, 1, 1)}

	_, err := d.Occurrences(rule, date(2024, 1, 1), date(2024, 1, 2))
	require.ErrorIs(t, err, ErrUnsupportedKind)
	assert.Contains(t, err.Error(), "hourly")

	_, err = d.SeriesEnd(rule)
	assert.ErrorIs(t, err, ErrUnsupportedKind)

	_, err = d.RequiredFields(rule)
	assert.ErrorIs(t, err, ErrUnsupportedKind)
}

func TestSeriesEndZeroValueIsUnbounded(t *testing.T) {
	var end SeriesEnd
	assert.True(t, end.Unbounded())
	assert.True(t, end.BoundaryDate().Equal(time.Date(9999, time.December, 31, 0, 0, 0, 0, time.UTC)))
}
