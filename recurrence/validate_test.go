package recurrence

import (
	"testing"
	"time"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateAcceptsWellFormedRules(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{
			name: "daily",
			rule: Rule{Kind: KindDaily, Interval: 1, Start: date(2024, 1, 1)},
		},
		{
			name: "weekly",
			rule: Rule{
				Kind: KindWeekly, Interval: 2, Start: date(2024, 1, 1),
				Weekdays: []time.Weekday{time.Monday},
			},
		},
		{
			name: "monthly",
			rule: Rule{Kind: KindMonthly, Interval: 1, Start: date(2024, 1, 1), DayOfMonth: 31},
		},
		{
			name: "monthly nth",
			rule: Rule{
				Kind: KindMonthlyNth, Interval: 3, Start: date(2024, 1, 1),
				Weekdays: []time.Weekday{time.Friday}, Ordinal: OrdinalLast,
			},
		},
		{
			name: "yearly",
			rule: Rule{
				Kind: KindYearly, Interval: 24, Start: date(2024, 1, 1),
				DayOfMonth: 29, MonthOfYear: time.February,
			},
		},
		{
			name: "yearly nth",
			rule: Rule{
				Kind: KindYearlyNth, Interval: 12, Start: date(2024, 1, 1),
				Weekdays: []time.Weekday{time.Thursday}, MonthOfYear: time.November,
				Ordinal: OrdinalFourth,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, Validate(tt.rule))
		})
	}
}

func TestValidateRejectsBadIntervals(t *testing.T) {
	tests := []struct {
		name string
		rule Rule
	}{
		{
			name: "zero interval",
			rule: Rule{Kind: KindDaily, Interval: 0, Start: date(2024, 1, 1)},
		},
		{
			name: "daily over the maximum",
			rule: Rule{Kind: KindDaily, Interval: 100, Start: date(2024, 1, 1)},
		},
		{
			name: "yearly not a multiple of twelve",
			rule: Rule{
				Kind: KindYearly, Interval: 13, Start: date(2024, 1, 1),
				DayOfMonth: 1, MonthOfYear: time.May,
			},
		},
		{
			name: "yearly over the maximum",
			rule: Rule{
				Kind: KindYearly, Interval: 1008, Start: date(2024, 1, 1),
				DayOfMonth: 1, MonthOfYear: time.May,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rule)
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, FieldInterval, fieldErr.Field)
		})
	}
}

func TestValidateReportsEveryMissingField(t *testing.T) {
	// A monthly_nth rule missing both its weekday set and its ordinal
	// gets one error per field, not a single lumped failure.
	rule := Rule{Kind: KindMonthlyNth, Interval: 1, Start: date(2024, 1, 1)}

	err := Validate(rule)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "weekdays")
	assert.Contains(t, err.Error(), "ordinal")
}

func TestValidateRequiredFieldsPerKind(t *testing.T) {
	tests := []struct {
		name  string
		rule  Rule
		field Field
	}{
		{
			name:  "weekly without weekdays",
			rule:  Rule{Kind: KindWeekly, Interval: 1, Start: date(2024, 1, 1)},
			field: FieldWeekdays,
		},
		{
			name:  "monthly without day of month",
			rule:  Rule{Kind: KindMonthly, Interval: 1, Start: date(2024, 1, 1)},
			field: FieldDayOfMonth,
		},
		{
			name: "monthly with day out of range",
			rule: Rule{
				Kind: KindMonthly, Interval: 1, Start: date(2024, 1, 1), DayOfMonth: 32,
			},
			field: FieldDayOfMonth,
		},
		{
			name: "yearly without month",
			rule: Rule{
				Kind: KindYearly, Interval: 12, Start: date(2024, 1, 1), DayOfMonth: 5,
			},
			field: FieldMonthOfYear,
		},
		{
			name: "yearly nth with bad ordinal",
			rule: Rule{
				Kind: KindYearlyNth, Interval: 12, Start: date(2024, 1, 1),
				Weekdays: []time.Weekday{time.Monday}, MonthOfYear: time.May,
				Ordinal: Ordinal(9),
			},
			field: FieldOrdinal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Validate(tt.rule)
			var fieldErr *FieldError
			require.ErrorAs(t, err, &fieldErr)
			assert.Equal(t, tt.field, fieldErr.Field)
		})
	}
}

func TestValidateMiscConstraints(t *testing.T) {
	t.Run("missing start", func(t *testing.T) {
		err := Validate(Rule{Kind: KindDaily, Interval: 1})
		var fieldErr *FieldError
		require.ErrorAs(t, err, &fieldErr)
		assert.Equal(t, FieldStart, fieldErr.Field)
	})

	t.Run("end before start", func(t *testing.T) {
		err := Validate(Rule{
			Kind: KindDaily, Interval: 1,
			Start: date(2024, 6, 1), End: mo.Some(date(2024, 1, 1)),
		})
		assert.Error(t, err)
	})

	t.Run("non-positive count", func(t *testing.T) {
		err := Validate(Rule{
			Kind: KindDaily, Interval: 1, Start: date(2024, 1, 1), Count: mo.Some(0),
		})
		assert.Error(t, err)
	})
}
