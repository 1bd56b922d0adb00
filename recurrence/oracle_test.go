package recurrence

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/teambition/rrule-go"
)

// These tests cross-check the strategies against an independent RFC 5545
// implementation on the patterns both can express.

func rruleBetween(t *testing.T, start time.Time, rule string, from, to time.Time) []string {
	t.Helper()

	set, err := rrule.StrToRRuleSet(fmt.Sprintf("DTSTART:%s\nRRULE:%s",
		start.UTC().Format("20060102T150405Z"), rule))
	require.NoError(t, err)

	var out []string
	for _, occ := range set.Between(from, to, true) {
		out = append(out, occ.UTC().Format(time.RFC3339))
	}
	return out
}

func instants(occurrences []time.Time) []string {
	var out []string
	for _, occ := range occurrences {
		out = append(out, occ.UTC().Format(time.RFC3339))
	}
	return out
}

func TestDailyMatchesRRule(t *testing.T) {
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	rule := Rule{Kind: KindDaily, Interval: 2, Start: start}

	from := date(2024, 1, 1)
	to := time.Date(2024, 1, 31, 23, 59, 59, 0, time.UTC)

	mine := DailyStrategy{}.Occurrences(rule, from, to)
	expected := rruleBetween(t, start, "FREQ=DAILY;INTERVAL=2", from, to)
	require.Equal(t, expected, instants(mine))
}

func TestWeeklyMatchesRRule(t *testing.T) {
	start := time.Date(2024, 1, 2, 8, 0, 0, 0, time.UTC) // a Tuesday
	rule := Rule{
		Kind: KindWeekly, Interval: 1, Start: start,
		Weekdays: []time.Weekday{time.Tuesday},
	}

	from := date(2024, 1, 1)
	to := time.Date(2024, 3, 31, 23, 59, 59, 0, time.UTC)

	mine := WeeklyStrategy{}.Occurrences(rule, from, to)
	expected := rruleBetween(t, start, "FREQ=WEEKLY;BYDAY=TU", from, to)
	require.Equal(t, expected, instants(mine))
}

func TestMonthlyMatchesRRule(t *testing.T) {
	start := time.Date(2024, 1, 15, 10, 0, 0, 0, time.UTC)
	rule := Rule{Kind: KindMonthly, Interval: 1, Start: start, DayOfMonth: 15}

	from := date(2024, 1, 1)
	to := time.Date(2024, 12, 31, 23, 59, 59, 0, time.UTC)

	mine := MonthlyStrategy{}.Occurrences(rule, from, to)
	expected := rruleBetween(t, start, "FREQ=MONTHLY", from, to)
	require.Equal(t, expected, instants(mine))
}

func TestYearlyMatchesRRule(t *testing.T) {
	start := time.Date(2020, 5, 10, 12, 0, 0, 0, time.UTC)
	rule := Rule{
		Kind: KindYearly, Interval: 12, Start: start,
		DayOfMonth: 10, MonthOfYear: time.May,
	}

	from := date(2020, 1, 1)
	to := time.Date(2026, 12, 31, 23, 59, 59, 0, time.UTC)

	mine := YearlyStrategy{}.Occurrences(rule, from, to)
	expected := rruleBetween(t, start, "FREQ=YEARLY", from, to)
	require.Equal(t, expected, instants(mine))
}
