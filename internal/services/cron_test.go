package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCron_RejectsBadExpressions(t *testing.T) {
	cases := []string{
		"",
		"0 6 * *",
		"0 6 * * * *",
		"60 * * * *",
		"* 24 * * *",
		"*/0 * * * *",
		"5-2 * * * *",
		"abc * * * *",
	}

	for _, expr := range cases {
		t.Run(expr, func(t *testing.T) {
			_, err := ParseCron(expr)
			assert.Error(t, err)
		})
	}
}

func TestCronNextRun_DailyAtSix(t *testing.T) {
	expr, err := ParseCron("0 6 * * *")
	require.NoError(t, err)

	after := time.Date(2025, 3, 10, 4, 30, 0, 0, time.UTC)
	next := expr.NextRun(after)
	assert.Equal(t, time.Date(2025, 3, 10, 6, 0, 0, 0, time.UTC), next)

	// Already past six: rolls to the next day.
	after = time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC)
	next = expr.NextRun(after)
	assert.Equal(t, time.Date(2025, 3, 11, 6, 0, 0, 0, time.UTC), next)
}

func TestCronNextRun_StrictlyAfter(t *testing.T) {
	expr, err := ParseCron("0 3 * * *")
	require.NoError(t, err)

	exactly := time.Date(2025, 3, 10, 3, 0, 0, 0, time.UTC)
	next := expr.NextRun(exactly)
	assert.Equal(t, time.Date(2025, 3, 11, 3, 0, 0, 0, time.UTC), next)
}

func TestCronNextRun_Steps(t *testing.T) {
	expr, err := ParseCron("*/15 * * * *")
	require.NoError(t, err)

	after := time.Date(2025, 3, 10, 10, 7, 0, 0, time.UTC)
	next := expr.NextRun(after)
	assert.Equal(t, time.Date(2025, 3, 10, 10, 15, 0, 0, time.UTC), next)
}

func TestCronNextRun_DayOfWeek(t *testing.T) {
	// Sundays at midnight, written with the day-7 alias.
	expr, err := ParseCron("0 0 * * 7")
	require.NoError(t, err)

	// 2025-03-10 is a Monday; next Sunday is the 16th.
	after := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	next := expr.NextRun(after)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, time.UTC), next)
	assert.Equal(t, time.Sunday, next.Weekday())
}

func TestCronNextRun_RangesAndLists(t *testing.T) {
	expr, err := ParseCron("0 9-17 * * 1,3,5")
	require.NoError(t, err)

	// Wednesday 2025-03-12 at 18:30 → Friday 09:00.
	after := time.Date(2025, 3, 12, 18, 30, 0, 0, time.UTC)
	next := expr.NextRun(after)
	assert.Equal(t, time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC), next)
}
