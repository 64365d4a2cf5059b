package planner

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestStartOfWeek_AlwaysMonday(t *testing.T) {
	// 2026-08-31 is a Monday.
	monday := date(2026, 8, 31)

	for i := 0; i < 7; i++ {
		day := monday.AddDate(0, 0, i)
		got := StartOfWeek(day)
		assert.Equal(t, monday, got, "day %s should map to Monday", day.Weekday())
	}
}

func TestStartOfWeek_StripsTimeOfDay(t *testing.T) {
	late := time.Date(2026, 9, 2, 23, 59, 59, 0, time.UTC)
	assert.Equal(t, date(2026, 8, 31), StartOfWeek(late))
}

func TestWeekOf_Number(t *testing.T) {
	w := WeekOf(date(2026, 1, 1))
	assert.Equal(t, 1, w.Number)
	// Week 1 of 2026 starts Monday 2025-12-29.
	assert.Equal(t, date(2025, 12, 29), w.Start)
}

func TestWeek_NextPrev_RoundTrip(t *testing.T) {
	w := WeekOf(date(2026, 8, 31))

	next := w.Next()
	assert.Equal(t, w.Start.AddDate(0, 0, 7), next.Start)
	assert.Equal(t, w, next.Prev())
}

func TestWeek_NextPrev_YearBoundary(t *testing.T) {
	// Week 53 of 2026 starts Monday 2026-12-28.
	w := WeekOf(date(2026, 12, 28))
	require.Equal(t, 53, w.Number)

	next := w.Next()
	assert.Equal(t, 1, next.Number)
	assert.Equal(t, date(2027, 1, 4), next.Start)
	assert.Equal(t, w, next.Prev())
}

func TestWeek_Contains_InclusiveBounds(t *testing.T) {
	w := WeekOf(date(2026, 8, 31))

	assert.True(t, w.Contains(w.Start))
	assert.True(t, w.Contains(w.End()))
	assert.False(t, w.Contains(w.Start.AddDate(0, 0, -1)))
	assert.False(t, w.Contains(w.End().AddDate(0, 0, 1)))
}

func TestWeek_Contains_IgnoresTimeOfDay(t *testing.T) {
	w := WeekOf(date(2026, 8, 31))
	endOfSunday := time.Date(2026, 9, 6, 23, 59, 0, 0, time.UTC)

	assert.True(t, w.Contains(endOfSunday))
}

func TestWeek_Days(t *testing.T) {
	w := WeekOf(date(2026, 8, 31))
	days := w.Days()

	require.Len(t, days, 7)
	assert.Equal(t, w.Start, days[0])
	assert.Equal(t, w.End(), days[6])
	for i, d := range days {
		assert.Equal(t, w.Start.AddDate(0, 0, i), d)
	}
}
