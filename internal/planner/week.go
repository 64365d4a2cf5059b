package planner

import (
	"time"
)

// Week is the board cursor: an ISO week number and the Monday it starts on.
// Weeks start Monday; week 1 is the week containing the year's first
// Thursday.
type Week struct {
	Number int       `json:"week_number"`
	Start  time.Time `json:"start_date"`
}

// StartOfWeek returns the Monday of the week containing t, at day
// granularity.
func StartOfWeek(t time.Time) time.Time {
	day := truncateDay(t)
	offset := (int(day.Weekday()) + 6) % 7 // Monday = 0
	return day.AddDate(0, 0, -offset)
}

// WeekOf returns the week containing the given day.
func WeekOf(day time.Time) Week {
	start := StartOfWeek(day)
	_, number := start.ISOWeek()
	return Week{Number: number, Start: start}
}

// CurrentWeek returns the week containing now.
func CurrentWeek(now time.Time) Week {
	return WeekOf(now)
}

// Next shifts the cursor forward exactly 7 days and recomputes the week
// number from the new start. Prev(Next(w)) == w for every w.
func (w Week) Next() Week {
	return WeekOf(w.Start.AddDate(0, 0, 7))
}

// Prev shifts the cursor back exactly 7 days.
func (w Week) Prev() Week {
	return WeekOf(w.Start.AddDate(0, 0, -7))
}

// End returns the last day of the week (start + 6), inclusive.
func (w Week) End() time.Time {
	return w.Start.AddDate(0, 0, 6)
}

// Contains reports whether the day falls within [start, start+6],
// compared at day granularity: time of day is stripped before comparing.
func (w Week) Contains(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(truncateDay(w.Start)) && !d.After(truncateDay(w.End()))
}

// Days returns the seven calendar days of the week in order.
func (w Week) Days() []time.Time {
	days := make([]time.Time, 7)
	for i := range days {
		days[i] = w.Start.AddDate(0, 0, i)
	}
	return days
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
