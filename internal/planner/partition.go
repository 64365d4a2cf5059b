package planner

import (
	"strings"

	"github.com/weekplan/core/internal/domain/entities"
)

// MatchesSearch reports whether the task matches a free-text query. An
// empty query matches every task. Matching is case-insensitive containment
// against the title and, when present, the description. A task without a
// description never matches on description.
func MatchesSearch(t *entities.Task, query string) bool {
	if query == "" {
		return true
	}
	q := strings.ToLower(query)
	if strings.Contains(strings.ToLower(t.Title), q) {
		return true
	}
	if t.Description != nil && strings.Contains(strings.ToLower(*t.Description), q) {
		return true
	}
	return false
}

// InWeek reports whether the task is scheduled inside the week, inclusive
// at both ends. Unscheduled tasks are never in any week.
func InWeek(t *entities.Task, w Week) bool {
	day, ok := t.Date()
	if !ok {
		return false
	}
	return w.Contains(day)
}

// BoardView is the partition of the task collection the weekly board
// renders: the current week's scheduled tasks grouped by day, plus the
// search-matched unscheduled pool.
type BoardView struct {
	Week        Week                       `json:"week"`
	Scheduled   []entities.Task            `json:"scheduled"`
	ByDay       map[string][]entities.Task `json:"by_day"`
	Unscheduled []entities.Task            `json:"unscheduled"`
}

// Partition splits the collection into this week's scheduled tasks and the
// unscheduled pool, both filtered by the search query. Input order is
// preserved.
func Partition(tasks []entities.Task, w Week, query string) BoardView {
	view := BoardView{
		Week:        w,
		Scheduled:   []entities.Task{},
		ByDay:       make(map[string][]entities.Task),
		Unscheduled: []entities.Task{},
	}

	for i := range tasks {
		t := tasks[i]
		if !MatchesSearch(&t, query) {
			continue
		}
		if !t.Scheduled() {
			view.Unscheduled = append(view.Unscheduled, t)
			continue
		}
		if InWeek(&t, w) {
			view.Scheduled = append(view.Scheduled, t)
			day := string(*t.TaskDate)
			view.ByDay[day] = append(view.ByDay[day], t)
		}
	}

	return view
}
