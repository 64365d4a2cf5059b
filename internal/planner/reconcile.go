package planner

import (
	"time"

	"github.com/google/uuid"
	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/ports"
)

// DropEvent is a completed drag gesture: the dragged task and where it
// landed. An empty Destination means the drop happened outside any valid
// target.
type DropEvent struct {
	TaskID uuid.UUID
	// Destination is a yyyy-MM-dd date token or ports.PoolDestination.
	Destination string
}

// ResolveDrop translates a drop event into the task update that realizes
// it. The second return is false when the event is a no-op: no
// destination, an unparseable date token, or a task that no longer exists
// in the collection (deleted by a concurrent operation). No-ops are
// silent; the board simply leaves things where they were.
func ResolveDrop(ev DropEvent, exists func(uuid.UUID) bool) (ports.TaskUpdate, bool) {
	if ev.Destination == "" {
		return ports.TaskUpdate{}, false
	}
	if exists != nil && !exists(ev.TaskID) {
		return ports.TaskUpdate{}, false
	}

	if ev.Destination == ports.PoolDestination {
		return ports.TaskUpdate{Schedule: &ports.ScheduleChange{}}, true
	}

	day, err := time.Parse(entities.DateLayout, ev.Destination)
	if err != nil {
		return ports.TaskUpdate{}, false
	}
	return ports.TaskUpdate{Schedule: &ports.ScheduleChange{Day: &day}}, true
}
