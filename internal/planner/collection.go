package planner

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// Clock supplies the current time. Injected so the new-task highlight can
// be tested without sleeping.
type Clock func() time.Time

// Collection is the in-memory source of truth for one user's non-archived
// tasks, reconciled against the remote store. Order is creation time
// descending: new tasks are prepended, fetches replace wholesale.
//
// There is deliberately no conflict detection: an update applied later
// overwrites an earlier one (last-write-wins), matching the backend's own
// row semantics.
type Collection struct {
	mu       sync.RWMutex
	tasks    []entities.Task
	newUntil map[uuid.UUID]time.Time
	now      Clock
	logger   *logger.Logger
}

// NewCollection creates an empty collection. A nil clock uses time.Now.
func NewCollection(log *logger.Logger, clock Clock) *Collection {
	if clock == nil {
		clock = time.Now
	}
	return &Collection{
		newUntil: make(map[uuid.UUID]time.Time),
		now:      clock,
		logger:   log,
	}
}

// ReplaceAll swaps in a freshly fetched task set. Colors outside the
// palette are sanitized to absent with a warning; the rest of the row is
// kept. The fetch is atomic from the caller's view: the previous set stays
// in place until the new one is ready.
func (c *Collection) ReplaceAll(tasks []entities.Task) {
	sanitized := make([]entities.Task, len(tasks))
	copy(sanitized, tasks)
	for i := range sanitized {
		if rejected := sanitized[i].SanitizeColor(); rejected != nil {
			c.logger.Warnw("Invalid task color, resetting to default",
				"task_id", sanitized[i].ID, "color", *rejected)
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = sanitized
	c.newUntil = make(map[uuid.UUID]time.Time)
}

// Prepend inserts a newly created task at the head and flags it "new" for
// the highlight duration. The flag is a local presentation timer, never
// persisted.
func (c *Collection) Prepend(t entities.Task) {
	if rejected := t.SanitizeColor(); rejected != nil {
		c.logger.Warnw("Invalid task color, resetting to default",
			"task_id", t.ID, "color", *rejected)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.tasks = append([]entities.Task{t}, c.tasks...)
	c.newUntil[t.ID] = c.now().Add(entities.NewTaskHighlight)
}

// IsNew reports whether the task is inside its highlight window.
func (c *Collection) IsNew(id uuid.UUID) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	until, ok := c.newUntil[id]
	return ok && c.now().Before(until)
}

// Apply shallow-merges a confirmed update into the local record. Only
// provided fields change. An update that archives the task removes it
// from the collection instead, so the board and pool stop showing it
// immediately.
func (c *Collection) Apply(id uuid.UUID, update ports.TaskUpdate) {
	if update.Archives() {
		c.Remove(id)
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID != id {
			continue
		}
		mergeTask(&c.tasks[i], update)
		return
	}
}

func mergeTask(t *entities.Task, update ports.TaskUpdate) {
	if update.Title != nil {
		t.Title = *update.Title
	}
	if update.Description != nil {
		t.Description = update.Description
	}
	if update.Status != nil {
		t.Status = *update.Status
	}
	if update.Schedule != nil {
		if update.Schedule.Day == nil {
			t.Unschedule()
		} else {
			t.Schedule(*update.Schedule.Day)
		}
	}
	if update.Color != nil {
		if *update.Color == "" {
			t.Color = nil
		} else {
			t.Color = entities.SanitizeTaskColor(update.Color)
		}
	}
	if update.RowIndex != nil {
		t.RowIndex = update.RowIndex
	}
	if update.Attachments != nil {
		t.Attachments = *update.Attachments
	}
	if update.Metadata != nil {
		t.Metadata = *update.Metadata
	}
}

// Remove drops the task from the collection. Unknown ids are ignored.
func (c *Collection) Remove(id uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			delete(c.newUntil, id)
			return
		}
	}
}

// Get returns a copy of the task with the given id.
func (c *Collection) Get(id uuid.UUID) (entities.Task, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for i := range c.tasks {
		if c.tasks[i].ID == id {
			return c.tasks[i], true
		}
	}
	return entities.Task{}, false
}

// Contains reports whether the task is in the collection.
func (c *Collection) Contains(id uuid.UUID) bool {
	_, ok := c.Get(id)
	return ok
}

// Tasks returns a copy of the collection in order.
func (c *Collection) Tasks() []entities.Task {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]entities.Task, len(c.tasks))
	copy(out, c.tasks)
	return out
}

// Len returns the number of tasks held.
func (c *Collection) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.tasks)
}
