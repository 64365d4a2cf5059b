package planner

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// fakeClock is a settable clock for highlight-window tests.
type fakeClock struct {
	now time.Time
}

func (f *fakeClock) Now() time.Time { return f.now }

func (f *fakeClock) Advance(d time.Duration) { f.now = f.now.Add(d) }

func newTestCollection() (*Collection, *fakeClock) {
	clock := &fakeClock{now: time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)}
	return NewCollection(logger.NewNop(), clock.Now), clock
}

func TestCollection_Prepend_HeadInsert(t *testing.T) {
	coll, _ := newTestCollection()

	first := pooledTask("first")
	second := pooledTask("second")
	coll.Prepend(first)
	coll.Prepend(second)

	tasks := coll.Tasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, second.ID, tasks[0].ID)
	assert.Equal(t, first.ID, tasks[1].ID)
}

func TestCollection_NewHighlight_Expires(t *testing.T) {
	coll, clock := newTestCollection()

	task := pooledTask("fresh")
	coll.Prepend(task)

	assert.True(t, coll.IsNew(task.ID))

	clock.Advance(entities.NewTaskHighlight - time.Millisecond)
	assert.True(t, coll.IsNew(task.ID))

	clock.Advance(2 * time.Millisecond)
	assert.False(t, coll.IsNew(task.ID))
}

func TestCollection_ReplaceAll_ClearsHighlights(t *testing.T) {
	coll, _ := newTestCollection()
	task := pooledTask("fresh")
	coll.Prepend(task)

	coll.ReplaceAll([]entities.Task{task})

	assert.False(t, coll.IsNew(task.ID))
	assert.Equal(t, 1, coll.Len())
}

func TestCollection_ReplaceAll_SanitizesColors(t *testing.T) {
	coll, _ := newTestCollection()

	bad := "not-a-color"
	good := "#D5E6FF"
	tainted := pooledTask("tainted")
	tainted.Color = &bad
	fine := pooledTask("fine")
	fine.Color = &good

	coll.ReplaceAll([]entities.Task{tainted, fine})

	got, ok := coll.Get(tainted.ID)
	require.True(t, ok)
	assert.Nil(t, got.Color)

	got, ok = coll.Get(fine.ID)
	require.True(t, ok)
	require.NotNil(t, got.Color)
	assert.Equal(t, good, *got.Color)
}

func TestCollection_Apply_ShallowMerge(t *testing.T) {
	coll, _ := newTestCollection()

	desc := "original description"
	task := pooledTask("original")
	task.Description = &desc
	coll.Prepend(task)

	newTitle := "renamed"
	coll.Apply(task.ID, ports.TaskUpdate{Title: &newTitle})

	got, ok := coll.Get(task.ID)
	require.True(t, ok)
	assert.Equal(t, "renamed", got.Title)
	require.NotNil(t, got.Description)
	assert.Equal(t, desc, *got.Description)
}

func TestCollection_Apply_ScheduleAndUnschedule(t *testing.T) {
	coll, _ := newTestCollection()
	task := pooledTask("mover")
	coll.Prepend(task)

	day := date(2026, 9, 2)
	coll.Apply(task.ID, ports.TaskUpdate{Schedule: &ports.ScheduleChange{Day: &day}})

	got, _ := coll.Get(task.ID)
	require.NotNil(t, got.TaskDate)
	assert.Equal(t, entities.Date("2026-09-02"), *got.TaskDate)
	assert.True(t, got.DerivedFieldsConsistent())

	coll.Apply(task.ID, ports.TaskUpdate{Schedule: &ports.ScheduleChange{}})

	got, _ = coll.Get(task.ID)
	assert.False(t, got.Scheduled())
	assert.True(t, got.DerivedFieldsConsistent())
}

func TestCollection_Apply_ArchiveRemoves(t *testing.T) {
	coll, _ := newTestCollection()
	task := pooledTask("done with this")
	coll.Prepend(task)

	archived := entities.TaskStatusArchived
	coll.Apply(task.ID, ports.TaskUpdate{Status: &archived})

	assert.False(t, coll.Contains(task.ID))
	assert.Equal(t, 0, coll.Len())
}

func TestCollection_Apply_ClearColor(t *testing.T) {
	coll, _ := newTestCollection()
	color := "#FFD5D5"
	task := pooledTask("red")
	task.Color = &color
	coll.Prepend(task)

	empty := ""
	coll.Apply(task.ID, ports.TaskUpdate{Color: &empty})

	got, _ := coll.Get(task.ID)
	assert.Nil(t, got.Color)
}

func TestCollection_Apply_UnknownIDIsNoop(t *testing.T) {
	coll, _ := newTestCollection()
	task := pooledTask("stays")
	coll.Prepend(task)

	title := "ghost"
	coll.Apply(uuid.New(), ports.TaskUpdate{Title: &title})

	got, _ := coll.Get(task.ID)
	assert.Equal(t, "stays", got.Title)
}

func TestCollection_Remove(t *testing.T) {
	coll, _ := newTestCollection()
	task := pooledTask("doomed")
	coll.Prepend(task)

	coll.Remove(task.ID)

	assert.False(t, coll.Contains(task.ID))
	assert.False(t, coll.IsNew(task.ID))
}
