package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/planner"
	"github.com/weekplan/core/internal/ports"
)

// memTaskRepo is an in-memory TaskRepository mirroring the row semantics
// of the Postgres implementation.
type memTaskRepo struct {
	mu    sync.Mutex
	tasks map[uuid.UUID]*entities.Task
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{tasks: make(map[uuid.UUID]*entities.Task)}
}

func (r *memTaskRepo) Create(ctx context.Context, task *entities.Task) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now()
	task.CreatedAt = now
	task.UpdatedAt = now
	clone := *task
	r.tasks[task.ID] = &clone
	return nil
}

func (r *memTaskRepo) GetByID(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return nil, entities.ErrTaskNotFound
	}
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) Update(ctx context.Context, userID, id uuid.UUID, update ports.TaskUpdate) (*entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return nil, entities.ErrTaskNotFound
	}
	if update.Title != nil {
		task.Title = *update.Title
	}
	if update.Description != nil {
		task.Description = update.Description
	}
	if update.Status != nil {
		task.Status = *update.Status
		if *update.Status == entities.TaskStatusArchived {
			now := time.Now()
			task.ArchivedAt = &now
		} else {
			task.ArchivedAt = nil
		}
	}
	if update.Schedule != nil {
		if update.Schedule.Day == nil {
			task.Unschedule()
		} else {
			task.Schedule(*update.Schedule.Day)
		}
	}
	if update.Color != nil {
		if *update.Color == "" {
			task.Color = nil
		} else {
			task.Color = update.Color
		}
	}
	if update.RowIndex != nil {
		task.RowIndex = update.RowIndex
	}
	if update.Attachments != nil {
		task.Attachments = *update.Attachments
	}
	if update.Metadata != nil {
		task.Metadata = *update.Metadata
	}
	task.UpdatedAt = time.Now()
	clone := *task
	return &clone, nil
}

func (r *memTaskRepo) Delete(ctx context.Context, userID, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	task, ok := r.tasks[id]
	if !ok || task.UserID != userID {
		return entities.ErrTaskNotFound
	}
	delete(r.tasks, id)
	return nil
}

func (r *memTaskRepo) ListActive(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entities.Task{}
	for _, task := range r.tasks {
		if task.UserID != userID || task.IsArchived() {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func (r *memTaskRepo) ListArchived(ctx context.Context, userID uuid.UUID) ([]entities.Task, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []entities.Task{}
	for _, task := range r.tasks {
		if task.UserID != userID || !task.IsArchived() {
			continue
		}
		out = append(out, *task)
	}
	return out, nil
}

func newTestTaskService() (*TaskService, *memTaskRepo) {
	repo := newMemTaskRepo()
	return NewTaskService(repo, logger.NewNop()), repo
}

func TestTaskService_CreateTask_RequiresAuth(t *testing.T) {
	svc, _ := newTestTaskService()

	_, err := svc.CreateTask(context.Background(), uuid.Nil, ports.CreateTaskRequest{Title: "orphan"})
	assert.ErrorIs(t, err, entities.ErrAuthRequired)
}

func TestTaskService_CreateTask_RejectsEmptyTitle(t *testing.T) {
	svc, _ := newTestTaskService()

	_, err := svc.CreateTask(context.Background(), uuid.New(), ports.CreateTaskRequest{Title: "   "})
	assert.ErrorIs(t, err, entities.ErrEmptyTitle)
}

func TestTaskService_CreateTask_ScheduledComputesWeekFields(t *testing.T) {
	svc, _ := newTestTaskService()
	day := "2026-09-02"

	task, err := svc.CreateTask(context.Background(), uuid.New(), ports.CreateTaskRequest{
		Title:    "standup",
		TaskDate: &day,
	})
	require.NoError(t, err)

	require.NotNil(t, task.WeekNumber)
	assert.Equal(t, 36, *task.WeekNumber)
	require.NotNil(t, task.Year)
	assert.Equal(t, 2026, *task.Year)
	assert.True(t, task.DerivedFieldsConsistent())
}

func TestTaskService_CreateTask_InvalidColorDropped(t *testing.T) {
	svc, _ := newTestTaskService()
	bad := "#BADBAD"

	task, err := svc.CreateTask(context.Background(), uuid.New(), ports.CreateTaskRequest{
		Title: "plain",
		Color: &bad,
	})
	require.NoError(t, err)
	assert.Nil(t, task.Color)
}

func TestTaskService_CreateTask_NewHighlight(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "fresh"})
	require.NoError(t, err)

	assert.True(t, svc.IsNew(userID, task.ID))
}

func TestTaskService_MoveTask_ToDayAndBack(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "mover"})
	require.NoError(t, err)

	moved, err := svc.MoveTask(context.Background(), userID, task.ID, "2026-09-03")
	require.NoError(t, err)
	require.NotNil(t, moved)
	require.NotNil(t, moved.TaskDate)
	assert.Equal(t, entities.Date("2026-09-03"), *moved.TaskDate)
	assert.True(t, moved.DerivedFieldsConsistent())

	pooled, err := svc.MoveTask(context.Background(), userID, task.ID, ports.PoolDestination)
	require.NoError(t, err)
	require.NotNil(t, pooled)
	assert.Nil(t, pooled.TaskDate)
	assert.Nil(t, pooled.WeekNumber)
	assert.Nil(t, pooled.Year)
}

func TestTaskService_MoveTask_PrimesCollectionFromStore(t *testing.T) {
	// A task that only lives in the store, say after a restart, must still
	// be movable; only tasks genuinely gone are silent no-ops.
	repo := newMemTaskRepo()
	userID := uuid.New()
	stored := &entities.Task{Title: "persisted", Status: entities.TaskStatusTodo, UserID: userID}
	require.NoError(t, repo.Create(context.Background(), stored))

	svc := NewTaskService(repo, logger.NewNop())

	moved, err := svc.MoveTask(context.Background(), userID, stored.ID, "2026-09-03")
	require.NoError(t, err)
	require.NotNil(t, moved)
	require.NotNil(t, moved.TaskDate)
	assert.Equal(t, entities.Date("2026-09-03"), *moved.TaskDate)

	got, err := svc.GetTask(context.Background(), userID, stored.ID)
	require.NoError(t, err)
	require.NotNil(t, got.TaskDate)
	assert.Equal(t, entities.Date("2026-09-03"), *got.TaskDate)
}

func TestTaskService_MoveTask_UnknownTaskIsSilentNoop(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	// Fill the collection so Contains has something to miss against.
	_, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "present"})
	require.NoError(t, err)

	task, err := svc.MoveTask(context.Background(), userID, uuid.New(), "2026-09-03")
	assert.NoError(t, err)
	assert.Nil(t, task)
}

func TestTaskService_MoveTask_MalformedDestinationIsSilentNoop(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "stay put"})
	require.NoError(t, err)

	moved, err := svc.MoveTask(context.Background(), userID, task.ID, "tomorrow-ish")
	assert.NoError(t, err)
	assert.Nil(t, moved)

	got, err := svc.GetTask(context.Background(), userID, task.ID)
	require.NoError(t, err)
	assert.Nil(t, got.TaskDate)
}

func TestTaskService_ArchiveRemovesFromBoard(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "done"})
	require.NoError(t, err)

	archived, err := svc.ArchiveTask(context.Background(), userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusArchived, archived.Status)
	assert.NotNil(t, archived.ArchivedAt)

	view, err := svc.Board(context.Background(), userID, planner.CurrentWeek(time.Now()), "")
	require.NoError(t, err)
	assert.Empty(t, view.Unscheduled)

	listed, err := svc.ListArchived(context.Background(), userID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, task.ID, listed[0].ID)
}

func TestTaskService_RestoreTask(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "back again"})
	require.NoError(t, err)

	_, err = svc.RestoreTask(context.Background(), userID, task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotArchived)

	_, err = svc.ArchiveTask(context.Background(), userID, task.ID)
	require.NoError(t, err)

	restored, err := svc.RestoreTask(context.Background(), userID, task.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.TaskStatusTodo, restored.Status)
	assert.True(t, svc.IsNew(userID, task.ID), "restored task should re-enter the highlight window")
}

func TestTaskService_DuplicateTask(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()
	day := "2026-09-04"

	source, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{
		Title:    "original",
		TaskDate: &day,
	})
	require.NoError(t, err)

	dup, err := svc.DuplicateTask(context.Background(), userID, source.ID)
	require.NoError(t, err)

	assert.NotEqual(t, source.ID, dup.ID)
	assert.Equal(t, source.Title, dup.Title)
	require.NotNil(t, dup.TaskDate)
	assert.Equal(t, entities.Date(day), *dup.TaskDate)
	assert.Equal(t, entities.TaskStatusTodo, dup.Status)
}

func TestTaskService_DuplicateTask_CopiesMetadata(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	source, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "https://example.com"})
	require.NoError(t, err)

	meta := entities.Metadata{"urlTitle": "Example Domain", "originalUrl": "https://example.com"}
	_, err = svc.UpdateTask(context.Background(), userID, source.ID, ports.TaskUpdate{Metadata: &meta})
	require.NoError(t, err)

	dup, err := svc.DuplicateTask(context.Background(), userID, source.ID)
	require.NoError(t, err)

	assert.Equal(t, "Example Domain", dup.Metadata["urlTitle"])

	// The copy must own its bag; mutating it never leaks into the source.
	dup.Metadata["urlTitle"] = "changed"
	got, err := svc.GetTask(context.Background(), userID, source.ID)
	require.NoError(t, err)
	assert.Equal(t, "Example Domain", got.Metadata["urlTitle"])
}

func TestTaskService_Board_PartitionsWeek(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()
	day := "2026-09-02"

	_, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "scheduled", TaskDate: &day})
	require.NoError(t, err)
	_, err = svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "pooled"})
	require.NoError(t, err)

	week := planner.WeekOf(time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC))
	view, err := svc.Board(context.Background(), userID, week, "")
	require.NoError(t, err)

	require.Len(t, view.Scheduled, 1)
	assert.Equal(t, "scheduled", view.Scheduled[0].Title)
	require.Len(t, view.Unscheduled, 1)
	assert.Equal(t, "pooled", view.Unscheduled[0].Title)
}

func TestTaskService_UpdateTask_InvalidColorCleared(t *testing.T) {
	svc, _ := newTestTaskService()
	userID := uuid.New()

	task, err := svc.CreateTask(context.Background(), userID, ports.CreateTaskRequest{Title: "recolor"})
	require.NoError(t, err)

	bad := "chartreuse"
	updated, err := svc.UpdateTask(context.Background(), userID, task.ID, ports.TaskUpdate{Color: &bad})
	require.NoError(t, err)
	assert.Nil(t, updated.Color)
}

func TestTaskService_BoardsAreUserScoped(t *testing.T) {
	svc, _ := newTestTaskService()
	alice := uuid.New()
	bob := uuid.New()

	task, err := svc.CreateTask(context.Background(), alice, ports.CreateTaskRequest{Title: "mine"})
	require.NoError(t, err)

	_, err = svc.GetTask(context.Background(), bob, task.ID)
	assert.ErrorIs(t, err, entities.ErrTaskNotFound)

	view, err := svc.Board(context.Background(), bob, planner.CurrentWeek(time.Now()), "")
	require.NoError(t, err)
	assert.Empty(t, view.Unscheduled)
}
