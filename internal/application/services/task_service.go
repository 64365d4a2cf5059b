package services

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/planner"
	"github.com/weekplan/core/internal/ports"
)

// TaskService handles task operations and keeps each user's board
// collection reconciled with the store. The collection is the in-memory
// source of truth the weekly view and pool are computed from; mutations
// hit the store first and only touch the collection once confirmed, so a
// failed call leaves local state exactly as it was.
type TaskService struct {
	taskRepo ports.TaskRepository
	logger   *logger.Logger
	clock    planner.Clock

	mu     sync.Mutex
	boards map[uuid.UUID]*userBoard
}

type userBoard struct {
	coll   *planner.Collection
	syncer *planner.Syncer
}

// NewTaskService creates a new task service
func NewTaskService(taskRepo ports.TaskRepository, logger *logger.Logger) *TaskService {
	return &TaskService{
		taskRepo: taskRepo,
		logger:   logger,
		clock:    time.Now,
		boards:   make(map[uuid.UUID]*userBoard),
	}
}

// repoGateway adapts the task repository to the syncer's gateway.
type repoGateway struct {
	repo ports.TaskRepository
}

func (g repoGateway) FetchActive(ctx context.Context, userID uuid.UUID) ([]entities.Task, error) {
	return g.repo.ListActive(ctx, userID, ports.TaskFilter{})
}

func (s *TaskService) board(userID uuid.UUID) *userBoard {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.boards[userID]
	if !ok {
		coll := planner.NewCollection(s.logger, s.clock)
		b = &userBoard{
			coll:   coll,
			syncer: planner.NewSyncer(repoGateway{repo: s.taskRepo}, coll, s.logger),
		}
		s.boards[userID] = b
	}
	return b
}

// Refresh re-fetches the user's active tasks into the board collection.
// A refresh started while another is in flight cancels the older one.
func (s *TaskService) Refresh(ctx context.Context, userID uuid.UUID) error {
	return s.board(userID).syncer.Refresh(ctx, userID)
}

// Board returns the weekly view: the given week's scheduled tasks and the
// unscheduled pool, both filtered by the search query. The collection is
// refreshed when it has never been filled.
func (s *TaskService) Board(ctx context.Context, userID uuid.UUID, week planner.Week, query string) (planner.BoardView, error) {
	b := s.board(userID)
	if b.coll.Len() == 0 {
		if err := s.Refresh(ctx, userID); err != nil && err != context.Canceled {
			return planner.BoardView{}, err
		}
	}
	return planner.Partition(b.coll.Tasks(), week, query), nil
}

// CreateTask creates a task owned by the authenticated user and prepends
// it to the board collection with the transient "new" highlight.
func (s *TaskService) CreateTask(ctx context.Context, userID uuid.UUID, req ports.CreateTaskRequest) (*entities.Task, error) {
	if userID == uuid.Nil {
		return nil, entities.ErrAuthRequired
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, entities.ErrEmptyTitle
	}

	status := entities.TaskStatusTodo
	if req.Status != "" {
		status = entities.TaskStatus(req.Status)
		if !status.IsValid() || status == entities.TaskStatusArchived {
			return nil, entities.ErrInvalidStatus
		}
	}

	task := &entities.Task{
		Title:       req.Title,
		Description: req.Description,
		Status:      status,
		Color:       entities.SanitizeTaskColor(req.Color),
		RowIndex:    req.RowIndex,
		UserID:      userID,
	}
	if req.TaskDate != nil && *req.TaskDate != "" {
		day, err := time.Parse(entities.DateLayout, *req.TaskDate)
		if err != nil {
			return nil, entities.ErrInvalidDate
		}
		task.Schedule(day)
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	s.board(userID).coll.Prepend(*task)
	s.logger.Info("Task created", "task_id", task.ID, "user_id", userID)

	return task, nil
}

// GetTask retrieves a task by ID.
func (s *TaskService) GetTask(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error) {
	task, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask applies a partial update. On success the confirmed change is
// merged into the board collection; an archive drops the task from it.
// On failure the collection is untouched.
func (s *TaskService) UpdateTask(ctx context.Context, userID, id uuid.UUID, update ports.TaskUpdate) (*entities.Task, error) {
	if update.Title != nil && strings.TrimSpace(*update.Title) == "" {
		return nil, entities.ErrEmptyTitle
	}
	if update.Color != nil && *update.Color != "" {
		if sanitized := entities.SanitizeTaskColor(update.Color); sanitized == nil {
			s.logger.Warnw("Invalid task color in update, clearing", "task_id", id, "color", *update.Color)
			empty := ""
			update.Color = &empty
		}
	}

	task, err := s.taskRepo.Update(ctx, userID, id, update)
	if err != nil {
		return nil, err
	}

	s.board(userID).coll.Apply(id, update)
	if update.Archives() {
		s.logger.Info("Task archived", "task_id", id, "user_id", userID)
	}

	return task, nil
}

// MoveTask is the drag-and-drop path: a destination token that is either
// a calendar date or the pool sentinel becomes a schedule update. Drops
// with no usable destination, or of tasks that no longer exist, are
// silent no-ops. The collection is primed first so a task that only
// lives in the store is not mistaken for a deleted one.
func (s *TaskService) MoveTask(ctx context.Context, userID, id uuid.UUID, destination string) (*entities.Task, error) {
	b := s.board(userID)
	if b.coll.Len() == 0 {
		if err := s.Refresh(ctx, userID); err != nil && err != context.Canceled {
			return nil, err
		}
	}
	update, ok := planner.ResolveDrop(planner.DropEvent{TaskID: id, Destination: destination}, b.coll.Contains)
	if !ok {
		return nil, nil
	}
	return s.UpdateTask(ctx, userID, id, update)
}

// DeleteTask hard-deletes a task. Comments cascade at the storage layer.
func (s *TaskService) DeleteTask(ctx context.Context, userID, id uuid.UUID) error {
	if err := s.taskRepo.Delete(ctx, userID, id); err != nil {
		return err
	}

	s.board(userID).coll.Remove(id)
	s.logger.Info("Task deleted", "task_id", id, "user_id", userID)

	return nil
}

// ArchiveTask soft-deletes: the task leaves the active collection but
// stays queryable through the archive listing.
func (s *TaskService) ArchiveTask(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error) {
	archived := entities.TaskStatusArchived
	return s.UpdateTask(ctx, userID, id, ports.TaskUpdate{Status: &archived})
}

// RestoreTask brings an archived task back as todo.
func (s *TaskService) RestoreTask(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error) {
	existing, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	if !existing.IsArchived() {
		return nil, entities.ErrTaskNotArchived
	}

	todo := entities.TaskStatusTodo
	task, err := s.taskRepo.Update(ctx, userID, id, ports.TaskUpdate{Status: &todo})
	if err != nil {
		return nil, err
	}

	s.board(userID).coll.Prepend(*task)
	s.logger.Info("Task restored", "task_id", id, "user_id", userID)

	return task, nil
}

// DuplicateTask copies a task's content, including its metadata, into a
// fresh todo task on the same day. Attachments and comments are not
// copied.
func (s *TaskService) DuplicateTask(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error) {
	source, err := s.taskRepo.GetByID(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	dup := &entities.Task{
		Title:       source.Title,
		Description: source.Description,
		Status:      entities.TaskStatusTodo,
		Color:       source.Color,
		RowIndex:    source.RowIndex,
		UserID:      userID,
	}
	if day, ok := source.Date(); ok {
		dup.Schedule(day)
	}
	if len(source.Metadata) > 0 {
		dup.Metadata = make(entities.Metadata, len(source.Metadata))
		for k, v := range source.Metadata {
			dup.Metadata[k] = v
		}
	}

	if err := s.taskRepo.Create(ctx, dup); err != nil {
		return nil, fmt.Errorf("failed to duplicate task: %w", err)
	}

	s.board(userID).coll.Prepend(*dup)
	s.logger.Info("Task duplicated", "task_id", dup.ID, "source_id", id, "user_id", userID)

	return dup, nil
}

// ListArchived returns the archived tasks, newest archive first.
func (s *TaskService) ListArchived(ctx context.Context, userID uuid.UUID) ([]entities.Task, error) {
	tasks, err := s.taskRepo.ListArchived(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list archived tasks: %w", err)
	}
	return tasks, nil
}

// ListActive returns active tasks straight from the store with optional
// filtering. The board endpoints go through the collection instead.
func (s *TaskService) ListActive(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]entities.Task, error) {
	tasks, err := s.taskRepo.ListActive(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, nil
}

// IsNew reports whether the task is inside its creation highlight window.
func (s *TaskService) IsNew(userID, id uuid.UUID) bool {
	return s.board(userID).coll.IsNew(id)
}
