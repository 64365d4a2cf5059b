package http

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/weekplan/core/internal/application/services"
	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/planner"
	"github.com/weekplan/core/internal/ports"
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskService  *services.TaskService
	titleService *services.TitleService
	logger       *logger.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(taskService *services.TaskService, titleService *services.TitleService, logger *logger.Logger) *TaskHandler {
	return &TaskHandler{
		taskService:  taskService,
		titleService: titleService,
		logger:       logger,
	}
}

// ListTasks returns the user's active tasks, newest first
func (h *TaskHandler) ListTasks(c echo.Context) error {
	userID := getUserIDFromContext(c)

	filter := ports.TaskFilter{Query: c.QueryParam("q")}
	if from := c.QueryParam("from"); from != "" {
		day, err := time.Parse(entities.DateLayout, from)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid from date")
		}
		filter.From = &day
	}
	if to := c.QueryParam("to"); to != "" {
		day, err := time.Parse(entities.DateLayout, to)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid to date")
		}
		filter.To = &day
	}
	if c.QueryParam("unscheduled") == "true" {
		filter.Unscheduled = true
	}

	tasks, err := h.taskService.ListActive(c.Request().Context(), userID, filter)
	if err != nil {
		h.logger.Error("List tasks failed", "error", err, "user_id", userID)
		return domainError(err, "Failed to retrieve tasks")
	}

	return c.JSON(http.StatusOK, tasks)
}

// ListArchived returns the user's archived tasks, newest archive first
func (h *TaskHandler) ListArchived(c echo.Context) error {
	userID := getUserIDFromContext(c)

	tasks, err := h.taskService.ListArchived(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("List archived tasks failed", "error", err, "user_id", userID)
		return domainError(err, "Failed to retrieve archived tasks")
	}

	return c.JSON(http.StatusOK, tasks)
}

// Board returns the weekly partition: tasks keyed by day plus the pool
func (h *TaskHandler) Board(c echo.Context) error {
	userID := getUserIDFromContext(c)

	week := planner.CurrentWeek(time.Now())
	if start := c.QueryParam("start"); start != "" {
		day, err := time.Parse(entities.DateLayout, start)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid start date")
		}
		week = planner.WeekOf(day)
	}

	view, err := h.taskService.Board(c.Request().Context(), userID, week, c.QueryParam("q"))
	if err != nil {
		h.logger.Error("Board failed", "error", err, "user_id", userID)
		return domainError(err, "Failed to build board")
	}

	newIDs := make([]uuid.UUID, 0)
	for _, task := range view.Unscheduled {
		if h.taskService.IsNew(userID, task.ID) {
			newIDs = append(newIDs, task.ID)
		}
	}
	for _, task := range view.Scheduled {
		if h.taskService.IsNew(userID, task.ID) {
			newIDs = append(newIDs, task.ID)
		}
	}

	return c.JSON(http.StatusOK, BoardResponse{
		WeekNumber:  view.Week.Number,
		WeekStart:   view.Week.Start.Format(entities.DateLayout),
		ByDay:       view.ByDay,
		Unscheduled: view.Unscheduled,
		NewTaskIDs:  newIDs,
	})
}

// CreateTask handles task creation
func (h *TaskHandler) CreateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.CreateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.CreateTask(c.Request().Context(), userID, req)
	if err != nil {
		h.logger.Error("Create task failed", "error", err, "user_id", userID)
		return domainError(err, "Failed to create task")
	}

	// Pasted-URL titles get a page title resolved into metadata without
	// delaying the response.
	if h.titleService != nil {
		go func(t entities.Task) {
			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			if err := h.titleService.Enrich(ctx, userID, &t); err != nil {
				h.logger.Warn("Title enrichment failed", "task_id", t.ID, "error", err)
			}
		}(*task)
	}

	return c.JSON(http.StatusCreated, task)
}

// GetTask returns a single task
func (h *TaskHandler) GetTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.GetTask(c.Request().Context(), userID, taskID)
	if err != nil {
		return domainError(err, "Failed to retrieve task")
	}

	return c.JSON(http.StatusOK, task)
}

// UpdateTask applies a partial update. An absent task_date key leaves the
// schedule alone; an explicit null moves the task to the pool.
func (h *TaskHandler) UpdateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	update, err := toTaskUpdate(req)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.UpdateTask(c.Request().Context(), userID, taskID, update)
	if err != nil {
		h.logger.Error("Update task failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to update task")
	}

	return c.JSON(http.StatusOK, task)
}

// DeleteTask permanently removes a task and its comments
func (h *TaskHandler) DeleteTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.taskService.DeleteTask(c.Request().Context(), userID, taskID); err != nil {
		h.logger.Error("Delete task failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to delete task")
	}

	return c.NoContent(http.StatusNoContent)
}

// MoveTask resolves a drop destination. An unknown task or a malformed
// destination is a no-op, mirroring a drop that landed nowhere.
func (h *TaskHandler) MoveTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.MoveTaskRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	task, err := h.taskService.MoveTask(c.Request().Context(), userID, taskID, req.Destination)
	if err != nil {
		h.logger.Error("Move task failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to move task")
	}
	if task == nil {
		return c.JSON(http.StatusOK, MessageResponse{Message: "No change"})
	}

	return c.JSON(http.StatusOK, task)
}

// ArchiveTask moves a task to the archive
func (h *TaskHandler) ArchiveTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.ArchiveTask(c.Request().Context(), userID, taskID)
	if err != nil {
		h.logger.Error("Archive task failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to archive task")
	}

	return c.JSON(http.StatusOK, task)
}

// RestoreTask brings an archived task back as todo
func (h *TaskHandler) RestoreTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.RestoreTask(c.Request().Context(), userID, taskID)
	if err != nil {
		h.logger.Error("Restore task failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to restore task")
	}

	return c.JSON(http.StatusOK, task)
}

// DuplicateTask copies a task into the pool
func (h *TaskHandler) DuplicateTask(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	task, err := h.taskService.DuplicateTask(c.Request().Context(), userID, taskID)
	if err != nil {
		h.logger.Error("Duplicate task failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to duplicate task")
	}

	return c.JSON(http.StatusCreated, task)
}

// toTaskUpdate converts the wire-level partial update into the repository
// update, resolving the three-way task_date field.
func toTaskUpdate(req ports.UpdateTaskRequest) (ports.TaskUpdate, error) {
	update := ports.TaskUpdate{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		RowIndex:    req.RowIndex,
		Attachments: req.Attachments,
		Metadata:    req.Metadata,
	}

	if req.Status != nil {
		status := entities.TaskStatus(*req.Status)
		if !status.IsValid() {
			return ports.TaskUpdate{}, entities.ErrInvalidStatus
		}
		update.Status = &status
	}

	if len(req.TaskDate) > 0 {
		if bytes.Equal(bytes.TrimSpace(req.TaskDate), []byte("null")) {
			update.Schedule = &ports.ScheduleChange{}
		} else {
			var raw string
			if err := json.Unmarshal(req.TaskDate, &raw); err != nil {
				return ports.TaskUpdate{}, entities.ErrInvalidDate
			}
			day, err := time.Parse(entities.DateLayout, raw)
			if err != nil {
				return ports.TaskUpdate{}, entities.ErrInvalidDate
			}
			update.Schedule = &ports.ScheduleChange{Day: &day}
		}
	}

	return update, nil
}

// BoardResponse is the weekly board payload.
type BoardResponse struct {
	WeekNumber  int                        `json:"week_number"`
	WeekStart   string                     `json:"week_start"`
	ByDay       map[string][]entities.Task `json:"by_day"`
	Unscheduled []entities.Task            `json:"unscheduled"`
	NewTaskIDs  []uuid.UUID                `json:"new_task_ids"`
}
