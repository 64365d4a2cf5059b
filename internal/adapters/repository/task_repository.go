package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/ports"
)

const taskColumns = `id, title, description, status, task_date, week_number, year,
		color, row_index, user_id, attachments, metadata, created_at, updated_at, archived_at`

// TaskRepositoryImpl implements the TaskRepository interface
type TaskRepositoryImpl struct {
	db *sqlx.DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *sqlx.DB) ports.TaskRepository {
	return &TaskRepositoryImpl{db: db}
}

func (r *TaskRepositoryImpl) Create(ctx context.Context, task *entities.Task) error {
	query := `
		INSERT INTO tasks (id, title, description, status, task_date, week_number, year,
			color, row_index, user_id, attachments, metadata)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING created_at, updated_at`

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	if task.Attachments == nil {
		task.Attachments = entities.AttachmentList{}
	}
	if task.Metadata == nil {
		task.Metadata = entities.Metadata{}
	}

	err := r.db.QueryRowContext(ctx, query,
		task.ID, task.Title, task.Description, task.Status,
		task.TaskDate, task.WeekNumber, task.Year,
		task.Color, task.RowIndex, task.UserID,
		task.Attachments, task.Metadata,
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create task: %w", err)
	}

	return nil
}

func (r *TaskRepositoryImpl) GetByID(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, id, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("get task by id: %w", err)
	}

	return &task, nil
}

// Update builds a SET clause from the provided fields only, so unprovided
// columns keep their values: shallow-merge at the row. Date and the
// derived week columns always change together.
func (r *TaskRepositoryImpl) Update(ctx context.Context, userID, id uuid.UUID, update ports.TaskUpdate) (*entities.Task, error) {
	sets := []string{"updated_at = CURRENT_TIMESTAMP"}
	args := []interface{}{id, userID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if update.Title != nil {
		sets = append(sets, "title = "+arg(*update.Title))
	}
	if update.Description != nil {
		sets = append(sets, "description = "+arg(*update.Description))
	}
	if update.Status != nil {
		sets = append(sets, "status = "+arg(*update.Status))
		if *update.Status == entities.TaskStatusArchived {
			sets = append(sets, "archived_at = CURRENT_TIMESTAMP")
		} else {
			sets = append(sets, "archived_at = NULL")
		}
	}
	if update.Schedule != nil {
		if update.Schedule.Day == nil {
			sets = append(sets, "task_date = NULL", "week_number = NULL", "year = NULL")
		} else {
			day := *update.Schedule.Day
			_, week := day.ISOWeek()
			sets = append(sets,
				"task_date = "+arg(day.Format(entities.DateLayout)),
				"week_number = "+arg(week),
				"year = "+arg(day.Year()),
			)
		}
	}
	if update.Color != nil {
		if *update.Color == "" {
			sets = append(sets, "color = NULL")
		} else {
			sets = append(sets, "color = "+arg(*update.Color))
		}
	}
	if update.RowIndex != nil {
		sets = append(sets, "row_index = "+arg(*update.RowIndex))
	}
	if update.Attachments != nil {
		sets = append(sets, "attachments = "+arg(*update.Attachments))
	}
	if update.Metadata != nil {
		sets = append(sets, "metadata = "+arg(*update.Metadata))
	}

	query := fmt.Sprintf(`
		UPDATE tasks SET %s
		WHERE id = $1 AND user_id = $2
		RETURNING `+taskColumns, strings.Join(sets, ", "))

	var task entities.Task
	err := r.db.GetContext(ctx, &task, query, args...)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrTaskNotFound
		}
		return nil, fmt.Errorf("update task: %w", err)
	}

	return &task, nil
}

func (r *TaskRepositoryImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrTaskNotFound
	}

	return nil
}

func (r *TaskRepositoryImpl) ListActive(ctx context.Context, userID uuid.UUID, filter ports.TaskFilter) ([]entities.Task, error) {
	conds := []string{"user_id = $1", "status <> 'archived'"}
	args := []interface{}{userID}
	arg := func(v interface{}) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.Query != "" {
		p := arg("%" + filter.Query + "%")
		conds = append(conds, fmt.Sprintf("(title ILIKE %s OR description ILIKE %s)", p, p))
	}
	if filter.Unscheduled {
		conds = append(conds, "task_date IS NULL")
	}
	if filter.From != nil {
		conds = append(conds, "task_date >= "+arg(filter.From.Format(entities.DateLayout)))
	}
	if filter.To != nil {
		conds = append(conds, "task_date <= "+arg(filter.To.Format(entities.DateLayout)))
	}

	query := fmt.Sprintf(`SELECT `+taskColumns+`
		FROM tasks
		WHERE %s
		ORDER BY created_at DESC`, strings.Join(conds, " AND "))

	tasks := []entities.Task{}
	err := r.db.SelectContext(ctx, &tasks, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list active tasks: %w", err)
	}

	return tasks, nil
}

func (r *TaskRepositoryImpl) ListArchived(ctx context.Context, userID uuid.UUID) ([]entities.Task, error) {
	query := `SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND status = 'archived'
		ORDER BY archived_at DESC NULLS LAST, created_at DESC`

	tasks := []entities.Task{}
	err := r.db.SelectContext(ctx, &tasks, query, userID)
	if err != nil {
		return nil, fmt.Errorf("list archived tasks: %w", err)
	}

	return tasks, nil
}
