package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/ports"
)

// CommentRepositoryImpl implements the CommentRepository interface
type CommentRepositoryImpl struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new comment repository
func NewCommentRepository(db *sqlx.DB) ports.CommentRepository {
	return &CommentRepositoryImpl{db: db}
}

func (r *CommentRepositoryImpl) Create(ctx context.Context, comment *entities.Comment) error {
	query := `
		INSERT INTO comments (id, task_id, user_id, content)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at, updated_at`

	if comment.ID == uuid.Nil {
		comment.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		comment.ID, comment.TaskID, comment.UserID, comment.Content,
	).Scan(&comment.CreatedAt, &comment.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}

	return nil
}

func (r *CommentRepositoryImpl) GetByID(ctx context.Context, id uuid.UUID) (*entities.Comment, error) {
	query := `
		SELECT id, task_id, user_id, content, created_at, updated_at
		FROM comments
		WHERE id = $1`

	var comment entities.Comment
	err := r.db.GetContext(ctx, &comment, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrCommentNotFound
		}
		return nil, fmt.Errorf("get comment by id: %w", err)
	}

	return &comment, nil
}

func (r *CommentRepositoryImpl) ListByTask(ctx context.Context, taskID uuid.UUID) ([]entities.Comment, error) {
	query := `
		SELECT id, task_id, user_id, content, created_at, updated_at
		FROM comments
		WHERE task_id = $1
		ORDER BY created_at ASC`

	comments := []entities.Comment{}
	err := r.db.SelectContext(ctx, &comments, query, taskID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}

	return comments, nil
}

func (r *CommentRepositoryImpl) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*entities.Comment, error) {
	query := `
		UPDATE comments
		SET content = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id, task_id, user_id, content, created_at, updated_at`

	var comment entities.Comment
	err := r.db.GetContext(ctx, &comment, query, id, content)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrCommentNotFound
		}
		return nil, fmt.Errorf("update comment: %w", err)
	}

	return &comment, nil
}

func (r *CommentRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM comments WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete comment: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return entities.ErrCommentNotFound
	}

	return nil
}
