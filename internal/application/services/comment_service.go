package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// CommentService handles the per-task comment collection. Comments live
// independently of their parent task's lifecycle state; hard-deleting the
// task cascades them at the storage layer.
type CommentService struct {
	commentRepo ports.CommentRepository
	taskRepo    ports.TaskRepository
	logger      *logger.Logger
}

// NewCommentService creates a new comment service
func NewCommentService(commentRepo ports.CommentRepository, taskRepo ports.TaskRepository, logger *logger.Logger) *CommentService {
	return &CommentService{
		commentRepo: commentRepo,
		taskRepo:    taskRepo,
		logger:      logger,
	}
}

// List returns a task's comments oldest first.
func (s *CommentService) List(ctx context.Context, userID, taskID uuid.UUID) ([]entities.Comment, error) {
	if _, err := s.taskRepo.GetByID(ctx, userID, taskID); err != nil {
		return nil, err
	}

	comments, err := s.commentRepo.ListByTask(ctx, taskID)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	return comments, nil
}

// Add creates a comment authored by the authenticated user.
func (s *CommentService) Add(ctx context.Context, userID, taskID uuid.UUID, content string) (*entities.Comment, error) {
	if userID == uuid.Nil {
		return nil, entities.ErrAuthRequired
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, entities.ErrEmptyComment
	}

	if _, err := s.taskRepo.GetByID(ctx, userID, taskID); err != nil {
		return nil, err
	}

	comment := &entities.Comment{
		TaskID:  taskID,
		UserID:  userID,
		Content: content,
	}
	if err := s.commentRepo.Create(ctx, comment); err != nil {
		return nil, fmt.Errorf("failed to add comment: %w", err)
	}

	s.logger.Info("Comment added", "comment_id", comment.ID, "task_id", taskID)
	return comment, nil
}

// Edit updates a comment's content. Only the author can edit; the bumped
// updated_at marks the comment as edited.
func (s *CommentService) Edit(ctx context.Context, userID, commentID uuid.UUID, content string) (*entities.Comment, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, entities.ErrEmptyComment
	}

	existing, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return nil, err
	}
	if existing.UserID != userID {
		return nil, entities.ErrUnauthorized
	}

	comment, err := s.commentRepo.UpdateContent(ctx, commentID, content)
	if err != nil {
		return nil, fmt.Errorf("failed to update comment: %w", err)
	}

	return comment, nil
}

// Delete removes a comment. Only the author can delete.
func (s *CommentService) Delete(ctx context.Context, userID, commentID uuid.UUID) error {
	existing, err := s.commentRepo.GetByID(ctx, commentID)
	if err != nil {
		return err
	}
	if existing.UserID != userID {
		return entities.ErrUnauthorized
	}

	if err := s.commentRepo.Delete(ctx, commentID); err != nil {
		return fmt.Errorf("failed to delete comment: %w", err)
	}

	s.logger.Info("Comment deleted", "comment_id", commentID, "task_id", existing.TaskID)
	return nil
}
