package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/weekplan/core/internal/application/services"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// CommentHandler handles comment-related requests
type CommentHandler struct {
	commentService *services.CommentService
	logger         *logger.Logger
}

// NewCommentHandler creates a new comment handler
func NewCommentHandler(commentService *services.CommentService, logger *logger.Logger) *CommentHandler {
	return &CommentHandler{
		commentService: commentService,
		logger:         logger,
	}
}

// ListComments returns a task's comments, oldest first
func (h *CommentHandler) ListComments(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	comments, err := h.commentService.List(c.Request().Context(), userID, taskID)
	if err != nil {
		return domainError(err, "Failed to retrieve comments")
	}

	return c.JSON(http.StatusOK, comments)
}

// CreateComment adds a comment to a task
func (h *CommentHandler) CreateComment(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.CreateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	comment, err := h.commentService.Add(c.Request().Context(), userID, taskID, req.Content)
	if err != nil {
		h.logger.Error("Create comment failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to add comment")
	}

	return c.JSON(http.StatusCreated, comment)
}

// UpdateComment edits a comment's content, author-only
func (h *CommentHandler) UpdateComment(c echo.Context) error {
	userID := getUserIDFromContext(c)
	commentID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req ports.UpdateCommentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	comment, err := h.commentService.Edit(c.Request().Context(), userID, commentID, req.Content)
	if err != nil {
		h.logger.Error("Update comment failed", "error", err, "user_id", userID, "comment_id", commentID)
		return domainError(err, "Failed to update comment")
	}

	return c.JSON(http.StatusOK, comment)
}

// DeleteComment removes a comment, author-only
func (h *CommentHandler) DeleteComment(c echo.Context) error {
	userID := getUserIDFromContext(c)
	commentID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	if err := h.commentService.Delete(c.Request().Context(), userID, commentID); err != nil {
		h.logger.Error("Delete comment failed", "error", err, "user_id", userID, "comment_id", commentID)
		return domainError(err, "Failed to delete comment")
	}

	return c.NoContent(http.StatusNoContent)
}
