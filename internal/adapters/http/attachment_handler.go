package http

import (
	"errors"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/weekplan/core/internal/application/services"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/infrastructure/storage"
)

// AttachmentHandler handles attachment upload, signing and download
type AttachmentHandler struct {
	attachmentService *services.AttachmentService
	store             *storage.Store
	logger            *logger.Logger
}

// NewAttachmentHandler creates a new attachment handler
func NewAttachmentHandler(attachmentService *services.AttachmentService, store *storage.Store, logger *logger.Logger) *AttachmentHandler {
	return &AttachmentHandler{
		attachmentService: attachmentService,
		store:             store,
		logger:            logger,
	}
}

// Upload stores a multipart file and appends it to the task's attachments
func (h *AttachmentHandler) Upload(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing file")
	}

	src, err := fileHeader.Open()
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Unreadable file")
	}

	task, err := h.attachmentService.Upload(c.Request().Context(), userID, taskID, fileHeader.Filename, data)
	if err != nil {
		h.logger.Error("Attachment upload failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to upload attachment")
	}

	return c.JSON(http.StatusCreated, task)
}

// SignedURL derives a time-limited link for a stored attachment.
// download=true requests the long-lived download TTL instead of the
// short preview one.
func (h *AttachmentHandler) SignedURL(c echo.Context) error {
	userID := getUserIDFromContext(c)

	taskIDStr := c.QueryParam("task_id")
	reference := c.QueryParam("url")
	if taskIDStr == "" || reference == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing task_id or url")
	}

	taskID, err := uuid.Parse(taskIDStr)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid task_id")
	}

	download := c.QueryParam("download") == "true"
	url, err := h.attachmentService.SignedURL(c.Request().Context(), userID, taskID, reference, download)
	if err != nil {
		return domainError(err, "Failed to sign attachment url")
	}

	return c.JSON(http.StatusOK, map[string]string{"signed_url": url})
}

// Delete removes an attachment from the task and from storage
func (h *AttachmentHandler) Delete(c echo.Context) error {
	userID := getUserIDFromContext(c)
	taskID, err := parseIDParam(c, "id")
	if err != nil {
		return err
	}

	var req struct {
		URL string `json:"url" validate:"required"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if req.URL == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing url")
	}

	task, err := h.attachmentService.Remove(c.Request().Context(), userID, taskID, req.URL)
	if err != nil {
		h.logger.Error("Attachment delete failed", "error", err, "user_id", userID, "task_id", taskID)
		return domainError(err, "Failed to delete attachment")
	}

	return c.JSON(http.StatusOK, task)
}

// Download serves a stored object after verifying the signed-URL token.
// This route is public; the signature is the authorization.
func (h *AttachmentHandler) Download(c echo.Context) error {
	bucket := c.Param("bucket")
	path := c.Param("*")

	expires, err := strconv.ParseInt(c.QueryParam("expires"), 10, 64)
	if err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired signature")
	}

	if err := h.store.Verify(bucket, path, expires, c.QueryParam("signature")); err != nil {
		return echo.NewHTTPError(http.StatusForbidden, "Invalid or expired signature")
	}

	data, err := h.store.Open(bucket, path)
	if err != nil {
		if errors.Is(err, storage.ErrInvalidPath) {
			return echo.NewHTTPError(http.StatusBadRequest, "Invalid path")
		}
		return echo.NewHTTPError(http.StatusNotFound, "Object not found")
	}

	contentType := mime.TypeByExtension(filepath.Ext(path))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return c.Blob(http.StatusOK, contentType, data)
}
