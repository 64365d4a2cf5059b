package services

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// AttachmentBucket is the object-store bucket holding task attachments.
const AttachmentBucket = "task_attachments"

// AttachmentService uploads task attachments and derives download links.
// It routes every attachment-list change through the task service so the
// board cache stays in step with storage.
type AttachmentService struct {
	tasks        *TaskService
	store        ports.ObjectStore
	logger       *logger.Logger
	signedURLTTL time.Duration
	downloadTTL  time.Duration
	now          func() time.Time
}

// NewAttachmentService creates a new attachment service
func NewAttachmentService(tasks *TaskService, store ports.ObjectStore, signedURLTTL, downloadTTL time.Duration, logger *logger.Logger) *AttachmentService {
	return &AttachmentService{
		tasks:        tasks,
		store:        store,
		logger:       logger,
		signedURLTTL: signedURLTTL,
		downloadTTL:  downloadTTL,
		now:          time.Now,
	}
}

// Upload stores a file under <taskID>/<unix-millis><ext> and appends its
// durable reference to the task's attachment list.
func (s *AttachmentService) Upload(ctx context.Context, userID, taskID uuid.UUID, filename string, data []byte) (*entities.Task, error) {
	task, err := s.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	ext := filepath.Ext(filename)
	path := fmt.Sprintf("%s/%d%s", taskID, s.now().UnixMilli(), ext)

	ref, err := s.store.Upload(ctx, AttachmentBucket, path, data)
	if err != nil {
		return nil, fmt.Errorf("failed to upload attachment: %w", err)
	}

	attachments := append(entities.AttachmentList{}, task.Attachments...)
	attachments = append(attachments, entities.Attachment{Name: filename, URL: ref})

	updated, err := s.tasks.UpdateTask(ctx, userID, taskID, ports.TaskUpdate{Attachments: &attachments})
	if err != nil {
		// Orphaned object; the stored reference was never persisted.
		if rmErr := s.store.Remove(ctx, AttachmentBucket, []string{path}); rmErr != nil {
			s.logger.Warn("Failed to remove orphaned attachment", "path", path, "error", rmErr)
		}
		return nil, err
	}

	s.logger.Info("Attachment uploaded", "task_id", taskID, "path", path, "size", len(data))
	return updated, nil
}

// SignedURL derives a time-limited link for a stored attachment
// reference. The durable reference itself is never fetchable. Preview
// links carry the short TTL; download links the long one, so a link
// shared for saving the file outlives the dialog that produced it.
func (s *AttachmentService) SignedURL(ctx context.Context, userID, taskID uuid.UUID, reference string, download bool) (string, error) {
	task, err := s.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return "", err
	}
	if !hasAttachment(task.Attachments, reference) {
		return "", entities.ErrAttachmentNotFound
	}

	path, ok := s.store.StripBase(reference, AttachmentBucket)
	if !ok {
		return "", entities.ErrAttachmentNotFound
	}

	ttl := s.signedURLTTL
	if download {
		ttl = s.downloadTTL
	}
	url, err := s.store.SignedURL(AttachmentBucket, path, ttl)
	if err != nil {
		return "", fmt.Errorf("failed to sign attachment url: %w", err)
	}
	return url, nil
}

// Remove deletes an attachment from storage and drops it from the task's
// attachment list.
func (s *AttachmentService) Remove(ctx context.Context, userID, taskID uuid.UUID, reference string) (*entities.Task, error) {
	task, err := s.tasks.GetTask(ctx, userID, taskID)
	if err != nil {
		return nil, err
	}

	remaining := make(entities.AttachmentList, 0, len(task.Attachments))
	found := false
	for _, a := range task.Attachments {
		if a.URL == reference {
			found = true
			continue
		}
		remaining = append(remaining, a)
	}
	if !found {
		return nil, entities.ErrAttachmentNotFound
	}

	updated, err := s.tasks.UpdateTask(ctx, userID, taskID, ports.TaskUpdate{Attachments: &remaining})
	if err != nil {
		return nil, err
	}

	if path, ok := s.store.StripBase(reference, AttachmentBucket); ok {
		if err := s.store.Remove(ctx, AttachmentBucket, []string{path}); err != nil {
			// The list entry is already gone; the object is unreachable either way.
			s.logger.Warn("Failed to remove attachment object", "path", path, "error", err)
		}
	}

	s.logger.Info("Attachment removed", "task_id", taskID, "reference", reference)
	return updated, nil
}

func hasAttachment(list entities.AttachmentList, reference string) bool {
	for _, a := range list {
		if a.URL == reference {
			return true
		}
	}
	return false
}
