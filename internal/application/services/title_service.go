package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/google/uuid"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

var ErrNoTitle = errors.New("page has no title")

const (
	// titleFetchRetries is how many attempts Enrich makes per task, with a
	// backoff of attempt x 1s between them.
	titleFetchRetries = 3
	// titleEnrichWindow bounds enrichment to tasks created moments ago. An
	// older bare-URL title is assumed intentional.
	titleEnrichWindow = 3 * time.Second
)

// TitleService fetches page titles for pasted URLs. The HTTP layer
// exposes it behind a per-client rate limit; Enrich applies the result to
// a freshly created task's metadata without touching the title itself.
type TitleService struct {
	tasks  *TaskService
	client *http.Client
	logger *logger.Logger
	now    func() time.Time
	sleep  func(ctx context.Context, d time.Duration) error
}

// NewTitleService creates a new title service
func NewTitleService(tasks *TaskService, fetchTimeout time.Duration, logger *logger.Logger) *TitleService {
	return &TitleService{
		tasks:  tasks,
		client: &http.Client{Timeout: fetchTimeout},
		logger: logger,
		now:    time.Now,
		sleep:  sleepCtx,
	}
}

// FetchTitle downloads the page at rawURL and extracts its <title> text.
func (s *TitleService) FetchTitle(ctx context.Context, rawURL string) (string, error) {
	if !isHTTPURL(rawURL) {
		return "", fmt.Errorf("%w: %q", entities.ErrInvalidURL, rawURL)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("build title request: %w", err)
	}
	req.Header.Set("User-Agent", "weekplan-title-fetcher/1.0")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("fetch page: unexpected status %d", resp.StatusCode)
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return "", fmt.Errorf("parse page: %w", err)
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title == "" {
		return "", ErrNoTitle
	}
	return title, nil
}

// Enrich resolves a page title for a task whose title is a bare URL.
// Only tasks created within the last few seconds and without a cached
// urlTitle qualify; everything else is a silent no-op. The fetched title
// lands in metadata, never on the task title.
func (s *TitleService) Enrich(ctx context.Context, userID uuid.UUID, task *entities.Task) error {
	if !s.shouldEnrich(task) {
		return nil
	}

	rawURL := strings.TrimSpace(task.Title)
	var title string
	var err error
	for attempt := 1; attempt <= titleFetchRetries; attempt++ {
		title, err = s.FetchTitle(ctx, rawURL)
		if err == nil {
			break
		}
		s.logger.Warn("Title fetch attempt failed", "task_id", task.ID, "attempt", attempt, "error", err)
		if attempt == titleFetchRetries {
			return fmt.Errorf("fetch title for %q: %w", rawURL, err)
		}
		if err := s.sleep(ctx, time.Duration(attempt)*time.Second); err != nil {
			return err
		}
	}

	metadata := entities.Metadata{}
	for k, v := range task.Metadata {
		metadata[k] = v
	}
	metadata["urlTitle"] = title
	metadata["originalUrl"] = rawURL
	metadata["urlFetchedAt"] = s.now().UTC().Format(time.RFC3339)

	if _, err := s.tasks.UpdateTask(ctx, userID, task.ID, ports.TaskUpdate{Metadata: &metadata}); err != nil {
		return err
	}

	s.logger.Info("Task title enriched", "task_id", task.ID, "url", rawURL)
	return nil
}

func (s *TitleService) shouldEnrich(task *entities.Task) bool {
	if !isHTTPURL(strings.TrimSpace(task.Title)) {
		return false
	}
	if s.now().Sub(task.CreatedAt) > titleEnrichWindow {
		return false
	}
	if _, cached := task.Metadata["urlTitle"]; cached {
		return false
	}
	return true
}

func isHTTPURL(raw string) bool {
	if strings.ContainsAny(raw, " \t\n") {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
