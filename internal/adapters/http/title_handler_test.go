package http

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weekplan/core/internal/application/services"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ratelimit"
)

func newTitleTestHandler(limiter *ratelimit.Limiter) *TitleHandler {
	svc := services.NewTitleService(nil, 5*time.Second, logger.NewNop())
	return NewTitleHandler(svc, limiter, logger.NewNop())
}

func fetchTitleRequest(t *testing.T, h *TitleHandler, rawURL string, client string) *httptest.ResponseRecorder {
	t.Helper()

	target := "/api/fetch-url-title"
	if rawURL != "" {
		target += "?url=" + url.QueryEscape(rawURL)
	}
	req := httptest.NewRequest(http.MethodGet, target, nil)
	if client != "" {
		req.Header.Set("X-Forwarded-For", client)
	}
	rec := httptest.NewRecorder()
	c := echo.New().NewContext(req, rec)

	require.NoError(t, h.FetchTitle(c))
	return rec
}

func TestTitleHandler_FetchTitle(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>Weekly Report</title></head></html>`))
	}))
	defer page.Close()

	h := newTitleTestHandler(ratelimit.New(10, time.Minute))

	rec := fetchTitleRequest(t, h, page.URL, "10.0.0.1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"title":"Weekly Report"}`, rec.Body.String())
}

func TestTitleHandler_FetchTitle_MissingURL(t *testing.T) {
	h := newTitleTestHandler(ratelimit.New(10, time.Minute))

	rec := fetchTitleRequest(t, h, "", "10.0.0.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTitleHandler_FetchTitle_InvalidURL(t *testing.T) {
	h := newTitleTestHandler(ratelimit.New(10, time.Minute))

	rec := fetchTitleRequest(t, h, "ftp://example.com", "10.0.0.1")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTitleHandler_FetchTitle_RateLimited(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>ok</title></head></html>`))
	}))
	defer page.Close()

	now := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	h := newTitleTestHandler(ratelimit.NewWithClock(10, time.Minute, func() time.Time { return now }))

	for i := 0; i < 10; i++ {
		rec := fetchTitleRequest(t, h, page.URL, "10.0.0.1")
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := fetchTitleRequest(t, h, page.URL, "10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "60", rec.Header().Get("Retry-After"))

	// A different client keeps its own budget.
	rec = fetchTitleRequest(t, h, page.URL, "10.0.0.2")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestTitleHandler_FetchTitle_UnidentifiedClientsShareBucket(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><title>ok</title></head></html>`))
	}))
	defer page.Close()

	h := newTitleTestHandler(ratelimit.New(2, time.Minute))

	require.Equal(t, http.StatusOK, fetchTitleRequest(t, h, page.URL, "").Code)
	require.Equal(t, http.StatusOK, fetchTitleRequest(t, h, page.URL, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, fetchTitleRequest(t, h, page.URL, "").Code)
}
