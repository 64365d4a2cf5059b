package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/weekplan/core/internal/application/services"
	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ratelimit"
)

// TitleHandler proxies page-title lookups for pasted URLs, behind a
// per-client sliding window. The identifier is the forwarded client
// address; requests without one share the unknown bucket.
type TitleHandler struct {
	titleService *services.TitleService
	limiter      *ratelimit.Limiter
	logger       *logger.Logger
}

// NewTitleHandler creates a new title handler
func NewTitleHandler(titleService *services.TitleService, limiter *ratelimit.Limiter, logger *logger.Logger) *TitleHandler {
	return &TitleHandler{
		titleService: titleService,
		limiter:      limiter,
		logger:       logger,
	}
}

// FetchTitle resolves the <title> of the page at the url query parameter
func (h *TitleHandler) FetchTitle(c echo.Context) error {
	rawURL := c.QueryParam("url")
	if rawURL == "" {
		return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "url parameter is required"})
	}

	client := c.Request().Header.Get("X-Forwarded-For")
	if client == "" {
		client = ratelimit.UnknownClient
	}

	if !h.limiter.Allow(client) {
		retryAfter := int(h.limiter.RetryAfter().Seconds())
		c.Response().Header().Set("Retry-After", strconv.Itoa(retryAfter))
		return c.JSON(http.StatusTooManyRequests, ErrorResponse{Error: "rate limit exceeded"})
	}

	title, err := h.titleService.FetchTitle(c.Request().Context(), rawURL)
	if err != nil {
		if errors.Is(err, entities.ErrInvalidURL) {
			return c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid url"})
		}
		h.logger.Warn("Title fetch failed", "url", rawURL, "error", err)
		return c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "failed to fetch title"})
	}

	return c.JSON(http.StatusOK, map[string]string{"title": title})
}
