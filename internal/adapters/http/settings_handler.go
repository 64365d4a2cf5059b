package http

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/weekplan/core/internal/application/services"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// SettingsHandler handles user preference requests
type SettingsHandler struct {
	settingsService *services.SettingsService
	logger          *logger.Logger
}

// NewSettingsHandler creates a new settings handler
func NewSettingsHandler(settingsService *services.SettingsService, logger *logger.Logger) *SettingsHandler {
	return &SettingsHandler{
		settingsService: settingsService,
		logger:          logger,
	}
}

// GetSettings returns the user's preferences, falling back to defaults
// when nothing has been saved yet
func (h *SettingsHandler) GetSettings(c echo.Context) error {
	userID := getUserIDFromContext(c)

	prefs, err := h.settingsService.Get(c.Request().Context(), userID)
	if err != nil {
		h.logger.Error("Get settings failed", "error", err, "user_id", userID)
		return domainError(err, "Failed to retrieve settings")
	}

	return c.JSON(http.StatusOK, prefs)
}

// UpdatePreference sets a single preference key in its own round trip
func (h *SettingsHandler) UpdatePreference(c echo.Context) error {
	userID := getUserIDFromContext(c)
	key := c.Param("key")
	if key == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing preference key")
	}

	var req ports.UpdatePreferenceRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	prefs, err := h.settingsService.UpdatePreference(c.Request().Context(), userID, key, req.Value)
	if err != nil {
		h.logger.Error("Update preference failed", "error", err, "user_id", userID, "key", key)
		return domainError(err, "Failed to update preference")
	}

	return c.JSON(http.StatusOK, prefs)
}

// SaveSettings writes every provided key sequentially. A failure partway
// leaves earlier keys saved; the response reflects what actually stuck.
func (h *SettingsHandler) SaveSettings(c echo.Context) error {
	userID := getUserIDFromContext(c)

	var req ports.SavePreferencesRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	prefs, err := h.settingsService.Save(c.Request().Context(), userID, req.Preferences)
	if err != nil {
		h.logger.Error("Save settings failed", "error", err, "user_id", userID)
		return domainError(err, "Failed to save settings")
	}

	return c.JSON(http.StatusOK, prefs)
}
