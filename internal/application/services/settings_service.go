package services

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/weekplan/core/internal/domain/entities"
	"github.com/weekplan/core/internal/infrastructure/logger"
	"github.com/weekplan/core/internal/ports"
)

// SettingsService reads and writes the per-user preference record.
// Defaults apply client-side until the first write creates the row.
type SettingsService struct {
	settingsRepo ports.SettingsRepository
	logger       *logger.Logger
}

// NewSettingsService creates a new settings service
func NewSettingsService(settingsRepo ports.SettingsRepository, logger *logger.Logger) *SettingsService {
	return &SettingsService{
		settingsRepo: settingsRepo,
		logger:       logger,
	}
}

// Get returns the user's preferences, falling back to defaults when no
// record exists yet. The fallback is transient: nothing is persisted.
func (s *SettingsService) Get(ctx context.Context, userID uuid.UUID) (entities.Preferences, error) {
	settings, err := s.settingsRepo.GetByUser(ctx, userID)
	if err != nil {
		if err == entities.ErrSettingsNotFound {
			return entities.DefaultPreferences(), nil
		}
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	// Backfill defaults for keys the stored record predates.
	prefs := entities.DefaultPreferences()
	for k, v := range settings.Preferences {
		prefs[k] = v
	}
	return prefs, nil
}

// UpdatePreference sets a single key via read-modify-write: fetch the
// existing record, shallow-merge the one changed key, write back. The
// first write creates the record seeded with defaults.
func (s *SettingsService) UpdatePreference(ctx context.Context, userID uuid.UUID, key string, value interface{}) (entities.Preferences, error) {
	if err := entities.ValidatePreference(key, value); err != nil {
		return nil, err
	}

	existing, err := s.settingsRepo.GetByUser(ctx, userID)
	if err != nil && err != entities.ErrSettingsNotFound {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}

	if existing == nil {
		prefs := entities.DefaultPreferences()
		prefs[key] = value
		settings := &entities.UserSettings{
			UserID:      userID,
			Preferences: prefs,
		}
		if err := s.settingsRepo.Insert(ctx, settings); err != nil {
			return nil, fmt.Errorf("failed to create settings: %w", err)
		}
		s.logger.Info("Settings created", "user_id", userID, "key", key)
		return settings.Preferences, nil
	}

	prefs := existing.Preferences.Clone()
	prefs[key] = value

	updated, err := s.settingsRepo.UpdatePreferences(ctx, existing.ID, prefs)
	if err != nil {
		return nil, fmt.Errorf("failed to update settings: %w", err)
	}

	s.logger.Info("Setting updated", "user_id", userID, "key", key)
	return updated.Preferences, nil
}

// Save writes every provided key in its own round trip, sequentially.
// Not transactional: a failure on key N leaves keys 1..N-1 committed and
// reports which key failed.
func (s *SettingsService) Save(ctx context.Context, userID uuid.UUID, prefs entities.Preferences) (entities.Preferences, error) {
	var latest entities.Preferences
	var err error
	for _, key := range orderedKeys(prefs) {
		latest, err = s.UpdatePreference(ctx, userID, key, prefs[key])
		if err != nil {
			return nil, fmt.Errorf("save setting %q: %w", key, err)
		}
	}
	if latest == nil {
		return s.Get(ctx, userID)
	}
	return latest, nil
}

// orderedKeys keeps the well-known keys first so a partial failure is at
// least deterministic.
func orderedKeys(prefs entities.Preferences) []string {
	known := []string{"workDays", "theme", "weekStartDay", "timeFormat"}
	keys := make([]string, 0, len(prefs))
	for _, k := range known {
		if _, ok := prefs[k]; ok {
			keys = append(keys, k)
		}
	}
	for k := range prefs {
		if !contains(known, k) {
			keys = append(keys, k)
		}
	}
	return keys
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}
