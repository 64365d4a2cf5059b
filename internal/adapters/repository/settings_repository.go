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

// SettingsRepositoryImpl implements the SettingsRepository interface
type SettingsRepositoryImpl struct {
	db *sqlx.DB
}

// NewSettingsRepository creates a new settings repository
func NewSettingsRepository(db *sqlx.DB) ports.SettingsRepository {
	return &SettingsRepositoryImpl{db: db}
}

func (r *SettingsRepositoryImpl) GetByUser(ctx context.Context, userID uuid.UUID) (*entities.UserSettings, error) {
	query := `
		SELECT id, user_id, preferences, created_at, updated_at
		FROM user_settings
		WHERE user_id = $1`

	var settings entities.UserSettings
	err := r.db.GetContext(ctx, &settings, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("get user settings: %w", err)
	}

	return &settings, nil
}

func (r *SettingsRepositoryImpl) Insert(ctx context.Context, settings *entities.UserSettings) error {
	query := `
		INSERT INTO user_settings (id, user_id, preferences)
		VALUES ($1, $2, $3)
		RETURNING created_at, updated_at`

	if settings.ID == uuid.Nil {
		settings.ID = uuid.New()
	}

	err := r.db.QueryRowContext(ctx, query,
		settings.ID, settings.UserID, settings.Preferences,
	).Scan(&settings.CreatedAt, &settings.UpdatedAt)

	if err != nil {
		return fmt.Errorf("insert user settings: %w", err)
	}

	return nil
}

func (r *SettingsRepositoryImpl) UpdatePreferences(ctx context.Context, id uuid.UUID, prefs entities.Preferences) (*entities.UserSettings, error) {
	query := `
		UPDATE user_settings
		SET preferences = $2, updated_at = CURRENT_TIMESTAMP
		WHERE id = $1
		RETURNING id, user_id, preferences, created_at, updated_at`

	var settings entities.UserSettings
	err := r.db.GetContext(ctx, &settings, query, id, prefs)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, entities.ErrSettingsNotFound
		}
		return nil, fmt.Errorf("update user settings: %w", err)
	}

	return &settings, nil
}
