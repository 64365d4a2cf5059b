package ports

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/weekplan/core/internal/domain/entities"
)

// TaskRepository defines the interface for task data operations.
type TaskRepository interface {
	Create(ctx context.Context, task *entities.Task) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*entities.Task, error)
	// Update applies a partial update. Only fields present in the update
	// change; the row's other columns are untouched.
	Update(ctx context.Context, userID, id uuid.UUID, update TaskUpdate) (*entities.Task, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
	// ListActive returns the user's non-archived tasks ordered by creation
	// time descending.
	ListActive(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]entities.Task, error)
	// ListArchived returns the user's archived tasks, newest archive first.
	ListArchived(ctx context.Context, userID uuid.UUID) ([]entities.Task, error)
}

// CommentRepository defines the interface for comment data operations.
type CommentRepository interface {
	Create(ctx context.Context, comment *entities.Comment) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Comment, error)
	ListByTask(ctx context.Context, taskID uuid.UUID) ([]entities.Comment, error)
	UpdateContent(ctx context.Context, id uuid.UUID, content string) (*entities.Comment, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

// SettingsRepository defines the interface for the per-user settings row.
type SettingsRepository interface {
	// GetByUser returns entities.ErrSettingsNotFound when no row exists yet.
	GetByUser(ctx context.Context, userID uuid.UUID) (*entities.UserSettings, error)
	Insert(ctx context.Context, settings *entities.UserSettings) error
	UpdatePreferences(ctx context.Context, id uuid.UUID, prefs entities.Preferences) (*entities.UserSettings, error)
}

// UserRepository defines the interface for user data operations.
type UserRepository interface {
	Create(ctx context.Context, user *entities.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.User, error)
	GetByEmail(ctx context.Context, email string) (*entities.User, error)
	GetByUsername(ctx context.Context, username string) (*entities.User, error)
	UpdateLastLogin(ctx context.Context, id uuid.UUID, at time.Time) error
}

// AuthRepository defines the interface for refresh token storage.
type AuthRepository interface {
	CreateRefreshToken(ctx context.Context, userID uuid.UUID, tokenHash string, expiresAt time.Time) error
	// RotateRefreshToken atomically revokes oldHash and stores newHash.
	RotateRefreshToken(ctx context.Context, oldHash string, userID uuid.UUID, newHash string, expiresAt time.Time) error
	GetRefreshToken(ctx context.Context, tokenHash string) (*RefreshToken, error)
	RevokeRefreshToken(ctx context.Context, tokenHash string) error
	RevokeAllUserTokens(ctx context.Context, userID uuid.UUID) error
	CleanupExpiredTokens(ctx context.Context) error
}

// ObjectStore is the storage sub-interface backing task attachments.
type ObjectStore interface {
	Upload(ctx context.Context, bucket, path string, data []byte) (string, error)
	PublicURL(bucket, path string) string
	SignedURL(bucket, path string, ttl time.Duration) (string, error)
	StripBase(reference, bucket string) (string, bool)
	Remove(ctx context.Context, bucket string, paths []string) error
}

// ScheduleChange describes a task_date transition. A nil Day moves the
// task to the unscheduled pool; otherwise the task lands on that calendar
// day and the derived week fields are recomputed from it.
type ScheduleChange struct {
	Day *time.Time
}

// TaskUpdate is a partial task update. Nil fields are left unchanged.
// Shallow-merge semantics: only provided keys change.
type TaskUpdate struct {
	Title       *string
	Description *string
	Status      *entities.TaskStatus
	Schedule    *ScheduleChange
	// Color set to the empty string clears the color.
	Color       *string
	RowIndex    *int
	Attachments *entities.AttachmentList
	Metadata    *entities.Metadata
}

// IsEmpty reports whether the update changes nothing.
func (u TaskUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Status == nil &&
		u.Schedule == nil && u.Color == nil && u.RowIndex == nil &&
		u.Attachments == nil && u.Metadata == nil
}

// Archives reports whether the update moves the task to the archive.
func (u TaskUpdate) Archives() bool {
	return u.Status != nil && *u.Status == entities.TaskStatusArchived
}

// TaskFilter narrows ListActive. Zero value lists everything active.
type TaskFilter struct {
	// Query matches title or description, case-insensitively.
	Query string
	// From/To bound task_date inclusively at day granularity.
	From *time.Time
	To   *time.Time
	// Unscheduled limits the listing to pool tasks (task_date IS NULL).
	Unscheduled bool
}

// RefreshToken represents a refresh token record.
type RefreshToken struct {
	ID        int        `json:"id" db:"id"`
	UserID    uuid.UUID  `json:"user_id" db:"user_id"`
	TokenHash string     `json:"token_hash" db:"token_hash"`
	ExpiresAt time.Time  `json:"expires_at" db:"expires_at"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	RevokedAt *time.Time `json:"revoked_at" db:"revoked_at"`
}

// IsExpired checks if the refresh token is expired.
func (rt *RefreshToken) IsExpired() bool {
	return time.Now().After(rt.ExpiresAt)
}

// IsRevoked checks if the refresh token is revoked.
func (rt *RefreshToken) IsRevoked() bool {
	return rt.RevokedAt != nil
}

// IsValid checks if the refresh token is valid.
func (rt *RefreshToken) IsValid() bool {
	return !rt.IsExpired() && !rt.IsRevoked()
}
