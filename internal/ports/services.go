package ports

import (
	"encoding/json"

	"github.com/weekplan/core/internal/domain/entities"
)

// PoolDestination is the sentinel drop target meaning "unscheduled".
const PoolDestination = "task-pool"

// Claims carries the authenticated identity extracted from a token.
type Claims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
}

// RegisterRequest is the payload for account creation.
type RegisterRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Username string `json:"username" validate:"required,min=3,max=32"`
	Password string `json:"password" validate:"required,min=8"`
}

// LoginRequest is the payload for authentication.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthResponse is returned from register, login and refresh.
type AuthResponse struct {
	AccessToken  string         `json:"access_token"`
	RefreshToken string         `json:"refresh_token"`
	TokenType    string         `json:"token_type"`
	ExpiresIn    int64          `json:"expires_in"`
	User         *entities.User `json:"user"`
}

// CreateTaskRequest is the payload for task creation. TaskDate is optional;
// when present the derived week fields are computed server-side, never
// trusted from the client.
type CreateTaskRequest struct {
	Title       string  `json:"title" validate:"required"`
	Description *string `json:"description"`
	Status      string  `json:"status" validate:"omitempty,oneof=todo completed"`
	TaskDate    *string `json:"task_date"`
	Color       *string `json:"color"`
	RowIndex    *int    `json:"row_index"`
}

// UpdateTaskRequest is a partial task update. TaskDate is raw so the
// handler can tell an absent key (no change) from an explicit null
// (move to pool).
type UpdateTaskRequest struct {
	Title       *string                  `json:"title"`
	Description *string                  `json:"description"`
	Status      *string                  `json:"status" validate:"omitempty,oneof=todo completed archived"`
	TaskDate    json.RawMessage          `json:"task_date"`
	Color       *string                  `json:"color"`
	RowIndex    *int                     `json:"row_index"`
	Attachments *entities.AttachmentList `json:"attachments"`
	Metadata    *entities.Metadata       `json:"metadata"`
}

// MoveTaskRequest carries a drop destination: a yyyy-MM-dd token or the
// pool sentinel.
type MoveTaskRequest struct {
	Destination string `json:"destination" validate:"required"`
}

// CreateCommentRequest is the payload for adding a comment to a task.
type CreateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// UpdateCommentRequest edits a comment's content.
type UpdateCommentRequest struct {
	Content string `json:"content" validate:"required"`
}

// UpdatePreferenceRequest sets a single preference key.
type UpdatePreferenceRequest struct {
	Value interface{} `json:"value"`
}

// SavePreferencesRequest is the settings-form save: every provided key is
// written in its own round trip, sequentially. Not transactional.
type SavePreferencesRequest struct {
	Preferences entities.Preferences `json:"preferences" validate:"required"`
}
