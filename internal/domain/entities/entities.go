package entities

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrTaskNotFound       = errors.New("task not found")
	ErrCommentNotFound    = errors.New("comment not found")
	ErrSettingsNotFound   = errors.New("settings not found")
	ErrUserNotFound       = errors.New("user not found")
	ErrAuthRequired       = errors.New("authentication required")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrEmptyTitle         = errors.New("task title must not be empty")
	ErrEmptyComment       = errors.New("comment content must not be empty")
	ErrInvalidStatus      = errors.New("invalid status")
	ErrInvalidDate        = errors.New("invalid task date")
	ErrInvalidPreference  = errors.New("invalid preference value")
	ErrTaskNotArchived    = errors.New("task is not archived")
	ErrAttachmentNotFound = errors.New("attachment not found")
	ErrInvalidURL         = errors.New("invalid url")
	ErrRateLimited        = errors.New("rate limited")
)

// DateLayout is the calendar-date wire format for task_date.
const DateLayout = "2006-01-02"

// Date is a calendar day carried as its yyyy-MM-dd string. Postgres hands
// DATE columns back as time.Time through lib/pq; Scan normalizes that and
// the text forms to the wire format so the rest of the code only ever sees
// yyyy-MM-dd.
type Date string

func (d Date) Value() (driver.Value, error) {
	return string(d), nil
}

func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = Date(v.Format(DateLayout))
	case []byte:
		*d = Date(v)
	case string:
		*d = Date(v)
	default:
		return fmt.Errorf("cannot scan %T into date", src)
	}
	return nil
}

// NewTaskHighlight is how long a freshly created task keeps its "new" flag
// in the board collection. Presentation only, never persisted.
const NewTaskHighlight = 5 * time.Second

type TaskStatus string

const (
	TaskStatusTodo      TaskStatus = "todo"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusArchived  TaskStatus = "archived"
)

func (ts TaskStatus) IsValid() bool {
	switch ts {
	case TaskStatusTodo, TaskStatusCompleted, TaskStatusArchived:
		return true
	default:
		return false
	}
}

// TaskColors is the fixed palette. Any color outside this set is sanitized
// to absent on load rather than rejecting the record.
var TaskColors = map[string]string{
	"purple": "#E6D5FF",
	"blue":   "#D5E6FF",
	"green":  "#D5FFE6",
	"yellow": "#FFF3D5",
	"red":    "#FFD5D5",
	"pink":   "#FFD5F0",
	"orange": "#FFE6D5",
	"gray":   "#E6E6E6",
}

// ValidTaskColor reports whether the value is one of the palette hex codes.
// An absent color is always valid.
func ValidTaskColor(color *string) bool {
	if color == nil || *color == "" {
		return true
	}
	for _, hex := range TaskColors {
		if strings.EqualFold(*color, hex) {
			return true
		}
	}
	return false
}

// SanitizeTaskColor returns the color unchanged when it belongs to the
// palette and nil otherwise.
func SanitizeTaskColor(color *string) *string {
	if color == nil || *color == "" {
		return nil
	}
	if ValidTaskColor(color) {
		return color
	}
	return nil
}

// Attachment is a stored file reference. URL is the durable storage
// reference; signed URLs are derived on demand and never persisted.
type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
}

// AttachmentList is stored as a jsonb column.
type AttachmentList []Attachment

func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a)
}

func (a *AttachmentList) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// Metadata is a free-form extension bag on a task, stored as jsonb. The
// title fetcher caches results here (urlTitle, originalUrl, urlFetchedAt)
// so the task's own title is never overwritten.
type Metadata map[string]interface{}

func (m Metadata) Value() (driver.Value, error) {
	if m == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(m)
}

func (m *Metadata) Scan(src interface{}) error {
	return scanJSON(src, m)
}

func scanJSON(src, dest interface{}) error {
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		return json.Unmarshal(v, dest)
	case string:
		return json.Unmarshal([]byte(v), dest)
	default:
		return fmt.Errorf("cannot scan %T into json value", src)
	}
}

// Task represents a task on the weekly board or in the unscheduled pool.
// TaskDate is nil for unscheduled tasks; WeekNumber and Year are a derived
// cache of the ISO week of TaskDate and are nil exactly when TaskDate is.
type Task struct {
	ID          uuid.UUID      `json:"id" db:"id"`
	Title       string         `json:"title" db:"title"`
	Description *string        `json:"description" db:"description"`
	Status      TaskStatus     `json:"status" db:"status"`
	TaskDate    *Date          `json:"task_date" db:"task_date"`
	WeekNumber  *int           `json:"week_number" db:"week_number"`
	Year        *int           `json:"year" db:"year"`
	Color       *string        `json:"color" db:"color"`
	RowIndex    *int           `json:"row_index" db:"row_index"`
	UserID      uuid.UUID      `json:"user_id" db:"user_id"`
	Attachments AttachmentList `json:"attachments" db:"attachments"`
	Metadata    Metadata       `json:"metadata" db:"metadata"`
	CreatedAt   time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" db:"updated_at"`
	ArchivedAt  *time.Time     `json:"archived_at" db:"archived_at"`

	Comments []Comment `json:"comments,omitempty"`
}

// Scheduled reports whether the task sits on a calendar day.
func (t *Task) Scheduled() bool {
	return t.TaskDate != nil && *t.TaskDate != ""
}

// Date returns the task's calendar day, stripped of time of day.
func (t *Task) Date() (time.Time, bool) {
	if !t.Scheduled() {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, string(*t.TaskDate))
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}

// Schedule places the task on the given day and recomputes the derived
// week fields. task_date and its cache only ever change together here,
// keeping the derived-field invariant in one place.
func (t *Task) Schedule(day time.Time) {
	date := Date(day.Format(DateLayout))
	_, week := day.ISOWeek()
	year := day.Year()
	t.TaskDate = &date
	t.WeekNumber = &week
	t.Year = &year
}

// Unschedule moves the task to the pool, clearing the derived cache.
func (t *Task) Unschedule() {
	t.TaskDate = nil
	t.WeekNumber = nil
	t.Year = nil
}

// SanitizeColor drops a color that is not in the palette. Returns the
// rejected value so callers can log it.
func (t *Task) SanitizeColor() (rejected *string) {
	if !ValidTaskColor(t.Color) {
		rejected = t.Color
		t.Color = nil
	}
	return rejected
}

// DerivedFieldsConsistent verifies task_date == nil ⇔ week_number == nil ⇔
// year == nil, and that a set cache agrees with the date.
func (t *Task) DerivedFieldsConsistent() bool {
	if !t.Scheduled() {
		return t.WeekNumber == nil && t.Year == nil
	}
	if t.WeekNumber == nil || t.Year == nil {
		return false
	}
	day, ok := t.Date()
	if !ok {
		return false
	}
	_, week := day.ISOWeek()
	return *t.WeekNumber == week && *t.Year == day.Year()
}

func (t *Task) IsArchived() bool {
	return t.Status == TaskStatusArchived
}

// Comment belongs to exactly one task. UpdatedAt differing from CreatedAt
// signals an edited comment.
type Comment struct {
	ID        uuid.UUID `json:"id" db:"id"`
	TaskID    uuid.UUID `json:"task_id" db:"task_id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Content   string    `json:"content" db:"content"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

func (c *Comment) IsEdited() bool {
	return !c.UpdatedAt.Equal(c.CreatedAt)
}

// WeekDays are the preference tokens accepted in workDays, Monday first.
var WeekDays = []string{"Mon", "Tue", "Wed", "Thu", "Fri", "Sat", "Sun"}

// Preferences is the per-user preference bag stored in the jsonb
// preferences column. Unknown keys pass through untouched.
type Preferences map[string]interface{}

func (p Preferences) Value() (driver.Value, error) {
	if p == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(p)
}

func (p *Preferences) Scan(src interface{}) error {
	return scanJSON(src, p)
}

// Clone returns a shallow copy so read-modify-write cycles never mutate a
// caller's view of the preferences.
func (p Preferences) Clone() Preferences {
	out := make(Preferences, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}

// DefaultPreferences returns the client-side defaults applied when no
// settings record exists yet. Not persisted until the first write.
func DefaultPreferences() Preferences {
	return Preferences{
		"workDays":     []string{"Mon", "Tue", "Wed", "Thu", "Fri"},
		"theme":        "system",
		"weekStartDay": "Mon",
		"timeFormat":   "24",
	}
}

// ValidatePreference checks the value for the known preference keys.
// Unknown keys are accepted as-is.
func ValidatePreference(key string, value interface{}) error {
	switch key {
	case "theme":
		return oneOf(value, "light", "dark", "system")
	case "weekStartDay":
		return oneOf(value, "Mon", "Sun")
	case "timeFormat":
		return oneOf(value, "12", "24")
	case "workDays":
		days, err := toStringSlice(value)
		if err != nil {
			return err
		}
		if len(days) == 0 || len(days) > len(WeekDays) {
			return fmt.Errorf("%w: workDays must name between 1 and 7 days", ErrInvalidPreference)
		}
		seen := make(map[string]bool, len(days))
		for _, day := range days {
			if !validWeekDay(day) {
				return fmt.Errorf("%w: unknown day %q", ErrInvalidPreference, day)
			}
			if seen[day] {
				return fmt.Errorf("%w: duplicate day %q", ErrInvalidPreference, day)
			}
			seen[day] = true
		}
		return nil
	default:
		return nil
	}
}

func oneOf(value interface{}, allowed ...string) error {
	s, ok := value.(string)
	if !ok {
		return fmt.Errorf("%w: expected string", ErrInvalidPreference)
	}
	for _, a := range allowed {
		if s == a {
			return nil
		}
	}
	return fmt.Errorf("%w: %q not in %v", ErrInvalidPreference, s, allowed)
}

func toStringSlice(value interface{}) ([]string, error) {
	switch v := value.(type) {
	case []string:
		return v, nil
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%w: expected string list", ErrInvalidPreference)
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: expected string list", ErrInvalidPreference)
	}
}

func validWeekDay(day string) bool {
	for _, d := range WeekDays {
		if d == day {
			return true
		}
	}
	return false
}

// UserSettings is the single settings record per user.
type UserSettings struct {
	ID          uuid.UUID   `json:"id" db:"id"`
	UserID      uuid.UUID   `json:"user_id" db:"user_id"`
	Preferences Preferences `json:"preferences" db:"preferences"`
	CreatedAt   time.Time   `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time   `json:"updated_at" db:"updated_at"`
}

// User owns tasks, comments and settings. Session absence gates task
// creation and route access.
type User struct {
	ID           uuid.UUID  `json:"id" db:"id"`
	Email        string     `json:"email" db:"email"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"`
	IsActive     bool       `json:"is_active" db:"is_active"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
	LastLoginAt  *time.Time `json:"last_login_at" db:"last_login_at"`
}
