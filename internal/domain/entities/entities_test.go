package entities

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTask_Schedule_SetsDerivedFields(t *testing.T) {
	task := &Task{Title: "write report"}

	// 2026-01-01 is a Thursday in ISO week 1.
	task.Schedule(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))

	require.NotNil(t, task.TaskDate)
	assert.Equal(t, Date("2026-01-01"), *task.TaskDate)
	require.NotNil(t, task.WeekNumber)
	assert.Equal(t, 1, *task.WeekNumber)
	require.NotNil(t, task.Year)
	assert.Equal(t, 2026, *task.Year)
	assert.True(t, task.DerivedFieldsConsistent())
}

func TestTask_Schedule_YearIsCalendarYear(t *testing.T) {
	task := &Task{Title: "year end"}

	// 2025-12-29 is a Monday belonging to ISO week 1 of 2026, but the
	// stored year follows the calendar date.
	task.Schedule(time.Date(2025, 12, 29, 0, 0, 0, 0, time.UTC))

	assert.Equal(t, 1, *task.WeekNumber)
	assert.Equal(t, 2025, *task.Year)
	assert.True(t, task.DerivedFieldsConsistent())
}

func TestTask_Unschedule_ClearsDerivedFields(t *testing.T) {
	task := &Task{Title: "pool me"}
	task.Schedule(time.Date(2026, 3, 4, 0, 0, 0, 0, time.UTC))

	task.Unschedule()

	assert.Nil(t, task.TaskDate)
	assert.Nil(t, task.WeekNumber)
	assert.Nil(t, task.Year)
	assert.False(t, task.Scheduled())
	assert.True(t, task.DerivedFieldsConsistent())
}

func TestTask_DerivedFieldsConsistent_DetectsDrift(t *testing.T) {
	date := Date("2026-03-04")
	week := 23 // wrong on purpose
	year := 2026
	task := &Task{Title: "drifted", TaskDate: &date, WeekNumber: &week, Year: &year}

	assert.False(t, task.DerivedFieldsConsistent())
}

func TestTask_DerivedFieldsConsistent_PartialCache(t *testing.T) {
	date := Date("2026-03-04")
	task := &Task{Title: "half set", TaskDate: &date}

	assert.False(t, task.DerivedFieldsConsistent())
}

func TestDate_ScanNormalizesWireForms(t *testing.T) {
	// lib/pq hands DATE columns back as time.Time; text columns arrive as
	// bytes. Both must land as the yyyy-MM-dd wire string.
	var fromTime Date
	require.NoError(t, fromTime.Scan(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, Date("2026-03-15"), fromTime)

	var fromBytes Date
	require.NoError(t, fromBytes.Scan([]byte("2026-03-15")))
	assert.Equal(t, Date("2026-03-15"), fromBytes)

	var fromString Date
	require.NoError(t, fromString.Scan("2026-03-15"))
	assert.Equal(t, Date("2026-03-15"), fromString)

	var d Date
	assert.Error(t, d.Scan(42))
}

func TestTask_Date_ParsesScannedDateColumn(t *testing.T) {
	var scanned Date
	require.NoError(t, scanned.Scan(time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)))

	// 2026-03-15 is the Sunday closing ISO week 11.
	week := 11
	year := 2026
	task := &Task{Title: "from the store", TaskDate: &scanned, WeekNumber: &week, Year: &year}

	day, ok := task.Date()
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), day)
	assert.True(t, task.DerivedFieldsConsistent())
}

func TestSanitizeTaskColor(t *testing.T) {
	valid := "#E6D5FF"
	invalid := "#123456"
	empty := ""

	assert.Equal(t, &valid, SanitizeTaskColor(&valid))
	assert.Nil(t, SanitizeTaskColor(&invalid))
	assert.Nil(t, SanitizeTaskColor(&empty))
	assert.Nil(t, SanitizeTaskColor(nil))
}

func TestSanitizeTaskColor_CaseInsensitive(t *testing.T) {
	lower := "#e6d5ff"
	assert.Equal(t, &lower, SanitizeTaskColor(&lower))
}

func TestTask_SanitizeColor_ReturnsRejected(t *testing.T) {
	bad := "magenta"
	task := &Task{Title: "colorful", Color: &bad}

	rejected := task.SanitizeColor()

	require.NotNil(t, rejected)
	assert.Equal(t, "magenta", *rejected)
	assert.Nil(t, task.Color)
}

func TestComment_IsEdited(t *testing.T) {
	created := time.Date(2026, 5, 1, 10, 0, 0, 0, time.UTC)

	fresh := &Comment{CreatedAt: created, UpdatedAt: created}
	assert.False(t, fresh.IsEdited())

	edited := &Comment{CreatedAt: created, UpdatedAt: created.Add(time.Minute)}
	assert.True(t, edited.IsEdited())
}

func TestDefaultPreferences(t *testing.T) {
	prefs := DefaultPreferences()

	assert.Equal(t, []string{"Mon", "Tue", "Wed", "Thu", "Fri"}, prefs["workDays"])
	assert.Equal(t, "system", prefs["theme"])
	assert.Equal(t, "Mon", prefs["weekStartDay"])
	assert.Equal(t, "24", prefs["timeFormat"])
}

func TestValidatePreference(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		value   interface{}
		wantErr bool
	}{
		{"valid theme", "theme", "dark", false},
		{"invalid theme", "theme", "solarized", true},
		{"theme wrong type", "theme", 42, true},
		{"valid week start", "weekStartDay", "Sun", false},
		{"invalid week start", "weekStartDay", "Wed", true},
		{"valid time format", "timeFormat", "12", false},
		{"invalid time format", "timeFormat", "25", true},
		{"valid work days", "workDays", []string{"Mon", "Wed", "Fri"}, false},
		{"work days from json", "workDays", []interface{}{"Mon", "Tue"}, false},
		{"empty work days", "workDays", []string{}, true},
		{"unknown day", "workDays", []string{"Funday"}, true},
		{"duplicate day", "workDays", []string{"Mon", "Mon"}, true},
		{"unknown key passes through", "sidebarWidth", 320, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidatePreference(tt.key, tt.value)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidPreference)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPreferences_Clone(t *testing.T) {
	original := Preferences{"theme": "dark"}
	clone := original.Clone()
	clone["theme"] = "light"

	assert.Equal(t, "dark", original["theme"])
}

func TestAttachmentList_ScanValue(t *testing.T) {
	list := AttachmentList{{Name: "notes.pdf", URL: "http://files/task_attachments/a/1.pdf"}}

	raw, err := list.Value()
	require.NoError(t, err)

	var scanned AttachmentList
	require.NoError(t, scanned.Scan(raw))
	assert.Equal(t, list, scanned)
}

func TestAttachmentList_NilValue(t *testing.T) {
	var list AttachmentList
	raw, err := list.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("[]"), raw)
}
