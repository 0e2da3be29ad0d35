package models

import (
	"errors"
	"strings"
	"time"
)

// ErrInvalidTask is returned by TaskFields.Validate when a required field is missing.
var ErrInvalidTask = errors.New("invalid task")

// Task is a unit of daily work recorded by its owner.
// A task is completed when EndAt is set, there is no separate status flag.
type Task struct {
	ID          int64      `json:"id"`
	OwnerID     int64      `json:"ownerId"`
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartAt     time.Time  `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	Result      *string    `json:"result"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Completed returns true if the task has an end timestamp.
func (t *Task) Completed() bool {
	return t.EndAt != nil
}

// ReportTask is a task joined with its owner and division for the admin report.
type ReportTask struct {
	ID           int64      `json:"id"`
	OwnerID      int64      `json:"ownerId"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Result       *string    `json:"result"`
	StartAt      time.Time  `json:"startAt"`
	EndAt        *time.Time `json:"endAt"`
	OwnerName    string     `json:"ownerName"`
	DivisionName string     `json:"divisionName"`
	CreatedAt    time.Time  `json:"createdAt"`
}

// TaskFields holds the caller supplied fields used to create or update a task.
type TaskFields struct {
	Name        string     `json:"name"`
	Description string     `json:"description"`
	StartAt     *time.Time `json:"startAt"`
	EndAt       *time.Time `json:"endAt"`
	Result      *string    `json:"result"`
}

// Normalize trims the text fields and turns an empty result into nil.
func (f *TaskFields) Normalize() {
	f.Name = strings.TrimSpace(f.Name)
	f.Description = strings.TrimSpace(f.Description)
	if f.Result != nil && strings.TrimSpace(*f.Result) == "" {
		f.Result = nil
	}
}

// Validate checks that name, description and start are present and that
// the task does not end before it starts.
func (f *TaskFields) Validate() error {
	var missing []string
	if f.Name == "" {
		missing = append(missing, "name")
	}
	if f.Description == "" {
		missing = append(missing, "description")
	}
	if f.StartAt == nil || f.StartAt.IsZero() {
		missing = append(missing, "startAt")
	}
	if len(missing) > 0 {
		return &FieldError{Fields: missing}
	}

	if f.EndAt != nil && f.EndAt.Before(*f.StartAt) {
		return &FieldError{Fields: []string{"endAt"}, Reason: "must not be before startAt"}
	}

	return nil
}

// FieldError describes which task fields failed validation.
type FieldError struct {
	Fields []string
	Reason string
}

func (e *FieldError) Error() string {
	if e.Reason != "" {
		return "invalid task: " + strings.Join(e.Fields, ", ") + " " + e.Reason
	}
	return "missing required fields: " + strings.Join(e.Fields, ", ")
}

func (e *FieldError) Unwrap() error {
	return ErrInvalidTask
}
