package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wolfeidau/taskbook/internal/models"
)

// Sentinel errors for common error conditions
var (
	ErrValidation        = errors.New("validation failed")
	ErrTaskNotFound      = errors.New("task not found")
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
	ErrDivisionNotFound  = errors.New("division not found")
)

// TaskStatus filters a task listing by completion.
type TaskStatus string

const (
	TaskStatusAll       TaskStatus = "all"
	TaskStatusPending   TaskStatus = "pending"   // end_at IS NULL
	TaskStatusCompleted TaskStatus = "completed" // end_at IS NOT NULL
)

// ParseTaskStatus converts a query value into a TaskStatus, empty means all.
func ParseTaskStatus(s string) (TaskStatus, error) {
	switch TaskStatus(s) {
	case "", TaskStatusAll:
		return TaskStatusAll, nil
	case TaskStatusPending, TaskStatusCompleted:
		return TaskStatus(s), nil
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, s)
	}
}

// Matches reports whether a task passes the status filter.
func (s TaskStatus) Matches(t *models.Task) bool {
	switch s {
	case TaskStatusPending:
		return !t.Completed()
	case TaskStatusCompleted:
		return t.Completed()
	default:
		return true
	}
}

// TaskFilter is the effective scope for listing a user's own tasks.
// OwnerID is always set by the authorization layer, never by the caller.
type TaskFilter struct {
	OwnerID int64
	Status  TaskStatus
}

// ReportFilter is the effective scope for the admin report.
// Zero values mean "no filter". When UserID is set DivisionID is ignored.
type ReportFilter struct {
	DivisionID int64
	UserID     int64
	Month      *Month
}

// Month is a calendar month used to filter tasks by their start timestamp.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a YYYY-MM string.
func ParseMonth(s string) (*Month, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return nil, fmt.Errorf("%w: month must be YYYY-MM: %q", ErrValidation, s)
	}
	return &Month{Year: t.Year(), Month: t.Month()}, nil
}

// Contains reports whether t falls in the calendar month, compared in UTC.
func (m Month) Contains(t time.Time) bool {
	t = t.UTC()
	return t.Year() == m.Year && t.Month() == m.Month
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// TaskStore defines the interface for task storage operations
type TaskStore interface {
	// ListOwn returns the tasks matching the filter, most recently created first.
	ListOwn(ctx context.Context, filter TaskFilter) ([]*models.Task, error)

	// ListReport returns tasks across all users joined with owner and division names,
	// most recently created first. There is no pagination.
	ListReport(ctx context.Context, filter ReportFilter) ([]*models.ReportTask, error)

	// Create validates the fields and inserts a task owned by ownerID.
	// Returns ErrValidation if a required field is missing, nothing is persisted in that case.
	Create(ctx context.Context, ownerID int64, fields models.TaskFields) (*models.Task, error)

	// Update replaces the fields of a task only if it is owned by ownerID.
	// Returns ErrTaskNotFound both when the task does not exist and when it belongs to
	// someone else, callers must not be able to tell the two apart.
	Update(ctx context.Context, taskID, ownerID int64, fields models.TaskFields) (*models.Task, error)
}

// ValidateFields normalizes and validates task fields, wrapping failures in ErrValidation.
func ValidateFields(fields *models.TaskFields) error {
	fields.Normalize()
	if err := fields.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrValidation, err)
	}
	return nil
}
