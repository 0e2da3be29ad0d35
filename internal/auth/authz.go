package auth

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var (
	// ErrUnauthenticated means no valid session accompanied the request.
	ErrUnauthenticated = errors.New("not authenticated")

	// ErrForbidden means the session is valid but the role does not allow the action.
	ErrForbidden = errors.New("permission denied")
)

// Permission represents an authorized action
type Permission string

const (
	PermTasksOwn      Permission = "tasks:own"
	PermTasksReport   Permission = "tasks:report"
	PermDivisionsList Permission = "divisions:list"
	PermUsersList     Permission = "users:list"
)

// RolePermissions maps roles to allowed permissions
var RolePermissions = map[models.Role][]Permission{
	models.RoleAdmin: {
		PermTasksOwn,
		PermTasksReport,
		PermDivisionsList,
		PermUsersList,
	},
	models.RoleUser: {
		PermTasksOwn,
	},
}

// HasPermission checks if a role has a specific permission
func HasPermission(role models.Role, perm Permission) bool {
	perms, ok := RolePermissions[role]
	if !ok {
		return false
	}
	return slices.Contains(perms, perm)
}

// RequirePermission checks authorization and returns an error if not authorized
func RequirePermission(ctx context.Context, perm Permission) error {
	identity, ok := IdentityFromContext(ctx)
	if !ok {
		return ErrUnauthenticated
	}

	if !HasPermission(identity.Role, perm) {
		return fmt.Errorf("%w: %s requires %s", ErrForbidden, identity.Role, perm)
	}

	return nil
}

// ScopeOwnTasks returns the effective filter for listing the caller's tasks.
// The owner always comes from the identity, only the status filter is taken from the request.
func ScopeOwnTasks(identity *Identity, requested store.TaskFilter) store.TaskFilter {
	status := requested.Status
	if status == "" {
		status = store.TaskStatusAll
	}
	return store.TaskFilter{
		OwnerID: identity.UserID,
		Status:  status,
	}
}

// ReportRequest holds the raw admin report filters as supplied by the caller.
// Each field is empty or "all" when not filtering.
type ReportRequest struct {
	DivisionID string
	UserID     string
	Month      string
}

// ScopeReport checks that identity may see the report and turns the request into a filter.
// Non admins get ErrForbidden whatever the filters are. A user filter replaces a division filter.
func ScopeReport(identity *Identity, req ReportRequest) (store.ReportFilter, error) {
	if identity == nil {
		return store.ReportFilter{}, ErrUnauthenticated
	}
	if !HasPermission(identity.Role, PermTasksReport) {
		return store.ReportFilter{}, fmt.Errorf("%w: %s requires %s", ErrForbidden, identity.Role, PermTasksReport)
	}

	var filter store.ReportFilter

	userID, err := parseFilterID("userId", req.UserID)
	if err != nil {
		return store.ReportFilter{}, err
	}

	if userID != 0 {
		filter.UserID = userID
	} else {
		filter.DivisionID, err = parseFilterID("divisionId", req.DivisionID)
		if err != nil {
			return store.ReportFilter{}, err
		}
	}

	if !isUnset(req.Month) {
		filter.Month, err = store.ParseMonth(req.Month)
		if err != nil {
			return store.ReportFilter{}, err
		}
	}

	return filter, nil
}

// ParseID parses a positive integer identifier, failures wrap store.ErrValidation.
func ParseID(name, value string) (int64, error) {
	id, err := strconv.ParseInt(value, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: %s must be a positive integer: %q", store.ErrValidation, name, value)
	}
	return id, nil
}

func parseFilterID(name, value string) (int64, error) {
	if isUnset(value) {
		return 0, nil
	}
	return ParseID(name, value)
}

func isUnset(value string) bool {
	return value == "" || value == "all"
}
