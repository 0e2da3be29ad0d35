package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

func TestHasPermission(t *testing.T) {
	tests := []struct {
		name           string
		role           models.Role
		permission     Permission
		expectedResult bool
	}{
		{name: "admin can manage own tasks", role: models.RoleAdmin, permission: PermTasksOwn, expectedResult: true},
		{name: "admin can view report", role: models.RoleAdmin, permission: PermTasksReport, expectedResult: true},
		{name: "admin can list divisions", role: models.RoleAdmin, permission: PermDivisionsList, expectedResult: true},
		{name: "admin can list users", role: models.RoleAdmin, permission: PermUsersList, expectedResult: true},

		{name: "user can manage own tasks", role: models.RoleUser, permission: PermTasksOwn, expectedResult: true},
		{name: "user cannot view report", role: models.RoleUser, permission: PermTasksReport, expectedResult: false},
		{name: "user cannot list divisions", role: models.RoleUser, permission: PermDivisionsList, expectedResult: false},
		{name: "user cannot list users", role: models.RoleUser, permission: PermUsersList, expectedResult: false},

		{name: "unknown role has nothing", role: "GUEST", permission: PermTasksOwn, expectedResult: false},
		{name: "unknown permission", role: models.RoleAdmin, permission: "tasks:delete", expectedResult: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expectedResult, HasPermission(tt.role, tt.permission))
		})
	}
}

func TestRequirePermission(t *testing.T) {
	t.Run("no identity", func(t *testing.T) {
		err := RequirePermission(context.Background(), PermTasksOwn)
		require.ErrorIs(t, err, ErrUnauthenticated)
	})

	t.Run("user denied admin permission", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{UserID: 1, Role: models.RoleUser})
		err := RequirePermission(ctx, PermUsersList)
		require.ErrorIs(t, err, ErrForbidden)
	})

	t.Run("admin allowed", func(t *testing.T) {
		ctx := WithIdentity(context.Background(), &Identity{UserID: 1, Role: models.RoleAdmin})
		require.NoError(t, RequirePermission(ctx, PermUsersList))
	})
}

func TestScopeOwnTasks(t *testing.T) {
	identity := &Identity{UserID: 5, Role: models.RoleUser}

	t.Run("owner forced from identity", func(t *testing.T) {
		filter := ScopeOwnTasks(identity, store.TaskFilter{OwnerID: 99, Status: store.TaskStatusPending})
		require.Equal(t, int64(5), filter.OwnerID)
		require.Equal(t, store.TaskStatusPending, filter.Status)
	})

	t.Run("empty status means all", func(t *testing.T) {
		filter := ScopeOwnTasks(identity, store.TaskFilter{})
		require.Equal(t, store.TaskStatusAll, filter.Status)
	})
}

func TestScopeReport_NonAdminAlwaysForbidden(t *testing.T) {
	user := &Identity{UserID: 5, Role: models.RoleUser}

	requests := []ReportRequest{
		{},
		{DivisionID: "1"},
		{UserID: "5"},
		{Month: "2024-03"},
		{DivisionID: "1", UserID: "5", Month: "2024-03"},
		{DivisionID: "all", UserID: "all", Month: "all"},
		{DivisionID: "bogus", Month: "not-a-month"},
	}

	for _, req := range requests {
		_, err := ScopeReport(user, req)
		require.ErrorIs(t, err, ErrForbidden, "request %+v", req)
	}
}

func TestScopeReport_Admin(t *testing.T) {
	admin := &Identity{UserID: 1, Role: models.RoleAdmin}

	tests := []struct {
		name    string
		req     ReportRequest
		want    store.ReportFilter
		wantErr error
	}{
		{name: "no filters", req: ReportRequest{}, want: store.ReportFilter{}},
		{name: "all is no filter", req: ReportRequest{DivisionID: "all", UserID: "all", Month: "all"}, want: store.ReportFilter{}},
		{name: "division", req: ReportRequest{DivisionID: "3"}, want: store.ReportFilter{DivisionID: 3}},
		{name: "user wins over division", req: ReportRequest{DivisionID: "3", UserID: "9"}, want: store.ReportFilter{UserID: 9}},
		{name: "user ignores bad division", req: ReportRequest{DivisionID: "x", UserID: "9"}, want: store.ReportFilter{UserID: 9}},
		{
			name: "month",
			req:  ReportRequest{Month: "2024-03"},
			want: store.ReportFilter{Month: &store.Month{Year: 2024, Month: time.March}},
		},
		{name: "bad month", req: ReportRequest{Month: "2024-13"}, wantErr: store.ErrValidation},
		{name: "bad month format", req: ReportRequest{Month: "03/2024"}, wantErr: store.ErrValidation},
		{name: "bad division", req: ReportRequest{DivisionID: "abc"}, wantErr: store.ErrValidation},
		{name: "negative user", req: ReportRequest{UserID: "-1"}, wantErr: store.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ScopeReport(admin, tt.req)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestScopeReport_NoIdentity(t *testing.T) {
	_, err := ScopeReport(nil, ReportRequest{})
	require.ErrorIs(t, err, ErrUnauthenticated)
}
