package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/taskbook/internal/store"
)

func TestBuildOwnQuery(t *testing.T) {
	tests := []struct {
		name     string
		status   store.TaskStatus
		contains string
		excludes string
	}{
		{name: "all", status: store.TaskStatusAll, excludes: "end_at IS"},
		{name: "pending", status: store.TaskStatusPending, contains: "AND end_at IS NULL"},
		{name: "completed", status: store.TaskStatusCompleted, contains: "AND end_at IS NOT NULL"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildOwnQuery(store.TaskFilter{OwnerID: 7, Status: tt.status})

			require.Contains(t, query, "WHERE owner_id = $1")
			require.Contains(t, query, "ORDER BY created_at DESC")
			require.Equal(t, []any{int64(7)}, args)
			if tt.contains != "" {
				require.Contains(t, query, tt.contains)
			}
			if tt.excludes != "" {
				require.NotContains(t, query, tt.excludes)
			}
		})
	}
}

func TestBuildReportQuery(t *testing.T) {
	march := &store.Month{Year: 2024, Month: time.March}

	tests := []struct {
		name     string
		filter   store.ReportFilter
		wantArgs []any
		contains []string
		excludes []string
	}{
		{
			name:     "no filters",
			filter:   store.ReportFilter{},
			wantArgs: nil,
			excludes: []string{"WHERE"},
		},
		{
			name:     "division",
			filter:   store.ReportFilter{DivisionID: 3},
			wantArgs: []any{int64(3)},
			contains: []string{"WHERE u.division_id = $1"},
		},
		{
			name:     "user takes precedence over division",
			filter:   store.ReportFilter{DivisionID: 3, UserID: 9},
			wantArgs: []any{int64(9)},
			contains: []string{"WHERE t.owner_id = $1"},
			excludes: []string{"division_id = $"},
		},
		{
			name:     "month only",
			filter:   store.ReportFilter{Month: march},
			wantArgs: []any{2024, 3},
			contains: []string{
				"EXTRACT(YEAR FROM t.start_at AT TIME ZONE 'UTC') = $1",
				"EXTRACT(MONTH FROM t.start_at AT TIME ZONE 'UTC') = $2",
			},
		},
		{
			name:     "division and month",
			filter:   store.ReportFilter{DivisionID: 3, Month: march},
			wantArgs: []any{int64(3), 2024, 3},
			contains: []string{"u.division_id = $1 AND EXTRACT(YEAR", "= $3"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			query, args := buildReportQuery(tt.filter)

			require.Equal(t, tt.wantArgs, args)
			require.Contains(t, query, "JOIN users u ON t.owner_id = u.id")
			require.Contains(t, query, "ORDER BY t.created_at DESC")
			for _, s := range tt.contains {
				require.Contains(t, query, s)
			}
			for _, s := range tt.excludes {
				require.NotContains(t, query, s)
			}
		})
	}
}
