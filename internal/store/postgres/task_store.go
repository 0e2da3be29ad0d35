package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var _ store.TaskStore = (*TaskStore)(nil)

const taskColumns = `id, owner_id, name, description, start_at, end_at, result, created_at, updated_at`

// TaskStore implements store.TaskStore using PostgreSQL.
// Every method runs exactly one statement on a connection acquired for that call.
type TaskStore struct {
	pool *pgxpool.Pool
	cfg  StoreConfig
}

// NewTaskStore creates a new PostgreSQL-backed task store.
// It shares the connection pool with other stores.
func NewTaskStore(pool *pgxpool.Pool, cfg StoreConfig) *TaskStore {
	cfg.ApplyDefaults()
	return &TaskStore{
		pool: pool,
		cfg:  cfg,
	}
}

// ListOwn returns the tasks owned by filter.OwnerID, most recently created first.
func (s *TaskStore) ListOwn(ctx context.Context, filter store.TaskFilter) ([]*models.Task, error) {
	query, args := buildOwnQuery(filter)

	var tasks []*models.Task
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return mapPostgresError(err)
		}
		defer rows.Close()

		tasks = []*models.Task{}
		for rows.Next() {
			task, err := scanTask(rows)
			if err != nil {
				return fmt.Errorf("failed to scan task: %w", err)
			}
			tasks = append(tasks, task)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating tasks: %w", mapPostgresError(err))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, nil
}

// ListReport returns tasks across all users joined with owner and division names.
func (s *TaskStore) ListReport(ctx context.Context, filter store.ReportFilter) ([]*models.ReportTask, error) {
	query, args := buildReportQuery(filter)

	var rowsOut []*models.ReportTask
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, query, args...)
		if err != nil {
			return mapPostgresError(err)
		}
		defer rows.Close()

		rowsOut = []*models.ReportTask{}
		for rows.Next() {
			var r models.ReportTask
			err := rows.Scan(
				&r.ID,
				&r.OwnerID,
				&r.Name,
				&r.Description,
				&r.Result,
				&r.StartAt,
				&r.EndAt,
				&r.CreatedAt,
				&r.OwnerName,
				&r.DivisionName,
			)
			if err != nil {
				return fmt.Errorf("failed to scan report row: %w", err)
			}
			rowsOut = append(rowsOut, &r)
		}

		if err := rows.Err(); err != nil {
			return fmt.Errorf("error iterating report rows: %w", mapPostgresError(err))
		}

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list report: %w", err)
	}

	return rowsOut, nil
}

// Create inserts a new task owned by ownerID.
func (s *TaskStore) Create(ctx context.Context, ownerID int64, fields models.TaskFields) (*models.Task, error) {
	if err := store.ValidateFields(&fields); err != nil {
		return nil, err
	}

	query := `
		INSERT INTO tasks (owner_id, name, description, start_at, end_at, result)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + taskColumns

	var task *models.Task
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		var err error
		task, err = scanTask(conn.QueryRow(ctx, query,
			ownerID,
			fields.Name,
			fields.Description,
			*fields.StartAt,
			fields.EndAt,
			fields.Result,
		))
		return mapPostgresError(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	log.Debug().
		Int64("task_id", task.ID).
		Int64("owner_id", ownerID).
		Msg("Created task")

	return task, nil
}

// Update replaces the fields of a task. The ownership check is part of the
// WHERE clause, a task owned by someone else is reported as ErrTaskNotFound.
func (s *TaskStore) Update(ctx context.Context, taskID, ownerID int64, fields models.TaskFields) (*models.Task, error) {
	if err := store.ValidateFields(&fields); err != nil {
		return nil, err
	}

	query := `
		UPDATE tasks SET
			name = $1,
			description = $2,
			start_at = $3,
			end_at = $4,
			result = $5,
			updated_at = NOW()
		WHERE id = $6 AND owner_id = $7
		RETURNING ` + taskColumns

	var task *models.Task
	err := withConn(ctx, s.pool, s.cfg.queryTimeout(), func(ctx context.Context, conn *pgxpool.Conn) error {
		var err error
		task, err = scanTask(conn.QueryRow(ctx, query,
			fields.Name,
			fields.Description,
			*fields.StartAt,
			fields.EndAt,
			fields.Result,
			taskID,
			ownerID,
		))
		if errors.Is(err, pgx.ErrNoRows) {
			return store.ErrTaskNotFound
		}
		return mapPostgresError(err)
	})
	if err != nil {
		if errors.Is(err, store.ErrTaskNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	log.Debug().
		Int64("task_id", task.ID).
		Int64("owner_id", ownerID).
		Msg("Updated task")

	return task, nil
}

func scanTask(row pgx.Row) (*models.Task, error) {
	var task models.Task
	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Name,
		&task.Description,
		&task.StartAt,
		&task.EndAt,
		&task.Result,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &task, nil
}

// buildOwnQuery builds the listing query for a user's own tasks.
func buildOwnQuery(filter store.TaskFilter) (string, []any) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE owner_id = $1`

	switch filter.Status {
	case store.TaskStatusPending:
		query += ` AND end_at IS NULL`
	case store.TaskStatusCompleted:
		query += ` AND end_at IS NOT NULL`
	}

	query += ` ORDER BY created_at DESC, id DESC`

	return query, []any{filter.OwnerID}
}

// buildReportQuery builds the parameterized admin report query.
// A user filter takes precedence over a division filter, the month filter compares
// calendar year and month of start_at in UTC.
func buildReportQuery(filter store.ReportFilter) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT
			t.id, t.owner_id, t.name, t.description, t.result,
			t.start_at, t.end_at, t.created_at,
			u.name AS owner_name,
			d.name AS division_name
		FROM tasks t
		JOIN users u ON t.owner_id = u.id
		JOIN divisions d ON u.division_id = d.id`)

	var (
		where []string
		args  []any
	)
	param := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	switch {
	case filter.UserID != 0:
		where = append(where, "t.owner_id = "+param(filter.UserID))
	case filter.DivisionID != 0:
		where = append(where, "u.division_id = "+param(filter.DivisionID))
	}

	if filter.Month != nil {
		where = append(where,
			"EXTRACT(YEAR FROM t.start_at AT TIME ZONE 'UTC') = "+param(filter.Month.Year),
			"EXTRACT(MONTH FROM t.start_at AT TIME ZONE 'UTC') = "+param(int(filter.Month.Month)),
		)
	}

	if len(where) > 0 {
		sb.WriteString("\n\t\tWHERE ")
		sb.WriteString(strings.Join(where, " AND "))
	}

	sb.WriteString("\n\t\tORDER BY t.created_at DESC, t.id DESC")

	return sb.String(), args
}
