package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/wolfeidau/taskbook/internal/auth"
	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
	"github.com/wolfeidau/taskbook/internal/telemetry"
)

// Layouts an HTML datetime-local input submits, without and with step="1". Both are read as UTC.
const (
	localTimeLayout        = "2006-01-02T15:04"
	localTimeSecondsLayout = "2006-01-02T15:04:05"
)

// taskRequest is the body of create and update requests.
// Timestamps are strings so an empty optional value can mean null.
type taskRequest struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	StartAt     string  `json:"startAt"`
	EndAt       *string `json:"endAt"`
	Result      *string `json:"result"`
}

type taskResponse struct {
	*models.Task
	Completed bool `json:"completed"`
}

type reportTaskResponse struct {
	*models.ReportTask
	Completed bool `json:"completed"`
}

func (s *Server) listTasks(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	if err := auth.RequirePermission(r.Context(), auth.PermTasksOwn); err != nil {
		writeError(w, r, err)
		return
	}

	status, err := store.ParseTaskStatus(r.URL.Query().Get("status"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	filter := auth.ScopeOwnTasks(identity, store.TaskFilter{Status: status})

	tasks, err := s.stores.Tasks.ListOwn(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	resp := make([]taskResponse, 0, len(tasks))
	for _, t := range tasks {
		resp = append(resp, taskResponse{Task: t, Completed: t.Completed()})
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) createTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	if err := auth.RequirePermission(ctx, auth.PermTasksOwn); err != nil {
		writeError(w, r, err)
		return
	}

	fields, err := decodeTaskFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.stores.Tasks.Create(ctx, identity.UserID, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}

	telemetry.GetMetrics().TasksCreatedTotal.Add(ctx, 1)
	zerolog.Ctx(ctx).Info().
		Int64("task_id", task.ID).
		Int64("user_id", identity.UserID).
		Msg("Task created")

	writeJSON(w, r, http.StatusCreated, taskResponse{Task: task, Completed: task.Completed()})
}

func (s *Server) updateTask(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	if err := auth.RequirePermission(ctx, auth.PermTasksOwn); err != nil {
		writeError(w, r, err)
		return
	}

	taskID, err := auth.ParseID("id", r.PathValue("id"))
	if err != nil {
		// An unparseable id cannot name any task.
		writeError(w, r, store.ErrTaskNotFound)
		return
	}

	fields, err := decodeTaskFields(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	task, err := s.stores.Tasks.Update(ctx, taskID, identity.UserID, fields)
	if err != nil {
		writeError(w, r, err)
		return
	}

	telemetry.GetMetrics().TasksUpdatedTotal.Add(ctx, 1)
	zerolog.Ctx(ctx).Info().
		Int64("task_id", task.ID).
		Int64("user_id", identity.UserID).
		Msg("Task updated")

	writeJSON(w, r, http.StatusOK, taskResponse{Task: task, Completed: task.Completed()})
}

func (s *Server) listReport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		writeError(w, r, auth.ErrUnauthenticated)
		return
	}

	q := r.URL.Query()
	filter, err := auth.ScopeReport(identity, auth.ReportRequest{
		DivisionID: q.Get("divisionId"),
		UserID:     q.Get("userId"),
		Month:      q.Get("month"),
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := s.stores.Tasks.ListReport(ctx, filter)
	if err != nil {
		writeError(w, r, err)
		return
	}

	telemetry.GetMetrics().RecordReport(ctx, filter != (store.ReportFilter{}), len(rows))

	resp := make([]reportTaskResponse, 0, len(rows))
	for _, t := range rows {
		resp = append(resp, reportTaskResponse{ReportTask: t, Completed: t.EndAt != nil})
	}

	writeJSON(w, r, http.StatusOK, resp)
}

func decodeTaskFields(r *http.Request) (models.TaskFields, error) {
	var req taskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return models.TaskFields{}, fmt.Errorf("%w: invalid request body", store.ErrValidation)
	}

	fields := models.TaskFields{
		Name:        req.Name,
		Description: req.Description,
		Result:      req.Result,
	}

	start, err := parseTimestamp("startAt", req.StartAt)
	if err != nil {
		return models.TaskFields{}, err
	}
	fields.StartAt = start

	if req.EndAt != nil {
		fields.EndAt, err = parseTimestamp("endAt", *req.EndAt)
		if err != nil {
			return models.TaskFields{}, err
		}
	}

	return fields, nil
}

// parseTimestamp accepts RFC 3339 or a zoneless datetime-local value, empty means unset.
func parseTimestamp(name, value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	for _, layout := range []string{time.RFC3339Nano, localTimeSecondsLayout, localTimeLayout} {
		if t, err := time.Parse(layout, value); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}

	return nil, fmt.Errorf("%w: %s must be an RFC 3339 timestamp: %q", store.ErrValidation, name, value)
}
