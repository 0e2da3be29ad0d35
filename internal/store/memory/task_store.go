package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var _ store.TaskStore = (*TaskStore)(nil)

// TaskStore implements store.TaskStore using in-memory storage.
// This implementation is for testing and development only - data is lost on restart.
type TaskStore struct {
	mu sync.RWMutex

	tasks  map[int64]*models.Task // task_id -> Task
	nextID int64

	users     *UserStore
	divisions *DivisionStore
	now       func() time.Time
}

// NewTaskStore creates a new in-memory task store.
// The user and division stores are used to join owner and division names for the report.
func NewTaskStore(users *UserStore, divisions *DivisionStore) *TaskStore {
	return &TaskStore{
		tasks:     make(map[int64]*models.Task),
		users:     users,
		divisions: divisions,
		now:       time.Now,
	}
}

// ListOwn returns the tasks owned by filter.OwnerID.
func (s *TaskStore) ListOwn(ctx context.Context, filter store.TaskFilter) ([]*models.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.Task{}
	for _, task := range s.tasks {
		if task.OwnerID != filter.OwnerID || !filter.Status.Matches(task) {
			continue
		}
		clone := *task
		result = append(result, &clone)
	}

	sortNewestFirst(result, func(t *models.Task) (time.Time, int64) { return t.CreatedAt, t.ID })

	return result, nil
}

// ListReport returns tasks across all users matching the report filter.
func (s *TaskStore) ListReport(ctx context.Context, filter store.ReportFilter) ([]*models.ReportTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.ReportTask{}
	for _, task := range s.tasks {
		owner, ok := s.users.getByID(task.OwnerID)
		if !ok {
			// inner join semantics
			continue
		}

		switch {
		case filter.UserID != 0:
			if task.OwnerID != filter.UserID {
				continue
			}
		case filter.DivisionID != 0:
			if owner.DivisionID != filter.DivisionID {
				continue
			}
		}

		if filter.Month != nil && !filter.Month.Contains(task.StartAt) {
			continue
		}

		division, ok := s.divisions.getByID(owner.DivisionID)
		if !ok {
			continue
		}

		result = append(result, &models.ReportTask{
			ID:           task.ID,
			OwnerID:      task.OwnerID,
			Name:         task.Name,
			Description:  task.Description,
			Result:       task.Result,
			StartAt:      task.StartAt,
			EndAt:        task.EndAt,
			OwnerName:    owner.Name,
			DivisionName: division.Name,
			CreatedAt:    task.CreatedAt,
		})
	}

	sortNewestFirst(result, func(t *models.ReportTask) (time.Time, int64) { return t.CreatedAt, t.ID })

	return result, nil
}

// Create validates and stores a new task for ownerID.
func (s *TaskStore) Create(ctx context.Context, ownerID int64, fields models.TaskFields) (*models.Task, error) {
	if err := store.ValidateFields(&fields); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	now := s.now()
	task := &models.Task{
		ID:          s.nextID,
		OwnerID:     ownerID,
		Name:        fields.Name,
		Description: fields.Description,
		StartAt:     *fields.StartAt,
		EndAt:       fields.EndAt,
		Result:      fields.Result,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	s.tasks[task.ID] = task

	clone := *task
	return &clone, nil
}

// Update replaces the task fields when both id and owner match.
func (s *TaskStore) Update(ctx context.Context, taskID, ownerID int64, fields models.TaskFields) (*models.Task, error) {
	if err := store.ValidateFields(&fields); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.tasks[taskID]
	if !exists || task.OwnerID != ownerID {
		return nil, store.ErrTaskNotFound
	}

	task.Name = fields.Name
	task.Description = fields.Description
	task.StartAt = *fields.StartAt
	task.EndAt = fields.EndAt
	task.Result = fields.Result
	task.UpdatedAt = s.now()

	clone := *task
	return &clone, nil
}

func sortNewestFirst[T any](items []T, key func(T) (time.Time, int64)) {
	sort.Slice(items, func(i, j int) bool {
		ti, idi := key(items[i])
		tj, idj := key(items[j])
		if ti.Equal(tj) {
			return idi > idj
		}
		return ti.After(tj)
	})
}
