package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var _ store.DivisionStore = (*DivisionStore)(nil)

// DivisionStore implements store.DivisionStore using in-memory storage.
type DivisionStore struct {
	mu sync.RWMutex

	divisions map[int64]*models.Division
	nextID    int64
}

// NewDivisionStore creates a new in-memory division store.
func NewDivisionStore() *DivisionStore {
	return &DivisionStore{
		divisions: make(map[int64]*models.Division),
	}
}

// List returns all divisions ordered by name.
func (s *DivisionStore) List(ctx context.Context) ([]*models.Division, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*models.Division, 0, len(s.divisions))
	for _, d := range s.divisions {
		clone := *d
		result = append(result, &clone)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// Create stores a division, reusing the existing ID when the name is already known.
func (s *DivisionStore) Create(ctx context.Context, division *models.Division) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, d := range s.divisions {
		if d.Name == division.Name {
			division.ID = d.ID
			return nil
		}
	}

	s.nextID++
	division.ID = s.nextID
	clone := *division
	s.divisions[division.ID] = &clone

	return nil
}

func (s *DivisionStore) getByID(id int64) (*models.Division, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, exists := s.divisions[id]
	return d, exists
}
