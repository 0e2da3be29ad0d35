package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/wolfeidau/taskbook/internal/models"
	"github.com/wolfeidau/taskbook/internal/store"
)

var _ store.UserStore = (*UserStore)(nil)

// UserStore implements store.UserStore using in-memory storage.
type UserStore struct {
	mu sync.RWMutex

	users      map[int64]*models.User // user_id -> User
	byUsername map[string]int64       // username -> user_id
	nextID     int64
}

// NewUserStore creates a new in-memory user store.
func NewUserStore() *UserStore {
	return &UserStore{
		users:      make(map[int64]*models.User),
		byUsername: make(map[string]int64),
	}
}

// GetByUsername retrieves a user by username.
func (s *UserStore) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.byUsername[username]
	if !exists {
		return nil, store.ErrUserNotFound
	}

	clone := *s.users[id]
	return &clone, nil
}

// ListByDivision returns the users of a division ordered by name.
func (s *UserStore) ListByDivision(ctx context.Context, divisionID int64) ([]*models.UserSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := []*models.UserSummary{}
	for _, user := range s.users {
		if user.DivisionID == divisionID {
			result = append(result, &models.UserSummary{ID: user.ID, Name: user.Name, Username: user.Username})
		}
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})

	return result, nil
}

// Create stores a new user and assigns its ID.
func (s *UserStore) Create(ctx context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byUsername[user.Username]; exists {
		return store.ErrUserAlreadyExists
	}

	s.nextID++
	user.ID = s.nextID
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}

	// Clone to avoid external modifications
	clone := *user
	s.users[user.ID] = &clone
	s.byUsername[user.Username] = user.ID

	return nil
}

func (s *UserStore) getByID(id int64) (*models.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.users[id]
	return user, exists
}
