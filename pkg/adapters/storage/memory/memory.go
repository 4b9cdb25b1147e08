package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/aescanero/usersapi/pkg/domain"
	"github.com/aescanero/usersapi/pkg/ports"
)

// InMemoryUserRepository implements UserRepository using an in-memory slice.
// Like a fresh database it starts without a users table; List and Create
// report ports.ErrUndefinedTable until Bootstrap runs.
type InMemoryUserRepository struct {
	users       []domain.User
	byEmail     map[string]struct{}
	tableExists bool
	nextID      int64
	now         func() time.Time
	mu          sync.RWMutex
}

// NewInMemoryUserRepository creates a new in-memory user repository
func NewInMemoryUserRepository() *InMemoryUserRepository {
	return &InMemoryUserRepository{
		byEmail: make(map[string]struct{}),
		nextID:  1,
		now:     time.Now,
	}
}

// List returns up to limit users ordered by id
func (r *InMemoryUserRepository) List(ctx context.Context, limit int) ([]domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if !r.tableExists {
		return nil, fmt.Errorf("failed to list users: %w", ports.ErrUndefinedTable)
	}

	n := min(limit, len(r.users))
	users := make([]domain.User, n)
	copy(users, r.users[:n])

	return users, nil
}

// Create inserts a user; the email must be unused
func (r *InMemoryUserRepository) Create(ctx context.Context, name, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.tableExists {
		return nil, fmt.Errorf("failed to create user: %w", ports.ErrUndefinedTable)
	}

	return r.insertLocked(name, email)
}

// Bootstrap creates the table and inserts the seed users that are not present yet
func (r *InMemoryUserRepository) Bootstrap(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.tableExists = true
	for _, seed := range domain.SeedUsers {
		if _, exists := r.byEmail[seed.Email]; exists {
			continue
		}
		if _, err := r.insertLocked(seed.Name, seed.Email); err != nil {
			return fmt.Errorf("failed to bootstrap users table: %w", err)
		}
	}

	return nil
}

// Ping always succeeds; the in-memory store has no connection to lose
func (r *InMemoryUserRepository) Ping(ctx context.Context) error {
	return nil
}

func (r *InMemoryUserRepository) insertLocked(name, email string) (*domain.User, error) {
	if name == "" || email == "" {
		return nil, fmt.Errorf("failed to create user: %w", ports.ErrConstraintViolation)
	}
	if _, exists := r.byEmail[email]; exists {
		return nil, fmt.Errorf("failed to create user: %w", ports.ErrDuplicateEmail)
	}

	user := domain.User{
		ID:        r.nextID,
		Name:      name,
		Email:     email,
		CreatedAt: r.now().UTC(),
	}
	r.nextID++
	r.users = append(r.users, user)
	r.byEmail[email] = struct{}{}

	return &user, nil
}
