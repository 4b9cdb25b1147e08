// Package ports declares the interfaces between the application layer and its adapters,
// together with the classified error kinds adapters report.
package ports

import (
	"context"
	"errors"

	"github.com/aescanero/usersapi/pkg/domain"
)

// Error kinds reported by storage adapters. Adapters wrap the underlying cause,
// so callers match with errors.Is. The text of each kind is safe to show to clients.
var (
	ErrUndefinedTable      = errors.New("users table does not exist")
	ErrDuplicateEmail      = errors.New("a user with this email already exists")
	ErrConstraintViolation = errors.New("user violates a storage constraint")
	ErrInvalidUser         = errors.New("name and email are required")
	ErrPoolExhausted       = errors.New("database connection pool exhausted")
	ErrPoolClosed          = errors.New("database connection pool is closed")
)

// UserRepository persists user records.
type UserRepository interface {
	// List returns up to limit users ordered by id.
	List(ctx context.Context, limit int) ([]domain.User, error)

	// Create inserts a user and returns it with storage-assigned fields.
	Create(ctx context.Context, name, email string) (*domain.User, error)

	// Bootstrap creates the users table if absent and inserts the seed users,
	// skipping any whose email already exists.
	Bootstrap(ctx context.Context) error
}

// UserCache caches the users list. Every Invalidate advances a generation
// counter; Set only stores a list read under the current generation.
type UserCache interface {
	// Get returns the cached list; ok is false on a miss.
	Get(ctx context.Context) (users []domain.User, ok bool, err error)

	// Generation returns the current generation. Read it before loading the
	// list from storage and pass it to Set.
	Generation(ctx context.Context) (int64, error)

	// Set stores users unless the generation has moved past gen, in which
	// case the list is stale and stored is false.
	Set(ctx context.Context, users []domain.User, gen int64) (stored bool, err error)

	Invalidate(ctx context.Context) error
}

// HealthChecker runs a trivial liveness query against storage.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// PublicMessage returns the client-safe text for err: the text of its error kind,
// or fallback when err is not classified.
func PublicMessage(err error, fallback string) string {
	for _, kind := range []error{
		ErrUndefinedTable,
		ErrDuplicateEmail,
		ErrConstraintViolation,
		ErrInvalidUser,
		ErrPoolExhausted,
		ErrPoolClosed,
	} {
		if errors.Is(err, kind) {
			return kind.Error()
		}
	}
	return fallback
}
