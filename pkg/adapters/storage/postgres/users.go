package postgres

import (
	"context"
	"fmt"

	pgpool "github.com/aescanero/usersapi/pkg/adapters/database/postgres"
	"github.com/aescanero/usersapi/pkg/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

const (
	listUsersSQL = `
		SELECT id, name, email, created_at
		FROM users
		ORDER BY id
		LIMIT $1
	`

	createUserSQL = `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		RETURNING id, name, email, created_at
	`

	createTableSQL = `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			email VARCHAR(255) UNIQUE NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`

	// Concurrent CREATE TABLE IF NOT EXISTS can still collide on the
	// catalog; bootstraps take this lock first.
	bootstrapLockSQL = `SELECT pg_advisory_xact_lock($1)`

	seedUserSQL = `
		INSERT INTO users (name, email)
		VALUES ($1, $2)
		ON CONFLICT (email) DO NOTHING
	`
)

// bootstrapLockKey identifies the users bootstrap advisory lock
const bootstrapLockKey int64 = 0x75736572735f7462

// UserRepository implements ports.UserRepository on the connection pool
type UserRepository struct {
	pool   *pgpool.Pool
	logger *zap.Logger
}

// NewUserRepository creates a new PostgreSQL user repository
func NewUserRepository(pool *pgpool.Pool, logger *zap.Logger) *UserRepository {
	return &UserRepository{
		pool:   pool,
		logger: logger,
	}
}

// List returns up to limit users ordered by id
func (r *UserRepository) List(ctx context.Context, limit int) ([]domain.User, error) {
	users := make([]domain.User, 0, limit)

	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		rows, err := conn.Query(ctx, listUsersSQL, limit)
		if err != nil {
			return pgpool.Classify(err)
		}
		defer rows.Close()

		for rows.Next() {
			var user domain.User
			if err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt); err != nil {
				return fmt.Errorf("failed to scan user: %w", err)
			}
			users = append(users, user)
		}

		return pgpool.Classify(rows.Err())
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	return users, nil
}

// Create inserts a user and returns it with the id and creation time assigned by the database
func (r *UserRepository) Create(ctx context.Context, name, email string) (*domain.User, error) {
	var user domain.User

	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		err := conn.QueryRow(ctx, createUserSQL, name, email).
			Scan(&user.ID, &user.Name, &user.Email, &user.CreatedAt)
		return pgpool.Classify(err)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	return &user, nil
}

// Bootstrap creates the users table if absent and inserts the seed users.
// Seeds whose email already exists are skipped, so repeated calls are harmless.
// Concurrent calls are serialized by a transaction-scoped advisory lock.
func (r *UserRepository) Bootstrap(ctx context.Context) error {
	err := r.pool.WithConn(ctx, func(conn *pgxpool.Conn) error {
		tx, err := conn.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer tx.Rollback(ctx)

		if _, err := tx.Exec(ctx, bootstrapLockSQL, bootstrapLockKey); err != nil {
			return fmt.Errorf("lock: %w", pgpool.Classify(err))
		}

		if _, err := tx.Exec(ctx, createTableSQL); err != nil {
			return fmt.Errorf("create table: %w", pgpool.Classify(err))
		}

		batch := &pgx.Batch{}
		for _, seed := range domain.SeedUsers {
			batch.Queue(seedUserSQL, seed.Name, seed.Email)
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("seed users: %w", pgpool.Classify(err))
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to bootstrap users table: %w", err)
	}

	r.logger.Info("users table bootstrapped", zap.Int("seeds", len(domain.SeedUsers)))
	return nil
}
