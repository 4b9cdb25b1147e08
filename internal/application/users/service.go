package users

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/aescanero/usersapi/pkg/domain"
	"github.com/aescanero/usersapi/pkg/ports"
	"go.uber.org/zap"
)

// ListLimit is the maximum number of users returned by List
const ListLimit = 10

// BootstrapRecorder counts users table bootstraps
type BootstrapRecorder interface {
	RecordBootstrap()
}

// ListResult is the outcome of a List call
type ListResult struct {
	Users []domain.User

	// Bootstrapped is set when the table was missing and has just been
	// created and seeded. Users is empty in that case.
	Bootstrapped bool
}

// Service coordinates user reads and writes
type Service struct {
	repo    ports.UserRepository
	cache   ports.UserCache
	metrics BootstrapRecorder
	logger  *zap.Logger
}

// NewService creates a new users service. cache and metrics may be nil.
func NewService(
	repo ports.UserRepository,
	cache ports.UserCache,
	metrics BootstrapRecorder,
	logger *zap.Logger,
) *Service {
	return &Service{
		repo:    repo,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
	}
}

// List returns up to ListLimit users. A missing users table is not an error:
// the table is created and seeded, and an empty bootstrapped result is returned.
func (s *Service) List(ctx context.Context) (*ListResult, error) {
	// The generation is read before storage so that a Create landing between
	// the read and the cache write leaves the stale list uncached.
	cacheable := false
	var gen int64
	if s.cache != nil {
		users, ok, err := s.cache.Get(ctx)
		if err != nil {
			s.logger.Warn("users cache read failed", zap.Error(err))
		} else if ok {
			return &ListResult{Users: users}, nil
		}

		if gen, err = s.cache.Generation(ctx); err != nil {
			s.logger.Warn("users cache generation read failed", zap.Error(err))
		} else {
			cacheable = true
		}
	}

	users, err := s.repo.List(ctx, ListLimit)
	if err != nil {
		if !errors.Is(err, ports.ErrUndefinedTable) {
			return nil, err
		}
		return s.bootstrap(ctx)
	}

	if cacheable {
		if _, err := s.cache.Set(ctx, users, gen); err != nil {
			s.logger.Warn("users cache write failed", zap.Error(err))
		}
	}

	return &ListResult{Users: users}, nil
}

// Create stores a new user. Blank name or email fails with ports.ErrInvalidUser;
// a taken email fails with ports.ErrDuplicateEmail and stores nothing.
func (s *Service) Create(ctx context.Context, name, email string) (*domain.User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, ports.ErrInvalidUser
	}

	user, err := s.repo.Create(ctx, name, email)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			s.logger.Warn("users cache invalidation failed", zap.Error(err))
		}
	}

	s.logger.Debug("user created",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email))

	return user, nil
}

func (s *Service) bootstrap(ctx context.Context) (*ListResult, error) {
	s.logger.Info("users table missing, bootstrapping")

	if err := s.repo.Bootstrap(ctx); err != nil {
		return nil, fmt.Errorf("bootstrap after missing table: %w", err)
	}

	if s.metrics != nil {
		s.metrics.RecordBootstrap()
	}

	return &ListResult{Users: []domain.User{}, Bootstrapped: true}, nil
}
