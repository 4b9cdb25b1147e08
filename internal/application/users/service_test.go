package users

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aescanero/usersapi/pkg/adapters/storage/memory"
	redisstorage "github.com/aescanero/usersapi/pkg/adapters/storage/redis"
	"github.com/aescanero/usersapi/pkg/domain"
	"github.com/aescanero/usersapi/pkg/ports"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeCache struct {
	mu          sync.Mutex
	users       []domain.User
	ok          bool
	gen         int64
	getErr      error
	sets        int
	stale       int
	invalidates int
}

func (c *fakeCache) Get(context.Context) ([]domain.User, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.users, c.ok, c.getErr
}

func (c *fakeCache) Generation(context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gen, nil
}

func (c *fakeCache) Set(_ context.Context, users []domain.User, gen int64) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.stale++
		return false, nil
	}
	c.users, c.ok = users, true
	c.sets++
	return true, nil
}

func (c *fakeCache) Invalidate(context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.users, c.ok = nil, false
	c.gen++
	c.invalidates++
	return nil
}

// pausingRepo blocks its first List after reading until resume is closed
type pausingRepo struct {
	*memory.InMemoryUserRepository
	read   chan struct{}
	resume chan struct{}
	once   sync.Once
}

func newPausingRepo(t *testing.T) *pausingRepo {
	t.Helper()

	repo := memory.NewInMemoryUserRepository()
	require.NoError(t, repo.Bootstrap(context.Background()))
	return &pausingRepo{
		InMemoryUserRepository: repo,
		read:                   make(chan struct{}),
		resume:                 make(chan struct{}),
	}
}

func (r *pausingRepo) List(ctx context.Context, limit int) ([]domain.User, error) {
	users, err := r.InMemoryUserRepository.List(ctx, limit)
	r.once.Do(func() {
		close(r.read)
		<-r.resume
	})
	return users, err
}

type bootstrapCounter struct{ n int }

func (b *bootstrapCounter) RecordBootstrap() { b.n++ }

type failingRepo struct{ err error }

func (r failingRepo) List(context.Context, int) ([]domain.User, error) { return nil, r.err }
func (r failingRepo) Create(context.Context, string, string) (*domain.User, error) {
	return nil, r.err
}
func (r failingRepo) Bootstrap(context.Context) error { return r.err }

func TestListBootstrapsMissingTable(t *testing.T) {
	ctx := context.Background()
	counter := &bootstrapCounter{}
	svc := NewService(memory.NewInMemoryUserRepository(), nil, counter, zap.NewNop())

	first, err := svc.List(ctx)
	require.NoError(t, err)
	assert.True(t, first.Bootstrapped)
	assert.NotNil(t, first.Users)
	assert.Empty(t, first.Users)
	assert.Equal(t, 1, counter.n)

	second, err := svc.List(ctx)
	require.NoError(t, err)
	assert.False(t, second.Bootstrapped)
	require.Len(t, second.Users, 2)
	assert.Equal(t, "john@example.com", second.Users[0].Email)
	assert.Equal(t, "jane@example.com", second.Users[1].Email)
	assert.Equal(t, 1, counter.n)
}

func TestCreateThenList(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryUserRepository()
	require.NoError(t, repo.Bootstrap(ctx))
	svc := NewService(repo, nil, nil, zap.NewNop())

	user, err := svc.Create(ctx, "  Alice ", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Alice", user.Name)
	assert.NotZero(t, user.ID)

	result, err := svc.List(ctx)
	require.NoError(t, err)

	seen := 0
	for _, u := range result.Users {
		if u.Email == "alice@example.com" {
			seen++
		}
	}
	assert.Equal(t, 1, seen)
}

func TestCreateRejects(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryUserRepository()
	require.NoError(t, repo.Bootstrap(ctx))
	svc := NewService(repo, nil, nil, zap.NewNop())

	tests := []struct {
		name    string
		user    string
		email   string
		wantErr error
	}{
		{name: "blank name", user: " ", email: "x@example.com", wantErr: ports.ErrInvalidUser},
		{name: "missing email", user: "X", email: "", wantErr: ports.ErrInvalidUser},
		{name: "duplicate seed email", user: "Johnny", email: "john@example.com", wantErr: ports.ErrDuplicateEmail},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Create(ctx, tt.user, tt.email)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	users, err := repo.List(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, users, 2)
}

func TestListPropagatesOtherErrors(t *testing.T) {
	svc := NewService(failingRepo{err: ports.ErrPoolExhausted}, nil, nil, zap.NewNop())

	_, err := svc.List(context.Background())
	assert.ErrorIs(t, err, ports.ErrPoolExhausted)
}

func TestBootstrapFailure(t *testing.T) {
	repo := failingRepo{err: errors.Join(ports.ErrUndefinedTable, errors.New("permission denied"))}
	svc := NewService(repo, nil, nil, zap.NewNop())

	_, err := svc.List(context.Background())
	assert.Error(t, err)
}

func TestListUsesCache(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryUserRepository()
	require.NoError(t, repo.Bootstrap(ctx))
	cache := &fakeCache{}
	svc := NewService(repo, cache, nil, zap.NewNop())

	_, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, cache.sets)

	cached, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, cached.Users, 2)
	assert.Equal(t, 1, cache.sets, "second list must be served from cache")

	_, err = svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidates)

	fresh, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, fresh.Users, 3)
}

func TestListIgnoresCacheFailure(t *testing.T) {
	ctx := context.Background()
	repo := memory.NewInMemoryUserRepository()
	require.NoError(t, repo.Bootstrap(ctx))
	svc := NewService(repo, &fakeCache{getErr: errors.New("redis down")}, nil, zap.NewNop())

	result, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, result.Users, 2)
}

func TestBootstrapResultIsNotCached(t *testing.T) {
	cache := &fakeCache{}
	svc := NewService(memory.NewInMemoryUserRepository(), cache, nil, zap.NewNop())

	result, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.True(t, result.Bootstrapped)
	assert.Equal(t, 0, cache.sets)
}

func emails(users []domain.User) []string {
	out := make([]string, 0, len(users))
	for _, u := range users {
		out = append(out, u.Email)
	}
	return out
}

// listDuringCreate runs a List whose storage read completes before a Create
// but whose cache write happens after it.
func listDuringCreate(t *testing.T, svc *Service, repo *pausingRepo) {
	t.Helper()
	ctx := context.Background()

	done := make(chan error, 1)
	go func() {
		_, err := svc.List(ctx)
		done <- err
	}()

	<-repo.read
	_, err := svc.Create(ctx, "Alice", "alice@example.com")
	require.NoError(t, err)
	close(repo.resume)
	require.NoError(t, <-done)
}

func TestListDoesNotCacheListReadBeforeCreate(t *testing.T) {
	repo := newPausingRepo(t)
	cache := &fakeCache{}
	svc := NewService(repo, cache, nil, zap.NewNop())

	listDuringCreate(t, svc, repo)
	assert.Equal(t, 1, cache.stale)
	assert.Equal(t, 0, cache.sets)

	result, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, emails(result.Users), "alice@example.com")
}

func TestListDoesNotCacheListReadBeforeCreateRedis(t *testing.T) {
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := newPausingRepo(t)
	svc := NewService(repo, redisstorage.NewUserCache(client, time.Minute, zap.NewNop()), nil, zap.NewNop())

	listDuringCreate(t, svc, repo)

	result, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Contains(t, emails(result.Users), "alice@example.com")

	cached, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, emails(result.Users), emails(cached.Users))
}
