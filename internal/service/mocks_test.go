package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/mock"

	"github.com/readrate/server/internal/cache"
	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/internal/event"
	pkgkafka "github.com/readrate/server/pkg/kafka"
)

// --- Mock Repositories ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, u *domain.User) error {
	args := m.Called(ctx, u)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

type mockBookRepository struct {
	mock.Mock
}

func (m *mockBookRepository) Create(ctx context.Context, b *domain.Book) error {
	args := m.Called(ctx, b)
	return args.Error(0)
}

func (m *mockBookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Book), args.Error(1)
}

func (m *mockBookRepository) List(ctx context.Context, filter domain.BookFilter, limit, offset int) ([]domain.Book, int, error) {
	args := m.Called(ctx, filter, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Book), args.Int(1), args.Error(2)
}

func (m *mockBookRepository) Search(ctx context.Context, query string, limit, offset int) ([]domain.Book, int, error) {
	args := m.Called(ctx, query, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Book), args.Int(1), args.Error(2)
}

type mockReviewRepository struct {
	mock.Mock
}

func (m *mockReviewRepository) Submit(ctx context.Context, review *domain.Review) (*domain.Review, domain.Aggregate, error) {
	args := m.Called(ctx, review)
	if args.Get(0) == nil {
		return nil, domain.Aggregate{}, args.Error(2)
	}
	return args.Get(0).(*domain.Review), args.Get(1).(domain.Aggregate), args.Error(2)
}

func (m *mockReviewRepository) Update(ctx context.Context, reviewID, callerUserID string, rating int, comment string) (*domain.Review, domain.Aggregate, error) {
	args := m.Called(ctx, reviewID, callerUserID, rating, comment)
	if args.Get(0) == nil {
		return nil, domain.Aggregate{}, args.Error(2)
	}
	return args.Get(0).(*domain.Review), args.Get(1).(domain.Aggregate), args.Error(2)
}

func (m *mockReviewRepository) Delete(ctx context.Context, reviewID, callerUserID string) (string, domain.Aggregate, error) {
	args := m.Called(ctx, reviewID, callerUserID)
	return args.String(0), args.Get(1).(domain.Aggregate), args.Error(2)
}

func (m *mockReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepository) ListByBookID(ctx context.Context, bookID string, limit, offset int) ([]domain.Review, int, error) {
	args := m.Called(ctx, bookID, limit, offset)
	if args.Get(0) == nil {
		return nil, 0, args.Error(2)
	}
	return args.Get(0).([]domain.Review), args.Int(1), args.Error(2)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

// newTestProducer creates an event producer whose publishes fail silently in
// tests (no real broker).
func newTestProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

// newTestCache creates a BookCache backed by miniredis.
func newTestCache(t *testing.T) (*cache.BookCache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return cache.NewBookCache(client, 10*time.Minute), mr
}
