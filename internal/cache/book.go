// Package cache provides a Redis-backed read cache for book rows. Cached
// entries carry the denormalized review aggregate, so every review write
// must evict the affected book after commit to keep cached ratings fresh.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/readrate/server/internal/domain"
	apperrors "github.com/readrate/server/pkg/errors"
)

const keyPrefix = "book:"

// BookCache caches book rows in Redis keyed by book ID.
type BookCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewBookCache creates a Redis-backed book cache with the given entry TTL.
func NewBookCache(client *redis.Client, ttl time.Duration) *BookCache {
	return &BookCache{
		client: client,
		ttl:    ttl,
	}
}

// Get retrieves a cached book by ID. Returns apperrors.ErrNotFound on a
// cache miss.
func (c *BookCache) Get(ctx context.Context, bookID string) (*domain.Book, error) {
	key := keyPrefix + bookID

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, apperrors.NotFound("book", bookID)
		}
		return nil, fmt.Errorf("redis get book: %w", err)
	}

	var book domain.Book
	if err := json.Unmarshal(data, &book); err != nil {
		return nil, fmt.Errorf("unmarshal book: %w", err)
	}

	return &book, nil
}

// Save stores a book with the configured TTL.
func (c *BookCache) Save(ctx context.Context, book *domain.Book) error {
	key := keyPrefix + book.ID

	data, err := json.Marshal(book)
	if err != nil {
		return fmt.Errorf("marshal book: %w", err)
	}

	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("redis set book: %w", err)
	}

	return nil
}

// Delete evicts a book from the cache. Deleting a missing key is not an
// error.
func (c *BookCache) Delete(ctx context.Context, bookID string) error {
	key := keyPrefix + bookID

	if err := c.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis del book: %w", err)
	}

	return nil
}
