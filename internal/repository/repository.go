// Package repository defines the persistence interfaces consumed by the
// service layer. The postgres subpackage provides the production
// implementations.
package repository

import (
	"context"

	"github.com/readrate/server/internal/domain"
)

// UserRepository persists user accounts.
type UserRepository interface {
	Create(ctx context.Context, u *domain.User) error
	GetByID(ctx context.Context, id string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// BookRepository persists books and serves catalog queries.
type BookRepository interface {
	Create(ctx context.Context, b *domain.Book) error
	GetByID(ctx context.Context, id string) (*domain.Book, error)
	List(ctx context.Context, filter domain.BookFilter, limit, offset int) ([]domain.Book, int, error)
	Search(ctx context.Context, query string, limit, offset int) ([]domain.Book, int, error)
}

// ReviewRepository persists reviews and maintains the book rating aggregate.
// Submit, Update, and Delete run in a single transaction that locks the book
// row, writes the review row, and applies the aggregate transition, so the
// denormalized (avg_rating, total_reviews) pair can never drift from the
// active review rows.
type ReviewRepository interface {
	// Submit creates the caller's review for a book. If the caller has a
	// soft-deleted review for the same book the existing row is resurrected;
	// an active review causes a conflict. Returns the stored review and the
	// book's aggregate after the write.
	Submit(ctx context.Context, review *domain.Review) (*domain.Review, domain.Aggregate, error)

	// Update changes the rating and comment of the caller's review. Only the
	// review's author may update it. Returns the updated review and the
	// book's aggregate after the write.
	Update(ctx context.Context, reviewID, callerUserID string, rating int, comment string) (*domain.Review, domain.Aggregate, error)

	// Delete soft-deletes the caller's review and removes its rating from
	// the book's aggregate. Returns the book ID and the aggregate after the
	// write.
	Delete(ctx context.Context, reviewID, callerUserID string) (string, domain.Aggregate, error)

	GetByID(ctx context.Context, id string) (*domain.Review, error)
	ListByBookID(ctx context.Context, bookID string, limit, offset int) ([]domain.Review, int, error)
}
