package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/pkg/database"
	apperrors "github.com/readrate/server/pkg/errors"
)

const bookColumns = "id, title, author, genre, description, image_url, avg_rating, total_reviews, is_deleted, created_by, created_at, updated_at"

// BookRepository implements repository.BookRepository using PostgreSQL.
type BookRepository struct {
	pool database.DBTX
}

// NewBookRepository creates a new PostgreSQL-backed book repository.
func NewBookRepository(pool database.DBTX) *BookRepository {
	return &BookRepository{pool: pool}
}

// Create inserts a new book. A second active book with the same title and
// author (case-insensitive) is rejected.
func (r *BookRepository) Create(ctx context.Context, b *domain.Book) error {
	query := `
		INSERT INTO books (id, title, author, genre, description, image_url, avg_rating, total_reviews, is_deleted, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err := r.pool.Exec(ctx, query,
		b.ID,
		b.Title,
		b.Author,
		b.Genre,
		b.Description,
		b.ImageURL,
		b.AvgRating,
		b.TotalReviews,
		b.IsDeleted,
		b.CreatedBy,
		b.CreatedAt,
		b.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.AlreadyExists("book", "title/author", b.Title+" by "+b.Author)
		}
		return fmt.Errorf("insert book: %w", err)
	}

	return nil
}

// GetByID retrieves an active book by ID. Soft-deleted books are treated as
// not found.
func (r *BookRepository) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM books
		WHERE id = $1 AND NOT is_deleted`, bookColumns)

	var b domain.Book
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&b.ID,
		&b.Title,
		&b.Author,
		&b.Genre,
		&b.Description,
		&b.ImageURL,
		&b.AvgRating,
		&b.TotalReviews,
		&b.IsDeleted,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("book", id)
		}
		return nil, fmt.Errorf("scan book: %w", err)
	}

	return &b, nil
}

// List returns active books matching the given filter with the total count.
// Filter strings match on case-insensitive equality.
func (r *BookRepository) List(ctx context.Context, filter domain.BookFilter, limit, offset int) ([]domain.Book, int, error) {
	conditions := []string{"NOT is_deleted"}
	var (
		args     []any
		argIndex = 1
	)

	if filter.Genre != "" {
		conditions = append(conditions, fmt.Sprintf("lower(genre) = lower($%d)", argIndex))
		args = append(args, filter.Genre)
		argIndex++
	}

	if filter.Author != "" {
		conditions = append(conditions, fmt.Sprintf("lower(author) = lower($%d)", argIndex))
		args = append(args, filter.Author)
		argIndex++
	}

	if filter.Title != "" {
		conditions = append(conditions, fmt.Sprintf("lower(title) = lower($%d)", argIndex))
		args = append(args, filter.Title)
		argIndex++
	}

	// Sort column is validated against a whitelist; never interpolate raw input.
	sortBy := domain.BookSortCreatedAt
	if domain.IsValidBookSortField(filter.SortBy) {
		sortBy = filter.SortBy
	}
	direction := "ASC"
	if filter.SortDesc || filter.SortBy == "" {
		direction = "DESC"
	}

	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM books
		WHERE %s
		ORDER BY %s %s
		LIMIT $%d OFFSET $%d`,
		bookColumns, strings.Join(conditions, " AND "), sortBy, direction, argIndex, argIndex+1,
	)

	args = append(args, limit, offset)

	return r.queryBooks(ctx, query, args...)
}

// Search returns active books whose title or author contains the query,
// case-insensitively, ordered by newest first.
func (r *BookRepository) Search(ctx context.Context, search string, limit, offset int) ([]domain.Book, int, error) {
	query := fmt.Sprintf(`
		SELECT %s, count(*) OVER() AS total_count
		FROM books
		WHERE NOT is_deleted AND (title ILIKE $1 OR author ILIKE $1)
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, bookColumns)

	return r.queryBooks(ctx, query, "%"+search+"%", limit, offset)
}

func (r *BookRepository) queryBooks(ctx context.Context, query string, args ...any) ([]domain.Book, int, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var (
		books      []domain.Book
		totalCount int
	)

	for rows.Next() {
		var b domain.Book
		if err := rows.Scan(
			&b.ID,
			&b.Title,
			&b.Author,
			&b.Genre,
			&b.Description,
			&b.ImageURL,
			&b.AvgRating,
			&b.TotalReviews,
			&b.IsDeleted,
			&b.CreatedBy,
			&b.CreatedAt,
			&b.UpdatedAt,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan book row: %w", err)
		}
		books = append(books, b)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate book rows: %w", err)
	}

	if books == nil {
		books = []domain.Book{}
	}

	return books, totalCount, nil
}
