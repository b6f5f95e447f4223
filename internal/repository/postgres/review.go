package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/pkg/database"
	apperrors "github.com/readrate/server/pkg/errors"
)

const reviewColumns = "id, book_id, user_id, rating, comment, is_deleted, created_at, updated_at"

// ReviewRepository implements repository.ReviewRepository using PostgreSQL.
//
// All mutating operations follow the same transaction shape: lock the book
// row with SELECT ... FOR UPDATE, read the authoritative review state, write
// the review row, apply the aggregate transition to the book row, commit.
// Locking the book first gives every writer for the same book a single lock
// ordering, so concurrent submissions serialize instead of deadlocking.
type ReviewRepository struct {
	pool database.DBTX
}

// NewReviewRepository creates a new PostgreSQL-backed review repository.
func NewReviewRepository(pool database.DBTX) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// lockBook reads a book's aggregate under a row lock held until commit.
// Soft-deleted books are treated as not found.
func lockBook(ctx context.Context, tx pgx.Tx, bookID string) (domain.Aggregate, error) {
	var agg domain.Aggregate
	err := tx.QueryRow(ctx,
		`SELECT avg_rating, total_reviews FROM books WHERE id = $1 AND NOT is_deleted FOR UPDATE`,
		bookID,
	).Scan(&agg.Average, &agg.Count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Aggregate{}, apperrors.NotFound("book", bookID)
		}
		return domain.Aggregate{}, fmt.Errorf("lock book: %w", err)
	}
	return agg, nil
}

// writeAggregate stores the new aggregate on the locked book row.
func writeAggregate(ctx context.Context, tx pgx.Tx, bookID string, agg domain.Aggregate, now time.Time) error {
	_, err := tx.Exec(ctx,
		`UPDATE books SET avg_rating = $1, total_reviews = $2, updated_at = $3 WHERE id = $4`,
		agg.Average, agg.Count, now, bookID,
	)
	if err != nil {
		return fmt.Errorf("update book aggregate: %w", err)
	}
	return nil
}

// Submit creates the caller's review for a book, resurrecting a soft-deleted
// row when one exists. An active review by the same user causes a conflict.
func (r *ReviewRepository) Submit(ctx context.Context, review *domain.Review) (*domain.Review, domain.Aggregate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Aggregate{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	agg, err := lockBook(ctx, tx, review.BookID)
	if err != nil {
		return nil, domain.Aggregate{}, err
	}

	// Read the user's existing row for this book, deleted or not. With the
	// book locked no concurrent submission for the same book can race this
	// read.
	var existing domain.Review
	err = tx.QueryRow(ctx,
		`SELECT id, rating, is_deleted, created_at FROM reviews WHERE book_id = $1 AND user_id = $2`,
		review.BookID, review.UserID,
	).Scan(&existing.ID, &existing.Rating, &existing.IsDeleted, &existing.CreatedAt)

	var resolved *domain.Review
	switch {
	case errors.Is(err, pgx.ErrNoRows):
		resolved = nil
	case err != nil:
		return nil, domain.Aggregate{}, fmt.Errorf("read existing review: %w", err)
	default:
		resolved = &existing
	}

	now := time.Now().UTC()

	switch domain.ResolveSubmit(resolved) {
	case domain.SubmitConflict:
		return nil, domain.Aggregate{}, apperrors.Conflict("user has already reviewed this book")

	case domain.SubmitResurrect:
		// Reactivate the soft-deleted row in place, keeping its identity.
		review.ID = existing.ID
		review.CreatedAt = existing.CreatedAt
		review.UpdatedAt = now
		_, err = tx.Exec(ctx,
			`UPDATE reviews SET rating = $1, comment = $2, is_deleted = FALSE, updated_at = $3 WHERE id = $4`,
			review.Rating, review.Comment, now, review.ID,
		)
		if err != nil {
			return nil, domain.Aggregate{}, fmt.Errorf("resurrect review: %w", err)
		}

	case domain.SubmitInsert:
		review.CreatedAt = now
		review.UpdatedAt = now
		_, err = tx.Exec(ctx,
			`INSERT INTO reviews (id, book_id, user_id, rating, comment, is_deleted, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, FALSE, $6, $7)`,
			review.ID, review.BookID, review.UserID, review.Rating, review.Comment, review.CreatedAt, review.UpdatedAt,
		)
		if err != nil {
			// The partial unique index backstops the lock against inserts
			// that slipped in outside this code path.
			if isUniqueViolation(err) {
				return nil, domain.Aggregate{}, apperrors.Conflict("user has already reviewed this book")
			}
			return nil, domain.Aggregate{}, fmt.Errorf("insert review: %w", err)
		}
	}

	agg = agg.Add(review.Rating)
	if err := writeAggregate(ctx, tx, review.BookID, agg, now); err != nil {
		return nil, domain.Aggregate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Aggregate{}, fmt.Errorf("commit transaction: %w", err)
	}

	return review, agg, nil
}

// Update changes the rating and comment of the caller's review and moves the
// book's aggregate from the old rating to the new one.
func (r *ReviewRepository) Update(ctx context.Context, reviewID, callerUserID string, rating int, comment string) (*domain.Review, domain.Aggregate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, domain.Aggregate{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// The review is read twice: once unlocked to learn the book ID, then
	// again under the book lock for the authoritative rating. Locking the
	// book before the review keeps the lock ordering uniform with Submit.
	var bookID string
	err = tx.QueryRow(ctx,
		`SELECT book_id FROM reviews WHERE id = $1 AND NOT is_deleted`, reviewID,
	).Scan(&bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Aggregate{}, apperrors.NotFound("review", reviewID)
		}
		return nil, domain.Aggregate{}, fmt.Errorf("read review: %w", err)
	}

	agg, err := lockBook(ctx, tx, bookID)
	if err != nil {
		return nil, domain.Aggregate{}, err
	}

	var rv domain.Review
	err = tx.QueryRow(ctx,
		fmt.Sprintf(`SELECT %s FROM reviews WHERE id = $1 FOR UPDATE`, reviewColumns), reviewID,
	).Scan(&rv.ID, &rv.BookID, &rv.UserID, &rv.Rating, &rv.Comment, &rv.IsDeleted, &rv.CreatedAt, &rv.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.Aggregate{}, apperrors.NotFound("review", reviewID)
		}
		return nil, domain.Aggregate{}, fmt.Errorf("reread review: %w", err)
	}

	if rv.IsDeleted {
		return nil, domain.Aggregate{}, apperrors.NotFound("review", reviewID)
	}
	if rv.UserID != callerUserID {
		return nil, domain.Aggregate{}, apperrors.Forbidden("only the review author may update it")
	}

	newAgg, err := agg.Replace(rv.Rating, rating)
	if err != nil {
		return nil, domain.Aggregate{}, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE reviews SET rating = $1, comment = $2, updated_at = $3 WHERE id = $4`,
		rating, comment, now, reviewID,
	)
	if err != nil {
		return nil, domain.Aggregate{}, fmt.Errorf("update review: %w", err)
	}

	if err := writeAggregate(ctx, tx, bookID, newAgg, now); err != nil {
		return nil, domain.Aggregate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, domain.Aggregate{}, fmt.Errorf("commit transaction: %w", err)
	}

	rv.Rating = rating
	rv.Comment = comment
	rv.UpdatedAt = now
	return &rv, newAgg, nil
}

// Delete soft-deletes the caller's review and removes its rating from the
// book's aggregate. The row is kept so a later submission can resurrect it.
func (r *ReviewRepository) Delete(ctx context.Context, reviewID, callerUserID string) (string, domain.Aggregate, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", domain.Aggregate{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var bookID string
	err = tx.QueryRow(ctx,
		`SELECT book_id FROM reviews WHERE id = $1 AND NOT is_deleted`, reviewID,
	).Scan(&bookID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.Aggregate{}, apperrors.NotFound("review", reviewID)
		}
		return "", domain.Aggregate{}, fmt.Errorf("read review: %w", err)
	}

	agg, err := lockBook(ctx, tx, bookID)
	if err != nil {
		return "", domain.Aggregate{}, err
	}

	var (
		ownerID   string
		oldRating int
		isDeleted bool
	)
	err = tx.QueryRow(ctx,
		`SELECT user_id, rating, is_deleted FROM reviews WHERE id = $1 FOR UPDATE`, reviewID,
	).Scan(&ownerID, &oldRating, &isDeleted)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domain.Aggregate{}, apperrors.NotFound("review", reviewID)
		}
		return "", domain.Aggregate{}, fmt.Errorf("reread review: %w", err)
	}

	if isDeleted {
		return "", domain.Aggregate{}, apperrors.NotFound("review", reviewID)
	}
	if ownerID != callerUserID {
		return "", domain.Aggregate{}, apperrors.Forbidden("only the review author may delete it")
	}

	newAgg, err := agg.Remove(oldRating)
	if err != nil {
		return "", domain.Aggregate{}, err
	}

	now := time.Now().UTC()
	_, err = tx.Exec(ctx,
		`UPDATE reviews SET is_deleted = TRUE, updated_at = $1 WHERE id = $2`,
		now, reviewID,
	)
	if err != nil {
		return "", domain.Aggregate{}, fmt.Errorf("soft delete review: %w", err)
	}

	if err := writeAggregate(ctx, tx, bookID, newAgg, now); err != nil {
		return "", domain.Aggregate{}, err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", domain.Aggregate{}, fmt.Errorf("commit transaction: %w", err)
	}

	return bookID, newAgg, nil
}

// GetByID retrieves an active review by ID.
func (r *ReviewRepository) GetByID(ctx context.Context, id string) (*domain.Review, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM reviews
		WHERE id = $1 AND NOT is_deleted`, reviewColumns)

	var rv domain.Review
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&rv.ID,
		&rv.BookID,
		&rv.UserID,
		&rv.Rating,
		&rv.Comment,
		&rv.IsDeleted,
		&rv.CreatedAt,
		&rv.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review", id)
		}
		return nil, fmt.Errorf("scan review: %w", err)
	}

	return &rv, nil
}

// ListByBookID returns paginated active reviews for a book, newest first,
// along with the reviewer summary and the total count.
func (r *ReviewRepository) ListByBookID(ctx context.Context, bookID string, limit, offset int) ([]domain.Review, int, error) {
	query := `
		SELECT r.id, r.book_id, r.user_id, r.rating, r.comment, r.is_deleted, r.created_at, r.updated_at,
		       u.first_name, u.last_name, count(*) OVER() AS total_count
		FROM reviews r
		JOIN users u ON u.id = r.user_id
		WHERE r.book_id = $1 AND NOT r.is_deleted
		ORDER BY r.created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, bookID, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list reviews: %w", err)
	}
	defer rows.Close()

	var (
		reviews    []domain.Review
		totalCount int
	)

	for rows.Next() {
		var (
			rv       domain.Review
			reviewer domain.UserSummary
		)
		if err := rows.Scan(
			&rv.ID,
			&rv.BookID,
			&rv.UserID,
			&rv.Rating,
			&rv.Comment,
			&rv.IsDeleted,
			&rv.CreatedAt,
			&rv.UpdatedAt,
			&reviewer.FirstName,
			&reviewer.LastName,
			&totalCount,
		); err != nil {
			return nil, 0, fmt.Errorf("scan review row: %w", err)
		}
		reviewer.ID = rv.UserID
		rv.Reviewer = &reviewer
		reviews = append(reviews, rv)
	}

	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate review rows: %w", err)
	}

	if reviews == nil {
		reviews = []domain.Review{}
	}

	return reviews, totalCount, nil
}
