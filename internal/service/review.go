package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/readrate/server/internal/cache"
	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/internal/event"
	"github.com/readrate/server/internal/repository"
	apperrors "github.com/readrate/server/pkg/errors"
	"github.com/readrate/server/pkg/pagination"
)

// maxCommentLength bounds review comments.
const maxCommentLength = 2000

// SubmitReviewInput holds the parameters for submitting a review.
type SubmitReviewInput struct {
	BookID  string
	Rating  int
	Comment string
}

// UpdateReviewInput holds the parameters for updating a review.
type UpdateReviewInput struct {
	Rating  int
	Comment string
}

// ReviewService implements the business logic for review operations. Every
// mutation evicts the affected book from the cache and publishes a domain
// event carrying the post-write aggregate.
type ReviewService struct {
	repo     repository.ReviewRepository
	cache    *cache.BookCache
	producer *event.Producer
	logger   *slog.Logger
}

// NewReviewService creates a new review service.
func NewReviewService(repo repository.ReviewRepository, bookCache *cache.BookCache, producer *event.Producer, logger *slog.Logger) *ReviewService {
	return &ReviewService{
		repo:     repo,
		cache:    bookCache,
		producer: producer,
		logger:   logger,
	}
}

// SubmitReview creates the caller's review for a book. A soft-deleted review
// by the same caller is resurrected; an active one causes a conflict.
func (s *ReviewService) SubmitReview(ctx context.Context, userID string, input SubmitReviewInput) (*domain.Review, error) {
	if input.BookID == "" {
		return nil, apperrors.InvalidInput("book id is required")
	}
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if len(input.Comment) > maxCommentLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("comment must not exceed %d characters", maxCommentLength))
	}

	review := &domain.Review{
		ID:      uuid.New().String(),
		BookID:  input.BookID,
		UserID:  userID,
		Rating:  input.Rating,
		Comment: input.Comment,
	}

	stored, agg, err := s.repo.Submit(ctx, review)
	if err != nil {
		return nil, err
	}

	s.evictBook(ctx, stored.BookID)

	if err := s.producer.PublishReviewSubmitted(ctx, stored, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.submitted event",
			slog.String("review_id", stored.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review submitted",
		slog.String("review_id", stored.ID),
		slog.String("book_id", stored.BookID),
		slog.String("user_id", userID),
		slog.Int("rating", stored.Rating),
		slog.Float64("avg_rating", agg.Average),
		slog.Int("total_reviews", agg.Count),
	)

	return stored, nil
}

// UpdateReview changes the rating and comment of the caller's review.
func (s *ReviewService) UpdateReview(ctx context.Context, reviewID, userID string, input UpdateReviewInput) (*domain.Review, error) {
	if !domain.IsValidRating(input.Rating) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("rating must be between %d and %d", domain.MinRating, domain.MaxRating))
	}
	if len(input.Comment) > maxCommentLength {
		return nil, apperrors.InvalidInput(fmt.Sprintf("comment must not exceed %d characters", maxCommentLength))
	}

	review, agg, err := s.repo.Update(ctx, reviewID, userID, input.Rating, input.Comment)
	if err != nil {
		return nil, err
	}

	s.evictBook(ctx, review.BookID)

	if err := s.producer.PublishReviewUpdated(ctx, review, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.updated event",
			slog.String("review_id", review.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review updated",
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
		slog.Int("rating", review.Rating),
		slog.Float64("avg_rating", agg.Average),
		slog.Int("total_reviews", agg.Count),
	)

	return review, nil
}

// DeleteReview soft-deletes the caller's review.
func (s *ReviewService) DeleteReview(ctx context.Context, reviewID, userID string) error {
	bookID, agg, err := s.repo.Delete(ctx, reviewID, userID)
	if err != nil {
		return err
	}

	s.evictBook(ctx, bookID)

	if err := s.producer.PublishReviewDeleted(ctx, reviewID, bookID, userID, agg); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish review.deleted event",
			slog.String("review_id", reviewID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "review deleted",
		slog.String("review_id", reviewID),
		slog.String("book_id", bookID),
		slog.Float64("avg_rating", agg.Average),
		slog.Int("total_reviews", agg.Count),
	)

	return nil
}

// GetReview retrieves an active review by ID.
func (s *ReviewService) GetReview(ctx context.Context, reviewID string) (*domain.Review, error) {
	review, err := s.repo.GetByID(ctx, reviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}
	return review, nil
}

// ListReviews returns a page of active reviews for a book, newest first.
func (s *ReviewService) ListReviews(ctx context.Context, bookID string, params pagination.Params) (*pagination.Result[domain.Review], error) {
	reviews, total, err := s.repo.ListByBookID(ctx, bookID, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list reviews: %w", err)
	}

	result := pagination.NewResult(reviews, total, params)
	return &result, nil
}

// evictBook drops the cached book snapshot after a review mutation changed
// its aggregate. Eviction failures are logged, not returned; the entry
// expires by TTL.
func (s *ReviewService) evictBook(ctx context.Context, bookID string) {
	if err := s.cache.Delete(ctx, bookID); err != nil {
		s.logger.WarnContext(ctx, "book cache eviction failed",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
	}
}
