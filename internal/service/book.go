package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/readrate/server/internal/cache"
	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/internal/event"
	"github.com/readrate/server/internal/repository"
	apperrors "github.com/readrate/server/pkg/errors"
	"github.com/readrate/server/pkg/pagination"
)

// CreateBookInput holds the parameters for creating a book.
type CreateBookInput struct {
	Title       string
	Author      string
	Genre       string
	Description string
	ImageURL    string
}

// BookDetail is a book together with its creator summary and a page of its
// reviews.
type BookDetail struct {
	Book    *domain.Book                     `json:"book"`
	Creator *domain.UserSummary              `json:"creator,omitempty"`
	Reviews pagination.Result[domain.Review] `json:"reviews"`
}

// BookService implements the business logic for catalog operations.
type BookService struct {
	bookRepo   repository.BookRepository
	reviewRepo repository.ReviewRepository
	userRepo   repository.UserRepository
	cache      *cache.BookCache
	producer   *event.Producer
	logger     *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(
	bookRepo repository.BookRepository,
	reviewRepo repository.ReviewRepository,
	userRepo repository.UserRepository,
	bookCache *cache.BookCache,
	producer *event.Producer,
	logger *slog.Logger,
) *BookService {
	return &BookService{
		bookRepo:   bookRepo,
		reviewRepo: reviewRepo,
		userRepo:   userRepo,
		cache:      bookCache,
		producer:   producer,
		logger:     logger,
	}
}

// CreateBook creates a new book owned by the given user.
func (s *BookService) CreateBook(ctx context.Context, input CreateBookInput, createdBy string) (*domain.Book, error) {
	if input.Title == "" {
		return nil, apperrors.InvalidInput("title is required")
	}
	if input.Author == "" {
		return nil, apperrors.InvalidInput("author is required")
	}
	if input.Genre == "" {
		return nil, apperrors.InvalidInput("genre is required")
	}

	now := time.Now().UTC()
	book := &domain.Book{
		ID:          uuid.New().String(),
		Title:       input.Title,
		Author:      input.Author,
		Genre:       input.Genre,
		Description: input.Description,
		ImageURL:    input.ImageURL,
		CreatedBy:   createdBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := s.bookRepo.Create(ctx, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	// Publish creation event (non-blocking on failure).
	if err := s.producer.PublishBookCreated(ctx, book); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish book.created event",
			slog.String("book_id", book.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "book created",
		slog.String("book_id", book.ID),
		slog.String("title", book.Title),
		slog.String("created_by", createdBy),
	)

	return book, nil
}

// GetBook returns a book with its creator summary and a page of its reviews,
// newest first. The book row is served from the cache when present.
func (s *BookService) GetBook(ctx context.Context, bookID string, params pagination.Params) (*BookDetail, error) {
	book, err := s.getBookCached(ctx, bookID)
	if err != nil {
		return nil, err
	}

	reviews, total, err := s.reviewRepo.ListByBookID(ctx, bookID, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list book reviews: %w", err)
	}

	detail := &BookDetail{
		Book:    book,
		Reviews: pagination.NewResult(reviews, total, params),
	}

	if creator, err := s.userRepo.GetByID(ctx, book.CreatedBy); err == nil {
		summary := creator.Summary()
		detail.Creator = &summary
	} else {
		s.logger.WarnContext(ctx, "failed to load book creator",
			slog.String("book_id", bookID),
			slog.String("user_id", book.CreatedBy),
			slog.String("error", err.Error()),
		)
	}

	return detail, nil
}

// ListBooks returns a filtered, sorted page of active books.
func (s *BookService) ListBooks(ctx context.Context, filter domain.BookFilter, params pagination.Params) (*pagination.Result[domain.Book], error) {
	if filter.SortBy != "" && !domain.IsValidBookSortField(filter.SortBy) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("sort field must be one of %v", domain.ValidBookSortFields()))
	}

	books, total, err := s.bookRepo.List(ctx, filter, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("list books: %w", err)
	}

	result := pagination.NewResult(books, total, params)
	return &result, nil
}

// SearchBooks returns active books whose title or author contains the query.
func (s *BookService) SearchBooks(ctx context.Context, query string, params pagination.Params) (*pagination.Result[domain.Book], error) {
	if query == "" {
		return nil, apperrors.InvalidInput("query is required")
	}

	books, total, err := s.bookRepo.Search(ctx, query, params.PerPage, params.Offset)
	if err != nil {
		return nil, fmt.Errorf("search books: %w", err)
	}

	result := pagination.NewResult(books, total, params)
	return &result, nil
}

// getBookCached serves a book from the cache, falling back to the database
// and repopulating the cache on a miss. Cache failures degrade to database
// reads rather than failing the request.
func (s *BookService) getBookCached(ctx context.Context, bookID string) (*domain.Book, error) {
	if book, err := s.cache.Get(ctx, bookID); err == nil {
		return book, nil
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		s.logger.WarnContext(ctx, "book cache read failed",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
	}

	book, err := s.bookRepo.GetByID(ctx, bookID)
	if err != nil {
		return nil, fmt.Errorf("get book: %w", err)
	}

	if err := s.cache.Save(ctx, book); err != nil {
		s.logger.WarnContext(ctx, "book cache write failed",
			slog.String("book_id", bookID),
			slog.String("error", err.Error()),
		)
	}

	return book, nil
}
