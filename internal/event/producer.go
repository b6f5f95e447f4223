package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/readrate/server/internal/domain"
	pkgkafka "github.com/readrate/server/pkg/kafka"
)

// Kafka topic constants for readrate domain events.
const (
	TopicUserRegistered  = "readrate.user.registered"
	TopicBookCreated     = "readrate.book.created"
	TopicReviewSubmitted = "readrate.review.submitted"
	TopicReviewUpdated   = "readrate.review.updated"
	TopicReviewDeleted   = "readrate.review.deleted"
)

// Aggregate type constants.
const (
	AggregateTypeUser   = "user"
	AggregateTypeBook   = "book"
	AggregateTypeReview = "review"
)

// Source identifier for events originating from this server.
const SourceReadrateServer = "readrate-server"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	UserID    string `json:"user_id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
}

// BookCreatedData is the payload for a book.created event.
type BookCreatedData struct {
	BookID    string `json:"book_id"`
	Title     string `json:"title"`
	Author    string `json:"author"`
	Genre     string `json:"genre"`
	CreatedBy string `json:"created_by"`
}

// ReviewEventData is the payload shared by review.submitted and
// review.updated events. It carries the post-write book aggregate so
// consumers never need to recompute it.
type ReviewEventData struct {
	ReviewID     string  `json:"review_id"`
	BookID       string  `json:"book_id"`
	UserID       string  `json:"user_id"`
	Rating       int     `json:"rating"`
	AvgRating    float64 `json:"avg_rating"`
	TotalReviews int     `json:"total_reviews"`
}

// ReviewDeletedData is the payload for a review.deleted event.
type ReviewDeletedData struct {
	ReviewID     string  `json:"review_id"`
	BookID       string  `json:"book_id"`
	UserID       string  `json:"user_id"`
	AvgRating    float64 `json:"avg_rating"`
	TotalReviews int     `json:"total_reviews"`
}

// Producer publishes readrate domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		UserID:    user.ID,
		FirstName: user.FirstName,
		LastName:  user.LastName,
		Email:     user.Email,
	}

	event, err := pkgkafka.NewEvent(TopicUserRegistered, user.ID, AggregateTypeUser, SourceReadrateServer, data)
	if err != nil {
		return fmt.Errorf("create user.registered event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicUserRegistered, event); err != nil {
		return fmt.Errorf("publish user.registered event: %w", err)
	}

	p.logger.DebugContext(ctx, "published user.registered event",
		slog.String("user_id", user.ID),
	)

	return nil
}

// PublishBookCreated publishes a book.created event.
func (p *Producer) PublishBookCreated(ctx context.Context, book *domain.Book) error {
	data := BookCreatedData{
		BookID:    book.ID,
		Title:     book.Title,
		Author:    book.Author,
		Genre:     book.Genre,
		CreatedBy: book.CreatedBy,
	}

	event, err := pkgkafka.NewEvent(TopicBookCreated, book.ID, AggregateTypeBook, SourceReadrateServer, data)
	if err != nil {
		return fmt.Errorf("create book.created event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicBookCreated, event); err != nil {
		return fmt.Errorf("publish book.created event: %w", err)
	}

	p.logger.DebugContext(ctx, "published book.created event",
		slog.String("book_id", book.ID),
	)

	return nil
}

// PublishReviewSubmitted publishes a review.submitted event.
func (p *Producer) PublishReviewSubmitted(ctx context.Context, review *domain.Review, agg domain.Aggregate) error {
	return p.publishReviewEvent(ctx, TopicReviewSubmitted, review, agg)
}

// PublishReviewUpdated publishes a review.updated event.
func (p *Producer) PublishReviewUpdated(ctx context.Context, review *domain.Review, agg domain.Aggregate) error {
	return p.publishReviewEvent(ctx, TopicReviewUpdated, review, agg)
}

func (p *Producer) publishReviewEvent(ctx context.Context, topic string, review *domain.Review, agg domain.Aggregate) error {
	data := ReviewEventData{
		ReviewID:     review.ID,
		BookID:       review.BookID,
		UserID:       review.UserID,
		Rating:       review.Rating,
		AvgRating:    agg.Average,
		TotalReviews: agg.Count,
	}

	event, err := pkgkafka.NewEvent(topic, review.ID, AggregateTypeReview, SourceReadrateServer, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published review event",
		slog.String("topic", topic),
		slog.String("review_id", review.ID),
		slog.String("book_id", review.BookID),
	)

	return nil
}

// PublishReviewDeleted publishes a review.deleted event.
func (p *Producer) PublishReviewDeleted(ctx context.Context, reviewID, bookID, userID string, agg domain.Aggregate) error {
	data := ReviewDeletedData{
		ReviewID:     reviewID,
		BookID:       bookID,
		UserID:       userID,
		AvgRating:    agg.Average,
		TotalReviews: agg.Count,
	}

	event, err := pkgkafka.NewEvent(TopicReviewDeleted, reviewID, AggregateTypeReview, SourceReadrateServer, data)
	if err != nil {
		return fmt.Errorf("create review.deleted event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicReviewDeleted, event); err != nil {
		return fmt.Errorf("publish review.deleted event: %w", err)
	}

	p.logger.DebugContext(ctx, "published review.deleted event",
		slog.String("review_id", reviewID),
		slog.String("book_id", bookID),
	)

	return nil
}
