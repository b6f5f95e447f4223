package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"
	"unicode"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/readrate/server/internal/auth"
	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/internal/event"
	"github.com/readrate/server/internal/repository"
	apperrors "github.com/readrate/server/pkg/errors"
)

// bcryptCost is the cost factor for bcrypt password hashing.
const bcryptCost = 12

// minPasswordLength is the minimum password length required.
const minPasswordLength = 8

// RegisterInput holds the parameters for registering a new user.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Password  string
}

// LoginInput holds the parameters for user login.
type LoginInput struct {
	Email    string
	Password string
}

// UserService implements the business logic for user and auth operations.
type UserService struct {
	repo       repository.UserRepository
	jwtManager *auth.JWTManager
	producer   *event.Producer
	logger     *slog.Logger
}

// NewUserService creates a new user service.
func NewUserService(repo repository.UserRepository, jwtManager *auth.JWTManager, producer *event.Producer, logger *slog.Logger) *UserService {
	return &UserService{
		repo:       repo,
		jwtManager: jwtManager,
		producer:   producer,
		logger:     logger,
	}
}

// Register creates a new user account, hashes the password, and returns an
// access token.
func (s *UserService) Register(ctx context.Context, input RegisterInput) (*domain.User, string, error) {
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if input.FirstName == "" {
		return nil, "", apperrors.InvalidInput("first name is required")
	}
	if input.LastName == "" {
		return nil, "", apperrors.InvalidInput("last name is required")
	}
	if err := validatePassword(input.Password); err != nil {
		return nil, "", err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		PasswordHash: string(hashedPassword),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return nil, "", fmt.Errorf("create user: %w", err)
	}

	token, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}

	// Publish registration event (non-blocking on failure).
	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user.registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "user registered",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// Login authenticates a user with email and password, returning an access
// token.
func (s *UserService) Login(ctx context.Context, input LoginInput) (*domain.User, string, error) {
	if input.Email == "" {
		return nil, "", apperrors.InvalidInput("email is required")
	}
	if input.Password == "" {
		return nil, "", apperrors.InvalidInput("password is required")
	}

	user, err := s.repo.GetByEmail(ctx, input.Email)
	if err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		return nil, "", apperrors.Unauthorized("invalid email or password")
	}

	token, err := s.jwtManager.GenerateAccessToken(user.ID, user.Email)
	if err != nil {
		return nil, "", fmt.Errorf("generate access token: %w", err)
	}

	s.logger.InfoContext(ctx, "user logged in",
		slog.String("user_id", user.ID),
		slog.String("email", user.Email),
	)

	return user, token, nil
}

// GetByID retrieves a user by their ID.
func (s *UserService) GetByID(ctx context.Context, userID string) (*domain.User, error) {
	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

// validatePassword checks that the password meets minimum complexity requirements.
func validatePassword(password string) error {
	if len(password) < minPasswordLength {
		return apperrors.InvalidInput(fmt.Sprintf("password must be at least %d characters", minPasswordLength))
	}

	var hasUpper, hasLower, hasDigit bool
	for _, ch := range password {
		switch {
		case unicode.IsUpper(ch):
			hasUpper = true
		case unicode.IsLower(ch):
			hasLower = true
		case unicode.IsDigit(ch):
			hasDigit = true
		}
	}

	if !hasUpper || !hasLower || !hasDigit {
		return apperrors.InvalidInput("password must contain at least one uppercase letter, one lowercase letter, and one digit")
	}

	return nil
}
