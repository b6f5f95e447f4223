package postgres

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/pkg/database"
	apperrors "github.com/readrate/server/pkg/errors"
)

func newTestUserRepo(t *testing.T) (*UserRepository, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := database.NewMockPool()
	require.NoError(t, err)
	repo := NewUserRepository(mock)
	return repo, mock
}

func sampleUser() *domain.User {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &domain.User{
		ID:           "user-001",
		FirstName:    "Alice",
		LastName:     "Reader",
		Email:        "alice@example.com",
		PasswordHash: "$2a$12$abcdefghijklmnopqrstuv",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestUserRepository_Create_Success(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := repo.Create(context.Background(), u)
	assert.NoError(t, err)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_Create_DuplicateEmail(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	u := sampleUser()

	mock.ExpectExec("INSERT INTO users").
		WithArgs(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnError(errors.New(`ERROR: duplicate key value violates unique constraint "idx_users_email" (SQLSTATE 23505)`))

	err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_Success(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	u := sampleUser()

	mock.ExpectQuery("SELECT id, first_name, last_name, email, password_hash").
		WithArgs(u.Email).
		WillReturnRows(pgxmock.NewRows([]string{"id", "first_name", "last_name", "email", "password_hash", "created_at", "updated_at"}).
			AddRow(u.ID, u.FirstName, u.LastName, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt))

	got, err := repo.GetByEmail(context.Background(), u.Email)
	require.NoError(t, err)

	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, u.PasswordHash, got.PasswordHash)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByEmail_NotFound(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("SELECT id, first_name, last_name, email, password_hash").
		WithArgs("missing@example.com").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "missing@example.com")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_GetByID_NotFound(t *testing.T) {
	repo, mock := newTestUserRepo(t)

	mock.ExpectQuery("SELECT id, first_name, last_name, email, password_hash").
		WithArgs("user-missing").
		WillReturnError(pgx.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "user-missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)

	assert.NoError(t, mock.ExpectationsWereMet())
}
