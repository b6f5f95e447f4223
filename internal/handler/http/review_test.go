package http

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/internal/service"
	apperrors "github.com/readrate/server/pkg/errors"
	"github.com/readrate/server/pkg/middleware"
)

func sampleStoredReview() *domain.Review {
	now := time.Now().UTC()
	return &domain.Review{
		ID:        testReviewID,
		BookID:    testBookID,
		UserID:    testUserID,
		Rating:    5,
		Comment:   "Brilliant.",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// setupReviewRouter mirrors the production review routes: public listing under
// books plus authenticated submit, update, and delete.
func setupReviewRouter(t *testing.T, repo *mockReviewRepo, userID string) *chi.Mux {
	t.Helper()
	svc := service.NewReviewService(repo, testBookCache(t), testEventProducer(), testLogger())
	handler := NewReviewHandler(svc, testLogger())

	r := chi.NewRouter()
	r.Route("/api/v1/books", func(r chi.Router) {
		r.Get("/{bookId}/reviews", handler.ListReviews)
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(fakeTokenValidator(userID)))
			r.Post("/{bookId}/reviews", handler.SubmitReview)
		})
	})
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(middleware.Auth(fakeTokenValidator(userID)))
		r.Put("/{id}", handler.UpdateReview)
		r.Delete("/{id}", handler.DeleteReview)
	})
	return r
}

func TestSubmitReviewEndpoint_Success(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	stored := sampleStoredReview()
	repo.On("Submit", mock.Anything, mock.AnythingOfType("*domain.Review")).
		Return(stored, domain.Aggregate{Average: 4.4, Count: 5}, nil)

	req := postJSON(t, "/api/v1/books/"+testBookID+"/reviews", map[string]any{
		"rating":  5,
		"comment": "Brilliant.",
	})
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusCreated, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	review := resp.Data.(map[string]any)
	assert.Equal(t, testReviewID, review["id"])
	assert.EqualValues(t, 5, review["rating"])

	repo.AssertExpectations(t)
}

func TestSubmitReviewEndpoint_InvalidBookID(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	req := postJSON(t, "/api/v1/books/not-a-uuid/reviews", map[string]any{"rating": 5})
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "INVALID_PARAMETER", resp.Error.Code)
	repo.AssertNotCalled(t, "Submit")
}

func TestSubmitReviewEndpoint_RatingOutOfRange(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	req := postJSON(t, "/api/v1/books/"+testBookID+"/reviews", map[string]any{"rating": 6})
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "VALIDATION_ERROR", resp.Error.Code)
	repo.AssertNotCalled(t, "Submit")
}

func TestSubmitReviewEndpoint_DuplicateActiveReview(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	repo.On("Submit", mock.Anything, mock.AnythingOfType("*domain.Review")).
		Return(nil, domain.Aggregate{}, apperrors.Conflict("user already has an active review for this book"))

	req := postJSON(t, "/api/v1/books/"+testBookID+"/reviews", map[string]any{"rating": 4})
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "CONFLICT", resp.Error.Code)
}

func TestSubmitReviewEndpoint_Unauthenticated(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	req := postJSON(t, "/api/v1/books/"+testBookID+"/reviews", map[string]any{"rating": 5})
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	repo.AssertNotCalled(t, "Submit")
}

func TestListReviewsEndpoint_Success(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	review := *sampleStoredReview()
	review.Reviewer = &domain.UserSummary{ID: testUserID, FirstName: "Alice", LastName: "Reader"}
	repo.On("ListByBookID", mock.Anything, testBookID, 10, 0).Return([]domain.Review{review}, 1, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books/"+testBookID+"/reviews", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	repo.AssertExpectations(t)
}

func TestUpdateReviewEndpoint_Success(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	updated := sampleStoredReview()
	updated.Rating = 3
	updated.Comment = "On a reread, flawed."
	repo.On("Update", mock.Anything, testReviewID, testUserID, 3, "On a reread, flawed.").
		Return(updated, domain.Aggregate{Average: 3.75, Count: 4}, nil)

	data := map[string]any{"rating": 3, "comment": "On a reread, flawed."}
	req := jsonRequest(t, http.MethodPut, "/api/v1/reviews/"+testReviewID, data)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Data)
	review := resp.Data.(map[string]any)
	assert.EqualValues(t, 3, review["rating"])

	repo.AssertExpectations(t)
}

func TestUpdateReviewEndpoint_Forbidden(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	repo.On("Update", mock.Anything, testReviewID, testUserID, 3, "").
		Return(nil, domain.Aggregate{}, apperrors.Forbidden("review belongs to another user"))

	req := jsonRequest(t, http.MethodPut, "/api/v1/reviews/"+testReviewID, map[string]any{"rating": 3})
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "FORBIDDEN", resp.Error.Code)
}

func TestDeleteReviewEndpoint_Success(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	repo.On("Delete", mock.Anything, testReviewID, testUserID).
		Return(testBookID, domain.Aggregate{Average: 4.0, Count: 3}, nil)

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+testReviewID, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, rec.Body.String())

	repo.AssertExpectations(t)
}

func TestDeleteReviewEndpoint_NotFound(t *testing.T) {
	repo := new(mockReviewRepo)
	router := setupReviewRouter(t, repo, testUserID)

	repo.On("Delete", mock.Anything, testReviewID, testUserID).
		Return("", domain.Aggregate{}, apperrors.NotFound("review", testReviewID))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/"+testReviewID, nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	resp := decodeResponse(t, rec)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "NOT_FOUND", resp.Error.Code)
}
