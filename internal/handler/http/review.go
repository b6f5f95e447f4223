package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readrate/server/internal/service"
	"github.com/readrate/server/pkg/httputil"
	"github.com/readrate/server/pkg/middleware"
	"github.com/readrate/server/pkg/pagination"
	"github.com/readrate/server/pkg/validator"
)

// ReviewHandler handles HTTP requests for review endpoints.
type ReviewHandler struct {
	service *service.ReviewService
	logger  *slog.Logger
}

// NewReviewHandler creates a new review HTTP handler.
func NewReviewHandler(svc *service.ReviewService, logger *slog.Logger) *ReviewHandler {
	return &ReviewHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// SubmitReviewRequest is the JSON request body for submitting a review.
type SubmitReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// UpdateReviewRequest is the JSON request body for updating a review.
type UpdateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// --- Handlers ---

// SubmitReview handles POST /api/v1/books/{bookId}/reviews
func (h *ReviewHandler) SubmitReview(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")
	if _, ok := httputil.ParseUUID(w, bookID); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req SubmitReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.SubmitReviewInput{
		BookID:  bookID,
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	review, err := h.service.SubmitReview(r.Context(), middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: review})
}

// ListReviews handles GET /api/v1/books/{bookId}/reviews
func (h *ReviewHandler) ListReviews(w http.ResponseWriter, r *http.Request) {
	bookID := chi.URLParam(r, "bookId")
	if _, ok := httputil.ParseUUID(w, bookID); !ok {
		return
	}

	result, err := h.service.ListReviews(r.Context(), bookID, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// UpdateReview handles PUT /api/v1/reviews/{id}
func (h *ReviewHandler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req UpdateReviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.WriteJSON(w, http.StatusBadRequest, httputil.Response{
			Error: &httputil.ErrorResponse{Code: "INVALID_INPUT", Message: "invalid request body: " + err.Error()},
		})
		return
	}

	if err := validator.Validate(req); err != nil {
		httputil.WriteValidationError(w, err)
		return
	}

	input := service.UpdateReviewInput{
		Rating:  req.Rating,
		Comment: req.Comment,
	}

	review, err := h.service.UpdateReview(r.Context(), id, middleware.UserIDFromContext(r.Context()), input)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: review})
}

// DeleteReview handles DELETE /api/v1/reviews/{id}
func (h *ReviewHandler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	if err := h.service.DeleteReview(r.Context(), id, middleware.UserIDFromContext(r.Context())); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
