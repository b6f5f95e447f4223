package http

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/readrate/server/internal/domain"
	"github.com/readrate/server/internal/service"
	"github.com/readrate/server/pkg/httputil"
	"github.com/readrate/server/pkg/middleware"
	"github.com/readrate/server/pkg/pagination"
	"github.com/readrate/server/pkg/validator"
)

// BookHandler handles HTTP requests for catalog endpoints.
type BookHandler struct {
	service *service.BookService
	logger  *slog.Logger
}

// NewBookHandler creates a new book HTTP handler.
func NewBookHandler(svc *service.BookService, logger *slog.Logger) *BookHandler {
	return &BookHandler{service: svc, logger: logger}
}

// --- Request DTOs ---

// CreateBookRequest is the JSON request body for creating a book.
type CreateBookRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=500"`
	Author      string `json:"author" validate:"required,min=1,max=255"`
	Genre       string `json:"genre" validate:"required,min=1,max=100"`
	Description string `json:"description" validate:"max=5000"`
	ImageURL    string `json:"image_url" validate:"omitempty,url"`
}

// --- Handlers ---

// CreateBook handles POST /api/v1/books
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB limit

	var req CreateBookRequest
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

	input := service.CreateBookInput{
		Title:       req.Title,
		Author:      req.Author,
		Genre:       req.Genre,
		Description: req.Description,
		ImageURL:    req.ImageURL,
	}

	book, err := h.service.CreateBook(r.Context(), input, middleware.UserIDFromContext(r.Context()))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, httputil.Response{Data: book})
}

// GetBook handles GET /api/v1/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, ok := httputil.ParseUUID(w, id); !ok {
		return
	}

	detail, err := h.service.GetBook(r.Context(), id, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, httputil.Response{Data: detail})
}

// ListBooks handles GET /api/v1/books
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := domain.BookFilter{
		Genre:    q.Get("genre"),
		Author:   q.Get("author"),
		Title:    q.Get("title"),
		SortBy:   q.Get("sort_by"),
		SortDesc: q.Get("order") != "asc",
	}

	result, err := h.service.ListBooks(r.Context(), filter, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}

// SearchBooks handles GET /api/v1/search
func (h *BookHandler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")

	result, err := h.service.SearchBooks(r.Context(), query, pagination.FromRequest(r))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, result)
}
