package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/readrate/server/internal/auth"
	"github.com/readrate/server/internal/service"
	"github.com/readrate/server/pkg/health"
	"github.com/readrate/server/pkg/middleware"
)

// publicCacheMaxAge is the Cache-Control max-age, in seconds, for public
// catalog reads.
const publicCacheMaxAge = 60

// NewRouter creates a chi router with all readrate routes registered.
func NewRouter(
	userService *service.UserService,
	bookService *service.BookService,
	reviewService *service.ReviewService,
	jwtManager *auth.JWTManager,
	healthHandler *health.Handler,
	logger *slog.Logger,
	corsConfig middleware.CORSConfig,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.CORS(corsConfig))
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.Tracing("readrate"))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.RequestLogger(logger))
	r.Use(middleware.PrometheusMetrics("readrate"))

	// Health check and metrics endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	// Token validator that bridges to our internal JWTManager.
	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := jwtManager.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{
			UserID: claims.UserID,
			Email:  claims.Email,
		}, nil
	}

	// Auth endpoints (public)
	authHandler := NewAuthHandler(userService, logger)
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/register", authHandler.Register)
		r.Post("/login", authHandler.Login)
	})

	// Catalog endpoints
	bookHandler := NewBookHandler(bookService, logger)
	reviewHandler := NewReviewHandler(reviewService, logger)

	r.Route("/api/v1/books", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		// Public reads
		r.Group(func(r chi.Router) {
			r.Use(middleware.CacheControl(publicCacheMaxAge))

			r.Get("/", bookHandler.ListBooks)
			r.Get("/{id}", bookHandler.GetBook)
			r.Get("/{bookId}/reviews", reviewHandler.ListReviews)
		})

		// Authenticated writes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))

			r.Post("/", bookHandler.CreateBook)
			r.Post("/{bookId}/reviews", reviewHandler.SubmitReview)
		})
	})

	// Review mutation endpoints (auth required)
	r.Route("/api/v1/reviews", func(r chi.Router) {
		r.Use(ContentTypeJSON)
		r.Use(middleware.Auth(tokenValidator))

		r.Put("/{id}", reviewHandler.UpdateReview)
		r.Delete("/{id}", reviewHandler.DeleteReview)
	})

	// Search endpoint (public)
	r.Route("/api/v1/search", func(r chi.Router) {
		r.Use(middleware.CacheControl(publicCacheMaxAge))

		r.Get("/", bookHandler.SearchBooks)
	})

	return r
}
