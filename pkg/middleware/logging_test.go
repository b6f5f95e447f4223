package middleware

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRequestLogging_LogsRequest(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	handler := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":"b1"}`)) //nolint:errcheck
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	out := buf.String()
	assert.Contains(t, out, "http request")
	assert.Contains(t, out, `"method":"POST"`)
	assert.Contains(t, out, `"path":"/api/v1/books"`)
	assert.Contains(t, out, `"status":201`)
}

func TestRequestLogging_GeneratesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	handler := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.NotEmpty(t, rr.Header().Get("X-Correlation-ID"))
}

func TestRequestLogging_PropagatesCorrelationID(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	handler := RequestLogging(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Correlation-ID", "existing-corr-id")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "existing-corr-id", rr.Header().Get("X-Correlation-ID"))
	assert.Contains(t, buf.String(), "existing-corr-id")
}

func TestRecovery_RecoversFromPanic(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	handler := Recovery(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("something broke")
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	rr := httptest.NewRecorder()

	assert.NotPanics(t, func() {
		handler.ServeHTTP(rr, req)
	})

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Contains(t, rr.Body.String(), "INTERNAL_ERROR")
	assert.Contains(t, buf.String(), "panic recovered")
}

func TestRecovery_PassesThroughNormally(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf)

	handler := Recovery(l)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	req := httptest.NewRequest(http.MethodDelete, "/api/v1/reviews/r1", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNoContent, rr.Code)
	assert.Empty(t, buf.String())
}

func TestCacheControl_SetsHeaderOnGet(t *testing.T) {
	handler := CacheControl(300)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/books", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, "public, max-age=300", rr.Header().Get("Cache-Control"))
}

func TestCacheControl_SkipsNonGet(t *testing.T) {
	handler := CacheControl(300)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/books", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Empty(t, rr.Header().Get("Cache-Control"))
}
