package integration

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"testing"
	"time"
)

// serverPort is the HTTP port the readrate server listens on in the local
// docker-compose setup.
const serverPort = 8080

// baseURL returns the base URL of the readrate server.
func baseURL() string {
	return fmt.Sprintf("http://localhost:%d", serverPort)
}

// uniqueEmail generates a unique email address to avoid test collisions.
func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s-%d-%d@test.example.com", prefix, time.Now().UnixNano(), rand.Intn(100000))
}

// skipIfNotRunning performs a quick health check against the server.
// If it is unreachable, the test is skipped (not failed).
func skipIfNotRunning(t *testing.T) {
	t.Helper()
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("server on port %d not reachable (Docker not running?): %v", serverPort, err)
	}
	resp.Body.Close()
}

// httpGet performs an HTTP GET request and returns the status code and decoded JSON body.
func httpGet(t *testing.T, url string) (int, map[string]interface{}) {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("GET %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

// httpPost performs an HTTP POST request with a JSON body.
func httpPost(t *testing.T, url string, body interface{}) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodPost, url, body, "")
}

// httpPostWithAuth performs an HTTP POST request with a JSON body and Bearer token.
func httpPostWithAuth(t *testing.T, url string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodPost, url, body, token)
}

// httpPutWithAuth performs an HTTP PUT request with a JSON body and Bearer token.
func httpPutWithAuth(t *testing.T, url string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	return doJSONRequest(t, http.MethodPut, url, body, token)
}

// httpDeleteWithAuth performs an HTTP DELETE request with a Bearer token.
func httpDeleteWithAuth(t *testing.T, url string, token string) (int, map[string]interface{}) {
	t.Helper()
	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(http.MethodDelete, url, nil)
	if err != nil {
		t.Fatalf("creating DELETE request for %s failed: %v", url, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("DELETE %s failed: %v", url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

// doJSONRequest is the internal helper for JSON HTTP requests.
func doJSONRequest(t *testing.T, method, url string, body interface{}, token string) (int, map[string]interface{}) {
	t.Helper()
	var bodyReader io.Reader
	if body != nil {
		jsonBytes, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshalling request body failed: %v", err)
		}
		bodyReader = bytes.NewReader(jsonBytes)
	}

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequest(method, url, bodyReader)
	if err != nil {
		t.Fatalf("creating %s request for %s failed: %v", method, url, err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("%s %s failed: %v", method, url, err)
	}
	defer resp.Body.Close()
	return resp.StatusCode, decodeBody(t, resp.Body)
}

// decodeBody reads the response body and attempts to decode it as JSON.
// If the body is empty or not JSON, it returns an empty map.
func decodeBody(t *testing.T, body io.Reader) map[string]interface{} {
	t.Helper()
	raw, err := io.ReadAll(body)
	if err != nil {
		t.Fatalf("reading response body failed: %v", err)
	}
	if len(raw) == 0 {
		return map[string]interface{}{}
	}
	var result map[string]interface{}
	if err := json.Unmarshal(raw, &result); err != nil {
		// Not JSON; return the raw string in a "raw" key for debugging.
		return map[string]interface{}{"raw": string(raw)}
	}
	return result
}

// requireStatus asserts that the HTTP status code matches the expected value.
func requireStatus(t *testing.T, got, want int) {
	t.Helper()
	if got != want {
		t.Fatalf("expected status %d, got %d", want, got)
	}
}

// extractField extracts a value from a nested map using a dot-separated path.
// For example, extractField(data, "data.user.id") navigates data["data"]["user"]["id"].
func extractField(data map[string]interface{}, path string) interface{} {
	parts := strings.Split(path, ".")
	var current interface{} = data
	for _, part := range parts {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// extractString is a convenience wrapper around extractField that returns a string.
func extractString(t *testing.T, data map[string]interface{}, path string) string {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected string at path %q, got nil", path)
	}
	s, ok := val.(string)
	if !ok {
		t.Fatalf("expected string at path %q, got %T: %v", path, val, val)
	}
	return s
}

// extractFloat is a convenience wrapper that returns a float64.
func extractFloat(t *testing.T, data map[string]interface{}, path string) float64 {
	t.Helper()
	val := extractField(data, path)
	if val == nil {
		t.Fatalf("expected number at path %q, got nil", path)
	}
	f, ok := val.(float64)
	if !ok {
		t.Fatalf("expected float64 at path %q, got %T: %v", path, val, val)
	}
	return f
}

// registerUser registers a fresh user and returns its access token.
func registerUser(t *testing.T, prefix string) string {
	t.Helper()
	email := uniqueEmail(prefix)
	status, data := httpPost(t, baseURL()+"/api/v1/auth/register", map[string]interface{}{
		"first_name": "Integration",
		"last_name":  "Test",
		"email":      email,
		"password":   "TestPass123",
	})
	requireStatus(t, status, 201)
	return extractString(t, data, "data.access_token")
}

// createBook creates a book owned by the given token's user and returns its ID.
func createBook(t *testing.T, token, title string) string {
	t.Helper()
	status, data := httpPostWithAuth(t, baseURL()+"/api/v1/books", map[string]interface{}{
		"title":  title,
		"author": "Integration Author",
		"genre":  "Test Fiction",
	}, token)
	requireStatus(t, status, 201)
	return extractString(t, data, "data.id")
}
