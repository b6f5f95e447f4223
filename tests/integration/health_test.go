package integration

import (
	"net/http"
	"testing"
	"time"
)

// TestLiveness checks the /health/live endpoint. If the server is
// unreachable, the test is skipped (not failed), allowing the suite to run in
// environments where the stack is not up.
func TestLiveness(t *testing.T) {
	client := &http.Client{Timeout: 3 * time.Second}

	resp, err := client.Get(baseURL() + "/health/live")
	if err != nil {
		t.Skipf("server on port %d not reachable: %v", serverPort, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("liveness check returned %d, want 200", resp.StatusCode)
	}
}

// TestReadiness checks the /health/ready endpoint, which verifies the
// PostgreSQL, Redis, and Kafka dependencies.
func TestReadiness(t *testing.T) {
	client := &http.Client{Timeout: 3 * time.Second}

	resp, err := client.Get(baseURL() + "/health/ready")
	if err != nil {
		t.Skipf("server on port %d not reachable: %v", serverPort, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Errorf("readiness check returned %d, want 200", resp.StatusCode)
	}
}
