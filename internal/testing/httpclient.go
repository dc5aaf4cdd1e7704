package testing

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

// TestClient provides an HTTP client for a test server, optionally
// sending a bearer token
type TestClient struct {
	Server *httptest.Server
	Token  string
}

// NewTestClient wraps handler in a test server closed at the end of the test
func NewTestClient(t *testing.T, handler http.Handler) *TestClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return &TestClient{Server: server}
}

// Do performs an HTTP request
func (tc *TestClient) Do(method, path string, body interface{}) (*http.Response, error) {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequest(method, tc.Server.URL+path, reqBody)
	if err != nil {
		return nil, err
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	if tc.Token != "" {
		req.Header.Set("Authorization", "Bearer "+tc.Token)
	}

	return tc.Server.Client().Do(req)
}

// Get performs a GET request
func (tc *TestClient) Get(path string) (*http.Response, error) {
	return tc.Do(http.MethodGet, path, nil)
}

// Post performs a POST request
func (tc *TestClient) Post(path string, body interface{}) (*http.Response, error) {
	return tc.Do(http.MethodPost, path, body)
}

// ParseResponse parses JSON response
func ParseResponse(t *testing.T, resp *http.Response, v interface{}) error {
	t.Helper()

	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("request failed with status %d: %s", resp.StatusCode, string(body))
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// AssertStatus asserts response status code
func AssertStatus(t *testing.T, resp *http.Response, expected int) {
	t.Helper()

	if resp.StatusCode != expected {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("Expected status %d, got %d. Body: %s", expected, resp.StatusCode, string(body))
	}
}
