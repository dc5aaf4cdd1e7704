package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/swa/agilemetrics/internal/dashboard"
)

// Client provides HTTP access to a running agilemetrics server
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new client. token may be empty when the server runs
// without authentication.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

/* APIError is a non-2xx response */
type APIError struct {
	StatusCode int
	ErrorText  string                 `json:"error"`
	Message    string                 `json:"message"`
	Code       string                 `json:"code"`
	Details    map[string]interface{} `json:"details"`
	RequestID  string                 `json:"request_id"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("API error %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error %d: %s", e.StatusCode, e.ErrorText)
}

// Query encodes a selection the way the server's flow endpoints read it
func Query(sel dashboard.SelectionRequest) url.Values {
	q := url.Values{}
	if sel.MinDate != "" {
		q.Set("min_date", sel.MinDate)
	}
	if sel.MaxDate != "" {
		q.Set("max_date", sel.MaxDate)
	}
	if sel.HourlyBound != "" {
		q.Set("hourly_bound", sel.HourlyBound)
	}
	if sel.Exclude != nil {
		if len(sel.Exclude) == 0 {
			q["exclude"] = []string{""}
		} else {
			q["exclude"] = append([]string{}, sel.Exclude...)
		}
	}
	return q
}

// Extent returns the selectable range and columns
func (c *Client) Extent(ctx context.Context) (*dashboard.ExtentInfo, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/flow/extent", nil, nil)
	if err != nil {
		return nil, err
	}

	var extent dashboard.ExtentInfo
	if err := c.doRequest(req, &extent); err != nil {
		return nil, err
	}
	return &extent, nil
}

// Report computes the full report for sel on the server
func (c *Client) Report(ctx context.Context, sel dashboard.SelectionRequest) (*dashboard.Report, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/flow/report", Query(sel), nil)
	if err != nil {
		return nil, err
	}

	var report dashboard.Report
	if err := c.doRequest(req, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// LeadTime computes only the lead time statistics for sel
func (c *Client) LeadTime(ctx context.Context, sel dashboard.SelectionRequest) (*dashboard.LeadTime, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/v1/flow/lead-time", Query(sel), nil)
	if err != nil {
		return nil, err
	}

	var lt dashboard.LeadTime
	if err := c.doRequest(req, &lt); err != nil {
		return nil, err
	}
	return &lt, nil
}

// Reload asks the server to reread its database
func (c *Client) Reload(ctx context.Context) (*dashboard.SnapshotStats, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/v1/snapshot/reload", nil, nil)
	if err != nil {
		return nil, err
	}

	var stats dashboard.SnapshotStats
	if err := c.doRequest(req, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// Helper methods

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body interface{}) (*http.Request, error) {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) doRequest(req *http.Request, result interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if json.Unmarshal(body, apiErr) != nil || (apiErr.Message == "" && apiErr.ErrorText == "") {
			apiErr.ErrorText = strings.TrimSpace(string(body))
		}
		return apiErr
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}
