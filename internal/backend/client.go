// Package backend is the HTTP client for the remote ledger API. The backend owns
// all persistent state; this package only moves JSON.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
var ErrUnauthorized = errors.New("unauthorized")

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("not found")

// ErrNoToken is returned by a TokenSource with no active session.
var ErrNoToken = errors.New("no auth token")

// APIError is a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend returned %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("backend returned %d", e.Status)
}

// Is makes a 401 match ErrUnauthorized.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthorized && e.Status == http.StatusUnauthorized
}

// TokenSource supplies the bearer token and is told when the backend rejects it.
type TokenSource interface {
	Token() (string, error)
	Invalidate()
}

// Client talks to the ledger backend
type Client struct {
	baseURL string
	client  *http.Client
	tokens  TokenSource
	log     *logrus.Logger
}

// NewClient initializes a new backend client
func NewClient(baseURL string, timeout time.Duration, log *logrus.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client: &http.Client{
			Timeout: timeout,
		},
		log: log,
	}
}

// SetTokenSource attaches the session that authorizes API calls.
func (c *Client) SetTokenSource(ts TokenSource) {
	c.tokens = ts
}

type request struct {
	method         string
	path           string
	body           any
	auth           bool
	idempotencyKey string
}

// buildRequest encodes the body and sets headers
func (c *Client) buildRequest(ctx context.Context, r request) (*http.Request, error) {
	var body io.Reader
	if r.body != nil {
		buf, err := json.Marshal(r.body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if r.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if r.idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", r.idempotencyKey)
	}

	if r.auth {
		if c.tokens == nil {
			return nil, ErrNoToken
		}
		token, err := c.tokens.Token()
		if err != nil {
			return nil, err
		}
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

// do sends the request and decodes a JSON response into out (if non-nil)
func (c *Client) do(ctx context.Context, r request, out any) error {
	req, err := c.buildRequest(ctx, r)
	if err != nil {
		return err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.log.WithFields(logrus.Fields{
		"method": r.method,
		"path":   r.path,
		"status": resp.StatusCode,
	}).Debug("backend call")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: errorMessage(raw)}
		if resp.StatusCode == http.StatusUnauthorized && r.auth && c.tokens != nil {
			c.tokens.Invalidate()
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// errorMessage pulls {"error": "..."} out of a failure body
func errorMessage(raw []byte) string {
	var body struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(raw, &body); err != nil {
		return ""
	}
	if body.Error != "" {
		return body.Error
	}
	return body.Message
}
