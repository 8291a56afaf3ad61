package formsapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/goliatone/go-formwizard/internal/logging"
)

// DefaultTimeout bounds each API call.
const DefaultTimeout = 30 * time.Second

// ErrNotFound matches APIErrors carrying a 404 status.
var ErrNotFound = errors.New("formsapi: form not found")

// APIError is a non-2xx response from the forms API.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("formsapi: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("formsapi: %s (status %d)", e.Message, e.Status)
}

// Is reports ErrNotFound for 404 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrNotFound && e.Status == http.StatusNotFound
}

// ClientOption customises a Client.
type ClientOption func(*Client)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(client *http.Client) ClientOption {
	return func(c *Client) {
		if client != nil {
			c.http = client
		}
	}
}

// WithToken sends a bearer token with every request.
func WithToken(token string) ClientOption {
	return func(c *Client) {
		c.token = strings.TrimSpace(token)
	}
}

// WithLogger sets the client logger.
func WithLogger(logger logrus.FieldLogger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client talks to the forms persistence API.
type Client struct {
	baseURL string
	http    *http.Client
	token   string
	logger  logrus.FieldLogger
}

// NewClient returns a client for the API rooted at baseURL, for example
// "https://admin.example.com".
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: DefaultTimeout},
		logger:  logging.Discard(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Create stores a new form.
func (c *Client) Create(ctx context.Context, payload FormPayload) (FormRecord, error) {
	var out Envelope[FormRecord]
	err := c.do(ctx, http.MethodPost, "/api/forms", Envelope[FormPayload]{Data: payload}, &out)
	return out.Data, err
}

// Update replaces the form stored under documentID.
func (c *Client) Update(ctx context.Context, documentID string, payload FormPayload) (FormRecord, error) {
	var out Envelope[FormRecord]
	err := c.do(ctx, http.MethodPut, "/api/forms/"+url.PathEscape(documentID), Envelope[FormPayload]{Data: payload}, &out)
	return out.Data, err
}

// Save updates when documentID is set and creates otherwise.
func (c *Client) Save(ctx context.Context, documentID string, payload FormPayload) (FormRecord, error) {
	if strings.TrimSpace(documentID) == "" {
		return c.Create(ctx, payload)
	}
	return c.Update(ctx, documentID, payload)
}

// Get fetches one form.
func (c *Client) Get(ctx context.Context, documentID string) (FormRecord, error) {
	var out Envelope[FormRecord]
	err := c.do(ctx, http.MethodGet, "/api/forms/"+url.PathEscape(documentID), nil, &out)
	return out.Data, err
}

// List fetches every form.
func (c *Client) List(ctx context.Context) ([]FormRecord, error) {
	var out Envelope[[]FormRecord]
	err := c.do(ctx, http.MethodGet, "/api/forms", nil, &out)
	return out.Data, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("formsapi: encode request: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("formsapi: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("formsapi: %s %s: %w", method, path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	c.logger.WithFields(logrus.Fields{
		"method":  method,
		"path":    path,
		"status":  resp.StatusCode,
		"elapsed": time.Since(start),
	}).Debug("formsapi: request finished")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("formsapi: read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var payload ErrorBody
		if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
			apiErr.Message = payload.Error
			apiErr.Code = payload.Code
		}
		return apiErr
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("formsapi: decode response: %w", err)
	}
	return nil
}
