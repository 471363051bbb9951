// Package api implements the HTTP client for the agent backend: plain and
// streaming chat, web search, document Q&A, markdown conversion and the
// audio endpoints.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	http "github.com/bogdanfinn/fhttp"
	tls_client "github.com/bogdanfinn/tls-client"
	"github.com/bogdanfinn/tls-client/profiles"

	"github.com/diogo/agentchat/internal/config"
	apierrors "github.com/diogo/agentchat/internal/errors"
	"github.com/diogo/agentchat/internal/models"
)

const maxErrorBody = 4096

// Client is the main client for the agent backend
type Client struct {
	httpClient tls_client.HttpClient
	baseURL    string
	session    *config.Session
	timeout    time.Duration
	mu         sync.RWMutex
	closed     bool
}

// ClientOption is a function that configures the client
type ClientOption func(*Client)

// WithBaseURL sets the backend base address
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
}

// WithTimeout sets the per-operation budget
func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithSession attaches the backend session cookie to every request
func WithSession(s *config.Session) ClientOption {
	return func(c *Client) {
		c.session = s
	}
}

// WithHTTPClient replaces the underlying HTTP client (used by tests)
func WithHTTPClient(hc tls_client.HttpClient) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new Client
func NewClient(opts ...ClientOption) (*Client, error) {
	options := []tls_client.HttpClientOption{
		tls_client.WithTimeoutSeconds(300),
		tls_client.WithClientProfile(profiles.Chrome_120),
	}

	httpClient, err := tls_client.NewHttpClient(tls_client.NewNoopLogger(), options...)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP client: %w", err)
	}

	client := &Client{
		httpClient: httpClient,
		baseURL:    models.DefaultBaseURL,
		timeout:    120 * time.Second,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client, nil
}

// Close shuts down the client
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
}

// IsClosed returns whether the client is closed
func (c *Client) IsClosed() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.closed
}

// BaseURL returns the backend base address
func (c *Client) BaseURL() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.baseURL
}

// Timeout returns the per-operation budget
func (c *Client) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

// SetSession replaces the session cookie used for authenticated requests
func (c *Client) SetSession(s *config.Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.session = s
}

func (c *Client) endpoint(path string) string {
	return c.BaseURL() + path
}

// opContext bounds a non-streaming operation by the configured timeout.
// Streaming operations stay on the transport's longer budget: a slow model
// legitimately takes longer than any single-request deadline.
func (c *Client) opContext(ctx context.Context) (context.Context, context.CancelFunc) {
	timeout := c.Timeout()
	if timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, timeout)
}

// do executes a request with the session cookie attached, mapping transport
// failures to NetworkError.
func (c *Client) do(op string, req *http.Request) (*http.Response, error) {
	if c.IsClosed() {
		return nil, apierrors.ErrClientClosed
	}

	c.mu.RLock()
	session := c.session
	c.mu.RUnlock()
	if session != nil && session.Cookie != "" {
		req.AddCookie(&http.Cookie{Name: models.SessionCookieName, Value: session.Cookie})
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || req.Context().Err() == context.DeadlineExceeded {
			return nil, apierrors.NewTimeoutError(op, err)
		}
		return nil, apierrors.NewNetworkError(op, req.URL.Path, err)
	}
	return resp, nil
}

// checkStatus consumes and closes the body on a non-2xx response, returning
// a ServerError carrying up to 4KB of the body for diagnostics.
func checkStatus(op, path string, resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	_ = resp.Body.Close()
	return apierrors.NewServerErrorWithBody(resp.StatusCode, path, op+" failed", string(body))
}

// newFormRequest builds a POST request with an urlencoded body.
func newFormRequest(ctx context.Context, url string, form url.Values) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}

// postForm posts urlencoded form data and returns the raw response body.
func (c *Client) postForm(ctx context.Context, op, path string, form url.Values) ([]byte, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	req, err := newFormRequest(ctx, c.endpoint(path), form)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(op, path, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// postJSON posts a JSON payload and returns the raw response body.
func (c *Client) postJSON(ctx context.Context, op, path string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	ctx, cancel := c.opContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(op, path, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}

// multipartBody builds a multipart body with the given form fields and an
// optional file part read from disk.
func multipartBody(fields map[string]string, fileField, filePath string) (*bytes.Buffer, string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	for key, value := range fields {
		if value == "" {
			continue
		}
		if err := writer.WriteField(key, value); err != nil {
			return nil, "", fmt.Errorf("failed to write form field %s: %w", key, err)
		}
	}

	if filePath != "" {
		file, err := os.Open(filePath)
		if err != nil {
			return nil, "", apierrors.NewClientError("failed to open file", err)
		}
		defer func() { _ = file.Close() }()

		part, err := writer.CreateFormFile(fileField, filepath.Base(filePath))
		if err != nil {
			return nil, "", fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			return nil, "", apierrors.NewClientError("failed to read file", err)
		}
	}

	if err := writer.Close(); err != nil {
		return nil, "", fmt.Errorf("failed to finalize multipart body: %w", err)
	}

	return &body, writer.FormDataContentType(), nil
}

// postMultipart posts a multipart submission and returns the open response
// after status checking. Callers own the body.
func (c *Client) postMultipart(ctx context.Context, op, path string, fields map[string]string, fileField, filePath string) (*http.Response, error) {
	body, contentType, err := multipartBody(fields, fileField, filePath)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.do(op, req)
	if err != nil {
		return nil, err
	}

	if err := checkStatus(op, path, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// get issues a GET request and returns the raw response body.
func (c *Client) get(ctx context.Context, op, path string) ([]byte, error) {
	ctx, cancel := c.opContext(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint(path), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.do(op, req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if err := checkStatus(op, path, resp); err != nil {
		return nil, err
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	return body, nil
}
