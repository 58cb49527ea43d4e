// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package legalapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the backend client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// Is lets sentinel comparisons match on error type.
func (e *ClientError) Is(target error) bool {
	var other *ClientError
	if errors.As(target, &other) {
		return e.Type == other.Type
	}
	return false
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeUnreachable
	ErrTypeTimeout
	ErrTypeNotFound
	ErrTypeInvalidResponse
	ErrTypeConnection
	ErrTypeStream
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeUnreachable, Message: "backend is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "resource not found"}
)

// IsUnreachable checks if an error indicates the backend is down.
func IsUnreachable(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeUnreachable
	}
	return false
}

// IsTimeout checks if an error is a timeout error.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsNotFound checks if an error is a not-found error.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return false
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the backend client.
type ClientConfig struct {
	// BaseURL is the backend base URL (default: http://localhost:8000)
	BaseURL string

	// Timeout for non-streaming requests (default: 30s)
	Timeout time.Duration

	// UserAgent sent on every request (default: "lexrun")
	UserAgent string

	// RequestsPerSecond caps the client-side request rate. Zero means
	// the default of 10; negative disables limiting.
	RequestsPerSecond float64
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:           "http://localhost:8000",
		Timeout:           30 * time.Second,
		UserAgent:         "lexrun",
		RequestsPerSecond: 10,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the legal research backend.
//
// The Client is safe for concurrent use.
//
// Example:
//
//	client := legalapi.NewClient()
//	if _, err := client.Health(ctx); err != nil {
//	    log.Fatal("backend not available:", err)
//	}
//	resp, err := client.Chat(ctx, legalapi.ChatRequest{Query: query})
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient creates a backend client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a backend client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://localhost:8000"
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = "lexrun"
	}
	if config.RequestsPerSecond == 0 {
		config.RequestsPerSecond = 10
	}

	var limiter *rate.Limiter
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: limiter,
	}
}

// BaseURL returns the configured backend base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// wait blocks until the rate limiter admits another request.
func (c *Client) wait(ctx context.Context) error {
	if c.limiter == nil {
		return nil
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return &ClientError{Type: ErrTypeTimeout, Message: "rate limit wait cancelled", Cause: err}
	}
	return nil
}

// mapTransportError converts a transport failure into a client error.
func mapTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrTimeout
	}
	if errors.Is(err, context.Canceled) {
		return &ClientError{Type: ErrTypeTimeout, Message: "request cancelled", Cause: err}
	}
	return &ClientError{Type: ErrTypeUnreachable, Message: "backend is not reachable", Cause: err}
}

// doJSON performs a request with a JSON body and decodes a JSON response.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody, respBody any) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.config.BaseURL+path, body)
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: fmt.Sprintf("%s %s failed: %s", method, path, resp.Status),
		}
	}

	if respBody != nil {
		if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
			return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
		}
	}
	return nil
}

// =============================================================================
// HEALTH CHECK
// =============================================================================

// Health verifies that the backend is reachable and reports its identity.
func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var result HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// CHAT OPERATIONS
// =============================================================================

// Chat sends a chat request and returns the complete answer (non-streaming).
func (c *Client) Chat(ctx context.Context, request ChatRequest) (*ChatResponse, error) {
	var result ChatResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/chat", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ChatStream sends a streaming chat request and calls the callback for
// each event. The callback runs synchronously in arrival order. Returns
// when the stream ends, the context is cancelled, or the connection fails.
// A non-2xx status fails before any event is delivered. There is no retry.
func (c *Client) ChatStream(ctx context.Context, request ChatRequest, callback EventCallback) error {
	if err := c.wait(ctx); err != nil {
		return err
	}

	body, err := json.Marshal(request)
	if err != nil {
		return &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	// Streaming uses a client without timeout; cancellation comes from
	// the context so long answers are not cut off mid-stream.
	streamClient := &http.Client{}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/chat/stream", bytes.NewReader(body))
	if err != nil {
		return &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := streamClient.Do(req)
	if err != nil {
		return mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "stream request failed: " + resp.Status,
		}
	}

	reader := NewStreamReader(resp.Body)
	return reader.ProcessUntilDone(ctx, callback)
}

// ChatStreamChan is ChatStream with a channel interface. The channel is
// closed when the stream ends; transport failures are delivered as a
// final error event.
func (c *Client) ChatStreamChan(ctx context.Context, request ChatRequest) <-chan Event {
	ch := make(chan Event)

	go func() {
		defer close(ch)

		err := c.ChatStream(ctx, request, func(event Event) {
			select {
			case ch <- event:
			case <-ctx.Done():
			}
		})

		if err != nil {
			select {
			case ch <- Event{Type: EventError, Message: err.Error()}:
			case <-ctx.Done():
			}
		}
	}()

	return ch
}

// =============================================================================
// SEARCH
// =============================================================================

// Search queries the document index directly.
func (c *Client) Search(ctx context.Context, request SearchRequest) (*SearchResponse, error) {
	var result SearchResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/search", request, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// KNOWLEDGE BASE
// =============================================================================

// ListSources retrieves the knowledge base summary.
func (c *Client) ListSources(ctx context.Context) (*SourcesResponse, error) {
	var result SourcesResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/sources", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// SourceDetails lists every document of one type with its chunks.
func (c *Client) SourceDetails(ctx context.Context, docType DocumentType) (*SourceDetailsResponse, error) {
	var result SourceDetailsResponse
	path := "/api/sources/" + url.PathEscape(string(docType))
	if err := c.doJSON(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// =============================================================================
// DOCUMENT MANAGEMENT
// =============================================================================

// ListDocuments lists the raw files in the backend's documents folder.
func (c *Client) ListDocuments(ctx context.Context) (*ListDocumentsResponse, error) {
	var result ListDocumentsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/documents", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// UploadDocument uploads one file as multipart form data.
func (c *Client) UploadDocument(ctx context.Context, filename string, content io.Reader) (*UploadResponse, error) {
	if err := c.wait(ctx); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to build upload form", Cause: err}
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to read upload content", Cause: err}
	}
	if err := writer.Close(); err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to finalize upload form", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/api/documents/upload", &buf)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("User-Agent", c.config.UserAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, mapTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ClientError{
			Type:    ErrTypeInvalidResponse,
			Message: "upload failed: " + resp.Status,
		}
	}

	var result UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}
	return &result, nil
}

// DeleteDocument removes one file from the backend's documents folder.
func (c *Client) DeleteDocument(ctx context.Context, filename string) (*DeleteResponse, error) {
	var result DeleteResponse
	path := "/api/documents/" + url.PathEscape(filename)
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// IngestDocuments triggers a knowledge base rebuild from the uploaded
// documents. This is expensive on the backend side; callers should not
// invoke it per-file.
func (c *Client) IngestDocuments(ctx context.Context) (*IngestResponse, error) {
	var result IngestResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/ingest", nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
