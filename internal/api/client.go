// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the local development backend.
	DefaultBaseURL = "http://127.0.0.1:8000/api"

	// DefaultTimeout bounds a single request.
	DefaultTimeout = 15 * time.Second

	// MaxResponseSize caps how much of a body is read.
	MaxResponseSize = 4 * 1024 * 1024

	userAgent = "chatrevamp-tui/1.0"
)

// Client talks to the REST backend. It is safe for concurrent use.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	log        zerolog.Logger
}

// NewClient creates a client for baseURL (including the /api prefix).
func NewClient(baseURL string, log zerolog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(5), 10),
		log:        log.With().Str("component", "api").Logger(),
	}
}

// WithTimeout sets the per-request timeout.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.httpClient.Timeout = timeout
	return c
}

// WithHTTPClient replaces the underlying HTTP client.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	return c
}

// WithRateLimit sets the outbound token bucket. rps <= 0 disables limiting.
func (c *Client) WithRateLimit(rps float64, burst int) *Client {
	if rps <= 0 {
		c.limiter = rate.NewLimiter(rate.Inf, 0)
		return c
	}
	if burst < 1 {
		burst = 1
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// =============================================================================
// ENDPOINTS
// =============================================================================

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	return c.authenticate(ctx, "/login", req, "Login failed")
}

// Register creates an account and signs it in.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	return c.authenticate(ctx, "/register", req, "Registration failed")
}

func (c *Client) authenticate(ctx context.Context, path string, body interface{}, fallback string) (*AuthResponse, error) {
	status, data, err := c.do(ctx, http.MethodPost, path, "", body, fallback)
	if err != nil {
		return nil, err
	}

	var resp AuthResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &MalformedResponse{Status: status, Err: err}
	}
	if resp.Token == "" || resp.User.ID == 0 {
		return nil, &MalformedResponse{Status: status, Err: errors.New("missing token or user")}
	}
	if resp.User.StreamToken == "" && resp.StreamToken != "" {
		resp.User.StreamToken = resp.StreamToken
	}
	return &resp, nil
}

// Logout invalidates token on the server.
func (c *Client) Logout(ctx context.Context, token string) error {
	_, _, err := c.do(ctx, http.MethodPost, "/logout", token, nil, "Logout failed")
	return err
}

// Members fetches the hospital roster visible to userID. A 2xx answer with
// success=false is a *ServerRejected carrying the server's message.
func (c *Client) Members(ctx context.Context, userID int64, token string) ([]Member, error) {
	path := "/users/" + strconv.FormatInt(userID, 10)
	status, data, err := c.do(ctx, http.MethodGet, path, token, nil, "Failed to fetch hospital members")
	if err != nil {
		return nil, err
	}

	success := gjson.GetBytes(data, "success")
	if success.Type != gjson.True && success.Type != gjson.False {
		return nil, &MalformedResponse{Status: status, Err: errors.New("missing success flag")}
	}

	var resp MembersResponse
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, &MalformedResponse{Status: status, Err: err}
	}
	if !resp.Success {
		msg := resp.Message
		if msg == "" {
			msg = "Failed to fetch hospital members"
		}
		return nil, &ServerRejected{Status: status, Message: msg, Errors: resp.Errors}
	}
	if !gjson.GetBytes(data, "data").IsArray() {
		return nil, &MalformedResponse{Status: status, Err: errors.New("data is not a list")}
	}
	if resp.Data == nil {
		resp.Data = []Member{}
	}
	return resp.Data, nil
}

// =============================================================================
// TRANSPORT
// =============================================================================

// do sends one request and returns the status and body of a 2xx answer.
// Non-2xx answers become *ServerRejected.
func (c *Client) do(ctx context.Context, method, path, token string, body interface{}, fallback string) (int, []byte, error) {
	op := method + " " + path

	if err := c.limiter.Wait(ctx); err != nil {
		return 0, nil, &NetworkError{Op: op, Err: err}
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)
	if err != nil {
		c.log.Warn().Err(err).
			Str("method", method).
			Str("path", path).
			Dur("duration", duration).
			Msg("Request failed")
		return 0, nil, &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	data, err := readResponse(resp)
	if err != nil {
		return resp.StatusCode, nil, &NetworkError{Op: op, Err: err}
	}

	evt := c.log.Debug()
	if resp.StatusCode >= 400 {
		evt = c.log.Warn()
	}
	evt.Str("method", method).
		Str("path", path).
		Int("status_code", resp.StatusCode).
		Int("response_length", len(data)).
		Dur("duration", duration).
		Msg("Request completed")

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, nil, rejection(resp.StatusCode, data, fallback)
	}
	return resp.StatusCode, data, nil
}

// rejection builds a *ServerRejected from an error body. Bodies that are not
// JSON, or lack a message, fall back to a generic message.
func rejection(status int, body []byte, fallback string) *ServerRejected {
	rej := &ServerRejected{Status: status}
	if gjson.ValidBytes(body) {
		rej.Message = strings.TrimSpace(gjson.GetBytes(body, "message").String())
		if errs := gjson.GetBytes(body, "errors"); errs.IsObject() {
			fields := make(map[string][]string)
			errs.ForEach(func(key, value gjson.Result) bool {
				if value.IsArray() {
					for _, m := range value.Array() {
						fields[key.String()] = append(fields[key.String()], m.String())
					}
				} else {
					fields[key.String()] = []string{value.String()}
				}
				return true
			})
			rej.Errors = fields
		}
	}
	if rej.Message == "" {
		rej.Message = fmt.Sprintf("%s (HTTP %d)", fallback, status)
	}
	return rej
}

// readResponse reads the body with a size limit.
func readResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if len(body) > MaxResponseSize {
		return nil, fmt.Errorf("response exceeded maximum size of %d bytes", MaxResponseSize)
	}
	return body, nil
}
