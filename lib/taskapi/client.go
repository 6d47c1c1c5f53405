// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package taskapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/taskdesk/taskdesk/lib/netutil"
	"github.com/taskdesk/taskdesk/lib/secret"
)

// ClientConfig holds configuration for creating a Client.
type ClientConfig struct {
	// BaseURL is the API root including its version prefix
	// (e.g., "http://localhost:8000/api/v1").
	BaseURL string
	// HTTPClient is used for all requests. If nil, a client with
	// Timeout is created.
	HTTPClient *http.Client
	// Timeout bounds each request when HTTPClient is nil. Zero means
	// no client-side deadline.
	Timeout time.Duration
	// UserAgent, when set, is sent with every request.
	UserAgent string
	// Logger is used for structured logging. If nil, slog.Default() is used.
	Logger *slog.Logger
}

// Client is an unauthenticated task platform client. It is safe for
// concurrent use and is shared by every Session created from it.
type Client struct {
	baseURL    string
	httpClient *http.Client
	userAgent  string
	logger     *slog.Logger
}

// NewClient creates a Client.
func NewClient(config ClientConfig) (*Client, error) {
	if config.BaseURL == "" {
		return nil, fmt.Errorf("taskapi: BaseURL is required")
	}
	parsed, err := url.Parse(config.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("taskapi: invalid BaseURL %q: %w", config.BaseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("taskapi: BaseURL %q must be http or https", config.BaseURL)
	}

	httpClient := config.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: config.Timeout}
	}
	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		httpClient: httpClient,
		userAgent:  config.UserAgent,
		logger:     logger,
	}, nil
}

// BaseURL returns the API root this client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// Login exchanges a username and password for an access token. The
// password Buffer is read but not closed. The returned Buffer holds
// the token and belongs to the caller.
func (c *Client) Login(ctx context.Context, username string, password *secret.Buffer) (*secret.Buffer, error) {
	if username == "" {
		return nil, fmt.Errorf("taskapi: username is required for login")
	}
	if password == nil {
		return nil, fmt.Errorf("taskapi: password is required for login")
	}

	// The password becomes a heap string only for the form encoding.
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password.String())

	body, err := c.do(ctx, request{
		method:      http.MethodPost,
		path:        "/auth/login",
		contentType: "application/x-www-form-urlencoded",
		body:        strings.NewReader(form.Encode()),
	})
	if err != nil {
		return nil, fmt.Errorf("taskapi: login failed: %w", err)
	}

	var response LoginResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return nil, fmt.Errorf("taskapi: parsing login response: %w", err)
	}
	if response.AccessToken == "" {
		return nil, fmt.Errorf("taskapi: login response carried no access_token")
	}

	token, err := secret.NewFromString(response.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("taskapi: protecting access token: %w", err)
	}
	c.logger.Info("logged in to task platform", "username", username, "base_url", c.baseURL)
	return token, nil
}

// TokenSource supplies the credential for authenticated requests.
// AccessToken returns ErrNotAuthenticated (or an error wrapping it)
// when no credential is held.
type TokenSource interface {
	AccessToken() (string, error)
}

// Session creates an authenticated view of the client. The token is
// read from source on every request.
func (c *Client) Session(source TokenSource) *Session {
	return &Session{client: c, tokens: source}
}

// request describes one HTTP call.
type request struct {
	method      string
	path        string
	query       url.Values
	token       string
	contentType string
	body        io.Reader
}

// jsonBody encodes value for a request body.
func jsonBody(value any) (io.Reader, error) {
	encoded, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("taskapi: encoding request body: %w", err)
	}
	return bytes.NewReader(encoded), nil
}

// do performs req and returns the response body. Non-2xx responses
// return *APIError; transport failures are wrapped.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	requestURL := c.baseURL + req.path
	if len(req.query) > 0 {
		requestURL += "?" + req.query.Encode()
	}

	httpRequest, err := http.NewRequestWithContext(ctx, req.method, requestURL, req.body)
	if err != nil {
		return nil, fmt.Errorf("taskapi: creating request: %w", err)
	}
	if req.contentType != "" {
		httpRequest.Header.Set("Content-Type", req.contentType)
	}
	httpRequest.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		httpRequest.Header.Set("User-Agent", c.userAgent)
	}
	if req.token != "" {
		httpRequest.Header.Set("Authorization", "Bearer "+req.token)
	}
	requestID := uuid.NewString()
	httpRequest.Header.Set(RequestIDHeader, requestID)

	started := time.Now()
	response, err := c.httpClient.Do(httpRequest)
	if err != nil {
		c.logger.Debug("task platform request failed",
			"method", req.method,
			"path", req.path,
			"request_id", requestID,
			"error", err,
		)
		return nil, fmt.Errorf("taskapi: request to %s %s failed: %w", req.method, req.path, err)
	}
	defer response.Body.Close()

	responseBody, err := netutil.ReadResponse(response.Body)
	if err != nil {
		return nil, fmt.Errorf("taskapi: reading response from %s %s: %w", req.method, req.path, err)
	}

	c.logger.Debug("task platform request",
		"method", req.method,
		"path", req.path,
		"request_id", requestID,
		"status", response.StatusCode,
		"duration", time.Since(started),
	)

	if response.StatusCode >= 200 && response.StatusCode < 300 {
		return responseBody, nil
	}
	return nil, &APIError{
		Method:     req.method,
		Path:       req.path,
		StatusCode: response.StatusCode,
		Detail:     netutil.ErrorDetail(responseBody),
		RequestID:  requestID,
	}
}

// Session is an authenticated client. It is safe for concurrent use.
type Session struct {
	client *Client
	tokens TokenSource
}

// Client returns the unauthenticated client this session wraps.
func (s *Session) Client() *Client { return s.client }

func (s *Session) do(ctx context.Context, req request) ([]byte, error) {
	token, err := s.tokens.AccessToken()
	if err != nil {
		return nil, err
	}
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	req.token = token
	return s.client.do(ctx, req)
}

// WhoAmI returns the identity and module permissions behind the token.
func (s *Session) WhoAmI(ctx context.Context) (*UserInfo, error) {
	body, err := s.do(ctx, request{method: http.MethodGet, path: "/auth/me"})
	if err != nil {
		return nil, fmt.Errorf("taskapi: whoami failed: %w", err)
	}
	var info UserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("taskapi: parsing whoami response: %w", err)
	}
	if info.Username == "" {
		return nil, fmt.Errorf("taskapi: whoami response carried no username")
	}
	return &info, nil
}

// ListModules returns the modules and scripts visible to the user, in
// server order. A module sent without a scripts field has an empty
// script list.
func (s *Session) ListModules(ctx context.Context) ([]Module, error) {
	body, err := s.do(ctx, request{method: http.MethodGet, path: "/modules/list"})
	if err != nil {
		return nil, fmt.Errorf("taskapi: listing modules failed: %w", err)
	}
	var list ModuleList
	if err := json.Unmarshal(body, &list); err != nil {
		return nil, fmt.Errorf("taskapi: parsing module list: %w", err)
	}
	for index := range list.Modules {
		if list.Modules[index].Scripts == nil {
			list.Modules[index].Scripts = []Script{}
		}
	}
	return list.Modules, nil
}

// ErrNoTaskID is returned when the platform accepts an execute request
// but its response names no task.
var ErrNoTaskID = errors.New("taskapi: execute response carried no task_id")

// Execute submits one script execution and returns the queued task.
// A nil parameters map is sent as {}.
func (s *Session) Execute(ctx context.Context, moduleID, scriptID string, parameters map[string]any) (*ExecuteResponse, error) {
	if moduleID == "" || scriptID == "" {
		return nil, fmt.Errorf("taskapi: module and script are required")
	}
	if parameters == nil {
		parameters = map[string]any{}
	}
	body, err := jsonBody(ExecuteRequest{ModuleName: moduleID, Parameters: parameters})
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("module_name", moduleID)
	query.Set("script_name", scriptID)

	responseBody, err := s.do(ctx, request{
		method:      http.MethodPost,
		path:        "/modules/execute",
		query:       query,
		contentType: "application/json",
		body:        body,
	})
	if err != nil {
		return nil, fmt.Errorf("taskapi: execute %s/%s failed: %w", moduleID, scriptID, err)
	}

	var response ExecuteResponse
	if err := json.Unmarshal(responseBody, &response); err != nil {
		return nil, fmt.Errorf("taskapi: parsing execute response: %w", err)
	}
	if response.TaskID == "" {
		if response.Message != "" {
			return nil, fmt.Errorf("%w: %s", ErrNoTaskID, response.Message)
		}
		return nil, ErrNoTaskID
	}
	return &response, nil
}

// TaskStatus returns the current status of a task.
func (s *Session) TaskStatus(ctx context.Context, taskID string) (*TaskStatus, error) {
	if taskID == "" {
		return nil, fmt.Errorf("taskapi: task ID is required")
	}
	body, err := s.do(ctx, request{
		method: http.MethodGet,
		path:   "/modules/tasks/" + url.PathEscape(taskID),
	})
	if err != nil {
		return nil, fmt.Errorf("taskapi: task status failed: %w", err)
	}
	var status TaskStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, fmt.Errorf("taskapi: parsing task status: %w", err)
	}
	if status.Status == "" {
		return nil, fmt.Errorf("taskapi: task status response carried no status")
	}
	status.normalize()
	if status.TaskID == "" {
		status.TaskID = taskID
	}
	return &status, nil
}
