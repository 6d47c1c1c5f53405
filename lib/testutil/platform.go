// Copyright 2026 The Taskdesk Authors
// SPDX-License-Identifier: Apache-2.0

package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slices"
	"strings"
	"sync"
	"testing"

	"github.com/taskdesk/taskdesk/lib/taskapi"
)

// APIPrefix is the path prefix the fake platform serves under.
const APIPrefix = "/api/v1"

// Request is one recorded HTTP request.
type Request struct {
	Method        string
	Path          string
	Query         string
	Authorization string
	RequestID     string
}

// Execution is one accepted execute call.
type Execution struct {
	Module     string
	Script     string
	Parameters map[string]any
	TaskID     string
}

type platformUser struct {
	password    string
	permissions []string
}

type failure struct {
	status int
	detail string
}

// Platform is a fake task platform. It is safe for concurrent use.
type Platform struct {
	server *httptest.Server

	mu              sync.Mutex
	users           map[string]platformUser
	tokens          map[string]string
	modules         []taskapi.Module
	taskIDs         []string
	statuses        map[string][]taskapi.TaskStatus
	defaultStatuses []taskapi.TaskStatus
	executeFailure  *failure
	listFailure     *failure
	statusFailure   *failure
	requests        []Request
	executions      []Execution
}

// NewPlatform starts a fake platform. It is shut down when the test
// ends. By default every task reports success with {"ok":true} on its
// first status query.
func NewPlatform(t testing.TB) *Platform {
	t.Helper()
	platform := &Platform{
		users:    make(map[string]platformUser),
		tokens:   make(map[string]string),
		statuses: make(map[string][]taskapi.TaskStatus),
		defaultStatuses: []taskapi.TaskStatus{
			{Status: taskapi.StatusSuccess, Result: json.RawMessage(`{"ok":true}`)},
		},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST "+APIPrefix+"/auth/login", platform.handleLogin)
	mux.HandleFunc("GET "+APIPrefix+"/auth/me", platform.authenticated(platform.handleMe))
	mux.HandleFunc("GET "+APIPrefix+"/modules/list", platform.authenticated(platform.handleList))
	mux.HandleFunc("POST "+APIPrefix+"/modules/execute", platform.authenticated(platform.handleExecute))
	mux.HandleFunc("GET "+APIPrefix+"/modules/tasks/{id}", platform.authenticated(platform.handleStatus))

	platform.server = httptest.NewServer(platform.record(mux))
	t.Cleanup(platform.server.Close)
	return platform
}

// BaseURL returns the API root to configure clients with.
func (p *Platform) BaseURL() string { return p.server.URL + APIPrefix }

// Close shuts the server down early, making every later request fail
// at the transport level.
func (p *Platform) Close() { p.server.Close() }

// AddUser registers a user who may use the given modules.
func (p *Platform) AddUser(username, password string, permissions ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users[username] = platformUser{password: password, permissions: slices.Clone(permissions)}
}

// IssueToken returns a valid token for username without a login
// request.
func (p *Platform) IssueToken(username string) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.issueLocked(username)
}

func (p *Platform) issueLocked(username string) string {
	token := UniqueID("token-" + username)
	p.tokens[token] = username
	return token
}

// RevokeTokens invalidates every issued token.
func (p *Platform) RevokeTokens() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tokens = make(map[string]string)
}

// SetModules replaces the catalog.
func (p *Platform) SetModules(modules ...taskapi.Module) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.modules = slices.Clone(modules)
}

// QueueTaskIDs sets the IDs handed out by the next execute calls.
// Once exhausted, IDs are generated.
func (p *Platform) QueueTaskIDs(ids ...string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.taskIDs = append(p.taskIDs, ids...)
}

// ScriptStatuses sets the statuses taskID reports on successive
// queries. The last one repeats.
func (p *Platform) ScriptStatuses(taskID string, statuses ...taskapi.TaskStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statuses[taskID] = slices.Clone(statuses)
}

// SetDefaultStatuses sets the sequence for tasks without a script.
func (p *Platform) SetDefaultStatuses(statuses ...taskapi.TaskStatus) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaultStatuses = slices.Clone(statuses)
}

// RejectExecute makes execute calls fail with status and detail. A
// zero status clears the failure.
func (p *Platform) RejectExecute(status int, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.executeFailure = newFailure(status, detail)
}

// FailModuleList makes the catalog endpoint fail. A zero status clears
// the failure.
func (p *Platform) FailModuleList(status int, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.listFailure = newFailure(status, detail)
}

// FailTaskStatus makes status queries fail. A zero status clears the
// failure.
func (p *Platform) FailTaskStatus(status int, detail string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.statusFailure = newFailure(status, detail)
}

func newFailure(status int, detail string) *failure {
	if status == 0 {
		return nil
	}
	return &failure{status: status, detail: detail}
}

// Requests returns every recorded request in arrival order.
func (p *Platform) Requests() []Request {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.requests)
}

// RequestCount counts recorded requests whose path starts with
// APIPrefix+pathPrefix.
func (p *Platform) RequestCount(pathPrefix string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	count := 0
	for _, request := range p.requests {
		if strings.HasPrefix(request.Path, APIPrefix+pathPrefix) {
			count++
		}
	}
	return count
}

// Executions returns every accepted execute call.
func (p *Platform) Executions() []Execution {
	p.mu.Lock()
	defer p.mu.Unlock()
	return slices.Clone(p.executions)
}

func (p *Platform) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.mu.Lock()
		p.requests = append(p.requests, Request{
			Method:        r.Method,
			Path:          r.URL.Path,
			Query:         r.URL.RawQuery,
			Authorization: r.Header.Get("Authorization"),
			RequestID:     r.Header.Get(taskapi.RequestIDHeader),
		})
		p.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(value)
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, map[string]string{"detail": detail})
}

// authenticated resolves the bearer token to a username.
func (p *Platform) authenticated(handler func(http.ResponseWriter, *http.Request, string)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		p.mu.Lock()
		username, known := p.tokens[token]
		p.mu.Unlock()
		if !ok || !known {
			writeDetail(w, http.StatusUnauthorized, "Could not validate credentials")
			return
		}
		handler(w, r, username)
	}
}

func (p *Platform) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	username, password := r.PostForm.Get("username"), r.PostForm.Get("password")

	p.mu.Lock()
	defer p.mu.Unlock()
	user, ok := p.users[username]
	if !ok || user.password != password {
		writeDetail(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}
	writeJSON(w, http.StatusOK, taskapi.LoginResponse{AccessToken: p.issueLocked(username), TokenType: "bearer"})
}

func (p *Platform) handleMe(w http.ResponseWriter, _ *http.Request, username string) {
	p.mu.Lock()
	user := p.users[username]
	p.mu.Unlock()
	permissions := user.permissions
	if permissions == nil {
		permissions = []string{}
	}
	writeJSON(w, http.StatusOK, taskapi.UserInfo{Username: username, Permissions: permissions})
}

func (p *Platform) handleList(w http.ResponseWriter, _ *http.Request, _ string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.listFailure != nil {
		writeDetail(w, p.listFailure.status, p.listFailure.detail)
		return
	}
	writeJSON(w, http.StatusOK, taskapi.ModuleList{Modules: p.modules})
}

func (p *Platform) handleExecute(w http.ResponseWriter, r *http.Request, username string) {
	var body taskapi.ExecuteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeDetail(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	moduleID := r.URL.Query().Get("module_name")
	scriptID := r.URL.Query().Get("script_name")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.executeFailure != nil {
		writeDetail(w, p.executeFailure.status, p.executeFailure.detail)
		return
	}
	if !slices.Contains(p.users[username].permissions, moduleID) {
		writeDetail(w, http.StatusForbidden, "No access to module "+moduleID)
		return
	}

	var taskID string
	if len(p.taskIDs) > 0 {
		taskID, p.taskIDs = p.taskIDs[0], p.taskIDs[1:]
	} else {
		taskID = UniqueID("task")
	}
	p.executions = append(p.executions, Execution{
		Module:     moduleID,
		Script:     scriptID,
		Parameters: body.Parameters,
		TaskID:     taskID,
	})
	writeJSON(w, http.StatusOK, taskapi.ExecuteResponse{TaskID: taskID, Status: "pending", Message: "task queued"})
}

func (p *Platform) handleStatus(w http.ResponseWriter, r *http.Request, _ string) {
	taskID := r.PathValue("id")

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.statusFailure != nil {
		writeDetail(w, p.statusFailure.status, p.statusFailure.detail)
		return
	}
	sequence, scripted := p.statuses[taskID]
	if !scripted {
		sequence = slices.Clone(p.defaultStatuses)
	}
	if len(sequence) == 0 {
		writeDetail(w, http.StatusNotFound, "Task not found")
		return
	}
	status := sequence[0]
	if len(sequence) > 1 {
		sequence = sequence[1:]
	}
	p.statuses[taskID] = sequence
	status.TaskID = taskID
	writeJSON(w, http.StatusOK, status)
}
