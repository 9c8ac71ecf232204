package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
)

const (
	LoginPath   = "/auth/login/"
	RefreshPath = "/auth/token/refresh/"

	tokenNotValidCode   = "token_not_valid"
	tokenNotValidDetail = "Given token not valid for any token type"
)

// Backend is a fake of the admin REST API: it issues credential pairs at
// login, exchanges refresh tokens and guards registered resource handlers
// with bearer authentication.
type Backend struct {
	Server *httptest.Server

	mux *http.ServeMux

	mu       sync.Mutex
	users    map[string]string
	access   map[string]bool
	refresh  map[string]bool
	sequence int

	refreshStatus int
	refreshBody   any

	LoginCalls   atomic.Int32
	RefreshCalls atomic.Int32
}

func NewBackend(t *testing.T) *Backend {
	t.Helper()

	backend := &Backend{
		Server:        nil,
		mux:           http.NewServeMux(),
		mu:            sync.Mutex{},
		users:         make(map[string]string),
		access:        make(map[string]bool),
		refresh:       make(map[string]bool),
		sequence:      0,
		refreshStatus: 0,
		refreshBody:   nil,
		LoginCalls:    atomic.Int32{},
		RefreshCalls:  atomic.Int32{},
	}

	backend.mux.HandleFunc("POST "+LoginPath, backend.handleLogin)
	backend.mux.HandleFunc("POST "+RefreshPath, backend.handleRefresh)

	backend.Server = httptest.NewServer(backend.mux)
	t.Cleanup(backend.Server.Close)

	return backend
}

func (b *Backend) URL() string {
	return b.Server.URL
}

func (b *Backend) AddUser(username, password string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.users[username] = password
}

// IssuePair registers a fresh valid access/refresh pair.
func (b *Backend) IssuePair() (string, string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.issueAccess(), b.issueRefresh()
}

func (b *Backend) RevokeAccess(token string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	delete(b.access, token)
}

// RevokeAllAccess invalidates every access token issued so far.
func (b *Backend) RevokeAllAccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.access = make(map[string]bool)
}

func (b *Backend) ValidAccess(token string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.access[token]
}

// FailRefresh makes the refresh endpoint answer with status and body.
func (b *Backend) FailRefresh(status int, body any) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.refreshStatus = status
	b.refreshBody = body
}

// Handle registers a handler that only runs for a valid bearer token.
func (b *Backend) Handle(pattern string, handler http.HandlerFunc) {
	b.mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) {
		token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !b.ValidAccess(token) {
			WriteJSON(w, http.StatusUnauthorized, map[string]any{
				"detail": tokenNotValidDetail,
				"code":   tokenNotValidCode,
			})

			return
		}

		handler(w, r)
	})
}

// HandleOpen registers a handler without authentication.
func (b *Backend) HandleOpen(pattern string, handler http.HandlerFunc) {
	b.mux.HandleFunc(pattern, handler)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	b.LoginCalls.Add(1)

	var creds struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}

	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})

		return
	}

	b.mu.Lock()
	password, ok := b.users[creds.Username]

	if !ok || password != creds.Password {
		b.mu.Unlock()
		WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"non_field_errors": []string{"Unable to log in with provided credentials."},
		})

		return
	}

	access, refresh := b.issueAccess(), b.issueRefresh()
	b.mu.Unlock()

	WriteJSON(w, http.StatusOK, map[string]any{
		"access":  access,
		"refresh": refresh,
		"user": map[string]any{
			"username": creds.Username,
		},
	})
}

func (b *Backend) handleRefresh(w http.ResponseWriter, r *http.Request) {
	b.RefreshCalls.Add(1)

	var body struct {
		Refresh string `json:"refresh"`
	}

	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		WriteJSON(w, http.StatusBadRequest, map[string]any{"detail": "malformed body"})

		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.refreshStatus != 0 {
		WriteJSON(w, b.refreshStatus, b.refreshBody)

		return
	}

	if !b.refresh[body.Refresh] {
		WriteJSON(w, http.StatusUnauthorized, map[string]any{
			"detail": "Token is invalid or expired",
			"code":   tokenNotValidCode,
		})

		return
	}

	WriteJSON(w, http.StatusOK, map[string]any{"access": b.issueAccess()})
}

func (b *Backend) issueAccess() string {
	b.sequence++
	token := fmt.Sprintf("access-%d", b.sequence)
	b.access[token] = true

	return token
}

func (b *Backend) issueRefresh() string {
	b.sequence++
	token := fmt.Sprintf("refresh-%d", b.sequence)
	b.refresh[token] = true

	return token
}

func WriteJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
