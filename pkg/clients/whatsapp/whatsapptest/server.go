// Package whatsapptest provides an in-process stand-in for the Graph API.
package whatsapptest

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mamadbah2/wabahub/internal/config"
	"github.com/mamadbah2/wabahub/pkg/clients/whatsapp"
)

// APIVersion is the version segment the fake server expects.
const APIVersion = "v21.0"

// Call is one request received by the fake server. Path excludes the version segment.
type Call struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   []byte
}

// JSON decodes the call body into a generic map.
func (c Call) JSON() map[string]any {
	var out map[string]any
	_ = json.Unmarshal(c.Body, &out)
	return out
}

// Server records calls and answers registered routes; unregistered routes
// answer 404 with a Graph error envelope.
type Server struct {
	*httptest.Server

	mu     sync.Mutex
	routes map[string]http.HandlerFunc
	calls  []Call
}

// NewServer starts a fake Graph API closed at test cleanup.
func NewServer(t testing.TB) *Server {
	t.Helper()
	s := &Server{routes: make(map[string]http.HandlerFunc)}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Client returns a gateway pointed at the fake server.
func (s *Server) Client() *whatsapp.APIClient {
	return whatsapp.NewClient(config.WhatsAppConfig{
		BaseURL:     s.URL,
		APIVersion:  APIVersion,
		HTTPTimeout: 5 * time.Second,
	})
}

// Handle answers method+path with status and body marshalled as JSON.
func (s *Server) Handle(method, path string, status int, body any) {
	s.HandleFunc(method, path, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	})
}

// HandleError answers method+path with a Graph error envelope.
func (s *Server) HandleError(method, path string, status, code int, message string) {
	s.Handle(method, path, status, map[string]any{
		"error": map[string]any{
			"message":    message,
			"type":       "OAuthException",
			"code":       code,
			"fbtrace_id": "trace",
		},
	})
}

// HandleFunc registers a custom handler.
func (s *Server) HandleFunc(method, path string, fn http.HandlerFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.routes[routeKey(method, path)] = fn
}

// Calls returns every recorded call in arrival order.
func (s *Server) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// CallsTo returns the recorded calls for method+path.
func (s *Server) CallsTo(method, path string) []Call {
	var out []Call
	for _, c := range s.Calls() {
		if c.Method == method && c.Path == normalizePath(path) {
			out = append(out, c)
		}
	}
	return out
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	path := strings.TrimPrefix(r.URL.Path, "/"+APIVersion)

	s.mu.Lock()
	s.calls = append(s.calls, Call{
		Method: r.Method,
		Path:   normalizePath(path),
		Query:  r.URL.Query(),
		Header: r.Header.Clone(),
		Body:   body,
	})
	handler, ok := s.routes[routeKey(r.Method, path)]
	s.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]any{
			"error": map[string]any{
				"message": "unknown path " + r.Method + " " + path,
				"type":    "GraphMethodException",
				"code":    100,
			},
		})
		return
	}
	r.Body = io.NopCloser(strings.NewReader(string(body)))
	handler(w, r)
}

func routeKey(method, path string) string {
	return method + " " + normalizePath(path)
}

func normalizePath(path string) string {
	return "/" + strings.Trim(path, "/")
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}
