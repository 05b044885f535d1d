// Package testutil provides testing utilities for the plant API client.
package testutil

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
)

// MockAPI is a configurable mock plant API server for testing.
type MockAPI struct {
	server   *httptest.Server
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Tracking
	RequestCount int
	LastPath     string
	LastQuery    map[string][]string
}

// NewMockAPI creates a new mock plant API server.
func NewMockAPI() *MockAPI {
	mock := &MockAPI{
		handlers: make(map[string]http.HandlerFunc),
	}

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastPath = r.URL.Path
		mock.LastQuery = r.URL.Query()
		mock.mu.Unlock()

		mock.mu.RLock()
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.RUnlock()

		if exists {
			handler(w, r)
			return
		}

		http.NotFound(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockAPI) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockAPI) Close() {
	m.server.Close()
}

// Reset clears tracking counters and registered handlers.
func (m *MockAPI) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.LastPath = ""
	m.LastQuery = nil
	m.handlers = make(map[string]http.HandlerFunc)
}

// Handle registers a handler for an exact path.
func (m *MockAPI) Handle(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// HandleJSON registers a handler answering with a fixed JSON body.
func (m *MockAPI) HandleJSON(path string, status int, body string) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	})
}

// HandlePages registers a paged list endpoint serving the given pages in
// order; the last page carries no next link. Page numbers start at 1.
func (m *MockAPI) HandlePages(path string, pages [][]map[string]any) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		page := 1
		if p := r.URL.Query().Get("page"); p != "" {
			if n, err := strconv.Atoi(p); err == nil {
				page = n
			}
		}

		w.Header().Set("Content-Type", "application/json")
		if page < 1 || page > len(pages) {
			fmt.Fprint(w, `{"data": [], "links": {}, "meta": {"total": 0}}`)
			return
		}

		links := map[string]any{"self": fmt.Sprintf("%s?page=%d", path, page)}
		if page < len(pages) {
			links["next"] = fmt.Sprintf("%s?page=%d", path, page+1)
		}

		resp := map[string]any{
			"data":  pages[page-1],
			"links": links,
			"meta":  map[string]any{"total": totalRecords(pages)},
		}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

// HandleDetail registers a single-item endpoint serving the given record
// under {"data": ...}.
func (m *MockAPI) HandleDetail(path string, record map[string]any) {
	m.Handle(path, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(map[string]any{"data": record}); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	})
}

func totalRecords(pages [][]map[string]any) int {
	total := 0
	for _, p := range pages {
		total += len(p)
	}
	return total
}
