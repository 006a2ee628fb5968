package testutil

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"time"

	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/go-chi/chi/v5"
)

// Quota headers sent by the catalog API.
const (
	HeaderRatelimit          = "X-Discogs-Ratelimit"
	HeaderRatelimitUsed      = "X-Discogs-Ratelimit-Used"
	HeaderRatelimitRemaining = "X-Discogs-Ratelimit-Remaining"
)

// MockResponse defines the behavior of one mocked endpoint.
type MockResponse struct {
	StatusCode int
	Body       string
	Headers    map[string]string
	Delay      time.Duration
}

// MockCatalog is an httptest server speaking the catalog API wire format.
// Paths without a custom handler are served from Catalog.
type MockCatalog struct {
	server   *httptest.Server
	router   chi.Router
	mu       sync.RWMutex
	handlers map[string]http.HandlerFunc

	// Catalog backs the default routes.
	Catalog *FakeCatalog

	// Remaining is reported in the quota headers of default responses.
	Remaining int

	RequestCount      int
	ConditionalCount  int
	LastRequestHeader http.Header
}

// NewMockCatalog starts a mock server backed by an empty FakeCatalog.
func NewMockCatalog() *MockCatalog {
	mock := &MockCatalog{
		handlers:  make(map[string]http.HandlerFunc),
		Catalog:   NewFakeCatalog(),
		Remaining: 59,
	}

	r := chi.NewRouter()
	r.Get("/database/search", mock.handleSearch)
	r.Get("/artists/{id}", mock.handleArtist)
	r.Get("/artists/{id}/releases", mock.handleArtistReleases)
	r.Get("/releases/{id}", mock.handleRelease)
	mock.router = r

	mock.server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mock.mu.Lock()
		mock.RequestCount++
		mock.LastRequestHeader = r.Header.Clone()
		if r.Header.Get("If-None-Match") != "" || r.Header.Get("If-Modified-Since") != "" {
			mock.ConditionalCount++
		}
		handler, exists := mock.handlers[r.URL.Path]
		mock.mu.Unlock()

		if exists {
			handler(w, r)
			return
		}
		mock.router.ServeHTTP(w, r)
	}))

	return mock
}

// URL returns the mock server URL.
func (m *MockCatalog) URL() string {
	return m.server.URL
}

// Close shuts down the mock server.
func (m *MockCatalog) Close() {
	m.server.Close()
}

// Reset clears all tracking counters.
func (m *MockCatalog) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RequestCount = 0
	m.ConditionalCount = 0
	m.LastRequestHeader = nil
}

// SetHandler overrides the handler for an exact path.
func (m *MockCatalog) SetHandler(path string, handler http.HandlerFunc) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handlers[path] = handler
}

// SetResponse configures a fixed response for an exact path.
func (m *MockCatalog) SetResponse(path string, resp MockResponse) {
	m.SetHandler(path, func(w http.ResponseWriter, r *http.Request) {
		if resp.Delay > 0 {
			time.Sleep(resp.Delay)
		}
		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.WriteHeader(resp.StatusCode)
		if resp.Body != "" {
			_, _ = w.Write([]byte(resp.Body))
		}
	})
}

// GetRequestCount returns the number of requests made to the server.
func (m *MockCatalog) GetRequestCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.RequestCount
}

// GetConditionalCount returns the number of conditional requests.
func (m *MockCatalog) GetConditionalCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ConditionalCount
}

// GetLastRequestHeader returns the headers of the most recent request.
func (m *MockCatalog) GetLastRequestHeader() http.Header {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastRequestHeader.Clone()
}

func (m *MockCatalog) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	resp, err := m.Catalog.Search(detached(r), q.Get("q"), page, perPage)
	m.writeResult(w, r, resp, err)
}

func (m *MockCatalog) handleArtist(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resp, err := m.Catalog.GetArtist(detached(r), id)
	m.writeResult(w, r, resp, err)
}

func (m *MockCatalog) handleArtistReleases(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))

	resp, err := m.Catalog.GetArtistReleases(detached(r), id, page, perPage,
		catalog.SortField(q.Get("sort")), catalog.SortDirection(q.Get("sort_order")))
	m.writeResult(w, r, resp, err)
}

func (m *MockCatalog) handleRelease(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	resp, err := m.Catalog.GetRelease(detached(r), id)
	m.writeResult(w, r, resp, err)
}

// writeResult encodes a fake catalog result with quota headers and an ETag
// derived from the body. Matching If-None-Match requests get 304.
func (m *MockCatalog) writeResult(w http.ResponseWriter, r *http.Request, v any, err error) {
	m.mu.RLock()
	remaining := m.Remaining
	m.mu.RUnlock()

	w.Header().Set(HeaderRatelimit, "60")
	w.Header().Set(HeaderRatelimitUsed, strconv.Itoa(60-remaining))
	w.Header().Set(HeaderRatelimitRemaining, strconv.Itoa(remaining))
	w.Header().Set("Content-Type", "application/json")

	if err != nil {
		status := http.StatusInternalServerError
		if isNotFound(err) {
			status = http.StatusNotFound
		}
		writeMessage(w, status, err.Error())
		return
	}

	body, err := json.Marshal(v)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, err.Error())
		return
	}

	sum := sha1.Sum(body)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))

	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		writeMessage(w, http.StatusNotFound, "The requested resource was not found.")
		return 0, false
	}
	return id, true
}

// detached keeps fake hooks running when the client gives up on a request.
func detached(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}

// NewHealthyResponse creates a 200 OK response with quota headers.
func NewHealthyResponse(data string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusOK,
		Body:       data,
		Headers: map[string]string{
			HeaderRatelimit:          "60",
			HeaderRatelimitUsed:      "1",
			HeaderRatelimitRemaining: "59",
			"ETag":                   `"test-etag-123"`,
			"Expires":                time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
			"Content-Type":           "application/json",
		},
	}
}

// NewNotModifiedResponse creates a 304 Not Modified response.
func NewNotModifiedResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotModified,
		Headers: map[string]string{
			HeaderRatelimit:          "60",
			HeaderRatelimitUsed:      "2",
			HeaderRatelimitRemaining: "58",
			"Expires":                time.Now().Add(5 * time.Minute).Format(http.TimeFormat),
		},
	}
}

// NewRateLimitResponse creates a 429 Too Many Requests response with an
// exhausted quota.
func NewRateLimitResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusTooManyRequests,
		Body:       `{"message": "You are making requests too quickly."}`,
		Headers: map[string]string{
			HeaderRatelimit:          "60",
			HeaderRatelimitUsed:      "60",
			HeaderRatelimitRemaining: "0",
			"Content-Type":           "application/json",
		},
	}
}

// NewServerErrorResponse creates a 500 Internal Server Error response.
func NewServerErrorResponse() MockResponse {
	return MockResponse{
		StatusCode: http.StatusInternalServerError,
		Body:       `{"message": "Internal server error"}`,
		Headers: map[string]string{
			HeaderRatelimit:          "60",
			HeaderRatelimitUsed:      "5",
			HeaderRatelimitRemaining: "55",
			"Content-Type":           "application/json",
		},
	}
}

// NewNotFoundResponse creates a 404 response carrying the API's message.
func NewNotFoundResponse(message string) MockResponse {
	return MockResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf(`{"message": %q}`, message),
		Headers: map[string]string{
			HeaderRatelimit:          "60",
			HeaderRatelimitUsed:      "1",
			HeaderRatelimitRemaining: "59",
			"Content-Type":           "application/json",
		},
	}
}

// NewConditionalHandler responds 304 when If-None-Match equals etag.
func NewConditionalHandler(etag string, data string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(HeaderRatelimit, "60")
		w.Header().Set(HeaderRatelimitUsed, "1")
		w.Header().Set(HeaderRatelimitRemaining, "59")
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Expires", time.Now().Add(5*time.Minute).Format(http.TimeFormat))

		if r.Header.Get("If-None-Match") == etag {
			w.WriteHeader(http.StatusNotModified)
			return
		}

		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(data))
	}
}
