package main

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/diegoralt/Artify/internal/testutil"
	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/client"
	"github.com/diegoralt/Artify/pkg/fanout"
	"github.com/diegoralt/Artify/pkg/repository"
	"github.com/diegoralt/Artify/pkg/session"
)

func setupServer(t *testing.T) (*httptest.Server, *testutil.MockCatalog) {
	t.Helper()

	mock := testutil.NewMockCatalog()
	t.Cleanup(mock.Close)

	cfg := client.DefaultConfig(nil, "artify-test/1.0")
	cfg.BaseURL = mock.URL()
	cfg.RequestsPerMinute = 60000
	cfg.Burst = 100
	cfg.InitialBackoff = time.Millisecond

	catalogClient, err := client.New(cfg)
	if err != nil {
		t.Fatalf("Failed to create catalog client: %v", err)
	}
	t.Cleanup(func() { catalogClient.Close() })

	repo, err := repository.New(catalogClient, fanout.New(fanout.DefaultConfig()))
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	srv := httptest.NewServer(newServer(repo, nil, 2).routes())
	t.Cleanup(srv.Close)
	return srv, mock
}

func getJSON(t *testing.T, url string, out any) int {
	t.Helper()

	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			t.Fatalf("decode %s: %v", url, err)
		}
	}
	return resp.StatusCode
}

func TestHealthEndpoint(t *testing.T) {
	req := httptest.NewRequest("GET", "/health", nil)
	w := httptest.NewRecorder()

	healthHandler(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if string(body) != "OK" {
		t.Errorf("Expected body 'OK', got %s", string(body))
	}
}

func TestReadyEndpoint_WithoutRedis(t *testing.T) {
	req := httptest.NewRequest("GET", "/ready", nil)
	w := httptest.NewRecorder()

	readyHandler(nil)(w, req)

	if w.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", w.Code)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	srv, mock := setupServer(t)
	mock.Catalog.AddArtist(1, "Coldplay", "")

	if status := getJSON(t, srv.URL+"/v1/artists/1", nil); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}
	if !strings.Contains(string(body), "artify_requests_total") {
		t.Error("Expected metrics output to contain artify_requests_total")
	}
}

func TestSearchEndpoint(t *testing.T) {
	srv, mock := setupServer(t)
	mock.Catalog.AddArtist(1, "Coldplay", "")
	mock.Catalog.AddArtist(2, "Coldplay Tribute", "")
	mock.Catalog.AddArtist(3, "Coldplay Kids", "")

	var state session.SearchState
	if status := getJSON(t, srv.URL+"/v1/artists/search?q=coldplay", &state); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if state.Phase != session.PhaseSuccess {
		t.Errorf("Expected phase success, got %s", state.Phase)
	}
	if len(state.Items) != 2 || !state.HasMore {
		t.Errorf("Expected first page of 2 with more, got %d items (has_more=%v)", len(state.Items), state.HasMore)
	}

	if status := getJSON(t, srv.URL+"/v1/artists/search?q=coldplay&pages=2", &state); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if len(state.Items) != 3 || state.HasMore {
		t.Errorf("Expected all 3 items, got %d (has_more=%v)", len(state.Items), state.HasMore)
	}
}

func TestSearchEndpoint_BadRequests(t *testing.T) {
	srv, _ := setupServer(t)

	for _, path := range []string{
		"/v1/artists/search",
		"/v1/artists/search?q=%20",
		"/v1/artists/search?q=a&pages=0",
		"/v1/artists/search?q=a&pages=11",
		"/v1/artists/abc",
		"/v1/artists/1/releases?sort=alphabetical",
		"/v1/artists/1/releases?year=recent",
	} {
		if status := getJSON(t, srv.URL+path, nil); status != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", path, status)
		}
	}
}

func TestArtistEndpoint(t *testing.T) {
	srv, mock := setupServer(t)
	mock.Catalog.AddArtist(29735, "Coldplay", "https://img/coldplay.jpg",
		catalog.MemberResponse{ID: 530745, Name: "Chris Martin", Active: true},
		catalog.MemberResponse{ID: 530746, Name: "Jonny Buckland", Active: true},
	)
	mock.Catalog.AddArtist(530746, "Jonny Buckland", "https://img/jonny.jpg")
	mock.SetResponse("/artists/530745", testutil.NewNotFoundResponse("Artist not found."))

	var state session.ArtistState
	if status := getJSON(t, srv.URL+"/v1/artists/29735", &state); status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}
	if state.Detail == nil || len(state.Detail.Members) != 2 {
		t.Fatalf("Expected detail with 2 members, got %+v", state.Detail)
	}
	if state.Detail.Members[0].ImageURL != "" {
		t.Errorf("Expected empty image for failed member, got %q", state.Detail.Members[0].ImageURL)
	}
	if state.Detail.Members[1].ImageURL != "https://img/jonny.jpg" {
		t.Errorf("Unexpected member image %q", state.Detail.Members[1].ImageURL)
	}
}

func TestArtistEndpoint_UpstreamFailure(t *testing.T) {
	srv, mock := setupServer(t)
	mock.SetResponse("/artists/404", testutil.NewNotFoundResponse("Artist not found."))

	var body map[string]string
	if status := getJSON(t, srv.URL+"/v1/artists/404", &body); status != http.StatusBadGateway {
		t.Errorf("Expected status 502, got %d", status)
	}
	if !strings.Contains(body["error"], "Artist not found.") {
		t.Errorf("Expected upstream message, got %q", body["error"])
	}
}

func TestReleasesEndpoint(t *testing.T) {
	srv, mock := setupServer(t)
	mock.Catalog.AddRelease(1, catalog.ReleaseSummary{ID: 10, Title: "Parachutes", Year: 2000, Label: "Parlophone"}, "Rock")
	mock.Catalog.AddRelease(1, catalog.ReleaseSummary{ID: 11, Title: "Higher Power", Year: 2021, Label: "Atlantic"}, "Electronic")
	mock.Catalog.AddRelease(1, catalog.ReleaseSummary{ID: 12, Title: "Music of the Spheres", Year: 2021, Label: "Parlophone"}, "Pop")

	var resp releasesResponse
	status := getJSON(t, srv.URL+"/v1/artists/1/releases?pages=2&year=2021&sort=oldest", &resp)
	if status != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", status)
	}

	if resp.Loaded != 3 {
		t.Errorf("Expected 3 loaded releases, got %d", resp.Loaded)
	}
	if len(resp.Items) != 2 {
		t.Fatalf("Expected 2 releases from 2021, got %d", len(resp.Items))
	}
	if len(resp.Facets.Years) != 2 {
		t.Errorf("Expected facets over every loaded release, got %v", resp.Facets.Years)
	}
	if len(resp.Selected.Years) != 1 || resp.Selected.Years[0] != 2021 {
		t.Errorf("Expected selected years [2021], got %v", resp.Selected.Years)
	}
	if resp.Items[0].Genres == nil {
		t.Error("Expected resolved genres")
	}
}
