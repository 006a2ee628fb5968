package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/diegoralt/Artify/pkg/metrics"
	"github.com/diegoralt/Artify/pkg/projection"
	"github.com/diegoralt/Artify/pkg/repository"
	"github.com/diegoralt/Artify/pkg/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// maxPages caps how many pages one request may accumulate.
const maxPages = 10

const requestTimeout = 90 * time.Second

type server struct {
	repo     *repository.Repository
	redis    *redis.Client
	pageSize int
	logger   zerolog.Logger
}

func newServer(repo *repository.Repository, redisClient *redis.Client, pageSize int) *server {
	return &server{
		repo:     repo,
		redis:    redisClient,
		pageSize: pageSize,
		logger:   logging.NewLogger("api"),
	}
}

func (s *server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(s.redis))
	r.Handle("/metrics", metrics.Handler())

	r.Route("/v1/artists", func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		api.Get("/search", s.searchArtists)
		api.Get("/{id}", s.artistDetail)
		api.Get("/{id}/releases", s.artistReleases)
	})
	return r
}

func healthHandler(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// readyHandler reports 503 while a configured Redis is unreachable.
func readyHandler(redisClient *redis.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if redisClient != nil {
			if err := redisClient.Ping(r.Context()).Err(); err != nil {
				http.Error(w, "redis unavailable", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	}
}

// searchArtists accumulates up to ?pages pages of results for ?q.
func (s *server) searchArtists(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusBadRequest, "query parameter q is required")
		return
	}
	pages, ok := pagesParam(w, r)
	if !ok {
		return
	}

	sess := session.NewSearchSession(r.Context(), s.repo, session.SearchConfig{PageSize: s.pageSize})
	defer sess.Close()

	sess.Search(query)
	for i := 1; i < pages && sess.LoadNextPage(); i++ {
	}

	state := sess.State()
	if state.Phase == session.PhaseError {
		writeError(w, http.StatusBadGateway, state.Message)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (s *server) artistDetail(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}

	sess := session.NewArtistSession(r.Context(), s.repo, id)
	defer sess.Close()
	sess.Load()

	state := sess.State()
	if state.Phase == session.PhaseError {
		writeError(w, http.StatusBadGateway, state.Message)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type releasesResponse struct {
	session.ReleasesState
	Selected selectedFilters `json:"filters"`
}

type selectedFilters struct {
	Years  []int    `json:"years"`
	Genres []string `json:"genres"`
	Labels []string `json:"labels"`
}

// artistReleases accumulates up to ?pages pages of releases and projects
// them through the repeated ?year, ?genre and ?label filters and ?sort.
func (s *server) artistReleases(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	pages, ok := pagesParam(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	order := projection.SortNewestFirst
	if raw := q.Get("sort"); raw != "" {
		parsed, valid := projection.ParseSortOrder(raw)
		if !valid {
			writeError(w, http.StatusBadRequest, "sort must be newest or oldest")
			return
		}
		order = parsed
	}

	sess := session.NewReleasesSession(r.Context(), s.repo, id, s.pageSize)
	defer sess.Close()

	sess.SetSortOrder(order)
	for _, raw := range q["year"] {
		year, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be an integer")
			return
		}
		sess.ToggleYear(year)
	}
	for _, genre := range q["genre"] {
		sess.ToggleGenre(genre)
	}
	for _, label := range q["label"] {
		sess.ToggleLabel(label)
	}

	sess.Load()
	for i := 1; i < pages && sess.LoadNextPage(); i++ {
	}

	state := sess.State()
	if state.Phase == session.PhaseError {
		writeError(w, http.StatusBadGateway, state.Message)
		return
	}
	writeJSON(w, http.StatusOK, releasesResponse{
		ReleasesState: state,
		Selected: selectedFilters{
			Years:  state.Filters.SelectedYears(),
			Genres: state.Filters.SelectedGenres(),
			Labels: state.Filters.SelectedLabels(),
		},
	})
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.logger.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", middleware.GetReqID(r.Context())).
			Int("status", ww.Status()).
			Dur("duration", time.Since(start)).
			Msg("Request served")
	})
}

func idParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, "artist id must be a positive integer")
		return 0, false
	}
	return id, true
}

func pagesParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	raw := r.URL.Query().Get("pages")
	if raw == "" {
		return 1, true
	}
	pages, err := strconv.Atoi(raw)
	if err != nil || pages < 1 || pages > maxPages {
		writeError(w, http.StatusBadRequest, "pages must be between 1 and "+strconv.Itoa(maxPages))
		return 0, false
	}
	return pages, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
