package session

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/diegoralt/Artify/internal/broadcast"
	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/debounce"
	"github.com/diegoralt/Artify/pkg/pagination"
)

// DefaultSearchError is shown when a failed search carries no message.
const DefaultSearchError = "Unable to load artists"

// SearchConfig configures a SearchSession.
type SearchConfig struct {
	PageSize int
	Debounce time.Duration
}

// DefaultSearchConfig returns a page size of 30 and a 400ms debounce window.
func DefaultSearchConfig() SearchConfig {
	return SearchConfig{
		PageSize: DefaultPageSize,
		Debounce: debounce.DefaultWindow,
	}
}

// SearchState is the view of a search session.
type SearchState struct {
	Phase           Phase                 `json:"phase"`
	Query           string                `json:"query"`
	Items           []catalog.CatalogItem `json:"items,omitempty"`
	LoadingNextPage bool                  `json:"loading_next_page"`
	HasMore         bool                  `json:"has_more"`
	Message         string                `json:"message,omitempty"`
}

// SearchSession turns query edits into paginated artist results.
type SearchSession struct {
	base
	searcher  Searcher
	pageSize  int
	ctrl      *pagination.Controller[catalog.CatalogItem]
	debouncer *debounce.Debouncer

	mu      sync.Mutex
	typed   string
	settled string
	state   SearchState
	subs    *broadcast.Broadcaster[SearchState]
}

// NewSearchSession creates a session awaiting input. ctx bounds every load;
// Close releases it.
func NewSearchSession(ctx context.Context, searcher Searcher, cfg SearchConfig) *SearchSession {
	s := &SearchSession{
		base:     newBase(ctx, "search"),
		searcher: searcher,
		pageSize: pageSizeOrDefault(cfg.PageSize),
		ctrl:     pagination.New[catalog.CatalogItem]("search"),
		state:    SearchState{Phase: PhaseAwaitingInput},
		subs:     broadcast.New[SearchState](),
	}
	s.debouncer = debounce.New(cfg.Debounce, s.run, s.reset)
	s.ctrl.OnChange(s.onPage)
	return s
}

// QueryChanged records an edit. The search starts once edits settle; a blank
// edit returns to awaiting input at once.
func (s *SearchSession) QueryChanged(text string) {
	s.mu.Lock()
	s.typed = text
	s.mu.Unlock()

	s.debouncer.Update(text)
}

// Search starts query immediately, superseding any search in flight and any
// pending edit. It blocks until the first page settled, or returns at once
// when a newer edit or clear already superseded it.
func (s *SearchSession) Search(query string) {
	if strings.TrimSpace(query) == "" {
		s.Clear()
		return
	}

	s.mu.Lock()
	s.typed = query
	s.mu.Unlock()

	s.run(query, s.debouncer.Forward(query))
}

// Clear drops the query and returns to awaiting input.
func (s *SearchSession) Clear() {
	s.debouncer.Clear()
}

// LoadNextPage appends the next page of the current query. It returns false
// when no load was issued.
func (s *SearchSession) LoadNextPage() bool {
	return s.ctrl.LoadNextPage(s.ctx)
}

// Retry reruns the last typed query from page 1. It is a no-op for a blank
// query.
func (s *SearchSession) Retry() bool {
	s.mu.Lock()
	query := s.typed
	s.mu.Unlock()

	if strings.TrimSpace(query) == "" {
		return false
	}
	s.Search(query)
	return true
}

// State returns the current view.
func (s *SearchSession) State() SearchState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel carrying the latest view after each change.
func (s *SearchSession) Subscribe() (<-chan SearchState, func()) {
	return s.subs.Subscribe()
}

// Close stops pending edits and cancels loads in flight.
func (s *SearchSession) Close() {
	s.debouncer.Stop()
	s.cancel()
	s.ctrl.Close()
	s.subs.Close()
}

// run starts query unless seq is no longer the debouncer's latest edit,
// search or clear. The check and the start happen under the controller lock,
// so a clear either drops the search here or resets it after it started.
func (s *SearchSession) run(query string, seq uint64) {
	started := s.ctrl.StartIf(s.ctx, s.loader(query), func() bool {
		if !s.debouncer.Current(seq) {
			return false
		}
		s.mu.Lock()
		s.settled = query
		s.mu.Unlock()

		s.logger.Info().Str("query", query).Msg("Search started")
		return true
	})
	if !started {
		s.logger.Debug().Str("query", query).Msg("Search superseded before start")
	}
}

func (s *SearchSession) reset() {
	s.mu.Lock()
	s.typed = ""
	s.settled = ""
	s.mu.Unlock()

	s.ctrl.Reset()
}

func (s *SearchSession) loader(query string) pagination.LoadFunc[catalog.CatalogItem] {
	return func(ctx context.Context, page int) (catalog.PageOf[catalog.CatalogItem], error) {
		return s.searcher.Search(ctx, query, page, s.pageSize)
	}
}

// onPage derives the view from a controller state. It runs under the
// controller lock.
func (s *SearchSession) onPage(p pagination.State[catalog.CatalogItem]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := SearchState{Query: s.settled}
	switch p.Status {
	case pagination.StatusIdle:
		next.Phase = PhaseAwaitingInput
		next.Query = ""
	case pagination.StatusLoading:
		next.Phase = PhaseLoading
	case pagination.StatusError:
		next.Phase = PhaseError
		next.Message = messageOr(p.Message, DefaultSearchError)
	case pagination.StatusSuccess:
		if len(p.Items) == 0 {
			next.Phase = PhaseNoResults
			break
		}
		next.Phase = PhaseSuccess
		next.Items = p.Items
		next.LoadingNextPage = p.LoadingNextPage
		next.HasMore = p.HasMore()
	}

	if next.Phase != s.state.Phase {
		s.logger.Info().
			Str("phase", string(next.Phase)).
			Int("items", len(next.Items)).
			Msg("Search state changed")
	}
	s.state = next
	s.subs.Publish(next)
}
