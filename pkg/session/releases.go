package session

import (
	"context"
	"sync"

	"github.com/diegoralt/Artify/internal/broadcast"
	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/pagination"
	"github.com/diegoralt/Artify/pkg/projection"
)

// DefaultReleasesError is shown when a failed releases load carries no
// message.
const DefaultReleasesError = "Unable to load albums"

// ReleasesState is the view of a releases session. Items is the filtered
// and sorted projection; Facets are computed over every loaded release.
type ReleasesState struct {
	Phase           Phase                    `json:"phase"`
	Items           []catalog.CollectionItem `json:"items,omitempty"`
	Loaded          int                      `json:"loaded"`
	LoadingNextPage bool                     `json:"loading_next_page"`
	HasMore         bool                     `json:"has_more"`
	Facets          projection.Facets        `json:"facets"`
	Filters         projection.Filters       `json:"-"`
	Sort            projection.SortOrder     `json:"sort"`
	Message         string                   `json:"message,omitempty"`
}

// ReleasesSession pages through an artist's releases and projects them
// through the active filters and sort order.
type ReleasesSession struct {
	base
	loader   ReleaseLoader
	artistID int
	pageSize int
	ctrl     *pagination.Controller[catalog.CollectionItem]

	mu      sync.Mutex
	page    pagination.State[catalog.CollectionItem]
	filters projection.Filters
	sort    projection.SortOrder
	state   ReleasesState
	subs    *broadcast.Broadcaster[ReleasesState]
}

// NewReleasesSession creates a session for artistID sorted newest first.
// Nothing is fetched until Load.
func NewReleasesSession(ctx context.Context, loader ReleaseLoader, artistID, pageSize int) *ReleasesSession {
	s := &ReleasesSession{
		base:     newBase(ctx, "releases"),
		loader:   loader,
		artistID: artistID,
		pageSize: pageSizeOrDefault(pageSize),
		ctrl:     pagination.New[catalog.CollectionItem]("releases"),
		sort:     projection.SortNewestFirst,
		subs:     broadcast.New[ReleasesState](),
	}
	s.page = s.ctrl.State()
	s.state = s.deriveLocked()
	s.ctrl.OnChange(s.onPage)
	return s
}

// Load fetches the first page, discarding anything loaded before. It blocks
// until the page settled.
func (s *ReleasesSession) Load() {
	s.ctrl.Start(s.ctx, func(ctx context.Context, page int) (catalog.PageOf[catalog.CollectionItem], error) {
		return s.loader.Releases(ctx, s.artistID, page, s.pageSize)
	})
}

// LoadNextPage appends the next page. It returns false when no load was
// issued.
func (s *ReleasesSession) LoadNextPage() bool {
	return s.ctrl.LoadNextPage(s.ctx)
}

// Retry reloads from the first page.
func (s *ReleasesSession) Retry() {
	if !s.ctrl.Retry(s.ctx) {
		s.Load()
	}
}

// ToggleYear adds or removes year from the year filter.
func (s *ReleasesSession) ToggleYear(year int) {
	s.update(func() { s.filters = s.filters.ToggleYear(year) })
}

// ToggleGenre adds or removes genre from the genre filter.
func (s *ReleasesSession) ToggleGenre(genre string) {
	s.update(func() { s.filters = s.filters.ToggleGenre(genre) })
}

// ToggleLabel adds or removes label from the label filter.
func (s *ReleasesSession) ToggleLabel(label string) {
	s.update(func() { s.filters = s.filters.ToggleLabel(label) })
}

// ClearFilters removes every filter.
func (s *ReleasesSession) ClearFilters() {
	s.update(func() { s.filters = projection.Filters{} })
}

// SetSortOrder changes the sort order of the view.
func (s *ReleasesSession) SetSortOrder(order projection.SortOrder) {
	s.update(func() { s.sort = order })
}

// State returns the current view.
func (s *ReleasesSession) State() ReleasesState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel carrying the latest view after each change.
func (s *ReleasesSession) Subscribe() (<-chan ReleasesState, func()) {
	return s.subs.Subscribe()
}

// Close cancels loads in flight.
func (s *ReleasesSession) Close() {
	s.cancel()
	s.ctrl.Close()
	s.subs.Close()
}

func (s *ReleasesSession) update(change func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	change()
	s.publishLocked()
}

// onPage records a controller state. It runs under the controller lock.
func (s *ReleasesSession) onPage(p pagination.State[catalog.CollectionItem]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.page.Status
	s.page = p
	if p.Status != prev {
		s.logger.Info().
			Int("artist_id", s.artistID).
			Str("status", string(p.Status)).
			Int("loaded", len(p.Items)).
			Msg("Releases state changed")
	}
	s.publishLocked()
}

func (s *ReleasesSession) publishLocked() {
	s.state = s.deriveLocked()
	s.subs.Publish(s.state)
}

// deriveLocked recomputes the view from the loaded base, the filters and the
// sort order.
func (s *ReleasesSession) deriveLocked() ReleasesState {
	p := s.page
	switch p.Status {
	case pagination.StatusError:
		return ReleasesState{
			Phase:   PhaseError,
			Message: messageOr(p.Message, DefaultReleasesError),
			Filters: s.filters,
			Sort:    s.sort,
		}
	case pagination.StatusSuccess:
		return ReleasesState{
			Phase:           PhaseSuccess,
			Items:           projection.Project(p.Items, s.filters, s.sort),
			Loaded:          len(p.Items),
			LoadingNextPage: p.LoadingNextPage,
			HasMore:         p.HasMore(),
			Facets:          projection.ComputeFacets(p.Items),
			Filters:         s.filters,
			Sort:            s.sort,
		}
	default:
		return ReleasesState{Phase: PhaseLoading, Filters: s.filters, Sort: s.sort}
	}
}
