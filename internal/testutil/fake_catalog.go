// Package testutil provides catalog API doubles for tests: an in-memory
// catalog.Client and an httptest server that speaks the API's wire format.
package testutil

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/diegoralt/Artify/pkg/catalog"
)

// Method names recorded in Call.
const (
	MethodSearch            = "Search"
	MethodGetArtist         = "GetArtist"
	MethodGetArtistReleases = "GetArtistReleases"
	MethodGetRelease        = "GetRelease"
)

// ErrNotFound is returned for IDs the fake does not know.
var ErrNotFound = errors.New("HTTP 404 Not Found")

// Call is one recorded client call.
type Call struct {
	Method string
	ID     int
	Query  string
	Page   int
}

// FakeCatalog is an in-memory catalog.Client.
//
// Hook, when set, runs at the start of every call; a non-nil error fails the
// call. It may block (e.g. on a channel) to control timing.
type FakeCatalog struct {
	mu sync.Mutex

	SearchIndex []catalog.ArtistResult
	Artists     map[int]*catalog.ArtistResponse
	Discography map[int][]catalog.ReleaseSummary
	Releases    map[int]*catalog.ReleaseResponse

	Hook func(ctx context.Context, call Call) error

	calls []Call
}

var _ catalog.Client = (*FakeCatalog)(nil)

// NewFakeCatalog returns an empty fake.
func NewFakeCatalog() *FakeCatalog {
	return &FakeCatalog{
		Artists:     make(map[int]*catalog.ArtistResponse),
		Discography: make(map[int][]catalog.ReleaseSummary),
		Releases:    make(map[int]*catalog.ReleaseResponse),
	}
}

// AddArtist registers an artist. A non-empty imageURL becomes its primary image.
func (f *FakeCatalog) AddArtist(id int, name, imageURL string, members ...catalog.MemberResponse) {
	f.mu.Lock()
	defer f.mu.Unlock()

	artist := &catalog.ArtistResponse{ID: id, Name: name, Members: members}
	if imageURL != "" {
		artist.Images = []catalog.ImageResponse{{Type: catalog.PrimaryImageType, ResourceURL: imageURL}}
	}
	f.Artists[id] = artist
	f.SearchIndex = append(f.SearchIndex, catalog.ArtistResult{ID: id, Type: "artist", Title: name})
}

// AddRelease registers a release under an artist's discography with its genres.
func (f *FakeCatalog) AddRelease(artistID int, summary catalog.ReleaseSummary, genres ...string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Discography[artistID] = append(f.Discography[artistID], summary)
	f.Releases[summary.ID] = &catalog.ReleaseResponse{ID: summary.ID, Genres: genres}
}

// Calls returns a copy of the recorded calls.
func (f *FakeCatalog) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// CallCount returns how many calls of method were made.
func (f *FakeCatalog) CallCount(method string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Method == method {
			n++
		}
	}
	return n
}

func (f *FakeCatalog) record(ctx context.Context, call Call) error {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	hook := f.Hook
	f.mu.Unlock()

	if hook != nil {
		if err := hook(ctx, call); err != nil {
			return err
		}
	}
	return ctx.Err()
}

// Search matches artists whose name contains query, case-insensitively.
func (f *FakeCatalog) Search(ctx context.Context, query string, page, perPage int) (*catalog.SearchResponse, error) {
	if err := f.record(ctx, Call{Method: MethodSearch, Query: query, Page: page}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	var matches []catalog.ArtistResult
	needle := strings.ToLower(query)
	for _, r := range f.SearchIndex {
		if strings.Contains(strings.ToLower(r.Title), needle) {
			matches = append(matches, r)
		}
	}
	f.mu.Unlock()

	pagination, from, to := paginate(len(matches), page, perPage)
	return &catalog.SearchResponse{
		Pagination: pagination,
		Results:    append([]catalog.ArtistResult{}, matches[from:to]...),
	}, nil
}

// GetArtist returns a registered artist or ErrNotFound.
func (f *FakeCatalog) GetArtist(ctx context.Context, id int) (*catalog.ArtistResponse, error) {
	if err := f.record(ctx, Call{Method: MethodGetArtist, ID: id}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	artist, ok := f.Artists[id]
	if !ok {
		return nil, fmt.Errorf("artist %d: %w", id, ErrNotFound)
	}
	copied := *artist
	return &copied, nil
}

// GetArtistReleases pages through an artist's discography sorted by year.
func (f *FakeCatalog) GetArtistReleases(ctx context.Context, artistID, page, perPage int, sortField catalog.SortField, order catalog.SortDirection) (*catalog.ReleasesResponse, error) {
	if err := f.record(ctx, Call{Method: MethodGetArtistReleases, ID: artistID, Page: page}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	releases, ok := f.Discography[artistID]
	releases = append([]catalog.ReleaseSummary(nil), releases...)
	f.mu.Unlock()
	if !ok {
		return nil, fmt.Errorf("artist %d releases: %w", artistID, ErrNotFound)
	}

	if sortField == catalog.SortByYear {
		sort.SliceStable(releases, func(i, j int) bool {
			if order == catalog.SortDesc {
				return releases[i].Year > releases[j].Year
			}
			return releases[i].Year < releases[j].Year
		})
	}

	pagination, from, to := paginate(len(releases), page, perPage)
	return &catalog.ReleasesResponse{
		Pagination: pagination,
		Releases:   releases[from:to],
	}, nil
}

// GetRelease returns a registered release or ErrNotFound.
func (f *FakeCatalog) GetRelease(ctx context.Context, id int) (*catalog.ReleaseResponse, error) {
	if err := f.record(ctx, Call{Method: MethodGetRelease, ID: id}); err != nil {
		return nil, err
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	release, ok := f.Releases[id]
	if !ok {
		return nil, fmt.Errorf("release %d: %w", id, ErrNotFound)
	}
	copied := *release
	copied.Genres = append([]string(nil), release.Genres...)
	return &copied, nil
}

// paginate returns the pagination block and slice bounds for one page.
func paginate(total, page, perPage int) (catalog.PaginationResponse, int, int) {
	if perPage <= 0 {
		perPage = 50
	}
	if page < 1 {
		page = 1
	}
	pages := (total + perPage - 1) / perPage

	from := (page - 1) * perPage
	if from > total {
		from = total
	}
	to := from + perPage
	if to > total {
		to = total
	}

	return catalog.PaginationResponse{
		Page:    page,
		Pages:   pages,
		PerPage: perPage,
		Items:   total,
	}, from, to
}

func isNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
