package catalog

import "context"

// SortField names a release list sort key understood by the API.
type SortField string

// SortDirection is the direction of a release list sort.
type SortDirection string

const (
	SortByYear   SortField = "year"
	SortByTitle  SortField = "title"
	SortByFormat SortField = "format"

	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)

// Client is the remote catalog API. Implementations own transport,
// authentication and decoding; every method returns the decoded response or
// a transport error.
type Client interface {
	// Search finds artists matching query.
	Search(ctx context.Context, query string, page, perPage int) (*SearchResponse, error)

	// GetArtist fetches one artist with its members and candidate images.
	GetArtist(ctx context.Context, id int) (*ArtistResponse, error)

	// GetArtistReleases fetches one page of an artist's releases.
	GetArtistReleases(ctx context.Context, artistID, page, perPage int, sort SortField, order SortDirection) (*ReleasesResponse, error)

	// GetRelease fetches one release, including its genre tags.
	GetRelease(ctx context.Context, id int) (*ReleaseResponse, error)
}
