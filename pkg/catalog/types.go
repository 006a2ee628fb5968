// Package catalog defines the domain records produced by the aggregation layer,
// the wire shapes returned by the remote catalog API and the Client interface
// the rest of the module depends on.
package catalog

// PrimaryImageType is the image type tag that marks an artist's main picture.
const PrimaryImageType = "primary"

// CatalogItem is an artist or band as returned by search and list endpoints.
type CatalogItem struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Type     string `json:"type"` // "artist" or "band"
	ThumbURL string `json:"thumb_url,omitempty"`
}

// Member is one member of a band. ImageURL is resolved by a separate
// detail call and is empty when that call failed.
type Member struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Active   bool   `json:"active"`
	ImageURL string `json:"image_url"`
}

// EntityDetail is the full view of one artist.
type EntityDetail struct {
	ID       int      `json:"id"`
	Name     string   `json:"name"`
	Profile  string   `json:"profile"`
	ImageURL string   `json:"image_url"`
	Members  []Member `json:"members,omitempty"`
}

// CollectionItem is a release of an artist. Year is 0 when unknown.
// Genres is never nil once built by the repository.
type CollectionItem struct {
	ID       int      `json:"id"`
	Title    string   `json:"title"`
	Artist   string   `json:"artist"`
	Year     int      `json:"year,omitempty"`
	ThumbURL string   `json:"thumb_url"`
	Format   string   `json:"format"`
	Label    string   `json:"label"`
	Genres   []string `json:"genres"`
}

// HasYear reports whether the release year is known.
func (c CollectionItem) HasYear() bool {
	return c.Year > 0
}

// Page is the pagination block returned by every paginated endpoint.
type Page struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// HasMore reports whether pages remain after this one.
func (p Page) HasMore() bool {
	return p.Page < p.Pages
}

// PageOf is one page of domain records together with its pagination block.
type PageOf[T any] struct {
	Page  Page `json:"pagination"`
	Items []T  `json:"items"`
}
