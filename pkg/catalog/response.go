package catalog

// Raw API response types. Validation tags are checked by the repository
// before a response is turned into domain records.

// PaginationResponse is the "pagination" object of list endpoints.
type PaginationResponse struct {
	Page    int `json:"page" validate:"gte=1"`
	Pages   int `json:"pages" validate:"gte=0"`
	PerPage int `json:"per_page" validate:"gte=0"`
	Items   int `json:"items" validate:"gte=0"`
}

// SearchResponse is returned by GET /database/search.
type SearchResponse struct {
	Pagination PaginationResponse `json:"pagination"`
	Results    []ArtistResult     `json:"results" validate:"dive"`
}

// ArtistResult is one search hit. Title may be blank; one odd hit must not
// fail the page.
type ArtistResult struct {
	ID    int    `json:"id" validate:"gt=0"`
	Type  string `json:"type"`
	Title string `json:"title"`
	Thumb string `json:"thumb"`
}

// ArtistResponse is returned by GET /artists/{id}.
type ArtistResponse struct {
	ID      int              `json:"id" validate:"gt=0"`
	Name    string           `json:"name" validate:"required"`
	Profile string           `json:"profile"`
	Images  []ImageResponse  `json:"images"`
	Members []MemberResponse `json:"members" validate:"dive"`
}

// ImageResponse is one candidate image of an artist.
type ImageResponse struct {
	Type        string `json:"type"`
	ResourceURL string `json:"resource_url"`
	URI150      string `json:"uri150"`
}

// MemberResponse is one member entry of an ArtistResponse.
type MemberResponse struct {
	ID     int    `json:"id" validate:"gt=0"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// ReleasesResponse is returned by GET /artists/{id}/releases.
type ReleasesResponse struct {
	Pagination PaginationResponse `json:"pagination"`
	Releases   []ReleaseSummary   `json:"releases" validate:"dive"`
}

// ReleaseSummary is one entry of an artist's release list.
type ReleaseSummary struct {
	ID     int    `json:"id" validate:"gt=0"`
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Year   int    `json:"year"`
	Thumb  string `json:"thumb"`
	Format string `json:"format"`
	Label  string `json:"label"`
	Status string `json:"status"`
	Type   string `json:"type"`
}

// ReleaseResponse is returned by GET /releases/{id}. Only the fields the
// aggregation layer consumes are decoded.
type ReleaseResponse struct {
	ID     int      `json:"id" validate:"gt=0"`
	Genres []string `json:"genres"`
	Styles []string `json:"styles"`
}

// PrimaryImage returns the resource URL of the first image tagged primary,
// or "" when there is none.
func (a *ArtistResponse) PrimaryImage() string {
	for _, img := range a.Images {
		if img.Type == PrimaryImageType {
			return img.ResourceURL
		}
	}
	return ""
}

// ToPage converts the wire pagination block to the domain Page.
func (p PaginationResponse) ToPage() Page {
	return Page{
		Page:    p.Page,
		Pages:   p.Pages,
		PerPage: p.PerPage,
		Items:   p.Items,
	}
}
