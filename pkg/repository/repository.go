// Package repository aggregates catalog API responses into domain records.
//
// Each operation issues one primary call. When it succeeds, per-item
// enrichment (member portraits, release genres) is resolved through a
// fan-out whose failures are absorbed. A failed or malformed primary call
// fails the operation with a *catalog.Error and triggers no fan-out.
package repository

import (
	"context"
	"errors"

	"github.com/diegoralt/Artify/internal/validation"
	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/fanout"
	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/rs/zerolog"
)

// Operation names used in errors, logs and fan-out metrics.
const (
	OpSearch        = "search"
	OpArtistDetail  = "artist_detail"
	OpReleases      = "releases"
	OpMemberImages  = "member_images"
	OpReleaseGenres = "release_genres"
)

// ErrNilClient is returned by New without a catalog client.
var ErrNilClient = errors.New("repository: catalog client is required")

// Repository turns catalog API calls into aggregated domain records.
type Repository struct {
	client    catalog.Client
	enricher  *fanout.Enricher
	validator *validation.Validator
	logger    zerolog.Logger
}

// New creates a repository. A nil enricher uses fanout.DefaultConfig.
func New(client catalog.Client, enricher *fanout.Enricher) (*Repository, error) {
	if client == nil {
		return nil, ErrNilClient
	}
	if enricher == nil {
		enricher = fanout.New(fanout.DefaultConfig())
	}
	return &Repository{
		client:    client,
		enricher:  enricher,
		validator: validation.New(),
		logger:    logging.NewLogger("repository"),
	}, nil
}

// Search returns one page of artists matching query. No enrichment.
func (r *Repository) Search(ctx context.Context, query string, page, perPage int) (catalog.PageOf[catalog.CatalogItem], error) {
	resp, err := r.client.Search(ctx, query, page, perPage)
	if err != nil {
		return catalog.PageOf[catalog.CatalogItem]{}, r.transportError(OpSearch, err)
	}
	if err := r.validator.Validate(resp); err != nil {
		return catalog.PageOf[catalog.CatalogItem]{}, r.validationError(OpSearch, err)
	}

	items := make([]catalog.CatalogItem, 0, len(resp.Results))
	for _, result := range resp.Results {
		items = append(items, catalog.CatalogItem{
			ID:       result.ID,
			Name:     result.Title,
			Type:     result.Type,
			ThumbURL: result.Thumb,
		})
	}

	return catalog.PageOf[catalog.CatalogItem]{
		Page:  resp.Pagination.ToPage(),
		Items: items,
	}, nil
}

// ArtistDetail returns one artist with each member's portrait resolved.
// A member whose lookup failed keeps an empty ImageURL.
func (r *Repository) ArtistDetail(ctx context.Context, id int) (*catalog.EntityDetail, error) {
	resp, err := r.client.GetArtist(ctx, id)
	if err != nil {
		return nil, r.transportError(OpArtistDetail, err)
	}
	if err := r.validator.Validate(resp); err != nil {
		return nil, r.validationError(OpArtistDetail, err)
	}

	detail := &catalog.EntityDetail{
		ID:       resp.ID,
		Name:     resp.Name,
		Profile:  resp.Profile,
		ImageURL: resp.PrimaryImage(),
	}
	if len(resp.Members) == 0 {
		return detail, nil
	}

	images := fanout.Enrich(ctx, r.enricher, fanout.Request[catalog.MemberResponse, int, string]{
		Operation: OpMemberImages,
		Items:     resp.Members,
		ID:        func(m catalog.MemberResponse) int { return m.ID },
		Fetch:     r.memberImage,
		Default:   "",
	})

	detail.Members = make([]catalog.Member, 0, len(resp.Members))
	for _, m := range resp.Members {
		detail.Members = append(detail.Members, catalog.Member{
			ID:       m.ID,
			Name:     m.Name,
			Active:   m.Active,
			ImageURL: images[m.ID],
		})
	}
	return detail, nil
}

// Releases returns one page of an artist's releases, newest first, with
// each release's genres resolved. A release whose lookup failed has an
// empty, non-nil Genres list.
func (r *Repository) Releases(ctx context.Context, artistID, page, perPage int) (catalog.PageOf[catalog.CollectionItem], error) {
	resp, err := r.client.GetArtistReleases(ctx, artistID, page, perPage, catalog.SortByYear, catalog.SortDesc)
	if err != nil {
		return catalog.PageOf[catalog.CollectionItem]{}, r.transportError(OpReleases, err)
	}
	if err := r.validator.Validate(resp); err != nil {
		return catalog.PageOf[catalog.CollectionItem]{}, r.validationError(OpReleases, err)
	}

	genres := fanout.Enrich(ctx, r.enricher, fanout.Request[catalog.ReleaseSummary, int, []string]{
		Operation: OpReleaseGenres,
		Items:     resp.Releases,
		ID:        func(s catalog.ReleaseSummary) int { return s.ID },
		Fetch:     r.releaseGenres,
		Default:   []string{},
	})

	items := make([]catalog.CollectionItem, 0, len(resp.Releases))
	for _, s := range resp.Releases {
		items = append(items, catalog.CollectionItem{
			ID:       s.ID,
			Title:    s.Title,
			Artist:   s.Artist,
			Year:     s.Year,
			ThumbURL: s.Thumb,
			Format:   s.Format,
			Label:    s.Label,
			Genres:   genres[s.ID],
		})
	}

	return catalog.PageOf[catalog.CollectionItem]{
		Page:  resp.Pagination.ToPage(),
		Items: items,
	}, nil
}

func (r *Repository) memberImage(ctx context.Context, id int) (string, error) {
	member, err := r.client.GetArtist(ctx, id)
	if err != nil {
		return "", err
	}
	return member.PrimaryImage(), nil
}

func (r *Repository) releaseGenres(ctx context.Context, id int) ([]string, error) {
	release, err := r.client.GetRelease(ctx, id)
	if err != nil {
		return nil, err
	}
	if release.Genres == nil {
		return []string{}, nil
	}
	return release.Genres, nil
}

func (r *Repository) transportError(op string, err error) error {
	r.logger.Warn().Err(err).Str("operation", op).Msg("Primary catalog call failed")
	return catalog.NewTransportError(op, err)
}

func (r *Repository) validationError(op string, err error) error {
	r.logger.Warn().Err(err).Str("operation", op).Msg("Primary catalog response rejected")
	return catalog.NewValidationError(op, err)
}
