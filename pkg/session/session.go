// Package session holds the presentation-facing state of one screen: a
// search, an artist detail or an artist's releases. Each session owns its
// loads, derives a single state value from them and publishes every change
// to subscribers.
package session

import (
	"context"

	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/logging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// DefaultPageSize is the number of records requested per page.
const DefaultPageSize = 30

// Phase is the coarse state of a session.
type Phase string

const (
	PhaseAwaitingInput Phase = "awaiting_input"
	PhaseLoading       Phase = "loading"
	PhaseNoResults     Phase = "no_results"
	PhaseError         Phase = "error"
	PhaseSuccess       Phase = "success"
)

// Searcher runs artist searches.
type Searcher interface {
	Search(ctx context.Context, query string, page, perPage int) (catalog.PageOf[catalog.CatalogItem], error)
}

// ArtistLoader loads one artist with its members.
type ArtistLoader interface {
	ArtistDetail(ctx context.Context, id int) (*catalog.EntityDetail, error)
}

// ReleaseLoader loads pages of an artist's releases.
type ReleaseLoader interface {
	Releases(ctx context.Context, artistID, page, perPage int) (catalog.PageOf[catalog.CollectionItem], error)
}

// base carries what every session kind shares.
type base struct {
	id     string
	ctx    context.Context
	cancel context.CancelFunc
	logger zerolog.Logger
}

func newBase(ctx context.Context, kind string) base {
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(ctx)
	return base{
		id:     id,
		ctx:    ctx,
		cancel: cancel,
		logger: logging.WithSession(logging.NewLogger("session"), kind, id),
	}
}

// ID returns the session's unique identifier.
func (b *base) ID() string {
	return b.id
}

func pageSizeOrDefault(n int) int {
	if n <= 0 {
		return DefaultPageSize
	}
	return n
}

func messageOr(msg, fallback string) string {
	if msg == "" {
		return fallback
	}
	return msg
}
