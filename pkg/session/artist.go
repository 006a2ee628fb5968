package session

import (
	"context"
	"sync"

	"github.com/diegoralt/Artify/internal/broadcast"
	"github.com/diegoralt/Artify/pkg/catalog"
)

// DefaultArtistError is shown when a failed detail load carries no message.
const DefaultArtistError = "Unable to load artist"

// ArtistState is the view of an artist detail session.
type ArtistState struct {
	Phase   Phase                 `json:"phase"`
	Detail  *catalog.EntityDetail `json:"detail,omitempty"`
	Message string                `json:"message,omitempty"`
}

// ArtistSession loads one artist with its members.
type ArtistSession struct {
	base
	loader   ArtistLoader
	artistID int

	mu    sync.Mutex
	gen   uint64
	state ArtistState
	subs  *broadcast.Broadcaster[ArtistState]
}

// NewArtistSession creates a session for artistID in the loading phase.
// Nothing is fetched until Load.
func NewArtistSession(ctx context.Context, loader ArtistLoader, artistID int) *ArtistSession {
	return &ArtistSession{
		base:     newBase(ctx, "artist"),
		loader:   loader,
		artistID: artistID,
		state:    ArtistState{Phase: PhaseLoading},
		subs:     broadcast.New[ArtistState](),
	}
}

// Load fetches the artist and blocks until it settled. A load superseded by
// a later Load or Retry is discarded.
func (s *ArtistSession) Load() {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.setLocked(ArtistState{Phase: PhaseLoading})
	s.mu.Unlock()

	detail, err := s.loader.ArtistDetail(s.ctx, s.artistID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	if err != nil {
		s.logger.Warn().Err(err).Int("artist_id", s.artistID).Msg("Artist detail failed")
		s.setLocked(ArtistState{
			Phase:   PhaseError,
			Message: messageOr(catalog.MessageOf(err), DefaultArtistError),
		})
		return
	}

	s.logger.Info().
		Int("artist_id", s.artistID).
		Int("members", len(detail.Members)).
		Msg("Artist detail loaded")
	s.setLocked(ArtistState{Phase: PhaseSuccess, Detail: detail})
}

// Retry reloads the artist.
func (s *ArtistSession) Retry() {
	s.Load()
}

// State returns the current view.
func (s *ArtistSession) State() ArtistState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Subscribe returns a channel carrying the latest view after each change.
func (s *ArtistSession) Subscribe() (<-chan ArtistState, func()) {
	return s.subs.Subscribe()
}

// Close cancels a load in flight.
func (s *ArtistSession) Close() {
	s.cancel()
	s.subs.Close()
}

func (s *ArtistSession) setLocked(state ArtistState) {
	s.state = state
	s.subs.Publish(state)
}
