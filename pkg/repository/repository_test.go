package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/diegoralt/Artify/internal/testutil"
	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/diegoralt/Artify/pkg/fanout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepository(t *testing.T, fake *testutil.FakeCatalog) *Repository {
	t.Helper()
	repo, err := New(fake, fanout.New(fanout.Config{MaxConcurrency: 4, Timeout: time.Second}))
	require.NoError(t, err)
	return repo
}

func failOn(method string, ids ...int) func(context.Context, testutil.Call) error {
	failing := make(map[int]bool, len(ids))
	for _, id := range ids {
		failing[id] = true
	}
	return func(_ context.Context, call testutil.Call) error {
		if call.Method == method && failing[call.ID] {
			return errors.New("HTTP 404")
		}
		return nil
	}
}

func TestNew_RequiresClient(t *testing.T) {
	_, err := New(nil, nil)
	assert.ErrorIs(t, err, ErrNilClient)
}

func TestSearch_MapsResults(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.AddArtist(1, "Coldplay", "")
	fake.AddArtist(2, "Coldplay Tribute", "")
	fake.AddArtist(3, "Coldplay Kids", "")
	repo := newTestRepository(t, fake)

	page, err := repo.Search(context.Background(), "Coldplay", 1, 30)
	require.NoError(t, err)

	require.Len(t, page.Items, 3)
	assert.Equal(t, catalog.CatalogItem{ID: 1, Name: "Coldplay", Type: "artist"}, page.Items[0])
	assert.Equal(t, 1, page.Page.Page)
	assert.Equal(t, 1, page.Page.Pages)
	assert.False(t, page.Page.HasMore())
}

func TestSearch_TransportError(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.Hook = func(context.Context, testutil.Call) error { return errors.New("connection refused") }
	repo := newTestRepository(t, fake)

	_, err := repo.Search(context.Background(), "Coldplay", 1, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrTransport)
	assert.Equal(t, "connection refused", catalog.MessageOf(err))
}

func TestSearch_ValidationError(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.SearchIndex = []catalog.ArtistResult{{ID: 0, Title: "Broken"}}
	repo := newTestRepository(t, fake)

	_, err := repo.Search(context.Background(), "Broken", 1, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrValidation)
	assert.Contains(t, err.Error(), "results[0].id")
}

func TestSearch_BlankTitleKeepsPage(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.SearchIndex = []catalog.ArtistResult{
		{ID: 1, Type: "artist", Title: "Coldplay"},
		{ID: 2, Type: "artist", Title: ""},
	}
	repo := newTestRepository(t, fake)

	page, err := repo.Search(context.Background(), "", 1, 30)
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	assert.Equal(t, "Coldplay", page.Items[0].Name)
	assert.Equal(t, catalog.CatalogItem{ID: 2, Type: "artist"}, page.Items[1])
}

func TestArtistDetail_MemberImageFailureDefaultsToEmpty(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.AddArtist(29735, "Coldplay", "https://img/coldplay.jpg",
		catalog.MemberResponse{ID: 530745, Name: "Chris Martin", Active: true},
		catalog.MemberResponse{ID: 530746, Name: "Jonny Buckland", Active: true},
	)
	fake.AddArtist(530746, "Jonny Buckland", "https://img/jonny.jpg")
	fake.Hook = failOn(testutil.MethodGetArtist, 530745)
	repo := newTestRepository(t, fake)

	detail, err := repo.ArtistDetail(context.Background(), 29735)
	require.NoError(t, err)

	assert.Equal(t, "Coldplay", detail.Name)
	assert.Equal(t, "https://img/coldplay.jpg", detail.ImageURL)
	require.Len(t, detail.Members, 2)
	assert.Equal(t, "Chris Martin", detail.Members[0].Name)
	assert.Equal(t, "", detail.Members[0].ImageURL)
	assert.Equal(t, "https://img/jonny.jpg", detail.Members[1].ImageURL)

	// one primary call plus one per member
	assert.Equal(t, 3, fake.CallCount(testutil.MethodGetArtist))
}

func TestArtistDetail_NoMembers(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.AddArtist(1, "Solo Artist", "")
	repo := newTestRepository(t, fake)

	detail, err := repo.ArtistDetail(context.Background(), 1)
	require.NoError(t, err)
	assert.Nil(t, detail.Members)
	assert.Equal(t, 1, fake.CallCount(testutil.MethodGetArtist))
}

func TestArtistDetail_PrimaryFailureSkipsFanout(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.AddArtist(29735, "Coldplay", "",
		catalog.MemberResponse{ID: 530745, Name: "Chris Martin"},
	)
	fake.Hook = failOn(testutil.MethodGetArtist, 29735)
	repo := newTestRepository(t, fake)

	detail, err := repo.ArtistDetail(context.Background(), 29735)
	require.Error(t, err)
	assert.Nil(t, detail)
	assert.ErrorIs(t, err, catalog.ErrTransport)
	assert.Equal(t, "HTTP 404", catalog.MessageOf(err))
	assert.Equal(t, 1, fake.CallCount(testutil.MethodGetArtist))
}

func TestArtistDetail_ValidationError(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.Artists[7] = &catalog.ArtistResponse{ID: 7}
	repo := newTestRepository(t, fake)

	_, err := repo.ArtistDetail(context.Background(), 7)
	assert.ErrorIs(t, err, catalog.ErrValidation)
}

func TestReleases_GenreFailureDefaultsToEmpty(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.AddRelease(1, catalog.ReleaseSummary{ID: 111, Title: "Parachutes", Year: 2000}, "Rock", "Pop")
	fake.AddRelease(1, catalog.ReleaseSummary{ID: 222, Title: "Viva la Vida", Year: 2008}, "Rock")
	fake.Hook = failOn(testutil.MethodGetRelease, 222)
	repo := newTestRepository(t, fake)

	page, err := repo.Releases(context.Background(), 1, 1, 30)
	require.NoError(t, err)

	require.Len(t, page.Items, 2)
	// newest first
	assert.Equal(t, 222, page.Items[0].ID)
	assert.NotNil(t, page.Items[0].Genres)
	assert.Empty(t, page.Items[0].Genres)
	assert.Equal(t, []string{"Rock", "Pop"}, page.Items[1].Genres)
	assert.Equal(t, 2, fake.CallCount(testutil.MethodGetRelease))
}

func TestReleases_NilGenresBecomeEmpty(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	fake.AddRelease(1, catalog.ReleaseSummary{ID: 111, Title: "Untagged"})
	repo := newTestRepository(t, fake)

	page, err := repo.Releases(context.Background(), 1, 1, 30)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.NotNil(t, page.Items[0].Genres)
	assert.False(t, page.Items[0].HasYear())
}

func TestReleases_PrimaryFailureSkipsFanout(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	repo := newTestRepository(t, fake)

	_, err := repo.Releases(context.Background(), 404, 1, 30)
	require.Error(t, err)
	assert.ErrorIs(t, err, catalog.ErrTransport)
	assert.ErrorIs(t, err, testutil.ErrNotFound)
	assert.Zero(t, fake.CallCount(testutil.MethodGetRelease))
}

func TestReleases_Paginates(t *testing.T) {
	fake := testutil.NewFakeCatalog()
	for i := 1; i <= 5; i++ {
		fake.AddRelease(1, catalog.ReleaseSummary{ID: i, Title: "Release", Year: 2000 + i})
	}
	repo := newTestRepository(t, fake)

	page, err := repo.Releases(context.Background(), 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, page.Page.Page)
	assert.Equal(t, 3, page.Page.Pages)
	assert.True(t, page.Page.HasMore())
	require.Len(t, page.Items, 2)
	assert.Equal(t, 2003, page.Items[0].Year)
	assert.Equal(t, 2, fake.CallCount(testutil.MethodGetRelease))
}
