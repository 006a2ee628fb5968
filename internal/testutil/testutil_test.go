package testutil

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/diegoralt/Artify/pkg/catalog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFakeCatalog_SearchPaginates(t *testing.T) {
	fake := NewFakeCatalog()
	fake.AddArtist(1, "Nirvana", "")
	fake.AddArtist(2, "Nirvana (2)", "")
	fake.AddArtist(3, "Radiohead", "")

	resp, err := fake.Search(context.Background(), "nirvana", 1, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, resp.Pagination.Pages)
	assert.Equal(t, 2, resp.Pagination.Items)
	require.Len(t, resp.Results, 1)
	assert.Equal(t, "Nirvana", resp.Results[0].Title)

	resp, err = fake.Search(context.Background(), "nirvana", 3, 1)
	require.NoError(t, err)
	assert.Empty(t, resp.Results)
}

func TestFakeCatalog_ReleasesSortedByYear(t *testing.T) {
	fake := NewFakeCatalog()
	fake.AddRelease(1, catalog.ReleaseSummary{ID: 10, Title: "Bleach", Year: 1989})
	fake.AddRelease(1, catalog.ReleaseSummary{ID: 11, Title: "In Utero", Year: 1993})
	fake.AddRelease(1, catalog.ReleaseSummary{ID: 12, Title: "Nevermind", Year: 1991})

	resp, err := fake.GetArtistReleases(context.Background(), 1, 1, 10, catalog.SortByYear, catalog.SortDesc)
	require.NoError(t, err)
	require.Len(t, resp.Releases, 3)
	assert.Equal(t, []int{1993, 1991, 1989}, []int{resp.Releases[0].Year, resp.Releases[1].Year, resp.Releases[2].Year})
}

func TestFakeCatalog_HookAndCalls(t *testing.T) {
	fake := NewFakeCatalog()
	fake.AddArtist(1, "Nirvana", "https://img/1.jpg")
	boom := errors.New("boom")
	fake.Hook = func(_ context.Context, call Call) error {
		if call.Method == MethodGetRelease {
			return boom
		}
		return nil
	}

	artist, err := fake.GetArtist(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "https://img/1.jpg", artist.PrimaryImage())

	_, err = fake.GetRelease(context.Background(), 5)
	assert.ErrorIs(t, err, boom)

	_, err = fake.GetArtist(context.Background(), 99)
	assert.ErrorIs(t, err, ErrNotFound)

	assert.Equal(t, 2, fake.CallCount(MethodGetArtist))
	assert.Len(t, fake.Calls(), 3)
}

func TestMockCatalog_DefaultRoutes(t *testing.T) {
	mock := NewMockCatalog()
	defer mock.Close()
	mock.Catalog.AddArtist(1, "Nirvana", "")

	resp, err := http.Get(mock.URL() + "/artists/1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "59", resp.Header.Get(HeaderRatelimitRemaining))
	assert.NotEmpty(t, resp.Header.Get("ETag"))

	var artist catalog.ArtistResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&artist))
	assert.Equal(t, "Nirvana", artist.Name)

	req, _ := http.NewRequest(http.MethodGet, mock.URL()+"/artists/1", nil)
	req.Header.Set("If-None-Match", resp.Header.Get("ETag"))
	notModified, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	notModified.Body.Close()

	assert.Equal(t, http.StatusNotModified, notModified.StatusCode)
	assert.Equal(t, 2, mock.GetRequestCount())
	assert.Equal(t, 1, mock.GetConditionalCount())
}

func TestMockCatalog_NotFound(t *testing.T) {
	mock := NewMockCatalog()
	defer mock.Close()

	resp, err := http.Get(mock.URL() + "/releases/404")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body["message"], "404")
}

func TestMockCatalog_CustomResponse(t *testing.T) {
	mock := NewMockCatalog()
	defer mock.Close()
	mock.SetResponse("/releases/1", NewServerErrorResponse())

	resp, err := http.Get(mock.URL() + "/releases/1")
	require.NoError(t, err)
	resp.Body.Close()

	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
	assert.Equal(t, "55", resp.Header.Get(HeaderRatelimitRemaining))
}
