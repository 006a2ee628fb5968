package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"github.com/diegoralt/Artify/pkg/catalog"
)

var _ catalog.Client = (*Client)(nil)

// maxErrorBody bounds how much of an error response is read for its message.
const maxErrorBody = 4 << 10

// Search finds artists matching query.
func (c *Client) Search(ctx context.Context, query string, page, perPage int) (*catalog.SearchResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "artist")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))

	var out catalog.SearchResponse
	if err := c.getJSON(ctx, "/database/search", "/database/search", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetArtist fetches one artist.
func (c *Client) GetArtist(ctx context.Context, id int) (*catalog.ArtistResponse, error) {
	var out catalog.ArtistResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/artists/%d", id), "/artists/{id}", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetArtistReleases fetches one page of an artist's releases.
func (c *Client) GetArtistReleases(ctx context.Context, artistID, page, perPage int, sort catalog.SortField, order catalog.SortDirection) (*catalog.ReleasesResponse, error) {
	params := url.Values{}
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(perPage))
	if sort != "" {
		params.Set("sort", string(sort))
	}
	if order != "" {
		params.Set("sort_order", string(order))
	}

	var out catalog.ReleasesResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/artists/%d/releases", artistID), "/artists/{id}/releases", params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetRelease fetches one release.
func (c *Client) GetRelease(ctx context.Context, id int) (*catalog.ReleaseResponse, error) {
	var out catalog.ReleaseResponse
	if err := c.getJSON(ctx, fmt.Sprintf("/releases/%d", id), "/releases/{id}", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// getJSON issues a GET for path and decodes a 2xx body into out.
// Any other status becomes an *APIError carrying the API's message.
func (c *Client) getJSON(ctx context.Context, path, endpoint string, params url.Values, out any) error {
	target := c.config.BaseURL + path
	if len(params) > 0 {
		target += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	resp, err := c.do(req, endpoint)
	if err != nil {
		return fmt.Errorf("GET %s: %w", endpoint, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("GET %s: %w", endpoint, responseError(resp))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("GET %s: decode response: %w", endpoint, err)
	}
	return nil
}

// responseError builds an *APIError from a non-2xx response. The API
// reports failures as {"message": "..."}.
func responseError(resp *http.Response) *APIError {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		ErrorClass: classifyStatus(resp.StatusCode),
		Message:    resp.Status,
	}
	if apiErr.ErrorClass == "" {
		apiErr.ErrorClass = ErrorClassClient
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apiErr
	}
	var payload struct {
		Message string `json:"message"`
	}
	if json.Unmarshal(body, &payload) == nil && payload.Message != "" {
		apiErr.Message = payload.Message
	}
	return apiErr
}
