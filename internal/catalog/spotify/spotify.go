// Package spotify implements the authenticated streaming catalog adapter.
// Every call requires a bearer access token supplied by the caller; the
// adapter never manages token refresh, only checks validity.
package spotify

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/catalog"
)

const defaultBaseURL = "https://api.spotify.com/v1"

// Adapter is a thin client over Spotify's track search endpoints.
type Adapter struct {
	client  *http.Client
	limiter *catalog.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Spotify adapter with the default base URL.
func New(limiter *catalog.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Spotify adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *catalog.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("catalog", "spotify")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the catalog identifier.
func (a *Adapter) Name() catalog.Name { return catalog.NameSpotify }

// RequiresAuth returns true: every Spotify call needs a bearer token.
func (a *Adapter) RequiresAuth() bool { return true }

// ResolveByISRC looks up a track by ISRC. Spotify indexes ISRCs directly in
// its search syntax, making this the cheapest authenticated lookup.
func (a *Adapter) ResolveByISRC(ctx context.Context, token *oauth2.Token, isrc string) (*catalog.Match, error) {
	if isrc == "" {
		return nil, fmt.Errorf("spotify: empty ISRC")
	}

	matches, err := a.search(ctx, token, "isrc:"+isrc, 1)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// ResolveByText issues a structured field search by exact artist and title
// and returns the top hit.
func (a *Adapter) ResolveByText(ctx context.Context, token *oauth2.Token, artist, title string) (*catalog.Match, error) {
	if artist == "" && title == "" {
		return nil, fmt.Errorf("spotify: artist and title both empty")
	}

	query := fmt.Sprintf(`track:%q artist:%q`, title, artist)
	matches, err := a.search(ctx, token, query, 5)
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, nil
	}
	return &matches[0], nil
}

// SearchTracks issues a broad free-text search and returns up to limit
// candidates for fuzzy scoring by the caller.
func (a *Adapter) SearchTracks(ctx context.Context, token *oauth2.Token, query string, limit int) ([]catalog.Match, error) {
	if query == "" {
		return nil, fmt.Errorf("spotify: empty query")
	}
	if limit < 1 || limit > 50 {
		limit = 10
	}
	return a.search(ctx, token, query, limit)
}

func (a *Adapter) search(ctx context.Context, token *oauth2.Token, query string, limit int) ([]catalog.Match, error) {
	if token == nil || !token.Valid() {
		return nil, &catalog.ErrAuthRequired{Catalog: catalog.NameSpotify}
	}

	params := url.Values{
		"q":     {query},
		"type":  {"track"},
		"limit": {strconv.Itoa(limit)},
	}
	reqURL := a.baseURL + "/search?" + params.Encode()

	body, err := a.doRequest(ctx, token, reqURL)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}

	matches := make([]catalog.Match, 0, len(resp.Tracks.Items))
	for i := range resp.Tracks.Items {
		matches = append(matches, *mapTrack(&resp.Tracks.Items[i]))
	}

	a.logger.Debug("track search completed",
		slog.String("query", query),
		slog.Int("results", len(matches)))

	return matches, nil
}

// doRequest executes an authenticated GET. Spotify's 429 responses carry a
// Retry-After header; a bounded retry honors it before giving up.
func (a *Adapter) doRequest(ctx context.Context, token *oauth2.Token, reqURL string) ([]byte, error) {
	var body []byte

	backoff := retry.WithMaxRetries(2, retry.NewConstant(500*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := a.limiter.Wait(ctx, catalog.NameSpotify); err != nil {
			return &catalog.ErrCatalogUnavailable{
				Catalog: catalog.NameSpotify,
				Cause:   fmt.Errorf("rate limiter: %w", err),
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/json")
		token.SetAuthHeader(req)

		resp, err := a.client.Do(req)
		if err != nil {
			return &catalog.ErrCatalogUnavailable{
				Catalog: catalog.NameSpotify,
				Cause:   err,
			}
		}
		defer resp.Body.Close() //nolint:errcheck

		switch resp.StatusCode {
		case http.StatusOK:
			body, err = io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
			return err
		case http.StatusNotFound:
			body = nil
			return nil
		case http.StatusUnauthorized, http.StatusForbidden:
			return &catalog.ErrAuthRequired{Catalog: catalog.NameSpotify}
		case http.StatusTooManyRequests:
			wait := retryAfter(resp.Header.Get("Retry-After"))
			if wait > 0 {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(wait):
				}
			}
			return retry.RetryableError(&catalog.ErrCatalogUnavailable{
				Catalog:    catalog.NameSpotify,
				Cause:      fmt.Errorf("rate limited by server"),
				RetryAfter: wait,
			})
		default:
			return &catalog.ErrCatalogUnavailable{
				Catalog: catalog.NameSpotify,
				Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
			}
		}
	})
	if err != nil {
		return nil, err
	}
	return body, nil
}

// retryAfter parses a Retry-After header value in seconds, capped at 5s so a
// hostile header cannot stall a verification batch.
func retryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	secs, err := strconv.Atoi(v)
	if err != nil || secs < 0 {
		return 0
	}
	if secs > 5 {
		secs = 5
	}
	return time.Duration(secs) * time.Second
}

// mapTrack converts a Spotify track into a catalog match.
func mapTrack(tr *trackObject) *catalog.Match {
	match := &catalog.Match{
		ID:          tr.ID,
		Title:       tr.Name,
		Artist:      joinArtists(tr.Artists),
		Album:       tr.Album.Name,
		Year:        releaseYear(tr.Album.ReleaseDate),
		DurationSec: tr.DurationMS / 1000,
		ISRC:        tr.ExternalIDs.ISRC,
		PreviewURL:  tr.PreviewURL,
		URL:         tr.ExternalURLs.Spotify,
		Source:      catalog.NameSpotify,
	}
	if match.URL == "" && tr.ID != "" {
		match.URL = "https://open.spotify.com/track/" + tr.ID
	}
	if len(tr.Album.Images) > 0 {
		match.ArtworkURL = tr.Album.Images[0].URL
	}
	return match
}

// joinArtists renders the credited artists as a single display string.
func joinArtists(artists []artistObject) string {
	names := make([]string, 0, len(artists))
	for _, ar := range artists {
		names = append(names, ar.Name)
	}
	return strings.Join(names, ", ")
}

// releaseYear extracts the year from a Spotify release date (YYYY or YYYY-MM-DD).
func releaseYear(date string) int {
	if len(date) < 4 {
		return 0
	}
	year, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0
	}
	return year
}
