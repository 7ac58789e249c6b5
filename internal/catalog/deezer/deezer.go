// Package deezer implements the free preview catalog adapter.
// No authentication is required. Deezer supplies 30-second preview clips,
// album artwork, and track lookup by ISRC.
package deezer

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
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/song"
)

const defaultBaseURL = "https://api.deezer.com"

// Batch hydration internals: Deezer's public limit is generous, so chunks of
// ten concurrent requests with a short pause between chunks stay well under it.
const (
	hydrateChunkSize = 10
	hydrateChunkWait = 100 * time.Millisecond
)

// Adapter implements catalog.Catalog for Deezer's public API.
type Adapter struct {
	client  *http.Client
	limiter *catalog.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a Deezer adapter with the default base URL.
func New(limiter *catalog.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a Deezer adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *catalog.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: limiter,
		logger:  logger.With(slog.String("catalog", "deezer")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the catalog identifier.
func (a *Adapter) Name() catalog.Name { return catalog.NameDeezer }

// RequiresAuth returns false since Deezer's public API needs no key.
func (a *Adapter) RequiresAuth() bool { return false }

// ResolveByISRC looks up a track by ISRC via Deezer's track/isrc: endpoint.
func (a *Adapter) ResolveByISRC(ctx context.Context, isrc string) (*catalog.Match, error) {
	if isrc == "" {
		return nil, fmt.Errorf("deezer: empty ISRC")
	}

	reqURL := a.baseURL + "/track/isrc:" + url.PathEscape(isrc)
	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var result trackResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, fmt.Errorf("parsing track response: %w", err)
	}
	// Deezer reports "no data" as an error object with HTTP 200.
	if result.Error != nil || result.ID == 0 {
		return nil, nil
	}

	return a.mapTrack(&result), nil
}

// ResolveByText searches Deezer for a track by artist and title and returns
// the top-ranked hit.
func (a *Adapter) ResolveByText(ctx context.Context, artist, title string) (*catalog.Match, error) {
	if artist == "" && title == "" {
		return nil, fmt.Errorf("deezer: artist and title both empty")
	}

	params := url.Values{
		"q":     {fmt.Sprintf(`artist:%q track:%q`, artist, title)},
		"limit": {"5"},
	}
	reqURL := a.baseURL + "/search/track?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
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
	if len(resp.Data) == 0 {
		return nil, nil
	}

	a.logger.Debug("track search completed",
		slog.String("artist", artist),
		slog.String("title", title),
		slog.Int("results", len(resp.Data)))

	return a.mapTrack(&resp.Data[0]), nil
}

// PreviewUpdate pairs a song ID with the preview data found for it.
type PreviewUpdate struct {
	SongID     string
	PreviewURL string
	ArtworkURL string
}

// HydratePreviews resolves preview clips for a batch of songs. Chunking and
// pacing are internal: callers hand over the whole batch. Songs without an
// identity or without a Deezer hit are silently absent from the result.
func (a *Adapter) HydratePreviews(ctx context.Context, songs []song.Song) ([]PreviewUpdate, error) {
	var (
		mu      sync.Mutex
		updates []PreviewUpdate
	)

	for start := 0; start < len(songs); start += hydrateChunkSize {
		end := start + hydrateChunkSize
		if end > len(songs) {
			end = len(songs)
		}

		g, gctx := errgroup.WithContext(ctx)
		for _, s := range songs[start:end] {
			if !s.HasIdentity() {
				continue
			}
			g.Go(func() error {
				match, err := a.ResolveByText(gctx, s.Artist, s.Title)
				if err != nil {
					// Preview hydration is cosmetic; log and move on.
					a.logger.Debug("preview hydration miss",
						slog.String("song", s.ID),
						slog.String("error", err.Error()))
					return nil
				}
				if match == nil || match.PreviewURL == "" {
					return nil
				}
				mu.Lock()
				updates = append(updates, PreviewUpdate{
					SongID:     s.ID,
					PreviewURL: match.PreviewURL,
					ArtworkURL: match.ArtworkURL,
				})
				mu.Unlock()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return updates, err
		}

		if end < len(songs) {
			select {
			case <-ctx.Done():
				return updates, ctx.Err()
			case <-time.After(hydrateChunkWait):
			}
		}
	}

	return updates, nil
}

// mapTrack converts a Deezer track into a catalog match.
func (a *Adapter) mapTrack(r *trackResult) *catalog.Match {
	return &catalog.Match{
		ID:          strconv.Itoa(r.ID),
		Title:       r.Title,
		Artist:      r.Artist.Name,
		Album:       r.Album.Title,
		Year:        releaseYear(r.Album.ReleaseDate),
		DurationSec: r.Duration,
		ISRC:        r.ISRC,
		PreviewURL:  r.Preview,
		ArtworkURL:  bestCover(&r.Album),
		URL:         r.Link,
		Source:      catalog.NameDeezer,
	}
}

// bestCover prefers the largest album cover Deezer provides.
func bestCover(al *albumResult) string {
	switch {
	case al.CoverXL != "":
		return al.CoverXL
	case al.CoverBig != "":
		return al.CoverBig
	case al.CoverMedium != "":
		return al.CoverMedium
	default:
		return al.Cover
	}
}

// releaseYear extracts the year from a Deezer release date (YYYY-MM-DD).
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

// doRequest executes a GET request and returns the response body.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, catalog.NameDeezer); err != nil {
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameDeezer,
			Cause:   fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameDeezer,
			Cause:   err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusNotFound:
		return nil, nil
	case http.StatusTooManyRequests:
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameDeezer,
			Cause:   fmt.Errorf("rate limited by server"),
		}
	default:
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameDeezer,
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}
