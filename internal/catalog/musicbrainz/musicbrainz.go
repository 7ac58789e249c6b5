// Package musicbrainz implements the free metadata catalog adapter.
// MusicBrainz supplies canonical artist/title/album data, recording lengths,
// and ISRC codes, which the rest of the pipeline uses as a cross-catalog
// join key.
package musicbrainz

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

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/version"
)

const defaultBaseURL = "https://musicbrainz.org/ws/2"

// coverArtBaseURL serves release front covers by release MBID.
const coverArtBaseURL = "https://coverartarchive.org/release"

// Adapter implements the catalog.Catalog interface for MusicBrainz.
type Adapter struct {
	client  *http.Client
	limiter *catalog.RateLimiterMap
	logger  *slog.Logger
	baseURL string
}

// New creates a MusicBrainz adapter with the default base URL.
func New(limiter *catalog.RateLimiterMap, logger *slog.Logger) *Adapter {
	return NewWithBaseURL(limiter, logger, defaultBaseURL)
}

// NewWithBaseURL creates a MusicBrainz adapter with a custom base URL (for testing).
func NewWithBaseURL(limiter *catalog.RateLimiterMap, logger *slog.Logger, baseURL string) *Adapter {
	return &Adapter{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		limiter: limiter,
		logger:  logger.With(slog.String("catalog", "musicbrainz")),
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name returns the catalog name.
func (a *Adapter) Name() catalog.Name { return catalog.NameMusicBrainz }

// RequiresAuth returns whether this catalog needs a bearer token.
func (a *Adapter) RequiresAuth() bool { return false }

// ResolveByISRC looks up a recording by its ISRC code.
func (a *Adapter) ResolveByISRC(ctx context.Context, isrc string) (*catalog.Match, error) {
	if isrc == "" {
		return nil, fmt.Errorf("musicbrainz: empty ISRC")
	}

	reqURL := a.baseURL + "/isrc/" + url.PathEscape(isrc) + "?fmt=json&inc=artist-credits+releases"
	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var resp ISRCResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing isrc response: %w", err)
	}
	if len(resp.Recordings) == 0 {
		return nil, nil
	}

	match := a.mapRecording(&resp.Recordings[0])
	match.ISRC = isrc
	return match, nil
}

// ResolveByText searches by artist and title and returns the top-scored
// recording. A second lookup fetches ISRCs, which the search endpoint does
// not include; its failure is tolerated since the search hit alone confirms
// the recording exists.
func (a *Adapter) ResolveByText(ctx context.Context, artist, title string) (*catalog.Match, error) {
	if artist == "" && title == "" {
		return nil, fmt.Errorf("musicbrainz: artist and title both empty")
	}

	query := fmt.Sprintf(`recording:%q AND artist:%q`, title, artist)
	params := url.Values{
		"query": {query},
		"fmt":   {"json"},
		"limit": {"5"},
	}
	reqURL := a.baseURL + "/recording?" + params.Encode()

	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return nil, err
	}
	if body == nil {
		return nil, nil
	}

	var resp RecordingSearchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("parsing search response: %w", err)
	}
	if len(resp.Recordings) == 0 {
		return nil, nil
	}

	top := &resp.Recordings[0]
	match := a.mapRecording(top)

	if isrc, err := a.lookupISRC(ctx, top.ID); err != nil {
		a.logger.Debug("isrc lookup failed", slog.String("recording", top.ID), slog.String("error", err.Error()))
	} else {
		match.ISRC = isrc
	}

	a.logger.Debug("recording search completed",
		slog.String("artist", artist),
		slog.String("title", title),
		slog.Int("results", len(resp.Recordings)))

	return match, nil
}

// lookupISRC fetches the ISRC list for a recording by MBID.
func (a *Adapter) lookupISRC(ctx context.Context, mbid string) (string, error) {
	reqURL := a.baseURL + "/recording/" + url.PathEscape(mbid) + "?fmt=json&inc=isrcs"
	body, err := a.doRequest(ctx, reqURL)
	if err != nil {
		return "", err
	}
	if body == nil {
		return "", nil
	}

	var rec MBRecording
	if err := json.Unmarshal(body, &rec); err != nil {
		return "", fmt.Errorf("parsing recording response: %w", err)
	}
	if len(rec.ISRCs) == 0 {
		return "", nil
	}
	return rec.ISRCs[0], nil
}

// mapRecording converts a MusicBrainz recording into a catalog match.
func (a *Adapter) mapRecording(rec *MBRecording) *catalog.Match {
	match := &catalog.Match{
		ID:          rec.ID,
		Title:       rec.Title,
		Artist:      creditedArtist(rec.ArtistCredit),
		DurationSec: rec.LengthMS / 1000,
		Source:      catalog.NameMusicBrainz,
		URL:         "https://musicbrainz.org/recording/" + rec.ID,
	}
	if len(rec.ISRCs) > 0 {
		match.ISRC = rec.ISRCs[0]
	}
	if rel := firstOfficialRelease(rec.Releases); rel != nil {
		match.Album = rel.Title
		match.Year = releaseYear(rel.Date)
		match.ArtworkURL = coverArtBaseURL + "/" + rel.ID + "/front-500"
	}
	return match
}

// creditedArtist joins the artist credit into a single display string,
// honoring join phrases ("feat.", "&").
func creditedArtist(credits []MBArtistCredit) string {
	var b strings.Builder
	for _, c := range credits {
		b.WriteString(c.Name)
		b.WriteString(c.JoinPhrase)
	}
	return b.String()
}

// firstOfficialRelease prefers an Official release, falling back to the first.
func firstOfficialRelease(releases []MBRelease) *MBRelease {
	for i := range releases {
		if releases[i].Status == "Official" {
			return &releases[i]
		}
	}
	if len(releases) > 0 {
		return &releases[0]
	}
	return nil
}

// releaseYear extracts the year from a MusicBrainz date (YYYY or YYYY-MM-DD).
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
// A 404 returns (nil, nil); MusicBrainz answers 404 for unknown ISRCs.
func (a *Adapter) doRequest(ctx context.Context, reqURL string) ([]byte, error) {
	if err := a.limiter.Wait(ctx, catalog.NameMusicBrainz); err != nil {
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameMusicBrainz,
			Cause:   fmt.Errorf("rate limiter: %w", err),
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameMusicBrainz,
			Cause:   err,
		}
	}
	defer resp.Body.Close() //nolint:errcheck

	switch resp.StatusCode {
	case http.StatusOK:
		// continue
	case http.StatusNotFound:
		return nil, nil
	case http.StatusServiceUnavailable, http.StatusTooManyRequests:
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameMusicBrainz,
			Cause:   fmt.Errorf("rate limited by server"),
		}
	default:
		return nil, &catalog.ErrCatalogUnavailable{
			Catalog: catalog.NameMusicBrainz,
			Cause:   fmt.Errorf("unexpected status %d", resp.StatusCode),
		}
	}

	return io.ReadAll(io.LimitReader(resp.Body, 1*1024*1024))
}
