// Package resolve implements tiered resolution of a song to a streaming
// platform track ID, plus the per-session link cache.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"regexp"
	"strings"

	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/song"
)

// Tier is a ranked resolution strategy, in decreasing confidence and
// increasing query cost.
type Tier string

// Resolution tiers.
const (
	TierDirect Tier = "direct"
	TierSoft   Tier = "soft"
	TierHard   Tier = "hard"
	TierFailed Tier = "failed"
)

// DefaultAcceptThreshold is the hard-search acceptance cutoff used when no
// explicit threshold is configured. Tunable, not a contract.
const DefaultAcceptThreshold = 0.75

// softAcceptFloor is the minimum confidence a soft-search hit can carry.
const softAcceptFloor = 0.8

// ErrMalformedSong indicates a song with neither artist nor title reached the
// resolver. Callers catch it and record a per-song failure.
var ErrMalformedSong = errors.New("resolve: song has neither artist nor title")

// Searcher is the streaming-catalog surface the resolver needs.
type Searcher interface {
	// ResolveByText issues a structured exact-field search.
	ResolveByText(ctx context.Context, token *oauth2.Token, artist, title string) (*catalog.Match, error)
	// SearchTracks issues a broad free-text search returning candidates.
	SearchTracks(ctx context.Context, token *oauth2.Token, query string, limit int) ([]catalog.Match, error)
}

// Result is the outcome of resolving one (song, platform) pair. Ephemeral:
// only the final chosen ID is ever written back to the song.
type Result struct {
	Song        song.Song     `json:"song"`
	Platform    song.Platform `json:"platform"`
	PlatformID  string        `json:"platform_id,omitempty"`
	PlatformURL string        `json:"platform_url,omitempty"`
	ISRC        string        `json:"isrc,omitempty"`
	Tier        Tier          `json:"tier"`
	Confidence  float64       `json:"confidence"`
	Reason      string        `json:"reason,omitempty"`
}

// Resolver performs tiered platform matching.
type Resolver struct {
	search    Searcher
	threshold float64
	logger    *slog.Logger
}

// NewResolver creates a resolver. A zero threshold selects the default.
func NewResolver(search Searcher, threshold float64, logger *slog.Logger) *Resolver {
	if threshold <= 0 {
		threshold = DefaultAcceptThreshold
	}
	return &Resolver{
		search:    search,
		threshold: threshold,
		logger:    logger.With(slog.String("component", "resolver")),
	}
}

// ResolveForPlatform resolves one song to one platform's track identifier.
//
// Tier order: direct (no network) → soft (only for already-verified songs) →
// hard (fuzzy scored) → failed. "Not found" is a failed-tier result; errors
// are returned only for missing/expired auth and malformed songs.
func (r *Resolver) ResolveForPlatform(ctx context.Context, s song.Song, platform song.Platform, token *oauth2.Token) (*Result, error) {
	if s.Artist == "" && s.Title == "" {
		return nil, ErrMalformedSong
	}

	// Direct tier: an ID we already hold costs nothing.
	if ref, ok := s.PlatformRef(platform); ok && ref.ID != "" {
		id := ref.ID
		if platform == song.PlatformSpotify {
			if parsed, ok := ParseSpotifyTrackID(ref.ID); ok {
				id = parsed
			}
		}
		return &Result{
			Song:        s,
			Platform:    platform,
			PlatformID:  id,
			PlatformURL: ref.URL,
			Tier:        TierDirect,
			Confidence:  1.0,
		}, nil
	}

	// Only the authenticated streaming platform supports search tiers.
	if platform != song.PlatformSpotify {
		return r.failed(s, platform, fmt.Sprintf("no stored ID and no search support for %s", platform)), nil
	}

	// Soft tier is gated on prior verification: streaming search quota is the
	// most expensive in the cascade, so it is spent only on songs a cheaper
	// catalog has already confirmed are real.
	if s.VerificationStatus == song.StatusVerified {
		res, err := r.softResolve(ctx, s, platform, token)
		if err != nil {
			return nil, err
		}
		if res != nil {
			return res, nil
		}
	}

	return r.hardResolve(ctx, s, platform, token)
}

// softResolve issues a structured exact search and accepts only a near-exact
// title and artist match. Returns nil when the hit is not confident enough.
func (r *Resolver) softResolve(ctx context.Context, s song.Song, platform song.Platform, token *oauth2.Token) (*Result, error) {
	match, err := r.search.ResolveByText(ctx, token, s.Artist, s.Title)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, nil
	}

	titleSim := similarity(match.Title, s.Title)
	artistSim := similarity(match.Artist, s.Artist)
	if titleSim < 0.95 || artistSim < 0.95 {
		r.logger.Debug("soft search hit rejected",
			slog.String("song", s.ID),
			slog.Float64("title_sim", titleSim),
			slog.Float64("artist_sim", artistSim))
		return nil, nil
	}

	confidence := softAcceptFloor + (1.0-softAcceptFloor)*(titleSim+artistSim)/2
	if confidence > 1.0 {
		confidence = 1.0
	}

	return &Result{
		Song:        s,
		Platform:    platform,
		PlatformID:  match.ID,
		PlatformURL: match.URL,
		ISRC:        match.ISRC,
		Tier:        TierSoft,
		Confidence:  confidence,
	}, nil
}

// hardResolve issues a broad search, scores every candidate, and accepts the
// best only above the configured threshold.
func (r *Resolver) hardResolve(ctx context.Context, s song.Song, platform song.Platform, token *oauth2.Token) (*Result, error) {
	query := strings.TrimSpace(s.Artist + " " + s.Title)
	candidates, err := r.search.SearchTracks(ctx, token, query, 10)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return r.failed(s, platform, "no search results"), nil
	}

	var best *catalog.Match
	var bestScore float64
	for i := range candidates {
		score := Score(candidates[i], s)
		if best == nil || score > bestScore {
			best = &candidates[i]
			bestScore = score
		}
	}

	if bestScore < r.threshold {
		return r.failed(s, platform,
			fmt.Sprintf("best candidate %q by %q scored %.2f, below threshold %.2f",
				best.Title, best.Artist, bestScore, r.threshold)), nil
	}

	r.logger.Debug("hard search accepted",
		slog.String("song", s.ID),
		slog.String("candidate", best.ID),
		slog.Float64("score", bestScore))

	return &Result{
		Song:        s,
		Platform:    platform,
		PlatformID:  best.ID,
		PlatformURL: best.URL,
		ISRC:        best.ISRC,
		Tier:        TierHard,
		Confidence:  bestScore,
	}, nil
}

func (r *Resolver) failed(s song.Song, platform song.Platform, reason string) *Result {
	return &Result{
		Song:       s,
		Platform:   platform,
		Tier:       TierFailed,
		Confidence: 0,
		Reason:     reason,
	}
}

var spotifyTrackURL = regexp.MustCompile(`open\.spotify\.com/track/([A-Za-z0-9]{22})`)

// ParseSpotifyTrackID extracts a bare track ID from a raw ID, a spotify:
// URI, or an open.spotify.com URL.
func ParseSpotifyTrackID(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}
	if strings.HasPrefix(raw, "spotify:track:") {
		id := strings.TrimPrefix(raw, "spotify:track:")
		if isSpotifyID(id) {
			return id, true
		}
		return "", false
	}
	if m := spotifyTrackURL.FindStringSubmatch(raw); m != nil {
		return m[1], true
	}
	if isSpotifyID(raw) {
		return raw, true
	}
	return "", false
}

// isSpotifyID reports whether s looks like a base62 Spotify ID.
func isSpotifyID(s string) bool {
	if len(s) != 22 {
		return false
	}
	for _, r := range s {
		if !(r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return false
		}
	}
	return true
}

// ManualSearchURL builds a platform search page URL for a song the resolver
// could not match, so a human can finish the job.
func ManualSearchURL(platform song.Platform, s song.Song) string {
	q := strings.TrimSpace(s.Artist + " " + s.Title)
	switch platform {
	case song.PlatformSpotify:
		return "https://open.spotify.com/search/" + url.PathEscape(q)
	case song.PlatformYouTube:
		return "https://www.youtube.com/results?search_query=" + url.QueryEscape(q)
	default:
		return ""
	}
}
