// Package catalog defines the adapter contract for external music catalogs
// and the shared error taxonomy of the verification pipeline.
package catalog

import (
	"context"
	"fmt"
	"time"
)

// Name uniquely identifies a catalog.
type Name string

// Known catalog names.
const (
	NameMusicBrainz Name = "musicbrainz" // free metadata catalog: ISRC + canonical metadata
	NameDeezer      Name = "deezer"      // free preview catalog: 30s clips + artwork, no auth
	NameSpotify     Name = "spotify"     // authenticated streaming catalog: bearer token required
)

// AllNames returns all known catalog names in cascade order.
func AllNames() []Name {
	return []Name{NameMusicBrainz, NameDeezer, NameSpotify}
}

// DisplayName returns a human-readable name for the catalog.
func (n Name) DisplayName() string {
	switch n {
	case NameMusicBrainz:
		return "MusicBrainz"
	case NameDeezer:
		return "Deezer"
	case NameSpotify:
		return "Spotify"
	default:
		return string(n)
	}
}

// AccessTier classifies a catalog's access model.
type AccessTier string

// Access tier constants.
const (
	TierFree AccessTier = "free"
	TierAuth AccessTier = "auth" // OAuth bearer token required
)

// RateLimitInfo documents the known rate limits for a catalog.
type RateLimitInfo struct {
	RequestsPerSecond float64 `json:"requests_per_second,omitempty"`
}

// Capability describes a catalog's access model and documented rate limits.
type Capability struct {
	Tier      AccessTier     `json:"tier"`
	HelpURL   string         `json:"help_url,omitempty"`
	RateLimit *RateLimitInfo `json:"rate_limit,omitempty"`
}

// Capabilities returns the known capability metadata for each catalog.
func Capabilities() map[Name]Capability {
	return map[Name]Capability{
		NameMusicBrainz: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 1},
		},
		NameDeezer: {
			Tier:      TierFree,
			RateLimit: &RateLimitInfo{RequestsPerSecond: 5},
		},
		NameSpotify: {
			Tier:      TierAuth,
			HelpURL:   "https://developer.spotify.com/documentation/web-api",
			RateLimit: &RateLimitInfo{RequestsPerSecond: 3},
		},
	}
}

// Match is a single recording matched in a catalog. Fields not supplied by a
// given catalog are left zero; adapters validate and narrow their own JSON
// shapes so nothing duck-typed leaks past this boundary.
type Match struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	Year        int    `json:"year,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	ISRC        string `json:"isrc,omitempty"`
	PreviewURL  string `json:"preview_url,omitempty"`
	ArtworkURL  string `json:"artwork_url,omitempty"`
	URL         string `json:"url,omitempty"`
	Source      Name   `json:"source"`
}

// Catalog is the interface all catalog adapters implement.
//
// Both resolve operations return (nil, nil) when the catalog has no match;
// "not found" is an expected outcome, never an error. Errors are reserved for
// malformed input and transport failures (*ErrCatalogUnavailable).
type Catalog interface {
	// Name returns the unique catalog identifier.
	Name() Name

	// RequiresAuth returns true if this catalog needs a bearer token.
	RequiresAuth() bool

	// ResolveByISRC looks up a recording by its ISRC code.
	ResolveByISRC(ctx context.Context, isrc string) (*Match, error)

	// ResolveByText searches the catalog by artist and title and returns the
	// top-ranked candidate per the catalog's own relevance ranking. Callers
	// are responsible for sanity-checking the result; catalog ranking may
	// return an unrelated top hit for obscure queries.
	ResolveByText(ctx context.Context, artist, title string) (*Match, error)
}

// ErrCatalogUnavailable indicates a transient failure (rate-limited, timeout,
// server error). The verification cascade logs it and falls through to the
// next tier.
type ErrCatalogUnavailable struct {
	Catalog    Name
	Cause      error
	RetryAfter time.Duration
}

func (e *ErrCatalogUnavailable) Error() string {
	return fmt.Sprintf("catalog %s unavailable: %v", e.Catalog, e.Cause)
}

func (e *ErrCatalogUnavailable) Unwrap() error { return e.Cause }

// ErrAuthRequired indicates the catalog needs a bearer token but none was
// supplied, or the supplied one is expired.
type ErrAuthRequired struct {
	Catalog Name
}

func (e *ErrAuthRequired) Error() string {
	return fmt.Sprintf("catalog %s: valid access token required", e.Catalog)
}
