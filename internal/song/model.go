// Package song defines the song data model and its SQLite-backed service.
package song

import (
	"encoding/json"
	"time"
)

// Status is the verification state of a song.
type Status string

// Verification statuses. The verify orchestrator is the only writer of
// these fields during a batch run.
const (
	StatusUnverified Status = "unverified"
	StatusChecking   Status = "checking"
	StatusVerified   Status = "verified"
	StatusFailed     Status = "failed"
)

// Source records which catalog tier confirmed a song.
type Source string

// Verification sources.
const (
	SourceMetadataCatalog Source = "metadata-catalog"
	SourcePreviewCatalog  Source = "preview-catalog"
	SourceStreaming       Source = "streaming-platform"
	SourceMulti           Source = "multi"
)

// Platform is an external streaming service a song can be matched to.
type Platform string

// Known platforms.
const (
	PlatformSpotify Platform = "spotify"
	PlatformYouTube Platform = "youtube"
)

// PlatformRef is a resolved track reference on one platform.
type PlatformRef struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// Song is a single track, possibly unverified or outright hallucinated,
// plus the verification results attached by the pipeline.
type Song struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Artist      string `json:"artist"`
	Album       string `json:"album,omitempty"`
	Year        int    `json:"year,omitempty"`
	DurationSec int    `json:"duration_sec,omitempty"`
	ISRC        string `json:"isrc,omitempty"`

	VerificationStatus Status `json:"verification_status"`
	VerificationSource Source `json:"verification_source,omitempty"`
	VerificationError  string `json:"verification_error,omitempty"`

	AlbumArtURL   string `json:"album_art_url,omitempty"`
	PreviewURL    string `json:"preview_url,omitempty"`
	PreviewSource string `json:"preview_source,omitempty"`

	// PlatformIDs holds at most one resolved reference per platform.
	PlatformIDs map[Platform]PlatformRef `json:"platform_ids,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Clone returns a deep copy. The orchestrator mutates copies so that a
// canceled batch leaves unprocessed input songs untouched.
func (s Song) Clone() Song {
	out := s
	if s.PlatformIDs != nil {
		out.PlatformIDs = make(map[Platform]PlatformRef, len(s.PlatformIDs))
		for k, v := range s.PlatformIDs {
			out.PlatformIDs[k] = v
		}
	}
	return out
}

// SetPlatformRef attaches a resolved reference for a platform.
func (s *Song) SetPlatformRef(p Platform, ref PlatformRef) {
	if s.PlatformIDs == nil {
		s.PlatformIDs = make(map[Platform]PlatformRef, 1)
	}
	s.PlatformIDs[p] = ref
}

// PlatformRef returns the resolved reference for a platform, if any.
func (s Song) PlatformRef(p Platform) (PlatformRef, bool) {
	ref, ok := s.PlatformIDs[p]
	return ref, ok
}

// HasIdentity reports whether both artist and title are present. Songs
// without identity are skipped by verification.
func (s Song) HasIdentity() bool {
	return s.Artist != "" && s.Title != ""
}

// marshalPlatformIDs serializes the platform map for storage.
func marshalPlatformIDs(m map[Platform]PlatformRef) string {
	if len(m) == 0 {
		return "{}"
	}
	data, err := json.Marshal(m)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// unmarshalPlatformIDs deserializes the platform map from storage.
func unmarshalPlatformIDs(s string) map[Platform]PlatformRef {
	if s == "" || s == "{}" {
		return nil
	}
	var m map[Platform]PlatformRef
	if err := json.Unmarshal([]byte(s), &m); err != nil {
		return nil
	}
	if len(m) == 0 {
		return nil
	}
	return m
}
