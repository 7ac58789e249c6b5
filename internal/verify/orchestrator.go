package verify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/event"
	"github.com/sydlexius/songproof/internal/resolve"
	"github.com/sydlexius/songproof/internal/song"
)

// defaultPacing is the wait between songs. Sequential processing plus this
// pause keeps the free catalogs comfortably inside their documented limits
// even before the per-catalog rate limiters kick in.
const defaultPacing = 100 * time.Millisecond

// StreamingCatalog is the authenticated catalog surface the cascade needs:
// ISRC lookup for opportunistic enrichment plus the search methods the
// resolver uses.
type StreamingCatalog interface {
	ResolveByISRC(ctx context.Context, token *oauth2.Token, isrc string) (*catalog.Match, error)
	resolve.Searcher
}

// Deps collects the orchestrator's collaborators.
type Deps struct {
	Metadata  catalog.Catalog // free metadata catalog, tier A
	Preview   catalog.Catalog // free preview catalog, tier B
	Streaming StreamingCatalog
	Resolver  *resolve.Resolver
	Bus       *event.Bus
	Pacing    time.Duration // zero selects the default
	Logger    *slog.Logger
}

// Orchestrator runs songs through the verification cascade one at a time.
// Sequential processing is deliberate: the free catalogs are rate-limited
// per client IP, and a progress bar over an ordered list is the product.
type Orchestrator struct {
	metadata  catalog.Catalog
	preview   catalog.Catalog
	streaming StreamingCatalog
	resolver  *resolve.Resolver
	bus       *event.Bus
	pacing    time.Duration
	logger    *slog.Logger
}

// NewOrchestrator creates an orchestrator from its dependencies.
func NewOrchestrator(deps Deps) *Orchestrator {
	pacing := deps.Pacing
	if pacing == 0 {
		pacing = defaultPacing
	}
	return &Orchestrator{
		metadata:  deps.Metadata,
		preview:   deps.Preview,
		streaming: deps.Streaming,
		resolver:  deps.Resolver,
		bus:       deps.Bus,
		pacing:    pacing,
		logger:    deps.Logger.With(slog.String("component", "verify")),
	}
}

// VerifyBatch verifies songs in order and returns the updated list plus a
// summary. Inputs are never mutated. On cancellation the returned error is a
// *CanceledError and the slice holds results for processed songs and the
// original values for the rest.
func (o *Orchestrator) VerifyBatch(ctx context.Context, songs []song.Song, token *oauth2.Token, onProgress ProgressFunc) ([]song.Song, Summary, error) {
	start := time.Now()
	out := make([]song.Song, len(songs))
	copy(out, songs)

	summary := Summary{Total: len(songs)}

	for i := range songs {
		if err := ctx.Err(); err != nil {
			summary.Duration = time.Since(start)
			o.publishCanceled(i, len(songs))
			return out, summary, &CanceledError{Completed: i, Total: len(songs)}
		}

		s := songs[i].Clone()

		if !s.HasIdentity() {
			summary.Skipped++
			if s.VerificationStatus == "" {
				s.VerificationStatus = song.StatusUnverified
			}
			out[i] = s
			o.logger.Debug("skipping song without identity", slog.String("id", s.ID))
		} else {
			verified := o.verifyOne(ctx, &s, token)
			if verified {
				summary.Verified++
			} else {
				summary.Failed++
				summary.FailedSongs = append(summary.FailedSongs, FailedSong{
					Title:  s.Title,
					Artist: s.Artist,
					Error:  s.VerificationError,
				})
				o.bus.Publish(event.Event{
					Type: event.SongFailed,
					Data: map[string]any{
						"song_id": s.ID,
						"title":   s.Title,
						"artist":  s.Artist,
						"error":   s.VerificationError,
					},
				})
			}
			out[i] = s
		}

		if onProgress != nil {
			onProgress(Progress{
				Total:       len(songs),
				Current:     i + 1,
				Verified:    summary.Verified,
				Failed:      summary.Failed,
				CurrentSong: displayName(s),
			})
		}

		if i < len(songs)-1 {
			select {
			case <-ctx.Done():
				// Loop top records the cancellation.
			case <-time.After(o.pacing):
			}
		}
	}

	summary.Duration = time.Since(start)
	o.bus.Publish(event.Event{
		Type: event.BatchCompleted,
		Data: map[string]any{
			"total":    summary.Total,
			"verified": summary.Verified,
			"failed":   summary.Failed,
			"skipped":  summary.Skipped,
		},
	})
	return out, summary, nil
}

// verifyOne walks the cascade for a single song, mutating it in place, and
// reports whether it verified. All catalog errors are contained here: a
// failing tier is recorded and the next one tried.
func (o *Orchestrator) verifyOne(ctx context.Context, s *song.Song, token *oauth2.Token) bool {
	s.VerificationStatus = song.StatusChecking
	s.VerificationError = ""

	var reasons []string

	// Tier A: free metadata catalog. A curator-supplied ISRC is an exact
	// identifier, so it is tried before any text search.
	if s.ISRC != "" {
		match, err := o.metadata.ResolveByISRC(ctx, s.ISRC)
		switch {
		case err != nil:
			o.logger.Warn("metadata ISRC lookup failed",
				slog.String("song", s.ID), slog.Any("error", err))
			reasons = append(reasons, fmt.Sprintf("%s ISRC lookup: %v", o.metadata.Name().DisplayName(), err))
		case match != nil:
			o.applyMatch(s, match, song.SourceMetadataCatalog)
			o.enrich(ctx, s, token)
			return true
		}
	}
	match, err := o.metadata.ResolveByText(ctx, s.Artist, s.Title)
	switch {
	case err != nil:
		o.logger.Warn("metadata catalog lookup failed",
			slog.String("song", s.ID), slog.Any("error", err))
		reasons = append(reasons, fmt.Sprintf("%s: %v", o.metadata.Name().DisplayName(), err))
	case match != nil && plausibleMatch(s, match):
		o.applyMatch(s, match, song.SourceMetadataCatalog)
		o.enrich(ctx, s, token)
		return true
	case match != nil:
		reasons = append(reasons, fmt.Sprintf("%s top hit %q by %q does not resemble the song",
			o.metadata.Name().DisplayName(), match.Title, match.Artist))
	default:
		reasons = append(reasons, fmt.Sprintf("no match in %s", o.metadata.Name().DisplayName()))
	}

	// Tier B: free preview catalog.
	match, err = o.preview.ResolveByText(ctx, s.Artist, s.Title)
	switch {
	case err != nil:
		o.logger.Warn("preview catalog lookup failed",
			slog.String("song", s.ID), slog.Any("error", err))
		reasons = append(reasons, fmt.Sprintf("%s: %v", o.preview.Name().DisplayName(), err))
	case match != nil && plausibleMatch(s, match):
		o.applyMatch(s, match, song.SourcePreviewCatalog)
		return true
	case match != nil:
		reasons = append(reasons, fmt.Sprintf("%s top hit %q by %q does not resemble the song",
			o.preview.Name().DisplayName(), match.Title, match.Artist))
	default:
		reasons = append(reasons, fmt.Sprintf("no match in %s", o.preview.Name().DisplayName()))
	}

	// Tier C: authenticated streaming search, only with a live token.
	if token.Valid() {
		res, err := o.resolver.ResolveForPlatform(ctx, *s, song.PlatformSpotify, token)
		switch {
		case err != nil:
			var authErr *catalog.ErrAuthRequired
			if errors.As(err, &authErr) {
				reasons = append(reasons, "streaming search skipped: authentication required")
			} else {
				o.logger.Warn("streaming resolution failed",
					slog.String("song", s.ID), slog.Any("error", err))
				reasons = append(reasons, fmt.Sprintf("streaming search: %v", err))
			}
		case res.Tier != resolve.TierFailed:
			s.VerificationStatus = song.StatusVerified
			s.VerificationSource = song.SourceStreaming
			s.SetPlatformRef(song.PlatformSpotify, song.PlatformRef{
				ID:  res.PlatformID,
				URL: res.PlatformURL,
			})
			if s.ISRC == "" {
				s.ISRC = res.ISRC
			}
			// Best-effort preview clip via the accepted candidate's ISRC.
			// The text search against the preview catalog already missed, so
			// the ISRC is the only lead worth spending.
			if s.PreviewURL == "" && s.ISRC != "" {
				if pm, perr := o.preview.ResolveByISRC(ctx, s.ISRC); perr != nil {
					o.logger.Debug("preview lookup after streaming match failed",
						slog.String("song", s.ID), slog.Any("error", perr))
				} else if pm != nil && pm.PreviewURL != "" {
					s.PreviewURL = pm.PreviewURL
					s.PreviewSource = string(pm.Source)
					if s.AlbumArtURL == "" && pm.ArtworkURL != "" {
						s.AlbumArtURL = pm.ArtworkURL
					}
				}
			}
			return true
		default:
			reasons = append(reasons, res.Reason)
		}
	} else {
		reasons = append(reasons, "streaming search skipped: authentication required")
	}

	// Tier D: all catalogs exhausted.
	s.VerificationStatus = song.StatusFailed
	s.VerificationSource = song.SourceMulti
	s.VerificationError = strings.Join(reasons, "; ")
	return false
}

// matchFloor is the minimum title and artist similarity a free catalog's
// top-ranked hit must clear. Looser than the resolver's thresholds: this is
// a guard against wholly unrelated hits, not a ranking.
const matchFloor = 0.6

// plausibleMatch reports whether a catalog's top hit roughly resembles the
// song. Catalog relevance ranking returns *something* for almost any query;
// a hit that resembles neither title nor artist must not verify the song.
func plausibleMatch(s *song.Song, m *catalog.Match) bool {
	return resolve.Similarity(m.Title, s.Title) >= matchFloor &&
		resolve.Similarity(m.Artist, s.Artist) >= matchFloor
}

// applyMatch marks a song verified and fills in the fields the catalog
// supplied. Existing values the curator entered are kept.
func (o *Orchestrator) applyMatch(s *song.Song, m *catalog.Match, source song.Source) {
	s.VerificationStatus = song.StatusVerified
	s.VerificationSource = source
	s.VerificationError = ""
	if s.ISRC == "" && m.ISRC != "" {
		s.ISRC = m.ISRC
	}
	if s.Album == "" && m.Album != "" {
		s.Album = m.Album
	}
	if s.Year == 0 && m.Year != 0 {
		s.Year = m.Year
	}
	if s.DurationSec == 0 && m.DurationSec != 0 {
		s.DurationSec = m.DurationSec
	}
	if m.PreviewURL != "" {
		s.PreviewURL = m.PreviewURL
		s.PreviewSource = string(m.Source)
	}
	if m.ArtworkURL != "" && s.AlbumArtURL == "" {
		s.AlbumArtURL = m.ArtworkURL
	}
}

// enrich opportunistically adds a streaming platform ref (by ISRC, when a
// live token is at hand) and a preview clip to an already-verified song.
// Enrichment failures are logged and ignored; a verified song never
// downgrades.
func (o *Orchestrator) enrich(ctx context.Context, s *song.Song, token *oauth2.Token) {
	if s.ISRC != "" && token.Valid() {
		if _, ok := s.PlatformRef(song.PlatformSpotify); !ok {
			match, err := o.streaming.ResolveByISRC(ctx, token, s.ISRC)
			if err != nil {
				o.logger.Debug("streaming ISRC enrichment failed",
					slog.String("song", s.ID), slog.Any("error", err))
			} else if match != nil {
				s.SetPlatformRef(song.PlatformSpotify, song.PlatformRef{ID: match.ID, URL: match.URL})
			}
		}
	}

	if s.PreviewURL != "" {
		return
	}
	var match *catalog.Match
	var err error
	if s.ISRC != "" {
		match, err = o.preview.ResolveByISRC(ctx, s.ISRC)
	} else {
		match, err = o.preview.ResolveByText(ctx, s.Artist, s.Title)
	}
	if err != nil {
		o.logger.Debug("preview enrichment failed",
			slog.String("song", s.ID), slog.Any("error", err))
		return
	}
	if match != nil && match.PreviewURL != "" {
		s.PreviewURL = match.PreviewURL
		s.PreviewSource = string(match.Source)
		if s.AlbumArtURL == "" && match.ArtworkURL != "" {
			s.AlbumArtURL = match.ArtworkURL
		}
	}
}

func (o *Orchestrator) publishCanceled(completed, total int) {
	o.bus.Publish(event.Event{
		Type: event.BatchCanceled,
		Data: map[string]any{
			"completed": completed,
			"total":     total,
		},
	})
}

func displayName(s song.Song) string {
	switch {
	case s.Artist != "" && s.Title != "":
		return s.Artist + " - " + s.Title
	case s.Title != "":
		return s.Title
	default:
		return s.Artist
	}
}
