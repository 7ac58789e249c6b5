package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/event"
	"github.com/sydlexius/songproof/internal/report"
	"github.com/sydlexius/songproof/internal/resolve"
	"github.com/sydlexius/songproof/internal/song"
)

func parsePlatform(raw string) (song.Platform, bool) {
	switch song.Platform(raw) {
	case song.PlatformSpotify:
		return song.PlatformSpotify, true
	case song.PlatformYouTube:
		return song.PlatformYouTube, true
	default:
		return "", false
	}
}

// handleExport resolves every verified song to the target platform and
// returns the export report. Successfully resolved platform refs are
// persisted so the next export hits the direct tier.
func (r *Router) handleExport(w http.ResponseWriter, req *http.Request) {
	platform, ok := parsePlatform(req.PathValue("platform"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown platform")
		return
	}

	songs, err := r.songService.ListByStatus(req.Context(), song.StatusVerified)
	if err != nil {
		r.logger.Error("failed to list verified songs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	token := bearerToken(req)
	start := time.Now()
	results := make([]resolve.Result, 0, len(songs))
	var updated []song.Song

	for _, s := range songs {
		res, err := r.resolver.ResolveForPlatform(req.Context(), s, platform, token)
		switch {
		case errors.Is(err, resolve.ErrMalformedSong):
			results = append(results, resolve.Result{
				Song: s, Platform: platform, Tier: resolve.TierFailed,
				Reason: "song has neither artist nor title",
			})
			continue
		case err != nil:
			var authErr *catalog.ErrAuthRequired
			if errors.As(err, &authErr) {
				writeError(w, http.StatusUnauthorized, authErr.Error())
				return
			}
			r.logger.Error("platform resolution failed", "error", err, "song", s.ID)
			writeError(w, http.StatusBadGateway, "platform resolution failed")
			return
		}

		results = append(results, *res)
		if res.Tier != resolve.TierFailed && res.Tier != resolve.TierDirect {
			withRef := s.Clone()
			withRef.SetPlatformRef(platform, song.PlatformRef{ID: res.PlatformID, URL: res.PlatformURL})
			updated = append(updated, withRef)
		}
	}

	if len(updated) > 0 {
		if err := r.songService.UpdateBatch(req.Context(), updated); err != nil {
			r.logger.Error("failed to persist resolved refs", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}

	rep := report.Build(platform, results, time.Since(start))
	r.bus.Publish(event.Event{
		Type: event.ExportResolved,
		Data: map[string]any{
			"platform":  string(platform),
			"total":     rep.Total,
			"succeeded": len(rep.Succeeded),
			"failed":    len(rep.Failed),
		},
	})
	writeJSON(w, http.StatusOK, rep)
}

// handleSongLink returns a platform link for one song, memoized in the
// session link cache. Unresolvable songs get a manual search URL instead of
// an error.
func (r *Router) handleSongLink(w http.ResponseWriter, req *http.Request) {
	platform, ok := parsePlatform(req.URL.Query().Get("platform"))
	if !ok {
		writeError(w, http.StatusBadRequest, "unknown platform")
		return
	}

	s, err := r.songService.Get(req.Context(), req.PathValue("id"))
	if err != nil {
		r.logger.Error("failed to get song", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if s == nil {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}

	link, withRef, err := r.resolver.CachedLink(req.Context(), r.linkCache, *s, platform, bearerToken(req))
	switch {
	case errors.Is(err, resolve.ErrMalformedSong):
		writeError(w, http.StatusUnprocessableEntity, "song has neither artist nor title")
		return
	case err != nil:
		var authErr *catalog.ErrAuthRequired
		if errors.As(err, &authErr) {
			writeError(w, http.StatusUnauthorized, authErr.Error())
			return
		}
		r.logger.Error("link resolution failed", "error", err, "song", s.ID)
		writeError(w, http.StatusBadGateway, "link resolution failed")
		return
	}

	// Persist a newly confirmed ref so future sessions skip the search.
	if _, had := s.PlatformRef(platform); !had {
		if _, nowHas := withRef.PlatformRef(platform); nowHas {
			if err := r.songService.Update(req.Context(), &withRef); err != nil {
				r.logger.Warn("failed to persist resolved ref", "error", err, "song", s.ID)
			}
		}
	}

	writeJSON(w, http.StatusOK, link)
}
