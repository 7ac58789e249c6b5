package api

import (
	"net/http"

	"github.com/sydlexius/songproof/internal/song"
)

// handleHydratePreviews backfills preview clips and artwork for verified
// songs that are missing them, in one batched pass against the preview
// catalog.
func (r *Router) handleHydratePreviews(w http.ResponseWriter, req *http.Request) {
	verified, err := r.songService.ListByStatus(req.Context(), song.StatusVerified)
	if err != nil {
		r.logger.Error("failed to list verified songs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	missing := make([]song.Song, 0, len(verified))
	for _, s := range verified {
		if s.PreviewURL == "" {
			missing = append(missing, s)
		}
	}
	if len(missing) == 0 {
		writeJSON(w, http.StatusOK, map[string]int{"hydrated": 0})
		return
	}

	updates, err := r.previews.HydratePreviews(req.Context(), missing)
	if err != nil {
		r.logger.Error("preview hydration failed", "error", err)
		writeError(w, http.StatusBadGateway, "preview catalog unavailable")
		return
	}

	byID := make(map[string]*song.Song, len(missing))
	for i := range missing {
		byID[missing[i].ID] = &missing[i]
	}
	var changed []song.Song
	for _, up := range updates {
		s, ok := byID[up.SongID]
		if !ok {
			continue
		}
		s.PreviewURL = up.PreviewURL
		s.PreviewSource = string(r.previews.Name())
		if s.AlbumArtURL == "" && up.ArtworkURL != "" {
			s.AlbumArtURL = up.ArtworkURL
		}
		changed = append(changed, *s)
	}

	if len(changed) > 0 {
		if err := r.songService.UpdateBatch(req.Context(), changed); err != nil {
			r.logger.Error("failed to persist hydrated previews", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]int{"hydrated": len(changed)})
}
