package api

import (
	"encoding/json"
	"net/http"

	"github.com/sydlexius/songproof/internal/song"
)

func (r *Router) handleListSongs(w http.ResponseWriter, req *http.Request) {
	var (
		songs []song.Song
		err   error
	)
	if status := req.URL.Query().Get("status"); status != "" {
		songs, err = r.songService.ListByStatus(req.Context(), song.Status(status))
	} else {
		songs, err = r.songService.List(req.Context())
	}
	if err != nil {
		r.logger.Error("failed to list songs", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, songs)
}

func (r *Router) handleGetSong(w http.ResponseWriter, req *http.Request) {
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
	writeJSON(w, http.StatusOK, s)
}

func (r *Router) handleCreateSong(w http.ResponseWriter, req *http.Request) {
	var s song.Song
	if err := json.NewDecoder(req.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := r.songService.Create(req.Context(), &s); err != nil {
		r.logger.Error("failed to create song", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, s)
}

// handleImportSongs ingests a whole playlist at once. Songs arrive exactly
// as the curator's tool produced them, fabricated entries included; nothing
// is validated beyond JSON shape, because flagging fabrications is the
// verify pipeline's job.
func (r *Router) handleImportSongs(w http.ResponseWriter, req *http.Request) {
	var songs []song.Song
	if err := json.NewDecoder(req.Body).Decode(&songs); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	created := make([]song.Song, 0, len(songs))
	for i := range songs {
		if err := r.songService.Create(req.Context(), &songs[i]); err != nil {
			r.logger.Error("failed to import song", "error", err, "title", songs[i].Title)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		created = append(created, songs[i])
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"imported": len(created),
		"songs":    created,
	})
}

func (r *Router) handleUpdateSong(w http.ResponseWriter, req *http.Request) {
	id := req.PathValue("id")
	existing, err := r.songService.Get(req.Context(), id)
	if err != nil {
		r.logger.Error("failed to get song", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if existing == nil {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}

	var s song.Song
	if err := json.NewDecoder(req.Body).Decode(&s); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.ID = id
	if err := r.songService.Update(req.Context(), &s); err != nil {
		r.logger.Error("failed to update song", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (r *Router) handleDeleteSong(w http.ResponseWriter, req *http.Request) {
	if err := r.songService.Delete(req.Context(), req.PathValue("id")); err != nil {
		r.logger.Error("failed to delete song", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
