package api

import (
	"net/http"
)

// handleStartVerify kicks off an async verification run over every stored
// song. A bearer token, when supplied, unlocks the streaming catalog tier;
// without one the run still proceeds on the free catalogs.
func (r *Router) handleStartVerify(w http.ResponseWriter, req *http.Request) {
	run, err := r.verifyService.Run(req.Context(), bearerToken(req))
	if err != nil {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, run)
}

func (r *Router) handleVerifyStatus(w http.ResponseWriter, req *http.Request) {
	st := r.verifyService.Status()
	if st == nil {
		writeError(w, http.StatusNotFound, "no verification run yet")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (r *Router) handleCancelVerify(w http.ResponseWriter, req *http.Request) {
	if !r.verifyService.Cancel() {
		writeError(w, http.StatusConflict, "no verification run in progress")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "canceling"})
}
