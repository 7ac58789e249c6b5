package api

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/version"
)

func (r *Router) handleHealth(w http.ResponseWriter, req *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": version.Version,
		"commit":  version.Commit,
		"time":    time.Now().UTC().Format(time.RFC3339),
	})
}

// catalogInfo is one entry of the capability listing.
type catalogInfo struct {
	Name        catalog.Name       `json:"name"`
	DisplayName string             `json:"display_name"`
	Capability  catalog.Capability `json:"capability"`
	Registered  bool               `json:"registered"`
}

func (r *Router) handleListCatalogs(w http.ResponseWriter, req *http.Request) {
	caps := catalog.Capabilities()
	out := make([]catalogInfo, 0, len(caps))
	for _, name := range catalog.AllNames() {
		out = append(out, catalogInfo{
			Name:        name,
			DisplayName: name.DisplayName(),
			Capability:  caps[name],
			Registered:  name == catalog.NameSpotify || r.registry.Get(name) != nil,
		})
	}
	writeJSON(w, http.StatusOK, out)
}

// bearerToken builds an access token from the Authorization header. Returns
// nil when the header is absent; the pipeline treats a nil token as "free
// catalogs only".
func bearerToken(req *http.Request) *oauth2.Token {
	h := req.Header.Get("Authorization")
	if h == "" {
		return nil
	}
	raw := strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	if raw == "" {
		return nil
	}
	return &oauth2.Token{AccessToken: raw}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, "encode error", http.StatusInternalServerError)
	}
}
