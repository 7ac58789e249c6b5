// Package api exposes the HTTP surface of the verification service.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sydlexius/songproof/internal/api/middleware"
	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/catalog/deezer"
	"github.com/sydlexius/songproof/internal/event"
	"github.com/sydlexius/songproof/internal/resolve"
	"github.com/sydlexius/songproof/internal/song"
	"github.com/sydlexius/songproof/internal/verify"
)

// PreviewHydrator is the batch preview-backfill surface of the preview
// catalog.
type PreviewHydrator interface {
	Name() catalog.Name
	HydratePreviews(ctx context.Context, songs []song.Song) ([]deezer.PreviewUpdate, error)
}

// RouterDeps bundles all dependencies needed by the HTTP router.
type RouterDeps struct {
	SongService   *song.Service
	VerifyService *verify.Service
	Resolver      *resolve.Resolver
	LinkCache     *resolve.LinkCache
	Registry      *catalog.Registry
	Previews      PreviewHydrator
	Bus           *event.Bus
	Logger        *slog.Logger
	BasePath      string
}

// Router sets up all HTTP routes for the application.
type Router struct {
	songService   *song.Service
	verifyService *verify.Service
	resolver      *resolve.Resolver
	linkCache     *resolve.LinkCache
	registry      *catalog.Registry
	previews      PreviewHydrator
	bus           *event.Bus
	logger        *slog.Logger
	basePath      string
}

// NewRouter creates a new Router with all routes configured.
func NewRouter(deps RouterDeps) *Router {
	return &Router{
		songService:   deps.SongService,
		verifyService: deps.VerifyService,
		resolver:      deps.Resolver,
		linkCache:     deps.LinkCache,
		registry:      deps.Registry,
		previews:      deps.Previews,
		bus:           deps.Bus,
		logger:        deps.Logger,
		basePath:      deps.BasePath,
	}
}

// Handler returns the fully configured HTTP handler with middleware applied.
func (r *Router) Handler() http.Handler {
	runLimiter := middleware.NewRunRateLimiter()
	mux := http.NewServeMux()
	bp := r.basePath

	mux.HandleFunc("GET "+bp+"/api/v1/health", r.handleHealth)
	mux.HandleFunc("GET "+bp+"/api/v1/catalogs", r.handleListCatalogs)

	mux.HandleFunc("GET "+bp+"/api/v1/songs", r.handleListSongs)
	mux.HandleFunc("POST "+bp+"/api/v1/songs", r.handleCreateSong)
	mux.HandleFunc("POST "+bp+"/api/v1/songs/import", r.handleImportSongs)
	mux.HandleFunc("GET "+bp+"/api/v1/songs/{id}", r.handleGetSong)
	mux.HandleFunc("PUT "+bp+"/api/v1/songs/{id}", r.handleUpdateSong)
	mux.HandleFunc("DELETE "+bp+"/api/v1/songs/{id}", r.handleDeleteSong)
	mux.HandleFunc("GET "+bp+"/api/v1/songs/{id}/link", r.handleSongLink)

	// Runs fan out to external catalogs, so they get their own limiter.
	mux.Handle("POST "+bp+"/api/v1/verify", runLimiter.Middleware(http.HandlerFunc(r.handleStartVerify)))
	mux.HandleFunc("GET "+bp+"/api/v1/verify/status", r.handleVerifyStatus)
	mux.HandleFunc("POST "+bp+"/api/v1/verify/cancel", r.handleCancelVerify)
	mux.Handle("POST "+bp+"/api/v1/export/{platform}", runLimiter.Middleware(http.HandlerFunc(r.handleExport)))
	mux.Handle("POST "+bp+"/api/v1/previews/hydrate", runLimiter.Middleware(http.HandlerFunc(r.handleHydratePreviews)))

	return middleware.Logging(r.logger)(mux)
}
