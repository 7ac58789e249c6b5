package api

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/catalog/deezer"
	"github.com/sydlexius/songproof/internal/database"
	"github.com/sydlexius/songproof/internal/event"
	"github.com/sydlexius/songproof/internal/report"
	"github.com/sydlexius/songproof/internal/resolve"
	"github.com/sydlexius/songproof/internal/song"
	"github.com/sydlexius/songproof/internal/verify"
)

// stubCatalog answers every text lookup with a fixed match.
type stubCatalog struct {
	name  catalog.Name
	match *catalog.Match
}

func (s *stubCatalog) Name() catalog.Name { return s.name }
func (s *stubCatalog) RequiresAuth() bool { return false }
func (s *stubCatalog) ResolveByISRC(context.Context, string) (*catalog.Match, error) {
	return nil, nil
}
func (s *stubCatalog) ResolveByText(context.Context, string, string) (*catalog.Match, error) {
	return s.match, nil
}

// stubStreaming serves scripted search results.
type stubStreaming struct {
	candidates []catalog.Match
}

func (s *stubStreaming) ResolveByISRC(context.Context, *oauth2.Token, string) (*catalog.Match, error) {
	return nil, nil
}
func (s *stubStreaming) ResolveByText(context.Context, *oauth2.Token, string, string) (*catalog.Match, error) {
	return nil, nil
}
func (s *stubStreaming) SearchTracks(context.Context, *oauth2.Token, string, int) ([]catalog.Match, error) {
	return s.candidates, nil
}

// stubHydrator answers batch preview hydration with one update per song
// that has an identity.
type stubHydrator struct{}

func (stubHydrator) Name() catalog.Name { return catalog.NameDeezer }

func (stubHydrator) HydratePreviews(_ context.Context, songs []song.Song) ([]deezer.PreviewUpdate, error) {
	var out []deezer.PreviewUpdate
	for _, s := range songs {
		if !s.HasIdentity() {
			continue
		}
		out = append(out, deezer.PreviewUpdate{
			SongID:     s.ID,
			PreviewURL: "https://cdn.example/" + s.ID + ".mp3",
			ArtworkURL: "https://cdn.example/" + s.ID + ".jpg",
		})
	}
	return out, nil
}

// testRouter creates a Router over a temp DB with stubbed catalogs.
func testRouter(t *testing.T, streaming *stubStreaming) (*Router, *song.Service) {
	t.Helper()

	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("opening test db: %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("running migrations: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	if streaming == nil {
		streaming = &stubStreaming{}
	}

	songSvc := song.NewService(db)
	resolver := resolve.NewResolver(streaming, 0, logger)
	bus := event.NewBus(logger, 16)
	registry := catalog.NewRegistry()
	metadata := &stubCatalog{name: catalog.NameMusicBrainz}
	preview := &stubCatalog{name: catalog.NameDeezer}
	registry.Register(metadata)
	registry.Register(preview)

	orch := verify.NewOrchestrator(verify.Deps{
		Metadata:  metadata,
		Preview:   preview,
		Streaming: streaming,
		Resolver:  resolver,
		Bus:       bus,
		Pacing:    time.Millisecond,
		Logger:    logger,
	})

	r := NewRouter(RouterDeps{
		SongService:   songSvc,
		VerifyService: verify.NewService(orch, songSvc, logger),
		Resolver:      resolver,
		LinkCache:     resolve.NewLinkCache(),
		Registry:      registry,
		Previews:      stubHydrator{},
		Bus:           bus,
		Logger:        logger,
	})
	return r, songSvc
}

func addTestSong(t *testing.T, svc *song.Service, title, artist string) *song.Song {
	t.Helper()
	s := &song.Song{Title: title, Artist: artist}
	if err := svc.Create(context.Background(), s); err != nil {
		t.Fatalf("creating test song: %v", err)
	}
	return s
}

func TestHealthEndpoint(t *testing.T) {
	r, _ := testRouter(t, nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("body = %v", body)
	}
}

func TestSongCRUD(t *testing.T) {
	r, _ := testRouter(t, nil)
	h := r.Handler()

	// Create.
	payload := `{"title":"Mr. Brightside","artist":"The Killers"}`
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/songs", bytes.NewBufferString(payload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d: %s", rec.Code, rec.Body)
	}
	var created song.Song
	if err := json.NewDecoder(rec.Body).Decode(&created); err != nil {
		t.Fatalf("decoding created song: %v", err)
	}
	if created.ID == "" || created.VerificationStatus != song.StatusUnverified {
		t.Fatalf("created = %+v", created)
	}

	// Get.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/songs/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("get status = %d", rec.Code)
	}

	// Update.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/api/v1/songs/"+created.ID,
		bytes.NewBufferString(`{"title":"Mr. Brightside","artist":"The Killers","album":"Hot Fuss"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("update status = %d: %s", rec.Code, rec.Body)
	}

	// List.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/songs", nil))
	var listed []song.Song
	if err := json.NewDecoder(rec.Body).Decode(&listed); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(listed) != 1 || listed[0].Album != "Hot Fuss" {
		t.Fatalf("listed = %+v", listed)
	}

	// Delete.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/v1/songs/"+created.ID, nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rec.Code)
	}
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/songs/"+created.ID, nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("get after delete status = %d", rec.Code)
	}
}

func TestImportSongs(t *testing.T) {
	r, _ := testRouter(t, nil)
	payload := `[{"title":"One","artist":"A"},{"title":"Two","artist":"B"},{"title":""}]`
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/songs/import", bytes.NewBufferString(payload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body struct {
		Imported int `json:"imported"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body.Imported != 3 {
		t.Errorf("imported = %d", body.Imported)
	}
}

func TestVerifyLifecycle(t *testing.T) {
	r, songs := testRouter(t, nil)
	h := r.Handler()

	// No run yet.
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verify/status", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status before run = %d", rec.Code)
	}

	addTestSong(t, songs, "Fabricated Song", "No Such Band")

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/verify", nil))
	if rec.Code != http.StatusAccepted {
		t.Fatalf("start status = %d: %s", rec.Code, rec.Body)
	}

	deadline := time.Now().Add(5 * time.Second)
	var run verify.RunResult
	for time.Now().Before(deadline) {
		rec = httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/verify/status", nil))
		if err := json.NewDecoder(rec.Body).Decode(&run); err != nil {
			t.Fatalf("decoding status: %v", err)
		}
		if run.Status != "running" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	if run.Status != "completed" {
		t.Fatalf("run = %+v", run)
	}
	if run.Summary == nil || run.Summary.Failed != 1 {
		t.Fatalf("summary = %+v", run.Summary)
	}

	// Cancel with nothing running.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/verify/cancel", nil))
	if rec.Code != http.StatusConflict {
		t.Errorf("cancel status = %d", rec.Code)
	}
}

func TestExportReport(t *testing.T) {
	streaming := &stubStreaming{candidates: []catalog.Match{{
		ID: "sp1", Title: "Mr. Brightside", Artist: "The Killers",
		URL: "https://open.spotify.com/track/sp1", Source: catalog.NameSpotify,
	}}}
	r, songs := testRouter(t, streaming)
	h := r.Handler()

	verified := addTestSong(t, songs, "Mr. Brightside", "The Killers")
	verified.VerificationStatus = song.StatusVerified
	if err := songs.Update(context.Background(), verified); err != nil {
		t.Fatalf("marking verified: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/v1/export/spotify", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var rep report.ExportReport
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decoding report: %v", err)
	}
	if rep.Total != 1 || len(rep.Succeeded) != 1 || rep.SuccessRate != 1.0 {
		t.Fatalf("report = %+v", rep)
	}

	// The resolved ref was persisted: the next export is a direct hit.
	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/api/v1/export/spotify", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	h.ServeHTTP(rec, req)
	if err := json.NewDecoder(rec.Body).Decode(&rep); err != nil {
		t.Fatalf("decoding second report: %v", err)
	}
	if rep.TierBreakdown.Direct != 1 {
		t.Errorf("second export breakdown = %+v", rep.TierBreakdown)
	}

	// Unknown platform.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/export/tidal", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown platform status = %d", rec.Code)
	}
}

func TestSongLinkManualSearchFallback(t *testing.T) {
	r, songs := testRouter(t, nil) // no candidates: resolution fails
	h := r.Handler()

	s := addTestSong(t, songs, "Fabricated Song", "No Such Band")

	req := httptest.NewRequest(http.MethodGet, "/api/v1/songs/"+s.ID+"/link?platform=spotify", nil)
	req.Header.Set("Authorization", "Bearer test-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}

	var link resolve.LinkResult
	if err := json.NewDecoder(rec.Body).Decode(&link); err != nil {
		t.Fatalf("decoding link: %v", err)
	}
	if !link.IsManualSearch || link.URL == "" {
		t.Errorf("link = %+v", link)
	}

	got, err := songs.Get(context.Background(), s.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if _, ok := got.PlatformRef(song.PlatformSpotify); ok {
		t.Error("manual search result must not be persisted")
	}
}

func TestHydratePreviews(t *testing.T) {
	r, songs := testRouter(t, nil)
	h := r.Handler()

	verified := addTestSong(t, songs, "Mr. Brightside", "The Killers")
	verified.VerificationStatus = song.StatusVerified
	if err := songs.Update(context.Background(), verified); err != nil {
		t.Fatalf("marking verified: %v", err)
	}
	// Unverified songs are not hydrated.
	addTestSong(t, songs, "Other Song", "Other Band")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/previews/hydrate", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body)
	}
	var body map[string]int
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["hydrated"] != 1 {
		t.Errorf("hydrated = %d", body["hydrated"])
	}

	got, err := songs.Get(context.Background(), verified.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.PreviewURL == "" || got.AlbumArtURL == "" {
		t.Errorf("hydrated song = %+v", got)
	}

	// A second pass finds nothing left to do.
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/previews/hydrate", nil))
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if body["hydrated"] != 0 {
		t.Errorf("second pass hydrated = %d", body["hydrated"])
	}
}

func TestListCatalogs(t *testing.T) {
	r, _ := testRouter(t, nil)
	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/catalogs", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var infos []catalogInfo
	if err := json.NewDecoder(rec.Body).Decode(&infos); err != nil {
		t.Fatalf("decoding catalogs: %v", err)
	}
	if len(infos) != 3 {
		t.Fatalf("infos = %+v", infos)
	}
	var sawAuth bool
	for _, info := range infos {
		if info.Capability.Tier == catalog.TierAuth {
			sawAuth = true
		}
	}
	if !sawAuth {
		t.Error("expected an auth-tier catalog in the listing")
	}
}
