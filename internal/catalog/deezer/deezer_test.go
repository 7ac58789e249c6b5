package deezer

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/song"
)

func loadFixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile("testdata/" + name)
	if err != nil {
		t.Fatalf("loading fixture %s: %v", name, err)
	}
	return data
}

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/search/track":
			q := r.URL.Query().Get("q")
			if strings.Contains(q, "no-such-song") {
				w.Write([]byte(`{"data":[],"total":0}`))
				return
			}
			w.Write(loadFixture(t, "search_brightside.json"))

		case strings.HasPrefix(r.URL.Path, "/track/isrc:"):
			code := strings.TrimPrefix(r.URL.Path, "/track/isrc:")
			if code == "ZZZZZ9999999" {
				// Deezer answers 200 with an embedded error object
				w.Write([]byte(`{"error":{"type":"DataException","message":"no data","code":800}}`))
				return
			}
			w.Write(loadFixture(t, "track_isrc.json"))

		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
}

func newTestAdapter(t *testing.T, baseURL string) *Adapter {
	t.Helper()
	limiter := catalog.NewRateLimiterMap()
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
	return NewWithBaseURL(limiter, logger, baseURL)
}

func TestName(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if a.Name() != catalog.NameDeezer {
		t.Errorf("expected %q, got %q", catalog.NameDeezer, a.Name())
	}
	if a.RequiresAuth() {
		t.Error("deezer should not require auth")
	}
}

func TestResolveByText(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	match, err := a.ResolveByText(context.Background(), "The Killers", "Mr. Brightside")
	if err != nil {
		t.Fatalf("ResolveByText: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ID != "3129406" {
		t.Errorf("expected ID 3129406, got %q", match.ID)
	}
	if match.PreviewURL == "" {
		t.Error("expected preview URL")
	}
	if match.ArtworkURL != "https://cdn-images.dzcdn.net/images/cover/abc/1000x1000.jpg" {
		t.Errorf("expected XL cover preferred, got %q", match.ArtworkURL)
	}
	if match.Year != 2004 {
		t.Errorf("expected year 2004, got %d", match.Year)
	}
	if match.Source != catalog.NameDeezer {
		t.Errorf("expected source deezer, got %q", match.Source)
	}
}

func TestResolveByTextNoMatch(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	match, err := a.ResolveByText(context.Background(), "nobody", "no-such-song")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil match, got %+v", match)
	}
}

func TestResolveByISRC(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	match, err := a.ResolveByISRC(context.Background(), "GBFFP0300052")
	if err != nil {
		t.Fatalf("ResolveByISRC: %v", err)
	}
	if match == nil {
		t.Fatal("expected a match")
	}
	if match.ISRC != "GBFFP0300052" {
		t.Errorf("expected ISRC, got %q", match.ISRC)
	}
}

func TestResolveByISRCEmbeddedError(t *testing.T) {
	srv := newTestServer(t)
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	match, err := a.ResolveByISRC(context.Background(), "ZZZZZ9999999")
	if err != nil {
		t.Fatalf("embedded error must map to no-match: %v", err)
	}
	if match != nil {
		t.Errorf("expected nil match, got %+v", match)
	}
}

func TestResolveByISRCEmpty(t *testing.T) {
	a := newTestAdapter(t, "http://localhost")
	if _, err := a.ResolveByISRC(context.Background(), ""); err == nil {
		t.Error("expected error for empty ISRC")
	}
}

func TestHydratePreviews(t *testing.T) {
	var calls atomic.Int32
	var mu sync.Mutex
	inFlight, maxInFlight := 0, 0

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		mu.Lock()
		inFlight++
		if inFlight > maxInFlight {
			maxInFlight = inFlight
		}
		mu.Unlock()
		defer func() {
			mu.Lock()
			inFlight--
			mu.Unlock()
		}()

		w.Header().Set("Content-Type", "application/json")
		w.Write(loadFixture(t, "search_brightside.json"))
	}))
	defer srv.Close()
	a := newTestAdapter(t, srv.URL)

	songs := make([]song.Song, 0, 12)
	for i := 0; i < 12; i++ {
		songs = append(songs, song.Song{ID: string(rune('a' + i)), Artist: "The Killers", Title: "Mr. Brightside"})
	}
	// one without identity must be skipped
	songs = append(songs, song.Song{ID: "skip"})

	updates, err := a.HydratePreviews(context.Background(), songs)
	if err != nil {
		t.Fatalf("HydratePreviews: %v", err)
	}
	if len(updates) != 12 {
		t.Errorf("expected 12 updates, got %d", len(updates))
	}
	if calls.Load() != 12 {
		t.Errorf("expected 12 requests, got %d", calls.Load())
	}
	if maxInFlight > 10 {
		t.Errorf("chunking exceeded 10 concurrent requests: %d", maxInFlight)
	}
	for _, u := range updates {
		if u.SongID == "skip" {
			t.Error("identity-less song must not be hydrated")
		}
		if u.PreviewURL == "" {
			t.Error("expected preview URL on update")
		}
	}
}
