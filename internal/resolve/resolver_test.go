package resolve

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/song"
)

// fakeSearcher is a scripted Searcher that counts network calls.
type fakeSearcher struct {
	exactMatch  *catalog.Match
	exactErr    error
	candidates  []catalog.Match
	searchErr   error
	exactCalls  int
	searchCalls int
}

func (f *fakeSearcher) ResolveByText(_ context.Context, _ *oauth2.Token, _, _ string) (*catalog.Match, error) {
	f.exactCalls++
	return f.exactMatch, f.exactErr
}

func (f *fakeSearcher) SearchTracks(_ context.Context, _ *oauth2.Token, _ string, _ int) ([]catalog.Match, error) {
	f.searchCalls++
	return f.candidates, f.searchErr
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))
}

func testToken() *oauth2.Token {
	return &oauth2.Token{AccessToken: "t", Expiry: time.Now().Add(time.Hour)}
}

func brightside() song.Song {
	return song.Song{
		ID:     "s1",
		Title:  "Mr. Brightside",
		Artist: "The Killers",
	}
}

func TestDirectTierNoNetwork(t *testing.T) {
	fake := &fakeSearcher{}
	r := NewResolver(fake, 0, testLogger())

	s := brightside()
	s.SetPlatformRef(song.PlatformSpotify, song.PlatformRef{
		ID:  "spotify:track:003vvx7Niy0yvhvHt4a68B",
		URL: "https://open.spotify.com/track/003vvx7Niy0yvhvHt4a68B",
	})

	res, err := r.ResolveForPlatform(context.Background(), s, song.PlatformSpotify, nil)
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if res.Tier != TierDirect {
		t.Errorf("expected direct tier, got %s", res.Tier)
	}
	if res.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %f", res.Confidence)
	}
	if res.PlatformID != "003vvx7Niy0yvhvHt4a68B" {
		t.Errorf("expected URI parsed to bare ID, got %q", res.PlatformID)
	}
	if fake.exactCalls+fake.searchCalls != 0 {
		t.Error("direct tier must not touch the network")
	}
}

func TestMalformedSong(t *testing.T) {
	r := NewResolver(&fakeSearcher{}, 0, testLogger())
	_, err := r.ResolveForPlatform(context.Background(), song.Song{ID: "x"}, song.PlatformSpotify, testToken())
	if !errors.Is(err, ErrMalformedSong) {
		t.Errorf("expected ErrMalformedSong, got %v", err)
	}
}

func TestSoftTierGatedOnVerification(t *testing.T) {
	fake := &fakeSearcher{
		exactMatch: &catalog.Match{ID: "id1", Title: "Mr. Brightside", Artist: "The Killers", URL: "u"},
	}
	r := NewResolver(fake, 0, testLogger())

	// Unverified song: soft search must be skipped, hard search used.
	s := brightside()
	s.VerificationStatus = song.StatusUnverified
	fake.candidates = []catalog.Match{{ID: "id1", Title: "Mr. Brightside", Artist: "The Killers", URL: "u"}}

	res, err := r.ResolveForPlatform(context.Background(), s, song.PlatformSpotify, testToken())
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if fake.exactCalls != 0 {
		t.Error("soft search must not run for unverified songs")
	}
	if res.Tier != TierHard {
		t.Errorf("expected hard tier, got %s", res.Tier)
	}

	// Verified song: soft search runs and wins.
	fake.exactCalls, fake.searchCalls = 0, 0
	s.VerificationStatus = song.StatusVerified
	res, err = r.ResolveForPlatform(context.Background(), s, song.PlatformSpotify, testToken())
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if res.Tier != TierSoft {
		t.Errorf("expected soft tier, got %s", res.Tier)
	}
	if res.Confidence < 0.8 || res.Confidence > 1.0 {
		t.Errorf("soft confidence %f outside [0.8,1.0]", res.Confidence)
	}
	if fake.searchCalls != 0 {
		t.Error("hard search should not run after a confident soft hit")
	}
}

func TestSoftMissFallsToHard(t *testing.T) {
	fake := &fakeSearcher{
		// exact search returns an unrelated top hit
		exactMatch: &catalog.Match{ID: "x", Title: "Completely Different", Artist: "Someone Else"},
		candidates: []catalog.Match{{ID: "id2", Title: "Mr. Brightside", Artist: "The Killers"}},
	}
	r := NewResolver(fake, 0, testLogger())

	s := brightside()
	s.VerificationStatus = song.StatusVerified

	res, err := r.ResolveForPlatform(context.Background(), s, song.PlatformSpotify, testToken())
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if res.Tier != TierHard {
		t.Errorf("expected hard tier after soft rejection, got %s", res.Tier)
	}
	if fake.exactCalls != 1 || fake.searchCalls != 1 {
		t.Errorf("expected one soft and one hard call, got %d/%d", fake.exactCalls, fake.searchCalls)
	}
}

func TestHardTierRejectsBelowThreshold(t *testing.T) {
	fake := &fakeSearcher{
		candidates: []catalog.Match{
			{ID: "junk", Title: "Unrelated Song", Artist: "Unrelated Band"},
		},
	}
	r := NewResolver(fake, 0, testLogger())

	s := song.Song{ID: "s2", Title: "0b5d8c9e-aaaa-bbbb-cccc-121212121212", Artist: "No Such Band"}
	res, err := r.ResolveForPlatform(context.Background(), s, song.PlatformSpotify, testToken())
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if res.Tier != TierFailed {
		t.Errorf("fabricated song must not verify, got tier %s", res.Tier)
	}
	if res.Reason == "" {
		t.Error("failed result must carry a reason")
	}
}

func TestHardTierNoResults(t *testing.T) {
	r := NewResolver(&fakeSearcher{}, 0, testLogger())
	res, err := r.ResolveForPlatform(context.Background(), brightside(), song.PlatformSpotify, testToken())
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if res.Tier != TierFailed {
		t.Errorf("expected failed tier, got %s", res.Tier)
	}
}

func TestAuthErrorPropagates(t *testing.T) {
	fake := &fakeSearcher{searchErr: &catalog.ErrAuthRequired{Catalog: catalog.NameSpotify}}
	r := NewResolver(fake, 0, testLogger())

	_, err := r.ResolveForPlatform(context.Background(), brightside(), song.PlatformSpotify, nil)
	var authErr *catalog.ErrAuthRequired
	if !errors.As(err, &authErr) {
		t.Errorf("expected ErrAuthRequired, got %v", err)
	}
}

func TestUnsupportedPlatformFailsGracefully(t *testing.T) {
	fake := &fakeSearcher{}
	r := NewResolver(fake, 0, testLogger())

	res, err := r.ResolveForPlatform(context.Background(), brightside(), song.PlatformYouTube, nil)
	if err != nil {
		t.Fatalf("ResolveForPlatform: %v", err)
	}
	if res.Tier != TierFailed {
		t.Errorf("expected failed tier, got %s", res.Tier)
	}
	if fake.exactCalls+fake.searchCalls != 0 {
		t.Error("unsupported platform must not issue searches")
	}
}

func TestParseSpotifyTrackID(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"003vvx7Niy0yvhvHt4a68B", "003vvx7Niy0yvhvHt4a68B", true},
		{"spotify:track:003vvx7Niy0yvhvHt4a68B", "003vvx7Niy0yvhvHt4a68B", true},
		{"https://open.spotify.com/track/003vvx7Niy0yvhvHt4a68B?si=xyz", "003vvx7Niy0yvhvHt4a68B", true},
		{"spotify:track:short", "", false},
		{"not an id", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := ParseSpotifyTrackID(tt.in)
		if got != tt.want || ok != tt.ok {
			t.Errorf("ParseSpotifyTrackID(%q) = (%q,%v), want (%q,%v)", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestManualSearchURL(t *testing.T) {
	s := brightside()
	if got := ManualSearchURL(song.PlatformYouTube, s); got == "" {
		t.Error("expected youtube search URL")
	}
	if got := ManualSearchURL(song.PlatformSpotify, s); got == "" {
		t.Error("expected spotify search URL")
	}
	if got := ManualSearchURL(song.Platform("tidal"), s); got != "" {
		t.Errorf("unknown platform should yield empty URL, got %q", got)
	}
}
