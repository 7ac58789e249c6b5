package resolve

import (
	"math"
	"strings"
	"unicode"

	"github.com/hbollon/go-edlib"

	"github.com/sydlexius/songproof/internal/catalog"
	"github.com/sydlexius/songproof/internal/song"
)

// Scoring weights. Artist outweighs title on purpose: an artist mismatch is a
// stronger negative signal than a title paraphrase, so when the two disagree
// the artist-matching candidate wins.
const (
	weightArtist   = 0.45
	weightTitle    = 0.35
	weightDuration = 0.12
	weightAlbum    = 0.08
)

// durationTolerance is the gap at which duration similarity reaches zero.
const durationTolerance = 30 // seconds

// Score rates how well a catalog candidate matches the target song, in [0,1].
// Pure function: no network, no state. Components the target cannot supply
// (no duration, no album) are excluded and the remaining weights renormalized,
// so sparse input songs are not penalized for missing fields.
func Score(candidate catalog.Match, target song.Song) float64 {
	var sum, total float64

	sum += weightArtist * similarity(candidate.Artist, target.Artist)
	total += weightArtist

	sum += weightTitle * similarity(candidate.Title, target.Title)
	total += weightTitle

	if target.DurationSec > 0 && candidate.DurationSec > 0 {
		sum += weightDuration * durationCloseness(candidate.DurationSec, target.DurationSec)
		total += weightDuration
	}

	if target.Album != "" && candidate.Album != "" {
		sum += weightAlbum * similarity(candidate.Album, target.Album)
		total += weightAlbum
	}

	return sum / total
}

// Similarity is Jaro-Winkler over normalized strings, on [0,1]. Exposed for
// callers that need to sanity-check a catalog's own top-ranked hit.
func Similarity(a, b string) float64 {
	return similarity(a, b)
}

// similarity is Jaro-Winkler over normalized strings.
func similarity(a, b string) float64 {
	na, nb := Normalize(a), Normalize(b)
	if na == "" || nb == "" {
		return 0
	}
	if na == nb {
		return 1
	}
	sim, err := edlib.StringsSimilarity(na, nb, edlib.JaroWinkler)
	if err != nil {
		return 0
	}
	return float64(sim)
}

// durationCloseness maps the absolute duration gap onto [0,1], linear down to
// zero at durationTolerance seconds.
func durationCloseness(a, b int) float64 {
	diff := math.Abs(float64(a - b))
	if diff >= durationTolerance {
		return 0
	}
	return 1 - diff/durationTolerance
}

// parenthetical suffixes that catalogs append to otherwise identical titles.
var noiseMarkers = []string{"remaster", "remastered", "deluxe", "radio edit", "single version", "album version", "mono", "stereo"}

// Normalize lowercases, strips featuring credits, drops noise parentheticals
// like "(2004 Remaster)", removes punctuation, and collapses whitespace, so
// that cosmetic differences between catalogs do not depress match scores.
func Normalize(s string) string {
	s = strings.ToLower(s)
	s = stripFeaturing(s)
	s = stripNoiseParens(s)

	var b strings.Builder
	b.Grow(len(s))
	lastSpace := true
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastSpace = false
		case !lastSpace:
			b.WriteRune(' ')
			lastSpace = true
		}
	}
	return strings.TrimSpace(b.String())
}

// stripFeaturing removes "feat."/"ft."/"featuring" credits from the end of a
// string, with or without parentheses.
func stripFeaturing(s string) string {
	for _, marker := range []string{"(feat", "(ft.", "(featuring", "feat.", "ft.", "featuring"} {
		if idx := strings.Index(s, marker); idx > 0 {
			return strings.TrimSpace(s[:idx])
		}
	}
	return s
}

// stripNoiseParens drops parenthesized or bracketed suffixes that only carry
// edition noise. Parentheticals with real content ("(live)" is a different
// recording) are kept.
func stripNoiseParens(s string) string {
	for {
		open := strings.LastIndexAny(s, "([")
		if open < 0 {
			break
		}
		closing := strings.IndexAny(s[open:], ")]")
		if closing < 0 {
			break
		}
		inner := s[open+1 : open+closing]
		if !isNoise(inner) {
			break
		}
		s = strings.TrimSpace(s[:open] + s[open+closing+1:])
	}
	return s
}

func isNoise(inner string) bool {
	for _, marker := range noiseMarkers {
		if strings.Contains(inner, marker) {
			return true
		}
	}
	return false
}
