// Package version holds build-time version information.
package version

// Set via -ldflags at build time.
var (
	Version = "dev"
	Commit  = "unknown"
)

// UserAgent returns the User-Agent string sent to external catalogs.
// MusicBrainz in particular requires a meaningful product identifier.
func UserAgent() string {
	return "songproof/" + Version + " (https://github.com/sydlexius/songproof)"
}
