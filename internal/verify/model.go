// Package verify implements the sequential verification pipeline that runs
// each song through the catalog cascade, plus an async run service.
package verify

import (
	"fmt"
	"time"
)

// Progress is a cumulative snapshot reported after each processed song.
type Progress struct {
	Total       int    `json:"total"`
	Current     int    `json:"current"`
	Verified    int    `json:"verified"`
	Failed      int    `json:"failed"`
	CurrentSong string `json:"current_song,omitempty"`
}

// ProgressFunc receives progress snapshots. May be nil.
type ProgressFunc func(Progress)

// FailedSong records why one song could not be verified.
type FailedSong struct {
	Title  string `json:"title"`
	Artist string `json:"artist"`
	Error  string `json:"error"`
}

// Summary aggregates the outcome of one batch run.
type Summary struct {
	Total       int           `json:"total"`
	Verified    int           `json:"verified"`
	Failed      int           `json:"failed"`
	Skipped     int           `json:"skipped"`
	FailedSongs []FailedSong  `json:"failed_songs,omitempty"`
	Duration    time.Duration `json:"duration"`
}

// CanceledError reports a batch stopped by its context. Songs processed
// before the cancellation keep their results; the rest are returned as they
// came in.
type CanceledError struct {
	Completed int
	Total     int
}

func (e *CanceledError) Error() string {
	return fmt.Sprintf("verification canceled after %d of %d songs", e.Completed, e.Total)
}
