// Package report aggregates platform resolution results into an export
// report a curator can act on.
package report

import (
	"time"

	"github.com/sydlexius/songproof/internal/resolve"
	"github.com/sydlexius/songproof/internal/song"
)

// SucceededEntry is one song that resolved to a platform track.
type SucceededEntry struct {
	Song        song.Song     `json:"song"`
	Platform    song.Platform `json:"platform"`
	PlatformURL string        `json:"platform_url"`
	Tier        resolve.Tier  `json:"tier"`
	Confidence  float64       `json:"confidence"`
}

// FailedEntry is one song no tier could resolve, with a manual search link
// so the curator can finish by hand.
type FailedEntry struct {
	Song            song.Song     `json:"song"`
	Platform        song.Platform `json:"platform"`
	Reason          string        `json:"reason"`
	ManualSearchURL string        `json:"manual_search_url,omitempty"`
}

// TierBreakdown counts successful resolutions per tier.
type TierBreakdown struct {
	Direct int `json:"direct"`
	Soft   int `json:"soft"`
	Hard   int `json:"hard"`
}

// ExportReport summarizes one export's resolution pass.
type ExportReport struct {
	Platform          song.Platform    `json:"platform"`
	Total             int              `json:"total"`
	Succeeded         []SucceededEntry `json:"succeeded"`
	Failed            []FailedEntry    `json:"failed"`
	SuccessRate       float64          `json:"success_rate"`
	TierBreakdown     TierBreakdown    `json:"tier_breakdown"`
	AverageConfidence float64          `json:"average_confidence"`
	Duration          time.Duration    `json:"duration"`
	GeneratedAt       time.Time        `json:"generated_at"`
}

// Build partitions resolve results into an export report. Pure aggregation:
// no I/O, no mutation of the inputs.
func Build(platform song.Platform, results []resolve.Result, duration time.Duration) ExportReport {
	rep := ExportReport{
		Platform:    platform,
		Total:       len(results),
		Duration:    duration,
		GeneratedAt: time.Now().UTC(),
	}

	var confidenceSum float64
	for _, res := range results {
		if res.Tier == resolve.TierFailed {
			rep.Failed = append(rep.Failed, FailedEntry{
				Song:            res.Song,
				Platform:        platform,
				Reason:          res.Reason,
				ManualSearchURL: resolve.ManualSearchURL(platform, res.Song),
			})
			continue
		}

		rep.Succeeded = append(rep.Succeeded, SucceededEntry{
			Song:        res.Song,
			Platform:    platform,
			PlatformURL: res.PlatformURL,
			Tier:        res.Tier,
			Confidence:  res.Confidence,
		})
		confidenceSum += res.Confidence
		switch res.Tier {
		case resolve.TierDirect:
			rep.TierBreakdown.Direct++
		case resolve.TierSoft:
			rep.TierBreakdown.Soft++
		case resolve.TierHard:
			rep.TierBreakdown.Hard++
		}
	}

	if rep.Total > 0 {
		rep.SuccessRate = float64(len(rep.Succeeded)) / float64(rep.Total)
	}
	if n := len(rep.Succeeded); n > 0 {
		rep.AverageConfidence = confidenceSum / float64(n)
	}
	return rep
}
