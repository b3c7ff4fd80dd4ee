package backfill

import (
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
)

// dedupWindow is the tolerance for matching timestamps across exports.
const dedupWindow = 1 * time.Second

// overlapThreshold is the fraction of timestamps that must match to consider
// two exports the same chat.
const overlapThreshold = 0.8

// fingerprint holds the timing info used to spot repeated exports of one
// chat, e.g. a weekly re-export that extends an older one.
type fingerprint struct {
	Path       string
	ChatName   string
	Timestamps []time.Time
}

// buildFingerprint skips approximate timestamps since they come from the
// clock, not the transcript.
func buildFingerprint(path string, ds *dataset.Dataset) fingerprint {
	fp := fingerprint{Path: path, ChatName: ds.Name}
	for _, m := range ds.Messages {
		if m.Approximate || m.Timestamp.IsZero() {
			continue
		}
		fp.Timestamps = append(fp.Timestamps, m.Timestamp)
	}
	return fp
}

// findDuplicates returns the paths covered by a larger export of the same
// chat. fps must be ordered largest first; the first export of each chat wins.
func findDuplicates(fps []fingerprint) map[string]bool {
	duplicates := make(map[string]bool)
	var kept []fingerprint

	for _, fp := range fps {
		dup := false
		for _, k := range kept {
			if k.ChatName == fp.ChatName && isOverlapping(k, fp) {
				dup = true
				break
			}
		}
		if dup {
			duplicates[fp.Path] = true
			continue
		}
		kept = append(kept, fp)
	}
	return duplicates
}

// isOverlapping checks if at least 80% of b's timestamps appear in a within
// dedupWindow.
func isOverlapping(a, b fingerprint) bool {
	if len(b.Timestamps) == 0 {
		return false
	}

	matches := 0
	for _, bt := range b.Timestamps {
		for _, at := range a.Timestamps {
			diff := bt.Sub(at)
			if diff < 0 {
				diff = -diff
			}
			if diff <= dedupWindow {
				matches++
				break
			}
		}
	}

	return float64(matches)/float64(len(b.Timestamps)) >= overlapThreshold
}
