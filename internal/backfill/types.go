package backfill

import "time"

// Config holds the backfill command configuration.
type Config struct {
	Dir         string
	StatePath   string    // defaults to .chatreport-backfill.json inside Dir
	Since       time.Time // zero means no lower bound
	Until       time.Time // zero means no upper bound
	DryRun      bool
	MinMessages int
}

// Summary reports what one run did.
type Summary struct {
	Discovered int `json:"discovered"`
	Analyzed   int `json:"analyzed"`
	Skipped    int `json:"skipped"`
	Duplicates int `json:"duplicates"`
	Failed     int `json:"failed"`
}

// ArchiveResult records the outcome for one analyzed archive.
type ArchiveResult struct {
	Path      string  `json:"path"`
	ChatName  string  `json:"chat_name"`
	Messages  int     `json:"messages"`
	ExtractID string  `json:"extract_id"`
	Progress  float64 `json:"progress_percentage"`
	Persisted bool    `json:"persisted"`
}
