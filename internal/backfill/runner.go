// Package backfill analyzes a directory of previously exported chat archives
// in one resumable run.
package backfill

import (
	"cmp"
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"

	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/ingest"
	"github.com/MikeSquared-Agency/chatreport/internal/processor"
)

// Opener parses an archive on disk.
type Opener interface {
	OpenFile(ctx context.Context, path string) (*ingest.Result, error)
}

// Analyzer runs and records the analysis of a dataset.
type Analyzer interface {
	Analyze(ctx context.Context, ds *dataset.Dataset) *processor.Outcome
}

// Runner orchestrates the backfill process.
type Runner struct {
	cfg      Config
	opener   Opener
	analyzer Analyzer
	logger   *slog.Logger
}

// NewRunner creates a backfill runner.
func NewRunner(cfg Config, o Opener, a Analyzer, logger *slog.Logger) *Runner {
	if cfg.StatePath == "" {
		cfg.StatePath = filepath.Join(cfg.Dir, defaultStateName)
	}
	return &Runner{cfg: cfg, opener: o, analyzer: a, logger: logger}
}

type candidate struct {
	path     string
	messages int
	fp       fingerprint
}

// Run analyzes every unprocessed archive under the configured directory.
// Cancelling ctx saves the state and returns ctx.Err().
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	var sum Summary

	state, err := LoadState(r.cfg.StatePath)
	if err != nil {
		return sum, fmt.Errorf("load state: %w", err)
	}

	files, err := r.discoverFiles()
	if err != nil {
		return sum, fmt.Errorf("discover files: %w", err)
	}
	sum.Discovered = len(files)
	r.logger.Info("archives discovered", "dir", r.cfg.Dir, "archives", len(files))

	// First pass: parse everything to filter and fingerprint.
	var cands []candidate
	for _, path := range files {
		if err := ctx.Err(); err != nil {
			r.saveState(state)
			return sum, err
		}
		if state.IsProcessed(path) {
			sum.Skipped++
			continue
		}
		res, err := r.opener.OpenFile(ctx, path)
		if err != nil {
			r.logger.Warn("failed to parse archive", "path", path, "error", err)
			state.AddError(fmt.Sprintf("parse %s: %v", path, err))
			sum.Failed++
			continue
		}
		ds := res.Dataset
		keep := ds.Len() >= r.cfg.MinMessages && r.inDateRange(ds)
		c := candidate{path: path, messages: ds.Len(), fp: buildFingerprint(path, ds)}
		res.Close()

		if !keep {
			r.logger.Info("skipping archive", "path", path, "messages", c.messages)
			state.MarkProcessed(path)
			sum.Skipped++
			continue
		}
		cands = append(cands, c)
	}

	// Largest export first so it wins over the partial ones it contains.
	slices.SortStableFunc(cands, func(a, b candidate) int {
		return cmp.Compare(b.messages, a.messages)
	})
	fps := make([]fingerprint, len(cands))
	for i, c := range cands {
		fps[i] = c.fp
	}
	duplicates := findDuplicates(fps)

	state.FilesRemaining = len(cands) - len(duplicates)
	r.logger.Info("archives to analyze",
		"total", state.FilesRemaining,
		"duplicates", len(duplicates),
		"dry_run", r.cfg.DryRun,
	)

	// Second pass: analyze.
	for _, c := range cands {
		if err := ctx.Err(); err != nil {
			r.logger.Info("backfill interrupted")
			r.saveState(state)
			return sum, err
		}

		if duplicates[c.path] {
			r.logger.Info("skipping duplicate export", "path", c.path, "chat", c.fp.ChatName)
			state.MarkProcessed(c.path)
			sum.Duplicates++
			continue
		}

		if r.cfg.DryRun {
			r.logger.Info("would analyze archive", "path", c.path, "chat", c.fp.ChatName, "messages", c.messages)
			sum.Analyzed++
			continue
		}

		result, err := r.analyze(ctx, c.path)
		if err != nil {
			r.logger.Error("analysis failed", "path", c.path, "error", err)
			state.AddError(fmt.Sprintf("analyze %s: %v", c.path, err))
			sum.Failed++
			continue
		}

		state.Results = append(state.Results, result)
		state.MarkProcessed(c.path)
		state.FilesRemaining--
		sum.Analyzed++
		r.saveState(state)
	}

	if !r.cfg.DryRun {
		if err := state.Save(); err != nil {
			return sum, fmt.Errorf("save state: %w", err)
		}
	}

	r.logger.Info("backfill complete",
		"analyzed", sum.Analyzed,
		"skipped", sum.Skipped,
		"duplicates", sum.Duplicates,
		"failed", sum.Failed,
		"dry_run", r.cfg.DryRun,
	)
	return sum, nil
}

// saveState persists progress. Dry runs leave the state file untouched.
func (r *Runner) saveState(state *State) {
	if r.cfg.DryRun {
		return
	}
	if err := state.Save(); err != nil {
		r.logger.Warn("failed to save state", "error", err)
	}
}

func (r *Runner) analyze(ctx context.Context, path string) (ArchiveResult, error) {
	res, err := r.opener.OpenFile(ctx, path)
	if err != nil {
		return ArchiveResult{}, err
	}
	defer res.Close()

	out := r.analyzer.Analyze(ctx, res.Dataset)
	r.logger.Info("archive analyzed",
		"path", path,
		"chat", res.Dataset.Name,
		"extract_id", out.ExtractID,
		"persisted", out.Persisted,
	)
	return ArchiveResult{
		Path:      path,
		ChatName:  res.Dataset.Name,
		Messages:  res.Dataset.Len(),
		ExtractID: out.ExtractID,
		Progress:  out.Progress,
		Persisted: out.Persisted,
	}, nil
}

// FormatSummary renders a run summary for the terminal.
func FormatSummary(sum Summary, dryRun bool, statePath string) string {
	var sb strings.Builder
	sb.WriteString("\n=== Backfill Summary ===\n")
	fmt.Fprintf(&sb, "Archives discovered: %d\n", sum.Discovered)
	fmt.Fprintf(&sb, "Analyzed: %d\n", sum.Analyzed)
	fmt.Fprintf(&sb, "Skipped: %d\n", sum.Skipped)
	fmt.Fprintf(&sb, "Duplicate exports: %d\n", sum.Duplicates)
	fmt.Fprintf(&sb, "Failed: %d\n", sum.Failed)
	if dryRun {
		sb.WriteString("Mode: DRY RUN (nothing analyzed)\n")
	}
	if statePath != "" {
		fmt.Fprintf(&sb, "State file: %s\n", statePath)
	}
	return sb.String()
}

// StatePath returns the state file the runner reads and writes.
func (r *Runner) StatePath() string { return expandHome(r.cfg.StatePath) }

func (r *Runner) discoverFiles() ([]string, error) {
	dir := expandHome(r.cfg.Dir)
	var files []string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == dir {
				return err
			}
			return nil // skip unreadable entries
		}
		if !d.IsDir() && strings.EqualFold(filepath.Ext(d.Name()), ".zip") {
			files = append(files, path)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.Sort(files)
	return files, nil
}

// inDateRange checks if any exact message timestamp falls within the
// configured since/until range.
func (r *Runner) inDateRange(ds *dataset.Dataset) bool {
	if r.cfg.Since.IsZero() && r.cfg.Until.IsZero() {
		return true
	}

	for _, m := range ds.Messages {
		if m.Approximate || m.Timestamp.IsZero() {
			continue
		}
		if !r.cfg.Since.IsZero() && m.Timestamp.Before(r.cfg.Since) {
			continue
		}
		if !r.cfg.Until.IsZero() && m.Timestamp.After(r.cfg.Until) {
			continue
		}
		return true
	}
	return false
}
