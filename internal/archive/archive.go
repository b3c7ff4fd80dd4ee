// Package archive extracts an exported chat archive into an ephemeral
// workspace and indexes the transcript and media files it contains.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/zip"
)

var (
	// ErrInvalid is returned when the input is not a readable zip container.
	ErrInvalid = errors.New("not a zip archive")
	// ErrUnsafePath is returned for entries that would land outside the workspace.
	ErrUnsafePath = errors.New("archive entry escapes workspace")
	// ErrTooLarge is returned when an entry exceeds the per-entry size cap.
	ErrTooLarge = errors.New("archive entry exceeds size limit")
)

// Options controls extraction.
type Options struct {
	// Dir is the parent for the workspace; empty means os.TempDir.
	Dir string
	// MaxEntryBytes caps each extracted entry; zero disables the cap.
	MaxEntryBytes int64
	// ValidateImages drops image media that do not decode.
	ValidateImages bool
	Logger         *slog.Logger
}

// Workspace is one extracted archive. Close removes it.
type Workspace struct {
	Dir string
	// Transcript is the chosen transcript path, or "" when none was found.
	Transcript string
	// TranscriptName is the transcript's base name inside the archive.
	TranscriptName string
	Media          *MediaIndex
	Entries        int

	logger *slog.Logger
}

// HasTranscript reports whether a transcript was selected.
func (w *Workspace) HasTranscript() bool { return w.Transcript != "" }

// Close removes the workspace. Failures are logged and returned, and are safe
// to ignore.
func (w *Workspace) Close() error {
	if w == nil || w.Dir == "" {
		return nil
	}
	if err := os.RemoveAll(w.Dir); err != nil {
		w.logger.Warn("workspace cleanup failed", "dir", w.Dir, "error", err)
		return fmt.Errorf("remove workspace: %w", err)
	}
	w.logger.Debug("workspace removed", "dir", w.Dir)
	return nil
}

type entry struct {
	name string // slash path inside the archive
	path string // extracted location
	size int64
}

// Unpack extracts every file in the archive read from r into a fresh
// workspace. On error the workspace is already removed.
func Unpack(ctx context.Context, r io.ReaderAt, size int64, opts Options) (*Workspace, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	zr, err := zip.NewReader(r, size)
	switch {
	case errors.Is(err, zip.ErrInsecurePath):
		return nil, fmt.Errorf("%w: %v", ErrUnsafePath, err)
	case err != nil:
		return nil, fmt.Errorf("%w: %v", ErrInvalid, err)
	}

	dir, err := os.MkdirTemp(opts.Dir, "chatreport-*")
	if err != nil {
		return nil, fmt.Errorf("create workspace: %w", err)
	}
	ws := &Workspace{Dir: dir, logger: logger}

	entries, err := extractAll(ctx, zr, dir, opts.MaxEntryBytes)
	if err != nil {
		ws.Close()
		return nil, err
	}
	ws.Entries = len(entries)

	if t, ok := selectTranscript(entries); ok {
		ws.Transcript = t.path
		ws.TranscriptName = path.Base(t.name)
	}

	b := newIndexBuilder()
	for _, e := range entries {
		if e.path == ws.Transcript || !isMedia(e.name) {
			continue
		}
		b.add(path.Base(e.name), e.path)
	}
	if opts.ValidateImages {
		for _, name := range b.validateImages() {
			logger.Info("dropping unreadable image", "file", name)
		}
	}
	ws.Media = b.freeze()

	logger.Debug("archive unpacked",
		"dir", dir,
		"entries", ws.Entries,
		"transcript", ws.TranscriptName,
		"media", ws.Media.Len(),
	)
	return ws, nil
}

// UnpackFile opens the archive at p and unpacks it.
func UnpackFile(ctx context.Context, p string, opts Options) (*Workspace, error) {
	f, err := os.Open(p)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return Unpack(ctx, f, info.Size(), opts)
}

func extractAll(ctx context.Context, zr *zip.Reader, dir string, max int64) ([]entry, error) {
	var entries []entry
	for _, f := range zr.File {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.Contains(f.Name, `\`) || !filepath.IsLocal(filepath.FromSlash(f.Name)) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, f.Name)
		}
		if f.FileInfo().IsDir() || isResourceFork(f.Name) {
			continue
		}
		if max > 0 && f.UncompressedSize64 > uint64(max) {
			return nil, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
		}

		dest := filepath.Join(dir, filepath.FromSlash(f.Name))
		n, err := extractOne(f, dest, max)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry{name: f.Name, path: dest, size: n})
	}
	return entries, nil
}

func extractOne(f *zip.File, dest string, max int64) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, fmt.Errorf("create entry dir: %w", err)
	}

	rc, err := f.Open()
	if err != nil {
		return 0, fmt.Errorf("open entry %s: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create entry %s: %w", f.Name, err)
	}
	defer out.Close()

	var src io.Reader = rc
	if max > 0 {
		src = io.LimitReader(rc, max+1)
	}
	n, err := io.Copy(out, src)
	if err != nil {
		return 0, fmt.Errorf("extract entry %s: %w", f.Name, err)
	}
	if max > 0 && n > max {
		return 0, fmt.Errorf("%w: %s", ErrTooLarge, f.Name)
	}
	return n, nil
}

// isResourceFork matches the metadata entries macOS adds when zipping.
func isResourceFork(name string) bool {
	return strings.HasPrefix(name, "__MACOSX/") || strings.HasPrefix(path.Base(name), "._")
}
