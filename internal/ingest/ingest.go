// Package ingest runs an uploaded archive through unpacking, transcript
// parsing, attachment resolution and aggregation.
package ingest

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
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/archive"
	"github.com/MikeSquared-Agency/chatreport/internal/attachment"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

var (
	// ErrNotZip rejects uploads that are not zip archives.
	ErrNotZip = errors.New("upload is not a zip archive")
	// ErrNoTranscript rejects archives without a chat transcript.
	ErrNoTranscript = errors.New("no chat transcript found in archive")
)

// Options configures a Pipeline.
type Options struct {
	DateOrder transcript.DateOrder
	// Now supplies fallback timestamps; nil means time.Now.
	Now            func() time.Time
	WorkDir        string
	MaxEntryBytes  int64
	ValidateImages bool
}

// Pipeline turns archives into datasets. It holds no per-request state and
// is safe for concurrent use.
type Pipeline struct {
	opts   Options
	logger *slog.Logger
}

// New creates a Pipeline.
func New(opts Options, logger *slog.Logger) *Pipeline {
	return &Pipeline{opts: opts, logger: logger}
}

// Result is a parsed archive. The workspace stays on disk until Close so
// renderers can embed media.
type Result struct {
	Dataset   *dataset.Dataset
	Workspace *archive.Workspace
	// Text is the decoded transcript.
	Text string
	// TranscriptSize is the transcript's size in bytes.
	TranscriptSize int64
}

// Close removes the workspace. Cleanup failures are logged by the workspace
// and not returned.
func (r *Result) Close() {
	if r == nil {
		return
	}
	_ = r.Workspace.Close()
}

// Open parses the archive read from r. archiveName is the declared file name
// and must end in .zip.
func (p *Pipeline) Open(ctx context.Context, r io.ReaderAt, size int64, archiveName string) (*Result, error) {
	if !strings.EqualFold(path.Ext(archiveName), ".zip") {
		return nil, fmt.Errorf("%w: %s", ErrNotZip, archiveName)
	}

	ws, err := archive.Unpack(ctx, r, size, archive.Options{
		Dir:            p.opts.WorkDir,
		MaxEntryBytes:  p.opts.MaxEntryBytes,
		ValidateImages: p.opts.ValidateImages,
		Logger:         p.logger,
	})
	if errors.Is(err, archive.ErrInvalid) {
		return nil, fmt.Errorf("%w: %v", ErrNotZip, err)
	}
	if err != nil {
		return nil, fmt.Errorf("unpack archive: %w", err)
	}

	res, err := p.load(ws, archiveName)
	if err != nil {
		ws.Close()
		return nil, err
	}
	return res, nil
}

// OpenFile parses the archive stored at p.
func (p *Pipeline) OpenFile(ctx context.Context, file string) (*Result, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return p.Open(ctx, f, info.Size(), filepath.Base(file))
}

func (p *Pipeline) load(ws *archive.Workspace, archiveName string) (*Result, error) {
	if !ws.HasTranscript() {
		return nil, ErrNoTranscript
	}

	raw, err := os.ReadFile(ws.Transcript)
	if err != nil {
		return nil, fmt.Errorf("read transcript: %w", err)
	}
	text := transcript.Decode(raw)

	msgs := transcript.Parse(text, transcript.Options{
		DateOrder: p.opts.DateOrder,
		Now:       p.opts.Now,
	})
	msgs = attachment.Resolve(msgs, ws.Media)

	ds := dataset.Build(chatName(ws.TranscriptName, archiveName), msgs, ws.Media)

	p.logger.Info("archive parsed",
		"archive", archiveName,
		"transcript", ws.TranscriptName,
		"messages", ds.Len(),
		"participants", len(ds.Participants),
		"media", ws.Media.Len(),
	)

	return &Result{
		Dataset:        ds,
		Workspace:      ws,
		Text:           text,
		TranscriptSize: int64(len(raw)),
	}, nil
}

func chatName(transcriptName, archiveName string) string {
	if name := archive.ChatName(transcriptName); name != "" {
		return name
	}
	base := path.Base(filepath.ToSlash(archiveName))
	return strings.TrimSuffix(base, path.Ext(base))
}
