// Package processor orchestrates one chat archive through parsing, analysis,
// rendering and persistence.
package processor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
	"github.com/MikeSquared-Agency/chatreport/internal/attachment"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/hermes"
	"github.com/MikeSquared-Agency/chatreport/internal/ingest"
	"github.com/MikeSquared-Agency/chatreport/internal/slack"
	"github.com/MikeSquared-Agency/chatreport/internal/store"
)

// SentinelPrefix marks extract ids handed out when persistence failed.
const SentinelPrefix = "error_"

// ErrNoStore is returned by operations that need persistence when none is
// configured.
var ErrNoStore = errors.New("extract store not configured")

type Ingester interface {
	Open(ctx context.Context, r io.ReaderAt, size int64, archiveName string) (*ingest.Result, error)
	OpenFile(ctx context.Context, file string) (*ingest.Result, error)
}

type Analyzer interface {
	Analyze(ctx context.Context, ds *dataset.Dataset) *analyzer.Analysis
	ProjectLog(ctx context.Context, ds *dataset.Dataset, transcriptText string) *analyzer.ProjectLog
}

type Renderer interface {
	AnalysisPDF(ds *dataset.Dataset, a *analyzer.Analysis) ([]byte, error)
	Workbook(ds *dataset.Dataset, a *analyzer.Analysis) ([]byte, error)
	ProjectLogPDF(ds *dataset.Dataset, log *analyzer.ProjectLog) ([]byte, error)
	ChatPDF(ds *dataset.Dataset, mode attachment.Mode) ([]byte, error)
}

type ExtractStore interface {
	SaveExtract(ctx context.Context, e store.Extract) (uuid.UUID, error)
	History(ctx context.Context, chatName string) ([]store.Extract, error)
	Recent(ctx context.Context) ([]store.ProjectSummary, error)
	UpdateProgress(ctx context.Context, id uuid.UUID, progress float64, insights []string) error
}

type Publisher interface {
	PublishAnalysisCompleted(evt hermes.AnalysisCompleted) error
}

type Notifier interface {
	PostAnalysisSummary(ctx context.Context, r slack.Report) (string, error)
}

// Deps are the collaborators of a Processor. Store, Events and Notifier may
// be nil.
type Deps struct {
	Ingester Ingester
	Analyzer Analyzer
	Renderer Renderer
	Store    ExtractStore
	Events   Publisher
	Notifier Notifier
	// Now stamps extracts; nil means time.Now.
	Now func() time.Time
}

// Processor is safe for concurrent use.
type Processor struct {
	ingester Ingester
	analyzer Analyzer
	renderer Renderer
	store    ExtractStore
	events   Publisher
	notifier Notifier
	now      func() time.Time
	logger   *slog.Logger
}

func New(d Deps, logger *slog.Logger) *Processor {
	now := d.Now
	if now == nil {
		now = time.Now
	}
	return &Processor{
		ingester: d.Ingester,
		analyzer: d.Analyzer,
		renderer: d.Renderer,
		store:    d.Store,
		events:   d.Events,
		notifier: d.Notifier,
		now:      now,
		logger:   logger,
	}
}

// Outcome is an analysis together with its persistence result.
type Outcome struct {
	ExtractID string             `json:"extract_id"`
	Persisted bool               `json:"persisted"`
	Progress  float64            `json:"progress_percentage"`
	Summary   dataset.Summary    `json:"dataset"`
	Analysis  *analyzer.Analysis `json:"analysis"`
}

// Ingest parses an uploaded archive. The caller must Close the result.
func (p *Processor) Ingest(ctx context.Context, r io.ReaderAt, size int64, archiveName string) (*ingest.Result, error) {
	return p.ingester.Open(ctx, r, size, archiveName)
}

// Analyze runs the progress analysis, persists it, announces it and posts
// the Slack summary. It does not fail: a persistence failure yields a
// sentinel extract id.
func (p *Processor) Analyze(ctx context.Context, ds *dataset.Dataset) *Outcome {
	out := p.evaluate(ctx, ds)
	p.record(ctx, ds, out)
	return out
}

// evaluate runs the model without side effects.
func (p *Processor) evaluate(ctx context.Context, ds *dataset.Dataset) *Outcome {
	a := p.analyzer.Analyze(ctx, ds)
	return &Outcome{
		Progress: store.ProgressPercentage(a),
		Summary:  ds.Summarize(),
		Analysis: a,
	}
}

// record persists out, then announces and notifies.
func (p *Processor) record(ctx context.Context, ds *dataset.Dataset, out *Outcome) {
	extract := store.NewExtract(ds.Name, out.Analysis, p.now())
	out.ExtractID, out.Persisted = p.persist(ctx, extract)

	if out.Persisted {
		p.announce(ds, out)
	}
	p.notify(ctx, ds, out)

	p.logger.Info("chat analyzed",
		"chat", ds.Name,
		"messages", ds.Len(),
		"source", string(out.Analysis.Source),
		"extract_id", out.ExtractID,
		"persisted", out.Persisted,
	)
}

func (p *Processor) persist(ctx context.Context, e store.Extract) (string, bool) {
	if p.store == nil {
		return SentinelPrefix + uuid.NewString(), false
	}
	id, err := p.store.SaveExtract(ctx, e)
	if err != nil {
		sentinel := SentinelPrefix + uuid.NewString()
		p.logger.Error("failed to save extract", "chat", e.ChatName, "sentinel", sentinel, "error", err)
		return sentinel, false
	}
	return id.String(), true
}

func (p *Processor) announce(ds *dataset.Dataset, out *Outcome) {
	if p.events == nil {
		return
	}
	err := p.events.PublishAnalysisCompleted(hermes.AnalysisCompleted{
		ExtractID:          out.ExtractID,
		ChatName:           ds.Name,
		Messages:           ds.Len(),
		Participants:       ds.Participants,
		ProgressPercentage: out.Progress,
		Source:             string(out.Analysis.Source),
		Model:              out.Analysis.Model,
		Persisted:          out.Persisted,
		CompletedAt:        p.now().UTC(),
	})
	if err != nil {
		p.logger.Warn("failed to publish analysis completed", "extract_id", out.ExtractID, "error", err)
	}
}

func (p *Processor) notify(ctx context.Context, ds *dataset.Dataset, out *Outcome) {
	if p.notifier == nil {
		return
	}
	_, err := p.notifier.PostAnalysisSummary(ctx, slack.Report{
		ExtractID: out.ExtractID,
		Dataset:   ds,
		Analysis:  out.Analysis,
		Progress:  out.Progress,
	})
	if err != nil {
		p.logger.Error("slack post failed", "chat", ds.Name, "error", err)
	}
}

// AnalysisPDF analyzes ds and renders the analysis report. The analysis is
// recorded only once the document exists; on a render error the outcome is
// nil and nothing is persisted.
func (p *Processor) AnalysisPDF(ctx context.Context, ds *dataset.Dataset) ([]byte, *Outcome, error) {
	return p.renderAnalysis(ctx, ds, p.renderer.AnalysisPDF)
}

// Workbook analyzes ds and renders the spreadsheet, recording the analysis
// like AnalysisPDF.
func (p *Processor) Workbook(ctx context.Context, ds *dataset.Dataset) ([]byte, *Outcome, error) {
	return p.renderAnalysis(ctx, ds, p.renderer.Workbook)
}

func (p *Processor) renderAnalysis(ctx context.Context, ds *dataset.Dataset, render func(*dataset.Dataset, *analyzer.Analysis) ([]byte, error)) ([]byte, *Outcome, error) {
	out := p.evaluate(ctx, ds)
	b, err := render(ds, out.Analysis)
	if err != nil {
		return nil, nil, fmt.Errorf("render %s: %w", ds.Name, err)
	}
	p.record(ctx, ds, out)
	return b, out, nil
}

// ProjectLogPDF generates the project log and renders it with the evidence
// gallery. The project log is not persisted.
func (p *Processor) ProjectLogPDF(ctx context.Context, res *ingest.Result) ([]byte, error) {
	log := p.analyzer.ProjectLog(ctx, res.Dataset, res.Text)
	return p.renderer.ProjectLogPDF(res.Dataset, log)
}

// ChatPDF renders the transcript with embedded images. No model is called.
func (p *Processor) ChatPDF(ds *dataset.Dataset, mode attachment.Mode) ([]byte, error) {
	return p.renderer.ChatPDF(ds, mode)
}

// History returns the stored extracts of one chat.
func (p *Processor) History(ctx context.Context, chatName string) ([]store.Extract, error) {
	if p.store == nil {
		return []store.Extract{}, nil
	}
	return p.store.History(ctx, chatName)
}

// Recent lists the latest extracts across chats.
func (p *Processor) Recent(ctx context.Context) ([]store.ProjectSummary, error) {
	if p.store == nil {
		return []store.ProjectSummary{}, nil
	}
	return p.store.Recent(ctx)
}

// UpdateProgress replaces the progress score and insights of a stored
// extract. Insights beyond the stored maximum are dropped.
func (p *Processor) UpdateProgress(ctx context.Context, id uuid.UUID, progress float64, insights []string) error {
	if p.store == nil {
		return ErrNoStore
	}
	if len(insights) > store.MaxKeyInsights {
		insights = insights[:store.MaxKeyInsights]
	}
	if err := p.store.UpdateProgress(ctx, id, progress, insights); err != nil {
		return err
	}
	p.logger.Info("extract progress updated", "extract_id", id, "progress", progress)
	return nil
}

// HandleArchiveSubmitted analyzes an archive announced on
// chatreport.archive.submitted.
func (p *Processor) HandleArchiveSubmitted(evt hermes.ArchiveSubmitted) {
	ctx := context.Background()

	p.logger.Info("processing submitted archive", "path", evt.Path, "submitted_by", evt.SubmittedBy)

	res, err := p.openSubmitted(ctx, evt)
	if err != nil {
		p.logger.Error("failed to ingest submitted archive", "path", evt.Path, "error", err)
		return
	}
	defer res.Close()

	p.Analyze(ctx, res.Dataset)
}

func (p *Processor) openSubmitted(ctx context.Context, evt hermes.ArchiveSubmitted) (*ingest.Result, error) {
	if evt.Name == "" {
		return p.ingester.OpenFile(ctx, evt.Path)
	}

	f, err := os.Open(evt.Path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("stat archive: %w", err)
	}
	return p.ingester.Open(ctx, f, info.Size(), evt.Name)
}
