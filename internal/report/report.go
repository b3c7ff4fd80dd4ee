// Package report renders datasets and analyses as PDF documents and
// spreadsheet workbooks.
package report

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
)

const displayTimeLayout = "02/01/2006 15:04"

// Renderer produces report bytes. It holds no per-report state.
type Renderer struct {
	logger *slog.Logger
	now    func() time.Time
}

// New creates a Renderer. now stamps generation times; nil means time.Now.
func New(logger *slog.Logger, now func() time.Time) *Renderer {
	if now == nil {
		now = time.Now
	}
	return &Renderer{logger: logger, now: now}
}

// AnalysisPDF renders the progress analysis of ds.
func (r *Renderer) AnalysisPDF(ds *dataset.Dataset, a *analyzer.Analysis) ([]byte, error) {
	d := newDocument("Project Analysis Report: " + ds.Name)
	d.title("Project Analysis Report\n" + ds.Name)

	d.heading("General Information")
	r.infoTable(d, ds)

	if a.Source.Degraded() {
		d.note(fmt.Sprintf("This analysis is a %s record: the language model result was not available.", a.Source))
	}

	d.heading("Executive Summary")
	d.paragraph(a.Summary)

	d.heading("Key Milestones")
	d.numbered(a.KeyMilestones)

	if len(a.ProgressIndicators) > 0 {
		d.heading("Progress Indicators")
		rows := make([][]string, 0, len(a.ProgressIndicators))
		for _, p := range a.ProgressIndicators {
			rows = append(rows, []string{p.Indicator, p.Value, p.Date, clip(p.Description, 120)})
		}
		d.table([]string{"Indicator", "Value", "Date", "Description"}, []float64{40, 25, 30, d.contentWidth() - 95}, rows)
	}

	d.pdf.AddPage()

	d.heading("Challenges Identified")
	d.numbered(a.Challenges)

	d.heading("Recommendations")
	d.numbered(a.Recommendations)

	d.heading("Timeline Analysis")
	var timeline [][]string
	for _, kv := range [][2]string{
		{"Project start", a.Timeline.ProjectStart},
		{"Current phase", a.Timeline.CurrentPhase},
		{"Estimated completion", a.Timeline.EstimatedCompletion},
	} {
		if kv[1] != "" {
			timeline = append(timeline, []string{kv[0], kv[1]})
		}
	}
	if len(a.Timeline.KeyDates) > 0 {
		timeline = append(timeline, []string{"Key dates", strings.Join(a.Timeline.KeyDates, "\n")})
	}
	if len(timeline) > 0 {
		d.table(nil, []float64{50, d.contentWidth() - 50}, timeline)
	} else {
		d.note("No timeline information.")
	}

	if len(a.Contributions) > 0 {
		d.heading("Participant Contributions")
		for _, name := range sortedKeys(a.Contributions) {
			d.labelled(name, a.Contributions[name])
		}
	}

	d.pdf.Ln(6)
	d.note("Report generated automatically on " + r.now().Format(displayTimeLayout))

	out, err := d.bytes()
	if err != nil {
		return nil, fmt.Errorf("render analysis pdf: %w", err)
	}
	r.logger.Debug("analysis pdf rendered", "chat", ds.Name, "bytes", len(out))
	return out, nil
}

func (r *Renderer) infoTable(d *document, ds *dataset.Dataset) {
	d.table(nil, []float64{50, d.contentWidth() - 50}, [][]string{
		{"Chat name", ds.Name},
		{"Participants", strings.Join(ds.Participants, ", ")},
		{"Total messages", strconv.Itoa(ds.Len())},
		{"Period", period(ds)},
		{"Analysis date", r.now().Format(displayTimeLayout)},
	})
}

func period(ds *dataset.Dataset) string {
	if ds.Start == nil || ds.End == nil {
		return "N/A"
	}
	return ds.Start.Format(displayTimeLayout) + " - " + ds.End.Format(displayTimeLayout)
}

func sortedKeys(m map[string]string) []string {
	return slices.Sorted(maps.Keys(m))
}
