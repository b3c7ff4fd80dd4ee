package report

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
	"github.com/MikeSquared-Agency/chatreport/internal/archive"
	"github.com/MikeSquared-Agency/chatreport/internal/attachment"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
)

// ProjectLogPDF renders the project log followed by a gallery of every image
// referenced in the chat, each shown once.
func (r *Renderer) ProjectLogPDF(ds *dataset.Dataset, log *analyzer.ProjectLog) ([]byte, error) {
	d := newDocument(log.Title)
	d.title(log.Title)
	d.subtitle("Project log - generated " + r.now().Format(displayTimeLayout))

	d.heading("General Information")
	r.infoTable(d, ds)
	if log.Source.Degraded() {
		d.note(fmt.Sprintf("This log is a %s record: the language model result was not available.", log.Source))
	}

	d.heading("Executive Summary")
	d.paragraph(log.ExecutiveSummary)

	d.heading("Objectives")
	d.numbered(log.Objectives)

	d.heading("Activities Carried Out")
	if len(log.Activities) == 0 {
		d.note("No activities recorded.")
	} else {
		rows := make([][]string, 0, len(log.Activities))
		for _, a := range log.Activities {
			rows = append(rows, []string{a.Date, a.Description, a.Owner})
		}
		d.table([]string{"Date", "Description", "Owner"}, []float64{28, d.contentWidth() - 73, 45}, rows)
	}

	d.heading("Results and Achievements")
	d.numbered(log.Achievements)

	d.heading("Challenges and Obstacles")
	d.numbered(log.Obstacles)

	d.heading("Lessons Learned")
	d.numbered(log.Lessons)

	d.heading("Conclusions")
	d.paragraph(log.Conclusions)

	d.heading("Recommendations")
	d.numbered(log.Recommendations)

	evidence := attachment.CollectEvidence(ds.Messages, ds, archive.IsImage)
	embedded := r.gallery(d, evidence)

	out, err := d.bytes()
	if err != nil {
		return nil, fmt.Errorf("render project log pdf: %w", err)
	}
	r.logger.Info("project log pdf rendered",
		"chat", ds.Name,
		"evidence", len(evidence),
		"images", embedded,
		"bytes", len(out),
	)
	return out, nil
}

func (r *Renderer) gallery(d *document, evidence []attachment.Evidence) int {
	d.pdf.AddPage()
	d.heading("Photographic Evidence")
	if len(evidence) == 0 {
		d.note("No images were attached to this chat.")
		return 0
	}

	embedded := 0
	for i, ev := range evidence {
		d.ensureSpace(20)
		d.font("B", 10, colorText)
		d.pdf.MultiCell(0, lineHeight, d.tr(fmt.Sprintf("%d. %s", i+1, ev.Filename)), "", "L", false)

		switch {
		case ev.Missing:
			d.note(attachment.MissingMarker(ev.Filename))
		default:
			if err := d.image(ev.Path); err != nil {
				r.logger.Warn("evidence image embed failed", "file", ev.Filename, "error", err)
				d.note("Error loading image: " + ev.Filename)
				continue
			}
			embedded++
		}
		d.note(strings.TrimSpace(ev.Caption()))
		d.pdf.Ln(3)
	}
	return embedded
}
