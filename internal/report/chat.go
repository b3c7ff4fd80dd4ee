package report

import (
	"fmt"

	"github.com/MikeSquared-Agency/chatreport/internal/archive"
	"github.com/MikeSquared-Agency/chatreport/internal/attachment"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

// ChatPDF renders the transcript with image attachments embedded inline.
// In strip mode marker text is replaced by the attachment; in preserve mode
// the message text is kept verbatim and the attachment follows it.
func (r *Renderer) ChatPDF(ds *dataset.Dataset, mode attachment.Mode) ([]byte, error) {
	title := "Chat with Images"
	if mode == attachment.ModePreserve {
		title = "Chat with Images (original text preserved)"
	}

	d := newDocument(title + ": " + ds.Name)
	d.title(title)
	d.subtitle(fmt.Sprintf("%s - generated %s", ds.Name, r.now().Format(displayTimeLayout)))

	var embedded, missing int
	for _, msg := range ds.Messages {
		d.ensureSpace(14)
		d.font("B", 9, colorSender)
		d.pdf.MultiCell(0, 4.5, d.tr(senderLine(msg)), "", "L", false)

		rendered := attachment.Render(msg, ds, mode)
		if mode == attachment.ModePreserve {
			r.messageText(d, rendered.Text)
		}
		if rendered.HasAttachment() {
			switch r.attachmentBlock(d, rendered) {
			case blockEmbedded:
				embedded++
			case blockMissing:
				missing++
			}
		}
		if mode == attachment.ModeStrip {
			r.messageText(d, rendered.Text)
		}
		d.pdf.Ln(2)
	}

	out, err := d.bytes()
	if err != nil {
		return nil, fmt.Errorf("render chat pdf: %w", err)
	}
	r.logger.Info("chat pdf rendered",
		"chat", ds.Name,
		"mode", mode.String(),
		"messages", ds.Len(),
		"images", embedded,
		"missing", missing,
		"bytes", len(out),
	)
	return out, nil
}

type blockResult int

const (
	blockReference blockResult = iota
	blockEmbedded
	blockMissing
	blockFailed
)

func (r *Renderer) attachmentBlock(d *document, a attachment.Rendered) blockResult {
	switch {
	case a.Missing:
		d.note(attachment.MissingMarker(a.Filename))
		return blockMissing
	case !archive.IsImage(a.Filename):
		d.note("Attachment: " + a.Filename)
		return blockReference
	}

	if err := d.image(a.Path); err != nil {
		r.logger.Warn("image embed failed", "file", a.Filename, "error", err)
		d.note("Error loading image: " + a.Filename)
		return blockFailed
	}
	d.note("Image: " + a.Filename)
	return blockEmbedded
}

func (r *Renderer) messageText(d *document, text string) {
	if text == "" {
		return
	}
	d.font("", 10, colorText)
	left, _, _, _ := d.pdf.GetMargins()
	d.pdf.SetX(left + 3)
	d.pdf.MultiCell(d.contentWidth()-3, lineHeight, d.tr(text), "", "L", false)
}

func senderLine(m transcript.Message) string {
	clock := m.TimeText
	if m.Meridiem != "" {
		clock += " " + m.Meridiem
	}
	return fmt.Sprintf("[%s, %s] %s:", m.DateText, clock, m.Sender)
}
