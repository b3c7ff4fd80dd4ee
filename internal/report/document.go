package report

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/go-pdf/fpdf"
)

const (
	pageMargin = 12.7 // half an inch
	lineHeight = 5.0
	fontFamily = "Helvetica"
)

type rgb struct{ r, g, b int }

var (
	colorPrimary = rgb{46, 134, 171}
	colorAccent  = rgb{162, 59, 114}
	colorShade   = rgb{240, 240, 240}
	colorStripe  = rgb{248, 248, 248}
	colorSender  = rgb{0, 0, 200}
	colorMuted   = rgb{110, 110, 110}
	colorText    = rgb{0, 0, 0}
)

// document wraps an A4 portrait fpdf with the house styles. Core fonts are
// cp1252, so every string passes through tr.
type document struct {
	pdf    *fpdf.Fpdf
	tr     func(string) string
	images int
}

func newDocument(title string) *document {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(pageMargin, pageMargin, pageMargin)
	pdf.SetAutoPageBreak(true, pageMargin)
	pdf.SetTitle(title, true)
	pdf.SetCreator("chatreport", false)
	pdf.AliasNbPages("")

	d := &document{pdf: pdf, tr: pdf.UnicodeTranslatorFromDescriptor("")}
	pdf.SetFooterFunc(func() {
		pdf.SetY(-10)
		d.font("I", 8, colorMuted)
		pdf.CellFormat(0, 5, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()
	return d
}

func (d *document) font(style string, size float64, c rgb) {
	d.pdf.SetFont(fontFamily, style, size)
	d.pdf.SetTextColor(c.r, c.g, c.b)
}

func (d *document) contentWidth() float64 {
	w, _ := d.pdf.GetPageSize()
	left, _, right, _ := d.pdf.GetMargins()
	return w - left - right
}

// ensureSpace starts a new page when h millimetres do not fit.
func (d *document) ensureSpace(h float64) {
	_, pageH := d.pdf.GetPageSize()
	_, bottom := d.pdf.GetAutoPageBreak()
	if d.pdf.GetY()+h > pageH-bottom {
		d.pdf.AddPage()
	}
}

func (d *document) title(text string) {
	d.font("B", 20, colorPrimary)
	d.pdf.MultiCell(0, 9, d.tr(text), "", "C", false)
	d.pdf.Ln(4)
}

func (d *document) subtitle(text string) {
	d.font("", 10, colorMuted)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "C", false)
	d.pdf.Ln(4)
}

func (d *document) heading(text string) {
	d.ensureSpace(20)
	d.pdf.Ln(3)
	d.font("B", 14, colorAccent)
	d.pdf.MultiCell(0, 7, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

func (d *document) paragraph(text string) {
	d.font("", 11, colorText)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "J", false)
	d.pdf.Ln(2)
}

func (d *document) note(text string) {
	d.font("I", 9, colorMuted)
	d.pdf.MultiCell(0, lineHeight, d.tr(text), "", "L", false)
	d.pdf.Ln(1)
}

// numbered writes "1. item" paragraphs, or a placeholder when items is empty.
func (d *document) numbered(items []string) {
	if len(items) == 0 {
		d.note("None identified.")
		return
	}
	for i, item := range items {
		d.paragraph(fmt.Sprintf("%d. %s", i+1, item))
	}
}

// labelled writes "label: text" with a bold label.
func (d *document) labelled(label, text string) {
	d.font("B", 11, colorText)
	d.pdf.Write(lineHeight, d.tr(label+": "))
	d.font("", 11, colorText)
	d.pdf.Write(lineHeight, d.tr(text))
	d.pdf.Ln(lineHeight + 2)
}

// table draws rows with wrapped cells. With a header the header row is filled
// and body rows are striped; without one the first column is shaded as a
// label column.
func (d *document) table(header []string, widths []float64, rows [][]string) {
	pdf := d.pdf
	left, _, _, _ := pdf.GetMargins()
	labelCol := len(header) == 0

	if !labelCol {
		d.ensureSpace(14)
		d.font("B", 9, rgb{255, 255, 255})
		pdf.SetFillColor(colorPrimary.r, colorPrimary.g, colorPrimary.b)
		for i, h := range header {
			pdf.CellFormat(widths[i], 7, d.tr(h), "1", 0, "L", true, 0, "")
		}
		pdf.Ln(-1)
	}

	for ri, row := range rows {
		styles := make([]string, len(row))
		lines := 1
		for i, cell := range row {
			if labelCol && i == 0 {
				styles[i] = "B"
			}
			pdf.SetFont(fontFamily, styles[i], 9)
			if n := len(pdf.SplitLines([]byte(d.tr(cell)), widths[i]-2)); n > lines {
				lines = n
			}
		}
		h := float64(lines)*lineHeight + 2
		d.ensureSpace(h)

		x, y := left, pdf.GetY()
		for i, cell := range row {
			style := "D"
			switch {
			case labelCol && i == 0:
				pdf.SetFillColor(colorShade.r, colorShade.g, colorShade.b)
				style = "FD"
			case !labelCol && ri%2 == 1:
				pdf.SetFillColor(colorStripe.r, colorStripe.g, colorStripe.b)
				style = "FD"
			}
			pdf.Rect(x, y, widths[i], h, style)
			pdf.SetXY(x+1, y+1)
			d.font(styles[i], 9, colorText)
			pdf.MultiCell(widths[i]-2, lineHeight, d.tr(cell), "", "L", false)
			x += widths[i]
		}
		pdf.SetXY(left, y+h)
	}
	pdf.Ln(4)
}

// image embeds the picture at p, downscaled to fit the standard box.
func (d *document) image(p string) error {
	img, err := prepareImage(p)
	if err != nil {
		return err
	}

	d.images++
	name := fmt.Sprintf("img%d", d.images)
	opts := fpdf.ImageOptions{ImageType: "JPG"}
	d.pdf.RegisterImageOptionsReader(name, opts, bytes.NewReader(img.jpeg))
	if err := d.pdf.Error(); err != nil {
		return fmt.Errorf("register image %s: %w", p, err)
	}

	w, h := img.widthMM(), img.heightMM()
	d.ensureSpace(h + 2)
	left, _, _, _ := d.pdf.GetMargins()
	y := d.pdf.GetY()
	d.pdf.ImageOptions(name, left+4, y, w, h, false, opts, 0, "")
	d.pdf.SetY(y + h + 2)
	return nil
}

func (d *document) bytes() ([]byte, error) {
	var buf bytes.Buffer
	if err := d.pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// clip shortens s to n runes, adding "..." when cut.
func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n])) + "..."
}
