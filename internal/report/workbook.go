package report

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
)

const (
	sheetSummary  = "Summary"
	sheetMessages = "Messages"
	sheetDetail   = "Detailed Analysis"
	sheetTimeline = "Timeline"

	maxWorkbookMessages = 1000
	maxCellContent      = 200
)

// Workbook renders the dataset and analysis as an xlsx spreadsheet with
// summary, messages, detail and timeline sheets.
func (r *Renderer) Workbook(ds *dataset.Dataset, a *analyzer.Analysis) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	st, err := newSheetStyles(f)
	if err != nil {
		return nil, err
	}

	if err := f.SetSheetName("Sheet1", sheetSummary); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}
	for _, name := range []string{sheetMessages, sheetDetail, sheetTimeline} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, fmt.Errorf("create sheet %s: %w", name, err)
		}
	}

	w := &sheetWriter{f: f}
	r.summarySheet(w, st, ds, a)
	written := messagesSheet(w, st, ds)
	detailSheet(w, st, a)
	timelineSheet(w, st, a)
	if w.err != nil {
		return nil, fmt.Errorf("fill workbook: %w", w.err)
	}

	f.SetActiveSheet(0)
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	r.logger.Info("workbook rendered", "chat", ds.Name, "messages", written, "bytes", buf.Len())
	return buf.Bytes(), nil
}

// sheetWriter keeps the first excelize error so sheet builders read linearly.
type sheetWriter struct {
	f   *excelize.File
	err error
}

func (w *sheetWriter) set(sheet string, col, row int, v any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		w.err = err
		return
	}
	w.err = w.f.SetCellValue(sheet, cell, v)
}

func (w *sheetWriter) style(sheet, from, to string, id int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(sheet, from, to, id)
	}
}

func (w *sheetWriter) merge(sheet, from, to string) {
	if w.err == nil {
		w.err = w.f.MergeCell(sheet, from, to)
	}
}

func (w *sheetWriter) widths(sheet string, widths ...float64) {
	for i, width := range widths {
		if w.err != nil {
			return
		}
		col, _ := excelize.ColumnNumberToName(i + 1)
		w.err = w.f.SetColWidth(sheet, col, col, width)
	}
}

type sheetStyles struct {
	title, header, label, wrap int
}

func newSheetStyles(f *excelize.File) (sheetStyles, error) {
	var st sheetStyles
	border := []excelize.Border{
		{Type: "left", Color: "999999", Style: 1},
		{Type: "right", Color: "999999", Style: 1},
		{Type: "top", Color: "999999", Style: 1},
		{Type: "bottom", Color: "999999", Style: 1},
	}
	defs := []struct {
		dst   *int
		style *excelize.Style
	}{
		{&st.title, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Size: 16, Color: "2E86AB"},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		}},
		{&st.header, &excelize.Style{
			Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
			Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"A23B72"}},
			Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
			Border:    border,
		}},
		{&st.label, &excelize.Style{
			Font:   &excelize.Font{Bold: true},
			Fill:   excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"F0F0F0"}},
			Border: border,
		}},
		{&st.wrap, &excelize.Style{
			Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		}},
	}
	for _, d := range defs {
		id, err := f.NewStyle(d.style)
		if err != nil {
			return st, fmt.Errorf("create style: %w", err)
		}
		*d.dst = id
	}
	return st, nil
}

func (r *Renderer) summarySheet(w *sheetWriter, st sheetStyles, ds *dataset.Dataset, a *analyzer.Analysis) {
	s := sheetSummary
	w.set(s, 1, 1, "Project Analysis: "+ds.Name)
	w.merge(s, "A1", "D1")
	w.style(s, "A1", "D1", st.title)

	w.set(s, 1, 3, "General Information")
	w.style(s, "A3", "A3", st.header)
	info := [][2]any{
		{"Chat name", ds.Name},
		{"Participants", strings.Join(ds.Participants, ", ")},
		{"Total messages", ds.Len()},
		{"Period", period(ds)},
		{"Analysis date", r.now().Format(displayTimeLayout)},
	}
	for i, kv := range info {
		row := 4 + i
		w.set(s, 1, row, kv[0])
		w.set(s, 2, row, kv[1])
		cell, _ := excelize.CoordinatesToCellName(1, row)
		w.style(s, cell, cell, st.label)
	}

	w.set(s, 1, 9, "Executive Summary")
	w.style(s, "A9", "A9", st.header)
	w.set(s, 1, 10, a.Summary)
	w.merge(s, "A10", "D12")
	w.style(s, "A10", "D12", st.wrap)

	w.widths(s, 25, 30, 20, 30)
}

func messagesSheet(w *sheetWriter, st sheetStyles, ds *dataset.Dataset) int {
	s := sheetMessages
	for i, h := range []string{"Date/Time", "Sender", "Type", "Content"} {
		w.set(s, i+1, 1, h)
	}
	w.style(s, "A1", "D1", st.header)

	n := min(len(ds.Messages), maxWorkbookMessages)
	for i, m := range ds.Messages[:n] {
		row := i + 2
		w.set(s, 1, row, m.Timestamp.Format(dataset.ContextTimeLayout))
		w.set(s, 2, row, m.Sender)
		w.set(s, 3, row, string(m.Type))
		w.set(s, 4, row, clip(m.Content, maxCellContent))
	}
	w.widths(s, 18, 20, 12, 50)
	return n
}

func detailSheet(w *sheetWriter, st sheetStyles, a *analyzer.Analysis) {
	s := sheetDetail
	row := 1
	section := func(title string, items []string) {
		w.set(s, 1, row, title)
		cell, _ := excelize.CoordinatesToCellName(1, row)
		w.style(s, cell, cell, st.header)
		row++
		if len(items) == 0 {
			w.set(s, 1, row, "None identified.")
			row++
		}
		for i, item := range items {
			w.set(s, 1, row, fmt.Sprintf("%d. %s", i+1, item))
			cell, _ := excelize.CoordinatesToCellName(1, row)
			w.style(s, cell, cell, st.wrap)
			row++
		}
		row++
	}
	section("Key Milestones", a.KeyMilestones)
	section("Challenges Identified", a.Challenges)
	section("Recommendations", a.Recommendations)
	w.widths(s, 80)
}

func timelineSheet(w *sheetWriter, st sheetStyles, a *analyzer.Analysis) {
	s := sheetTimeline
	w.set(s, 1, 1, "Item")
	w.set(s, 2, 1, "Detail")
	w.style(s, "A1", "B1", st.header)

	rows := [][2]string{
		{"Project start", a.Timeline.ProjectStart},
		{"Current phase", a.Timeline.CurrentPhase},
		{"Estimated completion", a.Timeline.EstimatedCompletion},
	}
	for _, d := range a.Timeline.KeyDates {
		rows = append(rows, [2]string{"Key date", d})
	}
	for i, kv := range rows {
		w.set(s, 1, i+2, kv[0])
		w.set(s, 2, i+2, kv[1])
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		w.style(s, cell, cell, st.label)
	}
	w.widths(s, 25, 60)
}
