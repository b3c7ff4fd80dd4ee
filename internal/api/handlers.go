package api

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/chatreport/internal/archive"
	"github.com/MikeSquared-Agency/chatreport/internal/attachment"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/ingest"
	"github.com/MikeSquared-Agency/chatreport/internal/processor"
	"github.com/MikeSquared-Agency/chatreport/internal/store"
)

const (
	contentPDF  = "application/pdf"
	contentXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	contentText = "text/plain; charset=utf-8"
)

// upload reads the multipart "file" field and runs it through ingestion. On
// failure it has already written the error response and returns nil.
func (s *Server) upload(w http.ResponseWriter, r *http.Request) *ingest.Result {
	if s.maxUpload > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUpload+formOverhead)
	}
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
			return nil
		}
		writeError(w, http.StatusBadRequest, "expected multipart form with field \"file\"")
		return nil
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing form field \"file\"")
		return nil
	}
	defer file.Close()

	if !strings.EqualFold(path.Ext(header.Filename), ".zip") {
		writeError(w, http.StatusBadRequest, "file must be a .zip archive")
		return nil
	}
	if s.maxUpload > 0 && header.Size > s.maxUpload {
		writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit")
		return nil
	}

	res, err := s.proc.Ingest(r.Context(), file, header.Size, header.Filename)
	if err != nil {
		s.ingestError(w, header.Filename, err)
		return nil
	}
	return res
}

func (s *Server) ingestError(w http.ResponseWriter, name string, err error) {
	switch {
	case errors.Is(err, ingest.ErrNotZip), errors.Is(err, archive.ErrUnsafePath):
		s.logger.Warn("rejected archive", "archive", name, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, archive.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, ingest.ErrNoTranscript):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		s.logger.Error("ingest failed", "archive", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to process archive")
	}
}

func (s *Server) analyze(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	out := s.proc.Analyze(r.Context(), res.Dataset)
	w.Header().Set("X-Extract-ID", out.ExtractID)
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) analysisPDF(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	b, out, err := s.proc.AnalysisPDF(r.Context(), res.Dataset)
	s.sendReport(w, out, b, err, contentPDF, "analysis_"+res.Dataset.Name+".pdf")
}

func (s *Server) analysisWorkbook(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	b, out, err := s.proc.Workbook(r.Context(), res.Dataset)
	s.sendReport(w, out, b, err, contentXLSX, "analysis_"+res.Dataset.Name+".xlsx")
}

func (s *Server) projectLogPDF(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	b, err := s.proc.ProjectLogPDF(r.Context(), res)
	s.sendReport(w, nil, b, err, contentPDF, "project_log_"+res.Dataset.Name+".pdf")
}

func (s *Server) chatPDF(w http.ResponseWriter, r *http.Request) {
	mode, err := attachment.ParseMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	b, err := s.proc.ChatPDF(res.Dataset, mode)
	s.sendReport(w, nil, b, err, contentPDF, "chat_"+res.Dataset.Name+".pdf")
}

func (s *Server) sendReport(w http.ResponseWriter, out *processor.Outcome, b []byte, err error, contentType, filename string) {
	if out != nil {
		w.Header().Set("X-Extract-ID", out.ExtractID)
	}
	if err != nil {
		s.logger.Error("report rendering failed", "file", filename, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to render report")
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	w.WriteHeader(http.StatusOK)
	w.Write(b)
}

type extractTextResponse struct {
	ChatName   string            `json:"chat_name"`
	Transcript string            `json:"transcript_file"`
	Text       string            `json:"text"`
	Stats      dataset.TextStats `json:"stats"`
	Preview    []string          `json:"preview"`
}

func (s *Server) extractText(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	writeJSON(w, http.StatusOK, extractTextResponse{
		ChatName:   res.Dataset.Name,
		Transcript: res.Workspace.TranscriptName,
		Text:       res.Text,
		Stats:      dataset.Stats(res.Text, res.TranscriptSize),
		Preview:    dataset.Preview(res.Text),
	})
}

func (s *Server) extractTextPlain(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	writeJSON(w, http.StatusOK, map[string]string{"text": res.Text})
}

func (s *Server) extractTextRaw(w http.ResponseWriter, r *http.Request) {
	res := s.upload(w, r)
	if res == nil {
		return
	}
	defer res.Close()

	s.sendReport(w, nil, []byte(res.Text), nil, contentText, res.Dataset.Name+".txt")
}

func (s *Server) recentProjects(w http.ResponseWriter, r *http.Request) {
	recent, err := s.proc.Recent(r.Context())
	if err != nil {
		s.logger.Error("failed to list projects", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list projects")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"projects": recent, "count": len(recent)})
}

func (s *Server) projectHistory(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	hist, err := s.proc.History(r.Context(), name)
	if err != nil {
		s.logger.Error("failed to load history", "chat", name, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"chat_name": name, "history": hist, "count": len(hist)})
}

type progressUpdate struct {
	ProgressPercentage *float64 `json:"progress_percentage"`
	KeyInsights        []string `json:"key_insights"`
}

func (s *Server) updateProgress(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid extract id")
		return
	}

	var req progressUpdate
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ProgressPercentage == nil {
		writeError(w, http.StatusBadRequest, "progress_percentage is required")
		return
	}
	progress := *req.ProgressPercentage
	if progress < 0 || progress > 100 {
		writeError(w, http.StatusBadRequest, "progress_percentage must be between 0 and 100")
		return
	}

	err = s.proc.UpdateProgress(r.Context(), id, progress, req.KeyInsights)
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "extract not found")
	case errors.Is(err, processor.ErrNoStore):
		writeError(w, http.StatusServiceUnavailable, err.Error())
	case err != nil:
		s.logger.Error("failed to update progress", "extract_id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update progress")
	default:
		writeJSON(w, http.StatusOK, map[string]any{"extract_id": id.String(), "progress_percentage": progress})
	}
}
