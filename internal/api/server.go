// Package api exposes the chat report service over HTTP.
package api

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/MikeSquared-Agency/chatreport/internal/processor"
)

// multipart framing allowance on top of the archive size cap
const formOverhead = 1 << 20

type Options struct {
	Port           int
	APIToken       string
	MaxUploadBytes int64
}

type Server struct {
	router    *chi.Mux
	port      int
	maxUpload int64
	proc      *processor.Processor
	logger    *slog.Logger
	http      *http.Server
}

func NewServer(opts Options, proc *processor.Processor, logger *slog.Logger) *Server {
	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)

	s := &Server{
		router:    router,
		port:      opts.Port,
		maxUpload: opts.MaxUploadBytes,
		proc:      proc,
		logger:    logger,
	}

	router.Get("/health", s.health)
	router.Get("/", s.index)

	router.Route("/api/v1", func(r chi.Router) {
		r.Use(BearerAuthMiddleware(opts.APIToken))

		r.Post("/analyze", s.analyze)
		r.Post("/reports/analysis.pdf", s.analysisPDF)
		r.Post("/reports/analysis.xlsx", s.analysisWorkbook)
		r.Post("/reports/project-log.pdf", s.projectLogPDF)
		r.Post("/chat.pdf", s.chatPDF)
		r.Post("/extract-text", s.extractText)
		r.Post("/extract-text/raw", s.extractTextRaw)
		r.Post("/extract-text/plain", s.extractTextPlain)

		r.Get("/projects", s.recentProjects)
		r.Get("/projects/{name}/history", s.projectHistory)
		r.Patch("/extracts/{id}/progress", s.updateProgress)
	})

	return s
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) Start() error {
	addr := fmt.Sprintf(":%d", s.port)
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("API server starting", "addr", addr)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

// BearerAuthMiddleware requires "Authorization: Bearer <token>". An empty
// token disables the check.
func BearerAuthMiddleware(token string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if token == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) index(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "chatreport",
		"status":  "running",
		"endpoints": []string{
			"POST /api/v1/analyze",
			"POST /api/v1/reports/analysis.pdf",
			"POST /api/v1/reports/analysis.xlsx",
			"POST /api/v1/reports/project-log.pdf",
			"POST /api/v1/chat.pdf?mode=strip|preserve",
			"POST /api/v1/extract-text",
			"POST /api/v1/extract-text/raw",
			"POST /api/v1/extract-text/plain",
			"GET /api/v1/projects",
			"GET /api/v1/projects/{name}/history",
			"PATCH /api/v1/extracts/{id}/progress",
		},
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
