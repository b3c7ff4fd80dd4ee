// Package analyzer asks a language model for structured readings of a chat
// and substitutes labelled records when the model fails.
package analyzer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/llm"
)

const (
	defaultMaxMessages    = 200
	maxProjectLogRunes    = 100000
	analysisMaxTokens     = 4000
	projectLogMaxTokens   = 8192
	analysisTemperature   = 0.7
	projectLogTemperature = 0.3
)

// ErrNoModel is reported in emergency records when no provider is configured.
var ErrNoModel = errors.New("no language model configured")

// Options configures an Analyzer.
type Options struct {
	// MaxMessages caps the messages sent as context; zero means 200.
	MaxMessages int
	// Now stamps records; nil means time.Now.
	Now func() time.Time
}

type Analyzer struct {
	llm         llm.Completer
	logger      *slog.Logger
	maxMessages int
	now         func() time.Time
}

// New creates an Analyzer. c may be nil, in which case every call returns an
// emergency record.
func New(c llm.Completer, logger *slog.Logger, opts Options) *Analyzer {
	a := &Analyzer{llm: c, logger: logger, maxMessages: opts.MaxMessages, now: opts.Now}
	if a.maxMessages <= 0 {
		a.maxMessages = defaultMaxMessages
	}
	if a.now == nil {
		a.now = time.Now
	}
	return a
}

// Analyze returns the progress analysis of ds. It never fails: collaborator
// errors yield a record with Source fallback or emergency.
func (a *Analyzer) Analyze(ctx context.Context, ds *dataset.Dataset) *Analysis {
	if a.llm == nil {
		return a.emergencyAnalysis(ds, ErrNoModel)
	}

	prompt := fmt.Sprintf(analysisUserPrompt,
		ds.Name,
		strings.Join(ds.Participants, ", "),
		formatTime(ds.Start),
		formatTime(ds.End),
		ds.Len(),
		dataset.FormatContext(ds, a.maxMessages),
	)

	a.logger.Info("analysing chat",
		"chat", ds.Name,
		"messages", ds.Len(),
		"model", a.llm.Model(),
	)

	raw, err := a.llm.Complete(ctx, llm.Request{
		System:      analysisSystemPrompt,
		Prompt:      prompt,
		MaxTokens:   analysisMaxTokens,
		Temperature: analysisTemperature,
	})
	if err != nil {
		a.logger.Error("analysis call failed", "chat", ds.Name, "error", err)
		return a.emergencyAnalysis(ds, err)
	}

	var out Analysis
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &out); err != nil {
		a.logger.Warn("failed to parse analysis response",
			"chat", ds.Name,
			"error", err,
			"raw", truncate(raw, 500),
		)
		return a.fallbackAnalysis(ds, raw)
	}

	out.Source = SourceModel
	out.Model = a.llm.Model()
	out.GeneratedAt = a.now()

	a.logger.Info("analysis complete",
		"chat", ds.Name,
		"milestones", len(out.KeyMilestones),
		"indicators", len(out.ProgressIndicators),
		"challenges", len(out.Challenges),
	)
	return &out
}

// ProjectLog turns the transcript text into a project log. Like Analyze, it
// never fails.
func (a *Analyzer) ProjectLog(ctx context.Context, ds *dataset.Dataset, transcriptText string) *ProjectLog {
	if a.llm == nil {
		return a.emergencyProjectLog(ErrNoModel)
	}

	a.logger.Info("generating project log",
		"chat", ds.Name,
		"text_len", len(transcriptText),
		"model", a.llm.Model(),
	)

	raw, err := a.llm.Complete(ctx, llm.Request{
		System:      projectLogSystemPrompt,
		Prompt:      fmt.Sprintf(projectLogUserPrompt, truncateRunes(transcriptText, maxProjectLogRunes)),
		MaxTokens:   projectLogMaxTokens,
		Temperature: projectLogTemperature,
	})
	if err != nil {
		a.logger.Error("project log call failed", "chat", ds.Name, "error", err)
		return a.emergencyProjectLog(err)
	}

	var out ProjectLog
	if err := json.Unmarshal([]byte(CleanJSON(raw)), &out); err != nil {
		a.logger.Warn("failed to parse project log response",
			"chat", ds.Name,
			"error", err,
			"raw", truncate(raw, 500),
		)
		return a.fallbackProjectLog(raw)
	}

	out.Source = SourceModel
	out.Model = a.llm.Model()
	out.GeneratedAt = a.now()
	if out.Title == "" {
		out.Title = ds.Name
	}
	return &out
}

var fencePattern = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)```")

// CleanJSON extracts the JSON object from a model reply that may be wrapped
// in a markdown fence or surrounded by prose.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)
	if m := fencePattern.FindStringSubmatch(s); m != nil {
		s = strings.TrimSpace(m[1])
	}
	if strings.HasPrefix(s, "{") {
		return s
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		return s[start : end+1]
	}
	return s
}

func formatTime(t *time.Time) string {
	if t == nil {
		return "unknown"
	}
	return t.Format(dataset.ContextTimeLayout)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
