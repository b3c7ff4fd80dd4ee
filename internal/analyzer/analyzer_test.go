package analyzer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
	"github.com/MikeSquared-Agency/chatreport/internal/llm"
	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

var fixedNow = time.Date(2026, 3, 4, 10, 0, 0, 0, time.UTC)

type fakeLLM struct {
	reply string
	err   error
	reqs  []llm.Request
}

func (f *fakeLLM) Complete(_ context.Context, r llm.Request) (string, error) {
	f.reqs = append(f.reqs, r)
	return f.reply, f.err
}

func (f *fakeLLM) Model() string { return "fake-model" }

func newAnalyzer(c llm.Completer) *Analyzer {
	return New(c, slog.New(slog.NewTextHandler(io.Discard, nil)), Options{
		MaxMessages: 4,
		Now:         func() time.Time { return fixedNow },
	})
}

func testDataset() *dataset.Dataset {
	base := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	var msgs []transcript.Message
	for i := 0; i < 6; i++ {
		sender := "Ana"
		if i%2 == 1 {
			sender = "Luis"
		}
		msgs = append(msgs, transcript.Message{
			Timestamp: base.Add(time.Duration(i) * time.Hour),
			Sender:    sender,
			Content:   "update " + string(rune('a'+i)),
			Type:      transcript.TypeText,
		})
	}
	return dataset.Build("Obra Norte", msgs, nil)
}

const modelReply = "```json\n" + `{
  "summary": "Foundations poured",
  "key_milestones": ["permits", "foundations"],
  "progress_indicators": [{"indicator": "completion", "value": 40, "date": "2024-01-01", "description": "site work"}],
  "challenges_identified": ["rain"],
  "recommendations": ["order steel early"],
  "timeline_analysis": {"project_start": "2024-01-01", "current_phase": "structure", "key_dates": ["2024-01-01: start"], "estimated_completion": "2024-06"},
  "participant_contributions": {"Ana": "site lead", "Luis": "procurement"}
}` + "\n```"

func TestAnalyze_ParsesFencedReply(t *testing.T) {
	fake := &fakeLLM{reply: modelReply}
	a := newAnalyzer(fake)

	got := a.Analyze(context.Background(), testDataset())

	assert.Equal(t, SourceModel, got.Source)
	assert.False(t, got.Source.Degraded())
	assert.Equal(t, "Foundations poured", got.Summary)
	assert.Equal(t, []string{"permits", "foundations"}, got.KeyMilestones)
	require.Len(t, got.ProgressIndicators, 1)
	assert.Equal(t, "40", got.ProgressIndicators[0].Value)
	assert.Equal(t, "structure", got.Timeline.CurrentPhase)
	assert.Equal(t, "procurement", got.Contributions["Luis"])
	assert.Equal(t, "fake-model", got.Model)
	assert.Equal(t, fixedNow, got.GeneratedAt)

	require.Len(t, fake.reqs, 1)
	req := fake.reqs[0]
	assert.Equal(t, analysisSystemPrompt, req.System)
	assert.Equal(t, 0.7, req.Temperature)
	assert.Contains(t, req.Prompt, "Obra Norte")
	assert.Contains(t, req.Prompt, "Ana, Luis")
	assert.Contains(t, req.Prompt, "[... 2 messages omitted ...]")
	assert.Contains(t, req.Prompt, "[2024-01-01 09:00] Ana: update a")
}

func TestAnalyze_FallbackOnUnparseableReply(t *testing.T) {
	a := newAnalyzer(&fakeLLM{reply: "I could not produce JSON, sorry"})

	got := a.Analyze(context.Background(), testDataset())

	assert.Equal(t, SourceFallback, got.Source)
	assert.True(t, got.Source.Degraded())
	assert.Contains(t, got.Summary, "6 messages")
	assert.Contains(t, got.Summary, "2 participants")
	assert.Equal(t, "6", got.ProgressIndicators[0].Value)
	assert.Equal(t, "Active participant in the chat", got.Contributions["Ana"])
	assert.Equal(t, "2024-01-01 09:00", got.Timeline.ProjectStart)
	assert.Contains(t, got.Detail, "could not produce JSON")
}

func TestAnalyze_EmergencyOnCallError(t *testing.T) {
	a := newAnalyzer(&fakeLLM{err: errors.New("api error 500: overloaded")})

	got := a.Analyze(context.Background(), testDataset())

	assert.Equal(t, SourceEmergency, got.Source)
	assert.Contains(t, got.Summary, "overloaded")
	assert.Empty(t, got.Contributions)
	assert.Equal(t, "api error 500: overloaded", got.Detail)
}

func TestAnalyze_NoModelConfigured(t *testing.T) {
	a := newAnalyzer(nil)

	got := a.Analyze(context.Background(), testDataset())

	assert.Equal(t, SourceEmergency, got.Source)
	assert.Equal(t, ErrNoModel.Error(), got.Detail)
	assert.Empty(t, got.Model)
}

func TestAnalyze_EmptyDataset(t *testing.T) {
	fake := &fakeLLM{reply: "not json"}
	a := newAnalyzer(fake)

	got := a.Analyze(context.Background(), dataset.Build("empty", nil, nil))

	assert.Equal(t, SourceFallback, got.Source)
	assert.Equal(t, "unknown", got.Timeline.ProjectStart)
	assert.Contains(t, fake.reqs[0].Prompt, "Period: unknown to unknown")
}

func TestProjectLog_ParsesReply(t *testing.T) {
	fake := &fakeLLM{reply: `Here you go: {"project_title": "", "executive_summary": "done",
		"activities": [{"date": "01/01/2024", "description": "kickoff", "owner": "Ana"}],
		"recommendations": ["keep going"]}`}
	a := newAnalyzer(fake)

	got := a.ProjectLog(context.Background(), testDataset(), "raw transcript text")

	assert.Equal(t, SourceModel, got.Source)
	assert.Equal(t, "Obra Norte", got.Title)
	assert.Equal(t, "done", got.ExecutiveSummary)
	require.Len(t, got.Activities, 1)
	assert.Equal(t, "Ana", got.Activities[0].Owner)
	assert.Contains(t, fake.reqs[0].Prompt, "raw transcript text")
	assert.Equal(t, 0.3, fake.reqs[0].Temperature)
}

func TestProjectLog_TruncatesLongTranscript(t *testing.T) {
	fake := &fakeLLM{reply: `{"project_title": "x"}`}
	a := newAnalyzer(fake)

	long := strings.Repeat("ñ", maxProjectLogRunes+50)
	a.ProjectLog(context.Background(), testDataset(), long)

	assert.NotContains(t, fake.reqs[0].Prompt, long)
	assert.Contains(t, fake.reqs[0].Prompt, strings.Repeat("ñ", maxProjectLogRunes))
}

func TestProjectLog_Degraded(t *testing.T) {
	fallback := newAnalyzer(&fakeLLM{reply: "no json"}).ProjectLog(context.Background(), testDataset(), "x")
	assert.Equal(t, SourceFallback, fallback.Source)
	assert.NotEmpty(t, fallback.Recommendations)

	emergency := newAnalyzer(&fakeLLM{err: errors.New("timeout")}).ProjectLog(context.Background(), testDataset(), "x")
	assert.Equal(t, SourceEmergency, emergency.Source)
	assert.Contains(t, emergency.ExecutiveSummary, "timeout")
}

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain", `{"a":1}`, `{"a":1}`},
		{"json fence", "```json\n{\"a\":1}\n```", `{"a":1}`},
		{"bare fence", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", "Sure! {\"a\":1} Hope it helps.", `{"a":1}`},
		{"no object", "nothing here", "nothing here"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CleanJSON(tt.in))
		})
	}
}
