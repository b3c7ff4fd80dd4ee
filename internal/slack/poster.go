// Package slack posts analysis summaries to a Slack channel.
package slack

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/analyzer"
	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
)

const defaultPostMessageURL = "https://slack.com/api/chat.postMessage"

type Poster struct {
	token   string
	channel string
	client  *http.Client
	logger  *slog.Logger
	apiURL  string
}

func NewPoster(token, channel string, logger *slog.Logger) *Poster {
	return &Poster{
		token:   token,
		channel: channel,
		client:  &http.Client{Timeout: 10 * time.Second},
		apiURL:  defaultPostMessageURL,
		logger:  logger,
	}
}

// Report is what gets announced for one analysis.
type Report struct {
	ExtractID string
	Dataset   *dataset.Dataset
	Analysis  *analyzer.Analysis
	Progress  float64
}

// PostAnalysisSummary posts the analysis headline to the channel and, when
// there are recommendations, threads them under it. Returns the message ts.
func (p *Poster) PostAnalysisSummary(ctx context.Context, r Report) (string, error) {
	text := formatAnalysisMessage(r)

	body, err := json.Marshal(map[string]any{
		"channel": p.channel,
		"text":    text,
		"blocks": []map[string]any{
			{
				"type": "section",
				"text": map[string]any{
					"type": "mrkdwn",
					"text": text,
				},
			},
			{
				"type": "context",
				"elements": []map[string]any{
					{
						"type": "mrkdwn",
						"text": fmt.Sprintf("Extract `%s` | source: %s", r.ExtractID, r.Analysis.Source),
					},
				},
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal slack payload: %w", err)
	}

	ts, err := p.post(ctx, body)
	if err != nil {
		return "", err
	}
	p.logger.Info("posted analysis to slack", "ts", ts, "chat", r.Dataset.Name, "extract_id", r.ExtractID)

	if len(r.Analysis.Recommendations) > 0 {
		if err := p.PostThread(ctx, ts, formatRecommendations(r.Analysis.Recommendations)); err != nil {
			p.logger.Warn("slack thread reply failed", "ts", ts, "error", err)
		}
	}
	return ts, nil
}

// PostThread posts a threaded reply to a message.
func (p *Poster) PostThread(ctx context.Context, threadTS, text string) error {
	body, err := json.Marshal(map[string]any{
		"channel":   p.channel,
		"thread_ts": threadTS,
		"text":      text,
	})
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	_, err = p.post(ctx, body)
	return err
}

func (p *Poster) post(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("slack post: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var slackResp struct {
		OK    bool   `json:"ok"`
		TS    string `json:"ts"`
		Error string `json:"error,omitempty"`
	}
	if err := json.Unmarshal(respBody, &slackResp); err != nil {
		return "", fmt.Errorf("parse slack response: %w", err)
	}
	if !slackResp.OK {
		return "", fmt.Errorf("slack error: %s", slackResp.Error)
	}
	return slackResp.TS, nil
}

func formatAnalysisMessage(r Report) string {
	var sb strings.Builder
	ds, a := r.Dataset, r.Analysis

	fmt.Fprintf(&sb, "*Chat:* %s\n", ds.Name)
	fmt.Fprintf(&sb, "*Messages:* %d from %d participants\n", ds.Len(), len(ds.Participants))
	if ds.Start != nil && ds.End != nil {
		fmt.Fprintf(&sb, "*Period:* %s to %s\n", ds.Start.Format("2006-01-02"), ds.End.Format("2006-01-02"))
	}
	fmt.Fprintf(&sb, "*Progress:* %.0f%%\n\n", r.Progress)

	if a.Source.Degraded() {
		fmt.Fprintf(&sb, "_Analysis degraded (%s)._\n\n", a.Source)
	}
	sb.WriteString(a.Summary)
	sb.WriteString("\n")

	if len(a.KeyMilestones) > 0 {
		fmt.Fprintf(&sb, "\n*Milestones: %d*\n", len(a.KeyMilestones))
		for i, m := range a.KeyMilestones {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, m)
		}
	}
	if len(a.Challenges) > 0 {
		fmt.Fprintf(&sb, "\n*Challenges: %d*\n", len(a.Challenges))
		for i, c := range a.Challenges {
			fmt.Fprintf(&sb, "%d. %s\n", i+1, c)
		}
	}
	return sb.String()
}

func formatRecommendations(recs []string) string {
	var sb strings.Builder
	sb.WriteString("*Recommendations*\n")
	for i, r := range recs {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, r)
	}
	return sb.String()
}
