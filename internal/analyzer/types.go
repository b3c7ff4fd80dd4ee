package analyzer

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Source labels where an analysis record came from.
type Source string

const (
	SourceModel     Source = "model"
	SourceFallback  Source = "fallback"  // model replied but the reply did not parse
	SourceEmergency Source = "emergency" // model call failed or no model configured
)

// Degraded reports whether the record was substituted for a model reply.
func (s Source) Degraded() bool { return s != SourceModel }

// Analysis is the progress analysis of one chat.
type Analysis struct {
	Summary            string              `json:"summary"`
	KeyMilestones      []string            `json:"key_milestones"`
	ProgressIndicators []ProgressIndicator `json:"progress_indicators"`
	Challenges         []string            `json:"challenges_identified"`
	Recommendations    []string            `json:"recommendations"`
	Timeline           Timeline            `json:"timeline_analysis"`
	Contributions      map[string]string   `json:"participant_contributions"`

	Source      Source    `json:"source"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	// Detail carries the error or unparsed reply behind a degraded record.
	Detail string `json:"detail,omitempty"`
}

// ProgressIndicator is one measured sign of progress.
type ProgressIndicator struct {
	Indicator   string `json:"indicator"`
	Value       string `json:"value"`
	Date        string `json:"date"`
	Description string `json:"description"`
}

// UnmarshalJSON accepts numbers and booleans where strings are expected,
// since models often emit "value": 75.
func (p *ProgressIndicator) UnmarshalJSON(b []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	p.Indicator = text(raw["indicator"])
	p.Value = text(raw["value"])
	p.Date = text(raw["date"])
	p.Description = text(raw["description"])
	return nil
}

func text(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprint(t)
	}
}

// Timeline is the model's reading of the project schedule.
type Timeline struct {
	ProjectStart        string   `json:"project_start"`
	CurrentPhase        string   `json:"current_phase"`
	KeyDates            []string `json:"key_dates"`
	EstimatedCompletion string   `json:"estimated_completion"`
}

// ProjectLog is the structured final report of a project chat.
type ProjectLog struct {
	Title            string     `json:"project_title"`
	ExecutiveSummary string     `json:"executive_summary"`
	Objectives       []string   `json:"objectives"`
	Activities       []Activity `json:"activities"`
	Achievements     []string   `json:"achievements"`
	Obstacles        []string   `json:"obstacles"`
	Lessons          []string   `json:"lessons_learned"`
	Conclusions      string     `json:"conclusions"`
	Recommendations  []string   `json:"recommendations"`

	Source      Source    `json:"source"`
	Model       string    `json:"model,omitempty"`
	GeneratedAt time.Time `json:"generated_at"`
	Detail      string    `json:"detail,omitempty"`
}

// Activity is one dated entry in the project log.
type Activity struct {
	Date        string `json:"date"`
	Description string `json:"description"`
	Owner       string `json:"owner"`
}
