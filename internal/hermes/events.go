package hermes

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

const (
	// SubjectArchiveSubmitted carries archives dropped on disk for analysis.
	SubjectArchiveSubmitted = "chatreport.archive.submitted"
	// SubjectAnalysisCompleted announces every persisted analysis.
	SubjectAnalysisCompleted = "chatreport.analysis.completed"
)

// ArchiveSubmitted asks the service to analyze an archive already on disk.
type ArchiveSubmitted struct {
	Path string `json:"path"`
	// Name replaces the file's base name as the declared archive name.
	Name        string    `json:"name,omitempty"`
	SubmittedBy string    `json:"submitted_by,omitempty"`
	SubmittedAt time.Time `json:"submitted_at,omitempty"`
}

// ParseArchiveSubmitted decodes and validates a submission payload.
func ParseArchiveSubmitted(data []byte) (ArchiveSubmitted, error) {
	var ev ArchiveSubmitted
	if err := json.Unmarshal(data, &ev); err != nil {
		return ev, fmt.Errorf("decode archive submitted: %w", err)
	}
	if ev.Path == "" {
		return ev, errors.New("archive submitted: path is required")
	}
	return ev, nil
}

// AnalysisCompleted summarises one persisted analysis.
type AnalysisCompleted struct {
	ExtractID          string    `json:"extract_id"`
	ChatName           string    `json:"chat_name"`
	Messages           int       `json:"messages"`
	Participants       []string  `json:"participants"`
	ProgressPercentage float64   `json:"progress_percentage"`
	Source             string    `json:"source"`
	Model              string    `json:"model,omitempty"`
	Persisted          bool      `json:"persisted"`
	CompletedAt        time.Time `json:"completed_at"`
}
