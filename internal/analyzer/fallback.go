package analyzer

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/dataset"
)

func (a *Analyzer) fallbackAnalysis(ds *dataset.Dataset, raw string) *Analysis {
	now := a.now()
	contributions := make(map[string]string, len(ds.Participants))
	for _, p := range ds.Participants {
		contributions[p] = "Active participant in the chat"
	}

	return &Analysis{
		Summary: fmt.Sprintf("Analysis of chat %q with %d messages between %d participants.",
			ds.Name, ds.Len(), len(ds.Participants)),
		KeyMilestones: []string{"Automatic analysis performed"},
		ProgressIndicators: []ProgressIndicator{{
			Indicator:   "Messages processed",
			Value:       strconv.Itoa(ds.Len()),
			Date:        now.Format(time.RFC3339),
			Description: "Total messages analysed in the chat",
		}},
		Challenges:      []string{"The model reply could not be fully processed"},
		Recommendations: []string{"Review the chat content manually", "Check the quality of the exported data"},
		Timeline: Timeline{
			ProjectStart:        formatTime(ds.Start),
			CurrentPhase:        "Analysis in progress",
			KeyDates:            []string{},
			EstimatedCompletion: "Pending manual analysis",
		},
		Contributions: contributions,
		Source:        SourceFallback,
		Model:         a.modelName(),
		GeneratedAt:   now,
		Detail:        truncate(raw, 2000),
	}
}

func (a *Analyzer) emergencyAnalysis(ds *dataset.Dataset, cause error) *Analysis {
	now := a.now()
	return &Analysis{
		Summary:       fmt.Sprintf("Chat processed automatically. The model analysis failed: %v", cause),
		KeyMilestones: []string{"Basic processing completed"},
		ProgressIndicators: []ProgressIndicator{{
			Indicator:   "Processing status",
			Value:       "Completed with errors",
			Date:        now.Format(time.RFC3339),
			Description: fmt.Sprintf("The chat %q was parsed but the model analysis failed", ds.Name),
		}},
		Challenges:      []string{"Automated analysis error"},
		Recommendations: []string{"Contact the system administrator", "Check the language model configuration"},
		Timeline: Timeline{
			ProjectStart:        "Undetermined",
			CurrentPhase:        "Analysis error",
			KeyDates:            []string{},
			EstimatedCompletion: "Requires manual analysis",
		},
		Contributions: map[string]string{},
		Source:        SourceEmergency,
		Model:         a.modelName(),
		GeneratedAt:   now,
		Detail:        cause.Error(),
	}
}

func (a *Analyzer) fallbackProjectLog(raw string) *ProjectLog {
	return &ProjectLog{
		Title:            "Project Chat Report",
		ExecutiveSummary: "The chat analysis could not be processed automatically. Review the original content.",
		Objectives:       []string{"Analyse the chat content"},
		Activities:       []Activity{},
		Achievements:     []string{},
		Obstacles:        []string{},
		Lessons:          []string{},
		Conclusions:      "The analysis requires manual review",
		Recommendations:  []string{"Review the original chat for more detail"},
		Source:           SourceFallback,
		Model:            a.modelName(),
		GeneratedAt:      a.now(),
		Detail:           truncate(raw, 2000),
	}
}

func (a *Analyzer) emergencyProjectLog(cause error) *ProjectLog {
	return &ProjectLog{
		Title:            "Project Report",
		ExecutiveSummary: fmt.Sprintf("Automatic analysis failed: %v", cause),
		Objectives:       []string{},
		Activities:       []Activity{},
		Achievements:     []string{},
		Obstacles:        []string{},
		Lessons:          []string{},
		Conclusions:      "The analysis could not be completed",
		Recommendations:  []string{},
		Source:           SourceEmergency,
		Model:            a.modelName(),
		GeneratedAt:      a.now(),
		Detail:           cause.Error(),
	}
}

func (a *Analyzer) modelName() string {
	if a.llm == nil {
		return ""
	}
	return a.llm.Model()
}
