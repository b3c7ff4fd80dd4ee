package dataset

import (
	"math"
	"sort"
	"strings"

	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

// PreviewLines is the number of leading transcript lines in Preview.
const PreviewLines = 10

// TextStats describes a raw transcript without assembling messages.
type TextStats struct {
	TotalLines        int      `json:"total_lines"`
	MessageLines      int      `json:"message_lines"`
	NonMessageLines   int      `json:"non_message_lines"`
	TotalParticipants int      `json:"total_participants"`
	Participants      []string `json:"participants"`
	TotalCharacters   int      `json:"total_characters"`
	TotalWords        int      `json:"total_words"`
	FileSizeKB        float64  `json:"file_size_kb"`
}

// Stats computes TextStats over decoded transcript text. Every line counts,
// blank ones included. sizeBytes is the size of the transcript file on disk.
func Stats(text string, sizeBytes int64) TextStats {
	var st TextStats
	seen := make(map[string]struct{})

	lines := strings.Split(text, "\n")
	st.TotalLines = len(lines)
	for _, raw := range lines {
		line := transcript.ClassifyLine(raw)
		if line.Kind != transcript.KindHeader {
			continue
		}
		st.MessageLines++
		if _, ok := seen[line.Header.Sender]; !ok {
			seen[line.Header.Sender] = struct{}{}
			st.Participants = append(st.Participants, line.Header.Sender)
		}
	}

	st.NonMessageLines = st.TotalLines - st.MessageLines
	sort.Strings(st.Participants)
	st.TotalParticipants = len(st.Participants)
	st.TotalCharacters = len([]rune(text))
	st.TotalWords = len(strings.Fields(text))
	st.FileSizeKB = math.Round(float64(sizeBytes)/1024*100) / 100
	return st
}

// Preview returns the first PreviewLines lines of text.
func Preview(text string) []string {
	lines := strings.SplitN(text, "\n", PreviewLines+1)
	if len(lines) > PreviewLines {
		lines = lines[:PreviewLines]
	}
	return lines
}
