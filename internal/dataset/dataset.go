// Package dataset folds a parsed message sequence into the aggregate handed to
// the analysis and rendering collaborators.
package dataset

import (
	"sort"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/archive"
	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

// Dataset is one parsed chat. It is not modified after Build.
type Dataset struct {
	Name         string               `json:"name"`
	Messages     []transcript.Message `json:"messages"`
	Participants []string             `json:"participants"`
	Start        *time.Time           `json:"start,omitempty"`
	End          *time.Time           `json:"end,omitempty"`

	Media *archive.MediaIndex `json:"-"`
}

// Build aggregates msgs. Start and End are nil when msgs is empty.
func Build(name string, msgs []transcript.Message, media *archive.MediaIndex) *Dataset {
	ds := &Dataset{
		Name:         name,
		Messages:     msgs,
		Participants: participants(msgs),
		Media:        media,
	}
	if len(msgs) == 0 {
		return ds
	}

	start, end := msgs[0].Timestamp, msgs[0].Timestamp
	for _, m := range msgs[1:] {
		if m.Timestamp.Before(start) {
			start = m.Timestamp
		}
		if m.Timestamp.After(end) {
			end = m.Timestamp
		}
	}
	ds.Start, ds.End = &start, &end
	return ds
}

// Len returns the message count.
func (d *Dataset) Len() int { return len(d.Messages) }

// Lookup resolves a media file name, satisfying attachment.Lookup.
func (d *Dataset) Lookup(name string) (string, bool) {
	return d.Media.Lookup(name)
}

func participants(msgs []transcript.Message) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, m := range msgs {
		if m.Sender == "" {
			continue
		}
		if _, ok := seen[m.Sender]; ok {
			continue
		}
		seen[m.Sender] = struct{}{}
		out = append(out, m.Sender)
	}
	sort.Strings(out)
	return out
}

// Summary is the compact description of a dataset returned to API callers.
type Summary struct {
	Name                  string                  `json:"name"`
	Messages              int                     `json:"messages"`
	Participants          []string                `json:"participants"`
	Start                 *time.Time              `json:"start,omitempty"`
	End                   *time.Time              `json:"end,omitempty"`
	MediaFiles            int                     `json:"media_files"`
	Attachments           int                     `json:"attachments"`
	ApproximateTimestamps int                     `json:"approximate_timestamps"`
	Types                 map[transcript.Type]int `json:"types"`
}

// Summarize counts messages by type and flags.
func (d *Dataset) Summarize() Summary {
	s := Summary{
		Name:         d.Name,
		Messages:     len(d.Messages),
		Participants: d.Participants,
		Start:        d.Start,
		End:          d.End,
		MediaFiles:   d.Media.Len(),
		Types:        make(map[transcript.Type]int),
	}
	for _, m := range d.Messages {
		s.Types[m.Type]++
		if m.AttachmentFilename != "" {
			s.Attachments++
		}
		if m.Approximate {
			s.ApproximateTimestamps++
		}
	}
	return s
}
