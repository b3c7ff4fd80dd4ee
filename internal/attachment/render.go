package attachment

import (
	"fmt"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

// Mode selects how marker text appears in rendered output.
type Mode int

const (
	// ModeStrip removes the marker text and shows only the attachment.
	ModeStrip Mode = iota
	// ModePreserve keeps the content verbatim and adds the attachment after it.
	ModePreserve
)

// ParseMode accepts "strip" (default when empty) or "preserve".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "strip":
		return ModeStrip, nil
	case "preserve":
		return ModePreserve, nil
	}
	return ModeStrip, fmt.Errorf("unknown render mode %q", s)
}

func (m Mode) String() string {
	if m == ModePreserve {
		return "preserve"
	}
	return "strip"
}

// Rendered is the display form of one message.
type Rendered struct {
	Text string
	// Filename is the referenced file, found or not.
	Filename string
	// Path is set when the file exists among the media.
	Path string
	// Missing is true when a marker names a file that is not in the media.
	Missing bool
}

// HasAttachment reports whether the message referenced a file.
func (r Rendered) HasAttachment() bool { return r.Filename != "" }

// Render prepares a message for display under mode.
func Render(msg transcript.Message, media Lookup, mode Mode) Rendered {
	name, ok := Find(msg.Content)
	if !ok {
		return Rendered{Text: msg.Content}
	}

	r := Rendered{Filename: name, Text: msg.Content}
	if mode == ModeStrip {
		r.Text = Strip(msg.Content)
	}
	if path, found := media.Lookup(name); found {
		r.Path = path
	} else {
		r.Missing = true
	}
	return r
}

// Evidence is one attachment referenced somewhere in the transcript.
type Evidence struct {
	Filename  string
	Path      string
	Missing   bool
	Sender    string
	Timestamp time.Time
	DateText  string
	TimeText  string
}

// Caption describes where the evidence came from.
func (e Evidence) Caption() string {
	if e.Sender == "" {
		return e.Filename
	}
	return fmt.Sprintf("Sent %s %s by %s", e.DateText, e.TimeText, e.Sender)
}

// CollectEvidence walks every marker across msgs and returns each filename
// once, in first-reference order. keep filters by filename; nil keeps all.
func CollectEvidence(msgs []transcript.Message, media Lookup, keep func(name string) bool) []Evidence {
	seen := make(map[string]bool)
	var out []Evidence
	for _, msg := range msgs {
		for _, name := range FindAll(msg.Content) {
			if seen[name] {
				continue
			}
			seen[name] = true
			if keep != nil && !keep(name) {
				continue
			}
			ev := Evidence{
				Filename:  name,
				Sender:    msg.Sender,
				Timestamp: msg.Timestamp,
				DateText:  msg.DateText,
				TimeText:  msg.TimeText,
			}
			if path, found := media.Lookup(name); found {
				ev.Path = path
			} else {
				ev.Missing = true
			}
			out = append(out, ev)
		}
	}
	return out
}
