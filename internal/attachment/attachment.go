// Package attachment links "<attached: name>" markers in message content to
// media files extracted from the archive.
package attachment

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

// markerPattern tolerates a leading left-to-right mark and optional
// whitespace after the colon.
var markerPattern = regexp.MustCompile(`(?i)\x{200E}?<attached:[\s\x{00A0}\x{202F}]*([^<>]+?\.[a-z0-9]+)>`)

// Lookup resolves a bare filename to a file on disk.
type Lookup interface {
	Lookup(name string) (string, bool)
}

// Find returns the first filename referenced by content.
func Find(content string) (string, bool) {
	m := markerPattern.FindStringSubmatch(content)
	if m == nil {
		return "", false
	}
	return strings.TrimSpace(m[1]), true
}

// FindAll returns every filename referenced by content, in order.
func FindAll(content string) []string {
	var names []string
	for _, m := range markerPattern.FindAllStringSubmatch(content, -1) {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}

// Strip removes every marker from content.
func Strip(content string) string {
	return strings.TrimSpace(markerPattern.ReplaceAllString(content, ""))
}

// Resolve returns a copy of msgs with AttachmentFilename set on every message
// whose first marker names a file present in media. The input is not modified.
func Resolve(msgs []transcript.Message, media Lookup) []transcript.Message {
	out := make([]transcript.Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		name, ok := Find(out[i].Content)
		if !ok {
			continue
		}
		if _, found := media.Lookup(name); found {
			out[i].AttachmentFilename = name
		}
	}
	return out
}

// MissingMarker is the text shown in place of a referenced file that was not
// in the archive.
func MissingMarker(name string) string {
	return fmt.Sprintf("[attachment not found: %s]", name)
}
