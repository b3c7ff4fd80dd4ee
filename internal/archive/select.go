package archive

import (
	"path"
	"strings"
)

// transcriptMarkers are looked for, case-insensitively, in transcript names.
var transcriptMarkers = []string{"chat", "whatsapp"}

// selectTranscript prefers the first .txt entry whose name carries a
// transcript marker, then the largest .txt entry. Ties keep archive order.
func selectTranscript(entries []entry) (entry, bool) {
	var largest entry
	found := false
	for _, e := range entries {
		if !isText(e.name) {
			continue
		}
		base := strings.ToLower(path.Base(e.name))
		for _, m := range transcriptMarkers {
			if strings.Contains(base, m) {
				return e, true
			}
		}
		if !found || e.size > largest.size {
			largest = e
			found = true
		}
	}
	return largest, found
}

func isText(name string) bool {
	return strings.EqualFold(path.Ext(name), ".txt")
}

// ChatName derives a display name from the transcript's file name: the
// extension and a trailing "_chat" are removed, and a "WhatsApp Chat with"
// prefix is dropped. It returns "" when nothing is left.
func ChatName(transcriptName string) string {
	name := strings.TrimSuffix(path.Base(transcriptName), path.Ext(transcriptName))
	if strings.EqualFold(name, "_chat") {
		return ""
	}
	if i := len(name) - len("_chat"); i > 0 && strings.EqualFold(name[i:], "_chat") {
		name = name[:i]
	}
	for _, prefix := range []string{"WhatsApp Chat with ", "WhatsApp Chat - ", "Chat de WhatsApp con "} {
		if len(name) > len(prefix) && strings.EqualFold(name[:len(prefix)], prefix) {
			name = name[len(prefix):]
			break
		}
	}
	return strings.TrimSpace(name)
}
