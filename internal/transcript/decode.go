package transcript

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

// invisibleMarks are exporter artifacts that may prefix a line.
const invisibleMarks = "\u200e\u200f\u200b\ufeff"

// Decode returns the transcript bytes as text. Input that is not valid UTF-8
// is read as Latin-1; if that also fails the result is empty.
func Decode(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	out, err := charmap.ISO8859_1.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// cleanLine trims surrounding whitespace and leading invisible marks.
func cleanLine(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimLeft(s, invisibleMarks)
	return strings.TrimSpace(s)
}

// splitLines splits on newlines; carriage returns are removed by cleanLine.
func splitLines(text string) []string {
	return strings.Split(text, "\n")
}
