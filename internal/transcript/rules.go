package transcript

import (
	"regexp"
	"strings"
)

// Exporters insert no-break and narrow no-break spaces around the time.
const sp = `[\s\x{00A0}\x{202F}]`

const (
	datePart     = `(\d{1,2}/\d{1,2}/\d{2,4})`
	timePart     = `(\d{1,2}:\d{2}(?::\d{2})?)`
	meridiemPart = `((?i:[ap]\.?` + sp + `*m\.?))?`
)

// headerRule is one accepted header layout. Rules are evaluated in slice
// order and the first match wins.
type headerRule struct {
	Name    string
	Pattern *regexp.Regexp
}

// Each pattern captures date, time, meridiem, sender, content.
var headerRules = []headerRule{
	{
		// [01/02/24, 9:15:00 PM] Luis: text
		Name: "bracketed",
		Pattern: regexp.MustCompile(`^\[` + datePart + `,?` + sp + `+` + timePart + sp + `*` + meridiemPart + sp + `*\]` +
			sp + `*([^:]+?)` + sp + `*:` + sp + `*(.*)$`),
	},
	{
		// 12/5/23, 14:05 - Ana: text
		Name: "dashed",
		Pattern: regexp.MustCompile(`^` + datePart + `,?` + sp + `+` + timePart + sp + `*` + meridiemPart + sp + `*[-–]` +
			sp + `*([^:]+?)` + sp + `*:` + sp + `*(.*)$`),
	},
}

// systemRules match a date/time prefix without a sender, e.g. encryption
// notices and membership changes. Such lines are noise.
var systemRules = []*regexp.Regexp{
	regexp.MustCompile(`^\[` + datePart + `,?` + sp + `+` + timePart + sp + `*` + meridiemPart + sp + `*\]`),
	regexp.MustCompile(`^` + datePart + `,?` + sp + `+` + timePart + sp + `*` + meridiemPart + sp + `*[-–]`),
}

// contentRule maps a pattern over lowercased content to a message type.
type contentRule struct {
	Name    string
	Type    Type
	Pattern *regexp.Regexp
}

const attachedPrefix = `<attached:` + sp + `*[^>]*\.`

// contentRules is the canonical classification table shared by every caller.
// Attachment markers are checked by extension first; any other marker is an
// image. Then come the vocabulary rules in their historical order. No match
// means TypeText.
var contentRules = []contentRule{
	{Name: "media-omitted", Type: TypeImage, Pattern: regexp.MustCompile(`<media omitted>|<se omitió multimedia>|\(archivo adjunto\)|image omitted|imagen omitida`)},
	{Name: "attached-image", Type: TypeImage, Pattern: regexp.MustCompile(attachedPrefix + `(jpe?g|png|gif|bmp|webp|heic)>`)},
	{Name: "attached-document", Type: TypeDocument, Pattern: regexp.MustCompile(attachedPrefix + `(pdf|docx?|xlsx?|pptx?|txt|csv|vcf|zip)>`)},
	{Name: "attached-audio", Type: TypeAudio, Pattern: regexp.MustCompile(attachedPrefix + `(opus|mp3|wav|ogg|m4a|aac)>`)},
	{Name: "attached-video", Type: TypeVideo, Pattern: regexp.MustCompile(attachedPrefix + `(mp4|avi|mov|3gp|mkv|webm)>`)},
	{Name: "attached-other", Type: TypeImage, Pattern: regexp.MustCompile(attachedPrefix + `[^>]+>`)},
	{Name: "document-vocabulary", Type: TypeDocument, Pattern: regexp.MustCompile(`\b(documento|document|archivo|file)\b`)},
	{Name: "audio-vocabulary", Type: TypeAudio, Pattern: regexp.MustCompile(`\baudio\b|voice note|nota de voz|audio omitted`)},
	{Name: "video-vocabulary", Type: TypeVideo, Pattern: regexp.MustCompile(`\bv[ií]deo\b`)},
	{Name: "location-vocabulary", Type: TypeLocation, Pattern: regexp.MustCompile(`ubicación compartida|location shared|live location|ubicación en tiempo real`)},
}

// Classify assigns exactly one type to finalized message content.
func Classify(content string) Type {
	lower := strings.ToLower(content)
	for _, r := range contentRules {
		if r.Pattern.MatchString(lower) {
			return r.Type
		}
	}
	return TypeText
}
