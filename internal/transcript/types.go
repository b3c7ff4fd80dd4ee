package transcript

import "time"

// Type is the semantic kind of a message, derived from its content.
type Type string

const (
	TypeText     Type = "text"
	TypeImage    Type = "image"
	TypeDocument Type = "document"
	TypeAudio    Type = "audio"
	TypeVideo    Type = "video"
	TypeLocation Type = "location"
)

// Message is a single finalized chat message.
type Message struct {
	Timestamp time.Time `json:"timestamp"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Type      Type      `json:"type"`

	// AttachmentFilename is set only when the content carries an attachment
	// marker whose file exists among the extracted media.
	AttachmentFilename string `json:"attachment_filename,omitempty"`

	// Raw header text, kept for renderers that echo the original header.
	DateText string `json:"date_text"`
	TimeText string `json:"time_text"`
	Meridiem string `json:"meridiem,omitempty"`

	// Approximate is true when the date or time fell back to the clock.
	Approximate bool `json:"approximate,omitempty"`
}

// LineKind classifies a raw transcript line.
type LineKind int

const (
	KindNoise LineKind = iota
	KindHeader
	KindContinuation
)

func (k LineKind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindContinuation:
		return "continuation"
	default:
		return "noise"
	}
}

// Header holds the groups captured from a header line.
type Header struct {
	Rule     string
	Date     string
	Time     string
	Meridiem string
	Sender   string
	Content  string
}

// Line is one cleaned transcript line with its classification.
type Line struct {
	Kind   LineKind
	Text   string
	Header Header
}
