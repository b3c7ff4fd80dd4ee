package transcript

import (
	"strings"
	"time"
)

// Options configures transcript parsing.
type Options struct {
	DateOrder DateOrder
	// Now supplies fallback dates and times; nil means time.Now.
	Now func() time.Time
}

type assemblerState int

const (
	stateIdle assemblerState = iota
	stateAccumulating
)

// Assembler folds classified lines into messages. It is a two-state machine:
// idle (no message open) and accumulating (a header opened a message).
type Assembler struct {
	normalizer *Normalizer
	state      assemblerState
	header     Header
	lines      []string
	out        []Message
}

// NewAssembler returns an idle assembler.
func NewAssembler(n *Normalizer) *Assembler {
	return &Assembler{normalizer: n}
}

// Feed consumes one classified line.
func (a *Assembler) Feed(line Line) {
	switch line.Kind {
	case KindHeader:
		if a.state == stateAccumulating {
			a.finalize()
		}
		a.open(line.Header)
	case KindContinuation:
		if a.state == stateAccumulating {
			a.lines = append(a.lines, line.Text)
		}
	}
}

// Finish finalizes any open message and returns the ordered sequence.
// The assembler is idle and empty afterwards.
func (a *Assembler) Finish() []Message {
	if a.state == stateAccumulating {
		a.finalize()
	}
	out := a.out
	a.out = nil
	return out
}

func (a *Assembler) open(h Header) {
	a.state = stateAccumulating
	a.header = h
	a.lines = a.lines[:0]
	if h.Content != "" {
		a.lines = append(a.lines, h.Content)
	}
}

func (a *Assembler) finalize() {
	content := strings.TrimSpace(strings.Join(a.lines, "\n"))
	ts, approx := a.normalizer.Normalize(a.header.Date, a.header.Time, a.header.Meridiem)

	a.out = append(a.out, Message{
		Timestamp:   ts,
		Sender:      a.header.Sender,
		Content:     content,
		Type:        Classify(content),
		DateText:    a.header.Date,
		TimeText:    a.header.Time,
		Meridiem:    a.header.Meridiem,
		Approximate: approx,
	})

	a.state = stateIdle
	a.header = Header{}
	a.lines = a.lines[:0]
}

// Parse turns transcript text into ordered messages. Identical input and
// clock yield identical output.
func Parse(text string, opts Options) []Message {
	asm := NewAssembler(NewNormalizer(opts.DateOrder, opts.Now))
	for _, raw := range splitLines(text) {
		asm.Feed(ClassifyLine(raw))
	}
	return asm.Finish()
}

// ParseBytes decodes raw transcript bytes and parses them.
func ParseBytes(b []byte, opts Options) []Message {
	return Parse(Decode(b), opts)
}

// CountHeaders returns the number of header lines in text.
func CountHeaders(text string) int {
	n := 0
	for _, raw := range splitLines(text) {
		if ClassifyLine(raw).Kind == KindHeader {
			n++
		}
	}
	return n
}
