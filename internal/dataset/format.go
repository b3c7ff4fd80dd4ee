package dataset

import (
	"fmt"
	"strings"

	"github.com/MikeSquared-Agency/chatreport/internal/transcript"
)

// ContextTimeLayout is the timestamp form used in model context.
const ContextTimeLayout = "2006-01-02 15:04"

// Sample returns at most max messages: all of them when they fit, otherwise
// the first half and the last half of the budget. The second return value is
// the number of messages left out.
func Sample(msgs []transcript.Message, max int) ([]transcript.Message, int) {
	if max <= 0 || len(msgs) <= max {
		return msgs, 0
	}
	head := max / 2
	tail := max - head
	out := make([]transcript.Message, 0, max)
	out = append(out, msgs[:head]...)
	out = append(out, msgs[len(msgs)-tail:]...)
	return out, len(msgs) - max
}

// FormatContext renders the dataset as one "[time] sender: content" line per
// message, sampled to max messages.
func FormatContext(d *Dataset, max int) string {
	msgs, omitted := Sample(d.Messages, max)
	head := len(msgs)
	if omitted > 0 {
		head = max / 2
	}

	var sb strings.Builder
	for i, m := range msgs {
		if omitted > 0 && i == head {
			fmt.Fprintf(&sb, "[... %d messages omitted ...]\n", omitted)
		}
		fmt.Fprintf(&sb, "[%s] %s: %s\n", m.Timestamp.Format(ContextTimeLayout), m.Sender, m.Content)
	}
	return sb.String()
}
