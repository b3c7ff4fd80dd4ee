package transcript

import "strings"

// ClassifyLine cleans a raw line and decides whether it starts a message,
// continues one, or is noise. Whether an orphan continuation is kept is the
// assembler's decision.
func ClassifyLine(raw string) Line {
	text := cleanLine(raw)
	if text == "" {
		return Line{Kind: KindNoise}
	}

	for _, rule := range headerRules {
		m := rule.Pattern.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		return Line{
			Kind: KindHeader,
			Text: text,
			Header: Header{
				Rule:     rule.Name,
				Date:     m[1],
				Time:     m[2],
				Meridiem: strings.TrimSpace(m[3]),
				Sender:   strings.TrimSpace(m[4]),
				Content:  strings.TrimSpace(m[5]),
			},
		}
	}

	for _, sys := range systemRules {
		if sys.MatchString(text) {
			return Line{Kind: KindNoise, Text: text}
		}
	}

	return Line{Kind: KindContinuation, Text: text}
}
