package transcript

import (
	"strings"
	"time"
)

// DateOrder selects whether day-first or month-first layouts are tried first.
// Exports carry no locale metadata, so this is policy, not detection.
type DateOrder int

const (
	DayFirst DateOrder = iota
	MonthFirst
)

// ParseDateOrder maps "mdy" to MonthFirst; anything else is DayFirst.
func ParseDateOrder(s string) DateOrder {
	if strings.EqualFold(strings.TrimSpace(s), "mdy") {
		return MonthFirst
	}
	return DayFirst
}

func (o DateOrder) String() string {
	if o == MonthFirst {
		return "mdy"
	}
	return "dmy"
}

var (
	dayFirstLayouts   = []string{"2/1/2006", "2/1/06", "1/2/2006", "1/2/06"}
	monthFirstLayouts = []string{"1/2/2006", "1/2/06", "2/1/2006", "2/1/06"}

	clock24Layouts       = []string{"15:04:05", "15:04"}
	clock12Layouts       = []string{"3:04:05", "3:04"}
	clockMeridiemLayouts = []string{"3:04:05 PM", "3:04 PM"}
)

// Normalizer turns header date/time text into a timestamp. It never fails:
// unparseable parts are replaced from the injected clock.
type Normalizer struct {
	order DateOrder
	now   func() time.Time
}

// NewNormalizer builds a normalizer. A nil clock means time.Now.
func NewNormalizer(order DateOrder, now func() time.Time) *Normalizer {
	if now == nil {
		now = time.Now
	}
	return &Normalizer{order: order, now: now}
}

// Normalize returns the wall-clock timestamp in UTC and whether any part
// came from the fallback clock.
func (n *Normalizer) Normalize(dateText, timeText, meridiem string) (time.Time, bool) {
	approximate := false

	date, ok := n.parseDate(dateText)
	if !ok {
		date = n.now()
		approximate = true
	}

	clock, ok := parseClock(timeText, meridiem)
	if !ok {
		clock = n.now()
		approximate = true
	}

	return time.Date(date.Year(), date.Month(), date.Day(),
		clock.Hour(), clock.Minute(), clock.Second(), 0, time.UTC), approximate
}

func (n *Normalizer) parseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
	layouts := dayFirstLayouts
	if n.order == MonthFirst {
		layouts = monthFirstLayouts
	}
	for _, layout := range layouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

func parseClock(s, meridiem string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if m := normalizeMeridiem(meridiem); m != "" {
		for _, layout := range clockMeridiemLayouts {
			if t, err := time.Parse(layout, s+" "+m); err == nil {
				return t, true
			}
		}
	}
	for _, layouts := range [][]string{clock24Layouts, clock12Layouts} {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, s); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

// normalizeMeridiem reduces "p. m.", "P.M.", "pm" and friends to "AM"/"PM".
func normalizeMeridiem(s string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(s) {
		if r == 'A' || r == 'P' || r == 'M' {
			b.WriteRune(r)
		}
	}
	switch b.String() {
	case "AM", "PM":
		return b.String()
	}
	return ""
}
