package slots

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var labelPattern = regexp.MustCompile(`^(\d{1,2}):(\d{2})-(\d{1,2}):(\d{2})$`)

// Slot is the canonical form of a slot label
type Slot struct {
	StartHour   int
	StartMinute int
	EndHour     int
	EndMinute   int
}

// Label renders the slot as HH:MM-HH:MM
func (s Slot) Label() string {
	return fmt.Sprintf("%02d:%02d-%02d:%02d", s.StartHour, s.StartMinute, s.EndHour, s.EndMinute)
}

// ParseLabel parses labels such as "8:00 - 9:00". Whitespace anywhere in the label is ignored.
// ok is false for anything that is not hh:mm-hh:mm with a valid clock time on both sides.
func ParseLabel(raw string) (Slot, bool) {
	compact := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, raw)

	match := labelPattern.FindStringSubmatch(compact)
	if match == nil {
		return Slot{}, false
	}

	var parts [4]int
	for i := range parts {
		parts[i], _ = strconv.Atoi(match[i+1])
	}
	s := Slot{StartHour: parts[0], StartMinute: parts[1], EndHour: parts[2], EndMinute: parts[3]}
	if s.StartHour > 23 || s.EndHour > 24 || s.StartMinute > 59 || s.EndMinute > 59 {
		return Slot{}, false
	}
	return s, true
}

// NormalizeLabel returns the canonical label, or "" and false if raw is malformed
func NormalizeLabel(raw string) (string, bool) {
	s, ok := ParseLabel(raw)
	if !ok {
		return "", false
	}
	return s.Label(), true
}

// LabelFor returns the label of the one-hour slot starting at start, formatted in loc
func LabelFor(start time.Time, loc *time.Location) string {
	return SpanLabel(start, time.Hour, loc)
}

// SpanLabel returns the HH:MM-HH:MM label covering [start, start+d) formatted in loc
func SpanLabel(start time.Time, d time.Duration, loc *time.Location) string {
	return start.In(loc).Format("15:04") + "-" + start.Add(d).In(loc).Format("15:04")
}
