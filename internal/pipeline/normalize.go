package pipeline

import (
	"strings"
	"time"
)

// referenceZone is the zone every timestamp is normalized into before any
// comparison or display formatting. The upstream feed sometimes emits
// zone-less timestamps; whether those are meant as local or UTC is not
// documented anywhere, so we follow the feed's apparent convention and read
// them as UTC. Changing this moves events across the current/upcoming
// boundary, so leave it alone unless the feed starts shipping offsets.
var referenceZone = time.UTC

// zonedLayouts carry an explicit offset; zonelessLayouts are interpreted in
// the reference zone.
var zonedLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"January 2, 2006 15:04",
	"January 2, 2006",
	"Jan 2, 2006 15:04",
	"Jan 2, 2006",
}

// ParseWhen parses a date-ish feed string into an absolute instant in the
// reference zone. The second return is false for empty input or anything no
// layout accepts; callers treat that as "no value", not as an error.
func ParseWhen(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.In(referenceZone), true
		}
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, referenceZone); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// FormatWhen renders a feed timestamp for display as "Jan 02, 15:04". When
// the raw string does not parse it is returned trimmed, so the display shows
// whatever the feed said instead of nothing.
func FormatWhen(raw string) string {
	t, ok := ParseWhen(raw)
	if !ok {
		return strings.TrimSpace(raw)
	}
	return t.Format("Jan 02, 15:04")
}

// FormatRange joins the formatted start and end with " - ", dropping the
// separator when either side is missing.
func FormatRange(start, end string) string {
	s := FormatWhen(start)
	e := FormatWhen(end)
	switch {
	case s == "" && e == "":
		return ""
	case s == "":
		return e
	case e == "":
		return s
	}
	return s + " - " + e
}

// fallbackCategory is the grouping key for events with no usable heading.
const fallbackCategory = "Other"

// NormalizeCategory collapses whitespace variance in a free-text heading into
// a stable grouping key. Empty headings land in the fallback category.
func NormalizeCategory(heading string) string {
	fields := strings.Fields(heading)
	if len(fields) == 0 {
		return fallbackCategory
	}
	return strings.Join(fields, " ")
}
