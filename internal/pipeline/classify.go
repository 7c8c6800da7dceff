package pipeline

import (
	"strings"
	"time"

	"pogoslides/internal/model"
)

// DefaultWindow is how far ahead an event may start and still count as
// upcoming.
const DefaultWindow = 30 * 24 * time.Hour

// DefaultExcluded lists headings that are never shown. GO Battle League
// rotations are recurring PvP content with no display value on the board.
var DefaultExcluded = []string{"GO Battle League"}

// Classified is a read-only view of one feed event annotated with its
// normalized endpoints and grouping key. The raw event is never mutated.
type Classified struct {
	Raw      model.Event
	Category string
	Start    time.Time
	End      time.Time
}

// Classification holds the two disjoint output sets of Classify.
type Classification struct {
	Current  []Classified
	Upcoming []Classified
}

// ExclusionSet builds a case-folded lookup set from heading strings.
func ExclusionSet(headings []string) map[string]bool {
	set := make(map[string]bool, len(headings))
	for _, h := range headings {
		set[strings.ToLower(NormalizeCategory(h))] = true
	}
	return set
}

// Classify partitions raw events into current and upcoming sets at the given
// instant. Events with an unparseable start or end are dropped, as are events
// whose normalized category is excluded; events already over or starting
// beyond the window are dropped too. The result is a pure function of
// (events, now, window, excluded).
func Classify(events []model.Event, now time.Time, window time.Duration, excluded map[string]bool) Classification {
	if window <= 0 {
		window = DefaultWindow
	}
	now = now.In(referenceZone)
	horizon := now.Add(window)

	var out Classification
	for _, ev := range events {
		start, ok := ParseWhen(ev.Start)
		if !ok {
			continue
		}
		end, ok := ParseWhen(ev.End)
		if !ok {
			continue
		}
		category := NormalizeCategory(ev.Heading)
		if excluded[strings.ToLower(category)] {
			continue
		}

		c := Classified{Raw: ev, Category: category, Start: start, End: end}
		switch {
		case !start.After(now) && !end.Before(now):
			out.Current = append(out.Current, c)
		case start.After(now) && !start.After(horizon):
			out.Upcoming = append(out.Upcoming, c)
		}
	}
	return out
}
