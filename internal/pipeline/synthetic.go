package pipeline

import (
	"time"

	"github.com/teambition/rrule-go"

	appLog "pogoslides/internal/log"
)

// Synthetic describes a recurring item injected into the current sets on the
// days its recurrence rule fires, so the board has something to show for
// weekly content the feed omits.
type Synthetic struct {
	Name  string
	RRule string // e.g. "FREQ=WEEKLY;BYDAY=SU"
	Image string
	Link  string
}

// DefaultSynthetics is the built-in set: community Trade Day every Sunday.
var DefaultSynthetics = []Synthetic{
	{
		Name:  "Trade Day",
		RRule: "FREQ=WEEKLY;BYDAY=SU",
		Image: PlaceholderImage,
		Link:  PlaceholderLink,
	},
}

// OccursOn reports whether the rule fires on the calendar day containing day.
// A rule that fails to parse never fires; that is logged once per compose
// pass rather than surfaced, matching how the rest of the pipeline degrades.
func (s Synthetic) OccursOn(day time.Time) bool {
	r, err := rrule.StrToRRule(s.RRule)
	if err != nil {
		appLog.Error("synthetic rrule parse failed", err, "name", s.Name, "rrule", s.RRule)
		return false
	}
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	dayEnd := dayStart.Add(24*time.Hour - time.Second)

	// Anchor the rule well before any day we will ever ask about.
	r.DTStart(dayStart.AddDate(-1, 0, 0))

	return len(r.Between(dayStart, dayEnd, true)) > 0
}

// classified builds the synthetic's stand-in event, active for the whole of
// the given calendar day.
func (s Synthetic) classified(day time.Time, category string) Classified {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	image := s.Image
	link := s.Link
	c := Classified{
		Category: category,
		Start:    dayStart.In(referenceZone),
		End:      dayStart.Add(24*time.Hour - time.Second).In(referenceZone),
	}
	c.Raw.Name = s.Name
	c.Raw.Heading = category
	c.Raw.Image = &image
	c.Raw.Link = &link
	return c
}
