package pipeline

import (
	"fmt"
	"sort"
	"time"

	"pogoslides/internal/model"
)

// Per-slide item caps.
const (
	splitPaneCap = 5
	researchCap  = 50
	raidCap      = 10
	groupCap     = 10
	upcomingCap  = 200
)

// Placeholder assets for synthetic items and the fallback slide.
const (
	PlaceholderImage = "https://leekduck.com/assets/img/events/default.jpg"
	PlaceholderLink  = "https://leekduck.com/events/"
)

// Composer turns classified event sets into the ordered slide sequence. The
// zero value composes with the default window, the server's local zone and
// the built-in synthetics.
type Composer struct {
	// Window is the upcoming horizon, used only for the upcoming slide's
	// subtitle; classification applies it earlier.
	Window time.Duration

	// LocalZone is the calendar zone for synthetic recurrence checks. This
	// is deliberately the server's local zone even though event comparison
	// runs in the reference zone; see the normalize.go note.
	LocalZone *time.Location

	Synthetics []Synthetic
}

// Compose assembles the display rotation from the classified sets. Output is
// fully determined by its inputs: identical sets and an identical now yield
// an identical slide sequence.
func (c Composer) Compose(cl Classification, now time.Time) []model.Slide {
	window := c.Window
	if window <= 0 {
		window = DefaultWindow
	}
	loc := c.LocalZone
	if loc == nil {
		loc = time.Local
	}
	synthetics := c.Synthetics
	if synthetics == nil {
		synthetics = DefaultSynthetics
	}

	groups := groupByCategory(cl.Current)
	slides := make([]model.Slide, 0, groups.len()+2)

	// 1. Season / GO Pass make one split slide.
	season := groups.pop("Season")
	goPass := groups.pop("GO Pass")
	if len(season) > 0 || len(goPass) > 0 {
		slides = append(slides, model.Slide{
			Title: "Season & GO Pass",
			Left:  &model.Pane{Title: "GO Pass", Items: currentItems(goPass, splitPaneCap)},
			Right: &model.Pane{Title: "Season", Items: currentItems(season, splitPaneCap)},
		})
	}

	// 2. Research and Timed Research merge into one labeled list.
	research := groups.pop("Research")
	timed := groups.pop("Timed Research")
	if len(research) > 0 || len(timed) > 0 {
		slides = append(slides, composeResearch(research, timed))
	}

	// 3. Synthetic recurring items join the general event group before it is
	// sorted, using the local calendar day.
	localDay := now.In(loc)
	for _, syn := range synthetics {
		if !syn.OccursOn(localDay) {
			continue
		}
		target := "Events"
		if groups.has("Event") {
			target = "Event"
		}
		groups.add(target, syn.classified(localDay, target))
	}

	// 4. Raid Battles go ahead of everything else that is left.
	if raids := groups.pop("Raid Battles"); len(raids) > 0 {
		slides = append(slides, model.Slide{
			Title: "Current Raid Battles",
			Items: currentItems(raids, raidCap),
		})
	}

	// 5. Remaining groups, alphabetical by category key.
	keys := groups.keys()
	sort.Strings(keys)
	for _, key := range keys {
		events := groups.pop(key)
		if len(events) == 0 {
			continue
		}
		slides = append(slides, model.Slide{
			Title: "Current " + key,
			Items: currentItems(events, groupCap),
		})
	}

	// 6. One slide for everything upcoming, spanning all categories.
	if len(cl.Upcoming) > 0 {
		slides = append(slides, composeUpcoming(cl.Upcoming, window))
	}

	if len(slides) == 0 {
		slides = append(slides, fallbackSlide())
	}
	return slides
}

// currentItems sorts a current group soonest-ending first and renders it,
// capped at n.
func currentItems(events []Classified, n int) []model.ListItem {
	sorted := append([]Classified(nil), events...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].End.Before(sorted[j].End)
	})
	items := make([]model.ListItem, 0, min(len(sorted), n))
	for _, ev := range sorted[:min(len(sorted), n)] {
		items = append(items, itemFrom(ev, ev.Category))
	}
	return items
}

// composeResearch merges the two research groups, tagging each item with its
// source label and sorting by (end, label, name).
func composeResearch(research, timed []Classified) model.Slide {
	type tagged struct {
		ev    Classified
		label string
	}
	combined := make([]tagged, 0, len(research)+len(timed))
	for _, ev := range research {
		combined = append(combined, tagged{ev, "Research"})
	}
	for _, ev := range timed {
		combined = append(combined, tagged{ev, "Timed Research"})
	}
	sort.SliceStable(combined, func(i, j int) bool {
		a, b := combined[i], combined[j]
		if !a.ev.End.Equal(b.ev.End) {
			return a.ev.End.Before(b.ev.End)
		}
		if a.label != b.label {
			return a.label < b.label
		}
		return a.ev.Raw.Name < b.ev.Raw.Name
	})

	items := make([]model.ListItem, 0, min(len(combined), researchCap))
	for _, t := range combined[:min(len(combined), researchCap)] {
		items = append(items, itemFrom(t.ev, t.label))
	}
	return model.Slide{Title: "Current research", Items: items}
}

// composeUpcoming renders the merged upcoming set: ascending by start, ties
// broken by category then name so the order is total.
func composeUpcoming(upcoming []Classified, window time.Duration) model.Slide {
	sorted := append([]Classified(nil), upcoming...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if !a.Start.Equal(b.Start) {
			return a.Start.Before(b.Start)
		}
		if a.Category != b.Category {
			return a.Category < b.Category
		}
		return a.Raw.Name < b.Raw.Name
	})

	items := make([]model.ListItem, 0, min(len(sorted), upcomingCap))
	for _, ev := range sorted[:min(len(sorted), upcomingCap)] {
		items = append(items, itemFrom(ev, ev.Category))
	}
	return model.Slide{
		Title:    "Upcoming events",
		Subtitle: fmt.Sprintf("Next %d days", int(window.Hours()/24)),
		Items:    items,
	}
}

// fallbackSlide keeps the rotation non-empty when every set filtered down to
// nothing. An always-on display should never face an empty response.
func fallbackSlide() model.Slide {
	return model.Slide{
		Title: "No current events",
		Items: []model.ListItem{
			{
				Title:    "Nothing scheduled right now",
				ImageURL: PlaceholderImage,
				URL:      PlaceholderLink,
			},
		},
		URL: PlaceholderLink,
	}
}

func itemFrom(ev Classified, subtitle string) model.ListItem {
	return model.ListItem{
		Title:    ev.Raw.Name,
		Subtitle: subtitle,
		ImageURL: ev.Raw.ImageURL(),
		Value:    FormatRange(ev.Raw.Start, ev.Raw.End),
		URL:      ev.Raw.LinkURL(),
	}
}

// eventGroups is an insertion-ordered category -> events mapping. Rules
// consume groups via pop, so each group is emitted at most once.
type eventGroups struct {
	order []string
	byKey map[string][]Classified
}

func groupByCategory(events []Classified) *eventGroups {
	g := &eventGroups{byKey: make(map[string][]Classified)}
	for _, ev := range events {
		g.add(ev.Category, ev)
	}
	return g
}

func (g *eventGroups) add(key string, ev Classified) {
	if _, ok := g.byKey[key]; !ok {
		g.order = append(g.order, key)
	}
	g.byKey[key] = append(g.byKey[key], ev)
}

func (g *eventGroups) has(key string) bool {
	_, ok := g.byKey[key]
	return ok
}

// pop removes and returns the group for key; nil when absent.
func (g *eventGroups) pop(key string) []Classified {
	events, ok := g.byKey[key]
	if !ok {
		return nil
	}
	delete(g.byKey, key)
	for i, k := range g.order {
		if k == key {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	return events
}

func (g *eventGroups) keys() []string {
	return append([]string(nil), g.order...)
}

func (g *eventGroups) len() int { return len(g.order) }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
