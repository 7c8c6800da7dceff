package model

// Event is a single raw record from the upstream events feed. The feed is a
// plain JSON array and carries no schema guarantees; every field may be
// missing. Image and Link are pointers so that an absent URL stays
// distinguishable from an empty one.
type Event struct {
	Name    string  `json:"name"`
	Heading string  `json:"heading"`
	Start   string  `json:"start"`
	End     string  `json:"end"`
	Image   *string `json:"image"`
	Link    *string `json:"link"`
}

// ImageURL returns the image URL or "" when absent.
func (e Event) ImageURL() string {
	if e.Image == nil {
		return ""
	}
	return *e.Image
}

// LinkURL returns the link URL or "" when absent.
func (e Event) LinkURL() string {
	if e.Link == nil {
		return ""
	}
	return *e.Link
}

// ListItem is one display-ready row on a slide.
type ListItem struct {
	Title    string `json:"title"`
	Subtitle string `json:"subtitle,omitempty"`
	ImageURL string `json:"imageUrl,omitempty"`
	Value    string `json:"value,omitempty"`
	URL      string `json:"url,omitempty"`
}

// Pane is one half of a split slide.
type Pane struct {
	Title string     `json:"title"`
	Items []ListItem `json:"items"`
}

// Slide is one unit of the display rotation. A simple slide fills Items; a
// split slide fills Left and Right instead and leaves Items nil. Slide order
// in the output sequence is the rotation order and is part of the contract.
type Slide struct {
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle,omitempty"`
	Items    []ListItem `json:"items,omitempty"`
	URL      string     `json:"url,omitempty"`
	Left     *Pane      `json:"left,omitempty"`
	Right    *Pane      `json:"right,omitempty"`
}
