package studio

// Format is one selectable output shape with its platform metadata.
type Format struct {
	ID          string `json:"id"`
	Label       string `json:"label"`
	AspectRatio string `json:"aspectRatio"`
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	Platform    string `json:"platform"`
}

var formats = []Format{
	{ID: "square", Label: "Square", AspectRatio: "1:1", Width: 1080, Height: 1080, Platform: "Instagram Post"},
	{ID: "landscape", Label: "Landscape", AspectRatio: "16:9", Width: 1920, Height: 1080, Platform: "YouTube Thumbnail"},
	{ID: "portrait", Label: "Portrait", AspectRatio: "4:5", Width: 1080, Height: 1350, Platform: "Instagram Story"},
	{ID: "wide", Label: "Wide", AspectRatio: "21:9", Width: 2560, Height: 1080, Platform: "Banner/Header"},
}

// DefaultFormatID is used when no selection has been persisted.
const DefaultFormatID = "square"

// Formats lists the selectable output formats in display order.
func Formats() []Format {
	out := make([]Format, len(formats))
	copy(out, formats)
	return out
}

// FormatByID returns the named format.
func FormatByID(id string) (Format, bool) {
	for _, f := range formats {
		if f.ID == id {
			return f, true
		}
	}
	return Format{}, false
}
