// Package onboarding collects brand preferences through a short wizard
// and turns them into the initial prompt for a new session.
package onboarding

import (
	"fmt"
	"strings"

	"github.com/21-UR-0241/nano-banana/internal/prompt"
)

// Data holds the wizard answers. Zero values fall back to defaults in
// BuildPrompt, so every step is skippable.
type Data struct {
	Industry       string
	Niche          string
	TargetAudience string
	Goals          []string
	Style          string
	Tone           string
	ColorPalette   string
	Formats        []string
}

// Choice is one selectable wizard option.
type Choice struct {
	ID          string
	Label       string
	Description string
}

var Goals = []Choice{
	{ID: "awareness", Label: "Brand Awareness", Description: "Increase visibility and recognition of your brand"},
	{ID: "leads", Label: "Lead Generation", Description: "Capture contact information and build your prospect list"},
	{ID: "sales", Label: "Drive Sales", Description: "Convert viewers into paying customers"},
	{ID: "engagement", Label: "Social Engagement", Description: "Boost likes, comments, shares, and interactions"},
	{ID: "education", Label: "Customer Education", Description: "Inform and teach your audience about your products or services"},
	{ID: "launch", Label: "Product Launch", Description: "Create excitement and anticipation for new offerings"},
}

var Styles = []Choice{
	{ID: "modern", Label: "Modern & Minimal", Description: "Clean, spacious, modern"},
	{ID: "bold", Label: "Bold & Vibrant", Description: "Vibrant, high-energy, colorful"},
	{ID: "elegant", Label: "Elegant & Luxurious", Description: "Sophisticated, premium, refined"},
	{ID: "playful", Label: "Playful & Fun", Description: "Fun, colorful, energetic"},
	{ID: "professional", Label: "Professional & Clean", Description: "Corporate, trustworthy, clean"},
	{ID: "vintage", Label: "Vintage & Retro", Description: "Nostalgic, warm, classic"},
}

var Tones = []Choice{
	{ID: "inspirational", Label: "Inspirational"},
	{ID: "educational", Label: "Educational"},
	{ID: "humorous", Label: "Humorous"},
	{ID: "serious", Label: "Serious"},
	{ID: "friendly", Label: "Friendly"},
	{ID: "authoritative", Label: "Authoritative"},
}

var Formats = []Choice{
	{ID: "square", Label: "Square", Description: "Instagram Post, 1:1"},
	{ID: "landscape", Label: "Landscape", Description: "YouTube Thumbnail, 16:9"},
	{ID: "portrait", Label: "Portrait", Description: "Instagram Story, 4:5"},
	{ID: "wide", Label: "Wide", Description: "Banner/Header, 21:9"},
}

// ChoiceLabel resolves an option id within a catalog, returning the id
// itself when it is not a known option.
func ChoiceLabel(catalog []Choice, id string) string {
	for _, c := range catalog {
		if c.ID == id {
			return c.Label
		}
	}
	return id
}

// withDefaults fills every unanswered field.
func withDefaults(d Data) Data {
	if strings.TrimSpace(d.Industry) == "" {
		d.Industry = "General"
	}
	if strings.TrimSpace(d.Niche) == "" {
		d.Niche = "Not specified"
	}
	if strings.TrimSpace(d.TargetAudience) == "" {
		d.TargetAudience = "General audience"
	}
	if len(d.Goals) == 0 {
		d.Goals = []string{"Brand awareness"}
	}
	if strings.TrimSpace(d.Style) == "" {
		d.Style = "Modern"
	}
	if strings.TrimSpace(d.Tone) == "" {
		d.Tone = "Professional"
	}
	if strings.TrimSpace(d.ColorPalette) == "" {
		d.ColorPalette = "#6366F1"
	}
	if len(d.Formats) == 0 {
		d.Formats = []string{"Square"}
	}
	return d
}

// BuildPrompt applies defaults and produces the initial prompt text and
// the matching structured parameters for a new session.
func BuildPrompt(d Data) (string, *prompt.Structured) {
	d = withDefaults(d)

	parts := []string{
		fmt.Sprintf("Create a professional marketing image for the %s industry", d.Industry),
		fmt.Sprintf("focused on %s", d.Niche),
		fmt.Sprintf("targeting %s", d.TargetAudience),
		fmt.Sprintf("to achieve %s", strings.Join(d.Goals, ", ")),
		fmt.Sprintf("in a %s style with %s tone", d.Style, d.Tone),
		fmt.Sprintf("using %s as primary color", d.ColorPalette),
		fmt.Sprintf("optimized for %s format(s)", strings.Join(d.Formats, ", ")),
	}
	text := strings.Join(parts, ", ") + "."

	structured := prompt.NewStructured()
	structured.Set("industry", prompt.Scalar(d.Industry))
	structured.Set("niche", prompt.Scalar(d.Niche))
	structured.Set("targetAudience", prompt.Scalar(d.TargetAudience))
	structured.Set("goals", prompt.Sequence(d.Goals...))
	structured.Set("style", prompt.Scalar(d.Style))
	structured.Set("tone", prompt.Scalar(d.Tone))
	structured.Set("colorPalette", prompt.Scalar(d.ColorPalette))
	structured.Set("formats", prompt.Sequence(d.Formats...))

	return text, structured
}
