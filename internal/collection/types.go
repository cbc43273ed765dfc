package collection

import (
	"github.com/21-UR-0241/nano-banana/internal/prompt"
)

// Caps per collection. Overflow evicts the oldest entries; for profiles
// and templates favorites are kept until nothing else is left to evict.
const (
	MaxRecents   = 50
	MaxProfiles  = 200
	MaxTemplates = 200
)

// RecentEntry is one generated request, appended after every successful
// generation. Field names match the persisted v1 format.
type RecentEntry struct {
	ID             string             `json:"id"`
	Name           string             `json:"name,omitempty"`
	Prompt         string             `json:"prompt"`
	Structured     *prompt.Structured `json:"json"`
	ReferenceImage string             `json:"sourceImage,omitempty"`
	CreatedAt      int64              `json:"timestamp"`
}

// ProfileEntry is a reusable structured parameter set, independent of
// free text.
type ProfileEntry struct {
	ID         string             `json:"id"`
	Name       string             `json:"name"`
	Structured *prompt.Structured `json:"json"`
	CreatedAt  int64              `json:"createdAt"`
	UpdatedAt  int64              `json:"updatedAt"`
	Favorite   bool               `json:"favorite,omitempty"`
}

// TemplateEntry is a reusable free-text prompt.
type TemplateEntry struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Prompt    string `json:"prompt"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
	Favorite  bool   `json:"favorite,omitempty"`
}

// ExportBlob is the interchange format for preset export/import.
type ExportBlob struct {
	Profiles  []ProfileEntry  `json:"profiles"`
	Templates []TemplateEntry `json:"templates"`
}
