// Package imagegen talks to the remote text-to-image providers. Both
// clients share the same thin contract: one prompt in, base64-encoded
// images out, errors mapped onto a small category set the surfaces can
// translate into user-facing notices. Failures are never retried here.
package imagegen

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// Provider names accepted by New.
const (
	ProviderGoogle    = "google"
	ProviderStability = "stability"
)

// Request is one generation call.
type Request struct {
	Prompt      string
	AspectRatio string // "1:1", "16:9", "4:5", "21:9"
	SampleCount int
	// ReferenceImage optionally carries a data URI the provider may use
	// as conditioning input where supported.
	ReferenceImage string
}

// Result carries generated images as data URIs.
type Result struct {
	Images []string
}

// Client is implemented by each provider.
type Client interface {
	Generate(ctx context.Context, req Request) (Result, error)
}

type Options struct {
	Provider  string
	Google    GoogleOptions
	Stability StabilityOptions
}

// New selects a provider client by name.
func New(opts Options) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case "", ProviderGoogle:
		return NewGoogle(opts.Google), nil
	case ProviderStability:
		return NewStability(opts.Stability), nil
	}
	return nil, fmt.Errorf("unknown image provider %q", opts.Provider)
}

var dataURLRegex = regexp.MustCompile(`^data:([^;]+);base64,`)

// ToDataURI wraps raw base64 image data, passing through values that are
// already URLs or data URIs.
func ToDataURI(base64Data, mimeType string) string {
	if strings.HasPrefix(base64Data, "http") || strings.HasPrefix(base64Data, "data:") {
		return base64Data
	}
	if mimeType == "" {
		mimeType = "image/png"
	}
	return fmt.Sprintf("data:%s;base64,%s", mimeType, base64Data)
}

// SplitDataURI returns the mime type and raw base64 payload of a data
// URI, with a fallback mime for bare base64 strings.
func SplitDataURI(value, fallbackMime string) (mimeType, base64Data string) {
	mimeType = fallbackMime
	if m := dataURLRegex.FindStringSubmatch(value); len(m) == 2 {
		mimeType = m[1]
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return mimeType, value[idx+1:]
	}
	return mimeType, value
}
