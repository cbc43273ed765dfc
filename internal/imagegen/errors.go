package imagegen

import (
	"errors"
	"fmt"
	"net/http"
)

// Category classifies provider failures so the surfaces can pick a
// user-facing message and an HTTP status without inspecting provider
// response bodies.
type Category string

const (
	CategoryInvalidPrompt Category = "invalid_prompt"
	CategoryAuth          Category = "auth"
	CategoryRateLimit     Category = "rate_limit"
	CategoryService       Category = "service"
)

// Error is a classified provider failure. Detail carries the raw
// provider response for logs; Message is safe to show users.
type Error struct {
	Category Category
	Provider string
	Status   int
	Detail   string
}

func (e *Error) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("%s: %s (status %d): %s", e.Provider, e.Category, e.Status, e.Detail)
	}
	return fmt.Sprintf("%s: %s: %s", e.Provider, e.Category, e.Detail)
}

// Message returns text suitable for end users.
func (e *Error) Message() string {
	switch e.Category {
	case CategoryInvalidPrompt:
		return "Invalid prompt. The prompt may have been rejected by content filters, try rephrasing it."
	case CategoryAuth:
		return "Image API access denied. Check that the API key is valid and has access to the model."
	case CategoryRateLimit:
		return "Rate limit exceeded. Wait a moment and try again."
	default:
		return "The image service returned an error. Try again later."
	}
}

// HTTPStatus maps the category onto the status the web surface returns.
func (e *Error) HTTPStatus() int {
	switch e.Category {
	case CategoryInvalidPrompt:
		return http.StatusBadRequest
	case CategoryAuth:
		return http.StatusForbidden
	case CategoryRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusBadGateway
	}
}

// Classify wraps a provider HTTP status into an *Error.
func Classify(provider string, status int, detail string) *Error {
	category := CategoryService
	switch {
	case status == http.StatusBadRequest:
		category = CategoryInvalidPrompt
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		category = CategoryAuth
	case status == http.StatusTooManyRequests:
		category = CategoryRateLimit
	}
	return &Error{
		Category: category,
		Provider: provider,
		Status:   status,
		Detail:   detail,
	}
}

// AsError returns the classified error inside err, if any.
func AsError(err error) (*Error, bool) {
	var genErr *Error
	if errors.As(err, &genErr) {
		return genErr, true
	}
	return nil, false
}
