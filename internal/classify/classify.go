// Package classify maps completion failures onto the small taxonomy shown to
// users.
package classify

import (
	"errors"
	"strings"

	"gochat/internal/core"
)

// Kind is the failure category.
type Kind string

const (
	RateLimited   Kind = "rate_limited"
	ProviderError Kind = "provider_error"
	UnknownError  Kind = "unknown_error"
)

const (
	TitleRateLimited = "You've reached your API limit"
	TitleError       = "Error"

	MessageRateLimited = "Please upgrade to pay-as-you-go"
	MessageFallback    = "Something went wrong"
)

// Result is a displayable failure.
type Result struct {
	Kind    Kind   `json:"kind"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Classify never panics and always returns a title and a non-empty message.
func Classify(err error) Result {
	var gwErr *core.GatewayError
	if errors.As(err, &gwErr) {
		if gwErr == nil {
			return Result{Kind: UnknownError, Title: TitleError, Message: MessageFallback}
		}
		if gwErr.IsRateLimit() {
			return Result{Kind: RateLimited, Title: TitleRateLimited, Message: MessageRateLimited}
		}
		msg := gwErr.Message
		if msg == "" {
			msg = MessageFallback
		}
		return Result{Kind: ProviderError, Title: TitleError, Message: msg}
	}

	msg := MessageFallback
	if err != nil {
		if s := strings.TrimSpace(err.Error()); s != "" {
			msg = s
		}
	}
	return Result{Kind: UnknownError, Title: TitleError, Message: msg}
}
