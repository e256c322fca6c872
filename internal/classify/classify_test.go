package classify

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"gochat/internal/core"
)

type emptyError struct{}

func (emptyError) Error() string { return "" }

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Result
	}{
		{
			name: "rate limit",
			err:  core.NewRateLimitError("openai", "Rate limit reached for requests"),
			want: Result{Kind: RateLimited, Title: "You've reached your API limit", Message: "Please upgrade to pay-as-you-go"},
		},
		{
			name: "parsed 429",
			err:  core.ParseProviderError("openai", http.StatusTooManyRequests, []byte(`{"error":{"message":"slow down"}}`), nil),
			want: Result{Kind: RateLimited, Title: TitleRateLimited, Message: MessageRateLimited},
		},
		{
			name: "wrapped rate limit",
			err:  fmt.Errorf("ask: %w", core.NewRateLimitError("openai", "x")),
			want: Result{Kind: RateLimited, Title: TitleRateLimited, Message: MessageRateLimited},
		},
		{
			name: "provider error verbatim",
			err:  core.ParseProviderError("openai", http.StatusBadRequest, []byte(`{"error":{"message":"This model's maximum context length is 4097 tokens."}}`), nil),
			want: Result{Kind: ProviderError, Title: "Error", Message: "This model's maximum context length is 4097 tokens."},
		},
		{
			name: "authentication error",
			err:  core.NewAuthenticationError("openai", "Incorrect API key provided"),
			want: Result{Kind: ProviderError, Title: "Error", Message: "Incorrect API key provided"},
		},
		{
			name: "provider error without message",
			err:  &core.GatewayError{Type: core.ErrorTypeProvider},
			want: Result{Kind: ProviderError, Title: "Error", Message: MessageFallback},
		},
		{
			name: "unknown error",
			err:  errors.New("dial tcp: connection refused"),
			want: Result{Kind: UnknownError, Title: "Error", Message: "dial tcp: connection refused"},
		},
		{
			name: "unknown error without message",
			err:  emptyError{},
			want: Result{Kind: UnknownError, Title: "Error", Message: MessageFallback},
		},
		{
			name: "nil error",
			err:  nil,
			want: Result{Kind: UnknownError, Title: "Error", Message: MessageFallback},
		},
		{
			name: "typed nil gateway error",
			err:  (*core.GatewayError)(nil),
			want: Result{Kind: UnknownError, Title: "Error", Message: MessageFallback},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.err))
		})
	}
}
