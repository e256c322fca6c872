package compose

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"gochat/internal/core"
)

func TestMessages(t *testing.T) {
	prior := []core.Exchange{
		{ID: "1", Question: "first?", Answer: "one"},
		{ID: "2", Question: "second?", Answer: "two"},
	}

	tests := []struct {
		name     string
		prior    []core.Exchange
		question string
		prompt   string
		want     []core.Message
	}{
		{
			name:     "no history no prompt",
			question: "hi",
			want:     []core.Message{{Role: core.RoleUser, Content: "hi"}},
		},
		{
			name:     "prompt first",
			question: "hi",
			prompt:   "You are terse.",
			want: []core.Message{
				{Role: core.RoleSystem, Content: "You are terse."},
				{Role: core.RoleUser, Content: "hi"},
			},
		},
		{
			name:     "chronological history",
			prior:    prior,
			question: "third?",
			prompt:   "sys",
			want: []core.Message{
				{Role: core.RoleSystem, Content: "sys"},
				{Role: core.RoleUser, Content: "first?"},
				{Role: core.RoleAssistant, Content: "one"},
				{Role: core.RoleUser, Content: "second?"},
				{Role: core.RoleAssistant, Content: "two"},
				{Role: core.RoleUser, Content: "third?"},
			},
		},
		{
			name:     "unanswered exchange contributes only question",
			prior:    []core.Exchange{{ID: "1", Question: "failed?"}},
			question: "retry?",
			want: []core.Message{
				{Role: core.RoleUser, Content: "failed?"},
				{Role: core.RoleUser, Content: "retry?"},
			},
		},
		{
			name:     "blank prompt omitted",
			question: "hi",
			prompt:   "   ",
			want:     []core.Message{{Role: core.RoleUser, Content: "hi"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Messages(tt.prior, tt.question, tt.prompt))
		})
	}
}

func TestMessages_DoesNotMutateInput(t *testing.T) {
	prior := []core.Exchange{
		{ID: "1", Question: "a", Answer: "b"},
		{ID: "2", Question: "c", Answer: "d"},
	}
	snapshot := append([]core.Exchange(nil), prior...)

	Messages(prior, "e", "p")
	Messages(prior, "f", "p")

	assert.Equal(t, snapshot, prior)
}

func TestBefore(t *testing.T) {
	list := []core.Exchange{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	assert.Equal(t, []core.Exchange{{ID: "a"}, {ID: "b"}}, Before(list, "c"))
	assert.Empty(t, Before(list, "a"))
	assert.Equal(t, list, Before(list, "missing"))
}
