// Package compose turns prior exchanges and a new question into the ordered
// message list sent to a chat completion provider.
package compose

import (
	"strings"

	"gochat/internal/core"
)

// Messages builds the outbound conversation: the system prompt (when set),
// one user and one assistant message per prior exchange oldest first, then
// the new question. Exchanges without an answer contribute only their question.
// Inputs are never modified.
func Messages(prior []core.Exchange, question, prompt string) []core.Message {
	msgs := make([]core.Message, 0, len(prior)*2+2)
	if strings.TrimSpace(prompt) != "" {
		msgs = append(msgs, core.Message{Role: core.RoleSystem, Content: prompt})
	}
	for _, ex := range prior {
		msgs = append(msgs, core.Message{Role: core.RoleUser, Content: ex.Question})
		if ex.Answer != "" {
			msgs = append(msgs, core.Message{Role: core.RoleAssistant, Content: ex.Answer})
		}
	}
	return append(msgs, core.Message{Role: core.RoleUser, Content: question})
}

// Before returns the exchanges that precede id, in order. If id is not
// present the whole list is returned.
func Before(exchanges []core.Exchange, id string) []core.Exchange {
	for i, ex := range exchanges {
		if ex.ID == id {
			return exchanges[:i]
		}
	}
	return exchanges
}
