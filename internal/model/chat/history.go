package chat

import "github.com/cloudwego/eino/schema"

// History is an ordered, append-only list of role-tagged turns. It is replayed
// verbatim as context on every generation call. History is not safe for
// concurrent use; callers that share one guard it themselves.
type History struct {
	turns []*schema.Message
}

// NewHistory returns a history seeded with a system turn. An empty system
// prompt yields an empty history.
func NewHistory(systemPrompt string) *History {
	h := &History{turns: make([]*schema.Message, 0, 16)}
	if systemPrompt != "" {
		h.turns = append(h.turns, schema.SystemMessage(systemPrompt))
	}
	return h
}

// AppendUser appends a user turn.
func (h *History) AppendUser(content string) {
	h.turns = append(h.turns, schema.UserMessage(content))
}

// AppendAssistant appends an assistant turn.
func (h *History) AppendAssistant(content string) {
	h.turns = append(h.turns, schema.AssistantMessage(content, nil))
}

// Len reports the number of turns.
func (h *History) Len() int {
	return len(h.turns)
}

// Messages returns a copy of the turns, safe to hand to a chat model.
func (h *History) Messages() []*schema.Message {
	out := make([]*schema.Message, len(h.turns))
	for i, turn := range h.turns {
		copied := *turn
		out[i] = &copied
	}
	return out
}

// Last returns the most recent turn, or nil when the history is empty.
func (h *History) Last() *schema.Message {
	if len(h.turns) == 0 {
		return nil
	}
	copied := *h.turns[len(h.turns)-1]
	return &copied
}

// Truncate drops every turn at index n and beyond. It only exists to roll
// back a turn whose generation call failed.
func (h *History) Truncate(n int) {
	if n < 0 {
		n = 0
	}
	if n >= len(h.turns) {
		return
	}
	for i := n; i < len(h.turns); i++ {
		h.turns[i] = nil
	}
	h.turns = h.turns[:n]
}

// Reset clears the history back to its system turn, if it had one.
func (h *History) Reset() {
	if len(h.turns) > 0 && h.turns[0].Role == schema.System {
		h.Truncate(1)
		return
	}
	h.Truncate(0)
}
