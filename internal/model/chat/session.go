package chat

import "time"

// State 表示单轮聊天循环所处的状态。
type State string

const (
	// StateActive accepts turns and grows the history.
	StateActive State = "active"
	// StateReset means the history was cleared back to the system turn.
	StateReset State = "reset"
)

// Session captures a transient anonymous conversation.
type Session struct {
	ID        string    `json:"id"`
	PersonaID string    `json:"personaId"`
	State     State     `json:"state"`
	CreatedAt time.Time `json:"createdAt"`
}
