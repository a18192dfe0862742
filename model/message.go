package model

import "time"

// Message roles as they appear on the wire.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleSystem    = "system"
	RoleTool      = "tool"
)

// Message represents a single chat turn within a window.
//
// Timestamp is a unix-millisecond value that doubles as the message's render
// identity inside its window; ordering is the slice order, not the timestamp.
// ReasoningContent carries the secondary "thinking" stream of the reasoner
// model and is only ever set on assistant messages.
type Message struct {
	Role             string `json:"role"`
	Content          string `json:"content"`
	Timestamp        int64  `json:"timestamp"`
	ReasoningContent string `json:"reasoning_content,omitempty"`
}

// NewMessage creates a message stamped with the current time.
func NewMessage(role, content string) Message {
	return Message{
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UnixMilli(),
	}
}

// IsConversational reports whether the role participates in the strict
// user/assistant alternation rule. System and tool turns are exempt.
func IsConversational(role string) bool {
	return role == RoleUser || role == RoleAssistant
}
