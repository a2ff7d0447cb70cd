package domain

// Message roles accepted in caller-supplied conversation history.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single turn of caller-owned conversation history, as the chat
// surface sends it. Only Role and Content reach the model; anything else the
// UI attaches (metadata, options, tool traces) is dropped.
type Message struct {
	Role     string         `json:"role"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// IsConversational reports whether the message can be replayed to the model as
// history. System and tool messages from the caller are never replayed: the
// system prompt is always rebuilt, and tool results only live within one turn.
func (m Message) IsConversational() bool {
	return m.Role == RoleUser || m.Role == RoleAssistant
}
