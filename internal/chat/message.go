package chat

import "sync"

// Role tags who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of the conversation. Immutable once appended.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// History is the shared, append-only conversation log. It lives for the
// whole process and is shared across every connection; there is no delete
// or update, it only grows.
type History struct {
	mu   sync.Mutex
	msgs []Message
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds a message to the end of the log.
func (h *History) Append(m Message) {
	h.mu.Lock()
	h.msgs = append(h.msgs, m)
	h.mu.Unlock()
}

// Snapshot returns a copy of the log as observed at call time. The copy is
// safe to iterate while other goroutines keep appending.
func (h *History) Snapshot() []Message {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]Message, len(h.msgs))
	copy(out, h.msgs)
	return out
}

// Len reports the number of messages appended so far.
func (h *History) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}
