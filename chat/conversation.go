package chat

import "sync"

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a conversation. Turns are values and are never
// modified after they are appended.
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Conversation is the ordered, append-only history of one session.
// The full history is replayed to the completer on every request.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
}

func NewConversation() *Conversation {
	return &Conversation{}
}

func (c *Conversation) Append(t Turn) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
}

// Turns returns a copy of the history in insertion order.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// Last returns the most recent turn, if any.
func (c *Conversation) Last() (Turn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if len(c.turns) == 0 {
		return Turn{}, false
	}
	return c.turns[len(c.turns)-1], true
}
