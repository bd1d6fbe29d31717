package banter

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Conversation is the ordered, in-memory list of chat turns. Turns are only
// appended; the whole list is cleared by Reset.
type Conversation struct {
	mu    sync.RWMutex
	turns []Turn
	now   func() time.Time
}

// NewConversation creates an empty conversation.
func NewConversation() *Conversation {
	return &Conversation{now: time.Now}
}

// AppendUser appends a user turn and returns its id.
func (c *Conversation) AppendUser(text string, previews []string) string {
	t := c.newTurn(RoleUser, text)
	if len(previews) > 0 {
		t.Previews = append([]string(nil), previews...)
	}
	return c.append(t)
}

// AppendAssistantPlaceholder appends an empty assistant turn and returns its
// id for streaming updates.
func (c *Conversation) AppendAssistantPlaceholder() string {
	return c.append(c.newTurn(RoleAssistant, ""))
}

// AppendAssistant appends a complete assistant turn and returns its id.
func (c *Conversation) AppendAssistant(text string, failed bool) string {
	t := c.newTurn(RoleAssistant, text)
	t.Failed = failed
	return c.append(t)
}

// AppendChunk concatenates text onto the turn's text. Unknown ids are
// ignored. It reports whether the turn was found.
func (c *Conversation) AppendChunk(id, text string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		c.turns[i].Text += text
		return true
	}
	return false
}

// AttachFiles sets the remote file references of a turn.
func (c *Conversation) AttachFiles(id string, refs []FileRef) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.index(id); i >= 0 {
		c.turns[i].Files = append([]FileRef(nil), refs...)
		return true
	}
	return false
}

// Reset empties the conversation.
func (c *Conversation) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = nil
}

// Turns returns a snapshot of the turns in append order.
func (c *Conversation) Turns() []Turn {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]Turn, len(c.turns))
	copy(out, c.turns)
	return out
}

// Turn returns the turn with the given id.
func (c *Conversation) Turn(id string) (Turn, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.index(id); i >= 0 {
		return c.turns[i], true
	}
	return Turn{}, false
}

// Len returns the number of turns.
func (c *Conversation) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.turns)
}

// UserTurnCount returns the number of user turns.
func (c *Conversation) UserTurnCount() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	n := 0
	for _, t := range c.turns {
		if t.IsUser() {
			n++
		}
	}
	return n
}

func (c *Conversation) newTurn(role Role, text string) Turn {
	return Turn{
		ID:        uuid.NewString(),
		Text:      text,
		Role:      role,
		Timestamp: c.now(),
	}
}

func (c *Conversation) append(t Turn) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.turns = append(c.turns, t)
	return t.ID
}

// index scans from the end since updates target the newest turns.
// Must be called with mu held.
func (c *Conversation) index(id string) int {
	for i := len(c.turns) - 1; i >= 0; i-- {
		if c.turns[i].ID == id {
			return i
		}
	}
	return -1
}
