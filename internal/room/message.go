package room

import "time"

const (
	// MaxMessageLength caps chat message content.
	MaxMessageLength = 140
	// chatHistory is how many messages a room remembers for late joiners.
	chatHistory = 100
)

// Message is one chat line.
type Message struct {
	Client   int64  `json:"client"`
	Content  string `json:"content"`
	Creation int64  `json:"creation"`
}

// NewMessage builds a message, truncating oversized content. The cap counts
// runes so multi-byte content is never cut mid-character.
func NewMessage(client int64, content string) Message {
	if runes := []rune(content); len(runes) > MaxMessageLength {
		content = string(runes[:MaxMessageLength])
	}
	return Message{
		Client:   client,
		Content:  content,
		Creation: time.Now().UnixMilli(),
	}
}

// Chat is a room's bounded message history.
type Chat struct {
	messages []Message
}

// Add appends a message, evicting the oldest past the history cap.
func (c *Chat) Add(m Message) {
	c.messages = append(c.messages, m)
	if len(c.messages) > chatHistory {
		c.messages = c.messages[len(c.messages)-chatHistory:]
	}
}

// Messages returns the history, oldest first.
func (c *Chat) Messages() []Message {
	return c.messages
}
