package engine

import "time"

type ChatMessage struct {
	Sender  string
	Message string
	At      time.Time
}

// ChatLog keeps the newest max messages, oldest first.
type ChatLog struct {
	max  int
	msgs []ChatMessage
}

func NewChatLog(max int) *ChatLog {
	return &ChatLog{max: max, msgs: make([]ChatMessage, 0, max)}
}

func (c *ChatLog) Append(m ChatMessage) {
	if c.max <= 0 {
		return
	}
	if len(c.msgs) == c.max {
		copy(c.msgs, c.msgs[1:])
		c.msgs = c.msgs[:c.max-1]
	}
	c.msgs = append(c.msgs, m)
}

func (c *ChatLog) Messages() []ChatMessage {
	out := make([]ChatMessage, len(c.msgs))
	copy(out, c.msgs)
	return out
}

func (c *ChatLog) Len() int { return len(c.msgs) }
