package detectors

import (
	"sync"

	"markov-chatter/internal/bot"
)

// Chant joins in when the same message is repeated by several users.
type Chant struct {
	out    Speaker
	repeat int

	mu      sync.Mutex
	message string
	origin  string
	count   int
	// last is the most recent chant joined, never joined twice in a row.
	last string
}

func NewChant(out Speaker, repeat int) *Chant {
	if repeat < 2 {
		repeat = 2
	}
	return &Chant{out: out, repeat: repeat}
}

func (c *Chant) OnChat(ev bot.ChatEvent) {
	if ev.Self {
		return
	}
	user := ev.Author.Key()

	c.mu.Lock()
	if ev.Text == c.last {
		c.mu.Unlock()
		return
	}
	if ev.Text == c.message {
		c.count++
	} else {
		c.message, c.origin, c.count = ev.Text, user, 1
	}
	join := c.count >= c.repeat && user != c.origin
	if join {
		c.last = ev.Text
	}
	c.mu.Unlock()

	if join {
		say(c.out, ev.Channel, ev.Text, "")
	}
}
