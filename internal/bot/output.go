package bot

import (
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"markov-chatter/internal/storage"
)

// Output guards the sink: it trims, honours mute and caps message length,
// and records everything said. Safe for concurrent use.
type Output struct {
	mu        sync.Mutex
	sink      Sink
	recorder  storage.Recorder
	muted     bool
	maxLength int
	limit     int
	now       func() time.Time
}

// NewOutput caps messages at maxLength, which itself can never exceed limit.
func NewOutput(sink Sink, recorder storage.Recorder, maxLength, limit int) *Output {
	o := &Output{sink: sink, recorder: recorder, limit: limit, now: time.Now}
	o.SetMaxLength(maxLength)
	return o
}

func (o *Output) Say(channel, text string, trigger storage.Trigger, replyTo string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	o.mu.Lock()
	muted, maxLength := o.muted, o.maxLength
	o.mu.Unlock()

	if muted {
		log.Printf("🔇 Muted, not saying %q", text)
		return nil
	}
	if utf8.RuneCountInString(text) > maxLength {
		log.Printf("⚠️ Message exceeds max length [%d]", maxLength)
		text = strings.TrimSpace(string([]rune(text)[:maxLength]))
	}

	log.Printf("💬 Saying %q", text)
	if err := o.sink.Say(channel, text); err != nil {
		return fmt.Errorf("say: %w", err)
	}
	o.Record(storage.Utterance{Channel: channel, Trigger: trigger, ReplyTo: replyTo, Text: text})
	return nil
}

// Record logs an utterance without sending it.
func (o *Output) Record(u storage.Utterance) {
	if o.recorder == nil {
		return
	}
	if u.Timestamp.IsZero() {
		u.Timestamp = o.now().UTC()
	}
	if err := o.recorder.AppendUtterance(u); err != nil {
		log.Printf("failed to record utterance: %v", err)
	}
}

func (o *Output) SetMuted(v bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.muted = v
}

// SetMaxLength clamps n to [1, limit] and returns the applied value.
func (o *Output) SetMaxLength(n int) int {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.limit > 0 && (n <= 0 || n > o.limit) {
		n = o.limit
	}
	if n <= 0 {
		n = 1
	}
	o.maxLength = n
	return n
}

func (o *Output) MaxLength() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.maxLength
}
