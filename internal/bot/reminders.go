package bot

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"
	"time"

	"markov-chatter/internal/scheduler"
	"markov-chatter/internal/storage"
)

const maxReminderDelay = 7 * 24 * time.Hour

var reminderDelayRe = regexp.MustCompile(`^(\d*\.?\d+)(ms|s|m|h|d)$`)

var reminderUnits = map[string]time.Duration{
	"ms": time.Millisecond,
	"s":  time.Second,
	"m":  time.Minute,
	"h":  time.Hour,
	"d":  24 * time.Hour,
}

type reminder struct {
	channel string
	target  string
	message string
	timer   scheduler.Timer
}

// parseReminderDelay reads "<number><ms|s|m|h|d>", e.g. "1.5h".
func parseReminderDelay(s string) (time.Duration, error) {
	m := reminderDelayRe.FindStringSubmatch(s)
	if m == nil {
		return 0, fmt.Errorf("invalid delay %q", s)
	}
	n, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, fmt.Errorf("invalid delay %q: %w", s, err)
	}
	d := time.Duration(n * float64(reminderUnits[m[2]]))
	if d <= 0 || d > maxReminderDelay {
		return 0, fmt.Errorf("delay %q out of range", s)
	}
	return d, nil
}

// remind arms a reminder. The timer goroutine only hands the delivery over
// to the coordinator, which owns the reminder set.
func (c *Coordinator) remind(ev ChatEvent, delay time.Duration, message string) {
	c.reminderSeq++
	id := c.reminderSeq
	r := &reminder{channel: ev.Channel, target: ev.Author.Account, message: message}
	if r.target == "" {
		r.target = ev.Author.Display
	}
	r.timer = c.clock.AfterFunc(delay, func() {
		select {
		case c.calls <- func() { c.deliverReminder(id) }:
		case <-c.done:
		}
	})
	c.reminders[id] = r
}

func (c *Coordinator) deliverReminder(id uint64) {
	r, ok := c.reminders[id]
	if !ok {
		return
	}
	delete(c.reminders, id)
	text := fmt.Sprintf("Reminder! %q", r.message)
	if r.target != "" {
		text = "@" + r.target + " " + text
	}
	if err := c.out.Say(r.channel, text, storage.TriggerReminder, r.target); err != nil {
		log.Printf("❌ Failed to deliver reminder: %v", err)
	}
}

// cancelReminders drops every pending reminder.
func (c *Coordinator) cancelReminders() {
	for id, r := range c.reminders {
		r.timer.Stop()
		delete(c.reminders, id)
	}
}

func (c *Coordinator) cmdRemindMe(_ context.Context, ev ChatEvent, args []string) {
	const usage = "Usage: remindme <number><ms|s|m|h|d> <message>"
	if len(args) < 2 {
		c.reply(ev, usage)
		return
	}
	delay, err := parseReminderDelay(args[0])
	if err != nil {
		c.reply(ev, usage)
		return
	}
	message := strings.TrimSpace(strings.TrimPrefix(rest(ev.Text), args[0]))
	c.remind(ev, delay, message)
	c.reply(ev, "Set reminder for %q in %s", message, args[0])
}
