// Package bot runs the single event loop that owns the language model and
// the speaking schedule, plus the commands that operate on them.
package bot

import "strconv"

// Author identifies who sent a chat message or was moderated.
type Author struct {
	ID int64
	// Account is the mentionable handle, empty if the user has none.
	Account string
	Display string
}

// Key is the identity messages are attributed to in the ledger. It is the
// stable user ID, so a rename does not escape retraction; authors known only
// by handle fall back to it.
func (a Author) Key() string {
	if a.ID == 0 && a.Account != "" {
		return a.Account
	}
	return "#" + strconv.FormatInt(a.ID, 10)
}

type ChatEvent struct {
	Channel string
	Author  Author
	Text    string
	// Self is set for messages the bot sent itself.
	Self bool
}

type ModerationKind string

const (
	ModerationBan            ModerationKind = "ban"
	ModerationTimeout        ModerationKind = "timeout"
	ModerationMessageDeleted ModerationKind = "message_deleted"
)

type ModerationEvent struct {
	Kind    ModerationKind
	Channel string
	Author  Author
}

// Sink delivers text to a chat.
type Sink interface {
	Say(channel, text string) error
}

// Subscriber observes chat traffic.
type Subscriber interface {
	OnChat(ev ChatEvent)
}
