package telegram

import (
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"markov-chatter/internal/bot"
)

func author(u *tgbotapi.User) bot.Author {
	return bot.Author{
		ID:      u.ID,
		Account: u.UserName,
		Display: strings.TrimSpace(u.FirstName + " " + u.LastName),
	}
}

func channelOf(chatID int64) string { return strconv.FormatInt(chatID, 10) }

// chatEvent converts a text message. Captions count as text; service
// messages and messages from other bots are skipped.
func (b *Bot) chatEvent(msg *tgbotapi.Message) (bot.ChatEvent, bool) {
	if msg.From == nil || msg.Chat == nil || !b.chatAllowed(msg.Chat.ID) {
		return bot.ChatEvent{}, false
	}
	self := msg.From.ID == b.self.ID
	if msg.From.IsBot && !self {
		return bot.ChatEvent{}, false
	}
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	if strings.TrimSpace(text) == "" {
		return bot.ChatEvent{}, false
	}
	return bot.ChatEvent{
		Channel: channelOf(msg.Chat.ID),
		Author:  author(msg.From),
		Text:    text,
		Self:    self,
	}, true
}

// moderationEvent maps a member status change: "kicked" is a ban, a
// restriction that takes away sending messages is a timeout.
func (b *Bot) moderationEvent(upd *tgbotapi.ChatMemberUpdated) (bot.ModerationEvent, bool) {
	member := upd.NewChatMember
	if member.User == nil || !b.chatAllowed(upd.Chat.ID) {
		return bot.ModerationEvent{}, false
	}
	var kind bot.ModerationKind
	switch member.Status {
	case "kicked":
		kind = bot.ModerationBan
	case "restricted":
		if member.CanSendMessages {
			return bot.ModerationEvent{}, false
		}
		kind = bot.ModerationTimeout
	default:
		return bot.ModerationEvent{}, false
	}
	return bot.ModerationEvent{Kind: kind, Channel: channelOf(upd.Chat.ID), Author: author(member.User)}, true
}
