// Package telegram connects the coordinator to Telegram group chats.
package telegram

import (
	"context"
	"fmt"
	"log"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"markov-chatter/internal/bot"
)

type Bot struct {
	api     *tgbotapi.BotAPI
	s       sender
	self    tgbotapi.User
	allowed map[int64]bool

	subscribers []bot.Subscriber
	moderation  []ModerationHandler
}

// New connects to the Bot API. An empty allowedChats accepts every chat.
func New(botToken string, allowedChats []int64) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(botToken)
	if err != nil {
		return nil, err
	}
	b := newBot(botAPISender{api: api}, api.Self, allowedChats)
	b.api = api
	return b, nil
}

func newBot(s sender, self tgbotapi.User, allowedChats []int64) *Bot {
	b := &Bot{s: s, self: self, allowed: make(map[int64]bool, len(allowedChats))}
	for _, id := range allowedChats {
		b.allowed[id] = true
	}
	return b
}

// UserName is the bot's own account name.
func (b *Bot) UserName() string { return b.self.UserName }

// Subscribe adds a receiver for chat messages. Not safe to call after Start.
func (b *Bot) Subscribe(s bot.Subscriber) { b.subscribers = append(b.subscribers, s) }

// OnModeration adds a receiver for moderation events. Not safe to call after Start.
func (b *Bot) OnModeration(h ModerationHandler) { b.moderation = append(b.moderation, h) }

// Start polls for updates until ctx is cancelled.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	u.AllowedUpdates = []string{"message", "chat_member"}

	updates := b.api.GetUpdatesChan(u)
	log.Printf("🚀 Listening as @%s", b.self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.handleUpdate(update)
		}
	}
}

func (b *Bot) handleUpdate(update tgbotapi.Update) {
	if update.Message != nil {
		ev, ok := b.chatEvent(update.Message)
		if !ok {
			return
		}
		for _, s := range b.subscribers {
			s.OnChat(ev)
		}
		return
	}
	if update.ChatMember != nil {
		ev, ok := b.moderationEvent(update.ChatMember)
		if !ok {
			return
		}
		log.Printf("Moderation %s of %s in %s", ev.Kind, ev.Author.Key(), ev.Channel)
		for _, h := range b.moderation {
			h.OnModeration(ev)
		}
	}
}

func (b *Bot) chatAllowed(chatID int64) bool {
	return len(b.allowed) == 0 || b.allowed[chatID]
}

// Say sends text to the chat whose ID is channel.
func (b *Bot) Say(channel, text string) error {
	chatID, err := strconv.ParseInt(channel, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat id %q: %w", channel, err)
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.s.Send(msg); err != nil {
		return err
	}
	return nil
}
