package detectors

import (
	"fmt"
	"strings"

	"markov-chatter/internal/bot"
)

// DadJoke answers "I'm tired" with "Hi tired, I'm <name>!" half of the time.
type DadJoke struct {
	out    Speaker
	rnd    Rand
	name   string
	chance float64
}

func NewDadJoke(out Speaker, rnd Rand, name string) *DadJoke {
	return &DadJoke{out: out, rnd: orDefault(rnd), name: name, chance: 0.5}
}

func (d *DadJoke) OnChat(ev bot.ChatEvent) {
	if ev.Self {
		return
	}
	subject, ok := dadJokeSubject(ev.Text)
	if !ok || d.rnd.Float64() >= d.chance {
		return
	}
	say(d.out, ev.Channel, fmt.Sprintf("Hi %s, I'm %s!", subject, d.name), "")
}

// dadJokeSubject returns what follows a leading "I'm" up to the first
// punctuation mark.
func dadJokeSubject(text string) (string, bool) {
	fields := strings.Fields(text)
	if len(fields) < 2 {
		return "", false
	}
	switch strings.ToLower(fields[0]) {
	case "i'm", "im", "i’m":
	default:
		return "", false
	}
	subject := strings.Join(fields[1:], " ")
	if i := strings.IndexAny(subject, ".,!?"); i >= 0 {
		subject = subject[:i]
	}
	subject = strings.TrimSpace(subject)
	return subject, subject != ""
}
