package detectors

import (
	"strings"
	"sync"

	"markov-chatter/internal/bot"
)

var pyramidPhrases = []string{
	"no", "NO", "Not this time", "No pyramids!", "pyramid >:(", "Get yer pyramid outta here!",
	"nope", "NOPE", "lol", "gotcha", "RIP", "lol no", "haha", "haha, no",
	"I will not allow pyramids in my jurisdiction", "no :)", "nope :)", "No 🔺s",
	"We ain't in 🇪🇬", ":)", "nooooo", "NOOOOOO", "stop", "STOP", "Gotcha!",
}

// Pyramid interrupts a user stacking one token into a growing line
// ("x", "x x", "x x x") once it reaches a given size.
type Pyramid struct {
	out           Speaker
	rnd           Rand
	stopSize      int
	mentionChance float64

	mu    sync.Mutex
	user  string
	token string
	size  int
}

func NewPyramid(out Speaker, rnd Rand, stopSize int, mentionChance float64) *Pyramid {
	if stopSize < 2 {
		stopSize = 2
	}
	return &Pyramid{out: out, rnd: orDefault(rnd), stopSize: stopSize, mentionChance: mentionChance}
}

// OnChat also looks at the bot's own messages so nobody can build on them.
func (p *Pyramid) OnChat(ev bot.ChatEvent) {
	tokens := strings.Fields(ev.Text)
	user := ev.Author.Key()

	p.mu.Lock()
	stop := false
	switch {
	case len(tokens) == 1:
		p.user, p.token, p.size = user, tokens[0], 1
	case p.size > 0 && len(tokens) == p.size+1 && user == p.user && allEqual(tokens, p.token):
		p.size = len(tokens)
		stop = p.size >= p.stopSize
	default:
		p.user, p.token, p.size = "", "", 0
	}
	p.mu.Unlock()

	if !stop {
		return
	}
	text := pyramidPhrases[p.rnd.IntN(len(pyramidPhrases))]
	if ev.Author.Account != "" && p.rnd.Float64() < p.mentionChance {
		text = "@" + ev.Author.Account + " " + text
	}
	say(p.out, ev.Channel, text, ev.Author.Account)
}

func allEqual(tokens []string, want string) bool {
	for _, t := range tokens {
		if t != want {
			return false
		}
	}
	return true
}
