package detectors

import (
	"sync"
	"testing"

	"markov-chatter/internal/bot"
	"markov-chatter/internal/storage"
)

type recordingSpeaker struct {
	mu   sync.Mutex
	said []string
}

func (s *recordingSpeaker) Say(_, text string, trigger storage.Trigger, _ string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if trigger != storage.TriggerDetector {
		panic("unexpected trigger " + trigger)
	}
	s.said = append(s.said, text)
	return nil
}

// fixedRand returns the same values on every call.
type fixedRand struct {
	f float64
	i int
}

func (r fixedRand) Float64() float64 { return r.f }
func (r fixedRand) IntN(int) int     { return r.i }

func msg(account, text string) bot.ChatEvent {
	return bot.ChatEvent{Channel: "c", Author: bot.Author{Account: account}, Text: text}
}

func TestChantJoinsOnceAfterRepeats(t *testing.T) {
	out := &recordingSpeaker{}
	c := NewChant(out, 3)

	c.OnChat(msg("alice", "GO TEAM"))
	c.OnChat(msg("bob", "GO TEAM"))
	if len(out.said) != 0 {
		t.Fatalf("want no chant after 2 repeats, got %q", out.said)
	}
	c.OnChat(msg("carol", "GO TEAM"))
	c.OnChat(msg("dave", "GO TEAM"))
	if len(out.said) != 1 || out.said[0] != "GO TEAM" {
		t.Fatalf("want single chant, got %q", out.said)
	}
}

func TestChantIgnoresOriginator(t *testing.T) {
	out := &recordingSpeaker{}
	c := NewChant(out, 3)

	for i := 0; i < 5; i++ {
		c.OnChat(msg("alice", "spam"))
	}
	if len(out.said) != 0 {
		t.Fatalf("want no chant from one user, got %q", out.said)
	}
}

func TestPyramidStopped(t *testing.T) {
	out := &recordingSpeaker{}
	p := NewPyramid(out, fixedRand{f: 0.9, i: 1}, 3, 0.25)

	p.OnChat(msg("alice", "Kappa"))
	p.OnChat(msg("alice", "Kappa Kappa"))
	if len(out.said) != 0 {
		t.Fatalf("want no stop below size 3, got %q", out.said)
	}
	p.OnChat(msg("alice", "Kappa Kappa Kappa"))
	if len(out.said) != 1 || out.said[0] != pyramidPhrases[1] {
		t.Fatalf("want %q, got %q", pyramidPhrases[1], out.said)
	}
}

func TestPyramidMentionsBuilder(t *testing.T) {
	out := &recordingSpeaker{}
	p := NewPyramid(out, fixedRand{f: 0.1, i: 0}, 2, 0.25)

	p.OnChat(msg("alice", "x"))
	p.OnChat(msg("alice", "x x"))
	if len(out.said) != 1 || out.said[0] != "@alice "+pyramidPhrases[0] {
		t.Fatalf("want mention, got %q", out.said)
	}
}

func TestPyramidResetByOtherUser(t *testing.T) {
	out := &recordingSpeaker{}
	p := NewPyramid(out, fixedRand{}, 2, 0)

	p.OnChat(msg("alice", "x"))
	p.OnChat(msg("bob", "x x"))
	p.OnChat(msg("alice", "x x"))
	if len(out.said) != 0 {
		t.Fatalf("want interrupted pyramid ignored, got %q", out.said)
	}
}

func TestDadJoke(t *testing.T) {
	out := &recordingSpeaker{}
	d := NewDadJoke(out, fixedRand{f: 0.1}, "MarkovBot")

	d.OnChat(msg("alice", "I'm really tired, goodnight"))
	d.OnChat(msg("alice", "im"))
	d.OnChat(msg("alice", "hello there"))
	if len(out.said) != 1 || out.said[0] != "Hi really tired, I'm MarkovBot!" {
		t.Fatalf("unexpected %q", out.said)
	}

	quiet := NewDadJoke(out, fixedRand{f: 0.7}, "MarkovBot")
	quiet.OnChat(msg("alice", "Im hungry"))
	if len(out.said) != 1 {
		t.Fatalf("want coin flip to skip, got %q", out.said)
	}
}
