// Package detectors holds chat subscribers that react to message patterns.
// Each keeps its own state and never touches the language model.
package detectors

import (
	"log"
	"math/rand/v2"

	"markov-chatter/internal/storage"
)

// Speaker sends a message on behalf of a detector.
type Speaker interface {
	Say(channel, text string, trigger storage.Trigger, replyTo string) error
}

// Rand is the randomness detectors use.
type Rand interface {
	Float64() float64
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) Float64() float64 { return rand.Float64() }
func (globalRand) IntN(n int) int   { return rand.IntN(n) }

func orDefault(r Rand) Rand {
	if r == nil {
		return globalRand{}
	}
	return r
}

func say(s Speaker, channel, text, replyTo string) {
	if err := s.Say(channel, text, storage.TriggerDetector, replyTo); err != nil {
		log.Printf("❌ Detector failed to send message: %v", err)
	}
}
