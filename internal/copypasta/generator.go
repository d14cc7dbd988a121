package copypasta

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"markov-chatter/internal/markov"
)

// ErrGenerationFailed means no acceptable message could be produced: the
// model had no path, the text overflowed the length budget, or there were
// not enough distinct usernames for the mentions it contained.
var ErrGenerationFailed = errors.New("copypasta: generation failed")

// Generate produces a message, retrying up to GenerationRetryCount extra
// times. When replyTarget is set, the first anonymization tag resolves to it;
// if the generated text contains none, the text is prefixed with a mention.
func (e *Engine) Generate(replyTarget string) (string, error) {
	attempts := 1 + e.cfg.GenerationRetryCount
	var lastErr error
	for i := 0; i < attempts; i++ {
		text, err := e.generateOnce(replyTarget)
		if err == nil {
			return text, nil
		}
		lastErr = err
	}
	return "", fmt.Errorf("%w after %d attempts: %w", ErrGenerationFailed, attempts, lastErr)
}

func (e *Engine) generateOnce(replyTarget string) (string, error) {
	limit := e.cfg.MaxMessageLength
	window := markov.NewWindow(e.cfg.ContextWindowLength)
	names := newUsernameSelector(e.users.Names(), replyTarget, e.rnd)

	var b strings.Builder
	length := 0
	for {
		token, err := e.chain.Sample(window.Key(), e.cfg.UseEqualWeights)
		if err != nil {
			return "", err
		}
		if token == markov.End {
			break
		}
		// the window keeps the raw token; only the output copy is resolved
		window.Push(token)

		out := token
		punct := isPunctuation(token)
		switch {
		case punct:
		case token == StreamerTag:
			out = "@" + e.tokenizer.Owner
		case isUserTag(token):
			name, ok := names.resolve(token)
			if !ok {
				return "", fmt.Errorf("%w: no username left for %s", ErrGenerationFailed, token)
			}
			out = "@" + name
		}

		if b.Len() > 0 && !punct {
			b.WriteByte(' ')
			length++
		}
		b.WriteString(out)
		length += utf8.RuneCountInString(out)
		if length > limit {
			return "", fmt.Errorf("%w: longer than %d characters", ErrGenerationFailed, limit)
		}
	}

	text := b.String()
	if text == "" {
		return "", fmt.Errorf("%w: empty message", ErrGenerationFailed)
	}
	if target := names.pendingTarget(); target != "" {
		text = "@" + target + " " + text
		if utf8.RuneCountInString(text) > limit {
			return "", fmt.Errorf("%w: reply mention overflows %d characters", ErrGenerationFailed, limit)
		}
	}
	return text, nil
}
