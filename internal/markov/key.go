package markov

import (
	"regexp"
	"strings"
)

var contractionRe = regexp.MustCompile(`'([A-Z])`)

// Key normalizes a token context into a row key: tokens joined by a single
// space, uppercased, with contraction apostrophes removed ("DON'T" -> "DONT").
func Key(tokens []string) string {
	k := strings.ToUpper(strings.Join(tokens, " "))
	k = contractionRe.ReplaceAllString(k, "$1")
	return strings.TrimSpace(k)
}

// Window is the sliding context of the last Size tokens.
type Window struct {
	size   int
	tokens []string
}

func NewWindow(size int) *Window {
	if size < 1 {
		size = 1
	}
	return &Window{size: size, tokens: make([]string, 0, size)}
}

// Push appends token, evicting the oldest once the window is full.
func (w *Window) Push(token string) {
	if len(w.tokens) == w.size {
		copy(w.tokens, w.tokens[1:])
		w.tokens = w.tokens[:w.size-1]
	}
	w.tokens = append(w.tokens, token)
}

// Key returns the row key for the current context.
func (w *Window) Key() string { return Key(w.tokens) }

// Walk calls fn for every (key, token) edge a message contributes, ending
// with the transition to End.
func Walk(tokens []string, size int, fn func(key, token string)) {
	w := NewWindow(size)
	for _, t := range tokens {
		fn(w.Key(), t)
		w.Push(t)
	}
	fn(w.Key(), End)
}
