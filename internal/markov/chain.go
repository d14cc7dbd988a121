// Package markov implements a sparse, weighted transition model keyed by a
// bounded context of previous tokens. Transitions can be added and removed
// exactly, so every contribution to the model is reversible.
package markov

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
)

// End is the end-of-message marker. It is taught after the last token of
// every learned message and stops generation when sampled.
const End = ""

var (
	ErrMissingRow        = errors.New("markov: no row for key")
	ErrMissingTransition = errors.New("markov: no transition for token")
	ErrWeightUnderflow   = errors.New("markov: weight would drop below zero")
	ErrNoTransition      = errors.New("markov: no transition from key")
)

// Rand is the random source used for sampling.
type Rand interface {
	IntN(n int) int
}

type globalRand struct{}

func (globalRand) IntN(n int) int { return rand.IntN(n) }

// DefaultRand returns the global math/rand/v2 source.
func DefaultRand() Rand { return globalRand{} }

// row keeps tokens in a slice so uniform sampling is O(1); index maps a
// token to its slot and removal swaps the last slot into the hole.
type row struct {
	tokens  []string
	weights []int
	index   map[string]int
	total   int
}

func newRow() *row {
	return &row{index: make(map[string]int)}
}

func (r *row) drop(i int) {
	last := len(r.tokens) - 1
	delete(r.index, r.tokens[i])
	if i != last {
		r.tokens[i] = r.tokens[last]
		r.weights[i] = r.weights[last]
		r.index[r.tokens[i]] = i
	}
	r.tokens = r.tokens[:last]
	r.weights = r.weights[:last]
}

// Chain is the transition model. It is not safe for concurrent use; callers
// serialize access.
type Chain struct {
	rows map[string]*row
	rnd  Rand
}

// New creates an empty chain sampling from rnd. A nil rnd uses the global
// math/rand/v2 source.
func New(rnd Rand) *Chain {
	if rnd == nil {
		rnd = globalRand{}
	}
	return &Chain{rows: make(map[string]*row), rnd: rnd}
}

// Add records weight more occurrences of key -> token. Non-positive
// weights are ignored.
func (c *Chain) Add(key, token string, weight int) {
	if weight <= 0 {
		return
	}
	r, ok := c.rows[key]
	if !ok {
		r = newRow()
		c.rows[key] = r
	}
	if i, ok := r.index[token]; ok {
		r.weights[i] += weight
	} else {
		r.index[token] = len(r.tokens)
		r.tokens = append(r.tokens, token)
		r.weights = append(r.weights, weight)
	}
	r.total += weight
}

// Remove subtracts weight from key -> token. A transition never goes below
// zero: if less than weight is recorded, the remainder is removed and
// ErrWeightUnderflow is returned so the caller can report the corruption.
func (c *Chain) Remove(key, token string, weight int) error {
	r, ok := c.rows[key]
	if !ok {
		return fmt.Errorf("%w %q", ErrMissingRow, key)
	}
	i, ok := r.index[token]
	if !ok {
		return fmt.Errorf("%w %q -> %q", ErrMissingTransition, key, token)
	}

	var err error
	removed := weight
	if removed > r.weights[i] {
		err = fmt.Errorf("%w: %q -> %q has %d, removing %d", ErrWeightUnderflow, key, token, r.weights[i], weight)
		removed = r.weights[i]
	}

	r.weights[i] -= removed
	r.total -= removed
	if r.weights[i] <= 0 {
		r.drop(i)
	}
	if r.total <= 0 {
		delete(c.rows, key)
	}
	return err
}

// Sample picks the next token after key. With equalWeights every recorded
// token is equally likely; otherwise tokens are drawn proportionally to
// their weight.
func (c *Chain) Sample(key string, equalWeights bool) (string, error) {
	r, ok := c.rows[key]
	if !ok || len(r.tokens) == 0 {
		return "", fmt.Errorf("%w %q", ErrNoTransition, key)
	}
	if equalWeights {
		return r.tokens[c.rnd.IntN(len(r.tokens))], nil
	}
	n := c.rnd.IntN(r.total)
	for i, w := range r.weights {
		if n < w {
			return r.tokens[i], nil
		}
		n -= w
	}
	// unreachable while total == sum(weights)
	return "", fmt.Errorf("%w %q: weights out of sync with total %d", ErrNoTransition, key, r.total)
}

// Weight returns the recorded weight of key -> token, 0 if absent.
func (c *Chain) Weight(key, token string) int {
	r, ok := c.rows[key]
	if !ok {
		return 0
	}
	i, ok := r.index[token]
	if !ok {
		return 0
	}
	return r.weights[i]
}

// Total returns the total outgoing weight of key, 0 if absent.
func (c *Chain) Total(key string) int {
	if r, ok := c.rows[key]; ok {
		return r.total
	}
	return 0
}

// Next lists the distinct tokens recorded after key, sorted.
func (c *Chain) Next(key string) []string {
	r, ok := c.rows[key]
	if !ok {
		return nil
	}
	out := append([]string(nil), r.tokens...)
	sort.Strings(out)
	return out
}

// Len returns the number of rows (context keys) in the model.
func (c *Chain) Len() int { return len(c.rows) }

// Row is a detached copy of one row.
type Row struct {
	Weights map[string]int
	Total   int
}

// Snapshot copies the whole model. It is meant for tests and diagnostics.
func (c *Chain) Snapshot() map[string]Row {
	out := make(map[string]Row, len(c.rows))
	for k, r := range c.rows {
		w := make(map[string]int, len(r.tokens))
		for i, t := range r.tokens {
			w[t] = r.weights[i]
		}
		out[k] = Row{Weights: w, Total: r.total}
	}
	return out
}
