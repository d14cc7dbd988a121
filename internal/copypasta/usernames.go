package copypasta

import (
	"log"
	"strings"

	"markov-chatter/internal/markov"
)

// Registry is the grow-only set of account names seen in chat. Names stay
// eligible for mention reification even after their messages are retracted.
type Registry struct {
	names []string
	seen  map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Add records name; duplicates are matched case-insensitively.
func (r *Registry) Add(name string) bool {
	name = strings.TrimSpace(name)
	if name == "" {
		return false
	}
	k := strings.ToLower(name)
	if _, ok := r.seen[k]; ok {
		return false
	}
	r.seen[k] = struct{}{}
	r.names = append(r.names, name)
	return true
}

func (r *Registry) Len() int { return len(r.names) }

// Names returns a copy in insertion order.
func (r *Registry) Names() []string { return append([]string(nil), r.names...) }

// usernameSelector hands out distinct names for the anonymization tags of a
// single generated message. Choices are cached by tag so a tag repeated in
// the same message always resolves to the same name.
type usernameSelector struct {
	pool   []string
	chosen map[string]string
	target string
	rnd    markov.Rand
}

func newUsernameSelector(names []string, target string, rnd markov.Rand) *usernameSelector {
	return &usernameSelector{pool: names, chosen: make(map[string]string), target: target, rnd: rnd}
}

func (s *usernameSelector) resolve(tag string) (string, bool) {
	if name, ok := s.chosen[tag]; ok {
		return name, true
	}

	var name string
	switch {
	case s.target != "":
		name = s.target
		s.target = ""
		if !s.take(name) {
			log.Printf("⚠️ reply target %q is not a known username", name)
		}
	case len(s.pool) == 0:
		return "", false
	default:
		i := s.rnd.IntN(len(s.pool))
		name = s.pool[i]
		s.removeAt(i)
	}

	s.chosen[tag] = name
	return name, true
}

// take removes name from the pool, matching case-insensitively.
func (s *usernameSelector) take(name string) bool {
	for i, n := range s.pool {
		if strings.EqualFold(n, name) {
			s.removeAt(i)
			return true
		}
	}
	return false
}

func (s *usernameSelector) removeAt(i int) {
	last := len(s.pool) - 1
	s.pool[i] = s.pool[last]
	s.pool = s.pool[:last]
}

// pendingTarget reports the reply target if no tag consumed it.
func (s *usernameSelector) pendingTarget() string { return s.target }
