package copypasta

import (
	"log"

	"markov-chatter/internal/ledger"
	"markov-chatter/internal/markov"
)

// Identity names the accounts the tokenizer treats specially.
type Identity struct {
	// Owner is the channel owner; mentions become StreamerTag.
	Owner string
	// Self is the bot's own account; mentioning it triggers replies.
	Self string
}

// Engine ties together the model, the ledger of learned messages and the
// set of known usernames. It is not safe for concurrent use.
type Engine struct {
	cfg       *Config
	tokenizer Tokenizer
	chain     *markov.Chain
	ledger    *ledger.Ledger
	users     *Registry
	rnd       markov.Rand
}

// New builds an engine around cfg, which is kept by reference. A nil rnd
// uses the global random source.
func New(cfg *Config, id Identity, rnd markov.Rand) *Engine {
	cfg.normalize()
	if rnd == nil {
		rnd = markov.DefaultRand()
	}
	return &Engine{
		cfg:       cfg,
		tokenizer: Tokenizer{AllowURLs: cfg.AllowURLs, Owner: id.Owner, Self: id.Self},
		chain:     markov.New(rnd),
		ledger:    ledger.New(nil),
		users:     NewRegistry(),
		rnd:       rnd,
	}
}

// Observe registers an account handle as a candidate for mention
// reification. ID keys such as "#42" and the corpus author are ignored.
func (e *Engine) Observe(account string) {
	if !ledger.IsHandle(account) {
		return
	}
	e.users.Add(account)
}

// Learn folds message into the model and reports whether it mentions the
// bot. Messages too short or weighted <= 0 are not learned and therefore not
// recorded; otherwise the message is recorded under author when record is set.
func (e *Engine) Learn(author, message string, record bool) bool {
	return e.learn(ledger.Entry{Author: author, Message: message}, record)
}

// LearnAs is Learn for authors keyed by something other than their handle.
// The handle is kept with the entry so a replayed ledger registers it again.
func (e *Engine) LearnAs(key, account, message string, record bool) bool {
	return e.learn(ledger.Entry{Author: key, Account: account, Message: message}, record)
}

func (e *Engine) learn(en ledger.Entry, record bool) bool {
	tokens, mentionsSelf := e.tokenizer.Tokenize(en.Message)
	weight, ok := e.weight(tokens)
	if !ok {
		return mentionsSelf
	}
	markov.Walk(tokens, e.cfg.ContextWindowLength, func(key, token string) {
		e.chain.Add(key, token, weight)
	})
	if record {
		e.ledger.Append(en)
	}
	return mentionsSelf
}

// Record learns text attributed to nobody. It can never be retracted.
func (e *Engine) Record(text string) {
	e.Learn(ledger.CorpusAuthor, text, false)
}

// Forget retracts every recorded message of author and returns how many
// were removed. Inconsistencies are logged and skipped.
func (e *Engine) Forget(author string) int {
	entries := e.ledger.Take(author)
	for _, en := range entries {
		e.unlearn(en)
	}
	return len(entries)
}

func (e *Engine) unlearn(en ledger.Entry) {
	tokens, _ := e.tokenizer.Tokenize(en.Message)
	weight, ok := e.weight(tokens)
	if !ok {
		return
	}
	failed := 0
	markov.Walk(tokens, e.cfg.ContextWindowLength, func(key, token string) {
		if err := e.chain.Remove(key, token, weight); err != nil {
			failed++
			log.Printf("⚠️ model may be inconsistent: %v", err)
		}
	})
	if failed > 0 {
		log.Printf("⚠️ retracting message from %s: %d edge(s) did not match", en.Author, failed)
	}
}

func (e *Engine) weight(tokens []string) (int, bool) {
	if len(tokens) == 0 || len(tokens) < e.cfg.MinTokenLength {
		return 0, false
	}
	w := e.cfg.Weight.Weight(len(tokens))
	return w, w > 0
}

// LoadLedger replays persisted entries, recording them again and
// registering the handles of their authors.
func (e *Engine) LoadLedger(entries []ledger.Entry) {
	for _, en := range entries {
		e.Observe(en.Handle())
		e.learn(en, true)
	}
}

// LoadCorpus learns seed lines without recording them.
func (e *Engine) LoadCorpus(lines []string) {
	for _, l := range lines {
		e.Record(l)
	}
}

// Entries returns the ledger for persistence.
func (e *Engine) Entries() []ledger.Entry { return e.ledger.Entries() }

func (e *Engine) SetUseEqualWeights(v bool) { e.cfg.UseEqualWeights = v }

func (e *Engine) UseEqualWeights() bool { return e.cfg.UseEqualWeights }

// Entropy reports the model's weighted average per-state entropy in bits.
func (e *Engine) Entropy() float64 { return e.chain.Entropy() }

// Stats is a summary for logs and reports.
type Stats struct {
	States    int
	Ledger    int
	Usernames int
	Entropy   float64
}

func (e *Engine) Stats() Stats {
	return Stats{
		States:    e.chain.Len(),
		Ledger:    e.ledger.Len(),
		Usernames: e.users.Len(),
		Entropy:   e.chain.Entropy(),
	}
}

// Chain exposes the model for inspection.
func (e *Engine) Chain() *markov.Chain { return e.chain }
