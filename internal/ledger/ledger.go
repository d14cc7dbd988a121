// Package ledger records which raw messages were folded into the model and
// by whom, so a user's contribution can be retracted exactly.
package ledger

import "strings"

// CorpusAuthor marks entries that belong to no live user. Take never
// matches it.
const CorpusAuthor = "<corpus>"

// Entry is one learned message. Author is the retraction key; Account is
// the author's handle at the time, kept so a replay can register it.
type Entry struct {
	Author  string `json:"author"`
	Account string `json:"account,omitempty"`
	Message string `json:"message"`
}

// Handle returns the mentionable name of the entry's author, or "".
func (e Entry) Handle() string {
	if e.Account != "" {
		return e.Account
	}
	if IsHandle(e.Author) {
		return e.Author
	}
	return ""
}

// IsHandle reports whether name is an account handle rather than the
// corpus author or an ID key like "#42".
func IsHandle(name string) bool {
	return name != "" && name != CorpusAuthor && !strings.HasPrefix(name, "#")
}

// Ledger is an ordered list of entries. It is not safe for concurrent use.
type Ledger struct {
	entries []Entry
}

func New(entries []Entry) *Ledger {
	return &Ledger{entries: append([]Entry(nil), entries...)}
}

func (l *Ledger) Append(e Entry) {
	l.entries = append(l.entries, e)
}

// Take removes and returns every entry whose author or account matches
// case-insensitively, preserving the order of the remaining entries.
func (l *Ledger) Take(author string) []Entry {
	if author == "" || strings.EqualFold(author, CorpusAuthor) {
		return nil
	}
	var taken []Entry
	kept := l.entries[:0]
	for _, e := range l.entries {
		if strings.EqualFold(e.Author, author) || (e.Account != "" && strings.EqualFold(e.Account, author)) {
			taken = append(taken, e)
			continue
		}
		kept = append(kept, e)
	}
	// clear the tail so removed messages are not retained by the backing array
	for i := len(kept); i < len(l.entries); i++ {
		l.entries[i] = Entry{}
	}
	l.entries = kept
	return taken
}

// Entries returns a copy of the ledger in insertion order.
func (l *Ledger) Entries() []Entry {
	return append([]Entry(nil), l.entries...)
}

func (l *Ledger) Len() int { return len(l.entries) }
