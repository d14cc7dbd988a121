package bot

import (
	"context"
	"fmt"
	"log"
	"strings"

	"markov-chatter/internal/auth"
)

// HandlerFunc runs a command. args excludes the command word.
type HandlerFunc func(ctx context.Context, ev ChatEvent, args []string)

type command struct {
	role    auth.Role
	handler HandlerFunc
}

// Registry maps command words to handlers guarded by a minimum role.
type Registry struct {
	commands map[string]command
	// botName is stripped from "/cmd@botname".
	botName string
}

func NewRegistry(botName string) *Registry {
	return &Registry{commands: make(map[string]command), botName: strings.ToLower(botName)}
}

// Register adds a command. Names are case-insensitive and written without
// a prefix; both "!name" and "/name" invoke it.
func (r *Registry) Register(name string, role auth.Role, h HandlerFunc) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" || h == nil {
		return fmt.Errorf("command %q: empty name or handler", name)
	}
	if _, ok := r.commands[name]; ok {
		return fmt.Errorf("command %q is already registered", name)
	}
	r.commands[name] = command{role: role, handler: h}
	return nil
}

func (r *Registry) mustRegister(name string, role auth.Role, h HandlerFunc) {
	if err := r.Register(name, role, h); err != nil {
		panic(err)
	}
}

// Parse splits text into a command word and its arguments. ok is false when
// text is not a command invocation.
func (r *Registry) Parse(text string) (name string, args []string, ok bool) {
	fields := strings.Fields(text)
	if len(fields) == 0 {
		return "", nil, false
	}
	word := fields[0]
	if !strings.HasPrefix(word, "!") && !strings.HasPrefix(word, "/") {
		return "", nil, false
	}
	word = strings.ToLower(word[1:])
	if at := strings.IndexByte(word, '@'); at >= 0 {
		if r.botName != "" && word[at+1:] != r.botName {
			return "", nil, false
		}
		word = word[:at]
	}
	if _, known := r.commands[word]; !known {
		return "", nil, false
	}
	return word, fields[1:], true
}

// Dispatch runs the command in ev if there is one. It reports whether the
// message was a known command, even when the role check refused it.
func (r *Registry) Dispatch(ctx context.Context, ev ChatEvent, role auth.Role) bool {
	name, args, ok := r.Parse(ev.Text)
	if !ok {
		return false
	}
	cmd := r.commands[name]
	if role < cmd.role {
		log.Printf("User %s requires role %s for command %s", ev.Author.Key(), cmd.role, name)
		return true
	}
	cmd.handler(ctx, ev, args)
	return true
}
