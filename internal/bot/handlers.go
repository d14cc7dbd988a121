package bot

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"markov-chatter/internal/auth"
	"markov-chatter/internal/copypasta"
	"markov-chatter/internal/llm"
	"markov-chatter/internal/storage"
)

const (
	maxTestSamples = 25
	askGPTPrompt   = "You are a chat participant. Answer in one or two short sentences."
)

func (c *Coordinator) registerCommands() {
	r := c.commands
	r.mustRegister("generate", auth.RoleMod, c.cmdGenerate)
	r.mustRegister("test", auth.RoleMod, c.cmdTest)
	r.mustRegister("say", auth.RoleMod, c.cmdSay)
	r.mustRegister("record", auth.RoleMod, c.cmdRecord)
	r.mustRegister("entropy", auth.RoleMod, c.cmdEntropy)
	r.mustRegister("useequalweights", auth.RoleMod, c.cmdUseEqualWeights)
	r.mustRegister("forget", auth.RoleMod, c.cmdForget)
	r.mustRegister("stats", auth.RoleMod, c.cmdStats)
	r.mustRegister("mute", auth.RoleMod, c.cmdMute)
	r.mustRegister("unmute", auth.RoleMod, c.cmdUnmute)
	r.mustRegister("setmaxmessagelength", auth.RoleMod, c.cmdSetMaxMessageLength)
	r.mustRegister("report", auth.RoleMod, c.cmdReport)
	r.mustRegister("mods", auth.RoleMod, c.cmdMods)
	r.mustRegister("addmod", auth.RoleBroadcaster, c.cmdAddMod)
	r.mustRegister("removemod", auth.RoleBroadcaster, c.cmdRemoveMod)
	r.mustRegister("askgpt", auth.RoleAll, c.cmdAskGPT)
	r.mustRegister("remindme", auth.RoleAll, c.cmdRemindMe)
}

// reply answers a command in the channel it came from.
func (c *Coordinator) reply(ev ChatEvent, format string, args ...any) {
	if err := c.out.Say(ev.Channel, fmt.Sprintf(format, args...), storage.TriggerCommand, ""); err != nil {
		log.Printf("❌ Failed to answer command: %v", err)
	}
}

// rest returns the text after the command word, whitespace intact.
func rest(text string) string {
	text = strings.TrimSpace(text)
	if i := strings.IndexAny(text, " \t\n"); i >= 0 {
		return strings.TrimSpace(text[i:])
	}
	return ""
}

func (c *Coordinator) cmdGenerate(_ context.Context, ev ChatEvent, _ []string) {
	c.speak(ev.Channel, "", storage.TriggerForced)
}

// cmdTest writes samples to the utterance log instead of the chat.
func (c *Coordinator) cmdTest(_ context.Context, ev ChatEvent, args []string) {
	n := 1
	if len(args) > 0 {
		v, err := strconv.Atoi(args[0])
		if err != nil || v < 1 {
			c.reply(ev, "Usage: test <count>")
			return
		}
		n = v
	}
	if n > maxTestSamples {
		n = maxTestSamples
	}
	for i := 0; i < n; i++ {
		text, err := c.engine.Generate("")
		if err != nil {
			log.Printf("🧪 Sample %d/%d failed: %v", i+1, n, err)
			continue
		}
		log.Printf("🧪 Sample %d/%d: %s", i+1, n, text)
		c.out.Record(storage.Utterance{Channel: ev.Channel, Trigger: storage.TriggerTest, Text: text})
	}
}

func (c *Coordinator) cmdSay(_ context.Context, ev ChatEvent, _ []string) {
	text := rest(ev.Text)
	if text == "" {
		return
	}
	if err := c.out.Say(ev.Channel, text, storage.TriggerSay, ""); err != nil {
		log.Printf("❌ Failed to say: %v", err)
	}
}

func (c *Coordinator) cmdRecord(_ context.Context, ev ChatEvent, _ []string) {
	text := rest(ev.Text)
	if text == "" {
		return
	}
	c.engine.Record(text)
	log.Printf("📝 Recorded %q for %s", text, ev.Author.Key())
}

func (c *Coordinator) cmdEntropy(_ context.Context, ev ChatEvent, _ []string) {
	c.reply(ev, "Entropy: %.4f bits", c.engine.Entropy())
}

func (c *Coordinator) cmdUseEqualWeights(_ context.Context, ev ChatEvent, args []string) {
	if len(args) == 0 {
		c.reply(ev, "Equal weights: %t", c.engine.UseEqualWeights())
		return
	}
	v, err := strconv.ParseBool(args[0])
	if err != nil {
		c.reply(ev, "Usage: useequalweights <true|false>")
		return
	}
	c.engine.SetUseEqualWeights(v)
	c.reply(ev, "Equal weights: %t", v)
}

func (c *Coordinator) cmdForget(_ context.Context, ev ChatEvent, args []string) {
	if len(args) == 0 {
		c.reply(ev, "Usage: forget <username>")
		return
	}
	account := strings.TrimPrefix(args[0], "@")
	n := c.engine.Forget(account)
	c.reply(ev, "Forgot %d message(s) from %s", n, account)
}

func (c *Coordinator) cmdStats(_ context.Context, ev ChatEvent, _ []string) {
	c.reply(ev, "%s", strings.TrimSpace(formatModelStats(c.engine.Stats())))
}

func formatModelStats(s copypasta.Stats) string {
	return fmt.Sprintf("Model: %d states, %d recorded messages, %d usernames, entropy %.4f bits\n",
		s.States, s.Ledger, s.Usernames, s.Entropy)
}

func (c *Coordinator) cmdMute(_ context.Context, _ ChatEvent, _ []string) {
	c.out.SetMuted(true)
	log.Println("🔇 Muted")
}

func (c *Coordinator) cmdUnmute(_ context.Context, _ ChatEvent, _ []string) {
	c.out.SetMuted(false)
	log.Println("🔊 Unmuted")
}

func (c *Coordinator) cmdSetMaxMessageLength(_ context.Context, ev ChatEvent, args []string) {
	if len(args) == 0 {
		c.reply(ev, "Usage: setmaxmessagelength <n>")
		return
	}
	n, err := strconv.Atoi(args[0])
	if err != nil || n < 1 {
		c.reply(ev, "Usage: setmaxmessagelength <n>")
		return
	}
	c.reply(ev, "Max message length set to %d", c.out.SetMaxLength(n))
}

func (c *Coordinator) cmdReport(_ context.Context, ev ChatEvent, _ []string) {
	summary, err := c.report(c.policy.Now().UTC())
	if err != nil {
		log.Printf("❌ Report failed: %v", err)
		return
	}
	c.reply(ev, "%s", strings.TrimSpace(summary))
}

func (c *Coordinator) cmdMods(_ context.Context, ev ChatEvent, _ []string) {
	mods := c.auth.List()
	if len(mods) == 0 {
		c.reply(ev, "No moderators")
		return
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].ID < mods[j].ID })
	names := make([]string, 0, len(mods))
	for _, m := range mods {
		if m.Username != "" {
			names = append(names, fmt.Sprintf("%d (@%s)", m.ID, m.Username))
		} else {
			names = append(names, strconv.FormatInt(m.ID, 10))
		}
	}
	c.reply(ev, "Moderators: %s", strings.Join(names, ", "))
}

func (c *Coordinator) cmdAddMod(_ context.Context, ev ChatEvent, args []string) {
	if len(args) == 0 {
		c.reply(ev, "Usage: addmod <user_id> [username]")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.reply(ev, "Invalid user id: %s", args[0])
		return
	}
	m := auth.Moderator{ID: id}
	if len(args) > 1 {
		m.Username = strings.TrimPrefix(args[1], "@")
	}
	if err := c.auth.Upsert(m); err != nil {
		log.Printf("❌ Failed to add moderator %d: %v", id, err)
		return
	}
	c.reply(ev, "Added moderator %d", id)
}

func (c *Coordinator) cmdRemoveMod(_ context.Context, ev ChatEvent, args []string) {
	if len(args) == 0 {
		c.reply(ev, "Usage: removemod <user_id>")
		return
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		c.reply(ev, "Invalid user id: %s", args[0])
		return
	}
	if err := c.auth.Remove(id); err != nil {
		log.Printf("❌ Failed to remove moderator %d: %v", id, err)
		return
	}
	c.reply(ev, "Removed moderator %d", id)
}

// cmdAskGPT answers off the coordinator goroutine and never touches the
// model.
func (c *Coordinator) cmdAskGPT(ctx context.Context, ev ChatEvent, _ []string) {
	prompt := rest(ev.Text)
	if c.llm == nil || prompt == "" {
		return
	}
	c.background.Add(1)
	go func() {
		defer c.background.Done()
		resp, err := llm.Ask(ctx, c.llm, askGPTPrompt, prompt)
		if err != nil {
			log.Printf("❌ askgpt failed: %v", err)
			return
		}
		log.Printf("🧠 askgpt answered with %s (%d tokens)", resp.Model, resp.TotalTokens)
		if err := c.out.Say(ev.Channel, resp.Content, storage.TriggerAskGPT, ev.Author.Account); err != nil {
			log.Printf("❌ Failed to send askgpt answer: %v", err)
		}
	}()
}
