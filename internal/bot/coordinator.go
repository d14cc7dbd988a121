package bot

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"markov-chatter/internal/analytics"
	"markov-chatter/internal/auth"
	"markov-chatter/internal/copypasta"
	"markov-chatter/internal/ledger"
	"markov-chatter/internal/llm"
	"markov-chatter/internal/scheduler"
	"markov-chatter/internal/storage"
)

// ErrStopped is returned by Do once the coordinator has shut down.
var ErrStopped = errors.New("bot: coordinator stopped")

type Options struct {
	Engine   *copypasta.Engine
	Schedule scheduler.Config
	// Clock defaults to the system clock.
	Clock  scheduler.Clock
	Output *Output
	Auth   *auth.Service
	// Ledger receives the learned messages at shutdown. Optional.
	Ledger ledger.Repository
	// Recorder is read by the report. Optional.
	Recorder storage.Recorder
	// LLM answers askgpt. Optional.
	LLM     llm.Client
	BotName string
}

// Coordinator owns the engine and the speaking policy. Every input is
// handed to the goroutine running Run and handled there, one at a time, in
// the order each producer sent it.
type Coordinator struct {
	engine   *copypasta.Engine
	policy   *scheduler.Policy
	out      *Output
	auth     *auth.Service
	ledger   ledger.Repository
	recorder storage.Recorder
	llm      llm.Client
	clock    scheduler.Clock
	commands *Registry

	chat       chan ChatEvent
	moderation chan ModerationEvent
	timers     chan uint64
	calls      chan func()
	done       chan struct{}

	// channel is where autonomous messages go: the last one that chatted.
	channel string
	// background tracks askgpt requests.
	background sync.WaitGroup

	reminders   map[uint64]*reminder
	reminderSeq uint64
}

func New(opts Options) *Coordinator {
	c := &Coordinator{
		engine:     opts.Engine,
		out:        opts.Output,
		auth:       opts.Auth,
		ledger:     opts.Ledger,
		recorder:   opts.Recorder,
		llm:        opts.LLM,
		clock:      opts.Clock,
		commands:   NewRegistry(opts.BotName),
		chat:       make(chan ChatEvent),
		moderation: make(chan ModerationEvent),
		timers:     make(chan uint64),
		calls:      make(chan func()),
		done:       make(chan struct{}),
		reminders:  make(map[uint64]*reminder),
	}
	if c.auth == nil {
		c.auth = auth.New(0)
	}
	if c.clock == nil {
		c.clock = scheduler.SystemClock()
	}
	c.policy = scheduler.NewPolicy(opts.Schedule, c.clock, c.fire)
	c.registerCommands()
	return c
}

// OnChat hands over a chat message. It never blocks after Run has returned.
func (c *Coordinator) OnChat(ev ChatEvent) {
	select {
	case c.chat <- ev:
	case <-c.done:
	}
}

// OnModeration hands over a moderation event.
func (c *Coordinator) OnModeration(ev ModerationEvent) {
	select {
	case c.moderation <- ev:
	case <-c.done:
	}
}

// fire runs on the timer goroutine and only hands the token over.
func (c *Coordinator) fire(token uint64) {
	select {
	case c.timers <- token:
	case <-c.done:
	}
}

// Do runs fn on the coordinator goroutine and waits for it to finish.
func (c *Coordinator) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	call := func() {
		defer close(finished)
		fn()
	}
	select {
	case c.calls <- call:
	case <-c.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes events until ctx is cancelled, then saves the ledger.
func (c *Coordinator) Run(ctx context.Context) error {
	defer close(c.done)

	c.policy.Start()
	log.Printf("🤖 Coordinator started (%d states, %d recorded messages)",
		c.engine.Stats().States, c.engine.Stats().Ledger)

	for {
		select {
		case <-ctx.Done():
			return c.shutdown()
		case ev := <-c.chat:
			c.handleChat(ctx, ev)
		case ev := <-c.moderation:
			c.handleModeration(ev)
		case token := <-c.timers:
			c.handleTimer(token)
		case call := <-c.calls:
			call()
		}
	}
}

func (c *Coordinator) shutdown() error {
	c.policy.Stop()
	c.cancelReminders()
	c.background.Wait()
	if c.ledger == nil {
		return nil
	}
	entries := c.engine.Entries()
	if err := c.ledger.SaveAll(entries); err != nil {
		log.Printf("❌ Failed to save ledger: %v", err)
		return err
	}
	log.Printf("💾 Saved %d ledger entries", len(entries))
	return nil
}

func (c *Coordinator) handleChat(ctx context.Context, ev ChatEvent) {
	if ev.Self {
		return
	}
	c.channel = ev.Channel

	if c.commands.Dispatch(ctx, ev, c.auth.RoleOf(ev.Author.ID)) {
		return
	}

	c.engine.Observe(ev.Author.Account)
	c.policy.Observe()
	mentioned := c.engine.LearnAs(ev.Author.Key(), ev.Author.Account, ev.Text, true)

	now := c.policy.Now()
	if mentioned && c.policy.CanReply(now) {
		if c.speak(ev.Channel, ev.Author.Account, storage.TriggerReply) {
			c.policy.Replied(now)
			return
		}
	}
	if c.policy.Due() {
		c.speak(ev.Channel, "", storage.TriggerAutonomous)
	}
}

func (c *Coordinator) handleModeration(ev ModerationEvent) {
	n := c.engine.Forget(ev.Author.Key())
	if n > 0 {
		log.Printf("🧹 %s of %s: retracted %d message(s)", ev.Kind, ev.Author.Key(), n)
	}
}

func (c *Coordinator) handleTimer(token uint64) {
	if !c.policy.Fired(token) {
		return
	}
	if c.channel == "" {
		log.Println("⏰ Autonomous message due but no chat seen yet")
		return
	}
	c.speak(c.channel, "", storage.TriggerAutonomous)
}

// speak generates a message and sends it. On failure nothing changes, so
// the next chat message tries again.
func (c *Coordinator) speak(channel, replyTarget string, trigger storage.Trigger) bool {
	text, err := c.engine.Generate(replyTarget)
	if err != nil {
		log.Printf("⚠️ No %s message: %v", trigger, err)
		return false
	}
	if err := c.out.Say(channel, text, trigger, replyTarget); err != nil {
		log.Printf("❌ Failed to send %s message: %v", trigger, err)
	}
	c.policy.Spoke()
	return true
}

// Report summarizes today's utterances. It is safe to call from any
// goroutine.
func (c *Coordinator) Report(ctx context.Context) error {
	var (
		summary string
		err     error
	)
	if doErr := c.Do(ctx, func() { summary, err = c.report(time.Now().UTC()) }); doErr != nil {
		return doErr
	}
	if err != nil {
		return err
	}
	log.Printf("📊 %s", summary)
	return nil
}

func (c *Coordinator) report(day time.Time) (string, error) {
	var utterances []storage.Utterance
	if c.recorder != nil {
		var err error
		utterances, err = c.recorder.LoadUtterances()
		if err != nil {
			return "", err
		}
	}
	stats := analytics.AnalyzeDailyUtterances(utterances, day)
	model := c.engine.Stats()
	return stats.GenerateReportSummary() + formatModelStats(model), nil
}
