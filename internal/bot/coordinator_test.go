package bot

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"

	"markov-chatter/internal/auth"
	"markov-chatter/internal/copypasta"
	"markov-chatter/internal/ledger"
	"markov-chatter/internal/llm"
	"markov-chatter/internal/scheduler"
	"markov-chatter/internal/scheduler/schedulertest"
	"markov-chatter/internal/storage"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const (
	ownerID  = 1
	modID    = 2
	botName  = "markovbot"
	testChat = "chat-1"
)

type fakeSink struct {
	mu   sync.Mutex
	said []string
	err  error
}

func (s *fakeSink) Say(_, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.said = append(s.said, text)
	return nil
}

func (s *fakeSink) messages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.said...)
}

type memRecorder struct {
	mu  sync.Mutex
	all []storage.Utterance
}

func (r *memRecorder) AppendUtterance(u storage.Utterance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, u)
	return nil
}

func (r *memRecorder) LoadUtterances() ([]storage.Utterance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.Utterance(nil), r.all...), nil
}

type memLedger struct {
	saved []ledger.Entry
}

func (l *memLedger) LoadAll() ([]ledger.Entry, error) { return l.saved, nil }

func (l *memLedger) SaveAll(entries []ledger.Entry) error {
	l.saved = entries
	return nil
}

type fakeLLM struct {
	answer string
}

func (f fakeLLM) Generate(_ context.Context, _ []llm.Message) (llm.Response, error) {
	return llm.Response{Content: f.answer, Model: "fake"}, nil
}

// firstRand always picks the first candidate.
type firstRand struct{}

func (firstRand) IntN(int) int { return 0 }

type harness struct {
	t        *testing.T
	c        *Coordinator
	engine   *copypasta.Engine
	clock    *schedulertest.Clock
	sink     *fakeSink
	recorder *memRecorder
	ledger   *memLedger
	cancel   context.CancelFunc
	errc     chan error
}

func newHarness(t *testing.T, sched scheduler.Config, opts ...func(*Options)) *harness {
	t.Helper()
	cfg := copypasta.DefaultConfig()
	cfg.Weight = copypasta.ConstantWeight(1)
	cfg.GenerationRetryCount = 0
	engine := copypasta.New(&cfg, copypasta.Identity{Owner: "owner", Self: botName}, firstRand{})

	roles, err := auth.NewWithRepo(nil, ownerID, []int64{modID})
	if err != nil {
		t.Fatalf("auth: %v", err)
	}

	h := &harness{
		t:        t,
		engine:   engine,
		clock:    schedulertest.NewClock(time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)),
		sink:     &fakeSink{},
		recorder: &memRecorder{},
		ledger:   &memLedger{},
		errc:     make(chan error, 1),
	}
	o := Options{
		Engine:   engine,
		Schedule: sched,
		Clock:    h.clock,
		Output:   NewOutput(h.sink, h.recorder, 500, 4096),
		Auth:     roles,
		Ledger:   h.ledger,
		Recorder: h.recorder,
		BotName:  botName,
	}
	for _, fn := range opts {
		fn(&o)
	}
	h.c = New(o)

	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.errc <- h.c.Run(ctx) }()
	t.Cleanup(h.stop)
	return h
}

func (h *harness) stop() {
	if h.cancel == nil {
		return
	}
	h.cancel()
	h.cancel = nil
	if err := <-h.errc; err != nil {
		h.t.Fatalf("run: %v", err)
	}
}

func (h *harness) chat(id int64, account, text string) {
	h.c.OnChat(ChatEvent{Channel: testChat, Author: Author{ID: id, Account: account}, Text: text})
}

// sync runs fn on the coordinator goroutine after everything sent so far.
func (h *harness) sync(fn func()) {
	h.t.Helper()
	if fn == nil {
		fn = func() {}
	}
	if err := h.c.Do(context.Background(), fn); err != nil {
		h.t.Fatalf("do: %v", err)
	}
}

func (h *harness) countdown() int {
	var n int
	h.sync(func() { n = h.c.policy.Countdown() })
	return n
}

func wantMessages(t *testing.T, got []string, want ...string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("want %d messages %q, got %d %q", len(want), want, len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("message %d: want %q, got %q", i, want[i], got[i])
		}
	}
}

var slow = scheduler.Config{DelayCount: 3, Delay: time.Hour, ReplyCooldown: 30 * time.Second}

func TestRepliesToMention(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "bob", "@markovbot hello world")
	h.sync(nil)

	wantMessages(t, h.sink.messages(), "@bob hello world")
	if got := h.countdown(); got != 3 {
		t.Fatalf("countdown after reply: want 3, got %d", got)
	}
	if got := h.clock.Active(); got != 1 {
		t.Fatalf("pending timers after reply: want 1, got %d", got)
	}
}

func TestReplyCooldown(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "bob", "@markovbot hello world")
	h.chat(10, "bob", "@markovbot hello world")
	h.sync(nil)
	if got := len(h.sink.messages()); got != 1 {
		t.Fatalf("within cooldown: want 1 message, got %d", got)
	}

	h.clock.Advance(31 * time.Second)
	h.chat(10, "bob", "@markovbot hello world")
	h.sync(nil)
	if got := len(h.sink.messages()); got != 2 {
		t.Fatalf("after cooldown: want 2 messages, got %d", got)
	}
}

func TestAutonomousWaitsForTimer(t *testing.T) {
	h := newHarness(t, scheduler.Config{DelayCount: 2, Delay: time.Hour})

	h.chat(10, "alice", "hello world")
	h.chat(10, "alice", "hello world")
	h.sync(nil)
	if got := h.countdown(); got != 0 {
		t.Fatalf("countdown: want 0, got %d", got)
	}
	wantMessages(t, h.sink.messages())

	h.clock.Advance(time.Hour)
	h.sync(nil)
	wantMessages(t, h.sink.messages(), "hello world")
	if got := h.countdown(); got != 2 {
		t.Fatalf("countdown after speaking: want 2, got %d", got)
	}
	if got := h.clock.Active(); got != 1 {
		t.Fatalf("pending timers: want 1, got %d", got)
	}
}

func TestAutonomousAfterTimerWhenCountdownEnds(t *testing.T) {
	h := newHarness(t, scheduler.Config{DelayCount: 2, Delay: time.Minute})

	h.clock.Advance(time.Minute)
	h.sync(nil)
	wantMessages(t, h.sink.messages())

	h.chat(10, "alice", "hello world")
	h.sync(nil)
	wantMessages(t, h.sink.messages())

	h.chat(10, "alice", "hello world")
	h.sync(nil)
	wantMessages(t, h.sink.messages(), "hello world")
}

func TestFailedGenerationLeavesStateUnchanged(t *testing.T) {
	h := newHarness(t, scheduler.Config{DelayCount: 1, Delay: time.Minute})

	h.clock.Advance(time.Minute)
	// the only learned token is a mention tag and no usernames are known
	h.chat(10, "", "@someone")
	h.sync(nil)

	wantMessages(t, h.sink.messages())
	var pending bool
	h.sync(func() { pending = h.c.policy.Pending() })
	if pending {
		t.Fatalf("want no pending timer after failed generation")
	}
	if got := h.countdown(); got != 0 {
		t.Fatalf("countdown: want 0, got %d", got)
	}
}

func TestModerationRetracts(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "hello world")
	h.chat(11, "carol", "good morning")
	h.c.OnModeration(ModerationEvent{Kind: ModerationBan, Channel: testChat, Author: Author{ID: 10, Account: "Alice"}})

	var stats copypasta.Stats
	var weight int
	h.sync(func() {
		stats = h.engine.Stats()
		weight = h.engine.Chain().Weight("", "hello")
	})
	if stats.Ledger != 1 {
		t.Fatalf("ledger: want 1, got %d", stats.Ledger)
	}
	if weight != 0 {
		t.Fatalf("want retracted transition, got weight %d", weight)
	}
	if stats.Usernames != 2 {
		t.Fatalf("usernames never shrink: want 2, got %d", stats.Usernames)
	}
}

func TestModerationRetractsAfterRename(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "hello world")
	h.c.OnModeration(ModerationEvent{Kind: ModerationTimeout, Channel: testChat, Author: Author{ID: 10, Account: "alice_renamed"}})

	var stats copypasta.Stats
	h.sync(func() { stats = h.engine.Stats() })
	if stats.Ledger != 0 || stats.States != 0 {
		t.Fatalf("want renamed user's messages retracted, got %+v", stats)
	}
}

func TestForgetByAccount(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "hello world")
	h.chat(modID, "mod", "!forget @Alice")
	h.sync(nil)

	wantMessages(t, h.sink.messages(), "Forgot 1 message(s) from Alice")
}

func TestSelfMessagesIgnored(t *testing.T) {
	h := newHarness(t, slow)

	h.c.OnChat(ChatEvent{Channel: testChat, Author: Author{ID: 99, Account: botName}, Text: "hello world", Self: true})

	var stats copypasta.Stats
	h.sync(func() { stats = h.engine.Stats() })
	if stats.Ledger != 0 || stats.States != 0 {
		t.Fatalf("want nothing learned, got %+v", stats)
	}
	if got := h.countdown(); got != 3 {
		t.Fatalf("countdown: want 3, got %d", got)
	}
}

func TestShutdownSavesLedger(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "hello world")
	h.chat(0, "", "anonymous words")
	h.sync(nil)
	h.stop()

	if got := len(h.ledger.saved); got != 2 {
		t.Fatalf("want 2 saved entries, got %d", got)
	}
	if got := h.ledger.saved[0]; got.Author != "#10" || got.Account != "alice" {
		t.Fatalf("want author keyed by id with handle kept, got %+v", got)
	}
	if got := h.ledger.saved[1].Author; got != "#0" {
		t.Fatalf("want author without handle keyed by id, got %q", got)
	}
	if err := h.c.Do(context.Background(), func() {}); !errors.Is(err, ErrStopped) {
		t.Fatalf("want ErrStopped after shutdown, got %v", err)
	}
}

func TestCommandsRequireRole(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "!say hi there")
	h.sync(nil)
	wantMessages(t, h.sink.messages())

	var stats copypasta.Stats
	h.sync(func() { stats = h.engine.Stats() })
	if stats.Ledger != 0 {
		t.Fatalf("commands are never learned, got %d ledger entries", stats.Ledger)
	}
	if got := h.countdown(); got != 3 {
		t.Fatalf("commands do not count as chat: want 3, got %d", got)
	}

	h.chat(modID, "mod", "!say hi   there")
	h.sync(nil)
	wantMessages(t, h.sink.messages(), "hi   there")
}

func TestModeratorCommands(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(modID, "mod", "!record hello world")
	h.chat(modID, "mod", "/useequalweights@markovbot true")
	h.chat(modID, "mod", "!entropy")
	h.chat(modID, "mod", "!generate")
	h.sync(nil)

	wantMessages(t, h.sink.messages(), "Equal weights: true", "Entropy: 0.0000 bits", "hello world")

	var stats copypasta.Stats
	var equal bool
	h.sync(func() {
		stats = h.engine.Stats()
		equal = h.engine.UseEqualWeights()
	})
	if stats.Ledger != 0 {
		t.Fatalf("record must not be retractable, got %d ledger entries", stats.Ledger)
	}
	if !equal {
		t.Fatalf("want equal weights enabled")
	}
	if got := h.countdown(); got != 3 {
		t.Fatalf("generate resets the countdown: want 3, got %d", got)
	}
}

func TestTestCommandRecordsInsteadOfSaying(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(modID, "mod", "!record hello world")
	h.chat(modID, "mod", "!test 3")
	h.sync(nil)

	wantMessages(t, h.sink.messages())
	all, _ := h.recorder.LoadUtterances()
	if len(all) != 3 {
		t.Fatalf("want 3 recorded samples, got %d", len(all))
	}
	for _, u := range all {
		if u.Trigger != storage.TriggerTest || u.Text != "hello world" {
			t.Fatalf("unexpected sample %+v", u)
		}
	}
}

func TestMuteAndMaxLength(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(modID, "mod", "!mute")
	h.chat(modID, "mod", "!say muted")
	h.chat(modID, "mod", "!unmute")
	h.chat(modID, "mod", "!setmaxmessagelength 30")
	h.chat(modID, "mod", "!say abcdefghijklmnopqrstuvwxyz0123456789")
	h.sync(nil)

	wantMessages(t, h.sink.messages(), "Max message length set to 30", "abcdefghijklmnopqrstuvwxyz0123")
}

func TestModeratorManagementRequiresBroadcaster(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(modID, "mod", "!addmod 20")
	h.chat(ownerID, "owner", "!addmod 21 @carol")
	h.chat(21, "carol", "!say promoted")
	h.sync(nil)

	wantMessages(t, h.sink.messages(), "Added moderator 21", "promoted")

	var role auth.Role
	h.sync(func() { role = h.c.auth.RoleOf(20) })
	if role != auth.RoleAll {
		t.Fatalf("mods cannot add mods: got role %s", role)
	}
}

func TestAskGPTAnswersInBackground(t *testing.T) {
	h := newHarness(t, slow, func(o *Options) { o.LLM = fakeLLM{answer: " forty two "} })

	h.chat(10, "alice", "!askgpt what is the answer")
	h.stop()

	wantMessages(t, h.sink.messages(), "forty two")
	all, _ := h.recorder.LoadUtterances()
	if len(all) != 1 || all[0].Trigger != storage.TriggerAskGPT || all[0].ReplyTo != "alice" {
		t.Fatalf("unexpected utterances %+v", all)
	}
}

func TestRemindMe(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "!remindme 10m stretch  your legs")
	h.sync(nil)
	wantMessages(t, h.sink.messages(), `Set reminder for "stretch  your legs" in 10m`)
	if got := h.clock.Active(); got != 2 {
		t.Fatalf("want policy timer and reminder pending, got %d", got)
	}

	h.clock.Advance(9 * time.Minute)
	h.sync(nil)
	if got := len(h.sink.messages()); got != 1 {
		t.Fatalf("reminder fired early: %q", h.sink.messages())
	}

	h.clock.Advance(time.Minute)
	h.sync(nil)
	wantMessages(t, h.sink.messages(),
		`Set reminder for "stretch  your legs" in 10m`,
		`@alice Reminder! "stretch  your legs"`)

	all, _ := h.recorder.LoadUtterances()
	if last := all[len(all)-1]; last.Trigger != storage.TriggerReminder || last.ReplyTo != "alice" {
		t.Fatalf("unexpected utterance %+v", last)
	}
	var stats copypasta.Stats
	h.sync(func() { stats = h.engine.Stats() })
	if stats.Ledger != 0 {
		t.Fatalf("reminders are never learned, got %d ledger entries", stats.Ledger)
	}
}

func TestRemindMeUsage(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "!remindme 5m")
	h.chat(10, "alice", "!remindme soon stretch")
	h.chat(10, "alice", "!remindme 8d stretch")
	h.sync(nil)

	usage := "Usage: remindme <number><ms|s|m|h|d> <message>"
	wantMessages(t, h.sink.messages(), usage, usage, usage)
	if got := h.clock.Active(); got != 1 {
		t.Fatalf("want only the policy timer, got %d", got)
	}
}

func TestShutdownCancelsReminders(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(10, "alice", "!remindme 1h stretch")
	h.sync(nil)
	h.stop()

	if got := h.clock.Active(); got != 0 {
		t.Fatalf("want no pending timers after shutdown, got %d", got)
	}
	h.clock.Advance(2 * time.Hour)
	wantMessages(t, h.sink.messages(), `Set reminder for "stretch" in 1h`)
}

func TestParseReminderDelay(t *testing.T) {
	for in, want := range map[string]time.Duration{
		"250ms": 250 * time.Millisecond,
		".5s":   500 * time.Millisecond,
		"10m":   10 * time.Minute,
		"1.5h":  90 * time.Minute,
		"7d":    7 * 24 * time.Hour,
	} {
		got, err := parseReminderDelay(in)
		if err != nil || got != want {
			t.Fatalf("%s: want %v, got %v (%v)", in, want, got, err)
		}
	}
	for _, in := range []string{"", "10", "10x", "0s", "8d", "-1m", "1.5.5h"} {
		if _, err := parseReminderDelay(in); err == nil {
			t.Fatalf("%s: want error", in)
		}
	}
}

func TestReport(t *testing.T) {
	h := newHarness(t, slow)

	h.chat(modID, "mod", "!record hello world")
	h.chat(modID, "mod", "!generate")
	h.sync(nil)

	if err := h.c.Report(context.Background()); err != nil {
		t.Fatalf("report: %v", err)
	}
}
