// Package scheduler decides when the bot speaks on its own and runs
// periodic jobs.
package scheduler

import "time"

type Config struct {
	// DelayCount is how many chat messages must pass between autonomous
	// messages.
	DelayCount int
	// Delay is the minimum time between autonomous messages.
	Delay time.Duration
	// ReplyCooldown is the minimum time between mention replies.
	ReplyCooldown time.Duration
}

type pendingTimer struct {
	token uint64
	timer Timer
}

// Policy is the countdown and timer state machine. At most one timer is
// pending at any time. The timer callback only hands its token to fire; the
// owner must call Fired from the same goroutine that calls every other
// method.
type Policy struct {
	cfg   Config
	clock Clock
	fire  func(token uint64)

	countdown int
	pending   *pendingTimer
	seq       uint64
	lastReply time.Time
}

func NewPolicy(cfg Config, clock Clock, fire func(token uint64)) *Policy {
	if clock == nil {
		clock = SystemClock()
	}
	if cfg.DelayCount < 0 {
		cfg.DelayCount = 0
	}
	return &Policy{cfg: cfg, clock: clock, fire: fire}
}

// Start resets the countdown and arms the first timer.
func (p *Policy) Start() { p.Spoke() }

// Spoke must be called after every message the bot itself produced.
func (p *Policy) Spoke() {
	p.countdown = p.cfg.DelayCount
	p.arm()
}

func (p *Policy) arm() {
	p.cancel()
	p.seq++
	token := p.seq
	fire := p.fire
	t := p.clock.AfterFunc(p.cfg.Delay, func() {
		if fire != nil {
			fire(token)
		}
	})
	p.pending = &pendingTimer{token: token, timer: t}
}

func (p *Policy) cancel() {
	if p.pending != nil {
		p.pending.timer.Stop()
		p.pending = nil
	}
}

// Observe counts one chat message from someone else.
func (p *Policy) Observe() {
	if p.countdown > 0 {
		p.countdown--
	}
}

// Due reports whether an autonomous message should be attempted now: the
// countdown has run out and no timer is holding it back.
func (p *Policy) Due() bool {
	return p.countdown <= 0 && p.pending == nil
}

// Fired handles a timer callback. Tokens of cancelled timers are ignored.
// It reports whether an autonomous message should be attempted.
func (p *Policy) Fired(token uint64) bool {
	if p.pending == nil || p.pending.token != token {
		return false
	}
	p.pending = nil
	return p.countdown <= 0
}

func (p *Policy) CanReply(now time.Time) bool {
	return p.lastReply.IsZero() || now.Sub(p.lastReply) >= p.cfg.ReplyCooldown
}

func (p *Policy) Replied(now time.Time) { p.lastReply = now }

// Stop cancels the pending timer.
func (p *Policy) Stop() { p.cancel() }

func (p *Policy) Countdown() int { return p.countdown }

func (p *Policy) Pending() bool { return p.pending != nil }

func (p *Policy) Now() time.Time { return p.clock.Now() }
