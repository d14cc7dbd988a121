package storage

import "time"

// Trigger says why the bot produced a message.
type Trigger string

const (
	TriggerAutonomous Trigger = "autonomous"
	TriggerReply      Trigger = "reply"
	TriggerForced     Trigger = "generate"
	TriggerTest       Trigger = "test"
	TriggerSay        Trigger = "say"
	TriggerAskGPT     Trigger = "askgpt"
	TriggerDetector   Trigger = "detector"
	TriggerCommand    Trigger = "command"
	TriggerReminder   Trigger = "reminder"
)

// Utterance is one message the bot produced. Test samples are recorded
// even though they were never sent.
type Utterance struct {
	Timestamp time.Time `json:"timestamp"`
	Channel   string    `json:"channel"`
	Trigger   Trigger   `json:"trigger"`
	ReplyTo   string    `json:"reply_to,omitempty"`
	Text      string    `json:"text"`
}

// Recorder abstracts persistence of utterances.
// LoadUtterances returns them in chronological order.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendUtterance(u Utterance) error
	LoadUtterances() ([]Utterance, error)
}
