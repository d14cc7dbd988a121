package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"markov-chatter/internal/storage"
)

// DailyStats summarizes what the bot said during one day.
type DailyStats struct {
	Date          string                  `json:"date"`
	TotalMessages int                     `json:"total_messages"`
	Sent          int                     `json:"sent"`
	ByTrigger     map[storage.Trigger]int `json:"by_trigger"`
	ByChannel     map[string]int          `json:"by_channel"`
	ReplyTargets  int                     `json:"reply_targets"`
	AverageLength float64                 `json:"average_length"`
}

// AnalyzeDailyUtterances counts utterances recorded on targetDate's day.
// Test samples are counted but not as sent.
func AnalyzeDailyUtterances(utterances []storage.Utterance, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:      startOfDay.Format("2006-01-02"),
		ByTrigger: make(map[storage.Trigger]int),
		ByChannel: make(map[string]int),
	}

	targets := make(map[string]bool)
	totalLen := 0
	for _, u := range utterances {
		if u.Timestamp.Before(startOfDay) || !u.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalMessages++
		stats.ByTrigger[u.Trigger]++
		totalLen += len([]rune(u.Text))
		if u.Trigger != storage.TriggerTest {
			stats.Sent++
			stats.ByChannel[u.Channel]++
		}
		if u.ReplyTo != "" {
			targets[strings.ToLower(u.ReplyTo)] = true
		}
	}

	stats.ReplyTargets = len(targets)
	if stats.TotalMessages > 0 {
		stats.AverageLength = float64(totalLen) / float64(stats.TotalMessages)
	}
	return stats
}

// GenerateReportSummary renders the stats as a log-friendly text block.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Utterances for %s:\n", ds.Date)
	fmt.Fprintf(&b, "- total: %d (sent %d)\n", ds.TotalMessages, ds.Sent)
	fmt.Fprintf(&b, "- distinct reply targets: %d\n", ds.ReplyTargets)
	fmt.Fprintf(&b, "- average length: %.1f\n", ds.AverageLength)

	if len(ds.ByTrigger) > 0 {
		triggers := make([]string, 0, len(ds.ByTrigger))
		for tr := range ds.ByTrigger {
			triggers = append(triggers, string(tr))
		}
		sort.Strings(triggers)
		b.WriteString("By trigger:\n")
		for _, tr := range triggers {
			fmt.Fprintf(&b, "- %s: %d\n", tr, ds.ByTrigger[storage.Trigger(tr)])
		}
	}
	return b.String()
}

func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
