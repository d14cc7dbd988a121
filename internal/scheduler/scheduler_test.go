package scheduler

import (
	"context"
	"testing"
)

func TestSchedulerWithoutReportFunction(t *testing.T) {
	s := New("")
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	if s.cron != nil && len(s.cron.Entries()) > 0 {
		t.Fatalf("no job should be registered")
	}
	s.Stop()
}

func TestSchedulerRejectsBadSchedule(t *testing.T) {
	s := New("not a cron line")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	if err := s.Start(); err == nil {
		t.Fatalf("want error for invalid schedule")
	}
}

func TestSchedulerRegistersReport(t *testing.T) {
	s := New("*/5 * * * *")
	s.SetReportFunction(func(ctx context.Context) error { return nil })
	if err := s.Start(); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()
	if s.cron == nil || len(s.cron.Entries()) != 1 {
		t.Fatalf("report job not registered")
	}
}
