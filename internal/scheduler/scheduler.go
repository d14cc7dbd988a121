package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultReportSchedule runs the daily report at 21:00 UTC.
const DefaultReportSchedule = "0 21 * * *"

// Scheduler runs the periodic report job.
type Scheduler struct {
	cron       *cron.Cron
	ctx        context.Context
	cancel     context.CancelFunc
	schedule   string
	reportFunc func(ctx context.Context) error
}

func New(schedule string) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	if schedule == "" {
		schedule = DefaultReportSchedule
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		ctx:      ctx,
		cancel:   cancel,
		schedule: schedule,
	}
}

func (s *Scheduler) SetReportFunction(f func(ctx context.Context) error) {
	s.reportFunc = f
}

func (s *Scheduler) Start() error {
	if s.reportFunc == nil {
		log.Println("⚠️ Report function not set, scheduler will not generate reports")
		return nil
	}

	_, err := s.cron.AddFunc(s.schedule, func() {
		log.Printf("🕘 Triggered report (%s)", s.schedule)
		if err := s.reportFunc(s.ctx); err != nil {
			log.Printf("❌ Report failed: %v", err)
		}
	})
	if err != nil {
		return err
	}

	s.cron.Start()
	log.Printf("📅 Scheduler started - reports on %q UTC", s.schedule)
	return nil
}

func (s *Scheduler) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
	}
	if s.cancel != nil {
		s.cancel()
	}
	log.Println("📅 Scheduler stopped")
}
