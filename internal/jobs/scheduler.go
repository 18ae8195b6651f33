package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"buscador-gpt/internal/platform/logger"
)

type ActivityPurger interface {
	Purge(ctx context.Context, retention time.Duration) (int64, error)
}

// Scheduler runs maintenance tasks on cron schedules.
type Scheduler struct {
	cron *cron.Cron
	log  *logger.Logger
}

func NewScheduler(log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.Nop()
	}
	return &Scheduler{cron: cron.New(), log: log}
}

// AddActivityPurge deletes search activity older than retentionDays on spec.
func (s *Scheduler) AddActivityPurge(spec string, retentionDays int, purger ActivityPurger) error {
	if retentionDays <= 0 {
		return fmt.Errorf("activity retention must be positive, got %d", retentionDays)
	}
	_, err := s.cron.AddFunc(spec, purgeTask(purger, time.Duration(retentionDays)*24*time.Hour, s.log))
	if err != nil {
		return fmt.Errorf("schedule activity purge failed: %w", err)
	}
	return nil
}

func purgeTask(purger ActivityPurger, retention time.Duration, log *logger.Logger) func() {
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		n, err := purger.Purge(ctx, retention)
		if err != nil {
			log.Error("purge search activity failed", "error", err)
			return
		}
		log.Info("search activity purged", "rows", n, "retention", retention.String())
	}
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop waits for running tasks to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}
