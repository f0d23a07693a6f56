package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/safewatch/safewatch/pkg/utils"
)

// CronTrigger runs fleet passes and retention sweeps on a schedule.
type CronTrigger struct {
	scheduler *FleetScheduler
	cron      *cron.Cron
	logger    *logrus.Entry
}

// NewCronTrigger creates the scheduled trigger surface
func NewCronTrigger(scheduler *FleetScheduler) *CronTrigger {
	return &CronTrigger{
		scheduler: scheduler,
		cron:      cron.New(),
		logger:    utils.GetLogger().WithField("component", "cron_trigger"),
	}
}

// Start registers the pass and cleanup schedules and starts the cron loop.
func (t *CronTrigger) Start(ctx context.Context) error {
	passSpec := fmt.Sprintf("@every %s", t.scheduler.config.PollInterval)
	if _, err := t.cron.AddFunc(passSpec, func() {
		if _, err := t.scheduler.RunPass(ctx); err != nil {
			t.logger.WithField("error", err).Error("Scheduled fleet pass failed")
		}
	}); err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Failed to schedule fleet pass", err.Error())
	}

	cleanupInterval := t.scheduler.config.CleanupInterval
	if cleanupInterval <= 0 {
		cleanupInterval = 24 * time.Hour
	}
	cleanupSpec := fmt.Sprintf("@every %s", cleanupInterval)
	if _, err := t.cron.AddFunc(cleanupSpec, func() {
		if _, err := t.scheduler.RunCleanup(ctx); err != nil {
			t.logger.WithField("error", err).Error("Scheduled retention sweep failed")
		}
	}); err != nil {
		return utils.NewAppError(utils.ErrCodeConfiguration, "Failed to schedule retention sweep", err.Error())
	}

	t.cron.Start()
	t.logger.WithFields(logrus.Fields{
		"poll_interval":    t.scheduler.config.PollInterval,
		"cleanup_interval": cleanupInterval,
	}).Info("Cron trigger started")
	return nil
}

// Stop stops the cron loop, waiting for running jobs to finish.
func (t *CronTrigger) Stop() {
	stopCtx := t.cron.Stop()
	<-stopCtx.Done()
	t.logger.Info("Cron trigger stopped")
}
