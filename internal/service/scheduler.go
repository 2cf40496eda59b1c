package service

import (
	"context"
	"time"

	"ticketflow/internal/constants"

	"github.com/sirupsen/logrus"
)

// CleanupStore is the retention surface of the scheduler.
type CleanupStore interface {
	CleanupProcessedMessages(retentionDays int) error
	CleanupAuditLogs(retentionDays int) error
}

// Scheduler periodically prunes dedup records and audit logs of closed
// tickets.
type Scheduler struct {
	store         CleanupStore
	retentionDays int
	intervalHours int
	logger        *logrus.Logger
	stopCh        chan struct{}
}

func NewScheduler(store CleanupStore, retentionDays, intervalHours int, logger *logrus.Logger) *Scheduler {
	if intervalHours <= 0 {
		intervalHours = constants.CleanupSchedulerIntervalHours
	}
	return &Scheduler{
		store:         store,
		retentionDays: retentionDays,
		intervalHours: intervalHours,
		logger:        logger,
		stopCh:        make(chan struct{}),
	}
}

func (s *Scheduler) Start(ctx context.Context) {
	ticker := time.NewTicker(time.Duration(s.intervalHours) * time.Hour)
	defer ticker.Stop()

	s.logger.Info("Starting cleanup scheduler")

	s.runCleanup()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("Scheduler context cancelled, stopping")
			return
		case <-s.stopCh:
			s.logger.Info("Scheduler stop signal received, stopping")
			return
		case <-ticker.C:
			s.runCleanup()
		}
	}
}

func (s *Scheduler) Stop() {
	close(s.stopCh)
}

func (s *Scheduler) runCleanup() {
	s.logger.WithField("retentionDays", s.retentionDays).Info("Running scheduled cleanup")

	if err := s.store.CleanupProcessedMessages(constants.DedupRetentionDays); err != nil {
		s.logger.WithError(err).Error("Failed to cleanup processed message records")
	}
	if err := s.store.CleanupAuditLogs(s.retentionDays); err != nil {
		s.logger.WithError(err).Error("Failed to cleanup audit logs")
	}
}
