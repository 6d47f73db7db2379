// Package scheduler runs the periodic fee digest.
package scheduler

import (
	"fmt"
	"time"

	"github.com/Dan9191/fee-registry/internal/metrics"
	"github.com/Dan9191/fee-registry/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RecordSource supplies the records summarized by the digest.
type RecordSource interface {
	Records() []models.StudentRecord
}

// DigestSender delivers a digest of records.
type DigestSender interface {
	SendDigest(records []models.StudentRecord, at time.Time) error
}

// Scheduler wraps a cron runner with the digest job.
type Scheduler struct {
	cron    *cron.Cron
	records RecordSource
	sender  DigestSender
	metrics *metrics.Metrics
	log     *logrus.Logger
}

// New schedules the digest on schedule, a standard five-field cron expression.
func New(schedule string, records RecordSource, sender DigestSender, m *metrics.Metrics, log *logrus.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		records: records,
		sender:  sender,
		metrics: m,
		log:     log,
	}
	if _, err := s.cron.AddFunc(schedule, s.RunDigest); err != nil {
		return nil, fmt.Errorf("invalid digest schedule %q: %w", schedule, err)
	}
	return s, nil
}

// RunDigest sends one digest of the current records.
func (s *Scheduler) RunDigest() {
	records := s.records.Records()
	if err := s.sender.SendDigest(records, time.Now()); err != nil {
		s.metrics.DigestsSent.WithLabelValues("error").Inc()
		s.log.WithError(err).Error("Fee digest failed")
		return
	}
	s.metrics.DigestsSent.WithLabelValues("ok").Inc()
	s.log.WithField("records", len(records)).Info("Fee digest sent")
}

// Start runs the scheduler in its own goroutine.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts scheduling and waits for a running digest to finish.
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}
