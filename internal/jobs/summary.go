// Package jobs runs background work on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/Dan9191/loanflow/internal/integrations/cbr"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const runTimeout = 2 * time.Minute

// MetricsSource provides the dashboard counts
type MetricsSource interface {
	Collect(ctx context.Context) (*models.AdminMetrics, error)
}

// RateSource provides the central bank key rate
type RateSource interface {
	KeyRate(ctx context.Context) (cbr.KeyRate, error)
}

// SummarySender delivers a rendered summary
type SummarySender interface {
	SendSummary(to []string, summary models.PortfolioSummary) error
}

// SummaryJob builds and mails the daily portfolio summary
type SummaryJob struct {
	metrics    MetricsSource
	rates      RateSource
	sender     SummarySender
	recipients []string
	log        *logrus.Logger
	now        func() time.Time
}

// NewSummaryJob wires the job. rates may be nil.
func NewSummaryJob(metrics MetricsSource, rates RateSource, sender SummarySender, recipients []string, log *logrus.Logger) *SummaryJob {
	return &SummaryJob{
		metrics:    metrics,
		rates:      rates,
		sender:     sender,
		recipients: recipients,
		log:        log,
		now:        time.Now,
	}
}

// Run collects the summary and sends it. A key-rate failure is logged and
// the report goes out without it.
func (j *SummaryJob) Run(ctx context.Context) error {
	m, err := j.metrics.Collect(ctx)
	if err != nil {
		return fmt.Errorf("collect metrics: %w", err)
	}

	summary := models.PortfolioSummary{
		GeneratedAt: j.now().UTC(),
		Metrics:     *m,
	}
	if j.rates != nil {
		kr, err := j.rates.KeyRate(ctx)
		if err != nil {
			j.log.Warnf("Key rate unavailable for summary: %v", err)
		} else {
			summary.KeyRate = kr.Rate
		}
	}

	if err := j.sender.SendSummary(j.recipients, summary); err != nil {
		return err
	}
	j.log.WithFields(logrus.Fields{"loans": m.Loans, "recipients": len(j.recipients)}).Info("Portfolio summary sent")
	return nil
}

// Scheduler runs jobs on cron expressions
type Scheduler struct {
	cron *cron.Cron
	log  *logrus.Logger
}

// NewScheduler creates an idle scheduler
func NewScheduler(log *logrus.Logger) *Scheduler {
	return &Scheduler{
		cron: cron.New(cron.WithLogger(cron.PrintfLogger(log))),
		log:  log,
	}
}

// Schedule registers run under a standard five-field cron expression
func (s *Scheduler) Schedule(spec, name string, run func(ctx context.Context) error) error {
	_, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		if err := run(ctx); err != nil {
			s.log.Errorf("Job %s failed: %v", name, err)
		}
	})
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	s.log.Infof("Job %s scheduled at %q", name, spec)
	return nil
}

// Start runs the scheduler in its own goroutine
func (s *Scheduler) Start() { s.cron.Start() }

// Stop waits for running jobs to finish or ctx to expire
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
