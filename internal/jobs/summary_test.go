package jobs

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/Dan9191/loanflow/internal/integrations/cbr"
	"github.com/Dan9191/loanflow/internal/models"
	"github.com/sirupsen/logrus"
)

type metricsFunc func(ctx context.Context) (*models.AdminMetrics, error)

func (f metricsFunc) Collect(ctx context.Context) (*models.AdminMetrics, error) { return f(ctx) }

type rateFunc func(ctx context.Context) (cbr.KeyRate, error)

func (f rateFunc) KeyRate(ctx context.Context) (cbr.KeyRate, error) { return f(ctx) }

type senderFunc func(to []string, s models.PortfolioSummary) error

func (f senderFunc) SendSummary(to []string, s models.PortfolioSummary) error { return f(to, s) }

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fixedMetrics() metricsFunc {
	return func(context.Context) (*models.AdminMetrics, error) {
		return &models.AdminMetrics{Customers: 3, Loans: 5}, nil
	}
}

func TestSummaryJob_Run(t *testing.T) {
	tests := []struct {
		name     string
		metrics  MetricsSource
		rates    RateSource
		sendErr  error
		wantErr  bool
		wantSent bool
		wantRate float64
	}{
		{
			name:     "with key rate",
			metrics:  fixedMetrics(),
			rates:    rateFunc(func(context.Context) (cbr.KeyRate, error) { return cbr.KeyRate{Rate: 16.5}, nil }),
			wantSent: true,
			wantRate: 16.5,
		},
		{
			name:     "key rate failure still sends",
			metrics:  fixedMetrics(),
			rates:    rateFunc(func(context.Context) (cbr.KeyRate, error) { return cbr.KeyRate{}, errors.New("timeout") }),
			wantSent: true,
		},
		{
			name:     "no rate source",
			metrics:  fixedMetrics(),
			wantSent: true,
		},
		{
			name: "metrics failure aborts",
			metrics: metricsFunc(func(context.Context) (*models.AdminMetrics, error) {
				return nil, errors.New("db down")
			}),
			wantErr: true,
		},
		{
			name:     "send failure is returned",
			metrics:  fixedMetrics(),
			sendErr:  errors.New("smtp 554"),
			wantErr:  true,
			wantSent: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				sent bool
				got  models.PortfolioSummary
				to   []string
			)
			sender := senderFunc(func(rcpt []string, s models.PortfolioSummary) error {
				sent, got, to = true, s, rcpt
				return tt.sendErr
			})
			job := NewSummaryJob(tt.metrics, tt.rates, sender, []string{"risk@example.com"}, quietLogger())
			job.now = func() time.Time { return time.Date(2026, 10, 15, 7, 0, 0, 0, time.UTC) }

			err := job.Run(context.Background())
			if (err != nil) != tt.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, tt.wantErr)
			}
			if sent != tt.wantSent {
				t.Fatalf("sent = %v, want %v", sent, tt.wantSent)
			}
			if !sent {
				return
			}
			if got.KeyRate != tt.wantRate || got.Metrics.Loans != 5 || !got.GeneratedAt.Equal(job.now()) {
				t.Errorf("summary = %+v", got)
			}
			if len(to) != 1 || to[0] != "risk@example.com" {
				t.Errorf("recipients = %v", to)
			}
		})
	}
}

func TestScheduler_RejectsBadSpec(t *testing.T) {
	s := NewScheduler(quietLogger())
	if err := s.Schedule("every day please", "summary", func(context.Context) error { return nil }); err == nil {
		t.Fatal("expected parse error")
	}
	if err := s.Schedule("0 7 * * *", "summary", func(context.Context) error { return nil }); err != nil {
		t.Fatalf("Schedule: %v", err)
	}
	s.Start()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)
}
