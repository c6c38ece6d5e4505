package scheduler

import (
	"context"
	"time"

	"github.com/ikkim/storefront-backend/internal/metrics"
	"github.com/ikkim/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// reportTimeout bounds a single export so a slow store cannot pile up runs
const reportTimeout = 2 * time.Minute

// CheckoutReporter is the part of the report service the scheduler drives.
type CheckoutReporter interface {
	StoreCheckoutReport(ctx context.Context, now time.Time) (string, error)
}

// ReportScheduler periodically stores the checkout workbook in object storage
type ReportScheduler struct {
	cron     *cron.Cron
	spec     string
	reporter CheckoutReporter
	now      func() time.Time
}

// NewReportScheduler takes a standard five-field cron expression, e.g. "0 9 * * *" for 9:00 daily.
func NewReportScheduler(spec string, reporter CheckoutReporter) *ReportScheduler {
	return &ReportScheduler{
		cron:     cron.New(),
		spec:     spec,
		reporter: reporter,
		now:      time.Now,
	}
}

// Start registers the job and starts the cron loop
func (s *ReportScheduler) Start() error {
	_, err := s.cron.AddFunc(s.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), reportTimeout)
		defer cancel()
		s.RunOnce(ctx)
	})
	if err != nil {
		logger.Error("Failed to add cron job for checkout report", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Report scheduler started", map[string]interface{}{
		"spec": s.spec,
	})
	return nil
}

// RunOnce exports the current checkouts and records the outcome.
func (s *ReportScheduler) RunOnce(ctx context.Context) (string, error) {
	logger.Info("Starting scheduled checkout report")

	url, err := s.reporter.StoreCheckoutReport(ctx, s.now())
	if err != nil {
		metrics.ReportRuns.WithLabelValues("failed").Inc()
		logger.Error("Failed to store checkout report from scheduler", err)
		return "", err
	}

	metrics.ReportRuns.WithLabelValues("success").Inc()
	logger.Info("Successfully stored checkout report from scheduler", map[string]interface{}{
		"url": url,
	})
	return url, nil
}

// Stop waits for a running export to finish
func (s *ReportScheduler) Stop() {
	logger.Info("Stopping report scheduler...")
	<-s.cron.Stop().Done()
	logger.Info("Report scheduler stopped")
}
