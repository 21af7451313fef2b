package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/meridian-erp/meridian-erp/internal/jobs"
	"github.com/meridian-erp/meridian-erp/internal/review"
)

const expiryScanPageSize = 200

// ExpiryScanJob counts items approaching the end of their depreciation
// schedule across every open period of a company and publishes the counts
// as gauges.
type ExpiryScanJob struct {
	Service *review.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewExpiryScanJob initialises the expiry scan handler.
func NewExpiryScanJob(service *review.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *ExpiryScanJob {
	return &ExpiryScanJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the expiry scan logic.
func (j *ExpiryScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("expiry scan: handler not configured")
	}
	var payload ExpiryScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskReviewExpiryScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(slog.Int64("company_id", payload.CompanyID))
	logger.Info("starting expiry scan")

	periods, expiring, err := j.scan(ctx, payload.CompanyID, start)
	if err != nil {
		resultErr = err
		logger.Error("scan failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed expiry scan",
		slog.Int("periods", periods),
		slog.Int("expiring", expiring),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *ExpiryScanJob) scan(ctx context.Context, companyID int64, now time.Time) (int, int, error) {
	scanned := 0
	expiring := 0
	offset := 0
	for {
		periods, err := j.Service.ListPeriods(ctx, companyID, expiryScanPageSize, offset)
		if err != nil {
			return scanned, expiring, err
		}
		for _, p := range periods {
			if p.Closed() {
				continue
			}
			items, err := j.Service.ListItems(ctx, p.ID)
			if err != nil {
				return scanned, expiring, err
			}
			count := 0
			for _, it := range items {
				if review.NearExpiration(now, it) {
					count++
				}
			}
			j.metrics().SetExpiring(companyID, p.ID, count)
			scanned++
			expiring += count
		}
		if len(periods) < expiryScanPageSize {
			return scanned, expiring, nil
		}
		offset += expiryScanPageSize
	}
}

func (j *ExpiryScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *ExpiryScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *ExpiryScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
