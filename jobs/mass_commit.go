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

// MassCommitJob applies a queued mass revision against a review period.
type MassCommitJob struct {
	Service *review.Service
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewMassCommitJob initialises the mass commit handler.
func NewMassCommitJob(service *review.Service, logger *slog.Logger, metrics *jobmetrics.Metrics) *MassCommitJob {
	return &MassCommitJob{
		Service: service,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle executes the queued commit.
func (j *MassCommitJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Service == nil {
		return errors.New("mass commit: handler not configured")
	}
	var payload MassCommitPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	start := j.now()
	tracker := j.metrics().Track(TaskReviewMassCommit)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger().With(
		slog.String("request_id", payload.RequestID.String()),
		slog.Int64("period_id", payload.PeriodID),
		slog.Int("items", len(payload.ItemIDs)),
	)
	logger.Info("starting mass revision commit")

	// Per-item rejections, confirmation-required ones included, land in the
	// result's failure list; an error here means the commit never ran.
	result, err := j.Service.CommitMassRevision(ctx, payload.Request())
	if err != nil {
		resultErr = err
		logger.Error("commit failed", slog.Any("error", err))
		return resultErr
	}

	logger.Info("completed mass revision commit",
		slog.Int("total", result.Total),
		slog.Int("updated", result.Updated),
		slog.Int("skipped", result.Skipped),
		slog.Int("errors", result.Errors),
		slog.Duration("duration", time.Since(start)),
	)
	return resultErr
}

func (j *MassCommitJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}

func (j *MassCommitJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *MassCommitJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
