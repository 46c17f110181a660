package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/odyssey-erp/cashcast/internal/artifacts"
	"github.com/odyssey-erp/cashcast/internal/forecast"
	jobmetrics "github.com/odyssey-erp/cashcast/internal/jobs"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// Pipeline describes the forecast operations a sync run drives.
type Pipeline interface {
	ProfitAndLoss(ctx context.Context) (forecast.Normalization, error)
	CashFlow(ctx context.Context) (forecast.CashFlow, error)
	Invoices(ctx context.Context) ([]forecast.LedgerEntry, error)
	Invalidate(ctx context.Context) error
}

// ArtifactSink stores the output of each slot.
type ArtifactSink interface {
	Save(ctx context.Context, slot artifacts.Slot, payload any) (artifacts.Artifact, error)
}

// SyncJob pulls fresh reports from Xero and persists the pipeline outputs.
type SyncJob struct {
	Pipeline Pipeline
	Sink     ArtifactSink
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
	clock    func() time.Time
}

// NewSyncJob wires dependencies for the sync handler.
func NewSyncJob(pipeline Pipeline, sink ArtifactSink, logger *slog.Logger, metrics *jobmetrics.Metrics) *SyncJob {
	return &SyncJob{
		Pipeline: pipeline,
		Sink:     sink,
		Logger:   logger,
		Metrics:  metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes TaskXeroSync tasks. A failing slot is logged and the run
// moves on; the run fails only when every slot failed, and never retries since
// the next tick supersedes it.
func (j *SyncJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Pipeline == nil || j.Sink == nil {
		return errors.New("xero sync: handler not configured")
	}
	var payload SyncPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("xero sync: decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	slots, err := payload.Slots()
	if err != nil {
		return fmt.Errorf("xero sync: %v: %w", err, asynq.SkipRetry)
	}

	tracker := j.metrics().Track(TaskXeroSync)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	logger := j.logger()
	start := j.now()
	logger.Info("starting xero sync", slog.Int("slots", len(slots)))

	if err := j.Pipeline.Invalidate(ctx); err != nil {
		logger.Warn("invalidate forecast cache", slog.Any("error", err))
	}

	var failures []error
	for _, slot := range slots {
		err := j.syncSlot(ctx, slot)
		j.metrics().ObserveSlot(string(slot), err)
		if err != nil {
			logger.Error("sync slot", slog.String("slot", string(slot)), slog.Any("error", err))
			failures = append(failures, err)
		}
	}

	if len(failures) == len(slots) {
		resultErr = fmt.Errorf("xero sync: all %d slots failed: %w: %w", len(slots), errors.Join(failures...), asynq.SkipRetry)
		return resultErr
	}
	logger.Info("completed xero sync",
		slog.Int("saved", len(slots)-len(failures)),
		slog.Int("failed", len(failures)),
		slog.Duration("duration", j.now().Sub(start)))
	return resultErr
}

func (j *SyncJob) syncSlot(ctx context.Context, slot artifacts.Slot) error {
	var (
		payload any
		err     error
	)
	switch slot {
	case artifacts.SlotProfitAndLoss:
		payload, err = j.Pipeline.ProfitAndLoss(ctx)
	case artifacts.SlotCashFlow:
		var flow forecast.CashFlow
		flow, err = j.Pipeline.CashFlow(ctx)
		if err == nil {
			j.metrics().AddDegraded(flow.Degraded...)
		}
		payload = flow
	case artifacts.SlotInvoices:
		payload, err = j.Pipeline.Invoices(ctx)
	default:
		return fmt.Errorf("%w: %q", artifacts.ErrUnknownSlot, slot)
	}
	if err != nil {
		return err
	}
	_, err = j.Sink.Save(ctx, slot, payload)
	return err
}

func (j *SyncJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskXeroSync))
	}
	return slog.Default().With(slog.String("job", TaskXeroSync))
}

func (j *SyncJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *SyncJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
