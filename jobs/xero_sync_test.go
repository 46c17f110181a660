package jobs

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"

	"github.com/odyssey-erp/cashcast/internal/artifacts"
	"github.com/odyssey-erp/cashcast/internal/forecast"
	jobmetrics "github.com/odyssey-erp/cashcast/internal/jobs"
)

type stubPipeline struct {
	plErr, flowErr, invErr error
	degraded               []string
	invalidated            int
}

func (s *stubPipeline) ProfitAndLoss(context.Context) (forecast.Normalization, error) {
	return forecast.Normalization{}, s.plErr
}

func (s *stubPipeline) CashFlow(context.Context) (forecast.CashFlow, error) {
	return forecast.CashFlow{Degraded: s.degraded}, s.flowErr
}

func (s *stubPipeline) Invoices(context.Context) ([]forecast.LedgerEntry, error) {
	return []forecast.LedgerEntry{}, s.invErr
}

func (s *stubPipeline) Invalidate(context.Context) error {
	s.invalidated++
	return nil
}

type stubSink struct {
	saved []artifacts.Slot
}

func (s *stubSink) Save(_ context.Context, slot artifacts.Slot, _ any) (artifacts.Artifact, error) {
	s.saved = append(s.saved, slot)
	return artifacts.Artifact{Slot: slot}, nil
}

func counterValue(t *testing.T, reg *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	for _, fam := range families {
		if fam.GetName() != name {
			continue
		}
		for _, metric := range fam.GetMetric() {
			if labelsMatch(metric.GetLabel(), labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func labelsMatch(pairs []*dto.LabelPair, expected map[string]string) bool {
	seen := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		seen[pair.GetName()] = pair.GetValue()
	}
	for k, v := range expected {
		if seen[k] != v {
			return false
		}
	}
	return true
}

func TestSyncJobSavesEverySlot(t *testing.T) {
	reg := prometheus.NewRegistry()
	pipeline := &stubPipeline{degraded: []string{forecast.DegradedInvoices}}
	sink := &stubSink{}
	job := NewSyncJob(pipeline, sink, nil, jobmetrics.NewMetrics(reg))

	task, err := NewSyncTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))

	require.Equal(t, artifacts.Slots(), sink.saved)
	require.Equal(t, 1, pipeline.invalidated)
	require.Equal(t, 1.0, counterValue(t, reg, "cashcast_jobs_total", map[string]string{"job": TaskXeroSync, "status": "success"}))
	require.Equal(t, 1.0, counterValue(t, reg, "cashcast_forecast_degraded_total", map[string]string{"reason": forecast.DegradedInvoices}))
}

func TestSyncJobContinuesPastFailures(t *testing.T) {
	reg := prometheus.NewRegistry()
	pipeline := &stubPipeline{flowErr: forecast.ErrBalanceUnavailable}
	sink := &stubSink{}
	job := NewSyncJob(pipeline, sink, nil, jobmetrics.NewMetrics(reg))

	task, err := NewSyncTask()
	require.NoError(t, err)
	require.NoError(t, job.Handle(context.Background(), task))
	require.Equal(t, []artifacts.Slot{artifacts.SlotProfitAndLoss, artifacts.SlotInvoices}, sink.saved)
	require.Equal(t, 1.0, counterValue(t, reg, "cashcast_sync_slots_total", map[string]string{"slot": "cash_flow", "status": "failure"}))
}

func TestSyncJobAllFailedSkipsRetry(t *testing.T) {
	reg := prometheus.NewRegistry()
	boom := errors.New("xero down")
	pipeline := &stubPipeline{plErr: boom, flowErr: boom, invErr: boom}
	job := NewSyncJob(pipeline, &stubSink{}, nil, jobmetrics.NewMetrics(reg))

	task, err := NewSyncTask(artifacts.SlotInvoices)
	require.NoError(t, err)
	err = job.Handle(context.Background(), task)
	require.ErrorIs(t, err, asynq.SkipRetry)
	require.ErrorIs(t, err, boom)
	require.Equal(t, 1.0, counterValue(t, reg, "cashcast_jobs_failures_total", map[string]string{"job": TaskXeroSync}))
}

func TestSyncJobRejectsBadPayload(t *testing.T) {
	job := NewSyncJob(&stubPipeline{}, &stubSink{}, nil, jobmetrics.NewMetrics(prometheus.NewRegistry()))

	err := job.Handle(context.Background(), asynq.NewTask(TaskXeroSync, []byte(`{"artifacts":["balance_sheet"]}`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	err = job.Handle(context.Background(), asynq.NewTask(TaskXeroSync, []byte(`not json`)))
	require.ErrorIs(t, err, asynq.SkipRetry)

	_, err = NewSyncTask(artifacts.Slot("nope"))
	require.ErrorIs(t, err, artifacts.ErrUnknownSlot)

	var nilJob *SyncJob
	require.Error(t, nilJob.Handle(context.Background(), asynq.NewTask(TaskXeroSync, nil)))
}

func TestSyncPayloadSlotsDeduplicates(t *testing.T) {
	slots, err := SyncPayload{Artifacts: []string{"invoices", "cash_flow", "invoices"}}.Slots()
	require.NoError(t, err)
	require.Equal(t, []artifacts.Slot{artifacts.SlotInvoices, artifacts.SlotCashFlow}, slots)
}

type stubEnqueuer struct {
	slots []artifacts.Slot
	err   error
}

func (s *stubEnqueuer) EnqueueSync(_ context.Context, slots ...artifacts.Slot) (*asynq.TaskInfo, error) {
	s.slots = slots
	if s.err != nil {
		return nil, s.err
	}
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

type stubInspector struct {
	info *asynq.QueueInfo
	err  error
}

func (s stubInspector) GetQueueInfo(string) (*asynq.QueueInfo, error) {
	return s.info, s.err
}

const testSyncToken = "s3cret"

func syncRequest(body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(http.MethodPost, "/sync", nil)
	} else {
		req = httptest.NewRequest(http.MethodPost, "/sync", bytes.NewBufferString(body))
	}
	req.Header.Set("Authorization", "Bearer "+testSyncToken)
	return req
}

func TestHandlerRoutes(t *testing.T) {
	enq := &stubEnqueuer{}
	r := chi.NewRouter()
	NewHandler(stubInspector{info: &asynq.QueueInfo{Queue: QueueDefault, Pending: 3}}, enq, nil).
		WithSyncToken(testSyncToken).
		MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":3,"active":0,"failed":0}`, rec.Body.String())

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, syncRequest(""))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, artifacts.Slots(), enq.slots)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, syncRequest(`{"artifacts":["cash_flow"]}`))
	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []artifacts.Slot{artifacts.SlotCashFlow}, enq.slots)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, syncRequest(`{"artifacts":["nope"]}`))
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerSyncRequiresToken(t *testing.T) {
	enq := &stubEnqueuer{}
	r := chi.NewRouter()
	NewHandler(nil, enq, nil).WithSyncToken(testSyncToken).MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sync", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Header().Get("WWW-Authenticate"), "Bearer")

	req := httptest.NewRequest(http.MethodPost, "/sync", nil)
	req.Header.Set("Authorization", "Bearer wrong")
	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Nil(t, enq.slots)

	disabled := chi.NewRouter()
	NewHandler(nil, enq, nil).MountRoutes(disabled)
	rec = httptest.NewRecorder()
	disabled.ServeHTTP(rec, syncRequest(""))
	require.Equal(t, http.StatusForbidden, rec.Code)
	require.Nil(t, enq.slots)
}

func TestHandlerQueueUnavailable(t *testing.T) {
	r := chi.NewRouter()
	NewHandler(stubInspector{err: errors.New("redis down")}, &stubEnqueuer{err: errors.New("redis down")}, nil).
		WithSyncToken(testSyncToken).
		MountRoutes(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, syncRequest(""))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
