package forecasthttp

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/cashcast/internal/artifacts"
	"github.com/odyssey-erp/cashcast/internal/forecast"
	"github.com/odyssey-erp/cashcast/internal/platform/httpx"
)

const defaultRequestTimeout = 60 * time.Second

// ForecastService defines the pipeline contract used by the handler.
type ForecastService interface {
	ProfitAndLoss(ctx context.Context) (forecast.Normalization, error)
	CashFlow(ctx context.Context) (forecast.CashFlow, error)
	Invoices(ctx context.Context) ([]forecast.LedgerEntry, error)
}

// ArtifactReader loads persisted sync output.
type ArtifactReader interface {
	Latest(ctx context.Context, slot artifacts.Slot) (artifacts.Artifact, error)
}

// Handler serves forecast reports and stored artifacts as JSON.
type Handler struct {
	logger    *slog.Logger
	service   ForecastService
	artifacts ArtifactReader
	timeout   time.Duration
}

// NewHandler constructs the forecast HTTP handler.
func NewHandler(logger *slog.Logger, service ForecastService, artifacts ArtifactReader) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, artifacts: artifacts, timeout: defaultRequestTimeout}
}

// WithTimeout overrides the per-request pipeline deadline.
func (h *Handler) WithTimeout(d time.Duration) {
	if d > 0 {
		h.timeout = d
	}
}

var errorMappings = []httpx.ErrorMapping{
	{Target: forecast.ErrCredentials, Status: http.StatusUnauthorized, Title: "Xero Authorization Required"},
	{Target: forecast.ErrBalanceUnavailable, Status: http.StatusServiceUnavailable, Title: "Bank Balance Unavailable"},
	{Target: forecast.ErrNoReport, Status: http.StatusServiceUnavailable, Title: "Report Unavailable"},
	{Target: forecast.ErrFetch, Status: http.StatusBadGateway, Title: "Upstream Fetch Failed"},
	{Target: artifacts.ErrUnknownSlot, Status: http.StatusBadRequest, Title: "Unknown Artifact Slot"},
	{Target: artifacts.ErrNotFound, Status: http.StatusNotFound, Title: "Artifact Not Found"},
}

func (h *Handler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.service.ProfitAndLoss(ctx)
	if err != nil {
		h.fail(w, "profit and loss", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleCashFlow(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.service.CashFlow(ctx)
	if err != nil {
		h.fail(w, "cash flow", err)
		return
	}
	if len(out.Degraded) > 0 {
		w.Header().Set("Warning", `199 cashcast "degraded forecast"`)
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleInvoices(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()
	out, err := h.service.Invoices(ctx)
	if err != nil {
		h.fail(w, "invoices", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) handleArtifact(w http.ResponseWriter, r *http.Request) {
	slot, err := artifacts.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		h.fail(w, "artifact", err)
		return
	}
	if h.artifacts == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Artifact Store Unavailable", "")
		return
	}
	art, err := h.artifacts.Latest(r.Context(), slot)
	if err != nil {
		h.fail(w, "artifact", err)
		return
	}
	httpx.JSON(w, http.StatusOK, art)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Warn("forecast request failed", slog.String("op", op), slog.Any("error", err))
	httpx.RespondError(w, err, errorMappings...)
}
