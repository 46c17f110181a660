// Package forecasthttp exposes the forecast pipelines over HTTP.
package forecasthttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/odyssey-erp/cashcast/internal/platform/httpx"
)

// ReportsPerMinute caps pipeline requests per client IP.
const ReportsPerMinute = 30

// MountRoutes registers forecast endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(ReportsPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			httpx.Problem(w, http.StatusTooManyRequests, "Too Many Requests", "")
		}),
	)

	r.Route("/reports", func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get("/profit-and-loss", h.handleProfitAndLoss)
		gr.Get("/cash-flow", h.handleCashFlow)
		gr.Get("/invoices", h.handleInvoices)
	})
	r.Get("/artifacts/{slot}", h.handleArtifact)
}

func rateLimitKey(r *http.Request) (string, error) {
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
