package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	forecasthttp "github.com/odyssey-erp/cashcast/internal/forecast/http"
	"github.com/odyssey-erp/cashcast/internal/observability"
	"github.com/odyssey-erp/cashcast/internal/platform/httpx"
	"github.com/odyssey-erp/cashcast/internal/xero/oauth"
	"github.com/odyssey-erp/cashcast/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger          *slog.Logger
	Config          *Config
	ForecastHandler *forecasthttp.Handler
	OAuthHandler    *oauth.Handler
	JobHandler      *jobs.Handler
	Metrics         *observability.Metrics
	// Connected reports whether a Xero token is stored; nil skips the check.
	Connected func(*http.Request) bool
}

type healthStatus struct {
	Status    string `json:"status"`
	Connected *bool  `json:"xeroConnected,omitempty"`
}

// NewRouter constructs the chi.Router with cashcast defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		out := healthStatus{Status: "ok"}
		if params.Connected != nil {
			connected := params.Connected(r)
			out.Connected = &connected
		}
		httpx.JSON(w, http.StatusOK, out)
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		httpx.JSON(w, http.StatusOK, map[string]any{
			"service": "cashcast",
			"env":     appEnv(params.Config),
			"links": []string{
				"/reports/profit-and-loss",
				"/reports/cash-flow",
				"/reports/invoices",
				"/xero/connect",
			},
		})
	})

	if params.ForecastHandler != nil {
		params.ForecastHandler.MountRoutes(r)
	}
	if params.OAuthHandler != nil {
		params.OAuthHandler.MountRoutes(r)
	}
	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

func appEnv(cfg *Config) string {
	if cfg == nil {
		return ""
	}
	return cfg.AppEnv
}
