package oauth

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/odyssey-erp/cashcast/internal/platform/httpx"
)

// Handler serves the consent redirect and callback.
type Handler struct {
	provider *Provider
	logger   *slog.Logger
}

// NewHandler constructs a Handler.
func NewHandler(provider *Provider, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{provider: provider, logger: logger}
}

// MountRoutes registers the consent routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/xero/connect", h.connect)
	r.Get("/xero/callback", h.callback)
}

func (h *Handler) connect(w http.ResponseWriter, r *http.Request) {
	target, err := h.provider.AuthCodeURL(r.Context())
	if err != nil {
		h.logger.Error("xero connect", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	if reason := q.Get("error"); reason != "" {
		httpx.Problem(w, http.StatusBadRequest, "Consent Denied", reason)
		return
	}
	code := q.Get("code")
	if code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "missing code")
		return
	}
	if err := h.provider.Exchange(r.Context(), q.Get("state"), code); err != nil {
		if errors.Is(err, ErrInvalidState) {
			httpx.Problem(w, http.StatusBadRequest, "Invalid State", err.Error())
			return
		}
		h.logger.Error("xero callback", slog.Any("error", err))
		httpx.Problem(w, http.StatusBadGateway, "Exchange Failed", "")
		return
	}
	h.logger.Info("xero connected")
	http.Redirect(w, r, "/", http.StatusFound)
}
