package dashboardhttp

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"

	"github.com/superstore-bi/dashboard/internal/dashboard/ui"
)

// MountRoutes registers the dashboard endpoints onto the router.
func (h *Handler) MountRoutes(r chi.Router) {
	if h == nil {
		return
	}
	limiter := httprate.Limit(h.opts.ExportPerMinute, time.Minute,
		httprate.WithKeyFuncs(rateLimitKey),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		}),
	)

	r.Get("/", h.handleIndex)
	r.Get(ui.DashboardPath, h.handleDashboard)
	r.Get("/readyz", h.handleReady)
	r.Route("/api", func(api chi.Router) {
		api.Get("/dashboard", h.handleAPI)
		api.Get("/dashboard/events", h.handleEvents)
		api.Get("/filters", h.handleFilters)
		api.Get("/clients", h.handleCustomers)
	})
	r.Group(func(gr chi.Router) {
		gr.Use(limiter)
		gr.Get(ui.ExportPath, h.handleCSV)
	})
}

func rateLimitKey(r *http.Request) (string, error) {
	if id := sessionKey(r); id != "" {
		return "session:" + id, nil
	}
	key, err := httprate.KeyByIP(r)
	if err != nil {
		return "", err
	}
	return "ip:" + key, nil
}
