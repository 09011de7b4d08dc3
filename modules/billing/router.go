package billing

import (
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/studyforge/billing/pkg/billing"
	"github.com/studyforge/billing/pkg/quota"
)

// Router mounts the billing API. The authenticating gateway terminates auth
// and injects the user identity as the X-User-ID header; the webhook sink is
// the only route that skips that requirement.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Mount("/billing", billing.Router(billingSvc, quotaSvc, log))
func Router(svc billing.Service, quotas quota.Service, log *slog.Logger) chi.Router {
	if svc == nil {
		panic("billing module: billing service is required")
	}
	if quotas == nil {
		panic("billing module: quota service is required")
	}
	if log == nil {
		log = slog.Default()
	}

	h := &handlers{svc: svc, quotas: quotas, log: log}

	r := chi.NewRouter()
	r.Post("/webhooks/stripe", h.webhook)

	r.Group(func(r chi.Router) {
		r.Use(requireUserID)
		r.Get("/state", h.state)
		r.Post("/plan", h.changePlan)
		r.Post("/cancel", h.cancel)
		r.Post("/reactivate", h.reactivate)
		r.Post("/minutes", h.purchaseMinutes)
	})

	return r
}
