package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer, h.withTraceID, h.withLogging)

	router.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.health)

		// authorized routes
		r.Group(func(r chi.Router) {
			r.Use(h.limitByIP, withGZip, h.withBodyLimit, h.auth, h.limitByUser)

			r.Post("/sync/push", h.push)
			r.Get("/sync/pull", h.pull)

			r.Post("/devices", h.registerDevice)
			r.Get("/devices", h.listDevices)
			r.Delete("/devices/{deviceID}", h.deleteDevice)

			r.Get("/account/usage", h.usage)
			r.Get("/account/export", h.export)
			r.Delete("/account", h.deleteAccount)
		})
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
