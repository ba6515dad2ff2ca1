package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
)

// NewRouter builds the chi router with the global middleware stack and
// every API route.
func NewRouter(h *EventHandler, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)                    // permissive CORS for demo

	r.NotFound(NotFound)

	r.Get("/", Index)
	r.Get("/health", HealthCheck)

	r.Route("/events", func(r chi.Router) {
		r.Get("/", h.ListEvents)
		r.Get("/{id}", h.GetEvent)
		r.Post("/{id}/register", h.Register)
		r.Get("/{id}/participants", h.ListParticipants)
	})

	r.Route("/venues", func(r chi.Router) {
		r.Get("/", h.ListVenues)
		r.Get("/{id}", h.GetVenue)
		r.Get("/{id}/availability", h.Availability)
		r.Post("/{id}/book", h.BookVenue)
	})

	r.Route("/notifications", func(r chi.Router) {
		r.Post("/send", h.SendNotification)
		r.Get("/log", h.NotificationLog)
	})

	r.Route("/tools", func(r chi.Router) {
		r.Get("/", h.ListTools)
		r.Post("/call", h.CallTool)
	})

	return r
}
