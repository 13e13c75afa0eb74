package api

import (
	"github.com/go-chi/chi/v5"
)

// NewRouter creates a chi router with all API routes mounted.
func NewRouter(h *Handler) chi.Router {
	r := chi.NewRouter()

	r.Post("/chat", h.Chat)
	r.Get("/chat", h.ChatUsage)

	r.Get("/transactions/count/{year}", h.CountYear)
	r.Get("/transactions/{year}", h.Transactions)
	r.Get("/count", h.Count)

	r.Get("/health", h.Health)

	return r
}
