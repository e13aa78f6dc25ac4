package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	custommiddleware "github.com/mmeshcher/bookleaf-royalties/internal/middleware"
)

// SetupRouter настраивает HTTP-маршруты и middleware сервиса роялти.
func (h *Handler) SetupRouter() *chi.Mux {
	r := chi.NewRouter()

	r.Use(custommiddleware.Recovery(h.logger))
	r.Use(custommiddleware.GzipMiddleware)
	r.Use(custommiddleware.Logger(h.logger))
	r.Use(custommiddleware.Metrics)

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/authors", func(r chi.Router) {
		r.Get("/", h.ListAuthors)
		r.Get("/{id}", h.GetAuthor)
		r.Get("/{id}/sales", h.ListAuthorSales)
		r.Get("/{id}/withdrawals", h.ListAuthorWithdrawals)
	})

	r.Post("/withdrawals", h.Withdraw)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, http.StatusText(http.StatusNotFound))
	})

	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, http.StatusText(http.StatusMethodNotAllowed))
	})

	return r
}
