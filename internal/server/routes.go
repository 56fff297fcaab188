package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"dkp_bot/pkg/httpx/reply"
)

func (s Server) RegisterRoutes(r chi.Router) {
	r.Route("/v1", func(r chi.Router) {
		r.Route("/deals", func(r chi.Router) {
			r.Get("/", handler(s.getV1Deals))
			r.Get("/stats", handler(s.getV1DealsStats))
			r.Get("/due", handler(s.getV1DealsDue))
		})

		r.Route("/sync", func(r chi.Router) {
			r.Post("/", handler(s.postV1Sync))
			r.Get("/last", handler(s.getV1SyncLast))
		})
	})
}

func handler(f func(http.ResponseWriter, *http.Request) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := f(w, r); err != nil {
			reply.Error(r.Context(), w, err)
		}
	}
}
