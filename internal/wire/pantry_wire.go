package wire

import (
	"net/http"

	"mycabinet-backend/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wirePantry(r chi.Router, h *adaptor.PantryHandler, authed func(http.Handler) http.Handler) {
	r.With(authed).Get("/api/users/me/pantry", h.List)
	r.With(authed).Post("/api/users/me/pantry", h.Add)
	r.With(authed).Put("/api/users/me/pantry/{id}", h.Update)
	r.With(authed).Delete("/api/users/me/pantry/{id}", h.Remove)
}
