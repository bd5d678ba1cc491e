package wire

import (
	"net/http"

	"mycabinet-backend/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireRecommend(r chi.Router, h *adaptor.RecommendHandler, authed func(http.Handler) http.Handler) {
	r.With(authed).Get("/api/recommendations", h.Recommend)
}
