package wire

import (
	"net/http"

	"mycabinet-backend/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAccount(r chi.Router, h *adaptor.AccountHandler, authed func(http.Handler) http.Handler) {
	r.With(authed).Post("/api/auth/password/change", h.ChangePasswordVerified)
	r.With(authed).Post("/api/auth/password/change-with-current", h.ChangePassword)
	r.With(authed).Delete("/api/auth/account", h.DeleteAccount)
}
