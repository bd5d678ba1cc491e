package wire

import (
	"net/http"

	"mycabinet-backend/internal/adaptor"

	"github.com/go-chi/chi/v5"
)

func wireAuth(r chi.Router, h *adaptor.AuthHandler, authed func(http.Handler) http.Handler) {
	// ==================== PUBLIC ROUTES ====================
	r.Post("/api/auth/register", h.Register)
	r.Post("/api/auth/login", h.Login)
	r.Post("/api/auth/refresh", h.Refresh)
	r.Post("/api/auth/logout", h.Logout)
	r.Get("/api/auth/exists", h.EmailExists)

	// Magic link
	r.Post("/api/auth/login/request", h.RequestLoginLink)
	r.Post("/api/auth/login/finish", h.FinishLogin)

	// Link-based password reset
	r.Post("/api/auth/reset/request", h.RequestPasswordReset)
	r.Post("/api/auth/reset/confirm", h.ConfirmPasswordReset)

	// Code-based flows
	r.Post("/api/auth/otp/request", h.RequestOTP)
	r.Post("/api/auth/otp/verify", h.VerifyOTP)
	r.Post("/api/auth/reset/complete", h.CompleteReset)

	// Google
	r.Get("/api/auth/google/login", h.GoogleLogin)
	r.Get("/api/auth/google/callback", h.GoogleCallback)

	// ==================== PROTECTED ROUTES ====================
	r.With(authed).Get("/api/auth/me", h.Me)
}
