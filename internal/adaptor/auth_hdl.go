package adaptor

import (
	"encoding/json"
	"net/http"
	"time"

	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/internal/dto/response"
	"mycabinet-backend/internal/usecase"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

const oauthStateCookie = "oauth_state"

type AuthHandler struct {
	service usecase.AuthService
	google  usecase.GoogleService
	config  *utils.Config
	log     *zap.Logger
}

func NewAuthHandler(service usecase.AuthService, google usecase.GoogleService, config *utils.Config, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		google:  google,
		config:  config,
		log:     log,
	}
}

// Register handles POST /api/auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req request.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.Register(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.log, err, "register")
		return
	}

	utils.ResponseCreated(w, "Registration successful. Check your email for a verification code.", resp)
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req request.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.Login(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.log, err, "login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}

// Refresh handles POST /api/auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req request.RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	pair, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		respondServiceError(w, h.log, err, "refresh session")
		return
	}

	utils.ResponseSuccess(w, "Session refreshed", pair)
}

// Logout handles POST /api/auth/logout. Sessions are stateless JWTs, so
// there is nothing to revoke server-side; clients drop their tokens.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.ResponseNoContent(w)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.Me(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.log, err, "load profile")
		return
	}

	utils.ResponseSuccess(w, "Profile loaded", resp)
}

// EmailExists handles GET /api/auth/exists?email=...
func (h *AuthHandler) EmailExists(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if email == "" {
		utils.ResponseBadRequest(w, "email query parameter is required", nil)
		return
	}

	exists, err := h.service.EmailExists(r.Context(), email)
	if err != nil {
		respondServiceError(w, h.log, err, "check email")
		return
	}

	utils.ResponseSuccess(w, "Email checked", response.ExistsResponse{Exists: exists})
}

// RequestLoginLink handles POST /api/auth/login/request.
// Always answers 200 regardless of account existence or rate limits.
func (h *AuthHandler) RequestLoginLink(w http.ResponseWriter, r *http.Request) {
	var req request.EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.RequestLoginLink(r.Context(), req.Email); err != nil {
		respondServiceError(w, h.log, err, "request login link")
		return
	}

	utils.ResponseSuccess(w, "If that address can receive mail, a sign-in link is on its way.", nil)
}

// FinishLogin handles POST /api/auth/login/finish
func (h *AuthHandler) FinishLogin(w http.ResponseWriter, r *http.Request) {
	var req request.FinishLoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.FinishLogin(r.Context(), req.Token)
	if err != nil {
		respondServiceError(w, h.log, err, "finish login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}

// RequestPasswordReset handles POST /api/auth/reset/request.
// Always answers 200.
func (h *AuthHandler) RequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req request.EmailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.RequestPasswordReset(r.Context(), req.Email); err != nil {
		respondServiceError(w, h.log, err, "request password reset")
		return
	}

	utils.ResponseSuccess(w, "If that address has an account, a reset link is on its way.", nil)
}

// ConfirmPasswordReset handles POST /api/auth/reset/confirm
func (h *AuthHandler) ConfirmPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req request.ResetPasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.ConfirmPasswordReset(r.Context(), &req); err != nil {
		respondServiceError(w, h.log, err, "confirm password reset")
		return
	}

	utils.ResponseSuccess(w, "Password updated", nil)
}

// RequestOTP handles POST /api/auth/otp/request.
// Always answers 200.
func (h *AuthHandler) RequestOTP(w http.ResponseWriter, r *http.Request) {
	var req request.RequestOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.RequestOTP(r.Context(), &req); err != nil {
		respondServiceError(w, h.log, err, "request OTP")
		return
	}

	utils.ResponseSuccess(w, "If that address can receive mail, a code is on its way.", nil)
}

// VerifyOTP handles POST /api/auth/otp/verify
func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req request.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	resp, err := h.service.VerifyOTP(r.Context(), &req)
	if err != nil {
		respondServiceError(w, h.log, err, "verify OTP")
		return
	}

	utils.ResponseSuccess(w, "Code accepted", resp)
}

// CompleteReset handles POST /api/auth/reset/complete
func (h *AuthHandler) CompleteReset(w http.ResponseWriter, r *http.Request) {
	var req request.CompleteResetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.CompleteReset(r.Context(), &req); err != nil {
		respondServiceError(w, h.log, err, "complete password reset")
		return
	}

	utils.ResponseSuccess(w, "Password updated", nil)
}

// GoogleLogin handles GET /api/auth/google/login. It hands back the
// provider URL instead of redirecting so mobile clients can open it in a
// system browser.
func (h *AuthHandler) GoogleLogin(w http.ResponseWriter, r *http.Request) {
	state, err := utils.GenerateOpaqueToken()
	if err != nil {
		utils.ResponseInternalError(w, "Internal server error")
		return
	}

	url, err := h.google.AuthURL(r.Context(), state)
	if err != nil {
		respondServiceError(w, h.log, err, "start google login")
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    state,
		Path:     "/",
		MaxAge:   int((10 * time.Minute).Seconds()),
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})

	utils.ResponseSuccess(w, "Continue with Google", map[string]string{
		"auth_url": url,
		"state":    state,
	})
}

// GoogleCallback handles GET /api/auth/google/callback
func (h *AuthHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	// Browser flows carry the state in the cookie; mobile flows hold it
	// client-side, so a missing cookie only fails when states disagree.
	state := r.URL.Query().Get("state")
	if state == "" {
		utils.ResponseBadRequest(w, "Invalid OAuth state", nil)
		return
	}
	if cookie, err := r.Cookie(oauthStateCookie); err == nil && cookie.Value != state {
		h.log.Warn("Google callback with bad state")
		utils.ResponseBadRequest(w, "Invalid OAuth state", nil)
		return
	}

	// One shot per state.
	http.SetCookie(w, &http.Cookie{
		Name:     oauthStateCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	code := r.URL.Query().Get("code")
	if code == "" {
		utils.ResponseBadRequest(w, "Missing authorization code", nil)
		return
	}

	resp, err := h.google.Callback(r.Context(), code)
	if err != nil {
		respondServiceError(w, h.log, err, "google login")
		return
	}

	utils.ResponseSuccess(w, "Login successful", resp)
}
