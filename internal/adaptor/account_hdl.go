package adaptor

import (
	"encoding/json"
	"net/http"

	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/internal/usecase"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

type AccountHandler struct {
	service usecase.AccountService
	log     *zap.Logger
}

func NewAccountHandler(service usecase.AccountService, log *zap.Logger) *AccountHandler {
	return &AccountHandler{
		service: service,
		log:     log,
	}
}

// ChangePassword handles POST /api/auth/password/change-with-current
func (h *AccountHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.ChangePassword(r.Context(), userID, &req); err != nil {
		respondServiceError(w, h.log, err, "change password")
		return
	}

	utils.ResponseSuccess(w, "Password updated", nil)
}

// ChangePasswordVerified handles POST /api/auth/password/change
func (h *AccountHandler) ChangePasswordVerified(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.ChangePasswordVerifiedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.ChangePasswordVerified(r.Context(), userID, &req); err != nil {
		respondServiceError(w, h.log, err, "change password")
		return
	}

	utils.ResponseSuccess(w, "Password updated", nil)
}

// DeleteAccount handles DELETE /api/auth/account
func (h *AccountHandler) DeleteAccount(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.DeleteAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	if err := h.service.DeleteAccount(r.Context(), userID, &req); err != nil {
		respondServiceError(w, h.log, err, "delete account")
		return
	}

	utils.ResponseSuccess(w, "Account deleted", nil)
}
