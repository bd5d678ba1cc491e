package adaptor

import (
	"net/http"
	"strings"

	"mycabinet-backend/internal/usecase"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

type Handler struct {
	Auth      *AuthHandler
	Account   *AccountHandler
	Pantry    *PantryHandler
	Recommend *RecommendHandler
	Redirect  *RedirectHandler
}

func NewHandler(service *usecase.Service, config *utils.Config, log *zap.Logger) *Handler {
	return &Handler{
		Auth:      NewAuthHandler(service.Auth, service.Google, config, log),
		Account:   NewAccountHandler(service.Account, log),
		Pantry:    NewPantryHandler(service.Pantry, log),
		Recommend: NewRecommendHandler(service.Recommend, log),
		Redirect:  NewRedirectHandler(config, log),
	}
}

// respondServiceError maps service error messages onto HTTP statuses.
func respondServiceError(w http.ResponseWriter, log *zap.Logger, err error, operation string) {
	errMsg := err.Error()

	switch {
	case strings.Contains(errMsg, "not found"):
		log.Warn(operation+" failed - not found", zap.Error(err))
		utils.ResponseNotFound(w, errMsg)

	case strings.Contains(errMsg, "already registered"):
		log.Warn(operation+" failed - conflict", zap.Error(err))
		utils.ResponseConflict(w, errMsg)

	case strings.Contains(errMsg, "invalid credentials"):
		log.Warn(operation+" failed - invalid credentials", zap.Error(err))
		utils.ResponseUnauthorized(w, errMsg)

	case strings.Contains(errMsg, "invalid or expired"):
		log.Warn(operation+" failed - invalid token", zap.Error(err))
		utils.ResponseBadRequest(w, errMsg, nil)

	case strings.Contains(errMsg, "weak password"):
		log.Warn(operation+" failed - weak password", zap.Error(err))
		utils.ResponseUnprocessable(w, errMsg, nil)

	case strings.Contains(errMsg, "validation failed"),
		strings.Contains(errMsg, "has no password"):
		log.Warn(operation+" validation failed", zap.Error(err))
		utils.ResponseBadRequest(w, errMsg, nil)

	case strings.Contains(errMsg, "not configured"),
		strings.Contains(errMsg, "unavailable"):
		log.Warn(operation+" failed - upstream unavailable", zap.Error(err))
		utils.ResponseGatewayTimeout(w, errMsg)

	default:
		log.Error("Failed to "+operation, zap.Error(err), zap.String("operation", operation))
		utils.ResponseInternalError(w, "Internal server error")
	}
}
