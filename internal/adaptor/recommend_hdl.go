package adaptor

import (
	"net/http"
	"strconv"

	"mycabinet-backend/internal/usecase"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

type RecommendHandler struct {
	service usecase.RecommendService
	log     *zap.Logger
}

func NewRecommendHandler(service usecase.RecommendService, log *zap.Logger) *RecommendHandler {
	return &RecommendHandler{
		service: service,
		log:     log,
	}
}

// Recommend handles GET /api/recommendations?limit=N
func (h *RecommendHandler) Recommend(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			utils.ResponseBadRequest(w, "limit must be a positive integer", nil)
			return
		}
		limit = parsed
	}

	resp, err := h.service.Recommend(r.Context(), userID, limit)
	if err != nil {
		respondServiceError(w, h.log, err, "recommend cocktails")
		return
	}

	utils.ResponseSuccess(w, "Recommendations ready", resp)
}
