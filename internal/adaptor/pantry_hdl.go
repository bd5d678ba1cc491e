package adaptor

import (
	"encoding/json"
	"net/http"

	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/internal/usecase"
	"mycabinet-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type PantryHandler struct {
	service usecase.PantryService
	log     *zap.Logger
}

func NewPantryHandler(service usecase.PantryService, log *zap.Logger) *PantryHandler {
	return &PantryHandler{
		service: service,
		log:     log,
	}
}

// List handles GET /api/users/me/pantry
func (h *PantryHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	resp, err := h.service.List(r.Context(), userID)
	if err != nil {
		respondServiceError(w, h.log, err, "list pantry")
		return
	}

	utils.ResponseSuccess(w, "Pantry loaded", resp)
}

// Add handles POST /api/users/me/pantry
func (h *PantryHandler) Add(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	var req request.AddPantryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	item, err := h.service.Add(r.Context(), userID, &req)
	if err != nil {
		respondServiceError(w, h.log, err, "add pantry item")
		return
	}

	utils.ResponseCreated(w, "Item added", item)
}

// Update handles PUT /api/users/me/pantry/{id}
func (h *PantryHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	itemID, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid item id", nil)
		return
	}

	var req request.UpdatePantryItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if err := h.service.UpdateQuantity(r.Context(), userID, itemID, &req); err != nil {
		respondServiceError(w, h.log, err, "update pantry item")
		return
	}

	utils.ResponseSuccess(w, "Item updated", nil)
}

// Remove handles DELETE /api/users/me/pantry/{id}
func (h *PantryHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID, ok := utils.GetUserIDFromContext(r.Context())
	if !ok {
		utils.ResponseUnauthorized(w, "Authentication required")
		return
	}

	itemID, err := utils.ParseUUID(chi.URLParam(r, "id"))
	if err != nil {
		utils.ResponseBadRequest(w, "Invalid item id", nil)
		return
	}

	if err := h.service.Remove(r.Context(), userID, itemID); err != nil {
		respondServiceError(w, h.log, err, "remove pantry item")
		return
	}

	utils.ResponseNoContent(w)
}
