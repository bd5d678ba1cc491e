package usecase

import (
	"context"
	"fmt"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/internal/dto/response"
	"mycabinet-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type PantryService interface {
	List(ctx context.Context, userID uuid.UUID) (*response.PantryResponse, error)
	Add(ctx context.Context, userID uuid.UUID, req *request.AddPantryItemRequest) (*response.PantryItemResponse, error)
	UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, req *request.UpdatePantryItemRequest) error
	Remove(ctx context.Context, userID, itemID uuid.UUID) error
}

type pantryService struct {
	repo *repository.Repository
	log  *zap.Logger
}

func NewPantryService(repo *repository.Repository, log *zap.Logger) PantryService {
	return &pantryService{
		repo: repo,
		log:  log,
	}
}

func (s *pantryService) List(ctx context.Context, userID uuid.UUID) (*response.PantryResponse, error) {
	items, err := s.repo.Pantry.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load pantry")
	}

	resp := &response.PantryResponse{
		Items: make([]response.PantryItemResponse, 0, len(items)),
		Total: len(items),
	}
	for _, item := range items {
		resp.Items = append(resp.Items, toPantryItemResponse(item))
	}

	return resp, nil
}

func (s *pantryService) Add(ctx context.Context, userID uuid.UUID, req *request.AddPantryItemRequest) (*response.PantryItemResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	name := normalizeIngredientName(req.Name)
	if name == "" {
		return nil, fmt.Errorf("validation failed: name is empty")
	}

	// 1. Find or create the canonical ingredient
	ing, err := s.repo.Pantry.FindIngredientByName(ctx, name)
	if err != nil {
		return nil, fmt.Errorf("failed to add item")
	}
	if ing == nil {
		ing = &entity.Ingredient{
			BaseSimple: entity.BaseSimple{
				ID:        utils.GenerateUUID(),
				CreatedAt: time.Now(),
			},
			Name: name,
		}
		if err := s.repo.Pantry.CreateIngredient(ctx, ing); err != nil {
			return nil, fmt.Errorf("failed to add item")
		}
	}

	// 2. Adding an ingredient already on the shelf just updates its quantity
	existing, err := s.repo.Pantry.FindItem(ctx, userID, ing.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to add item")
	}
	if existing != nil {
		if err := s.repo.Pantry.UpdateQuantity(ctx, existing.ID, req.Quantity); err != nil {
			return nil, fmt.Errorf("failed to add item")
		}
		existing.Quantity = req.Quantity
		resp := toPantryItemResponse(existing)
		return &resp, nil
	}

	item := &entity.PantryItem{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: time.Now(),
		},
		UserID:         userID,
		IngredientID:   ing.ID,
		Quantity:       req.Quantity,
		IngredientName: ing.Name,
	}
	if err := s.repo.Pantry.CreateItem(ctx, item); err != nil {
		return nil, fmt.Errorf("failed to add item")
	}

	s.log.Info("Pantry item added",
		zap.String("user_id", userID.String()),
		zap.String("ingredient", ing.Name))

	resp := toPantryItemResponse(item)
	return &resp, nil
}

func (s *pantryService) UpdateQuantity(ctx context.Context, userID, itemID uuid.UUID, req *request.UpdatePantryItemRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	item, err := s.repo.Pantry.FindItemByID(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to update item")
	}
	if item == nil {
		return fmt.Errorf("pantry item not found")
	}

	if err := s.repo.Pantry.UpdateQuantity(ctx, item.ID, req.Quantity); err != nil {
		return fmt.Errorf("failed to update item")
	}

	return nil
}

func (s *pantryService) Remove(ctx context.Context, userID, itemID uuid.UUID) error {
	deleted, err := s.repo.Pantry.DeleteItem(ctx, userID, itemID)
	if err != nil {
		return fmt.Errorf("failed to remove item")
	}
	if !deleted {
		return fmt.Errorf("pantry item not found")
	}

	return nil
}

func toPantryItemResponse(item *entity.PantryItem) response.PantryItemResponse {
	return response.PantryItemResponse{
		ID:        item.ID.String(),
		Name:      item.IngredientName,
		Quantity:  item.Quantity,
		CreatedAt: item.CreatedAt,
	}
}

// normalizeIngredientName canonicalizes free-form ingredient input so
// "Fresh Lime Juice" and "lime juice" land on the same row.
func normalizeIngredientName(name string) string {
	return canonicalIngredient(name)
}
