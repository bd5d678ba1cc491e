package repository

import (
	"context"
	"errors"
	"fmt"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type PantryRepository interface {
	FindIngredientByName(ctx context.Context, name string) (*entity.Ingredient, error)
	CreateIngredient(ctx context.Context, ingredient *entity.Ingredient) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PantryItem, error)
	FindItem(ctx context.Context, userID, ingredientID uuid.UUID) (*entity.PantryItem, error)
	FindItemByID(ctx context.Context, userID, itemID uuid.UUID) (*entity.PantryItem, error)
	CreateItem(ctx context.Context, item *entity.PantryItem) error
	UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity *string) error
	DeleteItem(ctx context.Context, userID, itemID uuid.UUID) (bool, error)
}

type pantryRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewPantryRepository(db database.PgxIface, log *zap.Logger) PantryRepository {
	return &pantryRepository{
		db:  db,
		log: log.With(zap.String("repository", "pantry")),
	}
}

func (r *pantryRepository) FindIngredientByName(ctx context.Context, name string) (*entity.Ingredient, error) {
	query := `SELECT id, name, created_at FROM ingredients WHERE name = $1`

	var ing entity.Ingredient
	err := r.db.QueryRow(ctx, query, name).Scan(&ing.ID, &ing.Name, &ing.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find ingredient", zap.Error(err), zap.String("name", name))
		return nil, fmt.Errorf("find ingredient %s: %w", name, err)
	}

	return &ing, nil
}

func (r *pantryRepository) CreateIngredient(ctx context.Context, ingredient *entity.Ingredient) error {
	query := `INSERT INTO ingredients (id, name, created_at) VALUES ($1, $2, $3)`

	_, err := r.db.Exec(ctx, query, ingredient.ID, ingredient.Name, ingredient.CreatedAt)
	if err != nil {
		r.log.Error("Failed to create ingredient", zap.Error(err), zap.String("name", ingredient.Name))
		return fmt.Errorf("create ingredient %s: %w", ingredient.Name, err)
	}

	return nil
}

func (r *pantryRepository) ListByUser(ctx context.Context, userID uuid.UUID) ([]*entity.PantryItem, error) {
	query := `
		SELECT ui.id, ui.user_id, ui.ingredient_id, ui.quantity, ui.created_at, i.name
		FROM user_ingredients ui
		JOIN ingredients i ON i.id = ui.ingredient_id
		WHERE ui.user_id = $1
		ORDER BY i.name
	`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		r.log.Error("Failed to list pantry", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("list pantry for %s: %w", userID.String(), err)
	}
	defer rows.Close()

	var items []*entity.PantryItem
	for rows.Next() {
		var item entity.PantryItem
		if err := rows.Scan(
			&item.ID,
			&item.UserID,
			&item.IngredientID,
			&item.Quantity,
			&item.CreatedAt,
			&item.IngredientName,
		); err != nil {
			return nil, fmt.Errorf("scan pantry item: %w", err)
		}
		items = append(items, &item)
	}

	return items, rows.Err()
}

func (r *pantryRepository) FindItem(ctx context.Context, userID, ingredientID uuid.UUID) (*entity.PantryItem, error) {
	query := `
		SELECT ui.id, ui.user_id, ui.ingredient_id, ui.quantity, ui.created_at, i.name
		FROM user_ingredients ui
		JOIN ingredients i ON i.id = ui.ingredient_id
		WHERE ui.user_id = $1 AND ui.ingredient_id = $2
	`

	item, err := r.scanItem(r.db.QueryRow(ctx, query, userID, ingredientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find pantry item", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("find pantry item: %w", err)
	}

	return item, nil
}

func (r *pantryRepository) FindItemByID(ctx context.Context, userID, itemID uuid.UUID) (*entity.PantryItem, error) {
	query := `
		SELECT ui.id, ui.user_id, ui.ingredient_id, ui.quantity, ui.created_at, i.name
		FROM user_ingredients ui
		JOIN ingredients i ON i.id = ui.ingredient_id
		WHERE ui.id = $1 AND ui.user_id = $2
	`

	item, err := r.scanItem(r.db.QueryRow(ctx, query, itemID, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find pantry item by id", zap.Error(err), zap.String("item_id", itemID.String()))
		return nil, fmt.Errorf("find pantry item %s: %w", itemID.String(), err)
	}

	return item, nil
}

func (r *pantryRepository) scanItem(row pgx.Row) (*entity.PantryItem, error) {
	var item entity.PantryItem
	err := row.Scan(
		&item.ID,
		&item.UserID,
		&item.IngredientID,
		&item.Quantity,
		&item.CreatedAt,
		&item.IngredientName,
	)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *pantryRepository) CreateItem(ctx context.Context, item *entity.PantryItem) error {
	query := `
		INSERT INTO user_ingredients (id, user_id, ingredient_id, quantity, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	_, err := r.db.Exec(ctx, query,
		item.ID,
		item.UserID,
		item.IngredientID,
		item.Quantity,
		item.CreatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create pantry item", zap.Error(err), zap.String("user_id", item.UserID.String()))
		return fmt.Errorf("create pantry item: %w", err)
	}

	return nil
}

func (r *pantryRepository) UpdateQuantity(ctx context.Context, itemID uuid.UUID, quantity *string) error {
	result, err := r.db.Exec(ctx,
		`UPDATE user_ingredients SET quantity = $2 WHERE id = $1`,
		itemID, quantity,
	)
	if err != nil {
		r.log.Error("Failed to update pantry quantity", zap.Error(err), zap.String("item_id", itemID.String()))
		return fmt.Errorf("update pantry item %s: %w", itemID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("pantry item %s not found", itemID.String())
	}

	return nil
}

func (r *pantryRepository) DeleteItem(ctx context.Context, userID, itemID uuid.UUID) (bool, error) {
	result, err := r.db.Exec(ctx,
		`DELETE FROM user_ingredients WHERE id = $1 AND user_id = $2`,
		itemID, userID,
	)
	if err != nil {
		r.log.Error("Failed to delete pantry item", zap.Error(err), zap.String("item_id", itemID.String()))
		return false, fmt.Errorf("delete pantry item %s: %w", itemID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}
