package repository

import (
	"mycabinet-backend/pkg/database"

	"go.uber.org/zap"
)

type Repository struct {
	User      UserRepository
	AuthToken AuthTokenRepository
	Pantry    PantryRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:      NewUserRepository(db, log),
		AuthToken: NewAuthTokenRepository(db, log),
		Pantry:    NewPantryRepository(db, log),
	}
}
