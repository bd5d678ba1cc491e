package usecase

import (
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

type Service struct {
	Auth      AuthService
	Account   AccountService
	Google    GoogleService
	Pantry    PantryService
	Recommend RecommendService
}

func NewService(
	repo *repository.Repository,
	jwt *utils.JWTManager,
	mailer Mailer,
	config *utils.Config,
	log *zap.Logger,
) *Service {
	tokens := NewTokenService(repo.AuthToken, log)

	return &Service{
		Auth:      NewAuthService(repo, tokens, jwt, mailer, config, log),
		Account:   NewAccountService(repo, tokens, mailer, config, log),
		Google:    NewGoogleService(repo, jwt, config, log),
		Pantry:    NewPantryService(repo, log),
		Recommend: NewRecommendService(repo, config, log),
	}
}
