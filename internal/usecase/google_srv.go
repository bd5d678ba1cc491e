package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/dto/response"
	"mycabinet-backend/pkg/utils"

	"github.com/coreos/go-oidc/v3/oidc"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const googleIssuer = "https://accounts.google.com"

// GoogleService runs the OAuth authorization-code flow against Google and
// resolves the verified identity to a local account.
type GoogleService interface {
	AuthURL(ctx context.Context, state string) (string, error)
	Callback(ctx context.Context, code string) (*response.AuthResponse, error)
}

type googleService struct {
	repo   *repository.Repository
	jwt    *utils.JWTManager
	config *utils.Config
	log    *zap.Logger

	// Provider discovery needs the network, so it happens on first use,
	// not at startup.
	mu       sync.Mutex
	oauth    *oauth2.Config
	verifier *oidc.IDTokenVerifier
}

func NewGoogleService(
	repo *repository.Repository,
	jwt *utils.JWTManager,
	config *utils.Config,
	log *zap.Logger,
) GoogleService {
	return &googleService{
		repo:   repo,
		jwt:    jwt,
		config: config,
		log:    log,
	}
}

func (s *googleService) init(ctx context.Context) (*oauth2.Config, *oidc.IDTokenVerifier, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.oauth != nil {
		return s.oauth, s.verifier, nil
	}

	if s.config.Google.ClientID == "" || s.config.Google.ClientSecret == "" {
		return nil, nil, fmt.Errorf("google login is not configured")
	}

	provider, err := oidc.NewProvider(ctx, googleIssuer)
	if err != nil {
		s.log.Error("Failed to discover Google OIDC provider", zap.Error(err))
		return nil, nil, fmt.Errorf("google login is unavailable")
	}

	s.oauth = &oauth2.Config{
		ClientID:     s.config.Google.ClientID,
		ClientSecret: s.config.Google.ClientSecret,
		RedirectURL:  s.config.Google.RedirectURI,
		Endpoint:     provider.Endpoint(),
		Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
	}
	s.verifier = provider.Verifier(&oidc.Config{ClientID: s.config.Google.ClientID})

	return s.oauth, s.verifier, nil
}

func (s *googleService) AuthURL(ctx context.Context, state string) (string, error) {
	oauth, _, err := s.init(ctx)
	if err != nil {
		return "", err
	}
	return oauth.AuthCodeURL(state), nil
}

func (s *googleService) Callback(ctx context.Context, code string) (*response.AuthResponse, error) {
	oauth, verifier, err := s.init(ctx)
	if err != nil {
		return nil, err
	}

	token, err := oauth.Exchange(ctx, code)
	if err != nil {
		s.log.Warn("Google code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("invalid credentials")
	}

	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		s.log.Warn("Google token response missing id_token")
		return nil, fmt.Errorf("invalid credentials")
	}

	idToken, err := verifier.Verify(ctx, rawIDToken)
	if err != nil {
		s.log.Warn("Google ID token verification failed", zap.Error(err))
		return nil, fmt.Errorf("invalid credentials")
	}

	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		s.log.Error("Failed to decode Google claims", zap.Error(err))
		return nil, fmt.Errorf("invalid credentials")
	}
	if claims.Email == "" || !claims.EmailVerified {
		return nil, fmt.Errorf("invalid credentials")
	}

	user, err := s.findOrCreate(ctx, idToken.Subject, claims.Email, claims.Name)
	if err != nil {
		return nil, err
	}

	pair, err := s.jwt.GeneratePair(user.ID)
	if err != nil {
		s.log.Error("Failed to mint tokens", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to create session")
	}

	s.log.Info("User logged in via Google", zap.String("user_id", user.ID.String()))

	return &response.AuthResponse{
		User:   toUserResponse(user),
		Tokens: pair,
	}, nil
}

// findOrCreate matches by Google subject first, then links by email so an
// existing password account and Google converge on one user.
func (s *googleService) findOrCreate(ctx context.Context, subject, email, name string) (*entity.User, error) {
	email = utils.NormalizeEmail(email)

	user, err := s.repo.User.FindByProvider(ctx, entity.ProviderGoogle, subject)
	if err != nil {
		s.log.Error("Failed to find user by provider", zap.Error(err))
		return nil, fmt.Errorf("failed to find user")
	}
	if user != nil {
		return user, nil
	}

	user, err = s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user by email", zap.Error(err))
		return nil, fmt.Errorf("failed to find user")
	}

	if user != nil {
		user.Provider = entity.ProviderGoogle
		user.ProviderID = &subject
		user.EmailVerified = true
		user.UpdatedAt = time.Now()
		if err := s.repo.User.Update(ctx, user); err != nil {
			s.log.Error("Failed to link Google account", zap.Error(err), zap.String("user_id", user.ID.String()))
			return nil, fmt.Errorf("failed to link account")
		}
		return user, nil
	}

	now := time.Now()
	var fullName *string
	if name != "" {
		fullName = &name
	}
	user = &entity.User{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:         email,
		FullName:      fullName,
		Provider:      entity.ProviderGoogle,
		ProviderID:    &subject,
		EmailVerified: true,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.log.Error("Failed to create user from Google", zap.Error(err))
		return nil, fmt.Errorf("failed to create account")
	}

	s.log.Info("User created via Google", zap.String("user_id", user.ID.String()))
	return user, nil
}
