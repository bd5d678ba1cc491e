package wire

import (
	"net/http"

	"mycabinet-backend/internal/adaptor"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/usecase"
	"mycabinet-backend/pkg/middleware"
	"mycabinet-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// App holds the assembled HTTP surface
type App struct {
	Router *chi.Mux
}

// Wiring initializes services, handlers, and the router
func Wiring(repo *repository.Repository, config *utils.Config, logger *zap.Logger) (*App, error) {
	jwt := utils.NewJWTManager(config.JWT)

	mailer, err := usecase.NewMailer(config.Email, logger)
	if err != nil {
		return nil, err
	}

	service := usecase.NewService(repo, jwt, mailer, config, logger)
	handler := adaptor.NewHandler(service, config, logger)

	router := setupRouter(handler, repo, jwt, config, logger)

	return &App{
		Router: router,
	}, nil
}

func setupRouter(
	handler *adaptor.Handler,
	repo *repository.Repository,
	jwt *utils.JWTManager,
	config *utils.Config,
	logger *zap.Logger,
) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recover(logger))
	r.Use(middleware.CORS(config.App.FrontendURL))

	authed := middleware.Auth(jwt, repo.User, logger)

	wireAuth(r, handler.Auth, authed)
	wireAccount(r, handler.Account, authed)
	wirePantry(r, handler.Pantry, authed)
	wireRecommend(r, handler.Recommend, authed)

	// Email links land here and bounce into the app
	r.Get("/r", handler.Redirect.Serve)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	return r
}
