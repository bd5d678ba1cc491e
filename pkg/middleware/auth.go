package middleware

import (
	"net/http"
	"strings"

	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

// Auth validates the bearer access token and loads the account behind it.
// The lookup makes deleted accounts lose access immediately instead of
// riding out the token lifetime.
func Auth(jwt *utils.JWTManager, userRepo repository.UserRepository, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				utils.ResponseUnauthorized(w, "Missing authorization token")
				return
			}

			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				utils.ResponseUnauthorized(w, "Invalid token format. Use: Bearer <token>")
				return
			}

			userID, err := jwt.ParseAccess(parts[1])
			if err != nil {
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			user, err := userRepo.FindByID(r.Context(), userID)
			if err != nil {
				logger.Error("Failed to load user for auth",
					zap.Error(err),
					zap.String("user_id", userID.String()))
				utils.ResponseInternalError(w, "Internal server error")
				return
			}
			if user == nil {
				utils.ResponseUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := utils.SetUserContext(r.Context(), user.ID, user.Email)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
