package response

import (
	"time"

	"mycabinet-backend/pkg/utils"
)

type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FullName      *string   `json:"full_name,omitempty"`
	Provider      string    `json:"provider"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

type AuthResponse struct {
	User   UserResponse     `json:"user"`
	Tokens *utils.TokenPair `json:"tokens,omitempty"`
}

type ExistsResponse struct {
	Exists bool `json:"exists"`
}
