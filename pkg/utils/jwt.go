package utils

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid or expired token")

const (
	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

type sessionClaims struct {
	Type string `json:"type"`
	jwt.RegisteredClaims
}

// TokenPair is the session contract minted after any successful login
// (password, magic link, login OTP, or Google).
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"` // access token lifetime in seconds
}

// JWTManager mints and validates HS256 access/refresh pairs.
type JWTManager struct {
	secret     []byte
	issuer     string
	accessTTL  time.Duration
	refreshTTL time.Duration
}

func NewJWTManager(cfg JWTConfig) *JWTManager {
	return &JWTManager{
		secret:     []byte(cfg.Secret),
		issuer:     cfg.Issuer,
		accessTTL:  time.Duration(cfg.AccessExpiryMins) * time.Minute,
		refreshTTL: time.Duration(cfg.RefreshExpiryDays) * 24 * time.Hour,
	}
}

// GeneratePair mints a fresh access/refresh pair for a user.
func (m *JWTManager) GeneratePair(userID uuid.UUID) (*TokenPair, error) {
	access, err := m.sign(userID, tokenTypeAccess, m.accessTTL)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	refresh, err := m.sign(userID, tokenTypeRefresh, m.refreshTTL)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	return &TokenPair{
		AccessToken:  access,
		RefreshToken: refresh,
		TokenType:    "bearer",
		ExpiresIn:    int(m.accessTTL.Seconds()),
	}, nil
}

// ParseAccess validates an access token and returns the subject user ID.
func (m *JWTManager) ParseAccess(token string) (uuid.UUID, error) {
	return m.parse(token, tokenTypeAccess)
}

// ParseRefresh validates a refresh token and returns the subject user ID.
func (m *JWTManager) ParseRefresh(token string) (uuid.UUID, error) {
	return m.parse(token, tokenTypeRefresh)
}

func (m *JWTManager) sign(userID uuid.UUID, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Type: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
}

func (m *JWTManager) parse(token, wantType string) (uuid.UUID, error) {
	var claims sessionClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithIssuer(m.issuer), jwt.WithExpirationRequired())
	if err != nil || !parsed.Valid {
		return uuid.Nil, ErrInvalidToken
	}

	if claims.Type != wantType {
		return uuid.Nil, ErrInvalidToken
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return uuid.Nil, ErrInvalidToken
	}

	return userID, nil
}
