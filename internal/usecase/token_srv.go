package usecase

import (
	"context"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/pkg/utils"

	"go.uber.org/zap"
)

// Default lifecycle parameters: 6-digit codes, 10-minute TTL, 5 tries.
const (
	OTPLength      = 6
	OTPTTLMinutes  = 10
	OTPMaxAttempts = 5
)

var (
	// ErrEntropyExhausted means two freshly generated secrets in a row
	// collided with persisted hashes. Operationally unreachable; it signals
	// a broken RNG or hash, never a user mistake.
	ErrEntropyExhausted = errors.New("secret generation collided twice")

	ErrUnknownPurpose = errors.New("unknown token purpose")
	ErrPurposeChannel = errors.New("purpose does not match token channel")
)

// TokenService is the token/OTP lifecycle engine: issuance with hashed-only
// persistence, single-use consumption, attempt-limited verification, and
// issuance counting for rate limits.
type TokenService interface {
	IssueToken(ctx context.Context, email string, purpose entity.Purpose, ttl time.Duration) (string, *entity.AuthToken, error)
	PeekToken(ctx context.Context, raw string, purpose entity.Purpose) (*entity.AuthToken, error)
	ConsumeToken(ctx context.Context, raw string, purpose entity.Purpose) (*entity.AuthToken, error)
	IssueOTP(ctx context.Context, email string, purpose entity.Purpose, ttl time.Duration) (string, *entity.AuthToken, error)
	VerifyOTP(ctx context.Context, email string, purpose entity.Purpose, code string, maxAttempts int) (bool, error)
	CountRecent(ctx context.Context, email string, purpose entity.Purpose, window time.Duration) int
}

type tokenService struct {
	repo repository.AuthTokenRepository
	log  *zap.Logger
}

func NewTokenService(repo repository.AuthTokenRepository, log *zap.Logger) TokenService {
	return &tokenService{
		repo: repo,
		log:  log.With(zap.String("service", "token")),
	}
}

// hashToken digests an opaque link token. The raw string alone is the input;
// link tokens carry enough entropy to stand on their own.
func hashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

// hashOTP digests a numeric code bound to its context, so the same 6 digits
// can never be replayed against another email or purpose.
func hashOTP(email string, purpose entity.Purpose, code string) string {
	key := fmt.Sprintf("%s|%s|%s", utils.NormalizeEmail(email), purpose, strings.TrimSpace(code))
	sum := sha256.Sum256([]byte(key))
	return hex.EncodeToString(sum[:])
}

// IssueToken creates a short-lived, single-use opaque token and persists only
// its hash. The raw secret goes back to the caller for delivery and is never
// stored.
func (s *tokenService) IssueToken(ctx context.Context, email string, purpose entity.Purpose, ttl time.Duration) (string, *entity.AuthToken, error) {
	if !purpose.Known() {
		return "", nil, ErrUnknownPurpose
	}
	if purpose.IsOTP() {
		return "", nil, fmt.Errorf("%w: %s needs IssueOTP", ErrPurposeChannel, purpose)
	}

	raw, err := utils.GenerateOpaqueToken()
	if err != nil {
		return "", nil, fmt.Errorf("generate token: %w", err)
	}

	rec, err := s.persist(ctx, email, purpose, hashToken(raw), ttl)
	if err == nil {
		return raw, rec, nil
	}
	if !errors.Is(err, repository.ErrDuplicateTokenHash) {
		return "", nil, err
	}

	// Hash collision against an existing row: regenerate once and retry.
	raw, err = utils.GenerateOpaqueToken()
	if err != nil {
		return "", nil, fmt.Errorf("regenerate token: %w", err)
	}

	rec, err = s.persist(ctx, email, purpose, hashToken(raw), ttl)
	if errors.Is(err, repository.ErrDuplicateTokenHash) {
		s.log.Error("Token hash collided twice in a row",
			zap.String("purpose", string(purpose)),
		)
		return "", nil, ErrEntropyExhausted
	}
	if err != nil {
		return "", nil, err
	}

	return raw, rec, nil
}

// PeekToken looks up a valid token without consuming it. Flows that must
// validate before an irreversible side effect (set a password, then consume)
// use this to avoid burning the token on a request that fails later.
func (s *tokenService) PeekToken(ctx context.Context, raw string, purpose entity.Purpose) (*entity.AuthToken, error) {
	return s.repo.FindValidByHash(ctx, hashToken(raw), purpose)
}

// ConsumeToken marks a valid token consumed and returns it; nil when the
// token is wrong, expired, or already consumed. Those cases are deliberately
// indistinguishable.
func (s *tokenService) ConsumeToken(ctx context.Context, raw string, purpose entity.Purpose) (*entity.AuthToken, error) {
	return s.repo.ConsumeByHash(ctx, hashToken(raw), purpose)
}

// IssueOTP creates a numeric code for (email, purpose) and persists its
// context-bound hash.
func (s *tokenService) IssueOTP(ctx context.Context, email string, purpose entity.Purpose, ttl time.Duration) (string, *entity.AuthToken, error) {
	if !purpose.Known() {
		return "", nil, ErrUnknownPurpose
	}
	if !purpose.IsOTP() {
		return "", nil, fmt.Errorf("%w: %s needs IssueToken", ErrPurposeChannel, purpose)
	}

	norm := utils.NormalizeEmail(email)

	code, err := utils.GenerateOTP(OTPLength)
	if err != nil {
		return "", nil, fmt.Errorf("generate otp: %w", err)
	}

	rec, err := s.persist(ctx, norm, purpose, hashOTP(norm, purpose, code), ttl)
	if err == nil {
		return code, rec, nil
	}
	if !errors.Is(err, repository.ErrDuplicateTokenHash) {
		return "", nil, err
	}

	code, err = utils.GenerateOTP(OTPLength)
	if err != nil {
		return "", nil, fmt.Errorf("regenerate otp: %w", err)
	}

	rec, err = s.persist(ctx, norm, purpose, hashOTP(norm, purpose, code), ttl)
	if errors.Is(err, repository.ErrDuplicateTokenHash) {
		s.log.Error("OTP hash collided twice in a row",
			zap.String("purpose", string(purpose)),
		)
		return "", nil, ErrEntropyExhausted
	}
	if err != nil {
		return "", nil, err
	}

	return code, rec, nil
}

// VerifyOTP checks a submitted code against the newest valid record for
// (email, purpose). Wrong code, expiry, lockout, and absence all come back
// as a plain false; callers must not leak anything finer.
func (s *tokenService) VerifyOTP(ctx context.Context, email string, purpose entity.Purpose, code string, maxAttempts int) (bool, error) {
	norm := utils.NormalizeEmail(email)

	rec, err := s.repo.FindLatestValid(ctx, norm, purpose)
	if err != nil {
		return false, err
	}
	if rec == nil {
		return false, nil
	}

	// Lockout is decided before crediting a match: a correct code can never
	// succeed once the attempt budget is spent.
	locked := rec.Attempts >= maxAttempts

	expected := hashOTP(norm, purpose, code)
	match := subtle.ConstantTimeCompare([]byte(expected), []byte(rec.TokenHash)) == 1

	if match && !locked {
		consumed, err := s.repo.Consume(ctx, rec.ID)
		if err != nil {
			return false, err
		}
		return consumed, nil
	}

	if err := s.repo.BumpAttempts(ctx, rec.ID, maxAttempts); err != nil {
		return false, err
	}

	return false, nil
}

// CountRecent counts issuances for (email, purpose) inside the trailing
// window. Fails open: a broken count must never block the send path, so
// storage errors come back as zero.
func (s *tokenService) CountRecent(ctx context.Context, email string, purpose entity.Purpose, window time.Duration) int {
	since := time.Now().Add(-window)

	count, err := s.repo.CountRecent(ctx, utils.NormalizeEmail(email), purpose, since)
	if err != nil {
		s.log.Warn("Rate-limit count failed, failing open",
			zap.Error(err),
			zap.String("purpose", string(purpose)),
		)
		return 0
	}

	return count
}

func (s *tokenService) persist(ctx context.Context, email string, purpose entity.Purpose, tokenHash string, ttl time.Duration) (*entity.AuthToken, error) {
	now := time.Now()
	rec := &entity.AuthToken{
		BaseSimple: entity.BaseSimple{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
		},
		Email:     utils.NormalizeEmail(email),
		Purpose:   purpose,
		TokenHash: tokenHash,
		ExpiresAt: now.Add(ttl),
		Consumed:  false,
		Attempts:  0,
	}

	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, err
	}

	return rec, nil
}
