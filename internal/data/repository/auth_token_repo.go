package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

// ErrDuplicateTokenHash is returned when an insert collides with the unique
// token_hash constraint. The issuer handles it by regenerating the secret.
var ErrDuplicateTokenHash = errors.New("token hash already exists")

const uniqueViolationCode = "23505"

// AuthTokenRepository owns persistence of token/OTP records. Consumption is
// done with conditional updates so two concurrent callers can never both
// succeed on the same record.
type AuthTokenRepository interface {
	Create(ctx context.Context, token *entity.AuthToken) error
	FindValidByHash(ctx context.Context, tokenHash string, purpose entity.Purpose) (*entity.AuthToken, error)
	ConsumeByHash(ctx context.Context, tokenHash string, purpose entity.Purpose) (*entity.AuthToken, error)
	FindLatestValid(ctx context.Context, email string, purpose entity.Purpose) (*entity.AuthToken, error)
	Consume(ctx context.Context, tokenID uuid.UUID) (bool, error)
	BumpAttempts(ctx context.Context, tokenID uuid.UUID, maxAttempts int) error
	CountRecent(ctx context.Context, email string, purpose entity.Purpose, since time.Time) (int, error)
}

type authTokenRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewAuthTokenRepository(db database.PgxIface, log *zap.Logger) AuthTokenRepository {
	return &authTokenRepository{
		db:  db,
		log: log.With(zap.String("repository", "auth_token")),
	}
}

const authTokenCols = `id, email, purpose, token_hash, expires_at, consumed, attempts, created_at`

func scanAuthToken(row pgx.Row) (*entity.AuthToken, error) {
	var t entity.AuthToken
	err := row.Scan(
		&t.ID,
		&t.Email,
		&t.Purpose,
		&t.TokenHash,
		&t.ExpiresAt,
		&t.Consumed,
		&t.Attempts,
		&t.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *authTokenRepository) Create(ctx context.Context, token *entity.AuthToken) error {
	query := `
		INSERT INTO auth_tokens (id, email, purpose, token_hash,
		                         expires_at, consumed, attempts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Exec(ctx, query,
		token.ID,
		token.Email,
		token.Purpose,
		token.TokenHash,
		token.ExpiresAt,
		token.Consumed,
		token.Attempts,
		token.CreatedAt,
	)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode {
			return ErrDuplicateTokenHash
		}
		r.log.Error("Failed to create auth token",
			zap.Error(err),
			zap.String("email", token.Email),
			zap.String("purpose", string(token.Purpose)),
		)
		return fmt.Errorf("create auth token for %s: %w", token.Email, err)
	}

	return nil
}

func (r *authTokenRepository) FindValidByHash(ctx context.Context, tokenHash string, purpose entity.Purpose) (*entity.AuthToken, error) {
	query := `
		SELECT ` + authTokenCols + `
		FROM auth_tokens
		WHERE token_hash = $1
		  AND purpose = $2
		  AND consumed = false
		  AND expires_at > NOW()
	`

	token, err := scanAuthToken(r.db.QueryRow(ctx, query, tokenHash, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find valid token",
			zap.Error(err),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("find valid token purpose %s: %w", purpose, err)
	}

	return token, nil
}

// ConsumeByHash flips consumed on a valid matching record and returns it.
// The WHERE clause guarantees at most one caller wins the flip; losers (and
// expired/consumed/unknown hashes) all observe nil.
func (r *authTokenRepository) ConsumeByHash(ctx context.Context, tokenHash string, purpose entity.Purpose) (*entity.AuthToken, error) {
	query := `
		UPDATE auth_tokens
		SET consumed = true
		WHERE token_hash = $1
		  AND purpose = $2
		  AND consumed = false
		  AND expires_at > NOW()
		RETURNING ` + authTokenCols + `
	`

	token, err := scanAuthToken(r.db.QueryRow(ctx, query, tokenHash, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to consume token",
			zap.Error(err),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("consume token purpose %s: %w", purpose, err)
	}

	return token, nil
}

// FindLatestValid returns the newest unconsumed, unexpired record for
// (email, purpose). Older outstanding codes are never selected again.
func (r *authTokenRepository) FindLatestValid(ctx context.Context, email string, purpose entity.Purpose) (*entity.AuthToken, error) {
	query := `
		SELECT ` + authTokenCols + `
		FROM auth_tokens
		WHERE email = $1
		  AND purpose = $2
		  AND consumed = false
		  AND expires_at > NOW()
		ORDER BY created_at DESC
		LIMIT 1
	`

	token, err := scanAuthToken(r.db.QueryRow(ctx, query, email, purpose))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find latest valid token",
			zap.Error(err),
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
		)
		return nil, fmt.Errorf("find latest token for %s purpose %s: %w", email, purpose, err)
	}

	return token, nil
}

// Consume marks a record consumed by ID, crediting the successful attempt.
// Returns false when another caller already consumed it.
func (r *authTokenRepository) Consume(ctx context.Context, tokenID uuid.UUID) (bool, error) {
	query := `
		UPDATE auth_tokens
		SET consumed = true, attempts = attempts + 1
		WHERE id = $1
		  AND consumed = false
	`

	result, err := r.db.Exec(ctx, query, tokenID)
	if err != nil {
		r.log.Error("Failed to consume token by id",
			zap.Error(err),
			zap.String("token_id", tokenID.String()),
		)
		return false, fmt.Errorf("consume token %s: %w", tokenID.String(), err)
	}

	return result.RowsAffected() == 1, nil
}

// BumpAttempts increments the attempt counter, capped at maxAttempts.
func (r *authTokenRepository) BumpAttempts(ctx context.Context, tokenID uuid.UUID, maxAttempts int) error {
	query := `
		UPDATE auth_tokens
		SET attempts = LEAST(attempts + 1, $2)
		WHERE id = $1
	`

	if _, err := r.db.Exec(ctx, query, tokenID, maxAttempts); err != nil {
		r.log.Error("Failed to bump attempts",
			zap.Error(err),
			zap.String("token_id", tokenID.String()),
		)
		return fmt.Errorf("bump attempts on %s: %w", tokenID.String(), err)
	}

	return nil
}

// CountRecent counts every issuance for (email, purpose) since the cutoff,
// consumed and expired records included.
func (r *authTokenRepository) CountRecent(ctx context.Context, email string, purpose entity.Purpose, since time.Time) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM auth_tokens
		WHERE email = $1
		  AND purpose = $2
		  AND created_at >= $3
	`

	var count int
	if err := r.db.QueryRow(ctx, query, email, purpose, since).Scan(&count); err != nil {
		r.log.Error("Failed to count recent tokens",
			zap.Error(err),
			zap.String("email", email),
			zap.String("purpose", string(purpose)),
		)
		return 0, fmt.Errorf("count recent tokens for %s purpose %s: %w", email, purpose, err)
	}

	return count, nil
}
