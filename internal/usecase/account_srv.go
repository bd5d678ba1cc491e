package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AccountService covers authenticated self-service: password changes and
// account deletion, both gated on a fresh email code or the current password.
type AccountService interface {
	ChangePassword(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordRequest) error
	ChangePasswordVerified(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordVerifiedRequest) error
	DeleteAccount(ctx context.Context, userID uuid.UUID, req *request.DeleteAccountRequest) error
}

type accountService struct {
	repo   *repository.Repository
	tokens TokenService
	mailer Mailer
	config *utils.Config
	log    *zap.Logger
}

func NewAccountService(
	repo *repository.Repository,
	tokens TokenService,
	mailer Mailer,
	config *utils.Config,
	log *zap.Logger,
) AccountService {
	return &accountService{
		repo:   repo,
		tokens: tokens,
		mailer: mailer,
		config: config,
		log:    log,
	}
}

// ChangePassword rotates the password after re-proving the current one.
func (s *accountService) ChangePassword(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	if !user.HasPassword() {
		return fmt.Errorf("account has no password; use the code-based change instead")
	}
	if !utils.CheckPasswordHash(req.CurrentPassword, *user.PasswordHash) {
		s.log.Warn("Wrong current password", zap.String("user_id", userID.String()))
		return fmt.Errorf("invalid credentials")
	}

	return s.applyPassword(ctx, user, req.NewPassword)
}

// ChangePasswordVerified rotates the password after a fresh email code,
// for accounts that never had one (magic link or Google signups) or when
// the current password is forgotten while signed in.
func (s *accountService) ChangePasswordVerified(ctx context.Context, userID uuid.UUID, req *request.ChangePasswordVerifiedRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	// Policy first; a weak password must not spend a code attempt.
	if errs := utils.ValidatePassword(req.NewPassword, user.Email); len(errs) > 0 {
		return fmt.Errorf("weak password: %s", strings.Join(errs, " "))
	}

	// The code was issued to the caller's own email, never a submitted one.
	ok, err := s.tokens.VerifyOTP(ctx, user.Email, entity.PurposeVerifyOTP, req.Code, s.config.OTP.MaxAttempts)
	if err != nil {
		s.log.Error("Failed to verify code", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("failed to process request")
	}
	if !ok {
		return fmt.Errorf("invalid or expired code")
	}

	return s.applyPassword(ctx, user, req.NewPassword)
}

// DeleteAccount removes the account and everything attached to it after a
// fresh delete code. Irreversible.
func (s *accountService) DeleteAccount(ctx context.Context, userID uuid.UUID, req *request.DeleteAccountRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return err
	}

	ok, err := s.tokens.VerifyOTP(ctx, user.Email, entity.PurposeDeleteOTP, req.Code, s.config.OTP.MaxAttempts)
	if err != nil {
		s.log.Error("Failed to verify delete code", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("failed to process request")
	}
	if !ok {
		return fmt.Errorf("invalid or expired code")
	}

	if err := s.repo.User.Delete(ctx, user.ID); err != nil {
		s.log.Error("Failed to delete user", zap.Error(err), zap.String("user_id", userID.String()))
		return fmt.Errorf("failed to delete account")
	}

	s.log.Info("Account deleted", zap.String("user_id", userID.String()))

	email := user.Email
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.mailer.SendAccountDeletedNotice(ctx, email); err != nil {
			s.log.Error("Failed to send deletion notice", zap.Error(err))
		}
	}()

	return nil
}

func (s *accountService) loadUser(ctx context.Context, userID uuid.UUID) (*entity.User, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("failed to find user")
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}
	return user, nil
}

func (s *accountService) applyPassword(ctx context.Context, user *entity.User, newPassword string) error {
	if errs := utils.ValidatePassword(newPassword, user.Email); len(errs) > 0 {
		return fmt.Errorf("weak password: %s", strings.Join(errs, " "))
	}

	hashed, err := utils.HashPassword(newPassword)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return fmt.Errorf("failed to process password")
	}

	user.PasswordHash = &hashed
	user.UpdatedAt = time.Now()
	if err := s.repo.User.Update(ctx, user); err != nil {
		s.log.Error("Failed to update password", zap.Error(err), zap.String("user_id", user.ID.String()))
		return fmt.Errorf("failed to update password")
	}

	s.log.Info("Password changed", zap.String("user_id", user.ID.String()))

	email := user.Email
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
		defer cancel()
		if err := s.mailer.SendPasswordChangedNotice(ctx, email); err != nil {
			s.log.Error("Failed to send change notice", zap.Error(err))
		}
	}()

	return nil
}
