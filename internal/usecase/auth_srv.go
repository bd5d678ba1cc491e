package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/internal/dto/response"
	"mycabinet-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Link tokens ride in emails and must be short-lived.
const (
	loginLinkTTL = 15 * time.Minute
	resetLinkTTL = 30 * time.Minute

	rateWindow  = 24 * time.Hour
	mailTimeout = 30 * time.Second
)

type AuthService interface {
	Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error)
	Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error)
	Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error)
	Me(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error)
	EmailExists(ctx context.Context, email string) (bool, error)

	RequestLoginLink(ctx context.Context, email string) error
	FinishLogin(ctx context.Context, rawToken string) (*response.AuthResponse, error)
	RequestPasswordReset(ctx context.Context, email string) error
	ConfirmPasswordReset(ctx context.Context, req *request.ResetPasswordRequest) error

	RequestOTP(ctx context.Context, req *request.RequestOTPRequest) error
	VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.AuthResponse, error)
	CompleteReset(ctx context.Context, req *request.CompleteResetRequest) error
}

type authService struct {
	repo   *repository.Repository
	tokens TokenService
	jwt    *utils.JWTManager
	mailer Mailer
	config *utils.Config
	log    *zap.Logger
}

func NewAuthService(
	repo *repository.Repository,
	tokens TokenService,
	jwt *utils.JWTManager,
	mailer Mailer,
	config *utils.Config,
	log *zap.Logger,
) AuthService {
	return &authService{
		repo:   repo,
		tokens: tokens,
		jwt:    jwt,
		mailer: mailer,
		config: config,
		log:    log,
	}
}

// intentPurposes maps the public intent vocabulary onto stored purposes.
var intentPurposes = map[string]entity.Purpose{
	"login":  entity.PurposeLoginOTP,
	"verify": entity.PurposeVerifyOTP,
	"reset":  entity.PurposeResetOTP,
	"delete": entity.PurposeDeleteOTP,
}

func (s *authService) Register(ctx context.Context, req *request.RegisterRequest) (*response.AuthResponse, error) {
	// 1. Validate input
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Register validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	email := utils.NormalizeEmail(req.Email)

	// 2. Password policy
	if errs := utils.ValidatePassword(req.Password, email); len(errs) > 0 {
		return nil, fmt.Errorf("weak password: %s", strings.Join(errs, " "))
	}

	// 3. Reject duplicate email
	existing, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to check email", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to check email")
	}
	if existing != nil {
		return nil, fmt.Errorf("email already registered")
	}

	// 4. Hash password
	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		s.log.Error("Failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("failed to process password")
	}

	// 5. Create user
	now := time.Now()
	user := &entity.User{
		Base: entity.Base{
			ID:        utils.GenerateUUID(),
			CreatedAt: now,
			UpdatedAt: now,
		},
		Email:         email,
		FullName:      req.FullName,
		Provider:      entity.ProviderLocal,
		PasswordHash:  &hashed,
		EmailVerified: false,
	}
	if err := s.repo.User.Create(ctx, user); err != nil {
		s.log.Error("Failed to create user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to create account")
	}

	// 6. Send verification code (async)
	go s.sendOTPAsync(email, entity.PurposeVerifyOTP)

	// 7. Auto login
	pair, err := s.jwt.GeneratePair(user.ID)
	if err != nil {
		s.log.Error("Failed to mint tokens after register", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to create session")
	}

	s.log.Info("User registered",
		zap.String("user_id", user.ID.String()),
		zap.String("email", email))

	return s.authResponse(user, pair), nil
}

func (s *authService) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		s.log.Warn("Login validation failed", zap.Any("errors", errs))
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	email := utils.NormalizeEmail(req.Email)

	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to find user")
	}

	// Missing account, OAuth-only account, and wrong password all collapse
	// into the same answer.
	if user == nil || !user.HasPassword() {
		return nil, fmt.Errorf("invalid credentials")
	}
	if !utils.CheckPasswordHash(req.Password, *user.PasswordHash) {
		s.log.Warn("Invalid password", zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("invalid credentials")
	}

	pair, err := s.jwt.GeneratePair(user.ID)
	if err != nil {
		s.log.Error("Failed to mint tokens", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to create session")
	}

	s.log.Info("User logged in", zap.String("user_id", user.ID.String()))

	return s.authResponse(user, pair), nil
}

func (s *authService) Refresh(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	userID, err := s.jwt.ParseRefresh(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("invalid or expired token")
	}

	// Deleted accounts must not be able to refresh back in.
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load user for refresh", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("failed to find user")
	}
	if user == nil {
		return nil, fmt.Errorf("invalid or expired token")
	}

	pair, err := s.jwt.GeneratePair(user.ID)
	if err != nil {
		s.log.Error("Failed to mint tokens on refresh", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to create session")
	}

	return pair, nil
}

func (s *authService) Me(ctx context.Context, userID uuid.UUID) (*response.UserResponse, error) {
	user, err := s.repo.User.FindByID(ctx, userID)
	if err != nil {
		s.log.Error("Failed to load user", zap.Error(err), zap.String("user_id", userID.String()))
		return nil, fmt.Errorf("failed to find user")
	}
	if user == nil {
		return nil, fmt.Errorf("user not found")
	}

	resp := toUserResponse(user)
	return &resp, nil
}

func (s *authService) EmailExists(ctx context.Context, email string) (bool, error) {
	user, err := s.repo.User.FindByEmail(ctx, utils.NormalizeEmail(email))
	if err != nil {
		s.log.Error("Failed to check email", zap.Error(err))
		return false, fmt.Errorf("failed to check email")
	}
	return user != nil, nil
}

// RequestLoginLink emails a magic sign-in link. It answers the same way
// whether or not the address has an account, and stays silent when the
// daily send cap is hit.
func (s *authService) RequestLoginLink(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	if !s.underCap(ctx, email, entity.PurposeLogin) {
		return nil
	}

	raw, _, err := s.tokens.IssueToken(ctx, email, entity.PurposeLogin, loginLinkTTL)
	if err != nil {
		s.log.Error("Failed to issue login token", zap.Error(err))
		return fmt.Errorf("failed to process request")
	}

	link := fmt.Sprintf("%s?type=login&token=%s", s.config.App.RedirectURL, raw)
	go s.sendAsync(func(ctx context.Context) error {
		return s.mailer.SendLoginLink(ctx, email, link)
	})

	return nil
}

func (s *authService) FinishLogin(ctx context.Context, rawToken string) (*response.AuthResponse, error) {
	rec, err := s.tokens.ConsumeToken(ctx, rawToken, entity.PurposeLogin)
	if err != nil {
		s.log.Error("Failed to consume login token", zap.Error(err))
		return nil, fmt.Errorf("failed to process request")
	}
	if rec == nil {
		return nil, fmt.Errorf("invalid or expired token")
	}

	// Clicking the link proves control of the mailbox: sign in, creating the
	// account on first use.
	user, err := s.findOrCreateVerified(ctx, rec.Email)
	if err != nil {
		return nil, err
	}

	pair, err := s.jwt.GeneratePair(user.ID)
	if err != nil {
		s.log.Error("Failed to mint tokens", zap.Error(err), zap.String("user_id", user.ID.String()))
		return nil, fmt.Errorf("failed to create session")
	}

	s.log.Info("User logged in via link", zap.String("user_id", user.ID.String()))

	return s.authResponse(user, pair), nil
}

// RequestPasswordReset emails a reset link when the account exists; the
// caller cannot tell either way.
func (s *authService) RequestPasswordReset(ctx context.Context, email string) error {
	email = utils.NormalizeEmail(email)

	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user for reset", zap.Error(err))
		return nil
	}
	if user == nil {
		return nil
	}

	if !s.underCap(ctx, email, entity.PurposeReset) {
		return nil
	}

	raw, _, err := s.tokens.IssueToken(ctx, email, entity.PurposeReset, resetLinkTTL)
	if err != nil {
		s.log.Error("Failed to issue reset token", zap.Error(err))
		return nil
	}

	link := fmt.Sprintf("%s?type=reset&token=%s", s.config.App.RedirectURL, raw)
	go s.sendAsync(func(ctx context.Context) error {
		return s.mailer.SendResetLink(ctx, email, link)
	})

	return nil
}

func (s *authService) ConfirmPasswordReset(ctx context.Context, req *request.ResetPasswordRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	// 1. Peek first so a policy failure does not burn the token.
	rec, err := s.tokens.PeekToken(ctx, req.Token, entity.PurposeReset)
	if err != nil {
		s.log.Error("Failed to peek reset token", zap.Error(err))
		return fmt.Errorf("failed to process request")
	}
	if rec == nil {
		return fmt.Errorf("invalid or expired token")
	}

	// 2. Password policy against the token's email
	if errs := utils.ValidatePassword(req.NewPassword, rec.Email); len(errs) > 0 {
		return fmt.Errorf("weak password: %s", strings.Join(errs, " "))
	}

	// 3. Burn the token before the write; the loser of a race stops here
	if consumed, err := s.tokens.ConsumeToken(ctx, req.Token, entity.PurposeReset); err != nil {
		s.log.Error("Failed to consume reset token", zap.Error(err))
		return fmt.Errorf("failed to process request")
	} else if consumed == nil {
		return fmt.Errorf("invalid or expired token")
	}

	// 4. Set the new password
	if err := s.setPassword(ctx, rec.Email, req.NewPassword); err != nil {
		return err
	}

	go s.sendAsync(func(ctx context.Context) error {
		return s.mailer.SendPasswordChangedNotice(ctx, rec.Email)
	})

	return nil
}

// RequestOTP emails a numeric code for the given intent. Always succeeds
// from the caller's perspective.
func (s *authService) RequestOTP(ctx context.Context, req *request.RequestOTPRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	purpose, ok := intentPurposes[req.Intent]
	if !ok {
		return fmt.Errorf("validation failed: unknown intent")
	}

	email := utils.NormalizeEmail(req.Email)

	// Login codes double as signup; every other intent targets an existing
	// account, and absence is concealed by doing nothing.
	if purpose != entity.PurposeLoginOTP {
		user, err := s.repo.User.FindByEmail(ctx, email)
		if err != nil {
			s.log.Error("Failed to find user for OTP", zap.Error(err))
			return nil
		}
		if user == nil {
			return nil
		}
	}

	if !s.underCap(ctx, email, purpose) {
		return nil
	}

	code, _, err := s.tokens.IssueOTP(ctx, email, purpose, s.otpTTL())
	if err != nil {
		s.log.Error("Failed to issue OTP", zap.Error(err), zap.String("purpose", string(purpose)))
		return nil
	}

	expiry := s.config.OTP.ExpiryMinutes
	go s.sendAsync(func(ctx context.Context) error {
		switch purpose {
		case entity.PurposeLoginOTP:
			return s.mailer.SendLoginCode(ctx, email, code, expiry)
		case entity.PurposeVerifyOTP:
			return s.mailer.SendVerifyCode(ctx, email, code, expiry)
		case entity.PurposeResetOTP:
			return s.mailer.SendResetCode(ctx, email, code, expiry)
		default:
			return s.mailer.SendDeleteCode(ctx, email, code, expiry)
		}
	})

	return nil
}

func (s *authService) VerifyOTP(ctx context.Context, req *request.VerifyOTPRequest) (*response.AuthResponse, error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	purpose := intentPurposes[req.Intent]
	email := utils.NormalizeEmail(req.Email)

	ok, err := s.tokens.VerifyOTP(ctx, email, purpose, req.Code, s.config.OTP.MaxAttempts)
	if err != nil {
		s.log.Error("Failed to verify OTP", zap.Error(err), zap.String("purpose", string(purpose)))
		return nil, fmt.Errorf("failed to process request")
	}
	if !ok {
		return nil, fmt.Errorf("invalid or expired code")
	}

	switch purpose {
	case entity.PurposeLoginOTP:
		user, err := s.findOrCreateVerified(ctx, email)
		if err != nil {
			return nil, err
		}
		pair, err := s.jwt.GeneratePair(user.ID)
		if err != nil {
			s.log.Error("Failed to mint tokens", zap.Error(err), zap.String("user_id", user.ID.String()))
			return nil, fmt.Errorf("failed to create session")
		}
		s.log.Info("User logged in via OTP", zap.String("user_id", user.ID.String()))
		return s.authResponse(user, pair), nil

	case entity.PurposeVerifyOTP:
		user, err := s.repo.User.FindByEmail(ctx, email)
		if err != nil || user == nil {
			s.log.Error("User missing after verify OTP", zap.Error(err), zap.String("email", email))
			return nil, fmt.Errorf("user not found")
		}
		user.EmailVerified = true
		user.UpdatedAt = time.Now()
		if err := s.repo.User.Update(ctx, user); err != nil {
			s.log.Error("Failed to mark email verified", zap.Error(err), zap.String("user_id", user.ID.String()))
			return nil, fmt.Errorf("failed to verify email")
		}
		s.log.Info("Email verified", zap.String("user_id", user.ID.String()))
		return s.authResponse(user, nil), nil
	}

	return nil, fmt.Errorf("validation failed: unknown intent")
}

// CompleteReset verifies a reset code and sets the new password in one step.
func (s *authService) CompleteReset(ctx context.Context, req *request.CompleteResetRequest) error {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return fmt.Errorf("validation failed: %s", utils.FormatValidationErrors(errs))
	}

	email := utils.NormalizeEmail(req.Email)

	// Policy comes first so a weak password does not spend an attempt.
	if errs := utils.ValidatePassword(req.NewPassword, email); len(errs) > 0 {
		return fmt.Errorf("weak password: %s", strings.Join(errs, " "))
	}

	ok, err := s.tokens.VerifyOTP(ctx, email, entity.PurposeResetOTP, req.Code, s.config.OTP.MaxAttempts)
	if err != nil {
		s.log.Error("Failed to verify reset code", zap.Error(err))
		return fmt.Errorf("failed to process request")
	}
	if !ok {
		return fmt.Errorf("invalid or expired code")
	}

	if err := s.setPassword(ctx, email, req.NewPassword); err != nil {
		return err
	}

	go s.sendAsync(func(ctx context.Context) error {
		return s.mailer.SendPasswordChangedNotice(ctx, email)
	})

	return nil
}

// ==================== HELPER METHODS ====================

func (s *authService) otpTTL() time.Duration {
	return time.Duration(s.config.OTP.ExpiryMinutes) * time.Minute
}

// underCap enforces the daily per-(email, purpose) send cap. Allowlisted
// addresses and domains bypass it; counting failures let the send through.
func (s *authService) underCap(ctx context.Context, email string, purpose entity.Purpose) bool {
	for _, entry := range s.config.RateLimit.Allowlist {
		if entry == email {
			return true
		}
		if strings.HasPrefix(entry, "@") && strings.HasSuffix(email, entry) {
			return true
		}
	}

	limit := s.config.RateLimit.DailyCap
	if limit <= 0 {
		return true
	}

	if s.tokens.CountRecent(ctx, email, purpose, rateWindow) >= limit {
		s.log.Warn("Email send cap reached",
			zap.String("purpose", string(purpose)),
		)
		return false
	}

	return true
}

// findOrCreateVerified resolves an email-proven login to an account,
// creating a passwordless one on first use.
func (s *authService) findOrCreateVerified(ctx context.Context, email string) (*entity.User, error) {
	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil {
		s.log.Error("Failed to find user", zap.Error(err), zap.String("email", email))
		return nil, fmt.Errorf("failed to find user")
	}

	if user == nil {
		now := time.Now()
		user = &entity.User{
			Base: entity.Base{
				ID:        utils.GenerateUUID(),
				CreatedAt: now,
				UpdatedAt: now,
			},
			Email:         email,
			Provider:      entity.ProviderLocal,
			EmailVerified: true,
		}
		if err := s.repo.User.Create(ctx, user); err != nil {
			s.log.Error("Failed to create user", zap.Error(err), zap.String("email", email))
			return nil, fmt.Errorf("failed to create account")
		}
		s.log.Info("User created via email login", zap.String("user_id", user.ID.String()))
		return user, nil
	}

	if !user.EmailVerified {
		user.EmailVerified = true
		user.UpdatedAt = time.Now()
		if err := s.repo.User.Update(ctx, user); err != nil {
			s.log.Warn("Failed to mark email verified on login", zap.Error(err), zap.String("user_id", user.ID.String()))
		}
	}

	return user, nil
}

func (s *authService) setPassword(ctx context.Context, email, newPassword string) error {
	user, err := s.repo.User.FindByEmail(ctx, email)
	if err != nil || user == nil {
		s.log.Error("User missing for password set", zap.Error(err), zap.String("email", email))
		return fmt.Errorf("user not found")
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

	s.log.Info("Password updated", zap.String("user_id", user.ID.String()))
	return nil
}

// sendOTPAsync issues and emails a code outside the request lifetime.
func (s *authService) sendOTPAsync(email string, purpose entity.Purpose) {
	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()

	if !s.underCap(ctx, email, purpose) {
		return
	}

	code, _, err := s.tokens.IssueOTP(ctx, email, purpose, s.otpTTL())
	if err != nil {
		s.log.Error("Failed to issue OTP", zap.Error(err), zap.String("purpose", string(purpose)))
		return
	}

	var sendErr error
	switch purpose {
	case entity.PurposeVerifyOTP:
		sendErr = s.mailer.SendVerifyCode(ctx, email, code, s.config.OTP.ExpiryMinutes)
	case entity.PurposeLoginOTP:
		sendErr = s.mailer.SendLoginCode(ctx, email, code, s.config.OTP.ExpiryMinutes)
	}
	if sendErr != nil {
		s.log.Error("Failed to send OTP email", zap.Error(sendErr), zap.String("purpose", string(purpose)))
	}
}

func (s *authService) sendAsync(send func(ctx context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), mailTimeout)
	defer cancel()

	if err := send(ctx); err != nil {
		s.log.Error("Failed to send email", zap.Error(err))
	}
}

func (s *authService) authResponse(user *entity.User, pair *utils.TokenPair) *response.AuthResponse {
	return &response.AuthResponse{
		User:   toUserResponse(user),
		Tokens: pair,
	}
}

func toUserResponse(user *entity.User) response.UserResponse {
	return response.UserResponse{
		ID:            user.ID.String(),
		Email:         user.Email,
		FullName:      user.FullName,
		Provider:      string(user.Provider),
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}
