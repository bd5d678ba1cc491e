package usecase

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"
	"mycabinet-backend/internal/dto/request"
	"mycabinet-backend/pkg/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type fakeUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*entity.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{users: make(map[uuid.UUID]*entity.User)}
}

func (f *fakeUserRepo) Create(_ context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[cp.ID] = &cp
	return nil
}

func (f *fakeUserRepo) FindByID(_ context.Context, id uuid.UUID) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if u, ok := f.users[id]; ok {
		cp := *u
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByEmail(_ context.Context, email string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) FindByProvider(_ context.Context, provider entity.AuthProvider, providerID string) (*entity.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.users {
		if u.Provider == provider && u.ProviderID != nil && *u.ProviderID == providerID {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeUserRepo) Update(_ context.Context, user *entity.User) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *user
	f.users[cp.ID] = &cp
	return nil
}

func (f *fakeUserRepo) Delete(_ context.Context, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.users, id)
	return nil
}

// noopMailer swallows every send; delivery runs on goroutines and is not
// what these tests assert.
type noopMailer struct{}

func (noopMailer) SendLoginLink(context.Context, string, string) error       { return nil }
func (noopMailer) SendResetLink(context.Context, string, string) error       { return nil }
func (noopMailer) SendLoginCode(context.Context, string, string, int) error  { return nil }
func (noopMailer) SendVerifyCode(context.Context, string, string, int) error { return nil }
func (noopMailer) SendResetCode(context.Context, string, string, int) error  { return nil }
func (noopMailer) SendDeleteCode(context.Context, string, string, int) error { return nil }
func (noopMailer) SendPasswordChangedNotice(context.Context, string) error   { return nil }
func (noopMailer) SendAccountDeletedNotice(context.Context, string) error    { return nil }

type authFixture struct {
	svc    AuthService
	tokens TokenService
	users  *fakeUserRepo
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	users := newFakeUserRepo()
	tokenRepo := newFakeTokenRepo()
	repo := &repository.Repository{
		User:      users,
		AuthToken: tokenRepo,
	}
	config := &utils.Config{
		App: utils.AppConfig{RedirectURL: "https://mycabinet.me/r"},
		JWT: utils.JWTConfig{
			Secret:            "test-secret-not-for-production",
			Issuer:            "mycabinet",
			AccessExpiryMins:  15,
			RefreshExpiryDays: 7,
		},
		OTP: utils.OTPConfig{Length: 6, ExpiryMinutes: 10, MaxAttempts: 5},
		RateLimit: utils.RateLimitConfig{
			DailyCap:  3,
			Allowlist: []string{"vip@example.com", "@trusted.test"},
		},
	}

	tokens := NewTokenService(tokenRepo, zap.NewNop())
	jwt := utils.NewJWTManager(config.JWT)
	svc := NewAuthService(repo, tokens, jwt, noopMailer{}, config, zap.NewNop())

	return &authFixture{svc: svc, tokens: tokens, users: users}
}

func TestRegisterAndLogin(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "Dana@Example.com",
		Password: "horse battery staple",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if resp.User.Email != "dana@example.com" {
		t.Errorf("stored email = %q, want normalized lowercase", resp.User.Email)
	}
	if resp.Tokens == nil || resp.Tokens.AccessToken == "" || resp.Tokens.RefreshToken == "" {
		t.Fatal("register did not mint a token pair")
	}
	if resp.User.EmailVerified {
		t.Error("password signup should start unverified")
	}

	login, err := fx.svc.Login(ctx, &request.LoginRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if login.Tokens == nil {
		t.Fatal("login did not mint a token pair")
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	req := &request.RegisterRequest{Email: "dana@example.com", Password: "horse battery staple"}
	if _, err := fx.svc.Register(ctx, req); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := fx.svc.Register(ctx, req); err == nil || !strings.Contains(err.Error(), "already registered") {
		t.Fatalf("duplicate register error = %v", err)
	}
}

func TestRegisterWeakPassword(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	cases := []string{
		"short1",              // too short
		"password123",         // deny list
		"aaaaaaaaaaaa",        // too repetitive
		"dana@example.com123", // contains the email name
	}
	for _, pw := range cases {
		_, err := fx.svc.Register(ctx, &request.RegisterRequest{
			Email:    "dana@example.com",
			Password: pw,
		})
		if err == nil {
			t.Errorf("password %q accepted", pw)
		}
	}
}

func TestLoginRejectsUniformly(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	_, errUnknown := fx.svc.Login(ctx, &request.LoginRequest{Email: "ghost@example.com", Password: "whatever123"})
	_, errWrong := fx.svc.Login(ctx, &request.LoginRequest{Email: "dana@example.com", Password: "wrong password"})

	if errUnknown == nil || errWrong == nil {
		t.Fatal("bad logins succeeded")
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Errorf("unknown-account and wrong-password errors differ: %q vs %q", errUnknown, errWrong)
	}
}

func TestRefreshRoundTrip(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	resp, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}

	pair, err := fx.svc.Refresh(ctx, resp.Tokens.RefreshToken)
	if err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if pair.AccessToken == "" {
		t.Fatal("refresh returned empty access token")
	}

	if _, err := fx.svc.Refresh(ctx, resp.Tokens.AccessToken); err == nil {
		t.Error("access token accepted as refresh token")
	}
	if _, err := fx.svc.Refresh(ctx, "garbage"); err == nil {
		t.Error("garbage accepted as refresh token")
	}
}

func TestRequestOTPDailyCapSilent(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	req := &request.RequestOTPRequest{Email: "carol@example.com", Intent: "login"}
	for i := 0; i < 5; i++ {
		if err := fx.svc.RequestOTP(ctx, req); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
	}

	// Cap is 3: the 4th and 5th requests must be silently suppressed.
	got := fx.tokens.CountRecent(ctx, "carol@example.com", entity.PurposeLoginOTP, 24*time.Hour)
	if got != 3 {
		t.Fatalf("issued codes = %d, want 3", got)
	}
}

func TestRequestOTPAllowlistBypassesCap(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := fx.svc.RequestOTP(ctx, &request.RequestOTPRequest{Email: "vip@example.com", Intent: "login"}); err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if err := fx.svc.RequestOTP(ctx, &request.RequestOTPRequest{Email: "qa@trusted.test", Intent: "login"}); err != nil {
			t.Fatalf("domain request %d: %v", i+1, err)
		}
	}

	if got := fx.tokens.CountRecent(ctx, "vip@example.com", entity.PurposeLoginOTP, 24*time.Hour); got != 5 {
		t.Errorf("allowlisted email issued %d codes, want 5", got)
	}
	if got := fx.tokens.CountRecent(ctx, "qa@trusted.test", entity.PurposeLoginOTP, 24*time.Hour); got != 5 {
		t.Errorf("allowlisted domain issued %d codes, want 5", got)
	}
}

func TestRequestOTPUnknownAccountStaysSilent(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	// Non-login intents target existing accounts; absence must look the same.
	if err := fx.svc.RequestOTP(ctx, &request.RequestOTPRequest{Email: "ghost@example.com", Intent: "reset"}); err != nil {
		t.Fatalf("request for unknown account: %v", err)
	}
	if got := fx.tokens.CountRecent(ctx, "ghost@example.com", entity.PurposeResetOTP, 24*time.Hour); got != 0 {
		t.Errorf("codes issued for unknown account = %d, want 0", got)
	}
}

func TestVerifyOTPLoginCreatesVerifiedUser(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	code, _, err := fx.tokens.IssueOTP(ctx, "new@example.com", entity.PurposeLoginOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	resp, err := fx.svc.VerifyOTP(ctx, &request.VerifyOTPRequest{
		Email:  "new@example.com",
		Intent: "login",
		Code:   code,
	})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if resp.Tokens == nil {
		t.Fatal("OTP login did not mint a token pair")
	}
	if !resp.User.EmailVerified {
		t.Error("OTP login left the email unverified")
	}

	// Replay must fail.
	if _, err := fx.svc.VerifyOTP(ctx, &request.VerifyOTPRequest{
		Email:  "new@example.com",
		Intent: "login",
		Code:   code,
	}); err == nil {
		t.Error("replayed code accepted")
	}
}

func TestVerifyOTPMarksEmailVerified(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	code, _, err := fx.tokens.IssueOTP(ctx, "dana@example.com", entity.PurposeVerifyOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	resp, err := fx.svc.VerifyOTP(ctx, &request.VerifyOTPRequest{
		Email:  "dana@example.com",
		Intent: "verify",
		Code:   code,
	})
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if !resp.User.EmailVerified {
		t.Error("email not marked verified")
	}
	if resp.Tokens != nil {
		t.Error("verification must not mint a session")
	}
}

func TestFinishLoginMagicLink(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	raw, _, err := fx.tokens.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 15*time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	resp, err := fx.svc.FinishLogin(ctx, raw)
	if err != nil {
		t.Fatalf("finish login: %v", err)
	}
	if resp.Tokens == nil {
		t.Fatal("link login did not mint a token pair")
	}
	if !resp.User.EmailVerified {
		t.Error("link login left the email unverified")
	}

	if _, err := fx.svc.FinishLogin(ctx, raw); err == nil {
		t.Error("link token accepted twice")
	}
}

func TestConfirmPasswordResetFlow(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	raw, _, err := fx.tokens.IssueToken(ctx, "dana@example.com", entity.PurposeReset, 30*time.Minute)
	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}

	// Weak password is rejected without burning the token.
	if err := fx.svc.ConfirmPasswordReset(ctx, &request.ResetPasswordRequest{
		Token:       raw,
		NewPassword: "aaaaaaaaaaaa",
	}); err == nil {
		t.Fatal("weak password accepted")
	}

	if err := fx.svc.ConfirmPasswordReset(ctx, &request.ResetPasswordRequest{
		Token:       raw,
		NewPassword: "brand new passphrase",
	}); err != nil {
		t.Fatalf("reset with valid password: %v", err)
	}

	// Token is spent now.
	if err := fx.svc.ConfirmPasswordReset(ctx, &request.ResetPasswordRequest{
		Token:       raw,
		NewPassword: "yet another passphrase",
	}); err == nil {
		t.Error("reset token accepted twice")
	}

	if _, err := fx.svc.Login(ctx, &request.LoginRequest{
		Email:    "dana@example.com",
		Password: "brand new passphrase",
	}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
	if _, err := fx.svc.Login(ctx, &request.LoginRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	}); err == nil {
		t.Error("old password still works")
	}
}

func TestCompleteResetWithCode(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "alice@example.com",
		Password: "horse battery staple",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	code, _, err := fx.tokens.IssueOTP(ctx, "alice@example.com", entity.PurposeResetOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	// Weak password fails before the code is checked; the code stays fresh.
	if err := fx.svc.CompleteReset(ctx, &request.CompleteResetRequest{
		Email:       "alice@example.com",
		Code:        code,
		NewPassword: "aaaaaaaaaaaa",
	}); err == nil {
		t.Fatal("weak password accepted")
	}

	if err := fx.svc.CompleteReset(ctx, &request.CompleteResetRequest{
		Email:       "alice@example.com",
		Code:        code,
		NewPassword: "brand new passphrase",
	}); err != nil {
		t.Fatalf("complete reset: %v", err)
	}

	if err := fx.svc.CompleteReset(ctx, &request.CompleteResetRequest{
		Email:       "alice@example.com",
		Code:        code,
		NewPassword: "another passphrase again",
	}); err == nil {
		t.Error("reset code accepted twice")
	}

	if _, err := fx.svc.Login(ctx, &request.LoginRequest{
		Email:    "alice@example.com",
		Password: "brand new passphrase",
	}); err != nil {
		t.Errorf("login with new password: %v", err)
	}
}

func TestEmailExists(t *testing.T) {
	fx := newAuthFixture(t)
	ctx := context.Background()

	if _, err := fx.svc.Register(ctx, &request.RegisterRequest{
		Email:    "dana@example.com",
		Password: "horse battery staple",
	}); err != nil {
		t.Fatalf("register: %v", err)
	}

	if ok, _ := fx.svc.EmailExists(ctx, "Dana@Example.com"); !ok {
		t.Error("existing email reported missing")
	}
	if ok, _ := fx.svc.EmailExists(ctx, "ghost@example.com"); ok {
		t.Error("missing email reported existing")
	}
}
