package usecase

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"mycabinet-backend/internal/data/entity"
	"mycabinet-backend/internal/data/repository"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// fakeTokenRepo mirrors the SQL semantics of the real repository: unique
// token_hash, validity as consumed=false AND expires_at>now, and consumption
// as a conditional update that exactly one caller can win.
type fakeTokenRepo struct {
	mu     sync.Mutex
	tokens map[uuid.UUID]*entity.AuthToken

	forceDups int   // next N creates fail with ErrDuplicateTokenHash
	countErr  error // injected CountRecent failure
	order     int
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[uuid.UUID]*entity.AuthToken)}
}

func (f *fakeTokenRepo) Create(_ context.Context, token *entity.AuthToken) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.forceDups > 0 {
		f.forceDups--
		return repository.ErrDuplicateTokenHash
	}
	for _, existing := range f.tokens {
		if existing.TokenHash == token.TokenHash {
			return repository.ErrDuplicateTokenHash
		}
	}

	// Preserve insertion order even when created_at timestamps tie.
	f.order++
	cp := *token
	cp.CreatedAt = cp.CreatedAt.Add(time.Duration(f.order) * time.Microsecond)
	f.tokens[cp.ID] = &cp
	token.CreatedAt = cp.CreatedAt
	return nil
}

func (f *fakeTokenRepo) FindValidByHash(_ context.Context, tokenHash string, purpose entity.Purpose) (*entity.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash && t.Purpose == purpose && t.Valid(now) {
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenRepo) ConsumeByHash(_ context.Context, tokenHash string, purpose entity.Purpose) (*entity.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	for _, t := range f.tokens {
		if t.TokenHash == tokenHash && t.Purpose == purpose && t.Valid(now) {
			t.Consumed = true
			cp := *t
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *fakeTokenRepo) FindLatestValid(_ context.Context, email string, purpose entity.Purpose) (*entity.AuthToken, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	now := time.Now()
	var candidates []*entity.AuthToken
	for _, t := range f.tokens {
		if t.Email == email && t.Purpose == purpose && t.Valid(now) {
			candidates = append(candidates, t)
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].CreatedAt.After(candidates[j].CreatedAt)
	})
	cp := *candidates[0]
	return &cp, nil
}

func (f *fakeTokenRepo) Consume(_ context.Context, tokenID uuid.UUID) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tokens[tokenID]
	if !ok || t.Consumed {
		return false, nil
	}
	t.Consumed = true
	t.Attempts++
	return true, nil
}

func (f *fakeTokenRepo) BumpAttempts(_ context.Context, tokenID uuid.UUID, maxAttempts int) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	t, ok := f.tokens[tokenID]
	if !ok {
		return nil
	}
	if t.Attempts+1 < maxAttempts {
		t.Attempts++
	} else {
		t.Attempts = maxAttempts
	}
	return nil
}

func (f *fakeTokenRepo) CountRecent(_ context.Context, email string, purpose entity.Purpose, since time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.countErr != nil {
		return 0, f.countErr
	}

	count := 0
	for _, t := range f.tokens {
		if t.Email == email && t.Purpose == purpose && !t.CreatedAt.Before(since) {
			count++
		}
	}
	return count, nil
}

func (f *fakeTokenRepo) get(id uuid.UUID) *entity.AuthToken {
	f.mu.Lock()
	defer f.mu.Unlock()
	cp := *f.tokens[id]
	return &cp
}

func newTestTokenService(t *testing.T) (TokenService, *fakeTokenRepo) {
	t.Helper()
	repo := newFakeTokenRepo()
	return NewTokenService(repo, zap.NewNop()), repo
}

func TestIssueOTPCountRecentReadYourWrites(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		if _, _, err := svc.IssueOTP(ctx, "carol@example.com", entity.PurposeVerifyOTP, 10*time.Minute); err != nil {
			t.Fatalf("issue otp %d: %v", i, err)
		}
		if got := svc.CountRecent(ctx, "carol@example.com", entity.PurposeVerifyOTP, 24*time.Hour); got != i {
			t.Fatalf("count after %d issuances = %d, want %d", i, got, i)
		}
	}

	// Other purposes and emails stay at zero.
	if got := svc.CountRecent(ctx, "carol@example.com", entity.PurposeResetOTP, 24*time.Hour); got != 0 {
		t.Errorf("count for other purpose = %d, want 0", got)
	}
	if got := svc.CountRecent(ctx, "dave@example.com", entity.PurposeVerifyOTP, 24*time.Hour); got != 0 {
		t.Errorf("count for other email = %d, want 0", got)
	}
}

func TestVerifyOTPSuccessThenReplayFails(t *testing.T) {
	svc, repo := newTestTokenService(t)
	ctx := context.Background()

	code, rec, err := svc.IssueOTP(ctx, "alice@example.com", entity.PurposeResetOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	ok, err := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeResetOTP, code, OTPMaxAttempts)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if !ok {
		t.Fatal("correct code rejected")
	}
	if !repo.get(rec.ID).Consumed {
		t.Error("record not consumed after successful verification")
	}

	// Replay of the same code must fail.
	ok, err = svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeResetOTP, code, OTPMaxAttempts)
	if err != nil {
		t.Fatalf("replay verify: %v", err)
	}
	if ok {
		t.Error("consumed code verified again")
	}
}

func TestVerifyOTPExpired(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	code, _, err := svc.IssueOTP(ctx, "alice@example.com", entity.PurposeLoginOTP, -time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	ok, err := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeLoginOTP, code, OTPMaxAttempts)
	if err != nil {
		t.Fatalf("verify otp: %v", err)
	}
	if ok {
		t.Error("expired code verified")
	}
}

func TestVerifyOTPLockout(t *testing.T) {
	svc, repo := newTestTokenService(t)
	ctx := context.Background()
	const maxAttempts = 3

	code, rec, err := svc.IssueOTP(ctx, "alice@example.com", entity.PurposeDeleteOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	for i := 0; i < maxAttempts; i++ {
		ok, err := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeDeleteOTP, "000000", maxAttempts)
		if err != nil {
			t.Fatalf("wrong-code attempt %d: %v", i+1, err)
		}
		if ok {
			t.Fatalf("wrong code verified on attempt %d", i+1)
		}
	}

	// Budget spent: even the correct code must fail now.
	ok, err := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeDeleteOTP, code, maxAttempts)
	if err != nil {
		t.Fatalf("locked verify: %v", err)
	}
	if ok {
		t.Error("correct code verified after lockout")
	}

	got := repo.get(rec.ID)
	if got.Attempts > maxAttempts {
		t.Errorf("attempts = %d, exceeds max %d", got.Attempts, maxAttempts)
	}
	if got.Consumed {
		t.Error("locked record was consumed")
	}
}

func TestVerifyOTPContextBound(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	code, _, err := svc.IssueOTP(ctx, "a@x.test", entity.PurposeResetOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	// Give the other contexts their own outstanding codes so the lookup has
	// something to compare against.
	if _, _, err := svc.IssueOTP(ctx, "b@x.test", entity.PurposeResetOTP, 10*time.Minute); err != nil {
		t.Fatalf("issue otp for b: %v", err)
	}
	if _, _, err := svc.IssueOTP(ctx, "a@x.test", entity.PurposeVerifyOTP, 10*time.Minute); err != nil {
		t.Fatalf("issue verify otp: %v", err)
	}

	if ok, _ := svc.VerifyOTP(ctx, "b@x.test", entity.PurposeResetOTP, code, OTPMaxAttempts); ok {
		t.Error("code issued for a@x.test verified for b@x.test")
	}
	if ok, _ := svc.VerifyOTP(ctx, "a@x.test", entity.PurposeVerifyOTP, code, OTPMaxAttempts); ok {
		t.Error("reset code verified for verify purpose")
	}
	if ok, _ := svc.VerifyOTP(ctx, "a@x.test", entity.PurposeResetOTP, code, OTPMaxAttempts); !ok {
		t.Error("code rejected in its own context")
	}
}

func TestVerifyOTPOnlyNewestMatches(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	oldCode, _, err := svc.IssueOTP(ctx, "alice@example.com", entity.PurposeLoginOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue first otp: %v", err)
	}
	newCode, _, err := svc.IssueOTP(ctx, "alice@example.com", entity.PurposeLoginOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue second otp: %v", err)
	}
	if oldCode == newCode {
		t.Skip("codes collided; nothing to distinguish")
	}

	if ok, _ := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeLoginOTP, oldCode, OTPMaxAttempts); ok {
		t.Error("superseded code verified")
	}
	if ok, _ := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeLoginOTP, newCode, OTPMaxAttempts); !ok {
		t.Error("newest code rejected")
	}
}

func TestVerifyOTPNoOutstandingCode(t *testing.T) {
	svc, _ := newTestTokenService(t)

	ok, err := svc.VerifyOTP(context.Background(), "nobody@example.com", entity.PurposeLoginOTP, "123456", OTPMaxAttempts)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Error("verification succeeded with no record")
	}
}

func TestVerifyOTPNormalizesEmail(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	code, _, err := svc.IssueOTP(ctx, "  Alice@Example.COM ", entity.PurposeVerifyOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}

	if ok, _ := svc.VerifyOTP(ctx, "alice@example.com", entity.PurposeVerifyOTP, code, OTPMaxAttempts); !ok {
		t.Error("normalized email did not match")
	}
}

func TestOpaqueTokenPeekThenConsume(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	raw, rec, err := svc.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if rec.Email != "bob@example.com" {
		t.Errorf("record email = %q", rec.Email)
	}

	// Peek twice: non-mutating.
	for i := 0; i < 2; i++ {
		peeked, err := svc.PeekToken(ctx, raw, entity.PurposeLogin)
		if err != nil {
			t.Fatalf("peek %d: %v", i+1, err)
		}
		if peeked == nil || peeked.ID != rec.ID {
			t.Fatalf("peek %d returned %+v, want record %s", i+1, peeked, rec.ID)
		}
		if peeked.Consumed {
			t.Fatalf("peek %d mutated the record", i+1)
		}
	}

	consumed, err := svc.ConsumeToken(ctx, raw, entity.PurposeLogin)
	if err != nil {
		t.Fatalf("consume: %v", err)
	}
	if consumed == nil || consumed.ID != rec.ID {
		t.Fatalf("consume returned %+v, want record %s", consumed, rec.ID)
	}

	// Terminal: both peek and consume now miss.
	if peeked, _ := svc.PeekToken(ctx, raw, entity.PurposeLogin); peeked != nil {
		t.Error("peek succeeded after consumption")
	}
	if again, _ := svc.ConsumeToken(ctx, raw, entity.PurposeLogin); again != nil {
		t.Error("token consumed twice")
	}
}

func TestOpaqueTokenWrongPurpose(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	raw, _, err := svc.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	if rec, _ := svc.ConsumeToken(ctx, raw, entity.PurposeReset); rec != nil {
		t.Error("login token consumed under reset purpose")
	}
}

func TestConcurrentConsumeSingleWinner(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	raw, _, err := svc.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	var wg sync.WaitGroup
	results := make([]*entity.AuthToken, 2)
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		idx := i
		go func() {
			defer wg.Done()
			results[idx], errs[idx] = svc.ConsumeToken(ctx, raw, entity.PurposeLogin)
		}()
	}
	wg.Wait()

	winners := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Fatalf("consume %d: %v", i, errs[i])
		}
		if results[i] != nil {
			winners++
		}
	}
	if winners != 1 {
		t.Fatalf("winners = %d, want exactly 1", winners)
	}
}

func TestIssueTokenCollisionRetries(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewTokenService(repo, zap.NewNop())
	ctx := context.Background()

	repo.forceDups = 1
	raw, rec, err := svc.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue with one collision: %v", err)
	}
	if raw == "" || rec == nil {
		t.Fatal("no token issued after retry")
	}

	repo.forceDups = 2
	if _, _, err := svc.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 10*time.Minute); !errors.Is(err, ErrEntropyExhausted) {
		t.Fatalf("double collision error = %v, want ErrEntropyExhausted", err)
	}

	repo.forceDups = 2
	if _, _, err := svc.IssueOTP(ctx, "bob@example.com", entity.PurposeLoginOTP, 10*time.Minute); !errors.Is(err, ErrEntropyExhausted) {
		t.Fatalf("double OTP collision error = %v, want ErrEntropyExhausted", err)
	}
}

func TestIssueRejectsChannelMismatch(t *testing.T) {
	svc, _ := newTestTokenService(t)
	ctx := context.Background()

	if _, _, err := svc.IssueToken(ctx, "a@x.test", entity.PurposeLoginOTP, time.Minute); !errors.Is(err, ErrPurposeChannel) {
		t.Errorf("IssueToken with otp purpose error = %v, want ErrPurposeChannel", err)
	}
	if _, _, err := svc.IssueOTP(ctx, "a@x.test", entity.PurposeLogin, time.Minute); !errors.Is(err, ErrPurposeChannel) {
		t.Errorf("IssueOTP with link purpose error = %v, want ErrPurposeChannel", err)
	}
	if _, _, err := svc.IssueToken(ctx, "a@x.test", entity.Purpose("bogus"), time.Minute); !errors.Is(err, ErrUnknownPurpose) {
		t.Errorf("unknown purpose error = %v, want ErrUnknownPurpose", err)
	}
}

func TestCountRecentFailsOpen(t *testing.T) {
	repo := newFakeTokenRepo()
	svc := NewTokenService(repo, zap.NewNop())
	repo.countErr = errors.New("storage down")

	if got := svc.CountRecent(context.Background(), "a@x.test", entity.PurposeLoginOTP, 24*time.Hour); got != 0 {
		t.Errorf("count with broken storage = %d, want 0 (fail open)", got)
	}
}

func TestIssuedSecretsAreNotPersisted(t *testing.T) {
	svc, repo := newTestTokenService(t)
	ctx := context.Background()

	raw, rec, err := svc.IssueToken(ctx, "bob@example.com", entity.PurposeLogin, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	if repo.get(rec.ID).TokenHash == raw {
		t.Error("raw token stored verbatim")
	}

	code, otpRec, err := svc.IssueOTP(ctx, "bob@example.com", entity.PurposeLoginOTP, 10*time.Minute)
	if err != nil {
		t.Fatalf("issue otp: %v", err)
	}
	if repo.get(otpRec.ID).TokenHash == code {
		t.Error("raw code stored verbatim")
	}
	if len(repo.get(otpRec.ID).TokenHash) != 64 { // sha256 hex
		t.Errorf("hash length = %d, want 64", len(repo.get(otpRec.ID).TokenHash))
	}
}
