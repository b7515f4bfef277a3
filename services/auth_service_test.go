package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/akinalp/rozet/models"
	"github.com/akinalp/rozet/pkg"
	"github.com/akinalp/rozet/pkg/email"
	"github.com/akinalp/rozet/repository"
)

// fakeEmailSender, gönderilen reset token'larını yakalayan test double'ı.
// Gerçek akışta token sadece email içinde yaşar — testte buradan okunur.
type fakeEmailSender struct {
	mu     sync.Mutex
	tokens []string
}

func (f *fakeEmailSender) SendPasswordReset(ctx context.Context, toEmail, token string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokens = append(f.tokens, token)
	return nil
}

func (f *fakeEmailSender) sentCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.tokens)
}

func (f *fakeEmailSender) lastToken(t *testing.T) string {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.tokens) == 0 {
		t.Fatal("no reset email was sent")
	}
	return f.tokens[len(f.tokens)-1]
}

func newAuthService(env *testEnv, sender email.EmailSender) AuthService {
	return NewAuthService(
		env.db.Conn,
		env.userRepo,
		repository.NewSQLiteSessionRepo(env.db.Conn),
		repository.NewSQLiteResetTokenRepo(env.db.Conn),
		sender,
		"test-secret",
		15,
		7,
	)
}

func registerUser(t *testing.T, svc AuthService, username, password string) *AuthTokens {
	t.Helper()
	tokens, err := svc.Register(context.Background(), &models.CreateUserRequest{
		Username: username,
		Password: password,
	})
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", username, err)
	}
	return tokens
}

func TestRegisterFirstUserIsPlatformAdmin(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)

	first := registerUser(t, svc, "alice", "password123")
	if !first.User.IsPlatformAdmin {
		t.Fatal("first registered user must be platform admin")
	}
	if first.User.PasswordHash != "" {
		t.Fatal("password hash must never leave the service")
	}
	if first.AccessToken == "" || first.RefreshToken == "" {
		t.Fatal("expected token pair after register")
	}

	second := registerUser(t, svc, "bob", "password123")
	if second.User.IsPlatformAdmin {
		t.Fatal("subsequent users must not be platform admin")
	}
}

func TestRegisterValidation(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.CreateUserRequest{Username: "alice", Password: "short"})
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for short password, got %v", err)
	}

	registerUser(t, svc, "alice", "password123")

	_, err = svc.Register(ctx, &models.CreateUserRequest{Username: "ALICE", Password: "password123"})
	if !errors.Is(err, pkg.ErrAlreadyExists) {
		t.Fatalf("expected ErrAlreadyExists for duplicate username, got %v", err)
	}
}

func TestLoginVerifiesCredentials(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)
	ctx := context.Background()

	registerUser(t, svc, "alice", "password123")

	tokens, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password123"})
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}

	claims, err := svc.ValidateAccessToken(tokens.AccessToken)
	if err != nil {
		t.Fatalf("ValidateAccessToken failed: %v", err)
	}
	if claims.UserID != tokens.User.ID || claims.Username != "alice" {
		t.Fatalf("claims do not match user: %+v", claims)
	}

	_, err = svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "wrong-password"})
	if !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong password, got %v", err)
	}

	// Bilinmeyen kullanıcı aynı hatayı alır — enumeration koruması
	_, err = svc.Login(ctx, &models.LoginRequest{Username: "ghost", Password: "password123"})
	if !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unknown user, got %v", err)
	}
}

func TestValidateAccessTokenRejectsGarbage(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)

	if _, err := svc.ValidateAccessToken("not-a-jwt"); !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestRefreshTokenRotation(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)
	ctx := context.Background()

	initial := registerUser(t, svc, "alice", "password123")

	rotated, err := svc.RefreshToken(ctx, initial.RefreshToken)
	if err != nil {
		t.Fatalf("RefreshToken failed: %v", err)
	}
	if rotated.RefreshToken == initial.RefreshToken {
		t.Fatal("refresh must rotate the refresh token")
	}

	// Eski token artık geçersiz — rotation tek kullanımlıktır
	if _, err := svc.RefreshToken(ctx, initial.RefreshToken); !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for consumed token, got %v", err)
	}

	// Logout sonrası yeni token da ölür
	if err := svc.Logout(ctx, rotated.RefreshToken); err != nil {
		t.Fatalf("Logout failed: %v", err)
	}
	if _, err := svc.RefreshToken(ctx, rotated.RefreshToken); !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized after logout, got %v", err)
	}
}

func TestLogoutUnknownTokenIsSilent(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)

	if err := svc.Logout(context.Background(), "never-issued"); err != nil {
		t.Fatalf("logout with unknown token must be a no-op, got %v", err)
	}
}

func TestChangePassword(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)
	ctx := context.Background()

	tokens := registerUser(t, svc, "alice", "password123")
	userID := tokens.User.ID

	err := svc.ChangePassword(ctx, userID, "wrong-current", "newpassword1")
	if !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong current password, got %v", err)
	}

	err = svc.ChangePassword(ctx, userID, "password123", "password123")
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for unchanged password, got %v", err)
	}

	if err := svc.ChangePassword(ctx, userID, "password123", "newpassword1"); err != nil {
		t.Fatalf("ChangePassword failed: %v", err)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "newpassword1"}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}
	if _, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "password123"}); !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("old password must stop working, got %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	env := newTestEnv(t)
	sender := &fakeEmailSender{}
	svc := newAuthService(env, sender)
	ctx := context.Background()

	tokens, err := svc.Register(ctx, &models.CreateUserRequest{
		Username: "alice",
		Password: "password123",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	cooldown, err := svc.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if cooldown != 0 {
		t.Fatalf("first request must not hit cooldown, got %d", cooldown)
	}

	resetToken := sender.lastToken(t)

	if err := svc.ResetPassword(ctx, resetToken, "replacement9"); err != nil {
		t.Fatalf("ResetPassword failed: %v", err)
	}

	// Reset tüm oturumları düşürür — çalıntı token senaryosu
	if _, err := svc.RefreshToken(ctx, tokens.RefreshToken); !errors.Is(err, pkg.ErrUnauthorized) {
		t.Fatalf("expected sessions revoked after reset, got %v", err)
	}

	if _, err := svc.Login(ctx, &models.LoginRequest{Username: "alice", Password: "replacement9"}); err != nil {
		t.Fatalf("login with reset password failed: %v", err)
	}

	// Token tek kullanımlık
	if err := svc.ResetPassword(ctx, resetToken, "thirdpassword1"); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected consumed token to be rejected, got %v", err)
	}
}

func TestForgotPasswordCooldown(t *testing.T) {
	env := newTestEnv(t)
	sender := &fakeEmailSender{}
	svc := newAuthService(env, sender)
	ctx := context.Background()

	_, err := svc.Register(ctx, &models.CreateUserRequest{
		Username: "alice",
		Password: "password123",
		Email:    "alice@example.com",
	})
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	if cooldown, err := svc.ForgotPassword(ctx, "alice@example.com"); err != nil || cooldown != 0 {
		t.Fatalf("first request expected (0, nil), got (%d, %v)", cooldown, err)
	}

	cooldown, err := svc.ForgotPassword(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("ForgotPassword failed: %v", err)
	}
	if cooldown <= 0 || cooldown > 90 {
		t.Fatalf("expected remaining cooldown in (0, 90], got %d", cooldown)
	}

	if sender.sentCount() != 1 {
		t.Fatalf("cooldown must suppress the second email, sent %d", sender.sentCount())
	}
}

func TestForgotPasswordUnknownEmailIsSilent(t *testing.T) {
	env := newTestEnv(t)
	sender := &fakeEmailSender{}
	svc := newAuthService(env, sender)

	cooldown, err := svc.ForgotPassword(context.Background(), "nobody@example.com")
	if err != nil || cooldown != 0 {
		t.Fatalf("unknown email must look like success, got (%d, %v)", cooldown, err)
	}
	if sender.sentCount() != 0 {
		t.Fatal("no email must be sent for unknown address")
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)
	ctx := context.Background()

	tokens := registerUser(t, svc, "alice", "password123")

	// Süresi geçmiş token'ı doğrudan repo'ya yaz
	resetRepo := repository.NewSQLiteResetTokenRepo(env.db.Conn)
	expired := &models.PasswordResetToken{
		UserID:    tokens.User.ID,
		TokenHash: hashResetToken("stale-token"),
		ExpiresAt: time.Now().Add(-time.Minute),
	}
	if err := resetRepo.Create(ctx, expired); err != nil {
		t.Fatalf("failed to seed expired token: %v", err)
	}

	if err := svc.ResetPassword(ctx, "stale-token", "replacement9"); !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest for expired token, got %v", err)
	}
}

func TestResetPasswordRejectsShortPassword(t *testing.T) {
	env := newTestEnv(t)
	svc := newAuthService(env, nil)

	err := svc.ResetPassword(context.Background(), "whatever", "short")
	if !errors.Is(err, pkg.ErrBadRequest) {
		t.Fatalf("expected ErrBadRequest, got %v", err)
	}
}
