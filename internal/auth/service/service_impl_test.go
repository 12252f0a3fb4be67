package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/auth/domain"
	"github.com/habitforge/habitforge/internal/clock"
	"github.com/habitforge/habitforge/internal/config"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	userrepo "github.com/habitforge/habitforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	conn  *gorm.DB
	svc   domain.Service
	users userdomain.Repository
	clock *clock.FakeClock
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&userdomain.User{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	// Token expiry is validated against the real clock by the jwt
	// library, so the fake clock starts at real time.
	fake := clock.NewFakeClock(time.Now())
	users := userrepo.Provide()
	svc := New(Params{
		Config: config.Config{
			AppName:         "habitforge-test",
			AuthJWTSecret:   "test-secret",
			AuthTokenTTLMin: 60,
		},
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		Clock:    fake,
		UserRepo: users,
	})
	return &fixture{conn: conn, svc: svc, users: users, clock: fake}
}

func (f *fixture) register(t *testing.T) domain.AuthResult {
	t.Helper()
	res, err := f.svc.Register(context.Background(), domain.RegisterRequest{
		Username: "mira",
		Email:    "Mira@Example.com",
		Password: "correct-horse",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	return res
}

func TestRegisterDefaults(t *testing.T) {
	f := setup(t)
	res := f.register(t)

	u := res.User
	if u.Level != 1 || u.XP != 0 || u.XPToNextLevel != 100 || u.TotalXP != 0 {
		t.Fatalf("progression defaults: %+v", u)
	}
	if u.AvatarID != "avatar1" || u.Role != userdomain.RoleUser {
		t.Fatalf("account defaults: avatar=%q role=%q", u.AvatarID, u.Role)
	}
	if len(u.UnlockedAchievementIDs) != 0 {
		t.Fatalf("achievement set not empty: %v", u.UnlockedAchievementIDs)
	}
	if u.Email != "mira@example.com" {
		t.Fatalf("email not normalized: %q", u.Email)
	}
	if res.Token == "" {
		t.Fatal("no token issued")
	}
}

func TestRegisterValidation(t *testing.T) {
	f := setup(t)
	f.register(t)
	ctx := context.Background()

	cases := []struct {
		name string
		req  domain.RegisterRequest
		want error
	}{
		{"blank username", domain.RegisterRequest{Username: " ", Email: "a@b.com", Password: "long-enough"}, domain.ErrInvalidUsername},
		{"bad email", domain.RegisterRequest{Username: "kade", Email: "not-an-email", Password: "long-enough"}, domain.ErrInvalidEmail},
		{"short password", domain.RegisterRequest{Username: "kade", Email: "kade@example.com", Password: "short"}, domain.ErrWeakPassword},
		{"username taken", domain.RegisterRequest{Username: "mira", Email: "other@example.com", Password: "long-enough"}, domain.ErrUsernameTaken},
		{"email taken", domain.RegisterRequest{Username: "kade", Email: "mira@example.com", Password: "long-enough"}, domain.ErrEmailTaken},
	}
	for _, tc := range cases {
		if _, err := f.svc.Register(ctx, tc.req); !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v, want %v", tc.name, err, tc.want)
		}
	}
}

func TestLoginAndVerify(t *testing.T) {
	f := setup(t)
	registered := f.register(t)
	ctx := context.Background()

	res, err := f.svc.Login(ctx, domain.LoginRequest{Email: "mira@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	id, err := f.svc.Verify(res.Token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != registered.User.ID || id.Role != userdomain.RoleUser {
		t.Fatalf("identity: %+v", id)
	}

	if _, err := f.svc.Login(ctx, domain.LoginRequest{Email: "mira@example.com", Password: "wrong"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
	if _, err := f.svc.Login(ctx, domain.LoginRequest{Email: "ghost@example.com", Password: "correct-horse"}); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("unknown email: got %v", err)
	}
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	f := setup(t)
	f.register(t)

	// Mint an already-expired token by issuing with a negative TTL.
	expiredSvc := New(Params{
		Config: config.Config{
			AppName:         "habitforge-test",
			AuthJWTSecret:   "test-secret",
			AuthTokenTTLMin: -60,
		},
		DB:       f.conn,
		Log:      zap.NewNop(),
		GenID:    mustNode(t),
		Clock:    f.clock,
		UserRepo: f.users,
	})
	res, err := expiredSvc.Login(context.Background(), domain.LoginRequest{Email: "mira@example.com", Password: "correct-horse"})
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := f.svc.Verify(res.Token); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expired token: got %v, want ErrInvalidToken", err)
	}

	if _, err := f.svc.Verify("not.a.token"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("garbage token: got %v", err)
	}
}

func mustNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	return node
}

func TestChangePassword(t *testing.T) {
	f := setup(t)
	res := f.register(t)
	ctx := context.Background()

	if err := f.svc.ChangePassword(ctx, res.User.ID, "wrong", "new-password-1"); !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("wrong current: got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, res.User.ID, "correct-horse", "short"); !errors.Is(err, domain.ErrWeakPassword) {
		t.Fatalf("weak next: got %v", err)
	}
	if err := f.svc.ChangePassword(ctx, res.User.ID, "correct-horse", "new-password-1"); err != nil {
		t.Fatalf("change: %v", err)
	}

	if _, err := f.svc.Login(ctx, domain.LoginRequest{Email: "mira@example.com", Password: "new-password-1"}); err != nil {
		t.Fatalf("login with new password: %v", err)
	}
}

func TestPasswordResetFlow(t *testing.T) {
	f := setup(t)
	f.register(t)
	ctx := context.Background()

	// Unknown addresses produce no token and no error.
	token, err := f.svc.ForgotPassword(ctx, "ghost@example.com")
	if err != nil || token != "" {
		t.Fatalf("unknown address: token=%q err=%v", token, err)
	}

	token, err = f.svc.ForgotPassword(ctx, "mira@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	if token == "" {
		t.Fatal("no reset token issued")
	}

	if err := f.svc.ResetPassword(ctx, "bogus", "new-password-1"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("bogus token: got %v", err)
	}
	if err := f.svc.ResetPassword(ctx, token, "new-password-1"); err != nil {
		t.Fatalf("reset: %v", err)
	}
	if _, err := f.svc.Login(ctx, domain.LoginRequest{Email: "mira@example.com", Password: "new-password-1"}); err != nil {
		t.Fatalf("login after reset: %v", err)
	}

	// The token is single use.
	if err := f.svc.ResetPassword(ctx, token, "another-pass-2"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("token reuse: got %v", err)
	}
}

func TestPasswordResetExpires(t *testing.T) {
	f := setup(t)
	f.register(t)
	ctx := context.Background()

	token, err := f.svc.ForgotPassword(ctx, "mira@example.com")
	if err != nil {
		t.Fatalf("forgot: %v", err)
	}
	f.clock.Advance(11 * time.Minute)
	if err := f.svc.ResetPassword(ctx, token, "new-password-1"); !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expired token: got %v", err)
	}
}

func TestUpdateProfile(t *testing.T) {
	f := setup(t)
	res := f.register(t)
	ctx := context.Background()

	username := "mira_v2"
	avatar := "avatar3"
	updated, err := f.svc.UpdateProfile(ctx, domain.ProfileRequest{
		UserID:   res.User.ID,
		Username: &username,
		AvatarID: &avatar,
	})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.Username != "mira_v2" || updated.AvatarID != "avatar3" {
		t.Fatalf("profile: %+v", updated)
	}

	blank := " "
	if _, err := f.svc.UpdateProfile(ctx, domain.ProfileRequest{UserID: res.User.ID, Username: &blank}); !errors.Is(err, domain.ErrInvalidUsername) {
		t.Fatalf("blank username: got %v", err)
	}
}
