// Package domain defines account authentication: registration, login,
// JWT verification and credential management.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResult is the login/registration response: the account plus a
// signed bearer token.
type AuthResult struct {
	User      userdomain.User `json:"user"`
	Token     string          `json:"token"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// Identity is the verified content of a bearer token.
type Identity struct {
	UserID snowflake.ID
	Role   userdomain.Role
}

type ProfileRequest struct {
	UserID   snowflake.ID
	Username *string
	AvatarID *string
}

type Service interface {
	Register(ctx context.Context, req RegisterRequest) (AuthResult, error)
	Login(ctx context.Context, req LoginRequest) (AuthResult, error)
	// Verify parses and validates a bearer token.
	Verify(token string) (Identity, error)
	CurrentUser(ctx context.Context, userID snowflake.ID) (userdomain.User, error)

	UpdateProfile(ctx context.Context, req ProfileRequest) (userdomain.User, error)
	ChangePassword(ctx context.Context, userID snowflake.ID, current, next string) error
	ChangeEmail(ctx context.Context, userID snowflake.ID, password, email string) error

	// ForgotPassword issues a reset token for the account, if one
	// exists. The returned token goes to the (out-of-band) mail flow,
	// never into the HTTP response, so address probing stays blind.
	ForgotPassword(ctx context.Context, email string) (string, error)
	ResetPassword(ctx context.Context, token, password string) error
}

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrUsernameTaken      = errors.New("username_taken")
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
	ErrInvalidUsername    = errors.New("invalid_username")
	ErrInvalidEmail       = errors.New("invalid_email")
	ErrUserNotFound       = errors.New("user_not_found")
	// ErrInvalidToken covers malformed, expired and already-used
	// tokens, both bearer and reset.
	ErrInvalidToken = errors.New("invalid_token")
)
