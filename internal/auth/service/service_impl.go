package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"net/mail"
	"strconv"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang-jwt/jwt/v5"
	"github.com/habitforge/habitforge/internal/auth/domain"
	"github.com/habitforge/habitforge/internal/clock"
	"github.com/habitforge/habitforge/internal/config"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"github.com/habitforge/habitforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	minPasswordLen = 6
	resetTokenTTL  = 10 * time.Minute
)

type Params struct {
	fx.In

	Config   config.Config
	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	UserRepo userdomain.Repository
}

type Service struct {
	cfg      config.Config
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	userRepo userdomain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		cfg:      p.Config,
		db:       p.DB,
		log:      p.Log.Named("auth.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		userRepo: p.UserRepo,
	}
}

func (s *Service) Register(ctx context.Context, req domain.RegisterRequest) (domain.AuthResult, error) {
	username := strings.TrimSpace(req.Username)
	email := normalizeEmail(req.Email)

	if username == "" {
		return domain.AuthResult{}, domain.ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.AuthResult{}, domain.ErrInvalidEmail
	}
	if len(req.Password) < minPasswordLen {
		return domain.AuthResult{}, domain.ErrWeakPassword
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return domain.AuthResult{}, err
	}

	now := time.Now().UTC()
	user := &userdomain.User{
		ID:                     s.genID.Generate(),
		Username:               username,
		Email:                  email,
		PasswordHash:           string(hash),
		Level:                  userdomain.DefaultLevel,
		XPToNextLevel:          userdomain.DefaultXPToNextLevel,
		UnlockedAchievementIDs: datatypes.JSONSlice[int64]{},
		AvatarID:               userdomain.DefaultAvatarID,
		Role:                   userdomain.RoleUser,
		CreatedAt:              now,
		UpdatedAt:              now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Pre-checks give precise conflicts; the unique indexes settle
		// races.
		if existing, err := s.userRepo.FindByUsername(ctx, tx, username); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrUsernameTaken
		}
		if existing, err := s.userRepo.FindByEmail(ctx, tx, email); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrEmailTaken
		}
		return s.userRepo.Insert(ctx, tx, user)
	})
	if db.IsDuplicateKeyErr(err) {
		return domain.AuthResult{}, domain.ErrUsernameTaken
	}
	if err != nil {
		return domain.AuthResult{}, err
	}

	s.log.Info("user registered", zap.String("user_id", user.ID.String()))
	return s.issueToken(*user)
}

func (s *Service) Login(ctx context.Context, req domain.LoginRequest) (domain.AuthResult, error) {
	user, err := s.userRepo.FindByEmail(ctx, s.db, normalizeEmail(req.Email))
	if err != nil {
		return domain.AuthResult{}, err
	}
	if user == nil {
		return domain.AuthResult{}, domain.ErrInvalidCredentials
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		return domain.AuthResult{}, domain.ErrInvalidCredentials
	}
	return s.issueToken(*user)
}

func (s *Service) Verify(token string) (domain.Identity, error) {
	parsed, err := jwt.ParseWithClaims(token, &jwt.RegisteredClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, domain.ErrInvalidToken
		}
		return []byte(s.cfg.AuthJWTSecret), nil
	})
	if err != nil || !parsed.Valid {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	claims, ok := parsed.Claims.(*jwt.RegisteredClaims)
	if !ok {
		return domain.Identity{}, domain.ErrInvalidToken
	}
	id, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return domain.Identity{}, domain.ErrInvalidToken
	}

	role := userdomain.RoleUser
	for _, aud := range claims.Audience {
		if aud == string(userdomain.RoleAdmin) {
			role = userdomain.RoleAdmin
		}
	}
	return domain.Identity{UserID: snowflake.ID(id), Role: role}, nil
}

func (s *Service) CurrentUser(ctx context.Context, userID snowflake.ID) (userdomain.User, error) {
	user, err := s.userRepo.FindByID(ctx, s.db, userID)
	if err != nil {
		return userdomain.User{}, err
	}
	if user == nil {
		return userdomain.User{}, domain.ErrUserNotFound
	}
	return *user, nil
}

func (s *Service) UpdateProfile(ctx context.Context, req domain.ProfileRequest) (userdomain.User, error) {
	if req.Username != nil && strings.TrimSpace(*req.Username) == "" {
		return userdomain.User{}, domain.ErrInvalidUsername
	}

	var updated userdomain.User
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, req.UserID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		if req.Username != nil {
			username := strings.TrimSpace(*req.Username)
			if username != user.Username {
				if existing, err := s.userRepo.FindByUsername(ctx, tx, username); err != nil {
					return err
				} else if existing != nil {
					return domain.ErrUsernameTaken
				}
				user.Username = username
			}
		}
		if req.AvatarID != nil && strings.TrimSpace(*req.AvatarID) != "" {
			user.AvatarID = strings.TrimSpace(*req.AvatarID)
		}

		if err := s.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}
		updated = *user
		return nil
	})
	if db.IsDuplicateKeyErr(err) {
		return userdomain.User{}, domain.ErrUsernameTaken
	}
	if err != nil {
		return userdomain.User{}, err
	}
	return updated, nil
}

func (s *Service) ChangePassword(ctx context.Context, userID snowflake.ID, current, next string) error {
	if len(next) < minPasswordLen {
		return domain.ErrWeakPassword
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)) != nil {
			return domain.ErrInvalidCredentials
		}

		hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(hash)
		return s.userRepo.Update(ctx, tx, user)
	})
}

func (s *Service) ChangeEmail(ctx context.Context, userID snowflake.ID, password, email string) error {
	email = normalizeEmail(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return domain.ErrInvalidEmail
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}
		if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
			return domain.ErrInvalidCredentials
		}
		if email == user.Email {
			return nil
		}

		if existing, err := s.userRepo.FindByEmail(ctx, tx, email); err != nil {
			return err
		} else if existing != nil {
			return domain.ErrEmailTaken
		}
		user.Email = email
		return s.userRepo.Update(ctx, tx, user)
	})
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrEmailTaken
	}
	return err
}

func (s *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	user, err := s.userRepo.FindByEmail(ctx, s.db, normalizeEmail(email))
	if err != nil {
		return "", err
	}
	if user == nil {
		// Same outcome for unknown addresses.
		return "", nil
	}

	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", err
	}
	token := hex.EncodeToString(raw)
	hash := hashResetToken(token)
	expires := s.clock.Now().Add(resetTokenTTL)

	user.PasswordResetTokenHash = &hash
	user.PasswordResetExpires = &expires
	if err := s.userRepo.Update(ctx, s.db, user); err != nil {
		return "", err
	}

	s.log.Info("password reset issued", zap.String("user_id", user.ID.String()))
	return token, nil
}

func (s *Service) ResetPassword(ctx context.Context, token, password string) error {
	if len(password) < minPasswordLen {
		return domain.ErrWeakPassword
	}
	hash := hashResetToken(strings.TrimSpace(token))

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByResetTokenHash(ctx, tx, hash)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrInvalidToken
		}
		if user.PasswordResetExpires == nil || s.clock.Now().After(*user.PasswordResetExpires) {
			return domain.ErrInvalidToken
		}

		next, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
		if err != nil {
			return err
		}
		user.PasswordHash = string(next)
		user.PasswordResetTokenHash = nil
		user.PasswordResetExpires = nil
		return s.userRepo.Update(ctx, tx, user)
	})
}

func (s *Service) issueToken(user userdomain.User) (domain.AuthResult, error) {
	now := s.clock.Now()
	expires := now.Add(time.Duration(s.cfg.AuthTokenTTLMin) * time.Minute)

	claims := jwt.RegisteredClaims{
		Subject:   user.ID.String(),
		Audience:  jwt.ClaimStrings{string(user.Role)},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
		Issuer:    s.cfg.AppName,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.cfg.AuthJWTSecret))
	if err != nil {
		return domain.AuthResult{}, err
	}
	return domain.AuthResult{User: user, Token: token, ExpiresAt: expires}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
