package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/user/domain"
	"github.com/habitforge/habitforge/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, user *domain.User) error {
	return conn.WithContext(ctx).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.findOne(ctx, conn, "id = ?", id)
}

func (r *repo) FindByIDForUpdate(ctx context.Context, conn *gorm.DB, id snowflake.ID) (*domain.User, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var user domain.User
	err := stmt.Where("id = ?", id).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *repo) FindByEmail(ctx context.Context, conn *gorm.DB, email string) (*domain.User, error) {
	return r.findOne(ctx, conn, "email = ?", email)
}

func (r *repo) FindByUsername(ctx context.Context, conn *gorm.DB, username string) (*domain.User, error) {
	return r.findOne(ctx, conn, "username = ?", username)
}

func (r *repo) FindByResetTokenHash(ctx context.Context, conn *gorm.DB, tokenHash string) (*domain.User, error) {
	return r.findOne(ctx, conn, "password_reset_token_hash = ? AND password_reset_expires > ?", tokenHash, time.Now().UTC())
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, user *domain.User) error {
	user.UpdatedAt = time.Now().UTC()
	return conn.WithContext(ctx).Save(user).Error
}

func (r *repo) findOne(ctx context.Context, conn *gorm.DB, query string, args ...any) (*domain.User, error) {
	var user domain.User
	err := conn.WithContext(ctx).Where(query, args...).Take(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}
