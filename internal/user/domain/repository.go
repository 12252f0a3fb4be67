package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository persists user records. Methods accept the handle they run
// on so services can pass their transaction.
type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	// FindByIDForUpdate locks the user row for the duration of the
	// surrounding transaction. Every XP mutation must go through this
	// to serialize concurrent grants for the same user.
	FindByIDForUpdate(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	FindByEmail(ctx context.Context, db *gorm.DB, email string) (*User, error)
	FindByUsername(ctx context.Context, db *gorm.DB, username string) (*User, error)
	FindByResetTokenHash(ctx context.Context, db *gorm.DB, tokenHash string) (*User, error)
	Update(ctx context.Context, db *gorm.DB, user *User) error
}
