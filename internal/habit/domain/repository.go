package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, habit *Habit) error
	// FindOwned resolves a habit only when ownerID owns it.
	FindOwned(ctx context.Context, db *gorm.DB, ownerID, habitID snowflake.ID) (*Habit, error)
	// FindOwnedForUpdate additionally locks the habit row until the
	// surrounding transaction ends.
	FindOwnedForUpdate(ctx context.Context, db *gorm.DB, ownerID, habitID snowflake.ID) (*Habit, error)
	ListByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) ([]Habit, error)
	CountByOwner(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int64, error)
	MaxCompletedCount(ctx context.Context, db *gorm.DB, ownerID snowflake.ID) (int, error)
	Update(ctx context.Context, db *gorm.DB, habit *Habit) error
	// Delete removes the habit and cascades its logs.
	Delete(ctx context.Context, db *gorm.DB, habit *Habit) error

	InsertLog(ctx context.Context, db *gorm.DB, log *HabitLog) error
	FindLog(ctx context.Context, db *gorm.DB, habitID snowflake.ID, date string) (*HabitLog, error)
	UpdateLog(ctx context.Context, db *gorm.DB, log *HabitLog) error
	ListLogs(ctx context.Context, db *gorm.DB, habitID snowflake.ID) ([]HabitLog, error)
}
