package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/habit/domain"
	"github.com/habitforge/habitforge/pkg/db"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, conn *gorm.DB, habit *domain.Habit) error {
	return conn.WithContext(ctx).Create(habit).Error
}

func (r *repo) FindOwned(ctx context.Context, conn *gorm.DB, ownerID, habitID snowflake.ID) (*domain.Habit, error) {
	return r.findOwned(ctx, conn.WithContext(ctx), ownerID, habitID)
}

func (r *repo) FindOwnedForUpdate(ctx context.Context, conn *gorm.DB, ownerID, habitID snowflake.ID) (*domain.Habit, error) {
	stmt := conn.WithContext(ctx)
	if db.SupportsRowLocking(conn) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return r.findOwned(ctx, stmt, ownerID, habitID)
}

func (r *repo) findOwned(ctx context.Context, stmt *gorm.DB, ownerID, habitID snowflake.ID) (*domain.Habit, error) {
	var habit domain.Habit
	err := stmt.Where("user_id = ? AND id = ?", ownerID, habitID).Take(&habit).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &habit, nil
}

func (r *repo) ListByOwner(ctx context.Context, conn *gorm.DB, ownerID snowflake.ID) ([]domain.Habit, error) {
	var habits []domain.Habit
	err := conn.WithContext(ctx).
		Where("user_id = ?", ownerID).
		Order("created_at asc, id asc").
		Preload("Logs").
		Find(&habits).Error
	if err != nil {
		return nil, err
	}
	return habits, nil
}

func (r *repo) CountByOwner(ctx context.Context, conn *gorm.DB, ownerID snowflake.ID) (int64, error) {
	var count int64
	err := conn.WithContext(ctx).
		Model(&domain.Habit{}).
		Where("user_id = ?", ownerID).
		Count(&count).Error
	return count, err
}

func (r *repo) MaxCompletedCount(ctx context.Context, conn *gorm.DB, ownerID snowflake.ID) (int, error) {
	var max *int
	err := conn.WithContext(ctx).
		Model(&domain.Habit{}).
		Where("user_id = ?", ownerID).
		Select("MAX(completed_count)").
		Scan(&max).Error
	if err != nil {
		return 0, err
	}
	if max == nil {
		return 0, nil
	}
	return *max, nil
}

func (r *repo) Update(ctx context.Context, conn *gorm.DB, habit *domain.Habit) error {
	habit.UpdatedAt = time.Now().UTC()
	return conn.WithContext(ctx).Omit("Logs").Save(habit).Error
}

// Delete removes the habit and its logs in one transaction so a
// failure cannot leave the habit without the logs backing its
// completedCount.
func (r *repo) Delete(ctx context.Context, conn *gorm.DB, habit *domain.Habit) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("habit_id = ?", habit.ID).
			Delete(&domain.HabitLog{}).Error; err != nil {
			return err
		}
		return tx.Delete(habit).Error
	})
}

func (r *repo) InsertLog(ctx context.Context, conn *gorm.DB, log *domain.HabitLog) error {
	return conn.WithContext(ctx).Create(log).Error
}

func (r *repo) FindLog(ctx context.Context, conn *gorm.DB, habitID snowflake.ID, date string) (*domain.HabitLog, error) {
	var log domain.HabitLog
	err := conn.WithContext(ctx).
		Where("habit_id = ? AND date = ?", habitID, date).
		Take(&log).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &log, nil
}

func (r *repo) UpdateLog(ctx context.Context, conn *gorm.DB, log *domain.HabitLog) error {
	return conn.WithContext(ctx).Save(log).Error
}

func (r *repo) ListLogs(ctx context.Context, conn *gorm.DB, habitID snowflake.ID) ([]domain.HabitLog, error) {
	var logs []domain.HabitLog
	err := conn.WithContext(ctx).
		Where("habit_id = ?", habitID).
		Order("date asc").
		Find(&logs).Error
	if err != nil {
		return nil, err
	}
	return logs, nil
}
