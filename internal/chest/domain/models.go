// Package domain contains the reward-chest overlay: every habit
// completion fills the chest by one up to the goal; a full chest can be
// opened once for a fixed XP reward.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
)

const (
	Goal     = 5
	RewardXP = 100
)

// ChestState is the per-user chest row.
type ChestState struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID      snowflake.ID `gorm:"not null;uniqueIndex" json:"-"`
	Progress    int          `gorm:"not null;default:0" json:"progress"`
	Goal        int          `gorm:"not null;default:5" json:"goal"`
	OpenedCount int          `gorm:"not null;default:0" json:"openedCount"`
	UpdatedAt   time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (ChestState) TableName() string { return "chest_states" }

type OpenResult struct {
	User     userdomain.User `json:"user"`
	Chest    ChestState      `json:"chest"`
	RewardXP int             `json:"rewardXp"`
}

type Service interface {
	State(ctx context.Context, userID snowflake.ID) (ChestState, error)
	// AddProgress adds one completion to the chest, capped at the goal.
	// Best-effort: called after the completion transaction commits.
	AddProgress(ctx context.Context, userID snowflake.ID) error
	// Open grants the reward for a full chest and resets progress.
	Open(ctx context.Context, userID snowflake.ID) (OpenResult, error)
}

var (
	ErrUserNotFound = errors.New("user_not_found")
	// ErrChestNotFull rejects opening before the goal is reached.
	ErrChestNotFull = errors.New("chest_not_full")
)
