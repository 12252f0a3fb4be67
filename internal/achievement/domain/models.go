// Package domain contains the achievement catalog and unlock rules.
package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

// ConditionKind tags how an achievement unlocks. Evaluation dispatches
// exhaustively on this tag.
type ConditionKind string

const (
	// KindHabitsCreated unlocks when the user owns at least Threshold habits.
	KindHabitsCreated ConditionKind = "habits_created"
	// KindCompletedCount unlocks when any habit reaches Threshold
	// completions. Threshold 1 is edge-triggered on the completion that
	// moved a habit from zero to one.
	KindCompletedCount ConditionKind = "completed_count"
	// KindLevelReached unlocks when the user level reaches Threshold.
	KindLevelReached ConditionKind = "level_reached"
	// KindBossDefeated unlocks on a boss-defeat event matching BossName.
	KindBossDefeated ConditionKind = "boss_defeated"
)

// Achievement is a static catalog definition; users reference unlocked
// definitions by ID.
type Achievement struct {
	ID          int64         `gorm:"primaryKey" json:"id"`
	Name        string        `gorm:"type:text;not null;uniqueIndex" json:"name"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Icon        string        `gorm:"type:text;not null;default:'Award'" json:"icon"`
	Kind        ConditionKind `gorm:"type:text;not null" json:"kind"`
	Threshold   int           `gorm:"not null;default:0" json:"threshold"`
	BossName    string        `gorm:"type:text" json:"bossName,omitempty"`
}

// TableName sets the database table name.
func (Achievement) TableName() string { return "achievements" }

// Event carries the edge-triggered facts of the state change that
// prompted evaluation. Level- and count-style conditions are re-derived
// from current state instead.
type Event struct {
	// FirstCompletion is true when the just-applied completion moved a
	// habit's completedCount from 0 to 1.
	FirstCompletion bool
	// BossDefeated names the boss defeated by this state change, if any.
	BossDefeated string
}

type Service interface {
	Catalog(ctx context.Context) ([]Achievement, error)
	// Evaluate re-derives the unlock set for the user and persists any
	// additions. Re-evaluating the same state is a no-op. Returns the
	// newly unlocked definitions.
	Evaluate(ctx context.Context, userID snowflake.ID, ev Event) ([]Achievement, error)
	// Unlock adds one achievement to the user's set if not present and
	// returns the full unlocked ID set.
	Unlock(ctx context.Context, userID snowflake.ID, achievementID int64) ([]int64, error)
}

var (
	ErrNotFound     = errors.New("achievement_not_found")
	ErrUserNotFound = errors.New("user_not_found")
)
