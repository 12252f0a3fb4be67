// Package domain contains the boss-battle overlay. Boss state is
// server-authoritative: completions deal damage, and a defeat claim is
// only honored when the stored HP is actually zero.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
)

const (
	MaxHP = 100

	// Damage per completion source.
	HabitDamage = 10
	QuestDamage = 15
)

// Stage is one boss on the fixed ladder. LevelCeiling is the highest
// user level the stage still applies to.
type Stage struct {
	Name         string `json:"name"`
	LevelCeiling int    `json:"-"`
	RewardXP     int    `json:"rewardXp"`
}

var Stages = []Stage{
	{Name: "Procrastination", LevelCeiling: 10, RewardXP: 250},
	{Name: "Sloth", LevelCeiling: 20, RewardXP: 500},
	{Name: "Distraction", LevelCeiling: 0, RewardXP: 1000},
}

// StageForLevel picks the boss matching the user's level. The last
// stage has no ceiling.
func StageForLevel(level int) Stage {
	for _, stage := range Stages {
		if stage.LevelCeiling == 0 || level <= stage.LevelCeiling {
			return stage
		}
	}
	return Stages[len(Stages)-1]
}

// StageByName resolves a stage from its persisted name.
func StageByName(name string) (Stage, bool) {
	for _, stage := range Stages {
		if stage.Name == name {
			return stage, true
		}
	}
	return Stage{}, false
}

// BossState is the per-user battle row.
type BossState struct {
	ID            snowflake.ID `gorm:"primaryKey" json:"-"`
	UserID        snowflake.ID `gorm:"not null;uniqueIndex" json:"-"`
	Name          string       `gorm:"type:text;not null" json:"name"`
	HP            int          `gorm:"column:hp;not null" json:"hp"`
	MaxHP         int          `gorm:"column:max_hp;not null" json:"maxHp"`
	DefeatedCount int          `gorm:"not null;default:0" json:"defeatedCount"`
	UpdatedAt     time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"-"`
}

// TableName sets the database table name.
func (BossState) TableName() string { return "boss_states" }

type DefeatResult struct {
	User     userdomain.User `json:"user"`
	Boss     BossState       `json:"boss"`
	Defeated string          `json:"defeated"`
	RewardXP int             `json:"rewardXp"`
}

type Service interface {
	State(ctx context.Context, userID snowflake.ID) (BossState, error)
	// ApplyDamage lowers HP, floored at zero. Best-effort: completion
	// flows call it after their own transaction commits.
	ApplyDamage(ctx context.Context, userID snowflake.ID, damage int) error
	// ClaimDefeat grants the stage reward when HP is zero and advances
	// to the stage for the user's current level with full HP.
	ClaimDefeat(ctx context.Context, userID snowflake.ID) (DefeatResult, error)
}

var (
	ErrUserNotFound = errors.New("user_not_found")
	// ErrBossNotDefeated rejects a defeat claim while HP remains.
	ErrBossNotDefeated = errors.New("boss_not_defeated")
)
