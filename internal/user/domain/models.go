// Package domain contains the account-wide user record shared by the
// auth, habit, quest, achievement and boss services.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/progression"
	"gorm.io/datatypes"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Defaults applied at registration.
const (
	DefaultLevel         = 1
	DefaultXPToNextLevel = 100
	DefaultAvatarID      = "avatar1"
)

// User holds account identity plus the account-wide progression state.
//
// XP resets on level-up; TotalXP is a lifetime ledger and is never
// decremented.
type User struct {
	ID           snowflake.ID `gorm:"primaryKey" json:"id"`
	Username     string       `gorm:"type:text;not null;uniqueIndex" json:"username"`
	Email        string       `gorm:"type:text;not null;uniqueIndex" json:"email"`
	PasswordHash string       `gorm:"type:text;not null" json:"-"`

	Level                  int                        `gorm:"not null;default:1" json:"level"`
	XP                     int                        `gorm:"column:xp;not null;default:0" json:"xp"`
	XPToNextLevel          int                        `gorm:"column:xp_to_next_level;not null;default:100" json:"xpToNextLevel"`
	TotalXP                int                        `gorm:"column:total_xp;not null;default:0" json:"totalXp"`
	UnlockedAchievementIDs datatypes.JSONSlice[int64] `gorm:"column:unlocked_achievement_ids" json:"unlockedAchievementIds"`

	AvatarID string `gorm:"column:avatar_id;type:text;not null;default:'avatar1'" json:"avatarId"`
	Role     Role   `gorm:"type:text;not null;default:'user'" json:"role"`

	PasswordResetTokenHash *string    `gorm:"column:password_reset_token_hash;type:text" json:"-"`
	PasswordResetExpires   *time.Time `gorm:"column:password_reset_expires" json:"-"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (User) TableName() string { return "users" }

// StateOf projects the persisted user onto the progression engine's
// input.
func StateOf(u *User) progression.UserState {
	return progression.UserState{
		Level:         u.Level,
		XP:            u.XP,
		XPToNextLevel: u.XPToNextLevel,
		TotalXP:       u.TotalXP,
	}
}

// ApplyState writes an engine output back onto the persisted user.
func ApplyState(u *User, st progression.UserState) {
	u.Level = st.Level
	u.XP = st.XP
	u.XPToNextLevel = st.XPToNextLevel
	u.TotalXP = st.TotalXP
}

// HasAchievement reports whether id is already in the unlocked set.
func (u *User) HasAchievement(id int64) bool {
	for _, unlocked := range u.UnlockedAchievementIDs {
		if unlocked == id {
			return true
		}
	}
	return false
}
