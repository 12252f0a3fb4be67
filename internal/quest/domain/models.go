// Package domain contains the daily-quest catalog and per-day
// completion tracking types.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
)

// DailyQuest is a catalog entry. The XP grant is fixed per completion
// and lives in the progression rules, not on the row.
type DailyQuest struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	Title       string       `gorm:"type:text;not null" json:"title"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Icon        string       `gorm:"type:text;not null;default:'Sparkles'" json:"icon"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`
}

// TableName sets the database table name.
func (DailyQuest) TableName() string { return "daily_quests" }

// QuestCompletion marks one quest done by one user on one calendar
// day. The unique index makes repeat completions observable as
// duplicates instead of double grants.
type QuestCompletion struct {
	ID      snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID  snowflake.ID `gorm:"not null;uniqueIndex:ux_quest_completions,priority:1" json:"userId"`
	QuestID snowflake.ID `gorm:"not null;uniqueIndex:ux_quest_completions,priority:2" json:"questId"`
	Date    string       `gorm:"type:text;not null;uniqueIndex:ux_quest_completions,priority:3" json:"date"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (QuestCompletion) TableName() string { return "quest_completions" }

// QuestStatus is one row of the daily board: a catalog entry joined
// against today's completion records.
type QuestStatus struct {
	Quest     DailyQuest `json:"quest"`
	Completed bool       `json:"completed"`
}

// CompletionResult reports the user state after a quest completion.
// AlreadyCompleted marks the idempotent replay case: no XP moved.
type CompletionResult struct {
	User             userdomain.User `json:"user"`
	Quest            DailyQuest      `json:"quest"`
	XPGained         int             `json:"xpGained"`
	AlreadyCompleted bool            `json:"alreadyCompleted"`
	UserLevelUps     int             `json:"-"`
}

type CreateRequest struct {
	Title       string
	Description string
	Icon        string
}

type UpdateRequest struct {
	QuestID     snowflake.ID
	Title       *string
	Description *string
	Icon        *string
}

type Service interface {
	// DailyStatus joins the catalog against the user's completions for
	// the server's current calendar day.
	DailyStatus(ctx context.Context, userID snowflake.ID) ([]QuestStatus, error)
	// Complete grants the fixed quest XP once per (user, quest, day).
	// Replays return the current state with AlreadyCompleted set.
	Complete(ctx context.Context, userID, questID snowflake.ID) (CompletionResult, error)

	// Catalog administration.
	ListCatalog(ctx context.Context) ([]DailyQuest, error)
	CreateQuest(ctx context.Context, req CreateRequest) (DailyQuest, error)
	UpdateQuest(ctx context.Context, req UpdateRequest) (DailyQuest, error)
	DeleteQuest(ctx context.Context, questID snowflake.ID) error
}

var (
	ErrNotFound     = errors.New("quest_not_found")
	ErrInvalidTitle = errors.New("invalid_title")
	ErrUserNotFound = errors.New("user_not_found")
)
