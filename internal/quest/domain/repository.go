package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	ListQuests(ctx context.Context, db *gorm.DB) ([]DailyQuest, error)
	FindQuest(ctx context.Context, db *gorm.DB, questID snowflake.ID) (*DailyQuest, error)
	InsertQuest(ctx context.Context, db *gorm.DB, quest *DailyQuest) error
	UpdateQuest(ctx context.Context, db *gorm.DB, quest *DailyQuest) error
	// DeleteQuest removes the quest and its completion records.
	DeleteQuest(ctx context.Context, db *gorm.DB, quest *DailyQuest) error

	InsertCompletion(ctx context.Context, db *gorm.DB, completion *QuestCompletion) error
	FindCompletion(ctx context.Context, db *gorm.DB, userID, questID snowflake.ID, date string) (*QuestCompletion, error)
	// ListCompletedQuestIDs returns the quest IDs the user completed on
	// the given day.
	ListCompletedQuestIDs(ctx context.Context, db *gorm.DB, userID snowflake.ID, date string) ([]snowflake.ID, error)
}
