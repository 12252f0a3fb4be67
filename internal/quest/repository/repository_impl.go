package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/quest/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) ListQuests(ctx context.Context, conn *gorm.DB) ([]domain.DailyQuest, error) {
	var quests []domain.DailyQuest
	err := conn.WithContext(ctx).
		Order("created_at asc, id asc").
		Find(&quests).Error
	if err != nil {
		return nil, err
	}
	return quests, nil
}

func (r *repo) FindQuest(ctx context.Context, conn *gorm.DB, questID snowflake.ID) (*domain.DailyQuest, error) {
	var quest domain.DailyQuest
	err := conn.WithContext(ctx).Where("id = ?", questID).Take(&quest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &quest, nil
}

func (r *repo) InsertQuest(ctx context.Context, conn *gorm.DB, quest *domain.DailyQuest) error {
	return conn.WithContext(ctx).Create(quest).Error
}

func (r *repo) UpdateQuest(ctx context.Context, conn *gorm.DB, quest *domain.DailyQuest) error {
	quest.UpdatedAt = time.Now().UTC()
	return conn.WithContext(ctx).Save(quest).Error
}

// DeleteQuest removes the quest and its completion records in one
// transaction; a partial cascade would orphan or strand either side.
func (r *repo) DeleteQuest(ctx context.Context, conn *gorm.DB, quest *domain.DailyQuest) error {
	return conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.
			Where("quest_id = ?", quest.ID).
			Delete(&domain.QuestCompletion{}).Error; err != nil {
			return err
		}
		return tx.Delete(quest).Error
	})
}

func (r *repo) InsertCompletion(ctx context.Context, conn *gorm.DB, completion *domain.QuestCompletion) error {
	return conn.WithContext(ctx).Create(completion).Error
}

func (r *repo) FindCompletion(ctx context.Context, conn *gorm.DB, userID, questID snowflake.ID, date string) (*domain.QuestCompletion, error) {
	var completion domain.QuestCompletion
	err := conn.WithContext(ctx).
		Where("user_id = ? AND quest_id = ? AND date = ?", userID, questID, date).
		Take(&completion).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &completion, nil
}

func (r *repo) ListCompletedQuestIDs(ctx context.Context, conn *gorm.DB, userID snowflake.ID, date string) ([]snowflake.ID, error) {
	var ids []snowflake.ID
	err := conn.WithContext(ctx).
		Model(&domain.QuestCompletion{}).
		Where("user_id = ? AND date = ?", userID, date).
		Pluck("quest_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
