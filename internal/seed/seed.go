// Package seed installs the static catalogs a fresh install needs:
// achievement definitions and the daily-quest board.
package seed

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	achievementdomain "github.com/habitforge/habitforge/internal/achievement/domain"
	questdomain "github.com/habitforge/habitforge/internal/quest/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var defaultAchievements = []achievementdomain.Achievement{
	{ID: 1, Name: "Pioneer", Description: "Create your first habit", Icon: "Sprout", Kind: achievementdomain.KindHabitsCreated, Threshold: 1},
	{ID: 2, Name: "Initiate", Description: "Complete a habit for the first time", Icon: "CheckCircle", Kind: achievementdomain.KindCompletedCount, Threshold: 1},
	{ID: 3, Name: "Apprentice", Description: "Reach level 5", Icon: "TrendingUp", Kind: achievementdomain.KindLevelReached, Threshold: 5},
	{ID: 4, Name: "Boss Slayer", Description: "Defeat Procrastination", Icon: "Swords", Kind: achievementdomain.KindBossDefeated, BossName: "Procrastination"},
	{ID: 5, Name: "Collector", Description: "Keep five habits at once", Icon: "Library", Kind: achievementdomain.KindHabitsCreated, Threshold: 5},
}

var defaultQuests = []string{
	"Drink a glass of water",
	"Stretch for five minutes",
	"Write down one thing you are grateful for",
}

// EnsureAchievements upserts the achievement catalog by ID. Existing
// rows are refreshed so definition edits ship with the binary.
func EnsureAchievements(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}
	catalog := make([]achievementdomain.Achievement, len(defaultAchievements))
	copy(catalog, defaultAchievements)

	return db.WithContext(context.Background()).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&catalog).Error
}

// EnsureDailyQuests inserts the default quest board once. Titles act
// as the idempotence key so admin edits survive restarts.
func EnsureDailyQuests(db *gorm.DB) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		return err
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&questdomain.DailyQuest{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}

		now := time.Now().UTC()
		quests := make([]questdomain.DailyQuest, 0, len(defaultQuests))
		for _, title := range defaultQuests {
			quests = append(quests, questdomain.DailyQuest{
				ID:        node.Generate(),
				Title:     title,
				Icon:      "Sparkles",
				CreatedAt: now,
				UpdatedAt: now,
			})
		}
		return tx.Create(&quests).Error
	})
}
