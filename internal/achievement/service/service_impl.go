package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/achievement/domain"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
	"github.com/habitforge/habitforge/internal/observability/metrics"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	UserRepo  userdomain.Repository
	HabitRepo habitdomain.Repository
	Metrics   *metrics.Metrics `optional:"true"`
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	userRepo  userdomain.Repository
	habitRepo habitdomain.Repository
	metrics   *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("achievement.service"),
		userRepo:  p.UserRepo,
		habitRepo: p.HabitRepo,
		metrics:   p.Metrics,
	}
}

func (s *Service) Catalog(ctx context.Context) ([]domain.Achievement, error) {
	var defs []domain.Achievement
	err := s.db.WithContext(ctx).Order("id asc").Find(&defs).Error
	if err != nil {
		return nil, err
	}
	return defs, nil
}

func (s *Service) Evaluate(ctx context.Context, userID snowflake.ID, ev domain.Event) ([]domain.Achievement, error) {
	defs, err := s.Catalog(ctx)
	if err != nil {
		return nil, err
	}

	var unlocked []domain.Achievement
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		habitCount, err := s.habitRepo.CountByOwner(ctx, tx, userID)
		if err != nil {
			return err
		}
		maxCompleted, err := s.habitRepo.MaxCompletedCount(ctx, tx, userID)
		if err != nil {
			return err
		}

		facts := unlockFacts{
			habitCount:      habitCount,
			maxCompleted:    maxCompleted,
			userLevel:       user.Level,
			firstCompletion: ev.FirstCompletion,
			bossDefeated:    ev.BossDefeated,
		}

		for _, def := range defs {
			if user.HasAchievement(def.ID) {
				continue
			}
			if !conditionMet(def, facts) {
				continue
			}
			user.UnlockedAchievementIDs = append(user.UnlockedAchievementIDs, def.ID)
			unlocked = append(unlocked, def)
		}

		if len(unlocked) == 0 {
			return nil
		}
		return s.userRepo.Update(ctx, tx, user)
	})
	if err != nil {
		return nil, err
	}

	if len(unlocked) > 0 {
		s.metrics.RecordAchievementUnlocks(len(unlocked))
		for _, def := range unlocked {
			s.log.Info("achievement unlocked",
				zap.String("user_id", userID.String()),
				zap.Int64("achievement_id", def.ID),
				zap.String("name", def.Name),
			)
		}
	}
	return unlocked, nil
}

func (s *Service) Unlock(ctx context.Context, userID snowflake.ID, achievementID int64) ([]int64, error) {
	var exists int64
	if err := s.db.WithContext(ctx).
		Model(&domain.Achievement{}).
		Where("id = ?", achievementID).
		Count(&exists).Error; err != nil {
		return nil, err
	}
	if exists == 0 {
		return nil, domain.ErrNotFound
	}

	var ids []int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		if !user.HasAchievement(achievementID) {
			user.UnlockedAchievementIDs = append(user.UnlockedAchievementIDs, achievementID)
			if err := s.userRepo.Update(ctx, tx, user); err != nil {
				return err
			}
			s.metrics.RecordAchievementUnlocks(1)
		}
		ids = user.UnlockedAchievementIDs
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ids, nil
}

type unlockFacts struct {
	habitCount      int64
	maxCompleted    int
	userLevel       int
	firstCompletion bool
	bossDefeated    string
}

func conditionMet(def domain.Achievement, facts unlockFacts) bool {
	switch def.Kind {
	case domain.KindHabitsCreated:
		return facts.habitCount >= int64(def.Threshold)
	case domain.KindCompletedCount:
		if def.Threshold <= 1 {
			// The first-completion event is delivered best effort; the
			// state check backs it up so a missed event still unlocks
			// on a later evaluation. Membership keeps it single-fire.
			return facts.firstCompletion || facts.maxCompleted >= 1
		}
		return facts.maxCompleted >= def.Threshold
	case domain.KindLevelReached:
		return facts.userLevel >= def.Threshold
	case domain.KindBossDefeated:
		return facts.bossDefeated != "" && facts.bossDefeated == def.BossName
	default:
		return false
	}
}
