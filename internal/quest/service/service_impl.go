package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	bossdomain "github.com/habitforge/habitforge/internal/boss/domain"
	"github.com/habitforge/habitforge/internal/clock"
	"github.com/habitforge/habitforge/internal/observability/metrics"
	"github.com/habitforge/habitforge/internal/progression"
	"github.com/habitforge/habitforge/internal/quest/domain"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"github.com/habitforge/habitforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	UserRepo userdomain.Repository
	Boss     bossdomain.Service `optional:"true"`
	Metrics  *metrics.Metrics   `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	userRepo userdomain.Repository
	boss     bossdomain.Service
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("quest.service"),
		genID:    p.GenID,
		clock:    p.Clock,
		repo:     p.Repo,
		userRepo: p.UserRepo,
		boss:     p.Boss,
		metrics:  p.Metrics,
	}
}

func (s *Service) DailyStatus(ctx context.Context, userID snowflake.ID) ([]domain.QuestStatus, error) {
	// One "today" for the whole request keeps the board consistent
	// across a midnight boundary.
	today := clock.DateOnly(s.clock.Now())

	quests, err := s.repo.ListQuests(ctx, s.db)
	if err != nil {
		return nil, err
	}
	completedIDs, err := s.repo.ListCompletedQuestIDs(ctx, s.db, userID, today)
	if err != nil {
		return nil, err
	}

	completed := make(map[snowflake.ID]bool, len(completedIDs))
	for _, id := range completedIDs {
		completed[id] = true
	}

	statuses := make([]domain.QuestStatus, 0, len(quests))
	for _, q := range quests {
		statuses = append(statuses, domain.QuestStatus{
			Quest:     q,
			Completed: completed[q.ID],
		})
	}
	return statuses, nil
}

// Complete grants the quest XP at most once per (user, quest, day).
// The completion row's unique index backstops the user row lock, so a
// replay or a concurrent duplicate both resolve to AlreadyCompleted.
func (s *Service) Complete(ctx context.Context, userID, questID snowflake.ID) (domain.CompletionResult, error) {
	quest, err := s.repo.FindQuest(ctx, s.db, questID)
	if err != nil {
		return domain.CompletionResult{}, err
	}
	if quest == nil {
		return domain.CompletionResult{}, domain.ErrNotFound
	}

	today := clock.DateOnly(s.clock.Now())

	var result domain.CompletionResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		existing, err := s.repo.FindCompletion(ctx, tx, userID, questID, today)
		if err != nil {
			return err
		}
		if existing != nil {
			result = domain.CompletionResult{User: *user, Quest: *quest, AlreadyCompleted: true}
			return nil
		}

		err = s.repo.InsertCompletion(ctx, tx, &domain.QuestCompletion{
			ID:        s.genID.Generate(),
			UserID:    userID,
			QuestID:   questID,
			Date:      today,
			CreatedAt: time.Now().UTC(),
		})
		if db.IsDuplicateKeyErr(err) {
			result = domain.CompletionResult{User: *user, Quest: *quest, AlreadyCompleted: true}
			return nil
		}
		if err != nil {
			return err
		}

		state, levelUps := progression.ApplyQuestCompletion(userdomain.StateOf(user))
		userdomain.ApplyState(user, state)
		if err := s.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}

		result = domain.CompletionResult{
			User:         *user,
			Quest:        *quest,
			XPGained:     progression.QuestXP,
			UserLevelUps: levelUps,
		}
		return nil
	})
	if txErr != nil {
		return domain.CompletionResult{}, txErr
	}

	if !result.AlreadyCompleted {
		s.metrics.RecordQuestCompletion(result.XPGained, result.UserLevelUps)
		if s.boss != nil {
			if err := s.boss.ApplyDamage(ctx, userID, bossdomain.QuestDamage); err != nil {
				s.log.Warn("boss damage failed", zap.String("user_id", userID.String()), zap.Error(err))
			}
		}
	}
	return result, nil
}

func (s *Service) ListCatalog(ctx context.Context) ([]domain.DailyQuest, error) {
	return s.repo.ListQuests(ctx, s.db)
}

func (s *Service) CreateQuest(ctx context.Context, req domain.CreateRequest) (domain.DailyQuest, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return domain.DailyQuest{}, domain.ErrInvalidTitle
	}
	icon := strings.TrimSpace(req.Icon)
	if icon == "" {
		icon = "Sparkles"
	}

	now := time.Now().UTC()
	quest := domain.DailyQuest{
		ID:          s.genID.Generate(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Icon:        icon,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.InsertQuest(ctx, s.db, &quest); err != nil {
		return domain.DailyQuest{}, err
	}
	return quest, nil
}

func (s *Service) UpdateQuest(ctx context.Context, req domain.UpdateRequest) (domain.DailyQuest, error) {
	if req.Title != nil && strings.TrimSpace(*req.Title) == "" {
		return domain.DailyQuest{}, domain.ErrInvalidTitle
	}

	quest, err := s.repo.FindQuest(ctx, s.db, req.QuestID)
	if err != nil {
		return domain.DailyQuest{}, err
	}
	if quest == nil {
		return domain.DailyQuest{}, domain.ErrNotFound
	}

	if req.Title != nil {
		quest.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		quest.Description = strings.TrimSpace(*req.Description)
	}
	if req.Icon != nil && strings.TrimSpace(*req.Icon) != "" {
		quest.Icon = strings.TrimSpace(*req.Icon)
	}

	if err := s.repo.UpdateQuest(ctx, s.db, quest); err != nil {
		return domain.DailyQuest{}, err
	}
	return *quest, nil
}

func (s *Service) DeleteQuest(ctx context.Context, questID snowflake.ID) error {
	quest, err := s.repo.FindQuest(ctx, s.db, questID)
	if err != nil {
		return err
	}
	if quest == nil {
		return domain.ErrNotFound
	}
	return s.repo.DeleteQuest(ctx, s.db, quest)
}
