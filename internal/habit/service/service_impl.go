package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	achievementdomain "github.com/habitforge/habitforge/internal/achievement/domain"
	bossdomain "github.com/habitforge/habitforge/internal/boss/domain"
	chestdomain "github.com/habitforge/habitforge/internal/chest/domain"
	"github.com/habitforge/habitforge/internal/habit/domain"
	"github.com/habitforge/habitforge/internal/observability/metrics"
	"github.com/habitforge/habitforge/internal/progression"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"github.com/habitforge/habitforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	Repo         domain.Repository
	UserRepo     userdomain.Repository
	Achievements achievementdomain.Service
	Boss         bossdomain.Service   `optional:"true"`
	Chest        chestdomain.Service  `optional:"true"`
	Metrics      *metrics.Metrics     `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	repo         domain.Repository
	userRepo     userdomain.Repository
	achievements achievementdomain.Service
	boss         bossdomain.Service
	chest        chestdomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("habit.service"),
		genID:        p.GenID,
		repo:         p.Repo,
		userRepo:     p.UserRepo,
		achievements: p.Achievements,
		boss:         p.Boss,
		chest:        p.Chest,
		metrics:      p.Metrics,
	}
}

func (s *Service) List(ctx context.Context, ownerID snowflake.ID) ([]domain.Habit, error) {
	return s.repo.ListByOwner(ctx, s.db, ownerID)
}

func (s *Service) Create(ctx context.Context, req domain.CreateRequest) (domain.Habit, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return domain.Habit{}, domain.ErrInvalidName
	}
	duration := req.DurationDays
	if duration == 0 {
		duration = 1
	}
	if duration < 1 {
		return domain.Habit{}, domain.ErrInvalidDuration
	}
	category := strings.TrimSpace(req.Category)
	if category == "" {
		category = "general"
	}

	now := time.Now().UTC()
	habit := domain.Habit{
		ID:           s.genID.Generate(),
		UserID:       req.OwnerID,
		Name:         name,
		Description:  strings.TrimSpace(req.Description),
		Category:     category,
		DurationDays: duration,
		Level:        1,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &habit); err != nil {
		return domain.Habit{}, err
	}

	s.evaluateAchievements(ctx, req.OwnerID, achievementdomain.Event{})
	return habit, nil
}

func (s *Service) Edit(ctx context.Context, req domain.EditRequest) (domain.Habit, error) {
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return domain.Habit{}, domain.ErrInvalidName
	}
	if req.DurationDays != nil && *req.DurationDays < 1 {
		return domain.Habit{}, domain.ErrInvalidDuration
	}

	habit, err := s.repo.FindOwned(ctx, s.db, req.OwnerID, req.HabitID)
	if err != nil {
		return domain.Habit{}, err
	}
	if habit == nil {
		return domain.Habit{}, domain.ErrNotFound
	}

	if req.Name != nil {
		habit.Name = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		habit.Description = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil && strings.TrimSpace(*req.Category) != "" {
		habit.Category = strings.TrimSpace(*req.Category)
	}
	if req.DurationDays != nil {
		habit.DurationDays = *req.DurationDays
	}

	if err := s.repo.Update(ctx, s.db, habit); err != nil {
		return domain.Habit{}, err
	}
	return *habit, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, habitID snowflake.ID) error {
	habit, err := s.repo.FindOwned(ctx, s.db, ownerID, habitID)
	if err != nil {
		return err
	}
	if habit == nil {
		return domain.ErrNotFound
	}
	return s.repo.Delete(ctx, s.db, habit)
}

// Complete applies one daily completion atomically across the habit,
// its log and the owning user. Exactly one grant per (habit, date):
// the log row's unique index backstops the row locks.
func (s *Service) Complete(ctx context.Context, req domain.CompleteRequest) (domain.CompletionResult, error) {
	date, err := normalizeDate(req.Date)
	if err != nil {
		return domain.CompletionResult{}, err
	}

	var result domain.CompletionResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// User row first, habit second; all XP flows lock in this order.
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, req.OwnerID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrNotFound
		}

		habit, err := s.repo.FindOwnedForUpdate(ctx, tx, req.OwnerID, req.HabitID)
		if err != nil {
			return err
		}
		if habit == nil {
			return domain.ErrNotFound
		}

		if err := s.markLogCompleted(ctx, tx, habit.ID, date); err != nil {
			return err
		}

		out := progression.ApplyHabitCompletion(
			domain.HabitStateOf(habit),
			userdomain.StateOf(user),
		)

		habit.CompletedCount = out.Habit.CompletedCount
		habit.XP = out.Habit.XP
		habit.Level = out.Habit.Level
		if out.MissionCompleted {
			habit.Status = domain.StatusCompleted
		}
		if err := s.repo.Update(ctx, tx, habit); err != nil {
			return err
		}

		userdomain.ApplyState(user, out.User)
		if err := s.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}

		logs, err := s.repo.ListLogs(ctx, tx, habit.ID)
		if err != nil {
			return err
		}
		habit.Logs = logs

		result = domain.CompletionResult{
			User:             *user,
			Habit:            *habit,
			MissionCompleted: out.MissionCompleted,
			XPGained:         out.XPGained,
			BonusXP:          out.BonusXP,
			UserLevelUps:     out.UserLevelUps,
		}
		return nil
	})
	if txErr != nil {
		if txErr == domain.ErrAlreadyCompleted {
			s.metrics.RecordCompletionConflict()
		}
		return domain.CompletionResult{}, txErr
	}

	s.metrics.RecordHabitCompletion(result.MissionCompleted, result.XPGained+result.BonusXP, result.UserLevelUps)
	s.afterCompletion(ctx, req.OwnerID, result)
	return result, nil
}

// markLogCompleted resolves or creates the day's log and flips it to
// completed, failing with ErrAlreadyCompleted when the day was already
// granted. A concurrent insert loses on the unique index and surfaces
// the same conflict.
func (s *Service) markLogCompleted(ctx context.Context, tx *gorm.DB, habitID snowflake.ID, date string) error {
	log, err := s.repo.FindLog(ctx, tx, habitID, date)
	if err != nil {
		return err
	}
	if log != nil {
		if log.Completed {
			return domain.ErrAlreadyCompleted
		}
		log.Completed = true
		return s.repo.UpdateLog(ctx, tx, log)
	}

	err = s.repo.InsertLog(ctx, tx, &domain.HabitLog{
		ID:        s.genID.Generate(),
		HabitID:   habitID,
		Date:      date,
		Completed: true,
		CreatedAt: time.Now().UTC(),
	})
	if db.IsDuplicateKeyErr(err) {
		return domain.ErrAlreadyCompleted
	}
	return err
}

// afterCompletion drives the downstream overlays. They are
// best-effort: the completion already committed, so failures here are
// logged and never surfaced.
func (s *Service) afterCompletion(ctx context.Context, ownerID snowflake.ID, result domain.CompletionResult) {
	if s.boss != nil {
		if err := s.boss.ApplyDamage(ctx, ownerID, bossdomain.HabitDamage); err != nil {
			s.log.Warn("boss damage failed", zap.String("user_id", ownerID.String()), zap.Error(err))
		}
	}
	if s.chest != nil {
		if err := s.chest.AddProgress(ctx, ownerID); err != nil {
			s.log.Warn("chest progress failed", zap.String("user_id", ownerID.String()), zap.Error(err))
		}
	}
	s.evaluateAchievements(ctx, ownerID, achievementdomain.Event{
		FirstCompletion: result.Habit.CompletedCount == 1,
	})
}

func (s *Service) evaluateAchievements(ctx context.Context, ownerID snowflake.ID, ev achievementdomain.Event) {
	if s.achievements == nil {
		return
	}
	if _, err := s.achievements.Evaluate(ctx, ownerID, ev); err != nil {
		s.log.Warn("achievement evaluation failed", zap.String("user_id", ownerID.String()), zap.Error(err))
	}
}

func normalizeDate(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domain.ErrInvalidDate
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t.Format(time.DateOnly), nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t.UTC().Format(time.DateOnly), nil
	}
	return "", domain.ErrInvalidDate
}
