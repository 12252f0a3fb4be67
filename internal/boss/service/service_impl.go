package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	achievementdomain "github.com/habitforge/habitforge/internal/achievement/domain"
	"github.com/habitforge/habitforge/internal/boss/domain"
	"github.com/habitforge/habitforge/internal/observability/metrics"
	"github.com/habitforge/habitforge/internal/progression"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"github.com/habitforge/habitforge/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Params struct {
	fx.In

	DB           *gorm.DB
	Log          *zap.Logger
	GenID        *snowflake.Node
	UserRepo     userdomain.Repository
	Achievements achievementdomain.Service `optional:"true"`
	Metrics      *metrics.Metrics          `optional:"true"`
}

type Service struct {
	db           *gorm.DB
	log          *zap.Logger
	genID        *snowflake.Node
	userRepo     userdomain.Repository
	achievements achievementdomain.Service
	metrics      *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("boss.service"),
		genID:        p.GenID,
		userRepo:     p.UserRepo,
		achievements: p.Achievements,
		metrics:      p.Metrics,
	}
}

func (s *Service) State(ctx context.Context, userID snowflake.ID) (domain.BossState, error) {
	var state domain.BossState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		boss, err := s.findOrCreate(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		state = *boss
		return nil
	})
	return state, err
}

func (s *Service) ApplyDamage(ctx context.Context, userID snowflake.ID, damage int) error {
	if damage < 0 {
		damage = 0
	}
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		boss, err := s.findOrCreate(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		boss.HP -= damage
		if boss.HP < 0 {
			boss.HP = 0
		}
		boss.UpdatedAt = time.Now().UTC()
		return tx.Save(boss).Error
	})
}

// ClaimDefeat honors a defeat only against the stored HP, so a client
// cannot claim a reward it has not earned. The reward is granted once:
// the same transaction advances the ladder to a fresh boss at full HP.
func (s *Service) ClaimDefeat(ctx context.Context, userID snowflake.ID) (domain.DefeatResult, error) {
	var result domain.DefeatResult
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		boss, err := s.findOrCreate(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if boss.HP > 0 {
			return domain.ErrBossNotDefeated
		}

		defeated := boss.Name
		stage, ok := domain.StageByName(defeated)
		if !ok {
			// Unknown persisted name: fall back to the level ladder.
			stage = domain.StageForLevel(user.Level)
			defeated = stage.Name
		}

		state, _ := progression.Award(userdomain.StateOf(user), stage.RewardXP)
		userdomain.ApplyState(user, state)
		if err := s.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}

		next := domain.StageForLevel(user.Level)
		boss.Name = next.Name
		boss.HP = domain.MaxHP
		boss.MaxHP = domain.MaxHP
		boss.DefeatedCount++
		boss.UpdatedAt = time.Now().UTC()
		if err := tx.Save(boss).Error; err != nil {
			return err
		}

		result = domain.DefeatResult{
			User:     *user,
			Boss:     *boss,
			Defeated: defeated,
			RewardXP: stage.RewardXP,
		}
		return nil
	})
	if txErr != nil {
		return domain.DefeatResult{}, txErr
	}

	s.metrics.RecordBossDefeat()
	if s.achievements != nil {
		if _, err := s.achievements.Evaluate(ctx, userID, achievementdomain.Event{BossDefeated: result.Defeated}); err != nil {
			s.log.Warn("achievement evaluation failed", zap.String("user_id", userID.String()), zap.Error(err))
		}
	}
	return result, nil
}

// findOrCreate resolves the user's battle row, engaging the stage for
// the user's current level on first contact. Concurrent first contacts
// collapse onto one row through the user_id unique index.
func (s *Service) findOrCreate(ctx context.Context, tx *gorm.DB, userID snowflake.ID, forUpdate bool) (*domain.BossState, error) {
	boss, err := s.find(ctx, tx, userID, forUpdate)
	if err != nil {
		return nil, err
	}
	if boss != nil {
		return boss, nil
	}

	user, err := s.userRepo.FindByID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	stage := domain.StageForLevel(user.Level)
	fresh := &domain.BossState{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Name:      stage.Name,
		HP:        domain.MaxHP,
		MaxHP:     domain.MaxHP,
		UpdatedAt: time.Now().UTC(),
	}
	err = tx.WithContext(ctx).Create(fresh).Error
	if db.IsDuplicateKeyErr(err) {
		return s.find(ctx, tx, userID, forUpdate)
	}
	if err != nil {
		return nil, err
	}
	return fresh, nil
}

func (s *Service) find(ctx context.Context, tx *gorm.DB, userID snowflake.ID, forUpdate bool) (*domain.BossState, error) {
	stmt := tx.WithContext(ctx)
	if forUpdate && db.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var boss domain.BossState
	err := stmt.Where("user_id = ?", userID).Take(&boss).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &boss, nil
}
