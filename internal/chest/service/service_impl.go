package service

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/chest/domain"
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

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	UserRepo userdomain.Repository
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	userRepo userdomain.Repository
	metrics  *metrics.Metrics
}

func New(p Params) domain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("chest.service"),
		genID:    p.GenID,
		userRepo: p.UserRepo,
		metrics:  p.Metrics,
	}
}

func (s *Service) State(ctx context.Context, userID snowflake.ID) (domain.ChestState, error) {
	var state domain.ChestState
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chest, err := s.findOrCreate(ctx, tx, userID, false)
		if err != nil {
			return err
		}
		state = *chest
		return nil
	})
	return state, err
}

func (s *Service) AddProgress(ctx context.Context, userID snowflake.ID) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		chest, err := s.findOrCreate(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if chest.Progress >= chest.Goal {
			// Full chests hold until opened; overflow is discarded.
			return nil
		}
		chest.Progress++
		chest.UpdatedAt = time.Now().UTC()
		return tx.Save(chest).Error
	})
}

// Open grants the reward once per filled chest: the same transaction
// that pays out also resets progress to zero.
func (s *Service) Open(ctx context.Context, userID snowflake.ID) (domain.OpenResult, error) {
	var (
		result         domain.OpenResult
		openedLevelUps int
	)
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		user, err := s.userRepo.FindByIDForUpdate(ctx, tx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return domain.ErrUserNotFound
		}

		chest, err := s.findOrCreate(ctx, tx, userID, true)
		if err != nil {
			return err
		}
		if chest.Progress < chest.Goal {
			return domain.ErrChestNotFull
		}

		state, levelUps := progression.Award(userdomain.StateOf(user), domain.RewardXP)
		userdomain.ApplyState(user, state)
		if err := s.userRepo.Update(ctx, tx, user); err != nil {
			return err
		}

		chest.Progress = 0
		chest.OpenedCount++
		chest.UpdatedAt = time.Now().UTC()
		if err := tx.Save(chest).Error; err != nil {
			return err
		}

		result = domain.OpenResult{User: *user, Chest: *chest, RewardXP: domain.RewardXP}
		openedLevelUps = levelUps
		return nil
	})
	if txErr != nil {
		return domain.OpenResult{}, txErr
	}

	s.metrics.RecordXPGrant(domain.RewardXP, openedLevelUps)
	return result, nil
}

func (s *Service) findOrCreate(ctx context.Context, tx *gorm.DB, userID snowflake.ID, forUpdate bool) (*domain.ChestState, error) {
	chest, err := s.find(ctx, tx, userID, forUpdate)
	if err != nil {
		return nil, err
	}
	if chest != nil {
		return chest, nil
	}

	user, err := s.userRepo.FindByID(ctx, tx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.ErrUserNotFound
	}

	fresh := &domain.ChestState{
		ID:        s.genID.Generate(),
		UserID:    userID,
		Goal:      domain.Goal,
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

func (s *Service) find(ctx context.Context, tx *gorm.DB, userID snowflake.ID, forUpdate bool) (*domain.ChestState, error) {
	stmt := tx.WithContext(ctx)
	if forUpdate && db.SupportsRowLocking(tx) {
		stmt = stmt.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var chest domain.ChestState
	err := stmt.Where("user_id = ?", userID).Take(&chest).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &chest, nil
}
