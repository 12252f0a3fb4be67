package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/chest/domain"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	userrepo "github.com/habitforge/habitforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	conn  *gorm.DB
	svc   domain.Service
	users userdomain.Repository
}

func setup(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	sqlDB, err := conn.DB()
	if err != nil {
		t.Fatalf("db handle: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	if err := conn.AutoMigrate(&userdomain.User{}, &domain.ChestState{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatalf("snowflake: %v", err)
	}
	users := userrepo.Provide()
	svc := New(Params{
		DB:       conn,
		Log:      zap.NewNop(),
		GenID:    node,
		UserRepo: users,
	})
	return &fixture{conn: conn, svc: svc, users: users}
}

func (f *fixture) seedUser(t *testing.T) *userdomain.User {
	t.Helper()
	user := &userdomain.User{
		ID:            snowflake.ID(1001),
		Username:      "mira",
		Email:         "mira@example.com",
		PasswordHash:  "x",
		Level:         userdomain.DefaultLevel,
		XPToNextLevel: userdomain.DefaultXPToNextLevel,
		AvatarID:      userdomain.DefaultAvatarID,
		Role:          userdomain.RoleUser,
	}
	if err := f.users.Insert(context.Background(), f.conn, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *fixture) fill(t *testing.T, userID snowflake.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		if err := f.svc.AddProgress(context.Background(), userID); err != nil {
			t.Fatalf("progress %d: %v", i+1, err)
		}
	}
}

func TestProgressCapsAtGoal(t *testing.T) {
	f := setup(t)
	user := f.seedUser(t)

	f.fill(t, user.ID, domain.Goal+3)
	state, err := f.svc.State(context.Background(), user.ID)
	if err != nil {
		t.Fatalf("state: %v", err)
	}
	if state.Progress != domain.Goal {
		t.Fatalf("progress = %d, want cap at %d", state.Progress, domain.Goal)
	}
}

func TestOpenRequiresFullChest(t *testing.T) {
	f := setup(t)
	user := f.seedUser(t)

	f.fill(t, user.ID, domain.Goal-1)
	if _, err := f.svc.Open(context.Background(), user.ID); !errors.Is(err, domain.ErrChestNotFull) {
		t.Fatalf("partial open: got %v, want ErrChestNotFull", err)
	}
}

func TestOpenGrantsRewardOnce(t *testing.T) {
	f := setup(t)
	user := f.seedUser(t)
	ctx := context.Background()

	f.fill(t, user.ID, domain.Goal)
	res, err := f.svc.Open(ctx, user.ID)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if res.RewardXP != domain.RewardXP {
		t.Fatalf("reward = %d, want %d", res.RewardXP, domain.RewardXP)
	}
	// 100 XP meets the level-1 threshold exactly.
	if res.User.Level != 2 || res.User.XP != 0 || res.User.XPToNextLevel != 150 {
		t.Fatalf("leveling: level=%d xp=%d next=%d", res.User.Level, res.User.XP, res.User.XPToNextLevel)
	}
	if res.Chest.Progress != 0 || res.Chest.OpenedCount != 1 {
		t.Fatalf("chest after open: %+v", res.Chest)
	}

	// Opening again against the reset chest fails.
	if _, err := f.svc.Open(ctx, user.ID); !errors.Is(err, domain.ErrChestNotFull) {
		t.Fatalf("double open: got %v, want ErrChestNotFull", err)
	}
	got, err := f.users.FindByID(ctx, f.conn, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if got.TotalXP != domain.RewardXP {
		t.Fatalf("totalXp = %d, want one reward", got.TotalXP)
	}
}

func TestChestRefillsAfterOpen(t *testing.T) {
	f := setup(t)
	user := f.seedUser(t)
	ctx := context.Background()

	f.fill(t, user.ID, domain.Goal)
	if _, err := f.svc.Open(ctx, user.ID); err != nil {
		t.Fatalf("open: %v", err)
	}
	f.fill(t, user.ID, domain.Goal)
	res, err := f.svc.Open(ctx, user.ID)
	if err != nil {
		t.Fatalf("second open: %v", err)
	}
	if res.Chest.OpenedCount != 2 {
		t.Fatalf("openedCount = %d, want 2", res.Chest.OpenedCount)
	}
}
