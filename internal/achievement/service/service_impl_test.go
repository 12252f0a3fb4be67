package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/achievement/domain"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
	habitrepo "github.com/habitforge/habitforge/internal/habit/repository"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	userrepo "github.com/habitforge/habitforge/internal/user/repository"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type fixture struct {
	conn   *gorm.DB
	svc    domain.Service
	users  userdomain.Repository
	habits habitdomain.Repository
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

	if err := conn.AutoMigrate(
		&userdomain.User{},
		&habitdomain.Habit{},
		&habitdomain.HabitLog{},
		&domain.Achievement{},
	); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	users := userrepo.Provide()
	habits := habitrepo.Provide()
	svc := New(Params{
		DB:        conn,
		Log:       zap.NewNop(),
		UserRepo:  users,
		HabitRepo: habits,
	})
	return &fixture{conn: conn, svc: svc, users: users, habits: habits}
}

func (f *fixture) seedCatalog(t *testing.T) {
	t.Helper()
	catalog := []domain.Achievement{
		{ID: 1, Name: "Pioneer", Description: "Create your first habit", Kind: domain.KindHabitsCreated, Threshold: 1},
		{ID: 2, Name: "Initiate", Description: "Complete a habit for the first time", Kind: domain.KindCompletedCount, Threshold: 1},
		{ID: 3, Name: "Apprentice", Description: "Reach level 5", Kind: domain.KindLevelReached, Threshold: 5},
		{ID: 4, Name: "Boss Slayer", Description: "Defeat Procrastination", Kind: domain.KindBossDefeated, BossName: "Procrastination"},
		{ID: 5, Name: "Collector", Description: "Keep five habits at once", Kind: domain.KindHabitsCreated, Threshold: 5},
	}
	if err := f.conn.Create(&catalog).Error; err != nil {
		t.Fatalf("seed catalog: %v", err)
	}
}

func (f *fixture) seedUser(t *testing.T, level int) *userdomain.User {
	t.Helper()
	user := &userdomain.User{
		ID:            snowflake.ID(1001),
		Username:      "mira",
		Email:         "mira@example.com",
		PasswordHash:  "x",
		Level:         level,
		XPToNextLevel: userdomain.DefaultXPToNextLevel,
		AvatarID:      userdomain.DefaultAvatarID,
		Role:          userdomain.RoleUser,
	}
	if err := f.users.Insert(context.Background(), f.conn, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user
}

func (f *fixture) seedHabits(t *testing.T, ownerID snowflake.ID, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		habit := &habitdomain.Habit{
			ID:           snowflake.ID(5000 + i),
			UserID:       ownerID,
			Name:         fmt.Sprintf("habit-%d", i),
			Category:     "general",
			DurationDays: 7,
			Level:        1,
			Status:       habitdomain.StatusActive,
		}
		if err := f.habits.Insert(context.Background(), f.conn, habit); err != nil {
			t.Fatalf("seed habit: %v", err)
		}
	}
}

func unlockedIDs(defs []domain.Achievement) []int64 {
	ids := make([]int64, 0, len(defs))
	for _, d := range defs {
		ids = append(ids, d.ID)
	}
	return ids
}

func TestEvaluateStateConditions(t *testing.T) {
	f := setup(t)
	f.seedCatalog(t)
	user := f.seedUser(t, 5)
	f.seedHabits(t, user.ID, 5)
	ctx := context.Background()

	unlocked, err := f.svc.Evaluate(ctx, user.ID, domain.Event{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	// Habit count covers 1 and 5, level covers 5. No completion or
	// boss facts, so 2 and 4 stay locked.
	got := unlockedIDs(unlocked)
	want := map[int64]bool{1: true, 3: true, 5: true}
	if len(got) != len(want) {
		t.Fatalf("unlocked %v", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("unexpected unlock %d in %v", id, got)
		}
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	f := setup(t)
	f.seedCatalog(t)
	user := f.seedUser(t, 1)
	f.seedHabits(t, user.ID, 1)
	ctx := context.Background()

	first, err := f.svc.Evaluate(ctx, user.ID, domain.Event{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if len(first) != 1 || first[0].ID != 1 {
		t.Fatalf("first pass unlocked %v", unlockedIDs(first))
	}

	second, err := f.svc.Evaluate(ctx, user.ID, domain.Event{})
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if len(second) != 0 {
		t.Fatalf("re-evaluation unlocked %v again", unlockedIDs(second))
	}

	got, err := f.users.FindByID(ctx, f.conn, user.ID)
	if err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if len(got.UnlockedAchievementIDs) != 1 {
		t.Fatalf("stored set %v, want one entry", got.UnlockedAchievementIDs)
	}
}

func TestEvaluateEdgeTriggeredEvents(t *testing.T) {
	f := setup(t)
	f.seedCatalog(t)
	user := f.seedUser(t, 1)
	ctx := context.Background()

	unlocked, err := f.svc.Evaluate(ctx, user.ID, domain.Event{FirstCompletion: true})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	if got := unlockedIDs(unlocked); len(got) != 1 || got[0] != 2 {
		t.Fatalf("first completion unlocked %v, want [2]", got)
	}

	unlocked, err = f.svc.Evaluate(ctx, user.ID, domain.Event{BossDefeated: "Procrastination"})
	if err != nil {
		t.Fatalf("evaluate boss: %v", err)
	}
	if got := unlockedIDs(unlocked); len(got) != 1 || got[0] != 4 {
		t.Fatalf("boss defeat unlocked %v, want [4]", got)
	}

	// A different boss leaves the catalog untouched.
	unlocked, err = f.svc.Evaluate(ctx, user.ID, domain.Event{BossDefeated: "Sloth"})
	if err != nil {
		t.Fatalf("evaluate other boss: %v", err)
	}
	if len(unlocked) != 0 {
		t.Fatalf("sloth defeat unlocked %v", unlockedIDs(unlocked))
	}
}

func TestUnlockExplicit(t *testing.T) {
	f := setup(t)
	f.seedCatalog(t)
	user := f.seedUser(t, 1)
	ctx := context.Background()

	ids, err := f.svc.Unlock(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if len(ids) != 1 || ids[0] != 3 {
		t.Fatalf("set = %v, want [3]", ids)
	}

	// Re-unlock returns the same set without duplicating.
	ids, err = f.svc.Unlock(ctx, user.ID, 3)
	if err != nil {
		t.Fatalf("re-unlock: %v", err)
	}
	if len(ids) != 1 {
		t.Fatalf("set after replay = %v", ids)
	}

	if _, err := f.svc.Unlock(ctx, user.ID, 404); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("unknown id: got %v, want ErrNotFound", err)
	}
}

// A first-completion event that never reached the evaluator (it is
// delivered best effort after commit) must not strand the unlock: the
// stored completion count backs the edge trigger up.
func TestEvaluateRecoversMissedFirstCompletion(t *testing.T) {
	f := setup(t)
	f.seedCatalog(t)
	user := f.seedUser(t, 1)
	ctx := context.Background()

	habit := &habitdomain.Habit{
		ID:             snowflake.ID(5000),
		UserID:         user.ID,
		Name:           "read",
		Category:       "general",
		DurationDays:   7,
		Level:          1,
		CompletedCount: 1,
		Status:         habitdomain.StatusActive,
	}
	if err := f.habits.Insert(ctx, f.conn, habit); err != nil {
		t.Fatalf("seed habit: %v", err)
	}

	unlocked, err := f.svc.Evaluate(ctx, user.ID, domain.Event{})
	if err != nil {
		t.Fatalf("evaluate: %v", err)
	}
	got := unlockedIDs(unlocked)
	want := map[int64]bool{1: true, 2: true}
	if len(got) != len(want) {
		t.Fatalf("unlocked %v, want habit-created and first-completion", got)
	}
	for _, id := range got {
		if !want[id] {
			t.Fatalf("unexpected unlock %d in %v", id, got)
		}
	}

	// The recovered unlock stays single-fire.
	again, err := f.svc.Evaluate(ctx, user.ID, domain.Event{FirstCompletion: true})
	if err != nil {
		t.Fatalf("re-evaluate: %v", err)
	}
	if len(again) != 0 {
		t.Fatalf("re-evaluation unlocked %v again", unlockedIDs(again))
	}
}
