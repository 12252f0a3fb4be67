package migration

import (
	achievementdomain "github.com/habitforge/habitforge/internal/achievement/domain"
	bossdomain "github.com/habitforge/habitforge/internal/boss/domain"
	chestdomain "github.com/habitforge/habitforge/internal/chest/domain"
	"github.com/habitforge/habitforge/internal/config"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
	questdomain "github.com/habitforge/habitforge/internal/quest/domain"
	"github.com/habitforge/habitforge/internal/seed"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

var Module = fx.Module("migrations",
	fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
		if cfg.DBType == "postgres" {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			if err := RunMigrations(sqlDB); err != nil {
				return err
			}
		} else {
			// mysql and sqlite installs lean on the ORM's migrator.
			if err := conn.AutoMigrate(
				&userdomain.User{},
				&habitdomain.Habit{},
				&habitdomain.HabitLog{},
				&questdomain.DailyQuest{},
				&questdomain.QuestCompletion{},
				&achievementdomain.Achievement{},
				&bossdomain.BossState{},
				&chestdomain.ChestState{},
			); err != nil {
				return err
			}
		}

		if !cfg.SeedCatalogs {
			return nil
		}
		if err := seed.EnsureAchievements(conn); err != nil {
			return err
		}
		return seed.EnsureDailyQuests(conn)
	}),
)
