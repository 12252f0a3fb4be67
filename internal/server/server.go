package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/habitforge/habitforge/internal/achievement"
	achievementdomain "github.com/habitforge/habitforge/internal/achievement/domain"
	"github.com/habitforge/habitforge/internal/auth"
	authdomain "github.com/habitforge/habitforge/internal/auth/domain"
	"github.com/habitforge/habitforge/internal/boss"
	bossdomain "github.com/habitforge/habitforge/internal/boss/domain"
	"github.com/habitforge/habitforge/internal/chest"
	chestdomain "github.com/habitforge/habitforge/internal/chest/domain"
	"github.com/habitforge/habitforge/internal/clock"
	"github.com/habitforge/habitforge/internal/config"
	"github.com/habitforge/habitforge/internal/habit"
	habitdomain "github.com/habitforge/habitforge/internal/habit/domain"
	"github.com/habitforge/habitforge/internal/migration"
	"github.com/habitforge/habitforge/internal/observability/logger"
	"github.com/habitforge/habitforge/internal/observability/metrics"
	"github.com/habitforge/habitforge/internal/quest"
	questdomain "github.com/habitforge/habitforge/internal/quest/domain"
	"github.com/habitforge/habitforge/internal/ratelimit"
	"github.com/habitforge/habitforge/internal/user"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	clock.Module,
	user.Module,
	auth.Module,
	habit.Module,
	quest.Module,
	achievement.Module,
	boss.Module,
	chest.Module,
	ratelimit.Module,
	migration.Module,
	fx.Provide(NewEngine),
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(cfg config.Config, log *zap.Logger, m *metrics.Metrics) *gin.Engine {
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(logger.GinMiddleware(log))
	r.Use(metrics.GinMiddleware(m))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(m.Registry(), promhttp.HandlerOpts{})))

	return r
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			log.Info("http server starting", zap.String("addr", cfg.HTTPAddr))
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					log.Fatal("http server failed", zap.Error(err))
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine *gin.Engine
	cfg    config.Config
	log    *zap.Logger

	authSvc        authdomain.Service
	habitSvc       habitdomain.Service
	questSvc       questdomain.Service
	achievementSvc achievementdomain.Service
	bossSvc        bossdomain.Service
	chestSvc       chestdomain.Service
	limiter        *ratelimit.CompletionLimiter
}

type ServerParams struct {
	fx.In

	Gin            *gin.Engine
	Cfg            config.Config
	Log            *zap.Logger
	AuthSvc        authdomain.Service
	HabitSvc       habitdomain.Service
	QuestSvc       questdomain.Service
	AchievementSvc achievementdomain.Service
	BossSvc        bossdomain.Service
	ChestSvc       chestdomain.Service
	Limiter        *ratelimit.CompletionLimiter `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	s := &Server{
		engine:         p.Gin,
		cfg:            p.Cfg,
		log:            p.Log.Named("server"),
		authSvc:        p.AuthSvc,
		habitSvc:       p.HabitSvc,
		questSvc:       p.QuestSvc,
		achievementSvc: p.AchievementSvc,
		bossSvc:        p.BossSvc,
		chestSvc:       p.ChestSvc,
		limiter:        p.Limiter,
	}

	s.registerAuthRoutes()
	s.registerAPIRoutes()
	s.registerAdminRoutes()

	return s
}

func (s *Server) registerAuthRoutes() {
	grp := s.engine.Group("/api/auth")
	grp.POST("/register", s.Register)
	grp.POST("/login", s.Login)
	grp.POST("/forgot-password", s.ForgotPassword)
	grp.POST("/reset-password", s.ResetPassword)

	authed := grp.Group("", s.AuthRequired())
	authed.GET("/me", s.Me)
	authed.PATCH("/profile", s.UpdateProfile)
	authed.POST("/change-password", s.ChangePassword)
	authed.POST("/change-email", s.ChangeEmail)
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api", s.AuthRequired())

	api.GET("/habits", s.ListHabits)
	api.POST("/habits", s.CreateHabit)
	api.PATCH("/habits/:id", s.EditHabit)
	api.DELETE("/habits/:id", s.DeleteHabit)
	api.PATCH("/habits/:id/complete", s.CompletionRateLimit(), s.CompleteHabit)

	api.GET("/quests/daily", s.DailyQuests)
	api.PATCH("/quests/:id/complete", s.CompletionRateLimit(), s.CompleteQuest)

	api.GET("/achievements", s.ListAchievements)
	api.POST("/achievements/:id/unlock", s.UnlockAchievement)

	api.GET("/boss", s.BossState)
	api.POST("/boss/defeat", s.ClaimBossDefeat)

	api.GET("/chest", s.ChestState)
	api.POST("/chest/open", s.OpenChest)
}

func (s *Server) registerAdminRoutes() {
	admin := s.engine.Group("/api/admin", s.AuthRequired(), s.AdminRequired())
	admin.GET("/quests", s.AdminListQuests)
	admin.POST("/quests", s.AdminCreateQuest)
	admin.PATCH("/quests/:id", s.AdminUpdateQuest)
	admin.DELETE("/quests/:id", s.AdminDeleteQuest)
}
