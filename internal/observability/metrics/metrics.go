// Package metrics exposes prometheus instruments for the progression engine
// and the HTTP layer.
package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics exposes application-level instruments.
type Metrics struct {
	registry *prometheus.Registry

	httpRequests *prometheus.CounterVec
	httpDuration *prometheus.HistogramVec

	habitCompletions    prometheus.Counter
	questCompletions    prometheus.Counter
	missionsCompleted   prometheus.Counter
	xpGranted           prometheus.Counter
	userLevelUps        prometheus.Counter
	achievementUnlocks  prometheus.Counter
	completionConflicts prometheus.Counter
	bossDefeats         prometheus.Counter
}

func New() *Metrics {
	registry := prometheus.NewRegistry()
	m := &Metrics{
		registry: registry,
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "habitforge_http_requests_total",
			Help: "HTTP requests by route, method and status.",
		}, []string{"route", "method", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "habitforge_http_request_duration_seconds",
			Help:    "HTTP request latency by route.",
			Buckets: prometheus.DefBuckets,
		}, []string{"route"}),
		habitCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_habit_completions_total",
			Help: "Successful habit completions.",
		}),
		questCompletions: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_quest_completions_total",
			Help: "Daily quest completions that granted XP.",
		}),
		missionsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_missions_completed_total",
			Help: "Habits whose duration target was reached.",
		}),
		xpGranted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_xp_granted_total",
			Help: "Total XP credited to users.",
		}),
		userLevelUps: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_user_level_ups_total",
			Help: "User level-up events.",
		}),
		achievementUnlocks: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_achievement_unlocks_total",
			Help: "Newly unlocked achievements.",
		}),
		completionConflicts: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_completion_conflicts_total",
			Help: "Completion attempts rejected as already completed.",
		}),
		bossDefeats: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "habitforge_boss_defeats_total",
			Help: "Boss defeats claimed.",
		}),
	}

	registry.MustRegister(
		m.httpRequests,
		m.httpDuration,
		m.habitCompletions,
		m.questCompletions,
		m.missionsCompleted,
		m.xpGranted,
		m.userLevelUps,
		m.achievementUnlocks,
		m.completionConflicts,
		m.bossDefeats,
	)
	return m
}

// Registry returns the registry backing the /metrics endpoint.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

func (m *Metrics) RecordHabitCompletion(missionCompleted bool, xpGranted int, levelUps int) {
	if m == nil {
		return
	}
	m.habitCompletions.Inc()
	if missionCompleted {
		m.missionsCompleted.Inc()
	}
	m.xpGranted.Add(float64(xpGranted))
	m.userLevelUps.Add(float64(levelUps))
}

func (m *Metrics) RecordQuestCompletion(xpGranted int, levelUps int) {
	if m == nil {
		return
	}
	m.questCompletions.Inc()
	m.xpGranted.Add(float64(xpGranted))
	m.userLevelUps.Add(float64(levelUps))
}

func (m *Metrics) RecordXPGrant(xpGranted int, levelUps int) {
	if m == nil {
		return
	}
	m.xpGranted.Add(float64(xpGranted))
	m.userLevelUps.Add(float64(levelUps))
}

func (m *Metrics) RecordCompletionConflict() {
	if m == nil {
		return
	}
	m.completionConflicts.Inc()
}

func (m *Metrics) RecordAchievementUnlocks(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.achievementUnlocks.Add(float64(n))
}

func (m *Metrics) RecordBossDefeat() {
	if m == nil {
		return
	}
	m.bossDefeats.Inc()
}

// GinMiddleware records request counts and latency per route.
func GinMiddleware(m *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}
		m.httpRequests.WithLabelValues(route, c.Request.Method, strconv.Itoa(c.Writer.Status())).Inc()
		m.httpDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	}
}
