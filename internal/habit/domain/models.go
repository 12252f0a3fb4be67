// Package domain contains core types for the habit service.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/habitforge/habitforge/internal/progression"
)

type Status string

const (
	// StatusActive means the mission target has not been reached yet.
	StatusActive Status = "active"
	// StatusCompleted is the terminal mission state. Daily completions
	// are still accepted but never grant the mission bonus again.
	StatusCompleted Status = "completed"
)

// Habit is one mission: a habit tracked toward DurationDays daily
// completions. Level, XP and CompletedCount are mutated only by the
// completion transaction.
type Habit struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	UserID      snowflake.ID `gorm:"not null;index" json:"userId"`
	Name        string       `gorm:"type:text;not null" json:"name"`
	Description string       `gorm:"type:text" json:"description,omitempty"`
	Category    string       `gorm:"type:text;not null;default:'general'" json:"category"`

	DurationDays   int    `gorm:"column:duration_days;not null;default:1" json:"durationDays"`
	Level          int    `gorm:"not null;default:1" json:"level"`
	XP             int    `gorm:"column:xp;not null;default:0" json:"xp"`
	CompletedCount int    `gorm:"column:completed_count;not null;default:0" json:"completedCount"`
	Status         Status `gorm:"type:text;not null;default:'active'" json:"status"`

	CreatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
	UpdatedAt time.Time `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updatedAt"`

	Logs []HabitLog `gorm:"foreignKey:HabitID" json:"logs,omitempty"`
}

// TableName sets the database table name.
func (Habit) TableName() string { return "habits" }

// HabitStateOf projects the persisted habit onto the progression
// engine's input.
func HabitStateOf(h *Habit) progression.HabitState {
	return progression.HabitState{
		Level:            h.Level,
		XP:               h.XP,
		CompletedCount:   h.CompletedCount,
		DurationDays:     h.DurationDays,
		MissionCompleted: h.Status == StatusCompleted,
	}
}

// HabitLog marks one calendar day of one habit. The unique index on
// (habit_id, date) is the idempotence boundary for "complete habit for
// day X": once Completed is true the row is immutable.
type HabitLog struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	HabitID   snowflake.ID `gorm:"not null;uniqueIndex:ux_habit_logs_habit_date,priority:1" json:"habitId"`
	Date      string       `gorm:"type:text;not null;uniqueIndex:ux_habit_logs_habit_date,priority:2" json:"date"`
	Completed bool         `gorm:"not null;default:false" json:"completed"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"createdAt"`
}

// TableName sets the database table name.
func (HabitLog) TableName() string { return "habit_logs" }
