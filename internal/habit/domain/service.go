package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	userdomain "github.com/habitforge/habitforge/internal/user/domain"
)

type CreateRequest struct {
	OwnerID      snowflake.ID
	Name         string
	Description  string
	Category     string
	DurationDays int
}

// EditRequest updates mission metadata. XP, level and completion state
// are never editable.
type EditRequest struct {
	OwnerID      snowflake.ID
	HabitID      snowflake.ID
	Name         *string
	Description  *string
	Category     *string
	DurationDays *int
}

type CompleteRequest struct {
	OwnerID snowflake.ID
	HabitID snowflake.ID
	// Date is the calendar day being completed, ISO "2006-01-02".
	// Full RFC 3339 timestamps are accepted and truncated.
	Date string
}

// CompletionResult is returned to the client after a committed
// completion.
type CompletionResult struct {
	User             userdomain.User `json:"user"`
	Habit            Habit           `json:"habit"`
	MissionCompleted bool            `json:"missionCompleted"`
	XPGained         int             `json:"xpGained"`
	BonusXP          int             `json:"bonusXp"`
	UserLevelUps     int             `json:"-"`
}

type Service interface {
	List(ctx context.Context, ownerID snowflake.ID) ([]Habit, error)
	Create(ctx context.Context, req CreateRequest) (Habit, error)
	Edit(ctx context.Context, req EditRequest) (Habit, error)
	Delete(ctx context.Context, ownerID, habitID snowflake.ID) error
	Complete(ctx context.Context, req CompleteRequest) (CompletionResult, error)
}

var (
	ErrInvalidName     = errors.New("invalid_name")
	ErrInvalidDuration = errors.New("invalid_duration")
	ErrInvalidDate     = errors.New("invalid_date")
	// ErrNotFound is returned both for missing habits and habits owned
	// by someone else, so non-owners cannot probe for existence.
	ErrNotFound = errors.New("habit_not_found")
	// ErrAlreadyCompleted is the idempotence conflict: the (habit, date)
	// pair already granted XP.
	ErrAlreadyCompleted = errors.New("already_completed")
)
