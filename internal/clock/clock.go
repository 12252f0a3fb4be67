// Package clock provides the server-authoritative time source.
//
// "Today" for habit logs and daily quests is always the UTC calendar
// date of this clock, so read and write paths agree across a day
// boundary.
package clock

import (
	"time"

	"go.uber.org/fx"
)

type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func NewSystemClock() Clock { return systemClock{} }

// DateOnly truncates t to its UTC calendar date in ISO format.
func DateOnly(t time.Time) string {
	return t.UTC().Format(time.DateOnly)
}

var Module = fx.Module("clock",
	fx.Provide(NewSystemClock),
)
