// Package progression implements the XP and leveling rules.
//
// Everything here is pure integer arithmetic over value types: no I/O,
// no clock, no randomness. The habit service calls these functions
// inside its transaction and persists the returned states.
package progression

// XP constants. A completion always grants XPPerCompletion to both the
// habit and the user; finishing a mission additionally grants
// BonusXPPerDay for every day of the habit's duration target.
const (
	XPPerCompletion = 10
	BonusXPPerDay   = 15
	QuestXP         = 50

	// Per-habit level threshold is level * HabitLevelStep.
	HabitLevelStep = 50
)

// HabitState is the projection of a habit the engine operates on.
type HabitState struct {
	Level            int
	XP               int
	CompletedCount   int
	DurationDays     int
	MissionCompleted bool
}

// UserState is the projection of a user the engine operates on.
type UserState struct {
	Level         int
	XP            int
	XPToNextLevel int
	TotalXP       int
}

// CompletionOutcome reports the new states plus the signal values the
// caller returns to the client.
type CompletionOutcome struct {
	Habit            HabitState
	User             UserState
	MissionCompleted bool
	XPGained         int
	BonusXP          int
	HabitLevelUps    int
	UserLevelUps     int
}

// ApplyHabitCompletion applies one daily completion to the habit and its
// owner. The caller must already have verified the day was not completed
// and hold exclusive write access to both rows.
//
// MissionCompleted is reported exactly once: on the call where
// CompletedCount first reaches DurationDays.
func ApplyHabitCompletion(habit HabitState, user UserState) CompletionOutcome {
	habit.CompletedCount++
	habit.XP += XPPerCompletion

	missionCompleted := false
	bonusXP := 0
	if !habit.MissionCompleted && habit.CompletedCount >= habit.DurationDays {
		missionCompleted = true
		bonusXP = BonusXPPerDay * habit.DurationDays
		habit.XP += bonusXP
		habit.MissionCompleted = true
	}

	if habit.Level < 1 {
		habit.Level = 1
	}

	// Loop, not single-step: a mission bonus can jump several thresholds.
	habitLevelUps := 0
	for habit.XP >= habit.Level*HabitLevelStep {
		habit.XP -= habit.Level * HabitLevelStep
		habit.Level++
		habitLevelUps++
	}

	totalGain := XPPerCompletion + bonusXP
	user, userLevelUps := Award(user, totalGain)

	return CompletionOutcome{
		Habit:            habit,
		User:             user,
		MissionCompleted: missionCompleted,
		XPGained:         XPPerCompletion,
		BonusXP:          bonusXP,
		HabitLevelUps:    habitLevelUps,
		UserLevelUps:     userLevelUps,
	}
}

// ApplyQuestCompletion grants the fixed daily-quest XP.
func ApplyQuestCompletion(user UserState) (UserState, int) {
	return Award(user, QuestXP)
}

// Award credits amount to both the resettable XP pool and the lifetime
// TotalXP ledger, then applies as many level-ups as the new pool covers.
// The threshold grows by half (integer floor) on every level-up.
func Award(user UserState, amount int) (UserState, int) {
	if amount < 0 {
		amount = 0
	}
	if user.XPToNextLevel < 1 {
		user.XPToNextLevel = 1
	}
	user.XP += amount
	user.TotalXP += amount

	levelUps := 0
	for user.XP >= user.XPToNextLevel {
		user.XP -= user.XPToNextLevel
		user.Level++
		user.XPToNextLevel = user.XPToNextLevel * 3 / 2
		levelUps++
	}
	return user, levelUps
}
