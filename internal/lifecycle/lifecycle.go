// Package lifecycle implements the reminder fire/reschedule decision.
package lifecycle

import (
	"time"

	"remind_bot/internal/model"
)

// Action is what the store should do with a reminder after it fires.
type Action int

// Possible post-fire actions.
const (
	// ActionDelete retires the reminder; it leaves no trace.
	ActionDelete Action = iota
	// ActionReschedule keeps the reminder with an advanced expiry.
	ActionReschedule
)

// Decision describes the lifecycle transition for a fired reminder.
type Decision struct {
	Action Action
	// NextExpires is set when Action is ActionReschedule. It is always
	// computed from the reminder's original expiry, never from the
	// current time, so the time-of-day cadence stays stable.
	NextExpires time.Time
}

// Decide returns the transition for a reminder that has fired.
func Decide(r model.Reminder) Decision {
	switch r.Repeat {
	case model.RepeatDaily:
		return Decision{Action: ActionReschedule, NextExpires: r.Expires.AddDate(0, 0, 1)}
	case model.RepeatWeekly:
		return Decision{Action: ActionReschedule, NextExpires: r.Expires.AddDate(0, 0, 7)}
	default:
		return Decision{Action: ActionDelete}
	}
}
