// Package storage defines the persistence interface and its implementations.
package storage

import (
	"context"
	"time"

	"remind_bot/internal/model"
)

// Storage is the interface for all persistence operations.
//
// Mutations shared between the sweep and the cancellation flow are
// conditional: they report whether a row was affected so a lost race
// degrades to a no-op instead of a double delivery or a resurrected
// record.
type Storage interface {
	CreateReminder(ctx context.Context, r *model.Reminder) error
	ListReminders(ctx context.Context, owner int64) ([]model.Reminder, error)
	ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error)
	// RescheduleReminder advances a reminder's expiry, matching on both
	// id and the previous expiry. Returns false if nothing matched.
	RescheduleReminder(ctx context.Context, id int64, from, to time.Time) (bool, error)
	// DeleteReminder removes a reminder by id. Returns false if it was
	// already gone.
	DeleteReminder(ctx context.Context, id int64) (bool, error)
	// DeleteReminderOwned removes a reminder matching both id and owner.
	DeleteReminderOwned(ctx context.Context, id, owner int64) (bool, error)
	HasJobReminder(ctx context.Context, owner int64) (bool, error)

	CreatePoll(ctx context.Context, p *model.Poll) error
	GetPoll(ctx context.Context, id int64) (*model.Poll, error)
	// SetPollMessage records where the rendered poll lives for later edits.
	SetPollMessage(ctx context.Context, id int64, messageID int) error
	ListDuePolls(ctx context.Context, now time.Time) ([]model.Poll, error)
	// ToggleVote adds the user's vote for the given option index, or
	// removes it if already present. Returns the updated poll and
	// whether the vote was added.
	ToggleVote(ctx context.Context, pollID int64, option int, userID int64) (*model.Poll, bool, error)
	// DeletePoll removes a poll by id. Returns false if it was already gone.
	DeletePoll(ctx context.Context, id int64) (bool, error)

	Close() error
}
