// Package sweep implements the periodic resolution of due reminders and polls.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"remind_bot/internal/jobs"
	"remind_bot/internal/lifecycle"
	"remind_bot/internal/model"
	"remind_bot/internal/storage"
	"remind_bot/internal/tally"
)

// DefaultSpec fires a sweep every 30 seconds.
const DefaultSpec = "*/30 * * * * *"

// Notifier is the interface for delivering messages.
type Notifier interface {
	SendToUser(userID int64, text string) error
	SendToChannel(chatID int64, text string) error
	SendReply(chatID int64, messageID int, text string) error
	EditMessage(chatID int64, messageID int, text string) error
}

// Sweeper periodically resolves due polls and reminders, delivers their
// notifications, and reschedules or retires each item.
type Sweeper struct {
	store     storage.Storage
	notifier  Notifier
	jobs      jobs.Provider
	broadcast int64
	log       *slog.Logger
	spec      string
	now       func() time.Time
}

// New creates a Sweeper. broadcast is the shared channel used for
// public reminders and DM fallbacks.
func New(store storage.Storage, notifier Notifier, provider jobs.Provider, broadcast int64, log *slog.Logger) *Sweeper {
	return &Sweeper{
		store:     store,
		notifier:  notifier,
		jobs:      provider,
		broadcast: broadcast,
		log:       log,
		spec:      DefaultSpec,
		now:       time.Now,
	}
}

// SetSpec overrides the default 30-second cron spec (seconds granularity).
func (s *Sweeper) SetSpec(spec string) {
	s.spec = spec
}

// Run starts the sweep timer, blocking until ctx is cancelled. Cycles
// never overlap: a tick that fires while the previous cycle is still
// running is skipped.
func (s *Sweeper) Run(ctx context.Context) error {
	c := cron.New(
		cron.WithSeconds(),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{s.log})),
	)
	if _, err := c.AddFunc(s.spec, func() { s.Sweep(ctx) }); err != nil {
		return fmt.Errorf("schedule sweep %q: %w", s.spec, err)
	}

	s.Sweep(ctx)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	return nil
}

// Sweep executes one full cycle: polls first, then reminders.
func (s *Sweeper) Sweep(ctx context.Context) {
	now := s.now()
	s.resolvePolls(ctx, now)
	s.resolveReminders(ctx, now)
}

func (s *Sweeper) resolvePolls(ctx context.Context, now time.Time) {
	polls, err := s.store.ListDuePolls(ctx, now)
	if err != nil {
		s.log.Error("list due polls", "error", err)
		return
	}

	for _, poll := range polls {
		if ctx.Err() != nil {
			return
		}
		if err := s.resolvePoll(ctx, poll); err != nil {
			// The record is untouched; the poll is retried next cycle.
			s.log.Error("resolve poll", "poll_id", poll.ID, "error", err)
		}
	}
}

func (s *Sweeper) resolvePoll(ctx context.Context, poll model.Poll) error {
	outcome := tally.Tally(poll.Results)

	if err := s.notifier.EditMessage(poll.ChatID, poll.MessageID, FormatPollClosed(poll, outcome)); err != nil {
		return fmt.Errorf("edit poll message: %w", err)
	}
	if err := s.notifier.SendReply(poll.ChatID, poll.MessageID, FormatPollAnnouncement(poll, outcome)); err != nil {
		return fmt.Errorf("announce poll result: %w", err)
	}

	deleted, err := s.store.DeletePoll(ctx, poll.ID)
	if err != nil {
		return fmt.Errorf("delete poll: %w", err)
	}
	if !deleted {
		s.log.Debug("poll already deleted", "poll_id", poll.ID)
	}
	s.log.Info("poll resolved", "poll_id", poll.ID, "winners", outcome.Winners)
	return nil
}

func (s *Sweeper) resolveReminders(ctx context.Context, now time.Time) {
	reminders, err := s.store.ListDueReminders(ctx, now)
	if err != nil {
		s.log.Error("list due reminders", "error", err)
		return
	}

	for _, r := range reminders {
		if ctx.Err() != nil {
			return
		}
		// Delivery is best-effort: the lifecycle write below happens
		// regardless of the delivery outcome.
		s.deliver(ctx, r)
		s.advance(ctx, r)
	}
}

func (s *Sweeper) deliver(ctx context.Context, r model.Reminder) {
	if r.Mode == model.ModePublic {
		if err := s.notifier.SendToChannel(s.broadcast, FormatReminderBroadcast(r)); err != nil {
			s.log.Error("send public reminder", "reminder_id", r.ID, "error", err)
		}
		return
	}

	body := FormatReminderDM(r)
	if r.IsJobAlert() {
		filterBy := r.FilterBy
		if filterBy == "" {
			filterBy = model.FilterDefault
		}
		digest, err := s.jobs.Digest(ctx, r.Owner, filterBy)
		if err != nil {
			// No delivery and no fallback when the body cannot be built.
			s.log.Error("build job digest", "reminder_id", r.ID, "owner", r.Owner, "error", err)
			return
		}
		body = digest
	}

	if err := s.notifier.SendToUser(r.Owner, body); err != nil {
		s.log.Warn("direct message failed, falling back to broadcast",
			"reminder_id", r.ID, "owner", r.Owner, "error", err)
		if err := s.notifier.SendToChannel(s.broadcast, FormatDMFallback(r.Owner)); err != nil {
			s.log.Error("send fallback notice", "reminder_id", r.ID, "error", err)
		}
	}
}

func (s *Sweeper) advance(ctx context.Context, r model.Reminder) {
	d := lifecycle.Decide(r)
	switch d.Action {
	case lifecycle.ActionReschedule:
		ok, err := s.store.RescheduleReminder(ctx, r.ID, r.Expires, d.NextExpires)
		if err != nil {
			s.log.Error("reschedule reminder", "reminder_id", r.ID, "error", err)
			return
		}
		if !ok {
			// Lost a race with a cancellation; nothing to do.
			s.log.Debug("reminder gone before reschedule", "reminder_id", r.ID)
			return
		}
		s.log.Info("reminder rescheduled", "reminder_id", r.ID, "next", d.NextExpires)
	case lifecycle.ActionDelete:
		ok, err := s.store.DeleteReminder(ctx, r.ID)
		if err != nil {
			s.log.Error("delete reminder", "reminder_id", r.ID, "error", err)
			return
		}
		if !ok {
			s.log.Debug("reminder gone before delete", "reminder_id", r.ID)
			return
		}
		s.log.Info("reminder completed", "reminder_id", r.ID)
	}
}

// cronLogger adapts slog to the cron.Logger interface so skipped
// overlapping ticks show up in the application log.
type cronLogger struct {
	log *slog.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Debug(msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error(msg, append([]any{"error", err}, keysAndValues...)...)
}
