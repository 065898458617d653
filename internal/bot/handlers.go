package bot

import (
	"context"
	"fmt"

	"remind_bot/internal/model"
)

func (b *Bot) handleStart(chatID int64) {
	b.reply(chatID, `Welcome to Remind Bot!

Set one-shot or repeating reminders, subscribe to job alerts, and run
timed polls.

Quick start:
1. /remindme 2h water the plants — private reminder in two hours
2. /jobalert daily — daily job recommendations by DM
3. /poll 10m; Lunch?; Pizza; Sushi — a ten-minute poll

Use /help for the full command reference.`)
}

func (b *Bot) handleHelp(chatID int64) {
	b.reply(chatID, `Reminders:
/remind <duration> [-r daily|weekly] <text> — public reminder
/remindme <duration> [-r daily|weekly] <text> — private reminder (DM)
/viewremind — list your pending reminders
/cancelreminder — pick a reminder to cancel from a menu
/cancelreminder <n> — cancel by list number (from /viewremind)
/cancelreminder id <id> — cancel by reminder id
/cancelreminder page <n> — open the menu at a specific page

Job alerts:
/jobalert <daily|weekly> [relevance|salary|date|default] — job
recommendations by DM, sorted by your preference

Polls:
/poll <duration>; <question>; <option>; <option>[; ...] — timed poll,
vote by tapping an option (tap again to retract)

Durations look like 30s, 10m, 2h, 1d, 1w.`)
}

func (b *Bot) handleRemind(ctx context.Context, chatID, userID int64, args string, private bool) {
	parsed, err := ParseRemindCommand(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	mode := model.ModePublic
	if private {
		mode = model.ModePrivate
	}

	r := &model.Reminder{
		Owner:   userID,
		Content: parsed.Content,
		Mode:    mode,
		Expires: b.now().Add(parsed.Duration),
		Repeat:  parsed.Repeat,
	}
	if err := b.store.CreateReminder(ctx, r); err != nil {
		b.log.Error("create reminder", "owner", userID, "error", err)
		b.reply(chatID, "Failed to save the reminder. Try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("I'll remind you about that at %s.%s",
		r.Expires.UTC().Format("15:04 on Jan 2"), repeatSuffix(r.Repeat)))
}

func (b *Bot) handleJobAlert(ctx context.Context, chatID, userID int64, args string) {
	parsed, err := ParseJobAlertCommand(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	// At most one job alert per owner, enforced at creation.
	exists, err := b.store.HasJobReminder(ctx, userID)
	if err != nil {
		b.log.Error("check job reminder", "owner", userID, "error", err)
		b.reply(chatID, "Failed to check your existing alerts. Try again.")
		return
	}
	if exists {
		b.reply(chatID, "You already have a job alert set. To replace it, cancel the existing one first with /cancelreminder.")
		return
	}

	r := &model.Reminder{
		Owner:    userID,
		Content:  model.JobReminderContent,
		Mode:     model.ModePrivate,
		Expires:  b.now(),
		Repeat:   parsed.Repeat,
		FilterBy: parsed.FilterBy,
	}
	if err := b.store.CreateReminder(ctx, r); err != nil {
		b.log.Error("create job alert", "owner", userID, "error", err)
		b.reply(chatID, "Failed to save the job alert. Try again.")
		return
	}

	b.reply(chatID, fmt.Sprintf("I'll send you job recommendations %s, sorted by %s, starting shortly.",
		parsed.Repeat, parsed.FilterBy))
}

func (b *Bot) handleViewRemind(ctx context.Context, chatID, userID int64) {
	reminders, err := b.store.ListReminders(ctx, userID)
	if err != nil {
		b.log.Error("list reminders", "owner", userID, "error", err)
		b.reply(chatID, "Failed to load your reminders. Try again.")
		return
	}
	b.reply(chatID, FormatReminderList(reminders))
}

func (b *Bot) handlePoll(ctx context.Context, chatID, userID int64, args string) {
	parsed, err := ParsePollCommand(args)
	if err != nil {
		b.reply(chatID, err.Error())
		return
	}

	results := make([]model.PollResult, len(parsed.Options))
	for i, opt := range parsed.Options {
		results[i] = model.PollResult{Option: opt}
	}

	p := &model.Poll{
		Owner:    userID,
		ChatID:   chatID,
		Question: parsed.Question,
		Expires:  b.now().Add(parsed.Duration),
		Results:  results,
	}
	if err := b.store.CreatePoll(ctx, p); err != nil {
		b.log.Error("create poll", "owner", userID, "error", err)
		b.reply(chatID, "Failed to save the poll. Try again.")
		return
	}

	msg := newHTMLMessage(chatID, FormatPollMessage(p))
	msg.ReplyMarkup = voteKeyboard(p)
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("send poll message", "poll_id", p.ID, "error", err)
		// Without a rendered message there is nothing to vote on.
		if _, derr := b.store.DeletePoll(ctx, p.ID); derr != nil {
			b.log.Error("delete unrendered poll", "poll_id", p.ID, "error", derr)
		}
		return
	}
	if err := b.store.SetPollMessage(ctx, p.ID, sent.MessageID); err != nil {
		b.log.Error("record poll message", "poll_id", p.ID, "error", err)
	}
}

func repeatSuffix(r model.Repeat) string {
	switch r {
	case model.RepeatDaily:
		return " It will repeat daily."
	case model.RepeatWeekly:
		return " It will repeat weekly."
	default:
		return ""
	}
}
