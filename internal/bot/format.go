package bot

import (
	"fmt"
	"html"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remind_bot/internal/model"
)

// FormatReminderList formats a user's pending reminders, soonest first.
// Its numbering matches the index accepted by /cancelreminder <n>.
func FormatReminderList(reminders []model.Reminder) string {
	if len(reminders) == 0 {
		return "You have no pending reminders. Use /remind or /remindme to set one."
	}
	var b strings.Builder
	b.WriteString("Your reminders:\n")
	for i, r := range reminders {
		fmt.Fprintf(&b, "\n%d. %s (id %d)\n", i+1, html.EscapeString(displayContent(r)), r.ID)
		fmt.Fprintf(&b, "   due %s [%s]", r.Expires.UTC().Format("2006-01-02 15:04 UTC"), r.Mode)
		if r.Repeat != model.RepeatNone {
			fmt.Fprintf(&b, ", repeats %s", r.Repeat)
		}
		b.WriteString("\n")
	}
	return b.String()
}

// FormatPollMessage formats the live poll message users vote on.
func FormatPollMessage(p *model.Poll) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", html.EscapeString(p.Question))
	b.WriteString("Tap an option to vote; tap again to retract. ")
	b.WriteString("You may vote for more than one option.\n\n")
	fmt.Fprintf(&b, "Closes at %s.", p.Expires.UTC().Format("15:04 UTC on Jan 2"))
	return b.String()
}

func voteKeyboard(p *model.Poll) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, res := range p.Results {
		label := fmt.Sprintf("%s — %d", truncate(res.Option, 40), len(res.Voters))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("vote:%d:%d", p.ID, i)),
		))
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func displayContent(r model.Reminder) string {
	if r.IsJobAlert() {
		return fmt.Sprintf("Job alert (%s)", r.FilterBy)
	}
	return r.Content
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
