package sweep

import (
	"fmt"
	"html"
	"regexp"
	"strings"

	"remind_bot/internal/model"
	"remind_bot/internal/tally"
)

// Delivery text is sent with HTML parse mode; user-supplied content is
// escaped and the tally engine's **emphasis** markers are converted.

var boldMarkers = regexp.MustCompile(`\*\*(.+?)\*\*`)

// Mention renders a clickable mention of a user.
func Mention(userID int64) string {
	return fmt.Sprintf(`<a href="tg://user?id=%d">@%d</a>`, userID, userID)
}

// FormatReminderBroadcast renders a public reminder for the shared channel.
func FormatReminderBroadcast(r model.Reminder) string {
	return fmt.Sprintf("%s, here's the reminder you asked for: <b>%s</b>",
		Mention(r.Owner), html.EscapeString(r.Content))
}

// FormatReminderDM renders a private reminder for direct delivery.
func FormatReminderDM(r model.Reminder) string {
	return fmt.Sprintf("Here's the reminder you asked for: <b>%s</b>",
		html.EscapeString(r.Content))
}

// FormatDMFallback renders the broadcast notice sent when a direct
// message could not be delivered.
func FormatDMFallback(owner int64) string {
	return fmt.Sprintf("%s, I tried to send you a DM about your private reminder "+
		"but it looks like you have DMs closed. Please enable DMs in the future "+
		"if you'd like to get private reminders.", Mention(owner))
}

// FormatPollClosed renders the final state of a resolved poll, used to
// replace the original poll message.
func FormatPollClosed(p model.Poll, outcome tally.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", html.EscapeString(p.Question))
	b.WriteString("This poll has ended.\n\n")
	fmt.Fprintf(&b, "%s: %s\n\n", winnerLabel(outcome), emphasize(outcome.Message))
	b.WriteString("Choices:\n")
	b.WriteString(html.EscapeString(outcome.Summary()))
	return b.String()
}

// FormatPollAnnouncement renders the closing announcement posted as a
// reply to the original poll message.
func FormatPollAnnouncement(p model.Poll, outcome tally.Outcome) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s's poll has ended!\n\n", Mention(p.Owner))
	fmt.Fprintf(&b, "📊 <b>%s</b>\n\n", html.EscapeString(p.Question))
	fmt.Fprintf(&b, "%s: %s\n\n", winnerLabel(outcome), emphasize(outcome.Message))
	b.WriteString(html.EscapeString(outcome.Summary()))
	return b.String()
}

func winnerLabel(outcome tally.Outcome) string {
	if outcome.WinCount > 0 && len(outcome.Winners) > 1 {
		return "Winners"
	}
	return "Winner"
}

func emphasize(s string) string {
	return boldMarkers.ReplaceAllString(html.EscapeString(s), "<b>$1</b>")
}
