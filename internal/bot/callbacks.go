package bot

import (
	"context"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Callback data is "<kind>:<action>:<payload>"; kinds are "vote" and
// "cancel".

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	if cb.Message == nil {
		return
	}

	ack := tgbotapi.NewCallback(cb.ID, "")
	if _, err := b.api.Send(ack); err != nil {
		b.log.Error("send callback ack", "error", err)
	}

	parts := strings.SplitN(cb.Data, ":", 3)
	if len(parts) < 2 {
		return
	}

	b.log.Debug("callback",
		"data", cb.Data,
		"chat_id", cb.Message.Chat.ID,
		"user_id", cb.From.ID,
	)

	switch parts[0] {
	case "vote":
		if len(parts) == 3 {
			b.handleVoteCallback(ctx, cb, parts[1], parts[2])
		}
	case "cancel":
		payload := ""
		if len(parts) == 3 {
			payload = parts[2]
		}
		b.handleCancelCallback(ctx, cb, parts[1], payload)
	}
}

func (b *Bot) handleVoteCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, pollArg, optionArg string) {
	pollID, err := strconv.ParseInt(pollArg, 10, 64)
	if err != nil {
		return
	}
	option, err := strconv.Atoi(optionArg)
	if err != nil {
		return
	}

	poll, _, err := b.store.ToggleVote(ctx, pollID, option, cb.From.ID)
	if err != nil {
		// Most likely the poll was resolved between render and click.
		b.log.Debug("toggle vote", "poll_id", pollID, "error", err)
		return
	}

	markup := voteKeyboard(poll)
	edit := tgbotapi.NewEditMessageReplyMarkup(cb.Message.Chat.ID, cb.Message.MessageID, *markup)
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("update poll keyboard", "poll_id", pollID, "error", err)
	}
}
