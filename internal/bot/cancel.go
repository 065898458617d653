package bot

import (
	"context"
	"fmt"
	"html"
	"strconv"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remind_bot/internal/model"
)

const (
	cancelPageSize   = 25
	cancelSessionTTL = 60 * time.Second
)

// cancelSession is one user's in-flight cancellation menu. The reminder
// snapshot is taken when the menu opens; its ascending-expiry order
// defines the same 1-based indexing as /viewremind and the direct
// index shortcut.
type cancelSession struct {
	chatID    int64
	messageID int
	reminders []model.Reminder
	page      int // 0-based
	selected  int64
	deadline  time.Time
}

func (s *cancelSession) totalPages() int {
	pages := (len(s.reminders) + cancelPageSize - 1) / cancelPageSize
	if pages < 1 {
		pages = 1
	}
	return pages
}

func (s *cancelSession) pageItems() []model.Reminder {
	start := s.page * cancelPageSize
	if start > len(s.reminders) {
		start = len(s.reminders)
	}
	end := start + cancelPageSize
	if end > len(s.reminders) {
		end = len(s.reminders)
	}
	return s.reminders[start:end]
}

func (s *cancelSession) find(id int64) (model.Reminder, bool) {
	for _, r := range s.reminders {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reminder{}, false
}

func (b *Bot) handleCancelReminder(ctx context.Context, chatID, userID int64, args string) {
	parsed, err := ParseCancelCommand(args)
	if err != nil {
		// Validation failures never touch the store.
		b.reply(chatID, err.Error())
		return
	}

	reminders, err := b.store.ListReminders(ctx, userID)
	if err != nil {
		b.log.Error("list reminders", "owner", userID, "error", err)
		b.reply(chatID, "Failed to load your reminders. Try again.")
		return
	}
	if len(reminders) == 0 {
		b.reply(chatID, "You have no pending reminders.")
		return
	}

	switch parsed.Kind {
	case CancelByID:
		r, ok := findByID(reminders, parsed.N)
		if !ok {
			b.reply(chatID, "I couldn't find a reminder with that ID. Use /viewremind or the menu instead.")
			return
		}
		b.deleteDirect(ctx, chatID, userID, r)
	case CancelByIndex:
		if parsed.N > int64(len(reminders)) {
			b.reply(chatID, fmt.Sprintf("I couldn't find reminder #%d. Use /viewremind to see your list.", parsed.N))
			return
		}
		b.deleteDirect(ctx, chatID, userID, reminders[parsed.N-1])
	case CancelInteractive:
		b.openCancelMenu(chatID, userID, reminders, parsed.Page-1)
	}
}

// deleteDirect performs the conditional delete for the two direct entry
// modes. Responses for private reminders go to the owner's DM.
func (b *Bot) deleteDirect(ctx context.Context, chatID, userID int64, r model.Reminder) {
	target := chatID
	if r.Mode == model.ModePrivate {
		target = userID
	}

	deleted, err := b.store.DeleteReminderOwned(ctx, r.ID, userID)
	if err != nil {
		b.log.Error("cancel reminder", "reminder_id", r.ID, "error", err)
		b.reply(target, "Something went wrong; I couldn't delete that reminder. Try again.")
		return
	}
	if !deleted {
		// Lost a race with the sweep or a duplicate command.
		b.reply(target, "Hmm, I couldn't delete that — it may have already fired. Check /viewremind.")
		return
	}
	b.reply(target, fmt.Sprintf("Canceled reminder: <b>%s</b>", html.EscapeString(r.Content)))
}

func (b *Bot) openCancelMenu(chatID, userID int64, reminders []model.Reminder, page int) {
	sess := &cancelSession{
		chatID:    chatID,
		reminders: reminders,
		page:      clampPage(page, len(reminders)),
		deadline:  b.now().Add(cancelSessionTTL),
	}

	msg := newHTMLMessage(chatID, cancelMenuText(sess))
	msg.ReplyMarkup = cancelMenuKeyboard(sess)
	sent, err := b.api.Send(msg)
	if err != nil {
		b.log.Error("send cancel menu", "owner", userID, "error", err)
		return
	}
	sess.messageID = sent.MessageID

	b.mu.Lock()
	b.sessions[userID] = sess
	b.mu.Unlock()
}

func (b *Bot) handleCancelCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, action, payload string) {
	userID := cb.From.ID

	b.mu.Lock()
	sess := b.sessions[userID]
	b.mu.Unlock()

	// Clicks from anyone but the session's owner, or on a stale menu,
	// are ignored by construction.
	if sess == nil || sess.messageID != cb.Message.MessageID || sess.chatID != cb.Message.Chat.ID {
		return
	}
	if b.now().After(sess.deadline) {
		b.closeSession(userID)
		return
	}

	switch action {
	case "noop":
		return
	case "page":
		page, err := strconv.Atoi(payload)
		if err != nil {
			return
		}
		sess.page = clampPage(page, len(sess.reminders))
		sess.selected = 0
		b.renderMenu(userID, sess)
	case "pick":
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil {
			return
		}
		r, ok := sess.find(id)
		if !ok {
			b.finishSession(userID, sess, "That reminder no longer exists.")
			return
		}
		sess.selected = r.ID
		b.renderConfirm(userID, sess, r)
	case "abort":
		b.finishSession(userID, sess, "Okay, leaving your reminders as-is.")
	case "confirm":
		id, err := strconv.ParseInt(payload, 10, 64)
		if err != nil || id != sess.selected {
			return
		}
		b.confirmDelete(ctx, userID, sess, id)
	}
}

func (b *Bot) confirmDelete(ctx context.Context, userID int64, sess *cancelSession, id int64) {
	r, _ := sess.find(id)

	deleted, err := b.store.DeleteReminderOwned(ctx, id, userID)
	if err != nil {
		b.log.Error("cancel reminder", "reminder_id", id, "error", err)
		b.finishSession(userID, sess, "Something went wrong; I couldn't delete that reminder. Try again.")
		return
	}
	if !deleted {
		b.finishSession(userID, sess, "I couldn't delete that — it may have already fired or been removed.")
		return
	}
	b.finishSession(userID, sess, fmt.Sprintf("Canceled reminder: <b>%s</b>", html.EscapeString(r.Content)))
}

// renderMenu re-renders the selection page and extends the session
// deadline from this render.
func (b *Bot) renderMenu(userID int64, sess *cancelSession) {
	sess.deadline = b.now().Add(cancelSessionTTL)
	edit := tgbotapi.NewEditMessageTextAndMarkup(sess.chatID, sess.messageID, cancelMenuText(sess), *cancelMenuKeyboard(sess))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("render cancel menu", "owner", userID, "error", err)
	}
}

// renderConfirm shows the confirmation step, preserving the paging
// controls above the confirm buttons.
func (b *Bot) renderConfirm(userID int64, sess *cancelSession, r model.Reminder) {
	sess.deadline = b.now().Add(cancelSessionTTL)
	text := fmt.Sprintf("Are you sure you want to cancel:\n<b>%s</b>", html.EscapeString(r.Content))
	edit := tgbotapi.NewEditMessageTextAndMarkup(sess.chatID, sess.messageID, text, *cancelConfirmKeyboard(sess, r.ID))
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("render cancel confirmation", "owner", userID, "error", err)
	}
}

// finishSession closes the menu with a final message and drops the
// session; its keyboard is removed by the text-only edit.
func (b *Bot) finishSession(userID int64, sess *cancelSession, text string) {
	b.closeSession(userID)
	edit := tgbotapi.NewEditMessageText(sess.chatID, sess.messageID, text)
	edit.ParseMode = tgbotapi.ModeHTML
	if _, err := b.api.Send(edit); err != nil {
		b.log.Error("close cancel menu", "owner", userID, "error", err)
	}
}

func (b *Bot) closeSession(userID int64) {
	b.mu.Lock()
	delete(b.sessions, userID)
	b.mu.Unlock()
}

func cancelMenuText(sess *cancelSession) string {
	return fmt.Sprintf("Pick a reminder to cancel (page %d/%d):", sess.page+1, sess.totalPages())
}

func cancelMenuKeyboard(sess *cancelSession) *tgbotapi.InlineKeyboardMarkup {
	start := sess.page * cancelPageSize
	var rows [][]tgbotapi.InlineKeyboardButton
	for i, r := range sess.pageItems() {
		label := fmt.Sprintf("%d. %s", start+i+1, truncate(r.Content, 48))
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("cancel:pick:%d", r.ID)),
		))
	}
	if nav := cancelNavRow(sess); nav != nil {
		rows = append(rows, nav)
	}
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

func cancelConfirmKeyboard(sess *cancelSession, id int64) *tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if nav := cancelNavRow(sess); nav != nil {
		rows = append(rows, nav)
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("Confirm cancel", fmt.Sprintf("cancel:confirm:%d", id)),
		tgbotapi.NewInlineKeyboardButtonData("Never mind", "cancel:abort"),
	))
	markup := tgbotapi.NewInlineKeyboardMarkup(rows...)
	return &markup
}

// cancelNavRow builds the prev/next row, inert at the boundaries.
func cancelNavRow(sess *cancelSession) []tgbotapi.InlineKeyboardButton {
	pages := sess.totalPages()
	if pages <= 1 {
		return nil
	}
	prev := "cancel:noop"
	if sess.page > 0 {
		prev = fmt.Sprintf("cancel:page:%d", sess.page-1)
	}
	next := "cancel:noop"
	if sess.page < pages-1 {
		next = fmt.Sprintf("cancel:page:%d", sess.page+1)
	}
	return tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("« Prev", prev),
		tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d/%d", sess.page+1, pages), "cancel:noop"),
		tgbotapi.NewInlineKeyboardButtonData("Next »", next),
	)
}

func clampPage(page, total int) int {
	pages := (total + cancelPageSize - 1) / cancelPageSize
	if pages < 1 {
		pages = 1
	}
	if page < 0 {
		return 0
	}
	if page >= pages {
		return pages - 1
	}
	return page
}

func findByID(reminders []model.Reminder, id int64) (model.Reminder, bool) {
	for _, r := range reminders {
		if r.ID == id {
			return r, true
		}
	}
	return model.Reminder{}, false
}
