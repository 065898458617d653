package bot

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"remind_bot/internal/config"
	"remind_bot/internal/model"
	"remind_bot/internal/storage"
)

var testTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

const (
	testChatID int64 = 100
	testUserID int64 = 42
)

type mockAPI struct {
	sent     []tgbotapi.Chattable
	failSend bool
	nextID   int
}

func (m *mockAPI) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	if m.failSend {
		return tgbotapi.Message{}, errors.New("telegram unavailable")
	}
	m.sent = append(m.sent, c)
	m.nextID++
	return tgbotapi.Message{MessageID: m.nextID}, nil
}

func (m *mockAPI) GetUpdatesChan(_ tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(tgbotapi.UpdatesChannel)
}

func (m *mockAPI) StopReceivingUpdates() {}

func (m *mockAPI) lastMessage(t *testing.T) tgbotapi.MessageConfig {
	t.Helper()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if msg, ok := m.sent[i].(tgbotapi.MessageConfig); ok {
			return msg
		}
	}
	t.Fatal("no message was sent")
	return tgbotapi.MessageConfig{}
}

func (m *mockAPI) lastEdit(t *testing.T) tgbotapi.EditMessageTextConfig {
	t.Helper()
	for i := len(m.sent) - 1; i >= 0; i-- {
		if edit, ok := m.sent[i].(tgbotapi.EditMessageTextConfig); ok {
			return edit
		}
	}
	t.Fatal("no edit was sent")
	return tgbotapi.EditMessageTextConfig{}
}

func newTestBot(t *testing.T) (*Bot, *mockAPI, *storage.SQLite) {
	t.Helper()
	store, err := storage.NewSQLite(":memory:")
	if err != nil {
		t.Fatalf("new sqlite: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })

	api := &mockAPI{}
	b := &Bot{
		api:      api,
		store:    store,
		cfg:      &config.Config{BroadcastChatID: -1000},
		log:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:      func() time.Time { return testTime },
		sessions: make(map[int64]*cancelSession),
	}
	return b, api, store
}

func seedReminder(t *testing.T, store *storage.SQLite, content string, expires time.Time) model.Reminder {
	t.Helper()
	r := model.Reminder{
		Owner:   testUserID,
		Content: content,
		Mode:    model.ModePublic,
		Expires: expires,
		Repeat:  model.RepeatNone,
	}
	if err := store.CreateReminder(context.Background(), &r); err != nil {
		t.Fatalf("seed reminder: %v", err)
	}
	return r
}

func keyboardOf(t *testing.T, msg tgbotapi.MessageConfig) tgbotapi.InlineKeyboardMarkup {
	t.Helper()
	markup, ok := msg.ReplyMarkup.(*tgbotapi.InlineKeyboardMarkup)
	if !ok {
		t.Fatalf("message has no inline keyboard: %T", msg.ReplyMarkup)
	}
	return *markup
}

func menuCallback(messageID int, userID int64) *tgbotapi.CallbackQuery {
	return &tgbotapi.CallbackQuery{
		ID:   "cb",
		From: &tgbotapi.User{ID: userID},
		Message: &tgbotapi.Message{
			MessageID: messageID,
			Chat:      &tgbotapi.Chat{ID: testChatID},
		},
	}
}

func TestHandleRemindCreatesReminder(t *testing.T) {
	b, api, store := newTestBot(t)

	b.handleRemind(context.Background(), testChatID, testUserID, "2h water the plants", false)

	reminders, err := store.ListReminders(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("got %d reminders, want 1", len(reminders))
	}
	r := reminders[0]
	if r.Content != "water the plants" || r.Mode != model.ModePublic || r.Repeat != model.RepeatNone {
		t.Errorf("unexpected reminder: %+v", r)
	}
	if want := testTime.Add(2 * time.Hour); !r.Expires.Equal(want) {
		t.Errorf("expires = %v, want %v", r.Expires, want)
	}
	if text := api.lastMessage(t).Text; !strings.Contains(text, "I'll remind you") {
		t.Errorf("confirmation missing: %q", text)
	}
}

func TestHandleRemindmeIsPrivate(t *testing.T) {
	b, _, store := newTestBot(t)

	b.handleRemind(context.Background(), testChatID, testUserID, "1d -r daily stretch", true)

	reminders, err := store.ListReminders(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 1 || reminders[0].Mode != model.ModePrivate || reminders[0].Repeat != model.RepeatDaily {
		t.Errorf("unexpected reminders: %+v", reminders)
	}
}

func TestHandleRemindRejectsBadArgs(t *testing.T) {
	b, api, store := newTestBot(t)

	b.handleRemind(context.Background(), testChatID, testUserID, "2h", false)

	reminders, err := store.ListReminders(context.Background(), testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 0 {
		t.Errorf("reminder created from invalid args: %+v", reminders)
	}
	if text := api.lastMessage(t).Text; !strings.Contains(text, "content") {
		t.Errorf("error message missing: %q", text)
	}
}

func TestHandleJobAlertDuplicateGuard(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handleJobAlert(ctx, testChatID, testUserID, "weekly salary")

	reminders, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Fatalf("got %d reminders, want 1", len(reminders))
	}
	r := reminders[0]
	if r.Content != model.JobReminderContent || r.Mode != model.ModePrivate ||
		r.Repeat != model.RepeatWeekly || r.FilterBy != model.FilterSalary {
		t.Errorf("unexpected job alert: %+v", r)
	}
	if !r.Expires.Equal(testTime) {
		t.Errorf("first delivery time = %v, want %v (immediate)", r.Expires, testTime)
	}

	b.handleJobAlert(ctx, testChatID, testUserID, "daily")

	reminders, err = store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(reminders) != 1 {
		t.Errorf("duplicate job alert was created: %+v", reminders)
	}
	if text := api.lastMessage(t).Text; !strings.Contains(text, "already have a job alert") {
		t.Errorf("duplicate notice missing: %q", text)
	}
}

func TestHandlePollCreatesAndRecordsMessage(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handlePoll(ctx, testChatID, testUserID, "10m; Lunch?; Pizza; Sushi")

	msg := api.lastMessage(t)
	if !strings.Contains(msg.Text, "Lunch?") {
		t.Errorf("poll message missing question: %q", msg.Text)
	}
	keyboard := keyboardOf(t, msg)
	if len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("got %d option rows, want 2", len(keyboard.InlineKeyboard))
	}

	polls, err := store.ListDuePolls(ctx, testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("list polls: %v", err)
	}
	if len(polls) != 1 {
		t.Fatalf("got %d polls, want 1", len(polls))
	}
	p := polls[0]
	if p.MessageID == 0 {
		t.Error("poll message id not recorded")
	}
	if want := testTime.Add(10 * time.Minute); !p.Expires.Equal(want) {
		t.Errorf("expires = %v, want %v", p.Expires, want)
	}
	if want := fmt.Sprintf("vote:%d:0", p.ID); *keyboard.InlineKeyboard[0][0].CallbackData != want {
		t.Errorf("first button data = %q, want %q", *keyboard.InlineKeyboard[0][0].CallbackData, want)
	}
}

func TestHandlePollSendFailureDropsPoll(t *testing.T) {
	b, api, store := newTestBot(t)
	api.failSend = true

	b.handlePoll(context.Background(), testChatID, testUserID, "10m; Lunch?; Pizza; Sushi")

	polls, err := store.ListDuePolls(context.Background(), testTime.Add(time.Hour))
	if err != nil {
		t.Fatalf("list polls: %v", err)
	}
	if len(polls) != 0 {
		t.Errorf("unrendered poll kept: %+v", polls)
	}
}

func TestCancelByIndexDeletesSoonest(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	seedReminder(t, store, "second", testTime.Add(2*time.Hour))
	first := seedReminder(t, store, "first", testTime.Add(time.Hour))

	b.handleCancelReminder(ctx, testChatID, testUserID, "1")

	if text := api.lastMessage(t).Text; !strings.Contains(text, "Canceled reminder") || !strings.Contains(text, "first") {
		t.Errorf("confirmation missing: %q", text)
	}
	left, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(left) != 1 || left[0].ID == first.ID {
		t.Errorf("wrong reminder deleted: %+v", left)
	}
}

func TestCancelByIDUnknown(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	seedReminder(t, store, "keep me", testTime.Add(time.Hour))

	b.handleCancelReminder(ctx, testChatID, testUserID, "id 999")

	if text := api.lastMessage(t).Text; !strings.Contains(text, "couldn't find") {
		t.Errorf("not-found message missing: %q", text)
	}
	left, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("reminder deleted by unknown id: %+v", left)
	}
}

func TestCancelPrivateReminderRepliesInDM(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	r := model.Reminder{
		Owner: testUserID, Content: "secret", Mode: model.ModePrivate,
		Expires: testTime.Add(time.Hour), Repeat: model.RepeatNone,
	}
	if err := store.CreateReminder(ctx, &r); err != nil {
		t.Fatalf("seed reminder: %v", err)
	}

	b.handleCancelReminder(ctx, testChatID, testUserID, fmt.Sprintf("id %d", r.ID))

	msg := api.lastMessage(t)
	if msg.ChatID != testUserID {
		t.Errorf("response chat = %d, want the owner's DM %d", msg.ChatID, testUserID)
	}
}

func TestCancelInteractiveFlow(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	target := seedReminder(t, store, "delete me", testTime.Add(time.Hour))
	seedReminder(t, store, "keep me", testTime.Add(2*time.Hour))

	b.handleCancelReminder(ctx, testChatID, testUserID, "")

	menu := api.lastMessage(t)
	keyboard := keyboardOf(t, menu)
	if len(keyboard.InlineKeyboard) != 2 {
		t.Fatalf("got %d menu rows, want 2 (no nav on a single page)", len(keyboard.InlineKeyboard))
	}
	if b.sessions[testUserID] == nil {
		t.Fatal("no session opened")
	}
	menuID := b.sessions[testUserID].messageID

	cb := menuCallback(menuID, testUserID)
	b.handleCancelCallback(ctx, cb, "pick", fmt.Sprint(target.ID))

	if text := api.lastEdit(t).Text; !strings.Contains(text, "Are you sure") || !strings.Contains(text, "delete me") {
		t.Errorf("confirmation prompt missing: %q", text)
	}

	b.handleCancelCallback(ctx, cb, "confirm", fmt.Sprint(target.ID))

	if text := api.lastEdit(t).Text; !strings.Contains(text, "Canceled reminder") {
		t.Errorf("final message missing: %q", text)
	}
	if b.sessions[testUserID] != nil {
		t.Error("session not closed after confirmation")
	}
	left, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(left) != 1 || left[0].Content != "keep me" {
		t.Errorf("wrong reminder deleted: %+v", left)
	}
}

func TestCancelAbortKeepsReminders(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	seedReminder(t, store, "keep me", testTime.Add(time.Hour))
	b.handleCancelReminder(ctx, testChatID, testUserID, "")
	menuID := b.sessions[testUserID].messageID

	b.handleCancelCallback(ctx, menuCallback(menuID, testUserID), "abort", "")

	if text := api.lastEdit(t).Text; !strings.Contains(text, "leaving your reminders as-is") {
		t.Errorf("abort message missing: %q", text)
	}
	left, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("abort deleted a reminder: %+v", left)
	}
}

func TestCancelCallbackIgnoresOtherUsers(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	target := seedReminder(t, store, "mine", testTime.Add(time.Hour))
	b.handleCancelReminder(ctx, testChatID, testUserID, "")
	menuID := b.sessions[testUserID].messageID

	before := len(api.sent)
	b.handleCancelCallback(ctx, menuCallback(menuID, 777), "confirm", fmt.Sprint(target.ID))

	if len(api.sent) != before {
		t.Errorf("another user's click produced output: %+v", api.sent[before:])
	}
	left, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}
	if len(left) != 1 {
		t.Errorf("another user's click deleted a reminder: %+v", left)
	}
}

func TestCancelSessionExpiry(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	target := seedReminder(t, store, "mine", testTime.Add(time.Hour))
	b.handleCancelReminder(ctx, testChatID, testUserID, "")
	menuID := b.sessions[testUserID].messageID

	b.now = func() time.Time { return testTime.Add(cancelSessionTTL + time.Second) }

	before := len(api.sent)
	b.handleCancelCallback(ctx, menuCallback(menuID, testUserID), "pick", fmt.Sprint(target.ID))

	if len(api.sent) != before {
		t.Errorf("expired session produced output: %+v", api.sent[before:])
	}
	if b.sessions[testUserID] != nil {
		t.Error("expired session not dropped")
	}
}

func TestCancelConfirmLosesRaceWithSweep(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	target := seedReminder(t, store, "gone soon", testTime.Add(time.Hour))
	b.handleCancelReminder(ctx, testChatID, testUserID, "")
	menuID := b.sessions[testUserID].messageID

	// The reminder fires between menu open and confirmation.
	if _, err := store.DeleteReminder(ctx, target.ID); err != nil {
		t.Fatalf("delete reminder: %v", err)
	}

	cb := menuCallback(menuID, testUserID)
	b.handleCancelCallback(ctx, cb, "pick", fmt.Sprint(target.ID))
	b.handleCancelCallback(ctx, cb, "confirm", fmt.Sprint(target.ID))

	if text := api.lastEdit(t).Text; !strings.Contains(text, "already fired") {
		t.Errorf("race message missing: %q", text)
	}
	if b.sessions[testUserID] != nil {
		t.Error("session not closed after lost race")
	}
}

func TestCancelPagination(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	for i := 0; i < 30; i++ {
		seedReminder(t, store, fmt.Sprintf("task %02d", i), testTime.Add(time.Duration(i+1)*time.Minute))
	}
	sorted, err := store.ListReminders(ctx, testUserID)
	if err != nil {
		t.Fatalf("list reminders: %v", err)
	}

	b.handleCancelReminder(ctx, testChatID, testUserID, "")

	keyboard := keyboardOf(t, api.lastMessage(t))
	if len(keyboard.InlineKeyboard) != cancelPageSize+1 {
		t.Fatalf("got %d rows, want %d picks plus a nav row", len(keyboard.InlineKeyboard), cancelPageSize)
	}
	nav := keyboard.InlineKeyboard[cancelPageSize]
	if *nav[0].CallbackData != "cancel:noop" {
		t.Errorf("prev on first page = %q, want inert", *nav[0].CallbackData)
	}
	if *nav[2].CallbackData != "cancel:page:1" {
		t.Errorf("next on first page = %q, want cancel:page:1", *nav[2].CallbackData)
	}

	menuID := b.sessions[testUserID].messageID
	b.handleCancelCallback(ctx, menuCallback(menuID, testUserID), "page", "1")

	edit := api.lastEdit(t)
	if !strings.Contains(edit.Text, "page 2/2") {
		t.Errorf("page header = %q, want page 2/2", edit.Text)
	}
	rows := edit.ReplyMarkup.InlineKeyboard
	if len(rows) != 6 {
		t.Fatalf("got %d rows on page 2, want 5 picks plus a nav row", len(rows))
	}
	// Indexing stays aligned with the sorted list across pages.
	wantLabel := fmt.Sprintf("26. %s", sorted[25].Content)
	if got := rows[0][0].Text; got != wantLabel {
		t.Errorf("first pick on page 2 = %q, want %q", got, wantLabel)
	}
	wantData := fmt.Sprintf("cancel:pick:%d", sorted[25].ID)
	if got := *rows[0][0].CallbackData; got != wantData {
		t.Errorf("first pick data on page 2 = %q, want %q", got, wantData)
	}
	nav = rows[5]
	if *nav[2].CallbackData != "cancel:noop" {
		t.Errorf("next on last page = %q, want inert", *nav[2].CallbackData)
	}
}

func TestCancelWithNoReminders(t *testing.T) {
	b, api, _ := newTestBot(t)

	b.handleCancelReminder(context.Background(), testChatID, testUserID, "")

	if text := api.lastMessage(t).Text; !strings.Contains(text, "no pending reminders") {
		t.Errorf("empty-list message missing: %q", text)
	}
	if b.sessions[testUserID] != nil {
		t.Error("session opened with nothing to cancel")
	}
}

func TestVoteCallbackToggles(t *testing.T) {
	b, api, store := newTestBot(t)
	ctx := context.Background()

	b.handlePoll(ctx, testChatID, testUserID, "10m; Lunch?; Pizza; Sushi")
	polls, err := store.ListDuePolls(ctx, testTime.Add(time.Hour))
	if err != nil || len(polls) != 1 {
		t.Fatalf("polls = %+v, err = %v", polls, err)
	}
	p := polls[0]

	cb := menuCallback(p.MessageID, 7)
	cb.Data = fmt.Sprintf("vote:%d:0", p.ID)
	b.handleCallback(ctx, cb)

	got, err := store.GetPoll(ctx, p.ID)
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if len(got.Results[0].Voters) != 1 || got.Results[0].Voters[0] != 7 {
		t.Errorf("voters after vote = %+v", got.Results[0].Voters)
	}
	foundEdit := false
	for _, c := range api.sent {
		if _, ok := c.(tgbotapi.EditMessageReplyMarkupConfig); ok {
			foundEdit = true
		}
	}
	if !foundEdit {
		t.Error("poll keyboard not refreshed after voting")
	}

	// A second tap on the same option retracts the vote.
	b.handleCallback(ctx, cb)
	got, err = store.GetPoll(ctx, p.ID)
	if err != nil {
		t.Fatalf("get poll: %v", err)
	}
	if len(got.Results[0].Voters) != 0 {
		t.Errorf("voters after retraction = %+v", got.Results[0].Voters)
	}
}
