package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"remind_bot/internal/model"
	"remind_bot/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// CreateReminder inserts a new reminder and populates its ID and CreatedAt.
func (s *SQLite) CreateReminder(ctx context.Context, r *model.Reminder) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO reminders (owner, content, mode, expires, repeat, filter_by, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.Owner, r.Content, string(r.Mode), r.Expires.UTC().Format(timeLayout),
		string(r.Repeat), string(r.FilterBy), now,
	)
	if err != nil {
		return fmt.Errorf("insert reminder: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	r.ID = id
	r.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListReminders returns all reminders of one owner, soonest first.
// The ordering defines the stable 1-based index used by cancellation.
func (s *SQLite) ListReminders(ctx context.Context, owner int64) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, content, mode, expires, repeat, filter_by, created_at
		 FROM reminders WHERE owner = ? ORDER BY expires, id`, owner,
	)
	if err != nil {
		return nil, fmt.Errorf("query reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanReminders(rows)
}

// ListDueReminders returns all reminders whose expiry is at or before now.
func (s *SQLite) ListDueReminders(ctx context.Context, now time.Time) ([]model.Reminder, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, content, mode, expires, repeat, filter_by, created_at
		 FROM reminders WHERE expires <= ? ORDER BY expires, id`,
		now.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due reminders: %w", err)
	}
	defer func() { _ = rows.Close() }()
	return scanReminders(rows)
}

// RescheduleReminder advances the expiry of a reminder, matching on id
// and the previous expiry so a concurrently cancelled reminder is not
// resurrected.
func (s *SQLite) RescheduleReminder(ctx context.Context, id int64, from, to time.Time) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE reminders SET expires = ? WHERE id = ? AND expires = ?`,
		to.UTC().Format(timeLayout), id, from.UTC().Format(timeLayout),
	)
	if err != nil {
		return false, fmt.Errorf("reschedule reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteReminder removes a reminder by id.
func (s *SQLite) DeleteReminder(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reminders WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteReminderOwned removes a reminder matching both id and owner.
func (s *SQLite) DeleteReminderOwned(ctx context.Context, id, owner int64) (bool, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM reminders WHERE id = ? AND owner = ?`, id, owner,
	)
	if err != nil {
		return false, fmt.Errorf("delete reminder: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// HasJobReminder reports whether the owner already has a job alert.
func (s *SQLite) HasJobReminder(ctx context.Context, owner int64) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM reminders WHERE owner = ? AND content = ?`,
		owner, model.JobReminderContent,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check job reminder: %w", err)
	}
	return count > 0, nil
}

// CreatePoll inserts a new poll and populates its ID and CreatedAt.
func (s *SQLite) CreatePoll(ctx context.Context, p *model.Poll) error {
	results, err := marshalResults(p.Results)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO polls (owner, chat_id, message_id, question, expires, results, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.Owner, p.ChatID, p.MessageID, p.Question,
		p.Expires.UTC().Format(timeLayout), results, now,
	)
	if err != nil {
		return fmt.Errorf("insert poll: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	p.ID = id
	p.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// GetPoll returns a single poll by its ID.
func (s *SQLite) GetPoll(ctx context.Context, id int64) (*model.Poll, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, owner, chat_id, message_id, question, expires, results, created_at
		 FROM polls WHERE id = ?`, id,
	)
	return scanPoll(row)
}

// SetPollMessage records the Telegram message carrying the poll.
func (s *SQLite) SetPollMessage(ctx context.Context, id int64, messageID int) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE polls SET message_id = ? WHERE id = ?`, messageID, id,
	)
	if err != nil {
		return fmt.Errorf("set poll message: %w", err)
	}
	return nil
}

// ListDuePolls returns all polls whose expiry is at or before now.
func (s *SQLite) ListDuePolls(ctx context.Context, now time.Time) ([]model.Poll, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, owner, chat_id, message_id, question, expires, results, created_at
		 FROM polls WHERE expires <= ? ORDER BY expires, id`,
		now.UTC().Format(timeLayout),
	)
	if err != nil {
		return nil, fmt.Errorf("query due polls: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var polls []model.Poll
	for rows.Next() {
		p, err := scanPoll(rows)
		if err != nil {
			return nil, err
		}
		polls = append(polls, *p)
	}
	return polls, rows.Err()
}

// ToggleVote flips the user's vote on one option of a poll.
func (s *SQLite) ToggleVote(ctx context.Context, pollID int64, option int, userID int64) (*model.Poll, bool, error) {
	p, err := s.GetPoll(ctx, pollID)
	if err != nil {
		return nil, false, err
	}
	if option < 0 || option >= len(p.Results) {
		return nil, false, fmt.Errorf("poll %d has no option %d", pollID, option)
	}

	voters := p.Results[option].Voters
	added := true
	for i, v := range voters {
		if v == userID {
			voters = append(voters[:i], voters[i+1:]...)
			added = false
			break
		}
	}
	if added {
		voters = append(voters, userID)
	}
	p.Results[option].Voters = voters

	results, err := marshalResults(p.Results)
	if err != nil {
		return nil, false, err
	}
	if _, err := s.db.ExecContext(ctx,
		`UPDATE polls SET results = ? WHERE id = ?`, results, pollID,
	); err != nil {
		return nil, false, fmt.Errorf("update votes: %w", err)
	}
	return p, added, nil
}

// DeletePoll removes a poll by id.
func (s *SQLite) DeletePoll(ctx context.Context, id int64) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM polls WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete poll: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

func marshalResults(results []model.PollResult) (string, error) {
	b, err := json.Marshal(results)
	if err != nil {
		return "", fmt.Errorf("marshal results: %w", err)
	}
	return string(b), nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanReminder(row scannable) (*model.Reminder, error) {
	var r model.Reminder
	var mode, repeat, filterBy string
	var expires, created sql.NullString
	err := row.Scan(&r.ID, &r.Owner, &r.Content, &mode, &expires, &repeat, &filterBy, &created)
	if err != nil {
		return nil, fmt.Errorf("scan reminder: %w", err)
	}
	r.Mode = model.Mode(mode)
	r.Repeat = model.Repeat(repeat)
	r.FilterBy = model.JobFilter(filterBy)
	if expires.Valid {
		r.Expires, err = time.Parse(timeLayout, expires.String)
		if err != nil {
			return nil, fmt.Errorf("parse reminder expiry: %w", err)
		}
	}
	if created.Valid {
		r.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &r, nil
}

func scanReminders(rows *sql.Rows) ([]model.Reminder, error) {
	var reminders []model.Reminder
	for rows.Next() {
		r, err := scanReminder(rows)
		if err != nil {
			return nil, err
		}
		reminders = append(reminders, *r)
	}
	return reminders, rows.Err()
}

func scanPoll(row scannable) (*model.Poll, error) {
	var p model.Poll
	var results string
	var expires, created sql.NullString
	err := row.Scan(&p.ID, &p.Owner, &p.ChatID, &p.MessageID, &p.Question, &expires, &results, &created)
	if err != nil {
		return nil, fmt.Errorf("scan poll: %w", err)
	}
	if err := json.Unmarshal([]byte(results), &p.Results); err != nil {
		return nil, fmt.Errorf("parse poll results: %w", err)
	}
	if expires.Valid {
		p.Expires, err = time.Parse(timeLayout, expires.String)
		if err != nil {
			return nil, fmt.Errorf("parse poll expiry: %w", err)
		}
	}
	if created.Valid {
		p.CreatedAt, _ = time.Parse(timeLayout, created.String)
	}
	return &p, nil
}
