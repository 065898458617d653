// Package model defines the domain types used across the application.
package model

import "time"

// Mode controls where a reminder is announced when it fires.
type Mode string

// Supported reminder modes.
const (
	ModePublic  Mode = "public"
	ModePrivate Mode = "private"
)

// Repeat defines how a reminder reschedules itself after firing.
type Repeat string

// Supported repeat cadences.
const (
	RepeatNone   Repeat = "none"
	RepeatDaily  Repeat = "daily"
	RepeatWeekly Repeat = "weekly"
)

// JobFilter describes the ordering preference for job-alert digests.
type JobFilter string

// Supported job-alert orderings.
const (
	FilterDefault   JobFilter = "default"
	FilterRelevance JobFilter = "relevance"
	FilterSalary    JobFilter = "salary"
	FilterDate      JobFilter = "date"
)

// JobReminderContent is the sentinel content marking a job-alert
// reminder. Job alerts are always private; their delivered body comes
// from the recommendation provider, not from the stored content.
const JobReminderContent = "Job Reminder"

// Reminder is a scheduled one-shot or recurring notification.
type Reminder struct {
	ID        int64
	Owner     int64
	Content   string
	Mode      Mode
	Expires   time.Time
	Repeat    Repeat
	FilterBy  JobFilter
	CreatedAt time.Time
}

// IsJobAlert reports whether this reminder is the job-alert variant.
func (r Reminder) IsJobAlert() bool {
	return r.Content == JobReminderContent
}

// PollResult holds one poll option together with the users who voted
// for it. Option order is significant for display numbering. A user
// appears at most once per option but may vote for several options.
type PollResult struct {
	Option string  `json:"option"`
	Voters []int64 `json:"voters"`
}

// Poll is a time-boxed multi-option vote rendered as a single message.
type Poll struct {
	ID        int64
	Owner     int64
	ChatID    int64
	MessageID int
	Question  string
	Expires   time.Time
	Results   []PollResult
	CreatedAt time.Time
}
