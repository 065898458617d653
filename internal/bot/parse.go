package bot

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"remind_bot/internal/model"
)

// RemindArgs holds the parsed arguments of /remind and /remindme.
type RemindArgs struct {
	Duration time.Duration
	Repeat   model.Repeat
	Content  string
}

// ParseRemindCommand parses arguments for the reminder commands.
// Format: <duration> [-r daily|weekly] <content...>
func ParseRemindCommand(args string) (RemindArgs, error) {
	parts := strings.Fields(args)
	if len(parts) < 2 {
		return RemindArgs{}, fmt.Errorf("usage: <duration> [-r daily|weekly] <content>")
	}

	d, err := ParseHumanDuration(parts[0])
	if err != nil {
		return RemindArgs{}, err
	}

	repeat := model.RepeatNone
	rest := parts[1:]
	if len(rest) >= 2 && rest[0] == "-r" {
		switch rest[1] {
		case "daily":
			repeat = model.RepeatDaily
		case "weekly":
			repeat = model.RepeatWeekly
		default:
			return RemindArgs{}, fmt.Errorf("invalid repeat %q, use: daily, weekly", rest[1])
		}
		rest = rest[2:]
	}

	if len(rest) == 0 {
		return RemindArgs{}, fmt.Errorf("reminder content is required")
	}

	return RemindArgs{
		Duration: d,
		Repeat:   repeat,
		Content:  strings.Join(rest, " "),
	}, nil
}

var durationPart = regexp.MustCompile(`^(\d+)(s|m|h|d|w)`)

// ParseHumanDuration parses compact durations like "90s", "5m", "2h",
// "1d", "1w" and combinations such as "1d12h".
func ParseHumanDuration(s string) (time.Duration, error) {
	units := map[string]time.Duration{
		"s": time.Second,
		"m": time.Minute,
		"h": time.Hour,
		"d": 24 * time.Hour,
		"w": 7 * 24 * time.Hour,
	}

	rest := strings.ToLower(strings.TrimSpace(s))
	if rest == "" {
		return 0, fmt.Errorf("duration is required")
	}

	var total time.Duration
	for rest != "" {
		m := durationPart.FindStringSubmatch(rest)
		if m == nil {
			return 0, fmt.Errorf("%q is not a valid duration, use forms like 30s, 10m, 2h, 1d, 1w", s)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return 0, fmt.Errorf("%q is not a valid duration", s)
		}
		total += time.Duration(n) * units[m[2]]
		rest = rest[len(m[0]):]
	}
	if total <= 0 {
		return 0, fmt.Errorf("duration must be positive")
	}
	return total, nil
}

// JobAlertArgs holds the parsed arguments of /jobalert.
type JobAlertArgs struct {
	Repeat   model.Repeat
	FilterBy model.JobFilter
}

// ParseJobAlertCommand parses arguments for /jobalert.
// Format: <daily|weekly> [relevance|salary|date|default]
func ParseJobAlertCommand(args string) (JobAlertArgs, error) {
	parts := strings.Fields(args)
	if len(parts) == 0 {
		return JobAlertArgs{}, fmt.Errorf("usage: <daily|weekly> [relevance|salary|date|default]")
	}

	var repeat model.Repeat
	switch parts[0] {
	case "daily":
		repeat = model.RepeatDaily
	case "weekly":
		repeat = model.RepeatWeekly
	default:
		return JobAlertArgs{}, fmt.Errorf("invalid frequency %q, use: daily, weekly", parts[0])
	}

	filterBy := model.FilterDefault
	if len(parts) > 1 {
		switch parts[1] {
		case "relevance":
			filterBy = model.FilterRelevance
		case "salary":
			filterBy = model.FilterSalary
		case "date":
			filterBy = model.FilterDate
		case "default":
			filterBy = model.FilterDefault
		default:
			return JobAlertArgs{}, fmt.Errorf("invalid filter %q, use: relevance, salary, date, default", parts[1])
		}
	}

	return JobAlertArgs{Repeat: repeat, FilterBy: filterBy}, nil
}

// PollArgs holds the parsed arguments of /poll.
type PollArgs struct {
	Duration time.Duration
	Question string
	Options  []string
}

const maxPollOptions = 10

// ParsePollCommand parses arguments for /poll.
// Format: <duration>; <question>; <option>; <option>[; ...]
func ParsePollCommand(args string) (PollArgs, error) {
	parts := strings.Split(args, ";")
	if len(parts) < 4 {
		return PollArgs{}, fmt.Errorf("usage: <duration>; <question>; <option>; <option>[; ...]")
	}

	d, err := ParseHumanDuration(strings.TrimSpace(parts[0]))
	if err != nil {
		return PollArgs{}, err
	}

	question := strings.TrimSpace(parts[1])
	if question == "" {
		return PollArgs{}, fmt.Errorf("poll question is required")
	}

	var options []string
	for _, p := range parts[2:] {
		opt := strings.TrimSpace(p)
		if opt == "" {
			continue
		}
		options = append(options, opt)
	}
	if len(options) < 2 {
		return PollArgs{}, fmt.Errorf("a poll needs at least two options")
	}
	if len(options) > maxPollOptions {
		return PollArgs{}, fmt.Errorf("a poll supports at most %d options", maxPollOptions)
	}

	return PollArgs{Duration: d, Question: question, Options: options}, nil
}

// CancelKind selects how /cancelreminder picks its target.
type CancelKind int

// Cancellation entry modes.
const (
	// CancelInteractive opens the paginated selection menu.
	CancelInteractive CancelKind = iota
	// CancelByIndex deletes by 1-based position in the sorted list.
	CancelByIndex
	// CancelByID deletes by record id.
	CancelByID
)

// CancelArgs holds the parsed arguments of /cancelreminder.
type CancelArgs struct {
	Kind CancelKind
	N    int64
	Page int
}

// ParseCancelCommand parses arguments for /cancelreminder.
// Formats: "" | <n> | "id <id>" | "page <n>"
func ParseCancelCommand(args string) (CancelArgs, error) {
	parts := strings.Fields(args)
	switch {
	case len(parts) == 0:
		return CancelArgs{Kind: CancelInteractive, Page: 1}, nil
	case parts[0] == "id" && len(parts) == 2:
		id, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil || id <= 0 {
			return CancelArgs{}, fmt.Errorf("%q is not a valid reminder identifier", parts[1])
		}
		return CancelArgs{Kind: CancelByID, N: id}, nil
	case parts[0] == "page" && len(parts) == 2:
		page, err := strconv.Atoi(parts[1])
		if err != nil || page < 1 {
			return CancelArgs{}, fmt.Errorf("%q is not a valid page number", parts[1])
		}
		return CancelArgs{Kind: CancelInteractive, Page: page}, nil
	case len(parts) == 1:
		n, err := strconv.ParseInt(parts[0], 10, 64)
		if err != nil || n <= 0 {
			return CancelArgs{}, fmt.Errorf("%q is not a valid reminder number", parts[0])
		}
		return CancelArgs{Kind: CancelByIndex, N: n}, nil
	default:
		return CancelArgs{}, fmt.Errorf("usage: /cancelreminder [<n> | id <id> | page <n>]")
	}
}
