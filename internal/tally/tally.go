// Package tally implements the poll result computation engine.
package tally

import (
	"fmt"
	"strings"

	"remind_bot/internal/model"
)

var numberEmoji = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣", "5️⃣", "6️⃣", "7️⃣", "8️⃣", "9️⃣", "🔟"}

// Outcome is the result of tallying a poll.
type Outcome struct {
	// Winners holds the options with the highest vote count, in
	// original option order. Ties are multi-way winners.
	Winners []string
	// WinCount is the vote count shared by all winners.
	WinCount int
	// Message is the winner announcement line. When no votes were cast
	// it states so and names no winner.
	Message string
	// Lines holds one summary line per option, in original option
	// order, independent of the winner computation.
	Lines []string
}

// Tally computes the winner set and display lines for a poll's results.
// It is a pure function of the results slice.
func Tally(results []model.PollResult) Outcome {
	var out Outcome

	maxVotes := 0
	for _, res := range results {
		if len(res.Voters) > maxVotes {
			maxVotes = len(res.Voters)
		}
	}
	for _, res := range results {
		if len(res.Voters) == maxVotes {
			out.Winners = append(out.Winners, res.Option)
		}
	}
	out.WinCount = maxVotes

	switch {
	case maxVotes == 0:
		out.Message = "It looks like no one has voted!"
	case len(out.Winners) == 1:
		out.Message = fmt.Sprintf("**%s** has won the poll with %d %s!",
			out.Winners[0], maxVotes, votesWord(maxVotes))
	default:
		out.Message = fmt.Sprintf("**%s** have won the poll with %d %s each!",
			joinWithAnd(out.Winners), maxVotes, votesWord(maxVotes))
	}

	for i, res := range results {
		out.Lines = append(out.Lines, fmt.Sprintf("%s %s: %d %s",
			optionEmoji(i), res.Option, len(res.Voters), votesWord(len(res.Voters))))
	}

	return out
}

// Summary renders the per-option lines as a single block.
func (o Outcome) Summary() string {
	return strings.Join(o.Lines, "\n")
}

// joinWithAnd joins names as "A, B and C": all but the last separated
// by commas, the last attached with "and".
func joinWithAnd(names []string) string {
	switch len(names) {
	case 0:
		return ""
	case 1:
		return names[0]
	}
	return strings.Join(names[:len(names)-1], ", ") + " and " + names[len(names)-1]
}

func votesWord(n int) string {
	if n == 1 {
		return "vote"
	}
	return "votes"
}

func optionEmoji(i int) string {
	if i < len(numberEmoji) {
		return numberEmoji[i]
	}
	return fmt.Sprintf("#%d", i+1)
}
