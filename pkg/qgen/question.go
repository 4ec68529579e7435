package qgen

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// AnswerStatus is the tag of an AnswerState.
type AnswerStatus string

const (
	AnswerIdle    AnswerStatus = "idle"
	AnswerPending AnswerStatus = "pending"
	AnswerReady   AnswerStatus = "ready"
	AnswerFailed  AnswerStatus = "failed"
)

// AnswerState is Idle | Pending | Ready(Text) | Failed(Message).
type AnswerState struct {
	Status  AnswerStatus `json:"status"`
	Text    string       `json:"text,omitempty"`
	Message string       `json:"message,omitempty"`
}

func Idle() AnswerState                 { return AnswerState{Status: AnswerIdle} }
func Pending() AnswerState              { return AnswerState{Status: AnswerPending} }
func Ready(text string) AnswerState     { return AnswerState{Status: AnswerReady, Text: text} }
func Failed(message string) AnswerState { return AnswerState{Status: AnswerFailed, Message: message} }

// QuestionItem is one generated question of the current result set.
type QuestionItem struct {
	ID     uuid.UUID
	Text   string
	Weight *float64
	// Topic is set for items produced by a per-topic request.
	Topic  string
	Answer AnswerState
}

// MultipleChoice reports whether the item is excluded from on-demand answers.
func (q QuestionItem) MultipleChoice() bool {
	return IsMultipleChoice(q.Text)
}

// optionLine matches an option line: a one-character label (A-D, a-d or 1-4),
// optionally opened with "(", closed by "." or ")", then whitespace and text.
var optionLine = regexp.MustCompile(`^\(?[A-Da-d1-4][.)]\s+\S`)

// letterOption is the subset of optionLine labelled with a capital letter.
var letterOption = regexp.MustCompile(`^\(?[A-D][.)]\s+\S`)

// IsMultipleChoice reports whether text carries option lines after its stem.
// The first line is the stem and never counts. Capital-letter options always
// count; lower-case and numbered lines count only under a question stem, since
// "Answer both parts:\n1. ...\n2. ..." lists sub-questions, not options.
func IsMultipleChoice(text string) bool {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	if len(lines) < 2 {
		return false
	}
	asks := strings.HasSuffix(strings.TrimSpace(lines[0]), "?")
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if letterOption.MatchString(line) || (asks && optionLine.MatchString(line)) {
			return true
		}
	}
	return false
}

// SplitOptions returns the stem and the option lines of a multiple-choice text.
func SplitOptions(text string) (string, []string) {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	stem := strings.TrimSpace(lines[0])
	var options []string
	for _, line := range lines[1:] {
		line = strings.TrimSpace(line)
		if optionLine.MatchString(line) {
			options = append(options, line)
		}
	}
	return stem, options
}

// NewItems wraps service output into Idle question items.
func NewItems(texts []string, topic string, weight *float64) []QuestionItem {
	items := make([]QuestionItem, 0, len(texts))
	for _, t := range texts {
		items = append(items, QuestionItem{
			ID:     uuid.New(),
			Text:   t,
			Weight: weight,
			Topic:  topic,
			Answer: Idle(),
		})
	}
	return items
}
