package qgen

import (
	"fmt"
	"strings"
)

// Mode selects how source material is turned into questions.
type Mode string

const (
	ModeFreeText       Mode = "free_text"
	ModeSyllabusTopics Mode = "syllabus_topics"
	ModeQuestionPaper  Mode = "question_paper"
	ModeQuestionList   Mode = "question_list"
)

var allModes = []Mode{ModeFreeText, ModeSyllabusTopics, ModeQuestionPaper, ModeQuestionList}

func ParseMode(s string) (Mode, error) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range allModes {
		if m == known {
			return m, nil
		}
	}
	return "", fmt.Errorf("unknown generation mode %q", s)
}

// ConsumesCredit reports whether an attempt in this mode is metered.
// QuestionList answers user-authored questions and is not.
func (m Mode) ConsumesCredit() bool {
	return m != ModeQuestionList
}

// QuestionType is one of the question styles the generation service understands.
type QuestionType string

const (
	TypeMultipleChoice QuestionType = "mcq"
	TypeShortAnswer    QuestionType = "short_answer"
	TypeLongAnswer     QuestionType = "long_answer"
)

func ParseQuestionType(s string) (QuestionType, error) {
	switch QuestionType(strings.ToLower(strings.TrimSpace(s))) {
	case TypeMultipleChoice:
		return TypeMultipleChoice, nil
	case TypeShortAnswer:
		return TypeShortAnswer, nil
	case TypeLongAnswer:
		return TypeLongAnswer, nil
	}
	return "", fmt.Errorf("unknown question type %q", s)
}

// TypeFlags is the set of requested question styles. The service still
// receives the full set even when only one can be picked at a time.
type TypeFlags struct {
	MultipleChoice bool `json:"mcq"`
	ShortAnswer    bool `json:"short_answer"`
	LongAnswer     bool `json:"long_answer"`
}

// SingleType returns a flag set with exactly one style enabled.
func SingleType(t QuestionType) TypeFlags {
	switch t {
	case TypeMultipleChoice:
		return TypeFlags{MultipleChoice: true}
	case TypeLongAnswer:
		return TypeFlags{LongAnswer: true}
	default:
		return TypeFlags{ShortAnswer: true}
	}
}

func (f TypeFlags) Empty() bool {
	return !f.MultipleChoice && !f.ShortAnswer && !f.LongAnswer
}

// Labels renders the enabled styles the way prompts name them.
func (f TypeFlags) Labels() []string {
	var labels []string
	if f.MultipleChoice {
		labels = append(labels, "MCQ")
	}
	if f.ShortAnswer {
		labels = append(labels, "short answer")
	}
	if f.LongAnswer {
		labels = append(labels, "long answer")
	}
	return labels
}
