package qgen

import (
	"strings"

	"github.com/google/uuid"
)

// Attachment is an uploaded file carried as a binary payload.
type Attachment struct {
	FileName    string
	ContentType string
	Data        []byte
}

func (a *Attachment) Empty() bool {
	return a == nil || len(a.Data) == 0
}

// TopicSpec is one row of the syllabus topic table.
type TopicSpec struct {
	ID           uuid.UUID
	Name         string
	DesiredCount int
	Weight       *float64
	Selected     bool
}

// Participates reports whether the topic takes part in an attempt.
func (t TopicSpec) Participates() bool {
	return t.Selected && strings.TrimSpace(t.Name) != ""
}

// TopicPatch carries the fields of a topic update; nil fields are left alone.
type TopicPatch struct {
	Name         *string
	DesiredCount *int
	Weight       *float64
	ClearWeight  bool
	Selected     *bool
}

func (t *TopicSpec) apply(p TopicPatch) {
	if p.Name != nil {
		t.Name = *p.Name
	}
	if p.DesiredCount != nil {
		t.DesiredCount = *p.DesiredCount
	}
	if p.ClearWeight {
		t.Weight = nil
	} else if p.Weight != nil {
		w := *p.Weight
		t.Weight = &w
	}
	if p.Selected != nil {
		t.Selected = *p.Selected
	}
}

// QuestionListEntry is one user-authored question of the QuestionList mode.
type QuestionListEntry struct {
	ID       uuid.UUID
	Text     string
	Selected bool
}

type FreeTextForm struct {
	Text         string
	DesiredCount int
}

type SyllabusForm struct {
	Syllabus *Attachment
	Topics   []TopicSpec
}

type QuestionPaperForm struct {
	Paper *Attachment
}

type QuestionListForm struct {
	Source    *Attachment
	Questions []QuestionListEntry
}

// FormState holds the inputs of every mode side by side so switching modes
// never leaks one mode's fields into another. Types is shared by all modes.
type FormState struct {
	Types         TypeFlags
	FreeText      FreeTextForm
	Syllabus      SyllabusForm
	QuestionPaper QuestionPaperForm
	QuestionList  QuestionListForm
}

// DefaultFormState mirrors the initial form: five short-answer questions and
// one empty, selected topic row.
func DefaultFormState() FormState {
	return FormState{
		Types:    SingleType(TypeShortAnswer),
		FreeText: FreeTextForm{DesiredCount: 5},
		Syllabus: SyllabusForm{
			Topics: []TopicSpec{{ID: uuid.New(), DesiredCount: 5, Selected: true}},
		},
	}
}

// clone copies the slices so a snapshot handed to the orchestrator is not
// mutated by later edits.
func (f FormState) clone() FormState {
	out := f
	out.Syllabus.Topics = append([]TopicSpec(nil), f.Syllabus.Topics...)
	out.QuestionList.Questions = append([]QuestionListEntry(nil), f.QuestionList.Questions...)
	return out
}
