// Package assembler turns the form state of the active mode into the
// normalized requests the orchestrator dispatches.
package assembler

import (
	"strings"

	"qnagen-be/pkg/qgen"
)

// Plan is the validated work of one attempt. Exactly the fields of Mode are set.
type Plan struct {
	Mode qgen.Mode

	// FreeText
	Text *qgen.TextRequest

	// SyllabusTopics and QuestionList upload Upload first.
	Upload *qgen.Attachment
	Topics []qgen.TopicRequest

	// QuestionPaper
	Paper *qgen.Attachment

	// QuestionList
	Questions []string
}

// Requests counts the generation calls the plan will issue, upload excluded.
func (p Plan) Requests() int {
	switch p.Mode {
	case qgen.ModeFreeText, qgen.ModeQuestionPaper:
		return 1
	case qgen.ModeSyllabusTopics:
		return len(p.Topics)
	case qgen.ModeQuestionList:
		return len(p.Questions)
	}
	return 0
}

// Assemble validates form for mode and builds its plan. Every error is a
// qgen InvalidInput error and is returned before any network call.
func Assemble(mode qgen.Mode, form qgen.FormState) (Plan, error) {
	switch mode {
	case qgen.ModeFreeText:
		return freeText(form)
	case qgen.ModeSyllabusTopics:
		return syllabusTopics(form)
	case qgen.ModeQuestionPaper:
		return questionPaper(form)
	case qgen.ModeQuestionList:
		return questionList(form)
	}
	return Plan{}, qgen.InvalidInput("Unknown generation mode %q.", mode)
}

func freeText(form qgen.FormState) (Plan, error) {
	text := strings.TrimSpace(form.FreeText.Text)
	if text == "" {
		return Plan{}, qgen.InvalidInput("Please enter some text to generate questions from.")
	}
	if form.FreeText.DesiredCount <= 0 {
		return Plan{}, qgen.InvalidInput("Number of questions must be greater than zero.")
	}
	if err := requireTypes(form.Types); err != nil {
		return Plan{}, err
	}
	return Plan{
		Mode: qgen.ModeFreeText,
		Text: &qgen.TextRequest{
			Text:         text,
			DesiredCount: form.FreeText.DesiredCount,
			Types:        form.Types,
		},
	}, nil
}

func syllabusTopics(form qgen.FormState) (Plan, error) {
	if form.Syllabus.Syllabus.Empty() {
		return Plan{}, qgen.InvalidInput("Please upload a syllabus file.")
	}
	if err := requireTypes(form.Types); err != nil {
		return Plan{}, err
	}
	topics := qgen.SelectedTopics(form.Syllabus.Topics)
	if len(topics) == 0 {
		return Plan{}, qgen.InvalidInput("Please select at least one topic with a name.")
	}
	reqs := make([]qgen.TopicRequest, 0, len(topics))
	for _, t := range topics {
		if t.DesiredCount <= 0 {
			return Plan{}, qgen.InvalidInput("Number of questions for %q must be greater than zero.", t.Name)
		}
		reqs = append(reqs, qgen.TopicRequest{
			Topic:        t.Name,
			DesiredCount: t.DesiredCount,
			Types:        form.Types,
			Weight:       t.Weight,
		})
	}
	return Plan{
		Mode:   qgen.ModeSyllabusTopics,
		Upload: form.Syllabus.Syllabus,
		Topics: reqs,
	}, nil
}

func questionPaper(form qgen.FormState) (Plan, error) {
	if form.QuestionPaper.Paper.Empty() {
		return Plan{}, qgen.InvalidInput("Please upload a question paper.")
	}
	return Plan{Mode: qgen.ModeQuestionPaper, Paper: form.QuestionPaper.Paper}, nil
}

func questionList(form qgen.FormState) (Plan, error) {
	if form.QuestionList.Source.Empty() {
		return Plan{}, qgen.InvalidInput("Please upload a syllabus file.")
	}
	var questions []string
	for _, q := range form.QuestionList.Questions {
		text := strings.TrimSpace(q.Text)
		if q.Selected && text != "" {
			questions = append(questions, text)
		}
	}
	if len(questions) == 0 {
		return Plan{}, qgen.InvalidInput("Please add at least one question.")
	}
	return Plan{
		Mode:      qgen.ModeQuestionList,
		Upload:    form.QuestionList.Source,
		Questions: questions,
	}, nil
}

func requireTypes(t qgen.TypeFlags) error {
	if t.Empty() {
		return qgen.InvalidInput("Please select at least one question type.")
	}
	return nil
}
