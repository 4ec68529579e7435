package local

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"qnagen-be/pkg/qgen"
)

// Export renders the question list as a PDF or, when configured, Markdown.
func (b *Backend) Export(ctx context.Context, questions []qgen.ExportQuestion) (*qgen.Artifact, error) {
	if len(questions) == 0 {
		return nil, fmt.Errorf("nothing to export")
	}
	if b.format == FormatPDF {
		return b.exportPDF(ctx, questions)
	}
	return &qgen.Artifact{
		FileName:    "generated_questions.md",
		ContentType: "text/markdown; charset=utf-8",
		Data:        []byte(RenderMarkdown(questions)),
	}, nil
}

// splitQuestion separates a multiple-choice stem from its option lines.
func splitQuestion(text string) (string, []string) {
	if qgen.IsMultipleChoice(text) {
		return qgen.SplitOptions(text)
	}
	return strings.TrimSpace(text), nil
}

func marksSuffix(marks *float64) string {
	if marks == nil {
		return ""
	}
	return fmt.Sprintf(" (%s marks)", strconv.FormatFloat(*marks, 'f', -1, 64))
}

func RenderMarkdown(questions []qgen.ExportQuestion) string {
	var sb strings.Builder
	sb.WriteString("# Generated Questions\n\n")

	var answered []int
	for i, q := range questions {
		stem, options := splitQuestion(q.Question)
		fmt.Fprintf(&sb, "%d. %s%s\n", i+1, stem, marksSuffix(q.Marks))
		for _, opt := range options {
			fmt.Fprintf(&sb, "   - %s\n", opt)
		}
		if q.Answer != "" {
			answered = append(answered, i)
		}
	}

	if len(answered) > 0 {
		sb.WriteString("\n## Answers\n")
		for _, i := range answered {
			fmt.Fprintf(&sb, "\n### %d\n\n%s\n", i+1, strings.TrimSpace(questions[i].Answer))
		}
	}
	return sb.String()
}
