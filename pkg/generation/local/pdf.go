package local

import (
	"bytes"
	"context"
	"fmt"

	"github.com/go-pdf/fpdf"
	"github.com/ledongthuc/pdf"

	"qnagen-be/pkg/qgen"
)

// extractPDF returns the plain text of every page.
func extractPDF(data []byte) (text string, err error) {
	// The reader panics on some malformed cross-reference tables.
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read pdf: %v", r)
		}
	}()

	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	return buf.String(), nil
}

func (b *Backend) exportPDF(_ context.Context, questions []qgen.ExportQuestion) (*qgen.Artifact, error) {
	data, err := RenderPDF(questions)
	if err != nil {
		return nil, err
	}
	return &qgen.Artifact{
		FileName:    "generated_questions.pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}

// RenderPDF lays the questions out on A4 pages, with answered items repeated
// in a trailing answer section.
func RenderPDF(questions []qgen.ExportQuestion) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetTitle("Generated Questions", true)
	doc.SetMargins(20, 20, 20)
	doc.AddPage()

	doc.SetFont("Helvetica", "B", 16)
	doc.CellFormat(0, 10, "Generated Questions", "", 1, "C", false, 0, "")
	doc.Ln(4)

	var answered []int
	for i, q := range questions {
		stem, options := splitQuestion(q.Question)
		doc.SetFont("Helvetica", "", 12)
		doc.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s%s", i+1, stem, marksSuffix(q.Marks))), "", "L", false)
		for _, opt := range options {
			doc.SetX(28)
			doc.MultiCell(0, 6, tr(opt), "", "L", false)
		}
		doc.Ln(3)
		if q.Answer != "" {
			answered = append(answered, i)
		}
	}

	if len(answered) > 0 {
		doc.AddPage()
		doc.SetFont("Helvetica", "B", 14)
		doc.CellFormat(0, 10, "Answers", "", 1, "L", false, 0, "")
		for _, i := range answered {
			doc.SetFont("Helvetica", "B", 12)
			doc.CellFormat(0, 8, fmt.Sprintf("%d.", i+1), "", 1, "L", false, 0, "")
			doc.SetFont("Helvetica", "", 12)
			doc.MultiCell(0, 6, tr(questions[i].Answer), "", "L", false)
			doc.Ln(3)
		}
	}

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}
