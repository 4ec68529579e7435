package local

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ErrUnsupportedFile is returned for uploads that are neither PDF nor plain text.
var ErrUnsupportedFile = errors.New("unsupported file type, only .pdf, .txt and .md are accepted")

var (
	unitHeading     = regexp.MustCompile(`(?i)unit[\s\-]*\d+\b`)
	questionCount   = regexp.MustCompile(`(?i)No\.?\s*of\s*Questions\s*[:\-]?\s*(\d+)`)
	numberedStart   = regexp.MustCompile(`^\d+\.\s+`)
	subQuestionMark = regexp.MustCompile(`(?i)^\([a-z]\)\s+`)
)

// decodeText extracts the text of a PDF or plain-text upload.
func decodeText(fileName, contentType string, data []byte) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	var text string
	switch {
	case ext == ".pdf" || contentType == "application/pdf":
		extracted, err := extractPDF(data)
		if err != nil {
			return "", err
		}
		text = extracted
	case ext == ".txt" || ext == ".md" || strings.HasPrefix(contentType, "text/"):
		text = string(data)
	default:
		return "", ErrUnsupportedFile
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", errors.New("could not extract any text from file")
	}
	return text, nil
}

// lines splits a model reply into at most n trimmed, non-empty lines.
func lines(reply string, n int) []string {
	var out []string
	for _, l := range strings.Split(reply, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// section returns the syllabus text from the first case-insensitive match of
// topic up to the next "unit <n>" heading after it.
func section(syllabus, topic string) (string, error) {
	lower := strings.ToLower(syllabus)
	start := strings.Index(lower, strings.ToLower(strings.TrimSpace(topic)))
	if start < 0 {
		return "", fmt.Errorf("topic %q not found in syllabus", topic)
	}
	end := len(syllabus)
	for _, loc := range unitHeading.FindAllStringIndex(lower, -1) {
		if loc[0] > start {
			end = loc[0]
			break
		}
	}
	return strings.TrimSpace(syllabus[start:end]), nil
}

// statedCount reads a "No. of Questions: N" hint from a paper.
func statedCount(paper string) int {
	m := questionCount.FindStringSubmatch(paper)
	if m == nil {
		return 0
	}
	n, _ := strconv.Atoi(m[1])
	return n
}

// parseQuestionsJSON reads {"questions": [...]} out of a model reply,
// tolerating code fences and prose around the object.
func parseQuestionsJSON(reply string) ([]string, error) {
	start, end := strings.Index(reply, "{"), strings.LastIndex(reply, "}")
	if start < 0 || end <= start {
		return nil, errors.New("no JSON object in reply")
	}
	var obj struct {
		Questions []json.RawMessage `json:"questions"`
	}
	if err := json.Unmarshal([]byte(reply[start:end+1]), &obj); err != nil {
		return nil, err
	}
	var out []string
	for _, raw := range obj.Questions {
		var q string
		if json.Unmarshal(raw, &q) == nil && strings.TrimSpace(q) != "" {
			out = append(out, strings.TrimSpace(q))
		}
	}
	return out, nil
}

// scanQuestions is the fallback extractor: every "1. " or "(a) " line opens a
// question and following lines continue it.
func scanQuestions(paper string) []string {
	var (
		out []string
		cur []string
	)
	flush := func() {
		if len(cur) > 0 {
			out = append(out, strings.TrimSpace(strings.Join(cur, "\n")))
			cur = nil
		}
	}
	for _, l := range strings.Split(strings.ReplaceAll(paper, "\r\n", "\n"), "\n") {
		t := strings.TrimSpace(l)
		if numberedStart.MatchString(t) || subQuestionMark.MatchString(t) {
			flush()
			cur = append(cur, t)
			continue
		}
		if len(cur) > 0 && t != "" {
			cur = append(cur, t)
		}
	}
	flush()
	return out
}
