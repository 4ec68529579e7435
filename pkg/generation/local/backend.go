// Package local generates questions and answers in-process through an LLM
// provider, for deployments without the external generation service.
package local

import (
	"context"
	"fmt"
	"strings"

	"qnagen-be/pkg/generation"
	"qnagen-be/pkg/llm"
	"qnagen-be/pkg/qgen"
)

const module = "LocalGeneration"

// Export formats.
const (
	FormatMarkdown = "markdown"
	FormatPDF      = "pdf"
)

type Backend struct {
	provider llm.LLMProvider
	store    SyllabusStore
	logger   qgen.Logger
	format   string
}

type Option func(*Backend)

// WithExportFormat selects FormatPDF or FormatMarkdown for Export.
func WithExportFormat(format string) Option {
	return func(b *Backend) {
		if format == FormatPDF || format == FormatMarkdown {
			b.format = format
		}
	}
}

var _ generation.Backend = &Backend{}

func NewBackend(provider llm.LLMProvider, store SyllabusStore, logger qgen.Logger, opts ...Option) *Backend {
	if logger == nil {
		logger = qgen.NopLogger()
	}
	b := &Backend{provider: provider, store: store, logger: logger, format: FormatMarkdown}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) UploadSyllabus(ctx context.Context, owner string, file qgen.Attachment) error {
	text, err := decodeText(file.FileName, file.ContentType, file.Data)
	if err != nil {
		return err
	}
	if err := b.store.Put(ctx, owner, text); err != nil {
		return fmt.Errorf("store syllabus: %w", err)
	}
	b.logger.Debug(module, "Syllabus stored", map[string]interface{}{"owner": owner, "chars": len(text)})
	return nil
}

func (b *Backend) GenerateFromText(ctx context.Context, owner string, req qgen.TextRequest) ([]string, error) {
	prompt := questionPrompt("You are a question paper generator. Based on the following text", req.DesiredCount, req.Types) +
		"\n\nText:\n" + req.Text
	reply, err := b.provider.Generate(ctx, prompt, llm.WithMaxTokens(400))
	if err != nil {
		return nil, err
	}
	return lines(reply, req.DesiredCount), nil
}

func (b *Backend) GenerateForTopic(ctx context.Context, owner string, req qgen.TopicRequest) ([]string, error) {
	syllabus, err := b.store.Get(ctx, owner)
	if err != nil {
		return nil, err
	}
	content, err := section(syllabus, req.Topic)
	if err != nil {
		return nil, err
	}
	prompt := questionPrompt("You are an expert question generator. Based on the following syllabus section", req.DesiredCount, req.Types) +
		"\n\n" + content
	reply, err := b.provider.Generate(ctx, prompt, llm.WithMaxTokens(300))
	if err != nil {
		return nil, err
	}
	return lines(reply, req.DesiredCount), nil
}

func (b *Backend) ExtractQuestions(ctx context.Context, owner string, paper qgen.Attachment) ([]string, error) {
	text, err := decodeText(paper.FileName, paper.ContentType, paper.Data)
	if err != nil {
		return nil, err
	}

	prompt := paperPrompt(statedCount(text)) + "\n\n" + text
	reply, err := b.provider.Generate(ctx, prompt, llm.WithMaxTokens(1500), llm.WithJSON())
	var questions []string
	if err == nil {
		questions, err = parseQuestionsJSON(reply)
	}
	if err != nil || len(questions) == 0 {
		b.logger.Warn(module, "Paper extraction fell back to line scan", map[string]interface{}{
			"owner": owner, "error": fmt.Sprint(err),
		})
		questions = scanQuestions(text)
	}
	if len(questions) == 0 {
		return nil, fmt.Errorf("could not extract questions from paper")
	}
	return questions, nil
}

func (b *Backend) GenerateAnswer(ctx context.Context, owner string, question string) (string, error) {
	prompt := "You are an expert tutor. Provide a clear, concise answer to the following question.\n\nQuestion: " + question
	reply, err := b.provider.Generate(ctx, prompt, llm.WithMaxTokens(300))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func (b *Backend) AnswerFromSyllabus(ctx context.Context, owner string, question string) (string, error) {
	syllabus, err := b.store.Get(ctx, owner)
	if err != nil {
		return "", err
	}
	history := []llm.Message{
		{Role: llm.RoleSystem, Content: "You are an expert academic assistant. Using the provided syllabus content, " +
			"answer the user's question clearly, concisely, and accurately. " +
			"If no relevant information is found, say 'Information not found in syllabus.'"},
		{Role: llm.RoleUser, Content: "Syllabus content:\n" + syllabus + "\n\nUser question: " + question},
	}
	reply, err := b.provider.Chat(ctx, history, llm.WithMaxTokens(400))
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(reply), nil
}

func questionPrompt(lead string, n int, types qgen.TypeFlags) string {
	plural := ""
	if n > 1 {
		plural = "s"
	}
	return fmt.Sprintf("%s, generate %d %s question%s relevant to it. "+
		"Return only the questions, one per line, without numbering.",
		lead, n, strings.Join(types.Labels(), ", "), plural)
}

func paperPrompt(stated int) string {
	var sb strings.Builder
	sb.WriteString("You are an assistant that receives the full text of an exam paper ")
	sb.WriteString("(including headings, instructions, passages, and questions).\n")
	sb.WriteString(`Return a JSON object: {"questions": ["..."]} where each item is a full question or sub-question, in order.` + "\n")
	sb.WriteString("Include all types of questions. Remove numbering or lettering such as \"1.\" or \"(a)\". ")
	sb.WriteString("Do not include general instructions or answers.")
	if stated > 0 {
		fmt.Fprintf(&sb, " The paper states there are %d questions.", stated)
	}
	sb.WriteString("\nReturn only a valid JSON object.")
	return sb.String()
}
