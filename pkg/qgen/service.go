package qgen

import "context"

// TextRequest asks for questions about pasted text.
type TextRequest struct {
	Text         string
	DesiredCount int
	Types        TypeFlags
}

// TopicRequest asks for questions about one topic of an uploaded syllabus.
type TopicRequest struct {
	Topic        string
	DesiredCount int
	Types        TypeFlags
	Weight       *float64
}

// Service is the external question/answer generation engine. The owner
// scopes uploads so concurrent sessions never read each other's syllabus.
type Service interface {
	UploadSyllabus(ctx context.Context, owner string, file Attachment) error
	GenerateFromText(ctx context.Context, owner string, req TextRequest) ([]string, error)
	GenerateForTopic(ctx context.Context, owner string, req TopicRequest) ([]string, error)
	ExtractQuestions(ctx context.Context, owner string, paper Attachment) ([]string, error)
	GenerateAnswer(ctx context.Context, owner string, question string) (string, error)
	// AnswerFromSyllabus answers a user-authored question from the last
	// uploaded syllabus of owner.
	AnswerFromSyllabus(ctx context.Context, owner string, question string) (string, error)
}

// ExportQuestion is one question as sent to the document renderer.
type ExportQuestion struct {
	Question string   `json:"question"`
	Marks    *float64 `json:"marks"`
	Answer   string   `json:"answer,omitempty"`
}

// Artifact is a downloadable export.
type Artifact struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Exporter renders a question list into a document.
type Exporter interface {
	Export(ctx context.Context, questions []ExportQuestion) (*Artifact, error)
}
