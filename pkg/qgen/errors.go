package qgen

import (
	"errors"
	"fmt"
)

// ErrorKind classifies every failure the workflow can report.
type ErrorKind string

const (
	KindNotAuthenticated        ErrorKind = "not_authenticated"
	KindQuotaExhausted          ErrorKind = "quota_exhausted"
	KindInvalidInput            ErrorKind = "invalid_input"
	KindUploadFailed            ErrorKind = "upload_failed"
	KindPartialGenerationFailed ErrorKind = "partial_generation_failed"
	KindServiceUnavailable      ErrorKind = "service_unavailable"
	KindExportFailed            ErrorKind = "export_failed"
	KindMultipleChoiceRefused   ErrorKind = "multiple_choice_refused"
	KindNotFound                ErrorKind = "not_found"
	KindSuperseded              ErrorKind = "superseded"
)

// Error is the single error type surfaced by the orchestration packages.
type Error struct {
	Kind ErrorKind
	// Topic names the failing topic (or question) of a multi-request attempt.
	Topic   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := e.UserMessage()
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, msg)
}

func (e *Error) Unwrap() error { return e.Err }

// UserMessage is the human-readable text shown to the caller.
func (e *Error) UserMessage() string {
	if e.Message != "" {
		return e.Message
	}
	switch e.Kind {
	case KindNotAuthenticated:
		return "Please sign in to generate questions."
	case KindQuotaExhausted:
		return "You have no credits left. Please subscribe to continue."
	case KindUploadFailed:
		return "Upload failed."
	case KindPartialGenerationFailed:
		return fmt.Sprintf("Generation failed for %s", e.Topic)
	case KindServiceUnavailable:
		return "Generation failed."
	case KindExportFailed:
		return "Failed to export questions."
	case KindMultipleChoiceRefused:
		return "Answers are not generated for multiple-choice questions."
	case KindNotFound:
		return "Not found."
	case KindSuperseded:
		return "A newer generation replaced this one."
	}
	return "Invalid input."
}

func newError(kind ErrorKind, msg string, err error) *Error {
	return &Error{Kind: kind, Message: msg, Err: err}
}

func NotAuthenticated() *Error { return newError(KindNotAuthenticated, "", nil) }

func QuotaExhausted() *Error { return newError(KindQuotaExhausted, "", nil) }

func InvalidInput(format string, args ...any) *Error {
	return newError(KindInvalidInput, fmt.Sprintf(format, args...), nil)
}

func UploadFailed(err error) *Error { return newError(KindUploadFailed, "", err) }

func PartialGenerationFailed(topic string, err error) *Error {
	return &Error{Kind: KindPartialGenerationFailed, Topic: topic, Err: err}
}

func ServiceUnavailable(msg string, err error) *Error {
	return newError(KindServiceUnavailable, msg, err)
}

func ExportFailed(err error) *Error { return newError(KindExportFailed, "", err) }

func MultipleChoiceRefused() *Error { return newError(KindMultipleChoiceRefused, "", nil) }

func NotFound(what string) *Error {
	return newError(KindNotFound, fmt.Sprintf("%s not found.", what), nil)
}

func Superseded() *Error { return newError(KindSuperseded, "", nil) }

// KindOf returns the kind of a qgen error anywhere in err's chain, or "".
func KindOf(err error) ErrorKind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given kind.
func IsKind(err error, kind ErrorKind) bool {
	return err != nil && KindOf(err) == kind
}
