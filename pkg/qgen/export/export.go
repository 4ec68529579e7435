// Package export hands the current question list to a document renderer.
package export

import (
	"context"

	"qnagen-be/pkg/qgen"
)

type Adapter struct {
	exporter qgen.Exporter
	logger   qgen.Logger
}

func New(exporter qgen.Exporter, logger qgen.Logger) *Adapter {
	if logger == nil {
		logger = qgen.NopLogger()
	}
	return &Adapter{exporter: exporter, logger: logger}
}

// Payload serializes items in order. Answers are carried only when Ready.
func Payload(items []qgen.QuestionItem) []qgen.ExportQuestion {
	out := make([]qgen.ExportQuestion, 0, len(items))
	for _, it := range items {
		q := qgen.ExportQuestion{Question: it.Text, Marks: it.Weight}
		if it.Answer.Status == qgen.AnswerReady {
			q.Answer = it.Answer.Text
		}
		out = append(out, q)
	}
	return out
}

// ExportCurrent renders the session's current result set. A failure never
// touches the session.
func (a *Adapter) ExportCurrent(ctx context.Context, sess *qgen.Session) (*qgen.Artifact, error) {
	items := sess.Items()
	if len(items) == 0 {
		return nil, qgen.InvalidInput("There are no questions to export.")
	}
	art, err := a.exporter.Export(ctx, Payload(items))
	if err != nil {
		a.logger.Error("ExportAdapter", "Export failed", map[string]interface{}{
			"session_id": sess.ID, "error": err.Error(),
		})
		return nil, qgen.ExportFailed(err)
	}
	if art == nil || len(art.Data) == 0 {
		return nil, qgen.ExportFailed(nil)
	}
	return art, nil
}
