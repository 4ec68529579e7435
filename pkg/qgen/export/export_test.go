package export

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"qnagen-be/pkg/qgen"
)

type exporterFunc func(ctx context.Context, qs []qgen.ExportQuestion) (*qgen.Artifact, error)

func (f exporterFunc) Export(ctx context.Context, qs []qgen.ExportQuestion) (*qgen.Artifact, error) {
	return f(ctx, qs)
}

func sessionWith(t *testing.T, items []qgen.QuestionItem) *qgen.Session {
	t.Helper()
	sess := qgen.NewSession("tab")
	require.True(t, sess.Commit(sess.BeginAttempt(), items))
	return sess
}

func TestPayload_OnlyReadyAnswers(t *testing.T) {
	w := 4.0
	items := qgen.NewItems([]string{"a", "b", "c", "d"}, "Cells", &w)
	items[0].Answer = qgen.Ready("answer a")
	items[1].Answer = qgen.Pending()
	items[2].Answer = qgen.Failed("nope")

	got := Payload(items)
	require.Len(t, got, 4)
	assert.Equal(t, "answer a", got[0].Answer)
	assert.Empty(t, got[1].Answer)
	assert.Empty(t, got[2].Answer)
	assert.Empty(t, got[3].Answer)
	assert.Equal(t, 4.0, *got[3].Marks)
	assert.Equal(t, "d", got[3].Question)
}

func TestExportCurrent(t *testing.T) {
	items := qgen.NewItems([]string{"Q1", "Q2"}, "", nil)
	items[1].Answer = qgen.Ready("A2")
	sess := sessionWith(t, items)

	var sent []qgen.ExportQuestion
	a := New(exporterFunc(func(_ context.Context, qs []qgen.ExportQuestion) (*qgen.Artifact, error) {
		sent = qs
		return &qgen.Artifact{FileName: "questions.pdf", ContentType: "application/pdf", Data: []byte("%PDF")}, nil
	}), nil)

	art, err := a.ExportCurrent(context.Background(), sess)
	require.NoError(t, err)
	assert.Equal(t, "questions.pdf", art.FileName)
	require.Len(t, sent, 2)
	assert.Equal(t, "A2", sent[1].Answer)
}

func TestExportCurrent_FailureLeavesSessionUntouched(t *testing.T) {
	sess := sessionWith(t, qgen.NewItems([]string{"Q1"}, "", nil))
	before := sess.Items()

	a := New(exporterFunc(func(context.Context, []qgen.ExportQuestion) (*qgen.Artifact, error) {
		return nil, errors.New("status 500")
	}), nil)

	_, err := a.ExportCurrent(context.Background(), sess)
	assert.True(t, qgen.IsKind(err, qgen.KindExportFailed))
	assert.Equal(t, before, sess.Items())

	empty := New(exporterFunc(func(context.Context, []qgen.ExportQuestion) (*qgen.Artifact, error) {
		return &qgen.Artifact{}, nil
	}), nil)
	_, err = empty.ExportCurrent(context.Background(), sess)
	assert.True(t, qgen.IsKind(err, qgen.KindExportFailed))
}

func TestExportCurrent_NothingToExport(t *testing.T) {
	a := New(exporterFunc(func(context.Context, []qgen.ExportQuestion) (*qgen.Artifact, error) {
		t.Fatal("exporter must not be called")
		return nil, nil
	}), nil)

	_, err := a.ExportCurrent(context.Background(), qgen.NewSession("tab"))
	assert.True(t, qgen.IsKind(err, qgen.KindInvalidInput))
}
