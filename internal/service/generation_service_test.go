package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/repository/memory"
	ws "qnagen-be/internal/websocket"
	"qnagen-be/pkg/qgen"
	"qnagen-be/pkg/qgen/answer"
	"qnagen-be/pkg/qgen/export"
	"qnagen-be/pkg/qgen/orchestrator"
	"qnagen-be/pkg/qgen/qgentest"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type exporterFunc func(ctx context.Context, questions []qgen.ExportQuestion) (*qgen.Artifact, error)

func (f exporterFunc) Export(ctx context.Context, questions []qgen.ExportQuestion) (*qgen.Artifact, error) {
	return f(ctx, questions)
}

type generationFixture struct {
	backend  *qgentest.Service
	ledger   *qgentest.Ledger
	notifier *recordingNotifier
	answers  *answer.Controller
	exported []qgen.ExportQuestion
	service  IGenerationService
}

func newGenerationFixture(grant int) *generationFixture {
	f := &generationFixture{
		backend:  qgentest.NewService(),
		ledger:   qgentest.NewLedger(grant),
		notifier: &recordingNotifier{},
	}
	log := logger.NewNopLogger()
	orch := orchestrator.New(f.backend, f.ledger, orchestrator.Config{CallTimeout: time.Second})
	f.answers = answer.New(f.backend, time.Second, answer.WithNotifier(AnswerNotifier(f.notifier)))
	exp := export.New(exporterFunc(func(_ context.Context, qs []qgen.ExportQuestion) (*qgen.Artifact, error) {
		f.exported = qs
		return &qgen.Artifact{FileName: "questions.docx", ContentType: "application/octet-stream", Data: []byte("doc")}, nil
	}), log)
	f.service = NewGenerationService(memory.NewSessionRepository(time.Hour), f.ledger, orch, f.answers, exp, f.notifier, log)
	return f
}

func (f *generationFixture) freeTextSession(t *testing.T, ident *qgen.Identity) string {
	t.Helper()
	ctx := context.Background()
	sess, err := f.service.CreateSession(ctx, ident)
	require.NoError(t, err)
	_, err = f.service.SetFreeText(ctx, sess.Id, ident, &dto.SetFreeTextRequest{Text: "photosynthesis", DesiredCount: 3})
	require.NoError(t, err)
	return sess.Id
}

func signedIn() *qgen.Identity {
	return &qgen.Identity{UserID: uuid.New(), Email: "student@example.com"}
}

func TestGenerationService_AnonymousGenerateAsksForLogin(t *testing.T) {
	f := newGenerationFixture(2)
	id := f.freeTextSession(t, nil)

	_, err := f.service.Generate(context.Background(), id, nil)
	assert.True(t, qgen.IsKind(err, qgen.KindNotAuthenticated))
	assert.Equal(t, 0, f.backend.Total())

	view, err := f.service.GetSession(context.Background(), id, nil)
	require.NoError(t, err)
	assert.True(t, view.LoginPrompt)
	assert.False(t, view.Authenticated)
	assert.Nil(t, view.Credits)
}

func TestGenerationService_GenerateDebitsAndPushesBalance(t *testing.T) {
	f := newGenerationFixture(2)
	ident := signedIn()
	id := f.freeTextSession(t, ident)

	view, err := f.service.Generate(context.Background(), id, ident)
	require.NoError(t, err)
	assert.Len(t, view.Items, 3)
	require.NotNil(t, view.Credits)
	assert.Equal(t, 1, *view.Credits)
	assert.Equal(t, 1, f.ledger.Balance(ident.UserID))
	assert.Equal(t, 1, f.backend.Calls("text"))

	pushed := f.notifier.ofType(ws.EventLedgerUpdated)
	require.Len(t, pushed, 1)
	assert.Equal(t, id, pushed[0].SessionID)
	assert.Equal(t, 1, pushed[0].Data.(dto.CreditBalanceResponse).Credits)
}

func TestGenerationService_QuotaExhausted(t *testing.T) {
	f := newGenerationFixture(0)
	ident := signedIn()
	id := f.freeTextSession(t, ident)

	_, err := f.service.Generate(context.Background(), id, ident)
	assert.True(t, qgen.IsKind(err, qgen.KindQuotaExhausted))
	assert.Equal(t, 0, f.backend.Total())
	assert.Equal(t, 0, f.ledger.Debits())
}

func TestGenerationService_ActiveSubscriptionSkipsDebit(t *testing.T) {
	f := newGenerationFixture(0)
	ident := signedIn()
	expiry := time.Now().Add(24 * time.Hour)
	f.ledger.Put(ident.UserID, 0, &expiry)
	id := f.freeTextSession(t, ident)

	view, err := f.service.Generate(context.Background(), id, ident)
	require.NoError(t, err)
	assert.Len(t, view.Items, 3)
	assert.True(t, view.SubscriptionActive)
	assert.Equal(t, 0, f.ledger.Debits())
}

func TestGenerationService_FailedAttemptClearsItemsAndKeepsDebit(t *testing.T) {
	f := newGenerationFixture(5)
	ident := signedIn()
	id := f.freeTextSession(t, ident)
	ctx := context.Background()

	first, err := f.service.Generate(ctx, id, ident)
	require.NoError(t, err)
	require.Len(t, first.Items, 3)

	f.backend.TextFn = func(context.Context, string, qgen.TextRequest) ([]string, error) {
		return nil, errors.New("boom")
	}
	_, err = f.service.Generate(ctx, id, ident)
	assert.True(t, qgen.IsKind(err, qgen.KindServiceUnavailable))

	view, err := f.service.GetSession(ctx, id, ident)
	require.NoError(t, err)
	assert.Empty(t, view.Items)
	require.NotNil(t, view.Credits)
	assert.Equal(t, 3, *view.Credits)
}

func TestGenerationService_SignedInWorkspaceRecordsEmail(t *testing.T) {
	store := newMemStore()
	credits := newTestCreditService(store, nil, 1, time.Now())
	log := logger.NewNopLogger()
	backend := qgentest.NewService()
	svc := NewGenerationService(
		memory.NewSessionRepository(time.Hour),
		credits,
		orchestrator.New(backend, credits, orchestrator.Config{CallTimeout: time.Second}),
		answer.New(backend, time.Second),
		export.New(exporterFunc(func(context.Context, []qgen.ExportQuestion) (*qgen.Artifact, error) { return nil, nil }), log),
		nil,
		log,
	)
	ident := signedIn()

	view, err := svc.CreateSession(context.Background(), ident)
	require.NoError(t, err)
	require.NotNil(t, view.Credits)
	assert.Equal(t, 1, *view.Credits)

	user := store.user(ident.UserID)
	require.NotNil(t, user)
	assert.Equal(t, "student@example.com", user.Email)
}

func TestGenerationService_UnknownSession(t *testing.T) {
	f := newGenerationFixture(1)
	_, err := f.service.GetSession(context.Background(), "missing", nil)
	assert.True(t, qgen.IsKind(err, qgen.KindNotFound))
	assert.False(t, f.service.Exists("missing"))
}

func TestGenerationService_FormEditing(t *testing.T) {
	f := newGenerationFixture(1)
	ctx := context.Background()
	sess, err := f.service.CreateSession(ctx, nil)
	require.NoError(t, err)
	assert.True(t, f.service.Exists(sess.Id))

	_, err = f.service.SetMode(ctx, sess.Id, nil, &dto.SetModeRequest{Mode: "poetry"})
	assert.True(t, qgen.IsKind(err, qgen.KindInvalidInput))

	view, err := f.service.SetMode(ctx, sess.Id, nil, &dto.SetModeRequest{Mode: "syllabus_topics"})
	require.NoError(t, err)
	assert.Equal(t, qgen.ModeSyllabusTopics, view.Mode)

	view, err = f.service.SetTypes(ctx, sess.Id, nil, &dto.SetTypesRequest{Type: "mcq"})
	require.NoError(t, err)
	assert.True(t, view.Form.Types.MultipleChoice)
	assert.False(t, view.Form.Types.ShortAnswer)

	yes := true
	view, err = f.service.SetTypes(ctx, sess.Id, nil, &dto.SetTypesRequest{LongAnswer: &yes})
	require.NoError(t, err)
	assert.True(t, view.Form.Types.MultipleChoice)
	assert.True(t, view.Form.Types.LongAnswer)

	name, count, weight := "Cells", 2, 4.0
	topic, err := f.service.AddTopic(ctx, sess.Id, nil, &dto.TopicRequest{Name: &name, Weight: &weight})
	require.NoError(t, err)
	assert.Equal(t, 5, topic.DesiredCount)
	assert.True(t, topic.Selected)

	topic, err = f.service.UpdateTopic(ctx, sess.Id, nil, topic.Id, &dto.TopicRequest{DesiredCount: &count, ClearWeight: true})
	require.NoError(t, err)
	assert.Equal(t, 2, topic.DesiredCount)
	assert.Nil(t, topic.Weight)

	require.NoError(t, f.service.RemoveTopic(ctx, sess.Id, nil, topic.Id))
	assert.True(t, qgen.IsKind(f.service.RemoveTopic(ctx, sess.Id, nil, topic.Id), qgen.KindNotFound))

	text := "What is osmosis?"
	entry, err := f.service.AddListQuestion(ctx, sess.Id, nil, &dto.ListQuestionRequest{Text: &text})
	require.NoError(t, err)
	assert.True(t, entry.Selected)

	no := false
	entry, err = f.service.UpdateListQuestion(ctx, sess.Id, nil, entry.Id, &dto.ListQuestionRequest{Selected: &no})
	require.NoError(t, err)
	assert.False(t, entry.Selected)
	assert.Equal(t, text, entry.Text)
	require.NoError(t, f.service.RemoveListQuestion(ctx, sess.Id, nil, entry.Id))
}

func TestGenerationService_SetAttachment(t *testing.T) {
	f := newGenerationFixture(1)
	ctx := context.Background()
	sess, err := f.service.CreateSession(ctx, nil)
	require.NoError(t, err)

	_, err = f.service.SetAttachment(ctx, sess.Id, nil, "question_paper", qgen.Attachment{FileName: "empty.pdf"})
	assert.True(t, qgen.IsKind(err, qgen.KindInvalidInput))

	_, err = f.service.SetAttachment(ctx, sess.Id, nil, "nope", qgen.Attachment{FileName: "a.pdf", Data: []byte("x")})
	assert.True(t, qgen.IsKind(err, qgen.KindInvalidInput))

	view, err := f.service.SetAttachment(ctx, sess.Id, nil, "question_paper", qgen.Attachment{FileName: "paper.pdf", Data: []byte("%PDF")})
	require.NoError(t, err)
	require.NotNil(t, view.Form.QuestionPaper.File)
	assert.Equal(t, "paper.pdf", view.Form.QuestionPaper.File.FileName)
	assert.Equal(t, 4, view.Form.QuestionPaper.File.Size)
}

func TestGenerationService_AnswerLifecycle(t *testing.T) {
	f := newGenerationFixture(1)
	ident := signedIn()
	id := f.freeTextSession(t, ident)
	ctx := context.Background()

	view, err := f.service.Generate(ctx, id, ident)
	require.NoError(t, err)
	qid := view.Items[0].Id

	res, err := f.service.RequestAnswer(ctx, id, ident, qid)
	require.NoError(t, err)
	assert.Equal(t, qgen.AnswerPending, res.Answer.Status)
	f.answers.Wait()

	pushed := f.notifier.ofType(ws.EventAnswerUpdated)
	require.Len(t, pushed, 2)
	assert.Equal(t, qgen.AnswerReady, pushed[1].Data.(dto.AnswerResponse).Answer.Status)

	res, err = f.service.RequestAnswer(ctx, id, ident, qid)
	require.NoError(t, err)
	assert.Equal(t, qgen.AnswerReady, res.Answer.Status)
	assert.Equal(t, 1, f.backend.Calls("answer"))

	res, err = f.service.Collapse(ctx, id, ident, qid)
	require.NoError(t, err)
	assert.Equal(t, qgen.AnswerIdle, res.Answer.Status)

	_, err = f.service.RequestAnswer(ctx, id, ident, uuid.New())
	assert.True(t, qgen.IsKind(err, qgen.KindNotFound))
}

func TestGenerationService_Export(t *testing.T) {
	f := newGenerationFixture(1)
	ident := signedIn()
	id := f.freeTextSession(t, ident)
	ctx := context.Background()

	_, err := f.service.Export(ctx, id, ident)
	assert.True(t, qgen.IsKind(err, qgen.KindInvalidInput))

	_, err = f.service.Generate(ctx, id, ident)
	require.NoError(t, err)

	art, err := f.service.Export(ctx, id, ident)
	require.NoError(t, err)
	assert.Equal(t, "questions.docx", art.FileName)
	assert.Len(t, f.exported, 3)
}

func TestGenerationService_RefreshUser(t *testing.T) {
	f := newGenerationFixture(1)
	ident := signedIn()
	id := f.freeTextSession(t, ident)
	other := f.freeTextSession(t, nil)
	ctx := context.Background()

	f.ledger.Put(ident.UserID, 40, nil)
	require.NoError(t, f.service.RefreshUser(ctx, ident.UserID))

	pushed := f.notifier.ofType(ws.EventLedgerUpdated)
	require.Len(t, pushed, 1)
	assert.Equal(t, id, pushed[0].SessionID)

	view, err := f.service.GetSession(ctx, id, ident)
	require.NoError(t, err)
	assert.Equal(t, 40, *view.Credits)

	view, err = f.service.GetSession(ctx, other, nil)
	require.NoError(t, err)
	assert.Nil(t, view.Credits)

	assert.NoError(t, f.service.RefreshUser(ctx, uuid.New()))
}

func TestGenerationService_SignOut(t *testing.T) {
	f := newGenerationFixture(1)
	ident := signedIn()
	id := f.freeTextSession(t, ident)

	view, err := f.service.SignOut(context.Background(), id)
	require.NoError(t, err)
	assert.False(t, view.Authenticated)
	assert.Nil(t, view.Credits)

	_, err = f.service.SignOut(context.Background(), "missing")
	assert.True(t, qgen.IsKind(err, qgen.KindNotFound))
}
