package service

import (
	"context"
	"time"

	"qnagen-be/internal/dto"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/repository/memory"
	ws "qnagen-be/internal/websocket"
	"qnagen-be/pkg/qgen"
	"qnagen-be/pkg/qgen/answer"
	"qnagen-be/pkg/qgen/export"
	"qnagen-be/pkg/qgen/orchestrator"

	"github.com/google/uuid"
)

const generationModule = "GenerationService"

// SessionNotifier pushes an event to every listener of a workspace.
// *websocket.Hub satisfies it.
type SessionNotifier interface {
	Send(sessionID, eventType string, data interface{})
}

// contactRecorder is implemented by ledgers that persist the user's email.
type contactRecorder interface {
	Touch(ctx context.Context, userId uuid.UUID, email string) (qgen.Snapshot, error)
}

type IGenerationService interface {
	CreateSession(ctx context.Context, ident *qgen.Identity) (*dto.SessionResponse, error)
	GetSession(ctx context.Context, sessionId string, ident *qgen.Identity) (*dto.SessionResponse, error)
	Exists(sessionId string) bool
	SetMode(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.SetModeRequest) (*dto.SessionResponse, error)
	SetTypes(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.SetTypesRequest) (*dto.SessionResponse, error)
	SetFreeText(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.SetFreeTextRequest) (*dto.SessionResponse, error)
	AddTopic(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.TopicRequest) (*dto.TopicResponse, error)
	UpdateTopic(ctx context.Context, sessionId string, ident *qgen.Identity, topicId uuid.UUID, req *dto.TopicRequest) (*dto.TopicResponse, error)
	RemoveTopic(ctx context.Context, sessionId string, ident *qgen.Identity, topicId uuid.UUID) error
	AddListQuestion(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.ListQuestionRequest) (*dto.ListQuestionResponse, error)
	UpdateListQuestion(ctx context.Context, sessionId string, ident *qgen.Identity, entryId uuid.UUID, req *dto.ListQuestionRequest) (*dto.ListQuestionResponse, error)
	RemoveListQuestion(ctx context.Context, sessionId string, ident *qgen.Identity, entryId uuid.UUID) error
	SetAttachment(ctx context.Context, sessionId string, ident *qgen.Identity, mode string, file qgen.Attachment) (*dto.SessionResponse, error)
	Generate(ctx context.Context, sessionId string, ident *qgen.Identity) (*dto.SessionResponse, error)
	RequestAnswer(ctx context.Context, sessionId string, ident *qgen.Identity, questionId uuid.UUID) (*dto.AnswerResponse, error)
	Collapse(ctx context.Context, sessionId string, ident *qgen.Identity, questionId uuid.UUID) (*dto.AnswerResponse, error)
	Export(ctx context.Context, sessionId string, ident *qgen.Identity) (*qgen.Artifact, error)
	SignOut(ctx context.Context, sessionId string) (*dto.SessionResponse, error)
	// RefreshUser reloads the ledger snapshot of every workspace signed in
	// as userId and pushes it to their listeners.
	RefreshUser(ctx context.Context, userId uuid.UUID) error
}

type generationService struct {
	sessions     *memory.SessionRepository
	ledger       qgen.Ledger
	orchestrator *orchestrator.Orchestrator
	answers      *answer.Controller
	exporter     *export.Adapter
	notifier     SessionNotifier
	logger       logger.ILogger
	now          func() time.Time
}

func NewGenerationService(
	sessions *memory.SessionRepository,
	ledger qgen.Ledger,
	orch *orchestrator.Orchestrator,
	answers *answer.Controller,
	exporter *export.Adapter,
	notifier SessionNotifier,
	logger logger.ILogger,
) IGenerationService {
	return &generationService{
		sessions:     sessions,
		ledger:       ledger,
		orchestrator: orch,
		answers:      answers,
		exporter:     exporter,
		notifier:     notifier,
		logger:       logger,
		now:          time.Now,
	}
}

// AnswerNotifier adapts a SessionNotifier to the answer controller's
// callback, one event per state change.
func AnswerNotifier(n SessionNotifier) answer.Notifier {
	return func(sessionID string, itemID uuid.UUID, state qgen.AnswerState) {
		n.Send(sessionID, ws.EventAnswerUpdated, dto.AnswerResponse{QuestionId: itemID, Answer: state})
	}
}

func (s *generationService) CreateSession(ctx context.Context, ident *qgen.Identity) (*dto.SessionResponse, error) {
	sess := qgen.NewSession(uuid.NewString())
	s.sessions.Save(sess)
	s.observe(ctx, sess, ident)

	s.logger.Info(generationModule, "Workspace created", map[string]interface{}{
		"session_id": sess.ID, "authenticated": ident != nil,
	})
	return s.view(sess), nil
}

func (s *generationService) GetSession(ctx context.Context, sessionId string, ident *qgen.Identity) (*dto.SessionResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	return s.view(sess), nil
}

func (s *generationService) Exists(sessionId string) bool {
	_, ok := s.sessions.Get(sessionId)
	return ok
}

func (s *generationService) SetMode(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.SetModeRequest) (*dto.SessionResponse, error) {
	mode, err := qgen.ParseMode(req.Mode)
	if err != nil {
		return nil, qgen.InvalidInput("Unknown mode %q.", req.Mode)
	}
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	sess.SetMode(mode)
	return s.view(sess), nil
}

func (s *generationService) SetTypes(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.SetTypesRequest) (*dto.SessionResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}

	var flags qgen.TypeFlags
	if req.Type != "" {
		t, err := qgen.ParseQuestionType(req.Type)
		if err != nil {
			return nil, qgen.InvalidInput("Unknown question type %q.", req.Type)
		}
		flags = qgen.SingleType(t)
	} else {
		flags = sess.Form().Types
		if req.MultipleChoice != nil {
			flags.MultipleChoice = *req.MultipleChoice
		}
		if req.ShortAnswer != nil {
			flags.ShortAnswer = *req.ShortAnswer
		}
		if req.LongAnswer != nil {
			flags.LongAnswer = *req.LongAnswer
		}
	}
	sess.SetTypes(flags)
	return s.view(sess), nil
}

func (s *generationService) SetFreeText(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.SetFreeTextRequest) (*dto.SessionResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	sess.SetFreeText(req.Text, req.DesiredCount)
	return s.view(sess), nil
}

func (s *generationService) AddTopic(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.TopicRequest) (*dto.TopicResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}

	topic := qgen.TopicSpec{DesiredCount: 5, Selected: true}
	if req.Name != nil {
		topic.Name = *req.Name
	}
	if req.DesiredCount != nil {
		topic.DesiredCount = *req.DesiredCount
	}
	if req.Weight != nil && !req.ClearWeight {
		w := *req.Weight
		topic.Weight = &w
	}
	if req.Selected != nil {
		topic.Selected = *req.Selected
	}

	res := dto.NewTopicResponse(sess.AddTopic(topic))
	return &res, nil
}

func (s *generationService) UpdateTopic(ctx context.Context, sessionId string, ident *qgen.Identity, topicId uuid.UUID, req *dto.TopicRequest) (*dto.TopicResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	topic, err := sess.UpdateTopic(topicId, qgen.TopicPatch{
		Name:         req.Name,
		DesiredCount: req.DesiredCount,
		Weight:       req.Weight,
		ClearWeight:  req.ClearWeight,
		Selected:     req.Selected,
	})
	if err != nil {
		return nil, err
	}
	res := dto.NewTopicResponse(topic)
	return &res, nil
}

func (s *generationService) RemoveTopic(ctx context.Context, sessionId string, ident *qgen.Identity, topicId uuid.UUID) error {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return err
	}
	return sess.RemoveTopic(topicId)
}

func (s *generationService) AddListQuestion(ctx context.Context, sessionId string, ident *qgen.Identity, req *dto.ListQuestionRequest) (*dto.ListQuestionResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	text := ""
	if req.Text != nil {
		text = *req.Text
	}
	selected := true
	if req.Selected != nil {
		selected = *req.Selected
	}
	res := dto.NewListQuestionResponse(sess.AddListQuestion(text, selected))
	return &res, nil
}

func (s *generationService) UpdateListQuestion(ctx context.Context, sessionId string, ident *qgen.Identity, entryId uuid.UUID, req *dto.ListQuestionRequest) (*dto.ListQuestionResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	entry, err := sess.UpdateListQuestion(entryId, req.Text, req.Selected)
	if err != nil {
		return nil, err
	}
	res := dto.NewListQuestionResponse(entry)
	return &res, nil
}

func (s *generationService) RemoveListQuestion(ctx context.Context, sessionId string, ident *qgen.Identity, entryId uuid.UUID) error {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return err
	}
	return sess.RemoveListQuestion(entryId)
}

func (s *generationService) SetAttachment(ctx context.Context, sessionId string, ident *qgen.Identity, mode string, file qgen.Attachment) (*dto.SessionResponse, error) {
	m, err := qgen.ParseMode(mode)
	if err != nil {
		return nil, qgen.InvalidInput("Unknown mode %q.", mode)
	}
	if file.Empty() {
		return nil, qgen.InvalidInput("The uploaded file is empty.")
	}
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	if err := sess.SetAttachment(m, &file); err != nil {
		return nil, err
	}

	s.logger.Info(generationModule, "Attachment stored", map[string]interface{}{
		"session_id": sess.ID, "mode": string(m), "file_name": file.FileName, "size": len(file.Data),
	})
	return s.view(sess), nil
}

// Generate runs one attempt. The resulting ledger snapshot is pushed to
// listeners whether or not the attempt succeeded, since a failed attempt
// may still have spent a credit.
func (s *generationService) Generate(ctx context.Context, sessionId string, ident *qgen.Identity) (*dto.SessionResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	before := sess.User()

	_, err = s.orchestrator.Attempt(ctx, sess)

	if after := sess.User(); after != nil && (before == nil || before.CreditBalance != after.CreditBalance) {
		s.pushLedger(sess.ID, *after)
	}
	if err != nil {
		s.logger.Info(generationModule, "Generation attempt failed", map[string]interface{}{
			"session_id": sess.ID, "kind": string(qgen.KindOf(err)), "error": err.Error(),
		})
		return nil, err
	}
	return s.view(sess), nil
}

func (s *generationService) RequestAnswer(ctx context.Context, sessionId string, ident *qgen.Identity, questionId uuid.UUID) (*dto.AnswerResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	state, err := s.answers.Request(ctx, sess, questionId)
	if err != nil {
		return nil, err
	}
	return &dto.AnswerResponse{QuestionId: questionId, Answer: state}, nil
}

func (s *generationService) Collapse(ctx context.Context, sessionId string, ident *qgen.Identity, questionId uuid.UUID) (*dto.AnswerResponse, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	state, err := s.answers.Collapse(sess, questionId)
	if err != nil {
		return nil, err
	}
	return &dto.AnswerResponse{QuestionId: questionId, Answer: state}, nil
}

func (s *generationService) Export(ctx context.Context, sessionId string, ident *qgen.Identity) (*qgen.Artifact, error) {
	sess, err := s.open(ctx, sessionId, ident)
	if err != nil {
		return nil, err
	}
	return s.exporter.ExportCurrent(ctx, sess)
}

func (s *generationService) SignOut(ctx context.Context, sessionId string) (*dto.SessionResponse, error) {
	sess, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, qgen.NotFound("Session")
	}
	sess.Auth().Set(nil)
	return s.view(sess), nil
}

func (s *generationService) RefreshUser(ctx context.Context, userId uuid.UUID) error {
	sessions := s.sessions.ForUser(userId)
	if len(sessions) == 0 {
		return nil
	}
	snap, err := s.ledger.Load(ctx, userId)
	if err != nil {
		return err
	}
	for _, sess := range sessions {
		if sess.ApplySnapshot(snap) {
			s.pushLedger(sess.ID, snap)
		}
	}
	s.logger.Debug(generationModule, "Ledger snapshot refreshed", map[string]interface{}{
		"user_id": userId, "sessions": len(sessions), "credits": snap.CreditBalance,
	})
	return nil
}

// open fetches a workspace and feeds the caller's identity into its auth
// state, loading the ledger snapshot on first sight of a user.
func (s *generationService) open(ctx context.Context, sessionId string, ident *qgen.Identity) (*qgen.Session, error) {
	sess, ok := s.sessions.Get(sessionId)
	if !ok {
		return nil, qgen.NotFound("Session")
	}
	s.observe(ctx, sess, ident)
	return sess, nil
}

func (s *generationService) observe(ctx context.Context, sess *qgen.Session, ident *qgen.Identity) {
	sess.Auth().Set(ident)
	if ident == nil || sess.User() != nil {
		return
	}
	snap, err := s.load(ctx, ident)
	if err != nil {
		// The orchestrator loads again before it charges.
		s.logger.Warn(generationModule, "Failed to load ledger snapshot", map[string]interface{}{
			"session_id": sess.ID, "user_id": ident.UserID, "error": err.Error(),
		})
		return
	}
	if snap.Email == "" {
		snap.Email = ident.Email
	}
	sess.ApplySnapshot(snap)
}

func (s *generationService) load(ctx context.Context, ident *qgen.Identity) (qgen.Snapshot, error) {
	if r, ok := s.ledger.(contactRecorder); ok && ident.Email != "" {
		return r.Touch(ctx, ident.UserID, ident.Email)
	}
	return s.ledger.Load(ctx, ident.UserID)
}

func (s *generationService) view(sess *qgen.Session) *dto.SessionResponse {
	return dto.NewSessionResponse(sess.View(), s.now())
}

func (s *generationService) pushLedger(sessionId string, snap qgen.Snapshot) {
	if s.notifier == nil {
		return
	}
	s.notifier.Send(sessionId, ws.EventLedgerUpdated, dto.CreditBalanceResponse{
		UserId:                snap.UserID,
		Credits:               snap.CreditBalance,
		SubscriptionExpiresAt: snap.SubscriptionExpiry,
		SubscriptionActive:    snap.SubscriptionActive(s.now()),
	})
}
