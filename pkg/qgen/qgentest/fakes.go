// Package qgentest provides in-memory collaborators for tests of the
// generation workflow.
package qgentest

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"qnagen-be/pkg/qgen"
)

// Service is a scriptable qgen.Service. Nil hooks return canned defaults.
type Service struct {
	mu    sync.Mutex
	calls map[string]int
	log   []string

	UploadFn     func(ctx context.Context, owner string, file qgen.Attachment) error
	TextFn       func(ctx context.Context, owner string, req qgen.TextRequest) ([]string, error)
	TopicFn      func(ctx context.Context, owner string, req qgen.TopicRequest) ([]string, error)
	ExtractFn    func(ctx context.Context, owner string, paper qgen.Attachment) ([]string, error)
	AnswerFn     func(ctx context.Context, owner string, question string) (string, error)
	ListAnswerFn func(ctx context.Context, owner string, question string) (string, error)
}

func NewService() *Service {
	return &Service{calls: make(map[string]int)}
}

func (s *Service) record(name string) {
	s.mu.Lock()
	s.calls[name]++
	s.log = append(s.log, name)
	s.mu.Unlock()
}

// Calls returns how often the named operation ran.
func (s *Service) Calls(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[name]
}

// Total is the number of calls across all operations.
func (s *Service) Total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.log)
}

// Log returns operation names in call order.
func (s *Service) Log() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func (s *Service) UploadSyllabus(ctx context.Context, owner string, file qgen.Attachment) error {
	s.record("upload")
	if s.UploadFn != nil {
		return s.UploadFn(ctx, owner, file)
	}
	return nil
}

func (s *Service) GenerateFromText(ctx context.Context, owner string, req qgen.TextRequest) ([]string, error) {
	s.record("text")
	if s.TextFn != nil {
		return s.TextFn(ctx, owner, req)
	}
	out := make([]string, req.DesiredCount)
	for i := range out {
		out[i] = "Question about " + req.Text
	}
	return out, nil
}

func (s *Service) GenerateForTopic(ctx context.Context, owner string, req qgen.TopicRequest) ([]string, error) {
	s.record("topic:" + req.Topic)
	if s.TopicFn != nil {
		return s.TopicFn(ctx, owner, req)
	}
	out := make([]string, req.DesiredCount)
	for i := range out {
		out[i] = req.Topic + " question"
	}
	return out, nil
}

func (s *Service) ExtractQuestions(ctx context.Context, owner string, paper qgen.Attachment) ([]string, error) {
	s.record("extract")
	if s.ExtractFn != nil {
		return s.ExtractFn(ctx, owner, paper)
	}
	return []string{"Extracted question"}, nil
}

func (s *Service) GenerateAnswer(ctx context.Context, owner string, question string) (string, error) {
	s.record("answer")
	if s.AnswerFn != nil {
		return s.AnswerFn(ctx, owner, question)
	}
	return "Answer to " + question, nil
}

func (s *Service) AnswerFromSyllabus(ctx context.Context, owner string, question string) (string, error) {
	s.record("list-answer")
	if s.ListAnswerFn != nil {
		return s.ListAnswerFn(ctx, owner, question)
	}
	return "Syllabus answer to " + question, nil
}

// Ledger is an in-memory qgen.Ledger that also supports refunds.
type Ledger struct {
	mu      sync.Mutex
	grant   int
	entries map[uuid.UUID]*qgen.Snapshot
	debits  int

	// LoadErr and DebitErr, when set, are returned by the next calls.
	LoadErr  error
	DebitErr error
}

func NewLedger(startingGrant int) *Ledger {
	return &Ledger{grant: startingGrant, entries: make(map[uuid.UUID]*qgen.Snapshot)}
}

// Put seeds an entry.
func (l *Ledger) Put(userID uuid.UUID, balance int, expiry *time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries[userID] = &qgen.Snapshot{UserID: userID, CreditBalance: balance, SubscriptionExpiry: expiry}
}

// Balance returns the stored balance, or -1 for an unknown user.
func (l *Ledger) Balance(userID uuid.UUID) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if e, ok := l.entries[userID]; ok {
		return e.CreditBalance
	}
	return -1
}

// Debits counts successful debit writes.
func (l *Ledger) Debits() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.debits
}

func (l *Ledger) Load(_ context.Context, userID uuid.UUID) (qgen.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.LoadErr != nil {
		return qgen.Snapshot{}, l.LoadErr
	}
	e, ok := l.entries[userID]
	if !ok {
		e = &qgen.Snapshot{UserID: userID, CreditBalance: l.grant}
		l.entries[userID] = e
	}
	return *e, nil
}

func (l *Ledger) Debit(_ context.Context, userID uuid.UUID, amount int) (qgen.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.DebitErr != nil {
		return qgen.Snapshot{}, l.DebitErr
	}
	e, ok := l.entries[userID]
	if !ok || e.CreditBalance < amount {
		return qgen.Snapshot{}, qgen.ErrInsufficientCredit
	}
	e.CreditBalance -= amount
	l.debits++
	return *e, nil
}

func (l *Ledger) Refund(_ context.Context, userID uuid.UUID, amount int, _ string) (qgen.Snapshot, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.entries[userID]
	if !ok {
		return qgen.Snapshot{}, qgen.NotFound("User")
	}
	e.CreditBalance += amount
	return *e, nil
}

// SignIn creates a session already observing a signed-in user.
func SignIn(sessionID string, userID uuid.UUID) *qgen.Session {
	s := qgen.NewSession(sessionID)
	s.Auth().Set(&qgen.Identity{UserID: userID, Email: "student@example.com"})
	return s
}
