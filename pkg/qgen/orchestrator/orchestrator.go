// Package orchestrator drives one "generate" invocation of a workspace:
// identity and quota gates, the credit debit, dispatch of the assembled
// requests and installation of the aggregated result set.
package orchestrator

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"qnagen-be/pkg/qgen"
	"qnagen-be/pkg/qgen/assembler"
)

const module = "Orchestrator"

const (
	DefaultCallTimeout = 120 * time.Second
	DefaultListWorkers = 4
	debitAmount        = 1
)

type Config struct {
	// CallTimeout bounds every call to the generation service.
	CallTimeout time.Duration
	// ValidateBeforeDebit runs the assembler ahead of the debit so malformed
	// forms never cost a credit.
	ValidateBeforeDebit bool
	// ListWorkers caps concurrent answer requests of a QuestionList attempt.
	ListWorkers int
}

type Orchestrator struct {
	service qgen.Service
	ledger  qgen.Ledger
	policy  qgen.SettlementPolicy
	logger  qgen.Logger
	cfg     Config
	now     func() time.Time
}

type Option func(*Orchestrator)

func WithPolicy(p qgen.SettlementPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

func WithLogger(l qgen.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func New(service qgen.Service, ledger qgen.Ledger, cfg Config, opts ...Option) *Orchestrator {
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = DefaultCallTimeout
	}
	if cfg.ListWorkers <= 0 {
		cfg.ListWorkers = DefaultListWorkers
	}
	o := &Orchestrator{
		service: service,
		ledger:  ledger,
		policy:  qgen.KeepDebit{},
		logger:  qgen.NopLogger(),
		cfg:     cfg,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Attempt runs one generation attempt for the session's active mode and, on
// success, installs the result as the session's new question list.
func (o *Orchestrator) Attempt(ctx context.Context, sess *qgen.Session) ([]qgen.QuestionItem, error) {
	id := sess.Auth().Current()
	if id == nil {
		sess.PromptLogin()
		return nil, qgen.NotAuthenticated()
	}

	mode := sess.Mode()
	form := sess.Form()
	log := map[string]interface{}{"session_id": sess.ID, "user_id": id.UserID.String(), "mode": string(mode)}

	var (
		plan      assembler.Plan
		assembled bool
	)
	if o.cfg.ValidateBeforeDebit {
		p, err := assembler.Assemble(mode, form)
		if err != nil {
			return nil, err
		}
		plan, assembled = p, true
	}

	debited := false
	if mode.ConsumesCredit() {
		var err error
		debited, err = o.charge(ctx, sess, id.UserID)
		if err != nil {
			o.logger.Info(module, "Attempt rejected", merge(log, map[string]interface{}{"reason": string(qgen.KindOf(err))}))
			return nil, err
		}
	}

	tok := sess.BeginAttempt()
	o.logger.Info(module, "Attempt started", merge(log, map[string]interface{}{"debited": debited}))

	if !assembled {
		p, err := assembler.Assemble(mode, form)
		if err != nil {
			return nil, o.fail(ctx, sess, id.UserID, debited, err, log)
		}
		plan = p
	}

	items, err := o.execute(ctx, sess, tok, plan)
	if err != nil {
		return nil, o.fail(ctx, sess, id.UserID, debited, err, log)
	}

	if cur := sess.Auth().Current(); cur == nil || cur.UserID != id.UserID {
		o.logger.Warn(module, "Identity changed during attempt, result dropped", log)
		return nil, o.fail(ctx, sess, id.UserID, debited, qgen.NotAuthenticated(), log)
	}
	if !sess.Commit(tok, items) {
		o.logger.Info(module, "Stale attempt result dropped", log)
		return nil, qgen.Superseded()
	}

	o.logger.Info(module, "Attempt completed", merge(log, map[string]interface{}{"questions": len(items)}))
	return items, nil
}

// charge applies the quota gate and debits one credit when there is one.
// An active subscription lets a zero balance through without a debit.
func (o *Orchestrator) charge(ctx context.Context, sess *qgen.Session, userID uuid.UUID) (bool, error) {
	snap, err := o.snapshot(ctx, sess, userID)
	if err != nil {
		return false, err
	}
	now := o.now()
	if !snap.CanAttempt(now) {
		return false, qgen.QuotaExhausted()
	}
	if snap.CreditBalance <= 0 {
		return false, nil
	}

	after, err := o.ledger.Debit(ctx, userID, debitAmount)
	if errors.Is(err, qgen.ErrInsufficientCredit) {
		// The cached balance was stale; re-read and gate again.
		fresh, lerr := o.ledger.Load(ctx, userID)
		if lerr != nil {
			return false, qgen.ServiceUnavailable("Could not load your credits.", lerr)
		}
		sess.ApplySnapshot(fresh)
		if fresh.SubscriptionActive(now) {
			return false, nil
		}
		return false, qgen.QuotaExhausted()
	}
	if err != nil {
		return false, qgen.ServiceUnavailable("Could not update your credits.", err)
	}
	sess.ApplySnapshot(after)
	o.logger.Info(module, "Credit debited", map[string]interface{}{
		"user_id": userID.String(), "balance": after.CreditBalance,
	})
	return true, nil
}

func (o *Orchestrator) snapshot(ctx context.Context, sess *qgen.Session, userID uuid.UUID) (qgen.Snapshot, error) {
	if snap := sess.User(); snap != nil && snap.UserID == userID {
		return *snap, nil
	}
	snap, err := o.ledger.Load(ctx, userID)
	if err != nil {
		return qgen.Snapshot{}, qgen.ServiceUnavailable("Could not load your credits.", err)
	}
	sess.ApplySnapshot(snap)
	return snap, nil
}

func (o *Orchestrator) fail(ctx context.Context, sess *qgen.Session, userID uuid.UUID, debited bool, cause error, log map[string]interface{}) error {
	o.logger.Warn(module, "Attempt failed", merge(log, map[string]interface{}{"error": cause.Error()}))
	if !debited || qgen.IsKind(cause, qgen.KindSuperseded) {
		return cause
	}
	snap, err := o.policy.Settle(ctx, o.ledger, userID, cause)
	if err != nil {
		o.logger.Error(module, "Settlement failed", merge(log, map[string]interface{}{"error": err.Error()}))
		return cause
	}
	if snap != nil {
		sess.ApplySnapshot(*snap)
	}
	return cause
}

func (o *Orchestrator) execute(ctx context.Context, sess *qgen.Session, tok qgen.AttemptToken, plan assembler.Plan) ([]qgen.QuestionItem, error) {
	switch plan.Mode {
	case qgen.ModeFreeText:
		texts, err := call(ctx, o.cfg.CallTimeout, func(c context.Context) ([]string, error) {
			return o.service.GenerateFromText(c, sess.ID, *plan.Text)
		})
		if err != nil {
			return nil, unavailable(err)
		}
		return qgen.NewItems(texts, "", nil), nil

	case qgen.ModeQuestionPaper:
		texts, err := call(ctx, o.cfg.CallTimeout, func(c context.Context) ([]string, error) {
			return o.service.ExtractQuestions(c, sess.ID, *plan.Paper)
		})
		if err != nil {
			return nil, uploadFailed(err)
		}
		return qgen.NewItems(texts, "", nil), nil

	case qgen.ModeSyllabusTopics:
		if err := o.upload(ctx, sess.ID, plan.Upload); err != nil {
			return nil, err
		}
		return o.topics(ctx, sess, tok, plan.Topics)

	case qgen.ModeQuestionList:
		if err := o.upload(ctx, sess.ID, plan.Upload); err != nil {
			return nil, err
		}
		return o.answerList(ctx, sess.ID, plan.Questions)
	}
	return nil, qgen.InvalidInput("Unknown generation mode %q.", plan.Mode)
}

func (o *Orchestrator) upload(ctx context.Context, owner string, file *qgen.Attachment) error {
	_, err := call(ctx, o.cfg.CallTimeout, func(c context.Context) (struct{}, error) {
		return struct{}{}, o.service.UploadSyllabus(c, owner, *file)
	})
	if err != nil {
		return uploadFailed(err)
	}
	return nil
}

// topics issues one request per topic, strictly in order. The first failure
// discards everything gathered so far.
func (o *Orchestrator) topics(ctx context.Context, sess *qgen.Session, tok qgen.AttemptToken, reqs []qgen.TopicRequest) ([]qgen.QuestionItem, error) {
	var items []qgen.QuestionItem
	for i, req := range reqs {
		if !sess.Current(tok) {
			return nil, qgen.Superseded()
		}
		texts, err := call(ctx, o.cfg.CallTimeout, func(c context.Context) ([]string, error) {
			return o.service.GenerateForTopic(c, sess.ID, req)
		})
		if err != nil {
			return nil, qgen.PartialGenerationFailed(req.Topic, err)
		}
		o.logger.Debug(module, "Topic generated", map[string]interface{}{
			"session_id": sess.ID, "topic": req.Topic, "index": i, "questions": len(texts),
		})
		items = append(items, qgen.NewItems(texts, req.Topic, req.Weight)...)
	}
	return items, nil
}

// answerList answers user-authored questions concurrently. Items keep the
// order of the input and arrive with their answers Ready.
func (o *Orchestrator) answerList(ctx context.Context, owner string, questions []string) ([]qgen.QuestionItem, error) {
	answers := make([]string, len(questions))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.cfg.ListWorkers)
	for i, q := range questions {
		g.Go(func() error {
			ans, err := call(gctx, o.cfg.CallTimeout, func(c context.Context) (string, error) {
				return o.service.AnswerFromSyllabus(c, owner, q)
			})
			if err != nil {
				return qgen.PartialGenerationFailed(q, err)
			}
			answers[i] = ans
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := qgen.NewItems(questions, "", nil)
	for i := range items {
		items[i].Answer = qgen.Ready(answers[i])
	}
	return items, nil
}

func call[T any](ctx context.Context, timeout time.Duration, fn func(context.Context) (T, error)) (T, error) {
	c, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return fn(c)
}

func unavailable(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return qgen.ServiceUnavailable("The generation service did not respond in time.", err)
	}
	return qgen.ServiceUnavailable("", err)
}

func uploadFailed(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return qgen.ServiceUnavailable("The generation service did not respond in time.", err)
	}
	return qgen.UploadFailed(err)
}

func merge(base, extra map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(base)+len(extra))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range extra {
		out[k] = v
	}
	return out
}
