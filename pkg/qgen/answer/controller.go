// Package answer fetches per-question answers lazily. Each item runs its
// own request and owns its own AnswerState.
package answer

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"qnagen-be/pkg/qgen"
)

const module = "AnswerController"

const DefaultTimeout = 120 * time.Second

// Notifier is told about every state change the controller applies.
type Notifier func(sessionID string, itemID uuid.UUID, state qgen.AnswerState)

type Controller struct {
	service qgen.Service
	logger  qgen.Logger
	timeout time.Duration
	notify  Notifier
	wg      sync.WaitGroup
}

type Option func(*Controller)

func WithLogger(l qgen.Logger) Option {
	return func(c *Controller) { c.logger = l }
}

func WithNotifier(n Notifier) Option {
	return func(c *Controller) { c.notify = n }
}

func New(service qgen.Service, timeout time.Duration, opts ...Option) *Controller {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Controller{
		service: service,
		logger:  qgen.NopLogger(),
		timeout: timeout,
		notify:  func(string, uuid.UUID, qgen.AnswerState) {},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Request moves an Idle item to Pending and fetches its answer in the
// background. Calling it again on a Pending or settled item returns the
// current state without issuing a second request.
func (c *Controller) Request(ctx context.Context, sess *qgen.Session, itemID uuid.UUID) (qgen.AnswerState, error) {
	item, ok := sess.Item(itemID)
	if !ok {
		return qgen.AnswerState{}, qgen.NotFound("Question")
	}
	if item.MultipleChoice() {
		return qgen.AnswerState{}, qgen.MultipleChoiceRefused()
	}

	board := sess.Answers()
	state, gen, started, err := board.Begin(itemID)
	if err != nil || !started {
		return state, err
	}
	c.notify(sess.ID, itemID, state)

	// The request outlives the HTTP call that started it.
	bg := context.WithoutCancel(ctx)
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.fetch(bg, sess, board, item, gen)
	}()
	return state, nil
}

func (c *Controller) fetch(ctx context.Context, sess *qgen.Session, board *qgen.AnswerBoard, item qgen.QuestionItem, gen uint64) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	details := map[string]interface{}{"session_id": sess.ID, "question_id": item.ID.String()}
	text, err := c.service.GenerateAnswer(ctx, sess.ID, item.Text)

	var outcome qgen.AnswerState
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		outcome = qgen.Failed("The answer took too long to generate.")
	case err != nil:
		outcome = qgen.Failed("Failed to generate answer.")
	default:
		outcome = qgen.Ready(text)
	}
	if err != nil {
		details["error"] = err.Error()
		c.logger.Warn(module, "Answer request failed", details)
	}

	if !board.Settle(item.ID, gen, outcome) {
		c.logger.Debug(module, "Stale answer dropped", details)
		return
	}
	c.notify(sess.ID, item.ID, outcome)
}

// Collapse hides a Ready answer by moving it back to Idle.
func (c *Controller) Collapse(sess *qgen.Session, itemID uuid.UUID) (qgen.AnswerState, error) {
	before, ok := sess.Answers().State(itemID)
	if !ok {
		return qgen.AnswerState{}, qgen.NotFound("Question")
	}
	after, err := sess.Answers().Collapse(itemID)
	if err != nil {
		return qgen.AnswerState{}, err
	}
	if before.Status != after.Status {
		c.notify(sess.ID, itemID, after)
	}
	return after, nil
}

// Wait blocks until every background request has settled.
func (c *Controller) Wait() {
	c.wg.Wait()
}
