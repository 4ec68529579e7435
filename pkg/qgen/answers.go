package qgen

import (
	"sync"

	"github.com/google/uuid"
)

type answerEntry struct {
	state AnswerState
	// gen counts requests issued for this item; a completion only lands
	// when it carries the current value.
	gen uint64
}

// AnswerBoard tracks the AnswerState of every item of one result set.
// Allowed transitions: Idle->Pending, Pending->Ready, Pending->Failed and
// Ready->Idle. Everything else is rejected or ignored.
type AnswerBoard struct {
	mu      sync.Mutex
	entries map[uuid.UUID]*answerEntry
}

func NewAnswerBoard() *AnswerBoard {
	return &AnswerBoard{entries: make(map[uuid.UUID]*answerEntry)}
}

// Reset replaces the tracked items; every earlier entry is forgotten, so late
// completions for them find nothing to update.
func (b *AnswerBoard) Reset(items []QuestionItem) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.entries = make(map[uuid.UUID]*answerEntry, len(items))
	for _, it := range items {
		st := it.Answer
		if st.Status == "" || st.Status == AnswerPending {
			st = Idle()
		}
		b.entries[it.ID] = &answerEntry{state: st}
	}
}

func (b *AnswerBoard) State(id uuid.UUID) (AnswerState, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return AnswerState{}, false
	}
	return e.state, true
}

// Begin moves an Idle item to Pending and returns the request generation to
// settle with. started is false when the item was not Idle; the current
// state is returned unchanged in that case.
func (b *AnswerBoard) Begin(id uuid.UUID) (state AnswerState, gen uint64, started bool, err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return AnswerState{}, 0, false, NotFound("Question")
	}
	if e.state.Status != AnswerIdle {
		return e.state, e.gen, false, nil
	}
	e.gen++
	e.state = Pending()
	return e.state, e.gen, true, nil
}

// Settle applies the outcome of request gen. It reports false when the
// result is stale: the item is gone, a newer request exists, or the item is
// no longer Pending.
func (b *AnswerBoard) Settle(id uuid.UUID, gen uint64, outcome AnswerState) bool {
	if outcome.Status != AnswerReady && outcome.Status != AnswerFailed {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok || e.gen != gen || e.state.Status != AnswerPending {
		return false
	}
	e.state = outcome
	return true
}

// Collapse turns Ready back into Idle. Other states are left as they are.
func (b *AnswerBoard) Collapse(id uuid.UUID) (AnswerState, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	e, ok := b.entries[id]
	if !ok {
		return AnswerState{}, NotFound("Question")
	}
	if e.state.Status == AnswerReady {
		e.state = Idle()
	}
	return e.state, nil
}
