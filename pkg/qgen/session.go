package qgen

import (
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the orchestration context of one workspace: the active mode,
// every mode's form state, the ledger snapshot and the current result set.
// All methods are safe for concurrent use.
type Session struct {
	ID string

	mu          sync.RWMutex
	auth        *AuthState
	user        *Snapshot
	loginPrompt bool
	mode        Mode
	form        FormState
	items       []QuestionItem
	answers     *AnswerBoard
	// attemptSeq identifies the latest started attempt, epoch the current
	// result set. Both only grow.
	attemptSeq uint64
	epoch      uint64
	updatedAt  time.Time
}

// AttemptToken ties a running attempt to the result set it may replace.
type AttemptToken struct {
	seq   uint64
	epoch uint64
}

func NewSession(id string) *Session {
	s := &Session{
		ID:        id,
		auth:      NewAuthState(),
		mode:      ModeFreeText,
		form:      DefaultFormState(),
		answers:   NewAnswerBoard(),
		updatedAt: time.Now(),
	}
	s.auth.Subscribe(s.onAuthChange)
	return s
}

// Auth is the observable identity feeding this session.
func (s *Session) Auth() *AuthState { return s.auth }

func (s *Session) onAuthChange(id *Identity) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if id == nil {
		s.user = nil
		return
	}
	s.loginPrompt = false
	if s.user != nil && s.user.UserID != id.UserID {
		s.user = nil
	}
}

// User returns a copy of the cached ledger snapshot, or nil.
func (s *Session) User() *Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// ApplySnapshot replaces the cached snapshot when it belongs to the
// currently signed-in user.
func (s *Session) ApplySnapshot(snap Snapshot) bool {
	cur := s.auth.Current()
	if cur == nil || cur.UserID != snap.UserID {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if snap.Email == "" {
		snap.Email = cur.Email
	}
	s.user = &snap
	s.touch()
	return true
}

func (s *Session) PromptLogin() {
	s.mu.Lock()
	s.loginPrompt = true
	s.mu.Unlock()
}

func (s *Session) Mode() Mode {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.mode
}

// SetMode activates a mode and discards the current result set.
func (s *Session) SetMode(m Mode) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == m {
		return
	}
	s.mode = m
	s.discardLocked()
}

// Form returns a deep copy of the form state.
func (s *Session) Form() FormState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.form.clone()
}

func (s *Session) SetTypes(t TypeFlags) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.Types = t
	s.touch()
}

func (s *Session) SetFreeText(text string, desiredCount int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.form.FreeText = FreeTextForm{Text: text, DesiredCount: desiredCount}
	s.touch()
}

// AddTopic appends a topic row and returns it with its assigned id.
func (s *Session) AddTopic(t TopicSpec) TopicSpec {
	s.mu.Lock()
	defer s.mu.Unlock()
	t.ID = uuid.New()
	s.form.Syllabus.Topics = append(s.form.Syllabus.Topics, t)
	s.touch()
	return t
}

func (s *Session) UpdateTopic(id uuid.UUID, p TopicPatch) (TopicSpec, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.form.Syllabus.Topics {
		if s.form.Syllabus.Topics[i].ID == id {
			s.form.Syllabus.Topics[i].apply(p)
			s.touch()
			return s.form.Syllabus.Topics[i], nil
		}
	}
	return TopicSpec{}, NotFound("Topic")
}

func (s *Session) RemoveTopic(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	topics := s.form.Syllabus.Topics
	for i := range topics {
		if topics[i].ID == id {
			s.form.Syllabus.Topics = append(topics[:i:i], topics[i+1:]...)
			s.touch()
			return nil
		}
	}
	return NotFound("Topic")
}

func (s *Session) AddListQuestion(text string, selected bool) QuestionListEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e := QuestionListEntry{ID: uuid.New(), Text: text, Selected: selected}
	s.form.QuestionList.Questions = append(s.form.QuestionList.Questions, e)
	s.touch()
	return e
}

func (s *Session) UpdateListQuestion(id uuid.UUID, text *string, selected *bool) (QuestionListEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.form.QuestionList.Questions {
		e := &s.form.QuestionList.Questions[i]
		if e.ID != id {
			continue
		}
		if text != nil {
			e.Text = *text
		}
		if selected != nil {
			e.Selected = *selected
		}
		s.touch()
		return *e, nil
	}
	return QuestionListEntry{}, NotFound("Question")
}

func (s *Session) RemoveListQuestion(id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	qs := s.form.QuestionList.Questions
	for i := range qs {
		if qs[i].ID == id {
			s.form.QuestionList.Questions = append(qs[:i:i], qs[i+1:]...)
			s.touch()
			return nil
		}
	}
	return NotFound("Question")
}

// SetAttachment stores the uploaded file of an upload-based mode.
func (s *Session) SetAttachment(m Mode, a *Attachment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch m {
	case ModeSyllabusTopics:
		s.form.Syllabus.Syllabus = a
	case ModeQuestionPaper:
		s.form.QuestionPaper.Paper = a
	case ModeQuestionList:
		s.form.QuestionList.Source = a
	default:
		return InvalidInput("Mode %s does not take an attachment.", m)
	}
	s.touch()
	return nil
}

// BeginAttempt clears the current result set and marks a new attempt as the
// only one allowed to publish results.
func (s *Session) BeginAttempt() AttemptToken {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attemptSeq++
	s.discardLocked()
	return AttemptToken{seq: s.attemptSeq, epoch: s.epoch}
}

// Commit installs items as the new result set. It refuses when a newer
// attempt started or the mode changed since tok was issued.
func (s *Session) Commit(tok AttemptToken, items []QuestionItem) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tok.seq != s.attemptSeq || tok.epoch != s.epoch {
		return false
	}
	s.epoch++
	s.items = append([]QuestionItem(nil), items...)
	s.answers.Reset(s.items)
	s.touch()
	return true
}

// Current reports whether tok still belongs to the latest attempt.
func (s *Session) Current(tok AttemptToken) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return tok.seq == s.attemptSeq && tok.epoch == s.epoch
}

// Answers is the per-item answer state of the current result set.
func (s *Session) Answers() *AnswerBoard { return s.answers }

// Item returns the item with its current answer state.
func (s *Session) Item(id uuid.UUID) (QuestionItem, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			if st, ok := s.answers.State(id); ok {
				it.Answer = st
			}
			return it, true
		}
	}
	return QuestionItem{}, false
}

// Items returns the current result set with answer states merged in.
func (s *Session) Items() []QuestionItem {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]QuestionItem, len(s.items))
	for i, it := range s.items {
		if st, ok := s.answers.State(it.ID); ok {
			it.Answer = st
		}
		out[i] = it
	}
	return out
}

// View is a consistent copy of everything a client renders.
type View struct {
	ID            string
	Mode          Mode
	Form          FormState
	Items         []QuestionItem
	User          *Snapshot
	Authenticated bool
	LoginPrompt   bool
	UpdatedAt     time.Time
}

func (s *Session) View() View {
	items := s.Items()
	authed := s.auth.Current() != nil
	s.mu.RLock()
	defer s.mu.RUnlock()
	v := View{
		ID:            s.ID,
		Mode:          s.mode,
		Form:          s.form.clone(),
		Items:         items,
		Authenticated: authed,
		LoginPrompt:   s.loginPrompt,
		UpdatedAt:     s.updatedAt,
	}
	if s.user != nil {
		u := *s.user
		v.User = &u
	}
	return v
}

func (s *Session) discardLocked() {
	s.epoch++
	s.items = nil
	s.answers.Reset(nil)
	s.touch()
}

func (s *Session) touch() { s.updatedAt = time.Now() }

// SelectedTopics returns the topics that take part in an attempt, in order.
func SelectedTopics(topics []TopicSpec) []TopicSpec {
	var out []TopicSpec
	for _, t := range topics {
		if t.Participates() {
			t.Name = strings.TrimSpace(t.Name)
			out = append(out, t)
		}
	}
	return out
}
