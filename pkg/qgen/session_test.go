package qgen

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnswerBoard_Transitions(t *testing.T) {
	items := NewItems([]string{"q"}, "", nil)
	id := items[0].ID
	b := NewAnswerBoard()
	b.Reset(items)

	st, gen, started, err := b.Begin(id)
	require.NoError(t, err)
	assert.True(t, started)
	assert.Equal(t, Pending(), st)

	_, _, started, err = b.Begin(id)
	require.NoError(t, err)
	assert.False(t, started, "pending item must not start twice")

	assert.False(t, b.Settle(id, gen, Idle()), "only ready or failed settle")
	assert.False(t, b.Settle(id, gen+1, Ready("x")), "unknown generation")
	assert.True(t, b.Settle(id, gen, Ready("x")))
	assert.False(t, b.Settle(id, gen, Failed("late")), "already settled")

	st, err = b.Collapse(id)
	require.NoError(t, err)
	assert.Equal(t, Idle(), st)

	_, gen2, started, _ := b.Begin(id)
	assert.True(t, started)
	assert.Greater(t, gen2, gen)
	assert.False(t, b.Settle(id, gen, Ready("stale")))
	assert.True(t, b.Settle(id, gen2, Failed("boom")))

	st, err = b.Collapse(id)
	require.NoError(t, err)
	assert.Equal(t, Failed("boom"), st, "collapse only leaves ready")

	_, _, _, err = b.Begin(uuid.New())
	assert.True(t, IsKind(err, KindNotFound))
}

func TestAnswerBoard_ResetDropsPendingState(t *testing.T) {
	items := NewItems([]string{"a", "b"}, "", nil)
	items[0].Answer = Ready("kept")
	items[1].Answer = Pending()
	b := NewAnswerBoard()
	b.Reset(items)

	st, _ := b.State(items[0].ID)
	assert.Equal(t, Ready("kept"), st)
	st, _ = b.State(items[1].ID)
	assert.Equal(t, Idle(), st)
}

func TestSession_ModeSwitchDiscardsResultsButKeepsForms(t *testing.T) {
	s := NewSession("tab")
	s.SetFreeText("Explain photosynthesis.", 3)
	s.AddListQuestion("What is a cell?", true)
	require.True(t, s.Commit(s.BeginAttempt(), NewItems([]string{"q"}, "", nil)))

	s.SetMode(ModeQuestionList)
	assert.Empty(t, s.Items())
	assert.Equal(t, ModeQuestionList, s.Mode())

	f := s.Form()
	assert.Equal(t, "Explain photosynthesis.", f.FreeText.Text)
	require.Len(t, f.QuestionList.Questions, 1)
	assert.Len(t, f.Syllabus.Topics, 1)
}

func TestSession_CommitRequiresCurrentToken(t *testing.T) {
	s := NewSession("tab")
	first := s.BeginAttempt()
	second := s.BeginAttempt()

	assert.False(t, s.Commit(first, NewItems([]string{"old"}, "", nil)))
	assert.True(t, s.Commit(second, NewItems([]string{"new"}, "", nil)))
	assert.False(t, s.Commit(second, NewItems([]string{"again"}, "", nil)), "a token commits once")

	tok := s.BeginAttempt()
	s.SetMode(ModeQuestionPaper)
	assert.False(t, s.Current(tok))
	assert.False(t, s.Commit(tok, nil))
}

func TestSession_FormIsACopy(t *testing.T) {
	s := NewSession("tab")
	f := s.Form()
	f.Syllabus.Topics[0].Name = "mutated"
	assert.Empty(t, s.Form().Syllabus.Topics[0].Name)
}

func TestSession_TopicEditing(t *testing.T) {
	s := NewSession("tab")
	added := s.AddTopic(TopicSpec{Name: "Cells", DesiredCount: 2, Selected: true})
	assert.NotEqual(t, uuid.Nil, added.ID)

	name := "Genetics"
	w := 3.0
	updated, err := s.UpdateTopic(added.ID, TopicPatch{Name: &name, Weight: &w})
	require.NoError(t, err)
	assert.Equal(t, "Genetics", updated.Name)
	assert.Equal(t, 3.0, *updated.Weight)

	updated, err = s.UpdateTopic(added.ID, TopicPatch{ClearWeight: true})
	require.NoError(t, err)
	assert.Nil(t, updated.Weight)

	require.NoError(t, s.RemoveTopic(added.ID))
	assert.True(t, IsKind(s.RemoveTopic(added.ID), KindNotFound))
	assert.Len(t, s.Form().Syllabus.Topics, 1)

	assert.Error(t, s.SetAttachment(ModeFreeText, &Attachment{Data: []byte("x")}))
}

func TestSession_AuthFlips(t *testing.T) {
	s := NewSession("tab")
	alice := uuid.New()
	assert.False(t, s.ApplySnapshot(Snapshot{UserID: alice, CreditBalance: 3}), "no signed-in user")

	s.PromptLogin()
	s.Auth().Set(&Identity{UserID: alice, Email: "alice@example.com"})
	assert.False(t, s.View().LoginPrompt)
	require.True(t, s.ApplySnapshot(Snapshot{UserID: alice, CreditBalance: 3}))
	assert.Equal(t, "alice@example.com", s.User().Email)

	s.Auth().Set(&Identity{UserID: alice, Email: "alice@example.com"})
	assert.NotNil(t, s.User(), "same user is not a flip")

	s.Auth().Set(&Identity{UserID: uuid.New()})
	assert.Nil(t, s.User())

	s.Auth().Set(nil)
	assert.False(t, s.View().Authenticated)
}

func TestAuthState_Unsubscribe(t *testing.T) {
	a := NewAuthState()
	calls := 0
	stop := a.Subscribe(func(*Identity) { calls++ })
	a.Set(&Identity{UserID: uuid.New()})
	stop()
	a.Set(nil)
	assert.Equal(t, 1, calls)
}

func TestSnapshot_Gate(t *testing.T) {
	now := time.Now()
	past, future := now.Add(-time.Minute), now.Add(time.Minute)

	assert.False(t, IsSubscriptionActive(nil, now))
	assert.False(t, IsSubscriptionActive(&past, now))
	assert.False(t, IsSubscriptionActive(&now, now))
	assert.True(t, IsSubscriptionActive(&future, now))

	assert.True(t, Snapshot{CreditBalance: 1}.CanAttempt(now))
	assert.False(t, Snapshot{CreditBalance: 0, SubscriptionExpiry: &past}.CanAttempt(now))
	assert.True(t, Snapshot{SubscriptionExpiry: &future}.CanAttempt(now))
}

func TestSelectedTopics(t *testing.T) {
	got := SelectedTopics([]TopicSpec{
		{Name: " a ", Selected: true},
		{Name: "b", Selected: false},
		{Name: "  ", Selected: true},
		{Name: "c", Selected: true},
	})
	require.Len(t, got, 2)
	assert.Equal(t, "a", got[0].Name)
	assert.Equal(t, "c", got[1].Name)
}

func TestError_UserMessage(t *testing.T) {
	assert.Equal(t, "Generation failed for Cells", PartialGenerationFailed("Cells", nil).UserMessage())
	assert.Equal(t, "Question not found.", NotFound("Question").UserMessage())
	assert.Equal(t, KindQuotaExhausted, KindOf(QuotaExhausted()))
	assert.Equal(t, ErrorKind(""), KindOf(nil))
}
