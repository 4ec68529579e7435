package memory

import (
	"testing"
	"time"

	"qnagen-be/pkg/qgen"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionRepository(t *testing.T) {
	repo := NewSessionRepository(time.Hour)
	s := qgen.NewSession("tab-1")
	repo.Save(s)

	got, ok := repo.Get("tab-1")
	require.True(t, ok)
	assert.Same(t, s, got)

	_, ok = repo.Get("missing")
	assert.False(t, ok)

	repo.Delete("tab-1")
	_, ok = repo.Get("tab-1")
	assert.False(t, ok)
}

func TestSessionRepository_ForUser(t *testing.T) {
	repo := NewSessionRepository(time.Hour)
	alice, bob := uuid.New(), uuid.New()

	s1, s2, s3 := qgen.NewSession("1"), qgen.NewSession("2"), qgen.NewSession("3")
	s1.Auth().Set(&qgen.Identity{UserID: alice})
	s2.Auth().Set(&qgen.Identity{UserID: bob})
	s3.Auth().Set(&qgen.Identity{UserID: alice})
	for _, s := range []*qgen.Session{s1, s2, s3} {
		repo.Save(s)
	}

	ids := map[string]bool{}
	for _, s := range repo.ForUser(alice) {
		ids[s.ID] = true
	}
	assert.Equal(t, map[string]bool{"1": true, "3": true}, ids)

	s3.Auth().Set(nil)
	assert.Len(t, repo.ForUser(alice), 1)
	assert.Equal(t, 3, repo.Count())
}
