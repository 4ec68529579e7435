package memory

import (
	"time"

	"qnagen-be/pkg/qgen"

	"github.com/google/uuid"
	"github.com/patrickmn/go-cache"
)

// SessionRepository keeps live workspaces in process memory. Every read
// renews the TTL, so only idle workspaces expire.
type SessionRepository struct {
	cache *cache.Cache
}

func NewSessionRepository(ttl time.Duration) *SessionRepository {
	cleanup := ttl / 6
	if cleanup < time.Minute {
		cleanup = time.Minute
	}
	return &SessionRepository{
		cache: cache.New(ttl, cleanup),
	}
}

func (r *SessionRepository) Save(session *qgen.Session) {
	r.cache.Set(session.ID, session, cache.DefaultExpiration)
}

func (r *SessionRepository) Get(sessionID string) (*qgen.Session, bool) {
	x, found := r.cache.Get(sessionID)
	if !found {
		return nil, false
	}
	s := x.(*qgen.Session)
	r.cache.Set(sessionID, s, cache.DefaultExpiration)
	return s, true
}

func (r *SessionRepository) Delete(sessionID string) {
	r.cache.Delete(sessionID)
}

// ForUser returns the workspaces currently signed in as userID.
func (r *SessionRepository) ForUser(userID uuid.UUID) []*qgen.Session {
	var out []*qgen.Session
	for _, item := range r.cache.Items() {
		s, ok := item.Object.(*qgen.Session)
		if !ok {
			continue
		}
		if id := s.Auth().Current(); id != nil && id.UserID == userID {
			out = append(out, s)
		}
	}
	return out
}

func (r *SessionRepository) Count() int {
	return r.cache.ItemCount()
}
