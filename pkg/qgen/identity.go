package qgen

import (
	"sync"

	"github.com/google/uuid"
)

// Identity is the signed-in user as reported by the identity provider.
type Identity struct {
	UserID uuid.UUID
	Email  string
}

// AuthState is an observable "current user or nil".
type AuthState struct {
	mu      sync.Mutex
	current *Identity
	nextID  int
	subs    map[int]func(*Identity)
}

func NewAuthState() *AuthState {
	return &AuthState{subs: make(map[int]func(*Identity))}
}

func (a *AuthState) Current() *Identity {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.current == nil {
		return nil
	}
	id := *a.current
	return &id
}

// Set publishes a new identity. Subscribers only hear about flips: signing
// in, signing out, or switching to a different user.
func (a *AuthState) Set(id *Identity) {
	a.mu.Lock()
	if sameIdentity(a.current, id) {
		a.mu.Unlock()
		return
	}
	if id != nil {
		cp := *id
		a.current = &cp
	} else {
		a.current = nil
	}
	subs := make([]func(*Identity), 0, len(a.subs))
	for _, fn := range a.subs {
		subs = append(subs, fn)
	}
	a.mu.Unlock()

	for _, fn := range subs {
		if id == nil {
			fn(nil)
			continue
		}
		cp := *id
		fn(&cp)
	}
}

// Subscribe registers fn and returns a function that removes it.
func (a *AuthState) Subscribe(fn func(*Identity)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextID
	a.nextID++
	a.subs[id] = fn
	return func() {
		a.mu.Lock()
		delete(a.subs, id)
		a.mu.Unlock()
	}
}

func sameIdentity(a, b *Identity) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.UserID == b.UserID
}
