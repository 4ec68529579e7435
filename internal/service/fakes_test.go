package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"qnagen-be/internal/entity"
	"qnagen-be/internal/repository/contract"
	"qnagen-be/internal/repository/specification"
	"qnagen-be/internal/repository/unitofwork"
	"qnagen-be/pkg/events"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"
)

// memStore backs an in-memory unit of work. Writes apply immediately;
// Rollback does not undo them.
type memStore struct {
	mu     sync.Mutex
	users  map[uuid.UUID]*entity.User
	txs    []*entity.CreditTransaction
	orders map[uuid.UUID]*entity.PaymentOrder
}

func newMemStore() *memStore {
	return &memStore{
		users:  make(map[uuid.UUID]*entity.User),
		orders: make(map[uuid.UUID]*entity.PaymentOrder),
	}
}

func (s *memStore) NewUnitOfWork(context.Context) unitofwork.UnitOfWork {
	return &memUoW{s: s}
}

func (s *memStore) user(id uuid.UUID) *entity.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil
	}
	cp := *u
	return &cp
}

func (s *memStore) transactions(userId uuid.UUID) []*entity.CreditTransaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*entity.CreditTransaction
	for _, tx := range s.txs {
		if tx.UserId == userId {
			out = append(out, tx)
		}
	}
	return out
}

func (s *memStore) order(id uuid.UUID) *entity.PaymentOrder {
	s.mu.Lock()
	defer s.mu.Unlock()
	o, ok := s.orders[id]
	if !ok {
		return nil
	}
	cp := *o
	return &cp
}

type memUoW struct{ s *memStore }

func (u *memUoW) Begin(context.Context) error { return nil }
func (u *memUoW) Commit() error               { return nil }
func (u *memUoW) Rollback() error             { return nil }

func (u *memUoW) UserRepository() contract.UserRepository { return &memUserRepo{s: u.s} }
func (u *memUoW) CreditTransactionRepository() contract.CreditTransactionRepository {
	return &memCreditTxRepo{s: u.s}
}
func (u *memUoW) PaymentOrderRepository() contract.PaymentOrderRepository {
	return &memOrderRepo{s: u.s}
}

// matches interprets the specifications the services use.
func matches(id, userId uuid.UUID, specs []specification.Specification) bool {
	for _, sp := range specs {
		switch v := sp.(type) {
		case specification.ByID:
			if v.ID != id {
				return false
			}
		case specification.UserOwnedBy:
			if v.UserID != userId {
				return false
			}
		}
	}
	return true
}

func paginate[T any](items []T, specs []specification.Specification) []T {
	for _, sp := range specs {
		if p, ok := sp.(specification.Pagination); ok {
			if p.Offset >= len(items) {
				return nil
			}
			items = items[p.Offset:]
			if p.Limit > 0 && p.Limit < len(items) {
				items = items[:p.Limit]
			}
		}
	}
	return items
}

type memUserRepo struct{ s *memStore }

func userMatches(u *entity.User, specs []specification.Specification) bool {
	for _, sp := range specs {
		if v, ok := sp.(specification.ByEmail); ok && v.Email != u.Email {
			return false
		}
	}
	return matches(u.Id, u.Id, specs)
}

func (r *memUserRepo) Create(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *user
	cp.CreatedAt = time.Now()
	r.s.users[user.Id] = &cp
	return nil
}

func (r *memUserRepo) CreateIfAbsent(ctx context.Context, user *entity.User) (bool, error) {
	r.s.mu.Lock()
	_, exists := r.s.users[user.Id]
	r.s.mu.Unlock()
	if exists {
		return false, nil
	}
	return true, r.Create(ctx, user)
}

func (r *memUserRepo) Update(_ context.Context, user *entity.User) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *user
	r.s.users[user.Id] = &cp
	return nil
}

func (r *memUserRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, u := range r.s.users {
		if userMatches(u, specs) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.User
	for _, u := range r.s.users {
		if userMatches(u, specs) {
			cp := *u
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memUserRepo) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	all, err := r.FindAll(ctx, specs...)
	return int64(len(all)), err
}

func (r *memUserRepo) FindOneForUpdate(ctx context.Context, id uuid.UUID) (*entity.User, error) {
	return r.FindOne(ctx, specification.ByID{ID: id})
}

func (r *memUserRepo) DebitCredits(_ context.Context, id uuid.UUID, amount int) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[id]
	if !ok || u.Credits < amount {
		return false, nil
	}
	u.Credits -= amount
	return true, nil
}

func (r *memUserRepo) AddCredits(_ context.Context, id uuid.UUID, amount int) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.Credits += amount
	}
	return nil
}

func (r *memUserRepo) UpdateSubscriptionExpiry(_ context.Context, id uuid.UUID, expiresAt time.Time) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u, ok := r.s.users[id]; ok {
		u.SubscriptionExpiresAt = &expiresAt
	}
	return nil
}

type memCreditTxRepo struct{ s *memStore }

func (r *memCreditTxRepo) Create(_ context.Context, tx *entity.CreditTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *tx
	cp.CreatedAt = time.Now().Add(time.Duration(len(r.s.txs)) * time.Microsecond)
	r.s.txs = append(r.s.txs, &cp)
	return nil
}

func (r *memCreditTxRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.CreditTransaction, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.CreditTransaction
	for _, tx := range r.s.txs {
		if matches(tx.Id, tx.UserId, specs) {
			cp := *tx
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return paginate(out, specs), nil
}

func (r *memCreditTxRepo) Count(_ context.Context, specs ...specification.Specification) (int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var n int64
	for _, tx := range r.s.txs {
		if matches(tx.Id, tx.UserId, specs) {
			n++
		}
	}
	return n, nil
}

type memOrderRepo struct{ s *memStore }

func (r *memOrderRepo) Create(_ context.Context, order *entity.PaymentOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *order
	cp.CreatedAt = time.Now()
	r.s.orders[order.Id] = &cp
	return nil
}

func (r *memOrderRepo) Update(_ context.Context, order *entity.PaymentOrder) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cp := *order
	r.s.orders[order.Id] = &cp
	return nil
}

func (r *memOrderRepo) FindOne(_ context.Context, specs ...specification.Specification) (*entity.PaymentOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, o := range r.s.orders {
		if matches(o.Id, o.UserId, specs) {
			cp := *o
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memOrderRepo) FindOneForUpdate(ctx context.Context, id uuid.UUID) (*entity.PaymentOrder, error) {
	return r.FindOne(ctx, specification.ByID{ID: id})
}

func (r *memOrderRepo) FindAll(_ context.Context, specs ...specification.Specification) ([]*entity.PaymentOrder, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []*entity.PaymentOrder
	for _, o := range r.s.orders {
		if matches(o.Id, o.UserId, specs) {
			cp := *o
			out = append(out, &cp)
		}
	}
	return out, nil
}

// recordingPublisher captures NATS events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType())
	}
	return out
}

// recordingBus captures watermill messages.
type recordingBus struct {
	mu       sync.Mutex
	messages map[string][]*message.Message
}

func (b *recordingBus) Publish(topic string, msgs ...*message.Message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.messages == nil {
		b.messages = make(map[string][]*message.Message)
	}
	b.messages[topic] = append(b.messages[topic], msgs...)
	return nil
}

func (b *recordingBus) Close() error { return nil }

func (b *recordingBus) count(topic string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.messages[topic])
}

// recordingNotifier captures websocket pushes.
type recordingNotifier struct {
	mu   sync.Mutex
	sent []sentEvent
}

type sentEvent struct {
	SessionID string
	Type      string
	Data      interface{}
}

func (n *recordingNotifier) Send(sessionID, eventType string, data interface{}) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sentEvent{SessionID: sessionID, Type: eventType, Data: data})
}

func (n *recordingNotifier) ofType(eventType string) []sentEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentEvent
	for _, e := range n.sent {
		if e.Type == eventType {
			out = append(out, e)
		}
	}
	return out
}
