package service

import (
	"context"
	"fmt"
	"time"

	"qnagen-be/internal/entity"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/repository/scope"
	"qnagen-be/internal/repository/specification"
	"qnagen-be/internal/repository/unitofwork"
	"qnagen-be/pkg/events"
	"qnagen-be/pkg/qgen"

	"github.com/google/uuid"
)

const creditModule = "CreditService"

// EventPublisher is satisfied by pkg/nats.Publisher.
type EventPublisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type ICreditService interface {
	qgen.Ledger
	qgen.Refunder
	// Touch loads the ledger entry like Load and records email on it when
	// the stored address differs.
	Touch(ctx context.Context, userId uuid.UUID, email string) (qgen.Snapshot, error)
	Grant(ctx context.Context, userId uuid.UUID, amount int, reason string) (qgen.Snapshot, error)
	ExtendSubscription(ctx context.Context, userId uuid.UUID, months, credits int) (qgen.Snapshot, error)
	History(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.CreditTransaction, int64, error)
}

type creditService struct {
	uowFactory     unitofwork.RepositoryFactory
	eventPublisher EventPublisher
	logger         logger.ILogger
	startingGrant  int
	now            func() time.Time
}

func NewCreditService(
	uowFactory unitofwork.RepositoryFactory,
	eventPublisher EventPublisher,
	logger logger.ILogger,
	startingGrant int,
) ICreditService {
	return &creditService{
		uowFactory:     uowFactory,
		eventPublisher: eventPublisher,
		logger:         logger,
		startingGrant:  startingGrant,
		now:            time.Now,
	}
}

func toSnapshot(u *entity.User) qgen.Snapshot {
	return qgen.Snapshot{
		UserID:             u.Id,
		Email:              u.Email,
		CreditBalance:      u.Credits,
		SubscriptionExpiry: u.SubscriptionExpiresAt,
	}
}

// Load returns the ledger entry of userId, creating it with the starting
// grant the first time a user is seen.
func (s *creditService) Load(ctx context.Context, userId uuid.UUID) (qgen.Snapshot, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if user != nil {
		return toSnapshot(user), nil
	}

	if err := uow.Begin(ctx); err != nil {
		return qgen.Snapshot{}, err
	}
	defer uow.Rollback()

	created, err := uow.UserRepository().CreateIfAbsent(ctx, &entity.User{Id: userId, Credits: s.startingGrant})
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if created && s.startingGrant > 0 {
		if err := recordTransaction(ctx, uow, userId, entity.CreditTransactionGrant, s.startingGrant, s.startingGrant, "starting grant", nil); err != nil {
			return qgen.Snapshot{}, err
		}
	}
	user, err = uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if user == nil {
		return qgen.Snapshot{}, fmt.Errorf("ledger entry for %s vanished", userId)
	}
	if err := uow.Commit(); err != nil {
		return qgen.Snapshot{}, err
	}

	if created {
		s.logger.Info(creditModule, "Ledger entry initialized", map[string]interface{}{
			"user_id": userId, "credits": user.Credits,
		})
	}
	return toSnapshot(user), nil
}

func (s *creditService) Touch(ctx context.Context, userId uuid.UUID, email string) (qgen.Snapshot, error) {
	snap, err := s.Load(ctx, userId)
	if err != nil || email == "" || snap.Email == email {
		return snap, err
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return qgen.Snapshot{}, err
	}
	defer uow.Rollback()

	user, err := uow.UserRepository().FindOneForUpdate(ctx, userId)
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if user == nil {
		return qgen.Snapshot{}, fmt.Errorf("no ledger entry for user %s", userId)
	}
	user.Email = email
	if err := uow.UserRepository().Update(ctx, user); err != nil {
		return qgen.Snapshot{}, err
	}
	if err := uow.Commit(); err != nil {
		return qgen.Snapshot{}, err
	}

	s.logger.Debug(creditModule, "Ledger email recorded", map[string]interface{}{
		"user_id": userId,
	})
	return toSnapshot(user), nil
}

// Debit takes amount off the balance in a single conditional update, so
// concurrent debits can never drive it below zero.
func (s *creditService) Debit(ctx context.Context, userId uuid.UUID, amount int) (qgen.Snapshot, error) {
	if amount <= 0 {
		return qgen.Snapshot{}, fmt.Errorf("debit amount must be positive, got %d", amount)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return qgen.Snapshot{}, err
	}
	defer uow.Rollback()

	ok, err := uow.UserRepository().DebitCredits(ctx, userId, amount)
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if !ok {
		return qgen.Snapshot{}, qgen.ErrInsufficientCredit
	}

	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if err := recordTransaction(ctx, uow, userId, entity.CreditTransactionSpend, -amount, user.Credits, "question generation", nil); err != nil {
		return qgen.Snapshot{}, err
	}
	if err := uow.Commit(); err != nil {
		return qgen.Snapshot{}, err
	}

	snap := toSnapshot(user)
	s.publish(ctx, events.CreditDebited, snap, amount, "question generation")
	return snap, nil
}

func (s *creditService) Refund(ctx context.Context, userId uuid.UUID, amount int, reason string) (qgen.Snapshot, error) {
	snap, err := s.credit(ctx, userId, amount, entity.CreditTransactionRefund, reason)
	if err != nil {
		return snap, err
	}
	s.publish(ctx, events.CreditRefunded, snap, amount, reason)
	return snap, nil
}

func (s *creditService) Grant(ctx context.Context, userId uuid.UUID, amount int, reason string) (qgen.Snapshot, error) {
	if _, err := s.Load(ctx, userId); err != nil {
		return qgen.Snapshot{}, err
	}
	snap, err := s.credit(ctx, userId, amount, entity.CreditTransactionGrant, reason)
	if err != nil {
		return snap, err
	}
	s.publish(ctx, events.CreditGranted, snap, amount, reason)
	return snap, nil
}

func (s *creditService) credit(ctx context.Context, userId uuid.UUID, amount int, kind entity.CreditTransactionType, reason string) (qgen.Snapshot, error) {
	if amount <= 0 {
		return qgen.Snapshot{}, fmt.Errorf("credit amount must be positive, got %d", amount)
	}

	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return qgen.Snapshot{}, err
	}
	defer uow.Rollback()

	if err := uow.UserRepository().AddCredits(ctx, userId, amount); err != nil {
		return qgen.Snapshot{}, err
	}
	user, err := uow.UserRepository().FindOne(ctx, specification.ByID{ID: userId})
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if user == nil {
		return qgen.Snapshot{}, fmt.Errorf("no ledger entry for user %s", userId)
	}
	if err := recordTransaction(ctx, uow, userId, kind, amount, user.Credits, reason, nil); err != nil {
		return qgen.Snapshot{}, err
	}
	if err := uow.Commit(); err != nil {
		return qgen.Snapshot{}, err
	}
	return toSnapshot(user), nil
}

func (s *creditService) ExtendSubscription(ctx context.Context, userId uuid.UUID, months, credits int) (qgen.Snapshot, error) {
	uow := s.uowFactory.NewUnitOfWork(ctx)
	if err := uow.Begin(ctx); err != nil {
		return qgen.Snapshot{}, err
	}
	defer uow.Rollback()

	snap, err := applySubscription(ctx, uow, userId, months, credits, nil, s.now())
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if err := uow.Commit(); err != nil {
		return qgen.Snapshot{}, err
	}

	s.publish(ctx, events.SubscriptionActivated, snap, credits, fmt.Sprintf("%d month(s)", months))
	return snap, nil
}

func (s *creditService) History(ctx context.Context, userId uuid.UUID, limit, offset int) ([]*entity.CreditTransaction, int64, error) {
	repo := s.uowFactory.NewUnitOfWork(ctx).CreditTransactionRepository()
	total, err := repo.Count(ctx, specification.UserOwnedBy{UserID: userId})
	if err != nil {
		return nil, 0, err
	}
	txs, err := repo.FindAll(ctx,
		specification.UserOwnedBy{UserID: userId},
		specification.Scoped(scope.OrderByCreatedDesc),
		specification.Pagination{Limit: limit, Offset: offset},
	)
	return txs, total, err
}

func (s *creditService) publish(ctx context.Context, eventType string, snap qgen.Snapshot, amount int, reason string) {
	s.logger.Info(creditModule, "Ledger changed", map[string]interface{}{
		"event": eventType, "user_id": snap.UserID, "amount": amount, "balance": snap.CreditBalance,
	})
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, ledgerEvent(eventType, snap, amount, reason)); err != nil {
		s.logger.Warn(creditModule, "Failed to publish ledger event", map[string]interface{}{
			"event": eventType, "error": err.Error(),
		})
	}
}

func ledgerEvent(eventType string, snap qgen.Snapshot, amount int, reason string) events.BaseEvent {
	now := time.Now()
	data := map[string]interface{}{
		"user_id":     snap.UserID.String(),
		"amount":      amount,
		"balance":     snap.CreditBalance,
		"reason":      reason,
		"occurred_at": now,
	}
	if snap.SubscriptionExpiry != nil {
		data["subscription_expires_at"] = snap.SubscriptionExpiry.Format(time.RFC3339)
	}
	return events.BaseEvent{Type: eventType, Data: data, OccurredAt: now}
}

// applySubscription extends the expiry to max(now, expiry) + months and
// grants credits, all inside the caller's transaction.
func applySubscription(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, months, credits int, relatedId *uuid.UUID, now time.Time) (qgen.Snapshot, error) {
	users := uow.UserRepository()
	if _, err := users.CreateIfAbsent(ctx, &entity.User{Id: userId}); err != nil {
		return qgen.Snapshot{}, err
	}
	user, err := users.FindOneForUpdate(ctx, userId)
	if err != nil {
		return qgen.Snapshot{}, err
	}
	if user == nil {
		return qgen.Snapshot{}, fmt.Errorf("no ledger entry for user %s", userId)
	}

	base := now
	if qgen.IsSubscriptionActive(user.SubscriptionExpiresAt, now) {
		base = *user.SubscriptionExpiresAt
	}
	expiry := base.AddDate(0, months, 0)
	if err := users.UpdateSubscriptionExpiry(ctx, userId, expiry); err != nil {
		return qgen.Snapshot{}, err
	}
	user.SubscriptionExpiresAt = &expiry

	if credits > 0 {
		if err := users.AddCredits(ctx, userId, credits); err != nil {
			return qgen.Snapshot{}, err
		}
		user.Credits += credits
	}
	reason := fmt.Sprintf("subscription until %s", expiry.Format("2006-01-02"))
	if err := recordTransaction(ctx, uow, userId, entity.CreditTransactionSubscription, credits, user.Credits, reason, relatedId); err != nil {
		return qgen.Snapshot{}, err
	}
	return toSnapshot(user), nil
}

func recordTransaction(ctx context.Context, uow unitofwork.UnitOfWork, userId uuid.UUID, kind entity.CreditTransactionType, amount, balance int, reason string, relatedId *uuid.UUID) error {
	return uow.CreditTransactionRepository().Create(ctx, &entity.CreditTransaction{
		Id:              uuid.New(),
		UserId:          userId,
		TransactionType: kind,
		Amount:          amount,
		BalanceAfter:    balance,
		Reason:          &reason,
		RelatedId:       relatedId,
	})
}
