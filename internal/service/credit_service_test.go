package service

import (
	"context"
	"testing"
	"time"

	"qnagen-be/internal/entity"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/repository/specification"
	"qnagen-be/pkg/events"
	"qnagen-be/pkg/qgen"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCreditService(store *memStore, pub EventPublisher, grant int, now time.Time) *creditService {
	s := NewCreditService(store, pub, logger.NewNopLogger(), grant).(*creditService)
	s.now = func() time.Time { return now }
	return s
}

func TestCreditService_LoadInitializesOnce(t *testing.T) {
	store := newMemStore()
	s := newTestCreditService(store, nil, 3, time.Now())
	userId := uuid.New()

	snap, err := s.Load(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, 3, snap.CreditBalance)
	assert.Equal(t, userId, snap.UserID)

	_, err = s.Load(context.Background(), userId)
	require.NoError(t, err)

	txs := store.transactions(userId)
	require.Len(t, txs, 1)
	assert.Equal(t, entity.CreditTransactionGrant, txs[0].TransactionType)
	assert.Equal(t, 3, txs[0].BalanceAfter)
}

func TestCreditService_TouchRecordsEmail(t *testing.T) {
	store := newMemStore()
	s := newTestCreditService(store, nil, 2, time.Now())
	userId := uuid.New()
	ctx := context.Background()

	snap, err := s.Touch(ctx, userId, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", snap.Email)
	assert.Equal(t, 2, snap.CreditBalance)

	found, err := store.NewUnitOfWork(ctx).UserRepository().FindOne(ctx, specification.ByEmail{Email: "ana@example.com"})
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, userId, found.Id)

	snap, err = s.Touch(ctx, userId, "ana@school.edu")
	require.NoError(t, err)
	assert.Equal(t, "ana@school.edu", snap.Email)
	assert.Equal(t, 2, snap.CreditBalance)
	assert.Len(t, store.transactions(userId), 1)

	snap, err = s.Touch(ctx, userId, "")
	require.NoError(t, err)
	assert.Equal(t, "ana@school.edu", snap.Email)
}

func TestCreditService_ZeroGrantRecordsNothing(t *testing.T) {
	store := newMemStore()
	s := newTestCreditService(store, nil, 0, time.Now())
	userId := uuid.New()

	snap, err := s.Load(context.Background(), userId)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CreditBalance)
	assert.Empty(t, store.transactions(userId))
}

func TestCreditService_DebitNeverGoesNegative(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	s := newTestCreditService(store, pub, 1, time.Now())
	userId := uuid.New()
	ctx := context.Background()

	_, err := s.Load(ctx, userId)
	require.NoError(t, err)

	snap, err := s.Debit(ctx, userId, 1)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.CreditBalance)

	_, err = s.Debit(ctx, userId, 1)
	assert.ErrorIs(t, err, qgen.ErrInsufficientCredit)
	assert.Equal(t, 0, store.user(userId).Credits)

	txs := store.transactions(userId)
	require.Len(t, txs, 2)
	assert.Equal(t, entity.CreditTransactionSpend, txs[1].TransactionType)
	assert.Equal(t, -1, txs[1].Amount)
	assert.Equal(t, []string{events.CreditDebited}, pub.types())
}

func TestCreditService_DebitRejectsNonPositiveAmount(t *testing.T) {
	s := newTestCreditService(newMemStore(), nil, 1, time.Now())
	_, err := s.Debit(context.Background(), uuid.New(), 0)
	assert.Error(t, err)
}

func TestCreditService_RefundAndGrant(t *testing.T) {
	store := newMemStore()
	pub := &recordingPublisher{}
	s := newTestCreditService(store, pub, 1, time.Now())
	userId := uuid.New()
	ctx := context.Background()

	_, err := s.Load(ctx, userId)
	require.NoError(t, err)
	_, err = s.Debit(ctx, userId, 1)
	require.NoError(t, err)

	snap, err := s.Refund(ctx, userId, 1, "service_unavailable")
	require.NoError(t, err)
	assert.Equal(t, 1, snap.CreditBalance)

	snap, err = s.Grant(ctx, userId, 4, "support")
	require.NoError(t, err)
	assert.Equal(t, 5, snap.CreditBalance)

	assert.Equal(t, []string{events.CreditDebited, events.CreditRefunded, events.CreditGranted}, pub.types())
}

func TestCreditService_RefundUnknownUser(t *testing.T) {
	s := newTestCreditService(newMemStore(), nil, 1, time.Now())
	_, err := s.Refund(context.Background(), uuid.New(), 1, "x")
	assert.Error(t, err)
}

func TestCreditService_ExtendSubscription(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	store := newMemStore()
	s := newTestCreditService(store, nil, 0, now)
	ctx := context.Background()

	t.Run("starts from now when inactive", func(t *testing.T) {
		userId := uuid.New()
		snap, err := s.ExtendSubscription(ctx, userId, 1, 25)
		require.NoError(t, err)
		require.NotNil(t, snap.SubscriptionExpiry)
		assert.Equal(t, now.AddDate(0, 1, 0), *snap.SubscriptionExpiry)
		assert.Equal(t, 25, snap.CreditBalance)
	})

	t.Run("stacks on an active subscription", func(t *testing.T) {
		userId := uuid.New()
		expiry := now.Add(10 * 24 * time.Hour)
		require.NoError(t, store.NewUnitOfWork(ctx).UserRepository().Create(ctx, &entity.User{
			Id: userId, Credits: 2, SubscriptionExpiresAt: &expiry,
		}))

		snap, err := s.ExtendSubscription(ctx, userId, 2, 0)
		require.NoError(t, err)
		assert.Equal(t, expiry.AddDate(0, 2, 0), *snap.SubscriptionExpiry)
		assert.Equal(t, 2, snap.CreditBalance)
	})

	t.Run("restarts after expiry", func(t *testing.T) {
		userId := uuid.New()
		expired := now.Add(-time.Hour)
		require.NoError(t, store.NewUnitOfWork(ctx).UserRepository().Create(ctx, &entity.User{
			Id: userId, SubscriptionExpiresAt: &expired,
		}))

		snap, err := s.ExtendSubscription(ctx, userId, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, now.AddDate(0, 1, 0), *snap.SubscriptionExpiry)
	})
}

func TestCreditService_History(t *testing.T) {
	store := newMemStore()
	s := newTestCreditService(store, nil, 1, time.Now())
	userId := uuid.New()
	ctx := context.Background()

	_, err := s.Load(ctx, userId)
	require.NoError(t, err)
	_, err = s.Debit(ctx, userId, 1)
	require.NoError(t, err)
	_, err = s.Grant(ctx, userId, 2, "promo")
	require.NoError(t, err)

	txs, total, err := s.History(ctx, userId, 2, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	require.Len(t, txs, 2)
	assert.Equal(t, entity.CreditTransactionGrant, txs[0].TransactionType)
	assert.Equal(t, 2, txs[0].BalanceAfter)

	txs, _, err = s.History(ctx, userId, 2, 2)
	require.NoError(t, err)
	require.Len(t, txs, 1)
	assert.Equal(t, "starting grant", *txs[0].Reason)
}
