package integration

import (
	"context"
	"log"
	"os"
	"sync"
	"testing"

	"qnagen-be/internal/model"
	"qnagen-be/internal/pkg/logger"
	"qnagen-be/internal/repository/unitofwork"
	"qnagen-be/internal/service"
	"qnagen-be/pkg/database"
	"qnagen-be/pkg/qgen"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func openDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Load .env from root
	if err := godotenv.Load("../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}

	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	gormDB, err := database.NewGormDBFromDSN(dsn, false)
	require.NoError(t, err)
	require.NoError(t, gormDB.AutoMigrate(&model.User{}, &model.CreditTransaction{}, &model.PaymentOrder{}))
	return gormDB
}

func TestCreditLedger(t *testing.T) {
	db := openDB(t)
	ctx := context.Background()
	ledger := service.NewCreditService(unitofwork.NewRepositoryFactory(db), nil, logger.NewNopLogger(), 2)

	userId := uuid.New()
	t.Cleanup(func() {
		db.Where("user_id = ?", userId).Delete(&model.CreditTransaction{})
		db.Unscoped().Where("id = ?", userId).Delete(&model.User{})
	})

	t.Run("Load initializes with the starting grant once", func(t *testing.T) {
		snap, err := ledger.Load(ctx, userId)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.CreditBalance)
		assert.Nil(t, snap.SubscriptionExpiry)

		snap, err = ledger.Load(ctx, userId)
		require.NoError(t, err)
		assert.Equal(t, 2, snap.CreditBalance)
	})

	t.Run("Concurrent debits never go below zero", func(t *testing.T) {
		var (
			wg       sync.WaitGroup
			mu       sync.Mutex
			ok       int
			rejected int
		)
		for i := 0; i < 5; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := ledger.Debit(ctx, userId, 1)
				mu.Lock()
				defer mu.Unlock()
				if err == nil {
					ok++
				} else if assert.ErrorIs(t, err, qgen.ErrInsufficientCredit) {
					rejected++
				}
			}()
		}
		wg.Wait()

		assert.Equal(t, 2, ok)
		assert.Equal(t, 3, rejected)
		snap, err := ledger.Load(ctx, userId)
		require.NoError(t, err)
		assert.Equal(t, 0, snap.CreditBalance)
	})

	t.Run("Subscription extends expiry and grants credits", func(t *testing.T) {
		snap, err := ledger.ExtendSubscription(ctx, userId, 1, 25)
		require.NoError(t, err)
		assert.Equal(t, 25, snap.CreditBalance)
		require.NotNil(t, snap.SubscriptionExpiry)
		first := *snap.SubscriptionExpiry

		snap, err = ledger.ExtendSubscription(ctx, userId, 1, 0)
		require.NoError(t, err)
		assert.Equal(t, first.AddDate(0, 1, 0).Unix(), snap.SubscriptionExpiry.Unix())
	})

	t.Run("History lists every write newest first", func(t *testing.T) {
		txs, total, err := ledger.History(ctx, userId, 10, 0)
		require.NoError(t, err)
		// grant + 2 spends + 2 subscriptions
		assert.Equal(t, int64(5), total)
		require.Len(t, txs, 5)
		assert.Equal(t, "subscription", string(txs[0].TransactionType))
	})
}
