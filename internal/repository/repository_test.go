package repository

import (
	"context"
	"errors"
	"testing"
	"time"

	"beatmarket/internal/model"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/go-redis/redis/v8"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	return db, mock
}

func TestUserRepository_SetSubaccountCode(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET "subaccount_code"=.* WHERE id = .* AND subaccount_code IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 1))

	applied, err := repo.SetSubaccountCode(context.Background(), "producer-1", "ACCT_1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_SetSplitCode_AlreadySet(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET "split_code"=.* WHERE id = .* AND split_code IS NULL`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	applied, err := repo.SetSplitCode(context.Background(), "producer-1", "SPL_1")
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_UpdateBankDetails_NotFound(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectExec(`UPDATE "users" SET`).WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateBankDetails(context.Background(), "missing", "058", "0123456789", "ADA")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestOrderRepository_MarkFailed(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectExec(`UPDATE "orders" SET "status"=.* WHERE id = .* AND status = `).
		WillReturnResult(sqlmock.NewResult(0, 1))

	changed, err := repo.MarkFailed(context.Background(), "order-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Complete_NotPendingWritesNothingElse(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET "status"=`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectCommit()

	applied, err := repo.Complete(context.Background(), Completion{OrderID: "order-1", BuyerID: "buyer-1"})
	require.NoError(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Complete_WritesGrantsAndPaymentOnce(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET "status"=.* WHERE id = .* AND status = `).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "line_items" WHERE order_id = `).
		WithArgs("order-1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "beat_id", "price_charged", "currency_code"}).
			AddRow(1, "order-1", "beat-1", "3000.00", "NGN").
			AddRow(2, "order-1", "beat-2", "2000.00", "NGN"))
	mock.ExpectQuery(`INSERT INTO "user_purchased_beats" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10).AddRow(11))
	mock.ExpectQuery(`INSERT INTO "payments" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(20))
	mock.ExpectCommit()

	applied, err := repo.Complete(context.Background(), Completion{
		OrderID: "order-1",
		BuyerID: "buyer-1",
		Payment: &model.Payment{OrderID: "order-1", Reference: "ref-1", Amount: 500000, Currency: "NGN", Status: "success"},
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Complete_InsertsMissingItemsFirst(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET "status"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`INSERT INTO "line_items" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1))
	mock.ExpectQuery(`SELECT \* FROM "line_items" WHERE order_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "beat_id"}).AddRow(1, "order-1", "beat-9"))
	mock.ExpectQuery(`INSERT INTO "user_purchased_beats" .* ON CONFLICT DO NOTHING`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(10))
	mock.ExpectCommit()

	applied, err := repo.Complete(context.Background(), Completion{
		OrderID: "order-1",
		BuyerID: "buyer-1",
		MissingItems: []model.LineItem{
			{OrderID: "order-1", BeatID: "beat-9", PriceCharged: decimal.RequireFromString("5000"), CurrencyCode: "NGN"},
		},
	})
	require.NoError(t, err)
	assert.True(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Complete_RollsBackOnGrantFailure(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewOrderRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "orders" SET "status"=`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT \* FROM "line_items" WHERE order_id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "order_id", "beat_id"}).AddRow(1, "order-1", "beat-1"))
	mock.ExpectQuery(`INSERT INTO "user_purchased_beats"`).WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	applied, err := repo.Complete(context.Background(), Completion{OrderID: "order-1", BuyerID: "buyer-1"})
	require.Error(t, err)
	assert.False(t, applied)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestBeatRepository_HasPurchased(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBeatRepository(db)

	mock.ExpectQuery(`SELECT count\(\*\) FROM "user_purchased_beats" WHERE user_id = .* AND beat_id = `).
		WithArgs("buyer-1", "beat-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	owned, err := repo.HasPurchased(context.Background(), "buyer-1", "beat-1")
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestBeatRepository_FindByID(t *testing.T) {
	db, mock := newMockDB(t)
	repo := NewBeatRepository(db)

	mock.ExpectQuery(`SELECT \* FROM "beats" WHERE id = `).
		WillReturnRows(sqlmock.NewRows([]string{"id", "producer_id", "title", "audio_path"}).
			AddRow("beat-1", "producer-1", "Lagos Nights", "producer-1/full_track/a.wav"))

	beat, err := repo.FindByID(context.Background(), "beat-1")
	require.NoError(t, err)
	assert.Equal(t, "producer-1", beat.ProducerID)
	assert.Equal(t, "producer-1/full_track/a.wav", beat.AudioPath)
}

func TestChunksFromBitmap(t *testing.T) {
	// bits 0, 2 and 9 set
	bitmap := []byte{0b10100000, 0b01000000}
	assert.Equal(t, []int{0, 2, 9}, chunksFromBitmap(bitmap, 12))
	assert.Equal(t, []int{0}, chunksFromBitmap(bitmap, 1))
	assert.Equal(t, []int{}, chunksFromBitmap(nil, 4))
}

func TestLockRepository_AcquireSurfacesRedisErrors(t *testing.T) {
	// nothing listens on port 1, so every command fails at dial time
	rdb := redis.NewClient(&redis.Options{Addr: "127.0.0.1:1", DialTimeout: 200 * time.Millisecond, MaxRetries: -1})
	defer rdb.Close()

	release, ok, err := NewLockRepository(rdb).Acquire(context.Background(), "subaccount:producer-1", time.Minute)
	require.Error(t, err)
	assert.False(t, ok)
	assert.Nil(t, release)
}
