package repository

import (
	"context"
	"time"

	"beatmarket/internal/model"

	"github.com/stretchr/testify/mock"
)

// MockUserRepository is a mock implementation of UserRepository
type MockUserRepository struct {
	mock.Mock
}

func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

func (m *MockUserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	args := m.Called(ctx, id)
	user, _ := args.Get(0).(*model.User)
	return user, args.Error(1)
}

func (m *MockUserRepository) UpdateBankDetails(ctx context.Context, id, bankCode, accountNumber, verifiedAccountName string) error {
	args := m.Called(ctx, id, bankCode, accountNumber, verifiedAccountName)
	return args.Error(0)
}

func (m *MockUserRepository) SetSubaccountCode(ctx context.Context, id, code string) (bool, error) {
	args := m.Called(ctx, id, code)
	return args.Bool(0), args.Error(1)
}

func (m *MockUserRepository) SetSplitCode(ctx context.Context, id, code string) (bool, error) {
	args := m.Called(ctx, id, code)
	return args.Bool(0), args.Error(1)
}

// MockOrderRepository is a mock implementation of OrderRepository
type MockOrderRepository struct {
	mock.Mock
}

func NewMockOrderRepository() *MockOrderRepository {
	return &MockOrderRepository{}
}

func (m *MockOrderRepository) Create(ctx context.Context, order *model.Order) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

func (m *MockOrderRepository) FindByID(ctx context.Context, id string) (*model.Order, error) {
	args := m.Called(ctx, id)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func (m *MockOrderRepository) FindByReference(ctx context.Context, reference string) (*model.Order, error) {
	args := m.Called(ctx, reference)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func (m *MockOrderRepository) Complete(ctx context.Context, c Completion) (bool, error) {
	args := m.Called(ctx, c)
	return args.Bool(0), args.Error(1)
}

func (m *MockOrderRepository) MarkFailed(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

// MockPayoutRepository is a mock implementation of PayoutRepository
type MockPayoutRepository struct {
	mock.Mock
}

func NewMockPayoutRepository() *MockPayoutRepository {
	return &MockPayoutRepository{}
}

func (m *MockPayoutRepository) FindByTransfer(ctx context.Context, transferCode, reference string) (*model.Payout, error) {
	args := m.Called(ctx, transferCode, reference)
	payout, _ := args.Get(0).(*model.Payout)
	return payout, args.Error(1)
}

func (m *MockPayoutRepository) UpdateStatus(ctx context.Context, id uint, status, failureReason string) (bool, error) {
	args := m.Called(ctx, id, status, failureReason)
	return args.Bool(0), args.Error(1)
}

// MockBeatRepository is a mock implementation of BeatRepository
type MockBeatRepository struct {
	mock.Mock
}

func NewMockBeatRepository() *MockBeatRepository {
	return &MockBeatRepository{}
}

func (m *MockBeatRepository) FindByID(ctx context.Context, id string) (*model.Beat, error) {
	args := m.Called(ctx, id)
	beat, _ := args.Get(0).(*model.Beat)
	return beat, args.Error(1)
}

func (m *MockBeatRepository) HasPurchased(ctx context.Context, userID, beatID string) (bool, error) {
	args := m.Called(ctx, userID, beatID)
	return args.Bool(0), args.Error(1)
}

// MockLockRepository is a mock implementation of LockRepository. A granted
// lock releases through a no-op func.
type MockLockRepository struct {
	mock.Mock
}

func NewMockLockRepository() *MockLockRepository {
	return &MockLockRepository{}
}

func (m *MockLockRepository) Acquire(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	args := m.Called(ctx, name, ttl)
	if !args.Bool(0) {
		return nil, false, args.Error(1)
	}
	return func() {}, true, args.Error(1)
}

// MockCacheRepository is a mock implementation of CacheRepository
type MockCacheRepository struct {
	mock.Mock
}

func NewMockCacheRepository() *MockCacheRepository {
	return &MockCacheRepository{}
}

func (m *MockCacheRepository) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	args := m.Called(ctx, key, dest)
	return args.Bool(0), args.Error(1)
}

func (m *MockCacheRepository) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}
