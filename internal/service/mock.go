package service

import (
	"context"
	"time"

	"beatmarket/internal/model"
	"beatmarket/pkg/paystack"

	"github.com/stretchr/testify/mock"
)

// MockPaymentGateway is a mock implementation of PaymentGateway
type MockPaymentGateway struct {
	mock.Mock
}

func NewMockPaymentGateway() *MockPaymentGateway {
	return &MockPaymentGateway{}
}

func (m *MockPaymentGateway) CreateSubaccount(ctx context.Context, req paystack.CreateSubaccountRequest) (*paystack.Subaccount, error) {
	args := m.Called(ctx, req)
	sub, _ := args.Get(0).(*paystack.Subaccount)
	return sub, args.Error(1)
}

func (m *MockPaymentGateway) UpdateSubaccount(ctx context.Context, code string, req paystack.UpdateSubaccountRequest) (*paystack.Subaccount, error) {
	args := m.Called(ctx, code, req)
	sub, _ := args.Get(0).(*paystack.Subaccount)
	return sub, args.Error(1)
}

func (m *MockPaymentGateway) CreateSplit(ctx context.Context, req paystack.CreateSplitRequest) (*paystack.Split, error) {
	args := m.Called(ctx, req)
	split, _ := args.Get(0).(*paystack.Split)
	return split, args.Error(1)
}

func (m *MockPaymentGateway) UpdateSplit(ctx context.Context, code string, req paystack.UpdateSplitRequest) (*paystack.Split, error) {
	args := m.Called(ctx, code, req)
	split, _ := args.Get(0).(*paystack.Split)
	return split, args.Error(1)
}

func (m *MockPaymentGateway) ListBanks(ctx context.Context, country string) ([]paystack.Bank, error) {
	args := m.Called(ctx, country)
	banks, _ := args.Get(0).([]paystack.Bank)
	return banks, args.Error(1)
}

func (m *MockPaymentGateway) VerifyTransaction(ctx context.Context, reference string) (*paystack.Transaction, error) {
	args := m.Called(ctx, reference)
	tx, _ := args.Get(0).(*paystack.Transaction)
	return tx, args.Error(1)
}

// MockPresigner is a mock implementation of Presigner
type MockPresigner struct {
	mock.Mock
}

func NewMockPresigner() *MockPresigner {
	return &MockPresigner{}
}

func (m *MockPresigner) PresignedGetURL(ctx context.Context, bucket model.Bucket, path string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, bucket, path, expiry)
	return args.String(0), args.Error(1)
}

// MockUploadService is a mock implementation of UploadService
type MockUploadService struct {
	mock.Mock
}

func NewMockUploadService() *MockUploadService {
	return &MockUploadService{}
}

func (m *MockUploadService) Upload(ctx context.Context, req UploadRequest) (*UploadResult, error) {
	args := m.Called(ctx, req)
	res, _ := args.Get(0).(*UploadResult)
	return res, args.Error(1)
}

func (m *MockUploadService) Status(ctx context.Context, uploaderID, uploadID string) (*model.UploadStatus, error) {
	args := m.Called(ctx, uploaderID, uploadID)
	st, _ := args.Get(0).(*model.UploadStatus)
	return st, args.Error(1)
}

func (m *MockUploadService) Wait() {}

// MockPaymentService is a mock implementation of PaymentService
type MockPaymentService struct {
	mock.Mock
}

func NewMockPaymentService() *MockPaymentService {
	return &MockPaymentService{}
}

func (m *MockPaymentService) GetProfile(ctx context.Context, producerID string) (*model.PaymentProfile, error) {
	args := m.Called(ctx, producerID)
	p, _ := args.Get(0).(*model.PaymentProfile)
	return p, args.Error(1)
}

func (m *MockPaymentService) UpdateBankDetails(ctx context.Context, producerID string, in BankDetailsInput) (*model.PaymentProfile, error) {
	args := m.Called(ctx, producerID, in)
	p, _ := args.Get(0).(*model.PaymentProfile)
	return p, args.Error(1)
}

func (m *MockPaymentService) ProvisionSubaccount(ctx context.Context, producerID string) (string, error) {
	args := m.Called(ctx, producerID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentService) ProvisionSplit(ctx context.Context, producerID string) (string, error) {
	args := m.Called(ctx, producerID)
	return args.String(0), args.Error(1)
}

func (m *MockPaymentService) SetupPayments(ctx context.Context, producerID string) (*model.PaymentProfile, error) {
	args := m.Called(ctx, producerID)
	p, _ := args.Get(0).(*model.PaymentProfile)
	return p, args.Error(1)
}

func (m *MockPaymentService) UpdateSplitShare(ctx context.Context, producerID string, share int) error {
	args := m.Called(ctx, producerID, share)
	return args.Error(0)
}

func (m *MockPaymentService) ListBanks(ctx context.Context) ([]paystack.Bank, error) {
	args := m.Called(ctx)
	banks, _ := args.Get(0).([]paystack.Bank)
	return banks, args.Error(1)
}

// MockOrderService is a mock implementation of OrderService
type MockOrderService struct {
	mock.Mock
}

func NewMockOrderService() *MockOrderService {
	return &MockOrderService{}
}

func (m *MockOrderService) CreateOrder(ctx context.Context, buyerID string, in CreateOrderInput) (*model.Order, error) {
	args := m.Called(ctx, buyerID, in)
	order, _ := args.Get(0).(*model.Order)
	return order, args.Error(1)
}

func (m *MockOrderService) VerifyPayment(ctx context.Context, buyerID string, in VerifyPaymentInput) (*VerifyResult, error) {
	args := m.Called(ctx, buyerID, in)
	res, _ := args.Get(0).(*VerifyResult)
	return res, args.Error(1)
}

func (m *MockOrderService) HandleWebhook(ctx context.Context, body []byte, signature string) (string, error) {
	args := m.Called(ctx, body, signature)
	return args.String(0), args.Error(1)
}

// MockDownloadService is a mock implementation of DownloadService
type MockDownloadService struct {
	mock.Mock
}

func NewMockDownloadService() *MockDownloadService {
	return &MockDownloadService{}
}

func (m *MockDownloadService) GetDownloadURL(ctx context.Context, userID, beatID string) (*DownloadInfo, error) {
	args := m.Called(ctx, userID, beatID)
	info, _ := args.Get(0).(*DownloadInfo)
	return info, args.Error(1)
}
