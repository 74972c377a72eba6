package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/pkg/events"
	"beatmarket/pkg/paystack"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type orderMocks struct {
	orders  *repository.MockOrderRepository
	payouts *repository.MockPayoutRepository
	gateway *MockPaymentGateway
	events  *recordingPublisher
}

func newTestOrderService() (OrderService, *orderMocks) {
	m := &orderMocks{
		orders:  repository.NewMockOrderRepository(),
		payouts: repository.NewMockPayoutRepository(),
		gateway: NewMockPaymentGateway(),
		events:  &recordingPublisher{},
	}
	return NewOrderService(m.orders, m.payouts, m.gateway, m.events, testPaystackConfig), m
}

func pendingOrder() *model.Order {
	return &model.Order{
		ID:               "order-1",
		BuyerID:          "buyer-1",
		TotalPrice:       decimal.RequireFromString("5000.00"),
		Currency:         "NGN",
		Status:           model.OrderStatusPending,
		PaymentReference: "ref-1",
		LineItems: []model.LineItem{
			{OrderID: "order-1", BeatID: "beat-1", PriceCharged: decimal.RequireFromString("5000.00"), CurrencyCode: "NGN"},
		},
	}
}

func signedChargeSuccess(reference string, amount int64) ([]byte, string) {
	body := []byte(fmt.Sprintf(`{"event":"charge.success","data":{"status":"success","reference":%q,"amount":%d,"currency":"NGN","channel":"card"}}`, reference, amount))
	return body, paystack.Sign(testPaystackConfig.SecretKey, body)
}

func TestHandleWebhook_BadSignatureWritesNothing(t *testing.T) {
	svc, m := newTestOrderService()
	body, _ := signedChargeSuccess("ref-1", 500000)

	for _, sig := range []string{"", "deadbeef", paystack.Sign("another-secret", body)} {
		_, err := svc.HandleWebhook(context.Background(), body, sig)
		assert.ErrorIs(t, err, ErrInvalidSignature)
	}

	m.orders.AssertNotCalled(t, "FindByReference", mock.Anything, mock.Anything)
	m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestHandleWebhook_ChargeSuccessCompletesOnce(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body, sig := signedChargeSuccess("ref-1", 500000)

	m.orders.On("FindByReference", ctx, "ref-1").Return(pendingOrder(), nil).Once()
	m.orders.On("Complete", ctx, mock.MatchedBy(func(c repository.Completion) bool {
		return c.OrderID == "order-1" && c.BuyerID == "buyer-1" &&
			c.Payment != nil && c.Payment.Reference == "ref-1" && c.Payment.Amount == 500000
	})).Return(true, nil).Once()

	completed := pendingOrder()
	completed.Status = model.OrderStatusCompleted
	m.orders.On("FindByReference", ctx, "ref-1").Return(completed, nil).Once()

	first, err := svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)
	second, err := svc.HandleWebhook(ctx, body, sig)
	require.NoError(t, err)

	assert.Equal(t, WebhookProcessed, first)
	assert.Equal(t, WebhookDuplicate, second)
	m.orders.AssertNumberOfCalls(t, "Complete", 1)
	assert.Equal(t, []string{events.TypeOrderCompleted}, m.events.events)
}

func TestHandleWebhook_ConcurrentDuplicateIsNoOp(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body, sig := signedChargeSuccess("ref-1", 500000)

	completed := pendingOrder()
	completed.Status = model.OrderStatusCompleted
	m.orders.On("FindByReference", ctx, "ref-1").Return(pendingOrder(), nil)
	m.orders.On("Complete", ctx, mock.Anything).Return(false, nil)
	m.orders.On("FindByID", ctx, "order-1").Return(completed, nil)

	outcome, err := svc.HandleWebhook(ctx, body, sig)

	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.Empty(t, m.events.events)
}

func TestHandleWebhook_UnknownReference(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body, sig := signedChargeSuccess("nope", 500000)
	m.orders.On("FindByReference", ctx, "nope").Return(nil, gorm.ErrRecordNotFound)

	_, err := svc.HandleWebhook(ctx, body, sig)

	assert.ErrorIs(t, err, ErrNotFound)
	m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestHandleWebhook_Underpaid(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body, sig := signedChargeSuccess("ref-1", 100)
	m.orders.On("FindByReference", ctx, "ref-1").Return(pendingOrder(), nil)

	_, err := svc.HandleWebhook(ctx, body, sig)

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestHandleWebhook_TransferFailed(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body := []byte(`{"event":"transfer.failed","data":{"transfer_code":"TRF_1","reference":"po-1","status":"failed","reason":"Weekly payout","failures":"Account closed"}}`)
	sig := paystack.Sign(testPaystackConfig.SecretKey, body)

	m.payouts.On("FindByTransfer", ctx, "TRF_1", "po-1").
		Return(&model.Payout{ID: 7, ProducerID: "producer-1", TransferCode: "TRF_1", Status: model.PayoutStatusPending}, nil)
	m.payouts.On("UpdateStatus", ctx, uint(7), model.PayoutStatusFailed, "Account closed").Return(true, nil)

	outcome, err := svc.HandleWebhook(ctx, body, sig)

	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.Equal(t, []string{events.TypePayoutUpdated}, m.events.events)
}

func TestHandleWebhook_TransferOnTerminalPayoutIsSkipped(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body := []byte(`{"event":"transfer.success","data":{"transfer_code":"TRF_1","status":"success"}}`)
	sig := paystack.Sign(testPaystackConfig.SecretKey, body)

	m.payouts.On("FindByTransfer", ctx, "TRF_1", "").
		Return(&model.Payout{ID: 7, TransferCode: "TRF_1", Status: model.PayoutStatusFailed}, nil)

	outcome, err := svc.HandleWebhook(ctx, body, sig)

	require.NoError(t, err)
	assert.Equal(t, WebhookDuplicate, outcome)
	assert.Empty(t, m.events.events)
	m.payouts.AssertNotCalled(t, "UpdateStatus", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestHandleWebhook_TransferReversedAfterSuccess(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	body := []byte(`{"event":"transfer.reversed","data":{"transfer_code":"TRF_1","status":"reversed","reason":"Bank reversal"}}`)
	sig := paystack.Sign(testPaystackConfig.SecretKey, body)

	m.payouts.On("FindByTransfer", ctx, "TRF_1", "").
		Return(&model.Payout{ID: 7, ProducerID: "producer-1", TransferCode: "TRF_1", Status: model.PayoutStatusSuccess}, nil)
	m.payouts.On("UpdateStatus", ctx, uint(7), model.PayoutStatusReversed, "Bank reversal").Return(true, nil)

	outcome, err := svc.HandleWebhook(ctx, body, sig)

	require.NoError(t, err)
	assert.Equal(t, WebhookProcessed, outcome)
	assert.Equal(t, []string{events.TypePayoutUpdated}, m.events.events)
}

func TestHandleWebhook_OtherEventsIgnored(t *testing.T) {
	svc, _ := newTestOrderService()
	body := []byte(`{"event":"subscription.create","data":{}}`)

	outcome, err := svc.HandleWebhook(context.Background(), body, paystack.Sign(testPaystackConfig.SecretKey, body))

	require.NoError(t, err)
	assert.Equal(t, WebhookIgnored, outcome)
}

func TestVerifyPayment_CompletedOrderIsNoOp(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	completed := pendingOrder()
	completed.Status = model.OrderStatusCompleted
	m.orders.On("FindByID", ctx, "order-1").Return(completed, nil)

	for i := 0; i < 2; i++ {
		res, err := svc.VerifyPayment(ctx, "buyer-1", VerifyPaymentInput{Reference: "ref-1", OrderID: "order-1"})
		require.NoError(t, err)
		assert.True(t, res.Verified)
	}

	m.gateway.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
	m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestVerifyPayment_Success(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	m.orders.On("FindByID", ctx, "order-1").Return(pendingOrder(), nil)
	m.gateway.On("VerifyTransaction", ctx, "ref-1").
		Return(&paystack.Transaction{Status: "success", Reference: "ref-1", Amount: 500000, Currency: "NGN"}, nil)
	m.orders.On("Complete", ctx, mock.MatchedBy(func(c repository.Completion) bool {
		return c.OrderID == "order-1" && len(c.MissingItems) == 0
	})).Return(true, nil)

	res, err := svc.VerifyPayment(ctx, "buyer-1", VerifyPaymentInput{Reference: "ref-1", OrderID: "order-1"})

	require.NoError(t, err)
	assert.True(t, res.Verified)
	assert.Equal(t, model.OrderStatusCompleted, res.Status)
}

func TestVerifyPayment_PersistsRequestItemsWhenOrderHasNone(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	order := pendingOrder()
	order.LineItems = nil
	m.orders.On("FindByID", ctx, "order-1").Return(order, nil)
	m.gateway.On("VerifyTransaction", ctx, "ref-1").
		Return(&paystack.Transaction{Status: "success", Reference: "ref-1", Amount: 500000, Currency: "NGN"}, nil)
	m.orders.On("Complete", ctx, mock.MatchedBy(func(c repository.Completion) bool {
		return len(c.MissingItems) == 1 && c.MissingItems[0].BeatID == "beat-9" && c.MissingItems[0].OrderID == "order-1"
	})).Return(true, nil)

	res, err := svc.VerifyPayment(ctx, "buyer-1", VerifyPaymentInput{
		Reference:  "ref-1",
		OrderID:    "order-1",
		OrderItems: []OrderItemInput{{BeatID: "beat-9", Price: decimal.RequireFromString("5000")}},
	})

	require.NoError(t, err)
	assert.True(t, res.Verified)
	m.orders.AssertExpectations(t)
}

func TestVerifyPayment_RejectsItemsBeyondOrderTotal(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	order := pendingOrder()
	order.LineItems = nil
	m.orders.On("FindByID", ctx, "order-1").Return(order, nil)

	_, err := svc.VerifyPayment(ctx, "buyer-1", VerifyPaymentInput{
		Reference: "ref-1",
		OrderID:   "order-1",
		OrderItems: []OrderItemInput{
			{BeatID: "beat-1", Price: decimal.RequireFromString("5000")},
			{BeatID: "beat-exclusive-2", Price: decimal.Zero},
		},
	})

	var vErr *ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, "orderItems", vErr.Field)
	m.gateway.AssertNotCalled(t, "VerifyTransaction", mock.Anything, mock.Anything)
	m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestVerifyPayment_RejectsInvalidRequestItems(t *testing.T) {
	tests := []struct {
		name  string
		items []OrderItemInput
	}{
		{"empty", nil},
		{"negative price", []OrderItemInput{
			{BeatID: "beat-1", Price: decimal.RequireFromString("6000")},
			{BeatID: "beat-2", Price: decimal.RequireFromString("-1000")},
		}},
		{"duplicate beat", []OrderItemInput{
			{BeatID: "beat-1", Price: decimal.RequireFromString("2500")},
			{BeatID: "beat-1", Price: decimal.RequireFromString("2500")},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, m := newTestOrderService()
			order := pendingOrder()
			order.LineItems = nil
			m.orders.On("FindByID", mock.Anything, "order-1").Return(order, nil)

			_, err := svc.VerifyPayment(context.Background(), "buyer-1", VerifyPaymentInput{
				Reference: "ref-1", OrderID: "order-1", OrderItems: tt.items,
			})

			var vErr *ValidationError
			assert.True(t, errors.As(err, &vErr))
			m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
		})
	}
}

func TestVerifyPayment_OtherBuyer(t *testing.T) {
	svc, m := newTestOrderService()
	m.orders.On("FindByID", mock.Anything, "order-1").Return(pendingOrder(), nil)

	_, err := svc.VerifyPayment(context.Background(), "intruder", VerifyPaymentInput{Reference: "ref-1", OrderID: "order-1"})

	var aErr *AuthorizationError
	assert.True(t, errors.As(err, &aErr))
}

func TestVerifyPayment_GatewayFailureMarksFailed(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	m.orders.On("FindByID", ctx, "order-1").Return(pendingOrder(), nil)
	m.gateway.On("VerifyTransaction", ctx, "ref-1").Return(&paystack.Transaction{Status: "failed", Reference: "ref-1"}, nil)
	m.orders.On("MarkFailed", ctx, "order-1").Return(true, nil)

	res, err := svc.VerifyPayment(ctx, "buyer-1", VerifyPaymentInput{Reference: "ref-1", OrderID: "order-1"})

	require.NoError(t, err)
	assert.False(t, res.Verified)
	assert.Equal(t, model.OrderStatusFailed, res.Status)
	m.orders.AssertNotCalled(t, "Complete", mock.Anything, mock.Anything)
}

func TestVerifyPayment_FailedOrderIsTerminal(t *testing.T) {
	svc, m := newTestOrderService()
	failed := pendingOrder()
	failed.Status = model.OrderStatusFailed
	m.orders.On("FindByID", mock.Anything, "order-1").Return(failed, nil)

	_, err := svc.VerifyPayment(context.Background(), "buyer-1", VerifyPaymentInput{Reference: "ref-1", OrderID: "order-1"})

	assert.ErrorIs(t, err, ErrOrderTerminal)
}

func TestCreateOrder(t *testing.T) {
	svc, m := newTestOrderService()
	ctx := context.Background()
	m.orders.On("Create", ctx, mock.AnythingOfType("*model.Order")).Return(nil)

	order, err := svc.CreateOrder(ctx, "buyer-1", CreateOrderInput{
		Reference: "ref-1",
		Items: []OrderItemInput{
			{BeatID: "beat-1", Price: decimal.RequireFromString("2500.50")},
			{BeatID: "beat-2", Price: decimal.RequireFromString("1499.50")},
		},
	})

	require.NoError(t, err)
	assert.True(t, order.TotalPrice.Equal(decimal.RequireFromString("4000")))
	assert.Equal(t, "NGN", order.Currency)
	assert.Equal(t, model.OrderStatusPending, order.Status)
	assert.Len(t, order.LineItems, 2)
}

func TestCreateOrder_DuplicateBeat(t *testing.T) {
	svc, m := newTestOrderService()

	_, err := svc.CreateOrder(context.Background(), "buyer-1", CreateOrderInput{
		Reference: "ref-1",
		Items:     []OrderItemInput{{BeatID: "beat-1"}, {BeatID: "beat-1"}},
	})

	var vErr *ValidationError
	assert.True(t, errors.As(err, &vErr))
	m.orders.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}
