package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"beatmarket/internal/config"
	"beatmarket/internal/model"
	"beatmarket/internal/repository"
	"beatmarket/pkg/events"
	"beatmarket/pkg/log"
	"beatmarket/pkg/metrics"
	"beatmarket/pkg/paystack"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Webhook outcomes, also used as metric labels.
const (
	WebhookProcessed = "processed"
	WebhookDuplicate = "duplicate"
	WebhookIgnored   = "ignored"
)

// OrderItemInput is one beat in an order request.
type OrderItemInput struct {
	BeatID string          `json:"beatId" binding:"required"`
	Price  decimal.Decimal `json:"price"`
}

// CreateOrderInput is the body of an order creation request.
type CreateOrderInput struct {
	Reference     string           `json:"reference" binding:"required"`
	Currency      string           `json:"currency"`
	PaymentMethod string           `json:"paymentMethod"`
	Items         []OrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// VerifyPaymentInput is the body of an explicit verification request.
type VerifyPaymentInput struct {
	Reference  string           `json:"reference" binding:"required"`
	OrderID    string           `json:"orderId" binding:"required"`
	OrderItems []OrderItemInput `json:"orderItems"`
}

// VerifyResult reports the order state after verification.
type VerifyResult struct {
	Verified bool              `json:"verified"`
	OrderID  string            `json:"orderId"`
	Status   model.OrderStatus `json:"status"`
}

// OrderService drives orders from pending to a terminal state.
type OrderService interface {
	CreateOrder(ctx context.Context, buyerID string, in CreateOrderInput) (*model.Order, error)
	VerifyPayment(ctx context.Context, buyerID string, in VerifyPaymentInput) (*VerifyResult, error)
	// HandleWebhook authenticates and applies one gateway webhook delivery.
	HandleWebhook(ctx context.Context, body []byte, signature string) (string, error)
}

type orderService struct {
	orders  repository.OrderRepository
	payouts repository.PayoutRepository
	gateway PaymentGateway
	events  EventPublisher
	cfg     config.PaystackConfig
}

// NewOrderService creates an OrderService. events may be nil.
func NewOrderService(orders repository.OrderRepository, payouts repository.PayoutRepository, gateway PaymentGateway, events EventPublisher, cfg config.PaystackConfig) OrderService {
	return &orderService{
		orders:  orders,
		payouts: payouts,
		gateway: gateway,
		events:  events,
		cfg:     cfg,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, buyerID string, in CreateOrderInput) (*model.Order, error) {
	currency := strings.ToUpper(strings.TrimSpace(in.Currency))
	if currency == "" {
		currency = s.cfg.Currency
	}

	order := &model.Order{
		ID:               uuid.NewString(),
		BuyerID:          buyerID,
		Currency:         currency,
		Status:           model.OrderStatusPending,
		PaymentMethod:    in.PaymentMethod,
		PaymentReference: in.Reference,
	}
	items, total, err := buildLineItems(order.ID, currency, in.Items)
	if err != nil {
		return nil, err
	}
	order.LineItems = items
	order.TotalPrice = total

	if err := s.orders.Create(ctx, order); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, newValidationError("reference", "an order with this payment reference already exists")
		}
		return nil, fmt.Errorf("failed to create order: %w", err)
	}
	log.Infow("[OrderService] order created", "orderId", order.ID, "buyerId", buyerID, "reference", in.Reference, "total", total.String())
	return order, nil
}

func (s *orderService) VerifyPayment(ctx context.Context, buyerID string, in VerifyPaymentInput) (*VerifyResult, error) {
	order, err := s.orders.FindByID(ctx, in.OrderID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("order %s: %w", in.OrderID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load order %s: %w", in.OrderID, err)
	}
	if order.BuyerID != buyerID {
		return nil, &AuthorizationError{Reason: "order belongs to another buyer"}
	}
	if order.PaymentReference != "" && order.PaymentReference != in.Reference {
		return nil, newValidationError("reference", "reference does not match the order")
	}

	if order.Status.Terminal() {
		if order.Status == model.OrderStatusFailed {
			return nil, fmt.Errorf("order %s: %w", order.ID, ErrOrderTerminal)
		}
		log.Infow("[OrderService] order already completed", "orderId", order.ID, "reference", in.Reference)
		return &VerifyResult{Verified: true, OrderID: order.ID, Status: order.Status}, nil
	}

	// Grants are derived from line items, so request items only stand in for
	// missing ones when they account for exactly the order total.
	var missing []model.LineItem
	if len(order.LineItems) == 0 {
		items, total, err := buildLineItems(order.ID, order.Currency, in.OrderItems)
		if err != nil {
			return nil, err
		}
		if !total.Equal(order.TotalPrice) {
			log.Warnw("[OrderService] order items do not match order total", "orderId", order.ID, "itemsTotal", total.String(), "orderTotal", order.TotalPrice.String())
			return nil, newValidationError("orderItems", "item prices add up to %s, order total is %s", total.String(), order.TotalPrice.String())
		}
		missing = items
	}

	tx, err := s.gateway.VerifyTransaction(ctx, in.Reference)
	if err != nil {
		return nil, gatewayError("verify transaction", err)
	}
	if !tx.Succeeded() {
		return s.unsuccessful(ctx, order, tx.Status)
	}

	charge := chargeFromTransaction(tx)
	if err := checkAmount(order, charge); err != nil {
		return nil, err
	}

	status, err := s.complete(ctx, order, charge, missing)
	if err != nil {
		return nil, err
	}
	return &VerifyResult{Verified: true, OrderID: order.ID, Status: status}, nil
}

// unsuccessful applies a gateway declared failure. Charges still in flight
// leave the order pending.
func (s *orderService) unsuccessful(ctx context.Context, order *model.Order, gatewayStatus string) (*VerifyResult, error) {
	switch gatewayStatus {
	case "failed", "abandoned", "reversed":
		changed, err := s.orders.MarkFailed(ctx, order.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to mark order %s failed: %w", order.ID, err)
		}
		log.Infow("[OrderService] payment not successful", "orderId", order.ID, "gatewayStatus", gatewayStatus, "markedFailed", changed)
		if !changed {
			return s.currentResult(ctx, order.ID)
		}
		return &VerifyResult{Verified: false, OrderID: order.ID, Status: model.OrderStatusFailed}, nil
	}
	return &VerifyResult{Verified: false, OrderID: order.ID, Status: model.OrderStatusPending}, nil
}

func (s *orderService) currentResult(ctx context.Context, orderID string) (*VerifyResult, error) {
	current, err := s.orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload order %s: %w", orderID, err)
	}
	return &VerifyResult{
		Verified: current.Status == model.OrderStatusCompleted,
		OrderID:  orderID,
		Status:   current.Status,
	}, nil
}

// complete moves order to completed with its grants and payment record. An
// order that is already completed is left as is.
func (s *orderService) complete(ctx context.Context, order *model.Order, charge paystack.ChargeData, missing []model.LineItem) (model.OrderStatus, error) {
	applied, err := s.orders.Complete(ctx, repository.Completion{
		OrderID:      order.ID,
		BuyerID:      order.BuyerID,
		MissingItems: missing,
		Payment: &model.Payment{
			OrderID:   order.ID,
			Reference: charge.Reference,
			Amount:    charge.Amount,
			Currency:  charge.Currency,
			Channel:   charge.Channel,
			Status:    "success",
			PaidAt:    charge.PaidAt,
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to complete order %s: %w", order.ID, err)
	}

	if !applied {
		current, err := s.orders.FindByID(ctx, order.ID)
		if err != nil {
			return "", fmt.Errorf("failed to reload order %s: %w", order.ID, err)
		}
		if current.Status == model.OrderStatusFailed {
			return "", fmt.Errorf("order %s: %w", order.ID, ErrOrderTerminal)
		}
		log.Infow("[OrderService] order already completed, nothing to do", "orderId", order.ID, "reference", charge.Reference)
		return current.Status, nil
	}

	log.Infow("[OrderService] order completed", "orderId", order.ID, "buyerId", order.BuyerID, "reference", charge.Reference)
	s.publish(ctx, events.TypeOrderCompleted, order.ID, events.OrderCompleted{
		OrderID:   order.ID,
		BuyerID:   order.BuyerID,
		Reference: charge.Reference,
		BeatIDs:   beatIDs(order.LineItems, missing),
	})
	return model.OrderStatusCompleted, nil
}

func (s *orderService) HandleWebhook(ctx context.Context, body []byte, signature string) (string, error) {
	if !paystack.VerifySignature(s.cfg.SecretKey, body, signature) {
		metrics.RecordWebhook("unknown", "invalid_signature")
		log.Warnw("[OrderService] webhook rejected: bad signature", "bodyBytes", len(body))
		return "", ErrInvalidSignature
	}

	var ev paystack.Event
	if err := json.Unmarshal(body, &ev); err != nil {
		metrics.RecordWebhook("unknown", "malformed")
		return "", newValidationError("body", "malformed webhook payload")
	}

	var (
		outcome string
		err     error
	)
	switch ev.Event {
	case paystack.EventChargeSuccess:
		outcome, err = s.handleChargeSuccess(ctx, ev.Data)
	case paystack.EventTransferSuccess, paystack.EventTransferFailed, paystack.EventTransferReversed:
		outcome, err = s.handleTransfer(ctx, ev.Event, ev.Data)
	default:
		outcome = WebhookIgnored
	}
	if err != nil {
		metrics.RecordWebhook(ev.Event, "error")
		return "", err
	}
	metrics.RecordWebhook(ev.Event, outcome)
	log.Infow("[OrderService] webhook handled", "event", ev.Event, "outcome", outcome)
	return outcome, nil
}

func (s *orderService) handleChargeSuccess(ctx context.Context, raw json.RawMessage) (string, error) {
	var charge paystack.ChargeData
	if err := json.Unmarshal(raw, &charge); err != nil || charge.Reference == "" {
		return "", newValidationError("data", "charge event without a reference")
	}

	order, err := s.orders.FindByReference(ctx, charge.Reference)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnw("[OrderService] charge for unknown reference", "reference", charge.Reference)
		return "", fmt.Errorf("order with reference %s: %w", charge.Reference, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load order by reference %s: %w", charge.Reference, err)
	}
	if order.Status.Terminal() {
		if order.Status == model.OrderStatusCompleted {
			return WebhookDuplicate, nil
		}
		return "", fmt.Errorf("order %s: %w", order.ID, ErrOrderTerminal)
	}
	if err := checkAmount(order, charge); err != nil {
		return "", err
	}

	if _, err := s.complete(ctx, order, charge, nil); err != nil {
		return "", err
	}
	return WebhookProcessed, nil
}

func (s *orderService) handleTransfer(ctx context.Context, event string, raw json.RawMessage) (string, error) {
	var transfer paystack.TransferData
	if err := json.Unmarshal(raw, &transfer); err != nil {
		return "", newValidationError("data", "malformed transfer event")
	}

	payout, err := s.payouts.FindByTransfer(ctx, transfer.TransferCode, transfer.Reference)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		log.Warnw("[OrderService] transfer for unknown payout", "transferCode", transfer.TransferCode, "reference", transfer.Reference)
		return "", fmt.Errorf("payout %s: %w", transfer.TransferCode, ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load payout %s: %w", transfer.TransferCode, err)
	}

	status, reason := model.PayoutStatusSuccess, ""
	switch event {
	case paystack.EventTransferFailed:
		status, reason = model.PayoutStatusFailed, transfer.FailureReason()
	case paystack.EventTransferReversed:
		status, reason = model.PayoutStatusReversed, transfer.FailureReason()
	}

	// A success may still be reversed; every other terminal payout stays as is.
	reversal := status == model.PayoutStatusReversed && payout.Status == model.PayoutStatusSuccess
	if model.PayoutTerminal(payout.Status) && !reversal {
		log.Infow("[OrderService] payout already terminal", "payoutId", payout.ID, "current", payout.Status, "event", event)
		return WebhookDuplicate, nil
	}

	changed, err := s.payouts.UpdateStatus(ctx, payout.ID, status, reason)
	if err != nil {
		return "", fmt.Errorf("failed to update payout %d: %w", payout.ID, err)
	}
	if !changed {
		log.Infow("[OrderService] payout transition skipped", "payoutId", payout.ID, "current", payout.Status, "event", event)
		return WebhookDuplicate, nil
	}

	s.publish(ctx, events.TypePayoutUpdated, payout.ProducerID, events.PayoutUpdated{
		PayoutID:      payout.ID,
		ProducerID:    payout.ProducerID,
		TransferCode:  payout.TransferCode,
		Status:        status,
		FailureReason: reason,
	})
	return WebhookProcessed, nil
}

func (s *orderService) publish(ctx context.Context, eventType, key string, payload interface{}) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, eventType, key, payload); err != nil {
		log.Warnw("[OrderService] failed to publish event", "type", eventType, "key", key, "error", err)
	}
}

// checkAmount rejects charges below the order total. Amounts are in minor units.
func checkAmount(order *model.Order, charge paystack.ChargeData) error {
	due := order.TotalPrice.Shift(2).Ceil().IntPart()
	if charge.Amount < due {
		log.Warnw("[OrderService] charge below order total", "orderId", order.ID, "reference", charge.Reference, "paid", charge.Amount, "due", due)
		return newValidationError("amount", "paid amount is lower than the order total")
	}
	if charge.Currency != "" && !strings.EqualFold(charge.Currency, order.Currency) {
		return newValidationError("currency", "paid currency %s does not match order currency %s", charge.Currency, order.Currency)
	}
	return nil
}

func chargeFromTransaction(tx *paystack.Transaction) paystack.ChargeData {
	return paystack.ChargeData{
		ID:        tx.ID,
		Status:    tx.Status,
		Reference: tx.Reference,
		Amount:    tx.Amount,
		Currency:  tx.Currency,
		Channel:   tx.Channel,
		PaidAt:    tx.PaidAt,
	}
}

// buildLineItems validates request items and returns them with their total.
func buildLineItems(orderID, currency string, in []OrderItemInput) ([]model.LineItem, decimal.Decimal, error) {
	if len(in) == 0 {
		return nil, decimal.Zero, newValidationError("items", "an order needs at least one item")
	}
	seen := make(map[string]bool, len(in))
	total := decimal.Zero
	items := make([]model.LineItem, 0, len(in))
	for _, item := range in {
		if strings.TrimSpace(item.BeatID) == "" {
			return nil, decimal.Zero, newValidationError("items", "item without a beat id")
		}
		if item.Price.IsNegative() {
			return nil, decimal.Zero, newValidationError("items", "price of beat %s is negative", item.BeatID)
		}
		if seen[item.BeatID] {
			return nil, decimal.Zero, newValidationError("items", "beat %s is listed twice", item.BeatID)
		}
		seen[item.BeatID] = true
		total = total.Add(item.Price)
		items = append(items, model.LineItem{
			OrderID:      orderID,
			BeatID:       item.BeatID,
			PriceCharged: item.Price,
			CurrencyCode: currency,
		})
	}
	return items, total, nil
}

func beatIDs(groups ...[]model.LineItem) []string {
	var ids []string
	for _, items := range groups {
		for _, item := range items {
			ids = append(ids, item.BeatID)
		}
	}
	return ids
}
