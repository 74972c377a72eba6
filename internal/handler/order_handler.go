package handler

import (
	"io"
	"net/http"

	"beatmarket/internal/service"
	"beatmarket/pkg/log"
	"beatmarket/pkg/paystack"

	"github.com/gin-gonic/gin"
)

// maxWebhookBytes bounds the webhook body read into memory.
const maxWebhookBytes = 1 << 20

// OrderHandler serves orders, payment verification and gateway webhooks.
type OrderHandler struct {
	orderService service.OrderService
}

// NewOrderHandler creates an OrderHandler.
func NewOrderHandler(orderService service.OrderService) *OrderHandler {
	return &OrderHandler{orderService: orderService}
}

// CreateOrder opens a pending order for the caller.
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	var req service.CreateOrderInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "reference and at least one item are required")
		return
	}
	order, err := h.orderService.CreateOrder(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, "OrderHandler", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "data": order})
}

// VerifyPayment checks a charge with the gateway and completes the order.
func (h *OrderHandler) VerifyPayment(c *gin.Context) {
	var req service.VerifyPaymentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "reference and orderId are required")
		return
	}
	result, err := h.orderService.VerifyPayment(c.Request.Context(), currentUserID(c), req)
	if err != nil {
		respondError(c, "OrderHandler", err)
		return
	}
	respondOK(c, result)
}

// Webhook receives gateway events. The raw body is needed for the signature.
func (h *OrderHandler) Webhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBytes))
	if err != nil {
		log.Error("[OrderHandler] failed to read webhook body", err)
		respondBadRequest(c, "could not read body")
		return
	}
	outcome, err := h.orderService.HandleWebhook(c.Request.Context(), body, c.GetHeader(paystack.SignatureHeader))
	if err != nil {
		respondError(c, "OrderHandler", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "outcome": outcome})
}
