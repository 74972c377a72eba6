package handler

import (
	"beatmarket/internal/service"

	"github.com/gin-gonic/gin"
)

// PaymentHandler serves the producer payment profile endpoints.
type PaymentHandler struct {
	paymentService service.PaymentService
}

// NewPaymentHandler creates a PaymentHandler.
func NewPaymentHandler(paymentService service.PaymentService) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// BankDetailsRequest is the body of PUT /producers/me/bank-details.
type BankDetailsRequest struct {
	BankCode            string `json:"bankCode" binding:"required"`
	AccountNumber       string `json:"accountNumber" binding:"required"`
	VerifiedAccountName string `json:"verifiedAccountName"`
}

// SplitShareRequest is the body of PUT /producers/me/split.
type SplitShareRequest struct {
	Share int `json:"share" binding:"required"`
}

// ListBanks returns the settlement banks supported by the gateway.
func (h *PaymentHandler) ListBanks(c *gin.Context) {
	banks, err := h.paymentService.ListBanks(c.Request.Context())
	if err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, banks)
}

// GetProfile returns the payment profile of the caller.
func (h *PaymentHandler) GetProfile(c *gin.Context) {
	profile, err := h.paymentService.GetProfile(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, profile)
}

// UpdateBankDetails stores the settlement account of the caller.
func (h *PaymentHandler) UpdateBankDetails(c *gin.Context) {
	var req BankDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "bankCode and accountNumber are required")
		return
	}
	profile, err := h.paymentService.UpdateBankDetails(c.Request.Context(), currentUserID(c), service.BankDetailsInput{
		BankCode:            req.BankCode,
		AccountNumber:       req.AccountNumber,
		VerifiedAccountName: req.VerifiedAccountName,
	})
	if err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, profile)
}

// CreateSubaccount provisions the gateway subaccount of the caller.
func (h *PaymentHandler) CreateSubaccount(c *gin.Context) {
	code, err := h.paymentService.ProvisionSubaccount(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, gin.H{"subaccountCode": code})
}

// CreateSplit provisions the gateway split of the caller.
func (h *PaymentHandler) CreateSplit(c *gin.Context) {
	code, err := h.paymentService.ProvisionSplit(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, gin.H{"splitCode": code})
}

// SetupPayments provisions whatever the caller is still missing.
func (h *PaymentHandler) SetupPayments(c *gin.Context) {
	profile, err := h.paymentService.SetupPayments(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, profile)
}

// UpdateSplitShare changes the producer share of the caller's split.
func (h *PaymentHandler) UpdateSplitShare(c *gin.Context) {
	var req SplitShareRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "share is required")
		return
	}
	if err := h.paymentService.UpdateSplitShare(c.Request.Context(), currentUserID(c), req.Share); err != nil {
		respondError(c, "PaymentHandler", err)
		return
	}
	respondOK(c, gin.H{"share": req.Share})
}
