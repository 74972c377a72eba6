// Package paystack is a small client for the Paystack REST API covering
// subaccounts, splits, bank listing and transaction verification.
package paystack

import (
	"context"
	"fmt"
	"time"

	"beatmarket/internal/config"
	"beatmarket/pkg/metrics"

	"github.com/go-resty/resty/v2"
)

// APIError is returned when the gateway answers with a non-2xx status or
// with status=false in its envelope.
type APIError struct {
	Operation  string
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("paystack %s failed (status %d): %s", e.Operation, e.StatusCode, e.Message)
}

// envelope is the common response shape of every Paystack endpoint.
type envelope[T any] struct {
	Status  bool   `json:"status"`
	Message string `json:"message"`
	Data    T      `json:"data"`
}

// Subaccount is the subaccount object returned by the gateway.
type Subaccount struct {
	ID               int64   `json:"id"`
	SubaccountCode   string  `json:"subaccount_code"`
	BusinessName     string  `json:"business_name"`
	AccountName      string  `json:"account_name"`
	SettlementBank   string  `json:"settlement_bank"`
	AccountNumber    string  `json:"account_number"`
	PercentageCharge float64 `json:"percentage_charge"`
}

// CreateSubaccountRequest is the body of POST /subaccount.
type CreateSubaccountRequest struct {
	BusinessName     string  `json:"business_name"`
	SettlementBank   string  `json:"settlement_bank"`
	AccountNumber    string  `json:"account_number"`
	PercentageCharge float64 `json:"percentage_charge"`
}

// UpdateSubaccountRequest is the body of PUT /subaccount/{code}. Empty fields are omitted.
type UpdateSubaccountRequest struct {
	BusinessName   string `json:"business_name,omitempty"`
	SettlementBank string `json:"settlement_bank,omitempty"`
	AccountNumber  string `json:"account_number,omitempty"`
}

// SplitShare is one subaccount entry of a split.
type SplitShare struct {
	Subaccount string `json:"subaccount"`
	Share      int    `json:"share"`
}

// CreateSplitRequest is the body of POST /split.
type CreateSplitRequest struct {
	Name             string       `json:"name"`
	Type             string       `json:"type"`
	Currency         string       `json:"currency"`
	Subaccounts      []SplitShare `json:"subaccounts"`
	BearerType       string       `json:"bearer_type"`
	BearerSubaccount string       `json:"bearer_subaccount"`
}

// UpdateSplitRequest is the body of PUT /split/{code}.
type UpdateSplitRequest struct {
	Name        string       `json:"name,omitempty"`
	Active      *bool        `json:"active,omitempty"`
	Subaccounts []SplitShare `json:"subaccounts,omitempty"`
}

// Split is the split object returned by the gateway.
type Split struct {
	ID        int64  `json:"id"`
	SplitCode string `json:"split_code"`
	Name      string `json:"name"`
	Type      string `json:"type"`
	Currency  string `json:"currency"`
}

// Bank is one entry of GET /bank.
type Bank struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

// Transaction is the data of GET /transaction/verify/{reference}.
type Transaction struct {
	ID        int64      `json:"id"`
	Status    string     `json:"status"`
	Reference string     `json:"reference"`
	Amount    int64      `json:"amount"`
	Currency  string     `json:"currency"`
	Channel   string     `json:"channel"`
	PaidAt    *time.Time `json:"paid_at"`
}

// Succeeded reports whether the gateway settled the charge.
func (t *Transaction) Succeeded() bool {
	return t.Status == "success"
}

// Client calls the Paystack API with the secret key.
type Client struct {
	http *resty.Client
	// reads is used for idempotent reads that may be retried.
	reads *resty.Client
}

// NewClient builds a client from the paystack config section.
func NewClient(cfg config.PaystackConfig) *Client {
	newResty := func() *resty.Client {
		return resty.New().
			SetBaseURL(cfg.BaseURL).
			SetAuthToken(cfg.SecretKey).
			SetHeader("Content-Type", "application/json").
			SetTimeout(cfg.Timeout)
	}

	reads := newResty().
		SetRetryCount(cfg.BankListRetries).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(5 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err != nil || r.StatusCode() >= 500
		})

	return &Client{http: newResty(), reads: reads}
}

// CreateSubaccount calls POST /subaccount.
func (c *Client) CreateSubaccount(ctx context.Context, req CreateSubaccountRequest) (*Subaccount, error) {
	var out envelope[Subaccount]
	if err := do(ctx, c.http.R().SetBody(req), "create_subaccount", "POST", "/subaccount", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UpdateSubaccount calls PUT /subaccount/{code}.
func (c *Client) UpdateSubaccount(ctx context.Context, code string, req UpdateSubaccountRequest) (*Subaccount, error) {
	var out envelope[Subaccount]
	r := c.http.R().SetPathParam("code", code).SetBody(req)
	if err := do(ctx, r, "update_subaccount", "PUT", "/subaccount/{code}", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// CreateSplit calls POST /split.
func (c *Client) CreateSplit(ctx context.Context, req CreateSplitRequest) (*Split, error) {
	var out envelope[Split]
	if err := do(ctx, c.http.R().SetBody(req), "create_split", "POST", "/split", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// UpdateSplit calls PUT /split/{code}.
func (c *Client) UpdateSplit(ctx context.Context, code string, req UpdateSplitRequest) (*Split, error) {
	var out envelope[Split]
	r := c.http.R().SetPathParam("code", code).SetBody(req)
	if err := do(ctx, r, "update_split", "PUT", "/split/{code}", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// ListBanks calls GET /bank?country={country}. Transport errors and 5xx are retried.
func (c *Client) ListBanks(ctx context.Context, country string) ([]Bank, error) {
	var out envelope[[]Bank]
	r := c.reads.R().SetQueryParam("country", country)
	if err := do(ctx, r, "list_banks", "GET", "/bank", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

// VerifyTransaction calls GET /transaction/verify/{reference}. A declined charge
// is not an error; inspect Transaction.Status.
func (c *Client) VerifyTransaction(ctx context.Context, reference string) (*Transaction, error) {
	var out envelope[Transaction]
	r := c.reads.R().SetPathParam("reference", reference)
	if err := do(ctx, r, "verify_transaction", "GET", "/transaction/verify/{reference}", &out); err != nil {
		return nil, err
	}
	return &out.Data, nil
}

// do executes r and decodes the envelope into out. The error message of a
// failed call carries the gateway's own message.
func do[T any](ctx context.Context, r *resty.Request, op, method, path string, out *envelope[T]) error {
	var failed envelope[any]
	resp, err := r.SetContext(ctx).SetResult(out).SetError(&failed).Execute(method, path)
	if err != nil {
		metrics.RecordGatewayCall(op, "error")
		return fmt.Errorf("paystack %s request failed: %w", op, err)
	}
	if resp.IsError() {
		metrics.RecordGatewayCall(op, "rejected")
		msg := failed.Message
		if msg == "" {
			msg = resp.String()
		}
		return &APIError{Operation: op, StatusCode: resp.StatusCode(), Message: msg}
	}
	if !out.Status {
		metrics.RecordGatewayCall(op, "rejected")
		return &APIError{Operation: op, StatusCode: resp.StatusCode(), Message: out.Message}
	}
	metrics.RecordGatewayCall(op, "success")
	return nil
}
