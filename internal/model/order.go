package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an Order.
type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusCompleted OrderStatus = "completed"
	OrderStatusFailed    OrderStatus = "failed"
)

// Terminal reports whether no further transition is permitted from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusCompleted || s == OrderStatusFailed
}

// Order maps the orders table.
type Order struct {
	ID               string          `gorm:"type:varchar(36);primaryKey" json:"id"`
	BuyerID          string          `gorm:"type:varchar(36);not null;index" json:"buyerId"`
	TotalPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"totalPrice"`
	Currency         string          `gorm:"type:varchar(8);not null" json:"currency"`
	Status           OrderStatus     `gorm:"type:varchar(16);not null;default:'pending';index" json:"status"`
	PaymentMethod    string          `gorm:"type:varchar(32)" json:"paymentMethod"`
	PaymentReference string          `gorm:"type:varchar(128);uniqueIndex" json:"paymentReference"`
	CreatedAt        time.Time       `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt        time.Time       `gorm:"autoUpdateTime" json:"updatedAt"`
	LineItems        []LineItem      `gorm:"foreignKey:OrderID" json:"lineItems,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}

// LineItem maps the line_items table.
type LineItem struct {
	ID           uint            `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID      string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_line_items_order_beat" json:"orderId"`
	BeatID       string          `gorm:"type:varchar(36);not null;uniqueIndex:idx_line_items_order_beat" json:"beatId"`
	PriceCharged decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"priceCharged"`
	CurrencyCode string          `gorm:"type:varchar(8);not null" json:"currencyCode"`
}

func (LineItem) TableName() string {
	return "line_items"
}

// Payment maps the payments table; one row per verified gateway charge.
type Payment struct {
	ID        uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID   string     `gorm:"type:varchar(36);not null;index" json:"orderId"`
	Reference string     `gorm:"type:varchar(128);not null;uniqueIndex" json:"reference"`
	Amount    int64      `gorm:"not null" json:"amount"` // minor units (kobo)
	Currency  string     `gorm:"type:varchar(8);not null" json:"currency"`
	Channel   string     `gorm:"type:varchar(32)" json:"channel"`
	Status    string     `gorm:"type:varchar(32);not null" json:"status"`
	PaidAt    *time.Time `json:"paidAt"`
	CreatedAt time.Time  `gorm:"autoCreateTime" json:"createdAt"`
}

func (Payment) TableName() string {
	return "payments"
}

// PurchasedBeat maps user_purchased_beats, the ownership grant that authorizes downloads.
type PurchasedBeat struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_purchased_user_beat" json:"userId"`
	BeatID    string    `gorm:"type:varchar(36);not null;uniqueIndex:idx_purchased_user_beat" json:"beatId"`
	OrderID   string    `gorm:"type:varchar(36);not null;index" json:"orderId"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
}

func (PurchasedBeat) TableName() string {
	return "user_purchased_beats"
}
