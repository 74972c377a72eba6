package model

import "time"

// Payout statuses mirrored from gateway transfer events.
const (
	PayoutStatusPending  = "pending"
	PayoutStatusSuccess  = "success"
	PayoutStatusFailed   = "failed"
	PayoutStatusReversed = "reversed"
)

// Payout maps the payouts table (producer transfers).
type Payout struct {
	ID            uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	ProducerID    string    `gorm:"type:varchar(36);not null;index" json:"producerId"`
	TransferCode  string    `gorm:"type:varchar(64);uniqueIndex" json:"transferCode"`
	Reference     string    `gorm:"type:varchar(128);index" json:"reference"`
	Amount        int64     `gorm:"not null" json:"amount"`
	Currency      string    `gorm:"type:varchar(8);not null" json:"currency"`
	Status        string    `gorm:"type:varchar(16);not null;default:'pending'" json:"status"`
	FailureReason string    `gorm:"type:text" json:"failureReason"`
	CreatedAt     time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt     time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

func (Payout) TableName() string {
	return "payouts"
}

// PayoutTerminal reports whether status can no longer change.
func PayoutTerminal(status string) bool {
	return status == PayoutStatusSuccess || status == PayoutStatusFailed || status == PayoutStatusReversed
}
