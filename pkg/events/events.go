// Package events defines the domain events published to Kafka.
package events

import "time"

// Event types.
const (
	TypeUploadFinalized = "upload.finalized"
	TypeOrderCompleted  = "order.completed"
	TypePayoutUpdated   = "payout.updated"
)

// Envelope wraps every event on the topic.
type Envelope struct {
	Type       string      `json:"type"`
	Key        string      `json:"key"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

// UploadFinalized is emitted once an object is stored and its public URL resolved.
type UploadFinalized struct {
	UploaderID  string `json:"uploader_id"`
	Bucket      string `json:"bucket"`
	Path        string `json:"path"`
	URL         string `json:"url"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	Chunks      int    `json:"chunks"`
}

// OrderCompleted is emitted after the completion transaction commits.
type OrderCompleted struct {
	OrderID   string   `json:"order_id"`
	BuyerID   string   `json:"buyer_id"`
	Reference string   `json:"reference"`
	BeatIDs   []string `json:"beat_ids"`
}

// PayoutUpdated is emitted when a transfer event changes a payout.
type PayoutUpdated struct {
	PayoutID      uint   `json:"payout_id"`
	ProducerID    string `json:"producer_id"`
	TransferCode  string `json:"transfer_code"`
	Status        string `json:"status"`
	FailureReason string `json:"failure_reason,omitempty"`
}
