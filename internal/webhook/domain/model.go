package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TopicOrdersPaid is the only event topic this pipeline accepts.
const TopicOrdersPaid = "orders/paid"

// Delivery statuses. Transitions are monotonic: received may move to
// processed or failed, both of which are terminal.
const (
	StatusReceived  = "received"
	StatusProcessed = "processed"
	StatusFailed    = "failed"
)

// DeliveryRecord identifies one physical delivery attempt of a webhook.
// The delivery_id uniqueness constraint is the replay-suppression primitive:
// whichever execution wins the insert owns the delivery.
type DeliveryRecord struct {
	ID            snowflake.ID   `json:"id" gorm:"primaryKey"`
	DeliveryID    string         `json:"delivery_id" gorm:"type:text;not null;uniqueIndex:ux_webhook_deliveries_delivery_id"`
	Topic         string         `json:"topic" gorm:"type:text;not null"`
	Status        string         `json:"status" gorm:"type:text;not null"`
	OrderRef      string         `json:"order_ref" gorm:"type:text"`
	Error         string         `json:"error" gorm:"type:text"`
	PlatesCreated int            `json:"plates_created" gorm:"not null;default:0"`
	// Stored as text, not jsonb: registration happens before parsing, so the
	// column must accept bodies that turn out not to be valid JSON.
	Payload       datatypes.JSON `json:"payload" gorm:"type:text"`
	ReceivedAt    time.Time      `json:"received_at" gorm:"not null"`
	ProcessedAt   *time.Time     `json:"processed_at"`
}

func (DeliveryRecord) TableName() string { return "webhook_deliveries" }

// InboundDelivery carries one raw webhook request into the pipeline. Payload
// is the exact byte sequence received on the wire; re-serializing it would
// invalidate the signature check.
type InboundDelivery struct {
	Topic      string
	DeliveryID string
	Signature  string
	Payload    []byte
}

// Service ingests webhook deliveries with exactly-once effects.
type Service interface {
	IngestDelivery(ctx context.Context, in InboundDelivery) error
}

// Repository persists delivery records. The db handle is passed explicitly so
// callers can scope operations to a transaction when needed.
type Repository interface {
	// Register inserts the record keyed by delivery_id. The boolean reports
	// whether this call won the insert; false means the delivery was already
	// registered by another execution.
	Register(ctx context.Context, db *gorm.DB, rec *DeliveryRecord) (bool, error)
	Find(ctx context.Context, db *gorm.DB, deliveryID string) (*DeliveryRecord, error)
	List(ctx context.Context, db *gorm.DB, status string, limit int) ([]DeliveryRecord, error)
	// MarkProcessed and MarkFailed only apply to records still at received;
	// terminal statuses never regress.
	MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, orderRef string, platesCreated int, at time.Time) error
	MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, orderRef string, message string, at time.Time) error
	// PurgeTerminal deletes processed and failed records received before the
	// cutoff. Records at received are never purged.
	PurgeTerminal(ctx context.Context, db *gorm.DB, before time.Time) (int64, error)
}
