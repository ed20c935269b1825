package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// StatusCreated is the status every plate is born with. The ingestion
// pipeline never mutates a plate after creation; later status changes belong
// to admin tooling.
const StatusCreated = "created"

// Plate is one physical asset. source_key is the idempotency key; the
// public_slug is a cosmetic public identifier and plays no part in
// deduplication.
type Plate struct {
	ID             snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderID        snowflake.ID `json:"order_id" gorm:"not null;index:ix_plates_order_id"`
	PublicSlug     string       `json:"public_slug" gorm:"type:text;not null;uniqueIndex:ux_plates_public_slug"`
	SourceKey      string       `json:"source_key" gorm:"type:text;not null;uniqueIndex:ux_plates_source_key"`
	DestinationURL string       `json:"destination_url" gorm:"type:text;not null"`
	Status         string       `json:"status" gorm:"type:text;not null"`
	ActivatedAt    *time.Time   `json:"activated_at"`
	CreatedAt      time.Time    `json:"created_at" gorm:"not null"`
}

func (Plate) TableName() string { return "plates" }

// SourceKey derives the deterministic idempotency key for one physical
// asset. Identical inputs across redeliveries always produce the same key,
// which the storage unique index collapses to one row.
func SourceKey(orderRef, lineKey string, unitIndex int) string {
	return fmt.Sprintf("%s|%s|%d", orderRef, lineKey, unitIndex)
}

type Repository interface {
	// Insert creates the plate keyed by source_key. False without error means
	// a concurrent execution created the same key first, which satisfies the
	// same invariant.
	Insert(ctx context.Context, db *gorm.DB, plate *Plate) (bool, error)
	ListSourceKeys(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]string, error)
	ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]Plate, error)
	FindBySlug(ctx context.Context, db *gorm.DB, publicSlug string) (*Plate, error)
}
