package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Financial statuses carried over from the source platform.
const (
	StatusPaid      = "paid"
	StatusPending   = "pending"
	StatusCancelled = "cancelled"
)

// Order is the aggregate root for one business transaction. order_ref is the
// idempotency key: every delivery referencing the same business order
// converges onto one row. Plates reference the order but own their own
// lifecycle; the plate rows, not this aggregate, are authoritative for what
// exists.
type Order struct {
	ID              snowflake.ID `json:"id" gorm:"primaryKey"`
	OrderRef        string       `json:"order_ref" gorm:"type:text;not null;uniqueIndex:ux_orders_order_ref"`
	ContactEmail    string       `json:"contact_email" gorm:"type:text"`
	FinancialStatus string       `json:"financial_status" gorm:"type:text;not null"`
	Activated       bool         `json:"activated" gorm:"not null;default:false"`
	CreatedAt       time.Time    `json:"created_at" gorm:"not null"`
	UpdatedAt       time.Time    `json:"updated_at" gorm:"not null"`
}

func (Order) TableName() string { return "orders" }

// Service upserts the aggregate. Concurrent upserts for the same order_ref
// are last-write-wins on mutable fields; correctness never depends on their
// ordering because plate uniqueness is enforced independently.
type Service interface {
	Upsert(ctx context.Context, orderRef, contactEmail, financialStatus string) (*Order, error)
	Activate(ctx context.Context, id snowflake.ID) error
}

type Repository interface {
	FindByRef(ctx context.Context, db *gorm.DB, orderRef string) (*Order, error)
	// Insert creates the row keyed by order_ref. False means another
	// execution created it first.
	Insert(ctx context.Context, db *gorm.DB, order *Order) (bool, error)
	UpdateContact(ctx context.Context, db *gorm.DB, id snowflake.ID, contactEmail, financialStatus string, at time.Time) error
	MarkActivated(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error
}
