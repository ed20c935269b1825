package service_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/clock"
	"github.com/plately/plately/internal/order/domain"
	orderrepo "github.com/plately/plately/internal/order/repository"
	orderservice "github.com/plately/plately/internal/order/service"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_order_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE orders (
			id BIGINT PRIMARY KEY,
			order_ref TEXT NOT NULL,
			contact_email TEXT,
			financial_status TEXT NOT NULL,
			activated BOOLEAN NOT NULL DEFAULT FALSE,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_orders_order_ref ON orders(order_ref)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func setupService(t *testing.T) (domain.Service, *gorm.DB) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(2)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	svc := orderservice.NewService(orderservice.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		Repo:  orderrepo.Provide(),
	})
	return svc, db
}

func TestUpsertCreatesThenRefreshes(t *testing.T) {
	ctx := context.Background()
	svc, db := setupService(t)

	first, err := svc.Upsert(ctx, "3001", "first@example.com", "paid")
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	if first.Activated {
		t.Fatal("new order must start deactivated")
	}

	second, err := svc.Upsert(ctx, "3001", "second@example.com", "paid")
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("upsert created a second row: %d vs %d", second.ID, first.ID)
	}

	var count int
	if err := db.Raw(`SELECT COUNT(*) FROM orders`).Scan(&count).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 order row, got %d", count)
	}

	var email string
	if err := db.Raw(`SELECT contact_email FROM orders WHERE order_ref = ?`, "3001").Scan(&email).Error; err != nil {
		t.Fatalf("scan email: %v", err)
	}
	if email != "second@example.com" {
		t.Fatalf("expected refreshed contact, got %s", email)
	}
}

func TestUpsertRequiresOrderRef(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	if _, err := svc.Upsert(ctx, "  ", "x@example.com", "paid"); err == nil {
		t.Fatal("expected error for blank order_ref")
	}
}

func TestActivateFlipsFlag(t *testing.T) {
	ctx := context.Background()
	svc, db := setupService(t)

	order, err := svc.Upsert(ctx, "3002", "buyer@example.com", "paid")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := svc.Activate(ctx, order.ID); err != nil {
		t.Fatalf("activate: %v", err)
	}

	var activated bool
	if err := db.Raw(`SELECT activated FROM orders WHERE id = ?`, order.ID).Scan(&activated).Error; err != nil {
		t.Fatalf("scan activated: %v", err)
	}
	if !activated {
		t.Fatal("order not activated")
	}
}

func TestUpsertNormalizesFinancialStatus(t *testing.T) {
	ctx := context.Background()
	svc, _ := setupService(t)

	order, err := svc.Upsert(ctx, "3003", "", "  PAID ")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if order.FinancialStatus != domain.StatusPaid {
		t.Fatalf("expected %s, got %s", domain.StatusPaid, order.FinancialStatus)
	}

	blank, err := svc.Upsert(ctx, "3004", "", "")
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if blank.FinancialStatus != domain.StatusPending {
		t.Fatalf("expected %s for blank status, got %s", domain.StatusPending, blank.FinancialStatus)
	}
}
