package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/order/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) FindByRef(ctx context.Context, db *gorm.DB, orderRef string) (*domain.Order, error) {
	var item domain.Order
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_ref, contact_email, financial_status, activated,
			created_at, updated_at
		 FROM orders
		 WHERE order_ref = ?
		 LIMIT 1`,
		orderRef,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, order *domain.Order) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO orders (
			id, order_ref, contact_email, financial_status, activated,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (order_ref) DO NOTHING`,
		order.ID,
		order.OrderRef,
		order.ContactEmail,
		order.FinancialStatus,
		order.Activated,
		order.CreatedAt,
		order.UpdatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) UpdateContact(ctx context.Context, db *gorm.DB, id snowflake.ID, contactEmail, financialStatus string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET contact_email = ?, financial_status = ?, updated_at = ?
		 WHERE id = ?`,
		contactEmail,
		financialStatus,
		at,
		id,
	).Error
}

func (r *repo) MarkActivated(ctx context.Context, db *gorm.DB, id snowflake.ID, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE orders
		 SET activated = TRUE, updated_at = ?
		 WHERE id = ?`,
		at,
		id,
	).Error
}
