package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/webhook/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// Register is the replay-suppression commit point: the atomic insert-or-reject
// on the delivery_id unique index is the only synchronization primitive. A
// zero rows-affected result means another execution already owns this
// delivery.
func (r *repo) Register(ctx context.Context, db *gorm.DB, rec *domain.DeliveryRecord) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO webhook_deliveries (
			id, delivery_id, topic, status, order_ref, error, plates_created,
			payload, received_at, processed_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (delivery_id) DO NOTHING`,
		rec.ID,
		rec.DeliveryID,
		rec.Topic,
		rec.Status,
		rec.OrderRef,
		rec.Error,
		rec.PlatesCreated,
		rec.Payload,
		rec.ReceivedAt,
		rec.ProcessedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) Find(ctx context.Context, db *gorm.DB, deliveryID string) (*domain.DeliveryRecord, error) {
	var item domain.DeliveryRecord
	err := db.WithContext(ctx).Raw(
		`SELECT id, delivery_id, topic, status, order_ref, error, plates_created,
			payload, received_at, processed_at
		 FROM webhook_deliveries
		 WHERE delivery_id = ?
		 LIMIT 1`,
		deliveryID,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}

func (r *repo) List(ctx context.Context, db *gorm.DB, status string, limit int) ([]domain.DeliveryRecord, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	query := `SELECT id, delivery_id, topic, status, order_ref, error, plates_created,
			received_at, processed_at
		 FROM webhook_deliveries`
	args := []any{}
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, status)
	}
	query += ` ORDER BY received_at DESC LIMIT ?`
	args = append(args, limit)

	var items []domain.DeliveryRecord
	if err := db.WithContext(ctx).Raw(query, args...).Scan(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// MarkProcessed finalizes the delivery. The status guard keeps the transition
// monotonic: terminal records are never rewritten.
func (r *repo) MarkProcessed(ctx context.Context, db *gorm.DB, id snowflake.ID, orderRef string, platesCreated int, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_deliveries
		 SET status = ?, order_ref = ?, plates_created = ?, processed_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusProcessed,
		orderRef,
		platesCreated,
		at,
		id,
		domain.StatusReceived,
	).Error
}

func (r *repo) MarkFailed(ctx context.Context, db *gorm.DB, id snowflake.ID, orderRef string, message string, at time.Time) error {
	return db.WithContext(ctx).Exec(
		`UPDATE webhook_deliveries
		 SET status = ?, order_ref = ?, error = ?, processed_at = ?
		 WHERE id = ? AND status = ?`,
		domain.StatusFailed,
		orderRef,
		message,
		at,
		id,
		domain.StatusReceived,
	).Error
}

func (r *repo) PurgeTerminal(ctx context.Context, db *gorm.DB, before time.Time) (int64, error) {
	res := db.WithContext(ctx).Exec(
		`DELETE FROM webhook_deliveries
		 WHERE status IN (?, ?) AND received_at < ?`,
		domain.StatusProcessed,
		domain.StatusFailed,
		before,
	)
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
