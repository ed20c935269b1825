package repository

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/plate/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, plate *domain.Plate) (bool, error) {
	res := db.WithContext(ctx).Exec(
		`INSERT INTO plates (
			id, order_id, public_slug, source_key, destination_url, status,
			activated_at, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_key) DO NOTHING`,
		plate.ID,
		plate.OrderID,
		plate.PublicSlug,
		plate.SourceKey,
		plate.DestinationURL,
		plate.Status,
		plate.ActivatedAt,
		plate.CreatedAt,
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *repo) ListSourceKeys(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]string, error) {
	var keys []string
	err := db.WithContext(ctx).Raw(
		`SELECT source_key
		 FROM plates
		 WHERE order_id = ?`,
		orderID,
	).Scan(&keys).Error
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (r *repo) ListByOrder(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]domain.Plate, error) {
	var items []domain.Plate
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, public_slug, source_key, destination_url, status,
			activated_at, created_at
		 FROM plates
		 WHERE order_id = ?
		 ORDER BY source_key`,
		orderID,
	).Scan(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (r *repo) FindBySlug(ctx context.Context, db *gorm.DB, publicSlug string) (*domain.Plate, error) {
	var item domain.Plate
	err := db.WithContext(ctx).Raw(
		`SELECT id, order_id, public_slug, source_key, destination_url, status,
			activated_at, created_at
		 FROM plates
		 WHERE public_slug = ?
		 LIMIT 1`,
		publicSlug,
	).Scan(&item).Error
	if err != nil {
		return nil, err
	}
	if item.ID == 0 {
		return nil, nil
	}
	return &item, nil
}
