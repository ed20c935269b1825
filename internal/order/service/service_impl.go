package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/clock"
	"github.com/plately/plately/internal/order/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func NewService(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("order.service"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Upsert creates or refreshes the aggregate row for orderRef. The
// insert-then-reselect dance tolerates a concurrent execution creating the
// row between our lookup and insert: losing the order_ref insert race is not
// an error, the winner's row is loaded and updated instead.
func (s *Service) Upsert(ctx context.Context, orderRef, contactEmail, financialStatus string) (*domain.Order, error) {
	orderRef = strings.TrimSpace(orderRef)
	if orderRef == "" {
		return nil, errors.New("order_ref is required")
	}
	financialStatus = normalizeStatus(financialStatus)

	now := s.clock.Now()

	existing, err := s.repo.FindByRef(ctx, s.db, orderRef)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		created := &domain.Order{
			ID:              s.genID.Generate(),
			OrderRef:        orderRef,
			ContactEmail:    contactEmail,
			FinancialStatus: financialStatus,
			Activated:       false,
			CreatedAt:       now,
			UpdatedAt:       now,
		}
		inserted, err := s.repo.Insert(ctx, s.db, created)
		if err != nil {
			return nil, err
		}
		if inserted {
			return created, nil
		}
		existing, err = s.repo.FindByRef(ctx, s.db, orderRef)
		if err != nil {
			return nil, err
		}
		if existing == nil {
			return nil, errors.New("order vanished after losing insert race")
		}
	}

	if err := s.repo.UpdateContact(ctx, s.db, existing.ID, contactEmail, financialStatus, now); err != nil {
		return nil, err
	}
	existing.ContactEmail = contactEmail
	existing.FinancialStatus = financialStatus
	existing.UpdatedAt = now
	return existing, nil
}

// Activate flips the aggregate's activation flag after a full generation
// pass has completed.
func (s *Service) Activate(ctx context.Context, id snowflake.ID) error {
	return s.repo.MarkActivated(ctx, s.db, id, s.clock.Now())
}

func normalizeStatus(status string) string {
	status = strings.ToLower(strings.TrimSpace(status))
	switch status {
	case domain.StatusPaid, domain.StatusPending, domain.StatusCancelled:
		return status
	case "":
		return domain.StatusPending
	default:
		return status
	}
}
