package service

import (
	"context"
	"errors"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/clock"
	"github.com/plately/plately/internal/notification"
	"github.com/plately/plately/internal/observability/metrics"
	orderdomain "github.com/plately/plately/internal/order/domain"
	"github.com/plately/plately/internal/plate/generator"
	"github.com/plately/plately/internal/webhook/domain"
	"github.com/plately/plately/internal/webhook/extract"
	"github.com/plately/plately/internal/webhook/signature"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB         *gorm.DB
	Log        *zap.Logger
	GenID      *snowflake.Node
	Clock      clock.Clock
	Verifier   *signature.Verifier
	Repo       domain.Repository
	OrderSvc   orderdomain.Service
	Generator  *generator.Generator
	Dispatcher notification.Dispatcher
	Metrics    *metrics.Metrics `optional:"true"`
}

type Service struct {
	db         *gorm.DB
	log        *zap.Logger
	genID      *snowflake.Node
	clock      clock.Clock
	verifier   *signature.Verifier
	repo       domain.Repository
	orderSvc   orderdomain.Service
	generator  *generator.Generator
	dispatcher notification.Dispatcher
	metrics    *metrics.Metrics
}

func NewService(p Params) domain.Service {
	return &Service{
		db:         p.DB,
		log:        p.Log.Named("webhook.service"),
		genID:      p.GenID,
		clock:      p.Clock,
		verifier:   p.Verifier,
		repo:       p.Repo,
		orderSvc:   p.OrderSvc,
		generator:  p.Generator,
		dispatcher: p.Dispatcher,
		metrics:    p.Metrics,
	}
}

// IngestDelivery runs the full pipeline for one delivery attempt.
//
// Returned errors fall into two classes the handler cares about: the
// authentication sentinels (reject, nothing persisted) and everything else
// (infrastructure, the caller should redeliver). Replays and business-data
// failures both return nil: from the caller's perspective the delivery is
// terminally handled either way.
func (s *Service) IngestDelivery(ctx context.Context, in domain.InboundDelivery) error {
	topic := strings.TrimSpace(in.Topic)
	if topic == "" {
		return domain.ErrMissingTopic
	}
	if topic != domain.TopicOrdersPaid {
		return domain.ErrUnsupportedTopic
	}
	deliveryID := strings.TrimSpace(in.DeliveryID)
	if deliveryID == "" {
		return domain.ErrMissingDeliveryID
	}
	if err := s.verifier.Verify(in.Payload, in.Signature); err != nil {
		if errors.Is(err, domain.ErrInvalidSignature) {
			s.metrics.RecordDelivery(metrics.OutcomeRejected)
		}
		return err
	}

	rec := &domain.DeliveryRecord{
		ID:         s.genID.Generate(),
		DeliveryID: deliveryID,
		Topic:      topic,
		Status:     domain.StatusReceived,
		Payload:    datatypes.JSON(in.Payload),
		ReceivedAt: s.clock.Now(),
	}

	inserted, err := s.repo.Register(ctx, s.db, rec)
	if err != nil {
		return err
	}
	if !inserted {
		existing, err := s.repo.Find(ctx, s.db, deliveryID)
		if err != nil {
			return err
		}
		if existing == nil {
			return errors.New("delivery registration lost but record absent")
		}
		if existing.Status != domain.StatusReceived {
			// Terminal record: plain redelivery of an already-handled event.
			s.metrics.RecordDelivery(metrics.OutcomeReplayed)
			s.log.Info("duplicate delivery suppressed",
				zap.String("delivery_id", deliveryID),
				zap.String("status", existing.Status),
			)
			return nil
		}
		// A record stuck at received means a previous execution died before
		// finalizing. Redelivery legitimately reprocesses it; plate creation
		// converges through source_key uniqueness.
		s.log.Warn("reprocessing delivery stuck at received",
			zap.String("delivery_id", deliveryID))
		rec = existing
	}

	if err := s.process(ctx, rec); err != nil {
		if domain.IsBusinessErr(err) {
			if markErr := s.repo.MarkFailed(ctx, s.db, rec.ID, rec.OrderRef, err.Error(), s.clock.Now()); markErr != nil {
				return markErr
			}
			s.metrics.RecordDelivery(metrics.OutcomeFailed)
			s.log.Warn("delivery failed on business data",
				zap.String("delivery_id", deliveryID),
				zap.String("order_ref", rec.OrderRef),
				zap.Error(err),
			)
			// Terminal: redelivery cannot fix bad business data.
			return nil
		}
		s.metrics.RecordDelivery(metrics.OutcomeError)
		return err
	}

	return nil
}

func (s *Service) process(ctx context.Context, rec *domain.DeliveryRecord) error {
	event, err := extract.ParseOrder(rec.Payload)
	if err != nil {
		return err
	}
	rec.OrderRef = event.OrderRef

	order, err := s.orderSvc.Upsert(ctx, event.OrderRef, event.ContactEmail, event.FinancialStatus)
	if err != nil {
		return err
	}

	result, err := s.generator.Generate(ctx, order, event.Groups)
	if err != nil {
		return err
	}

	if err := s.orderSvc.Activate(ctx, order.ID); err != nil {
		return err
	}

	if err := s.repo.MarkProcessed(ctx, s.db, rec.ID, event.OrderRef, result.Created, s.clock.Now()); err != nil {
		return err
	}

	s.metrics.RecordDelivery(metrics.OutcomeProcessed)
	s.metrics.AddPlatesCreated(result.Created)
	s.log.Info("delivery processed",
		zap.String("delivery_id", rec.DeliveryID),
		zap.String("order_ref", event.OrderRef),
		zap.Int("plates_created", result.Created),
		zap.Int("plates_total", len(result.Plates)),
	)

	s.dispatcher.OrderProcessed(event.OrderRef, event.ContactEmail, result.Created, len(result.Plates))
	return nil
}
