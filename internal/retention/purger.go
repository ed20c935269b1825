package retention

import (
	"context"
	"time"

	"github.com/plately/plately/internal/clock"
	"github.com/plately/plately/internal/config"
	"github.com/plately/plately/internal/observability/metrics"
	"github.com/plately/plately/internal/webhook/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Cfg     config.Config
	Repo    domain.Repository
	Metrics *metrics.Metrics `optional:"true"`
}

// Purger removes terminal delivery records older than the retention window.
// It shares nothing with the ingestion path except the storage layer and is
// safe to restart at any point: every run derives its cutoff from the clock
// and deletes only what is already terminal.
type Purger struct {
	db       *gorm.DB
	log      *zap.Logger
	clock    clock.Clock
	repo     domain.Repository
	metrics  *metrics.Metrics
	days     int
	interval time.Duration
}

func New(p Params) *Purger {
	days := p.Cfg.RetentionDays
	if days <= 0 {
		days = 90
	}
	interval := p.Cfg.RetentionInterval
	if interval <= 0 {
		interval = 6 * time.Hour
	}
	return &Purger{
		db:       p.DB,
		log:      p.Log.Named("retention"),
		clock:    p.Clock,
		repo:     p.Repo,
		metrics:  p.Metrics,
		days:     days,
		interval: interval,
	}
}

// RunForever runs the purge on a fixed interval until ctx is cancelled.
func (p *Purger) RunForever(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	if err := p.RunOnce(ctx); err != nil {
		p.log.Warn("retention purge failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := p.RunOnce(ctx); err != nil {
				p.log.Warn("retention purge failed", zap.Error(err))
			}
		}
	}
}

// RunOnce deletes terminal delivery records received before the retention
// cutoff. Records still at received are left alone regardless of age; an
// in-flight delivery is not the purge's to judge.
func (p *Purger) RunOnce(ctx context.Context) error {
	cutoff := p.clock.Now().AddDate(0, 0, -p.days)
	purged, err := p.repo.PurgeTerminal(ctx, p.db, cutoff)
	if err != nil {
		return err
	}
	if purged > 0 {
		p.metrics.AddPurged(purged)
		p.log.Info("purged terminal deliveries",
			zap.Int64("purged", purged),
			zap.Time("cutoff", cutoff),
		)
	}
	return nil
}

var Module = fx.Module("retention",
	fx.Provide(New),
	fx.Invoke(runPurger),
)

func runPurger(lc fx.Lifecycle, purger *Purger) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			runCtx, cancel := context.WithCancel(context.Background())

			go purger.RunForever(runCtx)

			lc.Append(fx.Hook{
				OnStop: func(context.Context) error {
					cancel()
					return nil
				},
			})

			return nil
		},
	})
}
