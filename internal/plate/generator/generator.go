package generator

import (
	"context"
	"net/url"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gosimple/slug"
	"github.com/oklog/ulid/v2"
	"github.com/plately/plately/internal/clock"
	orderdomain "github.com/plately/plately/internal/order/domain"
	"github.com/plately/plately/internal/plate/domain"
	webhookdomain "github.com/plately/plately/internal/webhook/domain"
	"github.com/plately/plately/internal/webhook/extract"
	"github.com/plately/plately/pkg/db"
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

// Generator derives plate rows deterministically from review groups. It
// holds no locks: the source_key unique index is the only thing that keeps
// concurrent executions from duplicating a plate.
type Generator struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

// Result reports one generation pass. Plates is the authoritative post-pass
// view re-read from storage, not the in-memory created list, so concurrent
// executions converge on the same final state.
type Result struct {
	Created int
	Plates  []domain.Plate
}

func New(p Params) *Generator {
	return &Generator{
		db:    p.DB,
		log:   p.Log.Named("plate.generator"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Generate creates the missing plates for the order. Each group's destination
// is validated before any of its units are created; a malformed destination
// fails the whole event even when earlier groups already committed plates.
// That non-atomicity is acceptable: the committed plates are recognized by
// source_key on the corrected retry and never duplicated.
func (g *Generator) Generate(ctx context.Context, order *orderdomain.Order, groups []extract.Group) (*Result, error) {
	existingKeys, err := g.repo.ListSourceKeys(ctx, g.db, order.ID)
	if err != nil {
		return nil, err
	}
	// Advisory only. Correctness rests on the unique index, not this snapshot.
	existing := make(map[string]struct{}, len(existingKeys))
	for _, key := range existingKeys {
		existing[key] = struct{}{}
	}

	now := g.clock.Now()
	created := 0
	for _, group := range groups {
		destination, err := normalizeDestination(group.Destination)
		if err != nil {
			return nil, err
		}

		for unitIndex := 0; unitIndex < group.Units; unitIndex++ {
			sourceKey := domain.SourceKey(order.OrderRef, group.LineKey, unitIndex)
			if _, ok := existing[sourceKey]; ok {
				continue
			}

			plate := &domain.Plate{
				ID:             g.genID.Generate(),
				OrderID:        order.ID,
				PublicSlug:     g.newSlug(order.OrderRef),
				SourceKey:      sourceKey,
				DestinationURL: destination,
				Status:         domain.StatusCreated,
				CreatedAt:      now,
			}
			inserted, err := g.repo.Insert(ctx, g.db, plate)
			if err != nil {
				// A uniqueness violation here means another execution created
				// the same source_key after our snapshot, which satisfies the
				// invariant.
				if db.IsDuplicateKeyErr(err) {
					continue
				}
				return nil, err
			}
			if inserted {
				created++
			}
		}
	}

	plates, err := g.repo.ListByOrder(ctx, g.db, order.ID)
	if err != nil {
		return nil, err
	}
	return &Result{Created: created, Plates: plates}, nil
}

// newSlug builds the cosmetic public identifier. Uniqueness comes from the
// ULID; the slugified order ref only makes the link readable.
func (g *Generator) newSlug(orderRef string) string {
	return slug.Make(orderRef) + "-" + strings.ToLower(ulid.Make().String())
}

func normalizeDestination(raw string) (string, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return "", webhookdomain.ErrInvalidDestination
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", webhookdomain.ErrInvalidDestination
	}
	if parsed.Host == "" {
		return "", webhookdomain.ErrInvalidDestination
	}
	return parsed.String(), nil
}
