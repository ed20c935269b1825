package generator_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/plately/plately/internal/clock"
	orderdomain "github.com/plately/plately/internal/order/domain"
	platedomain "github.com/plately/plately/internal/plate/domain"
	"github.com/plately/plately/internal/plate/generator"
	platerepo "github.com/plately/plately/internal/plate/repository"
	webhookdomain "github.com/plately/plately/internal/webhook/domain"
	"github.com/plately/plately/internal/webhook/extract"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:memdb_gen_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}

	schema := []string{
		`CREATE TABLE plates (
			id BIGINT PRIMARY KEY,
			order_id BIGINT NOT NULL,
			public_slug TEXT NOT NULL,
			source_key TEXT NOT NULL,
			destination_url TEXT NOT NULL,
			status TEXT NOT NULL,
			activated_at TIMESTAMP,
			created_at TIMESTAMP NOT NULL
		)`,
		`CREATE UNIQUE INDEX ux_plates_source_key ON plates(source_key)`,
		`CREATE UNIQUE INDEX ux_plates_public_slug ON plates(public_slug)`,
	}
	for _, stmt := range schema {
		if err := db.Exec(stmt).Error; err != nil {
			t.Fatalf("create schema: %v", err)
		}
	}
	return db
}

func setupGenerator(t *testing.T) (*generator.Generator, *gorm.DB, platedomain.Repository, *snowflake.Node) {
	t.Helper()

	db := setupTestDB(t)
	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}
	repo := platerepo.Provide()
	gen := generator.New(generator.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		Repo:  repo,
	})
	return gen, db, repo, node
}

func TestGenerateIsIdempotentAcrossPasses(t *testing.T) {
	ctx := context.Background()
	gen, _, _, node := setupGenerator(t)

	order := &orderdomain.Order{ID: node.Generate(), OrderRef: "2001"}
	groups := []extract.Group{
		{Destination: "https://g.page/r/xyz/review", Units: 3, LineKey: "li_9"},
	}

	first, err := gen.Generate(ctx, order, groups)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	if first.Created != 3 || len(first.Plates) != 3 {
		t.Fatalf("expected 3 created / 3 total, got %d / %d", first.Created, len(first.Plates))
	}

	second, err := gen.Generate(ctx, order, groups)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if second.Created != 0 {
		t.Fatalf("expected 0 created on second pass, got %d", second.Created)
	}
	if len(second.Plates) != 3 {
		t.Fatalf("expected 3 total after second pass, got %d", len(second.Plates))
	}
}

func TestGenerateFillsGapsOnly(t *testing.T) {
	ctx := context.Background()
	gen, db, repo, node := setupGenerator(t)

	order := &orderdomain.Order{ID: node.Generate(), OrderRef: "2002"}

	// A previous partial pass left unit 0 behind.
	seeded := &platedomain.Plate{
		ID:             node.Generate(),
		OrderID:        order.ID,
		PublicSlug:     "2002-seeded",
		SourceKey:      platedomain.SourceKey("2002", "li_4", 0),
		DestinationURL: "https://g.page/r/partial/review",
		Status:         platedomain.StatusCreated,
		CreatedAt:      time.Now().UTC(),
	}
	if inserted, err := repo.Insert(ctx, db, seeded); err != nil || !inserted {
		t.Fatalf("seed plate: inserted=%v err=%v", inserted, err)
	}

	result, err := gen.Generate(ctx, order, []extract.Group{
		{Destination: "https://g.page/r/partial/review", Units: 2, LineKey: "li_4"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if result.Created != 1 {
		t.Fatalf("expected 1 created, got %d", result.Created)
	}
	if len(result.Plates) != 2 {
		t.Fatalf("expected 2 total, got %d", len(result.Plates))
	}
}

// racingRepo lands a competing plate row right after the advisory snapshot
// is taken, reproducing a concurrent execution inserting between
// ListSourceKeys and Insert.
type racingRepo struct {
	platedomain.Repository
	db       *gorm.DB
	conflict *platedomain.Plate
	fired    bool
}

func (r *racingRepo) ListSourceKeys(ctx context.Context, db *gorm.DB, orderID snowflake.ID) ([]string, error) {
	keys, err := r.Repository.ListSourceKeys(ctx, db, orderID)
	if err != nil {
		return nil, err
	}
	if !r.fired {
		r.fired = true
		inserted, err := r.Repository.Insert(ctx, r.db, r.conflict)
		if err != nil {
			return nil, err
		}
		if !inserted {
			return nil, errors.New("conflict row was not inserted")
		}
	}
	return keys, nil
}

func TestGenerateSwallowsPostSnapshotRace(t *testing.T) {
	ctx := context.Background()
	db := setupTestDB(t)

	node, err := snowflake.NewNode(3)
	if err != nil {
		t.Fatalf("new node: %v", err)
	}

	order := &orderdomain.Order{ID: node.Generate(), OrderRef: "2005"}
	repo := &racingRepo{
		Repository: platerepo.Provide(),
		db:         db,
		conflict: &platedomain.Plate{
			ID:             node.Generate(),
			OrderID:        order.ID,
			PublicSlug:     "2005-raced",
			SourceKey:      platedomain.SourceKey("2005", "li_8", 1),
			DestinationURL: "https://g.page/r/raced/review",
			Status:         platedomain.StatusCreated,
			CreatedAt:      time.Now().UTC(),
		},
	}

	gen := generator.New(generator.Params{
		DB:    db,
		Log:   zap.NewNop(),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)),
		Repo:  repo,
	})

	result, err := gen.Generate(ctx, order, []extract.Group{
		{Destination: "https://g.page/r/raced/review", Units: 3, LineKey: "li_8"},
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	// Unit 1 was claimed by the competing row after the snapshot; the losing
	// insert is not an error and must not duplicate the plate.
	if result.Created != 2 {
		t.Fatalf("expected 2 created, got %d", result.Created)
	}
	if len(result.Plates) != 3 {
		t.Fatalf("expected 3 plates in authoritative view, got %d", len(result.Plates))
	}

	var keys []string
	if err := db.Raw("SELECT source_key FROM plates ORDER BY source_key").Scan(&keys).Error; err != nil {
		t.Fatalf("scan keys: %v", err)
	}
	want := []string{
		platedomain.SourceKey("2005", "li_8", 0),
		platedomain.SourceKey("2005", "li_8", 1),
		platedomain.SourceKey("2005", "li_8", 2),
	}
	if len(keys) != len(want) {
		t.Fatalf("expected exactly %d rows, got %d", len(want), len(keys))
	}
	for i := range want {
		if keys[i] != want[i] {
			t.Fatalf("expected %v, got %v", want, keys)
		}
	}
}

func TestGenerateRejectsInvalidDestination(t *testing.T) {
	ctx := context.Background()
	gen, db, _, node := setupGenerator(t)

	order := &orderdomain.Order{ID: node.Generate(), OrderRef: "2003"}

	cases := []string{
		"javascript:alert(1)",
		"ftp://example.com/path",
		"not a url at all",
		"/relative/only",
	}
	for _, raw := range cases {
		_, err := gen.Generate(ctx, order, []extract.Group{
			{Destination: raw, Units: 1, LineKey: "li_1"},
		})
		if !errors.Is(err, webhookdomain.ErrInvalidDestination) {
			t.Fatalf("destination %q: expected ErrInvalidDestination, got %v", raw, err)
		}
	}

	var count int
	if err := db.Raw("SELECT COUNT(*) FROM plates").Scan(&count).Error; err != nil {
		t.Fatalf("count plates: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected no plates persisted, got %d", count)
	}
}

func TestGenerateValidatesDestinationBeforeCreatingUnits(t *testing.T) {
	ctx := context.Background()
	gen, db, _, node := setupGenerator(t)

	order := &orderdomain.Order{ID: node.Generate(), OrderRef: "2004"}

	// The bad group's destination must stop its own units even though the
	// first group is fine.
	_, err := gen.Generate(ctx, order, []extract.Group{
		{Destination: "https://g.page/r/ok/review", Units: 1, LineKey: "li_1"},
		{Destination: "mailto:owner@example.com", Units: 2, LineKey: "li_2"},
	})
	if !errors.Is(err, webhookdomain.ErrInvalidDestination) {
		t.Fatalf("expected ErrInvalidDestination, got %v", err)
	}

	var keys []string
	if err := db.Raw("SELECT source_key FROM plates").Scan(&keys).Error; err != nil {
		t.Fatalf("scan keys: %v", err)
	}
	for _, key := range keys {
		if key == platedomain.SourceKey("2004", "li_2", 0) || key == platedomain.SourceKey("2004", "li_2", 1) {
			t.Fatalf("unit from invalid group persisted: %s", key)
		}
	}
}
