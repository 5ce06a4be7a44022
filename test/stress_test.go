package test

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"math/rand"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/sync/errgroup"

	"swaphands/lostfound"
	"swaphands/test/actors"
	"swaphands/test/infra"
	"swaphands/test/oracles"
)

var (
	flDuration    = flag.Duration("duration", 90*time.Second, "how long to run stress")
	flConcurrency = flag.Int("concurrency", 8, "number of concurrent actors")
	flSeed        = flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flDSN         = flag.String("dsn", "", "existing Postgres DSN to reuse (avoids Docker)")
)

func seedRNG(seed int64) { rand.Seed(seed) }

func TestClaimAdjudicationConcurrency(t *testing.T) {
	flag.Parse()
	seed := *flSeed
	seedRNG(seed)

	ctx, cancel := context.WithTimeout(context.Background(), *flDuration+60*time.Second)
	defer cancel()

	db, err := infra.Provision(ctx, *flDSN)
	if err != nil {
		t.Fatalf("provision postgres: %v", err)
	}
	defer db.Close(context.Background())

	// migrations
	pool, teardown, err := infra.ApplyMigrations(ctx, db.DSN, db.Shared)
	if err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	defer pool.Close()
	defer func() {
		if err := teardown(context.Background()); err != nil {
			t.Logf("teardown warning: %v", err)
		}
	}()

	// seed minimal data
	seedData := mustSeed(t, ctx, pool, *flConcurrency)

	svc := lostfound.NewService(pool, lostfound.NewRepository(pool))

	// run actors
	g, ctx2 := errgroup.WithContext(ctx)
	stop := make(chan struct{})

	// one submitter per student plus competing approvers battling over the same item
	for i := 0; i < *flConcurrency; i++ {
		claimantID := seedData.studentIDs[i%len(seedData.studentIDs)]
		g.Go(func() error {
			return actors.Submitter(ctx2, svc, seedData.itemID, claimantID, stop)
		})
		g.Go(func() error {
			return actors.Approver(ctx2, pool, svc, seedData.itemID, seedData.adminID, stop)
		})
	}

	// rejector frees claimants to resubmit while the item is unresolved
	g.Go(func() error { return actors.Rejector(ctx2, pool, svc, seedData.itemID, seedData.adminID, stop) })
	// reader keeps list queries running against the churn
	g.Go(func() error { return actors.Reader(ctx2, svc, seedData.itemID, stop) })
	// poster keeps fresh items arriving
	g.Go(func() error { return actors.Poster(ctx2, svc, seedData.adminID, stop) })

	// schedule oracle checks until duration reached
	deadline := time.Now().Add(*flDuration)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	var failed bool
loop:
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			break loop
		case <-ticker.C:
			name, row, err := oracles.Run(ctx2, pool)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					break loop
				}
				t.Fatalf("oracle error: %v", err)
			}
			if name != "" {
				failed = true
				dumpRecent(t, ctx2, pool)
				t.Fatalf("Oracle %s failed. First row: %s (seed=%d)", name, row, seed)
			}
		}
	}

	close(stop)
	if err := g.Wait(); err != nil && !failed {
		if !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("actors errored: %v", err)
		}
	}

	// final consistency sweep after all actors stop
	name, row, err := oracles.Run(context.Background(), pool)
	if err != nil {
		t.Fatalf("final oracle error: %v", err)
	}
	if name != "" {
		dumpRecent(t, context.Background(), pool)
		t.Fatalf("Final oracle %s failed. First row: %s (seed=%d)", name, row, seed)
	}
}

type seedIDs struct {
	adminID    string
	studentIDs []string
	itemID     string
}

func mustSeed(t *testing.T, ctx context.Context, pool *pgxpool.Pool, students int) seedIDs {
	t.Helper()
	var s seedIDs
	// admin who posts and reviews
	if err := pool.QueryRow(ctx,
		`INSERT INTO users (email, full_name, password_hash, role) VALUES ($1, $2, 'x', 'admin') RETURNING id`,
		fmt.Sprintf("admin%d@campus.test", rand.Int63()), "Stress Admin").Scan(&s.adminID); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	// students battling over the item
	if students < 2 {
		students = 2
	}
	for i := 0; i < students; i++ {
		var id string
		if err := pool.QueryRow(ctx,
			`INSERT INTO users (email, full_name, password_hash) VALUES ($1, $2, 'x') RETURNING id`,
			fmt.Sprintf("student%d-%d@campus.test", i, rand.Int63()), fmt.Sprintf("Student %d", i)).Scan(&id); err != nil {
			t.Fatalf("seed student %d: %v", i, err)
		}
		s.studentIDs = append(s.studentIDs, id)
	}
	// the contested item
	if err := pool.QueryRow(ctx,
		`INSERT INTO lost_found_items (title, category, found_location, posted_by) VALUES ('black backpack', 'other', 'cafeteria', $1) RETURNING id`,
		s.adminID).Scan(&s.itemID); err != nil {
		t.Fatalf("seed item: %v", err)
	}
	return s
}

func dumpRecent(t *testing.T, ctx context.Context, pool *pgxpool.Pool) {
	t.Helper()
	type dump struct {
		name string
		sql  string
	}
	dumps := []dump{
		{"lost_found_items", `SELECT id, title, is_claimed, claimed_by, updated_at FROM lost_found_items ORDER BY updated_at DESC LIMIT 50`},
		{"lost_found_claims", `SELECT id, item_id, claimant_id, status, reviewed_by, review_notes, updated_at FROM lost_found_claims ORDER BY updated_at DESC LIMIT 50`},
	}
	for _, d := range dumps {
		rows, err := pool.Query(ctx, d.sql)
		if err != nil {
			t.Logf("dump %s error: %v", d.name, err)
			continue
		}
		cols := rows.FieldDescriptions()
		t.Logf("-- %s --", d.name)
		for rows.Next() {
			vals, _ := rows.Values()
			// compact print
			buf := make([]any, 0, len(vals))
			for i := range vals {
				buf = append(buf, fmt.Sprintf("%s=%v", string(cols[i].Name), vals[i]))
			}
			t.Logf("%s", buf)
		}
		rows.Close()
	}
}
