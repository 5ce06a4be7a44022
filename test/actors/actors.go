package actors

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"swaphands/lostfound"
)

// Submitter files claims against the contested item as a fixed claimant.
// Duplicate-pending and already-claimed rejections are the expected outcomes
// under contention.
func Submitter(ctx context.Context, svc *lostfound.Service, itemID, claimantID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.SubmitClaim(ctx, lostfound.SubmitClaimParams{
			ItemID:        itemID,
			ClaimantID:    claimantID,
			Justification: "it has my initials on the back",
			Proof: lostfound.ProofDetails{
				Color: strPtr("black"),
			},
		})
		if err != nil &&
			!errors.Is(err, lostfound.ErrItemAlreadyClaimed) &&
			!errors.Is(err, lostfound.ErrDuplicatePendingClaim) &&
			!errors.Is(err, context.Canceled) {
			return fmt.Errorf("submitter: %w", err)
		}
		time.Sleep(time.Duration(10+rand.Intn(20)) * time.Millisecond)
	}
}

// Approver picks a random pending claim on the item and tries to approve it.
// Competing approvers converge on the item's row lock; at most one wins, the
// rest see a benign false.
func Approver(ctx context.Context, pool *pgxpool.Pool, svc *lostfound.Service, itemID, reviewerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		claimID, err := randomPendingClaim(ctx, pool, itemID)
		if err != nil {
			return fmt.Errorf("approver pick: %w", err)
		}
		if claimID != "" {
			if _, err := svc.ApproveClaim(ctx, claimID, reviewerID, nil); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("approver: %w", err)
			}
		}
		time.Sleep(time.Duration(20+rand.Intn(40)) * time.Millisecond)
	}
}

// Rejector rejects random pending claims, freeing claimants to resubmit.
func Rejector(ctx context.Context, pool *pgxpool.Pool, svc *lostfound.Service, itemID, reviewerID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		claimID, err := randomPendingClaim(ctx, pool, itemID)
		if err != nil {
			return fmt.Errorf("rejector pick: %w", err)
		}
		if claimID != "" {
			notes := "insufficient proof"
			if _, err := svc.RejectClaim(ctx, claimID, reviewerID, &notes); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("rejector: %w", err)
			}
		}
		time.Sleep(time.Duration(50+rand.Intn(100)) * time.Millisecond)
	}
}

// Reader exercises the listing paths while writers churn.
func Reader(ctx context.Context, svc *lostfound.Service, itemID string, stop <-chan struct{}) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		if _, err := svc.ListItems(ctx, lostfound.ItemFilter{UnclaimedOnly: true}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("reader items: %w", err)
		}
		if _, err := svc.ListClaims(ctx, lostfound.ClaimFilter{ItemID: itemID}); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("reader claims: %w", err)
		}
		time.Sleep(time.Duration(30+rand.Intn(50)) * time.Millisecond)
	}
}

// Poster keeps fresh items arriving so list queries see a moving set.
func Poster(ctx context.Context, svc *lostfound.Service, adminID string, stop <-chan struct{}) error {
	categories := []lostfound.Category{
		lostfound.CategoryBooks,
		lostfound.CategoryGadgets,
		lostfound.CategoryUniforms,
		lostfound.CategoryOther,
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-stop:
			return nil
		default:
		}
		_, err := svc.CreateItem(ctx, lostfound.CreateItemParams{
			Title:         fmt.Sprintf("found item %d", rand.Int63()),
			Category:      categories[rand.Intn(len(categories))],
			FoundLocation: "library",
			PostedBy:      adminID,
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("poster: %w", err)
		}
		time.Sleep(time.Duration(200+rand.Intn(200)) * time.Millisecond)
	}
}

func randomPendingClaim(ctx context.Context, pool *pgxpool.Pool, itemID string) (string, error) {
	var claimID string
	err := pool.QueryRow(ctx,
		`SELECT id FROM lost_found_claims WHERE item_id = $1 AND status = 'pending' ORDER BY random() LIMIT 1`,
		itemID).Scan(&claimID)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return "", nil
		}
		return "", err
	}
	return claimID, nil
}

func strPtr(s string) *string { return &s }
