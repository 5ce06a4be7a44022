package lostfound

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// TxBeginner abstracts pgxpool.Pool for testability.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Service enforces the lifecycle and mutual-exclusion invariants of the
// item/claim relationship. All writes that couple an item's claimed state to
// a claim's status go through ApproveClaim's transaction; no other code path
// may touch those fields together.
type Service struct {
	pool TxBeginner
	repo Repository
}

// NewService builds the adjudication service around a transaction source and
// a repository.
func NewService(pool TxBeginner, repo Repository) *Service {
	return &Service{
		pool: pool,
		repo: repo,
	}
}

// SubmitClaimParams carries a student's claim submission.
type SubmitClaimParams struct {
	ItemID        string
	ClaimantID    string
	Justification string
	Proof         ProofDetails
	ProofFiles    []string
}

// CreateItem logs a recovered item on behalf of an admin.
func (s *Service) CreateItem(ctx context.Context, params CreateItemParams) (Item, error) {
	if params.Title == "" {
		return Item{}, fmt.Errorf("lostfound: title required")
	}
	if params.PostedBy == "" {
		return Item{}, fmt.Errorf("lostfound: posting user id required")
	}
	if !isValidCategory(params.Category) {
		return Item{}, ErrInvalidCategory
	}
	return s.repo.CreateItem(ctx, params)
}

// GetItem returns a single lost & found item.
func (s *Service) GetItem(ctx context.Context, itemID string) (Item, error) {
	return s.repo.GetItemByID(ctx, itemID)
}

// ListItems returns items matching the filter, newest first.
func (s *Service) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	return s.repo.ListItems(ctx, filter)
}

// GetClaim returns a single claim.
func (s *Service) GetClaim(ctx context.Context, claimID string) (Claim, error) {
	return s.repo.GetClaimByID(ctx, claimID)
}

// ListClaims returns claims matching the filter, newest first.
func (s *Service) ListClaims(ctx context.Context, filter ClaimFilter) ([]Claim, error) {
	return s.repo.ListClaims(ctx, filter)
}

// SubmitClaim records a student's pending ownership claim. Preconditions are
// checked in order: the item must exist, must be unclaimed, and the claimant
// must not already have a pending claim on it. The partial unique index on
// (item_id, claimant_id, pending) backstops the last check under concurrent
// submissions.
func (s *Service) SubmitClaim(ctx context.Context, params SubmitClaimParams) (Claim, error) {
	if params.ItemID == "" {
		return Claim{}, fmt.Errorf("lostfound: item id required")
	}
	if params.ClaimantID == "" {
		return Claim{}, fmt.Errorf("lostfound: claimant id required")
	}
	if params.Justification == "" {
		return Claim{}, fmt.Errorf("lostfound: justification required")
	}

	item, err := s.repo.GetItemByID(ctx, params.ItemID)
	if err != nil {
		return Claim{}, err
	}
	if item.IsClaimed {
		return Claim{}, ErrItemAlreadyClaimed
	}

	exists, err := s.repo.HasPendingClaim(ctx, params.ItemID, params.ClaimantID)
	if err != nil {
		return Claim{}, err
	}
	if exists {
		return Claim{}, ErrDuplicatePendingClaim
	}

	return s.repo.InsertClaim(ctx, InsertClaimParams{
		ItemID:        params.ItemID,
		ClaimantID:    params.ClaimantID,
		Justification: params.Justification,
		Proof:         params.Proof,
		ProofFiles:    params.ProofFiles,
	})
}

// ApproveClaim resolves a claim in the claimant's favour inside a single
// transaction: the claim becomes approved, the item becomes claimed by the
// claimant, and every other pending claim on the item is auto-rejected.
//
// A false return with a nil error is a benign outcome, not a failure: the
// claim is gone or already resolved, or another approval won the item first.
// Lock order is item before claim everywhere. The bulk auto-reject writes
// sibling claim rows, so the item lock must be held before any claim lock;
// competing approvals of different claims on one item then serialize on the
// item row and exactly one transaction commits the win.
func (s *Service) ApproveClaim(ctx context.Context, claimID, reviewerID string, notes *string) (bool, error) {
	if claimID == "" {
		return false, fmt.Errorf("lostfound: claim id required")
	}
	if reviewerID == "" {
		return false, fmt.Errorf("lostfound: reviewer id required")
	}

	// Unlocked read to learn the item id; the authoritative status check is
	// the locked re-read below.
	claim, err := s.repo.GetClaimByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return false, nil
		}
		return false, err
	}
	if claim.Status != ClaimStatusPending {
		return false, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("lostfound: begin approval tx: %w", err)
	}
	defer tx.Rollback(ctx)

	item, err := s.repo.GetItemForUpdate(ctx, tx, claim.ItemID)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return false, nil
		}
		return false, err
	}
	if item.IsClaimed {
		// Another claim won the race.
		return false, nil
	}

	claim, err = s.repo.GetClaimForUpdate(ctx, tx, claimID)
	if err != nil {
		if errors.Is(err, ErrClaimNotFound) {
			return false, nil
		}
		return false, err
	}
	if claim.Status != ClaimStatusPending {
		// Resolved between the unlocked read and the lock.
		return false, nil
	}

	if err := s.repo.ApproveClaimTx(ctx, tx, claim.ID, reviewerID, notes); err != nil {
		return false, err
	}
	if err := s.repo.MarkItemClaimedTx(ctx, tx, item.ID, claim.ClaimantID); err != nil {
		return false, err
	}
	if _, err := s.repo.RejectOtherPendingClaimsTx(ctx, tx, item.ID, claim.ID, reviewerID); err != nil {
		return false, err
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("lostfound: commit approval tx: %w", err)
	}
	return true, nil
}

// RejectClaim resolves a pending claim against the claimant. Resolved claims
// are left untouched and reported as false, mirroring ApproveClaim; the item
// and sibling claims are unaffected, so a fresh claim on the item remains
// possible.
func (s *Service) RejectClaim(ctx context.Context, claimID, reviewerID string, notes *string) (bool, error) {
	if claimID == "" {
		return false, fmt.Errorf("lostfound: claim id required")
	}
	if reviewerID == "" {
		return false, fmt.Errorf("lostfound: reviewer id required")
	}
	return s.repo.RejectPendingClaim(ctx, claimID, reviewerID, notes)
}
