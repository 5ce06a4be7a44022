package lostfound

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

func TestSubmitClaim_HappyPath(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)

	item := repo.addItem("Dell laptop", CategoryGadgets, "admin-1")

	claim, err := svc.SubmitClaim(context.Background(), SubmitClaimParams{
		ItemID:        item.ID,
		ClaimantID:    "student-1",
		Justification: "my laptop, serial XYZ",
	})
	if err != nil {
		t.Fatalf("submit claim: unexpected error: %v", err)
	}
	if claim.Status != ClaimStatusPending {
		t.Fatalf("expected status %s got %s", ClaimStatusPending, claim.Status)
	}
	if claim.ProofFiles == nil || len(claim.ProofFiles) != 0 {
		t.Fatalf("expected empty proof file list, got %v", claim.ProofFiles)
	}
	if claim.ItemID != item.ID || claim.ClaimantID != "student-1" {
		t.Fatalf("claim references wrong item or claimant: %+v", claim)
	}
}

func TestSubmitClaim_Validation(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)

	cases := []SubmitClaimParams{
		{ClaimantID: "s", Justification: "j"},
		{ItemID: "i", Justification: "j"},
		{ItemID: "i", ClaimantID: "s"},
	}
	for i, params := range cases {
		if _, err := svc.SubmitClaim(context.Background(), params); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}

func TestSubmitClaim_ItemNotFound(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)

	_, err := svc.SubmitClaim(context.Background(), SubmitClaimParams{
		ItemID:        "missing",
		ClaimantID:    "student-1",
		Justification: "mine",
	})
	if !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("expected ErrItemNotFound, got %v", err)
	}
}

func TestSubmitClaim_RejectsClaimedItem(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)

	item := repo.addItem("Umbrella", CategoryOther, "admin-1")
	owner := "student-9"
	repo.items[item.ID] = Item{
		ID: item.ID, Title: item.Title, Category: item.Category,
		PostedBy: item.PostedBy, IsClaimed: true, ClaimedBy: &owner,
	}

	// No pending claim exists on the item; the claimed flag alone must block.
	_, err := svc.SubmitClaim(context.Background(), SubmitClaimParams{
		ItemID:        item.ID,
		ClaimantID:    "student-1",
		Justification: "mine",
	})
	if !errors.Is(err, ErrItemAlreadyClaimed) {
		t.Fatalf("expected ErrItemAlreadyClaimed, got %v", err)
	}
}

func TestSubmitClaim_DuplicatePending(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)
	ctx := context.Background()

	item := repo.addItem("Calculus textbook", CategoryBooks, "admin-1")

	first, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "name on cover",
	})
	if err != nil {
		t.Fatalf("first submit: %v", err)
	}

	_, err = svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "resubmit",
	})
	if !errors.Is(err, ErrDuplicatePendingClaim) {
		t.Fatalf("expected ErrDuplicatePendingClaim, got %v", err)
	}

	// After rejection the same claimant may claim again.
	ok, err := svc.RejectClaim(ctx, first.ID, "admin-1", strPtr("insufficient proof"))
	if err != nil || !ok {
		t.Fatalf("reject: ok=%v err=%v", ok, err)
	}
	if _, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "with receipt this time",
	}); err != nil {
		t.Fatalf("resubmit after rejection: %v", err)
	}
}

func TestApproveClaim_HappyPath(t *testing.T) {
	repo := newFakeRepository()
	pool := &fakePool{}
	svc := NewService(pool, repo)
	ctx := context.Background()

	item := repo.addItem("Dell laptop", CategoryGadgets, "admin-1")
	claim, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "my laptop, serial XYZ",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ok, err := svc.ApproveClaim(ctx, claim.ID, "admin-1", strPtr("verified serial"))
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if !ok {
		t.Fatal("approve: expected true")
	}
	if pool.tx == nil || !pool.tx.committed {
		t.Fatal("expected transaction commit")
	}

	got := repo.claims[claim.ID]
	if got.Status != ClaimStatusApproved {
		t.Fatalf("expected approved, got %s", got.Status)
	}
	if got.ReviewedBy == nil || *got.ReviewedBy != "admin-1" {
		t.Fatalf("expected reviewer admin-1, got %v", got.ReviewedBy)
	}
	if got.ReviewNotes == nil || *got.ReviewNotes != "verified serial" {
		t.Fatalf("expected review notes, got %v", got.ReviewNotes)
	}

	gotItem := repo.items[item.ID]
	if !gotItem.IsClaimed {
		t.Fatal("expected item claimed")
	}
	if gotItem.ClaimedBy == nil || *gotItem.ClaimedBy != "student-1" {
		t.Fatalf("expected claimed_by student-1, got %v", gotItem.ClaimedBy)
	}
}

func TestApproveClaim_AutoRejectsSiblings(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)
	ctx := context.Background()

	item := repo.addItem("AirPods", CategoryGadgets, "admin-1")
	c1, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "engraved initials",
	})
	if err != nil {
		t.Fatalf("submit c1: %v", err)
	}
	c2, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-2", Justification: "lost them last week",
	})
	if err != nil {
		t.Fatalf("submit c2: %v", err)
	}

	ok, err := svc.ApproveClaim(ctx, c1.ID, "admin-1", nil)
	if err != nil || !ok {
		t.Fatalf("approve c1: ok=%v err=%v", ok, err)
	}

	loser := repo.claims[c2.ID]
	if loser.Status != ClaimStatusRejected {
		t.Fatalf("expected sibling rejected, got %s", loser.Status)
	}
	if loser.ReviewNotes == nil || *loser.ReviewNotes != AutoRejectNote {
		t.Fatalf("expected auto-reject note, got %v", loser.ReviewNotes)
	}
	if loser.ReviewedBy == nil || *loser.ReviewedBy != "admin-1" {
		t.Fatalf("expected reviewer on auto-rejected claim, got %v", loser.ReviewedBy)
	}
	if got := repo.items[item.ID]; got.ClaimedBy == nil || *got.ClaimedBy != "student-1" {
		t.Fatalf("expected item claimed by student-1, got %v", got.ClaimedBy)
	}

	// Approving the loser afterwards is a benign no-op.
	ok, err = svc.ApproveClaim(ctx, c2.ID, "admin-2", nil)
	if err != nil {
		t.Fatalf("approve c2: %v", err)
	}
	if ok {
		t.Fatal("approve c2: expected false after race loss")
	}
	if got := repo.claims[c2.ID]; got.ReviewedBy == nil || *got.ReviewedBy != "admin-1" {
		t.Fatalf("losing claim mutated by failed approval: %+v", got)
	}
}

func TestApproveClaim_AlreadyResolvedIsNoOp(t *testing.T) {
	repo := newFakeRepository()
	pool := &fakePool{}
	svc := NewService(pool, repo)
	ctx := context.Background()

	item := repo.addItem("Hoodie", CategoryUniforms, "admin-1")
	claim, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "has my name tag",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ok, err := svc.ApproveClaim(ctx, claim.ID, "admin-1", nil); err != nil || !ok {
		t.Fatalf("first approve: ok=%v err=%v", ok, err)
	}

	ok, err := svc.ApproveClaim(ctx, claim.ID, "admin-1", nil)
	if err != nil {
		t.Fatalf("second approve: %v", err)
	}
	if ok {
		t.Fatal("second approve: expected false")
	}
	// The unlocked pre-read sees the resolved status, so the no-op never
	// opens a second transaction.
	if pool.begun != 1 {
		t.Fatalf("expected a single transaction, begun %d", pool.begun)
	}
}

func TestApproveClaim_MissingClaim(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)

	ok, err := svc.ApproveClaim(context.Background(), "missing", "admin-1", nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok {
		t.Fatal("expected false for missing claim")
	}
}

func TestApproveClaim_ItemClaimedMeanwhile(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)
	ctx := context.Background()

	item := repo.addItem("Bicycle", CategoryOther, "admin-1")
	claim, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "frame number matches",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	// Simulate another transaction winning before the item lock is taken:
	// flip the item to claimed directly.
	winner := "student-2"
	stored := repo.items[item.ID]
	stored.IsClaimed = true
	stored.ClaimedBy = &winner
	repo.items[item.ID] = stored

	ok, err := svc.ApproveClaim(ctx, claim.ID, "admin-1", nil)
	if err != nil {
		t.Fatalf("approve: %v", err)
	}
	if ok {
		t.Fatal("expected false when item is already claimed")
	}
	if got := repo.claims[claim.ID]; got.Status != ClaimStatusPending {
		t.Fatalf("losing claim must stay pending here, got %s", got.Status)
	}
}

// Two admins approving rival claims on one item must converge on the item
// row lock before touching any claim row: the bulk auto-reject writes the
// rival's claim, so taking claim locks first would let the two transactions
// wait on each other. This pins the item-before-claim order.
func TestApproveClaim_LocksItemBeforeClaim(t *testing.T) {
	inner := newFakeRepository()
	repo := &lockOrderRepository{fakeRepository: inner}
	svc := NewService(&fakePool{}, repo)
	ctx := context.Background()

	item := inner.addItem("Headphones", CategoryGadgets, "admin-1")
	c1, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "scratch on the left cup",
	})
	if err != nil {
		t.Fatalf("submit c1: %v", err)
	}
	if _, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-2", Justification: "bought them in march",
	}); err != nil {
		t.Fatalf("submit c2: %v", err)
	}

	ok, err := svc.ApproveClaim(ctx, c1.ID, "admin-1", nil)
	if err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	if len(repo.locks) != 2 || repo.locks[0] != "item" || repo.locks[1] != "claim" {
		t.Fatalf("expected lock order [item claim], got %v", repo.locks)
	}
}

// lockOrderRepository records the sequence of FOR UPDATE acquisitions.
type lockOrderRepository struct {
	*fakeRepository
	locks []string
}

func (r *lockOrderRepository) GetItemForUpdate(ctx context.Context, tx pgx.Tx, itemID string) (Item, error) {
	r.locks = append(r.locks, "item")
	return r.fakeRepository.GetItemForUpdate(ctx, tx, itemID)
}

func (r *lockOrderRepository) GetClaimForUpdate(ctx context.Context, tx pgx.Tx, claimID string) (Claim, error) {
	r.locks = append(r.locks, "claim")
	return r.fakeRepository.GetClaimForUpdate(ctx, tx, claimID)
}

func TestRejectClaim_Pending(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)
	ctx := context.Background()

	item := repo.addItem("Scarf", CategoryOther, "admin-1")
	claim, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "it is blue",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}

	ok, err := svc.RejectClaim(ctx, claim.ID, "admin-1", strPtr("insufficient proof"))
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if !ok {
		t.Fatal("reject: expected true")
	}

	got := repo.claims[claim.ID]
	if got.Status != ClaimStatusRejected {
		t.Fatalf("expected rejected, got %s", got.Status)
	}
	if got.ReviewNotes == nil || *got.ReviewNotes != "insufficient proof" {
		t.Fatalf("expected notes, got %v", got.ReviewNotes)
	}
	if repo.items[item.ID].IsClaimed {
		t.Fatal("rejection must not touch the item")
	}
}

func TestRejectClaim_ResolvedIsNoOp(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(&fakePool{}, repo)
	ctx := context.Background()

	item := repo.addItem("Water bottle", CategoryOther, "admin-1")
	claim, err := svc.SubmitClaim(ctx, SubmitClaimParams{
		ItemID: item.ID, ClaimantID: "student-1", Justification: "sticker on the lid",
	})
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if ok, err := svc.ApproveClaim(ctx, claim.ID, "admin-1", nil); err != nil || !ok {
		t.Fatalf("approve: ok=%v err=%v", ok, err)
	}

	// Rejecting an approved claim must not un-resolve it; the item stays
	// consistent with the approved claim.
	ok, err := svc.RejectClaim(ctx, claim.ID, "admin-2", nil)
	if err != nil {
		t.Fatalf("reject: %v", err)
	}
	if ok {
		t.Fatal("reject: expected false on resolved claim")
	}
	if got := repo.claims[claim.ID]; got.Status != ClaimStatusApproved {
		t.Fatalf("approved claim mutated, got %s", got.Status)
	}
}

func strPtr(s string) *string { return &s }

// fakeRepository is an in-memory Repository. The *Tx variants ignore the
// transaction handle; the service's ordering and outcome contract is what
// these tests pin down, the real atomicity is covered by the integration and
// stress suites.
type fakeRepository struct {
	items  map[string]Item
	claims map[string]Claim
	nextID int
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		items:  make(map[string]Item),
		claims: make(map[string]Claim),
		nextID: 1,
	}
}

func (f *fakeRepository) id(prefix string) string {
	id := fmt.Sprintf("%s-%d", prefix, f.nextID)
	f.nextID++
	return id
}

func (f *fakeRepository) addItem(title string, category Category, postedBy string) Item {
	item := Item{
		ID:        f.id("item"),
		Title:     title,
		Category:  category,
		Photos:    []string{},
		PostedBy:  postedBy,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	f.items[item.ID] = item
	return item
}

func (f *fakeRepository) CreateItem(ctx context.Context, params CreateItemParams) (Item, error) {
	item := Item{
		ID:            f.id("item"),
		Title:         params.Title,
		Description:   params.Description,
		Category:      params.Category,
		FoundLocation: params.FoundLocation,
		Photos:        params.Photos,
		PostedBy:      params.PostedBy,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if item.Photos == nil {
		item.Photos = []string{}
	}
	f.items[item.ID] = item
	return item, nil
}

func (f *fakeRepository) GetItemByID(ctx context.Context, itemID string) (Item, error) {
	item, ok := f.items[itemID]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	return item, nil
}

func (f *fakeRepository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	out := []Item{}
	for _, item := range f.items {
		if filter.Category != "" && item.Category != filter.Category {
			continue
		}
		if filter.PostedBy != "" && item.PostedBy != filter.PostedBy {
			continue
		}
		if filter.UnclaimedOnly && item.IsClaimed {
			continue
		}
		out = append(out, item)
	}
	return out, nil
}

func (f *fakeRepository) InsertClaim(ctx context.Context, params InsertClaimParams) (Claim, error) {
	for _, c := range f.claims {
		if c.ItemID == params.ItemID && c.ClaimantID == params.ClaimantID && c.Status == ClaimStatusPending {
			return Claim{}, ErrDuplicatePendingClaim
		}
	}
	claim := Claim{
		ID:            f.id("claim"),
		ItemID:        params.ItemID,
		ClaimantID:    params.ClaimantID,
		Justification: params.Justification,
		Proof:         params.Proof,
		ProofFiles:    params.ProofFiles,
		Status:        ClaimStatusPending,
		CreatedAt:     time.Now().UTC(),
		UpdatedAt:     time.Now().UTC(),
	}
	if claim.ProofFiles == nil {
		claim.ProofFiles = []string{}
	}
	f.claims[claim.ID] = claim
	return claim, nil
}

func (f *fakeRepository) GetClaimByID(ctx context.Context, claimID string) (Claim, error) {
	claim, ok := f.claims[claimID]
	if !ok {
		return Claim{}, ErrClaimNotFound
	}
	return claim, nil
}

func (f *fakeRepository) ListClaims(ctx context.Context, filter ClaimFilter) ([]Claim, error) {
	out := []Claim{}
	for _, c := range f.claims {
		if filter.ItemID != "" && c.ItemID != filter.ItemID {
			continue
		}
		if filter.ClaimantID != "" && c.ClaimantID != filter.ClaimantID {
			continue
		}
		if filter.Status != "" && c.Status != filter.Status {
			continue
		}
		out = append(out, c)
	}
	return out, nil
}

func (f *fakeRepository) HasPendingClaim(ctx context.Context, itemID, claimantID string) (bool, error) {
	for _, c := range f.claims {
		if c.ItemID == itemID && c.ClaimantID == claimantID && c.Status == ClaimStatusPending {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) GetClaimForUpdate(ctx context.Context, tx pgx.Tx, claimID string) (Claim, error) {
	return f.GetClaimByID(ctx, claimID)
}

func (f *fakeRepository) GetItemForUpdate(ctx context.Context, tx pgx.Tx, itemID string) (Item, error) {
	return f.GetItemByID(ctx, itemID)
}

func (f *fakeRepository) ApproveClaimTx(ctx context.Context, tx pgx.Tx, claimID, reviewerID string, notes *string) error {
	claim, ok := f.claims[claimID]
	if !ok || claim.Status != ClaimStatusPending {
		return ErrClaimNotFound
	}
	claim.Status = ClaimStatusApproved
	claim.ReviewedBy = &reviewerID
	claim.ReviewNotes = notes
	claim.UpdatedAt = time.Now().UTC()
	f.claims[claimID] = claim
	return nil
}

func (f *fakeRepository) MarkItemClaimedTx(ctx context.Context, tx pgx.Tx, itemID, claimantID string) error {
	item, ok := f.items[itemID]
	if !ok || item.IsClaimed {
		return ErrItemAlreadyClaimed
	}
	item.IsClaimed = true
	item.ClaimedBy = &claimantID
	item.UpdatedAt = time.Now().UTC()
	f.items[itemID] = item
	return nil
}

func (f *fakeRepository) RejectOtherPendingClaimsTx(ctx context.Context, tx pgx.Tx, itemID, excludeClaimID, reviewerID string) (int64, error) {
	note := AutoRejectNote
	var n int64
	for id, c := range f.claims {
		if c.ItemID != itemID || c.ID == excludeClaimID || c.Status != ClaimStatusPending {
			continue
		}
		c.Status = ClaimStatusRejected
		c.ReviewedBy = &reviewerID
		c.ReviewNotes = &note
		c.UpdatedAt = time.Now().UTC()
		f.claims[id] = c
		n++
	}
	return n, nil
}

func (f *fakeRepository) RejectPendingClaim(ctx context.Context, claimID, reviewerID string, notes *string) (bool, error) {
	claim, ok := f.claims[claimID]
	if !ok || claim.Status != ClaimStatusPending {
		return false, nil
	}
	claim.Status = ClaimStatusRejected
	claim.ReviewedBy = &reviewerID
	claim.ReviewNotes = notes
	claim.UpdatedAt = time.Now().UTC()
	f.claims[claimID] = claim
	return true, nil
}

type fakePool struct {
	tx    *fakeTx
	begun int
}

func (f *fakePool) Begin(ctx context.Context) (pgx.Tx, error) {
	f.tx = &fakeTx{}
	f.begun++
	return f.tx, nil
}

type fakeTx struct {
	rolled    bool
	committed bool
}

func (f *fakeTx) Begin(context.Context) (pgx.Tx, error) {
	return nil, errors.New("fakeTx does not support nested transactions")
}

func (f *fakeTx) Commit(context.Context) error {
	f.committed = true
	return nil
}

func (f *fakeTx) Rollback(context.Context) error {
	f.rolled = true
	return nil
}

func (f *fakeTx) CopyFrom(context.Context, pgx.Identifier, []string, pgx.CopyFromSource) (int64, error) {
	panic("not implemented")
}

func (f *fakeTx) SendBatch(context.Context, *pgx.Batch) pgx.BatchResults {
	panic("not implemented")
}

func (f *fakeTx) LargeObjects() pgx.LargeObjects {
	panic("not implemented")
}

func (f *fakeTx) Prepare(context.Context, string, string) (*pgconn.StatementDescription, error) {
	panic("not implemented")
}

func (f *fakeTx) Exec(context.Context, string, ...any) (pgconn.CommandTag, error) {
	panic("not implemented")
}

func (f *fakeTx) Query(context.Context, string, ...any) (pgx.Rows, error) {
	panic("not implemented")
}

func (f *fakeTx) QueryRow(context.Context, string, ...any) pgx.Row {
	panic("not implemented")
}

func (f *fakeTx) Conn() *pgx.Conn {
	return nil
}
