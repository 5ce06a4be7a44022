package lostfound

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrItemNotFound signals the referenced lost & found item does not exist.
	ErrItemNotFound = errors.New("lostfound: item not found")
	// ErrClaimNotFound signals the referenced claim does not exist.
	ErrClaimNotFound = errors.New("lostfound: claim not found")
	// ErrItemAlreadyClaimed signals the item has been claimed by another student.
	ErrItemAlreadyClaimed = errors.New("lostfound: item already claimed")
	// ErrDuplicatePendingClaim signals the claimant already has a pending claim on the item.
	ErrDuplicatePendingClaim = errors.New("lostfound: pending claim already exists for this item")
	// ErrInvalidCategory signals an unknown item category.
	ErrInvalidCategory = errors.New("lostfound: invalid category")
)

// Repository defines the data access required by the adjudication service.
// The *ForUpdate and *Tx variants run against the caller's transaction so the
// service controls the atomicity boundary.
type Repository interface {
	CreateItem(ctx context.Context, params CreateItemParams) (Item, error)
	GetItemByID(ctx context.Context, itemID string) (Item, error)
	ListItems(ctx context.Context, filter ItemFilter) ([]Item, error)

	InsertClaim(ctx context.Context, params InsertClaimParams) (Claim, error)
	GetClaimByID(ctx context.Context, claimID string) (Claim, error)
	ListClaims(ctx context.Context, filter ClaimFilter) ([]Claim, error)
	HasPendingClaim(ctx context.Context, itemID, claimantID string) (bool, error)

	GetClaimForUpdate(ctx context.Context, tx pgx.Tx, claimID string) (Claim, error)
	GetItemForUpdate(ctx context.Context, tx pgx.Tx, itemID string) (Item, error)
	ApproveClaimTx(ctx context.Context, tx pgx.Tx, claimID, reviewerID string, notes *string) error
	MarkItemClaimedTx(ctx context.Context, tx pgx.Tx, itemID, claimantID string) error
	RejectOtherPendingClaimsTx(ctx context.Context, tx pgx.Tx, itemID, excludeClaimID, reviewerID string) (int64, error)

	RejectPendingClaim(ctx context.Context, claimID, reviewerID string, notes *string) (bool, error)
}

// CreateItemParams contains the write parameters for logging a recovered item.
type CreateItemParams struct {
	Title         string
	Description   string
	Category      Category
	FoundLocation string
	Photos        []string
	PostedBy      string
}

// InsertClaimParams contains the write parameters for a new pending claim.
type InsertClaimParams struct {
	ItemID        string
	ClaimantID    string
	Justification string
	Proof         ProofDetails
	ProofFiles    []string
}

// ItemFilter narrows item listings. Predicates combine with AND.
type ItemFilter struct {
	Category      Category
	UnclaimedOnly bool
	PostedBy      string
}

// ClaimFilter narrows claim listings. Predicates combine with AND.
type ClaimFilter struct {
	ItemID     string
	ClaimantID string
	Status     ClaimStatus
}

// PGRepository implements Repository backed by PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository wires a pgxpool-backed repository implementation.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

const itemColumns = `id, title, description, category, found_location, photos, posted_by, is_claimed, claimed_by, created_at, updated_at`

const claimColumns = `id, item_id, claimant_id, justification,
	brand, model, serial_number, color, purchase_date, purchase_location,
	estimated_value, additional_details, contact_preference,
	proof_files, status, reviewed_by, review_notes, created_at, updated_at`

func (r *PGRepository) CreateItem(ctx context.Context, params CreateItemParams) (Item, error) {
	if !isValidCategory(params.Category) {
		return Item{}, ErrInvalidCategory
	}

	const insertSQL = `
		INSERT INTO lost_found_items (title, description, category, found_location, photos, posted_by)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING ` + itemColumns

	photos := params.Photos
	if photos == nil {
		photos = []string{}
	}

	item, err := scanItem(r.pool.QueryRow(ctx, insertSQL,
		params.Title,
		params.Description,
		params.Category,
		params.FoundLocation,
		photos,
		params.PostedBy,
	))
	if err != nil {
		return Item{}, fmt.Errorf("lostfound: create item: %w", err)
	}
	return item, nil
}

func (r *PGRepository) GetItemByID(ctx context.Context, itemID string) (Item, error) {
	const selectSQL = `SELECT ` + itemColumns + ` FROM lost_found_items WHERE id = $1`

	item, err := scanItem(r.pool.QueryRow(ctx, selectSQL, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("lostfound: get item: %w", err)
	}
	return item, nil
}

func (r *PGRepository) ListItems(ctx context.Context, filter ItemFilter) ([]Item, error) {
	query := `SELECT ` + itemColumns + ` FROM lost_found_items`
	where := []string{}
	args := []any{}

	if filter.Category != "" {
		where = append(where, fmt.Sprintf("category = $%d", len(args)+1))
		args = append(args, filter.Category)
	}
	if filter.PostedBy != "" {
		where = append(where, fmt.Sprintf("posted_by = $%d", len(args)+1))
		args = append(args, filter.PostedBy)
	}
	if filter.UnclaimedOnly {
		where = append(where, "NOT is_claimed")
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lostfound: list items: %w", err)
	}
	defer rows.Close()

	items := make([]Item, 0, 8)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("lostfound: scan item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lostfound: iterate items: %w", err)
	}
	return items, nil
}

func (r *PGRepository) InsertClaim(ctx context.Context, params InsertClaimParams) (Claim, error) {
	const insertSQL = `
		INSERT INTO lost_found_claims (item_id, claimant_id, justification,
			brand, model, serial_number, color, purchase_date, purchase_location,
			estimated_value, additional_details, contact_preference, proof_files)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING ` + claimColumns

	proofFiles := params.ProofFiles
	if proofFiles == nil {
		proofFiles = []string{}
	}

	claim, err := scanClaim(r.pool.QueryRow(ctx, insertSQL,
		params.ItemID,
		params.ClaimantID,
		params.Justification,
		params.Proof.Brand,
		params.Proof.Model,
		params.Proof.SerialNumber,
		params.Proof.Color,
		params.Proof.PurchaseDate,
		params.Proof.PurchaseLocation,
		params.Proof.EstimatedValue,
		params.Proof.AdditionalDetails,
		params.Proof.ContactPreference,
		proofFiles,
	))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Claim{}, ErrDuplicatePendingClaim
		}
		return Claim{}, fmt.Errorf("lostfound: insert claim: %w", err)
	}
	return claim, nil
}

func (r *PGRepository) GetClaimByID(ctx context.Context, claimID string) (Claim, error) {
	const selectSQL = `SELECT ` + claimColumns + ` FROM lost_found_claims WHERE id = $1`

	claim, err := scanClaim(r.pool.QueryRow(ctx, selectSQL, claimID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Claim{}, ErrClaimNotFound
		}
		return Claim{}, fmt.Errorf("lostfound: get claim: %w", err)
	}
	return claim, nil
}

func (r *PGRepository) ListClaims(ctx context.Context, filter ClaimFilter) ([]Claim, error) {
	query := `SELECT ` + claimColumns + ` FROM lost_found_claims`
	where := []string{}
	args := []any{}

	if filter.ItemID != "" {
		where = append(where, fmt.Sprintf("item_id = $%d", len(args)+1))
		args = append(args, filter.ItemID)
	}
	if filter.ClaimantID != "" {
		where = append(where, fmt.Sprintf("claimant_id = $%d", len(args)+1))
		args = append(args, filter.ClaimantID)
	}
	if filter.Status != "" {
		where = append(where, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, filter.Status)
	}
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("lostfound: list claims: %w", err)
	}
	defer rows.Close()

	claims := make([]Claim, 0, 8)
	for rows.Next() {
		claim, err := scanClaim(rows)
		if err != nil {
			return nil, fmt.Errorf("lostfound: scan claim: %w", err)
		}
		claims = append(claims, claim)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("lostfound: iterate claims: %w", err)
	}
	return claims, nil
}

func (r *PGRepository) HasPendingClaim(ctx context.Context, itemID, claimantID string) (bool, error) {
	const query = `
		SELECT EXISTS (
			SELECT 1 FROM lost_found_claims
			WHERE item_id = $1 AND claimant_id = $2 AND status = 'pending'
		)
	`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, itemID, claimantID).Scan(&exists); err != nil {
		return false, fmt.Errorf("lostfound: check pending claim: %w", err)
	}
	return exists, nil
}

// GetClaimForUpdate loads a claim and locks its row for the remainder of the
// transaction.
func (r *PGRepository) GetClaimForUpdate(ctx context.Context, tx pgx.Tx, claimID string) (Claim, error) {
	const selectSQL = `SELECT ` + claimColumns + ` FROM lost_found_claims WHERE id = $1 FOR UPDATE`

	claim, err := scanClaim(tx.QueryRow(ctx, selectSQL, claimID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Claim{}, ErrClaimNotFound
		}
		return Claim{}, fmt.Errorf("lostfound: lock claim: %w", err)
	}
	return claim, nil
}

// GetItemForUpdate loads an item and locks its row for the remainder of the
// transaction. Competing approvals on the same item serialize here.
func (r *PGRepository) GetItemForUpdate(ctx context.Context, tx pgx.Tx, itemID string) (Item, error) {
	const selectSQL = `SELECT ` + itemColumns + ` FROM lost_found_items WHERE id = $1 FOR UPDATE`

	item, err := scanItem(tx.QueryRow(ctx, selectSQL, itemID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, ErrItemNotFound
		}
		return Item{}, fmt.Errorf("lostfound: lock item: %w", err)
	}
	return item, nil
}

func (r *PGRepository) ApproveClaimTx(ctx context.Context, tx pgx.Tx, claimID, reviewerID string, notes *string) error {
	const updateSQL = `
		UPDATE lost_found_claims
		SET status = 'approved',
		    reviewed_by = $2,
		    review_notes = $3,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := tx.Exec(ctx, updateSQL, claimID, reviewerID, notes)
	if err != nil {
		return fmt.Errorf("lostfound: approve claim: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrClaimNotFound
	}
	return nil
}

func (r *PGRepository) MarkItemClaimedTx(ctx context.Context, tx pgx.Tx, itemID, claimantID string) error {
	const updateSQL = `
		UPDATE lost_found_items
		SET is_claimed = true,
		    claimed_by = $2,
		    updated_at = now()
		WHERE id = $1 AND NOT is_claimed
	`
	tag, err := tx.Exec(ctx, updateSQL, itemID, claimantID)
	if err != nil {
		return fmt.Errorf("lostfound: mark item claimed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrItemAlreadyClaimed
	}
	return nil
}

// RejectOtherPendingClaimsTx resolves every other pending claim on the item
// once a winner is approved, so losers see an explicit outcome instead of a
// claim stuck in pending.
func (r *PGRepository) RejectOtherPendingClaimsTx(ctx context.Context, tx pgx.Tx, itemID, excludeClaimID, reviewerID string) (int64, error) {
	const updateSQL = `
		UPDATE lost_found_claims
		SET status = 'rejected',
		    reviewed_by = $3,
		    review_notes = $4,
		    updated_at = now()
		WHERE item_id = $1 AND id <> $2 AND status = 'pending'
	`
	tag, err := tx.Exec(ctx, updateSQL, itemID, excludeClaimID, reviewerID, AutoRejectNote)
	if err != nil {
		return 0, fmt.Errorf("lostfound: auto-reject sibling claims: %w", err)
	}
	return tag.RowsAffected(), nil
}

// RejectPendingClaim rejects a claim only while it is still pending; resolved
// claims are left untouched and reported via the false return.
func (r *PGRepository) RejectPendingClaim(ctx context.Context, claimID, reviewerID string, notes *string) (bool, error) {
	const updateSQL = `
		UPDATE lost_found_claims
		SET status = 'rejected',
		    reviewed_by = $2,
		    review_notes = $3,
		    updated_at = now()
		WHERE id = $1 AND status = 'pending'
	`
	tag, err := r.pool.Exec(ctx, updateSQL, claimID, reviewerID, notes)
	if err != nil {
		return false, fmt.Errorf("lostfound: reject claim: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanItem(row pgx.Row) (Item, error) {
	var (
		item      Item
		claimedBy *string
	)
	err := row.Scan(
		&item.ID,
		&item.Title,
		&item.Description,
		&item.Category,
		&item.FoundLocation,
		&item.Photos,
		&item.PostedBy,
		&item.IsClaimed,
		&claimedBy,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if err != nil {
		return Item{}, err
	}
	item.ClaimedBy = claimedBy
	return item, nil
}

func scanClaim(row pgx.Row) (Claim, error) {
	var claim Claim
	err := row.Scan(
		&claim.ID,
		&claim.ItemID,
		&claim.ClaimantID,
		&claim.Justification,
		&claim.Proof.Brand,
		&claim.Proof.Model,
		&claim.Proof.SerialNumber,
		&claim.Proof.Color,
		&claim.Proof.PurchaseDate,
		&claim.Proof.PurchaseLocation,
		&claim.Proof.EstimatedValue,
		&claim.Proof.AdditionalDetails,
		&claim.Proof.ContactPreference,
		&claim.ProofFiles,
		&claim.Status,
		&claim.ReviewedBy,
		&claim.ReviewNotes,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	)
	if err != nil {
		return Claim{}, err
	}
	return claim, nil
}
