package lostfound

import "time"

// Category is the closed set of buckets admins sort recovered items into.
type Category string

const (
	CategoryBooks    Category = "books"
	CategoryGadgets  Category = "gadgets"
	CategoryUniforms Category = "uniforms"
	CategoryOther    Category = "other"
)

// ClaimStatus tracks a claim through adjudication. Pending is the only
// non-terminal state.
type ClaimStatus string

const (
	ClaimStatusPending  ClaimStatus = "pending"
	ClaimStatusApproved ClaimStatus = "approved"
	ClaimStatusRejected ClaimStatus = "rejected"
)

// AutoRejectNote is written onto every losing pending claim when a sibling
// claim on the same item is approved.
const AutoRejectNote = "automatically rejected - item was claimed by another user"

// Item is a recovered physical object logged by an admin and awaiting its
// owner. ClaimedBy is set exactly when IsClaimed is true; the two fields are
// only ever mutated together, inside the adjudication transaction.
type Item struct {
	ID            string
	Title         string
	Description   string
	Category      Category
	FoundLocation string
	Photos        []string
	PostedBy      string
	IsClaimed     bool
	ClaimedBy     *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Claim is one student's assertion of ownership over an Item.
type Claim struct {
	ID            string
	ItemID        string
	ClaimantID    string
	Justification string
	Proof         ProofDetails
	ProofFiles    []string
	Status        ClaimStatus
	ReviewedBy    *string
	ReviewNotes   *string
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ProofDetails carries the optional structured identity-proof fields a
// claimant may supply alongside the free-text justification.
type ProofDetails struct {
	Brand             *string
	Model             *string
	SerialNumber      *string
	Color             *string
	PurchaseDate      *string
	PurchaseLocation  *string
	EstimatedValue    *string
	AdditionalDetails *string
	ContactPreference *string
}

func isValidCategory(c Category) bool {
	switch c {
	case CategoryBooks, CategoryGadgets, CategoryUniforms, CategoryOther:
		return true
	default:
		return false
	}
}
