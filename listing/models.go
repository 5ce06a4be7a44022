package listing

import "time"

// Status tracks whether a listing is still for sale.
type Status string

const (
	StatusAvailable Status = "available"
	StatusSold      Status = "sold"
)

// Item is a marketplace listing posted by a student seller.
type Item struct {
	ID          string
	Title       string
	Description string
	Category    string
	Price       int64
	Condition   string
	Photos      []string
	SellerID    string
	Status      Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// WishlistEntry joins a saved listing back to its item row.
type WishlistEntry struct {
	UserID  string
	ItemID  string
	SavedAt time.Time
	Item    Item
}

// CreateParams enumerates the fields a seller supplies for a new listing.
// ID is filled in by the service before the insert.
type CreateParams struct {
	ID          string
	Title       string
	Description string
	Category    string
	Price       int64
	Condition   string
	Photos      []string
	SellerID    string
}

// UpdateParams carries seller edits to a listing's descriptive fields.
type UpdateParams struct {
	Title       string
	Description string
	Category    string
	Price       int64
	Condition   string
	Photos      []string
}

// Filters narrows listing searches. Predicates combine with AND.
type Filters struct {
	SellerID string
	Category string
	Status   Status
	Search   string
	PriceMin int64
	PriceMax int64
	Page     int
	PageSize int
}
