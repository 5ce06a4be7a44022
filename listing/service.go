package listing

import (
	"context"
	"fmt"

	"github.com/google/uuid"
)

// ListResult pairs a page of listings with the unpaged total.
type ListResult struct {
	Items []Item
	Total int
}

// Service exposes business-level marketplace operations.
type Service struct {
	repo        Repository
	idGenerator func() string
}

// NewService builds a Service using the provided repository.
func NewService(repo Repository) *Service {
	return &Service{
		repo:        repo,
		idGenerator: func() string { return uuid.NewString() },
	}
}

// WithIDGenerator overrides id generation, mainly for tests.
func (s *Service) WithIDGenerator(gen func() string) *Service {
	s.idGenerator = gen
	return s
}

// Create posts a new listing on behalf of the seller.
func (s *Service) Create(ctx context.Context, params CreateParams) (Item, error) {
	if params.SellerID == "" {
		return Item{}, fmt.Errorf("listing: seller id required")
	}
	if params.Title == "" {
		return Item{}, fmt.Errorf("listing: title required")
	}
	if params.Category == "" {
		return Item{}, fmt.Errorf("listing: category required")
	}
	if params.Price < 0 {
		return Item{}, fmt.Errorf("listing: invalid price")
	}
	if params.Condition == "" {
		params.Condition = "used"
	}
	params.ID = s.idGenerator()
	return s.repo.Create(ctx, params)
}

// Get returns a single listing by id.
func (s *Service) Get(ctx context.Context, itemID string) (Item, error) {
	return s.repo.GetByID(ctx, itemID)
}

// List returns a filtered page of listings plus the total match count.
func (s *Service) List(ctx context.Context, filters Filters) (ListResult, error) {
	items, total, err := s.repo.List(ctx, filters)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Items: items, Total: total}, nil
}

// Update edits a listing's descriptive fields; only the seller may edit, and
// only while the listing is still available.
func (s *Service) Update(ctx context.Context, itemID, sellerID string, params UpdateParams) (Item, error) {
	if params.Title == "" {
		return Item{}, fmt.Errorf("listing: title required")
	}
	if params.Price < 0 {
		return Item{}, fmt.Errorf("listing: invalid price")
	}
	return s.repo.Update(ctx, itemID, sellerID, params)
}

// MarkSold flips an available listing to sold.
func (s *Service) MarkSold(ctx context.Context, itemID, sellerID string) (Item, error) {
	return s.repo.MarkSold(ctx, itemID, sellerID)
}

// Delete removes a listing owned by the caller.
func (s *Service) Delete(ctx context.Context, itemID, sellerID string) error {
	return s.repo.Delete(ctx, itemID, sellerID)
}

// AddWishlist saves a listing onto the user's wishlist.
func (s *Service) AddWishlist(ctx context.Context, userID, itemID string) error {
	return s.repo.AddWishlist(ctx, userID, itemID)
}

// RemoveWishlist drops a listing from the user's wishlist; the bool reports
// whether an entry existed.
func (s *Service) RemoveWishlist(ctx context.Context, userID, itemID string) (bool, error) {
	return s.repo.RemoveWishlist(ctx, userID, itemID)
}

// Wishlist returns the user's saved listings, newest first.
func (s *Service) Wishlist(ctx context.Context, userID string) ([]WishlistEntry, error) {
	return s.repo.ListWishlist(ctx, userID)
}
