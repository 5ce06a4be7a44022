package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"swaphands/listing"
)

// ListingsHandler handles marketplace listing and wishlist endpoints.
type ListingsHandler struct {
	Service *listing.Service
}

type listingView struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Price       int64     `json:"price"`
	Condition   string    `json:"condition"`
	Photos      []string  `json:"photos"`
	SellerID    string    `json:"seller_id"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func toListingView(item listing.Item) listingView {
	return listingView{
		ID:          item.ID,
		Title:       item.Title,
		Description: item.Description,
		Category:    item.Category,
		Price:       item.Price,
		Condition:   item.Condition,
		Photos:      item.Photos,
		SellerID:    item.SellerID,
		Status:      string(item.Status),
		CreatedAt:   item.CreatedAt,
		UpdatedAt:   item.UpdatedAt,
	}
}

func toListingViews(items []listing.Item) []listingView {
	out := make([]listingView, 0, len(items))
	for _, item := range items {
		out = append(out, toListingView(item))
	}
	return out
}

type listingRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Category    string   `json:"category"`
	Price       int64    `json:"price"`
	Condition   string   `json:"condition"`
	Photos      []string `json:"photos"`
}

// List handles GET /api/items.
func (h *ListingsHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filters := listing.Filters{
		SellerID: q.Get("seller_id"),
		Category: q.Get("category"),
		Status:   listing.Status(q.Get("status")),
		Search:   q.Get("q"),
	}
	filters.PriceMin, _ = strconv.ParseInt(q.Get("price_min"), 10, 64)
	filters.PriceMax, _ = strconv.ParseInt(q.Get("price_max"), 10, 64)
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("page_size"))

	result, err := h.Service.List(r.Context(), filters)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]any{
		"items": toListingViews(result.Items),
		"total": result.Total,
	})
}

// Create handles POST /api/items.
func (h *ListingsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	item, err := h.Service.Create(r.Context(), listing.CreateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Condition:   req.Condition,
		Photos:      req.Photos,
		SellerID:    ident.UserID,
	})
	if err != nil {
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, toListingView(item))
}

// Get handles GET /api/items/{id}.
func (h *ListingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, listing.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "item not found")
			return
		}
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	jsonResponse(w, http.StatusOK, toListingView(item))
}

// Update handles PUT /api/items/{id}.
func (h *ListingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req listingRequest
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	item, err := h.Service.Update(r.Context(), r.PathValue("id"), ident.UserID, listing.UpdateParams{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Price:       req.Price,
		Condition:   req.Condition,
		Photos:      req.Photos,
	})
	if err != nil {
		writeListingError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, toListingView(item))
}

// MarkSold handles PUT /api/items/{id}/sold.
func (h *ListingsHandler) MarkSold(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	item, err := h.Service.MarkSold(r.Context(), r.PathValue("id"), ident.UserID)
	if err != nil {
		writeListingError(w, err)
		return
	}

	jsonResponse(w, http.StatusOK, toListingView(item))
}

// Delete handles DELETE /api/items/{id}.
func (h *ListingsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	if err := h.Service.Delete(r.Context(), r.PathValue("id"), ident.UserID); err != nil {
		writeListingError(w, err)
		return
	}

	jsonResponse(w, http.StatusNoContent, nil)
}

// AddWishlist handles POST /api/wishlist/{itemId}.
func (h *ListingsHandler) AddWishlist(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	err := h.Service.AddWishlist(r.Context(), ident.UserID, r.PathValue("itemId"))
	if err != nil {
		switch {
		case errors.Is(err, listing.ErrNotFound):
			jsonError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, listing.ErrDuplicateWishlist):
			jsonError(w, http.StatusConflict, "item already wishlisted")
		default:
			jsonError(w, http.StatusInternalServerError, "failed to add to wishlist")
		}
		return
	}

	jsonResponse(w, http.StatusCreated, nil)
}

// RemoveWishlist handles DELETE /api/wishlist/{itemId}.
func (h *ListingsHandler) RemoveWishlist(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	removed, err := h.Service.RemoveWishlist(r.Context(), ident.UserID, r.PathValue("itemId"))
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to remove from wishlist")
		return
	}
	if !removed {
		jsonError(w, http.StatusNotFound, "wishlist entry not found")
		return
	}

	jsonResponse(w, http.StatusNoContent, nil)
}

// Wishlist handles GET /api/wishlist.
func (h *ListingsHandler) Wishlist(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	entries, err := h.Service.Wishlist(r.Context(), ident.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list wishlist")
		return
	}

	type entryView struct {
		SavedAt time.Time   `json:"saved_at"`
		Item    listingView `json:"item"`
	}
	out := make([]entryView, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryView{SavedAt: e.SavedAt, Item: toListingView(e.Item)})
	}

	jsonResponse(w, http.StatusOK, out)
}

func writeListingError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, listing.ErrNotFound):
		jsonError(w, http.StatusNotFound, "item not found")
	case errors.Is(err, listing.ErrForbidden):
		jsonError(w, http.StatusForbidden, "not your listing")
	case errors.Is(err, listing.ErrAlreadySold):
		jsonError(w, http.StatusConflict, "item already sold")
	default:
		jsonError(w, http.StatusInternalServerError, "operation failed")
	}
}
