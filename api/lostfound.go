package api

import (
	"errors"
	"io"
	"net/http"
	"time"

	"swaphands/auth"
	"swaphands/lostfound"

	"go.uber.org/zap"
)

// LostFoundHandler handles recovered-item and ownership-claim endpoints.
type LostFoundHandler struct {
	Service *lostfound.Service
	Logger  *zap.Logger
}

type lostFoundItemView struct {
	ID            string    `json:"id"`
	Title         string    `json:"title"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	FoundLocation string    `json:"found_location"`
	Photos        []string  `json:"photos"`
	PostedBy      string    `json:"posted_by"`
	IsClaimed     bool      `json:"is_claimed"`
	ClaimedBy     *string   `json:"claimed_by,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

func toLostFoundItemView(item lostfound.Item) lostFoundItemView {
	return lostFoundItemView{
		ID:            item.ID,
		Title:         item.Title,
		Description:   item.Description,
		Category:      string(item.Category),
		FoundLocation: item.FoundLocation,
		Photos:        item.Photos,
		PostedBy:      item.PostedBy,
		IsClaimed:     item.IsClaimed,
		ClaimedBy:     item.ClaimedBy,
		CreatedAt:     item.CreatedAt,
		UpdatedAt:     item.UpdatedAt,
	}
}

type claimView struct {
	ID            string    `json:"id"`
	ItemID        string    `json:"item_id"`
	ClaimantID    string    `json:"claimant_id"`
	Justification string    `json:"justification"`
	Proof         proofView `json:"proof"`
	ProofFiles    []string  `json:"proof_files"`
	Status        string    `json:"status"`
	ReviewedBy    *string   `json:"reviewed_by,omitempty"`
	ReviewNotes   *string   `json:"review_notes,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type proofView struct {
	Brand             *string `json:"brand,omitempty"`
	Model             *string `json:"model,omitempty"`
	SerialNumber      *string `json:"serial_number,omitempty"`
	Color             *string `json:"color,omitempty"`
	PurchaseDate      *string `json:"purchase_date,omitempty"`
	PurchaseLocation  *string `json:"purchase_location,omitempty"`
	EstimatedValue    *string `json:"estimated_value,omitempty"`
	AdditionalDetails *string `json:"additional_details,omitempty"`
	ContactPreference *string `json:"contact_preference,omitempty"`
}

func toClaimView(c lostfound.Claim) claimView {
	return claimView{
		ID:            c.ID,
		ItemID:        c.ItemID,
		ClaimantID:    c.ClaimantID,
		Justification: c.Justification,
		Proof: proofView{
			Brand:             c.Proof.Brand,
			Model:             c.Proof.Model,
			SerialNumber:      c.Proof.SerialNumber,
			Color:             c.Proof.Color,
			PurchaseDate:      c.Proof.PurchaseDate,
			PurchaseLocation:  c.Proof.PurchaseLocation,
			EstimatedValue:    c.Proof.EstimatedValue,
			AdditionalDetails: c.Proof.AdditionalDetails,
			ContactPreference: c.Proof.ContactPreference,
		},
		ProofFiles:  c.ProofFiles,
		Status:      string(c.Status),
		ReviewedBy:  c.ReviewedBy,
		ReviewNotes: c.ReviewNotes,
		CreatedAt:   c.CreatedAt,
		UpdatedAt:   c.UpdatedAt,
	}
}

// ListItems handles GET /api/lostfound. Students see unclaimed items only;
// admins may pass ?all=true to include claimed ones.
func (h *LostFoundHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	filter := lostfound.ItemFilter{
		Category:      lostfound.Category(r.URL.Query().Get("category")),
		UnclaimedOnly: true,
	}
	if ident.Role == auth.RoleAdmin && r.URL.Query().Get("all") == "true" {
		filter.UnclaimedOnly = false
	}

	items, err := h.Service.ListItems(r.Context(), filter)
	if err != nil {
		h.Logger.Error("list lost-found items", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to list items")
		return
	}

	out := make([]lostFoundItemView, 0, len(items))
	for _, item := range items {
		out = append(out, toLostFoundItemView(item))
	}
	jsonResponse(w, http.StatusOK, out)
}

// CreateItem handles POST /api/lostfound (admin only).
func (h *LostFoundHandler) CreateItem(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Title         string   `json:"title"`
		Description   string   `json:"description"`
		Category      string   `json:"category"`
		FoundLocation string   `json:"found_location"`
		Photos        []string `json:"photos"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	item, err := h.Service.CreateItem(r.Context(), lostfound.CreateItemParams{
		Title:         req.Title,
		Description:   req.Description,
		Category:      lostfound.Category(req.Category),
		FoundLocation: req.FoundLocation,
		Photos:        req.Photos,
		PostedBy:      ident.UserID,
	})
	if err != nil {
		if errors.Is(err, lostfound.ErrInvalidCategory) {
			jsonError(w, http.StatusBadRequest, "invalid category")
			return
		}
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, toLostFoundItemView(item))
}

// GetItem handles GET /api/lostfound/{id}.
func (h *LostFoundHandler) GetItem(w http.ResponseWriter, r *http.Request) {
	item, err := h.Service.GetItem(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, lostfound.ErrItemNotFound) {
			jsonError(w, http.StatusNotFound, "item not found")
			return
		}
		h.Logger.Error("get lost-found item", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to get item")
		return
	}

	jsonResponse(w, http.StatusOK, toLostFoundItemView(item))
}

// SubmitClaim handles POST /api/claims.
func (h *LostFoundHandler) SubmitClaim(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ItemID        string    `json:"item_id"`
		Justification string    `json:"justification"`
		Proof         proofView `json:"proof"`
		ProofFiles    []string  `json:"proof_files"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	claim, err := h.Service.SubmitClaim(r.Context(), lostfound.SubmitClaimParams{
		ItemID:        req.ItemID,
		ClaimantID:    ident.UserID,
		Justification: req.Justification,
		Proof: lostfound.ProofDetails{
			Brand:             req.Proof.Brand,
			Model:             req.Proof.Model,
			SerialNumber:      req.Proof.SerialNumber,
			Color:             req.Proof.Color,
			PurchaseDate:      req.Proof.PurchaseDate,
			PurchaseLocation:  req.Proof.PurchaseLocation,
			EstimatedValue:    req.Proof.EstimatedValue,
			AdditionalDetails: req.Proof.AdditionalDetails,
			ContactPreference: req.Proof.ContactPreference,
		},
		ProofFiles: req.ProofFiles,
	})
	if err != nil {
		switch {
		case errors.Is(err, lostfound.ErrItemNotFound):
			jsonError(w, http.StatusNotFound, "item not found")
		case errors.Is(err, lostfound.ErrItemAlreadyClaimed):
			jsonError(w, http.StatusConflict, "item has already been claimed")
		case errors.Is(err, lostfound.ErrDuplicatePendingClaim):
			jsonError(w, http.StatusConflict, "you already have a pending claim on this item")
		default:
			jsonError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	jsonResponse(w, http.StatusCreated, toClaimView(claim))
}

// ListClaims handles GET /api/claims. Admins may filter freely; students only
// ever see their own claims.
func (h *LostFoundHandler) ListClaims(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	filter := lostfound.ClaimFilter{
		ItemID: r.URL.Query().Get("item_id"),
		Status: lostfound.ClaimStatus(r.URL.Query().Get("status")),
	}
	if ident.Role == auth.RoleAdmin {
		filter.ClaimantID = r.URL.Query().Get("claimant_id")
	} else {
		filter.ClaimantID = ident.UserID
	}

	claims, err := h.Service.ListClaims(r.Context(), filter)
	if err != nil {
		h.Logger.Error("list claims", zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to list claims")
		return
	}

	out := make([]claimView, 0, len(claims))
	for _, c := range claims {
		out = append(out, toClaimView(c))
	}
	jsonResponse(w, http.StatusOK, out)
}

type reviewRequest struct {
	Notes *string `json:"notes"`
}

// ApproveClaim handles PUT /api/claims/{id}/approve (admin only). A benign
// false from the service means the claim is gone, already resolved, or the
// item was claimed by a competing approval; all collapse to 404 here.
func (h *LostFoundHandler) ApproveClaim(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	ok, err := h.Service.ApproveClaim(r.Context(), r.PathValue("id"), ident.UserID, req.Notes)
	if err != nil {
		h.Logger.Error("approve claim", zap.String("claim_id", r.PathValue("id")), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to approve claim")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "claim not found or already resolved")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]bool{"approved": true})
}

// RejectClaim handles PUT /api/claims/{id}/reject (admin only).
func (h *LostFoundHandler) RejectClaim(w http.ResponseWriter, r *http.Request) {
	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	ok, err := h.Service.RejectClaim(r.Context(), r.PathValue("id"), ident.UserID, req.Notes)
	if err != nil {
		h.Logger.Error("reject claim", zap.String("claim_id", r.PathValue("id")), zap.Error(err))
		jsonError(w, http.StatusInternalServerError, "failed to reject claim")
		return
	}
	if !ok {
		jsonError(w, http.StatusNotFound, "claim not found or already resolved")
		return
	}

	jsonResponse(w, http.StatusOK, map[string]bool{"rejected": true})
}
