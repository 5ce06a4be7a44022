package api

import (
	"errors"
	"net/http"
	"time"

	"swaphands/message"
)

// MessagesHandler handles listing conversation endpoints.
type MessagesHandler struct {
	Service *message.Service
}

type messageView struct {
	ID          string    `json:"id"`
	ItemID      string    `json:"item_id"`
	SenderID    string    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Body        string    `json:"body"`
	CreatedAt   time.Time `json:"created_at"`
}

func toMessageView(m message.Message) messageView {
	return messageView{
		ID:          m.ID,
		ItemID:      m.ItemID,
		SenderID:    m.SenderID,
		RecipientID: m.RecipientID,
		Body:        m.Body,
		CreatedAt:   m.CreatedAt,
	}
}

// Send handles POST /api/items/{id}/messages.
func (h *MessagesHandler) Send(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RecipientID string `json:"recipient_id"`
		Body        string `json:"body"`
	}
	if err := decodeJSON(r, &req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	ident := CallerIdentity(r.Context())
	msg, err := h.Service.Send(r.Context(), r.PathValue("id"), ident.UserID, req.RecipientID, req.Body)
	if err != nil {
		if errors.Is(err, message.ErrNotFound) {
			jsonError(w, http.StatusNotFound, "item not found")
			return
		}
		jsonError(w, http.StatusBadRequest, err.Error())
		return
	}

	jsonResponse(w, http.StatusCreated, toMessageView(msg))
}

// Thread handles GET /api/items/{id}/messages.
func (h *MessagesHandler) Thread(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	msgs, err := h.Service.Thread(r.Context(), r.PathValue("id"), ident.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to load thread")
		return
	}

	out := make([]messageView, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, toMessageView(m))
	}
	jsonResponse(w, http.StatusOK, out)
}

// Conversations handles GET /api/conversations.
func (h *MessagesHandler) Conversations(w http.ResponseWriter, r *http.Request) {
	ident := CallerIdentity(r.Context())
	convs, err := h.Service.Conversations(r.Context(), ident.UserID)
	if err != nil {
		jsonError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	type conversationView struct {
		ItemID         string    `json:"item_id"`
		ItemTitle      string    `json:"item_title"`
		CounterpartyID string    `json:"counterparty_id"`
		LastBody       string    `json:"last_body"`
		LastAt         time.Time `json:"last_at"`
	}
	out := make([]conversationView, 0, len(convs))
	for _, c := range convs {
		out = append(out, conversationView{
			ItemID:         c.ItemID,
			ItemTitle:      c.ItemTitle,
			CounterpartyID: c.CounterpartyID,
			LastBody:       c.LastBody,
			LastAt:         c.LastAt,
		})
	}
	jsonResponse(w, http.StatusOK, out)
}
