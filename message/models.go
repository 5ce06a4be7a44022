package message

import "time"

// Message is one entry in a conversation between two students about a listing.
type Message struct {
	ID          string
	ItemID      string
	SenderID    string
	RecipientID string
	Body        string
	CreatedAt   time.Time
}

// Conversation summarises a (listing, counterparty) message thread for the
// inbox view.
type Conversation struct {
	ItemID         string
	ItemTitle      string
	CounterpartyID string
	LastBody       string
	LastAt         time.Time
}
