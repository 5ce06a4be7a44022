package message

import (
	"context"
	"fmt"
)

// Threads abstracts repository operations for the service.
type Threads interface {
	Create(ctx context.Context, itemID, senderID, recipientID, body string) (Message, error)
	ListForItem(ctx context.Context, itemID, userID string) ([]Message, error)
	ListConversations(ctx context.Context, userID string) ([]Conversation, error)
}

// Service exposes business-level messaging operations.
type Service struct {
	repo Threads
}

// NewService builds a Service using the provided repository.
func NewService(repo Threads) *Service {
	return &Service{repo: repo}
}

// Send delivers a message about a listing from sender to recipient.
func (s *Service) Send(ctx context.Context, itemID, senderID, recipientID, body string) (Message, error) {
	if body == "" {
		return Message{}, fmt.Errorf("message: body required")
	}
	if recipientID == "" {
		return Message{}, fmt.Errorf("message: recipient required")
	}
	if senderID == recipientID {
		return Message{}, fmt.Errorf("message: cannot message yourself")
	}
	return s.repo.Create(ctx, itemID, senderID, recipientID, body)
}

// Thread returns the caller's message history on a listing.
func (s *Service) Thread(ctx context.Context, itemID, userID string) ([]Message, error) {
	return s.repo.ListForItem(ctx, itemID, userID)
}

// Conversations returns the caller's inbox summary.
func (s *Service) Conversations(ctx context.Context, userID string) ([]Conversation, error) {
	return s.repo.ListConversations(ctx, userID)
}
