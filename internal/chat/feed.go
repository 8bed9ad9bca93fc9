// Package chat keeps the append-only message list for one event room.
package chat

import (
	"context"
	"strings"
	"sync"

	"linkup/client/internal/models"
)

const defaultLimit = 50

// Service is the slice of the gateway the feed needs.
type Service interface {
	ListChat(ctx context.Context, eventID, cursor string, limit int) (models.ChatPage, error)
	SendChat(ctx context.Context, eventID, text string) (models.ChatMessage, error)
}

// Feed replaces its whole list on every Load. There is no incremental merge:
// if messages arrived out of view the list jumps, and that is accepted.
type Feed struct {
	svc     Service
	eventID string
	limit   int

	mu       sync.Mutex
	messages []models.ChatMessage
}

func NewFeed(svc Service, eventID string, limit int) *Feed {
	if limit <= 0 {
		limit = defaultLimit
	}
	return &Feed{svc: svc, eventID: eventID, limit: limit}
}

// Load fetches the latest page and replaces the in-memory list. On failure
// the list degrades to empty and the error is returned for logging.
func (f *Feed) Load(ctx context.Context) error {
	page, err := f.svc.ListChat(ctx, f.eventID, "", f.limit)
	f.mu.Lock()
	defer f.mu.Unlock()
	if err != nil {
		f.messages = nil
		return err
	}
	f.messages = page.Items
	return nil
}

// Send posts the text and appends the server-echoed message. Empty or
// whitespace-only text is a no-op, not an error. The send is awaited before
// insertion, so no optimistic placeholder is needed.
func (f *Feed) Send(ctx context.Context, text string) error {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	msg, err := f.svc.SendChat(ctx, f.eventID, text)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *Feed) Messages() []models.ChatMessage {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.ChatMessage, len(f.messages))
	copy(out, f.messages)
	return out
}
