package core

import (
	"context"
	"time"
)

// InboundMessage represents a chat message extracted from a Telegram update.
type InboundMessage struct {
	UpdateID  int64
	ChatID    int64
	UserID    int64
	Text      string
	Edited    bool
	Timestamp time.Time
}

// MessageHandler processes an inbound message.
type MessageHandler func(ctx context.Context, msg InboundMessage)
