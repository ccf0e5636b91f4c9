package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Update is the subset of a Telegram update the relay understands.
// Every field is optional; presence is checked once in Inbound.
type Update struct {
	UpdateID      int64    `json:"update_id"`
	Message       *Message `json:"message,omitempty"`
	EditedMessage *Message `json:"edited_message,omitempty"`
}

// Message is a Telegram message or edited message.
type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      *Chat  `json:"chat,omitempty"`
	Date      int64  `json:"date"`
	Text      string `json:"text"`
}

// User is the sender of a message.
type User struct {
	ID int64 `json:"id"`
}

// Chat identifies the conversation a message belongs to.
type Chat struct {
	ID int64 `json:"id"`
}

// DecodeUpdate decodes a raw update body.
func DecodeUpdate(data []byte) (Update, error) {
	var u Update
	if err := json.Unmarshal(data, &u); err != nil {
		return Update{}, fmt.Errorf("decode update: %w", err)
	}
	return u, nil
}

// Inbound extracts the message the relay should act on. It prefers message
// over edited_message, falling back when message lacks a chat id or text,
// and reports false when neither is usable.
func (u Update) Inbound() (InboundMessage, bool) {
	msg, edited := u.Message, false
	if !msg.usable() {
		msg, edited = u.EditedMessage, true
	}
	if !msg.usable() {
		return InboundMessage{}, false
	}

	in := InboundMessage{
		UpdateID: u.UpdateID,
		ChatID:   msg.Chat.ID,
		Text:     strings.TrimSpace(msg.Text),
		Edited:   edited,
	}
	if msg.From != nil {
		in.UserID = msg.From.ID
	}
	if msg.Date > 0 {
		in.Timestamp = time.Unix(msg.Date, 0)
	}
	return in, true
}

func (m *Message) usable() bool {
	return m != nil && m.Chat != nil && m.Chat.ID != 0 && strings.TrimSpace(m.Text) != ""
}

// ParseUpdate decodes data and extracts the actionable message, if any.
func ParseUpdate(data []byte) (InboundMessage, bool, error) {
	u, err := DecodeUpdate(data)
	if err != nil {
		return InboundMessage{}, false, err
	}
	msg, ok := u.Inbound()
	return msg, ok, nil
}
