package policy

import (
	"errors"
	"fmt"
)

// ErrNotAdmin is returned when a chat other than the administrator asks for
// an admin-only command.
var ErrNotAdmin = errors.New("not the admin chat")

// Policy authorizes admin-only commands against a single administrator chat.
// Without an administrator every chat is allowed.
type Policy struct {
	admin    int64
	hasAdmin bool
}

// New creates a Policy. A nil admin leaves admin-only commands open to all.
func New(admin *int64) *Policy {
	if admin == nil {
		return &Policy{}
	}
	return &Policy{admin: *admin, hasAdmin: true}
}

// Authorize checks whether chatID may run an admin-only command.
func (p *Policy) Authorize(chatID int64) error {
	if !p.hasAdmin || chatID == p.admin {
		return nil
	}
	return fmt.Errorf("chat %d: %w", chatID, ErrNotAdmin)
}

// Admin returns the administrator chat id, if one is configured.
func (p *Policy) Admin() (int64, bool) {
	return p.admin, p.hasAdmin
}
