package core

import (
	"context"
	"errors"
)

// ErrDeliverySkipped is returned by a Notifier that is not configured to
// deliver anything, e.g. when no bot token is set.
var ErrDeliverySkipped = errors.New("delivery skipped")

// Notifier delivers notifications to an external channel.
type Notifier interface {
	Name() string
	Send(ctx context.Context, n Notification) error
}

// DeliveryStatus is the outcome of a single outbound send.
type DeliveryStatus int

const (
	NotSent DeliveryStatus = iota // nothing to send
	Delivered
	Skipped
	Failed
)

func (s DeliveryStatus) String() string {
	switch s {
	case Delivered:
		return "delivered"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "not_sent"
	}
}

// Delivery records what happened to a reply. Failures are only ever logged;
// callers use it for tests and metrics, never to signal the inbound caller.
type Delivery struct {
	Status DeliveryStatus
	Err    error
}
