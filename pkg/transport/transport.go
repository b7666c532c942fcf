// Package transport abstracts the SMS channel. The gateway only ever polls
// for recent messages and sends single segments; everything else (modem
// state, SIM handling) belongs to the device tooling behind the adapter.
package transport

import (
	"context"
)

// MessageKind distinguishes genuinely inbound items from everything else the
// device may report (sent copies, drafts, failed sends).
type MessageKind string

const (
	KindInbound MessageKind = "inbound"
	KindOther   MessageKind = "other"
)

// Message is one item returned by a poll.
type Message struct {
	ID     string      `json:"id"`
	Sender string      `json:"sender"`
	Body   string      `json:"body"`
	Kind   MessageKind `json:"kind"`
}

// Transport is the SMS channel contract. Poll and Send failures are
// transient by definition: callers log and move on, they never retry here.
type Transport interface {
	// Name identifies the adapter ("termux", "console").
	Name() string
	// Poll returns up to limit recent messages. An empty slice is a normal
	// result.
	Poll(ctx context.Context, limit int) ([]Message, error)
	// Send delivers one transport-ready segment. The text is already within
	// the encoding limits; oversize input is the caller's bug.
	Send(ctx context.Context, recipient, text string) error
	// Healthy reports whether the underlying channel is usable.
	Healthy(ctx context.Context) bool
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

type TransportError string

func (e TransportError) Error() string { return string(e) }

const (
	ErrPollFailed TransportError = "transport poll failed"
	ErrSendFailed TransportError = "transport send failed"
)
