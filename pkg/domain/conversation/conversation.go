// Package conversation defines the Conversation bounded context.
// A Conversation is an aggregate root holding the per-recipient exchange
// history with the gateway. A recipient is registered exactly when a
// Conversation record exists for it, possibly with no turns yet.
package conversation

import (
	"github.com/smartkrishi/smsgate/pkg/domain"
)

// ---------------------------------------------------------------------------
// Turn value object
// ---------------------------------------------------------------------------

// Role identifies who produced a turn.
type Role string

const (
	// RoleUser is the human correspondent on the SMS side.
	RoleUser Role = "user"
	// RoleAssistant is the conversational backend's reply text.
	RoleAssistant Role = "assistant"
	// RoleSystem tags gateway-originated outbound segments (confirmations,
	// interim notices, and the individual segments actually sent).
	RoleSystem Role = "system"
)

// Direction marks which way a turn travelled over the transport.
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// Turn is a single exchange entry. Immutable once appended — turns are never
// edited or reordered.
type Turn struct {
	Role      Role      `json:"role"`
	Text      string    `json:"text"`
	Timestamp int64     `json:"ts"` // epoch seconds
	Direction Direction `json:"direction"`
}

// ---------------------------------------------------------------------------
// Conversation aggregate root
// ---------------------------------------------------------------------------

// Conversation is the aggregate root for one recipient's history.
type Conversation struct {
	domain.AggregateRoot

	Recipient domain.Recipient `json:"recipient"`
	Turns     []Turn           `json:"turns"`

	CreatedAt domain.Timestamp `json:"created_at"`
	UpdatedAt domain.Timestamp `json:"updated_at"`
}

// New creates an empty Conversation for a recipient. Creation is the
// registration act.
func New(recipient domain.Recipient) *Conversation {
	c := &Conversation{
		Recipient: recipient,
		Turns:     make([]Turn, 0),
		CreatedAt: domain.Now(),
		UpdatedAt: domain.Now(),
	}
	c.SetID(domain.NewID())
	c.RecordEvent(domain.NewEvent(domain.EventConversationRegistered, c.ID(), map[string]string{
		"recipient": recipient.String(),
	}))
	return c
}

// Append adds an immutable turn to the history.
func (c *Conversation) Append(role Role, text string, ts int64, direction Direction) {
	c.Turns = append(c.Turns, Turn{
		Role:      role,
		Text:      text,
		Timestamp: ts,
		Direction: direction,
	})
	c.UpdatedAt = domain.Now()
	c.RecordEvent(domain.NewEvent(domain.EventTurnAppended, c.ID(), map[string]string{
		"recipient": c.Recipient.String(),
		"role":      string(role),
		"direction": string(direction),
	}))
}

// TurnCount returns the total number of turns.
func (c *Conversation) TurnCount() int {
	return len(c.Turns)
}

// Recent returns a copy of the most recent limit turns; limit <= 0 returns
// the full history.
func (c *Conversation) Recent(limit int) []Turn {
	turns := c.Turns
	if limit > 0 && len(turns) > limit {
		turns = turns[len(turns)-limit:]
	}
	out := make([]Turn, len(turns))
	copy(out, turns)
	return out
}

// ---------------------------------------------------------------------------
// Repository interface
// ---------------------------------------------------------------------------

// Repository defines persistence for Conversation aggregates.
type Repository interface {
	FindByRecipient(recipient domain.Recipient) (*Conversation, error)
	FindAll() ([]*Conversation, error)
	Save(c *Conversation) error
	Delete(recipient domain.Recipient) error
}

// ---------------------------------------------------------------------------
// Domain errors
// ---------------------------------------------------------------------------

type ConversationError string

func (e ConversationError) Error() string { return string(e) }

const (
	ErrNotRegistered  ConversationError = "recipient not registered"
	ErrEmptyRecipient ConversationError = "recipient cannot be empty"
)
