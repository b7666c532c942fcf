package bus

import (
	"time"

	"github.com/smartkrishi/smsgate/pkg/domain"
)

// OutboundJob is one transport-ready segment addressed to a recipient.
// Immutable; consumed exactly once by the sender worker.
type OutboundJob struct {
	Recipient domain.Recipient `json:"recipient"`
	Text      string           `json:"text"`
}

// InboundJob is an inbound text awaiting a backend reply. Immutable;
// consumed exactly once by a conversational worker.
type InboundJob struct {
	Recipient domain.Recipient `json:"recipient"`
	Text      string           `json:"text"`
}

// InboundItem is a freshly ingested transport message as published to
// facade subscribers waiting on the long-poll endpoint.
type InboundItem struct {
	ID         string           `json:"id"`
	Recipient  domain.Recipient `json:"phone_number"`
	Text       string           `json:"message"`
	ReceivedAt time.Time        `json:"timestamp"`
	Direction  string           `json:"direction"`
}
