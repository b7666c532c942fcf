package app

import (
	"context"
	"time"

	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/domain"
	"github.com/smartkrishi/smsgate/pkg/logger"
	"github.com/smartkrishi/smsgate/pkg/transport"
)

// ---------------------------------------------------------------------------
// Ingestion poller
// ---------------------------------------------------------------------------

// PollerService runs the single-threaded ingestion loop: poll the transport,
// drop non-inbound and already-seen items, publish fresh ones to the inbox,
// and hand each to the router synchronously. One poll cycle never overlaps
// with the next.
type PollerService struct {
	transport transport.Transport
	conv      *ConversationService
	router    *RouterService
	inbox     *bus.Inbox
	eventBus  domain.EventBus
	interval  time.Duration
	batch     int
}

// NewPollerService creates the ingestion poller.
func NewPollerService(
	tr transport.Transport,
	conv *ConversationService,
	router *RouterService,
	inbox *bus.Inbox,
	eventBus domain.EventBus,
	interval time.Duration,
	batch int,
) *PollerService {
	return &PollerService{
		transport: tr,
		conv:      conv,
		router:    router,
		inbox:     inbox,
		eventBus:  eventBus,
		interval:  interval,
		batch:     batch,
	}
}

// Run polls until ctx is cancelled. The fixed inter-cycle delay applies
// regardless of how many items the cycle produced.
func (s *PollerService) Run(ctx context.Context) {
	logger.InfoCF("poller", "Ingestion poller started", map[string]interface{}{
		"transport": s.transport.Name(),
		"interval":  s.interval.String(),
		"batch":     s.batch,
	})

	for {
		s.cycle(ctx)

		select {
		case <-time.After(s.interval):
		case <-ctx.Done():
			logger.InfoC("poller", "Ingestion poller stopped")
			return
		}
	}
}

func (s *PollerService) cycle(ctx context.Context) {
	messages, err := s.transport.Poll(ctx, s.batch)
	if err != nil {
		// A failed poll is a zero-item cycle, not a fatal condition.
		logger.WarnCF("poller", "Poll failed", map[string]interface{}{"error": err.Error()})
		return
	}

	for _, m := range messages {
		if m.Kind != transport.KindInbound || m.ID == "" {
			continue
		}

		fresh, err := s.conv.MarkProcessed(m.ID)
		if err != nil {
			// The in-memory claim held, so the item still flows through
			// exactly once this process lifetime.
			logger.WarnCF("poller", "Failed to persist processed id", map[string]interface{}{
				"id":    m.ID,
				"error": err.Error(),
			})
		}
		if !fresh {
			continue
		}

		logger.DebugCF("poller", "New inbound message", map[string]interface{}{
			"id":     m.ID,
			"sender": m.Sender,
		})

		s.eventBus.Publish(domain.NewEvent(domain.EventMessageReceived, "", map[string]string{
			"id":     m.ID,
			"sender": m.Sender,
		}))

		s.inbox.Publish(bus.InboundItem{
			ID:         m.ID,
			Recipient:  domain.Recipient(m.Sender),
			Text:       m.Body,
			ReceivedAt: time.Now().UTC(),
			Direction:  "inbound",
		})

		s.router.HandleInbound(ctx, domain.Recipient(m.Sender), m.Body)
	}
}
