package app

import (
	"context"
	"time"

	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
	"github.com/smartkrishi/smsgate/pkg/logger"
	"github.com/smartkrishi/smsgate/pkg/sms"
	"github.com/smartkrishi/smsgate/pkg/transport"
)

// ---------------------------------------------------------------------------
// Dispatch application service
// ---------------------------------------------------------------------------

// DispatchService owns the outbound path: it segments reply text into
// transport-sized jobs and drains the global FIFO with a single sender
// worker, so per-recipient segment order is preserved end to end.
type DispatchService struct {
	queue     *bus.DispatchQueue
	transport transport.Transport
	conv      *ConversationService
	eventBus  domain.EventBus
	pacing    time.Duration
}

// NewDispatchService creates the dispatch service.
func NewDispatchService(
	queue *bus.DispatchQueue,
	tr transport.Transport,
	conv *ConversationService,
	eventBus domain.EventBus,
	pacing time.Duration,
) *DispatchService {
	return &DispatchService{
		queue:     queue,
		transport: tr,
		conv:      conv,
		eventBus:  eventBus,
		pacing:    pacing,
	}
}

// EnqueueText segments text and enqueues one OutboundJob per segment, in
// order. Returns the number of segments enqueued.
func (s *DispatchService) EnqueueText(ctx context.Context, recipient domain.Recipient, text string) int {
	segments := sms.Segment(text)
	for i, segment := range segments {
		if !s.queue.Enqueue(ctx, bus.OutboundJob{Recipient: recipient, Text: segment}) {
			return i
		}
		logger.DebugCF("dispatch", "Queued segment", map[string]interface{}{
			"recipient": recipient.String(),
			"segment":   i + 1,
			"of":        len(segments),
			"encoding":  encodingName(segment),
		})
	}
	return len(segments)
}

// Depth returns the number of queued outbound jobs.
func (s *DispatchService) Depth() int { return s.queue.Depth() }

// Run drains the dispatch queue until ctx is cancelled. It is the only
// consumer. A failed send drops the job; there is no retry.
func (s *DispatchService) Run(ctx context.Context) {
	logger.InfoC("dispatch", "Sender worker started")

	for {
		job, ok := s.queue.Consume(ctx)
		if !ok {
			logger.InfoC("dispatch", "Sender worker stopped")
			return
		}
		s.send(ctx, job)

		// Pacing between sends keeps the transport from choking on bursts.
		select {
		case <-time.After(s.pacing):
		case <-ctx.Done():
		}
	}
}

func (s *DispatchService) send(ctx context.Context, job bus.OutboundJob) {
	if err := s.transport.Send(ctx, job.Recipient.String(), job.Text); err != nil {
		logger.ErrorCF("dispatch", "Send failed", map[string]interface{}{
			"recipient": job.Recipient.String(),
			"error":     err.Error(),
		})
		s.eventBus.Publish(domain.NewEvent(domain.EventMessageSendFailed, "", map[string]string{
			"recipient": job.Recipient.String(),
			"error":     err.Error(),
		}))
		return
	}

	// Record the sent segment on the recipient's history. Sending never
	// registers anyone; unregistered recipients just get no record.
	if s.conv.IsRegistered(job.Recipient) {
		if err := s.conv.AppendTurn(job.Recipient, convdomain.RoleSystem, job.Text, time.Now().Unix(), convdomain.DirectionOutbound); err != nil {
			logger.WarnCF("dispatch", "Failed to record outbound turn", map[string]interface{}{
				"recipient": job.Recipient.String(),
				"error":     err.Error(),
			})
		}
	}

	s.eventBus.Publish(domain.NewEvent(domain.EventMessageSent, "", map[string]string{
		"recipient": job.Recipient.String(),
		"text":      job.Text,
	}))
}

func encodingName(segment string) string {
	if sms.IsGSM7Bit(segment) {
		return "GSM"
	}
	return "UCS-2"
}
