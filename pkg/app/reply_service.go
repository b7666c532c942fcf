package app

import (
	"context"
	"sync"
	"time"

	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
	"github.com/smartkrishi/smsgate/pkg/logger"
)

// ---------------------------------------------------------------------------
// Conversational worker pool
// ---------------------------------------------------------------------------

// ReplyService runs the pool of conversational workers. Each worker pulls
// one InboundJob at a time, drives the backend round trip under the
// recipient's lock, records both turns on success, and hands the reply to
// the dispatch path. A backend failure drops the job: no turns, no outbound,
// no retry.
type ReplyService struct {
	conv     *ConversationService
	dispatch *DispatchService
	jobs     *bus.ReplyQueue
	eventBus domain.EventBus
	workers  int
}

// NewReplyService creates the worker pool service.
func NewReplyService(
	conv *ConversationService,
	dispatch *DispatchService,
	jobs *bus.ReplyQueue,
	eventBus domain.EventBus,
	workers int,
) *ReplyService {
	if workers < 1 {
		workers = 1
	}
	return &ReplyService{
		conv:     conv,
		dispatch: dispatch,
		jobs:     jobs,
		eventBus: eventBus,
		workers:  workers,
	}
}

// Depth returns the number of jobs waiting for a worker.
func (s *ReplyService) Depth() int { return s.jobs.Depth() }

// Run starts the workers and blocks until all have stopped.
func (s *ReplyService) Run(ctx context.Context) {
	logger.InfoCF("reply", "Worker pool started", map[string]interface{}{"workers": s.workers})

	var wg sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			s.worker(ctx, id)
		}(i)
	}
	wg.Wait()

	logger.InfoC("reply", "Worker pool stopped")
}

func (s *ReplyService) worker(ctx context.Context, id int) {
	for {
		job, ok := s.jobs.Consume(ctx)
		if !ok {
			return
		}
		s.process(ctx, id, job)
	}
}

func (s *ReplyService) process(ctx context.Context, id int, job bus.InboundJob) {
	// The recipient lock serializes the whole round trip so a session
	// handle never sees concurrent calls and turn pairs never interleave.
	lock := s.conv.RecipientLock(job.Recipient)
	lock.Lock()
	defer lock.Unlock()

	session, err := s.conv.Session(ctx, job.Recipient)
	if err != nil {
		s.backendError(job, err)
		return
	}

	reply, err := session.Send(ctx, job.Text)
	if err != nil {
		s.backendError(job, err)
		return
	}

	// Outbound timestamp is strictly after the inbound one even when the
	// clock resolution ties them.
	ts := time.Now().Unix()
	if err := s.conv.AppendTurn(job.Recipient, convdomain.RoleUser, job.Text, ts, convdomain.DirectionInbound); err != nil {
		logger.WarnCF("reply", "Failed to record user turn", map[string]interface{}{
			"recipient": job.Recipient.String(),
			"error":     err.Error(),
		})
	}
	if err := s.conv.AppendTurn(job.Recipient, convdomain.RoleAssistant, reply, ts+1, convdomain.DirectionOutbound); err != nil {
		logger.WarnCF("reply", "Failed to record assistant turn", map[string]interface{}{
			"recipient": job.Recipient.String(),
			"error":     err.Error(),
		})
	}

	s.eventBus.Publish(domain.NewEvent(domain.EventBackendResponded, "", map[string]string{
		"recipient": job.Recipient.String(),
	}))

	n := s.dispatch.EnqueueText(ctx, job.Recipient, reply)
	logger.InfoCF("reply", "Reply queued", map[string]interface{}{
		"recipient": job.Recipient.String(),
		"worker":    id,
		"segments":  n,
	})
}

func (s *ReplyService) backendError(job bus.InboundJob, err error) {
	logger.ErrorCF("reply", "Backend call failed, dropping job", map[string]interface{}{
		"recipient": job.Recipient.String(),
		"error":     err.Error(),
	})
	s.eventBus.Publish(domain.NewEvent(domain.EventBackendError, "", map[string]string{
		"recipient": job.Recipient.String(),
		"error":     err.Error(),
	}))
}
