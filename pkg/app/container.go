// Package app provides the application services that orchestrate the relay
// pipeline: ingestion, command routing, the conversational worker pool, and
// outbound dispatch. The Container is the composition root wiring them to
// the domain and infrastructure layers.
package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/config"
	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
	"github.com/smartkrishi/smsgate/pkg/infrastructure/eventbus"
	"github.com/smartkrishi/smsgate/pkg/infrastructure/persistence"
	"github.com/smartkrishi/smsgate/pkg/logger"
	"github.com/smartkrishi/smsgate/pkg/providers"
	"github.com/smartkrishi/smsgate/pkg/transport"
)

// ---------------------------------------------------------------------------
// Application container — dependency injection root
// ---------------------------------------------------------------------------

// Container holds the fully wired gateway: infrastructure, queues, and
// application services.
type Container struct {
	Config   *config.Config
	EventBus domain.EventBus

	Conversations convdomain.Repository
	Processed     *persistence.ProcessedStore
	Backend       providers.Backend
	Transport     transport.Transport

	DispatchQueue *bus.DispatchQueue
	ReplyQueue    *bus.ReplyQueue
	Inbox         *bus.Inbox

	ConversationSvc *ConversationService
	Router          *RouterService
	Reply           *ReplyService
	Dispatch        *DispatchService
	Poller          *PollerService
	Janitor         *JanitorService

	StartedAt time.Time
}

// NewContainer builds and wires every component from configuration.
func NewContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	eventBus := eventbus.New()

	repo, err := persistence.NewConversationRepository(cfg.HistoryDir())
	if err != nil {
		return nil, fmt.Errorf("conversation store: %w", err)
	}

	processed, err := persistence.OpenProcessedStore(cfg.ProcessedDBPath())
	if err != nil {
		return nil, fmt.Errorf("processed store: %w", err)
	}

	backend, err := providers.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("backend: %w", err)
	}

	tr, err := newTransport(cfg)
	if err != nil {
		return nil, fmt.Errorf("transport: %w", err)
	}
	if !tr.Healthy(ctx) {
		logger.WarnCF("app", "Transport health check failed, sends and polls may error", map[string]interface{}{
			"transport": tr.Name(),
		})
	}

	dispatchQueue := bus.NewDispatchQueue(cfg.Relay.QueueSize)
	replyQueue := bus.NewReplyQueue(cfg.Relay.QueueSize)
	inbox := bus.NewInbox(cfg.Relay.QueueSize)

	conv := NewConversationService(repo, processed, backend, eventBus)
	dispatch := NewDispatchService(dispatchQueue, tr, conv, eventBus, cfg.Transport.SendPacing)
	router := NewRouterService(conv, dispatch, replyQueue)
	reply := NewReplyService(conv, dispatch, replyQueue, eventBus, cfg.Relay.Workers)
	poller := NewPollerService(tr, conv, router, inbox, eventBus, cfg.Transport.PollInterval, cfg.Transport.PollBatch)
	janitor := NewJanitorService(conv, cfg.Janitor.Schedule, cfg.Janitor.SessionTTL)

	return &Container{
		Config:          cfg,
		EventBus:        eventBus,
		Conversations:   repo,
		Processed:       processed,
		Backend:         backend,
		Transport:       tr,
		DispatchQueue:   dispatchQueue,
		ReplyQueue:      replyQueue,
		Inbox:           inbox,
		ConversationSvc: conv,
		Router:          router,
		Reply:           reply,
		Dispatch:        dispatch,
		Poller:          poller,
		Janitor:         janitor,
		StartedAt:       time.Now().UTC(),
	}, nil
}

func newTransport(cfg *config.Config) (transport.Transport, error) {
	switch cfg.Transport.Kind {
	case "termux":
		return transport.NewTermuxTransport(), nil
	case "console":
		return transport.NewConsoleTransport()
	default:
		return nil, fmt.Errorf("unknown transport kind %q", cfg.Transport.Kind)
	}
}

// Run starts the pipeline workers and blocks until ctx is cancelled and all
// workers have drained out.
func (c *Container) Run(ctx context.Context) {
	c.EventBus.Publish(domain.NewEvent(domain.EventSystemStartup, "", map[string]string{
		"transport": c.Transport.Name(),
		"backend":   c.Backend.Name(),
	}))

	var wg sync.WaitGroup
	for _, run := range []func(context.Context){
		c.Dispatch.Run,
		c.Reply.Run,
		c.Poller.Run,
		c.Janitor.Run,
	} {
		wg.Add(1)
		go func(fn func(context.Context)) {
			defer wg.Done()
			fn(ctx)
		}(run)
	}
	wg.Wait()

	c.EventBus.Publish(domain.NewEvent(domain.EventSystemShutdown, "", nil))
}

// Close releases infrastructure handles. Call after Run has returned.
func (c *Container) Close() {
	if closer, ok := c.Transport.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			logger.WarnCF("app", "Transport close failed", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := c.Processed.Close(); err != nil {
		logger.WarnCF("app", "Processed store close failed", map[string]interface{}{"error": err.Error()})
	}
	c.EventBus.Close()
}

// ---------------------------------------------------------------------------
// Status snapshot
// ---------------------------------------------------------------------------

// Status is the point-in-time view served by the status endpoint.
type Status struct {
	TransportHealthy  bool   `json:"transport_healthy"`
	Transport         string `json:"transport"`
	Backend           string `json:"backend"`
	RegisteredNumbers int    `json:"registered_numbers"`
	ActiveSessions    int    `json:"active_sessions"`
	ProcessedCount    int    `json:"processed_sms_count"`
	SendQueueSize     int    `json:"send_queue_size"`
	ReplyQueueSize    int    `json:"reply_queue_size"`
	GroundingEnabled  bool   `json:"grounding_enabled"`
	UptimeSeconds     int64  `json:"uptime_seconds"`
}

// Status assembles the current snapshot.
func (c *Container) Status(ctx context.Context) Status {
	return Status{
		TransportHealthy:  c.Transport.Healthy(ctx),
		Transport:         c.Transport.Name(),
		Backend:           c.Backend.Name(),
		RegisteredNumbers: c.ConversationSvc.RegisteredCount(),
		ActiveSessions:    c.ConversationSvc.SessionCount(),
		ProcessedCount:    c.ConversationSvc.ProcessedCount(),
		SendQueueSize:     c.Dispatch.Depth(),
		ReplyQueueSize:    c.Reply.Depth(),
		GroundingEnabled:  c.Config.Backend.EnableGrounding,
		UptimeSeconds:     int64(time.Since(c.StartedAt).Seconds()),
	}
}
