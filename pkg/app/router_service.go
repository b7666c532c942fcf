package app

import (
	"context"
	"strings"

	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/domain"
	"github.com/smartkrishi/smsgate/pkg/logger"
)

// Confirmation texts sent back over SMS. Wire-visible; changing them changes
// what correspondents see.
const (
	MsgRegistered        = "Your number has been registered successfully."
	MsgAlreadyRegistered = "Your number is already registered. You can start chatting!"
	MsgHistoryCleared    = "Chat history cleared successfully"
	MsgThinking          = "Thinking..."
)

// ---------------------------------------------------------------------------
// Command router
// ---------------------------------------------------------------------------

// RouterService classifies each inbound message as a control command or free
// text and drives the per-recipient registration state machine. Together
// with the facade's register/clear endpoints it is the only place
// registration state changes.
type RouterService struct {
	conv     *ConversationService
	dispatch *DispatchService
	replies  *bus.ReplyQueue
}

// NewRouterService creates the command router.
func NewRouterService(conv *ConversationService, dispatch *DispatchService, replies *bus.ReplyQueue) *RouterService {
	return &RouterService{
		conv:     conv,
		dispatch: dispatch,
		replies:  replies,
	}
}

// HandleInbound routes one inbound message. Commands are matched on the
// trimmed, lowercased body; matching is exact, so "chat please" is free text.
func (r *RouterService) HandleInbound(ctx context.Context, sender domain.Recipient, body string) {
	txt := strings.TrimSpace(body)
	if sender.IsZero() || txt == "" {
		logger.DebugC("router", "Dropping message with empty sender or body")
		return
	}

	logger.InfoCF("router", "Inbound message", map[string]interface{}{
		"sender": sender.String(),
		"length": len(txt),
	})

	switch strings.ToLower(txt) {
	case "chat":
		r.handleRegister(ctx, sender)
	case "clear":
		r.handleClear(ctx, sender)
	default:
		r.handleFreeText(ctx, sender, txt)
	}
}

func (r *RouterService) handleRegister(ctx context.Context, sender domain.Recipient) {
	created, err := r.conv.Register(sender)
	if err != nil {
		logger.ErrorCF("router", "Registration failed", map[string]interface{}{
			"sender": sender.String(),
			"error":  err.Error(),
		})
		return
	}

	if created {
		r.dispatch.EnqueueText(ctx, sender, MsgRegistered)
		logger.InfoCF("router", "Recipient registered", map[string]interface{}{"sender": sender.String()})
	} else {
		r.dispatch.EnqueueText(ctx, sender, MsgAlreadyRegistered)
		logger.InfoCF("router", "Recipient already registered", map[string]interface{}{"sender": sender.String()})
	}
}

func (r *RouterService) handleClear(ctx context.Context, sender domain.Recipient) {
	// The confirmation goes out whether or not a record existed.
	if _, err := r.conv.Clear(sender); err != nil {
		logger.ErrorCF("router", "Clear failed", map[string]interface{}{
			"sender": sender.String(),
			"error":  err.Error(),
		})
		return
	}

	r.dispatch.EnqueueText(ctx, sender, MsgHistoryCleared)
	logger.InfoCF("router", "History cleared", map[string]interface{}{"sender": sender.String()})
}

func (r *RouterService) handleFreeText(ctx context.Context, sender domain.Recipient, txt string) {
	if !r.conv.IsRegistered(sender) {
		logger.InfoCF("router", "Ignored message from unregistered sender", map[string]interface{}{
			"sender": sender.String(),
		})
		return
	}

	// Interim notice first so the correspondent knows the gateway heard them.
	r.dispatch.EnqueueText(ctx, sender, MsgThinking)

	if !r.replies.Enqueue(ctx, bus.InboundJob{Recipient: sender, Text: txt}) {
		logger.WarnCF("router", "Reply queue rejected job, shutting down", map[string]interface{}{
			"sender": sender.String(),
		})
	}
}
