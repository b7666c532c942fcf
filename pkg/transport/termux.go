package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"time"

	"github.com/smartkrishi/smsgate/pkg/logger"
)

const (
	listTimeout = 10 * time.Second
	sendTimeout = 30 * time.Second
)

// TermuxTransport drives the Android SMS stack through the termux-api CLI
// tools (termux-sms-list / termux-sms-send). Each call is a short-lived
// subprocess with its own timeout.
type TermuxTransport struct{}

// NewTermuxTransport creates the termux adapter.
func NewTermuxTransport() *TermuxTransport {
	return &TermuxTransport{}
}

func (t *TermuxTransport) Name() string { return "termux" }

// termuxMessage is the JSON shape emitted by termux-sms-list.
type termuxMessage struct {
	ID     json.Number `json:"_id"`
	Number string      `json:"number"`
	Body   string      `json:"body"`
	Type   string      `json:"type"` // "inbox" = received, "sent" = sent by us
}

// Poll shells out to termux-sms-list and normalizes the result. Any failure
// (missing binary, timeout, malformed JSON) is reported as a recoverable
// poll error; the caller treats it as an empty cycle.
func (t *TermuxTransport) Poll(ctx context.Context, limit int) ([]Message, error) {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	out, err := exec.CommandContext(ctx, "termux-sms-list", "-l", strconv.Itoa(limit)).Output()
	if err != nil {
		return nil, fmt.Errorf("%w: termux-sms-list: %v", ErrPollFailed, err)
	}

	var raw []termuxMessage
	if err := json.Unmarshal(out, &raw); err != nil {
		return nil, fmt.Errorf("%w: parse termux-sms-list output: %v", ErrPollFailed, err)
	}

	messages := make([]Message, 0, len(raw))
	for _, m := range raw {
		if m.ID.String() == "" || m.Number == "" {
			continue // malformed entry, skip
		}
		kind := KindOther
		if m.Type == "inbox" {
			kind = KindInbound
		}
		messages = append(messages, Message{
			ID:     m.ID.String(),
			Sender: m.Number,
			Body:   m.Body,
			Kind:   kind,
		})
	}

	return messages, nil
}

// Send shells out to termux-sms-send for a single segment.
func (t *TermuxTransport) Send(ctx context.Context, recipient, text string) error {
	ctx, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "termux-sms-send", "-n", recipient, text).Run(); err != nil {
		return fmt.Errorf("%w: termux-sms-send to %s: %v", ErrSendFailed, recipient, err)
	}

	logger.DebugCF("transport", "Segment sent", map[string]interface{}{
		"recipient": recipient,
		"chars":     len(text),
	})
	return nil
}

// Healthy runs a probe listing to verify termux-api is installed and
// responsive.
func (t *TermuxTransport) Healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, listTimeout)
	defer cancel()

	if err := exec.CommandContext(ctx, "termux-sms-list", "-l", "1").Run(); err != nil {
		logger.WarnCF("transport", "termux-api probe failed", map[string]interface{}{
			"error": err.Error(),
		})
		return false
	}
	return true
}

// Compile-time verification
var _ Transport = (*TermuxTransport)(nil)
