package transport

import (
	"context"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/chzyer/readline"
	"github.com/google/uuid"

	"github.com/smartkrishi/smsgate/pkg/logger"
)

// consoleSender is the synthetic phone number attributed to lines typed on
// the local console.
const consoleSender = "+10000000000"

// ConsoleTransport is a development adapter: lines typed at an interactive
// prompt arrive as inbound SMS from a synthetic sender, and sends print to
// stdout. It lets the whole relay run on a workstation without a modem.
type ConsoleTransport struct {
	rl      *readline.Instance
	pending []Message
	mu      sync.Mutex
	closed  bool
}

// NewConsoleTransport starts the prompt reader.
func NewConsoleTransport() (*ConsoleTransport, error) {
	rl, err := readline.New("sms> ")
	if err != nil {
		return nil, fmt.Errorf("console transport: %w", err)
	}

	t := &ConsoleTransport{rl: rl}
	go t.readLoop()
	return t, nil
}

func (t *ConsoleTransport) Name() string { return "console" }

func (t *ConsoleTransport) readLoop() {
	for {
		line, err := t.rl.Readline()
		if err != nil { // io.EOF or readline.ErrInterrupt
			if err != io.EOF && err != readline.ErrInterrupt {
				logger.WarnCF("transport", "console read error", map[string]interface{}{
					"error": err.Error(),
				})
			}
			t.mu.Lock()
			t.closed = true
			t.mu.Unlock()
			return
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		t.mu.Lock()
		t.pending = append(t.pending, Message{
			ID:     uuid.NewString(),
			Sender: consoleSender,
			Body:   line,
			Kind:   KindInbound,
		})
		t.mu.Unlock()
	}
}

// Poll drains up to limit pending typed lines.
func (t *ConsoleTransport) Poll(ctx context.Context, limit int) ([]Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	n := len(t.pending)
	if limit > 0 && n > limit {
		n = limit
	}
	out := make([]Message, n)
	copy(out, t.pending[:n])
	t.pending = t.pending[n:]
	return out, nil
}

// Send prints the segment to stdout.
func (t *ConsoleTransport) Send(ctx context.Context, recipient, text string) error {
	fmt.Printf("[SMS → %s] %s\n", recipient, text)
	return nil
}

// Healthy reports whether the prompt reader is still alive.
func (t *ConsoleTransport) Healthy(ctx context.Context) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return !t.closed
}

// Close shuts down the prompt.
func (t *ConsoleTransport) Close() error {
	return t.rl.Close()
}

// Compile-time verification
var _ Transport = (*ConsoleTransport)(nil)
