package app

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/smartkrishi/smsgate/pkg/bus"
	"github.com/smartkrishi/smsgate/pkg/infrastructure/eventbus"
	"github.com/smartkrishi/smsgate/pkg/infrastructure/persistence"
	"github.com/smartkrishi/smsgate/pkg/providers"
	"github.com/smartkrishi/smsgate/pkg/transport"
)

// ---------------------------------------------------------------------------
// Fakes
// ---------------------------------------------------------------------------

type sentSMS struct {
	recipient string
	text      string
}

// fakeTransport serves canned poll batches and records sends.
type fakeTransport struct {
	mu       sync.Mutex
	batches  [][]transport.Message
	sent     []sentSMS
	failSend bool
}

func (t *fakeTransport) Name() string { return "fake" }

func (t *fakeTransport) Poll(ctx context.Context, limit int) ([]transport.Message, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if len(t.batches) == 0 {
		return nil, nil
	}
	batch := t.batches[0]
	t.batches = t.batches[1:]
	return batch, nil
}

func (t *fakeTransport) Send(ctx context.Context, recipient, text string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.failSend {
		return errors.New("radio off")
	}
	t.sent = append(t.sent, sentSMS{recipient: recipient, text: text})
	return nil
}

func (t *fakeTransport) Healthy(ctx context.Context) bool { return true }

func (t *fakeTransport) sentTexts() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, len(t.sent))
	for i, s := range t.sent {
		out[i] = s.text
	}
	return out
}

// fakeBackend echoes a fixed reply and counts session creations.
type fakeBackend struct {
	mu         sync.Mutex
	reply      string
	failCreate bool
	failSend   bool
	created    int
}

func (b *fakeBackend) Name() string { return "fake" }

func (b *fakeBackend) CreateSession(ctx context.Context, recipient string) (providers.Session, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failCreate {
		return nil, providers.ErrBackendCall
	}
	b.created++
	return &fakeSession{backend: b}, nil
}

func (b *fakeBackend) sessionCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.created
}

type fakeSession struct {
	backend *fakeBackend
}

func (s *fakeSession) Send(ctx context.Context, text string) (string, error) {
	s.backend.mu.Lock()
	defer s.backend.mu.Unlock()
	if s.backend.failSend {
		return "", providers.ErrBackendCall
	}
	return s.backend.reply, nil
}

// ---------------------------------------------------------------------------
// Pipeline harness
// ---------------------------------------------------------------------------

type pipeline struct {
	transport *fakeTransport
	backend   *fakeBackend

	conv     *ConversationService
	dispatch *DispatchService
	router   *RouterService
	reply    *ReplyService
	poller   *PollerService

	dispatchQ *bus.DispatchQueue
	replyQ    *bus.ReplyQueue
	inbox     *bus.Inbox
}

func newPipeline(t *testing.T) *pipeline {
	t.Helper()

	dir := t.TempDir()

	repo, err := persistence.NewConversationRepository(filepath.Join(dir, "conversations"))
	require.NoError(t, err)

	processed, err := persistence.OpenProcessedStore(filepath.Join(dir, "processed.db"))
	require.NoError(t, err)
	t.Cleanup(func() { processed.Close() })

	tr := &fakeTransport{}
	backend := &fakeBackend{reply: "hello from the model"}
	events := eventbus.New()
	t.Cleanup(events.Close)

	dispatchQ := bus.NewDispatchQueue(64)
	replyQ := bus.NewReplyQueue(64)
	inbox := bus.NewInbox(64)

	conv := NewConversationService(repo, processed, backend, events)
	dispatch := NewDispatchService(dispatchQ, tr, conv, events, time.Millisecond)
	router := NewRouterService(conv, dispatch, replyQ)
	reply := NewReplyService(conv, dispatch, replyQ, events, 2)
	poller := NewPollerService(tr, conv, router, inbox, events, 5*time.Millisecond, 50)

	return &pipeline{
		transport: tr,
		backend:   backend,
		conv:      conv,
		dispatch:  dispatch,
		router:    router,
		reply:     reply,
		poller:    poller,
		dispatchQ: dispatchQ,
		replyQ:    replyQ,
		inbox:     inbox,
	}
}

// drainDispatch empties the dispatch queue without sending, returning the
// queued texts in order.
func (p *pipeline) drainDispatch(t *testing.T) []string {
	t.Helper()

	var out []string
	for p.dispatchQ.Depth() > 0 {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		job, ok := p.dispatchQ.Consume(ctx)
		cancel()
		require.True(t, ok)
		out = append(out, job.Text)
	}
	return out
}
