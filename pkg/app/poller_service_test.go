package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartkrishi/smsgate/pkg/domain"
	"github.com/smartkrishi/smsgate/pkg/transport"
)

func TestPollerDeduplicatesByID(t *testing.T) {
	p := newPipeline(t)

	msg := transport.Message{ID: "41", Sender: "+15550001111", Body: "chat", Kind: transport.KindInbound}
	// The same ID shows up in two consecutive polls, as termux-sms-list
	// re-reports recent messages.
	p.transport.batches = [][]transport.Message{{msg}, {msg}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.poller.Run(ctx)
		close(done)
	}()

	require.Eventually(t, func() bool {
		return p.conv.IsRegistered("+15550001111")
	}, time.Second, 5*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	cancel()
	<-done

	// Routed exactly once: one confirmation, not two.
	assert.Equal(t, []string{MsgRegistered}, p.drainDispatch(t))
	assert.Equal(t, 1, p.conv.ProcessedCount())
}

func TestPollerSkipsNonInbound(t *testing.T) {
	p := newPipeline(t)

	p.transport.batches = [][]transport.Message{{
		{ID: "1", Sender: "+15550001111", Body: "chat", Kind: transport.KindOther},
		{ID: "", Sender: "+15550002222", Body: "chat", Kind: transport.KindInbound},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.poller.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()
	<-done

	// Echoed/sent items and items without an ID never reach the router.
	assert.False(t, p.conv.IsRegistered("+15550001111"))
	assert.False(t, p.conv.IsRegistered("+15550002222"))
	assert.Zero(t, p.conv.ProcessedCount())
}

func TestPollerPublishesToInbox(t *testing.T) {
	p := newPipeline(t)

	p.transport.batches = [][]transport.Message{{
		{ID: "7", Sender: "+15550001111", Body: "hello", Kind: transport.KindInbound},
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.poller.Run(ctx)
		close(done)
	}()

	rctx, rcancel := context.WithTimeout(ctx, time.Second)
	defer rcancel()
	item, ok := p.inbox.Receive(rctx)

	cancel()
	<-done

	require.True(t, ok)
	assert.Equal(t, "7", item.ID)
	assert.Equal(t, domain.Recipient("+15550001111"), item.Recipient)
	assert.Equal(t, "hello", item.Text)
	assert.Equal(t, "inbound", item.Direction)
}

// TestPipelineEndToEnd drives the whole relay with fakes: register over SMS,
// then ask a question and watch the reply come back segmented and in order.
func TestPipelineEndToEnd(t *testing.T) {
	p := newPipeline(t)
	p.backend.reply = "Sunny, 28C. No rain expected today."

	p.transport.batches = [][]transport.Message{
		{{ID: "1", Sender: "+15550001111", Body: "chat", Kind: transport.KindInbound}},
		{{ID: "2", Sender: "+15550001111", Body: "what is the weather", Kind: transport.KindInbound}},
	}

	ctx, cancel := context.WithCancel(context.Background())
	var done []chan struct{}
	for _, run := range []func(context.Context){p.dispatch.Run, p.reply.Run, p.poller.Run} {
		ch := make(chan struct{})
		done = append(done, ch)
		go func(fn func(context.Context), ch chan struct{}) {
			fn(ctx)
			close(ch)
		}(run, ch)
	}

	require.Eventually(t, func() bool {
		sent := p.transport.sentTexts()
		return len(sent) == 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	for _, ch := range done {
		<-ch
	}

	assert.Equal(t, []string{
		MsgRegistered,
		MsgThinking,
		"Sunny, 28C. No rain expected today.",
	}, p.transport.sentTexts())

	// History holds the user turn, the assistant turn, and one system turn
	// per sent segment.
	turns, err := p.conv.History("+15550001111", 0)
	require.NoError(t, err)
	assert.Len(t, turns, 5)
}
