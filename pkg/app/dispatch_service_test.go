package app

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
)

func TestDispatchSegmentsLongText(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	long := strings.Repeat("word ", 80) // well past one GSM segment
	n := p.dispatch.EnqueueText(ctx, "+15550001111", long)

	assert.Greater(t, n, 1)
	assert.Equal(t, n, p.dispatchQ.Depth())
}

func TestSenderRecordsOutboundTurn(t *testing.T) {
	p := newPipeline(t)
	sender := domain.Recipient("+15550001111")

	_, err := p.conv.Register(sender)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.dispatch.Run(ctx)
		close(done)
	}()

	p.dispatch.EnqueueText(ctx, sender, "confirmation text")

	require.Eventually(t, func() bool {
		return len(p.transport.sentTexts()) == 1
	}, time.Second, 5*time.Millisecond)

	require.Eventually(t, func() bool {
		turns, err := p.conv.History(sender, 0)
		return err == nil && len(turns) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	turns, err := p.conv.History(sender, 0)
	require.NoError(t, err)
	assert.Equal(t, convdomain.RoleSystem, turns[0].Role)
	assert.Equal(t, "confirmation text", turns[0].Text)
	assert.Equal(t, convdomain.DirectionOutbound, turns[0].Direction)
}

func TestSenderNeverRegistersRecipients(t *testing.T) {
	p := newPipeline(t)
	sender := domain.Recipient("+15550001111")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.dispatch.Run(ctx)
		close(done)
	}()

	p.dispatch.EnqueueText(ctx, sender, "one-off notice")

	require.Eventually(t, func() bool {
		return len(p.transport.sentTexts()) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	<-done

	// The segment went out but no conversation record appeared.
	assert.False(t, p.conv.IsRegistered(sender))
}

func TestSenderDropsFailedSend(t *testing.T) {
	p := newPipeline(t)
	p.transport.failSend = true
	sender := domain.Recipient("+15550001111")

	_, err := p.conv.Register(sender)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.dispatch.Run(ctx)
		close(done)
	}()

	p.dispatch.EnqueueText(ctx, sender, "doomed")

	require.Eventually(t, func() bool {
		return p.dispatchQ.Depth() == 0
	}, time.Second, 5*time.Millisecond)
	time.Sleep(20 * time.Millisecond)

	cancel()
	<-done

	// Job consumed, nothing sent, nothing recorded, no retry.
	assert.Empty(t, p.transport.sentTexts())
	turns, err := p.conv.History(sender, 0)
	require.NoError(t, err)
	assert.Empty(t, turns)
}

func TestSenderPreservesSegmentOrder(t *testing.T) {
	p := newPipeline(t)
	sender := domain.Recipient("+15550001111")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.dispatch.Run(ctx)
		close(done)
	}()

	long := strings.Repeat("alpha beta gamma delta ", 30)
	n := p.dispatch.EnqueueText(ctx, sender, long)
	require.Greater(t, n, 1)

	require.Eventually(t, func() bool {
		return len(p.transport.sentTexts()) == n
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done

	// Segments reassemble the normalized input in order.
	sent := p.transport.sentTexts()
	assert.Equal(t, strings.Join(strings.Fields(long), " "), strings.Join(sent, " "))
}
