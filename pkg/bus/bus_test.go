package bus

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/smartkrishi/smsgate/pkg/domain"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestDispatchQueueFIFO(t *testing.T) {
	q := NewDispatchQueue(16)
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		require.True(t, q.Enqueue(ctx, OutboundJob{Recipient: "+100", Text: fmt.Sprintf("seg-%d", i)}))
	}
	assert.Equal(t, 10, q.Depth())

	for i := 0; i < 10; i++ {
		job, ok := q.Consume(ctx)
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("seg-%d", i), job.Text)
	}
	assert.Zero(t, q.Depth())
}

func TestConsumeRespectsCancellation(t *testing.T) {
	q := NewReplyQueue(4)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, ok := q.Consume(ctx)
	assert.False(t, ok)
}

func TestEnqueueBlocksWhenFull(t *testing.T) {
	q := NewDispatchQueue(1)
	ctx := context.Background()

	require.True(t, q.Enqueue(ctx, OutboundJob{Text: "a"}))

	// The queue is full; a cancelled context unblocks the producer.
	tctx, cancel := context.WithTimeout(ctx, 20*time.Millisecond)
	defer cancel()
	assert.False(t, q.Enqueue(tctx, OutboundJob{Text: "b"}))

	job, ok := q.Consume(ctx)
	require.True(t, ok)
	assert.Equal(t, "a", job.Text)
}

func TestInboxHandoff(t *testing.T) {
	in := NewInbox(4)

	in.Publish(InboundItem{ID: "1", Recipient: domain.Recipient("+100"), Text: "hi"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	item, ok := in.Receive(ctx)
	require.True(t, ok)
	assert.Equal(t, "1", item.ID)

	// Each item is delivered to at most one receiver.
	tctx, tcancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer tcancel()
	_, ok = in.Receive(tctx)
	assert.False(t, ok)
}

func TestInboxDropsOldestUnderPressure(t *testing.T) {
	in := NewInbox(2)

	in.Publish(InboundItem{ID: "1"})
	in.Publish(InboundItem{ID: "2"})
	in.Publish(InboundItem{ID: "3"}) // evicts "1"

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	item, ok := in.Receive(ctx)
	require.True(t, ok)
	assert.Equal(t, "2", item.ID)

	item, ok = in.Receive(ctx)
	require.True(t, ok)
	assert.Equal(t, "3", item.ID)
}
