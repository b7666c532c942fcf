package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
)

func TestConversationRegisterAndClear(t *testing.T) {
	p := newPipeline(t)
	sender := domain.Recipient("+15550001111")

	created, err := p.conv.Register(sender)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, p.conv.IsRegistered(sender))

	created, err = p.conv.Register(sender)
	require.NoError(t, err)
	assert.False(t, created)

	existed, err := p.conv.Clear(sender)
	require.NoError(t, err)
	assert.True(t, existed)
	assert.False(t, p.conv.IsRegistered(sender))

	existed, err = p.conv.Clear(sender)
	require.NoError(t, err)
	assert.False(t, existed)
}

func TestConversationRejectsEmptyRecipient(t *testing.T) {
	p := newPipeline(t)

	_, err := p.conv.Register("")
	assert.ErrorIs(t, err, convdomain.ErrEmptyRecipient)
}

func TestConversationHistoryLimit(t *testing.T) {
	p := newPipeline(t)
	sender := domain.Recipient("+15550001111")

	_, err := p.conv.Register(sender)
	require.NoError(t, err)

	for i := int64(0); i < 5; i++ {
		require.NoError(t, p.conv.AppendTurn(sender, convdomain.RoleUser, "msg", 100+i, convdomain.DirectionInbound))
	}

	turns, err := p.conv.History(sender, 2)
	require.NoError(t, err)
	require.Len(t, turns, 2)
	assert.Equal(t, int64(103), turns[0].Timestamp)
	assert.Equal(t, int64(104), turns[1].Timestamp)

	all, err := p.conv.History(sender, 0)
	require.NoError(t, err)
	assert.Len(t, all, 5)

	_, err = p.conv.History("+19999999999", 0)
	assert.ErrorIs(t, err, convdomain.ErrNotRegistered)
}

func TestSessionCacheLifecycle(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()
	sender := domain.Recipient("+15550001111")

	s1, err := p.conv.Session(ctx, sender)
	require.NoError(t, err)
	s2, err := p.conv.Session(ctx, sender)
	require.NoError(t, err)
	assert.Same(t, s1, s2)
	assert.Equal(t, 1, p.backend.sessionCount())
	assert.Equal(t, 1, p.conv.SessionCount())

	p.conv.InvalidateSession(sender)
	assert.Zero(t, p.conv.SessionCount())

	_, err = p.conv.Session(ctx, sender)
	require.NoError(t, err)
	assert.Equal(t, 2, p.backend.sessionCount())
}

func TestEvictIdleSessions(t *testing.T) {
	p := newPipeline(t)
	ctx := context.Background()

	_, err := p.conv.Session(ctx, "+15550001111")
	require.NoError(t, err)
	_, err = p.conv.Session(ctx, "+15550002222")
	require.NoError(t, err)

	// Nothing is idle yet under a generous TTL.
	assert.Zero(t, p.conv.EvictIdleSessions(time.Hour))
	assert.Equal(t, 2, p.conv.SessionCount())

	time.Sleep(5 * time.Millisecond)
	assert.Equal(t, 2, p.conv.EvictIdleSessions(time.Millisecond))
	assert.Zero(t, p.conv.SessionCount())
}

func TestMarkProcessedIdempotent(t *testing.T) {
	p := newPipeline(t)

	fresh, err := p.conv.MarkProcessed("abc")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = p.conv.MarkProcessed("abc")
	require.NoError(t, err)
	assert.False(t, fresh)

	assert.Equal(t, 1, p.conv.ProcessedCount())
}
