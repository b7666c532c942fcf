package persistence

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
)

func TestFileKeySanitization(t *testing.T) {
	assert.Equal(t, "p15550001111", fileKey("+15550001111"))
	assert.Equal(t, "a_b_c", fileKey("a/b\\c"))
}

func TestConversationRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewConversationRepository(dir)
	require.NoError(t, err)

	recipient := domain.Recipient("+15550001111")
	c := convdomain.New(recipient)
	c.Append(convdomain.RoleUser, "hello", 100, convdomain.DirectionInbound)
	require.NoError(t, repo.Save(c))

	// The filename is sanitized but lookups use the raw recipient.
	_, err = os.Stat(filepath.Join(dir, "p15550001111.json"))
	require.NoError(t, err)

	got, err := repo.FindByRecipient(recipient)
	require.NoError(t, err)
	assert.Equal(t, recipient, got.Recipient)
	require.Len(t, got.Turns, 1)
	assert.Equal(t, "hello", got.Turns[0].Text)

	// A fresh repository reloads from disk under the raw key.
	repo2, err := NewConversationRepository(dir)
	require.NoError(t, err)
	got, err = repo2.FindByRecipient(recipient)
	require.NoError(t, err)
	assert.Equal(t, 1, got.TurnCount())

	all, err := repo2.FindAll()
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestConversationRepositoryDelete(t *testing.T) {
	dir := t.TempDir()

	repo, err := NewConversationRepository(dir)
	require.NoError(t, err)

	recipient := domain.Recipient("+15550001111")
	require.NoError(t, repo.Save(convdomain.New(recipient)))
	require.NoError(t, repo.Delete(recipient))

	_, err = repo.FindByRecipient(recipient)
	assert.ErrorIs(t, err, convdomain.ErrNotRegistered)
	assert.ErrorIs(t, repo.Delete(recipient), convdomain.ErrNotRegistered)

	_, err = os.Stat(filepath.Join(dir, "p15550001111.json"))
	assert.True(t, os.IsNotExist(err))
}

func TestConversationRepositoryRejectsEmptyRecipient(t *testing.T) {
	repo, err := NewConversationRepository(t.TempDir())
	require.NoError(t, err)

	assert.ErrorIs(t, repo.Save(&convdomain.Conversation{}), convdomain.ErrEmptyRecipient)
}

func TestProcessedStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed.db")

	s, err := OpenProcessedStore(path)
	require.NoError(t, err)

	fresh, err := s.MarkProcessed("41")
	require.NoError(t, err)
	assert.True(t, fresh)

	fresh, err = s.MarkProcessed("41")
	require.NoError(t, err)
	assert.False(t, fresh)

	require.NoError(t, s.Close())

	s2, err := OpenProcessedStore(path)
	require.NoError(t, err)
	defer s2.Close()

	assert.True(t, s2.Seen("41"))
	assert.Equal(t, 1, s2.Count())

	fresh, err = s2.MarkProcessed("41")
	require.NoError(t, err)
	assert.False(t, fresh)
}
