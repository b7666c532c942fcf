package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
	"github.com/smartkrishi/smsgate/pkg/infrastructure/persistence"
	"github.com/smartkrishi/smsgate/pkg/logger"
	"github.com/smartkrishi/smsgate/pkg/providers"
)

// ---------------------------------------------------------------------------
// Conversation application service
// ---------------------------------------------------------------------------

// ConversationService orchestrates all per-recipient state: the registration
// records, the backend session cache, and the processed-message-id set.
// Registration state changes only through Register and Clear.
type ConversationService struct {
	repo      convdomain.Repository
	processed *persistence.ProcessedStore
	backend   providers.Backend
	eventBus  domain.EventBus

	// records guards every read-modify-write against the conversation
	// store; the repository hands out shared aggregate pointers.
	records sync.Mutex

	mu       sync.Mutex
	sessions map[domain.Recipient]*sessionEntry
	locks    map[domain.Recipient]*sync.Mutex
}

type sessionEntry struct {
	session  providers.Session
	lastUsed time.Time
}

// NewConversationService creates the conversation service.
func NewConversationService(
	repo convdomain.Repository,
	processed *persistence.ProcessedStore,
	backend providers.Backend,
	eventBus domain.EventBus,
) *ConversationService {
	return &ConversationService{
		repo:      repo,
		processed: processed,
		backend:   backend,
		eventBus:  eventBus,
		sessions:  make(map[domain.Recipient]*sessionEntry),
		locks:     make(map[domain.Recipient]*sync.Mutex),
	}
}

// ---------------------------------------------------------------------------
// Registration
// ---------------------------------------------------------------------------

// Register creates an empty conversation record for recipient. Returns false
// when the recipient was already registered.
func (s *ConversationService) Register(recipient domain.Recipient) (bool, error) {
	if recipient.IsZero() {
		return false, convdomain.ErrEmptyRecipient
	}

	s.records.Lock()
	defer s.records.Unlock()

	if _, err := s.repo.FindByRecipient(recipient); err == nil {
		return false, nil
	}

	c := convdomain.New(recipient)
	if err := s.repo.Save(c); err != nil {
		return false, err
	}

	s.publishEvents(c)
	return true, nil
}

// IsRegistered reports whether a conversation record exists for recipient.
func (s *ConversationService) IsRegistered(recipient domain.Recipient) bool {
	_, err := s.repo.FindByRecipient(recipient)
	return err == nil
}

// Clear removes the recipient's record and invalidates any cached backend
// session. Returns false when no record existed; the session is invalidated
// either way.
func (s *ConversationService) Clear(recipient domain.Recipient) (bool, error) {
	s.records.Lock()
	existed := true
	if err := s.repo.Delete(recipient); err != nil {
		if err != convdomain.ErrNotRegistered {
			s.records.Unlock()
			return false, err
		}
		existed = false
	}
	s.records.Unlock()

	s.InvalidateSession(recipient)

	s.eventBus.Publish(domain.NewEvent(domain.EventConversationCleared, "", map[string]string{
		"recipient": recipient.String(),
	}))
	return existed, nil
}

// Recipients returns all registered recipients, sorted.
func (s *ConversationService) Recipients() ([]string, error) {
	all, err := s.repo.FindAll()
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(all))
	for _, c := range all {
		out = append(out, c.Recipient.String())
	}
	sort.Strings(out)
	return out, nil
}

// RegisteredCount returns the number of registered recipients.
func (s *ConversationService) RegisteredCount() int {
	all, err := s.repo.FindAll()
	if err != nil {
		return 0
	}
	return len(all)
}

// ---------------------------------------------------------------------------
// History
// ---------------------------------------------------------------------------

// AppendTurn appends one turn to the recipient's record and persists it.
func (s *ConversationService) AppendTurn(recipient domain.Recipient, role convdomain.Role, text string, ts int64, direction convdomain.Direction) error {
	s.records.Lock()
	defer s.records.Unlock()

	c, err := s.repo.FindByRecipient(recipient)
	if err != nil {
		return err
	}

	c.Append(role, text, ts, direction)
	if err := s.repo.Save(c); err != nil {
		return err
	}

	s.publishEvents(c)
	return nil
}

// History returns the most recent limit turns for recipient; limit <= 0
// returns everything.
func (s *ConversationService) History(recipient domain.Recipient, limit int) ([]convdomain.Turn, error) {
	s.records.Lock()
	defer s.records.Unlock()

	c, err := s.repo.FindByRecipient(recipient)
	if err != nil {
		return nil, err
	}
	return c.Recent(limit), nil
}

// TurnTotal returns the full turn count for recipient, zero when
// unregistered.
func (s *ConversationService) TurnTotal(recipient domain.Recipient) int {
	s.records.Lock()
	defer s.records.Unlock()

	c, err := s.repo.FindByRecipient(recipient)
	if err != nil {
		return 0
	}
	return c.TurnCount()
}

// ---------------------------------------------------------------------------
// Backend session cache
// ---------------------------------------------------------------------------

// RecipientLock returns the mutex serializing conversational work for one
// recipient. Workers hold it across the whole session round trip so a
// session handle is never used concurrently.
func (s *ConversationService) RecipientLock(recipient domain.Recipient) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	l, ok := s.locks[recipient]
	if !ok {
		l = &sync.Mutex{}
		s.locks[recipient] = l
	}
	return l
}

// Session returns the recipient's backend session, creating it lazily. The
// system preamble is applied by the backend exactly once, at creation.
// Callers must hold the recipient lock.
func (s *ConversationService) Session(ctx context.Context, recipient domain.Recipient) (providers.Session, error) {
	s.mu.Lock()
	if entry, ok := s.sessions[recipient]; ok {
		entry.lastUsed = time.Now()
		s.mu.Unlock()
		return entry.session, nil
	}
	s.mu.Unlock()

	// Creation is a network round trip; the recipient lock held by the
	// caller prevents duplicate creation for the same recipient.
	sess, err := s.backend.CreateSession(ctx, recipient.String())
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.sessions[recipient] = &sessionEntry{session: sess, lastUsed: time.Now()}
	s.mu.Unlock()

	s.eventBus.Publish(domain.NewEvent(domain.EventBackendSessionCreated, "", map[string]string{
		"recipient": recipient.String(),
		"backend":   s.backend.Name(),
	}))
	return sess, nil
}

// InvalidateSession drops the recipient's cached session, if any.
func (s *ConversationService) InvalidateSession(recipient domain.Recipient) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, recipient)
}

// SessionCount returns the number of live backend sessions.
func (s *ConversationService) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// EvictIdleSessions drops sessions unused for longer than ttl and returns
// how many were evicted. History records are untouched; the next message
// from an evicted recipient creates a fresh session.
func (s *ConversationService) EvictIdleSessions(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := time.Now().Add(-ttl)
	evicted := 0
	for recipient, entry := range s.sessions {
		if entry.lastUsed.Before(cutoff) {
			delete(s.sessions, recipient)
			evicted++
		}
	}
	if evicted > 0 {
		logger.InfoCF("conversation", "Evicted idle backend sessions", map[string]interface{}{
			"count": evicted,
			"ttl":   ttl.String(),
		})
	}
	return evicted
}

// ---------------------------------------------------------------------------
// Processed-id set
// ---------------------------------------------------------------------------

// MarkProcessed claims a transport message ID, returning true exactly once
// per ID.
func (s *ConversationService) MarkProcessed(id string) (bool, error) {
	return s.processed.MarkProcessed(id)
}

// ProcessedCount returns the number of processed transport message IDs.
func (s *ConversationService) ProcessedCount() int {
	return s.processed.Count()
}

func (s *ConversationService) publishEvents(c *convdomain.Conversation) {
	for _, event := range c.PullEvents() {
		s.eventBus.Publish(event)
	}
}
