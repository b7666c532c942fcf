// Package persistence provides the durable stores behind the gateway's
// domain interfaces: a JSON file store for conversation records and a SQLite
// store for the processed-message-id set. Everything is reloaded in full at
// startup and written through on every mutation.
package persistence

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/smartkrishi/smsgate/pkg/domain"
	convdomain "github.com/smartkrishi/smsgate/pkg/domain/conversation"
)

// ---------------------------------------------------------------------------
// Generic JSON file store — reusable building block
// ---------------------------------------------------------------------------

// JSONStore provides generic JSON file-based persistence for any
// serializable type. It keeps an in-memory cache and persists to disk on
// every Put/Remove.
type JSONStore[T any] struct {
	baseDir string
	items   map[string]*T
	keyOf   func(*T) string
	mu      sync.RWMutex
}

// NewJSONStore creates a new file-backed store. keyOf extracts the logical
// key from a loaded item; filenames are sanitized and cannot serve as keys
// themselves (phone numbers carry "+").
func NewJSONStore[T any](baseDir string, keyOf func(*T) string) *JSONStore[T] {
	os.MkdirAll(baseDir, 0755)
	return &JSONStore[T]{
		baseDir: baseDir,
		items:   make(map[string]*T),
		keyOf:   keyOf,
	}
}

// Load reads all JSON files from the base directory into memory.
func (s *JSONStore[T]) Load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("read dir %s: %w", s.baseDir, err)
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.baseDir, entry.Name()))
		if err != nil {
			continue
		}

		var item T
		if err := json.Unmarshal(data, &item); err != nil {
			continue
		}

		key := strings.TrimSuffix(entry.Name(), ".json")
		if s.keyOf != nil {
			if k := s.keyOf(&item); k != "" {
				key = k
			}
		}
		s.items[key] = &item
	}

	return nil
}

// Get retrieves an item by key.
func (s *JSONStore[T]) Get(key string) (*T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	item, ok := s.items[key]
	return item, ok
}

// Put saves an item to memory and disk.
func (s *JSONStore[T]) Put(key string, item *T) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items[key] = item

	data, err := json.MarshalIndent(item, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	path := filepath.Join(s.baseDir, fileKey(key)+".json")
	return os.WriteFile(path, data, 0644)
}

// Remove deletes an item from memory and disk.
func (s *JSONStore[T]) Remove(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.items[key]; !ok {
		return false
	}

	delete(s.items, key)
	os.Remove(filepath.Join(s.baseDir, fileKey(key)+".json"))
	return true
}

// All returns all items.
func (s *JSONStore[T]) All() []*T {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*T, 0, len(s.items))
	for _, item := range s.items {
		result = append(result, item)
	}
	return result
}

// Count returns the number of stored items.
func (s *JSONStore[T]) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// fileKey sanitizes a store key for use as a filename. Phone numbers can
// carry "+" and path separators must never leak into the directory layout.
func fileKey(key string) string {
	replacer := strings.NewReplacer("/", "_", "\\", "_", "+", "p")
	return replacer.Replace(key)
}

// ---------------------------------------------------------------------------
// Conversation repository implementation
// ---------------------------------------------------------------------------

// ConversationRepository is the filesystem-backed implementation of
// conversation.Repository. One JSON file per recipient.
type ConversationRepository struct {
	store *JSONStore[convdomain.Conversation]
}

// NewConversationRepository creates a conversation repository rooted at
// baseDir and loads existing records.
func NewConversationRepository(baseDir string) (*ConversationRepository, error) {
	store := NewJSONStore(baseDir, func(c *convdomain.Conversation) string {
		return c.Recipient.String()
	})
	if err := store.Load(); err != nil {
		return nil, err
	}
	return &ConversationRepository{store: store}, nil
}

func (r *ConversationRepository) FindByRecipient(recipient domain.Recipient) (*convdomain.Conversation, error) {
	c, ok := r.store.Get(recipient.String())
	if !ok {
		return nil, convdomain.ErrNotRegistered
	}
	return c, nil
}

func (r *ConversationRepository) FindAll() ([]*convdomain.Conversation, error) {
	return r.store.All(), nil
}

func (r *ConversationRepository) Save(c *convdomain.Conversation) error {
	if c.Recipient.IsZero() {
		return convdomain.ErrEmptyRecipient
	}
	return r.store.Put(c.Recipient.String(), c)
}

func (r *ConversationRepository) Delete(recipient domain.Recipient) error {
	if !r.store.Remove(recipient.String()) {
		return convdomain.ErrNotRegistered
	}
	return nil
}

// Compile-time verification
var _ convdomain.Repository = (*ConversationRepository)(nil)
