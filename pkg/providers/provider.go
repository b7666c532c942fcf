// Package providers implements the conversational backends the relay can
// talk to. A Backend mints one Session per recipient; the session carries
// whatever conversational context the vendor API needs (a server-side chat
// for Gemini, client-side message history for OpenAI and Anthropic).
//
// The system preamble is applied exactly once per session, at creation.
package providers

import (
	"context"

	"github.com/smartkrishi/smsgate/pkg/config"
)

// Backend creates conversational sessions.
type Backend interface {
	// Name identifies the provider ("gemini", "openai", "anthropic").
	Name() string
	// CreateSession mints a fresh session for one recipient, applying the
	// system preamble.
	CreateSession(ctx context.Context, recipient string) (Session, error)
}

// Session is an opaque handle to one recipient's ongoing conversational
// context. Sessions are not safe for concurrent use; callers serialize
// access per recipient.
type Session interface {
	// Send submits one inbound text and returns the reply.
	Send(ctx context.Context, text string) (string, error)
}

// ---------------------------------------------------------------------------
// Errors
// ---------------------------------------------------------------------------

type BackendError string

func (e BackendError) Error() string { return string(e) }

const (
	ErrMissingAPIKey   BackendError = "backend API key not configured"
	ErrUnknownProvider BackendError = "unknown backend provider"
	ErrBackendCall     BackendError = "backend call failed"
	ErrEmptyReply      BackendError = "backend returned an empty reply"
)

// ---------------------------------------------------------------------------
// Factory
// ---------------------------------------------------------------------------

// New builds the Backend selected by cfg.Backend.Provider.
func New(ctx context.Context, cfg *config.Config) (Backend, error) {
	switch cfg.Backend.Provider {
	case "gemini":
		return NewGeminiBackend(ctx, GeminiOptions{
			APIKey:          cfg.Backend.GoogleAPIKey,
			Model:           cfg.Backend.Model,
			SystemPrompt:    cfg.Backend.SystemPrompt,
			EnableGrounding: cfg.Backend.EnableGrounding,
		})
	case "openai":
		return NewOpenAIBackend(cfg.Backend.OpenAIAPIKey, cfg.Backend.Model, cfg.Backend.SystemPrompt)
	case "anthropic":
		return NewAnthropicBackend(cfg.Backend.AnthropicAPIKey, cfg.Backend.Model, cfg.Backend.SystemPrompt)
	default:
		return nil, ErrUnknownProvider
	}
}
