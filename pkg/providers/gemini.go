package providers

import (
	"context"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/smartkrishi/smsgate/pkg/logger"
)

// GeminiOptions configures the Gemini backend.
type GeminiOptions struct {
	APIKey          string
	Model           string
	SystemPrompt    string
	EnableGrounding bool
}

// GeminiBackend talks to the Gemini API. Sessions map onto server-side chat
// objects, so conversational context lives with the vendor. Optionally the
// Google Search grounding tool is attached to every generation.
type GeminiBackend struct {
	client    *genai.Client
	model     string
	system    string
	grounding bool
}

// NewGeminiBackend creates the Gemini backend.
func NewGeminiBackend(ctx context.Context, opts GeminiOptions) (*GeminiBackend, error) {
	if opts.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: opts.APIKey,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini client: %v", ErrBackendCall, err)
	}

	model := opts.Model
	if model == "" {
		model = "gemini-2.5-flash"
	}

	return &GeminiBackend{
		client:    client,
		model:     model,
		system:    opts.SystemPrompt,
		grounding: opts.EnableGrounding,
	}, nil
}

func (b *GeminiBackend) Name() string { return "gemini" }

// CreateSession starts a chat and replays the system preamble once.
func (b *GeminiBackend) CreateSession(ctx context.Context, recipient string) (Session, error) {
	var cfg *genai.GenerateContentConfig
	if b.grounding {
		cfg = &genai.GenerateContentConfig{
			Tools: []*genai.Tool{
				{GoogleSearch: &genai.GoogleSearch{}},
			},
		}
	}

	chat, err := b.client.Chats.Create(ctx, b.model, cfg, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: create gemini chat for %s: %v", ErrBackendCall, recipient, err)
	}

	if b.system != "" {
		if _, err := chat.SendMessage(ctx, genai.Part{Text: b.system}); err != nil {
			return nil, fmt.Errorf("%w: send preamble for %s: %v", ErrBackendCall, recipient, err)
		}
	}

	logger.DebugCF("backend", "Gemini chat created", map[string]interface{}{
		"recipient": recipient,
		"model":     b.model,
		"grounding": b.grounding,
	})

	return &geminiSession{chat: chat}, nil
}

type geminiSession struct {
	chat *genai.Chat
}

func (s *geminiSession) Send(ctx context.Context, text string) (string, error) {
	resp, err := s.chat.SendMessage(ctx, genai.Part{Text: text})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendCall, err)
	}

	reply := strings.TrimSpace(resp.Text())
	if reply == "" {
		return "", ErrEmptyReply
	}
	return reply, nil
}

// Compile-time verification
var (
	_ Backend = (*GeminiBackend)(nil)
	_ Session = (*geminiSession)(nil)
)
