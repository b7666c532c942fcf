package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// maxReplyTokens bounds Claude replies; SMS conversations never need long
// generations.
const maxReplyTokens = 1024

// AnthropicBackend talks to the Anthropic Messages API. Like OpenAI, the API
// is stateless and sessions replay their own history.
type AnthropicBackend struct {
	client anthropic.Client
	model  string
	system string
}

// NewAnthropicBackend creates the Anthropic backend.
func NewAnthropicBackend(apiKey, model, systemPrompt string) (*AnthropicBackend, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = "claude-3-5-haiku-latest"
	}
	return &AnthropicBackend{
		client: anthropic.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		system: systemPrompt,
	}, nil
}

func (b *AnthropicBackend) Name() string { return "anthropic" }

// CreateSession returns a session with empty history; the preamble rides in
// the system field of every request, which is how this API models it.
func (b *AnthropicBackend) CreateSession(ctx context.Context, recipient string) (Session, error) {
	return &anthropicSession{backend: b}, nil
}

type anthropicSession struct {
	backend *AnthropicBackend
	history []anthropic.MessageParam
}

func (s *anthropicSession) Send(ctx context.Context, text string) (string, error) {
	messages := append(s.history, anthropic.NewUserMessage(anthropic.NewTextBlock(text)))

	params := anthropic.MessageNewParams{
		Model:     anthropic.Model(s.backend.model),
		MaxTokens: maxReplyTokens,
		Messages:  messages,
	}
	if s.backend.system != "" {
		params.System = []anthropic.TextBlockParam{
			{Text: s.backend.system},
		}
	}

	resp, err := s.backend.client.Messages.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendCall, err)
	}

	var b strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	reply := strings.TrimSpace(b.String())
	if reply == "" {
		return "", ErrEmptyReply
	}

	s.history = append(messages, anthropic.NewAssistantMessage(anthropic.NewTextBlock(reply)))
	return reply, nil
}

// Compile-time verification
var (
	_ Backend = (*AnthropicBackend)(nil)
	_ Session = (*anthropicSession)(nil)
)
