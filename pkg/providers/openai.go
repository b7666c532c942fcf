package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// OpenAIBackend talks to the OpenAI chat completions API. The API is
// stateless, so each session carries its own message history client-side and
// replays it on every call.
type OpenAIBackend struct {
	client openai.Client
	model  string
	system string
}

// NewOpenAIBackend creates the OpenAI backend.
func NewOpenAIBackend(apiKey, model, systemPrompt string) (*OpenAIBackend, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIBackend{
		client: openai.NewClient(option.WithAPIKey(apiKey)),
		model:  model,
		system: systemPrompt,
	}, nil
}

func (b *OpenAIBackend) Name() string { return "openai" }

// CreateSession seeds a fresh history with the system preamble.
func (b *OpenAIBackend) CreateSession(ctx context.Context, recipient string) (Session, error) {
	history := make([]openai.ChatCompletionMessageParamUnion, 0, 8)
	if b.system != "" {
		history = append(history, openai.SystemMessage(b.system))
	}
	return &openaiSession{backend: b, history: history}, nil
}

type openaiSession struct {
	backend *OpenAIBackend
	history []openai.ChatCompletionMessageParamUnion
}

func (s *openaiSession) Send(ctx context.Context, text string) (string, error) {
	messages := append(s.history, openai.UserMessage(text))

	resp, err := s.backend.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(s.backend.model),
		Messages: messages,
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrBackendCall, err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrEmptyReply
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", ErrEmptyReply
	}

	// Commit the exchange only after a successful reply so a failed call
	// leaves the history unchanged.
	s.history = append(messages, openai.AssistantMessage(reply))
	return reply, nil
}

// Compile-time verification
var (
	_ Backend = (*OpenAIBackend)(nil)
	_ Session = (*openaiSession)(nil)
)
