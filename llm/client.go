// Package llm adapts the OpenAI chat-completions API, on OpenAI or Azure
// OpenAI, to the streaming completer the rag pipeline consumes.
package llm

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/azure"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/packages/ssestream"

	"rag-chat-relay/rag"
)

const (
	ProviderOpenAI = "openai"
	ProviderAzure  = "azure"
)

type Config struct {
	Provider string
	// BaseURL is the Azure resource endpoint for ProviderAzure, or an
	// optional override of the OpenAI API URL.
	BaseURL    string
	APIKey     string
	APIVersion string
	// Model is the model name, or the deployment name on Azure.
	Model string
}

// Client streams chat completions. It never retries.
type Client struct {
	api   openai.Client
	model string
}

func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key is required")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model or deployment name is required")
	}

	opts := []option.RequestOption{option.WithMaxRetries(0)}
	switch cfg.Provider {
	case ProviderAzure:
		if cfg.BaseURL == "" {
			return nil, errors.New("llm: azure endpoint is required")
		}
		opts = append(opts,
			azure.WithEndpoint(cfg.BaseURL, cfg.APIVersion),
			azure.WithAPIKey(cfg.APIKey),
		)
	case ProviderOpenAI, "":
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
		if cfg.BaseURL != "" {
			opts = append(opts, option.WithBaseURL(cfg.BaseURL))
		}
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}

	return &Client{
		api:   openai.NewClient(opts...),
		model: cfg.Model,
	}, nil
}

// Complete starts a streamed completion. A request the service rejects
// outright (bad credentials, unknown deployment) is returned as an error;
// failures after that surface through the stream's Err.
func (c *Client) Complete(ctx context.Context, messages []rag.Message, params rag.CompletionParams) (rag.FragmentStream, error) {
	body := openai.ChatCompletionNewParams{
		Model:       openai.ChatModel(c.model),
		Messages:    toParams(messages),
		Temperature: openai.Float(params.Temperature),
	}
	if params.MaxTokens > 0 {
		body.MaxTokens = openai.Int(int64(params.MaxTokens))
	}

	stream := c.api.Chat.Completions.NewStreaming(ctx, body)
	if err := stream.Err(); err != nil {
		stream.Close()
		return nil, fmt.Errorf("starting completion: %w", err)
	}
	return &deltaStream{stream: stream}, nil
}

func toParams(messages []rag.Message) []openai.ChatCompletionMessageParamUnion {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case rag.RoleSystem:
			out = append(out, openai.SystemMessage(m.Content))
		case rag.RoleAssistant:
			out = append(out, openai.AssistantMessage(m.Content))
		default:
			out = append(out, openai.UserMessage(m.Content))
		}
	}
	return out
}

// deltaStream exposes the first choice's content delta of each chunk.
type deltaStream struct {
	stream *ssestream.Stream[openai.ChatCompletionChunk]
	cur    string
}

func (s *deltaStream) Next() bool {
	if !s.stream.Next() {
		return false
	}
	s.cur = ""
	if chunk := s.stream.Current(); len(chunk.Choices) > 0 {
		s.cur = chunk.Choices[0].Delta.Content
	}
	return true
}

func (s *deltaStream) Current() string { return s.cur }
func (s *deltaStream) Err() error      { return s.stream.Err() }
func (s *deltaStream) Close() error    { return s.stream.Close() }
