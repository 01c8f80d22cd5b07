package ai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"

	"github.com/zhouzirui/z-salon/backend/internal/config"
	"github.com/zhouzirui/z-salon/backend/internal/metrics"
)

// ErrEmptyReply is returned when the model answers with blank content.
var ErrEmptyReply = errors.New("generation service returned an empty reply")

// Service encapsulates calls to the external generation service.
type Service struct {
	chain   compose.Runnable[[]*schema.Message, *schema.Message]
	metrics *metrics.Metrics
}

// NewService compiles a single-node chain around the chat model.
func NewService(ctx context.Context, chatModel model.BaseChatModel, m *metrics.Metrics) (*Service, error) {
	if chatModel == nil {
		return nil, errors.New("chat model is required")
	}

	chain := compose.NewChain[[]*schema.Message, *schema.Message]()
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chain:   runnable,
		metrics: m,
	}, nil
}

// NewChatModel 根据配置选择模型提供方。openai 需要已加载的凭证。
func NewChatModel(ctx context.Context, cfg config.AIConfig, creds *config.Credentials) (model.BaseChatModel, error) {
	switch cfg.Provider {
	case config.ProviderArk:
		return cfg.NewArkChatModel(ctx)
	case config.ProviderOpenAI, "":
		if creds == nil {
			return nil, fmt.Errorf("openai provider requires credentials from %s", cfg.KeysFile)
		}
		client := cfg.NewOpenAIClient(*creds)
		return NewOpenAIChatModel(client, OpenAIModelConfig{
			Model:       cfg.OpenAIModel,
			Temperature: cfg.Temperature,
			MaxTokens:   cfg.MaxTokens,
		}), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q", cfg.Provider)
	}
}

// Complete sends the full conversation and returns the assistant reply. The
// operation label only feeds logs and metrics.
func (s *Service) Complete(ctx context.Context, operation string, messages []*schema.Message) (*schema.Message, error) {
	started := time.Now()
	reply, err := s.chain.Invoke(ctx, messages)
	if err == nil && (reply == nil || strings.TrimSpace(reply.Content) == "") {
		err = ErrEmptyReply
	}
	s.metrics.ObserveGeneration(operation, started, err)
	if err != nil {
		return nil, fmt.Errorf("failed to run AI chain: %w", err)
	}

	log.Printf("[ai] %s reply generated, turns=%d, length=%d, took=%s", operation, len(messages), len(reply.Content), time.Since(started).Round(time.Millisecond))
	return reply, nil
}

// Stream streams the assistant reply chunks via the compiled chain.
func (s *Service) Stream(ctx context.Context, operation string, messages []*schema.Message) (*schema.StreamReader[*schema.Message], error) {
	started := time.Now()
	stream, err := s.chain.Stream(ctx, messages)
	if err != nil {
		s.metrics.ObserveGeneration(operation, started, err)
		return nil, fmt.Errorf("failed to stream AI chain output: %w", err)
	}
	s.metrics.ObserveGeneration(operation, started, nil)
	return stream, nil
}
