package ai

import (
	"context"
	"errors"
	"fmt"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go/v3"
)

// ErrEmptyCompletion is returned when the API answers without any choice.
var ErrEmptyCompletion = errors.New("completion contained no choices")

// ErrToolsUnsupported is returned by BindTools; none of the flows use tools.
var ErrToolsUnsupported = errors.New("tool binding is not supported")

// OpenAIModelConfig configures OpenAIChatModel.
type OpenAIModelConfig struct {
	Model       string
	Temperature *float64
	MaxTokens   *int
}

// OpenAIChatModel adapts the OpenAI chat completion API to eino's
// model.ChatModel so it can sit in the same chains as the Ark model.
type OpenAIChatModel struct {
	client openai.Client
	cfg    OpenAIModelConfig
}

var _ model.ChatModel = (*OpenAIChatModel)(nil)

// NewOpenAIChatModel wraps an OpenAI client.
func NewOpenAIChatModel(client openai.Client, cfg OpenAIModelConfig) *OpenAIChatModel {
	if cfg.Model == "" {
		cfg.Model = string(openai.ChatModelGPT3_5Turbo)
	}
	return &OpenAIChatModel{client: client, cfg: cfg}
}

// Generate sends the conversation and returns the first choice.
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	params, err := m.buildParams(input, opts...)
	if err != nil {
		return nil, err
	}

	resp, err := m.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("openai chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, ErrEmptyCompletion
	}

	choice := resp.Choices[0]
	msg := schema.AssistantMessage(choice.Message.Content, nil)
	msg.ResponseMeta = &schema.ResponseMeta{
		FinishReason: string(choice.FinishReason),
		Usage: &schema.TokenUsage{
			PromptTokens:     int(resp.Usage.PromptTokens),
			CompletionTokens: int(resp.Usage.CompletionTokens),
			TotalTokens:      int(resp.Usage.TotalTokens),
		},
	}
	return msg, nil
}

// Stream relays completion deltas as assistant message chunks.
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	params, err := m.buildParams(input, opts...)
	if err != nil {
		return nil, err
	}

	stream := m.client.Chat.Completions.NewStreaming(ctx, params)
	reader, writer := schema.Pipe[*schema.Message](8)

	go func() {
		defer writer.Close()
		defer stream.Close()

		for stream.Next() {
			chunk := stream.Current()
			if len(chunk.Choices) == 0 || chunk.Choices[0].Delta.Content == "" {
				continue
			}
			delta := &schema.Message{Role: schema.Assistant, Content: chunk.Choices[0].Delta.Content}
			if closed := writer.Send(delta, nil); closed {
				return
			}
		}
		if err := stream.Err(); err != nil {
			writer.Send(nil, fmt.Errorf("openai chat stream: %w", err))
		}
	}()

	return reader, nil
}

// BindTools is part of model.ChatModel.
func (m *OpenAIChatModel) BindTools(_ []*schema.ToolInfo) error {
	return ErrToolsUnsupported
}

func (m *OpenAIChatModel) buildParams(input []*schema.Message, opts ...model.Option) (openai.ChatCompletionNewParams, error) {
	messages, err := toOpenAIMessages(input)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}

	base := &model.Options{Model: &m.cfg.Model}
	if m.cfg.Temperature != nil {
		val := float32(*m.cfg.Temperature)
		base.Temperature = &val
	}
	if m.cfg.MaxTokens != nil {
		val := *m.cfg.MaxTokens
		base.MaxTokens = &val
	}
	options := model.GetCommonOptions(base, opts...)

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(*options.Model),
		Messages: messages,
	}
	if options.Temperature != nil {
		params.Temperature = openai.Float(float64(*options.Temperature))
	}
	if options.TopP != nil {
		params.TopP = openai.Float(float64(*options.TopP))
	}
	if options.MaxTokens != nil {
		params.MaxTokens = openai.Int(int64(*options.MaxTokens))
	}
	return params, nil
}

func toOpenAIMessages(input []*schema.Message) ([]openai.ChatCompletionMessageParamUnion, error) {
	out := make([]openai.ChatCompletionMessageParamUnion, 0, len(input))
	for i, msg := range input {
		if msg == nil {
			continue
		}
		switch msg.Role {
		case schema.System:
			out = append(out, openai.SystemMessage(msg.Content))
		case schema.User:
			out = append(out, openai.UserMessage(msg.Content))
		case schema.Assistant:
			out = append(out, openai.AssistantMessage(msg.Content))
		default:
			return nil, fmt.Errorf("message %d: unsupported role %q", i, msg.Role)
		}
	}
	return out, nil
}
