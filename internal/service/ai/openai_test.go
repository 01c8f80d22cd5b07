package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capturedRequest struct {
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	Stream      bool    `json:"stream"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func newTestClient(t *testing.T, handler http.HandlerFunc) openai.Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return openai.NewClient(
		option.WithAPIKey("sk-test"),
		option.WithBaseURL(srv.URL+"/"),
		option.WithMaxRetries(0),
	)
}

func TestOpenAIChatModelGenerate(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.True(t, strings.HasSuffix(r.URL.Path, "/chat/completions"), r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"cmpl-1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo",
			"choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"Indeed, sir."}}],
			"usage":{"prompt_tokens":12,"completion_tokens":3,"total_tokens":15}}`)
	})

	temp := 0.5
	m := NewOpenAIChatModel(client, OpenAIModelConfig{Temperature: &temp})
	reply, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("You are a classy butler."),
		schema.UserMessage("Good evening"),
		schema.AssistantMessage("Good evening, sir.", nil),
		schema.UserMessage("Tea?"),
	})
	require.NoError(t, err)

	assert.Equal(t, "Indeed, sir.", reply.Content)
	assert.Equal(t, schema.Assistant, reply.Role)
	require.NotNil(t, reply.ResponseMeta)
	assert.Equal(t, 15, reply.ResponseMeta.Usage.TotalTokens)

	assert.Equal(t, "gpt-3.5-turbo", got.Model)
	assert.InDelta(t, 0.5, got.Temperature, 1e-9)
	require.Len(t, got.Messages, 4)
	assert.Equal(t, []string{"system", "user", "assistant", "user"},
		[]string{got.Messages[0].Role, got.Messages[1].Role, got.Messages[2].Role, got.Messages[3].Role})
	assert.Equal(t, "Tea?", got.Messages[3].Content)
}

func TestOpenAIChatModelOptionOverridesModel(t *testing.T) {
	var got capturedRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c","object":"chat.completion","created":1,"model":"gpt-4o","choices":[{"index":0,"finish_reason":"stop","message":{"role":"assistant","content":"ok"}}]}`)
	})

	m := NewOpenAIChatModel(client, OpenAIModelConfig{Model: "gpt-3.5-turbo"})
	_, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")}, model.WithModel("gpt-4o"))
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o", got.Model)
}

func TestOpenAIChatModelNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"id":"c","object":"chat.completion","created":1,"model":"m","choices":[]}`)
	})

	_, err := NewOpenAIChatModel(client, OpenAIModelConfig{}).Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, ErrEmptyCompletion)
}

func TestOpenAIChatModelAPIErrorIsNotRetried(t *testing.T) {
	calls := 0
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"message":"slow down","type":"rate_limit"}}`)
	})

	_, err := NewOpenAIChatModel(client, OpenAIModelConfig{}).Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)

	var apiErr *openai.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusTooManyRequests, apiErr.StatusCode)
	assert.Equal(t, 1, calls)
}

func TestOpenAIChatModelRejectsUnknownRole(t *testing.T) {
	m := NewOpenAIChatModel(openai.NewClient(option.WithAPIKey("sk-test")), OpenAIModelConfig{})
	_, err := m.Generate(context.Background(), []*schema.Message{{Role: schema.Tool, Content: "x"}})
	require.Error(t, err)
}

func TestOpenAIChatModelStream(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		var got capturedRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		require.True(t, got.Stream)

		w.Header().Set("Content-Type", "text/event-stream")
		for _, part := range []string{"Mesa ", "think ", "so!"} {
			fmt.Fprintf(w, "data: {\"id\":\"c\",\"object\":\"chat.completion.chunk\",\"created\":1,\"model\":\"m\",\"choices\":[{\"index\":0,\"delta\":{\"content\":%q}}]}\n\n", part)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	})

	reader, err := NewOpenAIChatModel(client, OpenAIModelConfig{}).Stream(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.NoError(t, err)
	defer reader.Close()

	var chunks []*schema.Message
	for {
		chunk, err := reader.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		chunks = append(chunks, chunk)
	}

	full, err := schema.ConcatMessages(chunks)
	require.NoError(t, err)
	assert.Equal(t, "Mesa think so!", full.Content)
}

func TestBindToolsUnsupported(t *testing.T) {
	m := NewOpenAIChatModel(openai.NewClient(option.WithAPIKey("sk-test")), OpenAIModelConfig{})
	assert.ErrorIs(t, m.BindTools(nil), ErrToolsUnsupported)
}
