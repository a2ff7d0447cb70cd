package llm

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
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *OpenAIClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewOpenAIClient(OpenAIConfig{
		Name:    "test",
		BaseURL: srv.URL + "/v1",
		APIKey:  "secret",
		Model:   "test-model",
	}, silentLog())
}

func decodeRequest(t *testing.T, r *http.Request) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
	return body
}

func TestOpenAICompleteText(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.Contains(t, r.Header.Get("User-Agent"), "twin/")
		got = decodeRequest(t, r)
		io.WriteString(w, `{
			"model": "test-model-001",
			"choices": [{"message": {"role": "assistant", "content": "Hello there"}, "finish_reason": "stop"}],
			"usage": {"prompt_tokens": 12, "completion_tokens": 3}
		}`)
	})

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleSystem, Content: "be nice"},
			{Role: RoleUser, Content: "hi"},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "Hello there", resp.Content)
	assert.Equal(t, "stop", resp.StopReason)
	assert.Equal(t, "test-model-001", resp.Model)
	assert.Equal(t, Usage{InputTokens: 12, OutputTokens: 3}, resp.Usage)
	assert.Empty(t, resp.ToolCalls)

	assert.Equal(t, "test-model", got["model"], "client default model is used")
	assert.NotContains(t, got, "tools")
	assert.NotContains(t, got, "stream")
	assert.Len(t, got["messages"], 2)
}

func TestOpenAICompleteToolCalls(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		io.WriteString(w, `{
			"choices": [{
				"message": {
					"role": "assistant",
					"content": null,
					"tool_calls": [{
						"id": "call_1",
						"type": "function",
						"function": {"name": "record_user_details", "arguments": "{\"email\":\"a@b.co\"}"}
					}]
				},
				"finish_reason": "tool_calls"
			}]
		}`)
	})

	resp, err := client.Complete(context.Background(), CompletionRequest{
		Model:      "override-model",
		Messages:   []Message{{Role: RoleUser, Content: "my email is a@b.co"}},
		Tools:      []ToolDefinition{{Name: "record_user_details", Description: "d", Parameters: json.RawMessage(`{"type":"object"}`)}},
		ToolChoice: ToolChoiceAuto,
	})
	require.NoError(t, err)
	assert.Equal(t, "", resp.Content)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, ToolCall{ID: "call_1", Name: "record_user_details", Arguments: `{"email":"a@b.co"}`}, resp.ToolCalls[0])

	assert.Equal(t, "override-model", got["model"])
	assert.Equal(t, "auto", got["tool_choice"])
	tools := got["tools"].([]any)
	require.Len(t, tools, 1)
	fn := tools[0].(map[string]any)["function"].(map[string]any)
	assert.Equal(t, "record_user_details", fn["name"])
	assert.Equal(t, map[string]any{"type": "object"}, fn["parameters"])
}

func TestOpenAIWireMessages(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		io.WriteString(w, `{"choices":[{"message":{"content":"ok"}}]}`)
	})

	_, err := client.Complete(context.Background(), CompletionRequest{
		Messages: []Message{
			{Role: RoleUser, Content: "q"},
			{Role: RoleAssistant, ToolCalls: []ToolCall{{ID: "c1", Name: "record_unknown_question", Arguments: `{"question":"q"}`}}},
			{Role: RoleTool, ToolCallID: "c1", Content: `{"status":"Question logged for review"}`},
		},
	})
	require.NoError(t, err)

	msgs := got["messages"].([]any)
	require.Len(t, msgs, 3)

	assistant := msgs[1].(map[string]any)
	assert.Nil(t, assistant["content"], "tool-call message without text sends null content")
	calls := assistant["tool_calls"].([]any)
	call := calls[0].(map[string]any)
	assert.Equal(t, "c1", call["id"])
	assert.Equal(t, "function", call["type"])

	tool := msgs[2].(map[string]any)
	assert.Equal(t, "tool", tool["role"])
	assert.Equal(t, "c1", tool["tool_call_id"])
}

func TestOpenAICompleteHTTPError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		io.WriteString(w, `[{"error":{"code":429,"message":"Resource has been exhausted"}}]`)
	})

	_, err := client.Complete(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 429, pe.Code)
	assert.Equal(t, "test", pe.Provider)
	assert.Equal(t, "Resource has been exhausted", pe.Message)
}

func TestOpenAICompleteNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"choices": []}`)
	})

	_, err := client.Complete(context.Background(), CompletionRequest{})
	assert.True(t, errors.Is(err, ErrNoChoices))
}

func TestOpenAICompleteMalformedBody(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `not json`)
	})

	_, err := client.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to parse response")
}

func collect(t *testing.T, ch <-chan StreamEvent) []StreamEvent {
	t.Helper()
	var events []StreamEvent
	for ev := range ch {
		events = append(events, ev)
	}
	return events
}

func TestOpenAIStream(t *testing.T) {
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		got = decodeRequest(t, r)
		w.Header().Set("Content-Type", "text/event-stream")
		for _, piece := range []string{"Hel", "lo", " world"} {
			fmt.Fprintf(w, "data: {\"model\":\"m\",\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", piece)
		}
		io.WriteString(w, ": keep-alive\n\n")
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}]}\n\n")
		io.WriteString(w, "data: [DONE]\n\n")
	})

	ch, err := client.Stream(context.Background(), CompletionRequest{Messages: []Message{{Role: RoleUser, Content: "hi"}}})
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 4)
	var deltas []string
	for _, ev := range events[:3] {
		assert.Equal(t, EventDelta, ev.Type)
		deltas = append(deltas, ev.Content)
	}
	assert.Equal(t, []string{"Hel", "lo", " world"}, deltas)

	done := events[3]
	assert.Equal(t, EventDone, done.Type)
	assert.Equal(t, "Hello world", done.Response.Content)
	assert.Equal(t, "stop", done.Response.StopReason)
	assert.Equal(t, "m", done.Response.Model)

	assert.Equal(t, true, got["stream"])
}

func TestOpenAIStreamStatusError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		io.WriteString(w, `{"error":{"message":"invalid api key"}}`)
	})

	ch, err := client.Stream(context.Background(), CompletionRequest{})
	assert.Nil(t, ch)
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, http.StatusUnauthorized, pe.Code)
	assert.Equal(t, "invalid api key", pe.Message)
}

func TestOpenAIStreamMidStreamError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"partial\"}}]}\n\n")
		io.WriteString(w, "data: {\"error\":{\"message\":\"overloaded\"}}\n\n")
	})

	ch, err := client.Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 2)
	assert.Equal(t, "partial", events[0].Content)
	assert.Equal(t, EventError, events[1].Type)
	assert.Equal(t, "overloaded", events[1].Error)
}

func TestOpenAIStreamCancelledConsumer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		for i := 0; i < 100; i++ {
			io.WriteString(w, "data: {\"choices\":[{\"delta\":{\"content\":\"x\"}}]}\n\n")
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	ch, err := client.Stream(ctx, CompletionRequest{})
	require.NoError(t, err)

	<-ch
	cancel()
	// The producer goroutine must close the channel instead of blocking.
	for range ch {
	}
}

func TestOpenAIStreamOutlivesHeaderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		for i := 0; i < 4; i++ {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\"w%d \"}}]}\n\n", i)
			w.(http.Flusher).Flush()
			time.Sleep(150 * time.Millisecond)
		}
		io.WriteString(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(srv.Close)

	client := NewOpenAIClient(OpenAIConfig{
		BaseURL: srv.URL + "/v1",
		Timeout: 200 * time.Millisecond,
	}, silentLog())
	assert.Zero(t, client.client.Timeout)

	ch, err := client.Stream(context.Background(), CompletionRequest{})
	require.NoError(t, err)

	events := collect(t, ch)
	require.Len(t, events, 5)
	done := events[4]
	assert.Equal(t, EventDone, done.Type)
	assert.Equal(t, "w0 w1 w2 w3 ", done.Response.Content)
}

func TestOpenAIHeaderTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewOpenAIClient(OpenAIConfig{
		BaseURL: srv.URL + "/v1",
		Timeout: 50 * time.Millisecond,
	}, silentLog())

	_, err := client.Complete(context.Background(), CompletionRequest{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "timeout")
}

func TestOpenAIDefaultClientHasNoTimeout(t *testing.T) {
	client := NewOpenAIClient(OpenAIConfig{BaseURL: "http://localhost"}, silentLog())
	assert.Zero(t, client.client.Timeout)
	assert.Nil(t, client.client.Transport)
}

func TestServerSentEventScanner(t *testing.T) {
	input := strings.Join([]string{
		"event: message",
		"data: {\"a\":1}",
		"",
		": comment",
		"data:{\"b\":2}",
		"data: [DONE]",
		"data: {\"c\":3}",
	}, "\n")

	s := newServerSentEventScanner(strings.NewReader(input))
	var got []string
	for s.Scan() {
		got = append(got, s.Data())
	}
	require.NoError(t, s.Err())
	assert.Equal(t, []string{`{"a":1}`, `{"b":2}`}, got)
}

func TestErrorMessageFallback(t *testing.T) {
	assert.Equal(t, "plain failure", errorMessage([]byte(" plain failure \n")))
	assert.Equal(t, "empty error response", errorMessage(nil))
}
