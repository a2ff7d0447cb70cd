package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/version"
)

// OpenAIConfig configures an OpenAI-compatible chat completions client.
type OpenAIConfig struct {
	Name    string // provider name reported by Name() and in errors
	BaseURL string // e.g. https://api.openai.com/v1/
	APIKey  string // sent as a Bearer token when non-empty
	Model   string // default model when the request leaves it empty
	// Timeout bounds the wait for response headers. Bodies, including
	// answer streams, are never cut. Zero keeps transport defaults.
	Timeout time.Duration
}

// OpenAIClient is a direct HTTP client for any endpoint speaking the
// OpenAI chat completions protocol.
type OpenAIClient struct {
	cfg    OpenAIConfig
	client *http.Client
	log    *logging.Logger
}

// NewOpenAIClient creates a new OpenAI-compatible client.
func NewOpenAIClient(cfg OpenAIConfig, log *logging.Logger) *OpenAIClient {
	if !strings.HasSuffix(cfg.BaseURL, "/") {
		cfg.BaseURL += "/"
	}
	if cfg.Name == "" {
		cfg.Name = "openai"
	}
	return &OpenAIClient{
		cfg:    cfg,
		client: newHTTPClient(cfg.Timeout),
		log:    log.Sub("llm." + cfg.Name),
	}
}

// newHTTPClient never sets http.Client.Timeout, which would also cover
// reading the streamed body.
func newHTTPClient(headerTimeout time.Duration) *http.Client {
	if headerTimeout <= 0 {
		return &http.Client{}
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.ResponseHeaderTimeout = headerTimeout
	return &http.Client{Transport: transport}
}

// Name returns the provider name.
func (c *OpenAIClient) Name() string {
	return c.cfg.Name
}

// Complete sends a non-streaming completion request.
func (c *OpenAIClient) Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error) {
	start := time.Now()

	resp, err := c.do(ctx, c.buildRequestBody(req, false))
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	var result openAIResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	if result.Error != nil {
		return nil, &ProviderError{Provider: c.cfg.Name, Message: result.Error.Message}
	}
	if len(result.Choices) == 0 {
		return nil, fmt.Errorf("%s: %w", c.cfg.Name, ErrNoChoices)
	}

	out := c.responseToCompletion(&result, time.Since(start))
	c.log.Debug().
		Str("model", out.Model).
		Int("toolCalls", len(out.ToolCalls)).
		Int("inputTokens", out.Usage.InputTokens).
		Int("outputTokens", out.Usage.OutputTokens).
		Dur("duration", out.Duration).
		Msg("completion finished")
	return out, nil
}

// Stream sends a streaming completion request. The HTTP exchange happens
// before returning so connection and status errors surface as err; the
// returned channel then carries deltas and ends with a done or error event.
func (c *OpenAIClient) Stream(ctx context.Context, req CompletionRequest) (<-chan StreamEvent, error) {
	resp, err := c.do(ctx, c.buildRequestBody(req, true))
	if err != nil {
		return nil, err
	}

	eventChan := make(chan StreamEvent)
	go c.readStream(ctx, resp.Body, eventChan)
	return eventChan, nil
}

func (c *OpenAIClient) do(ctx context.Context, body openAIRequest) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("User-Agent", version.UserAgent())
	if c.cfg.APIKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}
	if body.Stream {
		httpReq.Header.Set("Accept", "text/event-stream")
	}

	c.log.Debug().
		Str("model", body.Model).
		Int("messages", len(body.Messages)).
		Int("tools", len(body.Tools)).
		Bool("stream", body.Stream).
		Msg("sending completion request")

	resp, err := c.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%s: request failed: %w", c.cfg.Name, err)
	}
	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		errBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, &ProviderError{
			Provider: c.cfg.Name,
			Code:     resp.StatusCode,
			Message:  errorMessage(errBody),
		}
	}
	return resp, nil
}

func (c *OpenAIClient) readStream(ctx context.Context, body io.ReadCloser, eventChan chan<- StreamEvent) {
	defer close(eventChan)
	defer body.Close()

	send := func(ev StreamEvent) bool {
		select {
		case eventChan <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	scanner := newServerSentEventScanner(body)
	var fullContent strings.Builder
	var model, stopReason string
	var usage Usage

	for scanner.Scan() {
		var chunk openAIStreamChunk
		if err := json.Unmarshal([]byte(scanner.Data()), &chunk); err != nil {
			c.log.Debug().Err(err).Msg("skipping unparseable stream chunk")
			continue
		}
		if chunk.Error != nil {
			send(StreamEvent{Type: EventError, Error: chunk.Error.Message})
			return
		}
		if chunk.Model != "" {
			model = chunk.Model
		}
		if chunk.Usage != nil {
			usage = Usage{InputTokens: chunk.Usage.PromptTokens, OutputTokens: chunk.Usage.CompletionTokens}
		}
		for _, choice := range chunk.Choices {
			if choice.FinishReason != "" {
				stopReason = choice.FinishReason
			}
			if choice.Delta.Content == "" {
				continue
			}
			fullContent.WriteString(choice.Delta.Content)
			if !send(StreamEvent{Type: EventDelta, Content: choice.Delta.Content}) {
				return
			}
		}
	}

	if err := scanner.Err(); err != nil {
		send(StreamEvent{Type: EventError, Error: fmt.Sprintf("stream read failed: %v", err)})
		return
	}
	if err := ctx.Err(); err != nil {
		send(StreamEvent{Type: EventError, Error: err.Error()})
		return
	}

	send(StreamEvent{
		Type: EventDone,
		Response: &CompletionResponse{
			Content:    fullContent.String(),
			StopReason: stopReason,
			Usage:      usage,
			Model:      model,
		},
	})
}

func (c *OpenAIClient) buildRequestBody(req CompletionRequest, stream bool) openAIRequest {
	model := req.Model
	if model == "" {
		model = c.cfg.Model
	}

	body := openAIRequest{
		Model:       model,
		Messages:    make([]openAIMessage, 0, len(req.Messages)),
		Stream:      stream,
		Temperature: req.Temperature,
	}
	if req.MaxTokens > 0 {
		body.MaxTokens = req.MaxTokens
	}

	for _, m := range req.Messages {
		wm := openAIMessage{Role: m.Role, ToolCallID: m.ToolCallID}
		// Assistant tool-call messages may legitimately carry no text.
		if m.Content != "" || len(m.ToolCalls) == 0 {
			content := m.Content
			wm.Content = &content
		}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, openAIToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: openAIFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		body.Messages = append(body.Messages, wm)
	}

	if len(req.Tools) > 0 {
		for _, t := range req.Tools {
			body.Tools = append(body.Tools, openAITool{
				Type: "function",
				Function: openAIFunctionDef{
					Name:        t.Name,
					Description: t.Description,
					Parameters:  t.Parameters,
				},
			})
		}
		body.ToolChoice = req.ToolChoice
	}

	return body
}

func (c *OpenAIClient) responseToCompletion(resp *openAIResponse, duration time.Duration) *CompletionResponse {
	choice := resp.Choices[0]

	out := &CompletionResponse{
		StopReason: choice.FinishReason,
		Model:      resp.Model,
		Duration:   duration,
		Usage: Usage{
			InputTokens:  resp.Usage.PromptTokens,
			OutputTokens: resp.Usage.CompletionTokens,
		},
	}
	if choice.Message.Content != nil {
		out.Content = *choice.Message.Content
	}
	for _, tc := range choice.Message.ToolCalls {
		out.ToolCalls = append(out.ToolCalls, ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}
	if out.Model == "" {
		out.Model = c.cfg.Model
	}
	return out
}

// errorMessage extracts {"error":{"message":...}} from an error body,
// falling back to the raw text. Some endpoints wrap it in a list.
func errorMessage(body []byte) string {
	var single openAIErrorEnvelope
	if err := json.Unmarshal(body, &single); err == nil && single.Error != nil && single.Error.Message != "" {
		return single.Error.Message
	}
	var list []openAIErrorEnvelope
	if err := json.Unmarshal(body, &list); err == nil && len(list) > 0 && list[0].Error != nil {
		return list[0].Error.Message
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = "empty error response"
	}
	return msg
}

// Wire structures

type openAIRequest struct {
	Model       string          `json:"model"`
	Messages    []openAIMessage `json:"messages"`
	Tools       []openAITool    `json:"tools,omitempty"`
	ToolChoice  string          `json:"tool_choice,omitempty"`
	Stream      bool            `json:"stream,omitempty"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
	Temperature *float64        `json:"temperature,omitempty"`
}

type openAIMessage struct {
	Role       string           `json:"role"`
	Content    *string          `json:"content"`
	ToolCalls  []openAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type openAITool struct {
	Type     string            `json:"type"`
	Function openAIFunctionDef `json:"function"`
}

type openAIFunctionDef struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  json.RawMessage `json:"parameters,omitempty"`
}

type openAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function openAIFunctionCall `json:"function"`
}

type openAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type openAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type openAIErrorBody struct {
	Message string `json:"message"`
	Type    string `json:"type,omitempty"`
}

type openAIErrorEnvelope struct {
	Error *openAIErrorBody `json:"error"`
}

type openAIResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage openAIUsage      `json:"usage"`
	Error *openAIErrorBody `json:"error,omitempty"`
}

type openAIStreamChunk struct {
	Model   string `json:"model"`
	Choices []struct {
		Delta struct {
			Content string `json:"content"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage *openAIUsage     `json:"usage,omitempty"`
	Error *openAIErrorBody `json:"error,omitempty"`
}
