// Package agent implements the twin's turn orchestration: prompt assembly,
// the single optional tool round, and the streamed final answer.
package agent

import (
	"context"
	"fmt"
	"time"

	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/llm"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/tracer"
)

// RunnerConfig configures the agent runner.
type RunnerConfig struct {
	Model       string
	MaxTokens   int
	Temperature *float64
}

// Runner answers one user message at a time. It keeps no per-conversation
// state; history is supplied by the caller on every turn, so a single
// Runner serves concurrent conversations.
type Runner struct {
	cfg     RunnerConfig
	client  llm.Client
	persona domain.PersonaContext
	system  string
	tools   *ToolRegistry
	hooks   *hooks.Manager
	log     *logging.Logger
}

// NewRunner creates an agent runner.
func NewRunner(
	cfg RunnerConfig,
	client llm.Client,
	persona domain.PersonaContext,
	tools *ToolRegistry,
	hm *hooks.Manager,
	log *logging.Logger,
) *Runner {
	return &Runner{
		cfg:     cfg,
		client:  client,
		persona: persona,
		system:  BuildSystemPrompt(persona),
		tools:   tools,
		hooks:   hm,
		log:     log.Sub("agent"),
	}
}

// Persona returns the context the twin speaks from.
func (r *Runner) Persona() domain.PersonaContext { return r.persona }

// SystemPrompt returns the prompt sent as the first message of every turn.
func (r *Runner) SystemPrompt() string { return r.system }

// Run starts a turn for message. Everything up to the final answer happens
// before Run returns: the first completion, and when the model asks for
// tools, their dispatch and the opening of the answer stream. Errors in
// those steps are returned directly. The returned Turn yields the answer.
func (r *Runner) Run(ctx context.Context, message string, history []domain.Message) (*Turn, error) {
	start := time.Now()
	ctx, cancel := context.WithCancel(ctx)
	ctx, span := tracer.StartSpan(ctx, "agent.turn")
	span.SetAttributes(tracer.IntAttr("history.len", len(history)))

	fail := func(err error) (*Turn, error) {
		tracer.RecordError(span, err)
		span.End()
		cancel()
		r.log.Error().Err(err).Dur("duration", time.Since(start)).Msg("turn failed")
		r.hooks.EmitAsync(ctx, hooks.EventTurnCompleted, map[string]any{"error": err.Error()})
		return nil, err
	}

	messages := r.buildMessages(message, history)

	r.log.Info().
		Int("historyLen", len(history)).
		Int("messages", len(messages)).
		Msg("processing message")

	resp, err := r.complete(ctx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		Tools:       r.tools.Definitions(),
		ToolChoice:  llm.ToolChoiceAuto,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		return fail(fmt.Errorf("completion: %w", err))
	}

	base := turnInfo{start: start, span: span, cancel: cancel, hooks: r.hooks, log: r.log, ctx: ctx}

	if len(resp.ToolCalls) == 0 {
		span.SetAttributes(tracer.IntAttr("tool.calls", 0))
		return newAnswerTurn(resp.Content, base), nil
	}

	messages, dispatched := r.dispatchTools(ctx, messages, resp)
	span.SetAttributes(
		tracer.IntAttr("tool.calls", len(resp.ToolCalls)),
		tracer.IntAttr("tool.results", dispatched),
	)

	streamCtx, streamSpan := tracer.StartSpan(ctx, "llm.stream")
	ch, err := r.client.Stream(streamCtx, llm.CompletionRequest{
		Model:       r.cfg.Model,
		Messages:    messages,
		MaxTokens:   r.cfg.MaxTokens,
		Temperature: r.cfg.Temperature,
	})
	if err != nil {
		tracer.RecordError(streamSpan, err)
		streamSpan.End()
		return fail(fmt.Errorf("completion stream: %w", err))
	}

	base.toolCalls = len(resp.ToolCalls)
	base.streamSpan = streamSpan
	return newStreamTurn(ch, base), nil
}

// RunStream runs a turn and calls cb with every growing partial answer.
// It returns the final answer; on a mid-stream failure the last partial is
// returned together with the error.
func (r *Runner) RunStream(ctx context.Context, message string, history []domain.Message, cb func(partial string)) (string, error) {
	turn, err := r.Run(ctx, message, history)
	if err != nil {
		return "", err
	}
	defer turn.Close()

	for turn.Next() {
		if cb != nil {
			cb(turn.Partial())
		}
	}
	return turn.Partial(), turn.Err()
}

// buildMessages assembles system prompt, coerced history and the new
// user message. History entries keep only role and content; entries that
// are not user or assistant turns are dropped.
func (r *Runner) buildMessages(message string, history []domain.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: r.system})
	for _, h := range history {
		if !h.IsConversational() {
			continue
		}
		messages = append(messages, llm.Message{Role: h.Role, Content: h.Content})
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})
	return messages
}

func (r *Runner) complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := tracer.StartSpan(ctx, "llm.complete")
	defer span.End()

	resp, err := r.client.Complete(ctx, req)
	if err != nil {
		tracer.RecordError(span, err)
		return nil, err
	}
	span.SetAttributes(
		tracer.StringAttr("llm.model", resp.Model),
		tracer.IntAttr("llm.tool_calls", len(resp.ToolCalls)),
		tracer.IntAttr("llm.input_tokens", resp.Usage.InputTokens),
		tracer.IntAttr("llm.output_tokens", resp.Usage.OutputTokens),
	)
	tracer.SetOK(span)
	return resp, nil
}

// dispatchTools runs the tool round and appends the assistant tool-call
// message plus one tool-result message per known call. Calls to unknown
// tools get no result and are left out of the echoed assistant message,
// so every echoed call id has exactly one result.
func (r *Runner) dispatchTools(ctx context.Context, messages []llm.Message, resp *llm.CompletionResponse) ([]llm.Message, int) {
	r.log.Info().Int("toolCalls", len(resp.ToolCalls)).Msg("executing tool calls")

	var known []llm.ToolCall
	var results []llm.Message
	for _, call := range resp.ToolCalls {
		res, ok := r.tools.Dispatch(ctx, call)
		if !ok {
			continue
		}
		known = append(known, call)
		results = append(results, res.Message())
	}

	if len(known) > 0 || resp.Content != "" {
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   resp.Content,
			ToolCalls: known,
		})
	}
	messages = append(messages, results...)
	return messages, len(results)
}
