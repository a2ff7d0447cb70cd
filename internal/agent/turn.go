package agent

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/llm"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/tracer"
)

// ErrStreamInterrupted is returned by Turn.Err when the answer stream ended
// without a completion marker.
var ErrStreamInterrupted = errors.New("answer stream interrupted")

// turnInfo carries the bookkeeping shared by both kinds of turn.
type turnInfo struct {
	ctx        context.Context
	start      time.Time
	span       trace.Span
	streamSpan trace.Span
	cancel     context.CancelFunc
	toolCalls  int
	hooks      *hooks.Manager
	log        *logging.Logger
}

// Turn is the answer to one user message: a finite, forward-only sequence
// of growing partial answers. Each partial contains the previous one as a
// prefix. Use it like a scanner:
//
//	for turn.Next() {
//		render(turn.Partial())
//	}
//	if err := turn.Err(); err != nil { ... }
//
// A Turn is not safe for concurrent use.
type Turn struct {
	info turnInfo

	// direct answer
	answer  string
	pending bool

	// streamed answer
	ch  <-chan llm.StreamEvent
	buf strings.Builder

	partial string
	err     error
	done    bool
	once    sync.Once
}

func newAnswerTurn(answer string, info turnInfo) *Turn {
	return &Turn{info: info, answer: answer, pending: true}
}

func newStreamTurn(ch <-chan llm.StreamEvent, info turnInfo) *Turn {
	return &Turn{info: info, ch: ch}
}

// Next advances to the next partial answer. It returns false when the
// answer is complete or the stream failed; check Err afterwards.
func (t *Turn) Next() bool {
	if t.done {
		return false
	}

	if t.ch == nil {
		if t.pending {
			t.pending = false
			t.partial = t.answer
			return true
		}
		t.finish(nil)
		return false
	}

	for ev := range t.ch {
		switch ev.Type {
		case llm.EventDelta:
			if ev.Content == "" {
				continue
			}
			t.buf.WriteString(ev.Content)
			t.partial = t.buf.String()
			return true
		case llm.EventDone:
			t.finish(nil)
			return false
		case llm.EventError:
			t.finish(errors.New(ev.Error))
			return false
		}
	}

	// Channel closed without a done event.
	if err := t.info.ctx.Err(); err != nil {
		t.finish(err)
	} else {
		t.finish(ErrStreamInterrupted)
	}
	return false
}

// Partial returns the answer accumulated so far. After a failure it still
// holds the last partial emitted.
func (t *Turn) Partial() string { return t.partial }

// Err returns the error that ended the sequence, if any.
func (t *Turn) Err() error { return t.err }

// Close releases the turn. Closing before the sequence is exhausted stops
// the underlying stream.
func (t *Turn) Close() {
	if !t.done {
		t.finish(context.Canceled)
	}
}

// Text drains the turn and returns the final answer.
func (t *Turn) Text() (string, error) {
	defer t.Close()
	for t.Next() {
	}
	return t.partial, t.err
}

func (t *Turn) finish(err error) {
	t.once.Do(func() {
		t.done = true
		t.err = err
		info := t.info

		if info.streamSpan != nil {
			if err != nil {
				tracer.RecordError(info.streamSpan, err)
			} else {
				tracer.SetOK(info.streamSpan)
			}
			info.streamSpan.End()
		}
		if info.span != nil {
			if err != nil {
				tracer.RecordError(info.span, err)
			} else {
				tracer.SetOK(info.span)
			}
			info.span.End()
		}
		if info.cancel != nil {
			info.cancel()
		}

		data := map[string]any{
			"toolCalls":  info.toolCalls,
			"answerLen":  len(t.partial),
			"durationMs": time.Since(info.start).Milliseconds(),
		}
		if err != nil {
			data["error"] = err.Error()
			info.log.Warn().Err(err).Int("partialLen", len(t.partial)).Msg("turn ended early")
		} else {
			info.log.Info().
				Int("toolCalls", info.toolCalls).
				Int("answerLen", len(t.partial)).
				Dur("duration", time.Since(info.start)).
				Msg("response generated")
		}
		info.hooks.EmitAsync(info.ctx, hooks.EventTurnCompleted, data)
	})
}
