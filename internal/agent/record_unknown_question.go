package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/notify"
	"github.com/soyeahso/twin/internal/questions"
)

// StatusQuestionLogged is the acknowledgment returned to the model.
const StatusQuestionLogged = "Question logged for review"

var recordUnknownQuestionSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"question": {"type": "string", "description": "The question you could not answer"}
	},
	"required": ["question"]
}`)

// RecordUnknownQuestion notifies the owner about a question the twin could
// not answer and appends it to the question log.
type RecordUnknownQuestion struct {
	notifier  notify.Notifier
	questions questions.Log
	hooks     *hooks.Manager
	now       func() time.Time
	log       *logging.Logger
}

// NewRecordUnknownQuestion creates the unknown-question tool.
func NewRecordUnknownQuestion(n notify.Notifier, q questions.Log, h *hooks.Manager, log *logging.Logger) *RecordUnknownQuestion {
	return &RecordUnknownQuestion{
		notifier:  n,
		questions: q,
		hooks:     h,
		now:       time.Now,
		log:       log.Sub("agent.tools"),
	}
}

func (t *RecordUnknownQuestion) Name() ToolName { return ToolRecordUnknownQuestion }

func (t *RecordUnknownQuestion) Description() string {
	return "Use this tool if the user asks a specific factual question that is NOT in your context. " +
		"Do not make up facts."
}

func (t *RecordUnknownQuestion) Parameters() json.RawMessage { return recordUnknownQuestionSchema }

func (t *RecordUnknownQuestion) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var in struct {
		Question string `json:"question"`
	}
	if err := json.Unmarshal(args, &in); err != nil {
		return "", fmt.Errorf("decoding question: %w", err)
	}
	q := domain.UnknownQuestion{Timestamp: t.now(), Question: in.Question}

	// Notification and log entry are independent; neither failure undoes the other.
	notify.BestEffort(ctx, t.notifier, t.log, q.Summary())
	questions.BestEffortAppend(ctx, t.questions, t.log, q)

	t.hooks.EmitAsync(ctx, hooks.EventQuestionRecorded, map[string]any{
		"question":  q.Question,
		"timestamp": q.Timestamp.Format(time.RFC3339Nano),
	})

	return statusContent(StatusQuestionLogged), nil
}
