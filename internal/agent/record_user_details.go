package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/soyeahso/twin/internal/domain"
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/notify"
)

// StatusUserDetailsRecorded is the acknowledgment returned to the model.
const StatusUserDetailsRecorded = "User details recorded successfully"

var recordUserDetailsSchema = json.RawMessage(`{
	"type": "object",
	"properties": {
		"email": {"type": "string", "description": "The email address of the user"},
		"name": {"type": "string", "description": "The user's name"},
		"notes": {"type": "string", "description": "Context about why they want to connect"}
	},
	"required": ["email"]
}`)

// RecordUserDetails notifies the owner that a visitor left contact details.
type RecordUserDetails struct {
	notifier notify.Notifier
	hooks    *hooks.Manager
	log      *logging.Logger
}

// NewRecordUserDetails creates the lead-capture tool.
func NewRecordUserDetails(n notify.Notifier, h *hooks.Manager, log *logging.Logger) *RecordUserDetails {
	return &RecordUserDetails{notifier: n, hooks: h, log: log.Sub("agent.tools")}
}

func (t *RecordUserDetails) Name() ToolName { return ToolRecordUserDetails }

func (t *RecordUserDetails) Description() string {
	return "Use this tool to record that a user is interested in being in touch. " +
		"ALWAYS ask for their email if the conversation is going well."
}

func (t *RecordUserDetails) Parameters() json.RawMessage { return recordUserDetailsSchema }

func (t *RecordUserDetails) Execute(ctx context.Context, args json.RawMessage) (string, error) {
	var lead domain.Lead
	if err := json.Unmarshal(args, &lead); err != nil {
		return "", fmt.Errorf("decoding lead: %w", err)
	}
	lead = lead.WithDefaults()

	t.log.Info().Str("email", lead.Email).Str("name", lead.Name).Msg("lead recorded")

	notify.BestEffort(ctx, t.notifier, t.log, lead.Summary())
	t.hooks.EmitAsync(ctx, hooks.EventLeadRecorded, map[string]any{
		"email": lead.Email,
		"name":  lead.Name,
		"notes": lead.Notes,
	})

	return statusContent(StatusUserDetailsRecorded), nil
}
