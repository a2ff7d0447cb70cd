package agent

import (
	"github.com/soyeahso/twin/internal/hooks"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/notify"
	"github.com/soyeahso/twin/internal/questions"
)

// ToolDeps are the side-effect sinks the built-in tools write to.
type ToolDeps struct {
	Notifier  notify.Notifier
	Questions questions.Log
	Hooks     *hooks.Manager
}

// NewDefaultToolRegistry registers record_user_details and
// record_unknown_question, in that order.
func NewDefaultToolRegistry(deps ToolDeps, log *logging.Logger) (*ToolRegistry, error) {
	reg := NewToolRegistry(log)
	for _, t := range []Tool{
		NewRecordUserDetails(deps.Notifier, deps.Hooks, log),
		NewRecordUnknownQuestion(deps.Notifier, deps.Questions, deps.Hooks, log),
	} {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return reg, nil
}
