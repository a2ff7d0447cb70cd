package hooks

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/soyeahso/twin/internal/config"
)

// DefaultCommandTimeout bounds a command hook when its entry sets no timeout.
const DefaultCommandTimeout = 10 * time.Second

// configEvents maps config field names to event names.
var configEvents = map[string]string{
	"leadRecorded":     EventLeadRecorded,
	"questionRecorded": EventQuestionRecorded,
	"turnCompleted":    EventTurnCompleted,
	"gatewayStart":     EventGatewayStart,
	"gatewayStop":      EventGatewayStop,
}

// CommandHandler runs entry.Command through the shell with the JSON-encoded
// payload on stdin. TWIN_HOOK_EVENT carries the event name.
func CommandHandler(entry config.HookEntry) Handler {
	timeout := DefaultCommandTimeout
	if entry.Timeout > 0 {
		timeout = time.Duration(entry.Timeout) * time.Millisecond
	}

	return func(ctx context.Context, p Payload) error {
		input, err := json.Marshal(p)
		if err != nil {
			return fmt.Errorf("encoding hook payload: %w", err)
		}

		ctx, cancel := context.WithTimeout(ctx, timeout)
		defer cancel()

		cmd := exec.CommandContext(ctx, "sh", "-c", entry.Command)
		cmd.Stdin = bytes.NewReader(input)
		cmd.Env = append(os.Environ(), "TWIN_HOOK_EVENT="+p.Event)
		var stderr bytes.Buffer
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			if ctx.Err() == context.DeadlineExceeded {
				return fmt.Errorf("hook %q timed out after %s", entry.Command, timeout)
			}
			if msg := strings.TrimSpace(stderr.String()); msg != "" {
				return fmt.Errorf("hook %q: %w: %s", entry.Command, err, msg)
			}
			return fmt.Errorf("hook %q: %w", entry.Command, err)
		}
		return nil
	}
}

// RegisterCommands registers a command handler for every configured hook
// entry and returns how many were added.
func (m *Manager) RegisterCommands(cfg config.HooksConfig) int {
	n := 0
	for field, entries := range cfg.ByEvent() {
		event, ok := configEvents[field]
		if !ok {
			continue
		}
		for i, entry := range entries {
			if entry.Command == "" {
				continue
			}
			m.On(event, fmt.Sprintf("command:%s[%d]", field, i), CommandHandler(entry))
			n++
		}
	}
	return n
}
