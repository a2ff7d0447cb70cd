// Package notify delivers short operator notifications (new leads, unanswered
// questions) to an out-of-band push service.
package notify

import (
	"context"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/logging"
)

// Notifier sends a single text notification.
type Notifier interface {
	Notify(ctx context.Context, message string) error
	Name() string
}

// Nop discards notifications. It is used when no push credentials are set.
type Nop struct{}

func (Nop) Notify(context.Context, string) error { return nil }
func (Nop) Name() string                         { return "nop" }

// New returns a Pushover notifier when credentials are configured and Nop otherwise.
func New(cfg config.NotifyConfig, log *logging.Logger) Notifier {
	p := cfg.Pushover
	if p.Token == "" || p.User == "" {
		log.Sub("notify").Warn().Msg("pushover credentials not configured, notifications disabled")
		return Nop{}
	}
	return NewPushover(p, log)
}

// BestEffort sends message and logs any failure instead of returning it.
// Callers use it where delivery must never affect the outcome.
func BestEffort(ctx context.Context, n Notifier, log *logging.Logger, message string) {
	if n == nil {
		return
	}
	if err := n.Notify(ctx, message); err != nil {
		log.Warn().Err(err).Str("notifier", n.Name()).Msg("notification failed")
	}
}
