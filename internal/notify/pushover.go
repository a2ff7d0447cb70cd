package notify

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/logging"
	"github.com/soyeahso/twin/internal/version"
)

// DefaultPushoverEndpoint is the Pushover message API.
const DefaultPushoverEndpoint = "https://api.pushover.net/1/messages.json"

// Pushover posts messages to the Pushover API.
type Pushover struct {
	endpoint string
	token    string
	user     string
	client   *http.Client
	log      *logging.Logger
}

// NewPushover creates a Pushover notifier.
func NewPushover(cfg config.PushoverConfig, log *logging.Logger) *Pushover {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = DefaultPushoverEndpoint
	}
	return &Pushover{
		endpoint: endpoint,
		token:    cfg.Token,
		user:     cfg.User,
		client:   &http.Client{Timeout: 10 * time.Second},
		log:      log.Sub("notify.pushover"),
	}
}

func (p *Pushover) Name() string { return "pushover" }

// Notify posts the message as a form-encoded request.
func (p *Pushover) Notify(ctx context.Context, message string) error {
	form := url.Values{
		"token":   {p.token},
		"user":    {p.user},
		"message": {message},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("pushover: creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("pushover: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("pushover: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	p.log.Debug().Int("bytes", len(message)).Msg("notification sent")
	return nil
}
