package cli

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/soyeahso/twin/internal/agent"
	"github.com/soyeahso/twin/internal/domain"
)

func newAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask the twin one question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			a, err := buildApp(ctx, cfg)
			if err != nil {
				return err
			}
			defer closeApp(a)

			_, err = streamAnswer(ctx, cmd.OutOrStdout(), a.runner, strings.Join(args, " "), nil)
			return err
		},
	}
}

// streamAnswer runs one turn and writes the answer to w as it grows.
// Partials are cumulative, so only the new suffix is printed each time.
func streamAnswer(ctx context.Context, w io.Writer, r *agent.Runner, message string, history []domain.Message) (string, error) {
	printed := 0
	answer, err := r.RunStream(ctx, message, history, func(partial string) {
		if len(partial) > printed {
			fmt.Fprint(w, partial[printed:])
			printed = len(partial)
		}
	})
	fmt.Fprintln(w)
	return answer, err
}

func closeApp(a *app) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Close(ctx); err != nil {
		log.Warn().Err(err).Msg("shutdown incomplete")
	}
}
