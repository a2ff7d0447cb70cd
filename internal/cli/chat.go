package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/soyeahso/twin/internal/agent"
	"github.com/soyeahso/twin/internal/domain"
)

func newChatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Talk to the twin in the terminal",
		Long:  "Starts an interactive conversation. Type /reset to forget the conversation, /exit to quit.",
		Args:  cobra.NoArgs,
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

			return chatLoop(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), a.runner)
		},
	}
}

// chatLoop reads one message per line and answers it. The conversation
// history is kept here and sent with every turn.
func chatLoop(ctx context.Context, in io.Reader, out io.Writer, r *agent.Runner) error {
	name := r.Persona().Name
	fmt.Fprintf(out, "Chatting with %s. /reset clears the conversation, /exit quits.\n", name)

	var history []domain.Message
	sc := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\nyou> ")
		if !sc.Scan() {
			fmt.Fprintln(out)
			return sc.Err()
		}

		line := strings.TrimSpace(sc.Text())
		switch line {
		case "":
			continue
		case "/exit", "/quit":
			return nil
		case "/reset":
			history = nil
			fmt.Fprintln(out, "(conversation cleared)")
			continue
		}

		fmt.Fprintf(out, "%s> ", name)
		answer, err := streamAnswer(ctx, out, r, line, history)
		if err != nil {
			if errors.Is(err, context.Canceled) && ctx.Err() != nil {
				return nil
			}
			fmt.Fprintf(out, "(error: %v)\n", err)
			continue
		}

		history = append(history,
			domain.Message{Role: domain.RoleUser, Content: line},
			domain.Message{Role: domain.RoleAssistant, Content: answer},
		)
	}
}
