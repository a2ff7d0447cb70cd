package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/soyeahso/twin/internal/agent"
	"github.com/soyeahso/twin/internal/persona"
)

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt",
		Short: "Print the system prompt assembled from the persona documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			p, err := persona.Load(cfg.Persona, log)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), agent.BuildSystemPrompt(p))
			return nil
		},
	}
}
