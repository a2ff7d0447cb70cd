package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/llm"
	"github.com/soyeahso/twin/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show twin status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "twin %s (commit %s)\n\n", version.Version, version.Commit)

			// Show paths
			fmt.Fprintf(out, "Config:    %s\n", paths.Config)
			fmt.Fprintf(out, "Data:      %s\n", paths.Data)
			fmt.Fprintf(out, "Logs:      %s\n", paths.Logs)
			fmt.Fprintln(out)

			cfg, err := loadConfig()
			if err != nil {
				fmt.Fprintf(out, "Config:    error loading: %v\n", err)
				return nil
			}
			if _, err := os.Stat(paths.Config); os.IsNotExist(err) {
				fmt.Fprintln(out, "Config:    not found (using defaults)")
			}

			fmt.Fprintf(out, "Persona:   %s\n", cfg.Persona.Name)
			fmt.Fprintf(out, "Resume:    %s%s\n", cfg.Persona.ResumePath, fileState(cfg.Persona.ResumePath))
			fmt.Fprintf(out, "Knowledge: %s%s\n", cfg.Persona.KnowledgePath, fileState(cfg.Persona.KnowledgePath))

			baseURL := cfg.Model.BaseURL
			if baseURL == "" {
				baseURL = llm.ProviderPresets[cfg.Model.Provider]
			}
			key := "set"
			if cfg.Model.APIKey == "" {
				key = "missing"
			}
			fmt.Fprintf(out, "Model:     provider=%s model=%s endpoint=%s key=%s\n",
				cfg.Model.Provider, cfg.Model.Model, baseURL, key)

			push := "disabled"
			if cfg.Notify.Pushover.Token != "" && cfg.Notify.Pushover.User != "" {
				push = "pushover"
			}
			fmt.Fprintf(out, "Notify:    %s\n", push)
			fmt.Fprintf(out, "Questions: store=%s path=%s\n", cfg.Questions.Store, paths.QuestionsPath(cfg.Questions))
			fmt.Fprintf(out, "Gateway:   port=%d bind=%s origins=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.AllowedOrigins)

			tracing := "off"
			if cfg.Tracing.Enabled {
				tracing = cfg.Tracing.Exporter
			}
			fmt.Fprintf(out, "Tracing:   %s\n", tracing)

			hookCount := 0
			for _, entries := range cfg.Hooks.ByEvent() {
				hookCount += len(entries)
			}
			fmt.Fprintf(out, "Hooks:     %d\n", hookCount)

			// Validation
			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Fprintf(out, "\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}

func fileState(path string) string {
	if path == "" {
		return ""
	}
	if _, err := os.Stat(path); err != nil {
		return " (missing)"
	}
	return ""
}
