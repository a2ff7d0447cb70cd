package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/soyeahso/twin/internal/config"
	"github.com/soyeahso/twin/internal/logging"
)

var (
	cfgFile  string
	logLevel string

	// loaded at init time
	paths     config.Paths
	cfg       config.Config
	cfgErr    error
	log       *logging.Logger
	logCloser io.Closer
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "twin",
		Short: "twin: a portfolio digital twin that answers as you",
		Long: "twin answers visitors' questions about a professional background, speaking as that person.\n" +
			"It grounds every answer in a resume and a knowledge base, records leads and logs questions it cannot answer.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			paths, err = config.ResolvePaths()
			if err != nil {
				return err
			}
			if cfgFile != "" {
				paths.Config = cfgFile
			}

			// Working-directory .env wins over the one in the twin home.
			if err := config.LoadDotEnv(paths.Env, ".env"); err != nil {
				return err
			}

			cfg, cfgErr = config.Load(paths.Config)
			if cfgErr != nil {
				cfg = config.Defaults()
			}

			level := cfg.Logging.Level
			if logLevel != "" {
				level = logLevel
			}
			log, logCloser, err = logging.Open(logging.Options{
				Level: level,
				Style: cfg.Logging.ConsoleStyle,
				File:  cfg.Logging.File,
			})
			return err
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if logCloser != nil {
				return logCloser.Close()
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ~/.twin/config.yaml)")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error, fatal, silent)")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newChatCmd())
	cmd.AddCommand(newAskCmd())
	cmd.AddCommand(newQuestionsCmd())
	cmd.AddCommand(newPromptCmd())
	cmd.AddCommand(newConfigCmd())
	cmd.AddCommand(newStatusCmd())

	return cmd
}

// Execute runs the root command.
func Execute() error {
	return newRootCmd().Execute()
}

// loadConfig returns the config loaded for this invocation, failing when the
// file could not be read or parsed.
func loadConfig() (config.Config, error) {
	return cfg, cfgErr
}
