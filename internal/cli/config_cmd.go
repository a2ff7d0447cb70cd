package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/soyeahso/twin/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Get or set values in the twin config file",
	}

	cmd.AddCommand(newConfigGetCmd())
	cmd.AddCommand(newConfigSetCmd())
	cmd.AddCommand(newConfigUnsetCmd())
	cmd.AddCommand(newConfigPathCmd())

	return cmd
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Print a config value (credentials are masked)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return configGet(cmd.OutOrStdout(), paths.Config, args[0])
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a config value after checking the result would load",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return configSet(cmd.OutOrStdout(), paths.Config, args[0], args[1])
		},
	}
}

func newConfigUnsetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Remove a config value so its default applies",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return configUnset(cmd.OutOrStdout(), paths.Config, args[0])
		},
	}
}

func newConfigPathCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the config file path",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), paths.Config)
		},
	}
}

func configGet(w io.Writer, file, key string) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(file)
	if err != nil {
		return err
	}

	val, ok := config.GetValueAtPath(raw, path)
	if !ok {
		return fmt.Errorf("key %q not found", key)
	}
	return printValue(w, config.RedactValue(path, val))
}

func configSet(w io.Writer, file, key, rawValue string) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(file)
	if err != nil {
		return err
	}

	value := parseValue(rawValue)
	config.SetValueAtPath(raw, path, value)
	if err := checkEdit(raw, key); err != nil {
		return err
	}
	if err := config.SaveRaw(file, raw); err != nil {
		return err
	}

	fmt.Fprintf(w, "Set %s = %v\n", key, config.RedactValue(path, value))
	return nil
}

func configUnset(w io.Writer, file, key string) error {
	path, err := config.ParseConfigPath(key)
	if err != nil {
		return err
	}
	raw, err := config.LoadRaw(file)
	if err != nil {
		return err
	}

	if !config.UnsetValueAtPath(raw, path) {
		return fmt.Errorf("key %q not found", key)
	}
	if err := checkEdit(raw, key); err != nil {
		return err
	}
	if err := config.SaveRaw(file, raw); err != nil {
		return err
	}

	fmt.Fprintf(w, "Unset %s\n", key)
	return nil
}

// checkEdit decodes the edited file contents and rejects the edit when it
// breaks decoding or produces validation issues at or below key. Issues
// elsewhere, such as an API key that only arrives at serve time, do not
// block unrelated edits.
func checkEdit(raw map[string]any, key string) error {
	cfg, err := config.FromRaw(raw)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	for _, issue := range config.Validate(&cfg) {
		if issue.Path == key || strings.HasPrefix(issue.Path, key+".") || strings.HasPrefix(issue.Path, key+"[") {
			return fmt.Errorf("invalid value: %s", issue)
		}
	}
	return nil
}

// printValue outputs a value in a human-readable format.
func printValue(w io.Writer, v any) error {
	switch val := v.(type) {
	case string:
		fmt.Fprintln(w, val)
	case map[string]any, []any:
		data, err := yaml.Marshal(val)
		if err != nil {
			return err
		}
		fmt.Fprint(w, string(data))
	default:
		fmt.Fprintln(w, val)
	}
	return nil
}

// parseValue attempts to interpret a string as a typed value.
func parseValue(s string) any {
	lower := strings.ToLower(s)
	if lower == "true" {
		return true
	}
	if lower == "false" {
		return false
	}

	var n int
	if _, err := fmt.Sscanf(s, "%d", &n); err == nil && fmt.Sprintf("%d", n) == s {
		return n
	}

	var f float64
	if _, err := fmt.Sscanf(s, "%f", &f); err == nil {
		return f
	}

	return s
}
