// Package cli — config.go implements the "git-diff-extract config" command
// group for reading and editing the settings file.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shinji-kodama/git-diff-extract/internal/config"
	"github.com/shinji-kodama/git-diff-extract/internal/model"
)

// NewConfigCommand creates the "config" cobra command and its subcommands.
func NewConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or edit the settings file",
		Long: `Show or edit the settings file.

The file format follows its extension: .json and .jsonc (comments allowed),
.yaml/.yml, or .toml. Saving rewrites the whole file, so comments in a
.jsonc file are lost. A file that cannot be parsed is never overwritten;
fix or delete it first. Keys:
  ` + strings.Join(config.Keys(), "\n  "),
		Args: cobra.NoArgs,
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigShow(cmd.OutOrStdout())
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "get <key>",
		Short: "Print one setting",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigGet(cmd.OutOrStdout(), args[0])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change one setting and save the file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runConfigSet(cmd.OutOrStdout(), args[0], args[1])
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Print the settings file location",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if IsJSONOutput() {
				return printJSON(cmd.OutOrStdout(), map[string]string{"path": settingsPath})
			}
			_, err := fmt.Fprintln(cmd.OutOrStdout(), settingsPath)
			return err
		},
	})

	return cmd
}

func runConfigShow(out io.Writer) error {
	if IsJSONOutput() {
		return printJSON(out, settings)
	}

	var buf strings.Builder
	table := newTable(&buf)
	table.Header(LightBlue("Key"), "Value")
	keys := config.Keys()
	data := make([][]any, 0, len(keys))
	for _, key := range keys {
		value, err := settings.Get(key)
		if err != nil {
			return model.WrapCLIError(model.ExitGeneralError, "failed to read settings", err)
		}
		if value == "" {
			value = Grey("-")
		}
		data = append(data, []any{key, value})
	}
	if err := table.Bulk(data); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render settings", err)
	}
	if err := table.Render(); err != nil {
		return model.WrapCLIError(model.ExitGeneralError, "failed to render settings", err)
	}
	_, err := fmt.Fprint(out, buf.String())
	return err
}

func runConfigGet(out io.Writer, key string) error {
	value, err := settings.Get(key)
	if err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "unknown key", err)
	}
	if IsJSONOutput() {
		return printJSON(out, map[string]string{"key": key, "value": value})
	}
	_, err = fmt.Fprintln(out, value)
	return err
}

func runConfigSet(out io.Writer, key, value string) error {
	// Validate against the loaded settings first so that a bad value never
	// touches the file.
	if err := settings.Set(key, value); err != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid setting", err)
	}

	var setErr error
	err := config.Update(settingsPath, func(s *config.Settings) {
		setErr = s.Set(key, value)
	})
	if setErr != nil {
		return model.WrapCLIError(model.ExitInvalidInput, "invalid setting", setErr)
	}
	if err != nil {
		return model.WrapCLIError(model.ExitOutputError, "failed to save settings", err)
	}

	if IsJSONOutput() {
		return printJSON(out, map[string]string{"key": key, "value": value, "path": settingsPath})
	}
	_, err = fmt.Fprintf(out, "%s = %s (saved to %s)\n", key, value, settingsPath)
	return err
}
