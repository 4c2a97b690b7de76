package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/grovetools/compass/pkg/directive"
	"github.com/grovetools/compass/pkg/logging"
)

var parseLog = logging.NewLogger("compass.parse")

// readInput returns the contents of the file named by args[0], or stdin when
// no file (or "-") is given.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to marshal YAML: %w", err)
	}
	return enc.Close()
}

func newParseCmd() *cobra.Command {
	var asYAML bool

	cmd := &cobra.Command{
		Use:   "parse [file|-]",
		Short: "Print the card directives found in chat text",
		Long: `Extracts [type] and [type:key="value",...] directives and prints them as JSON.

Examples:
  compass parse reply.txt
  echo '[focus:headline="Be bold"]' | compass parse`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			directives := directive.Extract(text)
			if directives == nil {
				directives = []directive.Directive{}
			}
			parseLog.WithField("count", len(directives)).Debug("extracted directives")

			if asYAML {
				return writeYAML(cmd.OutOrStdout(), directives)
			}
			return writeJSON(cmd.OutOrStdout(), directives)
		},
	}

	cmd.Flags().BoolVar(&asYAML, "yaml", false, "Output YAML instead of JSON")
	return cmd
}

func newStripCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "strip [file|-]",
		Short: "Print chat text with all directives removed",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), directive.Strip(text))
			return err
		},
	}
}

func newSessionEndCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "session-end [file|-]",
		Short: "Resolve the session-end directive in chat text",
		Long: `Resolves [sessionEnd] (with default title and message) or the legacy
[finish-start]...[finish-end] block and prints the result as JSON.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}

			end := directive.ExtractSessionEnd(text)
			if end.Directives == nil {
				end.Directives = []directive.Directive{}
			}
			parseLog.WithField("found", end.Found()).Debug("resolved session end")
			return writeJSON(cmd.OutOrStdout(), end)
		},
	}
}

func newCardsCmd() *cobra.Command {
	var width int

	cmd := &cobra.Command{
		Use:   "cards [file|-]",
		Short: "Render chat text with its cards as they would appear to the user",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), newRenderer(cmd, width).Text(text))
			return err
		},
	}

	cmd.Flags().IntVar(&width, "width", 0, "Card width in columns (defaults to render.width from config)")
	return cmd
}
