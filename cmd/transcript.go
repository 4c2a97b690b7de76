package cmd

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/grovetools/compass/pkg/chat"
	"github.com/grovetools/compass/pkg/directive"
)

func newTranscriptCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "transcript <file>",
		Short: "Show a chat transcript with its cards resolved",
		Long: `Parses a markdown chat notebook and renders each turn. Coach turns are
shown as display text followed by their cards.

The notebook may start with YAML frontmatter (title, user, session). Cells
are separated by a line containing only "---"; a cell whose first line is
"## Coach" is a coach turn.

Example:
  compass transcript onboarding.md
  compass transcript onboarding.md --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read transcript: %w", err)
			}

			transcript, err := chat.ParseTranscript(data)
			if err != nil {
				return fmt.Errorf("parse transcript %s: %w", args[0], err)
			}

			if jsonOutput {
				return writeJSON(cmd.OutOrStdout(), transcript)
			}
			return printTranscript(cmd, transcript)
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output the parsed transcript as JSON")
	return cmd
}

func printTranscript(cmd *cobra.Command, transcript *chat.Transcript) error {
	out := cmd.OutOrStdout()
	r := newRenderer(cmd, 0)

	if transcript.Meta.Title != "" {
		fmt.Fprintf(out, "Transcript: %s\n", color.CyanString(transcript.Meta.Title))
	}
	if transcript.Meta.User != "" {
		fmt.Fprintf(out, "User: %s\n", transcript.Meta.User)
	}
	fmt.Fprintln(out)

	for _, turn := range transcript.Turns {
		fmt.Fprintln(out, r.Turn(turn))
		fmt.Fprintln(out)
	}

	counts := make(map[directive.Kind]int)
	for _, card := range transcript.Cards() {
		counts[card.Kind()]++
	}

	fmt.Fprintf(out, "Turns: %d, cards: %d\n", len(transcript.Turns), len(transcript.Cards()))
	if transcript.Completed() {
		fmt.Fprintf(out, "%s Session complete\n", color.GreenString("✓"))
	} else {
		fmt.Fprintf(out, "%s Session in progress\n", color.YellowString("…"))
	}
	if counts[directive.KindUnknown] > 0 {
		fmt.Fprintf(out, "%s %d card(s) of unknown type\n", color.YellowString("!"), counts[directive.KindUnknown])
	}
	return nil
}
