package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/grovetools/compass/pkg/logging"
	"github.com/grovetools/compass/pkg/render"
)

var (
	configPath string
	logLevel   string
	noColor    bool

	appConfig = defaultConfig()
)

// NewRootCommand builds the compass command tree.
func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "compass",
		Short: "Parse and render coaching card directives in chat text",
		Long: `compass extracts inline coaching cards such as [focus:headline="..."] and
[sessionEnd] from model-generated chat text, strips them for display, and
manages cached onboarding conversations.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			appConfig = cfg

			level := cfg.LogLevel
			if cmd.Flags().Changed("log-level") {
				level = logLevel
			}
			if err := logging.SetLevel(level); err != nil {
				return fmt.Errorf("invalid log level %q: %w", level, err)
			}

			if !useColor(cmd.OutOrStdout()) {
				color.NoColor = true
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to compass.yml (defaults to the project root, then ~/.config/compass)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "Disable colored output")

	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newStripCmd())
	rootCmd.AddCommand(newSessionEndCmd())
	rootCmd.AddCommand(newCardsCmd())
	rootCmd.AddCommand(newTranscriptCmd())
	rootCmd.AddCommand(newCacheCmd())
	rootCmd.AddCommand(newConfigCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// useColor decides whether output to w is colored: --no-color wins, then the
// config setting, then whether w is a terminal.
func useColor(w io.Writer) bool {
	if noColor {
		return false
	}
	if appConfig.Render.Color != nil {
		return *appConfig.Render.Color
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// newRenderer builds a renderer for the command's output. A width of zero
// uses the configured width.
func newRenderer(cmd *cobra.Command, width int) *render.Renderer {
	if width <= 0 {
		width = appConfig.Render.Width
	}
	out := cmd.OutOrStdout()
	return render.New(out, width, useColor(out))
}
