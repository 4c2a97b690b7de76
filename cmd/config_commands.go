package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	var showPath bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long: `Prints the configuration compass is running with as YAML.

compass.yml is read from --config, else the project root (the nearest
directory containing .git), else ~/.config/compass/compass.yml. Missing
files fall back to the defaults.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if showPath {
				path := configPath
				if path == "" {
					found, err := findConfigFile()
					if err != nil {
						return err
					}
					path = found
				}
				if path == "" {
					path = "(defaults)"
				}
				fmt.Fprintln(cmd.OutOrStdout(), path)
				return nil
			}
			return writeYAML(cmd.OutOrStdout(), appConfig)
		},
	}

	cmd.Flags().BoolVar(&showPath, "path", false, "Print the path of the config file in use")
	return cmd
}
