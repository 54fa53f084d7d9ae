package cmd

import (
	"context"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/stashdrop/stashdrop/pkg/environment"
	"github.com/stashdrop/stashdrop/pkg/logging"
	"github.com/stashdrop/stashdrop/pkg/version"
)

// NewRootCommand returns the launch command. It runs the service until ctx is canceled.
func NewRootCommand(ctx context.Context, fs afero.Fs, env *environment.Environment, logger *logging.Logger) *cobra.Command {
	var debug bool

	rootCmd := &cobra.Command{
		Use:   "stashdrop",
		Short: "Asset launcher service.",
		Long: `Stashdrop downloads catalog assets to a location you pick, or stages them in a private
temp area and places the file itself on the system clipboard, ready to paste.`,
		Version:       version.String(),
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if debug || env.Debug {
				logger.SetLevel(log.DebugLevel)
			}
			return RunService(ctx, fs, env, logger, cmd.OutOrStdout())
		},
	}
	rootCmd.Flags().StringVar(&env.Listen, "listen", env.Listen, "loopback address for the UI bridge")
	rootCmd.Flags().StringVar(&env.CatalogURL, "catalog", env.CatalogURL, "base URL of the catalog service")
	rootCmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")

	return rootCmd
}
