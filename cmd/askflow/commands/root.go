package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command. Without a subcommand it serves.
func NewRootCmd() *cobra.Command {
	var configFile string

	rootCmd := &cobra.Command{
		Use:           "askflow",
		Short:         "Asynchronous semantics preparation and ask service",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(cmd.Context(), configFile)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFile, "conf", "c", "", "config file path (default: search ., /etc/askflow, $HOME/.askflow)")

	rootCmd.AddCommand(
		NewServeCommand(&configFile),
		NewVersionCommand(),
	)
	return rootCmd
}
