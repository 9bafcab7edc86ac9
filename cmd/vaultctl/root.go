package main

import (
	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var (
		addrFlag   string
		callerFlag string
		jsonFlag   bool
	)

	ctx := newCommandContext(&addrFlag, &callerFlag, &jsonFlag)

	rootCmd := &cobra.Command{
		Use:           "vaultctl",
		Short:         "Query and operate a titlevault server",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&addrFlag, "addr", "", "titlevault server address (default $TITLEVAULT_ADDR or http://localhost:8095)")
	rootCmd.PersistentFlags().StringVar(&callerFlag, "caller", "", "Caller id sent as X-Caller-ID (default $TITLEVAULT_CALLER)")
	rootCmd.PersistentFlags().BoolVar(&jsonFlag, "json", false, "Print raw JSON instead of tables")

	rootCmd.AddCommand(newSearchCommand(ctx))
	rootCmd.AddCommand(newEnrichCommand(ctx))
	rootCmd.AddCommand(newProvidersCommand(ctx))
	rootCmd.AddCommand(newCacheCommand(ctx))

	return rootCmd
}
