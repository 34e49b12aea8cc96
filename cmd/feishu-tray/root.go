package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newRootCommand() *cobra.Command {
	var configFlag string
	var logLevelFlag string
	var outputFlag string

	ctx := newCommandContext(&configFlag, &logLevelFlag, &outputFlag)

	rootCmd := &cobra.Command{
		Use:           "feishu-tray",
		Short:         "Tray companion for the feishu-cli daemon",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if _, err := parseOutputFormat(outputFlag); err != nil {
				return err
			}
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", "", "Configuration file path")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Override the configured log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVarP(&outputFlag, "output", "o", string(outputTable), fmt.Sprintf("Output format (%s)", strings.Join(outputFormatNames(), ", ")))

	rootCmd.AddCommand(newRunCommand(ctx))
	for _, cmd := range newDaemonCommands(ctx) {
		rootCmd.AddCommand(cmd)
	}
	rootCmd.AddCommand(newBotsCommand(ctx))
	rootCmd.AddCommand(newConfigCommand(ctx))
	rootCmd.AddCommand(newDiagnosticsCommand(ctx))
	rootCmd.AddCommand(newUpdateCommand(ctx))
	rootCmd.AddCommand(newInitConfigCommand())

	return rootCmd
}
