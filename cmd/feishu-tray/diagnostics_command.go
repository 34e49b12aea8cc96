package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDiagnosticsCommand(ctx *commandContext) *cobra.Command {
	diagCmd := &cobra.Command{
		Use:   "diagnostics",
		Short: "Support bundle utilities",
	}

	diagCmd.AddCommand(&cobra.Command{
		Use:   "export <dest.zip>",
		Short: "Write daemon logs, a sanitized config and system info to a zip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			result, err := svc.exporter.Export(args[0])
			if err != nil {
				return err
			}
			if handled, err := writeStructured(cmd, ctx.output(), result); handled {
				return err
			}
			stdout := cmd.OutOrStdout()
			fmt.Fprintf(stdout, "Wrote diagnostics bundle %s to %s\n", result.BundleID, result.Path)
			for _, entry := range result.Entries {
				fmt.Fprintf(stdout, "  %s\n", entry)
			}
			return nil
		},
	})

	return diagCmd
}
