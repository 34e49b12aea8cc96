package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"feishu-tray/internal/updatecheck"
	"feishu-tray/internal/updatestate"
)

func newUpdateCommand(ctx *commandContext) *cobra.Command {
	updateCmd := &cobra.Command{
		Use:   "update",
		Short: "Release checks",
	}

	var etag string
	checkCmd := &cobra.Command{
		Use:   "check",
		Short: "Check whether a newer daemon release is published",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			store, err := updatestate.Open(svc.cfg.StateDBPath())
			if err != nil {
				return fmt.Errorf("open update state: %w", err)
			}
			defer store.Close()

			result, err := svc.checkForUpdate(cmd.Context(), store, etag)
			if err != nil {
				return err
			}
			if handled, err := writeStructured(cmd, ctx.output(), result); handled {
				return err
			}
			stdout := cmd.OutOrStdout()
			colorize := shouldColorize(stdout)
			switch {
			case result.HasUpdate || result.KnownUpdate:
				fmt.Fprintln(stdout, renderStatusLine("Update", statusWarn, fmt.Sprintf("%s available (current %s)", result.LatestVersion, result.CurrentVersion), colorize))
				if result.ReleaseURL != "" {
					fmt.Fprintln(stdout, renderStatusLine("Release", statusInfo, result.ReleaseURL, colorize))
				}
				if notes := strings.TrimSpace(result.ReleaseNotes); notes != "" {
					fmt.Fprintln(stdout)
					fmt.Fprintln(stdout, notes)
				}
			case result.LatestVersion == "" && result.NotModified:
				fmt.Fprintln(stdout, renderStatusLine("Update", statusInfo, "Release unchanged since last check", colorize))
			default:
				fmt.Fprintln(stdout, renderStatusLine("Update", statusOK, "Up to date ("+result.CurrentVersion+")", colorize))
			}
			return nil
		},
	}
	checkCmd.Flags().StringVar(&etag, "etag", "", "Send this ETag instead of the stored one")
	updateCmd.AddCommand(checkCmd)

	return updateCmd
}

// checkForUpdate runs a check through the state store. An explicit etag
// bypasses the stored one but the result is still recorded.
func (s *services) checkForUpdate(ctx context.Context, store *updatestate.Store, etag string) (updatecheck.Result, error) {
	if strings.TrimSpace(etag) == "" {
		return updatestate.CheckAndRecord(ctx, store, s.checker, s.currentVersion(), time.Now())
	}
	result, err := s.checker.Check(ctx, s.currentVersion(), etag)
	if err != nil {
		return updatecheck.Result{}, err
	}
	if err := store.Record(ctx, result, time.Now()); err != nil {
		return result, fmt.Errorf("record update check: %w", err)
	}
	return result, nil
}
