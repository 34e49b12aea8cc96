package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"feishu-tray/internal/config"
	"feishu-tray/internal/ipc"
)

// newConfigCommand covers the daemon's configuration document, not this
// program's TOML file.
func newConfigCommand(ctx *commandContext) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Read and write the daemon configuration",
	}

	configCmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Print the daemon configuration document",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			return writeRaw(cmd, ctx.output(), svc.client.GetConfig(cmd.Context()))
		},
	})

	configCmd.AddCommand(&cobra.Command{
		Use:   "save <config.json|->",
		Short: "Replace the daemon configuration document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readJSONArg(cmd.InOrStdin(), args[0])
			if err != nil {
				return err
			}
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "save config", svc.client.SaveConfig(cmd.Context(), doc))
		},
	})

	for _, integration := range []struct {
		name  string
		label string
		check func(*ipc.Client, *cobra.Command) json.RawMessage
		setup func(*ipc.Client, *cobra.Command) ipc.Outcome
	}{
		{
			name:  "codex",
			label: "Codex",
			check: func(c *ipc.Client, cmd *cobra.Command) json.RawMessage { return c.CheckCodexConfig(cmd.Context()) },
			setup: func(c *ipc.Client, cmd *cobra.Command) ipc.Outcome { return c.SetupCodexConfig(cmd.Context()) },
		},
		{
			name:  "claude",
			label: "Claude",
			check: func(c *ipc.Client, cmd *cobra.Command) json.RawMessage { return c.CheckClaudeConfig(cmd.Context()) },
			setup: func(c *ipc.Client, cmd *cobra.Command) ipc.Outcome { return c.SetupClaudeConfig(cmd.Context()) },
		},
	} {
		configCmd.AddCommand(&cobra.Command{
			Use:   "check-" + integration.name,
			Short: fmt.Sprintf("Report whether the %s hook integration is configured", integration.label),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc := ctx.services(ctx.commandLogger())
				return writeRaw(cmd, ctx.output(), integration.check(svc.client, cmd))
			},
		})
		configCmd.AddCommand(&cobra.Command{
			Use:   "setup-" + integration.name,
			Short: fmt.Sprintf("Install the %s hook integration", integration.label),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				svc := ctx.services(ctx.commandLogger())
				return printOutcome(cmd, ctx, "setup "+integration.name, integration.setup(svc.client, cmd))
			},
		})
	}

	return configCmd
}

func newInitConfigCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init-config",
		Short:       "Create a sample feishu-tray configuration file",
		Args:        cobra.NoArgs,
		Annotations: map[string]string{"skipConfigLoad": "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := strings.TrimSpace(targetPath)
			if target == "" {
				defaultPath, err := config.DefaultConfigPath()
				if err != nil {
					return fmt.Errorf("determine default config path: %w", err)
				}
				target = defaultPath
			} else {
				expanded, err := config.ExpandPath(target)
				if err != nil {
					return fmt.Errorf("resolve config path: %w", err)
				}
				target = expanded
			}

			dir := filepath.Dir(target)
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("create config directory %q: %w", dir, err)
			}

			if !overwrite {
				if _, err := os.Stat(target); err == nil {
					return fmt.Errorf("config file already exists at %s (use --overwrite to replace it)", target)
				} else if !os.IsNotExist(err) {
					return fmt.Errorf("check config path: %w", err)
				}
			}

			if err := config.CreateSample(target); err != nil {
				return fmt.Errorf("create sample config: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample configuration to %s\n", target)
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Overwrite existing configuration if present")
	return cmd
}
