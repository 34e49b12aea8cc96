package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"feishu-tray/internal/diagbundle"
	"feishu-tray/internal/ipc"
)

func newBotsCommand(ctx *commandContext) *cobra.Command {
	botsCmd := &cobra.Command{
		Use:   "bots",
		Short: "Manage the daemon's Feishu bots",
	}

	botsCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List configured bots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			raw := svc.client.ListBots(cmd.Context())
			if ctx.output() != outputTable {
				return writeRaw(cmd, ctx.output(), raw)
			}
			rows, err := botRows(raw)
			if err != nil {
				return err
			}
			stdout := cmd.OutOrStdout()
			if len(rows) == 0 {
				fmt.Fprintln(stdout, "No bots configured")
				return nil
			}
			fmt.Fprint(stdout, renderTable([]string{"Type", "ID", "Name", "Details"}, rows, nil, shouldColorize(stdout)))
			return nil
		},
	})

	botsCmd.AddCommand(&cobra.Command{
		Use:   "save <interactive|push> <config.json|->",
		Short: "Create or update a bot from a JSON document",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, err := readJSONArg(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "save bot", svc.client.SaveBot(cmd.Context(), args[0], doc))
		},
	})

	botsCmd.AddCommand(&cobra.Command{
		Use:   "delete <type> <bot-id>",
		Short: "Delete a bot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "delete bot", svc.client.DeleteBot(cmd.Context(), args[0], args[1]))
		},
	})

	botsCmd.AddCommand(&cobra.Command{
		Use:   "bind <session-id> <type> <bot-id>",
		Short: "Bind a bot to a session",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "bind bot", svc.client.BindBot(cmd.Context(), args[0], args[1], args[2]))
		},
	})

	botsCmd.AddCommand(&cobra.Command{
		Use:   "unbind <session-id> <type>",
		Short: "Remove a session's bot binding",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "unbind bot", svc.client.UnbindBot(cmd.Context(), args[0], args[1]))
		},
	})

	botsCmd.AddCommand(&cobra.Command{
		Use:   "test <type> <bot-id>",
		Short: "Send a test message through a bot",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "test bot", svc.client.TestBot(cmd.Context(), args[0], args[1]))
		},
	})

	botsCmd.AddCommand(&cobra.Command{
		Use:   "activate <bot-id>",
		Short: "Make a bot the active one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			svc := ctx.services(ctx.commandLogger())
			return printOutcome(cmd, ctx, "activate bot", svc.client.ActivateBot(cmd.Context(), args[0]))
		},
	})

	return botsCmd
}

// printOutcome renders a mutating reply. A failed outcome becomes the
// command's error in table mode.
func printOutcome(cmd *cobra.Command, ctx *commandContext, action string, outcome ipc.Outcome) error {
	if handled, err := writeStructured(cmd, ctx.output(), outcome); handled {
		if err != nil {
			return err
		}
		if !outcome.OK {
			return fmt.Errorf("%s: %s", action, outcome.Error)
		}
		return nil
	}
	if !outcome.OK {
		return fmt.Errorf("%s: %s", action, outcome.Error)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s: ok\n", action)
	return nil
}

// readJSONArg reads a JSON document from a file, or stdin for "-".
func readJSONArg(stdin io.Reader, arg string) (json.RawMessage, error) {
	var (
		data []byte
		err  error
	)
	if arg == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(arg)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", arg, err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("%s is not valid JSON", arg)
	}
	return json.RawMessage(data), nil
}

// botRows flattens the bot list document. Secret-looking fields are masked.
func botRows(raw json.RawMessage) ([][]string, error) {
	var doc map[string][]map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("decode bot list: %w", err)
	}
	types := make([]string, 0, len(doc))
	for botType := range doc {
		types = append(types, botType)
	}
	sort.Strings(types)

	var rows [][]string
	for _, botType := range types {
		for _, bot := range doc[botType] {
			masked, _ := diagbundle.Sanitize(bot).(map[string]any)
			rows = append(rows, []string{
				botTypeLabel(botType),
				firstString(masked, "id", "botId"),
				firstString(masked, "name", "botName"),
				botDetails(masked),
			})
		}
	}
	return rows, nil
}

func firstString(m map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return fmt.Sprint(v)
		}
	}
	return ""
}

func botDetails(m map[string]any) string {
	keys := make([]string, 0, len(m))
	for k := range m {
		switch k {
		case "id", "botId", "name", "botName":
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, m[k]))
	}
	return strings.Join(parts, " ")
}
