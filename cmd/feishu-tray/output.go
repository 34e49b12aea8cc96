package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	outputTable outputFormat = "table"
	outputJSON  outputFormat = "json"
	outputYAML  outputFormat = "yaml"
)

func outputFormatNames() []string {
	return []string{string(outputTable), string(outputJSON), string(outputYAML)}
}

func parseOutputFormat(value string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(value))) {
	case "", outputTable:
		return outputTable, nil
	case outputJSON:
		return outputJSON, nil
	case outputYAML:
		return outputYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want %s)", value, strings.Join(outputFormatNames(), ", "))
	}
}

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeYAML(cmd *cobra.Command, v any) error {
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	return enc.Close()
}

// writeStructured handles json and yaml output. It reports false for table
// output so the caller renders its own view.
func writeStructured(cmd *cobra.Command, format outputFormat, v any) (bool, error) {
	switch format {
	case outputJSON:
		return true, writeJSON(cmd, v)
	case outputYAML:
		return true, writeYAML(cmd, v)
	default:
		return false, nil
	}
}

// rawDocument decodes a daemon JSON document so yaml output can render it.
func rawDocument(raw json.RawMessage) any {
	var doc any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return string(raw)
	}
	return doc
}

func writeRaw(cmd *cobra.Command, format outputFormat, raw json.RawMessage) error {
	if format == outputYAML {
		return writeYAML(cmd, rawDocument(raw))
	}
	return writeJSON(cmd, rawDocument(raw))
}

func botTypeLabel(botType string) string {
	return cases.Title(language.English).String(strings.TrimSpace(botType))
}
