package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"

	"feishu-tray/internal/ipc"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 18
	statusIndent     = "  "
)

func renderStatusLine(label string, kind statusKind, message string, colorize bool) string {
	statusText := fmt.Sprintf("[%s]", statusKindLabel(kind))
	if message != "" {
		statusText += " " + message
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	if colorize {
		if color := statusKindColor(kind); color != "" {
			return color + base + ansiReset
		}
	}
	return base
}

func statusKindLabel(kind statusKind) string {
	switch kind {
	case statusOK:
		return "OK"
	case statusWarn:
		return "WARN"
	case statusError:
		return "ERROR"
	default:
		return "INFO"
	}
}

func statusKindColor(kind statusKind) string {
	switch kind {
	case statusOK:
		return ansiGreen
	case statusWarn:
		return ansiYellow
	case statusError:
		return ansiRed
	case statusInfo:
		return ansiBlue
	default:
		return ""
	}
}

func renderSectionHeader(title string, colorize bool) []string {
	line := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(line))
	if colorize {
		line = ansiBlue + line + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	return []string{line, rule}
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// daemonStatusLines summarises a status read. endpointDesc names where the
// daemon was looked for.
func daemonStatusLines(status ipc.GUIStatus, endpointDesc string, colorize bool) []string {
	lines := make([]string, 0, 4+len(status.Warnings))
	if !status.Running {
		lines = append(lines, renderStatusLine("Daemon", statusError, "Not running", colorize))
		if endpointDesc != "" {
			lines = append(lines, renderStatusLine("Endpoint", statusInfo, endpointDesc, colorize))
		}
		return lines
	}
	pid := "unknown"
	if status.DaemonPID != nil {
		pid = strconv.FormatInt(*status.DaemonPID, 10)
	}
	lines = append(lines,
		renderStatusLine("Daemon", statusOK, "Running (pid "+pid+")", colorize),
		renderStatusLine("Active sessions", statusInfo, strconv.FormatInt(status.ActiveSessions, 10), colorize),
	)
	if endpointDesc != "" {
		lines = append(lines, renderStatusLine("Endpoint", statusInfo, endpointDesc, colorize))
	}
	for _, w := range status.Warnings {
		lines = append(lines, renderStatusLine("Bot "+w.BotID, statusWarn, w.Message, colorize))
	}
	return lines
}

func sessionRows(sessions []ipc.Session) [][]string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.SessionID,
			s.CLI,
			s.Status,
			botCell(s.InteractiveBotID, s.InteractiveBotConnected, "connected"),
			botCell(s.PushBotID, s.PushEnabled, "enabled"),
			s.Cwd,
		})
	}
	return rows
}

func botCell(id *string, flag *bool, flagLabel string) string {
	if id == nil || *id == "" {
		return "-"
	}
	if flag == nil {
		return *id
	}
	return fmt.Sprintf("%s (%s: %s)", *id, flagLabel, yesNo(*flag))
}
