package main

import (
	"io"
	"os"

	"github.com/mattn/go-isatty"

	"fuzzyjoin/internal/manifest"
)

type statusKind int

const (
	statusInfo statusKind = iota
	statusOK
	statusWarn
	statusError
)

type statusStyle struct {
	label string
	color string
}

var statusStyles = map[statusKind]statusStyle{
	statusInfo:  {"INFO", "\x1b[34m"},
	statusOK:    {"OK", "\x1b[32m"},
	statusWarn:  {"WARN", "\x1b[33m"},
	statusError: {"ERROR", "\x1b[31m"},
}

const ansiReset = "\x1b[0m"

// statusCell returns the label for kind, coloured when colorize is set.
func statusCell(kind statusKind, colorize bool) string {
	return paint(statusStyles[kind].label, kind, colorize)
}

// runStatusCell renders a manifest status in the colour of its outcome.
func runStatusCell(status manifest.Status, colorize bool) string {
	kind := statusInfo
	switch status {
	case manifest.StatusCompleted:
		kind = statusOK
	case manifest.StatusFailed:
		kind = statusError
	case manifest.StatusRunning:
		kind = statusWarn
	}
	return paint(string(status), kind, colorize)
}

func checkKind(passed bool) statusKind {
	if passed {
		return statusOK
	}
	return statusError
}

func paint(text string, kind statusKind, colorize bool) string {
	if !colorize {
		return text
	}
	return statusStyles[kind].color + text + ansiReset
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
