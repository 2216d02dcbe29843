package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"

	"audioflip/internal/api"
	"audioflip/internal/daemonctl"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 24
	statusIndent     = "  "
)

type severityStyle struct {
	tag   string
	color string
}

var severityStyles = map[daemonctl.Severity]severityStyle{
	daemonctl.SeverityOK:    {tag: "OK", color: ansiGreen},
	daemonctl.SeverityWarn:  {tag: "WARN", color: ansiYellow},
	daemonctl.SeverityError: {tag: "ERROR", color: ansiRed},
	daemonctl.SeverityInfo:  {tag: "INFO", color: ansiBlue},
}

// styleFor falls back to INFO for severities a newer daemon may send.
func styleFor(severity daemonctl.Severity) severityStyle {
	if style, ok := severityStyles[severity]; ok {
		return style
	}
	return severityStyles[daemonctl.SeverityInfo]
}

func renderStatusLine(line daemonctl.StatusLine, colorize bool) string {
	style := styleFor(line.Severity)
	text := "[" + style.tag + "]"
	if line.Detail != "" {
		text += " " + line.Detail
	}
	out := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, line.Label+":", text)
	if colorize {
		return style.color + out + ansiReset
	}
	return out
}

// statusPrinter writes the sectioned `audioflip status` report.
type statusPrinter struct {
	out      io.Writer
	colorize bool
	sections int
}

func newStatusPrinter(out io.Writer) *statusPrinter {
	return &statusPrinter{out: out, colorize: shouldColorize(out)}
}

func (p *statusPrinter) section(title string) {
	if p.sections > 0 {
		fmt.Fprintln(p.out)
	}
	p.sections++
	header := fmt.Sprintf("== %s ==", strings.TrimSpace(title))
	rule := strings.Repeat("-", len(header))
	if p.colorize {
		header = ansiBlue + header + ansiReset
		rule = ansiBlue + rule + ansiReset
	}
	fmt.Fprintln(p.out, header)
	fmt.Fprintln(p.out, rule)
}

func (p *statusPrinter) lines(lines []daemonctl.StatusLine) {
	for _, line := range lines {
		fmt.Fprintln(p.out, renderStatusLine(line, p.colorize))
	}
}

// dependencyStatusLines grades binaries the configured backend may need.
func dependencyStatusLines(deps []api.DependencyStatus) []daemonctl.StatusLine {
	if len(deps) == 0 {
		return []daemonctl.StatusLine{{Label: "Summary", Severity: daemonctl.SeverityInfo, Detail: "No dependency checks configured"}}
	}
	lines := make([]daemonctl.StatusLine, 0, len(deps))
	for _, dep := range deps {
		detail := strings.TrimSpace(dep.Detail)
		switch {
		case dep.Available && detail == "":
			detail = "Ready"
		case !dep.Available && detail == "":
			detail = "not available"
		}
		if !dep.Available && dep.Optional {
			detail += " (optional)"
		}
		lines = append(lines, daemonctl.StatusLine{
			Label:    dep.Name,
			Severity: daemonctl.DependencySeverity(dep),
			Detail:   detail,
		})
	}
	return lines
}

func shouldColorize(writer io.Writer) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
