/*
Package output renders driver settings, realtime frequencies, help and
diagnostics for the terminal.
*/
package output

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"os"
	"strings"

	"pstatefreq/internal/cpu"

	"golang.org/x/term"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Verbosity selects which messages reach the terminal.
type Verbosity int

const (
	Normal   Verbosity = iota
	Debug              // Normal plus debug logging
	Quiet              // errors only
	AllQuiet           // nothing
)

func (v Verbosity) String() string {
	switch v {
	case Debug:
		return "debug"
	case Quiet:
		return "quiet"
	case AllQuiet:
		return "all-quiet"
	}
	return "normal"
}

// Options configure a Printer.
type Options struct {
	Verbosity Verbosity
	Color     bool
}

// ColorMode is the configured color preference.
type ColorMode string

const (
	ColorNever  ColorMode = "never"
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
)

// ColorEnabled resolves mode against the file the output goes to. Auto
// enables color only when f is a terminal.
func ColorEnabled(mode ColorMode, f *os.File) bool {
	switch mode {
	case ColorAlways:
		return true
	case ColorAuto:
		return f != nil && term.IsTerminal(int(f.Fd()))
	}
	return false
}

const (
	reset        = "\033[0m"
	boldRed      = "\033[1;31m"
	boldGreen    = "\033[1;32m"
	boldBlue     = "\033[1;34m"
	boldMagenta  = "\033[1;35m"
	boldCyan     = "\033[1;36m"
	boldWhite    = "\033[1;37m"
	linePrefix   = "    pstate::"
	usageSummary = "pstate-frequency [verbose] [ACTION] [option(s)]"
)

// HelpEntry is one option line of the help text.
type HelpEntry struct {
	Short      string // single letter, empty for long-only options
	Long       string
	Usage      string
	Privileged bool
}

// HelpGroup is a titled section of the help text.
type HelpGroup struct {
	Title   string
	Entries []HelpEntry
}

// Printer writes human readable output. Regular output goes to Out and is
// suppressed under Quiet and AllQuiet, errors go to Err and are suppressed
// under AllQuiet only.
type Printer struct {
	Out        io.Writer
	Err        io.Writer
	Name       string
	AppVersion string
	opts       Options
	numbers    *message.Printer
}

// NewPrinter creates a Printer for the application name and version.
func NewPrinter(out, errOut io.Writer, opts Options, name, version string) *Printer {
	return &Printer{
		Out:        out,
		Err:        errOut,
		Name:       name,
		AppVersion: version,
		opts:       opts,
		numbers:    message.NewPrinter(language.English), // commas at thousands
	}
}

// Options returns the printer's options.
func (p *Printer) Options() Options {
	return p.opts
}

func (p *Printer) outputCapable() bool {
	return p.opts.Verbosity != Quiet && p.opts.Verbosity != AllQuiet
}

func (p *Printer) color(code string) string {
	if !p.opts.Color {
		return ""
	}
	return code
}

func (p *Printer) line(sb *strings.Builder, label, value string) {
	fmt.Fprintf(sb, "%s%s%s%-15s-> %s%s%s\n",
		p.color(boldWhite), linePrefix, p.color(boldGreen), label, p.color(boldCyan), value, p.color(reset))
}

func (p *Printer) banner(sb *strings.Builder) {
	fmt.Fprintf(sb, "\n%s%s  %s%s%s\n", p.color(boldBlue), p.Name, p.color(boldMagenta), p.AppVersion, p.color(reset))
}

func (p *Printer) gpl(sb *strings.Builder) {
	sb.WriteString(p.Name + " comes with ABSOLUTELY NO WARRANTY.\n")
	sb.WriteString("This is free software, and you are welcome to redistribute it\n")
	sb.WriteString("under certain conditions.\n")
	sb.WriteString("Please see the README for details.\n\n")
}

func (p *Printer) write(sb *strings.Builder) {
	if !p.outputCapable() {
		return
	}
	_, _ = io.WriteString(p.Out, sb.String())
}

// Settings prints the driver's current settings.
func (p *Printer) Settings(s cpu.Snapshot) {
	var sb strings.Builder
	p.banner(&sb)
	p.line(&sb, "CPU_DRIVER", s.Driver)
	p.line(&sb, "CPU_GOVERNOR", s.Governor)
	p.line(&sb, turboLabel(s), turboValue(s))
	p.line(&sb, "CPU_MIN", p.numbers.Sprintf("%d%% : %dKHz", s.CurMin, s.ScalingMinFreq))
	p.line(&sb, "CPU_MAX", p.numbers.Sprintf("%d%% : %dKHz", s.CurMax, s.ScalingMaxFreq))
	p.write(&sb)
}

func turboLabel(s cpu.Snapshot) string {
	if s.TurboInverted() {
		return "NO_TURBO"
	}
	return "TURBO_BOOST"
}

func turboValue(s cpu.Snapshot) string {
	if !s.TurboSupported() {
		return "unsupported"
	}
	state := "OFF"
	if s.TurboEnabled() {
		state = "ON"
	}
	return fmt.Sprintf("%d : %s", s.Turbo, state)
}

// Realtime prints one line per core with its frequency in MHz.
func (p *Printer) Realtime(s cpu.Snapshot) {
	var sb strings.Builder
	p.banner(&sb)
	for i, mhz := range s.CoreFrequencies {
		fmt.Fprintf(&sb, "%s%s%sCPU[%s%d%s]  -> %s%.2fMHz%s\n",
			p.color(boldWhite), linePrefix, p.color(boldGreen), p.color(boldMagenta), i, p.color(boldGreen),
			p.color(boldCyan), mhz, p.color(reset))
	}
	p.write(&sb)
}

// Help prints the warranty notice and the option groups.
func (p *Printer) Help(groups []HelpGroup) {
	var sb strings.Builder
	p.gpl(&sb)
	sb.WriteString("usage:\n" + usageSummary + "\n")
	for i, group := range groups {
		if i > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(group.Title + ":\n")
		for _, privileged := range []bool{false, true} {
			entries := make([]HelpEntry, 0, len(group.Entries))
			for _, entry := range group.Entries {
				if entry.Privileged == privileged {
					entries = append(entries, entry)
				}
			}
			if len(entries) == 0 {
				continue
			}
			if privileged {
				sb.WriteString("    privileged:\n")
			} else {
				sb.WriteString("    unprivileged:\n")
			}
			for _, entry := range entries {
				fmt.Fprintf(&sb, "    %-17s%s\n", entry.flags(), entry.Usage)
			}
		}
	}
	p.write(&sb)
}

func (e HelpEntry) flags() string {
	if e.Short == "" {
		return "--" + e.Long
	}
	return fmt.Sprintf("-%s | --%s", e.Short, e.Long)
}

// Version prints the warranty notice and the version banner.
func (p *Printer) Version() {
	var sb strings.Builder
	p.gpl(&sb)
	p.banner(&sb)
	p.write(&sb)
}

// Error prints err on the diagnostic stream unless all output is suppressed.
func (p *Printer) Error(err error) {
	if err == nil || p.opts.Verbosity == AllQuiet {
		return
	}
	fmt.Fprintf(p.Err, "%s%s%s\n", p.color(boldRed), capitalize(err.Error()), p.color(reset))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
