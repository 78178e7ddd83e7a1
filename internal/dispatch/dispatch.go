/*
Package dispatch maps command line options, in the order given, onto a
UserRequest and the invocation options.
*/
package dispatch

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"

	"pstatefreq/internal/output"
	"pstatefreq/internal/plan"
	"pstatefreq/internal/request"

	"github.com/spf13/pflag"
)

// ErrBadOption is returned for unknown options, options missing their
// argument and arguments that cannot be used.
var ErrBadOption = errors.New("bad option")

// Outcome tells the caller how to continue after dispatching.
type Outcome int

const (
	Continue    Outcome = iota
	ShowHelp            // terminal, nothing else is processed
	ShowVersion         // terminal, nothing else is processed
)

func (o Outcome) String() string {
	switch o {
	case ShowHelp:
		return "help"
	case ShowVersion:
		return "version"
	}
	return "continue"
}

// Options are the invocation settings that are not part of the request.
type Options struct {
	Verbosity  output.Verbosity
	Color      bool
	ConfigFile string
	Syslog     bool
	ExportFile string
}

// Result is the state accumulated from the command line.
type Result struct {
	Outcome Outcome
	Request request.UserRequest
	Options Options
	Args    []string // arguments that are not options
}

type handlerFunc func(d *Dispatcher, r *Result, value string) error

// option defines one command line option and its effect.
type option struct {
	name       string
	shorthand  string
	hasArg     bool
	group      string
	privileged bool
	help       string
	handler    handlerFunc
}

const (
	groupVerbose = "verbose"
	groupActions = "actions"
	groupOptions = "options"
)

var errStop = errors.New("stop processing options")

var options = []option{
	{name: "debug", shorthand: "d", group: groupVerbose, help: "Print debugging messages to stderr", handler: setVerbosity(output.Debug)},
	{name: "quiet", shorthand: "q", group: groupVerbose, help: "Suppress all non-error output", handler: setVerbosity(output.Quiet)},
	{name: "all-quiet", shorthand: "a", group: groupVerbose, help: "Suppress all output", handler: setVerbosity(output.AllQuiet)},
	{name: "color", group: groupVerbose, help: "Colorize output", handler: func(_ *Dispatcher, r *Result, _ string) error {
		r.Options.Color = true
		return nil
	}},
	{name: "syslog", group: groupVerbose, help: "Send log messages to syslog", handler: func(_ *Dispatcher, r *Result, _ string) error {
		r.Options.Syslog = true
		return nil
	}},
	{name: "help", shorthand: "H", group: groupActions, help: "Display this help and exit", handler: stop(ShowHelp)},
	{name: "version", shorthand: "V", group: groupActions, help: "Display application version and exit", handler: stop(ShowVersion)},
	{name: "get", shorthand: "G", group: groupActions, help: "Access current CPU values", handler: setAction(request.ActionGet)},
	{name: "set", shorthand: "S", group: groupActions, privileged: true, help: "Modify current CPU values", handler: setAction(request.ActionSet)},
	{name: "current", shorthand: "c", group: groupOptions, help: "Display the current user set CPU values", handler: setDisplay(request.DisplayCurrent)},
	{name: "real", shorthand: "r", group: groupOptions, help: "Display the real time CPU frequencies", handler: setDisplay(request.DisplayRealtime)},
	{name: "config", hasArg: true, group: groupOptions, help: "Read settings from this YAML file", handler: func(_ *Dispatcher, r *Result, value string) error {
		r.Options.ConfigFile = value
		return nil
	}},
	{name: "export", hasArg: true, group: groupOptions, help: "Write the CPU values to a metrics file", handler: func(_ *Dispatcher, r *Result, value string) error {
		r.Options.ExportFile = value
		return nil
	}},
	{name: "plan", shorthand: "p", hasArg: true, group: groupOptions, privileged: true, help: "Set a predefined power plan", handler: setPlan},
	{name: "max", shorthand: "m", hasArg: true, group: groupOptions, privileged: true, help: "Modify current CPU max frequency", handler: setNumber(func(r *request.UserRequest, n int) { r.Max = request.Some(n) })},
	{name: "governor", shorthand: "g", hasArg: true, group: groupOptions, privileged: true, help: "Set the cpufreq governor", handler: func(_ *Dispatcher, r *Result, value string) error {
		if value == "" {
			return fmt.Errorf("%w: empty governor", ErrBadOption)
		}
		// resolved against the driver's governors once the snapshot is read
		r.Request.Governor = value
		return nil
	}},
	{name: "min", shorthand: "n", hasArg: true, group: groupOptions, privileged: true, help: "Modify current CPU min frequency", handler: setNumber(func(r *request.UserRequest, n int) { r.Min = request.Some(n) })},
	{name: "turbo", shorthand: "t", hasArg: true, group: groupOptions, privileged: true, help: "Modify current CPU turbo boost state", handler: setNumber(func(r *request.UserRequest, n int) { r.Turbo = request.Some(n) })},
}

func setVerbosity(v output.Verbosity) handlerFunc {
	return func(_ *Dispatcher, r *Result, _ string) error {
		r.Options.Verbosity = v
		return nil
	}
}

func stop(o Outcome) handlerFunc {
	return func(_ *Dispatcher, r *Result, _ string) error {
		r.Outcome = o
		return errStop
	}
}

func setAction(a request.Action) handlerFunc {
	return func(_ *Dispatcher, r *Result, _ string) error {
		r.Request.Action = a
		return nil
	}
}

func setDisplay(m request.DisplayMode) handlerFunc {
	return func(_ *Dispatcher, r *Result, _ string) error {
		r.Request.Display = m
		return nil
	}
}

func setNumber(assign func(r *request.UserRequest, n int)) handlerFunc {
	return func(_ *Dispatcher, r *Result, value string) error {
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("%w: %q is not a number", ErrBadOption, value)
		}
		assign(&r.Request, n)
		return nil
	}
}

func setPlan(d *Dispatcher, r *Result, value string) error {
	p, err := d.resolver.Resolve(value)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBadOption, err)
	}
	r.Request.Plan = request.Some(p)
	return nil
}

// Dispatcher applies options to a Result.
type Dispatcher struct {
	resolver *plan.Resolver
	handlers map[string]handlerFunc
}

// New creates a Dispatcher that resolves plans with resolver.
func New(resolver *plan.Resolver) *Dispatcher {
	d := &Dispatcher{resolver: resolver, handlers: make(map[string]handlerFunc, len(options))}
	for _, o := range options {
		d.handlers[o.name] = o.handler
	}
	return d
}

func newFlagSet() *pflag.FlagSet {
	flags := pflag.NewFlagSet("pstate-frequency", pflag.ContinueOnError)
	flags.SetOutput(io.Discard)
	flags.SortFlags = false
	for _, o := range options {
		if o.hasArg {
			flags.StringP(o.name, o.shorthand, "", o.help)
		} else {
			flags.BoolP(o.name, o.shorthand, false, o.help)
		}
	}
	return flags
}

// Dispatch processes args in order. Processing stops at the first bad option
// or at help or version, later options have no effect.
func (d *Dispatcher) Dispatch(args []string) (Result, error) {
	var r Result
	flags := newFlagSet()
	err := flags.ParseAll(args, func(flag *pflag.Flag, value string) error {
		slog.Debug("option", slog.String("name", flag.Name), slog.String("value", value))
		return d.handlers[flag.Name](d, &r, value)
	})
	r.Args = flags.Args()
	switch {
	case err == nil:
	case errors.Is(err, errStop):
	case errors.Is(err, ErrBadOption):
		return r, err
	default:
		// unknown option or missing argument
		return r, fmt.Errorf("%w: %w", ErrBadOption, err)
	}
	return r, nil
}

// Usage returns the option help grouped for display.
func Usage() []output.HelpGroup {
	var groups []output.HelpGroup
	index := map[string]int{}
	for _, o := range options {
		i, ok := index[o.group]
		if !ok {
			i = len(groups)
			index[o.group] = i
			groups = append(groups, output.HelpGroup{Title: o.group})
		}
		groups[i].Entries = append(groups[i].Entries, output.HelpEntry{
			Short:      o.shorthand,
			Long:       o.name,
			Usage:      o.help,
			Privileged: o.privileged,
		})
	}
	return groups
}
