// Package cmd provides the command line interface for the application.
package cmd

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"pstatefreq/internal/app"
	"pstatefreq/internal/config"
	"pstatefreq/internal/cpu"
	"pstatefreq/internal/dispatch"
	"pstatefreq/internal/logging"
	"pstatefreq/internal/output"
	"pstatefreq/internal/plan"
	"pstatefreq/internal/sysfs"
	"pstatefreq/internal/target"

	"github.com/spf13/cobra"
)

var gVersion = "9.9.9" // overwritten by ldflags in Makefile

// rootCmd represents the base command when called without any subcommands.
// Options are handled in order by the dispatcher, not by cobra.
var rootCmd = &cobra.Command{
	Use:                app.Name + " [verbose] [ACTION] [option(s)]",
	Short:              app.Name,
	Long:               fmt.Sprintf(`%s reads and modifies the CPU frequency scaling driver settings.`, app.Name),
	DisableFlagParsing: true,
	SilenceErrors:      true,
	SilenceUsage:       true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd.Context(), args, cmd.OutOrStdout(), cmd.ErrOrStderr(), target.NewLocalTarget())
	},
}

// Execute runs the root command and exits with status 1 on any error.
// This is called by main.main().
func Execute() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

// run performs one invocation. Errors are reported on stderr before they
// are returned.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, host target.Target) error {
	result, err := dispatch.New(plan.NewResolver()).Dispatch(args)
	printer := output.NewPrinter(stdout, stderr, output.Options{Verbosity: result.Options.Verbosity, Color: result.Options.Color}, app.Name, gVersion)
	if err != nil {
		printer.Error(err)
		return err
	}
	switch result.Outcome {
	case dispatch.ShowHelp:
		printer.Help(dispatch.Usage())
		return nil
	case dispatch.ShowVersion:
		printer.Version()
		return nil
	}

	configFile, err := config.Locate(result.Options.ConfigFile)
	if err != nil {
		printer.Error(err)
		return err
	}
	cfg, err := config.Load(configFile)
	if err != nil {
		printer.Error(err)
		return err
	}
	return runWithConfig(ctx, result, cfg, stdout, stderr, host)
}

func runWithConfig(ctx context.Context, result dispatch.Result, cfg config.Config, stdout, stderr io.Writer, host target.Target) error {
	opts := output.Options{
		Verbosity: result.Options.Verbosity,
		Color:     result.Options.Color || output.ColorEnabled(cfg.Color, asFile(stdout)),
	}
	printer := output.NewPrinter(stdout, stderr, opts, app.Name, gVersion)
	closer, err := logging.Setup(logging.Settings{
		Verbosity: opts.Verbosity,
		Color:     opts.Color,
		Syslog:    result.Options.Syslog || cfg.Log.Syslog,
		File:      cfg.Log.File,
	}, stderr)
	if err != nil {
		printer.Error(err)
		return err
	}
	defer func() {
		if err := closer.Close(); err != nil {
			fmt.Fprintf(stderr, "failed to close log: %v\n", err)
		}
	}()
	slog.Debug("starting up", slog.String("app", app.Name), slog.String("version", gVersion), slog.Int("PID", os.Getpid()), slog.String("arguments", strings.Join(os.Args, " ")))
	for _, arg := range result.Args {
		slog.Warn("ignoring argument", slog.String("argument", arg))
	}

	store := sysfs.New(cfg.SysfsRoot)
	var frequencies cpu.FrequencyReader = cpu.SysfsFrequencies{Reader: store}
	if cfg.FrequencySource == config.SourceCPUInfo {
		frequencies = cpu.FallbackFrequencies{cpu.CPUInfoFrequencies{}, frequencies}
	}
	exportFile := cfg.Export
	if result.Options.ExportFile != "" {
		exportFile = result.Options.ExportFile
	}
	runner := &app.Runner{
		Store:       store,
		Power:       store,
		Frequencies: frequencies,
		Printer:     printer,
		Target:      host,
		ExportFile:  exportFile,
	}
	if err := runner.Run(ctx, result.Request); err != nil {
		slog.Debug("invocation failed", slog.String("error", err.Error()))
		printer.Error(err)
		return err
	}
	return nil
}

// asFile returns w when it is an *os.File, nil otherwise.
func asFile(w io.Writer) *os.File {
	f, _ := w.(*os.File)
	return f
}
