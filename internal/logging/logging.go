/*
Package logging builds the slog handler for an invocation.
*/
package logging

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"pstatefreq/internal/output"

	"github.com/lmittmann/tint"
)

// Settings select where log records go.
type Settings struct {
	Verbosity output.Verbosity
	Color     bool   // colored records on the terminal
	Syslog    bool   // send records to syslog
	File      string // append records to this file
}

// Level returns the minimum level logged for the verbosity.
func (s Settings) Level() slog.Level {
	if s.Verbosity == output.Debug {
		return slog.LevelDebug
	}
	return slog.LevelWarn
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewHandler returns the handler for s and a Closer releasing its resources.
// Syslog takes precedence over a log file, the terminal handler is used when
// neither is configured and discards everything under AllQuiet.
func NewHandler(s Settings, stderr io.Writer) (slog.Handler, io.Closer, error) {
	logOpts := &slog.HandlerOptions{
		Level:     s.Level(),
		AddSource: s.Verbosity == output.Debug,
	}
	switch {
	case s.Syslog:
		handler, err := NewSyslogHandler(logOpts)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to syslog: %w", err)
		}
		return handler, handler, nil
	case s.File != "":
		logFile, err := os.OpenFile(s.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644) // #nosec G302
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return slog.NewTextHandler(logFile, logOpts), logFile, nil
	case s.Verbosity == output.AllQuiet:
		return slog.DiscardHandler, nopCloser{}, nil
	case s.Color:
		return tint.NewHandler(stderr, &tint.Options{
			Level:      logOpts.Level,
			AddSource:  logOpts.AddSource,
			TimeFormat: "15:04:05",
		}), nopCloser{}, nil
	}
	return slog.NewTextHandler(stderr, logOpts), nopCloser{}, nil
}

// Setup installs the handler for s as the default logger.
func Setup(s Settings, stderr io.Writer) (io.Closer, error) {
	handler, closer, err := NewHandler(s, stderr)
	if err != nil {
		return nil, err
	}
	slog.SetDefault(slog.New(handler))
	return closer, nil
}
