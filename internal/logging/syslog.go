package logging

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"log/syslog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// syslogWriter is the part of *syslog.Writer the handler uses.
type syslogWriter interface {
	Debug(m string) error
	Info(m string) error
	Warning(m string) error
	Err(m string) error
	Close() error
}

// SyslogHandler is a slog.Handler that logs to syslog.
type SyslogHandler struct {
	writer     syslogWriter
	logLeveler slog.Leveler
	addSource  bool
	attrs      []slog.Attr
	group      string
}

func NewSyslogHandler(logOpts *slog.HandlerOptions) (*SyslogHandler, error) {
	writer, err := syslog.New(syslog.LOG_INFO|syslog.LOG_USER, filepath.Base(os.Args[0]))
	if err != nil {
		return nil, err
	}
	return newSyslogHandler(writer, logOpts), nil
}

func newSyslogHandler(writer syslogWriter, logOpts *slog.HandlerOptions) *SyslogHandler {
	var leveler slog.Leveler = slog.LevelInfo
	if logOpts.Level != nil {
		leveler = logOpts.Level
	}
	return &SyslogHandler{writer: writer, logLeveler: leveler, addSource: logOpts.AddSource}
}

func (h *SyslogHandler) Handle(ctx context.Context, r slog.Record) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "level=%s", r.Level.String())
	if r.PC != 0 && h.addSource {
		fs := runtime.CallersFrames([]uintptr{r.PC})
		f, _ := fs.Next()
		fmt.Fprintf(&sb, " source=%s:%d", filepath.Base(f.File), f.Line)
	}
	fmt.Fprintf(&sb, " msg=%q", r.Message)
	for _, attr := range h.attrs {
		writeAttr(&sb, attr)
	}
	r.Attrs(func(attr slog.Attr) bool {
		writeAttr(&sb, h.qualify(attr))
		return true
	})
	msg := sb.String()
	switch {
	case r.Level < slog.LevelInfo:
		return h.writer.Debug(msg)
	case r.Level < slog.LevelWarn:
		return h.writer.Info(msg)
	case r.Level < slog.LevelError:
		return h.writer.Warning(msg)
	default:
		return h.writer.Err(msg)
	}
}

// qualify prefixes the attribute key with the open group.
func (h *SyslogHandler) qualify(attr slog.Attr) slog.Attr {
	if h.group != "" {
		attr.Key = h.group + "." + attr.Key
	}
	return attr
}

func writeAttr(sb *strings.Builder, attr slog.Attr) {
	fmt.Fprintf(sb, " %s=%q", attr.Key, attr.Value.String())
}

func (h *SyslogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.attrs = append([]slog.Attr{}, h.attrs...)
	for _, attr := range attrs {
		clone.attrs = append(clone.attrs, h.qualify(attr))
	}
	return &clone
}

func (h *SyslogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	if h.group != "" {
		name = h.group + "." + name
	}
	clone.group = name
	return &clone
}

func (h *SyslogHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return level >= h.logLeveler.Level()
}

// Close closes the connection to the syslog daemon.
func (h *SyslogHandler) Close() error {
	return h.writer.Close()
}
