// Package app holds the application identity and runs one invocation
// against the frequency scaling driver.
package app

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"

	"pstatefreq/internal/cpu"
	"pstatefreq/internal/dispatch"
	"pstatefreq/internal/export"
	"pstatefreq/internal/output"
	"pstatefreq/internal/plan"
	"pstatefreq/internal/policy"
	"pstatefreq/internal/request"
	"pstatefreq/internal/sysfs"
	"pstatefreq/internal/target"
	"pstatefreq/internal/util"
)

// Name is the name of the application executable.
const Name = "pstate-frequency"

var (
	ErrNoRequest        = errors.New("no requests")
	ErrPermissionDenied = errors.New("permissions error, setting values requires root")
)

// Runner carries out a dispatched request.
type Runner struct {
	Store       sysfs.Store
	Power       plan.PowerSource
	Frequencies cpu.FrequencyReader
	Printer     *output.Printer
	Target      target.Target
	ExportFile  string // Prometheus textfile, empty to skip
}

// Run reads the driver state, resolves the request against it and performs
// the requested action.
func (r *Runner) Run(ctx context.Context, req request.UserRequest) error {
	snapshot := cpu.Read(ctx, r.Store)
	if req.Governor != "" {
		governor, err := plan.ResolveGovernor(req.Governor, snapshot.AvailableGovernors)
		if err != nil {
			return fmt.Errorf("failed to set governor: %w", err)
		}
		req.Governor = governor
	}
	if p, ok := req.Plan.Get(); ok {
		template, err := p.Template(snapshot, r.Power)
		if err != nil {
			return fmt.Errorf("failed to set a power plan: %w", err)
		}
		req.ApplyTemplate(template, snapshot.TurboInverted())
	}
	switch req.Action {
	case request.ActionGet:
		return r.get(ctx, snapshot, req.Display)
	case request.ActionSet:
		return r.set(ctx, snapshot, req)
	}
	r.Printer.Help(dispatch.Usage())
	return nil
}

func (r *Runner) get(ctx context.Context, snapshot cpu.Snapshot, display request.DisplayMode) error {
	if display == request.DisplayRealtime {
		if err := snapshot.RefreshFrequencies(ctx, r.Frequencies); err != nil {
			return fmt.Errorf("failed to read core frequencies: %w", err)
		}
		r.Printer.Realtime(snapshot)
	} else {
		r.Printer.Settings(snapshot)
	}
	return r.export(ctx, snapshot)
}

func (r *Runner) set(ctx context.Context, snapshot cpu.Snapshot, req request.UserRequest) error {
	if !r.Target.IsSuperUser() {
		return ErrPermissionDenied
	}
	if !req.HasChanges() {
		return ErrNoRequest
	}
	slog.Info("applying request", slog.String("host", r.Target.GetName()),
		slog.String("min", req.Min.String()),
		slog.String("max", req.Max.String()),
		slog.String("turbo", req.Turbo.String()),
		slog.String("governor", req.Governor))
	_, applyErr := policy.Apply(snapshot, req, r.Store)
	if errors.Is(applyErr, policy.ErrNotSane) {
		return applyErr
	}
	updated := cpu.Read(ctx, r.Store)
	r.Printer.Settings(updated)
	return errors.Join(applyErr, r.export(ctx, updated))
}

func (r *Runner) export(ctx context.Context, snapshot cpu.Snapshot) error {
	if r.ExportFile == "" {
		return nil
	}
	if snapshot.CoreFrequencies == nil && r.Frequencies != nil {
		if err := snapshot.RefreshFrequencies(ctx, r.Frequencies); err != nil {
			slog.Warn("exporting without core frequencies", slog.String("error", err.Error()))
		}
	}
	if err := util.CreateDirectoryIfNotExists(filepath.Dir(r.ExportFile), 0755); err != nil {
		return err
	}
	return export.WriteSnapshot(r.ExportFile, snapshot)
}
