/*
Package cpu provides a read-only snapshot of the frequency scaling driver state.
*/
package cpu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"strings"

	"pstatefreq/internal/sysfs"

	mapset "github.com/deckarep/golang-set/v2"
)

const (
	// InvalidBound is recorded for a hardware bound that could not be read.
	InvalidBound = 1
	// InvalidPercent is recorded for a current percentage that could not be read.
	InvalidPercent = 0
	// TurboUnsupported is recorded when the driver has no turbo control.
	TurboUnsupported = -1
)

// Snapshot is the driver state read once per invocation.
type Snapshot struct {
	Driver             string    // scaling driver, e.g. intel_pstate, acpi-cpufreq
	Interface          string    // control interface, sysfs.InterfacePstate or sysfs.InterfaceCpufreq
	InfoMin            int       // lowest achievable frequency, percent of InfoMaxFreq
	InfoMax            int       // highest achievable frequency, percent of InfoMaxFreq
	InfoMinFreq        int       // kHz
	InfoMaxFreq        int       // kHz
	CurMin             int       // percent
	CurMax             int       // percent
	ScalingMinFreq     int       // kHz
	ScalingMaxFreq     int       // kHz
	Governor           string    // current governor
	AvailableGovernors []string  // distinct, in the order the driver reports them
	Turbo              int       // raw turbo flag (0 or 1) or TurboUnsupported
	NumCores           int       // CPUs with frequency scaling
	CoreFrequencies    []float64 // MHz, one per core, filled by RefreshFrequencies
}

// TurboSupported reports whether the driver exposes a turbo control.
func (s Snapshot) TurboSupported() bool {
	return s.Turbo != TurboUnsupported
}

// TurboInverted reports whether a raw turbo flag of 1 disables turbo
// (intel_pstate no_turbo) rather than enabling it (cpufreq boost).
func (s Snapshot) TurboInverted() bool {
	return s.Interface == sysfs.InterfacePstate
}

// TurboEnabled interprets the raw turbo flag according to the driver polarity.
func (s Snapshot) TurboEnabled() bool {
	if !s.TurboSupported() {
		return false
	}
	if s.TurboInverted() {
		return s.Turbo == 0
	}
	return s.Turbo == 1
}

// Sane reports whether the snapshot is consistent enough to modify the driver.
func (s Snapshot) Sane() bool {
	if s.InfoMin == InvalidBound || s.InfoMax == InvalidBound {
		return false
	}
	if s.InfoMin >= s.InfoMax {
		return false
	}
	if s.CurMin == InvalidPercent || s.CurMax == InvalidPercent {
		return false
	}
	return s.Governor != ""
}

// Read queries the store once and returns the resulting snapshot. Values that
// cannot be read are recorded as their invalid sentinels, which makes the
// snapshot not Sane.
func Read(ctx context.Context, r sysfs.Reader) Snapshot {
	s := Snapshot{
		InfoMin: InvalidBound,
		InfoMax: InvalidBound,
		CurMin:  InvalidPercent,
		CurMax:  InvalidPercent,
		Turbo:   TurboUnsupported,
	}
	s.Driver = readString(r, sysfs.Driver)
	s.Interface = readString(r, sysfs.Interface)
	s.Governor = readString(r, sysfs.Governor)
	s.AvailableGovernors = parseGovernors(readString(r, sysfs.AvailableGovernors))
	s.InfoMinFreq = readInt(r, sysfs.InfoMinFreq, 0)
	s.InfoMaxFreq = readInt(r, sysfs.InfoMaxFreq, 0)
	if s.InfoMinFreq > 0 && s.InfoMaxFreq > 0 {
		s.InfoMin = int(math.Round(float64(s.InfoMinFreq) * 100 / float64(s.InfoMaxFreq)))
		s.InfoMax = 100
	}
	s.CurMin = readInt(r, sysfs.MinPercent, InvalidPercent)
	s.CurMax = readInt(r, sysfs.MaxPercent, InvalidPercent)
	s.ScalingMinFreq = readInt(r, sysfs.ScalingMinFreq, 0)
	s.ScalingMaxFreq = readInt(r, sysfs.ScalingMaxFreq, 0)
	s.Turbo = readInt(r, sysfs.Turbo, TurboUnsupported)
	s.NumCores = readInt(r, sysfs.CPUCount, 0)
	slog.DebugContext(ctx, "read cpu snapshot",
		slog.String("driver", s.Driver),
		slog.String("governor", s.Governor),
		slog.Int("infoMin", s.InfoMin),
		slog.Int("infoMax", s.InfoMax),
		slog.Int("curMin", s.CurMin),
		slog.Int("curMax", s.CurMax),
		slog.Int("turbo", s.Turbo),
		slog.Int("cores", s.NumCores))
	return s
}

func readString(r sysfs.Reader, name sysfs.Attribute) string {
	value, err := r.ReadAttribute(name)
	if err != nil {
		slog.Debug("failed to read attribute", slog.String("attribute", string(name)), slog.String("error", err.Error()))
		return ""
	}
	return value
}

func readInt(r sysfs.Reader, name sysfs.Attribute, invalid int) int {
	value := readString(r, name)
	if value == "" {
		return invalid
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		slog.Debug("failed to parse attribute", slog.String("attribute", string(name)), slog.String("value", value))
		return invalid
	}
	return n
}

// parseGovernors splits the driver's governor list, dropping repeated names
// but keeping the reported order.
func parseGovernors(raw string) []string {
	seen := mapset.NewThreadUnsafeSet[string]()
	var governors []string
	for _, governor := range strings.Fields(raw) {
		if seen.Add(governor) {
			governors = append(governors, governor)
		}
	}
	return governors
}
