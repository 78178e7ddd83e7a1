package cpu

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pstatefreq/internal/sysfs"

	gopsutil "github.com/shirou/gopsutil/v4/cpu"
)

// FrequencyReader returns the instantaneous frequency of every core in MHz.
type FrequencyReader interface {
	CoreFrequencies(ctx context.Context) ([]float64, error)
}

// SysfsFrequencies reads scaling_cur_freq of every CPU.
type SysfsFrequencies struct {
	Reader sysfs.Reader
}

func (f SysfsFrequencies) CoreFrequencies(ctx context.Context) ([]float64, error) {
	raw, err := f.Reader.ReadAttribute(sysfs.CoreFrequencies)
	if err != nil {
		return nil, err
	}
	var freqs []float64
	for field := range strings.FieldsSeq(raw) {
		khz, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse core frequency %q: %w", field, err)
		}
		freqs = append(freqs, khz/1000)
	}
	return freqs, nil
}

// CPUInfoFrequencies reads the "cpu MHz" lines of /proc/cpuinfo.
type CPUInfoFrequencies struct{}

func (CPUInfoFrequencies) CoreFrequencies(ctx context.Context) ([]float64, error) {
	infos, err := gopsutil.InfoWithContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read cpu info: %w", err)
	}
	freqs := make([]float64, 0, len(infos))
	for _, info := range infos {
		freqs = append(freqs, info.Mhz)
	}
	return freqs, nil
}

// FallbackFrequencies tries each reader in turn and returns the first
// non-empty result.
type FallbackFrequencies []FrequencyReader

func (f FallbackFrequencies) CoreFrequencies(ctx context.Context) ([]float64, error) {
	var lastErr error
	for _, reader := range f {
		freqs, err := reader.CoreFrequencies(ctx)
		if err != nil {
			slog.Debug("frequency reader failed", slog.String("reader", fmt.Sprintf("%T", reader)), slog.String("error", err.Error()))
			lastErr = err
			continue
		}
		if len(freqs) > 0 {
			return freqs, nil
		}
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("no core frequencies reported")
	}
	return nil, lastErr
}

// RefreshFrequencies replaces CoreFrequencies with a new reading. The result
// is trimmed or padded with zeros to NumCores when NumCores is known.
func (s *Snapshot) RefreshFrequencies(ctx context.Context, r FrequencyReader) error {
	freqs, err := r.CoreFrequencies(ctx)
	if err != nil {
		return err
	}
	if s.NumCores > 0 && len(freqs) != s.NumCores {
		slog.Debug("core frequency count differs from core count", slog.Int("frequencies", len(freqs)), slog.Int("cores", s.NumCores))
		resized := make([]float64, s.NumCores)
		copy(resized, freqs)
		freqs = resized
	}
	s.CoreFrequencies = freqs
	return nil
}
