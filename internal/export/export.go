/*
Package export writes the driver snapshot in the Prometheus text format so a
node exporter textfile collector can pick it up.
*/
package export

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"
	"strconv"

	"pstatefreq/internal/cpu"

	"github.com/prometheus/client_golang/prometheus"
)

const metricPrefix = "pstate_frequency_"

// Collector holds the gauges for one snapshot.
type Collector struct {
	registry      *prometheus.Registry
	minPercent    prometheus.Gauge
	maxPercent    prometheus.Gauge
	infoMinKHz    prometheus.Gauge
	infoMaxKHz    prometheus.Gauge
	turbo         prometheus.Gauge
	turboEnabled  prometheus.Gauge
	coreFrequency *prometheus.GaugeVec
	governor      *prometheus.GaugeVec
}

func newGauge(name, help string) prometheus.Gauge {
	return prometheus.NewGauge(prometheus.GaugeOpts{Name: metricPrefix + name, Help: help})
}

// NewCollector creates the gauges on a private registry.
func NewCollector() *Collector {
	c := &Collector{
		registry:     prometheus.NewRegistry(),
		minPercent:   newGauge("min_percent", "Minimum scaling frequency in percent of the maximum hardware frequency"),
		maxPercent:   newGauge("max_percent", "Maximum scaling frequency in percent of the maximum hardware frequency"),
		infoMinKHz:   newGauge("info_min_khz", "Minimum hardware frequency in kHz"),
		infoMaxKHz:   newGauge("info_max_khz", "Maximum hardware frequency in kHz"),
		turbo:        newGauge("turbo", "Raw turbo flag, no_turbo for intel_pstate and boost for cpufreq"),
		turboEnabled: newGauge("turbo_enabled", "1 when turbo boost is enabled"),
		coreFrequency: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: metricPrefix + "core_frequency_mhz", Help: "Instantaneous core frequency in MHz"},
			[]string{"cpu"},
		),
		governor: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{Name: metricPrefix + "governor_info", Help: "Current scaling governor and driver"},
			[]string{"governor", "driver"},
		),
	}
	c.registry.MustRegister(c.minPercent, c.maxPercent, c.infoMinKHz, c.infoMaxKHz, c.turboEnabled, c.coreFrequency, c.governor)
	return c
}

// Gatherer returns the registry holding the gauges.
func (c *Collector) Gatherer() prometheus.Gatherer {
	return c.registry
}

// Update sets the gauges from s. The raw turbo gauge is only exported when
// the driver has a turbo control.
func (c *Collector) Update(s cpu.Snapshot) {
	c.minPercent.Set(float64(s.CurMin))
	c.maxPercent.Set(float64(s.CurMax))
	c.infoMinKHz.Set(float64(s.InfoMinFreq))
	c.infoMaxKHz.Set(float64(s.InfoMaxFreq))
	if s.TurboSupported() {
		if err := c.registry.Register(c.turbo); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				slog.Debug("failed to register metric", slog.String("name", metricPrefix+"turbo"), slog.String("error", err.Error()))
			}
		}
		c.turbo.Set(float64(s.Turbo))
	} else {
		c.registry.Unregister(c.turbo)
	}
	turboEnabled := 0.0
	if s.TurboEnabled() {
		turboEnabled = 1
	}
	c.turboEnabled.Set(turboEnabled)
	c.coreFrequency.Reset()
	for i, mhz := range s.CoreFrequencies {
		c.coreFrequency.WithLabelValues(strconv.Itoa(i)).Set(mhz)
	}
	c.governor.Reset()
	c.governor.WithLabelValues(s.Governor, s.Driver).Set(1)
}

// WriteFile writes the gauges to path atomically.
func (c *Collector) WriteFile(path string) error {
	if err := prometheus.WriteToTextfile(path, c.registry); err != nil {
		return fmt.Errorf("failed to export to %s: %w", path, err)
	}
	slog.Debug("exported snapshot", slog.String("path", path))
	return nil
}

// WriteSnapshot exports s to path.
func WriteSnapshot(path string, s cpu.Snapshot) error {
	c := NewCollector()
	c.Update(s)
	return c.WriteFile(path)
}
