package export

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pstatefreq/internal/cpu"
	"pstatefreq/internal/sysfs"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() cpu.Snapshot {
	return cpu.Snapshot{
		Driver:          "intel_pstate",
		Interface:       sysfs.InterfacePstate,
		InfoMin:         20,
		InfoMax:         100,
		InfoMinFreq:     800000,
		InfoMaxFreq:     4000000,
		CurMin:          25,
		CurMax:          90,
		Governor:        "powersave",
		Turbo:           0,
		NumCores:        2,
		CoreFrequencies: []float64{2100.5, 800},
	}
}

func gather(t *testing.T, c *Collector) map[string]*dto.MetricFamily {
	t.Helper()
	families, err := c.Gatherer().Gather()
	require.NoError(t, err)
	byName := map[string]*dto.MetricFamily{}
	for _, family := range families {
		byName[family.GetName()] = family
	}
	return byName
}

func TestUpdate(t *testing.T) {
	c := NewCollector()
	c.Update(testSnapshot())
	families := gather(t, c)

	assert.Equal(t, 25.0, families["pstate_frequency_min_percent"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 90.0, families["pstate_frequency_max_percent"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 800000.0, families["pstate_frequency_info_min_khz"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 4000000.0, families["pstate_frequency_info_max_khz"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, 0.0, families["pstate_frequency_turbo"].GetMetric()[0].GetGauge().GetValue())
	// no_turbo 0 means turbo is on
	assert.Equal(t, 1.0, families["pstate_frequency_turbo_enabled"].GetMetric()[0].GetGauge().GetValue())
	require.Len(t, families["pstate_frequency_core_frequency_mhz"].GetMetric(), 2)

	governor := families["pstate_frequency_governor_info"].GetMetric()
	require.Len(t, governor, 1)
	labels := map[string]string{}
	for _, pair := range governor[0].GetLabel() {
		labels[pair.GetName()] = pair.GetValue()
	}
	assert.Equal(t, map[string]string{"governor": "powersave", "driver": "intel_pstate"}, labels)
}

func TestUpdateTurboUnsupported(t *testing.T) {
	c := NewCollector()
	c.Update(testSnapshot())
	s := testSnapshot()
	s.Turbo = cpu.TurboUnsupported
	s.Governor = "performance"
	c.Update(s)
	families := gather(t, c)
	assert.NotContains(t, families, "pstate_frequency_turbo")
	assert.Equal(t, 0.0, families["pstate_frequency_turbo_enabled"].GetMetric()[0].GetGauge().GetValue())
	// the previous governor is not kept
	require.Len(t, families["pstate_frequency_governor_info"].GetMetric(), 1)
}

func TestWriteSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pstate.prom")
	require.NoError(t, WriteSnapshot(path, testSnapshot()))
	content, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(content)
	assert.Contains(t, text, "# TYPE pstate_frequency_min_percent gauge")
	assert.Contains(t, text, "pstate_frequency_max_percent 90\n")
	assert.Contains(t, text, `pstate_frequency_core_frequency_mhz{cpu="0"} 2100.5`)
	assert.Contains(t, text, `pstate_frequency_governor_info{driver="intel_pstate",governor="powersave"} 1`)
	assert.False(t, strings.Contains(text, "NaN"))

	err = WriteSnapshot(filepath.Join(t.TempDir(), "missing", "pstate.prom"), testSnapshot())
	assert.Error(t, err)
}
