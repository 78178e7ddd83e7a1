package config

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
	"path/filepath"
	"testing"

	"pstatefreq/internal/output"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pstate-frequency.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadEmptyPath(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
sysfs_root: /tmp/fake
color: auto
frequency_source: sysfs
export: /var/lib/node_exporter/pstate.prom
log:
  file: /var/log/pstate-frequency.log
  syslog: true
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Config{
		SysfsRoot:       "/tmp/fake",
		Color:           output.ColorAuto,
		FrequencySource: SourceSysfs,
		Export:          "/var/lib/node_exporter/pstate.prom",
		Log:             Log{File: "/var/log/pstate-frequency.log", Syslog: true},
	}, cfg)
}

func TestLoadPartialKeepsDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "color: always\n"))
	require.NoError(t, err)
	assert.Equal(t, output.ColorAlways, cfg.Color)
	assert.Equal(t, "/", cfg.SysfsRoot)
	assert.Equal(t, SourceCPUInfo, cfg.FrequencySource)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown key", "colour: always\n"},
		{"bad color", "color: sometimes\n"},
		{"bad frequency source", "frequency_source: msr\n"},
		{"empty root", "sysfs_root: \"\"\n"},
		{"not yaml", "color: [always\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestLocate(t *testing.T) {
	path, err := Locate("/etc/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/custom.yaml", path)

	t.Setenv(EnvFile, "/opt/pstate.yaml")
	path, err = Locate("")
	require.NoError(t, err)
	assert.Equal(t, "/opt/pstate.yaml", path)

	// the flag wins over the environment
	path, err = Locate("/etc/custom.yaml")
	require.NoError(t, err)
	assert.Equal(t, "/etc/custom.yaml", path)
}
