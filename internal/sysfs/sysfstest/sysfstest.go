// Package sysfstest builds fake sysfs trees for tests.
package sysfstest

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// CPUDir is the cpu devices directory relative to the tree root.
const CPUDir = "sys/devices/system/cpu"

// Tree is a fake sysfs tree in a temporary directory.
type Tree struct {
	t    testing.TB
	Root string
}

// NewTree creates a tree with numCPUs CPUs reporting cpuinfo 800 MHz to
// 4 GHz. With pstate the intel_pstate driver and its control files are
// present at 20% to 100% with turbo on, otherwise acpi-cpufreq with boost
// on and scaling limits of 800 MHz to 3 GHz.
func NewTree(t testing.TB, numCPUs int, pstate bool) *Tree {
	t.Helper()
	tree := &Tree{t: t, Root: t.TempDir()}
	driver, governor, governors := "acpi-cpufreq", "ondemand", "conservative ondemand userspace powersave performance schedutil"
	scalingMax := "3000000"
	if pstate {
		driver, governor, governors = "intel_pstate", "powersave", "performance powersave"
		scalingMax = "4000000"
	}
	for i := range numCPUs {
		tree.SetCPU(i, "scaling_driver", driver)
		tree.SetCPU(i, "scaling_governor", governor)
		tree.SetCPU(i, "scaling_available_governors", governors)
		tree.SetCPU(i, "cpuinfo_min_freq", "800000")
		tree.SetCPU(i, "cpuinfo_max_freq", "4000000")
		tree.SetCPU(i, "scaling_min_freq", "800000")
		tree.SetCPU(i, "scaling_max_freq", scalingMax)
		tree.SetCPU(i, "scaling_cur_freq", "2100000")
	}
	require.NoError(t, os.MkdirAll(tree.Path(CPUDir, "cpuidle"), 0755))
	if pstate {
		tree.Set(filepath.Join(CPUDir, "intel_pstate", "min_perf_pct"), "20")
		tree.Set(filepath.Join(CPUDir, "intel_pstate", "max_perf_pct"), "100")
		tree.Set(filepath.Join(CPUDir, "intel_pstate", "no_turbo"), "0")
	} else {
		tree.Set(filepath.Join(CPUDir, "cpufreq", "boost"), "1")
	}
	return tree
}

// Path joins elem to the tree root.
func (tree *Tree) Path(elem ...string) string {
	return filepath.Join(append([]string{tree.Root}, elem...)...)
}

// Set writes value to the file at rel, creating parent directories.
func (tree *Tree) Set(rel, value string) {
	tree.t.Helper()
	path := tree.Path(rel)
	require.NoError(tree.t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(tree.t, os.WriteFile(path, []byte(value+"\n"), 0644))
}

// Get returns the trimmed content of the file at rel.
func (tree *Tree) Get(rel string) string {
	tree.t.Helper()
	content, err := os.ReadFile(tree.Path(rel))
	require.NoError(tree.t, err)
	return strings.TrimSpace(string(content))
}

func cpuFile(cpu int, name string) string {
	return filepath.Join(CPUDir, fmt.Sprintf("cpu%d", cpu), "cpufreq", name)
}

// SetCPU writes a cpufreq attribute of one CPU.
func (tree *Tree) SetCPU(cpu int, name, value string) {
	tree.t.Helper()
	tree.Set(cpuFile(cpu, name), value)
}

// GetCPU reads a cpufreq attribute of one CPU.
func (tree *Tree) GetCPU(cpu int, name string) string {
	tree.t.Helper()
	return tree.Get(cpuFile(cpu, name))
}

// SetPstate writes an intel_pstate attribute.
func (tree *Tree) SetPstate(name, value string) {
	tree.t.Helper()
	tree.Set(filepath.Join(CPUDir, "intel_pstate", name), value)
}

// GetPstate reads an intel_pstate attribute.
func (tree *Tree) GetPstate(name string) string {
	tree.t.Helper()
	return tree.Get(filepath.Join(CPUDir, "intel_pstate", name))
}

// AddPowerSupply adds a power supply of the given type and online state.
func (tree *Tree) AddPowerSupply(name, supplyType string, online bool) {
	tree.t.Helper()
	dir := filepath.Join("sys/class/power_supply", name)
	tree.Set(filepath.Join(dir, "type"), supplyType)
	state := "0"
	if online {
		state = "1"
	}
	tree.Set(filepath.Join(dir, "online"), state)
}
