package cmd

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pstatefreq/internal/app"
	"pstatefreq/internal/dispatch"
	"pstatefreq/internal/plan"
	"pstatefreq/internal/sysfs"
	"pstatefreq/internal/sysfs/sysfstest"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testHost struct {
	root bool
}

func (h testHost) GetName() string   { return "test-host" }
func (h testHost) IsSuperUser() bool { return h.root }

// newTestConfig writes a config file reading from tree and returns its path.
func newTestConfig(t *testing.T, tree *sysfstest.Tree) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pstate-frequency.yaml")
	content := fmt.Sprintf("sysfs_root: %s\nfrequency_source: sysfs\n", tree.Root)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func runTest(t *testing.T, host testHost, args ...string) (string, string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr, host)
	return stdout.String(), stderr.String(), err
}

func TestRunHelpAndVersion(t *testing.T) {
	stdout, _, err := runTest(t, testHost{}, "--help", "--bogus")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ABSOLUTELY NO WARRANTY")
	assert.Contains(t, stdout, "-S | --set       Modify current CPU values")

	stdout, _, err = runTest(t, testHost{}, "-V")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pstate-frequency  "+gVersion)

	stdout, _, err = runTest(t, testHost{}, "-q", "-V")
	require.NoError(t, err)
	assert.Empty(t, stdout)
}

func TestRunBadOption(t *testing.T) {
	stdout, stderr, err := runTest(t, testHost{}, "-G", "--bogus")
	assert.True(t, errors.Is(err, dispatch.ErrBadOption))
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "Bad option")

	_, stderr, err = runTest(t, testHost{}, "-a", "-p", "xyz")
	assert.True(t, errors.Is(err, plan.ErrBadPlan))
	assert.Empty(t, stderr)
}

func TestRunGet(t *testing.T) {
	tree := sysfstest.NewTree(t, 2, true)
	configFile := newTestConfig(t, tree)

	stdout, _, err := runTest(t, testHost{}, "--config", configFile, "-G", "-c")
	require.NoError(t, err)
	assert.Contains(t, stdout, "CPU_DRIVER     -> intel_pstate")

	stdout, _, err = runTest(t, testHost{}, "--config", configFile, "-Gr")
	require.NoError(t, err)
	assert.Contains(t, stdout, "pstate::CPU[1]  -> 2100.00MHz")
}

func TestRunNoActionShowsHelp(t *testing.T) {
	tree := sysfstest.NewTree(t, 1, true)
	stdout, _, err := runTest(t, testHost{}, "--config", newTestConfig(t, tree))
	require.NoError(t, err)
	assert.Contains(t, stdout, "usage:")
}

func TestRunSet(t *testing.T) {
	tree := sysfstest.NewTree(t, 1, true)
	configFile := newTestConfig(t, tree)

	_, stderr, err := runTest(t, testHost{root: false}, "--config", configFile, "-S", "-m", "50")
	assert.True(t, errors.Is(err, app.ErrPermissionDenied))
	assert.Contains(t, stderr, "Permissions error")
	assert.Equal(t, "100", tree.GetPstate("max_perf_pct"))

	_, stderr, err = runTest(t, testHost{root: true}, "--config", configFile, "-S")
	assert.True(t, errors.Is(err, app.ErrNoRequest))
	assert.Contains(t, stderr, "No requests")

	stdout, _, err := runTest(t, testHost{root: true}, "--config", configFile, "-S", "-p", "max")
	require.NoError(t, err)
	assert.Equal(t, "100", tree.GetPstate("max_perf_pct"))
	assert.Equal(t, "99", tree.GetPstate("min_perf_pct"))
	assert.Equal(t, "0", tree.GetPstate("no_turbo"))
	assert.Equal(t, "performance", tree.GetCPU(0, "scaling_governor"))
	assert.Contains(t, stdout, "CPU_GOVERNOR   -> performance")
}

func TestRunSetWriteFailureReportedOnce(t *testing.T) {
	tree := sysfstest.NewTree(t, 2, true)
	governor := tree.Path(sysfstest.CPUDir, "cpu1", "cpufreq", "scaling_governor")
	require.NoError(t, os.Remove(governor))
	require.NoError(t, os.Mkdir(governor, 0755))

	_, stderr, err := runTest(t, testHost{root: true}, "--config", newTestConfig(t, tree), "-S", "-m", "80")
	assert.True(t, errors.Is(err, sysfs.ErrWriteFailed))
	assert.Equal(t, 1, strings.Count(stderr, "\n"), stderr)
	assert.True(t, strings.HasPrefix(stderr, "Failed to set scaling_governor to powersave"), stderr)
	assert.Equal(t, "80", tree.GetPstate("max_perf_pct"))
}

func TestRunExportFlag(t *testing.T) {
	tree := sysfstest.NewTree(t, 1, true)
	exportFile := filepath.Join(t.TempDir(), "pstate.prom")
	_, _, err := runTest(t, testHost{}, "--config", newTestConfig(t, tree), "-G", "--export", exportFile)
	require.NoError(t, err)
	content, err := os.ReadFile(exportFile)
	require.NoError(t, err)
	assert.Contains(t, string(content), "pstate_frequency_max_percent 100")
}

func TestRunBadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pstate-frequency.yaml")
	require.NoError(t, os.WriteFile(path, []byte("frequency_source: msr\n"), 0644))
	_, stderr, err := runTest(t, testHost{}, "--config", path, "-G")
	require.Error(t, err)
	assert.Contains(t, stderr, "Invalid config file")

	_, _, err = runTest(t, testHost{}, "--config", filepath.Join(t.TempDir(), "missing.yaml"), "-G")
	assert.Error(t, err)
}
