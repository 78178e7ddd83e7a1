package plan

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"testing"

	"pstatefreq/internal/cpu"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve(t *testing.T) {
	r := &Resolver{AutoAvailable: true}
	tests := []struct {
		token       string
		expected    Plan
		expectError bool
	}{
		{"power", Powersave, false},
		{"powersave", Powersave, false},
		{"1", Powersave, false},
		{"2", Performance, false},
		{"perf", Performance, false},
		{"3", MaxPerformance, false},
		{"max", MaxPerformance, false},
		{"0", Auto, false},
		{"a", Auto, false},
		// first match in plan order
		{"p", Powersave, false},
		{"xyz", 0, true},
		{"4", 0, true},
		{"Power", 0, true},
		{"powersaver", 0, true},
		{"", 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.token, func(t *testing.T) {
			p, err := r.Resolve(tt.token)
			if tt.expectError {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrBadPlan))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, p)
		})
	}
}

func TestResolveWithoutAuto(t *testing.T) {
	r := &Resolver{AutoAvailable: false}
	for _, token := range []string{"0", "auto", "au"} {
		_, err := r.Resolve(token)
		assert.True(t, errors.Is(err, ErrBadPlan), token)
	}
	assert.Equal(t, []Plan{Powersave, Performance, MaxPerformance}, r.Plans())
}

func TestPlanString(t *testing.T) {
	assert.Equal(t, "auto", Auto.String())
	assert.Equal(t, "max-performance", MaxPerformance.String())
	assert.Equal(t, "plan(9)", Plan(9).String())
	assert.Equal(t, "3", MaxPerformance.Code())
}

func TestResolveGovernor(t *testing.T) {
	available := []string{"powersave", "performance"}

	governor, err := ResolveGovernor("pow", available)
	require.NoError(t, err)
	assert.Equal(t, "powersave", governor)

	governor, err = ResolveGovernor("perf", available)
	require.NoError(t, err)
	assert.Equal(t, "performance", governor)

	// shared prefix resolves to the first reported governor
	governor, err = ResolveGovernor("p", available)
	require.NoError(t, err)
	assert.Equal(t, "powersave", governor)
	governor, err = ResolveGovernor("p", []string{"performance", "powersave"})
	require.NoError(t, err)
	assert.Equal(t, "performance", governor)

	for _, token := range []string{"zzz", "", "powersavex"} {
		_, err = ResolveGovernor(token, available)
		assert.True(t, errors.Is(err, ErrBadGovernor), token)
	}
	_, err = ResolveGovernor("pow", nil)
	assert.True(t, errors.Is(err, ErrBadGovernor))
}

type fakePower struct {
	onAC bool
	err  error
}

func (f fakePower) OnACPower() (bool, error) {
	return f.onAC, f.err
}

func TestTemplate(t *testing.T) {
	pstate := cpu.Snapshot{AvailableGovernors: []string{"performance", "powersave"}}
	cpufreq := cpu.Snapshot{AvailableGovernors: []string{"conservative", "ondemand", "userspace", "powersave", "performance", "schedutil"}}
	noPowersave := cpu.Snapshot{AvailableGovernors: []string{"ondemand", "performance"}}

	tests := []struct {
		name        string
		plan        Plan
		snapshot    cpu.Snapshot
		power       PowerSource
		expected    Template
		expectError error
	}{
		{
			name:     "powersave",
			plan:     Powersave,
			snapshot: pstate,
			expected: Template{Plan: Powersave, Governor: "powersave", Min: 0, Max: 0, TurboOn: false},
		},
		{
			name:     "performance on intel_pstate",
			plan:     Performance,
			snapshot: pstate,
			expected: Template{Plan: Performance, Governor: "powersave", Min: 0, Max: 100, TurboOn: false},
		},
		{
			name:     "performance on cpufreq",
			plan:     Performance,
			snapshot: cpufreq,
			expected: Template{Plan: Performance, Governor: "powersave", Min: 0, Max: 100, TurboOn: false},
		},
		{
			name:     "performance without powersave governor",
			plan:     Performance,
			snapshot: noPowersave,
			expected: Template{Plan: Performance, Governor: "ondemand", Min: 0, Max: 100, TurboOn: false},
		},
		{
			name:     "max performance",
			plan:     MaxPerformance,
			snapshot: pstate,
			expected: Template{Plan: MaxPerformance, Governor: "performance", Min: 100, Max: 100, TurboOn: true},
		},
		{
			name:     "auto on AC",
			plan:     Auto,
			snapshot: pstate,
			power:    fakePower{onAC: true},
			expected: Template{Plan: Performance, Governor: "powersave", Min: 0, Max: 100, TurboOn: false},
		},
		{
			name:     "auto on battery",
			plan:     Auto,
			snapshot: pstate,
			power:    fakePower{onAC: false},
			expected: Template{Plan: Powersave, Governor: "powersave", Min: 0, Max: 0, TurboOn: false},
		},
		{
			name:        "powersave governor missing",
			plan:        Powersave,
			snapshot:    noPowersave,
			expectError: ErrBadGovernor,
		},
		{
			name:        "unknown plan",
			plan:        Plan(7),
			snapshot:    pstate,
			expectError: ErrBadPlan,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			template, err := tt.plan.Template(tt.snapshot, tt.power)
			if tt.expectError != nil {
				require.Error(t, err)
				assert.True(t, errors.Is(err, tt.expectError))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, template)
		})
	}
}

func TestTemplateAutoPowerError(t *testing.T) {
	_, err := Auto.Template(cpu.Snapshot{}, fakePower{err: errors.New("no sysfs")})
	assert.ErrorContains(t, err, "no sysfs")
}

func TestRawTurbo(t *testing.T) {
	on := Template{TurboOn: true}
	off := Template{TurboOn: false}
	assert.Equal(t, 1, on.RawTurbo(false))
	assert.Equal(t, 0, on.RawTurbo(true))
	assert.Equal(t, 0, off.RawTurbo(false))
	assert.Equal(t, 1, off.RawTurbo(true))
}
