/*
Package plan resolves predefined power plans and governor names from the
tokens given on the command line.
*/
package plan

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"pstatefreq/internal/cpu"
)

var (
	ErrBadPlan     = errors.New("bad plan")
	ErrBadGovernor = errors.New("bad governor")
)

// Plan is a predefined bundle of governor, scaling range and turbo state.
type Plan int

const (
	Auto Plan = iota
	Powersave
	Performance
	MaxPerformance
)

func (p Plan) String() string {
	switch p {
	case Auto:
		return "auto"
	case Powersave:
		return "powersave"
	case Performance:
		return "performance"
	case MaxPerformance:
		return "max-performance"
	}
	return fmt.Sprintf("plan(%d)", int(p))
}

// Code is the single digit that selects the plan on the command line.
func (p Plan) Code() string {
	return fmt.Sprintf("%d", int(p))
}

// Resolver maps plan tokens to plans.
type Resolver struct {
	// AutoAvailable enables the AUTO plan.
	AutoAvailable bool
}

// NewResolver returns a Resolver with AUTO available unless the binary was
// built with the noauto tag.
func NewResolver() *Resolver {
	return &Resolver{AutoAvailable: autoCompiled}
}

// Plans returns the plans in matching order.
func (r *Resolver) Plans() []Plan {
	plans := []Plan{Powersave, Performance, MaxPerformance}
	if r.AutoAvailable {
		plans = append(plans, Auto)
	}
	return plans
}

// Resolve accepts a plan's numeric code or a prefix of its name. The first
// plan in matching order wins.
func (r *Resolver) Resolve(token string) (Plan, error) {
	if token != "" {
		for _, p := range r.Plans() {
			if token == p.Code() || strings.HasPrefix(p.String(), token) {
				slog.Debug("resolved plan", slog.String("token", token), slog.String("plan", p.String()))
				return p, nil
			}
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrBadPlan, token)
}

// ResolveGovernor returns the first available governor that token is a prefix
// of. The driver's reporting order decides between governors sharing a prefix.
func ResolveGovernor(token string, available []string) (string, error) {
	if token != "" {
		for _, governor := range available {
			if strings.HasPrefix(governor, token) {
				return governor, nil
			}
		}
	}
	return "", fmt.Errorf("%w: %q not in [%s]", ErrBadGovernor, token, strings.Join(available, " "))
}

// Template is a plan made concrete for one system.
type Template struct {
	Plan     Plan
	Governor string
	Min      int // percent
	Max      int // percent
	TurboOn  bool
}

// RawTurbo returns the turbo flag to write for the template given the driver's polarity.
func (t Template) RawTurbo(inverted bool) int {
	if t.TurboOn != inverted {
		return 1
	}
	return 0
}

// PowerSource reports whether the system runs on mains power.
type PowerSource interface {
	OnACPower() (bool, error)
}

type definition struct {
	governors []string // in order of preference
	min       int
	max       int
	turboOn   bool
}

var definitions = map[Plan]definition{
	Powersave:      {governors: []string{"powersave"}, min: 0, max: 0, turboOn: false},
	Performance:    {governors: []string{"powersave", "schedutil", "ondemand"}, min: 0, max: 100, turboOn: false},
	MaxPerformance: {governors: []string{"performance"}, min: 100, max: 100, turboOn: true},
}

// Template builds the concrete template for the snapshot. AUTO becomes
// PERFORMANCE on mains power and POWERSAVE otherwise.
func (p Plan) Template(s cpu.Snapshot, power PowerSource) (Template, error) {
	if p == Auto {
		onAC, err := power.OnACPower()
		if err != nil {
			return Template{}, fmt.Errorf("failed to determine power source: %w", err)
		}
		slog.Debug("auto plan", slog.Bool("onACPower", onAC))
		if onAC {
			p = Performance
		} else {
			p = Powersave
		}
	}
	def, ok := definitions[p]
	if !ok {
		return Template{}, fmt.Errorf("%w: %s", ErrBadPlan, p)
	}
	governor := ""
	for _, candidate := range def.governors {
		if slices.Contains(s.AvailableGovernors, candidate) {
			governor = candidate
			break
		}
	}
	if governor == "" {
		return Template{}, fmt.Errorf("%w: plan %s needs one of [%s]", ErrBadGovernor, p, strings.Join(def.governors, " "))
	}
	return Template{Plan: p, Governor: governor, Min: def.min, Max: def.max, TurboOn: def.turboOn}, nil
}
