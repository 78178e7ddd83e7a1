/*
Package policy sanitizes a user request against the driver's reported bounds
and writes the result in an order the driver accepts.
*/
package policy

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"pstatefreq/internal/cpu"
	"pstatefreq/internal/request"
	"pstatefreq/internal/sysfs"
)

// ErrNotSane is returned when the snapshot is inconsistent. Nothing is written.
var ErrNotSane = errors.New("environment was not sane, could not set any values")

// Write is one attribute write.
type Write struct {
	Attribute sysfs.Attribute
	Value     string
}

// Values are the sanitized settings and the writes that apply them, in order.
type Values struct {
	Min      int
	Max      int
	Turbo    request.Optional[int] // absent when the driver has no turbo control
	Governor string
	Writes   []Write
}

// Resolve computes the sanitized values for r against s without writing anything.
func Resolve(s cpu.Snapshot, r request.UserRequest) (Values, error) {
	if !s.Sane() {
		return Values{}, ErrNotSane
	}
	var v Values
	v.Min = bound(r.Min.OrElse(s.CurMin), s.InfoMin, s.InfoMax-1)
	v.Max = bound(r.Max.OrElse(s.CurMax), s.InfoMin+1, s.InfoMax)
	// min yields, max is never lowered
	if v.Min >= v.Max {
		v.Min = v.Max - 1
	}
	minWrite := Write{Attribute: sysfs.MinPercent, Value: strconv.Itoa(v.Min)}
	maxWrite := Write{Attribute: sysfs.MaxPercent, Value: strconv.Itoa(v.Max)}
	// the driver rejects a max below the min in effect at write time
	if s.CurMin > v.Max {
		v.Writes = append(v.Writes, minWrite, maxWrite)
	} else {
		v.Writes = append(v.Writes, maxWrite, minWrite)
	}
	if s.TurboSupported() {
		turbo := bound(r.Turbo.OrElse(s.Turbo), 0, 1)
		v.Turbo = request.Some(turbo)
		v.Writes = append(v.Writes, Write{Attribute: sysfs.Turbo, Value: strconv.Itoa(turbo)})
	}
	v.Governor = r.Governor
	if v.Governor == "" {
		v.Governor = s.Governor
	}
	v.Writes = append(v.Writes, Write{Attribute: sysfs.Governor, Value: v.Governor})
	return v, nil
}

// Apply resolves r against s and performs every write. A failed write does
// not stop the remaining writes and nothing is rolled back, all failures are
// returned together.
func Apply(s cpu.Snapshot, r request.UserRequest, w sysfs.Writer) (Values, error) {
	v, err := Resolve(s, r)
	if err != nil {
		return v, err
	}
	var errs []error
	for _, write := range v.Writes {
		slog.Info("setting attribute", slog.String("attribute", string(write.Attribute)), slog.String("value", write.Value))
		if err := w.WriteAttribute(write.Attribute, write.Value); err != nil {
			slog.Debug("failed to set attribute", slog.String("attribute", string(write.Attribute)), slog.String("value", write.Value), slog.String("error", err.Error()))
			errs = append(errs, fmt.Errorf("failed to set %s to %s: %w", write.Attribute, write.Value, err))
		}
	}
	return v, errors.Join(errs...)
}

func bound(value, lower, upper int) int {
	return max(lower, min(value, upper))
}
