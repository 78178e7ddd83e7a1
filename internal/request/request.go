/*
Package request holds the user's partial intent accumulated from the command line.
*/
package request

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"fmt"
	"log/slog"

	"pstatefreq/internal/plan"
)

// Optional is a value that is either present or absent.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

// Get returns the value and whether it is present.
func (o Optional[T]) Get() (T, bool) {
	return o.value, o.set
}

// IsSet reports whether a value is present.
func (o Optional[T]) IsSet() bool {
	return o.set
}

// OrElse returns the value if present, otherwise fallback.
func (o Optional[T]) OrElse(fallback T) T {
	if o.set {
		return o.value
	}
	return fallback
}

func (o Optional[T]) String() string {
	if !o.set {
		return "unset"
	}
	return fmt.Sprint(o.value)
}

// Action is what the invocation does with the driver.
type Action int

const (
	ActionNone Action = iota
	ActionGet
	ActionSet
)

func (a Action) String() string {
	switch a {
	case ActionGet:
		return "get"
	case ActionSet:
		return "set"
	}
	return "none"
}

// DisplayMode selects what a get action prints.
type DisplayMode int

const (
	DisplayCurrent DisplayMode = iota
	DisplayRealtime
)

// UserRequest is built one option at a time and read-only once complete.
type UserRequest struct {
	Action   Action
	Display  DisplayMode
	Min      Optional[int] // percent
	Max      Optional[int] // percent
	Governor string        // governor token, or resolved name once resolved, empty when unset
	Turbo    Optional[int] // raw turbo flag
	Plan     Optional[plan.Plan]
}

// HasChanges reports whether anything would be written by a set action.
func (r UserRequest) HasChanges() bool {
	return r.Min.IsSet() || r.Max.IsSet() || r.Turbo.IsSet() || r.Governor != ""
}

// ApplyTemplate fills the fields the user left unset from a plan template.
// inverted is the driver's turbo polarity.
func (r *UserRequest) ApplyTemplate(t plan.Template, inverted bool) {
	if !r.Min.IsSet() {
		r.Min = Some(t.Min)
	}
	if !r.Max.IsSet() {
		r.Max = Some(t.Max)
	}
	if !r.Turbo.IsSet() {
		r.Turbo = Some(t.RawTurbo(inverted))
	}
	if r.Governor == "" {
		r.Governor = t.Governor
	}
	slog.Debug("applied plan",
		slog.String("plan", t.Plan.String()),
		slog.String("min", r.Min.String()),
		slog.String("max", r.Max.String()),
		slog.String("turbo", r.Turbo.String()),
		slog.String("governor", r.Governor))
}
