/*
Package target describes the system whose frequency scaling driver is controlled.
*/
package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

import (
	"os"
)

// Target represents the machine the driver belongs to.
type Target interface {
	// GetName returns the name of the target.
	GetName() string

	// IsSuperUser checks if the current user is a superuser.
	// It returns true if the user is a superuser, false otherwise.
	IsSuperUser() bool
}

// LocalTarget is the host the application runs on.
type LocalTarget struct {
	host    string
	geteuid func() int
}

// NewLocalTarget creates a new LocalTarget named after the host.
func NewLocalTarget() *LocalTarget {
	hostName, err := os.Hostname()
	if err != nil {
		hostName = "localhost"
	}
	return &LocalTarget{
		host:    hostName,
		geteuid: os.Geteuid,
	}
}
