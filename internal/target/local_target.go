package target

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

// IsSuperUser checks if the effective user is root.
func (t *LocalTarget) IsSuperUser() bool {
	return t.geteuid() == 0
}

// GetName returns the name of the Target.
func (t *LocalTarget) GetName() (host string) {
	return t.host
}
