//go:build noauto

package plan

// Copyright (C) 2021-2025 Intel Corporation
// SPDX-License-Identifier: BSD-3-Clause

const autoCompiled = false
