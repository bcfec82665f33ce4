// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !unix

package unit

import "os"

func exitStatus(state *os.ProcessState) (int, bool) {
	return state.ExitCode(), false
}
