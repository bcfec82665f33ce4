// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build unix

package unit

import (
	"os"
	"syscall"
)

// exitStatus follows the shell convention of 128+N for a process killed by signal N.
func exitStatus(state *os.ProcessState) (int, bool) {
	if ws, ok := state.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal()), true
	}

	return state.ExitCode(), false
}
