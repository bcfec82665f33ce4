// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build !unix

package trace

import "syscall"

func errnoValue(_ string) syscall.Errno {
	return 0
}
