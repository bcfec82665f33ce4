// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

//go:build unix

package trace

import (
	"sync"
	"syscall"

	"golang.org/x/sys/unix"
)

const maxErrno = 4096

var errnoByName = sync.OnceValue(func() map[string]syscall.Errno {
	m := make(map[string]syscall.Errno)

	for e := syscall.Errno(1); e < maxErrno; e++ {
		if name := unix.ErrnoName(e); name != "" {
			if _, dup := m[name]; !dup {
				m[name] = e
			}
		}
	}

	return m
})

func errnoValue(name string) syscall.Errno {
	return errnoByName()[name]
}
