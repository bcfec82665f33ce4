// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package trace

import (
	"strings"
)

// Calls whose failure usually explains why a command gave up.
var relevantCalls = map[string]struct{}{
	"open": {}, "openat": {}, "openat2": {}, "creat": {},
	"stat": {}, "lstat": {}, "newfstatat": {}, "statx": {},
	"access": {}, "faccessat": {}, "faccessat2": {},
	"execve": {}, "execveat": {},
	"chdir": {}, "mkdir": {}, "mkdirat": {}, "rmdir": {},
	"unlink": {}, "unlinkat": {}, "rename": {}, "renameat": {}, "renameat2": {},
	"link": {}, "linkat": {}, "symlink": {}, "symlinkat": {},
	"chmod": {}, "fchmodat": {}, "chown": {}, "fchownat": {}, "truncate": {},
	"connect": {}, "bind": {},
}

// Loader and locale probing fails routinely and says nothing about the command.
var noisePaths = []string{".so", "/etc/ld.so", "/usr/lib/locale", "/usr/share/locale", "gconv"}

// Conclusive reports whether the log records calls and a normal exit of the traced
// command. Logs of killed commands and truncated logs are inconclusive.
func (l *Log) Conclusive() bool {
	return len(l.Calls) > 0 && l.Exit >= 0
}

// FailingCall returns the system call that most likely caused the traced command to
// fail. It returns false when the command exited successfully or when no relevant call
// failed.
func (l *Log) FailingCall() (Call, bool) {
	if l.Exit == 0 {
		return Call{}, false
	}

	for i := len(l.Calls) - 1; i >= 0; i-- {
		c := l.Calls[i]
		if !c.Failed() {
			continue
		}

		if _, ok := relevantCalls[c.Name]; !ok {
			continue
		}

		if isNoise(c.Args) {
			continue
		}

		return c, true
	}

	return Call{}, false
}

func isNoise(args string) bool {
	for _, p := range noisePaths {
		if strings.Contains(args, p) {
			return true
		}
	}

	return false
}
