// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package builtin contains the commands that run inside the shell process instead of
// being forked: cd, exit, help, log, pwd, true and false.
//
// A builtin receives a Context with its arguments, its three streams, and the Session
// it acts on, and returns its exit status.
package builtin
