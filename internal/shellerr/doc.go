// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package shellerr defines the errors a pipeline can surface to the code that ran it.
//
// A StartError means the operating system refused to create a process. A CommandError
// is a unit that exited with a non-zero status. A SystemCallError is a traced unit whose
// failing system call could be identified; its Category tells callers what went wrong
// (missing file, permission denied, ...). A MultipleError is returned when more than one
// unit of a pipeline failed and keeps one slot per unit.
package shellerr
