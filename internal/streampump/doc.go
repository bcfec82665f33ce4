// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package streampump copies bytes from one source stream to one or more sinks on its
// own goroutine. A sink that fails is dropped from the active set while the others keep
// receiving data, so a closed console never starves a capture buffer.
//
// FanIn groups one pump per unit stderr into a shared buffer while also keeping the
// output of every unit separately.
package streampump
