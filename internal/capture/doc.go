// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

// Package capture provides an append-only output buffer that is safe to write from
// several stream pumps at once. Besides the complete output it tracks the last
// complete line, which is what failure messages show when the full stderr of a
// command would be too noisy.
package capture
