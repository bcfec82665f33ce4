// Copyright (c) matt-FFFFFF 2025. All rights reserved.
// SPDX-License-Identifier: MIT

package signalbroker

import (
	"context"
	"os"

	"github.com/matt-FFFFFF/dsh/internal/ctxlog"
)

// Watch monitors the signal channel until it is closed.
// The first signal cancels the context. A second signal of a type already seen calls
// force and returns.
func Watch(ctx context.Context, sigCh <-chan os.Signal, cancel context.CancelFunc, force func(os.Signal)) {
	sigMap := make(map[os.Signal]struct{})

	for sig := range sigCh {
		if _, ok := sigMap[sig]; ok {
			ctxlog.Logger(ctx).Info("watchdog", "detail", "received second signal of type, forcing exit", "signal", sig.String())

			if force != nil {
				force(sig)
			}

			return
		}

		ctxlog.Logger(ctx).Info("watchdog", "detail", "received signal, interrupting pipeline", "signal", sig.String())

		sigMap[sig] = struct{}{}

		cancel()
	}
}
