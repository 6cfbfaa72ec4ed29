// Package safego launches named background goroutines that survive panics.
package safego

import "log/slog"

// Go runs fn in a new goroutine. A panic in fn is recovered and logged with
// the goroutine's name instead of crashing the process. Use it for every
// fire-and-forget goroutine (background jobs, the metrics listener) where an
// unrecovered panic would otherwise kill the work silently.
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine",
					"goroutine", name,
					"panic", r,
				)
			}
		}()
		fn()
	}()
}
