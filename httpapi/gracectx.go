package httpapi

import (
	"context"
	"time"
)

// graceContext derives a context from parent that does not become Done
// until grace has elapsed after parent itself becomes Done. It lets an
// upload that is mid-Append survive a client's abrupt socket close long
// enough to drain a final buffered chunk, without ever exposing that
// delay to the core.
func graceContext(parent context.Context, grace time.Duration) (context.Context, func()) {
	ctx, cancel := context.WithCancel(context.Background())

	stop := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			select {
			case <-time.After(grace):
				cancel()
			case <-stop:
			}
		case <-stop:
		}
	}()

	return ctx, func() {
		close(stop)
		cancel()
	}
}
