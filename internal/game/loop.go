package game

import (
	"context"
	"time"
)

// Loop is the single-threaded event loop a Controller runs on. Every callback
// passed to After and every continuation returned by Go runs on the loop, one
// at a time.
type Loop interface {
	Now() time.Time
	// After schedules fn once after d. The returned cancel must be called from
	// the loop; once called, fn will not run.
	After(d time.Duration, fn func()) (cancel func())
	// Go runs work off the loop and posts the continuation it returns back onto it.
	Go(work func(ctx context.Context) func())
}
