package httpapi

import (
	"context"
)

// serverBaseCtx is the process-level context handlers derive their work
// from. The serve command cancels it on shutdown so in-flight fetches and
// device loads stop instead of outliving the listener. Defaults to
// Background when never set.
var serverBaseCtx = context.Background()

// SetBaseContext installs the process-level base context.
func SetBaseContext(ctx context.Context) {
	if ctx == nil {
		serverBaseCtx = context.Background()
		return
	}
	serverBaseCtx = ctx
}

// joinContexts derives a context canceled when either the request context
// or the base context is done, so a client disconnect and a daemon shutdown
// both stop the work. The cancel func must be called when the handler ends
// to release the watcher goroutine.
func joinContexts(a, b context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		select {
		case <-a.Done():
			cancel()
		case <-b.Done():
			cancel()
		}
	}()
	return ctx, cancel
}
