// Package observability provides hooks for edit-session, cache and HTTP events.
//
// Libraries emit events through the registered hooks; main decides what
// receives them. The defaults are no-ops. [LogHooks] forwards every event to a
// charmbracelet logger at debug level and is what `gradlab --verbose` installs.
//
//	observability.SetEditHooks(observability.NewLogHooks(logger))
//	observability.Edit().OnStrokeCommit(ctx, "dx", 12, duration)
package observability

import (
	"context"
	"sync"
	"time"
)

// EditHooks receives events from edit sessions.
type EditHooks interface {
	// OnImageLoad records a completed (or failed) image load.
	OnImageLoad(ctx context.Context, imageID string, width, height int, duration time.Duration, err error)

	// OnStrokeCommit records a committed stroke on a channel.
	OnStrokeCommit(ctx context.Context, channel string, samples int, duration time.Duration)

	// OnReconstructStart records an outgoing reconstruction request.
	OnReconstructStart(ctx context.Context, imageID string, editedDx, editedDy bool)

	// OnReconstructComplete records the outcome of a reconstruction request.
	OnReconstructComplete(ctx context.Context, imageID string, duration time.Duration, err error)
}

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// HTTPHooks receives events from HTTP client operations.
type HTTPHooks interface {
	// OnRequest records an outgoing HTTP request.
	OnRequest(ctx context.Context, method, host, path string)

	// OnResponse records an HTTP response.
	OnResponse(ctx context.Context, method, host, path string, statusCode int, duration time.Duration)

	// OnError records an HTTP error (network failure, timeout).
	OnError(ctx context.Context, method, host, path string, err error)
}

// NoopEditHooks is a no-op implementation of EditHooks.
type NoopEditHooks struct{}

func (NoopEditHooks) OnImageLoad(context.Context, string, int, int, time.Duration, error) {}
func (NoopEditHooks) OnStrokeCommit(context.Context, string, int, time.Duration)          {}
func (NoopEditHooks) OnReconstructStart(context.Context, string, bool, bool)              {}
func (NoopEditHooks) OnReconstructComplete(context.Context, string, time.Duration, error) {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopHTTPHooks is a no-op implementation of HTTPHooks.
type NoopHTTPHooks struct{}

func (NoopHTTPHooks) OnRequest(context.Context, string, string, string)                      {}
func (NoopHTTPHooks) OnResponse(context.Context, string, string, string, int, time.Duration) {}
func (NoopHTTPHooks) OnError(context.Context, string, string, string, error)                 {}

var (
	editHooks  EditHooks  = NoopEditHooks{}
	cacheHooks CacheHooks = NoopCacheHooks{}
	httpHooks  HTTPHooks  = NoopHTTPHooks{}
	hooksMu    sync.RWMutex
)

// SetEditHooks registers edit-session hooks. nil is ignored.
func SetEditHooks(h EditHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		editHooks = h
	}
}

// SetCacheHooks registers cache hooks. nil is ignored.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetHTTPHooks registers HTTP hooks. nil is ignored.
func SetHTTPHooks(h HTTPHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		httpHooks = h
	}
}

// Edit returns the registered edit-session hooks.
func Edit() EditHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return editHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// HTTP returns the registered HTTP hooks.
func HTTP() HTTPHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return httpHooks
}

// Reset restores all hooks to their no-op defaults.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	editHooks = NoopEditHooks{}
	cacheHooks = NoopCacheHooks{}
	httpHooks = NoopHTTPHooks{}
}
