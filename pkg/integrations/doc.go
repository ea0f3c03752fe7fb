// Package integrations provides the shared HTTP client used to talk to the lab
// service.
//
// # Client Pattern
//
// Service clients embed [*Client] and add typed methods:
//
//	c := lab.NewClient(backend, "http://localhost:8000", 24*time.Hour)
//	grads, err := c.Gradients(ctx, imageID, false) // false = use cache
//
// The shared client handles:
//   - default and per-request headers
//   - status mapping: 404 wraps [ErrNotFound], 5xx and transport failures are
//     retryable and wrap [ErrNetwork]
//   - decoding of the service's JSON error envelopes into errors.ServiceError
//   - bounded retry with backoff inside one operation ([Client.Retry])
//   - JSON and raw-byte caching through a cache.Cache ([Client.Cached],
//     [Client.CachedBytes])
//
// Resource references returned by the service may be relative; [ResolveURL]
// resolves them against the configured base origin.
package integrations
