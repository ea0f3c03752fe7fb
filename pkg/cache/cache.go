// Package cache provides byte caches for lab service responses.
//
// Backends share the [Cache] interface:
//   - [FileCache]: JSON envelopes under a directory, for the CLI
//   - [RedisCache]: a shared Redis instance, for `gradlab serve` deployments
//   - [MongoCache]: a MongoDB collection with a TTL index
//   - [NullCache]: caching disabled
//
// Keys are built by a [Keyer] so that every consumer agrees on the namespace
// layout: HTTP JSON responses, fetched rasters, and analysis results.
package cache

import (
	"context"
	"time"
)

// Cache stores opaque byte values with an optional time-to-live.
//
// Get reports a miss with ok=false and a nil error. Implementations must be
// safe for concurrent use.
type Cache interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Keyer builds cache keys for each kind of cached lab resource.
type Keyer interface {
	// HTTPKey keys a JSON response fetched from a namespaced endpoint.
	HTTPKey(namespace, key string) string

	// RasterKey keys the bytes of a raster resource by its absolute URL.
	RasterKey(url string) string

	// AnalysisKey keys an analysis result for an uploaded image.
	AnalysisKey(imageID string, opts AnalysisKeyOpts) string
}

// AnalysisKeyOpts distinguishes analysis results for the same image.
type AnalysisKeyOpts struct {
	BaseURL string `json:"base_url"`
	Version string `json:"version,omitempty"`
}

// DefaultKeyer is the standard key layout.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer {
	return DefaultKeyer{}
}

// HTTPKey returns "http:<namespace>:<key>".
func (DefaultKeyer) HTTPKey(namespace, key string) string {
	return "http:" + namespace + ":" + key
}

// RasterKey returns "raster:<sha256(url)>".
func (DefaultKeyer) RasterKey(url string) string {
	return hashKey("raster", url)
}

// AnalysisKey returns "analysis:<sha256(imageID, opts)>".
func (DefaultKeyer) AnalysisKey(imageID string, opts AnalysisKeyOpts) string {
	return hashKey("analysis", imageID, opts)
}
