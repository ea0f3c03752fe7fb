package cache

// ScopedKeyer wraps a Keyer with a prefix, isolating caches that share one
// backend. The CLI scopes keys by service base URL so that two lab servers
// never see each other's raster or analysis entries:
//
//	keyer := NewScopedKeyer(NewDefaultKeyer(), Hash([]byte(baseURL))[:12]+":")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer creates a keyer that prepends prefix to every key.
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{
		inner:  inner,
		prefix: prefix,
	}
}

// HTTPKey generates a prefixed key for HTTP response caching.
func (k *ScopedKeyer) HTTPKey(namespace, key string) string {
	return k.prefix + k.inner.HTTPKey(namespace, key)
}

// RasterKey generates a prefixed key for raster caching.
func (k *ScopedKeyer) RasterKey(url string) string {
	return k.prefix + k.inner.RasterKey(url)
}

// AnalysisKey generates a prefixed key for analysis caching.
func (k *ScopedKeyer) AnalysisKey(imageID string, opts AnalysisKeyOpts) string {
	return k.prefix + k.inner.AnalysisKey(imageID, opts)
}
