package observability

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// LogHooks implements every hook interface by logging at debug level.
type LogHooks struct {
	logger *log.Logger
}

// NewLogHooks returns hooks writing to logger, or to log.Default() if nil.
func NewLogHooks(logger *log.Logger) *LogHooks {
	if logger == nil {
		logger = log.Default()
	}
	return &LogHooks{logger: logger.WithPrefix("obs")}
}

// Install registers h for edit, cache and HTTP events.
func (h *LogHooks) Install() {
	SetEditHooks(h)
	SetCacheHooks(h)
	SetHTTPHooks(h)
}

func (h *LogHooks) OnImageLoad(_ context.Context, imageID string, w, ht int, d time.Duration, err error) {
	if err != nil {
		h.logger.Debug("image load failed", "image", imageID, "took", d, "err", err)
		return
	}
	h.logger.Debug("image loaded", "image", imageID, "size", [2]int{w, ht}, "took", d)
}

func (h *LogHooks) OnStrokeCommit(_ context.Context, channel string, samples int, d time.Duration) {
	h.logger.Debug("stroke committed", "channel", channel, "samples", samples, "took", d)
}

func (h *LogHooks) OnReconstructStart(_ context.Context, imageID string, dx, dy bool) {
	h.logger.Debug("reconstruct", "image", imageID, "dx", dx, "dy", dy)
}

func (h *LogHooks) OnReconstructComplete(_ context.Context, imageID string, d time.Duration, err error) {
	h.logger.Debug("reconstruct done", "image", imageID, "took", d, "err", err)
}

func (h *LogHooks) OnCacheHit(_ context.Context, keyType string) {
	h.logger.Debug("cache hit", "type", keyType)
}

func (h *LogHooks) OnCacheMiss(_ context.Context, keyType string) {
	h.logger.Debug("cache miss", "type", keyType)
}

func (h *LogHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	h.logger.Debug("cache set", "type", keyType, "bytes", size)
}

func (h *LogHooks) OnRequest(_ context.Context, method, host, path string) {
	h.logger.Debug("http request", "method", method, "host", host, "path", path)
}

func (h *LogHooks) OnResponse(_ context.Context, method, host, path string, status int, d time.Duration) {
	h.logger.Debug("http response", "method", method, "host", host, "path", path, "status", status, "took", d)
}

func (h *LogHooks) OnError(_ context.Context, method, host, path string, err error) {
	h.logger.Debug("http error", "method", method, "host", host, "path", path, "err", err)
}

var (
	_ EditHooks  = (*LogHooks)(nil)
	_ CacheHooks = (*LogHooks)(nil)
	_ HTTPHooks  = (*LogHooks)(nil)
)
