package observability

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
)

func TestNoopHooksDoNotPanic(t *testing.T) {
	ctx := context.Background()

	e := NoopEditHooks{}
	e.OnImageLoad(ctx, "img-1", 100, 50, time.Second, nil)
	e.OnStrokeCommit(ctx, "dx", 12, time.Millisecond)
	e.OnReconstructStart(ctx, "img-1", true, false)
	e.OnReconstructComplete(ctx, "img-1", time.Second, nil)

	c := NoopCacheHooks{}
	c.OnCacheHit(ctx, "raster")
	c.OnCacheMiss(ctx, "http")
	c.OnCacheSet(ctx, "analysis", 1024)

	h := NoopHTTPHooks{}
	h.OnRequest(ctx, "GET", "localhost:8000", "/api/gradients")
	h.OnResponse(ctx, "GET", "localhost:8000", "/api/gradients", 200, time.Second)
	h.OnError(ctx, "GET", "localhost:8000", "/api/gradients", nil)
}

func TestGlobalHooksRegistry(t *testing.T) {
	Reset()
	defer Reset()

	if _, ok := Edit().(NoopEditHooks); !ok {
		t.Error("Edit() should return NoopEditHooks by default")
	}
	if _, ok := Cache().(NoopCacheHooks); !ok {
		t.Error("Cache() should return NoopCacheHooks by default")
	}
	if _, ok := HTTP().(NoopHTTPHooks); !ok {
		t.Error("HTTP() should return NoopHTTPHooks by default")
	}

	customEdit := &testEditHooks{}
	SetEditHooks(customEdit)
	if Edit() != customEdit {
		t.Error("SetEditHooks should set custom hooks")
	}

	customCache := &testCacheHooks{}
	SetCacheHooks(customCache)
	if Cache() != customCache {
		t.Error("SetCacheHooks should set custom hooks")
	}

	customHTTP := &testHTTPHooks{}
	SetHTTPHooks(customHTTP)
	if HTTP() != customHTTP {
		t.Error("SetHTTPHooks should set custom hooks")
	}

	Reset()
	if _, ok := Edit().(NoopEditHooks); !ok {
		t.Error("Reset() should restore NoopEditHooks")
	}
}

func TestSetNilHooksIsIgnored(t *testing.T) {
	Reset()
	defer Reset()

	custom := &testEditHooks{}
	SetEditHooks(custom)
	SetEditHooks(nil)

	if Edit() != custom {
		t.Error("SetEditHooks(nil) should be ignored")
	}
}

func TestLogHooks(t *testing.T) {
	Reset()
	defer Reset()

	var buf bytes.Buffer
	logger := log.NewWithOptions(&buf, log.Options{Level: log.DebugLevel})
	NewLogHooks(logger).Install()

	ctx := context.Background()
	Edit().OnStrokeCommit(ctx, "dy", 3, time.Millisecond)
	HTTP().OnError(ctx, "POST", "localhost", "/api/reconstruct", errors.New("boom"))
	Cache().OnCacheMiss(ctx, "raster")

	out := buf.String()
	for _, want := range []string{"stroke committed", "dy", "http error", "boom", "cache miss"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

type testEditHooks struct{ NoopEditHooks }
type testCacheHooks struct{ NoopCacheHooks }
type testHTTPHooks struct{ NoopHTTPHooks }
