package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/matzehuels/gradlab/pkg/cache"
	gerrors "github.com/matzehuels/gradlab/pkg/errors"
)

var fastRetry = cache.RetryPolicy{Attempts: 3, Delay: time.Millisecond}

func newTestClient(t *testing.T, srv *httptest.Server, headers map[string]string) *Client {
	t.Helper()
	c, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { c.Close() })
	client := NewClient(c, "test:", time.Hour, headers)
	client.SetRetry(fastRetry)
	if srv != nil {
		client.SetHTTPClient(srv.Client())
	}
	return client
}

func TestNewClient(t *testing.T) {
	c, _ := cache.NewFileCache(t.TempDir())
	defer c.Close()

	client := NewClient(c, "test:", time.Hour, map[string]string{"Authorization": "Bearer token"})
	if client.http == nil {
		t.Error("NewClient() http client is nil")
	}
	if client.cache != c {
		t.Error("NewClient() cache not set correctly")
	}
	if client.headers["Authorization"] != "Bearer token" {
		t.Error("NewClient() headers not set correctly")
	}

	if _, ok := NewClient(nil, "", 0, nil).cache.(*cache.NullCache); !ok {
		t.Error("NewClient(nil cache) should fall back to NullCache")
	}
}

func TestClientGet(t *testing.T) {
	type response struct {
		Message string `json:"message"`
	}

	r := chi.NewRouter()
	r.Get("/hello", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(response{Message: "hello"})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	var resp response
	if err := newTestClient(t, srv, nil).Get(context.Background(), srv.URL+"/hello", &resp); err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if resp.Message != "hello" {
		t.Errorf("Get() message = %q, want %q", resp.Message, "hello")
	}
}

func TestClientGetWithHeadersOverridesDefaults(t *testing.T) {
	var override, def string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		override = r.Header.Get("X-Override")
		def = r.Header.Get("X-Default")
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}))
	defer srv.Close()

	client := newTestClient(t, srv, map[string]string{"X-Override": "default", "X-Default": "d"})
	var resp map[string]string
	err := client.GetWithHeaders(context.Background(), srv.URL, map[string]string{"X-Override": "overridden"}, &resp)
	if err != nil {
		t.Fatalf("GetWithHeaders() error: %v", err)
	}
	if override != "overridden" || def != "d" {
		t.Errorf("headers = %q/%q, want overridden/d", override, def)
	}
}

func TestClientGetBytes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("\x89PNG raw"))
	}))
	defer srv.Close()

	data, ctype, err := newTestClient(t, srv, nil).GetBytes(context.Background(), srv.URL)
	if err != nil {
		t.Fatalf("GetBytes() error: %v", err)
	}
	if string(data) != "\x89PNG raw" || ctype != "image/png" {
		t.Errorf("GetBytes() = %q, %q", data, ctype)
	}
}

func TestClientGet404(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":{"code":"IMAGE_NOT_FOUND","message":"No image x"}}`))
	}))
	defer srv.Close()

	var resp map[string]string
	err := newTestClient(t, srv, nil).Get(context.Background(), srv.URL, &resp)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("Get() error = %v, want ErrNotFound", err)
	}
	var se *gerrors.ServiceError
	if !errors.As(err, &se) || se.Code != "IMAGE_NOT_FOUND" {
		t.Errorf("Get() error should carry the service error, got %v", err)
	}
}

func TestClientGet500IsRetryable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var resp map[string]string
	err := newTestClient(t, srv, nil).Get(context.Background(), srv.URL, &resp)
	if !cache.IsRetryable(err) {
		t.Errorf("Get() error should be RetryableError, got %T", err)
	}
	if !errors.Is(err, ErrNetwork) {
		t.Errorf("Get() error should wrap ErrNetwork: %v", err)
	}
}

func TestClientRetryRecovers(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		json.NewEncoder(w).Encode(map[string]int{"n": 1})
	}))
	defer srv.Close()

	client := newTestClient(t, srv, nil)
	var resp map[string]int
	err := client.Retry(context.Background(), func() error {
		return client.Get(context.Background(), srv.URL, &resp)
	})
	if err != nil {
		t.Fatalf("Retry() error: %v", err)
	}
	if calls.Load() != 2 || resp["n"] != 1 {
		t.Errorf("calls = %d, resp = %v", calls.Load(), resp)
	}
}

func TestClientPostJSON(t *testing.T) {
	type req struct {
		ImageID string `json:"imageId"`
	}
	r := chi.NewRouter()
	r.Post("/api/analyze", func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("Content-Type = %q", ct)
		}
		var in req
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			t.Errorf("decode: %v", err)
		}
		json.NewEncoder(w).Encode(map[string]string{"echo": in.ImageID})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	var out map[string]string
	if err := newTestClient(t, srv, nil).PostJSON(context.Background(), srv.URL+"/api/analyze", req{"img-9"}, &out); err != nil {
		t.Fatalf("PostJSON() error: %v", err)
	}
	if out["echo"] != "img-9" {
		t.Errorf("PostJSON() = %v", out)
	}
}

func TestClientPostMultipart(t *testing.T) {
	r := chi.NewRouter()
	r.Post("/api/images", func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer f.Close()
		data, _ := io.ReadAll(f)
		json.NewEncoder(w).Encode(map[string]any{"name": hdr.Filename, "size": len(data)})
	})
	srv := httptest.NewServer(r)
	defer srv.Close()

	var out struct {
		Name string `json:"name"`
		Size int    `json:"size"`
	}
	err := newTestClient(t, srv, nil).PostMultipart(context.Background(), srv.URL+"/api/images", "file", "cat.png", []byte("12345"), &out)
	if err != nil {
		t.Fatalf("PostMultipart() error: %v", err)
	}
	if out.Name != "cat.png" || out.Size != 5 {
		t.Errorf("PostMultipart() = %+v", out)
	}
}

func TestClientCached(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()

	type data struct {
		Value string `json:"value"`
	}
	fetches := 0
	fetch := func(v *data) func() error {
		return func() error {
			fetches++
			v.Value = "fetched"
			return nil
		}
	}

	var first data
	if err := client.Cached(ctx, "k", false, &first, fetch(&first)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	var second data
	if err := client.Cached(ctx, "k", false, &second, fetch(&second)); err != nil {
		t.Fatalf("Cached() error: %v", err)
	}
	if fetches != 1 || second.Value != "fetched" {
		t.Errorf("fetches = %d, second = %+v; want 1 fetch and cached value", fetches, second)
	}

	var third data
	_ = client.Cached(ctx, "k", true, &third, fetch(&third))
	if fetches != 2 {
		t.Errorf("refresh should bypass cache, fetches = %d", fetches)
	}
}

func TestClientCachedFetchError(t *testing.T) {
	client := newTestClient(t, nil, nil)
	var v string
	calls := 0
	err := client.Cached(context.Background(), "err", false, &v, func() error {
		calls++
		return ErrNotFound
	})
	if !errors.Is(err, ErrNotFound) || calls != 1 {
		t.Errorf("Cached() = %v after %d calls", err, calls)
	}
}

func TestClientCachedBytes(t *testing.T) {
	client := newTestClient(t, nil, nil)
	ctx := context.Background()
	calls := 0
	fetch := func() ([]byte, error) {
		calls++
		return []byte("raster"), nil
	}
	for i := 0; i < 3; i++ {
		data, err := client.CachedBytes(ctx, "r", false, fetch)
		if err != nil || string(data) != "raster" {
			t.Fatalf("CachedBytes() = %q, %v", data, err)
		}
	}
	if calls != 1 {
		t.Errorf("fetch calls = %d, want 1", calls)
	}
}

func TestCheckStatus(t *testing.T) {
	tests := []struct {
		name      string
		code      int
		body      string
		wantErr   bool
		notFound  bool
		retryable bool
		svcCode   string
		svcMsg    string
	}{
		{name: "200 OK", code: 200},
		{name: "201 Created", code: 201},
		{name: "404", code: 404, wantErr: true, notFound: true},
		{name: "500", code: 500, wantErr: true, retryable: true},
		{name: "503", code: 503, wantErr: true, retryable: true},
		{
			name: "400 error envelope", code: 400, wantErr: true,
			body: `{"error":{"code":"INVALID_REQUEST","message":"bad png"}}`, svcCode: "INVALID_REQUEST", svcMsg: "bad png",
		},
		{
			name: "400 fastapi detail", code: 400, wantErr: true,
			body: `{"detail":{"code":"INVALID_REQUEST","message":"Edited dx does not match image dimensions"}}`,
			svcCode: "INVALID_REQUEST", svcMsg: "Edited dx does not match image dimensions",
		},
		{
			name: "422 detail string", code: 422, wantErr: true,
			body: `{"detail":"field required"}`, svcMsg: "field required",
		},
		{name: "403 plain", code: 403, wantErr: true, body: "nope", svcMsg: "nope"},
		{name: "400 empty", code: 400, wantErr: true, svcMsg: "Bad Request"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := checkStatus(tt.code, []byte(tt.body))
			if !tt.wantErr {
				if err != nil {
					t.Errorf("checkStatus() unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("checkStatus() should return error")
			}
			if tt.notFound != errors.Is(err, ErrNotFound) {
				t.Errorf("ErrNotFound match = %v, want %v", !tt.notFound, tt.notFound)
			}
			if tt.retryable != cache.IsRetryable(err) {
				t.Errorf("IsRetryable = %v, want %v", !tt.retryable, tt.retryable)
			}
			var se *gerrors.ServiceError
			if !errors.As(err, &se) {
				t.Fatalf("error %v does not carry a ServiceError", err)
			}
			if se.Status != tt.code {
				t.Errorf("Status = %d, want %d", se.Status, tt.code)
			}
			if tt.svcCode != "" && se.Code != tt.svcCode {
				t.Errorf("Code = %q, want %q", se.Code, tt.svcCode)
			}
			if tt.svcMsg != "" && se.Message != tt.svcMsg {
				t.Errorf("Message = %q, want %q", se.Message, tt.svcMsg)
			}
		})
	}
}

func TestResolveURL(t *testing.T) {
	tests := []struct {
		base, ref, want string
	}{
		{"http://localhost:8000", "/static/dx.png", "http://localhost:8000/static/dx.png"},
		{"http://localhost:8000/", "static/dx.png", "http://localhost:8000/static/dx.png"},
		{"http://localhost:8000", "https://cdn.example.com/a.png", "https://cdn.example.com/a.png"},
		{"http://localhost:8000", "data:image/png;base64,AAAA", "data:image/png;base64,AAAA"},
		{"http://localhost:8000", "", ""},
	}
	for _, tt := range tests {
		if got := ResolveURL(tt.base, tt.ref); got != tt.want {
			t.Errorf("ResolveURL(%q, %q) = %q, want %q", tt.base, tt.ref, got, tt.want)
		}
	}
}

func TestURLEncode(t *testing.T) {
	tests := []struct {
		input, want string
	}{
		{"hello", "hello"},
		{"hello world", "hello+world"},
		{"a=1&b=2", "a%3D1%26b%3D2"},
	}
	for _, tt := range tests {
		if got := URLEncode(tt.input); got != tt.want {
			t.Errorf("URLEncode(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestNewHTTPClient(t *testing.T) {
	if NewHTTPClient().Timeout != httpTimeout {
		t.Errorf("Timeout = %v, want %v", NewHTTPClient().Timeout, httpTimeout)
	}
}
