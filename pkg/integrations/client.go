package integrations

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/matzehuels/gradlab/pkg/cache"
	"github.com/matzehuels/gradlab/pkg/observability"
)

// Client provides shared HTTP functionality for service API clients.
// It handles caching, retry logic, and common request headers.
type Client struct {
	http    *http.Client
	cache   cache.Cache
	prefix  string
	ttl     time.Duration
	headers map[string]string
	retry   cache.RetryPolicy
}

// NewClient creates a Client with the given cache and default headers.
// prefix namespaces this client's cache keys and ttl bounds their lifetime.
// Headers are applied to all requests made through this client; pass nil if
// none are needed. A nil cache disables caching.
func NewClient(c cache.Cache, prefix string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:    NewHTTPClient(),
		cache:   c,
		prefix:  prefix,
		ttl:     ttl,
		headers: headers,
		retry:   cache.DefaultRetry,
	}
}

// SetHTTPClient replaces the underlying HTTP client (for tests and custom
// transports).
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// SetTimeout sets the per-request timeout of the underlying HTTP client.
// Non-positive values are ignored.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.http.Timeout = d
	}
}

// SetRetry replaces the retry policy.
func (c *Client) SetRetry(p cache.RetryPolicy) {
	c.retry = p
}

// Retry runs fn under the client's retry policy. Only errors marked
// retryable (transport failures and 5xx responses) are retried.
func (c *Client) Retry(ctx context.Context, fn func() error) error {
	return c.retry.Do(ctx, fn)
}

// Cached retrieves a JSON value from cache or executes fetch and caches the
// result. If refresh is true, the cache is bypassed and fetch is always
// called. The fetch function should populate v; on success v is stored.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	key = c.prefix + key
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok && json.Unmarshal(data, v) == nil {
			observability.Cache().OnCacheHit(ctx, c.prefix)
			return nil
		}
		observability.Cache().OnCacheMiss(ctx, c.prefix)
	}
	if err := c.Retry(ctx, fetch); err != nil {
		return err
	}
	if data, err := json.Marshal(v); err == nil {
		_ = c.cache.Set(ctx, key, data, c.ttl)
		observability.Cache().OnCacheSet(ctx, c.prefix, len(data))
	}
	return nil
}

// CachedBytes is [Client.Cached] for raw byte payloads.
func (c *Client) CachedBytes(ctx context.Context, key string, refresh bool, fetch func() ([]byte, error)) ([]byte, error) {
	key = c.prefix + key
	if !refresh {
		if data, ok, _ := c.cache.Get(ctx, key); ok {
			observability.Cache().OnCacheHit(ctx, c.prefix)
			return data, nil
		}
		observability.Cache().OnCacheMiss(ctx, c.prefix)
	}
	var data []byte
	err := c.Retry(ctx, func() error {
		var err error
		data, err = fetch()
		return err
	})
	if err != nil {
		return nil, err
	}
	_ = c.cache.Set(ctx, key, data, c.ttl)
	observability.Cache().OnCacheSet(ctx, c.prefix, len(data))
	return data, nil
}

// Get performs an HTTP GET request and JSON-decodes the response into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	return c.GetWithHeaders(ctx, url, nil, v)
}

// GetWithHeaders performs an HTTP GET with additional headers merged with defaults.
// Request-specific headers override client defaults for the same key.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string, v any) error {
	body, _, err := c.do(ctx, http.MethodGet, url, nil, headers)
	if err != nil {
		return err
	}
	defer body.Close()
	return decodeJSON(body, v)
}

// GetBytes performs an HTTP GET and returns the body and its content type.
func (c *Client) GetBytes(ctx context.Context, url string) ([]byte, string, error) {
	body, ctype, err := c.do(ctx, http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, "", err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, "", cache.Retryable(fmt.Errorf("%w: read body: %v", ErrNetwork, err))
	}
	return data, ctype, nil
}

// PostJSON sends in as a JSON body and decodes the JSON response into out.
// out may be nil to discard the response.
func (c *Client) PostJSON(ctx context.Context, url string, in, out any) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	body, _, err := c.do(ctx, http.MethodPost, url, func() (io.Reader, string) {
		return bytes.NewReader(payload), "application/json"
	}, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	if out == nil {
		_, _ = io.Copy(io.Discard, body)
		return nil
	}
	return decodeJSON(body, out)
}

// PostMultipart uploads data as a single file field and decodes the JSON
// response into out.
func (c *Client) PostMultipart(ctx context.Context, url, field, filename string, data []byte, out any) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		return fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write form file: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("close multipart writer: %w", err)
	}
	payload := buf.Bytes()

	body, _, err := c.do(ctx, http.MethodPost, url, func() (io.Reader, string) {
		return bytes.NewReader(payload), mw.FormDataContentType()
	}, nil)
	if err != nil {
		return err
	}
	defer body.Close()
	return decodeJSON(body, out)
}

func decodeJSON(r io.Reader, v any) error {
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// do issues one request. body, if non-nil, returns a fresh reader and its
// content type, so a retried request resends the full payload.
func (c *Client) do(ctx context.Context, method, rawURL string, body func() (io.Reader, string), headers map[string]string) (io.ReadCloser, string, error) {
	var r io.Reader
	var ctype string
	if body != nil {
		r, ctype = body()
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, r)
	if err != nil {
		return nil, "", err
	}
	if ctype != "" {
		req.Header.Set("Content-Type", ctype)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	host, path := splitURL(rawURL)
	hooks := observability.HTTP()
	hooks.OnRequest(ctx, method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, method, host, path, err)
		if ctx.Err() != nil {
			return nil, "", ctx.Err()
		}
		return nil, "", cache.Retryable(fmt.Errorf("%w: %v", ErrNetwork, err))
	}
	hooks.OnResponse(ctx, method, host, path, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()
		return nil, "", checkStatus(resp.StatusCode, data)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

// checkStatus maps a response status (and its body, for non-2xx) to an error.
// 404 wraps ErrNotFound, 5xx is retryable, other failures carry the decoded
// ServiceError.
func checkStatus(code int, body []byte) error {
	if code >= 200 && code <= 299 {
		return nil
	}
	se := decodeServiceError(code, body)
	switch {
	case code == http.StatusNotFound:
		return fmt.Errorf("%w: %w", ErrNotFound, se)
	case code >= 500:
		return cache.Retryable(fmt.Errorf("%w: %w", ErrNetwork, se))
	default:
		return se
	}
}

func splitURL(raw string) (host, path string) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", raw
	}
	return u.Host, u.Path
}
