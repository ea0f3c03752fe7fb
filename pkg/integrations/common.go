package integrations

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	gerrors "github.com/matzehuels/gradlab/pkg/errors"
)

const httpTimeout = 30 * time.Second

var (
	// ErrNotFound is returned when the service reports a missing resource.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for HTTP failures (timeouts, connection errors, 5xx responses).
	ErrNetwork = errors.New("network error")
)

// NewHTTPClient creates an HTTP client with the standard service timeout.
func NewHTTPClient() *http.Client {
	return &http.Client{Timeout: httpTimeout}
}

// ResolveURL resolves a resource reference returned by the service against
// base. References beginning with "http" (and data URLs) are returned as is;
// anything else is treated as a path on base. An empty reference resolves to
// the empty string.
func ResolveURL(base, ref string) string {
	switch {
	case ref == "":
		return ""
	case strings.HasPrefix(ref, "http"), strings.HasPrefix(ref, "data:"):
		return ref
	}
	base = strings.TrimRight(base, "/")
	if !strings.HasPrefix(ref, "/") {
		ref = "/" + ref
	}
	return base + ref
}

// URLEncode percent-encodes a string for use in URLs.
// This is a convenience wrapper around [url.QueryEscape].
func URLEncode(s string) string { return url.QueryEscape(s) }

// errorBody covers both error envelopes the service emits:
// {"error":{code,message}} and FastAPI's {"detail":{code,message}} or
// {"detail":"message"}.
type errorBody struct {
	Error  *errorDetail    `json:"error"`
	Detail json.RawMessage `json:"detail"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

const maxErrorText = 200

// decodeServiceError builds a ServiceError from a non-2xx response body.
func decodeServiceError(status int, body []byte) *gerrors.ServiceError {
	se := &gerrors.ServiceError{Status: status}

	var eb errorBody
	if json.Unmarshal(body, &eb) == nil {
		switch {
		case eb.Error != nil:
			se.Code, se.Message = eb.Error.Code, eb.Error.Message
		case len(eb.Detail) > 0:
			var d errorDetail
			var s string
			if json.Unmarshal(eb.Detail, &d) == nil && (d.Code != "" || d.Message != "") {
				se.Code, se.Message = d.Code, d.Message
			} else if json.Unmarshal(eb.Detail, &s) == nil {
				se.Message = s
			}
		}
	}

	if se.Message == "" {
		text := strings.TrimSpace(string(body))
		if len(text) > maxErrorText {
			text = text[:maxErrorText] + "..."
		}
		if text == "" {
			text = http.StatusText(status)
		}
		se.Message = text
	}
	return se
}
