package middleware_test

import (
	"context"
	"crypto/tls"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/serroba/shortlink/internal/middleware"
	"github.com/serroba/shortlink/internal/ratelimit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testHostAddr       = "192.168.1.1:12345"
	testUserAgent      = "TestAgent/1.0"
	testUserAgentShort = "TestAgent"
)

var errMultipartNotSupported = errors.New("multipart not supported in mock")

func newTestAPI() huma.API {
	return humachi.New(chi.NewMux(), huma.DefaultConfig("Test", "1.0.0"))
}

// recordingStore counts records per key and can fail.
type recordingStore struct {
	counts map[string]int64
	err    error
}

func newRecordingStore() *recordingStore {
	return &recordingStore{counts: make(map[string]int64)}
}

func (s *recordingStore) Record(_ context.Context, key string, _ time.Duration) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}

	s.counts[key]++

	return s.counts[key], nil
}

func (s *recordingStore) keys() []string {
	keys := make([]string, 0, len(s.counts))
	for k := range s.counts {
		keys = append(keys, k)
	}

	return keys
}

func newScopedLimiter(store ratelimit.Store, createMax, resolveMax int64) *ratelimit.ScopedLimiter {
	return ratelimit.NewScopedLimiter(map[ratelimit.Scope]ratelimit.Limiter{
		ratelimit.ScopeCreate:  ratelimit.NewSlidingWindowLimiter(store, createMax, time.Minute),
		ratelimit.ScopeResolve: ratelimit.NewSlidingWindowLimiter(store, resolveMax, time.Minute),
	})
}

func newClientContext(remoteAddr, userAgent string) *mockHumaContext {
	ctx := newMockHumaContext()
	ctx.remoteAddr = remoteAddr
	ctx.headers["User-Agent"] = userAgent

	return ctx
}

func allowedThrough(mw func(huma.Context, func(huma.Context)), ctx huma.Context) bool {
	called := false

	mw(ctx, func(_ huma.Context) { called = true })

	return called
}

// mockHumaContext implements huma.Context for testing.
type mockHumaContext struct {
	headers    map[string]string
	host       string
	remoteAddr string
	written    []byte
	statusCode int
	method     string
	operation  *huma.Operation
}

func newMockHumaContext() *mockHumaContext {
	return &mockHumaContext{
		headers: make(map[string]string),
		method:  "GET",
	}
}

func (m *mockHumaContext) Operation() *huma.Operation {
	return m.operation
}
func (m *mockHumaContext) Context() context.Context              { return context.Background() }
func (m *mockHumaContext) TLS() *tls.ConnectionState             { return nil }
func (m *mockHumaContext) Version() huma.ProtoVersion            { return huma.ProtoVersion{} }
func (m *mockHumaContext) Method() string                        { return m.method }
func (m *mockHumaContext) Host() string                          { return m.host }
func (m *mockHumaContext) RemoteAddr() string                    { return m.remoteAddr }
func (m *mockHumaContext) URL() url.URL                          { return url.URL{} }
func (m *mockHumaContext) Param(_ string) string                 { return "" }
func (m *mockHumaContext) Query(_ string) string                 { return "" }
func (m *mockHumaContext) Header(name string) string             { return m.headers[name] }
func (m *mockHumaContext) EachHeader(_ func(name, value string)) {}
func (m *mockHumaContext) BodyReader() io.Reader                 { return nil }
func (m *mockHumaContext) GetMultipartForm() (*multipart.Form, error) {
	return nil, errMultipartNotSupported
}
func (m *mockHumaContext) SetReadDeadline(_ time.Time) error { return nil }
func (m *mockHumaContext) SetStatus(code int)                { m.statusCode = code }
func (m *mockHumaContext) Status() int                       { return m.statusCode }
func (m *mockHumaContext) AppendHeader(_, _ string)          {}
func (m *mockHumaContext) SetHeader(_, _ string)             {}
func (m *mockHumaContext) BodyWriter() io.Writer             { return &mockBodyWriter{ctx: m} }

type mockBodyWriter struct {
	ctx *mockHumaContext
}

func (w *mockBodyWriter) Write(p []byte) (n int, err error) {
	w.ctx.written = append(w.ctx.written, p...)

	return len(p), nil
}

func TestRateLimiter(t *testing.T) {
	t.Run("allows request under limit", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(newRecordingStore(), 1, 10), zap.NewNop())

		assert.True(t, allowedThrough(mw, newClientContext(testHostAddr, testUserAgent)))
	})

	t.Run("returns 429 when rate limited", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(newRecordingStore(), 1, 10), zap.NewNop())

		first := newClientContext(testHostAddr, testUserAgent)
		first.method = http.MethodPost
		require.True(t, allowedThrough(mw, first))

		second := newClientContext(testHostAddr, testUserAgent)
		second.method = http.MethodPost

		assert.False(t, allowedThrough(mw, second), "next should not be called when rate limited")
		assert.Equal(t, http.StatusTooManyRequests, second.statusCode)
		assert.Contains(t, string(second.written), "rate limit exceeded: create")
	})

	t.Run("create and resolve budgets are separate", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(newRecordingStore(), 1, 10), zap.NewNop())

		post := newClientContext(testHostAddr, testUserAgent)
		post.method = http.MethodPost
		require.True(t, allowedThrough(mw, post))

		for i := range 10 {
			get := newClientContext(testHostAddr, testUserAgent)

			assert.True(t, allowedThrough(mw, get), "resolve request %d should be allowed", i+1)
		}

		get := newClientContext(testHostAddr, testUserAgent)
		assert.False(t, allowedThrough(mw, get), "11th resolve request should be denied")
	})

	t.Run("skips disabled operations", func(t *testing.T) {
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(newRecordingStore(), 0, 0), zap.NewNop())

		ctx := newClientContext(testHostAddr, testUserAgent)
		ctx.operation = &huma.Operation{
			Path:     "/health",
			Metadata: ratelimit.Metadata(ratelimit.EndpointConfig{Disabled: true}),
		}

		assert.True(t, allowedThrough(mw, ctx))
	})

	t.Run("operation scope overrides method", func(t *testing.T) {
		store := newRecordingStore()
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(store, 10, 10), zap.NewNop())

		ctx := newClientContext(testHostAddr, testUserAgent)
		ctx.method = http.MethodPost
		ctx.operation = &huma.Operation{
			Path:     "/api/links/preview",
			Metadata: ratelimit.Metadata(ratelimit.EndpointConfig{Scope: ratelimit.ScopeResolve}),
		}

		require.True(t, allowedThrough(mw, ctx))
		require.Len(t, store.keys(), 1)
		assert.True(t, strings.HasPrefix(store.keys()[0], "resolve:"))
	})

	t.Run("returns 500 on store error", func(t *testing.T) {
		store := newRecordingStore()
		store.err = errors.New("store error")
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(store, 10, 10), zap.NewNop())

		ctx := newClientContext(testHostAddr, testUserAgent)

		assert.False(t, allowedThrough(mw, ctx))
		assert.Equal(t, http.StatusInternalServerError, ctx.statusCode)
	})
}

func TestRateLimiter_ClientKey(t *testing.T) {
	keyFor := func(t *testing.T, ctx *mockHumaContext) string {
		t.Helper()

		store := newRecordingStore()
		mw := middleware.RateLimiter(newTestAPI(), newScopedLimiter(store, 10, 10), zap.NewNop())

		require.True(t, allowedThrough(mw, ctx))
		require.Len(t, store.keys(), 1)

		return store.keys()[0]
	}

	t.Run("same IP and User-Agent share a key", func(t *testing.T) {
		assert.Equal(t,
			keyFor(t, newClientContext(testHostAddr, testUserAgent)),
			keyFor(t, newClientContext(testHostAddr, testUserAgent)),
		)
	})

	t.Run("different User-Agent gets a different key", func(t *testing.T) {
		assert.NotEqual(t,
			keyFor(t, newClientContext(testHostAddr, testUserAgent)),
			keyFor(t, newClientContext(testHostAddr, "DifferentAgent/2.0")),
		)
	})

	t.Run("uses first X-Forwarded-For entry", func(t *testing.T) {
		ctx1 := newClientContext("10.0.0.1:12345", testUserAgentShort)
		ctx1.headers["X-Forwarded-For"] = "203.0.113.195, 70.41.3.18, 150.172.238.178"

		ctx2 := newClientContext("10.0.0.2:54321", testUserAgentShort)
		ctx2.headers["X-Forwarded-For"] = "203.0.113.195"

		assert.Equal(t, keyFor(t, ctx1), keyFor(t, ctx2))
	})

	t.Run("uses X-Real-IP when present", func(t *testing.T) {
		ctx1 := newClientContext("10.0.0.1:12345", testUserAgentShort)
		ctx1.headers["X-Real-IP"] = "203.0.113.100"

		ctx2 := newClientContext("10.0.0.2:54321", testUserAgentShort)
		ctx2.headers["X-Real-IP"] = "203.0.113.100"

		assert.Equal(t, keyFor(t, ctx1), keyFor(t, ctx2))
	})

	t.Run("falls back to host when remote addr is empty", func(t *testing.T) {
		ctx1 := newClientContext("", testUserAgentShort)
		ctx1.host = "192.168.1.1"

		ctx2 := newClientContext("192.168.1.1:999", testUserAgentShort)

		assert.Equal(t, keyFor(t, ctx1), keyFor(t, ctx2))
	})
}
