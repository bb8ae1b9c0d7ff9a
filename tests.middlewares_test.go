package main

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAPIHandler(config *Config) *APIHandler {
	return NewAPIHandler(zap.NewNop(), config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("0", true), nil)
}

// TestMiddlewaresStacks ensures we get both public and ops middlewares
// stacks with exact number of elements in those stacks.
func TestMiddlewaresStacks(t *testing.T) {
	t.Run("without rate limiting", func(t *testing.T) {
		api := newTestAPIHandler(&Config{})
		pub, ops := api.MiddlewaresStacks()
		assert.Equal(t, 7, len(*pub))
		assert.Equal(t, 5, len(*ops))
	})

	t.Run("with rate limiting", func(t *testing.T) {
		api := newTestAPIHandler(&Config{RateLimit: RateLimitConfig{Enable: true, RequestsPerSecond: 1, Burst: 1}})
		pub, ops := api.MiddlewaresStacks()
		assert.Equal(t, 8, len(*pub))
		assert.Equal(t, 5, len(*ops))
	})
}

// TestChain ensures each middleware in the stack is called as well the handler.
func TestChain(t *testing.T) {
	var ca, cb, cc, ch bool
	queue := make(chan int, 4)

	middlewareA := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 1
			ca = true
			next(w, r, ps)
		}
	}
	middlewareB := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 2
			cb = true
			next(w, r, ps)
		}
	}
	middlewareC := func(next httprouter.Handle) httprouter.Handle {
		return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			queue <- 3
			cc = true
			next(w, r, ps)
		}
	}
	middlewares := Middlewares{
		middlewareA,
		middlewareB,
		middlewareC,
	}

	handler := func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		queue <- 4
		ch = true
	}

	chained := (&middlewares).Chain(handler)
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	chained(w, req, nil)

	t.Run("check calling", func(t *testing.T) {
		assert.Equal(t, true, ca)
		assert.Equal(t, true, cb)
		assert.Equal(t, true, cc)
		assert.Equal(t, true, ch)
	})

	t.Run("check ordering", func(t *testing.T) {
		assert.Equal(t, 1, <-queue)
		assert.Equal(t, 2, <-queue)
		assert.Equal(t, 3, <-queue)
		assert.Equal(t, 4, <-queue)
	})
}

// TestRequestsCounterMiddleware ensures the request counter increment.
func TestRequestsCounterMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{})
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	var num uint64
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		num = GetRequestNumberFromContext(req.Context())
	}
	wrapped := api.RequestsCounterMiddleware(handler)
	wrapped(w, req, nil)
	wrapped(w, req, nil)
	assert.Equal(t, uint64(2), num)
	assert.Equal(t, uint64(2), api.stats.called)
}

func TestRequestIDMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{})
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	var requestID string
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		requestID = GetValueFromContext(req.Context(), RequestIDContextKey)
	}
	api.RequestIDMiddleware(handler)(w, req, nil)
	assert.Equal(t, "r:0", requestID)
	assert.Equal(t, "r:0", w.Header().Get("X-Request-ID"))
}

func TestPanicRecoveryMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{})
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		panic("boom")
	}
	assert.NotPanics(t, func() {
		api.PanicRecoveryMiddleware(handler)(w, req, nil)
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgServerError, w.Body.String())
}

func TestStatsMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{})
	ok := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		_, _ = w.Write([]byte("ok"))
	}
	missing := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		w.WriteHeader(http.StatusNotFound)
	}
	for i := 0; i < 3; i++ {
		api.StatsMiddleware(ok)(httptest.NewRecorder(), httptest.NewRequest("GET", "/books", nil), nil)
	}
	api.StatsMiddleware(missing)(httptest.NewRecorder(), httptest.NewRequest("GET", "/none", nil), nil)
	assert.Equal(t, uint64(3), api.stats.status[http.StatusOK])
	assert.Equal(t, uint64(1), api.stats.status[http.StatusNotFound])
}

func TestCoreMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{})
	req := httptest.NewRequest("GET", "/books", nil)
	w := httptest.NewRecorder()
	var logger *zap.Logger
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		logger, _ = req.Context().Value(LoggerContextKey).(*zap.Logger)
	}
	api.CoreMiddleware(handler)(w, req, nil)
	assert.NotNil(t, logger)
}

func TestCORSMiddleware(t *testing.T) {
	w := httptest.NewRecorder()
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {}
	CORSMiddleware(handler)(w, httptest.NewRequest("GET", "/books", nil), nil)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestMaintenanceModeMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{})
	var called bool
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		called = true
	}
	wrapped := api.MaintenanceModeMiddleware(handler)

	w := httptest.NewRecorder()
	wrapped(w, httptest.NewRequest("GET", "/books", nil), nil)
	assert.True(t, called)

	api.Maintenance(httptest.NewRecorder(), httptest.NewRequest("GET", "/ops/maintenance?status=enable&msg=upgrading", nil), nil)
	called = false
	w = httptest.NewRecorder()
	wrapped(w, httptest.NewRequest("GET", "/books", nil), nil)
	assert.False(t, called)
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "upgrading"))

	api.Maintenance(httptest.NewRecorder(), httptest.NewRequest("GET", "/ops/maintenance?status=disable", nil), nil)
	w = httptest.NewRecorder()
	wrapped(w, httptest.NewRequest("GET", "/books", nil), nil)
	assert.True(t, called)
}

func TestRateLimitMiddleware(t *testing.T) {
	api := newTestAPIHandler(&Config{RateLimit: RateLimitConfig{Enable: true, RequestsPerSecond: 1, Burst: 2, IdleTimeout: time.Minute}})
	require.NotNil(t, api.limiter)
	handler := func(w http.ResponseWriter, req *http.Request, ps httprouter.Params) {
		w.WriteHeader(http.StatusOK)
	}
	wrapped := api.RateLimitMiddleware(handler)

	call := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest("GET", "/books", nil)
		req.RemoteAddr = ip + ":1234"
		w := httptest.NewRecorder()
		wrapped(w, req, nil)
		return w
	}

	// the mocked clock never moves so no token is refilled.
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	assert.Equal(t, http.StatusOK, call("10.0.0.1").Code)
	w := call("10.0.0.1")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, MsgTooManyRequests, w.Body.String())

	assert.Equal(t, http.StatusOK, call("10.0.0.2").Code)
}

func TestIPRateLimiterPurge(t *testing.T) {
	clock := NewMockClocker()
	limiter := NewIPRateLimiter(RateLimitConfig{RequestsPerSecond: 1, Burst: 1, IdleTimeout: time.Minute}, clock)
	limiter.Allow("10.0.0.1")
	assert.Equal(t, 0, limiter.Purge())

	clock.MockNow = clock.MockNow.Add(2 * time.Minute)
	limiter.Allow("10.0.0.2")
	assert.Equal(t, 1, limiter.Purge())
	assert.Len(t, limiter.visitors, 1)
}
