package main

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newMockBookStorage() *MockBookStorage {
	return &MockBookStorage{
		AddFunc: func(ctx context.Context, id string, book Book) error {
			return nil
		},
		GetOneFunc: func(ctx context.Context, id string) (Book, error) {
			return Book{ID: id}, nil
		},
		AddCommentFunc: func(ctx context.Context, id, comment, updatedAt string) (Book, error) {
			return Book{ID: id, Comments: []string{comment}}, nil
		},
		DeleteFunc: func(ctx context.Context, id string) error {
			return nil
		},
		UpdateFunc: func(ctx context.Context, id string, book Book) (Book, error) {
			return book, nil
		},
		GetAllFunc: func(ctx context.Context) ([]Book, error) {
			return []Book{}, nil
		},
		DeleteAllFunc: func(ctx context.Context) error {
			return nil
		},
	}
}

// TestSetupBookRoutes ensures all expected book endpoints are implemented.
func TestSetupBookRoutes(t *testing.T) {
	bookPath := "/books/b:cb8f2136-fae4-4200-85d9-3533c7f8c70d"
	testCases := []struct {
		name        string
		request     *http.Request
		implemented bool
	}{
		{"index endpoint", httptest.NewRequest(http.MethodGet, "/", nil), true},
		{"status endpoint", httptest.NewRequest(http.MethodGet, "/status", nil), true},
		{"create book endpoint", httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"fetch all books endpoint", httptest.NewRequest(http.MethodGet, "/books", nil), true},
		{"fetch all books endpoint with slash", httptest.NewRequest(http.MethodGet, "/books/", nil), true},
		{"delete all books endpoint", httptest.NewRequest(http.MethodDelete, "/books", nil), true},
		{"fetch single book endpoint", httptest.NewRequest(http.MethodGet, bookPath, nil), true},
		{"add comment endpoint", httptest.NewRequest(http.MethodPost, bookPath, nil), true},
		{"delete book endpoint", httptest.NewRequest(http.MethodDelete, bookPath, nil), true},
		{"unsupported method on book", httptest.NewRequest(http.MethodPut, bookPath, nil), false},
		{"unsupported method on books", httptest.NewRequest(http.MethodPatch, "/books", nil), false},
		{"versioned books endpoint", httptest.NewRequest(http.MethodGet, "/v1/books", nil), false},
		{"nested book endpoint", httptest.NewRequest(http.MethodGet, bookPath+"/comments", nil), false},
	}

	config := &Config{}
	config.Server.ViewsFolder = "views"
	bs := NewBookService(zap.NewNop(), config, NewMockClocker(), newMockBookStorage(), nil)
	api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("", true), bs)
	router := httprouter.New()
	router.HandleMethodNotAllowed = false
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api.SetupBookRoutes(router, m)

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupOpsRoutes ensures all expected operations endpoints are implemented.
func TestSetupOpsRoutes(t *testing.T) {
	testCases := []struct {
		name        string
		profiler    bool
		request     *http.Request
		implemented bool
	}{
		{"fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"fetch stats endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/stats", nil), true},
		{"maintenance mode endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/maintenance", nil), true},
		{"memory stats endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/vars", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops", nil), false},
		{"unknown ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/unknown", nil), false},
		{"disabled profiler endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"enabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), true},
		{"enabled profiler cmdline endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/cmdline", nil), true},
		{"enabled heap profile endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/heap", nil), true},
		{"disabled heap profile endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/heap", nil), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := &Config{ProfilerEndpointsEnable: tc.profiler}
			api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), nil, nil)
			router := httprouter.New()
			m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
			api.SetupOpsRoutes(router, m)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes ensures all expected endpoints are implemented.
func TestSetupRoutes(t *testing.T) {
	testCases := []struct {
		name               string
		OpsEndpointsEnable bool
		request            *http.Request
		implemented        bool
	}{
		{"ops disable:fetch configs endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), false},
		{"ops enable:fetch configs endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/configs", nil), true},
		{"ops enable:disabled profiler endpoint", true, httptest.NewRequest(http.MethodGet, "/ops/debug/pprof/", nil), false},
		{"ops disable:create book endpoint", false, httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"ops enable:create book endpoint", true, httptest.NewRequest(http.MethodPost, "/books", nil), true},
		{"swagger docs endpoint", false, httptest.NewRequest(http.MethodGet, "/swagger/doc.json", nil), true},
		{"invalid ops endpoint", false, httptest.NewRequest(http.MethodGet, "/ops/", nil), false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			config := &Config{OpsEndpointsEnable: tc.OpsEndpointsEnable}
			bs := NewBookService(zap.NewNop(), config, NewMockClocker(), newMockBookStorage(), nil)
			api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc", true), bs)
			m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
			router := api.SetupRoutes(httprouter.New(), m)

			w := httptest.NewRecorder()
			router.ServeHTTP(w, tc.request)
			if tc.implemented {
				assert.NotEqual(t, 404, w.Code)
			} else {
				assert.Equal(t, 404, w.Code)
			}
		})
	}
}

// TestSetupRoutes_NotFound ensures exact status code and text response body when a user requests an inexistant route.
func TestSetupRoutes_NotFound(t *testing.T) {
	requests := []*http.Request{
		httptest.NewRequest(http.MethodGet, "/x/books/", nil),
		httptest.NewRequest(http.MethodPut, "/books", nil),
		httptest.NewRequest(http.MethodDelete, "/status", nil),
	}
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	api := NewAPIHandler(zap.NewNop(), &Config{}, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc", true), nil)
	router := api.SetupRoutes(httprouter.New(), m)

	for _, r := range requests {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, r)

		res := w.Result()
		data, err := io.ReadAll(res.Body)
		res.Body.Close()
		require.NoError(t, err)
		assert.Equal(t, http.StatusNotFound, res.StatusCode)
		assert.Equal(t, "text/plain; charset=UTF-8", res.Header.Get("Content-Type"))
		assert.Equal(t, MsgNotFound, string(data))
	}
}

// TestRouterWithMiddlewares runs requests through the full public chain.
func TestRouterWithMiddlewares(t *testing.T) {
	config := &Config{}
	bs := NewBookService(zap.NewNop(), config, NewMockClocker(), newMockBookStorage(), nil)
	api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc", true), bs)
	router := api.SetupRoutes(httprouter.New(), NewMiddlewareMap(api.MiddlewaresStacks()))

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/books", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "r:abc", w.Header().Get("X-Request-ID"))
	assert.JSONEq(t, `[]`, w.Body.String())
	assert.Equal(t, uint64(1), api.stats.called)
	assert.Equal(t, uint64(1), api.stats.status[http.StatusOK])
}

// TestSetupRoutes_PublicFiles ensures assets are served and missing ones
// get the same plain text answer as unknown routes.
func TestSetupRoutes_PublicFiles(t *testing.T) {
	folder := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(folder, "style.css"), []byte("body{}"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(folder, "img"), 0o700))

	config := &Config{}
	config.Server.PublicFolder = folder
	api := NewAPIHandler(zap.NewNop(), config, &Statistics{started: NewMockClocker().Now()}, NewMockClocker(), NewMockUIDHandler("abc", true), nil)
	m := &MiddlewareMap{public: (&Middlewares{}).Chain, ops: (&Middlewares{}).Chain}
	router := api.SetupRoutes(httprouter.New(), m)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/public/style.css", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "body{}", w.Body.String())

	for _, p := range []string{"/public/missing.css", "/public/img", "/public/img/", "/public/"} {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, p, nil))
		assert.Equal(t, http.StatusNotFound, w.Code, p)
		assert.Equal(t, "text/plain; charset=UTF-8", w.Header().Get("Content-Type"), p)
		assert.Equal(t, MsgNotFound, w.Body.String(), p)
	}
}
