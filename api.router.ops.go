package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// runtimeProfiles are the named pprof profiles exposed when profiling is on.
var runtimeProfiles = []string{"heap", "allocs", "goroutine", "threadcreate", "block", "mutex"}

// SetupOpsRoutes registers the catalog operations endpoints under /ops.
// The pprof endpoints are only added when profiling is enabled.
func (api *APIHandler) SetupOpsRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	ops := map[string]httprouter.Handle{
		"/ops/configs":     api.GetConfigs,
		"/ops/stats":       api.GetStatistics,
		"/ops/maintenance": api.Maintenance,
		"/ops/debug/vars":  GetMemStats,
		"/ops/debug/gc":    api.RunGC,
		"/ops/debug/fos":   api.FreeOSMemory,
	}

	if api.config.ProfilerEndpointsEnable {
		ops["/ops/debug/pprof/"] = api.OpsHandlerWrapper(http.HandlerFunc(pprof.Index))
		ops["/ops/debug/pprof/profile"] = api.GetCPUProfile
		ops["/ops/debug/pprof/trace"] = api.GetTraceProfile
		ops["/ops/debug/pprof/symbol"] = api.GetSymbol
		ops["/ops/debug/pprof/cmdline"] = api.GetCmdLine
		for _, name := range runtimeProfiles {
			ops["/ops/debug/pprof/"+name] = api.OpsHandlerWrapper(pprof.Handler(name))
		}
	}

	for path, handle := range ops {
		router.GET(path, m.ops(handle))
	}
	return router
}
