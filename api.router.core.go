package main

import (
	"net/http"
	"path"

	_ "github.com/jeamon/books-catalog/docs"
	"github.com/julienschmidt/httprouter"
	httpswagger "github.com/swaggo/http-swagger/v2"
)

// MiddlewareMap holds the chains applied to public and ops routes.
type MiddlewareMap struct {
	public func(httprouter.Handle) httprouter.Handle
	ops    func(httprouter.Handle) httprouter.Handle
}

// NewMiddlewareMap builds the map from both middlewares stacks.
func NewMiddlewareMap(public, ops *Middlewares) *MiddlewareMap {
	return &MiddlewareMap{public: public.Chain, ops: ops.Chain}
}

// SetupRoutes injects book and ops related endpoints if required.
// Unsupported methods on known paths are reported like unknown paths.
func (api *APIHandler) SetupRoutes(router *httprouter.Router, m *MiddlewareMap) *httprouter.Router {
	router.RedirectTrailingSlash = true
	router.HandleMethodNotAllowed = false
	router.NotFound = api.NotFound()
	api.SetupBookRoutes(router, m)
	if api.config.OpsEndpointsEnable {
		api.SetupOpsRoutes(router, m)
	}
	router.GET("/swagger/*any", m.public(api.OpsHandlerWrapper(httpswagger.WrapHandler)))
	if api.config.Server.PublicFolder != "" {
		router.GET("/public/*filepath", m.public(api.PublicFiles(http.Dir(api.config.Server.PublicFolder))))
	}
	return router
}

// PublicFiles serves the static assets. Missing files and folders
// are answered like any unknown route.
func (api *APIHandler) PublicFiles(root http.FileSystem) httprouter.Handle {
	fileServer := http.FileServer(root)
	notFound := api.NotFound()
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		name := path.Clean("/" + ps.ByName("filepath"))
		f, err := root.Open(name)
		if err != nil {
			notFound.ServeHTTP(w, r)
			return
		}
		info, err := f.Stat()
		_ = f.Close()
		if err != nil || info.IsDir() {
			notFound.ServeHTTP(w, r)
			return
		}
		req := r.Clone(r.Context())
		req.URL.Path = name
		fileServer.ServeHTTP(w, req)
	}
}
