/*
Package dihttp provides HTTP middleware for creating [di.Container] scopes for each request.

Example:

	c, err := di.NewContainer(
		di.WithModule(ResourceModule),
		di.WithService(NewRequestLogger, di.Scoped),
	)
	if err != nil {
		return err
	}

	scopeMiddleware, err := dihttp.NewRequestScopeMiddleware(c)
	if err != nil {
		return err
	}

	r := chi.NewRouter()
	r.Use(scopeMiddleware)
	r.Get("/resources", func(w http.ResponseWriter, r *http.Request) {
		ctrl := dicontext.MustResolve[*ResourceController](r.Context())
		ctrl.List(w, r)
	})
*/
package dihttp
