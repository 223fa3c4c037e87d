package server

func (s *Server) initRoutes() {
	s.RegisterRouteHandler("GET "+RouteIndex, ChainMiddleware(s.IndexHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteAuth, ChainMiddleware(s.ForumHandler(), s.HTMLMiddleWare(s.RequireForumAuth)...))
	s.RegisterRouteHandler("GET "+RouteCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("GET "+RouteRefresh, ChainMiddleware(s.RefreshHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUp, s.UpHandler())

	// CORS preflight for the script-called endpoints
	s.RegisterRouteHandler("OPTIONS "+RouteSession, ChainMiddleware(s.preflightHandler, s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteRefresh, ChainMiddleware(s.preflightHandler, s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteStatic, ChainMiddleware(s.staticHandler(), s.HTMLMiddleWare()...))
}
