package server

// Route path constants
const (
	RouteIndex    = "/{$}"
	RouteSession  = "/session"
	RouteAuth     = "/auth"
	RouteCallback = "/auth/{provider}/callback"
	RouteRefresh  = "/auth/refresh"
	RouteUp       = "/up"

	// Static Asset Routes (patterns)
	RouteStatic = "/static/"
)

const (
	indexPage = "login.html"
	forumPage = "forum.html"
)
