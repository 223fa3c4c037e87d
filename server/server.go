package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/sse-forum/auth"
	"github.com/jrsteele09/sse-forum/internal/config"
	"github.com/jrsteele09/sse-forum/token"
	"github.com/rs/zerolog"
)

// Server is the browser-facing sign-in listener: landing page, gatekeeper
// guarded forum page, provider callback and token refresh.
type Server struct {
	env        string // Environment (e.g., "DEV", "PROD")
	mux        *http.ServeMux
	routes     []string
	fileServer http.Handler
	config     config.Config
	gatekeeper *auth.Gatekeeper
	identity   *token.IdentityIssuer
	logger     zerolog.Logger
}

func New(config config.Config, gatekeeper *auth.Gatekeeper, identity *token.IdentityIssuer, logger zerolog.Logger) *Server {
	s := &Server{
		env:        config.GetEnv(),
		mux:        http.NewServeMux(),
		fileServer: FileServerHandler(),
		config:     config,
		gatekeeper: gatekeeper,
		identity:   identity,
		logger:     logger,
	}

	s.initRoutes()
	s.logRoutes()

	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logger.Info().Msg(formatRoute(parts[0], parts[1]))
		} else {
			s.logger.Info().Msg(formatRoute("", parts[0]))
		}
	}
}

func formatRoute(method, path string) string {
	paddedMethod := fmt.Sprintf(" %-7s", method)
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	return fmt.Sprintf("[%-19s] %s", color+paddedMethod+ResetColor, path)
}
