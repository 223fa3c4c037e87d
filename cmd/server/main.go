package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gorilla/mux"
	"github.com/jrsteele09/sse-forum/auth"
	"github.com/jrsteele09/sse-forum/auth/sessions"
	"github.com/jrsteele09/sse-forum/hub"
	"github.com/jrsteele09/sse-forum/internal/config"
	"github.com/jrsteele09/sse-forum/internal/logging"
	"github.com/jrsteele09/sse-forum/provider"
	"github.com/jrsteele09/sse-forum/server"
	"github.com/jrsteele09/sse-forum/token"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const shutdownTimeout = 5 * time.Second

func main() {
	for {
		if err := run(); err != nil {
			log.Fatal().Err(err).Msg("Error running server")
		} else {
			break
		}
	}
	log.Info().Msg("Server stopped")
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("Recovered from panic")
			returnError = errors.New("panic recovered")
		}
	}()

	c, err := config.Load()
	if err != nil {
		return err
	}
	displayAppname(c.GetAppName())
	logger := logging.Setup(logging.Config{
		Service: c.GetAppName(),
		Env:     c.GetEnv(),
		Level:   c.GetLogLevel(),
	})

	creds := c.GetProviderCredentials()
	p, err := provider.New(c.GetProviderName(), provider.Options{
		Credentials: provider.Credentials{
			ClientID:     creds.ClientID,
			ClientSecret: creds.ClientSecret,
			RedirectURL:  creds.RedirectURL,
		},
		PKCE:    c.GetRequirePKCE(),
		Timeout: c.GetProviderTimeout(),
		Logger:  logger.With().Str("component", "provider").Logger(),
	})
	if err != nil {
		return fmt.Errorf("provider.New: %w", err)
	}
	logger.Info().Str("provider", p.Name()).Str("flow", p.FlowName()).Msg("OAuth provider configured")

	repo := sessions.NewInMemoryRepo(c.GetMaxSessionAge())
	housekeeper := sessions.NewHousekeeper(repo, logger.With().Str("component", "sessions").Logger(),
		c.GetSessionSweepInterval(), c.GetMaxSessionAge())
	housekeeper.Start()
	defer housekeeper.Stop()

	signer, err := token.NewHMACSigner(c.GetIdentitySecret())
	if err != nil {
		return fmt.Errorf("token.NewHMACSigner: %w", err)
	}
	identity := token.NewIdentityIssuer(signer)

	gatekeeper := auth.New(p, repo, logger.With().Str("component", "gatekeeper").Logger())

	forum := hub.New(hub.Options{
		BroadcastDelay: c.GetBroadcastDelay(),
		WriteTimeout:   c.GetHubWriteTimeout(),
		QueueSize:      c.GetHubQueueSize(),
		Logger:         logger.With().Str("component", "hub").Logger(),
	})
	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go forum.Run(hubCtx)

	authServer := &http.Server{
		Addr:              c.GetPort(),
		Handler:           server.New(c, gatekeeper, identity, logger.With().Str("component", "http").Logger()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	hubServer := &http.Server{
		Addr:              c.GetWSPort(),
		Handler:           hubRouter(c, forum, identity, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 2)
	go func() { errs <- listenAndServe(authServer, c, logger) }()
	go func() { errs <- listenAndServe(hubServer, c, logger) }()

	select {
	case <-waitForStopSignal():
	case err := <-errs:
		returnError = err
	}

	// Close member sockets first so read loops unwind while the dispatcher runs.
	forum.CloseAll()
	if err := shutdown(authServer, hubServer); err != nil && returnError == nil {
		returnError = err
	}
	return returnError
}

func hubRouter(c config.Config, forum *hub.Hub, identity *token.IdentityIssuer, logger zerolog.Logger) http.Handler {
	var resolver hub.IdentityResolver = hub.QueryIdentity
	if !c.GetTrustQueryIdentity() {
		resolver = hub.CookieIdentity(identity)
		logger.Info().Msg("Forum identity bound to signed identity cookie")
	}

	allowed := c.GetAllowedOrigins()
	var allowedOrigin func(string) bool
	if len(allowed) > 0 && !allowed.IsAllowedOrigin("*") {
		allowedOrigin = allowed.IsAllowedOrigin
	}

	rate, burst := c.GetHubMessageRate()
	r := mux.NewRouter()
	hub.NewHandler(forum, hub.TransportOptions{
		Resolver:      resolver,
		AllowedOrigin: allowedOrigin,
		MessageRate:   rate,
		MessageBurst:  burst,
		Logger:        logger.With().Str("component", "forum").Logger(),
	}).RegisterRoutes(r)
	return r
}

func listenAndServe(server *http.Server, c config.Config, logger zerolog.Logger) error {
	logger.Info().Str("addr", server.Addr).Msg("Server listening")

	var err error
	if certFile, keyFile, ok := c.GetTLSFiles(); ok {
		err = server.ListenAndServeTLS(certFile, keyFile)
	} else {
		err = server.ListenAndServe()
	}
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server.ListenAndServe %s: %w", server.Addr, err)
	}
	return nil
}

func waitForStopSignal() <-chan os.Signal {
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	return stop
}

func shutdown(servers ...*http.Server) error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	for _, server := range servers {
		if err := server.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("server.Shutdown %s: %w", server.Addr, err))
		}
	}
	return errors.Join(errs...)
}

func displayAppname(appname string) {
	myFigure := figure.NewFigure(appname, "cybermedium", true)
	myFigure.Print()
	fmt.Println()
}
