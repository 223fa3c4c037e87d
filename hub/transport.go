package hub

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"golang.org/x/net/websocket"
	"golang.org/x/time/rate"
)

const maxFramePayloadBytes = 64 * 1024

type TransportOptions struct {
	Resolver IdentityResolver
	// AllowedOrigin vets the browser Origin header. Nil allows any origin.
	AllowedOrigin func(origin string) bool
	// MessageRate is inbound frames per second per connection, zero for no limit.
	MessageRate  float64
	MessageBurst int
	Logger       zerolog.Logger
}

// Handler upgrades /forum requests to websocket members of the hub.
type Handler struct {
	hub           *Hub
	resolve       IdentityResolver
	allowedOrigin func(string) bool
	limit         rate.Limit
	burst         int
	logger        zerolog.Logger
}

func NewHandler(h *Hub, opts TransportOptions) *Handler {
	if opts.Resolver == nil {
		opts.Resolver = QueryIdentity
	}
	limit := rate.Inf
	if opts.MessageRate > 0 {
		limit = rate.Limit(opts.MessageRate)
	}
	if opts.MessageBurst <= 0 {
		opts.MessageBurst = 1
	}
	return &Handler{
		hub:           h,
		resolve:       opts.Resolver,
		allowedOrigin: opts.AllowedOrigin,
		limit:         limit,
		burst:         opts.MessageBurst,
		logger:        opts.Logger,
	}
}

func (t *Handler) RegisterRoutes(r *mux.Router) {
	r.Path("/up").Methods("GET").HandlerFunc(t.handleUp)
	r.Path("/forum").Methods("GET").Handler(t)
}

func (t *Handler) handleUp(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (t *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	identity, err := t.resolve(r)
	if err != nil {
		t.logger.Info().Err(err).Str("remote", r.RemoteAddr).Msg("Forum connection rejected")
		http.Error(w, "authentication required", http.StatusUnauthorized)
		return
	}

	server := websocket.Server{
		Handshake: t.checkOrigin,
		Handler: func(ws *websocket.Conn) {
			t.serve(ws, identity)
		},
	}
	server.ServeHTTP(w, r)
}

func (t *Handler) checkOrigin(cfg *websocket.Config, r *http.Request) error {
	if t.allowedOrigin == nil {
		return nil
	}
	if cfg.Origin == nil {
		return errors.New("missing origin")
	}
	origin := cfg.Origin.Scheme + "://" + cfg.Origin.Host
	if !t.allowedOrigin(origin) {
		t.logger.Warn().Str("origin", origin).Msg("Forum connection from disallowed origin")
		return fmt.Errorf("origin %q not allowed", origin)
	}
	return nil
}

func (t *Handler) serve(ws *websocket.Conn, identity Identity) {
	ws.MaxPayloadBytes = maxFramePayloadBytes
	sender := &wsSender{ws: ws}
	defer func() {
		_ = sender.Close()
	}()

	conn := t.hub.Join(sender, identity)
	defer t.hub.Leave(conn)

	limiter := rate.NewLimiter(t.limit, t.burst)
	for {
		var text string
		if err := websocket.Message.Receive(ws, &text); err != nil {
			if errors.Is(err, websocket.ErrFrameTooLarge) {
				t.logger.Warn().Str("conn", conn.Key()).Msg("Oversized frame dropped")
				continue
			}
			if !errors.Is(err, io.EOF) && !strings.Contains(err.Error(), "use of closed network connection") {
				t.logger.Debug().Err(err).Str("conn", conn.Key()).Msg("Forum read ended")
			}
			return
		}
		if !limiter.Allow() {
			t.logger.Warn().Str("conn", conn.Key()).Msg("Inbound message rate exceeded, dropping frame")
			continue
		}
		if err := t.hub.Message(conn, text); err != nil {
			t.logger.Warn().Err(err).Str("conn", conn.Key()).Msg("Message not broadcast")
		}
	}
}

type wsSender struct {
	ws *websocket.Conn
}

func (s *wsSender) Send(payload []byte, deadline time.Time) error {
	if err := s.ws.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return websocket.Message.Send(s.ws, string(payload))
}

func (s *wsSender) Close() error {
	return s.ws.Close()
}
