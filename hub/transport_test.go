package hub_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/jrsteele09/sse-forum/hub"
	"github.com/jrsteele09/sse-forum/oauthmodel"
	"github.com/jrsteele09/sse-forum/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

func newForumServer(t *testing.T, opts hub.TransportOptions) *httptest.Server {
	t.Helper()
	h := startHub(t, hub.Options{})
	opts.Logger = zerolog.Nop()

	r := mux.NewRouter()
	hub.NewHandler(h, opts).RegisterRoutes(r)
	srv := httptest.NewServer(r)
	t.Cleanup(func() {
		h.CloseAll()
		srv.Close()
	})
	return srv
}

func dialForum(httpURL, path, cookie string) (*websocket.Conn, error) {
	wsURL := "ws" + strings.TrimPrefix(httpURL, "http") + path
	cfg, err := websocket.NewConfig(wsURL, httpURL)
	if err != nil {
		return nil, err
	}
	if cookie != "" {
		cfg.Header = make(http.Header)
		cfg.Header.Set("Cookie", cookie)
	}
	return websocket.DialConfig(cfg)
}

func mustDial(t *testing.T, srv *httptest.Server, path, cookie string) *websocket.Conn {
	t.Helper()
	conn, err := dialForum(srv.URL, path, cookie)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = conn.Close()
	})
	return conn
}

func readEnvelope(t *testing.T, conn *websocket.Conn) hub.Envelope {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var raw string
	require.NoError(t, websocket.Message.Receive(conn, &raw))
	var env hub.Envelope
	require.NoError(t, json.Unmarshal([]byte(raw), &env))
	return env
}

func TestForum_Scenario(t *testing.T) {
	srv := newForumServer(t, hub.TransportOptions{})

	a := mustDial(t, srv, "/forum?name=Al&email=a%40x.com&ignored=1", "sessionID=abc")
	joined := readEnvelope(t, a)
	require.Equal(t, "abc", joined.ID)
	require.Equal(t, "Al", joined.Name)
	require.Equal(t, "a@x.com", joined.Email)
	require.Equal(t, hub.MessageJoined, joined.Message)
	require.Equal(t, 1, joined.ActiveParticipants)

	b := mustDial(t, srv, "/forum?name=Bo&email=b%40x.com", "sessionID=def")
	require.Equal(t, 2, readEnvelope(t, a).ActiveParticipants)
	require.Equal(t, "Bo", readEnvelope(t, b).Name)

	require.NoError(t, websocket.Message.Send(a, "hi"))
	for _, conn := range []*websocket.Conn{a, b} {
		env := readEnvelope(t, conn)
		require.Equal(t, "Al", env.Name)
		require.Equal(t, "a@x.com", env.Email)
		require.Equal(t, "hi", env.Message)
		require.Equal(t, 2, env.ActiveParticipants)
	}

	require.NoError(t, b.Close())
	left := readEnvelope(t, a)
	require.Equal(t, hub.MessageLeft, left.Message)
	require.Equal(t, "Bo", left.Name)
	require.Equal(t, 1, left.ActiveParticipants)
}

func TestForum_Up(t *testing.T) {
	srv := newForumServer(t, hub.TransportOptions{})

	resp, err := srv.Client().Get(srv.URL + "/up")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Equal(t, "OK", string(body))
}

func TestForum_OriginCheck(t *testing.T) {
	srv := newForumServer(t, hub.TransportOptions{
		AllowedOrigin: func(origin string) bool { return origin == "https://forum.example.com" },
	})

	_, err := dialForum(srv.URL, "/forum?name=Al", "")
	require.Error(t, err)
}

func TestForum_HardenedIdentity(t *testing.T) {
	signer, err := token.NewHMACSigner("s3cret")
	require.NoError(t, err)
	issuer := token.NewIdentityIssuer(signer)

	srv := newForumServer(t, hub.TransportOptions{Resolver: hub.CookieIdentity(issuer)})

	t.Run("no cookie", func(t *testing.T) {
		_, err := dialForum(srv.URL, "/forum?name=Mallory", "sessionID=abc")
		require.Error(t, err)
	})

	t.Run("forged cookie", func(t *testing.T) {
		_, err := dialForum(srv.URL, "/forum", "identity=not.a.jwt")
		require.Error(t, err)
	})

	t.Run("verified cookie wins over query", func(t *testing.T) {
		raw, err := issuer.Issue(&oauthmodel.UserIdentity{ID: "1", Name: "Al", Email: "a@x.com"}, time.Minute)
		require.NoError(t, err)

		conn := mustDial(t, srv, "/forum?name=Mallory&email=m%40x.com", "sessionID=abc; identity="+raw)
		env := readEnvelope(t, conn)
		require.Equal(t, "Al", env.Name)
		require.Equal(t, "a@x.com", env.Email)
	})
}

func TestForum_RateLimit(t *testing.T) {
	srv := newForumServer(t, hub.TransportOptions{MessageRate: 0.001, MessageBurst: 1})

	conn := mustDial(t, srv, "/forum?name=Al", "")
	readEnvelope(t, conn)

	for i := 0; i < 3; i++ {
		require.NoError(t, websocket.Message.Send(conn, "spam"))
	}
	require.Equal(t, "spam", readEnvelope(t, conn).Message)

	_ = conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var raw string
	err := websocket.Message.Receive(conn, &raw)
	require.Error(t, err)
}

func TestQueryIdentity(t *testing.T) {
	r := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/forum?name=Al+Smith&email=a%40x.com&color=12", nil)
	r.AddCookie(&http.Cookie{Name: hub.SessionCookie, Value: "abc"})

	id, err := hub.QueryIdentity(r)
	require.NoError(t, err)
	require.Equal(t, hub.Identity{SessionID: "abc", Name: "Al Smith", Email: "a@x.com"}, id)
}
