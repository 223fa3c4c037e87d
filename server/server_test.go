package server_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/jrsteele09/sse-forum/auth"
	"github.com/jrsteele09/sse-forum/auth/sessions"
	fakesessionrepo "github.com/jrsteele09/sse-forum/auth/sessions/repofakes"
	"github.com/jrsteele09/sse-forum/internal/config"
	"github.com/jrsteele09/sse-forum/oauthmodel"
	"github.com/jrsteele09/sse-forum/provider/providerfake"
	"github.com/jrsteele09/sse-forum/server"
	"github.com/jrsteele09/sse-forum/token"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

type testFixture struct {
	provider   *providerfake.Provider
	sessions   *sessions.InMemoryRepo
	gatekeeper *auth.Gatekeeper
	identity   *token.IdentityIssuer
	server     *server.Server
}

func setupTestFixture(t *testing.T) *testFixture {
	t.Helper()

	t.Setenv("OAUTH_PROVIDER", "google")
	t.Setenv("GOOGLE_CLIENT_ID", "google-client")
	t.Setenv("GOOGLE_CLIENT_SECRET", "google-secret")
	t.Setenv("GOOGLE_REDIRECT_URI", "https://localhost:8443/auth/google/callback")
	t.Setenv("ALLOWED_ORIGINS", "https://forum.example.com")
	t.Setenv("WS_HOST", "chat.example.com:8444")
	t.Setenv("ENV", "TEST")
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	p := providerfake.New()
	p.Codes["xyz"] = &oauthmodel.TokenSet{AccessToken: "AT1", RefreshToken: "RT1", ExpiresIn: 3600}
	p.RefreshTokens["RT1"] = &oauthmodel.TokenSet{AccessToken: "AT2", ExpiresIn: 3599}
	p.Identity = &oauthmodel.UserIdentity{ID: "1001", Name: "Al Jones", GivenName: "Al", FamilyName: "Jones", Email: "a@x.com"}

	signer, err := token.NewHMACSigner("test-secret")
	require.NoError(t, err)
	issuer := token.NewIdentityIssuer(signer)

	repo := sessions.NewInMemoryRepo(10 * time.Minute)
	gk := auth.New(p, repo, zerolog.Nop())
	return &testFixture{
		provider:   p,
		sessions:   repo,
		gatekeeper: gk,
		identity:   issuer,
		server:     server.New(cfg, gk, issuer, zerolog.Nop()),
	}
}

func (f *testFixture) do(t *testing.T, req *http.Request) *http.Response {
	t.Helper()
	rec := httptest.NewRecorder()
	f.server.ServeHTTP(rec, req)
	return rec.Result()
}

func body(t *testing.T, res *http.Response) string {
	t.Helper()
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return string(data)
}

func cookies(res *http.Response) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range res.Cookies() {
		out[c.Name] = c
	}
	return out
}

func TestIndex(t *testing.T) {
	f := setupTestFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/html")
	require.Contains(t, body(t, res), "Sign in")
}

func TestUp(t *testing.T) {
	f := setupTestFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/up", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "OK", body(t, res))
}

func TestSession_IssuesCorrelationCookie(t *testing.T) {
	f := setupTestFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/session", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)

	c := cookies(res)["msession-id"]
	require.NotNil(t, c)
	require.NotEmpty(t, c.Value)
	require.Equal(t, "session created with id: "+c.Value, body(t, res))
}

func TestAuth_ScriptFetchGetsURL(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.Header.Set("Accept", "text/plain")
	req.AddCookie(&http.Cookie{Name: "msession-id", Value: "abc"})
	res := f.do(t, req)
	require.Equal(t, http.StatusOK, res.StatusCode)

	u, err := url.Parse(body(t, res))
	require.NoError(t, err)
	require.Equal(t, "abc", u.Query().Get("state"))
	require.Equal(t, "S256", u.Query().Get("code_challenge_method"))
	require.Equal(t, 1, f.sessions.Len())
	require.Nil(t, cookies(res)["msession-id"], "existing correlator is reused")
}

func TestAuth_BrowserNavigationRedirects(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9")
	res := f.do(t, req)
	require.Equal(t, http.StatusFound, res.StatusCode)

	loc, err := url.Parse(res.Header.Get("Location"))
	require.NoError(t, err)
	sid := cookies(res)["msession-id"]
	require.NotNil(t, sid)
	require.Equal(t, sid.Value, loc.Query().Get("state"))
}

func TestAuth_AdmitServesForum(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: "AT1"})
	res := f.do(t, req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body(t, res), "WebSocket")

	c := cookies(res)
	require.Equal(t, "chat.example.com:8444", c["ws_host"].Value)
	require.NotEmpty(t, c["sessionID"].Value)
	require.Empty(t, f.provider.Refreshes())
}

func TestAuth_SilentRefresh(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "RT1"})
	res := f.do(t, req)
	require.Equal(t, http.StatusOK, res.StatusCode)

	access := cookies(res)["accessToken"]
	require.NotNil(t, access)
	require.Equal(t, "AT2", access.Value)
	require.Equal(t, 3599, access.MaxAge)
	require.True(t, access.HttpOnly)
	require.Equal(t, http.SameSiteStrictMode, access.SameSite)
}

func TestAuth_RevokedRefreshFallsBackToSignIn(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth", nil)
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "revoked"})
	res := f.do(t, req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.True(t, strings.HasPrefix(body(t, res), "https://idp.example.com/authorize?"))
}

func TestAuth_StoreFailure(t *testing.T) {
	f := setupTestFixture(t)
	cfg, err := config.FromEnv()
	require.NoError(t, err)

	repo := fakesessionrepo.NewFakeSessionRepo()
	repo.UpsertErr = errors.New("store unavailable")
	srv := server.New(cfg, auth.New(f.provider, repo, zerolog.Nop()), f.identity, zerolog.Nop())

	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/auth", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "Authentication failed.")
}

func TestCallback_Scenario(t *testing.T) {
	f := setupTestFixture(t)

	out, err := f.gatekeeper.Check(context.Background(), auth.Credentials{SessionID: "abc"})
	require.NoError(t, err)
	require.Equal(t, auth.DecisionRedirect, out.Decision)
	verifier := f.provider.LastVerifier()

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=xyz", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, body(t, res), "WebSocket")

	c := cookies(res)
	require.Equal(t, "AT1", c["accessToken"].Value)
	require.Equal(t, 3600, c["accessToken"].MaxAge)
	require.Equal(t, "RT1", c["refreshToken"].Value)
	require.Equal(t, int((8760 * time.Hour).Seconds()), c["refreshToken"].MaxAge)
	require.Equal(t, "Al%20Jones", c["name"].Value)
	require.False(t, c["name"].HttpOnly)
	require.Equal(t, "a@x.com", c["email"].Value)
	require.Equal(t, "Al", c["given_name"].Value)
	require.Equal(t, "Jones", c["family_name"].Value)
	require.Equal(t, 15*60, c["email"].MaxAge)
	require.NotEmpty(t, c["sessionID"].Value)

	claims, err := f.identity.Verify(c["identity"].Value)
	require.NoError(t, err)
	require.Equal(t, "Al Jones", claims.Name)
	require.Equal(t, "a@x.com", claims.Email)
	require.True(t, c["identity"].HttpOnly)

	require.Equal(t, []providerfake.ExchangeCall{{Code: "xyz", Verifier: verifier}}, f.provider.Exchanges())
	_, err = f.sessions.Get("abc")
	require.ErrorIs(t, err, sessions.ErrSessionNotFound)
}

func TestCallback_ShortLivedAccessTokenCapsProfileCookies(t *testing.T) {
	f := setupTestFixture(t)
	f.provider.Codes["short"] = &oauthmodel.TokenSet{AccessToken: "AT3", ExpiresIn: 60}

	_, err := f.gatekeeper.Check(context.Background(), auth.Credentials{SessionID: "abc"})
	require.NoError(t, err)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/auth/google/callback?state=abc&code=short", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)

	c := cookies(res)
	require.Equal(t, 60, c["email"].MaxAge)
	require.Nil(t, c["refreshToken"], "no refresh cookie unless issued")
}

func TestCallback_Errors(t *testing.T) {
	tests := []struct {
		name       string
		target     string
		setup      func(f *testFixture)
		wantStatus int
		wantBody   string
	}{
		{
			name:       "unissued state",
			target:     "/auth/google/callback?state=nope&code=xyz",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Invalid session ID",
		},
		{
			name:       "missing code",
			target:     "/auth/google/callback?state=abc",
			wantStatus: http.StatusBadRequest,
			wantBody:   "Missing authorization code or state",
		},
		{
			name:       "provider error parameter",
			target:     "/auth/google/callback?error=access_denied&error_description=User+cancelled",
			wantStatus: http.StatusBadRequest,
			wantBody:   "User cancelled",
		},
		{
			name:       "other provider",
			target:     "/auth/github/callback?state=abc&code=xyz",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "rejected code",
			target:     "/auth/google/callback?state=abc&code=bad",
			wantStatus: http.StatusSeeOther,
		},
		{
			name:   "provider unreachable",
			target: "/auth/google/callback?state=abc&code=xyz",
			setup: func(f *testFixture) {
				f.provider.Err = &oauthmodel.NetworkError{Op: "exchange", Err: errors.New("dial tcp: refused")}
			},
			wantStatus: http.StatusInternalServerError,
			wantBody:   "Authentication failed.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			_, err := f.gatekeeper.Check(context.Background(), auth.Credentials{SessionID: "abc"})
			require.NoError(t, err)
			if tt.setup != nil {
				tt.setup(f)
			}

			res := f.do(t, httptest.NewRequest(http.MethodGet, tt.target, nil))
			require.Equal(t, tt.wantStatus, res.StatusCode)
			if tt.wantBody != "" {
				require.Contains(t, body(t, res), tt.wantBody)
			}
			require.Nil(t, cookies(res)["accessToken"])
		})
	}
}

func TestRefresh(t *testing.T) {
	tests := []struct {
		name        string
		cookie      string
		providerErr error
		wantStatus  int
		wantBody    string
	}{
		{name: "no cookie", wantStatus: http.StatusUnauthorized, wantBody: "No refresh token available. Please log in again."},
		{name: "revoked", cookie: "revoked", wantStatus: http.StatusUnauthorized, wantBody: "Failed to refresh token. Please log in again."},
		{
			name:        "provider unreachable",
			cookie:      "RT1",
			providerErr: &oauthmodel.NetworkError{Op: "refresh", Err: errors.New("timeout")},
			wantStatus:  http.StatusInternalServerError,
			wantBody:    "Authentication failed.",
		},
		{name: "refreshed", cookie: "RT1", wantStatus: http.StatusOK, wantBody: "Token refreshed successfully."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := setupTestFixture(t)
			f.provider.Err = tt.providerErr

			req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
			if tt.cookie != "" {
				req.AddCookie(&http.Cookie{Name: "refreshToken", Value: tt.cookie})
			}
			res := f.do(t, req)
			require.Equal(t, tt.wantStatus, res.StatusCode)
			require.Contains(t, body(t, res), tt.wantBody)

			if tt.wantStatus == http.StatusOK {
				require.Equal(t, "AT2", cookies(res)["accessToken"].Value)
			}
		})
	}
}

func TestCors(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.Header.Set("Origin", "https://forum.example.com")
	req.AddCookie(&http.Cookie{Name: "refreshToken", Value: "RT1"})
	res := f.do(t, req)
	require.Equal(t, "https://forum.example.com", res.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "true", res.Header.Get("Access-Control-Allow-Credentials"))

	req = httptest.NewRequest(http.MethodGet, "/auth/refresh", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	res = f.do(t, req)
	require.Empty(t, res.Header.Get("Access-Control-Allow-Origin"))
}

func TestCors_Preflight(t *testing.T) {
	f := setupTestFixture(t)

	req := httptest.NewRequest(http.MethodOptions, "/auth/refresh", nil)
	req.Header.Set("Origin", "https://forum.example.com")
	res := f.do(t, req)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "https://forum.example.com", res.Header.Get("Access-Control-Allow-Origin"))
	require.Equal(t, "GET, OPTIONS", res.Header.Get("Access-Control-Allow-Methods"))
	require.Equal(t, "86400", res.Header.Get("Access-Control-Max-Age"))
}

func TestRecoverMiddleware(t *testing.T) {
	f := setupTestFixture(t)

	h := server.ChainMiddleware(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}, f.server.RecoverMiddleware)

	rec := httptest.NewRecorder()
	h(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStaticAssets(t *testing.T) {
	f := setupTestFixture(t)

	res := f.do(t, httptest.NewRequest(http.MethodGet, "/static/forum.css", nil))
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "SAMEORIGIN", res.Header.Get("X-Frame-Options"))
}
