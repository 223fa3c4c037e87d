package server

import (
	"net/http"
	"net/url"
	"time"

	"github.com/jrsteele09/sse-forum/hub"
	"github.com/jrsteele09/sse-forum/oauthmodel"
)

const (
	cookieAccessToken  = "accessToken"
	cookieRefreshToken = "refreshToken"
	cookieEmail        = "email"
	cookieName         = "name"
	cookieFamilyName   = "family_name"
	cookieGivenName    = "given_name"
	cookiePicture      = "picture"
	cookieWSHost       = "ws_host"
	// cookieAuthSession correlates a browser with its pending sign-in before
	// the provider redirects back with state.
	cookieAuthSession = "msession-id"
	cookieSessionID   = hub.SessionCookie
	cookieIdentity    = hub.IdentityCookie
)

type cookieOptions struct {
	httpOnly bool
	sameSite http.SameSite
	maxAge   time.Duration
}

func (s *Server) setCookie(w http.ResponseWriter, name, value string, opts cookieOptions) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: opts.httpOnly,
		Secure:   s.config.GetCookieSecure(),
		SameSite: opts.sameSite,
		MaxAge:   int(opts.maxAge / time.Second),
	})
}

// setTokenCookies stores the access token and, when the provider issued one,
// the refresh token.
func (s *Server) setTokenCookies(w http.ResponseWriter, tokens *oauthmodel.TokenSet) {
	s.setCookie(w, cookieAccessToken, tokens.AccessToken, cookieOptions{
		httpOnly: true,
		sameSite: http.SameSiteStrictMode,
		maxAge:   tokens.AccessTTL(),
	})
	if tokens.HasRefreshToken() {
		s.setCookie(w, cookieRefreshToken, tokens.RefreshToken, cookieOptions{
			httpOnly: true,
			sameSite: http.SameSiteStrictMode,
			maxAge:   s.config.GetRefreshCookieTTL(),
		})
	}
}

// setProfileCookies exposes the identity to the forum page script. Values are
// path escaped so names with spaces survive the cookie header.
func (s *Server) setProfileCookies(w http.ResponseWriter, identity *oauthmodel.UserIdentity, ttl time.Duration) {
	profile := []struct{ name, value string }{
		{cookieEmail, identity.Email},
		{cookieName, identity.DisplayName()},
		{cookieFamilyName, identity.FamilyName},
		{cookieGivenName, identity.GivenName},
		{cookiePicture, identity.Picture},
	}
	for _, c := range profile {
		s.setCookie(w, c.name, url.PathEscape(c.value), cookieOptions{
			sameSite: http.SameSiteStrictMode,
			maxAge:   ttl,
		})
	}
}

func (s *Server) setForumCookies(w http.ResponseWriter, sessionID string) {
	s.setCookie(w, cookieWSHost, s.config.GetWSHost(), cookieOptions{sameSite: http.SameSiteStrictMode})
	s.setCookie(w, cookieSessionID, sessionID, cookieOptions{sameSite: http.SameSiteStrictMode})
}

func (s *Server) setAuthSessionCookie(w http.ResponseWriter, sessionID string) {
	s.setCookie(w, cookieAuthSession, sessionID, cookieOptions{
		sameSite: http.SameSiteLaxMode,
		maxAge:   s.config.GetMaxSessionAge(),
	})
}

func cookieValue(r *http.Request, name string) string {
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return c.Value
}

// profileTTL caps the script readable cookies at the access token lifetime.
func (s *Server) profileTTL(tokens *oauthmodel.TokenSet) time.Duration {
	ttl := s.config.GetIdentityCookieTTL()
	if access := tokens.AccessTTL(); access < ttl {
		return access
	}
	return ttl
}

// redirectTo answers a browser navigation with a 302 and a script fetch with
// the target URL as a plain text body.
func redirectTo(w http.ResponseWriter, r *http.Request, target string) {
	if wantsHTML(r) {
		http.Redirect(w, r, target, http.StatusFound)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte(target))
}

func wantsHTML(r *http.Request) bool {
	for _, accept := range r.Header.Values("Accept") {
		if containsMediaType(accept, "text/html") {
			return true
		}
	}
	return false
}
