package hub

import (
	"errors"
	"net/http"
	"strings"

	"github.com/jrsteele09/sse-forum/token"
)

const (
	SessionCookie  = "sessionID"
	IdentityCookie = "identity"
)

var ErrNoIdentity = errors.New("missing identity cookie")

// IdentityResolver derives the chat identity from the upgrade request.
// A non-nil error rejects the connection with 401.
type IdentityResolver func(r *http.Request) (Identity, error)

type IdentityVerifier interface {
	Verify(raw string) (*token.IdentityClaims, error)
}

// QueryIdentity trusts the name and email query parameters as sent by the
// client. Other parameters are ignored.
func QueryIdentity(r *http.Request) (Identity, error) {
	q := r.URL.Query()
	return Identity{
		SessionID: sessionID(r),
		Name:      q.Get("name"),
		Email:     q.Get("email"),
	}, nil
}

// CookieIdentity binds name and email from a verified identity cookie and
// ignores the query string.
func CookieIdentity(verifier IdentityVerifier) IdentityResolver {
	return func(r *http.Request) (Identity, error) {
		cookie, err := r.Cookie(IdentityCookie)
		if err != nil || cookie.Value == "" {
			return Identity{}, ErrNoIdentity
		}
		claims, err := verifier.Verify(cookie.Value)
		if err != nil {
			return Identity{}, err
		}
		return Identity{
			SessionID: sessionID(r),
			Name:      claims.Name,
			Email:     claims.Email,
		}, nil
	}
}

func sessionID(r *http.Request) string {
	cookie, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(cookie.Value)
}
