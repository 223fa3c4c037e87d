package provider

import (
	"context"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/sse-forum/oauthmodel"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/endpoints"
)

const (
	GoogleName = "google"

	googleIssuer      = "https://accounts.google.com"
	googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"
	googleJWKSURL     = "https://www.googleapis.com/oauth2/v3/certs"
)

// NewGoogle asks for offline access with a forced consent prompt so that a
// refresh token is issued on every sign-in.
func NewGoogle(opts Options) (*Client, error) {
	c := newClient(GoogleName,
		endpoints.Google,
		[]string{oidc.ScopeOpenID, "profile", "email"},
		[]oauth2.AuthCodeOption{oauth2.AccessTypeOffline, oauth2.ApprovalForce},
		opts,
	)

	userInfoURL := opts.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleUserInfoURL
	}
	oidcProvider := (&oidc.ProviderConfig{
		IssuerURL:   googleIssuer,
		AuthURL:     c.oauth.Endpoint.AuthURL,
		TokenURL:    c.oauth.Endpoint.TokenURL,
		UserInfoURL: userInfoURL,
		JWKSURL:     googleJWKSURL,
		Algorithms:  []string{oidc.RS256},
	}).NewProvider(context.Background())

	c.identity = googleIdentity{provider: oidcProvider}
	return c, nil
}

type googleIdentity struct {
	provider *oidc.Provider
}

type googleClaims struct {
	Name       string `json:"name"`
	GivenName  string `json:"given_name"`
	FamilyName string `json:"family_name"`
	Picture    string `json:"picture"`
	Email      string `json:"email"`
}

func (g googleIdentity) FetchProfile(ctx context.Context, token *oauth2.Token) (*oauthmodel.UserIdentity, error) {
	info, err := g.provider.UserInfo(ctx, oauth2.StaticTokenSource(token))
	if err != nil {
		return nil, &oauthmodel.NetworkError{Op: "userinfo", Err: err}
	}
	var claims googleClaims
	if err := info.Claims(&claims); err != nil {
		return nil, &oauthmodel.NetworkError{Op: "userinfo", Err: err}
	}
	email := claims.Email
	if email == "" {
		email = info.Email
	}
	return &oauthmodel.UserIdentity{
		ID:         info.Subject,
		Name:       claims.Name,
		GivenName:  claims.GivenName,
		FamilyName: claims.FamilyName,
		Email:      email,
		Picture:    claims.Picture,
	}, nil
}
