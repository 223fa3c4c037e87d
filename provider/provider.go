// Package provider talks to the third-party identity provider: it builds the
// authorization URL, trades codes and refresh tokens for a TokenSet and
// resolves the signed-in user's identity.
package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jrsteele09/sse-forum/oauthmodel"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
)

const defaultTimeout = 10 * time.Second

// Provider is one configured identity provider and flow variant.
type Provider interface {
	Name() string
	// AuthURL returns the provider authorization URL without a state parameter,
	// and the PKCE verifier the caller must keep for the callback (empty for the
	// plain code flow).
	AuthURL() (authURL string, verifier string, err error)
	Exchange(ctx context.Context, code, verifier string) (*oauthmodel.TokenSet, error)
	Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenSet, error)
	FetchIdentity(ctx context.Context, tokens *oauthmodel.TokenSet) (*oauthmodel.UserIdentity, error)
}

// IdentityFetcher loads the user profile for an access token.
type IdentityFetcher interface {
	FetchProfile(ctx context.Context, token *oauth2.Token) (*oauthmodel.UserIdentity, error)
}

// EmailLister is implemented by fetchers whose profile may omit the email.
type EmailLister interface {
	ListEmails(ctx context.Context, token *oauth2.Token) ([]oauthmodel.EmailEntry, error)
}

type Credentials struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

type Options struct {
	Credentials Credentials
	PKCE        bool
	Timeout     time.Duration
	HTTPClient  *http.Client
	Logger      zerolog.Logger

	// Endpoint overrides the provider's public token and authorization endpoints.
	Endpoint *oauth2.Endpoint
	// UserInfoURL overrides the Google OIDC userinfo endpoint.
	UserInfoURL string
	// APIBaseURL overrides the GitHub REST API base URL.
	APIBaseURL string
}

// Client implements Provider on top of an oauth2.Config.
type Client struct {
	name       string
	oauth      *oauth2.Config
	flow       Flow
	staticOpts []oauth2.AuthCodeOption
	identity   IdentityFetcher
	timeout    time.Duration
	httpClient *http.Client
	logger     zerolog.Logger
}

var _ Provider = (*Client)(nil)

// New builds the provider registered under name.
func New(name string, opts Options) (*Client, error) {
	switch strings.ToLower(name) {
	case GoogleName:
		return NewGoogle(opts)
	case GitHubName:
		return NewGitHub(opts)
	default:
		return nil, fmt.Errorf("[provider New] %q: %w", name, oauthmodel.ErrUnknownProvider)
	}
}

func newClient(name string, endpoint oauth2.Endpoint, scopes []string, staticOpts []oauth2.AuthCodeOption, opts Options) *Client {
	if opts.Endpoint != nil {
		endpoint = *opts.Endpoint
	}
	endpoint.AuthStyle = oauth2.AuthStyleInParams

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}

	var flow Flow = CodeFlow{}
	if opts.PKCE {
		flow = PKCEFlow{}
	}

	return &Client{
		name: name,
		oauth: &oauth2.Config{
			ClientID:     opts.Credentials.ClientID,
			ClientSecret: opts.Credentials.ClientSecret,
			RedirectURL:  opts.Credentials.RedirectURL,
			Endpoint:     endpoint,
			Scopes:       scopes,
		},
		flow:       flow,
		staticOpts: staticOpts,
		timeout:    timeout,
		httpClient: httpClient,
		logger:     opts.Logger.With().Str("provider", name).Str("flow", flow.Name()).Logger(),
	}
}

func (c *Client) Name() string {
	return c.name
}

// FlowName is "pkce" or "code".
func (c *Client) FlowName() string {
	return c.flow.Name()
}

func (c *Client) AuthURL() (string, string, error) {
	flowOpts, verifier, err := c.flow.AuthCodeOptions()
	if err != nil {
		return "", "", fmt.Errorf("[provider AuthURL] %w", err)
	}
	opts := make([]oauth2.AuthCodeOption, 0, len(c.staticOpts)+len(flowOpts))
	opts = append(opts, c.staticOpts...)
	opts = append(opts, flowOpts...)
	return c.oauth.AuthCodeURL("", opts...), verifier, nil
}

func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauthmodel.TokenSet, error) {
	if code == "" {
		return nil, oauthmodel.ErrMissingCode
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tok, err := c.oauth.Exchange(ctx, code, c.flow.ExchangeOptions(verifier)...)
	if err != nil {
		return nil, classifyTokenError("exchange", err)
	}
	return toTokenSet(tok)
}

func (c *Client) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenSet, error) {
	if refreshToken == "" {
		return nil, oauthmodel.ErrNoRefreshToken
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tok, err := c.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken}).Token()
	if err != nil {
		return nil, classifyTokenError("refresh", err)
	}
	return toTokenSet(tok)
}

// FetchIdentity loads the profile and, when it carries no email, falls back to
// the provider's email list. An empty email after the fallback is accepted.
func (c *Client) FetchIdentity(ctx context.Context, tokens *oauthmodel.TokenSet) (*oauthmodel.UserIdentity, error) {
	if tokens == nil || tokens.AccessToken == "" {
		return nil, oauthmodel.ErrEmptyToken
	}
	ctx, cancel := c.callContext(ctx)
	defer cancel()

	tok := &oauth2.Token{AccessToken: tokens.AccessToken, TokenType: tokens.TokenType}
	identity, err := c.identity.FetchProfile(ctx, tok)
	if err != nil {
		return nil, err
	}
	if identity.Email != "" {
		return identity, nil
	}

	lister, ok := c.identity.(EmailLister)
	if !ok {
		return identity, nil
	}
	emails, err := lister.ListEmails(ctx, tok)
	if err != nil {
		c.logger.Warn().Err(err).Str("user", identity.ID).Msg("Unable to list user emails")
		return identity, nil
	}
	identity.Email = oauthmodel.PrimaryEmail(emails)
	return identity, nil
}

func (c *Client) callContext(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	return context.WithTimeout(ctx, c.timeout)
}

func classifyTokenError(op string, err error) error {
	var re *oauth2.RetrieveError
	if errors.As(err, &re) && re.ErrorCode != "" {
		pe := &oauthmodel.ProviderError{Op: op, Code: re.ErrorCode, Description: re.ErrorDescription}
		if re.Response != nil {
			pe.StatusCode = re.Response.StatusCode
		}
		return pe
	}
	return &oauthmodel.NetworkError{Op: op, Err: err}
}

func toTokenSet(tok *oauth2.Token) (*oauthmodel.TokenSet, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, &oauthmodel.NetworkError{Op: "token", Err: oauthmodel.ErrEmptyToken}
	}
	ts := &oauthmodel.TokenSet{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		Expiry:       tok.Expiry,
		ExpiresIn:    expiresIn(tok),
	}
	if idToken, ok := tok.Extra("id_token").(string); ok {
		ts.IDToken = idToken
	}
	return ts, nil
}

func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		return int64(v)
	case int64:
		return v
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	if tok.ExpiresIn > 0 {
		return tok.ExpiresIn
	}
	if !tok.Expiry.IsZero() {
		if secs := int64(time.Until(tok.Expiry).Round(time.Second) / time.Second); secs > 0 {
			return secs
		}
	}
	return 0
}
