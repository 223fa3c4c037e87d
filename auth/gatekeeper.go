// Package auth decides, on every protected request, whether the browser is
// admitted, silently refreshed or sent to the identity provider, and completes
// the provider callback.
package auth

import (
	"context"
	"fmt"
	"net/url"

	"github.com/google/uuid"
	"github.com/jrsteele09/sse-forum/auth/sessions"
	"github.com/jrsteele09/sse-forum/oauthmodel"
	"github.com/jrsteele09/sse-forum/provider"
	"github.com/rs/zerolog"
)

const maxSessionIDLength = 128

type Decision int

const (
	// DecisionAdmit means an access token cookie was present.
	DecisionAdmit Decision = iota
	// DecisionRefreshed means a new access token was obtained from the refresh token.
	DecisionRefreshed
	// DecisionRedirect means the browser must authenticate with the provider.
	DecisionRedirect
)

func (d Decision) String() string {
	switch d {
	case DecisionAdmit:
		return "admit"
	case DecisionRefreshed:
		return "refreshed"
	case DecisionRedirect:
		return "redirect"
	default:
		return "unknown"
	}
}

// Credentials are the cookie values presented on a protected request.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	SessionID    string
}

type Outcome struct {
	Decision Decision

	// Tokens is set for DecisionRefreshed.
	Tokens *oauthmodel.TokenSet

	// RedirectURL and SessionID are set for DecisionRedirect. NewSession
	// reports that the session id was generated rather than reused.
	RedirectURL string
	SessionID   string
	NewSession  bool
}

type Gatekeeper struct {
	provider provider.Provider
	sessions sessions.Repo
	logger   zerolog.Logger
	newID    func() string
}

type Option func(*Gatekeeper)

// WithIDGenerator replaces uuid generation of session ids.
func WithIDGenerator(newID func() string) Option {
	return func(g *Gatekeeper) {
		g.newID = newID
	}
}

func New(p provider.Provider, repo sessions.Repo, logger zerolog.Logger, opts ...Option) *Gatekeeper {
	g := &Gatekeeper{
		provider: p,
		sessions: repo,
		logger:   logger,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// ProviderName is the name of the single provider this gatekeeper serves.
func (g *Gatekeeper) ProviderName() string {
	return g.provider.Name()
}

// Check runs the admission state machine. Only the redirect path can fail.
func (g *Gatekeeper) Check(ctx context.Context, creds Credentials) (*Outcome, error) {
	if creds.AccessToken != "" {
		return &Outcome{Decision: DecisionAdmit}, nil
	}

	if creds.RefreshToken != "" {
		tokens, err := g.provider.Refresh(ctx, creds.RefreshToken)
		if err == nil {
			return &Outcome{Decision: DecisionRefreshed, Tokens: tokens}, nil
		}
		g.logger.Info().Err(err).
			Bool("provider_rejected", oauthmodel.IsProviderError(err)).
			Msg("Silent refresh failed, falling back to provider sign-in")
	}

	return g.beginAuth(creds.SessionID)
}

func (g *Gatekeeper) beginAuth(sessionID string) (*Outcome, error) {
	newSession := false
	if sessionID == "" || len(sessionID) > maxSessionIDLength {
		sessionID = g.newID()
		newSession = true
	}

	authURL, verifier, err := g.provider.AuthURL()
	if err != nil {
		return nil, fmt.Errorf("[auth Check] failed to build authorization url: %w", err)
	}

	err = g.sessions.Upsert(sessionID, &sessions.Session{
		Provider:     g.provider.Name(),
		CodeVerifier: verifier,
		AuthURL:      authURL,
	})
	if err != nil {
		return nil, fmt.Errorf("[auth Check] failed to store session: %w", err)
	}

	redirectURL, err := withState(authURL, sessionID)
	if err != nil {
		return nil, fmt.Errorf("[auth Check] %w", err)
	}

	return &Outcome{
		Decision:    DecisionRedirect,
		RedirectURL: redirectURL,
		SessionID:   sessionID,
		NewSession:  newSession,
	}, nil
}

// Refresh trades a refresh token for a new token set. An invalid_grant
// rejection is terminal: the caller must send the user back to sign in.
func (g *Gatekeeper) Refresh(ctx context.Context, refreshToken string) (*oauthmodel.TokenSet, error) {
	if refreshToken == "" {
		return nil, oauthmodel.ErrNoRefreshToken
	}
	return g.provider.Refresh(ctx, refreshToken)
}

func withState(authURL, state string) (string, error) {
	u, err := url.Parse(authURL)
	if err != nil {
		return "", fmt.Errorf("invalid authorization url: %w", err)
	}
	q := u.Query()
	q.Set("state", state)
	u.RawQuery = q.Encode()
	return u.String(), nil
}
